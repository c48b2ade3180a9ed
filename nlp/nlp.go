// Package nlp solves general constrained nonlinear programs:
//
//	minimize f(x) subject to cl <= c(x) <= cu and xl <= x <= xu.
//
// Callers supply the objective, the constraint function, bounds, and an
// initial point; the backend owns the search and the derivative computation.
package nlp

import (
	"fmt"
	"math"
	"time"
)

// Status reports how a solve ended.
type Status int

const (
	// StatusSuccess means feasibility and the inner optimality tolerance
	// were both reached.
	StatusSuccess Status = iota
	// StatusMaxTime means the wall-clock budget expired first. X holds the
	// best point found so far, which is usually still usable.
	StatusMaxTime
	// StatusMaxIterations means the outer iteration cap was hit.
	StatusMaxIterations
	// StatusNumericFailure means the inner minimizer broke down and no
	// further progress was possible.
	StatusNumericFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusMaxTime:
		return "max_time"
	case StatusMaxIterations:
		return "max_iterations"
	case StatusNumericFailure:
		return "numeric_failure"
	default:
		return "unknown"
	}
}

// Problem is a constrained NLP. Constraints writes the NumCons residual
// values for x into dst. A constraint with ConsLower[i] == ConsUpper[i] is an
// equality pinned to that value. Bounds with magnitude >= Unbounded are
// treated as absent.
type Problem struct {
	NumVars int
	NumCons int

	Objective   func(x []float64) float64
	Constraints func(dst, x []float64)

	VarLower []float64
	VarUpper []float64

	ConsLower []float64
	ConsUpper []float64
}

// Unbounded is the magnitude threshold beyond which a variable bound is
// treated as infinite.
const Unbounded = 1e20

// Validate checks the problem dimensions are consistent.
func (p Problem) Validate() error {
	if p.NumVars <= 0 {
		return fmt.Errorf("nlp: NumVars must be positive, got %d", p.NumVars)
	}
	if p.Objective == nil {
		return fmt.Errorf("nlp: Objective is nil")
	}
	if len(p.VarLower) != p.NumVars || len(p.VarUpper) != p.NumVars {
		return fmt.Errorf("nlp: variable bounds length %d/%d, want %d",
			len(p.VarLower), len(p.VarUpper), p.NumVars)
	}
	if p.NumCons > 0 {
		if p.Constraints == nil {
			return fmt.Errorf("nlp: NumCons is %d but Constraints is nil", p.NumCons)
		}
		if len(p.ConsLower) != p.NumCons || len(p.ConsUpper) != p.NumCons {
			return fmt.Errorf("nlp: constraint bounds length %d/%d, want %d",
				len(p.ConsLower), len(p.ConsUpper), p.NumCons)
		}
	}
	for i := 0; i < p.NumVars; i++ {
		if p.VarLower[i] > p.VarUpper[i] {
			return fmt.Errorf("nlp: variable %d has crossed bounds [%g, %g]",
				i, p.VarLower[i], p.VarUpper[i])
		}
	}
	return nil
}

// Options controls a solve.
type Options struct {
	// MaxTime is the wall-clock budget. The solver returns its best point
	// with StatusMaxTime rather than blocking past it.
	MaxTime time.Duration
	// MaxIterations caps the outer (multiplier update) iterations.
	MaxIterations int
	// Tolerance is the max-norm feasibility tolerance for success.
	Tolerance float64
	// Verbose enables per-iteration progress callbacks via Logf.
	Verbose bool
	// Logf receives progress lines when Verbose is set. Printf signature so
	// any leveled logger method plugs in directly.
	Logf func(format string, args ...any)
}

// DefaultOptions mirrors the control-loop defaults: half a second of wall
// clock and a feasibility tolerance comfortably above the finite-difference
// noise floor.
func DefaultOptions() Options {
	return Options{
		MaxTime:       500 * time.Millisecond,
		MaxIterations: 40,
		Tolerance:     1e-4,
	}
}

// Result is the outcome of one solve.
type Result struct {
	Status       Status
	X            []float64
	Objective    float64
	MaxViolation float64 // max-norm constraint violation at X
	Iterations   int     // outer iterations performed
	Runtime      time.Duration
}

// Solver is a derivative-based constrained optimizer backend.
type Solver interface {
	Solve(p Problem, x0 []float64, opts Options) (Result, error)
}

func isUnbounded(lo, hi float64) bool {
	return lo <= -Unbounded && hi >= Unbounded
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
