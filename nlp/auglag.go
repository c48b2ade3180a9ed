package nlp

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// AugLag is the default Solver backend: an augmented Lagrangian outer loop
// for the constraints with quasi-Newton (BFGS) inner minimizations. Box
// bounds are enforced exactly by a smooth change of variables, so every
// iterate the inner minimizer visits is bound-feasible. Derivatives of the
// caller's functions are taken by central finite differences; the caller
// never supplies them.
type AugLag struct {
	// InnerIterations caps each BFGS subproblem.
	InnerIterations int
	// PenaltyInit, PenaltyGrowth and PenaltyMax drive the quadratic penalty
	// schedule when feasibility stalls.
	PenaltyInit   float64
	PenaltyGrowth float64
	PenaltyMax    float64
}

// NewAugLag returns a backend with the stock schedule.
func NewAugLag() *AugLag {
	return &AugLag{
		InnerIterations: 300,
		PenaltyInit:     10,
		PenaltyGrowth:   10,
		PenaltyMax:      1e8,
	}
}

// Solve runs the augmented Lagrangian iteration from x0.
//
// The error return is reserved for malformed problems; a solve that merely
// fails to converge reports that through Result.Status and still carries the
// best point found.
func (s *AugLag) Solve(p Problem, x0 []float64, opts Options) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if len(x0) != p.NumVars {
		return Result{}, fmt.Errorf("nlp: initial point length %d, want %d", len(x0), p.NumVars)
	}
	if opts.MaxTime <= 0 {
		opts.MaxTime = DefaultOptions().MaxTime
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultOptions().Tolerance
	}

	start := time.Now()
	tr := newBoxTransform(p.VarLower, p.VarUpper)
	z := tr.encode(x0)

	lambda := make([]float64, p.NumCons)
	rho := s.PenaltyInit

	// Scratch reused across the (serial) inner evaluations.
	xbuf := make([]float64, p.NumVars)
	cbuf := make([]float64, p.NumCons)
	rbuf := make([]float64, p.NumCons)

	residuals := func(x, dst []float64) {
		if p.NumCons == 0 {
			return
		}
		p.Constraints(cbuf, x)
		for i := range dst {
			lo, hi := p.ConsLower[i], p.ConsUpper[i]
			if lo == hi {
				dst[i] = cbuf[i] - lo
			} else {
				dst[i] = cbuf[i] - clamp(cbuf[i], lo, hi)
			}
		}
	}

	status := StatusMaxIterations
	prevViol := math.Inf(1)
	iters := 0

	for k := 0; k < opts.MaxIterations; k++ {
		remaining := opts.MaxTime - time.Since(start)
		if remaining <= 0 {
			status = StatusMaxTime
			break
		}
		iters = k + 1

		// Best point seen during this round, in case the line search dies
		// mid-iteration.
		roundBest := append([]float64(nil), z...)
		roundBestVal := math.Inf(1)

		merit := func(zv []float64) float64 {
			tr.decodeTo(xbuf, zv)
			val := p.Objective(xbuf)
			residuals(xbuf, rbuf)
			for i, r := range rbuf {
				val += -lambda[i]*r + 0.5*rho*r*r
			}
			if val < roundBestVal {
				roundBestVal = val
				copy(roundBest, zv)
			}
			return val
		}

		prob := optimize.Problem{
			Func: merit,
			Grad: func(grad, zv []float64) {
				fd.Gradient(grad, merit, zv, &fd.Settings{Formula: fd.Central})
			},
		}
		settings := &optimize.Settings{
			Runtime:         remaining,
			MajorIterations: s.InnerIterations,
		}

		res, err := optimize.Minimize(prob, z, settings, &optimize.BFGS{})
		if err == nil && res != nil {
			z = res.X
		} else if !math.IsInf(roundBestVal, 1) {
			// Line search broke down; fall back to the best point this
			// round rather than giving up the whole solve.
			z = roundBest
		} else {
			status = StatusNumericFailure
			break
		}

		tr.decodeTo(xbuf, z)
		residuals(xbuf, rbuf)
		viol := 0.0
		if p.NumCons > 0 {
			viol = floats.Norm(rbuf, math.Inf(1))
		}
		if opts.Verbose && opts.Logf != nil {
			opts.Logf("nlp: iter=%d obj=%.6g viol=%.3e rho=%.1e", k, p.Objective(xbuf), viol, rho)
		}

		if viol <= opts.Tolerance {
			status = StatusSuccess
			break
		}

		// First-order multiplier update on sufficient feasibility progress,
		// otherwise tighten the penalty (LANCELOT-style schedule).
		if viol <= 0.25*prevViol {
			for i, r := range rbuf {
				lambda[i] -= rho * r
			}
			prevViol = viol
		} else {
			rho = math.Min(rho*s.PenaltyGrowth, s.PenaltyMax)
		}
	}

	x := make([]float64, p.NumVars)
	tr.decodeTo(x, z)
	for i := range x {
		x[i] = clamp(x[i], p.VarLower[i], p.VarUpper[i])
	}
	residuals(x, rbuf)
	viol := 0.0
	if p.NumCons > 0 {
		viol = floats.Norm(rbuf, math.Inf(1))
	}

	return Result{
		Status:       status,
		X:            x,
		Objective:    p.Objective(x),
		MaxViolation: viol,
		Iterations:   iters,
		Runtime:      time.Since(start),
	}, nil
}

// boxTransform maps between the bounded solver space and an unbounded search
// space. Two-sided finite bounds use a logistic map, one-sided bounds an
// exponential shift, unbounded variables pass through.
type boxTransform struct {
	lo, hi []float64
}

func newBoxTransform(lo, hi []float64) *boxTransform {
	return &boxTransform{lo: lo, hi: hi}
}

func (t *boxTransform) encode(x []float64) []float64 {
	z := make([]float64, len(x))
	for i, v := range x {
		lo, hi := t.lo[i], t.hi[i]
		switch {
		case isUnbounded(lo, hi):
			z[i] = v
		case lo > -Unbounded && hi < Unbounded:
			if hi-lo == 0 {
				z[i] = 0
				continue
			}
			p := clamp((v-lo)/(hi-lo), 1e-9, 1-1e-9)
			z[i] = math.Log(p / (1 - p))
		case lo > -Unbounded:
			z[i] = math.Log(math.Max(v-lo, 1e-9))
		default:
			z[i] = math.Log(math.Max(hi-v, 1e-9))
		}
	}
	return z
}

func (t *boxTransform) decodeTo(dst, z []float64) {
	for i, v := range z {
		lo, hi := t.lo[i], t.hi[i]
		switch {
		case isUnbounded(lo, hi):
			dst[i] = v
		case lo > -Unbounded && hi < Unbounded:
			dst[i] = lo + (hi-lo)*sigmoid(v)
		case lo > -Unbounded:
			dst[i] = lo + math.Exp(math.Min(v, 700))
		default:
			dst[i] = hi - math.Exp(math.Min(v, 700))
		}
	}
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
