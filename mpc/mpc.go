// Package mpc computes steering and acceleration for a vehicle following a
// locally-fitted reference path by solving, once per control cycle, a
// finite-horizon constrained nonlinear program over future states and
// controls, and applying only the first computed actuation.
package mpc

import (
	"errors"
	"fmt"
	"math"

	"github.com/nnadams/SDC-MPC-P10/nlp"
)

// ErrNotConverged is returned (wrapped) when the solver ran out of budget or
// iterations. The accompanying Command still carries the best point found,
// which is typically improved over the initial guess; the caller decides
// whether to use it.
var ErrNotConverged = errors.New("mpc: solver did not converge")

// Point is a predicted trajectory position in the vehicle frame.
type Point struct {
	X float64
	Y float64
}

// Command is the decoded result of one solve: the actuation to issue now and
// the predicted trajectory for the remaining horizon.
type Command struct {
	Steering float64 // radians, first scheduled steering
	Accel    float64 // normalized, first scheduled acceleration
	Cost     float64 // objective value at the solution
	// Predicted holds the N-1 future positions, excluding the pinned
	// initial point.
	Predicted []Point
}

// Values flattens the command into the fixed wire ordering
// [steering, accel, x1, y1, ..., x(N-1), y(N-1)].
func (c Command) Values() []float64 {
	out := make([]float64, 0, 2+2*len(c.Predicted))
	out = append(out, c.Steering, c.Accel)
	for _, p := range c.Predicted {
		out = append(out, p.X, p.Y)
	}
	return out
}

// Controller formulates and solves the path-tracking NLP. It is stateless
// across calls: every Solve is independent and fed fresh inputs. A
// Controller must not run overlapping solves.
type Controller struct {
	cfg    Config
	solver nlp.Solver
}

// New builds a controller with the default NLP backend.
func New(cfg Config) (*Controller, error) {
	return NewWithSolver(cfg, nlp.NewAugLag())
}

// NewWithSolver builds a controller on a caller-supplied backend.
func NewWithSolver(cfg Config, solver nlp.Solver) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mpc: %w", err)
	}
	if solver == nil {
		return nil, errors.New("mpc: solver is nil")
	}
	return &Controller{cfg: cfg, solver: solver}, nil
}

// Config returns the controller's configuration.
func (c *Controller) Config() Config { return c.cfg }

// Solve runs one control cycle: build the NLP from the current state and
// path coefficients, hand it to the solver, and decode the first actuation
// pair plus the predicted trajectory.
//
// Non-finite inputs are a contract violation and rejected up front. A
// non-converged solve returns the best-effort command together with an error
// wrapping ErrNotConverged.
func (c *Controller) Solve(st VehicleState, coeffs Coeffs) (Command, error) {
	if err := checkFinite(st, coeffs); err != nil {
		return Command{}, err
	}

	lay := NewLayout(c.cfg.Horizon)
	ev := NewEvaluator(c.cfg, lay, coeffs)
	prob, guess := buildProblem(c.cfg, lay, st, ev)

	opts := nlp.DefaultOptions()
	opts.MaxTime = c.cfg.SolveBudget()

	res, err := c.solver.Solve(prob, guess, opts)
	if err != nil {
		return Command{}, fmt.Errorf("mpc: solve: %w", err)
	}

	cmd := extractCommand(lay, res)
	if res.Status != nlp.StatusSuccess {
		return cmd, fmt.Errorf("%w: status=%v violation=%.3e", ErrNotConverged, res.Status, res.MaxViolation)
	}
	return cmd, nil
}

// extractCommand reads the first scheduled actuation pair and the future
// state positions out of the solution vector.
func extractCommand(lay Layout, res nlp.Result) Command {
	cmd := Command{
		Steering:  res.X[lay.Delta],
		Accel:     res.X[lay.A],
		Cost:      res.Objective,
		Predicted: make([]Point, 0, lay.N-1),
	}
	for t := 1; t < lay.N; t++ {
		cmd.Predicted = append(cmd.Predicted, Point{
			X: res.X[lay.X+t],
			Y: res.X[lay.Y+t],
		})
	}
	return cmd
}

func checkFinite(st VehicleState, coeffs Coeffs) error {
	for _, v := range []float64{st.X, st.Y, st.Psi, st.V, st.CTE, st.Epsi} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("mpc: non-finite vehicle state %+v", st)
		}
	}
	for _, v := range coeffs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("mpc: non-finite path coefficients %v", coeffs)
		}
	}
	return nil
}
