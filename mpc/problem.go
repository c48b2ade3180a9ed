package mpc

import "github.com/nnadams/SDC-MPC-P10/nlp"

// stateBound is the stand-in for an unconstrained state variable; solvers
// that require finite bounds treat anything this large as absent.
const stateBound = 1e23

// initialGuess is all zeros except the six initial-state slots, which carry
// the measured state. The solver pulls the rest onto the dynamics manifold.
func initialGuess(lay Layout, st VehicleState) []float64 {
	vars := make([]float64, lay.NumVars)
	vars[lay.X] = st.X
	vars[lay.Y] = st.Y
	vars[lay.Psi] = st.Psi
	vars[lay.V] = st.V
	vars[lay.CTE] = st.CTE
	vars[lay.Epsi] = st.Epsi
	return vars
}

// variableBounds leaves the state blocks free and boxes the two control
// blocks: steering to the physical lock angle, acceleration to its
// normalized range.
func variableBounds(cfg Config, lay Layout) (lower, upper []float64) {
	lower = make([]float64, lay.NumVars)
	upper = make([]float64, lay.NumVars)

	for i := 0; i < lay.Delta; i++ {
		lower[i] = -stateBound
		upper[i] = stateBound
	}
	for i := lay.Delta; i < lay.A; i++ {
		lower[i] = -cfg.SteerLimitRad
		upper[i] = cfg.SteerLimitRad
	}
	for i := lay.A; i < lay.NumVars; i++ {
		lower[i] = -cfg.AccelLimit
		upper[i] = cfg.AccelLimit
	}
	return lower, upper
}

// constraintBounds pins every residual to zero, except the six initial-state
// slots which are pinned to the measured state so the solution must
// reproduce it exactly.
func constraintBounds(lay Layout, st VehicleState) (lower, upper []float64) {
	lower = make([]float64, lay.NumCons)
	upper = make([]float64, lay.NumCons)

	lower[lay.X], upper[lay.X] = st.X, st.X
	lower[lay.Y], upper[lay.Y] = st.Y, st.Y
	lower[lay.Psi], upper[lay.Psi] = st.Psi, st.Psi
	lower[lay.V], upper[lay.V] = st.V, st.V
	lower[lay.CTE], upper[lay.CTE] = st.CTE, st.CTE
	lower[lay.Epsi], upper[lay.Epsi] = st.Epsi, st.Epsi
	return lower, upper
}

// buildProblem assembles the full NLP for one control cycle.
func buildProblem(cfg Config, lay Layout, st VehicleState, ev *Evaluator) (nlp.Problem, []float64) {
	varLower, varUpper := variableBounds(cfg, lay)
	consLower, consUpper := constraintBounds(lay, st)

	return nlp.Problem{
		NumVars:     lay.NumVars,
		NumCons:     lay.NumCons,
		Objective:   ev.Cost,
		Constraints: ev.Constraints,
		VarLower:    varLower,
		VarUpper:    varUpper,
		ConsLower:   consLower,
		ConsUpper:   consUpper,
	}, initialGuess(lay, st)
}
