package mpc

// Evaluator computes the scalar cost and the constraint residuals for a
// candidate decision vector. It closes over the path coefficients for one
// solve; the NLP backend calls it repeatedly while searching and
// differentiates it numerically, so both functions must be defined for any
// real-valued input, however nonsensical, and must stay plain float64
// arithmetic with no solver-specific types.
type Evaluator struct {
	cfg    Config
	lay    Layout
	coeffs Coeffs
}

// NewEvaluator builds an evaluator for one solve.
func NewEvaluator(cfg Config, lay Layout, coeffs Coeffs) *Evaluator {
	return &Evaluator{cfg: cfg, lay: lay, coeffs: coeffs}
}

// Cost is the weighted multi-objective sum over the horizon: tracking error
// and speed error over all N steps, actuator magnitude (plus the
// steer-times-speed corner term) over N-1 control steps, and actuator rate
// over N-2 difference steps.
func (e *Evaluator) Cost(vars []float64) float64 {
	cfg, lay := e.cfg, e.lay

	cost := 0.0
	for t := 0; t < lay.N; t++ {
		cte := vars[lay.CTE+t]
		epsi := vars[lay.Epsi+t]
		dv := vars[lay.V+t] - cfg.RefVelocity
		cost += cfg.WeightCTE * cte * cte
		cost += cfg.WeightEpsi * epsi * epsi
		cost += cfg.WeightVelocity * dv * dv
	}
	for t := 0; t < lay.N-1; t++ {
		delta := vars[lay.Delta+t]
		a := vars[lay.A+t]
		dv := delta * vars[lay.V+t]
		cost += cfg.WeightSteerVel * dv * dv
		cost += cfg.WeightSteer * delta * delta
		cost += cfg.WeightAccel * a * a
	}
	for t := 0; t < lay.N-2; t++ {
		dd := vars[lay.Delta+t+1] - vars[lay.Delta+t]
		da := vars[lay.A+t+1] - vars[lay.A+t]
		cost += cfg.WeightSteerRate * dd * dd
		cost += cfg.WeightAccelRate * da * da
	}
	return cost
}

// Constraints writes the 6N residuals into dst. The first six are the raw
// initial-state variables (pinned to the measured state by the constraint
// bounds); the rest are next-state minus model-predicted-state, zero iff the
// dynamics hold between consecutive timesteps.
func (e *Evaluator) Constraints(dst, vars []float64) {
	lay := e.lay

	dst[lay.X] = vars[lay.X]
	dst[lay.Y] = vars[lay.Y]
	dst[lay.Psi] = vars[lay.Psi]
	dst[lay.V] = vars[lay.V]
	dst[lay.CTE] = vars[lay.CTE]
	dst[lay.Epsi] = vars[lay.Epsi]

	for t := 1; t < lay.N; t++ {
		prev := VehicleState{
			X:    vars[lay.X+t-1],
			Y:    vars[lay.Y+t-1],
			Psi:  vars[lay.Psi+t-1],
			V:    vars[lay.V+t-1],
			CTE:  vars[lay.CTE+t-1],
			Epsi: vars[lay.Epsi+t-1],
		}

		// Actuation takes one control period to bite, so from the second
		// transition on the dynamics see the command issued a step earlier.
		ctrl := t - 1
		if t > 1 {
			ctrl = t - 2
		}
		delta := vars[lay.Delta+ctrl]
		a := vars[lay.A+ctrl]

		pred := Predict(e.cfg, prev, delta, a, e.coeffs)

		dst[lay.X+t] = vars[lay.X+t] - pred.X
		dst[lay.Y+t] = vars[lay.Y+t] - pred.Y
		dst[lay.Psi+t] = vars[lay.Psi+t] - pred.Psi
		dst[lay.V+t] = vars[lay.V+t] - pred.V
		dst[lay.CTE+t] = vars[lay.CTE+t] - pred.CTE
		dst[lay.Epsi+t] = vars[lay.Epsi+t] - pred.Epsi
	}
}
