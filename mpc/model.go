package mpc

import "math"

// VehicleState is the six-component state in the vehicle frame, relative to
// the fitted reference path. Field order matches the wire ordering
// [x, y, psi, v, cte, epsi].
type VehicleState struct {
	X    float64 // position along the vehicle's own x axis
	Y    float64
	Psi  float64 // heading, radians
	V    float64 // speed
	CTE  float64 // cross-track error, f(x) - y
	Epsi float64 // heading error relative to the path tangent
}

// Coeffs are cubic polynomial coefficients of the reference path
// y = c0 + c1*x + c2*x^2 + c3*x^3 in the vehicle frame, lowest order first.
type Coeffs [4]float64

// Eval returns the reference path value f(x).
func (c Coeffs) Eval(x float64) float64 {
	return c[0] + c[1]*x + c[2]*x*x + c[3]*x*x*x
}

// TangentHeading returns the desired heading atan(f'(x)).
func (c Coeffs) TangentHeading(x float64) float64 {
	return math.Atan(c[1] + 2*c[2]*x + 3*c[3]*x*x)
}

// Predict advances the state one timestep under actuation (delta, a) using
// the discrete kinematic bicycle model.
//
// Sign convention: positive steering decreases heading
// (psi1 = psi0 - v/Lf * delta * dt), matching the simulator's steering sign.
// All uses of delta in this package must stay consistent with it.
func Predict(cfg Config, s VehicleState, delta, a float64, coeffs Coeffs) VehicleState {
	f := coeffs.Eval(s.X)
	psiDes := coeffs.TangentHeading(s.X)

	return VehicleState{
		X:    s.X + s.V*math.Cos(s.Psi)*cfg.Dt,
		Y:    s.Y + s.V*math.Sin(s.Psi)*cfg.Dt,
		Psi:  s.Psi - s.V/cfg.Lf*delta*cfg.Dt,
		V:    s.V + a*cfg.Dt,
		CTE:  (f - s.Y) + s.V*math.Sin(s.Epsi)*cfg.Dt,
		Epsi: (s.Psi - psiDes) - s.V/cfg.Lf*delta*cfg.Dt,
	}
}
