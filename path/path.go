// Package path prepares the reference path for the controller: it moves map
// waypoints into the vehicle's local frame and fits a polynomial through
// them by least squares.
package path

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ToVehicleFrame rotates and translates map-frame waypoints (wx, wy) into
// the frame of a vehicle at (px, py) with heading psi, so the vehicle sits
// at the origin looking down +x.
func ToVehicleFrame(px, py, psi float64, wx, wy []float64) (xs, ys []float64, err error) {
	if len(wx) != len(wy) {
		return nil, nil, fmt.Errorf("path: waypoint lengths differ: %d vs %d", len(wx), len(wy))
	}
	xs = make([]float64, len(wx))
	ys = make([]float64, len(wy))
	sin, cos := math.Sin(psi), math.Cos(psi)
	for i := range wx {
		dx := wx[i] - px
		dy := wy[i] - py
		xs[i] = dx*cos + dy*sin
		ys[i] = -dx*sin + dy*cos
	}
	return xs, ys, nil
}

// Fit computes least-squares polynomial coefficients of the given degree
// through the points, lowest order first. It needs at least degree+1 points.
func Fit(xs, ys []float64, degree int) ([]float64, error) {
	if degree < 1 {
		return nil, fmt.Errorf("path: degree must be >= 1, got %d", degree)
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("path: point lengths differ: %d vs %d", len(xs), len(ys))
	}
	if len(xs) < degree+1 {
		return nil, fmt.Errorf("path: need at least %d points for degree %d, got %d",
			degree+1, degree, len(xs))
	}

	// Vandermonde system solved through QR; well behaved for the short,
	// local windows the controller fits.
	a := mat.NewDense(len(xs), degree+1, nil)
	for i, x := range xs {
		v := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, v)
			v *= x
		}
	}
	b := mat.NewVecDense(len(ys), ys)

	var qr mat.QR
	qr.Factorize(a)

	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, b); err != nil {
		return nil, fmt.Errorf("path: fit degree %d: %w", degree, err)
	}

	coeffs := make([]float64, degree+1)
	for j := range coeffs {
		coeffs[j] = sol.AtVec(j)
	}
	return coeffs, nil
}
