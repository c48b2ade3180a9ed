package mpc

// Layout maps (variable kind, timestep) pairs into the flat decision vector
// the solver searches over, and into the matching constraint vector. The
// vector is eight contiguous blocks in fixed order: the six state sequences
// of length N, then the two control sequences of length N-1.
//
// Layout is pure arithmetic over N; compute it once per solve and pass it
// around instead of relying on shared offsets.
type Layout struct {
	N int

	X     int // offset of the x block
	Y     int
	Psi   int
	V     int
	CTE   int
	Epsi  int
	Delta int // steering controls, length N-1
	A     int // acceleration controls, length N-1

	NumVars int // 8N - 2
	NumCons int // 6N, one residual per state variable per timestep
}

// NewLayout computes the block offsets for horizon n.
func NewLayout(n int) Layout {
	return Layout{
		N:       n,
		X:       0,
		Y:       n,
		Psi:     2 * n,
		V:       3 * n,
		CTE:     4 * n,
		Epsi:    5 * n,
		Delta:   6 * n,
		A:       7*n - 1,
		NumVars: n*6 + (n-1)*2,
		NumCons: n * 6,
	}
}
