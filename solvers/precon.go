package solvers

import (
	"math"
	"sort"

	"github.com/notargets/gomhd/utils"
)

// Preconditioner applies an approximate inverse: z = M^-1 * r
type Preconditioner interface {
	Apply(r, z utils.Vector)
}

type Jacobi struct {
	dinv []float64
}

func NewJacobi(A utils.CSR) (p *Jacobi) {
	p = &Jacobi{dinv: A.Diagonal()}
	for i, d := range p.dinv {
		if d != 0 {
			p.dinv[i] = 1. / d
		} else {
			p.dinv[i] = 1
		}
	}
	return
}

func (p *Jacobi) Apply(r, z utils.Vector) {
	var (
		dataR = r.DataP()
		dataZ = z.DataP()
	)
	for i := range dataZ {
		dataZ[i] = p.dinv[i] * dataR[i]
	}
}

// Chebyshev is a fixed-order polynomial smoother on the Jacobi-scaled
// operator, the faster of the two smoother choices in the original solver
// configuration.
type Chebyshev struct {
	A            utils.CSR
	Order        int
	theta, delta float64
	dinv         []float64
	z, res, d    utils.Vector
}

func NewChebyshev(A utils.CSR, order int) (p *Chebyshev) {
	var (
		n, _ = A.Dims()
		lmax = 1.1 * A.MaxAbsRowSum() // Gershgorin bound with safety margin
		lmin = lmax / 30.
	)
	if order <= 0 {
		order = 4
	}
	p = &Chebyshev{
		A:     A,
		Order: order,
		theta: 0.5 * (lmax + lmin),
		delta: 0.5 * (lmax - lmin),
		dinv:  A.Diagonal(),
		z:     utils.NewVector(n),
		res:   utils.NewVector(n),
		d:     utils.NewVector(n),
	}
	for i, dd := range p.dinv {
		if dd != 0 {
			p.dinv[i] = 1. / dd
		} else {
			p.dinv[i] = 1
		}
	}
	return
}

func (p *Chebyshev) Apply(r, z utils.Vector) {
	var (
		sigma = p.theta / p.delta
		rho   = 1. / sigma
		dataD = p.d.DataP()
		dataR = p.res.DataP()
	)
	z.Zero()
	p.res.CopyFrom(r)
	for i := range dataD {
		dataD[i] = p.dinv[i] * dataR[i] / p.theta
	}
	for k := 0; k < p.Order; k++ {
		z.Add(p.d)
		if k == p.Order-1 {
			break
		}
		p.res.CopyFrom(r)
		p.A.AddScaledMulVec(-1, z, p.res)
		rhoNew := 1. / (2.*sigma - rho)
		for i := range dataD {
			dataD[i] = rhoNew*rho*dataD[i] + (2.*rhoNew/p.delta)*p.dinv[i]*dataR[i]
		}
		rho = rhoNew
	}
}

type icEntry struct {
	j int
	v float64
}

// IncompleteCholesky is an IC(0) factorization - same sparsity pattern as
// the lower triangle of A - applied by forward/backward substitution. It is
// the strong preconditioner option for the elliptic solves.
type IncompleteCholesky struct {
	n    int
	rows [][]icEntry // L by rows, ascending column, diagonal last
	cols [][]icEntry // L by columns, ascending row, for the transpose solve
	diag []float64
	y    utils.Vector
}

func NewIncompleteCholesky(A utils.CSR) (p *IncompleteCholesky) {
	var (
		n, _ = A.Dims()
	)
	p = &IncompleteCholesky{
		n:    n,
		rows: make([][]icEntry, n),
		cols: make([][]icEntry, n),
		diag: make([]float64, n),
		y:    utils.NewVector(n),
	}
	adiag := make([]float64, n)
	for i := 0; i < n; i++ {
		A.DoRowNonZero(i, func(_, j int, v float64) {
			if j < i {
				p.rows[i] = append(p.rows[i], icEntry{j, v})
			} else if j == i {
				adiag[i] = v
			}
		})
		sort.Slice(p.rows[i], func(a, b int) bool { return p.rows[i][a].j < p.rows[i][b].j })
	}
	for i := 0; i < n; i++ {
		var sumsq float64
		row := p.rows[i]
		for e := range row {
			j := row[e].j
			s := row[e].v - dotPattern(row[:e], p.rows[j])
			row[e].v = s / p.diag[j]
			sumsq += row[e].v * row[e].v
		}
		arg := adiag[i] - sumsq
		if arg <= 0 {
			// breakdown outside the SPD/M-matrix regime: diagonal shift
			arg = adiag[i]
		}
		p.diag[i] = math.Sqrt(arg)
	}
	for i := 0; i < n; i++ {
		for _, e := range p.rows[i] {
			p.cols[e.j] = append(p.cols[e.j], icEntry{i, e.v})
		}
	}
	return
}

// dotPattern computes the inner product of two sorted sparse rows over
// their common pattern
func dotPattern(a, b []icEntry) (s float64) {
	var ia, ib int
	for ia < len(a) && ib < len(b) {
		switch {
		case a[ia].j < b[ib].j:
			ia++
		case a[ia].j > b[ib].j:
			ib++
		default:
			s += a[ia].v * b[ib].v
			ia++
			ib++
		}
	}
	return
}

func (p *IncompleteCholesky) Apply(r, z utils.Vector) {
	var (
		dataR = r.DataP()
		dataY = p.y.DataP()
		dataZ = z.DataP()
	)
	// L y = r
	for i := 0; i < p.n; i++ {
		s := dataR[i]
		for _, e := range p.rows[i] {
			s -= e.v * dataY[e.j]
		}
		dataY[i] = s / p.diag[i]
	}
	// L^T z = y
	for i := p.n - 1; i >= 0; i-- {
		s := dataY[i]
		for _, e := range p.cols[i] {
			s -= e.v * dataZ[e.j]
		}
		dataZ[i] = s / p.diag[i]
	}
}
