package utils

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// DOK is the assembly-stage sparse format - element integrators accumulate
// into it, then it is converted to CSR for application.
type DOK struct {
	M *sparse.DOK
}

func NewDOK(nr, nc int) (R DOK) {
	return DOK{sparse.NewDOK(nr, nc)}
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m DOK) Dims() (r, c int)     { return m.M.Dims() }
func (m DOK) At(i, j int) float64  { return m.M.At(i, j) }
func (m DOK) T() mat.Matrix       { return m.M.T() }

func (m DOK) Set(i, j int, val float64) { m.M.Set(i, j, val) }

// Accumulate adds val into entry (i,j)
func (m DOK) Accumulate(i, j int, val float64) {
	if val == 0 {
		return
	}
	m.M.Set(i, j, m.M.At(i, j)+val)
}

func (m DOK) DoNonZero(fn func(i, j int, v float64)) { m.M.DoNonZero(fn) }

func (m DOK) ToCSR() CSR {
	return CSR{m.M.ToCSR()}
}

type CSR struct {
	M *sparse.CSR
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m CSR) Dims() (r, c int)    { return m.M.Dims() }
func (m CSR) At(i, j int) float64 { return m.M.At(i, j) }
func (m CSR) T() mat.Matrix      { return m.M.T() }

func (m CSR) DoNonZero(fn func(i, j int, v float64))         { m.M.DoNonZero(fn) }
func (m CSR) DoRowNonZero(i int, fn func(i, j int, v float64)) { m.M.DoRowNonZero(i, fn) }

// MulVec computes y = A*x
func (m CSR) MulVec(x, y Vector) {
	y.Zero()
	m.AddMulVec(x, y)
}

// AddMulVec accumulates y += A*x
func (m CSR) AddMulVec(x, y Vector) {
	m.AddScaledMulVec(1, x, y)
}

// AddScaledMulVec accumulates y += a*A*x
func (m CSR) AddScaledMulVec(a float64, x, y Vector) {
	var (
		nr, nc = m.Dims()
		dataX  = x.DataP()
		dataY  = y.DataP()
	)
	if x.Len() != nc || y.Len() != nr {
		err := fmt.Errorf("dimension mismatch in sparse mat-vec: A is %vx%v, x is %v, y is %v\n",
			nr, nc, x.Len(), y.Len())
		panic(err)
	}
	for i := 0; i < nr; i++ {
		var sum float64
		m.M.DoRowNonZero(i, func(_, j int, v float64) {
			sum += v * dataX[j]
		})
		dataY[i] += a * sum
	}
}

// Mult satisfies the linear Operator contract used by the Krylov solvers.
func (m CSR) Mult(x, y Vector) { m.MulVec(x, y) }

func (m CSR) Diagonal() (d []float64) {
	var (
		nr, _ = m.Dims()
	)
	d = make([]float64, nr)
	for i := 0; i < nr; i++ {
		d[i] = m.M.At(i, i)
	}
	return
}

// MaxAbsRowSum returns the Gershgorin upper bound on the spectral radius of
// diag(A)^-1 * A, used to size Chebyshev smoother intervals.
func (m CSR) MaxAbsRowSum() (bound float64) {
	var (
		nr, _ = m.Dims()
		d     = m.Diagonal()
	)
	for i := 0; i < nr; i++ {
		var sum float64
		m.M.DoRowNonZero(i, func(_, _ int, v float64) {
			sum += math.Abs(v)
		})
		if d[i] != 0 {
			sum /= math.Abs(d[i])
		}
		if sum > bound {
			bound = sum
		}
	}
	return
}

// AddScaledCSR forms alpha*A + beta*B as a new matrix
func AddScaledCSR(alpha float64, A CSR, beta float64, B CSR) (R CSR) {
	var (
		nrA, ncA = A.Dims()
		nrB, ncB = B.Dims()
	)
	if nrA != nrB || ncA != ncB {
		err := fmt.Errorf("dimension mismatch in sparse add: %vx%v vs %vx%v\n", nrA, ncA, nrB, ncB)
		panic(err)
	}
	d := NewDOK(nrA, ncA)
	A.DoNonZero(func(i, j int, v float64) {
		d.Accumulate(i, j, alpha*v)
	})
	B.DoNonZero(func(i, j int, v float64) {
		d.Accumulate(i, j, beta*v)
	})
	return d.ToCSR()
}
