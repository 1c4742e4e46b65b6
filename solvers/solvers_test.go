package solvers

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/gomhd/utils"
)

// laplacian1D builds the tridiagonal SPD matrix of the 1D Poisson problem
func laplacian1D(n int) utils.CSR {
	d := utils.NewDOK(n, n)
	for i := 0; i < n; i++ {
		d.Set(i, i, 2)
		if i > 0 {
			d.Set(i, i-1, -1)
		}
		if i < n-1 {
			d.Set(i, i+1, -1)
		}
	}
	return d.ToCSR()
}

func TestCG(t *testing.T) {
	var (
		n = 50
		A = laplacian1D(n)
		b = utils.NewVectorConstant(n, 1)
		x = utils.NewVector(n)
	)
	for _, precon := range []Preconditioner{nil, NewJacobi(A), NewChebyshev(A, 4), NewIncompleteCholesky(A)} {
		x.Zero()
		cg := NewCG(A, precon, n)
		cg.RelTol = 1e-10
		res, err := cg.Solve(b, x)
		assert.NoError(t, err)
		assert.True(t, res.Converged)
		// residual check against the operator itself
		r := utils.NewVector(n)
		A.MulVec(x, r)
		r.Sub(b)
		assert.True(t, r.Norm() < 1e-8*b.Norm())
	}
	// IC(0) is exact for a tridiagonal matrix, so CG converges immediately
	{
		x.Zero()
		cg := NewCG(A, NewIncompleteCholesky(A), n)
		cg.RelTol = 1e-10
		res, err := cg.Solve(b, x)
		assert.NoError(t, err)
		assert.True(t, res.Iterations <= 3)
	}
	// warm start: solving twice from the converged state takes no iterations
	{
		cg := NewCG(A, NewJacobi(A), n)
		cg.IterativeMode = true
		_, err := cg.Solve(b, x)
		assert.NoError(t, err)
		res, err := cg.Solve(b, x)
		assert.NoError(t, err)
		assert.Equal(t, 0, res.Iterations)
	}
}

func TestGMRES(t *testing.T) {
	// nonsymmetric operator: shifted Laplacian plus a skew part
	var (
		n = 40
		d = utils.NewDOK(n, n)
	)
	for i := 0; i < n; i++ {
		d.Set(i, i, 4)
		if i > 0 {
			d.Set(i, i-1, -1.5)
		}
		if i < n-1 {
			d.Set(i, i+1, -0.5)
		}
	}
	A := d.ToCSR()
	var (
		b = utils.NewVectorConstant(n, 1)
		x = utils.NewVector(n)
	)
	gm := &GMRES{A: A, Precon: NewJacobi(A), RelTol: 1e-10, MaxIter: 200, Restart: 20}
	res, err := gm.Solve(b, x)
	assert.NoError(t, err)
	assert.True(t, res.Converged)
	r := utils.NewVector(n)
	A.MulVec(x, r)
	r.Sub(b)
	assert.True(t, r.Norm() < 1e-8*b.Norm())
}

// quadratic system F_i(x) = x_i^2 + sum(x) - b_i with known root at x = 1
type quadSystem struct {
	n int
}

func (q *quadSystem) Height() int { return q.n }

func (q *quadSystem) Residual(k, f utils.Vector) error {
	var sum float64
	for _, v := range k.DataP() {
		sum += v
	}
	for i, v := range k.DataP() {
		f.DataP()[i] = v*v + sum - (1 + float64(q.n))
	}
	return nil
}

func (q *quadSystem) Jacobian(k utils.Vector) (Operator, error) {
	d := utils.NewDOK(q.n, q.n)
	for i := 0; i < q.n; i++ {
		for j := 0; j < q.n; j++ {
			val := 1.
			if i == j {
				val += 2 * k.AtVec(i)
			}
			d.Set(i, j, val)
		}
	}
	return d.ToCSR(), nil
}

func TestNewton(t *testing.T) {
	var (
		n  = 5
		nw = &Newton{
			Op:         &quadSystem{n: n},
			RelTol:     1e-12,
			AbsTol:     1e-12,
			MaxIter:    20,
			LinRelTol:  1e-10,
			LinMaxIter: 50,
			LinRestart: 10,
		}
		k = utils.NewVectorConstant(n, 2) // start off the root
	)
	err := nw.Solve(utils.Vector{}, k)
	assert.NoError(t, err)
	assert.True(t, nw.Converged())
	for i := 0; i < n; i++ {
		assert.True(t, math.Abs(k.AtVec(i)-1) < 1e-8)
	}
}
