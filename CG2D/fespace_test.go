package CG2D

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/gomhd/solvers"
	"github.com/notargets/gomhd/utils"
)

func TestSimpleMeshSquare(t *testing.T) {
	var (
		nx, ny = 4, 3
		m      = SimpleMeshSquare(0, 2, 0, 1, nx, ny)
	)
	assert.Equal(t, 2*nx*ny, m.K)
	assert.Equal(t, (nx+1)*(ny+1), m.Nv)
	assert.Equal(t, 2*(nx+ny), len(m.BdrEdges))
	assert.Equal(t, 4, m.NumBdrAttributes)

	fes := NewFESpace(m)
	// all element areas are positive and sum to the domain area
	var total float64
	for e := 0; e < m.K; e++ {
		assert.True(t, fes.area[e] > 0)
		total += fes.area[e]
	}
	assert.True(t, near(total, 2))

	// a linear field has an exact constant gradient on every element
	f := fes.ProjectFunction(func(x, y float64) float64 { return 3*x - 2*y + 1 })
	for e := 0; e < m.K; e++ {
		gx, gy := fes.ElementGradient(f, e)
		assert.True(t, near(gx, 3))
		assert.True(t, near(gy, -2))
	}
}

func TestEssentialTrueDofs(t *testing.T) {
	var (
		nx, ny = 4, 4
		m      = SimpleMeshSquare(0, 1, 0, 1, nx, ny)
		fes    = NewFESpace(m)
	)
	// all four sides: every perimeter vertex, each exactly once
	ess, err := fes.EssentialTrueDofs([]bool{true, true, true, true})
	assert.NoError(t, err)
	assert.Equal(t, 4*nx, len(ess))
	for k := 1; k < len(ess); k++ {
		assert.True(t, ess[k] > ess[k-1])
	}
	// bottom side only
	ess, err = fes.EssentialTrueDofs([]bool{true, false, false, false})
	assert.NoError(t, err)
	assert.Equal(t, nx+1, len(ess))

	_, err = fes.EssentialTrueDofs([]bool{true, true})
	assert.Error(t, err)
}

func TestFormAssembly(t *testing.T) {
	var (
		m   = SimpleMeshSquare(0, 1, 0, 1, 6, 6)
		fes = NewFESpace(m)
	)
	// mass matrix entries sum to the domain area
	M := NewBilinearForm(fes).AddDomainIntegrator(MassIntegrator{}).Assemble()
	var sum float64
	M.DoNonZero(func(_, _ int, v float64) { sum += v })
	assert.True(t, near(sum, 1))

	// stiffness annihilates constants: zero row sums
	K := NewBilinearForm(fes).AddDomainIntegrator(DiffusionIntegrator{}).Assemble()
	ones := utils.NewVectorConstant(fes.NDofs(), 1)
	y := utils.NewVector(fes.NDofs())
	K.MulVec(ones, y)
	assert.True(t, y.NormInf() < 1e-12)

	// convection by a constant velocity also annihilates constants
	N := NewBilinearForm(fes).
		AddDomainIntegrator(ConvectionIntegrator{Vel: ConstVectorCoefficient{X: 1, Y: 2}}).
		Assemble()
	N.MulVec(ones, y)
	assert.True(t, y.NormInf() < 1e-12)

	// boundary-corrected stiffness annihilates linears: K-B applied to a
	// linear field is the weak Laplacian, which vanishes including the
	// boundary flux contribution
	KB := NewBilinearForm(fes).
		AddDomainIntegrator(DiffusionIntegrator{}).
		AddBdrFaceIntegrator(BoundaryGradIntegrator{}).
		Assemble()
	lin := fes.ProjectFunction(func(x, y float64) float64 { return 2*x - 3*y + 1 })
	KB.MulVec(lin, y)
	assert.True(t, y.NormInf() < 1e-12)
}

// Poisson problem -Lap(u) = 2 sin(x) sin(y) on [0,pi]^2 with homogeneous
// Dirichlet data, exact solution u = sin(x) sin(y)
func TestPoissonSolve(t *testing.T) {
	var (
		n   = 24
		m   = SimpleMeshSquare(0, math.Pi, 0, math.Pi, n, n)
		fes = NewFESpace(m)
	)
	ess, err := fes.EssentialTrueDofs([]bool{true, true, true, true})
	assert.NoError(t, err)

	bf := NewBilinearForm(fes).AddDomainIntegrator(DiffusionIntegrator{})
	bf.Assemble()
	ls := bf.FormSystem(ess)

	b := NewLinearForm(fes).
		AddDomainIntegrator(func(x, y float64) float64 { return 2 * math.Sin(x) * math.Sin(y) }).
		Assemble()
	x := utils.NewVector(fes.NDofs()) // zero boundary values and zero guess
	B := ls.ReduceRHS(x, b)

	cg := solvers.NewCG(ls.A, solvers.NewChebyshev(ls.A, 4), fes.NDofs())
	cg.RelTol = 1e-10
	cg.MaxIter = 2000
	_, err = cg.Solve(B, x)
	assert.NoError(t, err)

	exact := fes.ProjectFunction(func(x, y float64) float64 { return math.Sin(x) * math.Sin(y) })
	assert.True(t, x.Copy().Sub(exact).NormInf() < 0.01)

	// boundary values are exactly the prescribed ones
	for _, i := range ess {
		assert.Equal(t, 0., x.AtVec(i))
	}
}

func near(a, b float64, tolI ...float64) (l bool) {
	var (
		tol = 1.e-08
	)
	if len(tolI) != 0 {
		tol = tolI[0]
	}
	if math.Abs(a-b) <= tol*math.Max(1, math.Abs(b)) {
		l = true
	}
	return
}
