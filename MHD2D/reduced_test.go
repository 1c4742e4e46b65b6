package MHD2D

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/gomhd/utils"
)

// testState builds a smooth state honoring the homogeneous Dirichlet
// conditions of [0,pi]^2, with all three fields active
func testState(op *ResistiveMHDOperator) (vx utils.Vector) {
	var (
		fes = op.FESpace()
		sc  = fes.NDofs()
	)
	vx = utils.NewVector(op.Height())
	vx.Segment(0, sc).CopyFrom(fes.ProjectFunction(func(x, y float64) float64 {
		return 0.1 * math.Sin(x) * math.Sin(2*y)
	}))
	vx.Segment(sc, sc).CopyFrom(fes.ProjectFunction(func(x, y float64) float64 {
		return 0.3 * math.Sin(x) * math.Sin(y)
	}))
	vx.Segment(2*sc, sc).CopyFrom(fes.ProjectFunction(func(x, y float64) float64 {
		return 0.2 * math.Sin(2*x) * math.Sin(y)
	}))
	return
}

// perturbation direction with zero essential components, so it lives in the
// space the Newton iteration actually moves in
func testDirection(op *ResistiveMHDOperator) (d utils.Vector) {
	d = utils.NewVector(op.Height())
	data := d.DataP()
	for i := range data {
		data[i] = math.Sin(3.7*float64(i) + 0.3)
	}
	sc := op.sc
	for _, i := range op.EssentialDofs() {
		data[i] = 0
		data[sc+i] = 0
		data[2*sc+i] = 0
	}
	return
}

// The residual is quadratic in the unknown, so the analytic Jacobian must
// reproduce finite differences with a remainder that scales as eps^2.
func TestJacobianFiniteDifference(t *testing.T) {
	op, _ := newTestOperator(t, 8, 0.01, 0.01)
	op.SetJBdy(0)
	var (
		vx  = testState(op)
		sc  = op.sc
		lin = &Linearization{
			Dt:  0.1,
			Phi: vx.Segment(0, sc).Copy(),
			Psi: vx.Segment(sc, sc).Copy(),
			W:   vx.Segment(2*sc, sc).Copy(),
		}
		rs = op.Reduced()
		d  = testDirection(op)
		F0 = utils.NewVector(op.Height())
		F1 = utils.NewVector(op.Height())
		Jd = utils.NewVector(op.Height())
	)
	assert.NoError(t, rs.Residual(lin, vx, F0))
	J, err := rs.Jacobian(lin, vx)
	assert.NoError(t, err)
	J.Mult(d, Jd)

	remainder := func(eps float64) float64 {
		kp := vx.Copy().AddScaled(eps, d)
		assert.NoError(t, rs.Residual(lin, kp, F1))
		return F1.Copy().Sub(F0).AddScaled(-eps, Jd).Norm()
	}
	var (
		r1 = remainder(1e-3)
		r2 = remainder(2e-3)
	)
	assert.True(t, r1 < 1e-4*math.Max(1, Jd.Norm()))
	// quadratic remainder: doubling eps quadruples the defect
	assert.True(t, r2/r1 > 3.4 && r2/r1 < 4.6)
}

// With a huge dt and k at the previous state, the time-derivative terms
// vanish and the residual blocks reduce to the static convection-diffusion
// terms, which the explicit evaluator computes as -M * d(field)/dt.
func TestLargeDtSteadyState(t *testing.T) {
	op, _ := newTestOperator(t, 8, 0.01, 0.01)
	op.SetJBdy(0)
	var (
		vx  = testState(op)
		sc  = op.sc
		lin = &Linearization{
			Dt:  1e12,
			Phi: vx.Segment(0, sc).Copy(),
			Psi: vx.Segment(sc, sc).Copy(),
			W:   vx.Segment(2*sc, sc).Copy(),
		}
		F     = utils.NewVector(op.Height())
		dvxdt = utils.NewVector(op.Height())
		z     = utils.NewVector(sc)
	)
	assert.NoError(t, op.Reduced().Residual(lin, vx, F))
	assert.NoError(t, op.Mult(vx, dvxdt))

	op.Msys.A.MulVec(dvxdt.Segment(sc, sc), z)
	assert.True(t, F.Segment(sc, sc).Copy().Add(z).Norm() < 1e-8)
	op.Msys.A.MulVec(dvxdt.Segment(2*sc, sc), z)
	assert.True(t, F.Segment(2*sc, sc).Copy().Add(z).Norm() < 1e-8)
}

func TestImplicitSolve(t *testing.T) {
	op, fes := newTestOperator(t, 10, 0.01, 0.01)
	var (
		sc = fes.NDofs()
		vx = utils.NewVector(op.Height())
		k  = utils.NewVector(op.Height())
		dt = 0.05
	)
	op.SetJBdy(0)
	op.SetInitialJ(func(x, y float64) float64 {
		return -0.2 * math.Sin(x) * math.Sin(y)
	})
	vx.Segment(sc, sc).CopyFrom(fes.ProjectFunction(func(x, y float64) float64 {
		return 0.1 * math.Sin(x) * math.Sin(y)
	}))
	assert.NoError(t, op.UpdatePhi(vx))

	assert.NoError(t, op.ImplicitSolve(dt, vx, k))

	// the stage derivative never moves the constrained boundary values
	for _, i := range op.EssentialDofs() {
		assert.Equal(t, 0., k.AtVec(i))
		assert.Equal(t, 0., k.AtVec(sc+i))
		assert.Equal(t, 0., k.AtVec(2*sc+i))
	}

	// backward-Euler consistency: the end-of-step state zeroes the residual
	var (
		xN  = vx.Copy().AddScaled(dt, k)
		lin = &Linearization{
			Dt:  dt,
			Phi: vx.Segment(0, sc).Copy(),
			Psi: vx.Segment(sc, sc).Copy(),
			W:   vx.Segment(2*sc, sc).Copy(),
		}
		F = utils.NewVector(op.Height())
	)
	assert.NoError(t, op.Reduced().Residual(lin, xN, F))
	assert.True(t, F.Norm() < 1e-8)
}

func TestImplicitSolveRejectsBadDt(t *testing.T) {
	op, _ := newTestOperator(t, 4, 0, 0)
	var (
		vx = utils.NewVector(op.Height())
		k  = utils.NewVector(op.Height())
	)
	assert.Error(t, op.ImplicitSolve(0, vx, k))
	assert.Error(t, op.ImplicitSolve(-1, vx, k))
}
