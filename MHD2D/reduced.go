package MHD2D

import (
	"fmt"

	"github.com/notargets/gomhd/solvers"
	"github.com/notargets/gomhd/utils"
)

// Linearization is the immutable per-timestep context of the reduced
// system: the step size and the previous-step field snapshots. It is passed
// explicitly into every residual and Jacobian evaluation, so there is no
// set-then-call ordering to get wrong and no shared mutable state between
// timesteps.
type Linearization struct {
	Dt          float64
	Phi, Psi, W utils.Vector
}

/*
ReducedSystemOperator defines the backward-Euler residual F(k) = 0 for the
end-of-step unknown k = (Phi*, Psi*, w*):

	block 1:  K*Phi* + M*w*                                  (elliptic constraint)
	block 2:  M*(Psi*-Psi)/dt + Nv*Psi* + eta*DSl*Psi* + E0  (flux evolution)
	block 3:  M*(w*-w)/dt + Nv*w* + nu*DRe*w* - Nb*j(Psi*)   (vorticity evolution)

all boundary-zeroed. Nv is rebuilt from the candidate Phi* and Nb from the
candidate Psi* at every evaluation - that dependence on the unknown is the
nonlinearity. The operator holds non-owning references to the invariant
operators through the parent; the convection operators it builds are owned
by each evaluation.
*/
type ReducedSystemOperator struct {
	op    *ResistiveMHDOperator
	z, zJ utils.Vector
}

func newReducedSystemOperator(op *ResistiveMHDOperator) *ReducedSystemOperator {
	return &ReducedSystemOperator{
		op: op,
		z:  utils.NewVector(op.sc),
		zJ: utils.NewVector(op.sc),
	}
}

func (r *ReducedSystemOperator) Height() int { return 3 * r.op.sc }

func (r *ReducedSystemOperator) checkLin(lin *Linearization) {
	if lin == nil || lin.Dt <= 0 || lin.Psi.Len() != r.op.sc {
		panic("reduced system evaluated without a valid linearization")
	}
}

// Residual evaluates F(k) into y
func (r *ReducedSystemOperator) Residual(lin *Linearization, k, y utils.Vector) error {
	r.checkLin(lin)
	r.op.checkHeight(k)
	r.op.checkHeight(y)
	var (
		op   = r.op
		sc   = op.sc
		phiN = k.Segment(0, sc)
		psiN = k.Segment(sc, sc)
		wN   = k.Segment(2*sc, sc)
		y1   = y.Segment(0, sc)
		y2   = y.Segment(sc, sc)
		y3   = y.Segment(2*sc, sc)
		z    = r.z
	)
	Nv := op.assembleNv(phiN)
	Nb := op.assembleNb(psiN)
	j, err := op.RecoverCurrent(psiN)
	if err != nil {
		return fmt.Errorf("reduced residual: %w", err)
	}

	// block 1: elliptic constraint between potential and vorticity
	op.Ksys.A.MulVec(phiN, y1)
	op.Msys.A.AddMulVec(wN, y1)
	y1.SetSubVector(op.ess, 0)

	// block 2: flux evolution
	z.CopyFrom(psiN).Sub(lin.Psi).Scale(1. / lin.Dt)
	op.Msys.A.MulVec(z, y2)
	Nv.AddMulVec(psiN, y2)
	if op.resistivity != 0 {
		op.DSl.AddMulVec(psiN, y2)
	}
	if op.E0Vec.Len() != 0 {
		y2.Add(op.E0Vec)
	}
	y2.SetSubVector(op.ess, 0)

	// block 3: vorticity evolution
	z.CopyFrom(wN).Sub(lin.W).Scale(1. / lin.Dt)
	op.Msys.A.MulVec(z, y3)
	Nv.AddMulVec(wN, y3)
	if op.viscosity != 0 {
		op.DRe.AddMulVec(wN, y3)
	}
	Nb.AddScaledMulVec(-1, j, y3)
	y3.SetSubVector(op.ess, 0)
	return nil
}

// Jacobian returns the exact derivative operator of F at k. The residual is
// quadratic in k (the couplings Nv(Phi)*field and Nb(Psi)*j(Psi) are
// bilinear), so the action below is the exact linearization and the
// finite-difference remainder is O(eps^2). Essential rows act as identity,
// keeping the operator nonsingular for the Krylov solve.
func (r *ReducedSystemOperator) Jacobian(lin *Linearization, k utils.Vector) (solvers.Operator, error) {
	r.checkLin(lin)
	r.op.checkHeight(k)
	var (
		op = r.op
		sc = op.sc
		J  = &jacobianOperator{
			r:       r,
			lin:     lin,
			phiStar: k.Segment(0, sc).Copy(),
			psiStar: k.Segment(sc, sc).Copy(),
			wStar:   k.Segment(2*sc, sc).Copy(),
			jDir:    utils.NewVector(sc),
			zeroBC:  utils.NewVector(sc),
			z:       utils.NewVector(sc),
		}
	)
	J.NvStar = op.assembleNv(J.phiStar)
	J.NbStar = op.assembleNb(J.psiStar)
	jStar, err := op.RecoverCurrent(J.psiStar)
	if err != nil {
		return nil, fmt.Errorf("jacobian linearization point: %w", err)
	}
	J.jStar = jStar.Copy()
	return J, nil
}

type jacobianOperator struct {
	r   *ReducedSystemOperator
	lin *Linearization

	NvStar, NbStar          utils.CSR
	phiStar, psiStar, wStar utils.Vector
	jStar                   utils.Vector

	jDir, zeroBC, z utils.Vector
}

func (J *jacobianOperator) Mult(x, y utils.Vector) {
	var (
		op   = J.r.op
		sc   = op.sc
		dphi = x.Segment(0, sc)
		dpsi = x.Segment(sc, sc)
		dw   = x.Segment(2*sc, sc)
		y1   = y.Segment(0, sc)
		y2   = y.Segment(sc, sc)
		y3   = y.Segment(2*sc, sc)
		z    = J.z
		oodt = 1. / J.lin.Dt
	)
	// directional convection operators: Nv and Nb are linear in their
	// advecting snapshot
	NvD := op.assembleNv(dphi)
	NbD := op.assembleNb(dpsi)

	// block 1
	op.Ksys.A.MulVec(dphi, y1)
	op.Msys.A.AddMulVec(dw, y1)

	// block 2
	z.CopyFrom(dpsi).Scale(oodt)
	op.Msys.A.MulVec(z, y2)
	J.NvStar.AddMulVec(dpsi, y2)
	NvD.AddMulVec(J.psiStar, y2)
	if op.resistivity != 0 {
		op.DSl.AddMulVec(dpsi, y2)
	}

	// block 3
	z.CopyFrom(dw).Scale(oodt)
	op.Msys.A.MulVec(z, y3)
	J.NvStar.AddMulVec(dw, y3)
	NvD.AddMulVec(J.wStar, y3)
	if op.viscosity != 0 {
		op.DRe.AddMulVec(dw, y3)
	}
	NbD.AddScaledMulVec(-1, J.jStar, y3)
	// directional current: the recovery is linear in Psi, with homogeneous
	// boundary values in the derivative
	if err := op.recoverCurrentInto(dpsi, J.zeroBC, J.jDir); err != nil {
		panic(fmt.Errorf("jacobian action, directional current recovery: %w", err))
	}
	J.NbStar.AddScaledMulVec(-1, J.jDir, y3)

	// essential rows are identity
	for _, i := range op.ess {
		y1.DataP()[i] = dphi.AtVec(i)
		y2.DataP()[i] = dpsi.AtVec(i)
		y3.DataP()[i] = dw.AtVec(i)
	}
}

// boundReducedSystem binds one Linearization immutably for the generic
// Newton solver, which knows nothing about timestep contexts.
type boundReducedSystem struct {
	r   *ReducedSystemOperator
	lin *Linearization
}

func bindLinearization(r *ReducedSystemOperator, lin *Linearization) *boundReducedSystem {
	return &boundReducedSystem{r: r, lin: lin}
}

func (b *boundReducedSystem) Height() int { return b.r.Height() }

func (b *boundReducedSystem) Residual(k, f utils.Vector) error {
	return b.r.Residual(b.lin, k, f)
}

func (b *boundReducedSystem) Jacobian(k utils.Vector) (solvers.Operator, error) {
	return b.r.Jacobian(b.lin, k)
}
