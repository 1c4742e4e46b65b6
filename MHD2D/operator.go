package MHD2D

import (
	"fmt"

	"github.com/notargets/gomhd/CG2D"
	"github.com/notargets/gomhd/solvers"
	"github.com/notargets/gomhd/utils"
)

/*
After spatial discretization, the reduced resistive MHD model is the ODE
system

	dPsi/dt = M^-1 * F1(Psi, w)
	dw/dt   = M^-1 * F2(Psi, w)

coupled with two linear recoveries

	j   = -M^-1 * (K-B) * Psi
	Phi = -K^-1 * M * w

ResistiveMHDOperator is the time-evolution operator of that system: Mult is
the explicit right-hand side, ImplicitSolve the backward-Euler stage solve.
The state vector is three contiguous blocks (Phi, Psi, w), each of length
sc = NDofs.
*/
type ResistiveMHDOperator struct {
	fes *CG2D.FESpace
	ess utils.Index
	sc  int

	viscosity, resistivity float64
	useICC                 bool

	Msys, Ksys *CG2D.LinearSystem
	KB         utils.CSR // stiffness with boundary correction, unconstrained
	DSl, DRe   utils.CSR // resistive / viscous diffusion, unconstrained

	E0Vec utils.Vector // E-field source, zero-length until set
	jBdy  float64
	j     utils.Vector // current field - recomputed every evaluation

	Msolver *solvers.CG // warm-started mass solver
	Ksolver *solvers.CG // stiffness solver for the potential recovery

	reduced *ReducedSystemOperator

	z, zFull utils.Vector // scratch
}

// NewResistiveMHDOperator builds the invariant operators (M, K, K-B and the
// two diffusion operators) once; only the convection operators are rebuilt
// per evaluation. essBdr marks the boundary attributes carrying Dirichlet
// conditions; a malformed marker is fatal here, at construction.
func NewResistiveMHDOperator(fes *CG2D.FESpace, essBdr []bool, visc, resi float64, useICC bool) (op *ResistiveMHDOperator, err error) {
	op = &ResistiveMHDOperator{
		fes:         fes,
		sc:          fes.NDofs(),
		viscosity:   visc,
		resistivity: resi,
		useICC:      useICC,
	}
	if op.ess, err = fes.EssentialTrueDofs(essBdr); err != nil {
		return nil, fmt.Errorf("essential dof extraction failed: %w", err)
	}

	M := CG2D.NewBilinearForm(fes).AddDomainIntegrator(CG2D.MassIntegrator{})
	M.Assemble()
	op.Msys = M.FormSystem(op.ess)
	op.Msolver = solvers.NewCG(op.Msys.A, solvers.NewJacobi(op.Msys.A), op.sc)
	op.Msolver.RelTol = 1e-12
	op.Msolver.MaxIter = 2000
	op.Msolver.IterativeMode = true

	K := CG2D.NewBilinearForm(fes).AddDomainIntegrator(CG2D.DiffusionIntegrator{})
	K.Assemble()
	op.Ksys = K.FormSystem(op.ess)
	var Kprecon solvers.Preconditioner
	if useICC {
		Kprecon = solvers.NewIncompleteCholesky(op.Ksys.A)
	} else {
		Kprecon = solvers.NewChebyshev(op.Ksys.A, 4) // the faster choice
	}
	op.Ksolver = solvers.NewCG(op.Ksys.A, Kprecon, op.sc)
	op.Ksolver.RelTol = 1e-7
	op.Ksolver.MaxIter = 2000
	op.Ksolver.IterativeMode = true

	KB := CG2D.NewBilinearForm(fes).
		AddDomainIntegrator(CG2D.DiffusionIntegrator{}).    //  K matrix
		AddBdrFaceIntegrator(CG2D.BoundaryGradIntegrator{}) // -B matrix
	op.KB = KB.Assemble()

	if resi != 0 {
		DSl := CG2D.NewBilinearForm(fes).AddDomainIntegrator(CG2D.DiffusionIntegrator{Coeff: resi})
		op.DSl = DSl.Assemble()
	}
	if visc != 0 {
		DRe := CG2D.NewBilinearForm(fes).AddDomainIntegrator(CG2D.DiffusionIntegrator{Coeff: visc})
		op.DRe = DRe.Assemble()
	}

	op.j = utils.NewVector(op.sc)
	op.z = utils.NewVector(op.sc)
	op.zFull = utils.NewVector(op.sc)
	op.reduced = newReducedSystemOperator(op)
	return
}

func (op *ResistiveMHDOperator) Height() int { return 3 * op.sc }

func (op *ResistiveMHDOperator) FESpace() *CG2D.FESpace      { return op.fes }
func (op *ResistiveMHDOperator) EssentialDofs() utils.Index  { return op.ess }
func (op *ResistiveMHDOperator) Reduced() *ReducedSystemOperator { return op.reduced }

// SetRHSEfield assembles the E-field forcing term entering the Psi equation
func (op *ResistiveMHDOperator) SetRHSEfield(f func(x, y float64) float64) {
	op.E0Vec = CG2D.NewLinearForm(op.fes).AddDomainIntegrator(f).Assemble()
}

// SetInitialJ seeds the current field - both the warm start for the
// recovery solves and the Dirichlet values it carries on the boundary.
// The prescribed boundary value wins over the projection, so the call
// order against SetJBdy does not matter.
func (op *ResistiveMHDOperator) SetInitialJ(f func(x, y float64) float64) {
	op.j = op.fes.ProjectFunction(f).SetSubVector(op.ess, op.jBdy)
}

func (op *ResistiveMHDOperator) SetJBdy(v float64) {
	op.jBdy = v
	op.j.SetSubVector(op.ess, v)
}

// RecoverCurrent solves M*j = -(K-B)*Psi with Dirichlet values from the
// stored current field. The returned vector is the operator's internal
// current buffer, overwritten by every evaluation.
func (op *ResistiveMHDOperator) RecoverCurrent(psi utils.Vector) (utils.Vector, error) {
	if err := op.recoverCurrentInto(psi, op.j, op.j); err != nil {
		return op.j, fmt.Errorf("current recovery: %w", err)
	}
	return op.j, nil
}

func (op *ResistiveMHDOperator) recoverCurrentInto(psi, bc, jOut utils.Vector) error {
	op.KB.MulVec(psi, op.zFull)
	op.zFull.Neg()
	B := op.Msys.ReduceRHS(bc, op.zFull)
	// keep the warm start consistent with the boundary values so the
	// constrained residual stays exactly zero on essential dofs
	for _, i := range op.ess {
		jOut.DataP()[i] = bc.DataP()[i]
	}
	_, err := op.Msolver.Solve(B, jOut)
	return err
}

// Mult evaluates the explicit right-hand side: given the state (Phi, Psi,
// w) it produces (0, dPsi/dt, dw/dt). The Phi slot of the derivative is a
// placeholder - Phi is recovered, not evolved. The convection operators Nv
// (advecting by Phi) and Nb (advecting by Psi) are rebuilt from the input
// snapshot on every call.
func (op *ResistiveMHDOperator) Mult(vx, dvxdt utils.Vector) error {
	op.checkHeight(vx)
	op.checkHeight(dvxdt)
	var (
		sc   = op.sc
		phi  = vx.Segment(0, sc)
		psi  = vx.Segment(sc, sc)
		w    = vx.Segment(2*sc, sc)
		z    = op.z
	)
	dvxdt.Zero()
	dpsi := dvxdt.Segment(sc, sc)
	dw := dvxdt.Segment(2*sc, sc)

	j, err := op.RecoverCurrent(psi)
	if err != nil {
		return fmt.Errorf("explicit rhs: %w", err)
	}
	Nv := op.assembleNv(phi)
	Nb := op.assembleNb(psi)

	z.Zero()
	Nv.AddMulVec(psi, z)
	if op.resistivity != 0 {
		op.DSl.AddMulVec(psi, z)
	}
	if op.E0Vec.Len() != 0 {
		z.Add(op.E0Vec)
	}
	z.Neg().SetSubVector(op.ess, 0)
	if _, err = op.Msolver.Solve(z, dpsi); err != nil {
		return fmt.Errorf("explicit rhs, psi equation: %w", err)
	}

	z.Zero()
	Nv.AddMulVec(w, z)
	if op.viscosity != 0 {
		op.DRe.AddMulVec(w, z)
	}
	z.Neg()
	Nb.AddMulVec(j, z)
	z.SetSubVector(op.ess, 0)
	if _, err = op.Msolver.Solve(z, dw); err != nil {
		return fmt.Errorf("explicit rhs, vorticity equation: %w", err)
	}
	return nil
}

// ImplicitSolve solves the backward-Euler equation k = f(x + dt*k) for the
// stage derivative k. Newton non-convergence is returned as an error the
// caller must treat as fatal (or shrink dt and retry).
func (op *ResistiveMHDOperator) ImplicitSolve(dt float64, vx, k utils.Vector) error {
	op.checkHeight(vx)
	op.checkHeight(k)
	if dt <= 0 {
		return fmt.Errorf("implicit solve requires dt > 0, got %v", dt)
	}
	var (
		sc  = op.sc
		lin = &Linearization{
			Dt:  dt,
			Phi: vx.Segment(0, sc).Copy(),
			Psi: vx.Segment(sc, sc).Copy(),
			W:   vx.Segment(2*sc, sc).Copy(),
		}
	)
	newton := &solvers.Newton{
		Op:         bindLinearization(op.reduced, lin),
		RelTol:     1e-7,
		AbsTol:     1e-10,
		MaxIter:    10,
		LinRelTol:  1e-4,
		LinMaxIter: 400,
		LinRestart: 50,
		Factory:    &PreconditionerFactory{op: op, lin: lin},
	}
	k.CopyFrom(vx) // previous state is the Newton initial guess
	if err := newton.Solve(utils.Vector{}, k); err != nil {
		return fmt.Errorf("implicit solve, dt = %v: %w", dt, err)
	}
	if !newton.Converged() {
		return fmt.Errorf("newton solver did not converge: dt = %v, %d iterations, ||F|| = %v",
			dt, newton.Iterations(), newton.FinalNorm())
	}
	// map the end-of-step state onto the backward-Euler stage derivative
	k.Sub(vx).Scale(1. / dt)
	return nil
}

// UpdatePhi recovers the potential from the vorticity, Phi = -K^-1 * M * w,
// writing into the Phi block of vx. Used between steps, outside the Newton
// iteration (the coupled solve carries the same relation as a constraint).
func (op *ResistiveMHDOperator) UpdatePhi(vx utils.Vector) error {
	op.checkHeight(vx)
	var (
		sc  = op.sc
		phi = vx.Segment(0, sc)
		w   = vx.Segment(2*sc, sc)
	)
	op.Msys.A.MulVec(w, op.z)
	op.z.Neg().SetSubVector(op.ess, 0)
	phi.SetSubVector(op.ess, 0)
	if _, err := op.Ksolver.Solve(op.z, phi); err != nil {
		return fmt.Errorf("potential solve: %w", err)
	}
	return nil
}

// assembleNv builds the convection operator advected by the velocity
// derived from a potential snapshot. The returned operator is owned by the
// calling evaluation - a later call simply builds a fresh one.
func (op *ResistiveMHDOperator) assembleNv(phi utils.Vector) utils.CSR {
	return CG2D.NewBilinearForm(op.fes).
		AddDomainIntegrator(CG2D.ConvectionIntegrator{Vel: CG2D.NewGradRotCoefficient(op.fes, phi)}).
		Assemble()
}

// assembleNb builds the convection operator advected by the B field derived
// from a flux snapshot
func (op *ResistiveMHDOperator) assembleNb(psi utils.Vector) utils.CSR {
	return CG2D.NewBilinearForm(op.fes).
		AddDomainIntegrator(CG2D.ConvectionIntegrator{Vel: CG2D.NewGradRotCoefficient(op.fes, psi)}).
		Assemble()
}

// Energy is the discrete quadratic invariant 0.5*(Psi'K Psi + Phi'K Phi),
// conserved by the ideal (zero viscosity/resistivity, zero source) system
func (op *ResistiveMHDOperator) Energy(vx utils.Vector) float64 {
	op.checkHeight(vx)
	var (
		sc  = op.sc
		phi = vx.Segment(0, sc)
		psi = vx.Segment(sc, sc)
	)
	op.Ksys.Afull.MulVec(psi, op.z)
	e := 0.5 * psi.Dot(op.z)
	op.Ksys.Afull.MulVec(phi, op.z)
	return e + 0.5*phi.Dot(op.z)
}

func (op *ResistiveMHDOperator) checkHeight(v utils.Vector) {
	if v.Len() != 3*op.sc {
		err := fmt.Errorf("state vector length %v does not match operator height %v\n", v.Len(), 3*op.sc)
		panic(err)
	}
}
