package MHD2D

import (
	"github.com/notargets/gomhd/CG2D"
	"github.com/notargets/gomhd/solvers"
	"github.com/notargets/gomhd/utils"
)

// PreconditionerFactory builds, on demand, a preconditioner matched to the
// Jacobian of one timestep for the matrix-free Newton-Krylov solve. The
// preconditioner is block diagonal: the convection coupling is dropped,
// leaving one SPD operator per block (K for the constraint, M/dt plus the
// diffusion operator for each evolution equation), each applied by a loose
// inner CG.
type PreconditionerFactory struct {
	op  *ResistiveMHDOperator
	lin *Linearization
}

func (f *PreconditionerFactory) NewPreconditioner() (solvers.Preconditioner, error) {
	var (
		op   = f.op
		oodt = 1. / f.lin.Dt
	)
	Apsi := utils.AddScaledCSR(oodt, op.Msys.Afull, 0, op.Msys.Afull)
	if op.resistivity != 0 {
		Apsi = utils.AddScaledCSR(1, Apsi, 1, op.DSl)
	}
	Apsi = CG2D.EliminateRowsCols(Apsi, op.ess)

	Aw := utils.AddScaledCSR(oodt, op.Msys.Afull, 0, op.Msys.Afull)
	if op.viscosity != 0 {
		Aw = utils.AddScaledCSR(1, Aw, 1, op.DRe)
	}
	Aw = CG2D.EliminateRowsCols(Aw, op.ess)

	bp := &blockDiagPrecon{sc: op.sc}
	bp.phiSolve = looseCG(op.Ksys.A, solvers.NewChebyshev(op.Ksys.A, 4), op.sc)
	bp.psiSolve = looseCG(Apsi, solvers.NewJacobi(Apsi), op.sc)
	bp.wSolve = looseCG(Aw, solvers.NewJacobi(Aw), op.sc)
	return bp, nil
}

func looseCG(A utils.CSR, precon solvers.Preconditioner, n int) (cg *solvers.CG) {
	cg = solvers.NewCG(A, precon, n)
	cg.RelTol = 1e-2
	cg.MaxIter = 40
	cg.IterativeMode = false
	return
}

type blockDiagPrecon struct {
	sc                         int
	phiSolve, psiSolve, wSolve *solvers.CG
}

func (bp *blockDiagPrecon) Apply(r, z utils.Vector) {
	var (
		sc = bp.sc
	)
	// approximate inverses: under-convergence of the inner CG is fine here,
	// the outer Krylov iteration absorbs it
	bp.phiSolve.Solve(r.Segment(0, sc), z.Segment(0, sc))
	bp.psiSolve.Solve(r.Segment(sc, sc), z.Segment(sc, sc))
	bp.wSolve.Solve(r.Segment(2*sc, sc), z.Segment(2*sc, sc))
}
