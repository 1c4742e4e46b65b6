package solvers

import (
	"fmt"

	"github.com/notargets/gomhd/utils"
)

// NonlinearOperator is the contract the Newton solver consumes: a residual
// evaluation and a Jacobian (linearization) at the same point.
type NonlinearOperator interface {
	Height() int
	Residual(k, f utils.Vector) error
	Jacobian(k utils.Vector) (Operator, error)
}

// PreconditionerFactory builds, on demand, a preconditioner matched to the
// current Jacobian for the matrix-free linear solve.
type PreconditionerFactory interface {
	NewPreconditioner() (Preconditioner, error)
}

type Newton struct {
	Op      NonlinearOperator
	RelTol  float64
	AbsTol  float64
	MaxIter int

	LinRelTol  float64
	LinMaxIter int
	LinRestart int

	Factory    PreconditionerFactory
	PrintLevel int

	converged  bool
	iterations int
	finalNorm  float64
}

func (nw *Newton) Converged() bool      { return nw.converged }
func (nw *Newton) Iterations() int      { return nw.iterations }
func (nw *Newton) FinalNorm() float64   { return nw.finalNorm }

// Solve drives k toward F(k) = b. A zero-length b is interpreted as a zero
// right-hand side. The incoming k is the initial guess. Non-convergence is
// reported through Converged(), not through the error return, so the caller
// applies its own policy (the implicit step treats it as fatal).
func (nw *Newton) Solve(b, k utils.Vector) (err error) {
	var (
		h      = nw.Op.Height()
		f      = utils.NewVector(h)
		fTrial = utils.NewVector(h)
		kTrial = utils.NewVector(h)
		d      = utils.NewVector(h)
	)
	nw.converged = false
	nw.iterations = 0
	if k.Len() != h {
		return fmt.Errorf("newton: unknown vector length %d does not match operator height %d", k.Len(), h)
	}
	if b.Len() != 0 && b.Len() != h {
		return fmt.Errorf("newton: rhs length %d does not match operator height %d", b.Len(), h)
	}
	norm, err := nw.residualNorm(k, b, f)
	if err != nil {
		return err
	}
	target := nw.AbsTol
	if t := nw.RelTol * norm; t > target {
		target = t
	}
	maxIter := nw.MaxIter
	if maxIter <= 0 {
		maxIter = 10
	}
	for it := 0; it < maxIter; it++ {
		if norm <= target {
			break
		}
		J, err := nw.Op.Jacobian(k)
		if err != nil {
			return fmt.Errorf("newton: jacobian evaluation failed: %w", err)
		}
		var precon Preconditioner
		if nw.Factory != nil {
			if precon, err = nw.Factory.NewPreconditioner(); err != nil {
				return fmt.Errorf("newton: preconditioner construction failed: %w", err)
			}
		}
		gm := &GMRES{
			A:       J,
			Precon:  precon,
			RelTol:  nw.linRelTol(),
			MaxIter: nw.LinMaxIter,
			Restart: nw.LinRestart,
		}
		d.Zero()
		if _, lerr := gm.Solve(f, d); lerr != nil && nw.PrintLevel > 0 {
			fmt.Printf("newton iteration %d: inner solve under-converged: %v\n", it, lerr)
		}
		// backtracking: accept the first damped step that reduces the norm
		var (
			accepted  bool
			alpha     = 1.0
			normTrial float64
		)
		for ls := 0; ls < 5; ls++ {
			kTrial.CopyFrom(k).AddScaled(-alpha, d)
			if normTrial, err = nw.residualNorm(kTrial, b, fTrial); err != nil {
				return err
			}
			if normTrial < norm {
				accepted = true
				break
			}
			alpha *= 0.5
		}
		if !accepted {
			break
		}
		k.CopyFrom(kTrial)
		f.CopyFrom(fTrial)
		norm = normTrial
		nw.iterations = it + 1
		if nw.PrintLevel > 0 {
			fmt.Printf("newton iteration %d: ||F|| = %12.6e (step %4.2f)\n", it+1, norm, alpha)
		}
	}
	nw.finalNorm = norm
	nw.converged = norm <= target
	return nil
}

func (nw *Newton) residualNorm(k, b, f utils.Vector) (norm float64, err error) {
	if err = nw.Op.Residual(k, f); err != nil {
		return 0, fmt.Errorf("newton: residual evaluation failed: %w", err)
	}
	if b.Len() != 0 {
		f.Sub(b)
	}
	return f.Norm(), nil
}

func (nw *Newton) linRelTol() float64 {
	if nw.LinRelTol > 0 {
		return nw.LinRelTol
	}
	return 1e-6
}
