package solvers

import (
	"fmt"

	"github.com/notargets/gomhd/utils"
)

// Operator is a square linear operator action: y = A*x
type Operator interface {
	Mult(x, y utils.Vector)
}

// Result reports the outcome of an iterative solve. Krylov convergence is
// never assumed - callers check the error and can inspect the residual
// history behind it.
type Result struct {
	Converged    bool
	Iterations   int
	ResidualNorm float64
}

// CG is a preconditioned conjugate gradient solver for SPD operators.
// IterativeMode reuses the incoming x as the initial guess (warm start).
type CG struct {
	A             Operator
	Precon        Preconditioner
	RelTol        float64
	AbsTol        float64
	MaxIter       int
	IterativeMode bool

	r, z, p, ap utils.Vector
}

func NewCG(A Operator, precon Preconditioner, n int) (cg *CG) {
	return &CG{
		A:       A,
		Precon:  precon,
		RelTol:  1e-12,
		AbsTol:  0,
		MaxIter: 2000,
		r:       utils.NewVector(n),
		z:       utils.NewVector(n),
		p:       utils.NewVector(n),
		ap:      utils.NewVector(n),
	}
}

// Solve computes x such that A x = b to tolerance. The returned error is
// non-nil when the iteration budget is exhausted before the residual target
// is met - an under-converged x is still left in place for callers that
// choose to treat the failure as recoverable.
func (cg *CG) Solve(b, x utils.Vector) (res Result, err error) {
	var (
		r, z, p, ap = cg.r, cg.z, cg.p, cg.ap
		target      = cg.AbsTol
	)
	if !cg.IterativeMode {
		x.Zero()
	}
	if t := cg.RelTol * b.Norm(); t > target {
		target = t
	}
	r.CopyFrom(b)
	cg.A.Mult(x, ap)
	r.Sub(ap)
	res.ResidualNorm = r.Norm()
	if res.ResidualNorm <= target {
		res.Converged = true
		return
	}
	cg.applyPrecon(r, z)
	p.CopyFrom(z)
	rz := r.Dot(z)
	for it := 1; it <= cg.MaxIter; it++ {
		cg.A.Mult(p, ap)
		pap := p.Dot(ap)
		if pap <= 0 {
			return res, fmt.Errorf("CG breakdown at iteration %d: p.Ap = %v (operator not SPD?)", it, pap)
		}
		alpha := rz / pap
		x.AddScaled(alpha, p)
		r.AddScaled(-alpha, ap)
		res.Iterations = it
		res.ResidualNorm = r.Norm()
		if res.ResidualNorm <= target {
			res.Converged = true
			return
		}
		cg.applyPrecon(r, z)
		rzNew := r.Dot(z)
		beta := rzNew / rz
		for i, val := range z.DataP() {
			p.DataP()[i] = val + beta*p.DataP()[i]
		}
		rz = rzNew
	}
	return res, fmt.Errorf("CG did not converge in %d iterations: residual %v > target %v",
		cg.MaxIter, res.ResidualNorm, target)
}

func (cg *CG) applyPrecon(r, z utils.Vector) {
	if cg.Precon == nil {
		z.CopyFrom(r)
		return
	}
	cg.Precon.Apply(r, z)
}
