package solvers

import (
	"fmt"
	"math"

	"github.com/notargets/gomhd/utils"
)

// GMRES is a restarted, right-preconditioned GMRES solver for the
// non-self-adjoint systems the convection terms produce (the Jacobian
// solve inside Newton). Right preconditioning keeps the monitored residual
// equal to the true residual.
type GMRES struct {
	A       Operator
	Precon  Preconditioner
	RelTol  float64
	AbsTol  float64
	MaxIter int
	Restart int
}

func (g *GMRES) Solve(b, x utils.Vector) (res Result, err error) {
	var (
		n       = b.Len()
		m       = g.Restart
		r       = utils.NewVector(n)
		w       = utils.NewVector(n)
		pv      = utils.NewVector(n)
		target  = g.AbsTol
		totalIt = 0
	)
	if m <= 0 {
		m = 30
	}
	if g.MaxIter <= 0 {
		g.MaxIter = 200
	}
	if t := g.RelTol * b.Norm(); t > target {
		target = t
	}
	var (
		V  = make([]utils.Vector, m+1)
		H  = make([][]float64, m+1) // H[i][j], column j has entries 0..j+1
		cs = make([]float64, m)
		sn = make([]float64, m)
		gv = make([]float64, m+1)
	)
	for i := range V {
		V[i] = utils.NewVector(n)
		H[i] = make([]float64, m)
	}
	update := func(k int) {
		// solve the triangular system and fold the correction into x
		y := make([]float64, k)
		for i := k - 1; i >= 0; i-- {
			s := gv[i]
			for j := i + 1; j < k; j++ {
				s -= H[i][j] * y[j]
			}
			y[i] = s / H[i][i]
		}
		w.Zero()
		for j := 0; j < k; j++ {
			w.AddScaled(y[j], V[j])
		}
		g.applyPrecon(w, pv)
		x.Add(pv)
	}

	for totalIt < g.MaxIter {
		r.CopyFrom(b)
		g.A.Mult(x, w)
		r.Sub(w)
		beta := r.Norm()
		res.ResidualNorm = beta
		if beta <= target {
			res.Converged = true
			res.Iterations = totalIt
			return
		}
		V[0].CopyFrom(r).Scale(1. / beta)
		for i := range gv {
			gv[i] = 0
		}
		gv[0] = beta

		var k int
		for k = 0; k < m && totalIt < g.MaxIter; k++ {
			totalIt++
			g.applyPrecon(V[k], pv)
			g.A.Mult(pv, w)
			for i := 0; i <= k; i++ {
				H[i][k] = w.Dot(V[i])
				w.AddScaled(-H[i][k], V[i])
			}
			H[k+1][k] = w.Norm()
			if H[k+1][k] > 1e-14 {
				V[k+1].CopyFrom(w).Scale(1. / H[k+1][k])
			}
			// apply accumulated Givens rotations to the new column
			for i := 0; i < k; i++ {
				t := cs[i]*H[i][k] + sn[i]*H[i+1][k]
				H[i+1][k] = -sn[i]*H[i][k] + cs[i]*H[i+1][k]
				H[i][k] = t
			}
			den := math.Hypot(H[k][k], H[k+1][k])
			cs[k], sn[k] = H[k][k]/den, H[k+1][k]/den
			H[k][k] = den
			H[k+1][k] = 0
			gv[k+1] = -sn[k] * gv[k]
			gv[k] = cs[k] * gv[k]
			res.ResidualNorm = math.Abs(gv[k+1])
			res.Iterations = totalIt
			if res.ResidualNorm <= target {
				update(k + 1)
				res.Converged = true
				return
			}
		}
		update(k)
	}
	return res, fmt.Errorf("GMRES did not converge in %d iterations: residual %v > target %v",
		g.MaxIter, res.ResidualNorm, target)
}

func (g *GMRES) applyPrecon(r, z utils.Vector) {
	if g.Precon == nil {
		z.CopyFrom(r)
		return
	}
	g.Precon.Apply(r, z)
}
