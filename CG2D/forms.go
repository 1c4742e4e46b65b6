package CG2D

import (
	"fmt"
	"math"

	"github.com/notargets/gomhd/utils"
)

type DomainIntegrator interface {
	ElementMatrix(fes *FESpace, e int, ke *[3][3]float64)
}

type BdrFaceIntegrator interface {
	FaceMatrix(fes *FESpace, be BdrEdge, add func(row, col int, val float64))
}

type MassIntegrator struct {
	Coeff float64 // 0 means 1
}

func (mi MassIntegrator) ElementMatrix(fes *FESpace, e int, ke *[3][3]float64) {
	var (
		coeff = mi.Coeff
		a     = fes.area[e]
	)
	if coeff == 0 {
		coeff = 1
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			val := coeff * a / 12.
			if i == j {
				val *= 2
			}
			ke[i][j] += val
		}
	}
}

type DiffusionIntegrator struct {
	Coeff float64 // 0 means 1
}

func (di DiffusionIntegrator) ElementMatrix(fes *FESpace, e int, ke *[3][3]float64) {
	var (
		coeff = di.Coeff
		b, c  = fes.b[e], fes.c[e]
		oo4A  = 1. / (4. * fes.area[e])
	)
	if coeff == 0 {
		coeff = 1
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			ke[i][j] += coeff * (b[i]*b[j] + c[i]*c[j]) * oo4A
		}
	}
}

// ConvectionIntegrator assembles the non-self-adjoint form
// (v . grad u, w) with v constant per element.
type ConvectionIntegrator struct {
	Vel VectorCoefficient
}

func (ci ConvectionIntegrator) ElementMatrix(fes *FESpace, e int, ke *[3][3]float64) {
	var (
		vx, vy = ci.Vel.Eval(e)
		b, c   = fes.b[e], fes.c[e]
	)
	// integral of w_i over the element is A/3, v.grad(u_j) = (vx*b_j+vy*c_j)/(2A)
	for j := 0; j < 3; j++ {
		val := (vx*b[j] + vy*c[j]) / 6.
		for i := 0; i < 3; i++ {
			ke[i][j] += val
		}
	}
}

// BoundaryGradIntegrator assembles minus the boundary flux term
// -(w, n . grad u) over marked boundary faces, so that a diffusion form
// plus this integrator applied to u yields the weak (negated) Laplacian with
// its boundary correction (the K - B operator of the current recovery).
type BoundaryGradIntegrator struct{}

func (BoundaryGradIntegrator) FaceMatrix(fes *FESpace, be BdrEdge, add func(row, col int, val float64)) {
	var (
		vx    = fes.Mesh.VX.DataP()
		vy    = fes.Mesh.VY.DataP()
		tri   = fes.Mesh.EToV[be.Elem]
		b, c  = fes.b[be.Elem], fes.c[be.Elem]
		oo2A  = 1. / (2. * fes.area[be.Elem])
		dx    = vx[be.V[1]] - vx[be.V[0]]
		dy    = vy[be.V[1]] - vy[be.V[0]]
		elen  = math.Hypot(dx, dy)
		nx    = dy / elen // outward normal: edge direction rotated -90
		ny    = -dx / elen
	)
	for j := 0; j < 3; j++ {
		dn := (nx*b[j] + ny*c[j]) * oo2A
		for _, row := range be.V {
			add(row, tri[j], -0.5*elen*dn)
		}
	}
}

type BilinearForm struct {
	fes       *FESpace
	dints     []DomainIntegrator
	bints     []BdrFaceIntegrator
	mat       utils.CSR
	assembled bool
}

func NewBilinearForm(fes *FESpace) *BilinearForm {
	return &BilinearForm{fes: fes}
}

func (bf *BilinearForm) AddDomainIntegrator(di DomainIntegrator) *BilinearForm {
	bf.dints = append(bf.dints, di)
	return bf
}

func (bf *BilinearForm) AddBdrFaceIntegrator(bi BdrFaceIntegrator) *BilinearForm {
	bf.bints = append(bf.bints, bi)
	return bf
}

func (bf *BilinearForm) Assemble() utils.CSR {
	var (
		fes = bf.fes
		n   = fes.NDofs()
		d   = utils.NewDOK(n, n)
	)
	for e := 0; e < fes.Mesh.K; e++ {
		var ke [3][3]float64
		for _, di := range bf.dints {
			di.ElementMatrix(fes, e, &ke)
		}
		tri := fes.Mesh.EToV[e]
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				d.Accumulate(tri[i], tri[j], ke[i][j])
			}
		}
	}
	for _, bi := range bf.bints {
		for _, be := range fes.Mesh.BdrEdges {
			bi.FaceMatrix(fes, be, d.Accumulate)
		}
	}
	bf.mat = d.ToCSR()
	bf.assembled = true
	return bf.mat
}

func (bf *BilinearForm) SpMat() utils.CSR {
	if !bf.assembled {
		panic("bilinear form applied before Assemble")
	}
	return bf.mat
}

// FormSystem derives the Dirichlet-constrained system from the assembled
// form: essential rows and columns are replaced by identity, and the full
// matrix is retained for right-hand-side elimination.
func (bf *BilinearForm) FormSystem(ess utils.Index) (ls *LinearSystem) {
	var (
		full  = bf.SpMat()
		n, _  = full.Dims()
		mask  = ess.Mask(n)
		d     = utils.NewDOK(n, n)
	)
	full.DoNonZero(func(i, j int, v float64) {
		if mask[i] || mask[j] {
			return
		}
		d.Accumulate(i, j, v)
	})
	for _, i := range ess {
		d.Set(i, i, 1)
	}
	return &LinearSystem{
		A:       d.ToCSR(),
		Afull:   full,
		Ess:     ess,
		essMask: mask,
	}
}

// EliminateRowsCols replaces essential rows and columns of A by identity,
// for operators built by combination rather than by a single form.
func EliminateRowsCols(A utils.CSR, ess utils.Index) utils.CSR {
	var (
		n, _ = A.Dims()
		mask = ess.Mask(n)
		d    = utils.NewDOK(n, n)
	)
	A.DoNonZero(func(i, j int, v float64) {
		if mask[i] || mask[j] {
			return
		}
		d.Accumulate(i, j, v)
	})
	for _, i := range ess {
		d.Set(i, i, 1)
	}
	return d.ToCSR()
}

// LinearSystem pairs a Dirichlet-constrained operator with its unconstrained
// original, mirroring the backend FormLinearSystem contract: callers reduce
// a right-hand side against prescribed boundary values, solve with A, then
// recover the full solution.
type LinearSystem struct {
	A       utils.CSR
	Afull   utils.CSR
	Ess     utils.Index
	essMask []bool
}

// ReduceRHS eliminates the essential columns: B = b - Afull(:,ess)*x(ess)
// on free rows, B = x on essential rows.
func (ls *LinearSystem) ReduceRHS(x, b utils.Vector) (B utils.Vector) {
	var (
		n, _ = ls.Afull.Dims()
	)
	if x.Len() != n || b.Len() != n {
		err := fmt.Errorf("ReduceRHS length mismatch: n = %v, x = %v, b = %v\n", n, x.Len(), b.Len())
		panic(err)
	}
	B = b.Copy()
	var (
		dataB = B.DataP()
		dataX = x.DataP()
	)
	ls.Afull.DoNonZero(func(i, j int, v float64) {
		if !ls.essMask[i] && ls.essMask[j] {
			dataB[i] -= v * dataX[j]
		}
	})
	for _, i := range ls.Ess {
		dataB[i] = dataX[i]
	}
	return
}

// RecoverSolution maps the reduced solution back onto the full dof vector
// (an identity copy in this serial backend).
func (ls *LinearSystem) RecoverSolution(X, x utils.Vector) {
	x.CopyFrom(X)
}

type LinearForm struct {
	fes *FESpace
	fs  []func(x, y float64) float64
}

func NewLinearForm(fes *FESpace) *LinearForm {
	return &LinearForm{fes: fes}
}

func (lf *LinearForm) AddDomainIntegrator(f func(x, y float64) float64) *LinearForm {
	lf.fs = append(lf.fs, f)
	return lf
}

// Assemble uses the nodal (lumped) quadrature rule exact for P1 test
// functions against nodal data.
func (lf *LinearForm) Assemble() (v utils.Vector) {
	var (
		fes = lf.fes
		vx  = fes.Mesh.VX.DataP()
		vy  = fes.Mesh.VY.DataP()
	)
	v = utils.NewVector(fes.NDofs())
	data := v.DataP()
	for e := 0; e < fes.Mesh.K; e++ {
		tri := fes.Mesh.EToV[e]
		w := fes.area[e] / 3.
		for k := 0; k < 3; k++ {
			for _, f := range lf.fs {
				data[tri[k]] += w * f(vx[tri[k]], vy[tri[k]])
			}
		}
	}
	return
}
