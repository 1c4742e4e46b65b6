package CG2D

import (
	"fmt"
	"sort"

	"github.com/notargets/gomhd/utils"
)

// FESpace is a P1 nodal space over a triangulation - one dof per vertex.
// Barycentric basis gradients are constant per element:
//
//	grad lambda_k = (b[k], c[k]) / (2*Area)
type FESpace struct {
	Mesh *Mesh
	area []float64
	b, c [][3]float64
}

func NewFESpace(m *Mesh) (fes *FESpace) {
	fes = &FESpace{
		Mesh: m,
		area: make([]float64, m.K),
		b:    make([][3]float64, m.K),
		c:    make([][3]float64, m.K),
	}
	var (
		vx = m.VX.DataP()
		vy = m.VY.DataP()
	)
	for e, tri := range m.EToV {
		x1, y1 := vx[tri[0]], vy[tri[0]]
		x2, y2 := vx[tri[1]], vy[tri[1]]
		x3, y3 := vx[tri[2]], vy[tri[2]]
		det := (x2-x1)*(y3-y1) - (x3-x1)*(y2-y1)
		if det <= 0 {
			err := fmt.Errorf("degenerate or inverted element %v, det = %v\n", e, det)
			panic(err)
		}
		fes.area[e] = 0.5 * det
		fes.b[e] = [3]float64{y2 - y3, y3 - y1, y1 - y2}
		fes.c[e] = [3]float64{x3 - x2, x1 - x3, x2 - x1}
	}
	return
}

func (fes *FESpace) NDofs() int { return fes.Mesh.Nv }

// EssentialTrueDofs collects the ordered dof set lying on boundary segments
// whose attribute is marked in essBdr. The marker length must equal the
// mesh boundary attribute count.
func (fes *FESpace) EssentialTrueDofs(essBdr []bool) (ess utils.Index, err error) {
	var (
		m = fes.Mesh
	)
	if len(essBdr) != m.NumBdrAttributes {
		return nil, fmt.Errorf("boundary marker has %d entries, mesh has %d boundary attributes",
			len(essBdr), m.NumBdrAttributes)
	}
	seen := make(map[int]bool)
	for _, be := range m.BdrEdges {
		if be.Attr < 1 || be.Attr > m.NumBdrAttributes {
			return nil, fmt.Errorf("boundary edge carries attribute %d outside [1,%d]",
				be.Attr, m.NumBdrAttributes)
		}
		if !essBdr[be.Attr-1] {
			continue
		}
		seen[be.V[0]] = true
		seen[be.V[1]] = true
	}
	ess = make(utils.Index, 0, len(seen))
	for dof := range seen {
		ess = append(ess, dof)
	}
	sort.Ints(ess)
	return
}

// ProjectFunction evaluates f at the nodes (nodal interpolant)
func (fes *FESpace) ProjectFunction(f func(x, y float64) float64) (v utils.Vector) {
	var (
		vx = fes.Mesh.VX.DataP()
		vy = fes.Mesh.VY.DataP()
	)
	v = utils.NewVector(fes.NDofs())
	data := v.DataP()
	for i := range data {
		data[i] = f(vx[i], vy[i])
	}
	return
}

// ElementGradient returns the (constant) gradient of a P1 field on element e
func (fes *FESpace) ElementGradient(field utils.Vector, e int) (gx, gy float64) {
	var (
		tri  = fes.Mesh.EToV[e]
		data = field.DataP()
		oo2A = 1. / (2. * fes.area[e])
	)
	for k := 0; k < 3; k++ {
		gx += data[tri[k]] * fes.b[e][k] * oo2A
		gy += data[tri[k]] * fes.c[e][k] * oo2A
	}
	return
}
