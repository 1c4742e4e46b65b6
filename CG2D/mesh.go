package CG2D

import (
	"fmt"

	"github.com/notargets/gomhd/utils"
)

// BdrEdge is a boundary edge, oriented so the domain lies to its left (the
// outward normal is the edge direction rotated -90 degrees).
type BdrEdge struct {
	V    [2]int
	Elem int
	Attr int // 1 = bottom, 2 = right, 3 = top, 4 = left
}

type Mesh struct {
	VX, VY           utils.Vector
	EToV             [][3]int
	BdrEdges         []BdrEdge
	NumBdrAttributes int
	K, Nv            int // number of elements, number of vertices
}

// SimpleMeshSquare builds a structured triangulation of the rectangle
// [x0,x1] x [y0,y1] with nx by ny quads, each split into two triangles.
func SimpleMeshSquare(x0, x1, y0, y1 float64, nx, ny int) (m *Mesh) {
	if nx < 1 || ny < 1 || x1 <= x0 || y1 <= y0 {
		err := fmt.Errorf("invalid mesh extents: [%v,%v]x[%v,%v], nx,ny = %v,%v\n", x0, x1, y0, y1, nx, ny)
		panic(err)
	}
	var (
		nvx = nx + 1
		nvy = ny + 1
		hx  = (x1 - x0) / float64(nx)
		hy  = (y1 - y0) / float64(ny)
		vid = func(i, j int) int { return i + nvx*j }
	)
	m = &Mesh{
		VX:               utils.NewVector(nvx * nvy),
		VY:               utils.NewVector(nvx * nvy),
		Nv:               nvx * nvy,
		K:                2 * nx * ny,
		NumBdrAttributes: 4,
	}
	for j := 0; j < nvy; j++ {
		for i := 0; i < nvx; i++ {
			m.VX.SetVec(vid(i, j), x0+float64(i)*hx)
			m.VY.SetVec(vid(i, j), y0+float64(j)*hy)
		}
	}
	m.EToV = make([][3]int, 0, m.K)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b := vid(i, j), vid(i+1, j)
			c, d := vid(i+1, j+1), vid(i, j+1)
			m.EToV = append(m.EToV, [3]int{a, b, c}, [3]int{a, c, d})
		}
	}
	elem := func(i, j, half int) int { return 2*(i+nx*j) + half }
	for i := 0; i < nx; i++ {
		m.BdrEdges = append(m.BdrEdges, BdrEdge{
			V: [2]int{vid(i, 0), vid(i+1, 0)}, Elem: elem(i, 0, 0), Attr: 1,
		})
		m.BdrEdges = append(m.BdrEdges, BdrEdge{
			V: [2]int{vid(i+1, ny), vid(i, ny)}, Elem: elem(i, ny-1, 1), Attr: 3,
		})
	}
	for j := 0; j < ny; j++ {
		m.BdrEdges = append(m.BdrEdges, BdrEdge{
			V: [2]int{vid(nx, j), vid(nx, j+1)}, Elem: elem(nx-1, j, 0), Attr: 2,
		})
		m.BdrEdges = append(m.BdrEdges, BdrEdge{
			V: [2]int{vid(0, j+1), vid(0, j)}, Elem: elem(0, j, 1), Attr: 4,
		})
	}
	return
}
