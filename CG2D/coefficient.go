package CG2D

import (
	"github.com/notargets/gomhd/utils"
)

// VectorCoefficient supplies a per-element constant vector, the resolution a
// P1 gradient supports.
type VectorCoefficient interface {
	Eval(e int) (vx, vy float64)
}

// GradRotCoefficient is the 90-degree rotated gradient of a scalar snapshot:
// (df/dy, -df/dx). This is the stream-function-to-velocity (and flux-to-B)
// relation driving the convection operators.
type GradRotCoefficient struct {
	fes   *FESpace
	field utils.Vector
}

func NewGradRotCoefficient(fes *FESpace, field utils.Vector) *GradRotCoefficient {
	return &GradRotCoefficient{fes: fes, field: field}
}

func (g *GradRotCoefficient) Eval(e int) (vx, vy float64) {
	gx, gy := g.fes.ElementGradient(g.field, e)
	return gy, -gx
}

// ConstVectorCoefficient is a uniform vector field
type ConstVectorCoefficient struct {
	X, Y float64
}

func (c ConstVectorCoefficient) Eval(_ int) (vx, vy float64) { return c.X, c.Y }
