package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

type Vector struct {
	V *mat.VecDense
}

func NewVector(n int, dataO ...[]float64) (v Vector) {
	if len(dataO) != 0 {
		if len(dataO[0]) != n {
			err := fmt.Errorf("mismatch in allocation: NewVector n = %v, len(data[0]) = %v\n", n, len(dataO[0]))
			panic(err)
		}
		return Vector{mat.NewVecDense(n, dataO[0])}
	}
	return Vector{mat.NewVecDense(n, make([]float64, n))}
}

func NewVectorConstant(n int, val float64) (v Vector) {
	var (
		x = make([]float64, n)
	)
	for i := range x {
		x[i] = val
	}
	return Vector{mat.NewVecDense(n, x)}
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (v Vector) Dims() (r, c int)         { return v.V.Dims() }
func (v Vector) At(i, j int) float64      { return v.V.At(i, j) }
func (v Vector) T() mat.Matrix            { return v.V.T() }
func (v Vector) AtVec(i int) float64      { return v.V.AtVec(i) }
func (v Vector) RawVector() blas64.Vector { return v.V.RawVector() }

// Len treats the zero value as an empty vector (the "zero right-hand side"
// convention of the nonlinear solvers)
func (v Vector) Len() int {
	if v.V == nil {
		return 0
	}
	return v.V.Len()
}
func (v Vector) DataP() []float64         { return v.V.RawVector().Data }

// Segment returns a view onto n entries starting at offset - storage is
// shared with the receiver.
func (v Vector) Segment(offset, n int) Vector {
	return Vector{v.V.SliceVec(offset, offset+n).(*mat.VecDense)}
}

func (v Vector) Copy() (r Vector) {
	r = NewVector(v.Len())
	copy(r.DataP(), v.DataP())
	return
}

// Chainable (extended) methods
func (v Vector) Zero() Vector {
	var (
		data = v.DataP()
	)
	for i := range data {
		data[i] = 0
	}
	return v
}

func (v Vector) Set(val float64) Vector {
	var (
		data = v.DataP()
	)
	for i := range data {
		data[i] = val
	}
	return v
}

func (v Vector) SetVec(i int, val float64) Vector {
	v.V.SetVec(i, val)
	return v
}

func (v Vector) CopyFrom(a Vector) Vector {
	v.checkLen(a)
	copy(v.DataP(), a.DataP())
	return v
}

func (v Vector) Add(a Vector) Vector {
	v.checkLen(a)
	var (
		data  = v.DataP()
		dataA = a.DataP()
	)
	for i := range data {
		data[i] += dataA[i]
	}
	return v
}

func (v Vector) Sub(a Vector) Vector {
	v.checkLen(a)
	var (
		data  = v.DataP()
		dataA = a.DataP()
	)
	for i := range data {
		data[i] -= dataA[i]
	}
	return v
}

func (v Vector) Scale(a float64) Vector {
	var (
		data = v.DataP()
	)
	for i := range data {
		data[i] *= a
	}
	return v
}

func (v Vector) Neg() Vector { return v.Scale(-1) }

// AddScaled accumulates v += a*x
func (v Vector) AddScaled(a float64, x Vector) Vector {
	v.checkLen(x)
	var (
		data  = v.DataP()
		dataX = x.DataP()
	)
	for i := range data {
		data[i] += a * dataX[i]
	}
	return v
}

func (v Vector) SetSubVector(I Index, val float64) Vector {
	var (
		data = v.DataP()
	)
	for _, i := range I {
		data[i] = val
	}
	return v
}

func (v Vector) Dot(a Vector) (d float64) {
	v.checkLen(a)
	return mat.Dot(v.V, a.V)
}

func (v Vector) Norm() float64 {
	return v.V.Norm(2)
}

func (v Vector) NormInf() (m float64) {
	for _, val := range v.DataP() {
		if math.Abs(val) > m {
			m = math.Abs(val)
		}
	}
	return
}

func (v Vector) Min() (min float64) {
	var (
		data = v.DataP()
	)
	min = data[0]
	for _, val := range data {
		if val < min {
			min = val
		}
	}
	return
}

func (v Vector) Max() (max float64) {
	var (
		data = v.DataP()
	)
	max = data[0]
	for _, val := range data {
		if val > max {
			max = val
		}
	}
	return
}

func (v Vector) checkLen(a Vector) {
	if v.Len() != a.Len() {
		err := fmt.Errorf("vector length mismatch: %v vs %v\n", v.Len(), a.Len())
		panic(err)
	}
}
