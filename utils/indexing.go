package utils

type Index []int

// Mask returns a length-n membership table for the index set
func (I Index) Mask(n int) (m []bool) {
	m = make([]bool, n)
	for _, ival := range I {
		m[ival] = true
	}
	return
}
