package utils

// Prod returns the product of the given dimensions.
// The product of no dimensions is 1, matching the size of a rank-0 block.
func Prod(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}

// Strides returns the strides (in elements) of a dense row-major block with
// the given dimensions: the last axis has stride 1.
func Strides(dims []int) []int {
	strides := make([]int, len(dims))
	stride := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= dims[i]
	}
	return strides
}
