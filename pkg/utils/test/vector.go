package testutils

// UnitVector returns a dims-long vector with 1 at index i.
func UnitVector(dims, i int) []float32 {
	v := make([]float32, dims)
	if i >= 0 && i < dims {
		v[i] = 1
	}
	return v
}
