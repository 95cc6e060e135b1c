package pool

import "sync"

// float32SlicePool reuses float32 sample rows across calls to
// GetFloat32Slice. (rawbin.Reader currently allocates its per-channel
// rows directly and does not draw from this pool.)
var float32SlicePool = sync.Pool{
	New: func() any { return &[]float32{} },
}

// GetFloat32Slice retrieves a float32 slice of exact length size from the
// pool, allocating a new one if the pooled slice's capacity is too small.
// A reused slice is zeroed, so previous contents never leak. The caller
// must invoke the returned cleanup function (typically via defer) once
// done with the slice.
func GetFloat32Slice(size int) ([]float32, func()) {
	ptr, _ := float32SlicePool.Get().(*[]float32)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]float32, size)
	} else {
		slice = slice[:size]
		clear(slice)
	}
	*ptr = slice

	return slice, func() { float32SlicePool.Put(ptr) }
}
