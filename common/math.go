package common

import "github.com/chewxy/math32"

func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NextPow2 rounds v up to the next power of two. Zero stays zero.
func NextPow2(v uint32) uint32 {
	if v == 0 {
		return 0
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

// Ilog2 is the floor of log2(v).
func Ilog2(v uint32) uint32 {
	var r uint32
	for v > 1 {
		v >>= 1
		r++
	}
	return r
}

func Deg2Rad(deg float32) float32 {
	return deg * math32.Pi / 180
}

func Rad2Deg(rad float32) float32 {
	return rad * 180 / math32.Pi
}
