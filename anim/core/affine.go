package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Affine is a row-major 3x4 matrix: the upper three rows of an affine Mat4.
// This is the layout skinning shaders consume.
type Affine [12]float32

// AffineFromMat4 drops the constant bottom row of m.
func AffineFromMat4(m mgl32.Mat4) (a Affine) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			a[r*4+c] = m.At(r, c)
		}
	}
	return
}

func (a Affine) Mat4() mgl32.Mat4 {
	var m mgl32.Mat4
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			m.Set(r, c, a[r*4+c])
		}
	}
	m.Set(3, 3, 1)
	return m
}

// PackAffine writes ms into dst as contiguous 3x4 matrices, reusing dst's storage.
func PackAffine(dst []Affine, ms []mgl32.Mat4) []Affine {
	dst = dst[:0]
	for i := range ms {
		dst = append(dst, AffineFromMat4(ms[i]))
	}
	return dst
}
