// Package core holds the math shared by the animation packages.
package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a decomposed local transform.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform() Transform {
	return Transform{
		Position: mgl32.Vec3{0, 0, 0},
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix returns T * R * S.
func (t Transform) Matrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
	rotate := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())

	return translate.Mul4(rotate).Mul4(scale)
}

// Inverse returns inv(S) * inv(R) * inv(T).
func (t Transform) Inverse() mgl32.Mat4 {
	invScale := mgl32.Scale3D(1.0/t.Scale.X(), 1.0/t.Scale.Y(), 1.0/t.Scale.Z())
	// Conjugate is the inverse of a unit quaternion.
	invRotate := t.Rotation.Conjugate().Mat4()
	invTranslate := mgl32.Translate3D(-t.Position.X(), -t.Position.Y(), -t.Position.Z())

	return invScale.Mul4(invRotate).Mul4(invTranslate)
}

// Decompose splits an affine matrix without shear into a Transform.
func Decompose(m mgl32.Mat4) Transform {
	sx, sy, sz := mgl32.Extract3DScale(m)
	rot := mgl32.Mat4{
		m[0] / sx, m[1] / sx, m[2] / sx, 0,
		m[4] / sy, m[5] / sy, m[6] / sy, 0,
		m[8] / sz, m[9] / sz, m[10] / sz, 0,
		0, 0, 0, 1,
	}
	return Transform{
		Position: mgl32.Vec3{m[12], m[13], m[14]},
		Rotation: mgl32.Mat4ToQuat(rot).Normalize(),
		Scale:    mgl32.Vec3{sx, sy, sz},
	}
}

// Lerp blends t toward o by amount. Rotation takes the shortest arc.
func (t Transform) Lerp(o Transform, amount float32) Transform {
	return Transform{
		Position: LerpVec3(t.Position, o.Position, amount),
		Rotation: Slerp(t.Rotation, o.Rotation, amount),
		Scale:    LerpVec3(t.Scale, o.Scale, amount),
	}
}

func LerpVec3(a, b mgl32.Vec3, amount float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(amount))
}

// Slerp interpolates along the shortest arc between a and b.
func Slerp(a, b mgl32.Quat, amount float32) mgl32.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl32.QuatSlerp(a, b, amount).Normalize()
}
