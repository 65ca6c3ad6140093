package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func assertVec3Near(t *testing.T, want, got mgl32.Vec3, msgAndArgs ...any) bool {
	t.Helper()
	return assert.InDeltaSlice(t, want[:], got[:], 1e-4, msgAndArgs...)
}

func assertMat4Near(t *testing.T, want, got mgl32.Mat4, msgAndArgs ...any) bool {
	t.Helper()
	return assert.InDeltaSlice(t, want[:], got[:], 1e-4, msgAndArgs...)
}

// assertQuatNear treats q and -q as the same rotation.
func assertQuatNear(t *testing.T, want, got mgl32.Quat, msgAndArgs ...any) bool {
	t.Helper()
	d := want.Dot(got)
	if d < 0 {
		d = -d
	}
	return assert.InDelta(t, 1, d, 1e-5, msgAndArgs...)
}

func TestTransformComposition(t *testing.T) {
	tr := NewTransform()
	tr.Position = mgl32.Vec3{10, 20, 30}
	tr.Rotation = mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 1, 0})
	tr.Scale = mgl32.Vec3{2, 2, 2}

	identity := tr.Matrix().Mul4(tr.Inverse())
	assertMat4Near(t, mgl32.Ident4(), identity, "Matrix * Inverse should be identity")
}

func TestDecompose(t *testing.T) {
	tr := Transform{
		Position: mgl32.Vec3{1, -2, 3},
		Rotation: mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}),
		Scale:    mgl32.Vec3{1, 2, 3},
	}
	back := Decompose(tr.Matrix())

	assertVec3Near(t, tr.Position, back.Position, "position")
	assertVec3Near(t, tr.Scale, back.Scale, "scale")
	assertQuatNear(t, tr.Rotation, back.Rotation, "rotation")
}

func TestSlerpShortestArc(t *testing.T) {
	a := mgl32.QuatIdent()
	b := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}).Scale(-1)

	mid := Slerp(a, b, 0.5)
	want := mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0})
	assertQuatNear(t, want, mid)
}

func TestBoundingBoxMerge(t *testing.T) {
	var b BoundingBox
	assert.False(t, b.Defined)

	b.MergePoint(mgl32.Vec3{1, 1, 1})
	b.MergeSphere(Sphere{Center: mgl32.Vec3{0, 0, 0}, Radius: 2})
	b.Merge(BoundingBox{})

	assert.Equal(t, mgl32.Vec3{-2, -2, -2}, b.Min)
	assert.Equal(t, mgl32.Vec3{2, 2, 2}, b.Max)
	assert.True(t, b.Contains(mgl32.Vec3{1.5, 0, -1.5}))
	assert.False(t, b.Contains(mgl32.Vec3{3, 0, 0}))
}

func TestBoundingBoxTransformed(t *testing.T) {
	b := NewBoundingBox(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	m := mgl32.Translate3D(10, 0, 0).Mul4(mgl32.Scale3D(2, 2, 2))

	out := b.Transformed(m)
	assertVec3Near(t, mgl32.Vec3{8, -2, -2}, out.Min)
	assertVec3Near(t, mgl32.Vec3{12, 2, 2}, out.Max)
}

func TestRayHits(t *testing.T) {
	r := Ray{Origin: mgl32.Vec3{-10, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}

	d, ok := r.HitBox(NewBoundingBox(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}))
	assert.True(t, ok)
	assert.InDelta(t, 9, d, 1e-5)

	d, ok = r.HitSphere(Sphere{Radius: 2})
	assert.True(t, ok)
	assert.InDelta(t, 8, d, 1e-5)

	_, ok = r.HitBox(NewBoundingBox(mgl32.Vec3{-1, 5, -1}, mgl32.Vec3{1, 6, 1}))
	assert.False(t, ok)

	back := Ray{Origin: mgl32.Vec3{10, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	_, ok = back.HitSphere(Sphere{Radius: 2})
	assert.False(t, ok)
}

func TestBitSet(t *testing.T) {
	b := NewBitSet(130)
	for _, i := range []int{0, 5, 64, 129, 130, -1} {
		b.Set(i)
	}
	assert.Equal(t, 4, b.Count())
	assert.True(t, b.IsSet(64))
	assert.False(t, b.IsSet(130))

	b.Unset(5)
	var seen []int
	b.ForEach(func(i int) { seen = append(seen, i) })
	assert.Equal(t, []int{0, 64, 129}, seen)
}

func TestAffineRoundTrip(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.HomogRotate3DY(0.5))
	a := AffineFromMat4(m)

	assert.Equal(t, float32(1), a[3])
	assert.Equal(t, float32(2), a[7])
	assert.Equal(t, float32(3), a[11])
	assertMat4Near(t, m, a.Mat4())
	assert.Len(t, PackAffine(nil, []mgl32.Mat4{m, mgl32.Ident4()}), 2)
}
