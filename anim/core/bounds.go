package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// BoundingBox is an axis aligned box. The zero value is undefined (empty).
type BoundingBox struct {
	Min     mgl32.Vec3
	Max     mgl32.Vec3
	Defined bool
}

func NewBoundingBox(min, max mgl32.Vec3) BoundingBox {
	return BoundingBox{Min: min, Max: max, Defined: true}
}

func (b *BoundingBox) Clear() {
	*b = BoundingBox{}
}

func (b *BoundingBox) MergePoint(p mgl32.Vec3) {
	if !b.Defined {
		b.Min, b.Max, b.Defined = p, p, true
		return
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
}

func (b *BoundingBox) Merge(o BoundingBox) {
	if !o.Defined {
		return
	}
	b.MergePoint(o.Min)
	b.MergePoint(o.Max)
}

func (b *BoundingBox) MergeSphere(s Sphere) {
	r := mgl32.Vec3{s.Radius, s.Radius, s.Radius}
	b.MergePoint(s.Center.Sub(r))
	b.MergePoint(s.Center.Add(r))
}

func (b BoundingBox) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b BoundingBox) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b BoundingBox) Contains(p mgl32.Vec3) bool {
	if !b.Defined {
		return false
	}
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Transformed returns the box enclosing the 8 transformed corners.
func (b BoundingBox) Transformed(m mgl32.Mat4) BoundingBox {
	if !b.Defined {
		return b
	}
	corners := [8]mgl32.Vec3{
		{b.Min.X(), b.Min.Y(), b.Min.Z()},
		{b.Max.X(), b.Min.Y(), b.Min.Z()},
		{b.Min.X(), b.Max.Y(), b.Min.Z()},
		{b.Max.X(), b.Max.Y(), b.Min.Z()},
		{b.Min.X(), b.Min.Y(), b.Max.Z()},
		{b.Max.X(), b.Min.Y(), b.Max.Z()},
		{b.Min.X(), b.Max.Y(), b.Max.Z()},
		{b.Max.X(), b.Max.Y(), b.Max.Z()},
	}
	var out BoundingBox
	for _, c := range corners {
		out.MergePoint(m.Mul4x1(c.Vec4(1.0)).Vec3())
	}
	return out
}

type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// Ray is a half line. Direction is expected to be normalized.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// Transformed maps the ray through m. The direction is renormalized.
func (r Ray) Transformed(m mgl32.Mat4) Ray {
	o := m.Mul4x1(r.Origin.Vec4(1)).Vec3()
	d := m.Mul4x1(r.Direction.Vec4(0)).Vec3()
	if l := d.Len(); l > 0 {
		d = d.Mul(1 / l)
	}
	return Ray{Origin: o, Direction: d}
}

// HitBox returns the distance along the ray to the box (slab test).
func (r Ray) HitBox(b BoundingBox) (float32, bool) {
	if !b.Defined {
		return 0, false
	}
	if b.Contains(r.Origin) {
		return 0, true
	}
	tMin := float32(0)
	tMax := math32.Inf(1)
	for i := 0; i < 3; i++ {
		if math32.Abs(r.Direction[i]) < 1e-8 {
			if r.Origin[i] < b.Min[i] || r.Origin[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / r.Direction[i]
		t1 := (b.Min[i] - r.Origin[i]) * inv
		t2 := (b.Max[i] - r.Origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tMin = math32.Max(tMin, t1)
		tMax = math32.Min(tMax, t2)
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

// HitSphere returns the distance along the ray to the sphere surface.
func (r Ray) HitSphere(s Sphere) (float32, bool) {
	oc := r.Origin.Sub(s.Center)
	b := oc.Dot(r.Direction)
	c := oc.Dot(oc) - s.Radius*s.Radius
	if c <= 0 {
		return 0, true
	}
	disc := b*b - c
	if disc < 0 || b > 0 {
		return 0, false
	}
	return -b - math32.Sqrt(disc), true
}
