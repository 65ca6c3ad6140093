package model

import (
	"sort"

	"github.com/gekko3d/gekkoanim/anim/core"
	"github.com/gekko3d/gekkoanim/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// UpdateBoneBoundingBox recomputes the bounds of the posed bones in model
// node space. Bones with a box use it, bones with only a sphere use half
// the bone radius.
func (m *AnimatedModel) UpdateBoneBoundingBox() {
	if m.skeleton.NumBones() > 0 {
		m.boneBoundingBox.Clear()
		inv := m.graph.World(m.node).Inv()
		bones := m.skeleton.Bones()
		for i := range bones {
			b := &bones[i]
			if !m.graph.Valid(b.Node) {
				continue
			}
			bw := m.graph.World(b.Node)
			switch {
			case b.CollisionMask&skeleton.CollisionBox != 0:
				m.boneBoundingBox.Merge(b.BoundingBox.Transformed(inv.Mul4(bw)))
			case b.CollisionMask&skeleton.CollisionSphere != 0:
				center := inv.Mul4x1(bw.Col(3)).Vec3()
				m.boneBoundingBox.MergeSphere(core.Sphere{Center: center, Radius: b.Radius * 0.5})
			}
		}
	}
	m.dirty.clear(ConcernBoneBoundingBox)
}

// BoneBoundingBox returns the bone bounds in model node space.
func (m *AnimatedModel) BoneBoundingBox() core.BoundingBox { return m.boneBoundingBox }

// WorldBoundingBox returns the world bounds of the posed bones. Non-master
// models report the bounds of their master.
func (m *AnimatedModel) WorldBoundingBox() core.BoundingBox {
	if !m.master {
		if master := m.registry.Master(m.node); master != nil && master != m {
			return master.WorldBoundingBox()
		}
	}
	return m.boneBoundingBox.Transformed(m.graph.World(m.node))
}

// RayHit is a bone hit by Raycast.
type RayHit struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Distance float32
	Bone     int
}

// Raycast tests ray against the bone collision volumes and returns the hits
// closer than maxDistance, nearest first. Boxes are tested as oriented
// boxes in bone space.
func (m *AnimatedModel) Raycast(ray core.Ray, maxDistance float32) []RayHit {
	var hits []RayHit
	bones := m.skeleton.Bones()
	for i := range bones {
		b := &bones[i]
		if !m.graph.Valid(b.Node) {
			continue
		}
		bw := m.graph.World(b.Node)

		var dist float32
		switch {
		case b.CollisionMask&skeleton.CollisionBox != 0:
			// Crude world aligned test first.
			d, ok := ray.HitBox(b.BoundingBox.Transformed(bw))
			if !ok || d >= maxDistance {
				continue
			}
			local := ray.Transformed(bw.Inv())
			ld, ok := local.HitBox(b.BoundingBox)
			if !ok {
				continue
			}
			p := local.Origin.Add(local.Direction.Mul(ld))
			dist = bw.Mul4x1(p.Vec4(1)).Vec3().Sub(ray.Origin).Len()
		case b.CollisionMask&skeleton.CollisionSphere != 0:
			d, ok := ray.HitSphere(core.Sphere{Center: bw.Col(3).Vec3(), Radius: b.Radius})
			if !ok {
				continue
			}
			dist = d
		default:
			continue
		}
		if dist >= maxDistance {
			continue
		}
		hits = append(hits, RayHit{
			Position: ray.Origin.Add(ray.Direction.Mul(dist)),
			Normal:   ray.Direction.Mul(-1),
			Distance: dist,
			Bone:     i,
		})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}
