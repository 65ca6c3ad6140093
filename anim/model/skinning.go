package model

import (
	"github.com/gekko3d/gekkoanim/anim/core"
	"github.com/go-gl/mathgl/mgl32"
)

func (m *AnimatedModel) allocSkinBuffers() {
	n := m.skeleton.NumBones()
	m.boneRevisions = make([]uint64, n)
	m.skinMatrices = make([]mgl32.Mat4, n)
	for i := range m.skinMatrices {
		m.skinMatrices[i] = mgl32.Ident4()
	}
	m.skinAffine = core.PackAffine(make([]core.Affine, 0, n), m.skinMatrices)

	m.geometrySkin = nil
	m.geometryAffine = nil
	if m.geometryMappings == nil {
		return
	}
	m.geometrySkin = make([][]mgl32.Mat4, len(m.geometryMappings))
	m.geometryAffine = make([][]core.Affine, len(m.geometryMappings))
	for i, mapping := range m.geometryMappings {
		ms := make([]mgl32.Mat4, len(mapping))
		for j := range ms {
			ms[j] = mgl32.Ident4()
		}
		m.geometrySkin[i] = ms
		m.geometryAffine[i] = core.PackAffine(make([]core.Affine, 0, len(ms)), ms)
	}
}

// UpdateSkinning recomputes skin matrices as bone world transform times
// offset matrix. A bone without a live node uses the model node transform.
func (m *AnimatedModel) UpdateSkinning() {
	world := m.graph.World(m.node)
	bones := m.skeleton.Bones()
	skin := func(i int) mgl32.Mat4 {
		b := &bones[i]
		if !m.graph.Valid(b.Node) {
			return world
		}
		return m.graph.World(b.Node).Mul4(b.OffsetMatrix)
	}

	if m.geometryMappings == nil {
		for i := range bones {
			m.skinMatrices[i] = skin(i)
		}
		m.skinAffine = core.PackAffine(m.skinAffine, m.skinMatrices)
	} else {
		for g, mapping := range m.geometryMappings {
			for j, b := range mapping {
				m.geometrySkin[g][j] = skin(b)
			}
			m.geometryAffine[g] = core.PackAffine(m.geometryAffine[g], m.geometrySkin[g])
		}
	}
	m.dirty.clear(ConcernSkinning)
}

// SkinningReady reports whether the skin matrices match the current pose.
func (m *AnimatedModel) SkinningReady() bool {
	return m.model != nil && !m.dirty.is(ConcernSkinning)
}

func (m *AnimatedModel) NumGeometries() int {
	if m.model == nil {
		return 0
	}
	return len(m.model.Geometries)
}

// SkinMatrices returns the skin matrices geometry g is drawn with: its
// remapped block when the skeleton exceeds the skinning limit, otherwise
// the global matrices indexed by bone.
func (m *AnimatedModel) SkinMatrices(g int) []mgl32.Mat4 {
	if m.geometryMappings == nil {
		return m.skinMatrices
	}
	if g < 0 || g >= len(m.geometrySkin) {
		return nil
	}
	return m.geometrySkin[g]
}

// SkinMatricesAffine is SkinMatrices packed as contiguous 3x4 rows.
func (m *AnimatedModel) SkinMatricesAffine(g int) []core.Affine {
	if m.geometryMappings == nil {
		return m.skinAffine
	}
	if g < 0 || g >= len(m.geometryAffine) {
		return nil
	}
	return m.geometryAffine[g]
}

// GeometryBoneMapping returns the bone indices of geometry g's skin matrix
// block, or nil when global skinning is used.
func (m *AnimatedModel) GeometryBoneMapping(g int) []int {
	if g < 0 || g >= len(m.geometryMappings) {
		return nil
	}
	return m.geometryMappings[g]
}
