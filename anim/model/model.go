// Package model implements skinned and static drawables: the animated
// model that blends animation states into a skeleton and produces skin
// matrices for the renderer.
package model

import (
	"errors"
	"fmt"

	"github.com/gekko3d/gekkoanim/anim/core"
	"github.com/gekko3d/gekkoanim/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

const prefix = "model: "

func newErr(reason string) error { return errors.New(prefix + reason) }

var (
	ErrNoBoneMapping    = newErr("Geometry needs a bone mapping")
	ErrTooManyBones     = newErr("Geometry bone mapping exceeds the skinning limit")
	ErrBoneMappingRange = newErr("Geometry bone mapping index out of range")
	ErrMultipleMasters  = newErr("more than one master model on a node")
	ErrNoMaster         = newErr("node has models but no master")
	ErrMorphGeometry    = newErr("Morph target geometry out of range")
	ErrMorphVertex      = newErr("Morph delta vertex out of range")
)

// DefaultMaxSkinBones is the number of skin matrices a skinning shader can
// take at once.
const DefaultMaxSkinBones = 64

// Geometry is one draw unit of a model. BoneMapping maps geometry skin
// indices to skeleton bone indices. It is required only when the skeleton
// has more bones than the skinning limit.
type Geometry struct {
	Name        string
	BoneMapping []int
	BoundingBox core.BoundingBox
	// Vertices is the bind pose vertex data. Only morphed geometries need it.
	Vertices []Vertex
}

// Vertex holds the morphable attributes of one geometry vertex.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// MorphDelta moves vertex Index at full morph weight.
type MorphDelta struct {
	Index    int
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// MorphTarget holds the deltas a morph applies to one geometry.
type MorphTarget struct {
	Geometry int
	Deltas   []MorphDelta
}

type Morph struct {
	Name    string
	Targets []MorphTarget
}

// Model is a shared, read only model resource.
type Model struct {
	Name        string
	Bones       []skeleton.Bone
	Geometries  []Geometry
	Morphs      []Morph
	BoundingBox core.BoundingBox
}

// Skeleton builds a new skeleton from the model bones.
func (m *Model) Skeleton() (*skeleton.Skeleton, error) {
	sk, err := skeleton.New(m.Bones)
	if err != nil {
		return nil, fmt.Errorf(prefix+"model %q: %w", m.Name, err)
	}
	return sk, nil
}

// MorphIndex returns the index of the morph called name, or -1.
func (m *Model) MorphIndex(name string) int {
	for i := range m.Morphs {
		if m.Morphs[i].Name == name {
			return i
		}
	}
	return -1
}

// geometryBoneMappings validates the per geometry mappings against sk.
// It returns nil when every bone fits in a single skin matrix block.
func geometryBoneMappings(m *Model, sk *skeleton.Skeleton, maxBones int) ([][]int, error) {
	if sk.NumBones() <= maxBones {
		return nil, nil
	}
	mappings := make([][]int, len(m.Geometries))
	for i := range m.Geometries {
		g := &m.Geometries[i]
		switch {
		case len(g.BoneMapping) == 0:
			return nil, fmt.Errorf("%w: %q has %d bones, limit %d", ErrNoBoneMapping, g.Name, sk.NumBones(), maxBones)
		case len(g.BoneMapping) > maxBones:
			return nil, fmt.Errorf("%w: %q maps %d bones, limit %d", ErrTooManyBones, g.Name, len(g.BoneMapping), maxBones)
		}
		for _, b := range g.BoneMapping {
			if b < 0 || b >= sk.NumBones() {
				return nil, fmt.Errorf("%w: %q bone %d", ErrBoneMappingRange, g.Name, b)
			}
		}
		mappings[i] = append([]int(nil), g.BoneMapping...)
	}
	return mappings, nil
}

// vertexRange is the span of a geometry's vertices moved by any morph.
type vertexRange struct {
	start, end int
}

func (r vertexRange) empty() bool { return r.start >= r.end }

// morphRanges validates the morph targets of m and returns the morph range
// of every geometry. It returns nil when m has no morphs.
func morphRanges(m *Model) ([]vertexRange, error) {
	if len(m.Morphs) == 0 {
		return nil, nil
	}
	ranges := make([]vertexRange, len(m.Geometries))
	for _, mo := range m.Morphs {
		for _, t := range mo.Targets {
			if t.Geometry < 0 || t.Geometry >= len(m.Geometries) {
				return nil, fmt.Errorf("%w: %q geometry %d", ErrMorphGeometry, mo.Name, t.Geometry)
			}
			n := len(m.Geometries[t.Geometry].Vertices)
			r := &ranges[t.Geometry]
			for _, d := range t.Deltas {
				if d.Index < 0 || d.Index >= n {
					return nil, fmt.Errorf("%w: %q vertex %d of %d", ErrMorphVertex, mo.Name, d.Index, n)
				}
				if r.empty() {
					*r = vertexRange{d.Index, d.Index + 1}
				} else {
					r.start = min(r.start, d.Index)
					r.end = max(r.end, d.Index+1)
				}
			}
		}
	}
	return ranges, nil
}
