package model

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/gekko3d/gekkoanim/anim/core"
	"github.com/gekko3d/gekkoanim/anim/scene"
	"github.com/go-gl/mathgl/mgl32"
)

type DrawableKind uint8

const (
	KindStatic DrawableKind = iota
	KindAnimated
)

func (k DrawableKind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindAnimated:
		return "animated"
	}
	return fmt.Sprintf("DrawableKind(%d)", uint8(k))
}

// FrameInfo describes the frame being prepared.
type FrameInfo struct {
	FrameNumber uint64
	// TimeStep is the frame duration in seconds.
	TimeStep     float32
	ViewPosition mgl32.Vec3
	// LodBias scales every LOD distance. Zero means 1.
	LodBias float32
}

// Drawable is something the renderer can prepare each frame.
//
// Update runs on the main goroutine. UpdateBatches and UpdateGeometry run
// only for drawables in view; UpdateGeometry may run on a worker goroutine.
type Drawable interface {
	Kind() DrawableKind
	Node() scene.NodeID
	Update(frame FrameInfo)
	UpdateBatches(frame FrameInfo)
	UpdateGeometry(frame FrameInfo)
	WorldBoundingBox() core.BoundingBox
}

var (
	_ Drawable = (*StaticModel)(nil)
	_ Drawable = (*AnimatedModel)(nil)
)

// dotScale averages the three box dimensions.
var dotScale = mgl32.Vec3{1.0 / 3, 1.0 / 3, 1.0 / 3}

// drawable holds the view tracking shared by every drawable kind.
type drawable struct {
	graph     *scene.Graph
	node      scene.NodeID
	lodBias   float32
	viewFrame uint64
	viewed    bool
	distance  float32
}

func (d *drawable) Node() scene.NodeID { return d.node }

// MarkInView records that the drawable was visible in frame.
func (d *drawable) MarkInView(frame uint64) {
	d.viewFrame = frame
	d.viewed = true
}

// inViewRecently reports whether the drawable was in view this frame or
// the previous one.
func (d *drawable) inViewRecently(frame uint64) bool {
	if !d.viewed {
		return false
	}
	if frame >= d.viewFrame {
		return frame-d.viewFrame <= 1
	}
	return d.viewFrame-frame <= 1
}

// Distance returns the view distance computed by the last UpdateBatches.
func (d *drawable) Distance() float32 { return d.distance }

func (d *drawable) SetLodBias(bias float32) { d.lodBias = math32.Max(bias, 0) }
func (d *drawable) LodBias() float32        { return d.lodBias }

// lodDistance scales a view distance by the object size and both biases.
func (d *drawable) lodDistance(frame FrameInfo, distance, scale float32) float32 {
	camBias := frame.LodBias
	if camBias == 0 {
		camBias = 1
	}
	div := math32.Max(camBias*d.lodBias*scale, 1e-6)
	return distance / div
}

// StaticModel draws a model without a skeleton.
type StaticModel struct {
	drawable
	model *Model
}

func NewStaticModel(g *scene.Graph, node scene.NodeID, m *Model) *StaticModel {
	return &StaticModel{
		drawable: drawable{graph: g, node: node, lodBias: 1},
		model:    m,
	}
}

func (s *StaticModel) Kind() DrawableKind { return KindStatic }
func (s *StaticModel) Model() *Model      { return s.model }
func (s *StaticModel) SetModel(m *Model)  { s.model = m }

func (s *StaticModel) Update(FrameInfo)         {}
func (s *StaticModel) UpdateGeometry(FrameInfo) {}

func (s *StaticModel) UpdateBatches(frame FrameInfo) {
	s.MarkInView(frame.FrameNumber)
	s.distance = frame.ViewPosition.Sub(s.WorldBoundingBox().Center()).Len()
}

func (s *StaticModel) WorldBoundingBox() core.BoundingBox {
	if s.model == nil {
		return core.BoundingBox{}
	}
	return s.model.BoundingBox.Transformed(s.graph.World(s.node))
}
