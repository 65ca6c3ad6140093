package main

import (
	"fmt"

	"github.com/gekko3d/gekkoanim/anim/animation"
	"github.com/gekko3d/gekkoanim/anim/core"
	"github.com/gekko3d/gekkoanim/anim/model"
	"github.com/gekko3d/gekkoanim/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	axisX = mgl32.Vec3{1, 0, 0}
	axisZ = mgl32.Vec3{0, 0, 1}
)

func boneName(i int) string { return fmt.Sprintf("tail%d", i) }

// tailModel is a chain of n unit bones along +Y. Every bone has a box for
// culling and picking, and a pair of side vertices that "puff" pushes
// outward.
func tailModel(n int) *model.Model {
	box := core.NewBoundingBox(mgl32.Vec3{-0.25, 0, -0.25}, mgl32.Vec3{0.25, 1, 0.25})
	geom := model.Geometry{Name: "tail"}
	puff := model.MorphTarget{Geometry: 0}
	for i := 0; i < n; i++ {
		y := float32(i) + 0.5
		for _, side := range []float32{-1, 1} {
			puff.Deltas = append(puff.Deltas, model.MorphDelta{
				Index:    len(geom.Vertices),
				Position: axisX.Mul(side * 0.25),
			})
			geom.Vertices = append(geom.Vertices, model.Vertex{
				Position: mgl32.Vec3{side * 0.25, y, 0},
				Normal:   axisX.Mul(side),
			})
		}
	}
	md := &model.Model{
		Name:        "tail",
		BoundingBox: core.NewBoundingBox(mgl32.Vec3{-0.25, 0, -0.25}, mgl32.Vec3{0.25, float32(n), 0.25}),
		Geometries:  []model.Geometry{geom},
		Morphs:      []model.Morph{{Name: "puff", Targets: []model.MorphTarget{puff}}},
	}
	for i := 0; i < n; i++ {
		b := skeleton.Bone{
			Name:          boneName(i),
			ParentIndex:   i - 1,
			OffsetMatrix:  mgl32.Translate3D(0, -float32(i), 0),
			Radius:        0.5,
			BoundingBox:   box,
			CollisionMask: skeleton.CollisionBox | skeleton.CollisionSphere,
		}
		if i > 0 {
			b.InitialPosition = mgl32.Vec3{0, 1, 0}
		}
		md.Bones = append(md.Bones, b)
	}
	return md
}

// spikesModel rides on the tail skeleton. Its larger volumes widen the
// bounds of the tail bones it shares names with.
func spikesModel(n int) *model.Model {
	md := &model.Model{
		Name:        "spikes",
		BoundingBox: core.NewBoundingBox(mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{1, float32(n), 1}),
	}
	for i := 0; i < n; i++ {
		md.Bones = append(md.Bones, skeleton.Bone{
			Name:          boneName(i),
			ParentIndex:   i - 1,
			OffsetMatrix:  mgl32.Translate3D(0, -float32(i), 0),
			Radius:        1,
			BoundingBox:   core.NewBoundingBox(mgl32.Vec3{-1, 0, -1}, mgl32.Vec3{1, 1, 1}),
			CollisionMask: skeleton.CollisionBox,
		})
	}
	return md
}

// wagAnimation swings every bone of the tail left and right about Z.
func wagAnimation(n int) (*animation.Animation, error) {
	left := mgl32.QuatRotate(mgl32.DegToRad(20), axisZ)
	right := mgl32.QuatRotate(mgl32.DegToRad(-20), axisZ)
	tracks := make([]animation.Track, 0, n)
	for i := 0; i < n; i++ {
		tracks = append(tracks, animation.Track{
			Name:     boneName(i),
			Channels: animation.ChannelRotation,
			KeyFrames: []animation.KeyFrame{
				{Time: 0, Rotation: left},
				{Time: 0.5, Rotation: right},
				{Time: 1, Rotation: left},
			},
		})
	}
	return animation.New("wag", 1, tracks, []animation.Trigger{
		{Time: 0, Data: "left"},
		{Time: 0.5, Data: "right"},
	})
}

// curlAnimation bends the tail forward about X. It is meant to be layered
// additively over wag from the middle bone down.
func curlAnimation(n int) (*animation.Animation, error) {
	bend := mgl32.QuatRotate(mgl32.DegToRad(30), axisX)
	tracks := make([]animation.Track, 0, n)
	for i := 0; i < n; i++ {
		tracks = append(tracks, animation.Track{
			Name:     boneName(i),
			Channels: animation.ChannelRotation,
			KeyFrames: []animation.KeyFrame{
				{Time: 0, Rotation: mgl32.QuatIdent()},
				{Time: 1.5, Rotation: bend},
			},
		})
	}
	return animation.New("curl", 1.5, tracks, []animation.Trigger{
		{Time: 1.5, Data: "curled"},
	})
}
