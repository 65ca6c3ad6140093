package model

import (
	"testing"

	"github.com/gekko3d/gekkoanim/anim/animation"
	"github.com/gekko3d/gekkoanim/anim/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var zAxis = mgl32.Vec3{0, 0, 1}

// testAnimation rotates bone about Z: identity at 0, a quarter turn at 0.5
// and back to identity at 1.
func testAnimation(t *testing.T, name, bone string) *animation.Animation {
	t.Helper()
	quarter := mgl32.QuatRotate(mgl32.DegToRad(90), zAxis)
	a, err := animation.New(name, 1, []animation.Track{{
		Name:     bone,
		Channels: animation.ChannelRotation,
		KeyFrames: []animation.KeyFrame{
			{Time: 0, Rotation: mgl32.QuatIdent()},
			{Time: 0.5, Rotation: quarter},
			{Time: 1, Rotation: mgl32.QuatIdent()},
		},
	}}, nil)
	require.NoError(t, err)
	return a
}

func positionAnimation(t *testing.T, name, bone string, x float32) *animation.Animation {
	t.Helper()
	a, err := animation.New(name, 1, []animation.Track{{
		Name:          bone,
		Channels:      animation.ChannelPosition,
		Interpolation: animation.Step,
		KeyFrames:     []animation.KeyFrame{{Position: mgl32.Vec3{x, 1, 0}}},
	}}, nil)
	require.NoError(t, err)
	return a
}

func TestThreeBoneRotation(t *testing.T) {
	g, _, m := newRig(t, chainModel("chain", 3, 0.5))
	s := m.AddAnimationState(testAnimation(t, "spin", "b0"))
	require.NotNil(t, s)
	s.SetWeight(1)
	s.SetTime(0.5)

	frame := FrameInfo{FrameNumber: 1, TimeStep: 1.0 / 60}
	m.UpdateBatches(frame)
	m.Update(frame)
	g.Update()
	m.UpdateGeometry(frame)
	require.True(t, m.SkinningReady())

	// The tip bone at (0, 2, 0) swings a quarter turn about Z.
	tip := g.WorldPosition(m.Skeleton().Bone(2).Node)
	assertVec3Near(t, mgl32.Vec3{-2, 0, 0}, tip)

	// A vertex bound to the tip in the bind pose follows it.
	v := m.SkinMatrices(0)[2].Mul4x1(mgl32.Vec4{0, 2, 0, 1}).Vec3()
	assertVec3Near(t, mgl32.Vec3{-2, 0, 0}, v)

	// The bounds follow the pose.
	bb := m.WorldBoundingBox()
	assert.InDelta(t, -3, bb.Min.X(), 1e-5)
	assert.InDelta(t, 0.5, bb.Max.Y(), 1e-5)
}

func TestLodThrottle(t *testing.T) {
	_, _, m := newRig(t, chainModel("chain", 2, 0.5))
	s := m.AddAnimationState(testAnimation(t, "spin", "b0"))
	s.SetWeight(1)
	s.SetLooped(true)
	m.animationLodDistance = 500

	var applied []bool
	for f := uint64(1); f <= 6; f++ {
		m.MarkInView(f)
		s.AddTime(0.0625)
		m.Update(FrameInfo{FrameNumber: f, TimeStep: 0.0625})
		applied = append(applied, m.Dirty(ConcernAnimation) == Clean)
	}
	// Each frame adds 0.0625 * 2500 = 156.25 to the timer.
	assert.Equal(t, []bool{true, false, false, false, true, false}, applied)
	assert.InDelta(t, 281.25, m.animationLodTimer, 1e-3)

	// No throttling with a zero bias.
	m.SetAnimationLodBias(0)
	s.AddTime(0.0625)
	m.Update(FrameInfo{FrameNumber: 7, TimeStep: 0.0625})
	assert.Equal(t, Clean, m.Dirty(ConcernAnimation))
}

func TestLodDistanceFromView(t *testing.T) {
	_, _, m := newRig(t, chainModel("chain", 3, 1.5))

	// The model box is 3x3x3, so the LOD scale is 3.
	m.UpdateBatches(FrameInfo{FrameNumber: 1, ViewPosition: mgl32.Vec3{0, 1.5, 30}})
	assert.InDelta(t, 10, m.AnimationLodDistance(), 1e-4)

	// A second view in the same frame keeps the minimum.
	m.UpdateBatches(FrameInfo{FrameNumber: 1, ViewPosition: mgl32.Vec3{0, 1.5, 60}})
	assert.InDelta(t, 10, m.AnimationLodDistance(), 1e-4)
	m.UpdateBatches(FrameInfo{FrameNumber: 1, ViewPosition: mgl32.Vec3{0, 1.5, 15}, LodBias: 0.5})
	assert.InDelta(t, 10, m.AnimationLodDistance(), 1e-4)

	m.UpdateBatches(FrameInfo{FrameNumber: 2, ViewPosition: mgl32.Vec3{0, 1.5, 60}})
	assert.InDelta(t, 20, m.AnimationLodDistance(), 1e-4)
}

func TestInvisibleSkip(t *testing.T) {
	_, _, m := newRig(t, chainModel("chain", 2, 0.5))
	s := m.AddAnimationState(testAnimation(t, "spin", "b0"))
	s.SetWeight(1)

	frame := FrameInfo{FrameNumber: 10, TimeStep: 0.1}
	m.Update(frame)
	assert.Equal(t, NeedsRecompute, m.Dirty(ConcernAnimation))
	assert.True(t, m.forceAnimationUpdate)

	// Coming into view forces the pose update.
	m.UpdateBatches(frame)
	assert.Equal(t, Clean, m.Dirty(ConcernAnimation))
	assert.False(t, m.forceAnimationUpdate)

	// Out of view again, but allowed to update.
	m.SetUpdateInvisible(true)
	s.AddTime(0.1)
	m.Update(FrameInfo{FrameNumber: 20, TimeStep: 0.1})
	assert.Equal(t, Clean, m.Dirty(ConcernAnimation))
}

func TestAnimationOrder(t *testing.T) {
	g, _, m := newRig(t, chainModel("chain", 2, 0.5))
	high := m.AddAnimationState(positionAnimation(t, "high", "b1", 4))
	low := m.AddAnimationState(positionAnimation(t, "low", "b1", -4))
	high.SetLayer(1)
	high.SetWeight(1)
	low.SetWeight(1)

	m.ApplyAnimation()
	assert.Equal(t, []*animation.State{low, high}, m.AnimationStates())
	assert.Equal(t, Clean, m.Dirty(ConcernAnimationOrder))
	local, _ := g.Local(m.Skeleton().Bone(1).Node)
	assert.Equal(t, mgl32.Vec3{4, 1, 0}, local.Position)

	// Sorting is stable and higher layers apply last.
	low.SetLayer(2)
	m.ApplyAnimation()
	assert.Equal(t, []*animation.State{high, low}, m.AnimationStates())
	local, _ = g.Local(m.Skeleton().Bone(1).Node)
	assert.Equal(t, mgl32.Vec3{-4, 1, 0}, local.Position)

	// Pinned bones keep their pose.
	m.Skeleton().Bone(1).Pinned = true
	g.SetPosition(m.Skeleton().Bone(1).Node, mgl32.Vec3{9, 9, 9})
	m.ApplyAnimation()
	local, _ = g.Local(m.Skeleton().Bone(1).Node)
	assert.Equal(t, mgl32.Vec3{9, 9, 9}, local.Position)
}

func TestDeferredRemoval(t *testing.T) {
	_, _, m := newRig(t, chainModel("chain", 2, 0.5))
	once := m.AddAnimationState(testAnimation(t, "once", "b0"))
	loop := m.AddAnimationState(testAnimation(t, "loop", "b1"))
	loop.SetLooped(true)

	once.OnFinished(func(s *animation.State) {
		m.RemoveAnimationStateByState(s)
		// Still there until the pass ends.
		assert.Equal(t, 2, m.NumAnimationStates())
	})
	m.AdvanceStates(1.25)

	assert.Equal(t, 1, m.NumAnimationStates())
	assert.Same(t, loop, m.AnimationStateAt(0))
	assert.Equal(t, float32(0.25), loop.Time())
}

func TestRemoveAnimationStates(t *testing.T) {
	_, _, m := newRig(t, chainModel("chain", 2, 0.5))
	a := testAnimation(t, "a", "b0")
	b := testAnimation(t, "b", "b0")
	c := testAnimation(t, "c", "b1")
	d := testAnimation(t, "d", "b1")

	sa := m.AddAnimationState(a)
	assert.Same(t, sa, m.AddAnimationState(a))
	m.AddAnimationState(b)
	m.AddAnimationState(c)
	m.AddAnimationState(d)
	assert.Nil(t, m.AddAnimationState(nil))
	require.Equal(t, 4, m.NumAnimationStates())

	assert.Same(t, sa, m.AnimationState(a))
	assert.Equal(t, "c", m.AnimationStateByName("c").Animation().Name())
	assert.Nil(t, m.AnimationStateByName("x"))
	assert.Nil(t, m.AnimationStateAt(9))

	m.RemoveAnimationState(a)
	m.RemoveAnimationStateByName("c")
	m.RemoveAnimationStateAt(0)
	require.Equal(t, 1, m.NumAnimationStates())
	assert.Equal(t, "d", m.AnimationStateAt(0).Animation().Name())

	m.RemoveAnimationStateByName("missing")
	m.RemoveAnimationStateAt(-1)
	m.RemoveAllAnimationStates()
	assert.Equal(t, 0, m.NumAnimationStates())
	assert.Equal(t, NeedsRecompute, m.Dirty(ConcernAnimation))
}

func TestSkinningFollowsNodeMoves(t *testing.T) {
	g, node, m := newRig(t, chainModel("chain", 2, 0.5))
	frame := FrameInfo{FrameNumber: 1}
	m.UpdateGeometry(frame)
	require.True(t, m.SkinningReady())

	g.SetPosition(node, mgl32.Vec3{0, 0, 3})
	m.Update(frame)
	assert.False(t, m.SkinningReady())
	assert.Equal(t, NeedsRecompute, m.Dirty(ConcernBoneBoundingBox))

	g.Update()
	m.UpdateGeometry(frame)
	assert.True(t, m.SkinningReady())
	assertMat4Near(t, mgl32.Translate3D(0, 0, 3), m.SkinMatrices(0)[1])

	// Nothing moved, nothing to do.
	m.UpdateGeometry(frame)
	assert.True(t, m.SkinningReady())
	assert.Equal(t, Clean, m.Dirty(ConcernMorphs))
	assert.Equal(t, Clean, m.Dirty(numConcerns))
}

func TestConcernString(t *testing.T) {
	assert.Equal(t, "bone bounding box", ConcernBoneBoundingBox.String())
	assert.Equal(t, "Concern(9)", Concern(9).String())
	assert.Equal(t, "animated", KindAnimated.String())
}

func TestRegistryValidate(t *testing.T) {
	g := scene.NewGraph()
	node := g.CreateNode("character", scene.Nil)
	reg := NewRegistry()
	a := New(g, node, WithRegistry(reg))
	b := New(g, node, WithRegistry(reg))
	require.NoError(t, reg.Validate())

	b.master = true
	assert.ErrorIs(t, reg.Validate(), ErrMultipleMasters)

	a.master, b.master = false, false
	assert.ErrorIs(t, reg.Validate(), ErrNoMaster)
}
