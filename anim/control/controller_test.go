package control

import (
	"testing"

	"github.com/gekko3d/gekkoanim/anim/animation"
	"github.com/gekko3d/gekkoanim/anim/model"
	"github.com/gekko3d/gekkoanim/anim/scene"
	"github.com/gekko3d/gekkoanim/anim/skeleton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTarget(t *testing.T) *model.AnimatedModel {
	t.Helper()
	g := scene.NewGraph()
	m := model.New(g, g.CreateNode("character", scene.Nil))
	require.NoError(t, m.SetModel(&model.Model{
		Name:  "rig",
		Bones: []skeleton.Bone{{Name: "root", ParentIndex: skeleton.NoParent}},
	}, true))
	return m
}

func clip(t *testing.T, name string) *animation.Animation {
	t.Helper()
	a, err := animation.New(name, 1, []animation.Track{{
		Name:      "root",
		Channels:  animation.ChannelPosition,
		KeyFrames: []animation.KeyFrame{{Time: 0}},
	}}, nil)
	require.NoError(t, err)
	return a
}

func weight(m *model.AnimatedModel, name string) float32 {
	if s := m.AnimationStateByName(name); s != nil {
		return s.Weight()
	}
	return -1
}

func TestPlayFadesIn(t *testing.T) {
	m := newTarget(t)
	c := New(m)
	require.True(t, c.Play(clip(t, "walk"), 0, true, 0.5))
	assert.True(t, c.IsPlaying("walk"))
	assert.True(t, c.IsFadingIn("walk"))
	assert.False(t, c.IsFadingOut("walk"))

	c.Update(0.25)
	assert.Equal(t, float32(0.5), weight(m, "walk"))
	c.Update(0.25)
	assert.Equal(t, float32(1), weight(m, "walk"))
	assert.False(t, c.IsFadingIn("walk"))
	assert.Equal(t, float32(0.5), m.AnimationStateByName("walk").Time())

	// Instant play.
	require.True(t, c.Play(clip(t, "idle"), 1, true, 0))
	c.Update(0.1)
	assert.Equal(t, float32(1), weight(m, "idle"))
	assert.Equal(t, uint8(1), m.AnimationStateByName("idle").Layer())
}

func TestPlayFail(t *testing.T) {
	g := scene.NewGraph()
	empty := model.New(g, g.CreateNode("empty", scene.Nil))
	c := New(empty)
	assert.False(t, c.Play(nil, 0, true, 0))
	assert.False(t, c.Play(clip(t, "walk"), 0, true, 0))
	assert.False(t, c.IsPlaying("walk"))
	assert.False(t, c.PlayExclusive(nil, 0, true, 0))
}

func TestStop(t *testing.T) {
	m := newTarget(t)
	c := New(m)
	c.Play(clip(t, "walk"), 0, true, 0)
	c.Update(0.1)

	require.True(t, c.Stop("walk", 0.2))
	assert.True(t, c.IsFadingOut("walk"))
	c.Update(0.1)
	assert.Equal(t, float32(0.5), weight(m, "walk"))
	c.Update(0.1)
	assert.False(t, c.IsPlaying("walk"))
	assert.Equal(t, 0, m.NumAnimationStates())

	assert.False(t, c.Stop("walk", 0))
}

func TestKeepOnCompletion(t *testing.T) {
	m := newTarget(t)
	c := New(m)
	c.Play(clip(t, "walk"), 0, true, 0)
	require.True(t, c.SetRemoveOnCompletion("walk", false))
	c.Stop("walk", 0)
	c.Update(0.1)

	assert.True(t, c.IsPlaying("walk"))
	assert.Equal(t, float32(0), weight(m, "walk"))
	assert.False(t, c.SetRemoveOnCompletion("run", false))
}

func TestPlayExclusive(t *testing.T) {
	m := newTarget(t)
	c := New(m)
	c.Play(clip(t, "walk"), 0, true, 0)
	c.Play(clip(t, "run"), 0, true, 0)
	c.Play(clip(t, "wave"), 1, true, 0)
	c.Update(0.1)

	require.True(t, c.PlayExclusive(clip(t, "jump"), 0, false, 0))
	c.Update(0.1)
	assert.False(t, c.IsPlaying("walk"))
	assert.False(t, c.IsPlaying("run"))
	assert.True(t, c.IsPlaying("wave"))
	assert.Equal(t, float32(1), weight(m, "jump"))
	assert.Equal(t, 2, m.NumAnimationStates())
}

func TestStopLayerAndAll(t *testing.T) {
	m := newTarget(t)
	c := New(m)
	c.Play(clip(t, "walk"), 0, true, 0)
	c.Play(clip(t, "wave"), 1, true, 0)
	c.Update(0.1)

	c.StopLayer(1, 0)
	c.Update(0.1)
	assert.True(t, c.IsPlaying("walk"))
	assert.False(t, c.IsPlaying("wave"))

	c.StopAll(0)
	c.Update(0.1)
	assert.False(t, c.IsPlaying("walk"))
	assert.Equal(t, 0, m.NumAnimationStates())
}

func TestFade(t *testing.T) {
	m := newTarget(t)
	c := New(m)
	c.Play(clip(t, "walk"), 0, true, 0)
	c.Play(clip(t, "run"), 0, true, 0)
	c.Play(clip(t, "wave"), 1, true, 0)
	c.Update(0.1)

	require.True(t, c.Fade("walk", 0.5, 0))
	require.True(t, c.FadeOthers("walk", 0.25, 0))
	c.Update(0.1)
	assert.Equal(t, float32(0.5), weight(m, "walk"))
	assert.Equal(t, float32(0.25), weight(m, "run"))
	assert.Equal(t, float32(1), weight(m, "wave"))

	assert.True(t, c.Fade("walk", 7, 0))
	c.Update(0.1)
	assert.Equal(t, float32(1), weight(m, "walk"))

	assert.False(t, c.Fade("missing", 1, 0))
	assert.False(t, c.FadeOthers("missing", 1, 0))
}

func TestAutoFade(t *testing.T) {
	m := newTarget(t)
	c := New(m)
	c.Play(clip(t, "jump"), 0, false, 0)
	c.Update(0.5)
	require.True(t, c.SetAutoFade("jump", 1))
	assert.False(t, c.IsFadingOut("jump"))

	c.Update(0.5)
	assert.Equal(t, float32(0.5), weight(m, "jump"))
	assert.True(t, c.IsFadingOut("jump"))

	c.Update(0.5)
	assert.False(t, c.IsPlaying("jump"))
	assert.False(t, c.SetAutoFade("jump", 1))
}

func TestSetSpeed(t *testing.T) {
	m := newTarget(t)
	c := New(m)
	walk := clip(t, "walk")
	c.Play(walk, 0, true, 0)
	require.True(t, c.SetSpeed("walk", 2))
	c.Update(0.25)
	assert.Equal(t, float32(0.5), m.AnimationState(walk).Time())
	assert.False(t, c.SetSpeed("run", 2))
}

func TestStateRemovedElsewhere(t *testing.T) {
	m := newTarget(t)
	c := New(m)
	walk := clip(t, "walk")
	c.Play(walk, 0, true, 0)
	m.RemoveAnimationState(walk)

	c.Update(0.1)
	assert.False(t, c.IsPlaying("walk"))
	assert.False(t, c.IsFadingIn("walk"))
}
