package animation

import (
	"github.com/chewxy/math32"
	"github.com/gekko3d/gekkoanim/anim/core"
	"github.com/gekko3d/gekkoanim/anim/scene"
	"github.com/gekko3d/gekkoanim/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// Owner is notified when a state changes in a way that invalidates the pose.
// The animated model playing the state implements it.
type Owner interface {
	MarkAnimationDirty()
	MarkAnimationOrderDirty()
}

// BlendMode selects how a state combines with the states below it.
type BlendMode uint8

const (
	// BlendLerp interpolates from the current pose toward the sample.
	BlendLerp BlendMode = iota
	// BlendAdditive adds the offset of the sample from the track's first
	// key frame.
	BlendAdditive
)

// RootMotion selects what happens to the root bone translation.
type RootMotion uint8

const (
	RootMotionApply RootMotion = iota
	RootMotionSuppress
)

type stateTrack struct {
	track    *Track
	bone     int
	weight   float32
	keyFrame int
}

// State is the playback state of one animation on one skeleton.
type State struct {
	anim  *Animation
	sk    *skeleton.Skeleton
	owner Owner

	tracks    []stateTrack
	applies   core.BitSet
	startBone int

	time       float32
	weight     float32
	speed      float32
	layer      uint8
	looped     bool
	blend      BlendMode
	rootMotion RootMotion

	onFinished func(*State)
	onTrigger  func(*State, Trigger)
}

// NewState binds anim to the bones of sk by track name. Tracks without a
// matching bone are ignored. owner may be nil.
func NewState(anim *Animation, sk *skeleton.Skeleton, owner Owner) *State {
	if sk == nil {
		sk = skeleton.Empty()
	}
	s := &State{
		anim:      anim,
		sk:        sk,
		owner:     owner,
		startBone: sk.RootBoneIndex(),
		speed:     1,
	}
	if anim != nil {
		for i := 0; i < anim.NumTracks(); i++ {
			t := anim.Track(i)
			if b := sk.BoneIndex(t.Name); b >= 0 {
				s.tracks = append(s.tracks, stateTrack{track: t, bone: b, weight: 1})
			}
		}
	}
	s.rebuildApplies()
	return s
}

// Clone copies the playback parameters of s onto a new state bound to sk.
func (s *State) Clone(sk *skeleton.Skeleton, owner Owner) *State {
	c := NewState(s.anim, sk, owner)
	c.time = s.time
	c.weight = s.weight
	c.speed = s.speed
	c.layer = s.layer
	c.looped = s.looped
	c.blend = s.blend
	c.rootMotion = s.rootMotion
	if b := s.sk.Bone(s.startBone); b != nil {
		c.startBone = c.sk.BoneIndex(b.Name)
	}
	for i := range c.tracks {
		if w, ok := s.trackWeight(c.tracks[i].track.Name); ok {
			c.tracks[i].weight = w
		}
	}
	c.rebuildApplies()
	return c
}

func (s *State) trackWeight(name string) (float32, bool) {
	for i := range s.tracks {
		if s.tracks[i].track.Name == name {
			return s.tracks[i].weight, true
		}
	}
	return 0, false
}

// rebuildApplies recomputes the set of bones under the start bone that
// have a track.
func (s *State) rebuildApplies() {
	s.applies = core.NewBitSet(s.sk.NumBones())
	for i := range s.tracks {
		b := s.tracks[i].bone
		if s.startBone < 0 || s.sk.IsDescendant(b, s.startBone) {
			s.applies.Set(b)
		}
	}
}

func (s *State) markDirty() {
	if s.owner != nil {
		s.owner.MarkAnimationDirty()
	}
}

func (s *State) Animation() *Animation        { return s.anim }
func (s *State) Skeleton() *skeleton.Skeleton { return s.sk }
func (s *State) Time() float32                { return s.time }
func (s *State) Weight() float32              { return s.weight }
func (s *State) Speed() float32               { return s.speed }
func (s *State) Layer() uint8                 { return s.layer }
func (s *State) Looped() bool                 { return s.looped }
func (s *State) BlendMode() BlendMode         { return s.blend }
func (s *State) RootMotion() RootMotion       { return s.rootMotion }

// Enabled reports whether the state contributes to the pose.
func (s *State) Enabled() bool { return s.weight > 0 }

func (s *State) Length() float32 {
	if s.anim == nil {
		return 0
	}
	return s.anim.Length()
}

// Finished reports whether a non-looping state reached its end.
func (s *State) Finished() bool {
	return !s.looped && s.anim != nil && s.time >= s.anim.Length()
}

// StartBone returns the name of the bone the state is restricted to.
func (s *State) StartBone() string {
	if b := s.sk.Bone(s.startBone); b != nil {
		return b.Name
	}
	return ""
}

// Applies reports whether the state animates bone index i.
func (s *State) Applies(i int) bool { return s.applies.IsSet(i) }

// SetStartBone restricts the state to the subtree under the named bone.
// An unknown name selects the root bone.
func (s *State) SetStartBone(name string) {
	i := s.sk.BoneIndex(name)
	if i < 0 {
		i = s.sk.RootBoneIndex()
	}
	if i == s.startBone {
		return
	}
	s.startBone = i
	s.rebuildApplies()
	s.markDirty()
}

// SetBoneWeight sets the weight of the track animating the named bone, and
// of every track below it when recursive.
func (s *State) SetBoneWeight(name string, weight float32, recursive bool) {
	bone := s.sk.BoneIndex(name)
	if bone < 0 {
		return
	}
	weight = mgl32.Clamp(weight, 0, 1)
	changed := false
	for i := range s.tracks {
		t := &s.tracks[i]
		if t.bone != bone && !(recursive && s.sk.IsDescendant(t.bone, bone)) {
			continue
		}
		if t.weight != weight {
			t.weight = weight
			changed = true
		}
	}
	if changed {
		s.markDirty()
	}
}

// BoneWeight returns the track weight for the named bone, or 0.
func (s *State) BoneWeight(name string) float32 {
	w, _ := s.trackWeight(name)
	return w
}

func (s *State) SetLooped(looped bool) {
	if s.looped == looped {
		return
	}
	s.looped = looped
	s.SetTime(s.time)
	s.markDirty()
}

// SetWeight clamps weight to [0,1].
func (s *State) SetWeight(weight float32) {
	weight = mgl32.Clamp(weight, 0, 1)
	if weight == s.weight {
		return
	}
	s.weight = weight
	s.markDirty()
}

func (s *State) AddWeight(delta float32) {
	if delta != 0 {
		s.SetWeight(s.weight + delta)
	}
}

func (s *State) SetSpeed(speed float32) { s.speed = speed }

func (s *State) SetBlendMode(mode BlendMode) {
	if s.blend == mode {
		return
	}
	s.blend = mode
	s.markDirty()
}

func (s *State) SetRootMotion(rm RootMotion) {
	if s.rootMotion == rm {
		return
	}
	s.rootMotion = rm
	s.markDirty()
}

func (s *State) SetLayer(layer uint8) {
	if s.layer == layer {
		return
	}
	s.layer = layer
	if s.owner != nil {
		s.owner.MarkAnimationOrderDirty()
	}
}

// OnFinished registers fn to run when a non-looping state reaches its end.
func (s *State) OnFinished(fn func(*State)) { s.onFinished = fn }

// OnTrigger registers fn to run for every trigger crossed by AddTime.
func (s *State) OnTrigger(fn func(*State, Trigger)) { s.onTrigger = fn }

func (s *State) wrap(t float32) float32 {
	length := s.Length()
	if length <= 0 {
		return 0
	}
	if s.looped {
		t = math32.Mod(t, length)
		if t < 0 {
			t += length
		}
		if t >= length {
			t = 0
		}
		return t
	}
	return mgl32.Clamp(t, 0, length)
}

// SetTime moves the playback position. Looping states wrap, others clamp.
func (s *State) SetTime(t float32) {
	t = s.wrap(t)
	if t == s.time {
		return
	}
	s.time = t
	s.markDirty()
}

// Advance moves playback by dt scaled by the state speed.
func (s *State) Advance(dt float32) { s.AddTime(dt * s.speed) }

// AddTime moves playback by delta, firing trigger and finished callbacks.
func (s *State) AddTime(delta float32) {
	length := s.Length()
	if delta == 0 || length <= 0 {
		return
	}
	old := s.time
	s.SetTime(old + delta)
	cur := s.time

	if s.onTrigger != nil && len(s.anim.Triggers()) > 0 {
		s.fireTriggers(old, cur, delta, length)
	}
	if !s.looped && delta > 0 && old < length && cur >= length && s.onFinished != nil {
		s.onFinished(s)
	}
}

func (s *State) fireTriggers(old, cur, delta, length float32) {
	from, to := old, cur
	if delta < 0 {
		from, to = cur, old
	}
	wrapped := s.looped && ((delta > 0 && cur < old) || (delta < 0 && cur > old))
	endInclusive := !s.looped && to >= length

	for _, tr := range s.anim.Triggers() {
		t := tr.Time
		if s.looped && t >= length {
			t = 0
		}
		var hit bool
		switch {
		case wrapped:
			hit = t >= from || t < to
		case endInclusive:
			hit = t >= from && t <= to
		default:
			hit = t >= from && t < to
		}
		if hit {
			s.onTrigger(s, tr)
		}
	}
}

// Apply blends the sampled pose into the bone nodes of the skeleton.
// Bones without a live node and pinned bones are skipped.
func (s *State) Apply(g *scene.Graph) {
	if s.anim == nil || !s.Enabled() || g == nil {
		return
	}
	root := s.sk.RootBoneIndex()
	for i := range s.tracks {
		st := &s.tracks[i]
		if !s.applies.IsSet(st.bone) {
			continue
		}
		w := s.weight * st.weight
		if w <= 0 {
			continue
		}
		b := s.sk.Bone(st.bone)
		if b == nil || b.Pinned || b.Node.IsNil() {
			continue
		}
		cur, ok := g.Local(b.Node)
		if !ok {
			continue
		}
		channels := st.track.Channels
		if st.bone == root && s.rootMotion == RootMotionSuppress {
			channels &^= ChannelPosition
		}
		if channels == 0 {
			continue
		}
		sample := s.sample(st)
		g.SetLocal(b.Node, s.blendInto(cur, sample, st.track, channels, w))
	}
}

// sample evaluates st's track at the current time.
func (s *State) sample(st *stateTrack) KeyFrame {
	kfs := st.track.KeyFrames
	st.keyFrame = st.track.KeyFrameIndex(s.time, st.keyFrame)
	k := kfs[st.keyFrame]
	if st.track.Interpolation == Step {
		return k
	}

	next := st.keyFrame + 1
	if next >= len(kfs) {
		if !s.looped || len(kfs) == 1 {
			return k
		}
		next = 0
	}
	n := kfs[next]
	span := n.Time - k.Time
	if span < 0 {
		span += s.anim.Length()
	}
	amount := float32(1)
	if span > 0 {
		amount = mgl32.Clamp((s.time-k.Time)/span, 0, 1)
	}
	return KeyFrame{
		Time:     s.time,
		Position: core.LerpVec3(k.Position, n.Position, amount),
		Rotation: core.Slerp(k.Rotation, n.Rotation, amount),
		Scale:    core.LerpVec3(k.Scale, n.Scale, amount),
	}
}

func (s *State) blendInto(cur core.Transform, k KeyFrame, t *Track, channels Channel, w float32) core.Transform {
	out := cur
	if s.blend == BlendAdditive {
		base := t.KeyFrames[0]
		if channels&ChannelPosition != 0 {
			out.Position = cur.Position.Add(k.Position.Sub(base.Position).Mul(w))
		}
		if channels&ChannelRotation != 0 {
			delta := base.Rotation.Conjugate().Mul(k.Rotation).Normalize()
			out.Rotation = cur.Rotation.Mul(core.Slerp(mgl32.QuatIdent(), delta, w)).Normalize()
		}
		if channels&ChannelScale != 0 {
			for i := 0; i < 3; i++ {
				ratio := float32(1)
				if base.Scale[i] != 0 {
					ratio = k.Scale[i] / base.Scale[i]
				}
				out.Scale[i] = cur.Scale[i] * (1 + (ratio-1)*w)
			}
		}
		return out
	}

	if w >= 1 {
		if channels&ChannelPosition != 0 {
			out.Position = k.Position
		}
		if channels&ChannelRotation != 0 {
			out.Rotation = k.Rotation
		}
		if channels&ChannelScale != 0 {
			out.Scale = k.Scale
		}
		return out
	}
	if channels&ChannelPosition != 0 {
		out.Position = core.LerpVec3(cur.Position, k.Position, w)
	}
	if channels&ChannelRotation != 0 {
		out.Rotation = core.Slerp(cur.Rotation, k.Rotation, w)
	}
	if channels&ChannelScale != 0 {
		out.Scale = core.LerpVec3(cur.Scale, k.Scale, w)
	}
	return out
}
