// Package animation implements keyframe animations and their playback
// state on a skeleton.
package animation

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

const prefix = "animation: "

func newErr(reason string) error { return errors.New(prefix + reason) }

var (
	ErrLength        = newErr("Animation length must be positive")
	ErrNoKeyFrames   = newErr("Track has no key frames")
	ErrKeyFrameOrder = newErr("KeyFrame times must be non-decreasing")
	ErrKeyFrameRange = newErr("KeyFrame time out of range")
	ErrDuplicate     = newErr("duplicate Track name")
)

// Channel is a bit mask of the transform components a track animates.
type Channel uint8

const (
	ChannelPosition Channel = 1 << iota
	ChannelRotation
	ChannelScale
)

// Interpolation selects how values between key frames are computed.
type Interpolation uint8

const (
	Linear Interpolation = iota
	Step
)

func (i Interpolation) String() string {
	switch i {
	case Linear:
		return "linear"
	case Step:
		return "step"
	}
	return fmt.Sprintf("Interpolation(%d)", uint8(i))
}

type KeyFrame struct {
	Time     float32
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

// Track animates a single bone, matched by name.
type Track struct {
	Name          string
	Channels      Channel
	Interpolation Interpolation
	KeyFrames     []KeyFrame
}

// KeyFrameIndex returns the index of the last key frame whose time is not
// after t, or 0 if t precedes every key frame. hint is a previous result,
// used as the search start.
func (t *Track) KeyFrameIndex(time float32, hint int) int {
	n := len(t.KeyFrames)
	if n == 0 {
		return 0
	}
	if time < 0 {
		time = 0
	}
	i := hint
	if i < 0 {
		i = 0
	} else if i >= n {
		i = n - 1
	}
	for i > 0 && time < t.KeyFrames[i].Time {
		i--
	}
	for i < n-1 && time >= t.KeyFrames[i+1].Time {
		i++
	}
	return i
}

// Trigger is an event fired when playback crosses Time.
type Trigger struct {
	Time float32
	Data any
}

// Animation is an immutable set of tracks. It is shared read only between
// every state playing it.
type Animation struct {
	name     string
	length   float32
	tracks   []Track
	byName   map[string]int
	triggers []Trigger
}

// New validates tracks and creates an animation. Rotations are normalized
// and a zero scale defaults to one. Triggers are sorted by time.
func New(name string, length float32, tracks []Track, triggers []Trigger) (*Animation, error) {
	if !(length > 0) {
		return nil, fmt.Errorf("%w: %q has length %v", ErrLength, name, length)
	}
	a := &Animation{
		name:     name,
		length:   length,
		tracks:   make([]Track, len(tracks)),
		byName:   make(map[string]int, len(tracks)),
		triggers: append([]Trigger(nil), triggers...),
	}
	for i := range tracks {
		t := &a.tracks[i]
		t.Name = tracks[i].Name
		t.Channels = tracks[i].Channels
		t.Interpolation = tracks[i].Interpolation
		t.KeyFrames = append([]KeyFrame(nil), tracks[i].KeyFrames...)

		if _, dup := a.byName[t.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicate, t.Name)
		}
		a.byName[t.Name] = i
		if len(t.KeyFrames) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoKeyFrames, t.Name)
		}
		for j := range t.KeyFrames {
			k := &t.KeyFrames[j]
			if k.Time < 0 || k.Time > length {
				return nil, fmt.Errorf("%w: %q frame %d at %v", ErrKeyFrameRange, t.Name, j, k.Time)
			}
			if j > 0 && k.Time < t.KeyFrames[j-1].Time {
				return nil, fmt.Errorf("%w: %q frame %d", ErrKeyFrameOrder, t.Name, j)
			}
			if k.Rotation == (mgl32.Quat{}) {
				k.Rotation = mgl32.QuatIdent()
			} else {
				k.Rotation = k.Rotation.Normalize()
			}
			if k.Scale == (mgl32.Vec3{}) {
				k.Scale = mgl32.Vec3{1, 1, 1}
			}
		}
	}
	sort.SliceStable(a.triggers, func(i, j int) bool {
		return a.triggers[i].Time < a.triggers[j].Time
	})
	return a, nil
}

func (a *Animation) Name() string        { return a.name }
func (a *Animation) Length() float32     { return a.length }
func (a *Animation) NumTracks() int      { return len(a.tracks) }
func (a *Animation) Triggers() []Trigger { return a.triggers }

func (a *Animation) Track(i int) *Track {
	if i < 0 || i >= len(a.tracks) {
		return nil
	}
	return &a.tracks[i]
}

// TrackByName returns the track animating the bone called name, or nil.
func (a *Animation) TrackByName(name string) *Track {
	if i, ok := a.byName[name]; ok {
		return &a.tracks[i]
	}
	return nil
}
