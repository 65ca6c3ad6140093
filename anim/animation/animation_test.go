package animation

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func posTrack(name string, times []float32, xs []float32) Track {
	t := Track{Name: name, Channels: ChannelPosition}
	for i := range times {
		t.KeyFrames = append(t.KeyFrames, KeyFrame{Time: times[i], Position: mgl32.Vec3{xs[i], 0, 0}})
	}
	return t
}

func TestKeyFrameIndex(t *testing.T) {
	tr := posTrack("b", []float32{0.1, 0.3, 0.3, 0.6, 0.9}, []float32{0, 1, 2, 3, 4})

	linear := func(time float32) int {
		idx := 0
		for i, k := range tr.KeyFrames {
			if k.Time <= time {
				idx = i
			}
		}
		return idx
	}
	for hint := -1; hint < 7; hint++ {
		for _, time := range []float32{-1, 0, 0.1, 0.2, 0.3, 0.45, 0.6, 0.89, 0.9, 5} {
			if have, want := tr.KeyFrameIndex(time, hint), linear(time); have != want {
				t.Errorf("KeyFrameIndex(%v, %d): have %d, want %d", time, hint, have, want)
			}
		}
	}

	var empty Track
	assert.Equal(t, 0, empty.KeyFrameIndex(1, 3))
}

func TestNew(t *testing.T) {
	a, err := New("walk", 2,
		[]Track{
			posTrack("hips", []float32{0, 1, 2}, []float32{0, 1, 0}),
			{Name: "spine", Channels: ChannelRotation, KeyFrames: []KeyFrame{{Rotation: mgl32.Quat{W: 2}}}},
		},
		[]Trigger{{Time: 1.5, Data: "b"}, {Time: 0.5, Data: "a"}},
	)
	require.NoError(t, err)

	assert.Equal(t, "walk", a.Name())
	assert.Equal(t, float32(2), a.Length())
	assert.Equal(t, 2, a.NumTracks())
	assert.Nil(t, a.Track(2))
	assert.Nil(t, a.TrackByName("head"))

	spine := a.TrackByName("spine")
	require.NotNil(t, spine)
	assert.Equal(t, mgl32.QuatIdent(), spine.KeyFrames[0].Rotation)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, spine.KeyFrames[0].Scale)
	assert.Equal(t, "a", a.Triggers()[0].Data)
	assert.Equal(t, "step", Step.String())
}

func TestNewFail(t *testing.T) {
	for _, c := range []struct {
		length float32
		tracks []Track
		want   error
	}{
		{0, nil, ErrLength},
		{-1, nil, ErrLength},
		{1, []Track{{Name: "a"}}, ErrNoKeyFrames},
		{1, []Track{posTrack("a", []float32{0.5, 0.2}, []float32{0, 0})}, ErrKeyFrameOrder},
		{1, []Track{posTrack("a", []float32{0, 1.5}, []float32{0, 0})}, ErrKeyFrameRange},
		{1, []Track{posTrack("a", []float32{0}, []float32{0}), posTrack("a", []float32{0}, []float32{0})}, ErrDuplicate},
	} {
		a, err := New("x", c.length, c.tracks, nil)
		if a != nil || !errors.Is(err, c.want) {
			t.Errorf("New: have %v, %v\nwant nil, %v", a, err, c.want)
		}
	}
}

func TestNewCopiesInput(t *testing.T) {
	tracks := []Track{posTrack("a", []float32{0, 1}, []float32{0, 1})}
	a, err := New("x", 1, tracks, nil)
	require.NoError(t, err)

	tracks[0].KeyFrames[1].Position = mgl32.Vec3{9, 9, 9}
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, a.Track(0).KeyFrames[1].Position)
}
