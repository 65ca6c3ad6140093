package model

import "fmt"

// Concern is a piece of derived state an animated model recomputes lazily.
type Concern uint8

const (
	ConcernAnimation Concern = iota
	ConcernAnimationOrder
	ConcernSkinning
	ConcernBoneBoundingBox
	ConcernMorphs

	numConcerns
)

func (c Concern) String() string {
	switch c {
	case ConcernAnimation:
		return "animation"
	case ConcernAnimationOrder:
		return "animation order"
	case ConcernSkinning:
		return "skinning"
	case ConcernBoneBoundingBox:
		return "bone bounding box"
	case ConcernMorphs:
		return "morphs"
	}
	return fmt.Sprintf("Concern(%d)", uint8(c))
}

type DirtyState uint8

const (
	Clean DirtyState = iota
	NeedsRecompute
)

type dirtyFlags [numConcerns]DirtyState

func (d *dirtyFlags) mark(cs ...Concern) {
	for _, c := range cs {
		d[c] = NeedsRecompute
	}
}

func (d *dirtyFlags) clear(c Concern) { d[c] = Clean }

func (d *dirtyFlags) is(c Concern) bool { return d[c] == NeedsRecompute }
