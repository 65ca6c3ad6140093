// Package skeleton implements bone hierarchies for skinned models.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/gekko3d/gekkoanim/anim/core"
	"github.com/gekko3d/gekkoanim/anim/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/jinzhu/copier"
)

const prefix = "skeleton: "

func newErr(reason string) error { return errors.New(prefix + reason) }

var (
	ErrParentOutOfBounds = newErr("Bone.ParentIndex out of bounds")
	ErrParentOrder       = newErr("Bone.ParentIndex must precede the bone")
	ErrMultipleRoots     = newErr("more than one root bone")
)

// NoParent marks a root bone. A bone whose ParentIndex equals its own
// index is a root as well.
const NoParent = -1

// CollisionMask selects the bone volumes used for hit tests and bounds.
type CollisionMask uint8

const (
	CollisionNone   CollisionMask = 0
	CollisionSphere CollisionMask = 1
	CollisionBox    CollisionMask = 2
)

// Bone is a single joint. Node is a weak handle: the skeleton never owns it.
type Bone struct {
	Name            string
	ParentIndex     int
	Node            scene.NodeID
	InitialPosition mgl32.Vec3
	InitialRotation mgl32.Quat
	InitialScale    mgl32.Vec3
	// Inverse bind matrix, maps model (bind) space to bone space.
	OffsetMatrix  mgl32.Mat4
	Radius        float32
	BoundingBox   core.BoundingBox
	CollisionMask CollisionMask
	// Pinned bones ignore animation and keep whatever pose they are given.
	Pinned bool
}

// Animated reports whether the bone accepts animation updates.
func (b *Bone) Animated() bool { return !b.Pinned }

// InitialTransform returns the bind pose local transform.
func (b *Bone) InitialTransform() core.Transform {
	return core.Transform{
		Position: b.InitialPosition,
		Rotation: b.InitialRotation,
		Scale:    b.InitialScale,
	}
}

// Skeleton is an ordered bone array where parents precede children.
type Skeleton struct {
	bones     []Bone
	rootIndex int
}

// Empty returns a skeleton with no bones.
func Empty() *Skeleton { return &Skeleton{rootIndex: NoParent} }

// New validates the hierarchy and creates a skeleton from a copy of bones.
func New(bones []Bone) (*Skeleton, error) {
	sk := &Skeleton{
		bones:     make([]Bone, len(bones)),
		rootIndex: NoParent,
	}
	copy(sk.bones, bones)

	for i := range sk.bones {
		b := &sk.bones[i]
		switch p := b.ParentIndex; {
		case p < 0 || p == i:
			b.ParentIndex = i
			if sk.rootIndex != NoParent {
				return nil, fmt.Errorf("%w: %q and %q", ErrMultipleRoots, sk.bones[sk.rootIndex].Name, b.Name)
			}
			sk.rootIndex = i
		case p >= len(sk.bones):
			return nil, fmt.Errorf("%w: bone %q parent %d", ErrParentOutOfBounds, b.Name, p)
		case p > i:
			return nil, fmt.Errorf("%w: bone %q (%d) parent %d", ErrParentOrder, b.Name, i, p)
		}
		if b.InitialRotation == (mgl32.Quat{}) {
			b.InitialRotation = mgl32.QuatIdent()
		}
		if b.InitialScale == (mgl32.Vec3{}) {
			b.InitialScale = mgl32.Vec3{1, 1, 1}
		}
		if b.OffsetMatrix == (mgl32.Mat4{}) {
			b.OffsetMatrix = mgl32.Ident4()
		}
	}
	return sk, nil
}

func (sk *Skeleton) NumBones() int { return len(sk.bones) }

// Bones returns the bone slice. Callers may modify Node, Pinned and the
// collision volumes, never the hierarchy.
func (sk *Skeleton) Bones() []Bone { return sk.bones }

func (sk *Skeleton) Bone(index int) *Bone {
	if index < 0 || index >= len(sk.bones) {
		return nil
	}
	return &sk.bones[index]
}

func (sk *Skeleton) BoneByName(name string) *Bone {
	return sk.Bone(sk.BoneIndex(name))
}

// BoneIndex returns the index of the first bone called name, or -1.
func (sk *Skeleton) BoneIndex(name string) int {
	for i := range sk.bones {
		if sk.bones[i].Name == name {
			return i
		}
	}
	return -1
}

func (sk *Skeleton) RootBoneIndex() int { return sk.rootIndex }

func (sk *Skeleton) RootBone() *Bone { return sk.Bone(sk.rootIndex) }

// IsRoot reports whether bone i has no parent inside the skeleton.
func (sk *Skeleton) IsRoot(i int) bool {
	return i >= 0 && i < len(sk.bones) && sk.bones[i].ParentIndex == i
}

// IsDescendant reports whether bone i lies in the subtree of ancestor.
func (sk *Skeleton) IsDescendant(i, ancestor int) bool {
	for i >= 0 && i < len(sk.bones) {
		if i == ancestor {
			return true
		}
		if sk.IsRoot(i) {
			return false
		}
		i = sk.bones[i].ParentIndex
	}
	return false
}

// Reset restores every animated bone node to the bind pose. Pinned bones
// and bones without a live node are left alone.
func (sk *Skeleton) Reset(g *scene.Graph) {
	for i := range sk.bones {
		b := &sk.bones[i]
		if b.Pinned || b.Node.IsNil() {
			continue
		}
		g.SetLocal(b.Node, b.InitialTransform())
	}
}

// ClearNodes drops every bone node handle.
func (sk *Skeleton) ClearNodes() {
	for i := range sk.bones {
		sk.bones[i].Node = scene.Nil
	}
}

// Clone returns a deep copy of the skeleton.
func (sk *Skeleton) Clone() (*Skeleton, error) {
	var bones []Bone
	if err := copier.CopyWithOption(&bones, &sk.bones, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf(prefix+"clone: %w", err)
	}
	return &Skeleton{bones: bones, rootIndex: sk.rootIndex}, nil
}
