package model

import (
	"fmt"
	"sort"

	"github.com/chewxy/math32"
	"github.com/gekko3d/gekkoanim/anim/animation"
	"github.com/gekko3d/gekkoanim/anim/core"
	"github.com/gekko3d/gekkoanim/anim/scene"
	"github.com/gekko3d/gekkoanim/anim/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrNoNode = newErr("AnimatedModel is not attached to a live scene node")

// AnimationLodBaseScale converts animation LOD bias times frame time into
// LOD timer units.
const AnimationLodBaseScale = 2500

// Logger receives diagnostics from models. The engine logger satisfies it.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Warnf(format string, args ...any)  {}

type Option func(*AnimatedModel)

func WithLogger(l Logger) Option {
	return func(m *AnimatedModel) {
		if l != nil {
			m.log = l
		}
	}
}

// WithRegistry shares r between every model of a scene, so models on the
// same node find their master.
func WithRegistry(r *Registry) Option {
	return func(m *AnimatedModel) { m.registry = r }
}

func WithMaxSkinBones(n int) Option {
	return func(m *AnimatedModel) {
		if n > 0 {
			m.maxSkinBones = n
		}
	}
}

func WithAnimationLodBias(bias float32) Option {
	return func(m *AnimatedModel) { m.SetAnimationLodBias(bias) }
}

func WithUpdateInvisible(enable bool) Option {
	return func(m *AnimatedModel) { m.updateInvisible = enable }
}

// AnimatedModel is a skinned model driven by animation states.
//
// The master model of a node owns the bone nodes and applies animation;
// other models on the node skin against the same bones.
type AnimatedModel struct {
	drawable
	log          Logger
	registry     *Registry
	maxSkinBones int

	model     *Model
	skeleton  *skeleton.Skeleton
	ownsBones bool
	master    bool
	destroyed bool

	states    []*animation.State
	iterating bool
	pending   []*animation.State

	dirty                dirtyFlags
	forceAnimationUpdate bool
	animationLodBias     float32
	animationLodTimer    float32
	animationLodDistance float32
	animationLodFrame    uint64
	updateInvisible      bool

	nodeRevision  uint64
	boneRevisions []uint64

	skinMatrices     []mgl32.Mat4
	skinAffine       []core.Affine
	geometryMappings [][]int
	geometrySkin     [][]mgl32.Mat4
	geometryAffine   [][]core.Affine

	boundingBox     core.BoundingBox
	boneBoundingBox core.BoundingBox

	morphWeights  []float32
	morphSnapshot []float32
	morphRanges   []vertexRange
	morphVertices [][]Vertex
}

var _ animation.Owner = (*AnimatedModel)(nil)

// New creates an animated model on node. It has no model until SetModel.
func New(g *scene.Graph, node scene.NodeID, opts ...Option) *AnimatedModel {
	m := &AnimatedModel{
		drawable:         drawable{graph: g, node: node, lodBias: 1},
		log:              nopLogger{},
		maxSkinBones:     DefaultMaxSkinBones,
		skeleton:         skeleton.Empty(),
		animationLodBias: 1,
		// The first update after creation is never throttled.
		animationLodTimer: -1,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = NewRegistry()
	}
	m.master = m.registry.add(m)
	return m
}

func (m *AnimatedModel) Kind() DrawableKind           { return KindAnimated }
func (m *AnimatedModel) Model() *Model                { return m.model }
func (m *AnimatedModel) Skeleton() *skeleton.Skeleton { return m.skeleton }
func (m *AnimatedModel) IsMaster() bool               { return m.master }
func (m *AnimatedModel) Registry() *Registry          { return m.registry }

// Dirty reports whether concern c needs to be recomputed.
func (m *AnimatedModel) Dirty(c Concern) DirtyState {
	if c >= numConcerns {
		return Clean
	}
	return m.dirty[c]
}

func (m *AnimatedModel) MarkAnimationDirty() {
	if m.master {
		m.dirty.mark(ConcernAnimation, ConcernSkinning)
	}
}

func (m *AnimatedModel) MarkAnimationOrderDirty() {
	if m.master {
		m.dirty.mark(ConcernAnimation, ConcernAnimationOrder, ConcernSkinning)
	}
}

// SetModel replaces the model. With createBones the master creates bone
// nodes under its scene node; otherwise, and always for non-master models,
// bones bind to existing nodes found by name. On error the model is left
// unchanged.
func (m *AnimatedModel) SetModel(md *Model, createBones bool) error {
	if md == m.model {
		return nil
	}
	if md == nil {
		m.log.Warnf(prefix+"model cleared on node %v, updates disabled", m.node)
		m.clearModel()
		return nil
	}
	if createBones && !m.graph.Valid(m.node) {
		return ErrNoNode
	}
	sk, err := md.Skeleton()
	if err != nil {
		return err
	}
	mappings, err := geometryBoneMappings(md, sk, m.maxSkinBones)
	if err != nil {
		return fmt.Errorf(prefix+"model %q: %w", md.Name, err)
	}
	ranges, err := morphRanges(md)
	if err != nil {
		return fmt.Errorf(prefix+"model %q: %w", md.Name, err)
	}
	m.adopt(md, sk, mappings, ranges, createBones)
	m.log.Debugf(prefix+"model %q set on node %v: %d bones, %d geometries", md.Name, m.node, sk.NumBones(), len(md.Geometries))
	return nil
}

func (m *AnimatedModel) adopt(md *Model, sk *skeleton.Skeleton, mappings [][]int, ranges []vertexRange, createBones bool) {
	m.model = md
	m.boundingBox = md.BoundingBox
	// The model box stands in until the bones are posed.
	m.boneBoundingBox = md.BoundingBox
	m.morphWeights = make([]float32, len(md.Morphs))
	m.morphSnapshot = make([]float32, len(md.Morphs))
	m.allocMorphBuffers(ranges)
	m.setSkeleton(sk, createBones)
	m.geometryMappings = mappings
	m.allocSkinBuffers()
	m.dirty.mark(ConcernBoneBoundingBox, ConcernSkinning, ConcernMorphs)
}

func (m *AnimatedModel) clearModel() {
	m.RemoveAllAnimationStates()
	m.removeRootBone()
	m.model = nil
	m.skeleton = skeleton.Empty()
	m.geometryMappings = nil
	m.allocSkinBuffers()
	m.boundingBox = core.BoundingBox{}
	m.boneBoundingBox = core.BoundingBox{}
	m.morphWeights = nil
	m.morphSnapshot = nil
	m.allocMorphBuffers(nil)
	m.dirty = dirtyFlags{}
}

func (m *AnimatedModel) setSkeleton(sk *skeleton.Skeleton, createBones bool) {
	if !m.master {
		m.skeleton = sk
		if master := m.registry.Master(m.node); master != nil && master != m {
			master.finalizeBoneBoundingBoxes()
		}
		m.AssignBoneNodes()
		return
	}

	// A reloaded model with the same bone structure keeps its bone nodes
	// and animation states.
	if m.compatible(sk) {
		old := m.skeleton
		for i := range sk.Bones() {
			sk.Bone(i).Node = old.Bone(i).Node
			sk.Bone(i).Pinned = old.Bone(i).Pinned
		}
		m.skeleton = sk
		for i, s := range m.states {
			m.states[i] = s.Clone(sk, m)
		}
		m.finalizeBoneBoundingBoxes()
		m.MarkAnimationDirty()
		return
	}

	m.RemoveAllAnimationStates()
	if createBones {
		m.removeRootBone()
	}
	m.skeleton = sk
	m.finalizeBoneBoundingBoxes()
	if createBones {
		m.createBoneNodes()
	} else {
		m.AssignBoneNodes()
	}
}

func (m *AnimatedModel) compatible(sk *skeleton.Skeleton) bool {
	old := m.skeleton
	if old.NumBones() == 0 || old.NumBones() != sk.NumBones() {
		return false
	}
	for i := range sk.Bones() {
		a, b := old.Bone(i), sk.Bone(i)
		if a.Name != b.Name || a.ParentIndex != b.ParentIndex {
			return false
		}
	}
	return true
}

func (m *AnimatedModel) createBoneNodes() {
	bones := m.skeleton.Bones()
	for i := range bones {
		b := &bones[i]
		parent := m.node
		if !m.skeleton.IsRoot(i) {
			parent = bones[b.ParentIndex].Node
		}
		b.Node = m.graph.CreateNode(b.Name, parent)
		m.graph.SetLocal(b.Node, b.InitialTransform())
	}
	m.ownsBones = len(bones) > 0
}

// AssignBoneNodes binds every bone to the first node below the model node
// with the same name. Bones without a match are left unbound.
func (m *AnimatedModel) AssignBoneNodes() {
	bones := m.skeleton.Bones()
	for i := range bones {
		bones[i].Node = m.graph.FindChild(m.node, bones[i].Name, true)
	}
	m.dirty.mark(ConcernSkinning, ConcernBoneBoundingBox)
	m.MarkAnimationDirty()
}

func (m *AnimatedModel) removeRootBone() {
	if !m.ownsBones {
		return
	}
	if root := m.skeleton.RootBone(); root != nil {
		m.graph.Remove(root.Node)
	}
	m.skeleton.ClearNodes()
	m.ownsBones = false
}

// finalizeBoneBoundingBoxes merges the bone volumes of the other models on
// the node into the master's bones of the same name, so culling covers
// attachments the master has no geometry for.
func (m *AnimatedModel) finalizeBoneBoundingBoxes() {
	models := m.registry.Models(m.node)
	if len(models) > 1 {
		bones := m.skeleton.Bones()
		if m.model != nil && len(m.model.Bones) == len(bones) {
			for i := range bones {
				src := &m.model.Bones[i]
				bones[i].CollisionMask = src.CollisionMask
				bones[i].Radius = src.Radius
				bones[i].BoundingBox = src.BoundingBox
			}
		}
		for _, other := range models {
			if other == m {
				continue
			}
			for i := range bones {
				b := &bones[i]
				ob := other.skeleton.BoneByName(b.Name)
				if ob == nil {
					continue
				}
				if ob.CollisionMask&skeleton.CollisionSphere != 0 {
					b.CollisionMask |= skeleton.CollisionSphere
					b.Radius = math32.Max(b.Radius, ob.Radius)
				}
				if ob.CollisionMask&skeleton.CollisionBox != 0 {
					b.CollisionMask |= skeleton.CollisionBox
					b.BoundingBox.Merge(ob.BoundingBox)
				}
			}
		}
	}
	m.dirty.mark(ConcernBoneBoundingBox)
}

// promote makes m the master after the previous master went away.
func (m *AnimatedModel) promote(ownsBones bool) {
	m.master = true
	m.ownsBones = ownsBones
	m.finalizeBoneBoundingBoxes()
	m.MarkAnimationOrderDirty()
}

// Destroy detaches the model from its node. The next model on the node, if
// any, becomes master and inherits the bone nodes.
func (m *AnimatedModel) Destroy() {
	if m.destroyed {
		return
	}
	m.RemoveAllAnimationStates()
	next := m.registry.remove(m)
	switch {
	case m.master && next != nil:
		next.promote(m.ownsBones)
		m.ownsBones = false
	case m.master:
		m.removeRootBone()
	case next != nil:
		next.finalizeBoneBoundingBoxes()
	}
	m.master = false
	m.destroyed = true
}

// Clone creates a model on node with the same resource, skeleton settings,
// morph weights and animation states.
func (m *AnimatedModel) Clone(node scene.NodeID) (*AnimatedModel, error) {
	c := New(m.graph, node,
		WithLogger(m.log),
		WithRegistry(m.registry),
		WithMaxSkinBones(m.maxSkinBones),
		WithAnimationLodBias(m.animationLodBias),
		WithUpdateInvisible(m.updateInvisible),
	)
	c.lodBias = m.lodBias
	if m.model == nil {
		return c, nil
	}
	if !m.graph.Valid(node) {
		c.Destroy()
		return nil, ErrNoNode
	}
	sk, err := m.skeleton.Clone()
	if err != nil {
		c.Destroy()
		return nil, err
	}
	mappings := make([][]int, 0, len(m.geometryMappings))
	for _, mp := range m.geometryMappings {
		mappings = append(mappings, append([]int(nil), mp...))
	}
	if len(mappings) == 0 {
		mappings = nil
	}
	c.adopt(m.model, sk, mappings, m.morphRanges, true)
	copy(c.morphWeights, m.morphWeights)
	if c.master {
		for _, s := range m.states {
			c.states = append(c.states, s.Clone(c.skeleton, c))
		}
	}
	c.dirty.mark(ConcernAnimation, ConcernAnimationOrder, ConcernSkinning, ConcernMorphs)
	return c, nil
}

// AddAnimationState starts tracking anim and returns its state, or the
// existing state if anim is already added. Returns nil if anim is nil, the
// model has no bones or the model is not the master.
func (m *AnimatedModel) AddAnimationState(anim *animation.Animation) *animation.State {
	switch {
	case anim == nil:
		return nil
	case !m.master:
		m.log.Warnf(prefix+"non-master model on node %v can not own animation states", m.node)
		return nil
	case m.skeleton.NumBones() == 0:
		m.log.Warnf(prefix+"animation %q added before a model with bones was set", anim.Name())
		return nil
	}
	if s := m.AnimationState(anim); s != nil {
		return s
	}
	s := animation.NewState(anim, m.skeleton, m)
	m.states = append(m.states, s)
	m.MarkAnimationOrderDirty()
	return s
}

func (m *AnimatedModel) AnimationState(anim *animation.Animation) *animation.State {
	for _, s := range m.states {
		if s.Animation() == anim {
			return s
		}
	}
	return nil
}

func (m *AnimatedModel) AnimationStateByName(name string) *animation.State {
	for _, s := range m.states {
		if a := s.Animation(); a != nil && a.Name() == name {
			return s
		}
	}
	return nil
}

func (m *AnimatedModel) AnimationStateAt(i int) *animation.State {
	if i < 0 || i >= len(m.states) {
		return nil
	}
	return m.states[i]
}

// AnimationStates returns the states in application order once the order
// has been resolved.
func (m *AnimatedModel) AnimationStates() []*animation.State {
	return append([]*animation.State(nil), m.states...)
}

func (m *AnimatedModel) NumAnimationStates() int { return len(m.states) }

func (m *AnimatedModel) RemoveAnimationState(anim *animation.Animation) {
	if s := m.AnimationState(anim); s != nil {
		m.removeState(s)
	}
}

func (m *AnimatedModel) RemoveAnimationStateByName(name string) {
	if s := m.AnimationStateByName(name); s != nil {
		m.removeState(s)
	}
}

func (m *AnimatedModel) RemoveAnimationStateByState(s *animation.State) {
	if s != nil {
		m.removeState(s)
	}
}

func (m *AnimatedModel) RemoveAnimationStateAt(i int) {
	if s := m.AnimationStateAt(i); s != nil {
		m.removeState(s)
	}
}

func (m *AnimatedModel) RemoveAllAnimationStates() {
	if len(m.states) == 0 {
		return
	}
	if m.iterating {
		for _, s := range m.states {
			m.deferRemoval(s)
		}
		return
	}
	m.states = nil
	m.pending = nil
	m.MarkAnimationDirty()
}

// removeState drops s, or queues it while the states are being iterated.
func (m *AnimatedModel) removeState(s *animation.State) {
	if m.iterating {
		m.deferRemoval(s)
		return
	}
	for i, x := range m.states {
		if x == s {
			m.states = append(m.states[:i], m.states[i+1:]...)
			m.MarkAnimationDirty()
			return
		}
	}
}

func (m *AnimatedModel) deferRemoval(s *animation.State) {
	for _, x := range m.pending {
		if x == s {
			return
		}
	}
	m.pending = append(m.pending, s)
}

func (m *AnimatedModel) flushRemovals() {
	pending := m.pending
	m.pending = nil
	for _, s := range pending {
		m.removeState(s)
	}
}

// AdvanceStates advances every state by dt scaled by its speed. Callbacks
// fired along the way may remove states; removal happens after the pass.
func (m *AnimatedModel) AdvanceStates(dt float32) {
	m.iterating = true
	for _, s := range m.states {
		s.Advance(dt)
	}
	m.iterating = false
	m.flushRemovals()
}

func (m *AnimatedModel) SetAnimationLodBias(bias float32) {
	m.animationLodBias = math32.Max(bias, 0)
}

func (m *AnimatedModel) AnimationLodBias() float32 { return m.animationLodBias }

// SetUpdateInvisible selects whether animation and bounds update while the
// model is out of view. Ragdolls and other physically driven models need it.
func (m *AnimatedModel) SetUpdateInvisible(enable bool) { m.updateInvisible = enable }
func (m *AnimatedModel) UpdateInvisible() bool          { return m.updateInvisible }

func (m *AnimatedModel) NumMorphs() int { return len(m.morphWeights) }

// SetMorphWeight clamps weight to [0,1]. Out of range indices are ignored.
func (m *AnimatedModel) SetMorphWeight(i int, weight float32) {
	if i < 0 || i >= len(m.morphWeights) {
		return
	}
	weight = mgl32.Clamp(weight, 0, 1)
	if m.morphWeights[i] != weight {
		m.morphWeights[i] = weight
		m.dirty.mark(ConcernMorphs)
	}
}

func (m *AnimatedModel) SetMorphWeightByName(name string, weight float32) {
	if m.model != nil {
		m.SetMorphWeight(m.model.MorphIndex(name), weight)
	}
}

func (m *AnimatedModel) MorphWeight(i int) float32 {
	if i < 0 || i >= len(m.morphWeights) {
		return 0
	}
	return m.morphWeights[i]
}

func (m *AnimatedModel) MorphWeightByName(name string) float32 {
	if m.model == nil {
		return 0
	}
	return m.MorphWeight(m.model.MorphIndex(name))
}

func (m *AnimatedModel) ResetMorphWeights() {
	for i := range m.morphWeights {
		m.SetMorphWeight(i, 0)
	}
}

// MorphWeights returns the weights uploaded by the last UpdateGeometry.
func (m *AnimatedModel) MorphWeights() []float32 { return m.morphSnapshot }

// syncRevisions compares bone node revisions with the last seen ones. Any
// movement invalidates the skin matrices, bone movement also the bounds.
func (m *AnimatedModel) syncRevisions() {
	if m.skeleton.NumBones() == 0 {
		return
	}
	if r := m.graph.Revision(m.node); r != m.nodeRevision {
		m.nodeRevision = r
		m.dirty.mark(ConcernSkinning)
	}
	bones := m.skeleton.Bones()
	for i := range bones {
		if r := m.graph.Revision(bones[i].Node); r != m.boneRevisions[i] {
			m.boneRevisions[i] = r
			m.dirty.mark(ConcernSkinning, ConcernBoneBoundingBox)
		}
	}
}

// Update decides whether the pose is recomputed this frame.
func (m *AnimatedModel) Update(frame FrameInfo) {
	if m.destroyed || m.model == nil {
		return
	}
	m.syncRevisions()

	if !m.inViewRecently(frame.FrameNumber) {
		if !m.updateInvisible {
			// Force an update as soon as the model is back in view.
			if m.dirty.is(ConcernAnimation) {
				m.animationLodTimer = -1
				m.forceAnimationUpdate = true
			}
			return
		}
		d := frame.ViewPosition.Sub(m.graph.WorldPosition(m.node)).Len()
		scale := m.WorldBoundingBox().Size().Dot(dotScale)
		m.animationLodDistance = m.lodDistance(frame, d, scale)
	}

	switch {
	case m.dirty.is(ConcernAnimation) || m.dirty.is(ConcernAnimationOrder):
		m.updateAnimation(frame)
	case m.dirty.is(ConcernBoneBoundingBox):
		m.UpdateBoneBoundingBox()
	}
}

// updateAnimation applies animation unless the LOD timer throttles it.
func (m *AnimatedModel) updateAnimation(frame FrameInfo) {
	if m.animationLodBias > 0 && m.animationLodDistance > 0 {
		// The first update after a reset always happens.
		if m.animationLodTimer >= 0 {
			m.animationLodTimer += m.animationLodBias * frame.TimeStep * AnimationLodBaseScale
			if m.animationLodTimer < m.animationLodDistance {
				return
			}
			m.animationLodTimer = math32.Mod(m.animationLodTimer, m.animationLodDistance)
		} else {
			m.animationLodTimer = 0
		}
	}
	m.ApplyAnimation()
}

// ApplyAnimation resets the skeleton and applies every state in ascending
// layer order. Only the master model poses the bones.
func (m *AnimatedModel) ApplyAnimation() {
	if m.dirty.is(ConcernAnimationOrder) {
		sort.SliceStable(m.states, func(i, j int) bool {
			return m.states[i].Layer() < m.states[j].Layer()
		})
		m.dirty.clear(ConcernAnimationOrder)
	}
	if m.master && m.skeleton.NumBones() > 0 {
		m.iterating = true
		m.skeleton.Reset(m.graph)
		for _, s := range m.states {
			s.Apply(m.graph)
		}
		m.iterating = false
		m.syncRevisions()
		m.UpdateBoneBoundingBox()
		m.dirty.mark(ConcernSkinning)
	}
	m.dirty.clear(ConcernAnimation)
	m.flushRemovals()
}

// UpdateBatches runs for models in view. It records the view, computes the
// animation LOD distance and performs a forced pose update if the model
// came back into view with stale animation.
func (m *AnimatedModel) UpdateBatches(frame FrameInfo) {
	m.MarkInView(frame.FrameNumber)
	if m.destroyed || m.model == nil {
		return
	}
	world := m.graph.World(m.node)
	m.distance = frame.ViewPosition.Sub(m.WorldBoundingBox().Center()).Len()

	// The model box keeps the LOD scale independent of the pose.
	scale := m.boundingBox.Transformed(world).Size().Dot(dotScale)
	lod := m.lodDistance(frame, m.distance, scale)
	if frame.FrameNumber != m.animationLodFrame {
		m.animationLodDistance = lod
		m.animationLodFrame = frame.FrameNumber
	} else {
		m.animationLodDistance = math32.Min(m.animationLodDistance, lod)
	}

	if m.forceAnimationUpdate {
		m.updateAnimation(frame)
		m.forceAnimationUpdate = false
	}
}

// AnimationLodDistance returns the distance the LOD timer is compared to.
func (m *AnimatedModel) AnimationLodDistance() float32 { return m.animationLodDistance }

// UpdateGeometry refreshes morph weights, morphed vertices and skin matrices. It only reads
// the scene graph and may run on a worker goroutine once world transforms
// are up to date.
func (m *AnimatedModel) UpdateGeometry(FrameInfo) {
	if m.destroyed || m.model == nil {
		return
	}
	m.syncRevisions()
	if m.dirty.is(ConcernMorphs) {
		copy(m.morphSnapshot, m.morphWeights)
		m.updateMorphs()
		m.dirty.clear(ConcernMorphs)
	}
	if m.dirty.is(ConcernSkinning) {
		m.UpdateSkinning()
	}
}
