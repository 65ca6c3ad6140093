package scene

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_Hierarchy(t *testing.T) {
	g := NewGraph()

	parent := g.CreateNode("parent", Nil)
	g.SetPosition(parent, mgl32.Vec3{10, 0, 0})

	child := g.CreateNode("child", parent)
	g.SetPosition(child, mgl32.Vec3{0, 5, 0})

	grandchild := g.CreateNode("grandchild", child)
	g.SetPosition(grandchild, mgl32.Vec3{0, 0, 2})

	g.Update()

	if p := g.WorldPosition(child); p != (mgl32.Vec3{10, 5, 0}) {
		t.Errorf("Child position incorrect: expected (10, 5, 0), got %v", p)
	}
	if p := g.WorldPosition(grandchild); p != (mgl32.Vec3{10, 5, 2}) {
		t.Errorf("Grandchild position incorrect: expected (10, 5, 2), got %v", p)
	}

	// Parent at (10, 0, 0), rotated 90 deg around Y. Child local (5, 0, 0).
	// RotY(90) * (5, 0, 0) = (0, 0, -5)
	g.SetRotation(parent, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}))
	g.SetPosition(child, mgl32.Vec3{5, 0, 0})

	expected := mgl32.Vec3{10, 0, -5}
	if p := g.WorldPosition(child); p.Sub(expected).Len() > 0.001 {
		t.Errorf("Child position after rotation incorrect: expected %v, got %v", expected, p)
	}
}

func TestGraph_StaleHandles(t *testing.T) {
	g := NewGraph()
	a := g.CreateNode("a", Nil)
	b := g.CreateNode("b", a)

	require.True(t, g.Remove(a))
	assert.False(t, g.Valid(a))
	assert.False(t, g.Valid(b))
	assert.False(t, g.SetPosition(b, mgl32.Vec3{1, 2, 3}))
	assert.Equal(t, mgl32.Ident4(), g.World(b))
	assert.Empty(t, g.Children(g.Root()))

	// Slots are recycled with a new generation.
	c := g.CreateNode("c", Nil)
	assert.True(t, g.Valid(c))
	assert.False(t, g.Valid(a))
	assert.False(t, g.Remove(g.Root()))
	assert.Equal(t, 2, g.Len())
}

func TestGraph_FindChild(t *testing.T) {
	g := NewGraph()
	model := g.CreateNode("model", Nil)
	hips := g.CreateNode("Hips", model)
	spine := g.CreateNode("Spine", hips)

	assert.Equal(t, hips, g.FindChild(model, "Hips", false))
	assert.Equal(t, Nil, g.FindChild(model, "Spine", false))
	assert.Equal(t, spine, g.FindChild(model, "Spine", true))
	assert.Equal(t, "Spine", g.Name(spine))
	assert.Equal(t, hips, g.Parent(spine))
}

func TestGraph_DirtyRevision(t *testing.T) {
	g := NewGraph()
	a := g.CreateNode("a", Nil)
	b := g.CreateNode("b", a)
	g.Update()

	assert.False(t, g.IsDirty(b))
	rev := g.Revision(b)

	g.MarkDirty(a)
	assert.True(t, g.IsDirty(b))
	assert.NotEqual(t, rev, g.Revision(b))

	g.World(b)
	assert.False(t, g.IsDirty(a))
	assert.False(t, g.IsDirty(b))
}

func TestGraph_ConcurrentWorldReads(t *testing.T) {
	g := NewGraph()
	prev := g.Root()
	var ids []NodeID
	for i := 0; i < 32; i++ {
		prev = g.CreateNode("n", prev)
		g.SetPosition(prev, mgl32.Vec3{1, 0, 0})
		ids = append(ids, prev)
	}
	g.Update()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, id := range ids {
				if x := g.WorldPosition(id).X(); x != float32(i+1) {
					t.Errorf("node %d: expected x=%d, got %v", i, i+1, x)
				}
			}
		}()
	}
	wg.Wait()
}
