// Package scene implements a node table scene graph.
//
// Nodes are addressed by generational handles, so a handle to a removed node
// resolves as absent instead of dangling.
package scene

import (
	"sync"

	"github.com/gekko3d/gekkoanim/anim/core"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeID identifies a node in a Graph.
type NodeID struct {
	Index      uint32
	Generation uint32
}

// Nil represents an invalid NodeID. Live nodes never have generation 0.
var Nil NodeID

func (id NodeID) IsNil() bool { return id.Generation == 0 }

type node struct {
	name       string
	generation uint32
	alive      bool
	parent     NodeID
	children   []NodeID
	local      core.Transform
	world      mgl32.Mat4
	dirty      bool
	revision   uint64
}

// Graph is a node graph rooted at a single root node.
//
// Mutations must happen on one goroutine. World may be called concurrently
// once Update has cleaned every node.
type Graph struct {
	mu    sync.RWMutex
	nodes []node
	free  []uint32
	root  NodeID
}

func NewGraph() *Graph {
	g := &Graph{}
	g.root = g.alloc("Root", Nil)
	return g
}

func (g *Graph) Root() NodeID { return g.root }

func (g *Graph) alloc(name string, parent NodeID) NodeID {
	var idx uint32
	if n := len(g.free); n > 0 {
		idx = g.free[n-1]
		g.free = g.free[:n-1]
	} else {
		idx = uint32(len(g.nodes))
		g.nodes = append(g.nodes, node{})
	}
	n := &g.nodes[idx]
	gen := n.generation + 1
	*n = node{
		name:       name,
		generation: gen,
		alive:      true,
		parent:     parent,
		local:      core.NewTransform(),
		world:      mgl32.Ident4(),
		dirty:      true,
		revision:   n.revision + 1,
	}
	return NodeID{Index: idx, Generation: gen}
}

func (g *Graph) get(id NodeID) *node {
	if id.IsNil() || int(id.Index) >= len(g.nodes) {
		return nil
	}
	n := &g.nodes[id.Index]
	if !n.alive || n.generation != id.Generation {
		return nil
	}
	return n
}

// CreateNode inserts a new node as a child of parent.
// A nil or stale parent attaches the node to the root.
func (g *Graph) CreateNode(name string, parent NodeID) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.get(parent) == nil {
		parent = g.root
	}
	id := g.alloc(name, parent)
	p := g.get(parent)
	p.children = append(p.children, id)
	return id
}

// Remove removes a node and its whole subtree. The root cannot be removed.
func (g *Graph) Remove(id NodeID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.get(id)
	if n == nil || id == g.root {
		return false
	}
	if p := g.get(n.parent); p != nil {
		for i, c := range p.children {
			if c == id {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
	}

	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cn := g.get(cur)
		if cn == nil {
			continue
		}
		stack = append(stack, cn.children...)
		cn.alive = false
		cn.children = nil
		g.free = append(g.free, cur.Index)
	}
	return true
}

func (g *Graph) Valid(id NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.get(id) != nil
}

// Len returns the number of live nodes, root included.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes) - len(g.free)
}

func (g *Graph) Name(id NodeID) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n := g.get(id); n != nil {
		return n.name
	}
	return ""
}

func (g *Graph) Parent(id NodeID) NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n := g.get(id); n != nil {
		return n.parent
	}
	return Nil
}

func (g *Graph) Children(id NodeID) []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n := g.get(id); n != nil {
		return append([]NodeID(nil), n.children...)
	}
	return nil
}

// FindChild looks up a child by name, breadth first when recursive.
func (g *Graph) FindChild(id NodeID, name string, recursive bool) NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := g.get(id)
	if n == nil {
		return Nil
	}
	queue := append([]NodeID(nil), n.children...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		cn := g.get(cur)
		if cn == nil {
			continue
		}
		if cn.name == name {
			return cur
		}
		if recursive {
			queue = append(queue, cn.children...)
		}
	}
	return Nil
}

func (g *Graph) Local(id NodeID) (core.Transform, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n := g.get(id); n != nil {
		return n.local, true
	}
	return core.NewTransform(), false
}

// SetLocal replaces the local transform and marks the subtree dirty.
func (g *Graph) SetLocal(id NodeID, t core.Transform) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := g.get(id)
	if n == nil {
		return false
	}
	n.local = t
	g.markDirty(id)
	return true
}

func (g *Graph) SetPosition(id NodeID, p mgl32.Vec3) bool {
	t, ok := g.Local(id)
	if !ok {
		return false
	}
	t.Position = p
	return g.SetLocal(id, t)
}

func (g *Graph) SetRotation(id NodeID, q mgl32.Quat) bool {
	t, ok := g.Local(id)
	if !ok {
		return false
	}
	t.Rotation = q
	return g.SetLocal(id, t)
}

func (g *Graph) SetScale(id NodeID, s mgl32.Vec3) bool {
	t, ok := g.Local(id)
	if !ok {
		return false
	}
	t.Scale = s
	return g.SetLocal(id, t)
}

// MarkDirty invalidates the world transform of id and its descendants.
func (g *Graph) MarkDirty(id NodeID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.markDirty(id)
}

func (g *Graph) markDirty(id NodeID) {
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := g.get(cur)
		// A dirty node always has a dirty subtree.
		if n == nil || (n.dirty && cur != id) {
			continue
		}
		n.dirty = true
		n.revision++
		stack = append(stack, n.children...)
	}
}

func (g *Graph) IsDirty(id NodeID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n := g.get(id); n != nil {
		return n.dirty
	}
	return false
}

// Revision changes every time the world transform of id is invalidated.
func (g *Graph) Revision(id NodeID) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n := g.get(id); n != nil {
		return n.revision
	}
	return 0
}

// World returns the world transform of id, recomputing it if dirty.
// Stale handles resolve to identity.
func (g *Graph) World(id NodeID) mgl32.Mat4 {
	g.mu.RLock()
	n := g.get(id)
	if n == nil {
		g.mu.RUnlock()
		return mgl32.Ident4()
	}
	if !n.dirty {
		w := n.world
		g.mu.RUnlock()
		return w
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.updateWorld(id)
}

func (g *Graph) WorldPosition(id NodeID) mgl32.Vec3 {
	return g.World(id).Col(3).Vec3()
}

// updateWorld resolves dirty ancestors first, parent strictly before child.
func (g *Graph) updateWorld(id NodeID) mgl32.Mat4 {
	var chain []NodeID
	for cur := id; ; {
		n := g.get(cur)
		if n == nil || !n.dirty {
			break
		}
		chain = append(chain, cur)
		cur = n.parent
	}
	for i := len(chain) - 1; i >= 0; i-- {
		n := g.get(chain[i])
		parentWorld := mgl32.Ident4()
		if p := g.get(n.parent); p != nil {
			parentWorld = p.world
		}
		n.world = parentWorld.Mul4(n.local.Matrix())
		n.dirty = false
	}
	if n := g.get(id); n != nil {
		return n.world
	}
	return mgl32.Ident4()
}

// Update recomputes every dirty world transform top-down.
func (g *Graph) Update() {
	g.mu.Lock()
	defer g.mu.Unlock()

	stack := []NodeID{g.root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := g.get(cur)
		if n == nil {
			continue
		}
		if n.dirty {
			parentWorld := mgl32.Ident4()
			if p := g.get(n.parent); p != nil {
				parentWorld = p.world
			}
			n.world = parentWorld.Mul4(n.local.Matrix())
			n.dirty = false
		}
		stack = append(stack, n.children...)
	}
}
