package model

import (
	"fmt"
	"sync"

	"github.com/gekko3d/gekkoanim/anim/scene"
)

// Registry tracks the animated models attached to each scene node. The
// first model registered on a node is its master: it owns the bone nodes
// and drives the pose, the others skin against it.
type Registry struct {
	mu     sync.Mutex
	byNode map[scene.NodeID][]*AnimatedModel
}

func NewRegistry() *Registry {
	return &Registry{byNode: make(map[scene.NodeID][]*AnimatedModel)}
}

// add registers m and reports whether it became the master.
func (r *Registry) add(m *AnimatedModel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms := r.byNode[m.node]
	for _, x := range ms {
		if x == m {
			return ms[0] == m
		}
	}
	r.byNode[m.node] = append(ms, m)
	return len(ms) == 0
}

// remove unregisters m and returns the new master of the node, if any.
func (r *Registry) remove(m *AnimatedModel) *AnimatedModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	ms := r.byNode[m.node]
	for i, x := range ms {
		if x == m {
			ms = append(ms[:i], ms[i+1:]...)
			break
		}
	}
	if len(ms) == 0 {
		delete(r.byNode, m.node)
		return nil
	}
	r.byNode[m.node] = ms
	return ms[0]
}

// Master returns the master model of node, or nil.
func (r *Registry) Master(node scene.NodeID) *AnimatedModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ms := r.byNode[node]; len(ms) > 0 {
		return ms[0]
	}
	return nil
}

// Models returns the models on node in registration order.
func (r *Registry) Models(node scene.NodeID) []*AnimatedModel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*AnimatedModel(nil), r.byNode[node]...)
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ms := range r.byNode {
		n += len(ms)
	}
	return n
}

// Validate checks that every node has exactly one master model.
func (r *Registry) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for node, ms := range r.byNode {
		masters := 0
		for _, m := range ms {
			if m.IsMaster() {
				masters++
			}
		}
		switch {
		case masters == 0:
			return fmt.Errorf("%w: node %v", ErrNoMaster, node)
		case masters > 1:
			return fmt.Errorf("%w: node %v has %d", ErrMultipleMasters, node, masters)
		}
	}
	return nil
}
