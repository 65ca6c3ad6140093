package model

// allocMorphBuffers gives every geometry a morph touches its own copy of
// the vertex data. The ranges are shared read only with clones.
func (m *AnimatedModel) allocMorphBuffers(ranges []vertexRange) {
	m.morphRanges = ranges
	m.morphVertices = nil
	if m.model == nil || len(ranges) == 0 {
		return
	}
	m.morphVertices = make([][]Vertex, len(ranges))
	for g, r := range ranges {
		if !r.empty() {
			m.morphVertices[g] = append([]Vertex(nil), m.model.Geometries[g].Vertices...)
		}
	}
}

// updateMorphs resets the morph range of every copy to the base vertices
// and adds the weighted deltas of each active morph.
func (m *AnimatedModel) updateMorphs() {
	for g, dst := range m.morphVertices {
		if dst == nil {
			continue
		}
		r := m.morphRanges[g]
		copy(dst[r.start:r.end], m.model.Geometries[g].Vertices[r.start:r.end])
	}
	for i := range m.model.Morphs {
		w := m.morphSnapshot[i]
		if w == 0 {
			continue
		}
		for _, t := range m.model.Morphs[i].Targets {
			applyMorph(m.morphVertices[t.Geometry], t.Deltas, w)
		}
	}
}

func applyMorph(dst []Vertex, deltas []MorphDelta, weight float32) {
	for _, d := range deltas {
		v := &dst[d.Index]
		v.Position = v.Position.Add(d.Position.Mul(weight))
		v.Normal = v.Normal.Add(d.Normal.Mul(weight))
	}
}

// MorphedVertices returns the vertices of geometry g with the morph weights
// of the last UpdateGeometry applied. A geometry no morph moves returns the
// model's own vertices, which must not be modified.
func (m *AnimatedModel) MorphedVertices(g int) []Vertex {
	if m.model == nil || g < 0 || g >= len(m.model.Geometries) {
		return nil
	}
	if g < len(m.morphVertices) && m.morphVertices[g] != nil {
		return m.morphVertices[g]
	}
	return m.model.Geometries[g].Vertices
}
