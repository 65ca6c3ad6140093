package model

import (
	"fmt"

	"github.com/gekko3d/gekkoanim/anim/animation"
	"gopkg.in/yaml.v3"
)

type StateAttributes struct {
	Animation string  `yaml:"animation"`
	StartBone string  `yaml:"start_bone,omitempty"`
	Looped    bool    `yaml:"looped"`
	Weight    float32 `yaml:"weight"`
	Time      float32 `yaml:"time"`
	Layer     uint8   `yaml:"layer"`
}

// Attributes is the persistent state of an animated model.
type Attributes struct {
	Model            string            `yaml:"model,omitempty"`
	AnimationLodBias float32           `yaml:"animation_lod_bias"`
	UpdateInvisible  bool              `yaml:"update_invisible"`
	BonesEnabled     []bool            `yaml:"bones_enabled,omitempty,flow"`
	AnimationStates  []StateAttributes `yaml:"animation_states,omitempty"`
	// Morphs holds one byte per morph, the weight times 255.
	Morphs []byte `yaml:"morphs,omitempty,flow"`
}

// Resolver looks up shared resources by name.
type Resolver interface {
	ModelByName(name string) *Model
	AnimationByName(name string) *animation.Animation
}

func (m *AnimatedModel) Attributes() Attributes {
	a := Attributes{
		AnimationLodBias: m.animationLodBias,
		UpdateInvisible:  m.updateInvisible,
	}
	if m.model != nil {
		a.Model = m.model.Name
	}
	for _, b := range m.skeleton.Bones() {
		a.BonesEnabled = append(a.BonesEnabled, b.Animated())
	}
	for _, s := range m.states {
		if s.Animation() == nil {
			continue
		}
		a.AnimationStates = append(a.AnimationStates, StateAttributes{
			Animation: s.Animation().Name(),
			StartBone: s.StartBone(),
			Looped:    s.Looped(),
			Weight:    s.Weight(),
			Time:      s.Time(),
			Layer:     s.Layer(),
		})
	}
	for _, w := range m.morphWeights {
		a.Morphs = append(a.Morphs, byte(w*255))
	}
	return a
}

// SetAttributes restores a model from attributes. Resources are looked up
// through r; missing ones are logged and skipped.
func (m *AnimatedModel) SetAttributes(a Attributes, r Resolver) error {
	if a.Model != "" && (m.model == nil || m.model.Name != a.Model) {
		var md *Model
		if r != nil {
			md = r.ModelByName(a.Model)
		}
		if md == nil {
			m.log.Warnf(prefix+"model %q not found", a.Model)
		} else if err := m.SetModel(md, true); err != nil {
			return err
		}
	}
	m.SetAnimationLodBias(a.AnimationLodBias)
	m.SetUpdateInvisible(a.UpdateInvisible)

	for i, enabled := range a.BonesEnabled {
		if b := m.skeleton.Bone(i); b != nil {
			b.Pinned = !enabled
		}
	}

	m.RemoveAllAnimationStates()
	for _, sa := range a.AnimationStates {
		var anim *animation.Animation
		if r != nil {
			anim = r.AnimationByName(sa.Animation)
		}
		if anim == nil {
			m.log.Warnf(prefix+"animation %q not found", sa.Animation)
			continue
		}
		s := m.AddAnimationState(anim)
		if s == nil {
			continue
		}
		if sa.StartBone != "" {
			s.SetStartBone(sa.StartBone)
		}
		s.SetLooped(sa.Looped)
		s.SetWeight(sa.Weight)
		s.SetTime(sa.Time)
		s.SetLayer(sa.Layer)
	}

	for i, v := range a.Morphs {
		m.SetMorphWeight(i, float32(v)/255)
	}
	return nil
}

func EncodeAttributes(a Attributes) ([]byte, error) {
	data, err := yaml.Marshal(&a)
	if err != nil {
		return nil, fmt.Errorf(prefix+"encode attributes: %w", err)
	}
	return data, nil
}

func DecodeAttributes(data []byte) (Attributes, error) {
	var a Attributes
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Attributes{}, fmt.Errorf(prefix+"decode attributes: %w", err)
	}
	return a, nil
}
