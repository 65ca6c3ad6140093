// Package control plays, stops and cross-fades animation states on one
// animated model.
package control

import (
	"github.com/chewxy/math32"
	"github.com/gekko3d/gekkoanim/anim/animation"
	"github.com/go-gl/mathgl/mgl32"
)

// Target is the model a controller drives. *model.AnimatedModel satisfies it.
type Target interface {
	AddAnimationState(anim *animation.Animation) *animation.State
	AnimationState(anim *animation.Animation) *animation.State
	RemoveAnimationState(anim *animation.Animation)
}

type playback struct {
	anim             *animation.Animation
	targetWeight     float32
	fadeTime         float32
	autoFadeTime     float32
	removeOnComplete bool
}

// Controller tracks the animations it started and fades their weights
// over time.
type Controller struct {
	target   Target
	controls []*playback
}

func New(target Target) *Controller {
	return &Controller{target: target}
}

func (c *Controller) find(name string) (int, *playback) {
	for i, p := range c.controls {
		if p.anim.Name() == name {
			return i, p
		}
	}
	return -1, nil
}

func (c *Controller) state(p *playback) *animation.State {
	return c.target.AnimationState(p.anim)
}

// Play starts anim on layer, fading its weight in to 1 over fadeInTime.
// Playing an animation that is already playing restarts its fade, not its
// time. Returns false if the target refused the state.
func (c *Controller) Play(anim *animation.Animation, layer uint8, looped bool, fadeInTime float32) bool {
	if anim == nil {
		return false
	}
	s := c.target.AddAnimationState(anim)
	if s == nil {
		return false
	}
	s.SetLayer(layer)
	s.SetLooped(looped)

	_, p := c.find(anim.Name())
	if p == nil {
		p = &playback{anim: anim, removeOnComplete: true}
		c.controls = append(c.controls, p)
	}
	p.targetWeight = 1
	p.fadeTime = math32.Max(fadeInTime, 0)
	return true
}

// PlayExclusive plays anim and fades out every other animation on its layer.
func (c *Controller) PlayExclusive(anim *animation.Animation, layer uint8, looped bool, fadeTime float32) bool {
	if anim == nil {
		return false
	}
	c.fadeLayer(anim.Name(), layer, 0, fadeTime)
	return c.Play(anim, layer, looped, fadeTime)
}

// Stop fades the named animation out. It is removed once its weight reaches
// zero unless removal on completion was disabled.
func (c *Controller) Stop(name string, fadeOutTime float32) bool {
	_, p := c.find(name)
	if p == nil {
		return false
	}
	p.targetWeight = 0
	p.fadeTime = math32.Max(fadeOutTime, 0)
	return true
}

func (c *Controller) StopLayer(layer uint8, fadeOutTime float32) {
	for _, p := range c.controls {
		if s := c.state(p); s != nil && s.Layer() == layer {
			p.targetWeight = 0
			p.fadeTime = math32.Max(fadeOutTime, 0)
		}
	}
}

func (c *Controller) StopAll(fadeOutTime float32) {
	for _, p := range c.controls {
		p.targetWeight = 0
		p.fadeTime = math32.Max(fadeOutTime, 0)
	}
}

// Fade moves the weight of the named animation towards targetWeight.
func (c *Controller) Fade(name string, targetWeight, fadeTime float32) bool {
	_, p := c.find(name)
	if p == nil {
		return false
	}
	p.targetWeight = mgl32.Clamp(targetWeight, 0, 1)
	p.fadeTime = math32.Max(fadeTime, 0)
	return true
}

// FadeOthers fades every other animation on the named animation's layer.
func (c *Controller) FadeOthers(name string, targetWeight, fadeTime float32) bool {
	_, p := c.find(name)
	if p == nil {
		return false
	}
	s := c.state(p)
	if s == nil {
		return false
	}
	c.fadeLayer(name, s.Layer(), targetWeight, fadeTime)
	return true
}

func (c *Controller) fadeLayer(except string, layer uint8, targetWeight, fadeTime float32) {
	for _, p := range c.controls {
		if p.anim.Name() == except {
			continue
		}
		if s := c.state(p); s != nil && s.Layer() == layer {
			p.targetWeight = mgl32.Clamp(targetWeight, 0, 1)
			p.fadeTime = math32.Max(fadeTime, 0)
		}
	}
}

func (c *Controller) SetSpeed(name string, speed float32) bool {
	_, p := c.find(name)
	if p == nil {
		return false
	}
	if s := c.state(p); s != nil {
		s.SetSpeed(speed)
		return true
	}
	return false
}

// SetAutoFade makes a non-looped animation fade out over fadeOutTime once
// it reaches its end. Zero disables it.
func (c *Controller) SetAutoFade(name string, fadeOutTime float32) bool {
	_, p := c.find(name)
	if p == nil {
		return false
	}
	p.autoFadeTime = math32.Max(fadeOutTime, 0)
	return true
}

func (c *Controller) SetRemoveOnCompletion(name string, remove bool) bool {
	_, p := c.find(name)
	if p == nil {
		return false
	}
	p.removeOnComplete = remove
	return true
}

func (c *Controller) IsPlaying(name string) bool {
	_, p := c.find(name)
	return p != nil
}

func (c *Controller) IsFadingIn(name string) bool {
	_, p := c.find(name)
	if p == nil {
		return false
	}
	s := c.state(p)
	return s != nil && p.fadeTime > 0 && p.targetWeight > s.Weight()
}

func (c *Controller) IsFadingOut(name string) bool {
	_, p := c.find(name)
	if p == nil {
		return false
	}
	s := c.state(p)
	if s == nil {
		return false
	}
	autoFading := p.autoFadeTime > 0 && !s.Looped() && s.Time() >= s.Length()
	return (p.fadeTime > 0 && p.targetWeight < s.Weight()) || autoFading
}

// Update advances the controlled states by dt and steps their fades.
// Faded out animations are removed from the target after the pass, so
// state callbacks never see the list change under them.
func (c *Controller) Update(dt float32) {
	var done []*playback
	for _, p := range c.controls {
		s := c.state(p)
		if s == nil {
			// Removed behind our back.
			done = append(done, p)
			continue
		}
		s.Advance(dt)

		if p.autoFadeTime > 0 && !s.Looped() && s.Time() >= s.Length() && p.targetWeight > 0 {
			p.targetWeight = 0
			p.fadeTime = p.autoFadeTime
		}

		w := s.Weight()
		if w != p.targetWeight {
			if p.fadeTime > 0 {
				step := dt / p.fadeTime
				if w < p.targetWeight {
					w = math32.Min(w+step, p.targetWeight)
				} else {
					w = math32.Max(w-step, p.targetWeight)
				}
			} else {
				w = p.targetWeight
			}
			s.SetWeight(w)
		}

		if p.removeOnComplete && p.targetWeight == 0 && s.Weight() == 0 {
			done = append(done, p)
		}
	}

	for _, p := range done {
		if i, _ := c.find(p.anim.Name()); i >= 0 {
			c.controls = append(c.controls[:i], c.controls[i+1:]...)
		}
		c.target.RemoveAnimationState(p.anim)
	}
}
