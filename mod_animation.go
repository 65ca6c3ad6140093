package gekkoanim

import (
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/gekko3d/gekkoanim/anim/control"
	"github.com/gekko3d/gekkoanim/anim/model"
	"github.com/gekko3d/gekkoanim/anim/scene"
	"github.com/go-gl/mathgl/mgl32"
)

// View is the camera the animation LOD and visibility are computed for.
type View struct {
	Position mgl32.Vec3
	LodBias  float32
	// DrawDistance culls drawables farther away. Zero draws everything.
	DrawDistance float32
}

// FrameStats counts what the last frame did.
type FrameStats struct {
	Drawables int
	Visible   int
	Skinned   int
}

// AnimationWorld owns the drawables of a scene and runs their per-frame
// pipeline: advance states, update poses, prepare visible drawables, then
// skin them on the worker pool.
type AnimationWorld struct {
	View View

	graph       *scene.Graph
	log         Logger
	cfg         AnimationConfig
	registry    *model.Registry
	drawables   []model.Drawable
	visible     []model.Drawable
	controllers map[*model.AnimatedModel]*control.Controller

	// pool is nil when skinning runs on the calling goroutine.
	pool  worker.DynamicWorkerPool
	stats FrameStats
}

func NewAnimationWorld(g *scene.Graph, log Logger, cfg AnimationConfig) *AnimationWorld {
	if log == nil {
		log = NewNopLogger()
	}
	w := &AnimationWorld{
		View:        View{LodBias: 1},
		graph:       g,
		log:         log,
		cfg:         cfg,
		registry:    model.NewRegistry(),
		controllers: make(map[*model.AnimatedModel]*control.Controller),
	}
	if cfg.SkinWorkers > 0 {
		w.pool = worker.NewDynamicWorkerPool(cfg.SkinWorkers, 256, 1*time.Second)
	}
	return w
}

func (w *AnimationWorld) Graph() *scene.Graph         { return w.graph }
func (w *AnimationWorld) Registry() *model.Registry   { return w.registry }
func (w *AnimationWorld) Drawables() []model.Drawable { return w.drawables }
func (w *AnimationWorld) Stats() FrameStats           { return w.stats }

// AddAnimatedModel creates an animated model for md on node, creating its
// bone nodes. A second model on the same node skins against the first one's
// bones.
func (w *AnimationWorld) AddAnimatedModel(node scene.NodeID, md *model.Model) (*model.AnimatedModel, error) {
	m := model.New(w.graph, node,
		model.WithLogger(w.log),
		model.WithRegistry(w.registry),
		model.WithMaxSkinBones(w.cfg.MaxSkinBones),
		model.WithAnimationLodBias(w.cfg.LodBias),
		model.WithUpdateInvisible(w.cfg.UpdateInvisible),
	)
	if err := m.SetModel(md, true); err != nil {
		m.Destroy()
		return nil, err
	}
	w.drawables = append(w.drawables, m)
	return m, nil
}

func (w *AnimationWorld) AddStaticModel(node scene.NodeID, md *model.Model) *model.StaticModel {
	s := model.NewStaticModel(w.graph, node, md)
	w.drawables = append(w.drawables, s)
	return s
}

// Remove drops d from the world. Animated models are destroyed, handing
// their bones to the next model on the node.
func (w *AnimationWorld) Remove(d model.Drawable) {
	i := slices.Index(w.drawables, d)
	if i < 0 {
		return
	}
	w.drawables = slices.Delete(w.drawables, i, i+1)
	if m, ok := d.(*model.AnimatedModel); ok {
		delete(w.controllers, m)
		m.Destroy()
	}
}

// Controller returns the controller of m, creating it on first use. Models
// with a controller are advanced by it instead of directly.
func (w *AnimationWorld) Controller(m *model.AnimatedModel) *control.Controller {
	c, ok := w.controllers[m]
	if !ok {
		c = control.New(m)
		w.controllers[m] = c
	}
	return c
}

// FrameInfo describes frame as seen from the world's view.
func (w *AnimationWorld) FrameInfo(frame uint64, dt float32) model.FrameInfo {
	return model.FrameInfo{
		FrameNumber:  frame,
		TimeStep:     dt,
		ViewPosition: w.View.Position,
		LodBias:      w.View.LodBias,
	}
}

// Advance moves every animation state forward by dt seconds.
func (w *AnimationWorld) Advance(dt float32) {
	for _, d := range w.drawables {
		m, ok := d.(*model.AnimatedModel)
		if !ok || !m.IsMaster() {
			continue
		}
		if c, ok := w.controllers[m]; ok {
			c.Update(dt)
		} else {
			m.AdvanceStates(dt)
		}
	}
}

// Update runs the per-frame update of every drawable on the calling goroutine.
func (w *AnimationWorld) Update(frame model.FrameInfo) {
	for _, d := range w.drawables {
		d.Update(frame)
	}
}

func (w *AnimationWorld) inView(d model.Drawable) bool {
	if w.View.DrawDistance <= 0 {
		return true
	}
	bb := d.WorldBoundingBox()
	p := w.View.Position
	closest := mgl32.Vec3{
		mgl32.Clamp(p.X(), bb.Min.X(), bb.Max.X()),
		mgl32.Clamp(p.Y(), bb.Min.Y(), bb.Max.Y()),
		mgl32.Clamp(p.Z(), bb.Min.Z(), bb.Max.Z()),
	}
	return closest.Sub(p).Len() <= w.View.DrawDistance
}

// UpdateBatches prepares the drawables in view. Models that come back into
// view with a stale pose update it here, so world transforms are
// propagated again before skinning.
func (w *AnimationWorld) UpdateBatches(frame model.FrameInfo) {
	w.visible = w.visible[:0]
	for _, d := range w.drawables {
		if !w.inView(d) {
			continue
		}
		d.UpdateBatches(frame)
		w.visible = append(w.visible, d)
	}
	w.graph.Update()
	w.stats.Drawables = len(w.drawables)
	w.stats.Visible = len(w.visible)
}

// UpdateGeometry skins the drawables found visible by UpdateBatches. With a
// worker pool each model is skinned on its own task and the call returns
// once all tasks finished.
func (w *AnimationWorld) UpdateGeometry(frame model.FrameInfo) {
	skinned := 0
	if w.pool == nil {
		for _, d := range w.visible {
			if needsSkinning(d) {
				skinned++
			}
			d.UpdateGeometry(frame)
		}
		w.stats.Skinned = skinned
		return
	}

	// The pool's Wait blocks until workers go idle, so a WaitGroup is the
	// per-frame barrier.
	var wg sync.WaitGroup
	for i, d := range w.visible {
		if needsSkinning(d) {
			skinned++
		}
		wg.Add(1)
		w.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				d.UpdateGeometry(frame)
				return nil, nil
			},
		})
	}
	wg.Wait()
	w.stats.Skinned = skinned
}

func needsSkinning(d model.Drawable) bool {
	m, ok := d.(*model.AnimatedModel)
	return ok && m.Model() != nil && !m.SkinningReady()
}

// Validate checks the master bookkeeping of every node.
func (w *AnimationWorld) Validate() error {
	return w.registry.Validate()
}

// Close stops the skinning workers and destroys every animated model.
func (w *AnimationWorld) Close() {
	for _, d := range w.drawables {
		if m, ok := d.(*model.AnimatedModel); ok {
			m.Destroy()
		}
	}
	w.drawables = nil
	w.visible = nil
	clear(w.controllers)
	if w.pool != nil {
		w.pool.Stop()
		w.pool = nil
	}
}

// AnimationModule installs an AnimationWorld over the scene graph resource.
// It needs SceneModule and TimeModule installed first.
type AnimationModule struct {
	Config AnimationConfig
	View   ViewConfig
}

func (mod AnimationModule) Install(app *App, cmd *Commands) {
	g := Resource[scene.Graph](app)
	if g == nil {
		panic("AnimationModule requires SceneModule")
	}
	world := NewAnimationWorld(g, app.Logger(), mod.Config)
	world.View = View{
		Position:     mgl32.Vec3(mod.View.Position),
		LodBias:      mod.View.LodBias,
		DrawDistance: mod.View.DrawDistance,
	}
	cmd.AddResources(world)
	app.onShutdown(world.Close)

	app.UseSystem(
		System(animationUpdateSystem).
			InStage(Update).
			RunAlways(),
	)
	app.UseSystem(
		System(animationRenderSystem).
			InStage(PreRender).
			RunAlways(),
	)
	app.UseSystem(
		System(animationValidateSystem).
			InStage(PostRender).
			RunAlways(),
	)
}

func animationUpdateSystem(t *Time, world *AnimationWorld, cmd *Commands) {
	dt := t.Seconds()
	world.Advance(dt)
	world.Update(world.FrameInfo(cmd.Frame(), dt))
}

func animationRenderSystem(t *Time, world *AnimationWorld, cmd *Commands) {
	frame := world.FrameInfo(cmd.Frame(), t.Seconds())
	world.UpdateBatches(frame)
	world.UpdateGeometry(frame)
}

func animationValidateSystem(world *AnimationWorld, cmd *Commands) {
	if !world.log.DebugEnabled() {
		return
	}
	if err := world.Validate(); err != nil {
		world.log.Errorf("animation: %v", err)
	}
	s := world.Stats()
	world.log.Debugf("animation: frame %d: %d drawables, %d visible, %d skinned", cmd.Frame(), s.Drawables, s.Visible, s.Skinned)
}
