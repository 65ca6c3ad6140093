// Command animplayer plays a procedural tail rig through the animation
// pipeline and logs the resulting pose.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gekko3d/gekkoanim"
	"github.com/gekko3d/gekkoanim/anim/animation"
	"github.com/gekko3d/gekkoanim/anim/control"
	"github.com/gekko3d/gekkoanim/anim/core"
	"github.com/gekko3d/gekkoanim/anim/model"
	"github.com/gekko3d/gekkoanim/anim/scene"
	"github.com/go-gl/mathgl/mgl32"
)

func main() {
	var (
		configPath = flag.String("config", "animplayer.yaml", "path to the yaml config")
		frames     = flag.Int("frames", 180, "number of frames to run")
		bones      = flag.Int("bones", 5, "number of tail bones")
		report     = flag.Int("report", 30, "log the pose every N frames")
		debug      = flag.Bool("debug", false, "enable debug logging")
		attrsPath  = flag.String("attributes", "", "write the final model attributes to this yaml file")
	)
	flag.Parse()

	cfg, err := gekkoanim.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *debug {
		cfg.Debug = true
	}
	if cfg.FixedTimeStep <= 0 {
		cfg.FixedTimeStep = 1.0 / 60
	}
	log := newConsoleLogger(os.Stdout, cfg.LogPrefix, cfg.Debug)

	d := &demo{
		bones:     *bones,
		frames:    uint64(*frames),
		report:    uint64(max(*report, 1)),
		attrsPath: *attrsPath,
	}
	app := newApp(cfg, log, d)

	if d.err != nil {
		log.Errorf("%v", d.err)
		os.Exit(1)
	}
	app.Run()
	if d.err != nil {
		log.Errorf("%v", d.err)
		os.Exit(1)
	}
}

func newApp(cfg gekkoanim.Config, log gekkoanim.Logger, d *demo) *gekkoanim.App {
	step := time.Duration(float64(cfg.FixedTimeStep) * float64(time.Second))
	return gekkoanim.NewAppBuilder().
		UseModule(
			gekkoanim.LoggingModule{Logger: log},
			gekkoanim.TimeModule{FixedStep: step},
			gekkoanim.SceneModule{},
			gekkoanim.AssetServerModule{},
			gekkoanim.AnimationModule{Config: cfg.Animation, View: cfg.View},
			d,
		).
		Build()
}

type demo struct {
	bones     int
	frames    uint64
	report    uint64
	attrsPath string

	tail     *model.AnimatedModel
	spikes   *model.AnimatedModel
	ctrl     *control.Controller
	triggers int
	err      error
}

func (d *demo) Install(app *gekkoanim.App, cmd *gekkoanim.Commands) {
	if err := d.setup(app); err != nil {
		d.err = err
		return
	}
	cmd.AddResources(d)
	app.UseSystem(gekkoanim.System(demoScriptSystem).InStage(gekkoanim.PreUpdate))
	app.UseSystem(gekkoanim.System(demoReportSystem).InStage(gekkoanim.PostRender))
	app.UseSystem(gekkoanim.System(demoExitSystem).InStage(gekkoanim.Finale))
}

func (d *demo) setup(app *gekkoanim.App) error {
	if d.bones < 2 {
		return fmt.Errorf("animplayer: need at least 2 bones, got %d", d.bones)
	}
	assets := gekkoanim.Resource[gekkoanim.AssetServer](app)
	world := gekkoanim.Resource[gekkoanim.AnimationWorld](app)

	assets.AddModel(tailModel(d.bones))
	assets.AddModel(spikesModel(d.bones / 2))
	wag, err := wagAnimation(d.bones)
	if err != nil {
		return err
	}
	curl, err := curlAnimation(d.bones)
	if err != nil {
		return err
	}
	assets.AddAnimation(wag)
	assets.AddAnimation(curl)

	node := world.Graph().CreateNode("critter", scene.Nil)
	if d.tail, err = world.AddAnimatedModel(node, assets.LoadModel("tail")); err != nil {
		return err
	}
	if d.spikes, err = world.AddAnimatedModel(node, assets.LoadModel("spikes")); err != nil {
		return err
	}

	d.ctrl = world.Controller(d.tail)
	d.ctrl.PlayExclusive(assets.LoadAnimation("wag"), 0, true, 0.25)
	d.tail.AnimationStateByName("wag").OnTrigger(func(_ *animation.State, tr animation.Trigger) {
		d.triggers++
		app.Logger().Debugf("animplayer: wag %v", tr.Data)
	})
	return nil
}

// demoScriptSystem drives the controller: the tail curls after one second
// and puffs up while curled.
func demoScriptSystem(d *demo, assets *gekkoanim.AssetServer, cmd *gekkoanim.Commands) {
	switch cmd.Frame() {
	case 60:
		curl := assets.LoadAnimation("curl")
		if !d.ctrl.Play(curl, 1, false, 0.5) {
			return
		}
		s := d.tail.AnimationState(curl)
		s.SetBlendMode(animation.BlendAdditive)
		s.SetStartBone(boneName(d.bones / 2))
		d.ctrl.SetAutoFade("curl", 0.5)
		s.OnFinished(func(*animation.State) {
			cmd.Logger().Infof("animplayer: tail curled")
		})
	}
	if s := d.tail.AnimationStateByName("curl"); s != nil {
		d.tail.SetMorphWeightByName("puff", s.Weight())
	}
}

func demoReportSystem(d *demo, world *gekkoanim.AnimationWorld, cmd *gekkoanim.Commands) {
	if cmd.Frame()%d.report != 0 {
		return
	}
	log := cmd.Logger()
	tip := d.tail.Skeleton().Bone(d.bones - 1)
	pos := world.Graph().WorldPosition(tip.Node)
	bb := d.spikes.WorldBoundingBox()
	stats := world.Stats()
	log.Infof("animplayer: frame %d tip (%.2f, %.2f, %.2f) bounds %v..%v states %d triggers %d width %.2f",
		cmd.Frame(), pos.X(), pos.Y(), pos.Z(), bb.Min, bb.Max,
		d.tail.NumAnimationStates(), d.triggers, d.tipWidth())
	log.Debugf("animplayer: %d drawables, %d visible, %d skinned", stats.Drawables, stats.Visible, stats.Skinned)

	ray := core.Ray{Origin: mgl32.Vec3{-10, 1.5, 0}, Direction: mgl32.Vec3{1, 0, 0}}
	if hits := d.tail.Raycast(ray, 100); len(hits) > 0 {
		log.Debugf("animplayer: ray hits %s at %.2f", d.tail.Skeleton().Bone(hits[0].Bone).Name, hits[0].Distance)
	}
}

// tipWidth measures the puffed tip from its two side vertices.
func (d *demo) tipWidth() float32 {
	v := d.tail.MorphedVertices(0)
	if len(v) < 2 {
		return 0
	}
	return v[len(v)-1].Position.X() - v[len(v)-2].Position.X()
}

func demoExitSystem(d *demo, cmd *gekkoanim.Commands) {
	if cmd.Frame() < d.frames {
		return
	}
	if d.attrsPath != "" {
		if err := writeAttributes(d.attrsPath, d.tail); err != nil {
			d.err = err
		} else {
			cmd.Logger().Infof("animplayer: attributes written to %s", d.attrsPath)
		}
	}
	cmd.Exit()
}

func writeAttributes(path string, m *model.AnimatedModel) error {
	data, err := model.EncodeAttributes(m.Attributes())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
