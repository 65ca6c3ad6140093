package gekkoanim

import (
	"github.com/gekko3d/gekkoanim/anim/scene"
)

// SceneModule installs the scene graph as a resource and propagates world
// transforms after the update stage.
type SceneModule struct{}

func (SceneModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(scene.NewGraph())
	app.UseSystem(
		System(sceneSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

func sceneSystem(g *scene.Graph) {
	g.Update()
}
