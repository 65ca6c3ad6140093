package gekkoanim

import (
	"bytes"
	"testing"

	"github.com/gekko3d/gekkoanim/anim/animation"
	"github.com/gekko3d/gekkoanim/anim/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustAnimation(t *testing.T, name string) *animation.Animation {
	t.Helper()
	a, err := animation.New(name, 1, nil, nil)
	require.NoError(t, err)
	return a
}

func TestAssetServer_AddAndLookup(t *testing.T) {
	server := NewAssetServer(nil)
	md := &model.Model{Name: "knight"}
	walk := mustAnimation(t, "walk")

	modelId := server.AddModel(md)
	animId := server.AddAnimation(walk)
	assert.NotEqual(t, modelId, animId)
	_, err := uuid.Parse(string(modelId))
	assert.NoError(t, err, "asset ids should be uuids")

	assert.Same(t, md, server.Model(modelId))
	assert.Same(t, walk, server.Animation(animId))
	assert.Same(t, md, server.ModelByName("knight"))
	assert.Same(t, walk, server.AnimationByName("walk"))
	assert.Nil(t, server.Model(animId))
	assert.Nil(t, server.Animation(modelId))
	assert.Nil(t, server.ModelByName("walk"))
}

func TestAssetServer_LastNameWins(t *testing.T) {
	server := NewAssetServer(nil)
	first := server.AddAnimation(mustAnimation(t, "walk"))
	second := mustAnimation(t, "walk")
	secondId := server.AddAnimation(second)

	assert.Same(t, second, server.AnimationByName("walk"))

	// Removing the shadowed one keeps the name.
	server.Remove(first)
	assert.Same(t, second, server.AnimationByName("walk"))
	server.Remove(secondId)
	assert.Nil(t, server.AnimationByName("walk"))
	assert.Nil(t, server.Animation(secondId))
}

func TestAssetServer_LoadWarnsWhenMissing(t *testing.T) {
	var out, errOut bytes.Buffer
	server := NewAssetServer(NewWriterLogger("test", false, &out, &errOut))

	assert.Nil(t, server.LoadModel("ghost"))
	assert.Nil(t, server.LoadAnimation("float"))
	assert.Contains(t, errOut.String(), `[test] WARN: assets: model "ghost" not found`)
	assert.Contains(t, errOut.String(), `[test] WARN: assets: animation "float" not found`)

	errOut.Reset()
	server.AddModel(&model.Model{Name: "ghost"})
	assert.NotNil(t, server.LoadModel("ghost"))
	assert.Empty(t, errOut.String())
}

func TestAssetServerModule(t *testing.T) {
	app := NewAppBuilder().
		UseModule(LoggingModule{Prefix: "test"}, AssetServerModule{}).
		Build()

	server := Resource[AssetServer](app)
	require.NotNil(t, server)
	assert.IsType(t, &DefaultLogger{}, server.log)
}
