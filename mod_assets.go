package gekkoanim

import (
	"sync"

	"github.com/gekko3d/gekkoanim/anim/animation"
	"github.com/gekko3d/gekkoanim/anim/model"
	"github.com/google/uuid"
)

type AssetId string

// AssetServer holds the shared, read-only model and animation resources.
// Resources are addressed by id or by name; the last one added under a
// name wins.
type AssetServer struct {
	mu             sync.RWMutex
	log            Logger
	models         map[AssetId]*model.Model
	animations     map[AssetId]*animation.Animation
	modelNames     map[string]AssetId
	animationNames map[string]AssetId
}

var _ model.Resolver = (*AssetServer)(nil)

type AssetServerModule struct{}

func NewAssetServer(log Logger) *AssetServer {
	if log == nil {
		log = NewNopLogger()
	}
	return &AssetServer{
		log:            log,
		models:         make(map[AssetId]*model.Model),
		animations:     make(map[AssetId]*animation.Animation),
		modelNames:     make(map[string]AssetId),
		animationNames: make(map[string]AssetId),
	}
}

func (server *AssetServer) AddModel(m *model.Model) AssetId {
	id := makeAssetId()

	server.mu.Lock()
	defer server.mu.Unlock()
	server.models[id] = m
	server.modelNames[m.Name] = id
	return id
}

func (server *AssetServer) AddAnimation(a *animation.Animation) AssetId {
	id := makeAssetId()

	server.mu.Lock()
	defer server.mu.Unlock()
	server.animations[id] = a
	server.animationNames[a.Name()] = id
	return id
}

func (server *AssetServer) Model(id AssetId) *model.Model {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.models[id]
}

func (server *AssetServer) Animation(id AssetId) *animation.Animation {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.animations[id]
}

func (server *AssetServer) ModelByName(name string) *model.Model {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.models[server.modelNames[name]]
}

func (server *AssetServer) AnimationByName(name string) *animation.Animation {
	server.mu.RLock()
	defer server.mu.RUnlock()
	return server.animations[server.animationNames[name]]
}

// LoadModel is ModelByName with a warning for missing models.
func (server *AssetServer) LoadModel(name string) *model.Model {
	m := server.ModelByName(name)
	if m == nil {
		server.log.Warnf("assets: model %q not found", name)
	}
	return m
}

// LoadAnimation is AnimationByName with a warning for missing animations.
func (server *AssetServer) LoadAnimation(name string) *animation.Animation {
	a := server.AnimationByName(name)
	if a == nil {
		server.log.Warnf("assets: animation %q not found", name)
	}
	return a
}

// Remove drops the resource with id. Models and states already using it
// keep their reference.
func (server *AssetServer) Remove(id AssetId) {
	server.mu.Lock()
	defer server.mu.Unlock()
	if m, ok := server.models[id]; ok {
		delete(server.models, id)
		if server.modelNames[m.Name] == id {
			delete(server.modelNames, m.Name)
		}
	}
	if a, ok := server.animations[id]; ok {
		delete(server.animations, id)
		if server.animationNames[a.Name()] == id {
			delete(server.animationNames, a.Name())
		}
	}
}

func (AssetServerModule) Install(app *App, cmd *Commands) {
	app.addResources(NewAssetServer(app.Logger()))
}

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}
