package gekkoanim

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

type AnimationConfig struct {
	LodBias         float32 `yaml:"animation_lod_bias"`
	UpdateInvisible bool    `yaml:"update_invisible"`
	MaxSkinBones    int     `yaml:"max_skin_bones"`
	SkinWorkers     int     `yaml:"skin_workers"` // 0 skins on the main goroutine
}

type ViewConfig struct {
	Position     [3]float32 `yaml:"position"`
	LodBias      float32    `yaml:"lod_bias"`
	DrawDistance float32    `yaml:"draw_distance"` // 0 draws everything
}

type Config struct {
	LogPrefix     string  `yaml:"log_prefix"`
	Debug         bool    `yaml:"debug"`
	FixedTimeStep float32 `yaml:"fixed_time_step"` // seconds, 0 uses wall clock time

	Animation AnimationConfig `yaml:"animation"`
	View      ViewConfig      `yaml:"view"`
}

func DefaultConfig() Config {
	return Config{
		LogPrefix: "anim",
		Animation: AnimationConfig{
			LodBias:      1,
			MaxSkinBones: 64,
			SkinWorkers:  4,
		},
		View: ViewConfig{
			LodBias: 1,
		},
	}
}

// LoadConfig reads a yaml config over the defaults. A missing file yields
// the defaults.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return DefaultConfig(), fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

func SaveConfig(path string, c Config) error {
	b, err := yaml.Marshal(&c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return os.WriteFile(path, b, 0644)
}
