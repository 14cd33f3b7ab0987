// Package config loads engine and editor settings.
package config

import (
	"os"
	"strconv"
	"strings"

	jlconfig "github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

type Vec2 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type PhysicsSettings struct {
	Gravity     Vec2    `yaml:"gravity"`
	Timestep    float64 `yaml:"timestep"`
	Iterations  int     `yaml:"iterations"`
	MaxSubsteps int     `yaml:"max_substeps"`
}

type EditorSettings struct {
	GridSize         Vec2    `yaml:"grid_size"`
	DrawGrid         bool    `yaml:"draw_grid"`
	GridStrokeWidth  float64 `yaml:"grid_stroke_width"`
	DragSharpness    float64 `yaml:"drag_sharpness"`
	MinZoom          float64 `yaml:"min_zoom"`
	MaxZoom          float64 `yaml:"max_zoom"`
	ZoomSteps        int     `yaml:"zoom_steps"`
	ZoomTweenSeconds float64 `yaml:"zoom_tween_seconds"`
	KeyDebounce      float64 `yaml:"key_debounce"`
}

type GeneralSettings struct {
	CurrentScene    string `yaml:"current_scene"`
	ScriptModule    string `yaml:"script_module"`
	ScriptModuleTmp string `yaml:"script_module_tmp"`
	SnapshotDir     string `yaml:"snapshot_dir"`
}

type Settings struct {
	Physics PhysicsSettings `yaml:"physics"`
	Editor  EditorSettings  `yaml:"editor"`
	General GeneralSettings `yaml:"general"`
}

// envOverrides are read from the process environment after the YAML file.
type envOverrides struct {
	Scene           string `config:"COCOA_SCENE"`
	ScriptModule    string `config:"COCOA_SCRIPT_MODULE"`
	ScriptModuleTmp string `config:"COCOA_SCRIPT_MODULE_TMP"`
	GravityY        string `config:"COCOA_GRAVITY_Y"`
}

func Default() Settings {
	return Settings{
		Physics: PhysicsSettings{
			Gravity:     Vec2{X: 0, Y: -9.8},
			Timestep:    1.0 / 60.0,
			Iterations:  10,
			MaxSubsteps: 8,
		},
		Editor: EditorSettings{
			GridSize:         Vec2{X: 32, Y: 32},
			DrawGrid:         true,
			GridStrokeWidth:  1,
			DragSharpness:    15,
			MinZoom:          0.3,
			MaxZoom:          100,
			ZoomSteps:        100,
			ZoomTweenSeconds: 0.12,
			KeyDebounce:      0.1,
		},
		General: GeneralSettings{
			ScriptModule:    "scripts/module.tengo",
			ScriptModuleTmp: "scripts/module.tengo.tmp",
		},
	}
}

// Load reads settings from a YAML file over the defaults, then applies the
// environment overlay. A missing file is not an error.
func Load(path string) (Settings, error) {
	settings := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &settings); err != nil {
				return Settings{}, eris.Wrapf(err, "config: unmarshal %s", path)
			}
		case os.IsNotExist(err):
		default:
			return Settings{}, eris.Wrapf(err, "config: read %s", path)
		}
	}
	if err := settings.ApplyEnv(); err != nil {
		return Settings{}, err
	}
	return settings, settings.Validate()
}

// ApplyEnv overrides paths and gravity from COCOA_* variables.
func (s *Settings) ApplyEnv() error {
	var env envOverrides
	if err := jlconfig.FromEnv().To(&env); err != nil {
		return eris.Wrap(err, "config: read environment")
	}
	if env.Scene != "" {
		s.General.CurrentScene = env.Scene
	}
	if env.ScriptModule != "" {
		s.General.ScriptModule = env.ScriptModule
	}
	if env.ScriptModuleTmp != "" {
		s.General.ScriptModuleTmp = env.ScriptModuleTmp
	}
	if env.GravityY != "" {
		g, err := strconv.ParseFloat(env.GravityY, 64)
		if err != nil {
			return eris.Wrapf(err, "config: COCOA_GRAVITY_Y=%q", env.GravityY)
		}
		s.Physics.Gravity.Y = g
	}
	return nil
}

func (s Settings) Validate() error {
	if s.Physics.Timestep <= 0 {
		return eris.Errorf("config: physics.timestep must be positive, got %v", s.Physics.Timestep)
	}
	if s.Physics.MaxSubsteps < 1 {
		return eris.Errorf("config: physics.max_substeps must be at least 1, got %d", s.Physics.MaxSubsteps)
	}
	if s.Editor.MinZoom <= 0 || s.Editor.MaxZoom <= s.Editor.MinZoom {
		return eris.Errorf("config: editor zoom range [%v, %v] is invalid", s.Editor.MinZoom, s.Editor.MaxZoom)
	}
	if s.Editor.ZoomSteps < 2 {
		return eris.Errorf("config: editor.zoom_steps must be at least 2, got %d", s.Editor.ZoomSteps)
	}
	return nil
}

// Save writes settings as YAML.
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "config: marshal")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "config: write %s", path)
	}
	return nil
}
