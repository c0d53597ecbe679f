package config

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Overlay  OverlayConfig  `toml:"overlay"`
	Log      LogConfig      `toml:"log"`
}

type WindowConfig struct {
	Title     string `toml:"title"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	Resizable bool   `toml:"resizable"`
}

type RendererConfig struct {
	Validation       bool       `toml:"validation"`
	PreferMailbox    bool       `toml:"prefer_mailbox"`
	MaxAnisotropy    float32    `toml:"max_anisotropy"`
	MaxMSAASamples   int        `toml:"max_msaa_samples"`
	ClearColor       [4]float32 `toml:"clear_color"`
	HotReloadShaders bool       `toml:"hot_reload_shaders"`
}

type AssetsConfig struct {
	Root           string   `toml:"root"`
	Model          string   `toml:"model"`
	Material       string   `toml:"material"`
	Texture        string   `toml:"texture"`
	ShaderDir      string   `toml:"shader_dir"`
	VertexShader   string   `toml:"vertex_shader"`
	FragmentShader string   `toml:"fragment_shader"`
	UIVertex       string   `toml:"ui_vertex_shader"`
	UIFragment     string   `toml:"ui_fragment_shader"`
	Fonts          []string `toml:"fonts"`
}

type OverlayConfig struct {
	Enabled   bool      `toml:"enabled"`
	FontSizes []float64 `toml:"font_sizes"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Prefix string `toml:"prefix"`
}

func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:     "Vulkan",
			Width:     1920,
			Height:    1080,
			Resizable: true,
		},
		Renderer: RendererConfig{
			Validation:     true,
			PreferMailbox:  true,
			MaxAnisotropy:  16,
			MaxMSAASamples: 64,
			ClearColor:     [4]float32{0, 0, 0, 1},
		},
		Assets: AssetsConfig{
			Root:           "assets",
			Model:          "models/viking_room.obj",
			Texture:        "textures/viking_room.png",
			ShaderDir:      "shaders",
			VertexShader:   "shader.vert.spv",
			FragmentShader: "shader.frag.spv",
			UIVertex:       "ui.vert.spv",
			UIFragment:     "ui.frag.spv",
			Fonts:          []string{"fonts/DroidSans.ttf"},
		},
		Overlay: OverlayConfig{
			Enabled:   true,
			FontSizes: []float64{16, 20, 24},
		},
		Log: LogConfig{
			Level:  "info",
			Prefix: "viewer",
		},
	}
}

// Load reads the TOML file at path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrapf(err, "config: read %s", path)
	}

	if err := Parse(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: %s", path)
	}

	return cfg, nil
}

func Parse(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return errors.Wrapf(err, "parse error at line %d column %d", row, col)
		}
		return errors.Wrap(err, "parse")
	}

	return cfg.Validate()
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.MaxAnisotropy < 1 {
		return errors.Newf("max_anisotropy must be at least 1, got %v", c.Renderer.MaxAnisotropy)
	}
	if c.Renderer.MaxMSAASamples < 1 {
		return errors.Newf("max_msaa_samples must be at least 1, got %d", c.Renderer.MaxMSAASamples)
	}
	if c.Assets.Model == "" || c.Assets.Texture == "" {
		return errors.New("assets.model and assets.texture are required")
	}
	if c.Overlay.Enabled {
		if len(c.Assets.Fonts) == 0 {
			return errors.New("overlay enabled but assets.fonts is empty")
		}
		if len(c.Overlay.FontSizes) == 0 {
			return errors.New("overlay enabled but overlay.font_sizes is empty")
		}
		for _, size := range c.Overlay.FontSizes {
			if size <= 0 {
				return errors.Newf("overlay font size must be positive, got %v", size)
			}
		}
	}

	return nil
}

// Path resolves an asset path relative to the asset root.
func (a AssetsConfig) Path(rel string) string {
	if rel == "" || filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(a.Root, rel)
}

func (a AssetsConfig) ShaderPath(name string) string {
	return a.Path(filepath.Join(a.ShaderDir, name))
}
