package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 1920, cfg.Window.Width)
	require.Equal(t, 1080, cfg.Window.Height)
	require.Equal(t, float32(16), cfg.Renderer.MaxAnisotropy)
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[window]
width = 800
height = 600

[renderer]
validation = false
max_msaa_samples = 4

[overlay]
font_sizes = [12.0]

[log]
level = "debug"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 800, cfg.Window.Width)
	require.Equal(t, 600, cfg.Window.Height)
	require.False(t, cfg.Renderer.Validation)
	require.Equal(t, 4, cfg.Renderer.MaxMSAASamples)
	require.Equal(t, []float64{12}, cfg.Overlay.FontSizes)
	require.Equal(t, "debug", cfg.Log.Level)
	// untouched keys keep their defaults
	require.Equal(t, "Vulkan", cfg.Window.Title)
	require.Equal(t, Default().Assets, cfg.Assets)
}

func TestParseRejectsInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
	}{
		{"malformed", "[window\nwidth = 1"},
		{"zero width", "[window]\nwidth = 0"},
		{"negative height", "[window]\nheight = -5"},
		{"anisotropy", "[renderer]\nmax_anisotropy = 0.5"},
		{"msaa", "[renderer]\nmax_msaa_samples = 0"},
		{"no fonts", "[assets]\nfonts = []"},
		{"bad font size", "[overlay]\nfont_sizes = [0.0]"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			require.Error(t, Parse([]byte(tc.data), &cfg))
		})
	}
}

func TestOverlayDisabledNeedsNoFonts(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse([]byte("[overlay]\nenabled = false\n[assets]\nfonts = []"), &cfg))
}

func TestAssetPaths(t *testing.T) {
	a := Default().Assets
	require.Equal(t, filepath.Join("assets", "models", "viking_room.obj"), a.Path(a.Model))
	require.Equal(t, filepath.Join("assets", "shaders", "shader.vert.spv"), a.ShaderPath(a.VertexShader))
	require.Equal(t, "/abs/file.png", a.Path("/abs/file.png"))
}
