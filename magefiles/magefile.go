//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/magefile/mage/target"
)

const shaderDir = "assets/shaders"

// Shaders compiles every GLSL stage under assets/shaders to SPIR-V.
func Shaders() error {
	var sources []string
	for _, pattern := range []string{"*.vert", "*.frag"} {
		matches, err := filepath.Glob(filepath.Join(shaderDir, pattern))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}

	if len(sources) == 0 {
		return fmt.Errorf("no shader sources in %s", shaderDir)
	}

	for _, src := range sources {
		dst := src + ".spv"
		rebuild, err := target.Path(dst, src)
		if err != nil {
			return err
		}
		if !rebuild {
			continue
		}
		if err := sh.RunV("glslc", src, "-o", dst); err != nil {
			return fmt.Errorf("compile %s: %w", src, err)
		}
	}
	return nil
}

// Build compiles the shaders and the viewer binary.
func Build() error {
	mg.Deps(Shaders)
	return sh.RunV("go", "build", "-o", filepath.Join("bin", "viewer"), "./cmd/viewer")
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Run builds and starts the viewer with an optional config file.
func Run() error {
	mg.Deps(Build)
	args := []string{}
	if cfg := os.Getenv("VIEWER_CONFIG"); cfg != "" {
		args = append(args, "-config", cfg)
	}
	return sh.RunV(filepath.Join("bin", "viewer"), args...)
}
