package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/vkngwrapper/model-viewer/internal/app"
	"github.com/vkngwrapper/model-viewer/internal/config"
	"github.com/vkngwrapper/model-viewer/internal/logging"
)

func init() {
	// SDL and the Vulkan surface must stay on the main thread.
	runtime.LockOSThread()
}

func run(cfg config.Config, logger *log.Logger) error {
	viewer, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	runErr := viewer.Run()
	closeErr := viewer.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}

// report logs err with its stack. Without a logger it builds one from the
// defaults, and writes to stderr directly if even that fails.
func report(logger *log.Logger, err error) {
	if logger == nil {
		logger, _ = logging.New(config.Default().Log)
	}

	if logger == nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		return
	}
	logger.Errorf("%+v", err)
}

func fatal(logger *log.Logger, err error) {
	report(logger, err)
	os.Exit(1)
}

func main() {
	configPath := flag.String("config", "viewer.toml", "path to a TOML config file; missing files use defaults")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(nil, err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fatal(nil, err)
	}

	if err := run(cfg, logger); err != nil {
		fatal(logger, err)
	}
}
