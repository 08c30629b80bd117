package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jeevan-health/triage/internal/logging"
)

const usage = `usage: triage <command> [flags]

commands:
  serve           run the triage HTTP server
  agent           run the offline-first field agent (MCP over stdio)
  init            write ~/.triage/settings.yaml and reload a running server
  import-catalog  load symptoms and conditions from a YAML or JSON file
  diagram         draw a protocol as ascii, mermaid or png
  version         print the version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		runServe(args)
	case "agent":
		runAgent(args)
	case "init":
		runInit(args)
	case "import-catalog":
		runImportCatalog(args)
	case "diagram":
		runDiagram(args)
	case "version", "-v", "--version":
		printVersion()
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
}

// mustConfig loads the layered configuration or exits.
func mustConfig() Config {
	cfg, err := loadConfig()
	if err != nil {
		fatalf("cannot load configuration: %v", err)
	}
	return cfg
}

// newLogger builds the process logger. The returned LevelVar lets a
// reload change the level without rebuilding handlers.
func newLogger(cfg Config) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	lvl, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info\n", err)
	}
	level.Set(lvl)
	return logging.New(os.Stderr, level, cfg.LogFormat), level
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
