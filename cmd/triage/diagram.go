package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jeevan-health/triage/internal/diagram"
	"github.com/jeevan-health/triage/internal/store"
	"github.com/jeevan-health/triage/pkg/schema"
)

func runDiagram(args []string) {
	cfg := mustConfig()
	fs := flag.NewFlagSet("diagram", flag.ExitOnError)
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "server database path (with -id)")
	file := fs.String("file", "", "protocol definition file (JSON)")
	id := fs.String("id", "", "stored protocol id")
	format := fs.String("format", "ascii", "output format: ascii, mermaid, or image")
	trail := fs.String("trail", "", "comma-separated node ids to highlight")
	out := fs.String("o", "", "output file (default: stdout)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if (*file == "") == (*id == "") {
		fatalf("exactly one of -file or -id is required")
	}

	ctx := context.Background()
	var (
		g   *schema.ProtocolGraph
		err error
	)
	if *file != "" {
		g, err = readProtocolFile(*file)
	} else {
		g, err = readStoredProtocol(ctx, cfg.DBPath, *id)
	}
	if err != nil {
		fatalf("%v", err)
	}

	data, err := renderDiagram(ctx, g, *format, parseTrail(*trail))
	if err != nil {
		fatalf("%v", err)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fatalf("%v", err)
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(data); err != nil {
		fatalf("%v", err)
	}
}

func readProtocolFile(path string) (*schema.ProtocolGraph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var g schema.ProtocolGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &g, nil
}

func readStoredProtocol(ctx context.Context, dbPath, id string) (*schema.ProtocolGraph, error) {
	db, err := openStore(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return store.NewGraphs(db).Get(ctx, id)
}

func renderDiagram(ctx context.Context, g *schema.ProtocolGraph, format string, trail []schema.NodeID) ([]byte, error) {
	model, err := diagram.Build(g, trail)
	if err != nil {
		return nil, err
	}
	switch format {
	case "ascii":
		return []byte(diagram.RenderASCII(model)), nil
	case "mermaid":
		return []byte(diagram.RenderMermaid(model)), nil
	case "image":
		return diagram.RenderImage(ctx, model)
	default:
		return nil, schema.Invalidf("format must be ascii, mermaid, or image")
	}
}

func parseTrail(s string) []schema.NodeID {
	var ids []schema.NodeID
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, schema.NodeID(part))
		}
	}
	return ids
}
