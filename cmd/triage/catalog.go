package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jeevan-health/triage/internal/store"
	"github.com/jeevan-health/triage/pkg/schema"
)

func runImportCatalog(args []string) {
	cfg := mustConfig()
	fs := flag.NewFlagSet("import-catalog", flag.ExitOnError)
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "server database path")
	file := fs.String("file", "", "catalog file (YAML or JSON)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *file == "" {
		fatalf("-file is required")
	}

	cat, err := loadCatalog(*file)
	if err != nil {
		fatalf("%v", err)
	}

	ctx := context.Background()
	db, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		fatalf("%v", err)
	}
	defer db.Close()

	if err := store.NewCatalog(db).Import(ctx, cat); err != nil {
		fatalf("import failed: %v", err)
	}
	fmt.Printf("Imported %d symptoms and %d conditions into %s\n", len(cat.Symptoms), len(cat.Conditions), cfg.DBPath)
}

// loadCatalog reads a catalog file. YAML is a superset of JSON, so one
// decoder covers both. A missing symptom list is derived from the
// conditions.
func loadCatalog(path string) (schema.Catalog, error) {
	var cat schema.Catalog
	data, err := os.ReadFile(path)
	if err != nil {
		return cat, err
	}
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return cat, fmt.Errorf("parse %s: %w", path, err)
	}

	seen := map[string]bool{}
	for i, c := range cat.Conditions {
		if c.Name == "" {
			return cat, schema.Invalidf("conditions[%d]: name is required", i)
		}
		if seen[c.Name] {
			return cat, schema.Invalidf("conditions[%d]: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
		if !c.Risk.Valid() {
			return cat, schema.Invalidf("conditions[%d]: unknown risk %q", i, c.Risk)
		}
		for s, w := range c.Weights {
			if w < 0 {
				return cat, schema.Invalidf("conditions[%d]: weight for %q is negative", i, s)
			}
		}
	}

	if len(cat.Symptoms) == 0 {
		cat.Symptoms = symptomsOf(cat.Conditions)
	}
	return cat, nil
}

func symptomsOf(conditions []schema.Condition) []string {
	set := map[string]bool{}
	for _, c := range conditions {
		for _, s := range c.Symptoms {
			set[s] = true
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
