// Package main generates the markdown reference for the regionmap CLI and
// configuration from the command tree and the configuration defaults.
//
// Usage:
//
//	go run ./scripts/gendocs -gen=cli -outdir=docs/cli
//	go run ./scripts/gendocs -gen=config -outdir=docs/config
//	go run ./scripts/gendocs -gen=all
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

var (
	genFlag    = flag.String("gen", "all", "what to generate: cli, config, all")
	outDirFlag = flag.String("outdir", "", "output directory (defaults based on gen type)")
)

func main() {
	flag.Parse()

	// Find project root (where go.mod is)
	projectRoot, err := findProjectRoot()
	if err != nil {
		log.Fatalf("failed to find project root: %v", err)
	}
	log.Printf("Project root: %s", projectRoot)

	if err := generate(*genFlag, projectRoot, *outDirFlag); err != nil {
		log.Fatal(err)
	}
	log.Println("Done!")
}

// generate writes the pages named by gen. outDir overrides the default
// location under <projectRoot>/docs for a single generator.
func generate(gen, projectRoot, outDir string) error {
	dirFor := func(def string) string {
		if outDir != "" && gen != "all" {
			return outDir
		}
		return filepath.Join(projectRoot, "docs", def)
	}

	switch gen {
	case "cli":
		return generateCLIDocs(dirFor("cli"))
	case "config":
		return generateConfigDocs(dirFor("config"))
	case "all":
		if err := generateCLIDocs(dirFor("cli")); err != nil {
			return fmt.Errorf("failed to generate CLI docs: %w", err)
		}
		if err := generateConfigDocs(dirFor("config")); err != nil {
			return fmt.Errorf("failed to generate config docs: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown -gen value: %s (use: cli, config, all)", gen)
	}
}

// findProjectRoot walks up from current directory to find go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
