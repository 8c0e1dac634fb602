package main

import (
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/leapstack-labs/regionmap/internal/cli"
	"github.com/leapstack-labs/regionmap/internal/config"
	"github.com/spf13/pflag"
)

// keyDescriptions documents every configuration key.
var keyDescriptions = map[string]string{
	"data_dir":              "Root of the default input locations",
	"regions_dir":           "Directory of region files; defaults to <data_dir>/regions",
	"organizations_path":    "Organizations CSV; defaults to <data_dir>/analytic/organizations.csv",
	"analytic_path":         "Analytic CSV to join; not joined when empty",
	"max_file_size":         "Largest input file accepted, in bytes",
	"state_path":            "Load-history database; :memory: keeps it in memory",
	"server.host":           "Address the dashboard listens on",
	"server.port":           "Port the dashboard listens on",
	"server.watch":          "Rebuild the table when an input file changes",
	"server.session_secret": "Key signing the session cookie; random per process when empty",
	"log.level":             "debug, info, warn or error",
	"log.format":            "text or json",
	"log.file":              "Write logs to this file, rotated, instead of stderr",
	"log.max_size_mb":       "Rotate the log file at this size",
	"log.max_backups":       "Rotated log files to keep",
	"log.max_age_days":      "Days to keep rotated log files",
	"log.compress":          "Gzip rotated log files",
	"output":                "auto, text, markdown or json; auto is text on a terminal and markdown otherwise",
	"verbose":               "Log at debug level when log.level is left at info",
}

// generateConfigDocs generates the configuration reference.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating config docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	flags := configFlags()
	defaults := config.Defaults()

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "Configuration reference for regionmap")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("regionmap reads %s (or %s) from the first directory, searching upward from the "+
		"working directory, that has one. Relative paths in the file resolve against that directory; "+
		"relative paths given as flags resolve against the working directory.",
		InlineCode(config.ConfigFileName), InlineCode(config.ConfigFileNameAlt)))

	w.Header(2, "Keys")
	var rows [][]string
	for _, key := range slices.Sorted(maps.Keys(defaults)) {
		flag := ""
		if name, ok := flags[key]; ok {
			flag = InlineCode("--" + name)
		}
		def := fmt.Sprintf("%v", defaults[key])
		if def != "" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode(key), InlineCode(envVar(key)), flag, def, keyDescriptions[key]})
	}
	w.Table([]string{"Key", "Environment", "Flag", "Default", "Description"}, rows)

	w.Header(2, "Example")
	w.CodeBlock("yaml", `data_dir: data
analytic_path: data/analytic/data.csv
state_path: .regionmap/state.db

server:
  host: 0.0.0.0
  port: 8050
  watch: true

log:
  level: info
  format: json
  file: logs/regionmap.log`)

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600)
}

// configFlags maps config keys to the flags that set them.
func configFlags() map[string]string {
	root := cli.NewRootCmd()
	out := map[string]string{}
	visit := func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		out[config.FlagKey(f.Name)] = f.Name
	}
	root.PersistentFlags().VisitAll(visit)
	for _, cmd := range root.Commands() {
		cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
			if _, ok := keyDescriptions[config.FlagKey(f.Name)]; ok {
				visit(f)
			}
		})
	}
	return out
}

// envVar returns the environment variable that sets key.
func envVar(key string) string {
	return config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}
