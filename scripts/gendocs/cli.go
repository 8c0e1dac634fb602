package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/regionmap/internal/cli"
	"github.com/leapstack-labs/regionmap/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// commandGroup is a section of the CLI index.
type commandGroup struct {
	Title    string
	Intro    string
	Commands []*cobra.Command
}

// groupOrder places every command under a section of the index. Commands
// not listed land in "Other".
var groupOrder = []struct {
	title string
	intro string
	names []string
}{
	{"Dashboard", "Serve the map and keep it in sync with the data directory.", []string{"serve"}},
	{"Inputs", "Validate, inspect and export the region table without starting a server.", []string{"check", "regions", "region", "export"}},
	{"History", "Every build of the region table is recorded in the state database.", []string{"runs"}},
}

// groupCommands splits the documented subcommands of root into index sections.
func groupCommands(root *cobra.Command) []commandGroup {
	byName := map[string]*cobra.Command{}
	for _, cmd := range root.Commands() {
		if cmd.Hidden || cmd.Name() == "help" {
			continue
		}
		byName[cmd.Name()] = cmd
	}

	var groups []commandGroup
	for _, g := range groupOrder {
		group := commandGroup{Title: g.title, Intro: g.intro}
		for _, name := range g.names {
			if cmd, ok := byName[name]; ok {
				group.Commands = append(group.Commands, cmd)
				delete(byName, name)
			}
		}
		if len(group.Commands) > 0 {
			groups = append(groups, group)
		}
	}

	other := commandGroup{Title: "Other"}
	for _, cmd := range root.Commands() {
		if _, ok := byName[cmd.Name()]; ok {
			other.Commands = append(other.Commands, cmd)
		}
	}
	if len(other.Commands) > 0 {
		groups = append(groups, other)
	}
	return groups
}

// generateCLIDocs writes docs/cli: an index of command groups and one page
// per command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	groups := groupCommands(root)

	pages := map[string][]byte{"index.md": cliIndex(root, groups)}
	for _, g := range groups {
		for _, cmd := range g.Commands {
			pages[cmd.Name()+".md"] = commandPage(cmd, g.Title)
		}
	}
	for name, body := range pages {
		if err := os.WriteFile(filepath.Join(outDir, name), body, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		log.Printf("  Generated %s", name)
	}
	return nil
}

func cliIndex(root *cobra.Command, groups []commandGroup) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for regionmap")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(root.Long)
	w.CodeBlock("bash", "go install github.com/leapstack-labs/regionmap/cmd/regionmap@latest\nregionmap check\nregionmap serve")

	for _, g := range groups {
		w.Header(2, g.Title)
		if g.Intro != "" {
			w.Paragraph(g.Intro)
		}
		var rows [][]string
		for _, cmd := range g.Commands {
			link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
			rows = append(rows, []string{link, cleanDescription(cmd.Short)})
		}
		w.Table([]string{"Command", "Description"}, rows)
	}

	w.Header(2, "Global Options")
	w.Paragraph("Every command accepts these flags. Flags that set a configuration key override " +
		"the environment and the config file.")
	flagTable(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph(fmt.Sprintf("Every configuration key can be set as %s followed by the upper-cased key, "+
		"with %s separating nested keys, for example %s. A %s file in the project root is read first "+
		"and never overrides variables already set. See the [configuration reference](/config/) for all keys.",
		InlineCode(config.EnvPrefix), InlineCode("__"), InlineCode(envVar("server.port")), InlineCode(".env")))

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Invalid input, configuration or flags; details on stderr"},
	})
	return w.Bytes()
}

func commandPage(cmd *cobra.Command, group string) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	w.Paragraph(fmt.Sprintf("*%s*", group))
	if cmd.Long != "" {
		w.Paragraph(cmd.Long)
	} else {
		w.Paragraph(cmd.Short)
	}

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())

	if len(cmd.ValidArgs) > 0 {
		w.Header(2, "Arguments")
		args := make([]string, 0, len(cmd.ValidArgs))
		for _, a := range cmd.ValidArgs {
			args = append(args, InlineCode(a))
		}
		w.BulletList(args)
	}

	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		flagTable(w, cmd.LocalFlags())
	}
	if cmd.HasInheritedFlags() {
		w.Paragraph("Global options are listed in the [CLI reference](/cli/).")
	}

	if ex := exampleText(cmd.Example); ex != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", ex)
	}
	return w.Bytes()
}

// flagTable lists flags with the configuration key each one sets.
func flagTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := InlineCode("--" + f.Name)
		if f.Shorthand != "" {
			name += ", " + InlineCode("-"+f.Shorthand)
		}
		def := f.DefValue
		if def != "" && f.Value.Type() != "bool" {
			def = InlineCode(def)
		}
		key := ""
		if k := config.FlagKey(f.Name); keyDescriptions[k] != "" {
			key = InlineCode(k)
		}
		rows = append(rows, []string{name, def, key, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Flag", "Default", "Config key", "Description"}, rows)
}

// exampleText strips the two-space indent command examples are written with.
func exampleText(example string) string {
	lines := strings.Split(strings.Trim(example, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, "  ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
