package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"reasoncare-orchestrator/pkg/registry"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) < 1 {
		help(out)
		return fmt.Errorf("command is required")
	}

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("list", flag.ContinueOnError)
		path := fs.String("path", "", "Catalog file (built-in roster when empty)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		reg, err := load(*path)
		if err != nil {
			return err
		}
		return list(reg, out)

	case "show":
		fs := flag.NewFlagSet("show", flag.ContinueOnError)
		path := fs.String("path", "", "Catalog file (built-in roster when empty)")
		id := fs.String("id", "", "Role id (e.g., cardiologist_agent)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" {
			return fmt.Errorf("id is required for show")
		}
		reg, err := load(*path)
		if err != nil {
			return err
		}
		role, ok := reg.Lookup(*id)
		if !ok {
			return fmt.Errorf("role %s not found", *id)
		}
		return writeJSON(out, role)

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		path := fs.String("path", "configs/agents.json", "Catalog file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		reg, err := registry.LoadRegistry(*path)
		if err != nil {
			return fmt.Errorf("catalog validation failed: %w", err)
		}
		if _, ok := reg.Lookup(registry.POVSummaryAgent); !ok {
			return fmt.Errorf("catalog validation failed: %s is required for synthesis", registry.POVSummaryAgent)
		}
		fmt.Fprintf(out, "Catalog validation passed. Found %d roles.\n", reg.Len())
		return nil

	case "export":
		fs := flag.NewFlagSet("export", flag.ContinueOnError)
		path := fs.String("path", "configs/agents.json", "Destination file")
		version := fs.String("version", "1.0.0", "Catalog version")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		catalog := registry.Default().Catalog(*version)
		catalog.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		if err := save(catalog, *path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Exported %d roles to %s\n", len(catalog.Roles), *path)
		return nil

	case "set-model":
		fs := flag.NewFlagSet("set-model", flag.ContinueOnError)
		path := fs.String("path", "configs/agents.json", "Catalog file")
		id := fs.String("id", "", "Role id")
		model := fs.String("model", "", "New model id")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *id == "" || *model == "" {
			return fmt.Errorf("id and model are required for set-model")
		}
		if err := setModel(*path, *id, *model); err != nil {
			return err
		}
		fmt.Fprintf(out, "Updated %s to model %s\n", *id, *model)
		return nil

	case "help":
		help(out)
		return nil

	default:
		help(out)
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func load(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default(), nil
	}
	return registry.LoadRegistry(path)
}

func list(reg *registry.Registry, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSPECIALIZATION\tMODEL\tROLE")
	for _, id := range reg.IDs() {
		role, _ := reg.Lookup(id)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", role.ID, role.Specialization, role.ModelID, role.Description)
	}
	return tw.Flush()
}

func setModel(path, id, model string) error {
	catalog, err := registry.LoadCatalog(path)
	if err != nil {
		return err
	}

	found := false
	for i := range catalog.Roles {
		if catalog.Roles[i].ID == id {
			catalog.Roles[i].ModelID = model
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("role %s not found", id)
	}
	if _, err := registry.New(catalog.Roles); err != nil {
		return err
	}

	catalog.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	return save(*catalog, path)
}

func save(catalog registry.Catalog, path string) error {
	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func help(out io.Writer) {
	fmt.Fprintln(out, `
Usage: agent-catalog <command> [flags]

Commands:
  list       List roles (built-in roster or -path catalog)
  show       Show one role as JSON
  validate   Validate a catalog file
  export     Write the built-in roster to a catalog file
  set-model  Change the model of one role in a catalog file
  help       Show this help message

Examples:
  agent-catalog list
  agent-catalog show -id cardiologist_agent
  agent-catalog export -path configs/agents.json -version 1.1.0
  agent-catalog set-model -path configs/agents.json -id reasoning_agent -model anthropic.claude-3-haiku-20240307-v1:0
  agent-catalog validate -path configs/agents.json`)
}
