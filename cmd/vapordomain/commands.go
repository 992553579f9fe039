package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/vapordomain/pkg/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// errScript reports that a script produced evaluation errors, which have
// already been printed.
var errScript = errors.New("script failed")

// RunOptions holds options for the run command.
type RunOptions struct {
	Name       string
	Mesh       bool
	JSONOutput bool
}

func newRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Evaluate a site script",
		Long: `Evaluate a script into a fresh document and print the resulting grid.

With --db the document is saved under --name, which defaults to the script's
base name. With --mesh every object is tessellated and triangle counts are
printed; --json writes the full result, meshes included, to stdout.`,
		Example: `  vapordomain run examples/site.vd
  vapordomain run examples/site.vd --mesh --mesh-cells 32
  vapordomain run examples/site.vd --db sites.db --name site-a`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], opts)
		},
	}

	cmd.Flags().String("db", "", "SQLite database to save the document to")
	cmd.Flags().Int("mesh-cells", 0, "marching cubes resolution")
	cmd.Flags().StringVar(&opts.Name, "name", "", "document name in the database")
	cmd.Flags().BoolVar(&opts.Mesh, "mesh", false, "tessellate the document")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "write the result as JSON")

	return cmd
}

func runRun(cmd *cobra.Command, path string, opts *RunOptions) error {
	ctx := cmd.Context()
	cfg := getConfig(ctx)
	logger := getLogger(ctx)

	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	app, err := NewApp(cfg, logger)
	if err != nil {
		return err
	}
	result := app.Evaluate(string(source), opts.Mesh || opts.JSONOutput)

	out := cmd.OutOrStdout()
	if opts.JSONOutput {
		enc := json.NewEncoder(out)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s:%d:%d: %s\n", path, e.Line, e.Col, e.Message)
		}
		return errScript
	}

	if !opts.JSONOutput {
		fmt.Fprint(out, result.Summary)
		if opts.Mesh {
			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Mesh", "Kind", "Triangles"})
			for _, m := range result.Meshes {
				t.AppendRow(table.Row{m.Name, m.Kind, len(m.Indices) / 3})
			}
			t.Render()
		}
	}

	if cfg.Store.Path == "" {
		return nil
	}
	name := opts.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	st, err := store.Open(cfg.Store.Path, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	id, err := app.Save(ctx, st, name)
	if err != nil {
		return err
	}
	if !opts.JSONOutput {
		fmt.Fprintf(out, "saved %q (%s) to %s\n", name, id, cfg.Store.Path)
	}
	return nil
}

func newShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a saved document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			app, err := NewApp(getConfig(ctx), getLogger(ctx))
			if err != nil {
				return err
			}
			if err := app.Load(ctx, st, args[0]); err != nil {
				return err
			}
			describe(cmd.OutOrStdout(), app.Document().Snapshot())
			return nil
		},
	}
	cmd.Flags().String("db", "", "SQLite database to read")
	return cmd
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			docs, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Objects", "Cracks", "Saved"})
			for _, d := range docs {
				t.AppendRow(table.Row{d.Name, d.Objects, d.Cracks, d.SavedAt.Format("2006-01-02 15:04:05")})
			}
			t.Render()
			return nil
		},
	}
	cmd.Flags().String("db", "", "SQLite database to read")
	return cmd
}

func newDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a saved document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()
			return st.Delete(cmd.Context(), args[0])
		},
	}
	cmd.Flags().String("db", "", "SQLite database to modify")
	return cmd
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	cfg := getConfig(cmd.Context())
	if cfg.Store.Path == "" {
		return nil, errors.New("no database: pass --db or set store.path")
	}
	return store.Open(cfg.Store.Path, getLogger(cmd.Context()))
}
