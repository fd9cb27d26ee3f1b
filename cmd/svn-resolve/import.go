package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aboseley/subversion/internal/types"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import conflict records from a YAML file",
	Long: `Import loads conflict descriptors and move records into the metadata
store, typically produced by an update or merge driver. Existing records
for the same path and kind are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context) error {
			return runImport(ctx, args[0])
		})
	},
}

// importFile is the on-disk import format.
type importFile struct {
	Conflicts []types.Descriptor `yaml:"conflicts"`
	Moves     []importMove       `yaml:"moves"`
}

type importMove struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

func runImport(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file importFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %q: %w", path, err)
	}

	for _, desc := range file.Conflicts {
		if !desc.Kind.IsValid() {
			return fmt.Errorf("conflict on %q: invalid kind %q", desc.LocalPath, desc.Kind)
		}
		if desc.LocalPath == "" {
			return fmt.Errorf("conflict record without a local path")
		}
		if err := store.RecordConflict(ctx, desc); err != nil {
			return err
		}
	}
	for _, mv := range file.Moves {
		if mv.From == "" || mv.To == "" {
			return fmt.Errorf("move record needs both from and to")
		}
		if err := store.RecordMove(ctx, mv.From, mv.To); err != nil {
			return err
		}
	}

	fmt.Printf("imported %d conflicts, %d moves\n", len(file.Conflicts), len(file.Moves))
	return nil
}
