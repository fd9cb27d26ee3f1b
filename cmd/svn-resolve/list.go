package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aboseley/subversion/internal/conflict"
	"github.com/aboseley/subversion/internal/ui"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List conflicted paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), runList)
	},
}

func init() {
	listCmd.Flags().StringVar(&listFormat, "format", "text", "output format: text or yaml")
}

type listEntry struct {
	Path       string   `yaml:"path"`
	Text       bool     `yaml:"text,omitempty"`
	Properties []string `yaml:"properties,omitempty"`
	Tree       bool     `yaml:"tree,omitempty"`
}

func runList(ctx context.Context) error {
	paths, err := store.ConflictedPaths(ctx)
	if err != nil {
		return err
	}

	var entries []listEntry
	for _, path := range paths {
		c, err := conflict.Get(ctx, path, resolverContext())
		if err != nil {
			return err
		}
		text, props, tree := c.Conflicted()
		entries = append(entries, listEntry{
			Path: path, Text: text, Properties: props, Tree: tree,
		})
	}

	if listFormat == "yaml" {
		return yaml.NewEncoder(os.Stdout).Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println(ui.RenderMuted("no conflicts recorded"))
		return nil
	}
	for _, e := range entries {
		var kinds []string
		if e.Text {
			kinds = append(kinds, "text")
		}
		for _, p := range e.Properties {
			kinds = append(kinds, "prop:"+p)
		}
		if e.Tree {
			kinds = append(kinds, "tree")
		}
		fmt.Printf("%s %s  %s\n",
			ui.RenderConflict(ui.IconConflict), e.Path,
			ui.RenderMuted(strings.Join(kinds, ", ")))
	}
	return nil
}
