package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aboseley/subversion/internal/conflict"
	"github.com/aboseley/subversion/internal/types"
	"github.com/aboseley/subversion/internal/ui"
)

var (
	describeFormat string
	describePretty bool
)

var describeCmd = &cobra.Command{
	Use:   "describe <path>",
	Short: "Explain the conflicts recorded on a path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context) error {
			return runDescribe(ctx, args[0])
		})
	},
}

func init() {
	describeCmd.Flags().StringVar(&describeFormat, "format", "text", "output format: text or yaml")
	describeCmd.Flags().BoolVar(&describePretty, "pretty", false, "render the report as markdown")
}

type describeReport struct {
	Path       string   `yaml:"path"`
	Operation  string   `yaml:"operation"`
	Text       string   `yaml:"text,omitempty"`
	Properties string   `yaml:"properties,omitempty"`
	Tree       string   `yaml:"tree,omitempty"`
	Options    []string `yaml:"options,omitempty"`
}

func runDescribe(ctx context.Context, path string) error {
	c, err := conflict.Get(ctx, path, resolverContext())
	if err != nil {
		return err
	}

	text, props, tree := c.Conflicted()
	if !text && len(props) == 0 && !tree {
		fmt.Printf("%s is not conflicted\n", path)
		return nil
	}

	report := describeReport{
		Path:      path,
		Operation: string(c.Operation()),
	}
	if text {
		mime, err := c.TextMimeType()
		if err != nil {
			return err
		}
		report.Text = "content conflict"
		if types.IsBinaryMimeType(mime) {
			report.Text = "content conflict (binary, " + mime + ")"
		}
		options, err := c.TextOptions()
		if err != nil {
			return err
		}
		report.Options = appendOptionLines(report.Options, "text", options)
	}
	if len(props) > 0 {
		desc, err := c.PropDescription()
		if err != nil {
			return err
		}
		report.Properties = fmt.Sprintf("%s (%s)", desc, strings.Join(props, ", "))
		options, err := c.PropOptions()
		if err != nil {
			return err
		}
		report.Options = appendOptionLines(report.Options, "prop", options)
	}
	if tree {
		if err := c.GetTreeDetails(ctx); err != nil {
			// Keep describing; the description falls back to its generic
			// form without historical details.
			fmt.Fprintf(os.Stderr, "warning: tree conflict details: %v\n", err)
		}
		desc, err := c.TreeDescription()
		if err != nil {
			return err
		}
		report.Tree = desc
		options, err := c.TreeOptions()
		if err != nil {
			return err
		}
		report.Options = appendOptionLines(report.Options, "tree", options)
	}

	if describeFormat == "yaml" {
		return yaml.NewEncoder(os.Stdout).Encode(report)
	}
	if describePretty {
		fmt.Print(ui.RenderMarkdown(reportMarkdown(report)))
		return nil
	}

	fmt.Printf("%s\n", ui.RenderHeader(report.Path))
	if report.Text != "" {
		fmt.Printf("  text: %s\n", report.Text)
	}
	if report.Properties != "" {
		fmt.Printf("  properties: %s\n", report.Properties)
	}
	if report.Tree != "" {
		fmt.Printf("  tree: %s\n", report.Tree)
	}
	if len(report.Options) > 0 {
		fmt.Println(ui.RenderMuted("  applicable options:"))
		for _, line := range report.Options {
			fmt.Printf("    %s\n", line)
		}
	}
	return nil
}

func appendOptionLines(lines []string, kind string, options []*conflict.Option) []string {
	for _, o := range options {
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", kind, o.ID(), o.Describe()))
	}
	return lines
}

func reportMarkdown(r describeReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Conflicts on `%s`\n\n", r.Path)
	fmt.Fprintf(&b, "Operation: **%s**\n\n", r.Operation)
	if r.Text != "" {
		fmt.Fprintf(&b, "- **Text**: %s\n", r.Text)
	}
	if r.Properties != "" {
		fmt.Fprintf(&b, "- **Properties**: %s\n", r.Properties)
	}
	if r.Tree != "" {
		fmt.Fprintf(&b, "- **Tree**: %s\n", r.Tree)
	}
	if len(r.Options) > 0 {
		b.WriteString("\n## Applicable options\n\n")
		for _, line := range r.Options {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	return b.String()
}
