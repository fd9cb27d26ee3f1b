package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aboseley/subversion/internal/conflict"
	"github.com/aboseley/subversion/internal/types"
)

var (
	resolveKind   string
	resolveOption string
	resolveProp   string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>",
	Short: "Resolve a conflict on a path",
	Long: `Resolve applies a resolution option to one of the conflicts recorded on
the path. Without --option, an interactive picker offers the applicable
options for the chosen conflict kind.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context) error {
			return runResolve(ctx, args[0])
		})
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveKind, "kind", "", "conflict kind: text, prop or tree (default: inferred)")
	resolveCmd.Flags().StringVar(&resolveOption, "option", "", "resolution option identifier")
	resolveCmd.Flags().StringVar(&resolveProp, "prop", "", "property name (empty resolves all conflicted properties)")
}

func runResolve(ctx context.Context, path string) error {
	c, err := conflict.Get(ctx, path, resolverContext())
	if err != nil {
		return err
	}

	text, props, tree := c.Conflicted()
	kind := resolveKind
	if kind == "" {
		// Infer the kind when the path has exactly one kind of conflict.
		switch {
		case text && len(props) == 0 && !tree:
			kind = "text"
		case !text && len(props) > 0 && !tree:
			kind = "prop"
		case !text && len(props) == 0 && tree:
			kind = "tree"
		default:
			return fmt.Errorf("%q has multiple conflict kinds; pass --kind", path)
		}
	}

	var options []*conflict.Option
	switch kind {
	case "text":
		options, err = c.TextOptions()
	case "prop":
		options, err = c.PropOptions()
	case "tree":
		options, err = c.TreeOptions()
	default:
		return fmt.Errorf("unknown conflict kind %q", kind)
	}
	if err != nil {
		return err
	}

	id := types.OptionID(resolveOption)
	if id == "" || id == types.OptionUnspecified {
		id, err = pickOption(c, kind, options)
		if err != nil {
			return err
		}
	}

	switch kind {
	case "text":
		return c.ResolveTextByID(ctx, id)
	case "prop":
		return c.ResolvePropByID(ctx, resolveProp, id)
	default:
		return c.ResolveTreeByID(ctx, id)
	}
}

// pickOption runs the interactive option picker. It refuses to guess when
// stdin is not a terminal.
func pickOption(c *conflict.Conflict, kind string, options []*conflict.Option) (types.OptionID, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no --option given and stdin is not a terminal")
	}

	choices := make([]huh.Option[string], len(options))
	for i, o := range options {
		choices[i] = huh.NewOption(
			fmt.Sprintf("%s: %s", o.ID(), o.Describe()),
			string(o.ID()),
		)
	}

	var picked string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Resolve %s conflict on %s", kind, c.LocalPath())).
				Options(choices...).
				Value(&picked),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return types.OptionID(picked), nil
}
