package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/chatdrawer/internal/suggestions"
)

// NewSuggestionsCmd creates the suggestions command
func NewSuggestionsCmd(g *globalOptions, deps *Dependencies) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "List suggested prompts for a page context",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.settings()
			if err != nil {
				return err
			}
			list := suggestions.For(cfg.PageContext)

			if asJSON {
				enc := json.NewEncoder(deps.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}

			fmt.Fprintln(deps.Stdout, assistantLabelStyle.Render("Suggestions for "+cfg.PageContext))
			for _, s := range list {
				fmt.Fprintf(deps.Stdout, "  %s  %s\n", s.Icon, s.Label)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
