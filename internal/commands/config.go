package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/diogo/chatdrawer/internal/config"
)

// NewConfigCmd creates the config command
func NewConfigCmd(g *globalOptions, deps *Dependencies) *cobra.Command {
	var showPath bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after applying the config file, environment
variables and flags. Header values are masked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showPath {
				path, err := config.GetConfigPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(deps.Stdout, path)
				return nil
			}

			cfg, err := g.settings()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(maskHeaders(cfg), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintln(deps.Stdout, string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPath, "path", false, "Print the config file path")

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file already exists: %s", path)
			}
			if err := config.SaveConfig(config.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(deps.Stdout, "✓ Wrote %s\n", path)
			return nil
		},
	})

	return cmd
}

func maskHeaders(cfg config.Config) config.Config {
	if len(cfg.Headers) == 0 {
		return cfg
	}
	masked := make(map[string]string, len(cfg.Headers))
	for k := range cfg.Headers {
		masked[k] = "********"
	}
	cfg.Headers = masked
	return cfg
}
