// Package commands provides CLI commands for chatdrawer.
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/chatdrawer/internal/config"
	"github.com/diogo/chatdrawer/internal/logging"
	"github.com/diogo/chatdrawer/internal/suggestions"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	endpoint  string
	model     string
	protocol  string
	context   string
	logLevel  string
	logFormat string
}

// settings loads the configuration and applies flag overrides
func (g *globalOptions) settings() (config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return cfg, err
	}
	if g.endpoint != "" {
		cfg.Endpoint = g.endpoint
	}
	if g.model != "" {
		cfg.Model = g.model
	}
	if g.protocol != "" {
		cfg.Protocol = g.protocol
	}
	if g.context != "" {
		cfg.PageContext = g.context
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.logFormat != "" {
		cfg.LogFormat = g.logFormat
	}
	return cfg, cfg.Validate()
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(nil)

// NewRootCmd builds the command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	deps = deps.withDefaults()
	g := &globalOptions{}
	q := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "chatdrawer [prompt]",
		Short: "Streaming chat assistant for the terminal",
		Long: `chatdrawer sends prompts to a text-generation endpoint and streams the
answer as it is generated. The endpoint receives the whole conversation and
answers with an AI SDK data stream or server-sent events.

Examples:
  chatdrawer "What tasks are urgent?"     Ask once and print the answer
  chatdrawer chat                         Open the chat drawer
  chatdrawer chat --context recipes       Offer recipe suggestions
  chatdrawer suggestions                  List suggested prompts
  cat notes.md | chatdrawer               Read prompt from stdin
  chatdrawer "Summarize" -o summary.md    Save the answer to a file`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.settings()
			if err != nil {
				return err
			}
			return logging.SetupWriter(deps.Stderr, cfg.LogLevel, cfg.LogFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "chatdrawer %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, err := readPrompt(deps, q.file, args)
			if err != nil {
				return err
			}
			if prompt == "" {
				return cmd.Help()
			}

			cfg, err := g.settings()
			if err != nil {
				return err
			}
			return runQuery(cmd.Context(), deps, cfg, prompt, *q)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.endpoint, "endpoint", "", "Text-generation endpoint URL")
	flags.StringVarP(&g.model, "model", "m", "", "Model name sent with each request")
	flags.StringVar(&g.protocol, "protocol", "", "Response framing: auto, data, sse or text")
	flags.StringVarP(&g.context, "context", "c", "", "Page context for suggestions ("+strings.Join(suggestions.Contexts(), ", ")+")")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&g.logFormat, "log-format", "", "Log format: console or json")

	cmd.Flags().StringVarP(&q.output, "output", "o", "", "Save the answer to a file")
	cmd.Flags().StringVarP(&q.file, "file", "f", "", "Read prompt from file")
	cmd.Flags().BoolVar(&q.copy, "copy", false, "Copy the answer to the clipboard")
	cmd.Flags().BoolVar(&q.raw, "raw", false, "Stream plain text even on a terminal")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.AddCommand(NewChatCmd(g, deps))
	cmd.AddCommand(NewSuggestionsCmd(g, deps))
	cmd.AddCommand(NewConfigCmd(g, deps))

	return cmd
}

// readPrompt picks the prompt from --file, piped stdin or the argument, in
// that order
func readPrompt(deps *Dependencies, file string, args []string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}

	if deps.StdinPiped() {
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	return "", nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Error"))
		os.Exit(1)
	}
}
