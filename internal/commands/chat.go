package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/diogo/chatdrawer/internal/config"
	"github.com/diogo/chatdrawer/internal/logging"
	"github.com/diogo/chatdrawer/internal/render"
	"github.com/diogo/chatdrawer/internal/session"
	"github.com/diogo/chatdrawer/internal/tui"
)

// NewChatCmd creates the chat command
func NewChatCmd(g *globalOptions, deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Open the chat drawer",
		Long: `Open the interactive chat drawer.

Suggestions for the current page context are offered below the prompt bar;
press Tab to pick one. The conversation lives only while the drawer is open:
Esc stops an answer in progress, a second Esc closes the drawer and discards
the conversation. An optional prompt argument is sent once on start.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.settings()
			if err != nil {
				return err
			}
			var prompt string
			if len(args) > 0 {
				prompt = args[0]
			}
			return runChat(deps, cfg, prompt)
		},
	}
}

func runChat(deps *Dependencies, cfg config.Config, prompt string) error {
	transport, release, err := deps.transport(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer release()

	closeLog, err := chatLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	tui.UpdateTheme(cfg.Markdown.Theme)

	drawer := session.NewDrawer(transport)
	drawer.SetContext(cfg.PageContext)

	return deps.TUI.Run(drawer, tui.Options{
		ModelName: cfg.Model,
		Render:    render.OptionsFromConfig(cfg.Markdown),
		Prompt:    prompt,
		Copy:      deps.Copy,
	})
}

// chatLogging keeps log output off the alternate screen. Debug logs go to
// chat.log in the config directory; anything less verbose is dropped.
func chatLogging(cfg config.Config) (func(), error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if level > zerolog.DebugLevel {
		logging.Discard()
		return func() {}, nil
	}

	dir, err := config.EnsureConfigDir()
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "chat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	if err := logging.SetupWriter(f, cfg.LogLevel, "json"); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() { _ = f.Close() }, nil
}
