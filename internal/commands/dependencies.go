package commands

import (
	"io"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/diogo/chatdrawer/internal/api"
	"github.com/diogo/chatdrawer/internal/config"
	"github.com/diogo/chatdrawer/internal/session"
	"github.com/diogo/chatdrawer/internal/stream"
	"github.com/diogo/chatdrawer/internal/tui"
)

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	Run(d *session.Drawer, opts tui.Options) error
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// Transport overrides the HTTP client built from the configuration.
	Transport api.Transport

	// TUI is the terminal user interface.
	TUI TUIInterface

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// StdinPiped reports whether a prompt should be read from Stdin.
	StdinPiped func() bool
	// StdoutTTY reports whether stdout is a terminal.
	StdoutTTY func() bool
	// TermWidth returns the width of the terminal.
	TermWidth func() int
	// Copy writes text to the clipboard.
	Copy func(string) error
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) Run(drawer *session.Drawer, opts tui.Options) error {
	return tui.Run(drawer, opts)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		TUI:        &DefaultTUI{},
		Stdin:      os.Stdin,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		StdinPiped: isStdinPiped,
		StdoutTTY:  isStdoutTTY,
		TermWidth:  getTerminalWidth,
		Copy:       clipboard.WriteAll,
	}
}

// withDefaults fills unset fields so tests only set what they need
func (d *Dependencies) withDefaults() *Dependencies {
	out := NewDependencies()
	if d == nil {
		return out
	}
	if d.Transport != nil {
		out.Transport = d.Transport
	}
	if d.TUI != nil {
		out.TUI = d.TUI
	}
	if d.Stdin != nil {
		out.Stdin = d.Stdin
	}
	if d.Stdout != nil {
		out.Stdout = d.Stdout
	}
	if d.Stderr != nil {
		out.Stderr = d.Stderr
	}
	if d.StdinPiped != nil {
		out.StdinPiped = d.StdinPiped
	}
	if d.StdoutTTY != nil {
		out.StdoutTTY = d.StdoutTTY
	}
	if d.TermWidth != nil {
		out.TermWidth = d.TermWidth
	}
	if d.Copy != nil {
		out.Copy = d.Copy
	}
	return out
}

// transport returns the injected transport or builds an HTTP client from
// cfg. The returned function releases it.
func (d *Dependencies) transport(cfg config.Config) (api.Transport, func(), error) {
	if d.Transport != nil {
		return d.Transport, func() {}, nil
	}

	protocol, err := stream.ParseProtocol(cfg.Protocol)
	if err != nil {
		return nil, nil, err
	}

	client, err := api.NewClient(
		api.WithEndpoint(cfg.Endpoint),
		api.WithModel(cfg.Model),
		api.WithHeaders(cfg.Headers),
		api.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		api.WithProtocol(protocol),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, client.Close, nil
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // default width
	}
	return width
}

// isStdoutTTY returns true if stdout is connected to a terminal
func isStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func isStdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
