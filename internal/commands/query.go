package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/diogo/chatdrawer/internal/config"
	apierrors "github.com/diogo/chatdrawer/internal/errors"
	"github.com/diogo/chatdrawer/internal/models"
	"github.com/diogo/chatdrawer/internal/render"
	"github.com/diogo/chatdrawer/internal/session"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"), // Red
	lipgloss.Color("#feca57"), // Yellow
	lipgloss.Color("#48dbfb"), // Cyan
	lipgloss.Color("#ff9ff3"), // Pink
	lipgloss.Color("#54a0ff"), // Blue
	lipgloss.Color("#5f27cd"), // Purple
	lipgloss.Color("#00d2d3"), // Teal
	lipgloss.Color("#1dd1a1"), // Green
}

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorWarning  = lipgloss.Color("#e0af68")
	colorError    = lipgloss.Color("#f7768e")
	colorPrimary  = lipgloss.Color("#7aa2f7")
)

// Styles matching the chat TUI
var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginBottom(1)
)

// queryOptions holds the flags of the one-shot command
type queryOptions struct {
	output string
	file   string
	copy   bool
	raw    bool
}

// spinner handles the animated loading indicator
type spinner struct {
	out     io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool // Flag to prevent double-close
}

// newSpinner creates a new animated spinner writing to out
func newSpinner(out io.Writer, message string) *spinner {
	return &spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(s.out, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(s.out, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// setMessage replaces the text next to the animation
func (s *spinner) setMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	spinIdx := s.frame % len(chars)
	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[spinIdx])

	barWidth := 16
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + s.frame) % len(gradientColors)
		charIdx := (i + s.frame/2) % len(barChars)
		style := lipgloss.NewStyle().Foreground(gradientColors[colorIdx])
		bar.WriteString(style.Render(barChars[charIdx]))
	}

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)

	fmt.Fprintf(s.out, "\r\033[K%s %s %s %s", spinnerChar, bar.String(), msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and shows success message
func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	checkmark := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	msg := lipgloss.NewStyle().Foreground(colorSuccess).Render(message)
	fmt.Fprintf(s.out, "%s %s\n", checkmark, msg)
}

// stopWithError stops the spinner and shows error
func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// deltaPrinter writes the newly arrived suffix of the streaming assistant
// turn. It is a store observer, so it never blocks on anything but the
// writer.
type deltaPrinter struct {
	out     io.Writer
	turnID  string
	written int
	deltas  int
}

func (p *deltaPrinter) observe(snap models.Snapshot) {
	last, ok := snap.Last()
	if !ok || last.Role != models.RoleAssistant || last.Status == models.StatusErrored {
		return
	}
	if last.ID != p.turnID {
		p.turnID = last.ID
		p.written = 0
	}
	content := last.Content()
	if len(content) > p.written {
		_, _ = io.WriteString(p.out, content[p.written:])
		p.written = len(content)
		p.deltas++
	}
}

// runQuery sends a single prompt through a fresh drawer and prints the
// answer. Without a terminal, or with --raw, the text is streamed as it
// arrives; on a terminal a spinner runs until the answer is complete and
// the markdown is rendered once. An interrupt stops the request and keeps
// the partial answer.
func runQuery(ctx context.Context, deps *Dependencies, cfg config.Config, prompt string, opts queryOptions) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	transport, release, err := deps.transport(cfg)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	defer release()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	drawer := session.NewDrawer(transport)
	drawer.SetContext(cfg.PageContext)
	defer drawer.Close()

	ctrl := drawer.Queue(prompt)
	live := opts.raw || !deps.StdoutTTY()

	var spin *spinner
	if live {
		printer := &deltaPrinter{out: deps.Stdout}
		unsubscribe := ctrl.Store().Subscribe(printer.observe)
		defer unsubscribe()
	} else {
		spin = newSpinner(deps.Stderr, "Generating response")
		spin.start()
	}

	started := time.Now()
	err = ctrl.AutoSubmit(ctx)
	snap := ctrl.Store().Snapshot()
	finish := ctrl.LastFinish()

	log.Debug().
		Str("component", "query").
		Str("conversation_id", snap.ConversationID).
		Dur("took", time.Since(started)).
		Str("finish_reason", finish.Reason).
		Int("prompt_tokens", finish.PromptTokens).
		Int("completion_tokens", finish.CompletionTokens).
		Msg("query finished")

	if err != nil {
		if spin != nil {
			spin.stopWithError()
		} else {
			fmt.Fprintln(deps.Stdout)
		}
		return err
	}

	text, _ := snap.LastAssistantContent()
	interrupted := ctx.Err() != nil

	if spin != nil {
		if interrupted {
			spin.stopWithError()
		} else {
			spin.stopWithSuccess("Done")
		}
	} else if text != "" && !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(deps.Stdout)
	}
	if interrupted {
		fmt.Fprintln(deps.Stderr, lipgloss.NewStyle().Foreground(colorWarning).Render("⚠ Stopped, partial answer kept"))
	}

	if opts.copy || cfg.CopyToClipboard {
		copyAnswer(deps, text)
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !live {
			fmt.Fprintln(deps.Stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render(
				fmt.Sprintf("✓ Response saved to %s", opts.output),
			))
			return nil
		}
	}

	if !live {
		printAnswer(deps, cfg, text)
	}
	return nil
}

// printAnswer renders the answer in an assistant bubble sized to the terminal
func printAnswer(deps *Dependencies, cfg config.Config, text string) {
	bubbleWidth := deps.TermWidth() - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	renderOpts := render.OptionsFromConfig(cfg.Markdown).WithWidth(contentWidth)
	rendered, err := render.Markdown(text, renderOpts)
	if err != nil {
		rendered = text
	}
	rendered = strings.TrimRight(rendered, "\n")

	fmt.Fprintln(deps.Stdout, assistantLabelStyle.Render("✦ Assistant"))
	fmt.Fprintln(deps.Stdout, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
}

func copyAnswer(deps *Dependencies, text string) {
	if text == "" {
		return
	}
	if err := deps.Copy(text); err != nil {
		warnMsg := lipgloss.NewStyle().Foreground(colorError).Render(
			fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
		)
		fmt.Fprintln(deps.Stderr, warnMsg)
		return
	}
	fmt.Fprintln(deps.Stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard"))
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", context, err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	if body := apierrors.GetResponseBody(err); body != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n\n  %s", strings.ReplaceAll(body, "\n", "\n  "))))
	} else {
		switch {
		case apierrors.IsDecodeError(err):
			sb.WriteString(dimStyle.Render("\n  Hint: The response was not a chat stream. Try --protocol"))
		case apierrors.IsInvalidState(err):
			sb.WriteString(dimStyle.Render("\n  Hint: Another request is still running"))
		case apierrors.IsTransportError(err) && apierrors.GetEndpoint(err) != "":
			sb.WriteString(dimStyle.Render("\n  Hint: Check that the endpoint is running and reachable"))
		}
	}

	return sb.String()
}
