package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/detectchat/internal/chat"
	"github.com/diogo/detectchat/internal/history"
	"github.com/diogo/detectchat/internal/models"
	"github.com/diogo/detectchat/internal/render"
	"github.com/diogo/detectchat/internal/tui"
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
	colorReply    = lipgloss.Color("#9ece6a")
	colorWarning  = lipgloss.Color("#e0af68")
	colorError    = lipgloss.Color("#f7768e")
)

// Styles matching the chat TUI
var (
	labelStyle = lipgloss.NewStyle().Bold(true)

	bubbleStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			Foreground(colorText).
			Padding(0, 1).
			MarginBottom(1)

	detailStyle = lipgloss.NewStyle().
			Foreground(colorTextDim).
			Italic(true).
			PaddingLeft(2)
)

// spinner handles the animated loading indicator
type spinner struct {
	w       io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool
}

// newSpinner creates a new animated spinner writing to w
func newSpinner(w io.Writer, message string) *spinner {
	return &spinner{
		w:       w,
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
		fmt.Fprint(s.w, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(s.w, "\r\033[K\033[?25h")
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

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[s.frame%len(chars)])

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
	fmt.Fprintf(s.w, "\r\033[K%s %s %s", spinnerChar, msg, dots.String())
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
	fmt.Fprintf(s.w, "%s %s\n", checkmark, msg)
}

// stopWithError stops the spinner without a message
func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// askOptions are the flags of the one-shot mode
type askOptions struct {
	file   string
	output string
	raw    bool
	copy   bool
}

func addAskFlags(cmd *cobra.Command, opts *askOptions) {
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "Read the message from a file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Save the reply to a file")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print only the reply text")
	cmd.Flags().BoolVarP(&opts.copy, "copy", "c", false, "Copy the reply to the clipboard")
}

// NewAskCmd creates the one-shot command
func NewAskCmd(deps *Dependencies, flags *globalFlags) *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send a single message and print the reply",
		Long: `Send one message to the detection service and print the reply the
chat would show: the generated text, "Warning: ..." when the service
flags the message, or a fixed apology when the call fails.

The message is taken from the argument, --file, or stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, ok, err := readPrompt(deps, opts.file, args)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no message given: pass it as an argument, with --file, or on stdin")
			}
			return runAsk(cmd, deps, flags, opts, prompt)
		},
	}
	addAskFlags(cmd, opts)

	return cmd
}

// runAsk sends prompt once and prints the resulting system message.
// A failed call still prints the fallback reply and exits successfully.
func runAsk(cmd *cobra.Command, deps *Dependencies, flags *globalFlags, opts *askOptions, prompt string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	raw := opts.raw || !deps.stdoutIsTTY()

	s, err := deps.openSession(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if err := s.requireBackend(); err != nil && deps.Detector == nil {
		return err
	}

	runner := chat.NewRunner(s.detector, s.logger.Logger, s.cfg.OrderedReplies)

	var spin *spinner
	if !raw {
		spin = newSpinner(stderr, "Waiting for the detection service")
		spin.start()
	}

	start := time.Now()
	state, ok := runner.Ask(ctx, prompt)
	elapsed := time.Since(start)

	if !ok {
		if spin != nil {
			spin.stopWithError()
			fmt.Fprintln(stderr, detailStyle.Render("Nothing to send: the message is blank"))
		}
		return nil
	}

	reply, _ := state.LastReply()
	if spin != nil {
		if reply.Kind == models.KindFailure {
			spin.stopWithError()
		} else {
			spin.stopWithSuccess("Done")
		}
	}

	if s.cfg.Verbose && !raw {
		fmt.Fprintf(stderr, "[verbose] Request took %s\n", elapsed.Round(time.Millisecond))
		if s.logger.Path() != "" && reply.Kind == models.KindFailure {
			fmt.Fprintf(stderr, "[verbose] Failure details in %s\n", s.logger.Path())
		}
	}

	if s.recorder != nil {
		if err := s.recorder.Observe(state.Messages()); err != nil {
			s.logger.Error().Err(err).Msg("saving transcript failed")
		}
	}

	if opts.copy || s.cfg.CopyToClipboard {
		copyReply(stderr, reply.Text, raw)
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(reply.Text+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !raw {
			fmt.Fprintln(stderr, lipgloss.NewStyle().Foreground(colorSuccess).Render(
				fmt.Sprintf("✓ Reply saved to %s", opts.output),
			))
		}
		return nil
	}

	if raw {
		fmt.Fprintln(stdout, reply.Text)
		return nil
	}

	printReply(stdout, reply, render.OptionsFromConfig(s.cfg.Markdown, 0))
	return nil
}

// copyReply copies text and reports the outcome unless output is raw
func copyReply(w io.Writer, text string, raw bool) {
	if err := clipboard.WriteAll(text); err != nil {
		if !raw {
			fmt.Fprintln(w, lipgloss.NewStyle().Foreground(colorError).Render(
				fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
			))
		}
		return
	}
	if !raw {
		fmt.Fprintln(w, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard"))
	}
}

// printReply prints a system message the way the chat TUI shows it
func printReply(w io.Writer, msg models.Message, opts render.Options) {
	bubbleWidth := min(max(getTerminalWidth()-4, 40), 120)
	contentWidth := bubbleWidth - 4

	color, label, text := colorReply, "✦ System", msg.Text
	switch msg.Kind {
	case models.KindWarning:
		color, label = colorWarning, "⚠ System"
	case models.KindFailure:
		color, label = colorError, "✗ System"
	default:
		text = render.Reply(msg.Text, opts.WithWidth(contentWidth))
	}

	fmt.Fprintln(w, labelStyle.Foreground(color).Render(label))
	fmt.Fprintln(w, bubbleStyle.BorderForeground(color).Width(bubbleWidth).Render(text))

	if line := history.DetailLine(msg.Anomaly, msg.Sensitive); line != "" {
		fmt.Fprintln(w, detailStyle.Render(line))
	}
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// formatErrorMessage formats a command error for stderr
func formatErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	return tui.FormatError(err)
}
