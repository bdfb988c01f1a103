package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/detectchat/internal/render"
	"github.com/diogo/detectchat/internal/tui"
)

// NewChatCmd creates the interactive chat command
func NewChatCmd(deps *Dependencies, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with the detection service.

Each message is sent on its own; messages can be sent while earlier
replies are still pending. Press Ctrl+Y to copy the last reply, and
Esc or Ctrl+C to end the session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, flags)
		},
	}
}

func runChat(cmd *cobra.Command, deps *Dependencies, flags *globalFlags) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := deps.openSession(ctx, flags)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	if s.baseURLErr != nil {
		s.logger.Warn().Err(s.baseURLErr).Msg("backend URL not resolved at start")
	}

	tui.ApplyTheme(render.ResolveTUITheme(s.cfg.TUITheme))

	opts := tui.Options{
		Logger:          s.logger.Logger,
		Ordered:         s.cfg.OrderedReplies,
		BackendURL:      s.baseURL,
		Render:          render.OptionsFromConfig(s.cfg.Markdown, 0),
		CopyToClipboard: s.cfg.CopyToClipboard,
	}
	// A nil *history.Recorder must not become a non-nil Observer
	if s.recorder != nil {
		opts.Observer = s.recorder
	}

	state, err := deps.TUI.RunChat(ctx, s.detector, opts)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	s.logger.Info().
		Int("messages", state.Len()).
		Int("pending", state.InFlight()).
		Msg("chat ended")

	if s.recorder != nil && s.recorder.ConversationID() != "" {
		if err := s.recorder.Observe(state.Messages()); err != nil {
			s.logger.Error().Err(err).Msg("saving transcript failed")
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Conversation saved: %s\n", s.recorder.ConversationID())
	}

	return nil
}
