// Package commands provides CLI commands for detectchat.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// NewRootCmd builds the command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	if deps == nil {
		deps = NewDependencies()
	}

	flags := &globalFlags{}
	ask := &askOptions{}

	rootCmd := &cobra.Command{
		Use:   "detectchat [prompt]",
		Short: "Terminal chat client for a text detection service",
		Long: `detectchat sends each message you type to a detection service
(POST <backend>/detect) and shows its reply, or a warning when the
service flags the input.

The backend base URL comes from --backend-url, BACKEND_URL,
REACT_APP_BACKEND_URL or the config file, in that order.

Examples:
  detectchat                            Start interactive chat
  detectchat "Hi"                       Send a single message
  detectchat -f message.txt             Read the message from a file
  echo "Hi" | detectchat                Read the message from stdin
  detectchat history list               List saved conversations
  detectchat config set backend_url http://localhost:8080`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			pf := cmd.Flags()
			flags.timeoutSet = pf.Changed("timeout")
			flags.orderedSet = pf.Changed("ordered")
			flags.verboseSet = pf.Changed("verbose")
			flags.historySet = pf.Changed("save-history")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "detectchat %s (built %s)\n", Version, BuildTime)
				return nil
			}

			prompt, ok, err := readPrompt(deps, ask.file, args)
			if err != nil {
				return err
			}
			if ok {
				return runAsk(cmd, deps, flags, ask, prompt)
			}

			return runChat(cmd, deps, flags)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.backendURL, "backend-url", "b", "", "Detection service base URL")
	pf.DurationVar(&flags.timeout, "timeout", 0, "Per-request timeout, e.g. 30s (0 disables)")
	pf.BoolVar(&flags.ordered, "ordered", false, "Show replies in the order messages were sent")
	pf.BoolVar(&flags.verbose, "verbose", false, "Log debug entries")
	pf.BoolVar(&flags.history, "save-history", false, "Save the conversation to local history")

	addAskFlags(rootCmd, ask)
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(NewChatCmd(deps, flags))
	rootCmd.AddCommand(NewAskCmd(deps, flags))
	rootCmd.AddCommand(NewHistoryCmd(deps))
	rootCmd.AddCommand(NewConfigCmd(deps))

	return rootCmd
}

// readPrompt picks the prompt from -f, piped stdin or the first argument.
// ok is false when none of them was given.
func readPrompt(deps *Dependencies, file string, args []string) (string, bool, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if len(args) > 0 {
		return args[0], true, nil
	}

	if deps.stdinIsPipe() && deps.Stdin != nil {
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), true, nil
	}

	return "", false, nil
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(NewDependencies()).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err))
		stop()
		os.Exit(1)
	}
}
