package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/detectchat/internal/history"
	"github.com/diogo/detectchat/internal/render"
)

// NewHistoryCmd creates the history command tree
func NewHistoryCmd(deps *Dependencies) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Manage saved conversations",
		Long: `View and manage conversations saved with save_history enabled.

Conversations can be referenced by:
` + history.ListAliases(),
	}

	historyCmd.AddCommand(
		newHistoryListCmd(deps),
		newHistoryShowCmd(deps),
		newHistoryDeleteCmd(deps),
		newHistoryClearCmd(deps),
		newHistoryExportCmd(deps),
	)

	return historyCmd
}

func newHistoryListCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			conversations, err := store.ListConversations()
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(conversations) == 0 {
				fmt.Fprintln(out, "No conversations found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "#\tID\tTITLE\tMESSAGES\tUPDATED")
			_, _ = fmt.Fprintln(w, "-\t--\t-----\t--------\t-------")

			for i, conv := range conversations {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n",
					i+1, shortID(conv.ID), truncate(conv.Title, 40), conv.MessageCount,
					history.FormatRelativeTime(conv.UpdatedAt))
			}

			return w.Flush()
		},
	}
}

func newHistoryShowCmd(deps *Dependencies) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show [ref]",
		Short: "Show a conversation",
		Long: `Show a conversation as markdown, rendered when output is a terminal.
Without a reference, pick one interactively.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var conv *history.Conversation
			if len(args) == 0 {
				if !deps.stdoutIsTTY() {
					return fmt.Errorf("a conversation reference is required when output is not a terminal")
				}
				picked, err := deps.TUI.RunHistorySelector(store)
				if err != nil {
					return err
				}
				if picked == nil {
					return nil
				}
				conv, err = store.GetConversation(picked.ID)
				if err != nil {
					return err
				}
			} else {
				conv, err = history.NewResolver(store).ResolveWithInfo(args[0])
				if err != nil {
					return err
				}
			}

			md := history.FormatMarkdown(conv)
			if raw || !deps.stdoutIsTTY() {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}

			cfg, err := deps.loadConfig()
			if err != nil {
				return err
			}
			out, err := render.Markdown(md, render.OptionsFromConfig(cfg.Markdown, getTerminalWidth()))
			if err != nil {
				out = md
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&raw, "raw", "r", false, "Print markdown without rendering")

	return cmd
}

func newHistoryDeleteCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ref>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := deps.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := history.NewResolver(store).Resolve(args[0])
			if err != nil {
				return err
			}

			if err := store.DeleteConversation(id); err != nil {
				return fmt.Errorf("failed to delete: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation: %s\n", id)
			return nil
		},
	}
}

func newHistoryClearCmd(deps *Dependencies) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm(cmd, deps, "Delete all conversations?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}

			store, err := deps.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ClearAll(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "All conversations deleted.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "y", false, "Do not ask for confirmation")

	return cmd
}

func newHistoryExportCmd(deps *Dependencies) *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export <ref>",
		Short: "Export a conversation as markdown or JSON",
		Long: `Export a conversation. The format comes from --format, or from the
--output file extension, and defaults to markdown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" && output != "" {
				if i := strings.LastIndex(output, "."); i >= 0 {
					format = output[i:]
				}
			}
			if format == "" {
				format = string(history.ExportFormatMarkdown)
			}

			exportFormat, err := history.ParseExportFormat(format)
			if err != nil {
				return err
			}

			store, err := deps.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			id, err := history.NewResolver(store).Resolve(args[0])
			if err != nil {
				return err
			}

			data, err := store.Export(id, exportFormat)
			if err != nil {
				return err
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}

			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", shortID(id), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "", "md or json")

	return cmd
}

// confirm asks a yes/no question on the command's input
func confirm(cmd *cobra.Command, deps *Dependencies, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N]: ", question)

	in := deps.Stdin
	if in == nil {
		in = cmd.InOrStdin()
	}
	line, _ := bufio.NewReader(in).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens s to maxLen runes followed by "..."
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
