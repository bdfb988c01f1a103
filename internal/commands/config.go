package commands

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/detectchat/internal/config"
	apierrors "github.com/diogo/detectchat/internal/errors"
	"github.com/diogo/detectchat/internal/logging"
	"github.com/diogo/detectchat/internal/models"
	"github.com/diogo/detectchat/internal/render"
)

// NewConfigCmd creates the config command tree
func NewConfigCmd(deps *Dependencies) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change detectchat settings.

Settings are read from ~/.detectchat/config.json, then .env, then the
DETECTCHAT_* environment variables. BACKEND_URL and REACT_APP_BACKEND_URL
override backend_url each time a message is sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, deps)
		},
	}

	configCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigShow(cmd, deps)
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := deps.loadConfig()
				if err != nil {
					return err
				}
				value, err := config.GetValue(cfg, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change a setting in the config file",
			Long: "Change a setting in the config file. Keys:\n  " +
				strings.Join(config.Keys(), "\n  ") +
				"\n\ntui_theme is one of: " + strings.Join(render.TUIThemeNames(), ", "),
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(cmd, deps, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file and log locations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				dir, err := deps.configDir()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "config: %s\n", config.PathIn(dir))
				fmt.Fprintf(out, "log:    %s\n", logging.DefaultPath(dir))
				return nil
			},
		},
	)

	return configCmd
}

func runConfigShow(cmd *cobra.Command, deps *Dependencies) error {
	cfg, err := deps.loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, key := range config.Keys() {
		value, err := config.GetValue(cfg, key)
		if err != nil {
			return err
		}
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", key, value)
	}

	// Show where the backend URL will actually come from at call time
	url, err := config.BackendURLResolver("", cfg.BackendURL)()
	switch {
	case err == nil:
		_, _ = fmt.Fprintf(w, "\t\n%s\t%s\n", "effective backend", url+models.DetectPath)
	case errors.Is(err, apierrors.ErrNoBackendURL):
		_, _ = fmt.Fprintf(w, "\t\n%s\t%s\n", "effective backend", "not configured")
	default:
		_, _ = fmt.Fprintf(w, "\t\n%s\t%s\n", "effective backend", err)
	}

	return w.Flush()
}

func runConfigSet(cmd *cobra.Command, deps *Dependencies, key, value string) error {
	if key == "tui_theme" {
		if _, ok := render.GetTUIThemeByName(value); !ok {
			return fmt.Errorf("unknown theme %q: choose one of %s", value, strings.Join(render.TUIThemeNames(), ", "))
		}
	}

	dir, err := deps.configDir()
	if err != nil {
		return err
	}

	// Start from the file alone so environment overrides are not persisted
	cfg, err := config.LoadConfigFile(dir)
	if err != nil {
		return err
	}

	if err := config.SetValue(&cfg, key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := config.SaveConfig(dir, cfg); err != nil {
		return err
	}

	stored, _ := config.GetValue(cfg, key)
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, stored)
	return nil
}
