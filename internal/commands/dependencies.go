package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/diogo/detectchat/internal/api"
	"github.com/diogo/detectchat/internal/chat"
	"github.com/diogo/detectchat/internal/config"
	apierrors "github.com/diogo/detectchat/internal/errors"
	"github.com/diogo/detectchat/internal/history"
	"github.com/diogo/detectchat/internal/logging"
	"github.com/diogo/detectchat/internal/telemetry"
	"github.com/diogo/detectchat/internal/tui"
)

// metricsInterval is how often metrics are flushed while telemetry is on
const metricsInterval = 30 * time.Second

// TUIInterface defines the methods required from the TUI package.
type TUIInterface interface {
	RunChat(ctx context.Context, d chat.Detector, opts tui.Options) (chat.State, error)
	RunHistorySelector(store tui.HistoryStore) (*history.Conversation, error)
}

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// Detector replaces the HTTP client when set.
	Detector chat.Detector

	// TUI is the terminal user interface.
	TUI TUIInterface

	// ConfigDir replaces ~/.detectchat when set.
	ConfigDir string

	// Stdin is read when the prompt is piped.
	Stdin io.Reader

	// StdinIsPipe reports whether Stdin carries piped data.
	StdinIsPipe func() bool

	// StdoutIsTTY reports whether output goes to a terminal.
	StdoutIsTTY func() bool
}

// DefaultTUI is the production implementation of TUIInterface.
type DefaultTUI struct{}

func (d *DefaultTUI) RunChat(ctx context.Context, det chat.Detector, opts tui.Options) (chat.State, error) {
	return tui.RunChat(ctx, det, opts)
}

func (d *DefaultTUI) RunHistorySelector(store tui.HistoryStore) (*history.Conversation, error) {
	return tui.RunHistorySelector(store)
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		TUI:   &DefaultTUI{},
		Stdin: os.Stdin,
		StdinIsPipe: func() bool {
			stat, err := os.Stdin.Stat()
			return err == nil && (stat.Mode()&os.ModeCharDevice) == 0
		},
		StdoutIsTTY: func() bool {
			return term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}

// globalFlags are the persistent flags shared by every command
type globalFlags struct {
	backendURL string
	timeout    time.Duration
	ordered    bool
	verbose    bool
	history    bool

	timeoutSet bool
	orderedSet bool
	verboseSet bool
	historySet bool
}

// apply overrides cfg with the flags the user actually passed.
// The timeout flag is kept at full precision by requestTimeout instead.
func (f *globalFlags) apply(cfg *config.Config) {
	if f.backendURL != "" {
		cfg.BackendURL = f.backendURL
	}
	if f.orderedSet {
		cfg.OrderedReplies = f.ordered
	}
	if f.verboseSet {
		cfg.Verbose = f.verbose
	}
	if f.historySet {
		cfg.SaveHistory = f.history
	}
}

// requestTimeout is the --timeout value when given, otherwise the configured
// whole seconds. Zero means no timeout.
func (f *globalFlags) requestTimeout(cfg config.Config) (time.Duration, error) {
	if !f.timeoutSet {
		return cfg.Timeout(), nil
	}
	if f.timeout < 0 {
		return 0, apierrors.NewConfigError("timeout", "must not be negative")
	}
	return f.timeout, nil
}

// configDir returns the injected directory or ensures ~/.detectchat exists
func (d *Dependencies) configDir() (string, error) {
	if d.ConfigDir != "" {
		if err := os.MkdirAll(d.ConfigDir, 0o700); err != nil {
			return "", fmt.Errorf("failed to create config directory: %w", err)
		}
		return d.ConfigDir, nil
	}
	return config.EnsureConfigDir()
}

// loadConfig reads the effective config from the config directory
func (d *Dependencies) loadConfig() (config.Config, error) {
	dir, err := d.configDir()
	if err != nil {
		return config.Config{}, err
	}
	return config.LoadConfig(dir)
}

func (d *Dependencies) stdoutIsTTY() bool {
	return d.StdoutIsTTY != nil && d.StdoutIsTTY()
}

func (d *Dependencies) stdinIsPipe() bool {
	return d.StdinIsPipe != nil && d.StdinIsPipe()
}

// openStore opens the transcript database under the config directory
func (d *Dependencies) openStore() (*history.Store, error) {
	dir, err := d.configDir()
	if err != nil {
		return nil, err
	}
	store, err := history.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

// session is everything a chat or ask run needs, built from config and flags
type session struct {
	cfg      config.Config
	dir      string
	logger   *logging.Logger
	client   *api.DetectClient
	detector chat.Detector
	tel      *telemetry.Provider
	store    *history.Store
	recorder *history.Recorder

	// baseURL is resolved once for display; requests resolve it again
	baseURL    string
	baseURLErr error
}

// openSession loads config, opens the log, and builds the detector chain
func (d *Dependencies) openSession(ctx context.Context, flags *globalFlags) (*session, error) {
	dir, err := d.configDir()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, err
	}
	flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout, err := flags.requestTimeout(cfg)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(dir, logging.Options{Path: cfg.LogFile, Verbose: cfg.Verbose})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, dir: dir, logger: logger}

	resolve := config.BackendURLResolver(flags.backendURL, cfg.BackendURL)
	s.baseURL, s.baseURLErr = resolve()

	s.detector = d.Detector
	if s.detector == nil {
		client, err := api.NewClient(
			api.WithBaseURLResolver(resolve),
			api.WithTimeout(timeout),
		)
		if err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		s.client = client
		s.detector = client
	}

	if cfg.Telemetry {
		tel, err := telemetry.Init(ctx, dir, Version, metricsInterval)
		if err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("failed to start telemetry: %w", err)
		}
		s.tel = tel

		instrumented, err := telemetry.Instrument(s.detector, tel.Tracer, tel.Meter)
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		s.detector = instrumented
	}

	if cfg.SaveHistory {
		store, err := history.NewStore(dir)
		if err != nil {
			s.Close(ctx)
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		s.store = store
		s.recorder = history.NewRecorder(store, s.baseURL)
	}

	logger.Info().
		Str("backend_url", s.baseURL).
		Dur("timeout", timeout).
		Bool("ordered", cfg.OrderedReplies).
		Bool("history", cfg.SaveHistory).
		Bool("telemetry", cfg.Telemetry).
		Msg("session started")

	return s, nil
}

// requireBackend fails when no usable backend URL is configured
func (s *session) requireBackend() error {
	if errors.Is(s.baseURLErr, apierrors.ErrNoBackendURL) {
		return fmt.Errorf("%w: set %s, pass --backend-url, or run 'detectchat config set backend_url <url>'",
			apierrors.ErrNoBackendURL, config.BackendURLEnv)
	}
	return s.baseURLErr
}

// Close releases everything the session opened
func (s *session) Close(ctx context.Context) {
	if s.client != nil {
		s.client.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	if s.tel != nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.tel.Shutdown(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}
	s.logger.Info().Msg("session closed")
	_ = s.logger.Close()
}
