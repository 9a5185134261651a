// Package main provides the CLI entrypoint for tuipass.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuipass/internal/config"
	"github.com/verte-zerg/tuipass/internal/gesture"
	"github.com/verte-zerg/tuipass/internal/logging"
	"github.com/verte-zerg/tuipass/internal/model"
	"github.com/verte-zerg/tuipass/internal/reference"
	"github.com/verte-zerg/tuipass/internal/session"
	"github.com/verte-zerg/tuipass/internal/store"
	"github.com/verte-zerg/tuipass/internal/tui"
)

const (
	defaultCellAspect  = 2.0
	defaultFrameRate   = 30
	maxFrameRate       = 240
	defaultLogLevel    = "info"
	defaultCurveWindow = 10
)

var (
	captureWindow          float64
	captureMicroMovement   float64
	captureAcceptThreshold float64
	capturePositionWeight  float64
	captureTimeWeight      float64
	captureSequenceWeight  float64
	captureCellAspect      float64
	captureFrameRate       int
	captureReference       string
	captureLogLevel        string

	configPath string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuipass",
		Short:         "Mouse gesture password in the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runCaptureCmd,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (.toml, .yaml or .yml)")
	rootCmd.Flags().Float64Var(&captureWindow, "window", gesture.DefaultWindow.Seconds(), "capture window in seconds")
	rootCmd.Flags().Float64Var(&captureMicroMovement, "micro-movement", gesture.DefaultMicroMovement, "minimum distance between recorded moves")
	rootCmd.Flags().Float64Var(&captureAcceptThreshold, "accept-threshold", gesture.DefaultAcceptThreshold, "minimum similarity to accept (0-1)")
	rootCmd.Flags().Float64Var(&capturePositionWeight, "position-weight", gesture.DefaultPositionWeight, "weight of the position term")
	rootCmd.Flags().Float64Var(&captureTimeWeight, "time-weight", gesture.DefaultTimeWeight, "weight of the timing term")
	rootCmd.Flags().Float64Var(&captureSequenceWeight, "sequence-weight", gesture.DefaultSequenceWeight, "weight of the sequence term")
	rootCmd.Flags().Float64Var(&captureCellAspect, "cell-aspect", defaultCellAspect, "terminal cell height divided by width")
	rootCmd.Flags().IntVar(&captureFrameRate, "frame-rate", defaultFrameRate, "UI frames per second")
	rootCmd.Flags().StringVar(&captureReference, "reference", config.DefaultReferencePath(), "reference gesture file")
	rootCmd.Flags().StringVar(&captureLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newReferenceCmd())

	return rootCmd
}

func runCaptureCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	cfg := resolveCaptureConfig(cmd, fileCfg)
	if err := validateConfig(cfg); err != nil {
		return err
	}
	applyStringConfig(cmd, "log-level", &captureLogLevel, fileCfg.Log.Level)

	logger, closer, err := openLogger(fileCfg.Log, captureLogLevel)
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	refFile := reference.NewFile(cfg.ReferencePath)
	opts := []session.Option{session.WithLogger(logger), session.WithSaver(refFile)}
	ref, ok, err := refFile.Load()
	switch {
	case errors.Is(err, reference.ErrMalformed):
		logger.Error("reference is malformed", "path", refFile.Path(), "err", err)
		return fmt.Errorf("failed to load reference: %w", err)
	case err != nil:
		logger.Error("failed to read reference; starting without one", "path", refFile.Path(), "err", err)
		logErrf("warning: %v\n", err)
	case ok:
		opts = append(opts, session.WithReference(ref))
		logger.Info("reference loaded", "path", refFile.Path(), "samples", len(ref))
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logger.Error("failed to open history; attempts will not be recorded", "err", err)
	} else {
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logger.Error("failed to close db", "err", cerr)
			}
		}()
		opts = append(opts, session.WithAttemptLog(st))
	}

	sess := session.New(cfg.Params(), opts...)
	ui := tui.NewModel(sess, cfg, logger)
	program := tea.NewProgram(ui, tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// resolveCaptureConfig merges config file values into flags the user did not
// set explicitly.
// configFilePath returns the --config value or the XDG default.
func configFilePath() string {
	if path := strings.TrimSpace(configPath); path != "" {
		return path
	}
	return config.DefaultConfigPath()
}

func loadFileConfig() (config.FileConfig, error) {
	fileCfg, err := config.LoadConfig(configFilePath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, nil
}

func resolveCaptureConfig(cmd *cobra.Command, fileCfg config.FileConfig) model.Config {
	g := fileCfg.Gesture
	applyFloatConfig(cmd, "window", &captureWindow, g.Window)
	applyFloatConfig(cmd, "micro-movement", &captureMicroMovement, g.MicroMovement)
	applyFloatConfig(cmd, "accept-threshold", &captureAcceptThreshold, g.AcceptThreshold)
	applyFloatConfig(cmd, "position-weight", &capturePositionWeight, g.PositionWeight)
	applyFloatConfig(cmd, "time-weight", &captureTimeWeight, g.TimeWeight)
	applyFloatConfig(cmd, "sequence-weight", &captureSequenceWeight, g.SequenceWeight)
	applyFloatConfig(cmd, "cell-aspect", &captureCellAspect, g.CellAspect)
	applyIntConfig(cmd, "frame-rate", &captureFrameRate, g.FrameRate)
	applyStringConfig(cmd, "reference", &captureReference, g.Reference)

	return model.Config{
		Window:          secondsToDuration(captureWindow),
		MicroMovement:   captureMicroMovement,
		AcceptThreshold: captureAcceptThreshold,
		PositionWeight:  capturePositionWeight,
		TimeWeight:      captureTimeWeight,
		SequenceWeight:  captureSequenceWeight,
		CellAspect:      captureCellAspect,
		FrameRate:       captureFrameRate,
		ReferencePath:   captureReference,
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func openLogger(fileCfg config.LogConfig, level string) (*slog.Logger, io.Closer, error) {
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}
	format := ""
	if fileCfg.Format != nil {
		format = *fileCfg.Format
	}
	fmtVal, err := logging.ParseFormat(format)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log format: %w", err)
	}
	path := config.DefaultLogPath()
	if fileCfg.File != nil && strings.TrimSpace(*fileCfg.File) != "" {
		path = *fileCfg.File
	}
	logger, closer, err := logging.New(logging.Config{Level: lvl, Format: fmtVal, Path: path})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, closer, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configFilePath()
	if err := ensureConfigFile(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// ensureConfigFile writes the commented template unless a config exists.
func ensureConfigFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	template := defaultConfigTemplate()
	if isYAMLPath(path) {
		template = defaultYAMLTemplate()
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuipass configuration
# Uncomment a value to enable it. CLI flags override config values.

[gesture]
# window = %.1f              # Capture window in seconds
# micro-movement = %.1f      # Minimum distance between recorded moves
# accept-threshold = %.2f   # Minimum similarity to accept (0-1)
# position-weight = %.1f     # Weight of the position term
# time-weight = %.1f         # Weight of the timing term
# sequence-weight = %.1f     # Weight of the sequence term
# cell-aspect = %.1f         # Terminal cell height divided by width
# frame-rate = %d            # UI frames per second
# reference = %q

[log]
# level = %q             # debug, info, warn, error
# format = "text"           # text or json
# file = %q
`,
		gesture.DefaultWindow.Seconds(),
		gesture.DefaultMicroMovement,
		gesture.DefaultAcceptThreshold,
		gesture.DefaultPositionWeight,
		gesture.DefaultTimeWeight,
		gesture.DefaultSequenceWeight,
		defaultCellAspect,
		defaultFrameRate,
		config.DefaultReferencePath(),
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

func isYAMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func defaultYAMLTemplate() string {
	return fmt.Sprintf(`# tuipass configuration
# Uncomment a value to enable it. CLI flags override config values.

gesture:
#   window: %.1f
#   micro-movement: %.1f
#   accept-threshold: %.2f
#   position-weight: %.1f
#   time-weight: %.1f
#   sequence-weight: %.1f
#   cell-aspect: %.1f
#   frame-rate: %d
#   reference: %q

log:
#   level: %q
#   format: text
#   file: %q
`,
		gesture.DefaultWindow.Seconds(),
		gesture.DefaultMicroMovement,
		gesture.DefaultAcceptThreshold,
		gesture.DefaultPositionWeight,
		gesture.DefaultTimeWeight,
		gesture.DefaultSequenceWeight,
		defaultCellAspect,
		defaultFrameRate,
		config.DefaultReferencePath(),
		defaultLogLevel,
		config.DefaultLogPath(),
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Window <= 0 {
		return fmt.Errorf("--window must be > 0")
	}
	if cfg.MicroMovement < 0 {
		return fmt.Errorf("--micro-movement must be >= 0")
	}
	if cfg.AcceptThreshold < 0 || cfg.AcceptThreshold > 1 {
		return fmt.Errorf("--accept-threshold must be between 0 and 1")
	}
	if cfg.PositionWeight < 0 || cfg.TimeWeight < 0 || cfg.SequenceWeight < 0 {
		return fmt.Errorf("--position-weight, --time-weight and --sequence-weight must be >= 0")
	}
	if cfg.CellAspect <= 0 {
		return fmt.Errorf("--cell-aspect must be > 0")
	}
	if cfg.FrameRate <= 0 || cfg.FrameRate > maxFrameRate {
		return fmt.Errorf("--frame-rate must be between 1 and %d", maxFrameRate)
	}
	if strings.TrimSpace(cfg.ReferencePath) == "" {
		return fmt.Errorf("--reference must not be empty")
	}
	if err := cfg.Params().Validate(); err != nil {
		return fmt.Errorf("invalid gesture settings: %w", err)
	}
	return nil
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		// Best-effort close of the log file.
		_ = err
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
