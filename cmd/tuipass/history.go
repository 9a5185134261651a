package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuipass/internal/canvas"
	"github.com/verte-zerg/tuipass/internal/config"
	"github.com/verte-zerg/tuipass/internal/gesture"
	"github.com/verte-zerg/tuipass/internal/historyui"
	"github.com/verte-zerg/tuipass/internal/model"
	"github.com/verte-zerg/tuipass/internal/reference"
	"github.com/verte-zerg/tuipass/internal/stats"
	"github.com/verte-zerg/tuipass/internal/store"
)

const (
	previewWidth  = 48
	previewHeight = 12
)

var (
	historyMode        string
	historySince       string
	historyLast        int
	historyCurveWindow int
	historyPlain       bool

	referenceClear bool
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show enrollment and verification history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historyMode, "mode", "", "mode filter (enroll or verify)")
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N attempts")
	cmd.Flags().IntVar(&historyCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a text report instead of opening the UI")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := historyConfig(historyMode, historySince, historyLast, historyCurveWindow)
	if err != nil {
		return err
	}
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	logger, closer, err := openLogger(fileCfg.Log, configuredLevel(fileCfg.Log))
	if err != nil {
		return err
	}
	defer closeQuietly(closer)

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Error("failed to close db", "err", cerr)
		}
	}()

	if historyPlain {
		report, err := stats.BuildReport(context.Background(), st, cfg)
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		return stats.RenderReport(cmd.OutOrStdout(), report, cfg)
	}

	ref := loadReferenceForDisplay(referencePath(fileCfg), logger)
	ui := historyui.NewModel(st, cfg, ref, cellAspect(fileCfg))
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func historyConfig(mode, since string, last, window int) (model.HistoryConfig, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "", model.ModeEnroll, model.ModeVerify:
	default:
		return model.HistoryConfig{}, fmt.Errorf("--mode must be %q or %q", model.ModeEnroll, model.ModeVerify)
	}
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.HistoryConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if last < 0 {
		return model.HistoryConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if window < 1 {
		return model.HistoryConfig{}, fmt.Errorf("--curve-window must be >= 1")
	}
	return model.HistoryConfig{
		Mode:        mode,
		Since:       sinceTime,
		Last:        last,
		CurveWindow: window,
	}, nil
}

// loadReferenceForDisplay returns the stored reference or nil. Problems are
// logged; history is still useful without a preview.
func loadReferenceForDisplay(path string, logger *slog.Logger) gesture.Buffer {
	ref, ok, err := reference.NewFile(path).Load()
	if err != nil {
		logger.Warn("failed to load reference for preview", "path", path, "err", err)
		return nil
	}
	if !ok {
		return nil
	}
	return ref
}

func newReferenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Show or clear the enrolled gesture",
		Args:  cobra.NoArgs,
		RunE:  runReferenceCmd,
	}
	cmd.Flags().BoolVar(&referenceClear, "clear", false, "delete the enrolled gesture")
	return cmd
}

func runReferenceCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig()
	if err != nil {
		return err
	}
	f := reference.NewFile(referencePath(fileCfg))
	if referenceClear {
		if err := f.Remove(); err != nil {
			return fmt.Errorf("failed to clear reference: %w", err)
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", f.Path())
		return err
	}
	ref, ok, err := f.Load()
	if err != nil {
		return fmt.Errorf("failed to load reference: %w", err)
	}
	return describeReference(cmd.OutOrStdout(), f.Path(), ref, ok, cellAspect(fileCfg))
}

func describeReference(w io.Writer, path string, ref gesture.Buffer, ok bool, aspect float64) error {
	if !ok {
		_, err := fmt.Fprintf(w, "No gesture enrolled (%s).\n", path)
		return err
	}
	lines := []string{
		fmt.Sprintf("Reference: %s", path),
		fmt.Sprintf("Samples: %d", len(ref)),
		fmt.Sprintf("Clicks: %d", ref.Clicks()),
	}
	if len(ref) > 0 {
		lines = append(lines, fmt.Sprintf("Last sample: %.0f%% of the window", ref[len(ref)-1].Time*100))
		lines = append(lines, canvas.Fit(ref, previewWidth, previewHeight, aspect).Lines()...)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func referencePath(fileCfg config.FileConfig) string {
	if fileCfg.Gesture.Reference != nil && strings.TrimSpace(*fileCfg.Gesture.Reference) != "" {
		return *fileCfg.Gesture.Reference
	}
	return config.DefaultReferencePath()
}

func cellAspect(fileCfg config.FileConfig) float64 {
	if fileCfg.Gesture.CellAspect != nil && *fileCfg.Gesture.CellAspect > 0 {
		return *fileCfg.Gesture.CellAspect
	}
	return defaultCellAspect
}

func configuredLevel(fileCfg config.LogConfig) string {
	if fileCfg.Level != nil {
		return *fileCfg.Level
	}
	return defaultLogLevel
}
