package stats

import (
	"context"
	"io"

	"github.com/verte-zerg/tuipass/internal/model"
)

// AttemptSource lists stored attempts.
type AttemptSource interface {
	ListAttempts(ctx context.Context, cfg model.HistoryConfig) ([]model.Attempt, error)
}

// Report contains precomputed data for history rendering.
type Report struct {
	Attempts []model.Attempt
	// Window holds the most recent CurveWindow attempts.
	Window  []model.Attempt
	Summary Summary
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, src AttemptSource, cfg model.HistoryConfig) (Report, error) {
	attempts, err := src.ListAttempts(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(attempts) > cfg.Last {
		attempts = attempts[len(attempts)-cfg.Last:]
	}
	return Report{
		Attempts: attempts,
		Window:   lastAttempts(attempts, cfg.CurveWindow),
		Summary:  Summarize(attempts),
	}, nil
}

// RenderReport prints the full plain-text history report.
func RenderReport(w io.Writer, report Report, cfg model.HistoryConfig) error {
	if err := RenderSummary(w, report.Attempts); err != nil {
		return err
	}
	if err := RenderCurves(w, report.Attempts, cfg.CurveWindow); err != nil {
		return err
	}
	return RenderAttemptTable(w, report.Window)
}

func lastAttempts(attempts []model.Attempt, window int) []model.Attempt {
	if window <= 0 || len(attempts) <= window {
		return attempts
	}
	return attempts[len(attempts)-window:]
}
