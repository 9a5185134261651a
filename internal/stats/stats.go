// Package stats contains attempt history calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/tuipass/internal/model"
)

const sparkChars = " .:-=+*#%@"

const timeLayout = "2006-01-02 15:04:05"

// Summary aggregates a list of attempts.
type Summary struct {
	Attempts        int
	Enrollments     int
	Verifications   int
	Accepted        int
	Rejected        int
	ClickMismatches int
	// AcceptRate is accepted verifications over all verifications.
	AcceptRate     float64
	AvgSimilarity  float64
	BestSimilarity float64
	Threshold      float64
}

// Summarize computes aggregate figures over attempts.
func Summarize(attempts []model.Attempt) Summary {
	var s Summary
	var total float64
	for _, a := range attempts {
		s.Attempts++
		if a.Threshold > 0 {
			s.Threshold = a.Threshold
		}
		if a.Mode == model.ModeEnroll {
			s.Enrollments++
			continue
		}
		s.Verifications++
		total += a.Similarity
		s.BestSimilarity = math.Max(s.BestSimilarity, a.Similarity)
		if a.Accepted {
			s.Accepted++
		} else {
			s.Rejected++
		}
		if a.ClickMismatch {
			s.ClickMismatches++
		}
	}
	if s.Verifications > 0 {
		s.AcceptRate = float64(s.Accepted) / float64(s.Verifications)
		s.AvgSimilarity = total / float64(s.Verifications)
	}
	return s
}

// Verifications returns the verify attempts in order.
func Verifications(attempts []model.Attempt) []model.Attempt {
	out := make([]model.Attempt, 0, len(attempts))
	for _, a := range attempts {
		if a.Mode == model.ModeVerify {
			out = append(out, a)
		}
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(min(i+1, window))
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for scores in [0, 1].
func Sparkline(values []float64) string {
	var b strings.Builder
	for _, v := range values {
		v = math.Max(0, math.Min(1, v))
		idx := int(math.Round(v * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the summary block.
func RenderSummary(w io.Writer, attempts []model.Attempt) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	s := Summarize(attempts)
	lines := []string{
		"Summary",
		fmt.Sprintf("Attempts: %d (%d enrollments, %d verifications)", s.Attempts, s.Enrollments, s.Verifications),
		fmt.Sprintf("Accepted: %d", s.Accepted),
		fmt.Sprintf("Rejected: %d (%d click mismatches)", s.Rejected, s.ClickMismatches),
		fmt.Sprintf("Accept Rate: %.2f%%", s.AcceptRate*100),
		fmt.Sprintf("Avg Similarity: %.3f", s.AvgSimilarity),
		fmt.Sprintf("Best Similarity: %.3f", s.BestSimilarity),
	}
	if s.Threshold > 0 {
		lines = append(lines, fmt.Sprintf("Threshold: %.3f", s.Threshold))
	}
	if verifies := Verifications(attempts); len(verifies) > 0 {
		lines = append(lines, "Trend: "+Sparkline(similarities(verifies)))
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints score curves for verification attempts.
func RenderCurves(w io.Writer, attempts []model.Attempt, window int) error {
	return RenderCurvesWithSize(w, attempts, window, 0, 10, false)
}

// RenderCurvesWithSize prints score curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, attempts []model.Attempt, window, totalWidth, height int, useColor bool) error {
	verifies := Verifications(attempts)
	if len(verifies) == 0 {
		return nil
	}
	pos := make([]float64, len(verifies))
	tim := make([]float64, len(verifies))
	seq := make([]float64, len(verifies))
	for i, a := range verifies {
		pos[i] = a.PositionScore
		tim[i] = a.TimeScore
		seq[i] = a.SequenceScore
	}

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotScoresWithColor(w, "Score Curves", []Series{
		{Name: "Similarity", Values: MovingAverage(similarities(verifies), window)},
		{Name: "Position", Values: MovingAverage(pos, window)},
		{Name: "Time", Values: MovingAverage(tim, window)},
		{Name: "Sequence", Values: MovingAverage(seq, window)},
	}, Summarize(verifies).Threshold, width, height, useColor)
}

// RenderAttemptTable prints one row per attempt, newest first.
func RenderAttemptTable(w io.Writer, attempts []model.Attempt) error {
	if len(attempts) == 0 {
		_, err := fmt.Fprintln(w, "No attempts found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Attempts"); err != nil {
		return err
	}
	_, rows := AttemptRows(attempts)
	for _, line := range layoutAttempts(rows) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	return nil
}

// AttemptRows formats attempts as table cells, newest first.
func AttemptRows(attempts []model.Attempt) ([]string, [][]string) {
	headers := attemptHeaders()
	rows := make([][]string, 0, len(attempts))
	for i := len(attempts) - 1; i >= 0; i-- {
		a := attempts[i]
		similarity := "-"
		if a.Mode == model.ModeVerify {
			similarity = fmt.Sprintf("%.3f", a.Similarity)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", a.ID),
			a.EndedAt.Local().Format(timeLayout),
			a.Mode,
			fmt.Sprintf("%d", a.Samples),
			fmt.Sprintf("%d", a.Clicks),
			similarity,
			Result(a),
		})
	}
	return headers, rows
}

// Result labels the outcome of an attempt.
func Result(a model.Attempt) string {
	switch {
	case a.Mode == model.ModeEnroll:
		return "enrolled"
	case a.Accepted:
		return "accepted"
	case a.ClickMismatch:
		return "rejected (clicks)"
	default:
		return "rejected"
	}
}

func similarities(attempts []model.Attempt) []float64 {
	out := make([]float64, len(attempts))
	for i, a := range attempts {
		out[i] = a.Similarity
	}
	return out
}
