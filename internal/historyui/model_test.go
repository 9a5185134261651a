package historyui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuipass/internal/gesture"
	"github.com/verte-zerg/tuipass/internal/model"
)

type fakeSource struct {
	attempts []model.Attempt
	err      error
	lastCfg  model.HistoryConfig
}

func (f *fakeSource) ListAttempts(_ context.Context, cfg model.HistoryConfig) ([]model.Attempt, error) {
	f.lastCfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	var out []model.Attempt
	for _, a := range f.attempts {
		if cfg.Mode != "" && a.Mode != cfg.Mode {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func sampleSource() *fakeSource {
	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	return &fakeSource{attempts: []model.Attempt{
		{ID: 1, EndedAt: at, Mode: model.ModeEnroll, Samples: 10, Clicks: 1, Threshold: 0.85},
		{ID: 2, EndedAt: at.Add(time.Minute), Mode: model.ModeVerify, Samples: 10, Clicks: 1,
			PositionScore: 0.95, TimeScore: 0.9, SequenceScore: 1, Similarity: 0.94, Threshold: 0.85, Accepted: true},
	}}
}

func sampleReference() gesture.Buffer {
	return gesture.Buffer{
		{Kind: gesture.Move, Pos: gesture.Point{X: 0, Y: 0}, Time: 0},
		{Kind: gesture.Click, Pos: gesture.Point{X: 1, Y: 0.5}, Time: 0.4},
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newSizedModel(src *fakeSource, ref gesture.Buffer) *Model {
	m := NewModel(src, model.HistoryConfig{CurveWindow: 5}, ref, 2)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

func TestOverviewShowsSummary(t *testing.T) {
	m := newSizedModel(sampleSource(), sampleReference())
	view := m.View()
	for _, want := range []string{"Overview", "Attempts 2", "Reference ●", "Accept Rate", "100.0%", "Score Curves"} {
		assert.Contains(t, view, want)
	}
	assert.Len(t, strings.Split(view, "\n"), 40)
}

func TestTabsCycle(t *testing.T) {
	m := newSizedModel(sampleSource(), sampleReference())
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, tabAttempts, m.activeTab)
	assert.Contains(t, m.View(), "accepted")

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Contains(t, m.View(), "Samples: 2  Clicks: 1")

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, tabOverview, m.activeTab, "wraps to overview")
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, tabReference, m.activeTab, "wraps to reference")
}

func TestReferenceMissing(t *testing.T) {
	m := newSizedModel(sampleSource(), nil)
	m.moveTab(-1)
	view := m.View()
	assert.Contains(t, view, "No gesture enrolled.")
	assert.Contains(t, view, "Reference ○")
}

func TestScrollKeysOnEveryTab(t *testing.T) {
	m := newSizedModel(sampleSource(), sampleReference())
	for range m.tabs {
		m.Update(runes("G"))
		m.Update(runes("g"))
		m.Update(tea.KeyMsg{Type: tea.KeyDown})
		m.moveTab(1)
	}
	require.Equal(t, tabOverview, m.activeTab)
	assert.Same(t, &m.overview, m.pane())
	m.moveTab(1)
	assert.Nil(t, m.pane(), "attempts tab scrolls its table")
	m.moveTab(1)
	assert.Same(t, &m.preview, m.pane())
}

func TestCurveWindowKeys(t *testing.T) {
	m := newSizedModel(sampleSource(), nil)
	m.Update(runes("="))
	assert.Equal(t, 10, m.cfg.CurveWindow)
	m.Update(runes("-"))
	m.Update(runes("-"))
	assert.Equal(t, 1, m.cfg.CurveWindow)
}

func TestFilterApply(t *testing.T) {
	src := sampleSource()
	m := newSizedModel(src, nil)
	m.Update(runes("/"))
	require.True(t, m.filterMode)
	m.Update(runes("verify"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.filterMode, "filter error: %s", m.filterError)
	assert.Equal(t, model.ModeVerify, src.lastCfg.Mode)
	assert.Len(t, m.report.Attempts, 1)
	assert.Contains(t, m.View(), "Attempts 1")
}

func TestFilterRejectsBadMode(t *testing.T) {
	m := newSizedModel(sampleSource(), nil)
	m.Update(runes("/"))
	m.Update(runes("login"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.filterMode)
	assert.Contains(t, m.filterError, "invalid mode")
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.filterMode, "esc cancels the filter")
}

func TestSourceError(t *testing.T) {
	m := newSizedModel(&fakeSource{err: errors.New("database is locked")}, nil)
	view := m.View()
	assert.Contains(t, view, "database is locked")
	assert.Contains(t, view, "Failed to load history.")
}

func TestCurveWindowSteps(t *testing.T) {
	cases := []struct {
		in, next, prev int
	}{
		{1, 5, 1},
		{5, 10, 1},
		{7, 10, 5},
		{10, 15, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.next, nextCurveWindow(tc.in), "next(%d)", tc.in)
		assert.Equal(t, tc.prev, prevCurveWindow(tc.in), "prev(%d)", tc.in)
	}
}
