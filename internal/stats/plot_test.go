package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlotScores(t *testing.T) {
	var buf bytes.Buffer
	err := PlotScores(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{0.1, 0.5, 0.9, 0.5, 0.1}},
		{Name: "B", Values: []float64{1, 1, 0.8, 0.3, 0}},
	}, 0.85, 10, 4)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Test Plot")
	assert.Contains(t, out, "A: min=0.100 max=0.900 last=0.100")
	assert.Contains(t, out, "Threshold 0.85")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.GreaterOrEqual(t, len(lines), 1+2+4+1)
	assert.True(t, strings.HasPrefix(lines[3], axisLabelTop+axisSeparator), "top axis label, got %q", lines[3])
}

func TestPlotScoresEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PlotScores(&buf, "Empty", []Series{{Name: "A"}}, 0.85, 10, 4))
	assert.Zero(t, buf.Len())
}

func TestValueToRowFixedAxis(t *testing.T) {
	assert.Equal(t, 0, valueToRow(1, 40))
	assert.Equal(t, 39, valueToRow(0, 40))
	assert.Equal(t, 0, valueToRow(1.7, 40), "clamped above 1")
	assert.Equal(t, 39, valueToRow(-0.2, 40), "clamped below 0")
}

func TestPlotWidthFor(t *testing.T) {
	axisWidth := len([]rune(axisLabelTop)) + len([]rune(axisSeparator))
	assert.Equal(t, 80-axisWidth, PlotWidthFor(80))
	assert.Equal(t, minPlotWidth, PlotWidthFor(0))
	assert.Equal(t, minPlotWidth, PlotWidthFor(5))
}
