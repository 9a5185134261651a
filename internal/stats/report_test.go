package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuipass/internal/model"
	"github.com/verte-zerg/tuipass/internal/store"
)

func TestBuildReport(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "tuipass.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	similarity := []float64{0, 0.5, 0.9, 0.95}
	for i := range similarity {
		start := time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Minute)
		attempt := model.Attempt{
			StartedAt:  start,
			EndedAt:    start.Add(4 * time.Second),
			Mode:       model.ModeVerify,
			Samples:    10,
			Clicks:     1,
			Similarity: similarity[i],
			Threshold:  0.85,
		}
		if i == 0 {
			attempt.Mode = model.ModeEnroll
		}
		attempt.Accepted = attempt.Mode == model.ModeVerify && attempt.Similarity >= 0.85
		id, err := st.InsertAttempt(ctx, attempt)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	cfg := model.HistoryConfig{Last: 3, CurveWindow: 2}
	report, err := BuildReport(ctx, st, cfg)
	require.NoError(t, err)

	require.Len(t, report.Attempts, 3)
	assert.Equal(t, ids[1], report.Attempts[0].ID)
	assert.Equal(t, ids[3], report.Attempts[2].ID)
	require.Len(t, report.Window, 2)
	assert.Equal(t, ids[2], report.Window[0].ID)
	assert.Equal(t, 3, report.Summary.Verifications)
	assert.Equal(t, 2, report.Summary.Accepted)

	var buf bytes.Buffer
	require.NoError(t, RenderReport(&buf, report, cfg))
	for _, want := range []string{"Summary", "Score Curves", "Attempts", "accepted"} {
		assert.Contains(t, buf.String(), want)
	}
}
