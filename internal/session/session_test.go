package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuipass/internal/gesture"
	"github.com/verte-zerg/tuipass/internal/model"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Set(start time.Time, offset time.Duration) { c.t = start.Add(offset) }

type fakeSaver struct {
	saved []gesture.Buffer
	err   error
}

func (f *fakeSaver) Save(ref gesture.Buffer) error {
	f.saved = append(f.saved, ref.Clone())
	return f.err
}

type fakeAttemptLog struct {
	attempts []model.Attempt
	err      error
}

func (f *fakeAttemptLog) InsertAttempt(_ context.Context, a model.Attempt) (int64, error) {
	f.attempts = append(f.attempts, a)
	return int64(len(f.attempts)), f.err
}

type step struct {
	kind gesture.Kind
	x, y float64
	at   time.Duration
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeClock, *fakeSaver, *fakeAttemptLog) {
	t.Helper()
	clock := newFakeClock()
	saver := &fakeSaver{}
	log := &fakeAttemptLog{}
	all := append([]Option{WithClock(clock.Now), WithSaver(saver), WithAttemptLog(log)}, opts...)
	return New(gesture.DefaultParams(), all...), clock, saver, log
}

// perform opens nothing; it feeds steps relative to the current clock and
// then polls at the window deadline.
func perform(s *Session, clock *fakeClock, steps []step) {
	start := clock.Now()
	for _, st := range steps {
		clock.Set(start, st.at)
		s.RecordSample(st.kind, gesture.Point{X: st.x, Y: st.y})
	}
	clock.Set(start, s.Params().Window)
	s.Poll()
}

var enrollSteps = []step{
	{gesture.Move, 10, 10, 0},
	{gesture.Click, 50, 10, time.Second},
	{gesture.Move, 10, 10, 2 * time.Second},
}

func TestWindowTimeoutByPoll(t *testing.T) {
	s, clock, saver, log := newTestSession(t)
	start := clock.Now()

	s.BeginEnroll()
	require.Equal(t, Recording, s.Mode())

	clock.Set(start, time.Second)
	s.RecordSample(gesture.Move, gesture.Point{X: 3, Y: 4})

	clock.Set(start, 3999*time.Millisecond)
	assert.False(t, s.Poll())
	require.Len(t, s.Buffer(), 1)

	clock.Set(start, 4*time.Second)
	assert.True(t, s.Poll())
	assert.Equal(t, Idle, s.Mode())
	assert.Nil(t, s.Buffer())

	ref := s.Reference()
	require.Len(t, ref, 1)
	assert.Equal(t, gesture.Point{}, ref[0].Pos)
	assert.Equal(t, 0.25, ref[0].Time)
	require.Len(t, saver.saved, 1)
	assert.Equal(t, ref, saver.saved[0])
	assert.Equal(t, OutcomeInfo, s.Status().Outcome)
	require.Len(t, log.attempts, 1)
	assert.Equal(t, model.ModeEnroll, log.attempts[0].Mode)
}

func TestLateSampleClosesWindowWithoutAppending(t *testing.T) {
	s, clock, _, _ := newTestSession(t)
	start := clock.Now()

	s.BeginEnroll()
	clock.Set(start, time.Second)
	s.RecordSample(gesture.Move, gesture.Point{X: 0, Y: 0})
	clock.Set(start, 5*time.Second)
	s.RecordSample(gesture.Click, gesture.Point{X: 100, Y: 100})

	assert.Equal(t, Idle, s.Mode())
	ref := s.Reference()
	require.Len(t, ref, 1)
	assert.Equal(t, 0, ref.Clicks())
}

func TestEmptyWindowReportsNoInput(t *testing.T) {
	s, clock, saver, log := newTestSession(t)
	start := clock.Now()

	s.BeginEnroll()
	clock.Set(start, 4*time.Second)
	require.True(t, s.Poll())

	assert.Equal(t, Idle, s.Mode())
	assert.False(t, s.HasReference())
	assert.ErrorIs(t, s.Status().Err, ErrEmptyWindow)
	assert.Empty(t, saver.saved)
	assert.Empty(t, log.attempts)
}

func TestVerifyWithoutReference(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	s.BeginVerify()
	assert.Equal(t, Idle, s.Mode())
	assert.ErrorIs(t, s.Status().Err, ErrNoReference)

	s.BeginEnroll()
	s.BeginVerify()
	assert.Equal(t, Recording, s.Mode(), "failed verify must not change state")
}

func TestRecordSampleIdleIsNoop(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	s.RecordSample(gesture.Click, gesture.Point{X: 1, Y: 1})
	assert.Nil(t, s.Buffer())
	assert.Equal(t, Idle, s.Mode())
}

func TestMicroMovementFilterInWindow(t *testing.T) {
	s, clock, _, _ := newTestSession(t)
	start := clock.Now()
	s.BeginEnroll()

	clock.Set(start, 100*time.Millisecond)
	s.RecordSample(gesture.Move, gesture.Point{X: 10, Y: 10})
	clock.Set(start, 200*time.Millisecond)
	s.RecordSample(gesture.Move, gesture.Point{X: 11, Y: 10})
	assert.Len(t, s.Buffer(), 1, "move under 2 units is dropped")

	clock.Set(start, 300*time.Millisecond)
	s.RecordSample(gesture.Move, gesture.Point{X: 12, Y: 10})
	assert.Len(t, s.Buffer(), 2, "move of exactly 2 units is kept")

	clock.Set(start, 400*time.Millisecond)
	s.RecordSample(gesture.Click, gesture.Point{X: 12, Y: 10})
	assert.Len(t, s.Buffer(), 3, "clicks are never filtered")
}

func TestEndToEndEnrollVerify(t *testing.T) {
	s, clock, _, log := newTestSession(t)

	s.BeginEnroll()
	perform(s, clock, enrollSteps)
	require.True(t, s.HasReference())
	require.Len(t, s.Reference(), 3)

	s.BeginVerify()
	require.Equal(t, Verifying, s.Mode())
	perform(s, clock, enrollSteps)

	score, ok := s.LastScore()
	require.True(t, ok)
	assert.Equal(t, 1.0, score.Similarity)
	assert.Equal(t, OutcomeAccepted, s.Status().Outcome)
	assert.Contains(t, s.Status().Message, "1.00")

	shifted := make([]step, len(enrollSteps))
	for i, st := range enrollSteps {
		shifted[i] = st
		shifted[i].x = st.x*1.2 + 5
		shifted[i].y = st.y*1.2 + 5
	}
	s.BeginVerify()
	perform(s, clock, shifted)

	score, _ = s.LastScore()
	assert.GreaterOrEqual(t, score.Similarity, 0.85)
	assert.Equal(t, OutcomeAccepted, s.Status().Outcome)
	assert.Equal(t, 0, s.FailedAttempts())

	require.Len(t, log.attempts, 3)
	assert.Equal(t, model.ModeVerify, log.attempts[2].Mode)
	assert.True(t, log.attempts[2].Accepted)
	assert.Equal(t, 0.85, log.attempts[2].Threshold)
}

func TestRejectedAttemptsAreCounted(t *testing.T) {
	s, clock, _, log := newTestSession(t)
	s.BeginEnroll()
	perform(s, clock, enrollSteps)

	noClicks := []step{
		{gesture.Move, 10, 10, 0},
		{gesture.Move, 50, 10, time.Second},
	}
	for i := 1; i <= 2; i++ {
		s.BeginVerify()
		perform(s, clock, noClicks)
		assert.Equal(t, OutcomeRejected, s.Status().Outcome)
		assert.Equal(t, i, s.FailedAttempts())
	}
	score, _ := s.LastScore()
	assert.True(t, score.ClickMismatch)
	assert.Equal(t, 0.0, score.Similarity)
	assert.Contains(t, s.Status().Message, "click count differs")
	assert.True(t, log.attempts[len(log.attempts)-1].ClickMismatch)

	s.BeginVerify()
	perform(s, clock, enrollSteps)
	assert.Equal(t, 0, s.FailedAttempts())
}

func TestResetKeepsReference(t *testing.T) {
	s, clock, _, _ := newTestSession(t)
	s.BeginEnroll()
	perform(s, clock, enrollSteps)

	s.BeginVerify()
	s.RecordSample(gesture.Move, gesture.Point{X: 1, Y: 1})
	s.Reset()

	assert.Equal(t, Idle, s.Mode())
	assert.Nil(t, s.Buffer())
	assert.True(t, s.HasReference())
	assert.Equal(t, "Reset", s.Status().Message)
}

func TestBeginEnrollRestartsWindow(t *testing.T) {
	s, clock, _, _ := newTestSession(t)
	start := clock.Now()
	s.BeginEnroll()
	s.RecordSample(gesture.Move, gesture.Point{X: 1, Y: 1})

	clock.Set(start, 3*time.Second)
	s.BeginEnroll()
	assert.Empty(t, s.Buffer())
	assert.Equal(t, 4*time.Second, s.Remaining())

	clock.Set(start, 5*time.Second)
	assert.False(t, s.Poll(), "deadline moves with the restarted window")
}

func TestFinishClosesEarly(t *testing.T) {
	s, clock, saver, _ := newTestSession(t)
	start := clock.Now()
	s.BeginEnroll()
	clock.Set(start, 500*time.Millisecond)
	s.RecordSample(gesture.Click, gesture.Point{X: 5, Y: 5})

	assert.True(t, s.Finish())
	assert.Equal(t, Idle, s.Mode())
	assert.Len(t, saver.saved, 1)
	assert.False(t, s.Finish())
}

func TestSaveFailureKeepsReferenceInMemory(t *testing.T) {
	s, clock, saver, _ := newTestSession(t)
	saver.err = errors.New("disk full")

	s.BeginEnroll()
	perform(s, clock, enrollSteps)

	assert.True(t, s.HasReference())
	assert.Equal(t, OutcomeWarning, s.Status().Outcome)
	assert.EqualError(t, s.Status().Err, "disk full")
	assert.Contains(t, s.Status().Message, "this session only")
}

func TestAttemptLogFailureIsNotSurfaced(t *testing.T) {
	s, clock, _, log := newTestSession(t)
	log.err = errors.New("db locked")

	s.BeginEnroll()
	perform(s, clock, enrollSteps)
	assert.Equal(t, OutcomeInfo, s.Status().Outcome)
	assert.NoError(t, s.Status().Err)
}

func TestReferenceIsReplacedNotMutated(t *testing.T) {
	s, clock, _, _ := newTestSession(t)
	s.BeginEnroll()
	perform(s, clock, enrollSteps)
	first := s.Reference()

	first[0].Pos = gesture.Point{X: 99, Y: 99}
	assert.NotEqual(t, first, s.Reference(), "callers get a copy")

	held := s.Reference()
	s.BeginEnroll()
	perform(s, clock, []step{{gesture.Move, 0, 0, 0}})
	assert.Len(t, held, 3, "an earlier copy is unaffected by re-enrollment")
	assert.Len(t, s.Reference(), 1)
}

func TestWithReferenceLoadsStartupGesture(t *testing.T) {
	ref := gesture.Buffer{{Kind: gesture.Click, Pos: gesture.Point{}, Time: 0.1}}
	s, _, _, _ := newTestSession(t, WithReference(ref))
	assert.True(t, s.HasReference())

	s.BeginVerify()
	assert.Equal(t, Verifying, s.Mode())
}

func TestRemaining(t *testing.T) {
	s, clock, _, _ := newTestSession(t)
	assert.Equal(t, time.Duration(0), s.Remaining())

	start := clock.Now()
	s.BeginEnroll()
	clock.Set(start, 1500*time.Millisecond)
	assert.Equal(t, 2500*time.Millisecond, s.Remaining())
	clock.Set(start, 10*time.Second)
	assert.Equal(t, time.Duration(0), s.Remaining())
}
