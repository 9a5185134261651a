// Package session owns the capture state machine for enrolling and verifying
// gesture passwords.
//
// A Session is driven from a single loop: input handlers call the Begin*,
// Reset and RecordSample methods, and the frame tick calls Poll so a window
// closes on time even when the pointer stops moving. Nothing blocks and no
// method is safe for concurrent use.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/tuipass/internal/gesture"
	"github.com/verte-zerg/tuipass/internal/logging"
	"github.com/verte-zerg/tuipass/internal/model"
)

var (
	// ErrNoReference is reported when verification starts before enrollment.
	ErrNoReference = errors.New("no reference gesture enrolled")
	// ErrEmptyWindow is reported when a window closes without samples.
	ErrEmptyWindow = errors.New("no input captured")
)

// Mode is the capture state.
type Mode int

const (
	// Idle means no window is open.
	Idle Mode = iota
	// Recording means a new reference is being captured.
	Recording
	// Verifying means an attempt is being captured.
	Verifying
)

func (m Mode) String() string {
	switch m {
	case Recording:
		return "recording"
	case Verifying:
		return "verifying"
	default:
		return "idle"
	}
}

// Outcome classifies a status message for display.
type Outcome int

// Status outcomes.
const (
	OutcomeInfo Outcome = iota
	OutcomeRecording
	OutcomeVerifying
	OutcomeAccepted
	OutcomeRejected
	OutcomeWarning
)

// Status is the last result shown to the user.
type Status struct {
	Message string
	Outcome Outcome
	// Err is the recovered error behind the message, if any.
	Err error
	At  time.Time
}

// ReferenceSaver persists a newly enrolled reference.
type ReferenceSaver interface {
	Save(ref gesture.Buffer) error
}

// AttemptLogger records closed windows.
type AttemptLogger interface {
	InsertAttempt(ctx context.Context, attempt model.Attempt) (int64, error)
}

type window struct {
	mode   Mode
	start  time.Time
	buffer []gesture.RawSample
}

// Session tracks the capture window and the enrolled reference.
type Session struct {
	params   gesture.Params
	now      func() time.Time
	saver    ReferenceSaver
	attempts AttemptLogger
	logger   *slog.Logger

	reference gesture.Buffer
	// active is nil while idle.
	active *window
	status Status

	failed    int
	lastScore gesture.Score
	hasScore  bool
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithReference installs a reference loaded at startup.
func WithReference(ref gesture.Buffer) Option {
	return func(s *Session) { s.reference = ref.Clone() }
}

// WithSaver sets where new references are persisted.
func WithSaver(saver ReferenceSaver) Option {
	return func(s *Session) { s.saver = saver }
}

// WithAttemptLog sets where closed windows are recorded.
func WithAttemptLog(log AttemptLogger) Option {
	return func(s *Session) { s.attempts = log }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// New constructs an idle session.
func New(params gesture.Params, opts ...Option) *Session {
	s := &Session{
		params: params,
		now:    time.Now,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.reference) == 0 {
		s.reference = nil
	}
	return s
}

// Params returns the capture parameters.
func (s *Session) Params() gesture.Params {
	return s.params
}

// Mode returns the current capture state.
func (s *Session) Mode() Mode {
	if s.active == nil {
		return Idle
	}
	return s.active.mode
}

// Buffer returns a copy of the in-progress raw samples.
func (s *Session) Buffer() []gesture.RawSample {
	if s.active == nil {
		return nil
	}
	out := make([]gesture.RawSample, len(s.active.buffer))
	copy(out, s.active.buffer)
	return out
}

// Status returns the last status.
func (s *Session) Status() Status {
	return s.status
}

// HasReference reports whether a gesture is enrolled.
func (s *Session) HasReference() bool {
	return s.reference != nil
}

// Reference returns a copy of the enrolled gesture, or nil.
func (s *Session) Reference() gesture.Buffer {
	return s.reference.Clone()
}

// FailedAttempts counts rejected verifications since the last accept or
// enrollment.
func (s *Session) FailedAttempts() int {
	return s.failed
}

// LastScore returns the score of the most recent verification.
func (s *Session) LastScore() (gesture.Score, bool) {
	return s.lastScore, s.hasScore
}

// Remaining returns the time left in the active window.
func (s *Session) Remaining() time.Duration {
	if s.active == nil {
		return 0
	}
	left := s.params.Window - s.now().Sub(s.active.start)
	if left < 0 {
		return 0
	}
	return left
}

// BeginEnroll opens a recording window, discarding any window in progress.
func (s *Session) BeginEnroll() {
	now := s.now()
	s.active = &window{mode: Recording, start: now}
	s.setStatus(now, OutcomeRecording, nil,
		fmt.Sprintf("Recording: perform your gesture within %s", formatSeconds(s.params.Window)))
	s.logger.Debug("window opened", "mode", Recording.String())
}

// BeginVerify opens a verification window. Without a reference it only
// reports ErrNoReference.
func (s *Session) BeginVerify() {
	now := s.now()
	if s.reference == nil {
		s.setStatus(now, OutcomeWarning, ErrNoReference, "No gesture enrolled yet: record one first")
		return
	}
	s.active = &window{mode: Verifying, start: now}
	s.setStatus(now, OutcomeVerifying, nil,
		fmt.Sprintf("Verifying: repeat your gesture within %s", formatSeconds(s.params.Window)))
	s.logger.Debug("window opened", "mode", Verifying.String())
}

// Reset returns to idle and discards the window in progress. The reference
// is kept.
func (s *Session) Reset() {
	s.active = nil
	s.setStatus(s.now(), OutcomeInfo, nil, "Reset")
}

// RecordSample adds a pointer sample to the active window. A sample that
// arrives after the deadline closes the window instead of being appended.
func (s *Session) RecordSample(kind gesture.Kind, pos gesture.Point) {
	if s.active == nil {
		return
	}
	now := s.now()
	elapsed := now.Sub(s.active.start)
	if elapsed >= s.params.Window {
		s.closeWindow(now)
		return
	}
	sample := gesture.RawSample{Kind: kind, Pos: pos, Elapsed: elapsed}
	if !s.params.Keep(s.active.buffer, sample) {
		return
	}
	s.active.buffer = append(s.active.buffer, sample)
}

// Poll closes the active window once its deadline has passed. It reports
// whether a window was closed.
func (s *Session) Poll() bool {
	if s.active == nil {
		return false
	}
	now := s.now()
	if now.Sub(s.active.start) < s.params.Window {
		return false
	}
	s.closeWindow(now)
	return true
}

// Finish closes the active window before its deadline.
func (s *Session) Finish() bool {
	if s.active == nil {
		return false
	}
	s.closeWindow(s.now())
	return true
}

func (s *Session) closeWindow(now time.Time) {
	w := s.active
	s.active = nil

	if len(w.buffer) == 0 {
		s.setStatus(now, OutcomeWarning, ErrEmptyWindow, "No input captured")
		s.logger.Info("window closed without input", "mode", w.mode.String())
		return
	}
	norm, err := gesture.Normalize(w.buffer, s.params.Window)
	if err != nil {
		s.setStatus(now, OutcomeWarning, err, "No input captured")
		return
	}

	attempt := model.Attempt{
		StartedAt: w.start,
		EndedAt:   now,
		Samples:   len(norm),
		Clicks:    norm.Clicks(),
		Threshold: s.params.AcceptThreshold,
	}

	switch w.mode {
	case Recording:
		attempt.Mode = model.ModeEnroll
		s.enroll(now, norm)
	case Verifying:
		attempt.Mode = model.ModeVerify
		score := s.verify(now, norm)
		attempt.PositionScore = score.Position
		attempt.TimeScore = score.Time
		attempt.SequenceScore = score.Sequence
		attempt.Similarity = score.Similarity
		attempt.ClickMismatch = score.ClickMismatch
		attempt.Accepted = s.params.Accepts(score.Similarity)
	}
	s.logAttempt(attempt)
}

func (s *Session) enroll(now time.Time, norm gesture.Buffer) {
	s.reference = norm
	s.failed = 0
	s.hasScore = false
	s.logger.Info("reference enrolled", "samples", len(norm), "clicks", norm.Clicks())
	if s.saver == nil {
		s.setStatus(now, OutcomeInfo, nil, "Gesture saved")
		return
	}
	if err := s.saver.Save(norm); err != nil {
		s.logger.Error("failed to persist reference", "err", err)
		s.setStatus(now, OutcomeWarning, err,
			fmt.Sprintf("Gesture saved for this session only: %v", err))
		return
	}
	s.setStatus(now, OutcomeInfo, nil, "Gesture saved")
}

func (s *Session) verify(now time.Time, norm gesture.Buffer) gesture.Score {
	score := gesture.Compare(s.reference, norm, s.params.Weights)
	s.lastScore = score
	s.hasScore = true
	accepted := s.params.Accepts(score.Similarity)
	s.logger.Info("verification finished",
		"samples", len(norm),
		"similarity", score.Similarity,
		"accepted", accepted,
		"click_mismatch", score.ClickMismatch,
	)
	if accepted {
		s.failed = 0
		s.setStatus(now, OutcomeAccepted, nil,
			fmt.Sprintf("Accepted: similarity %.2f", score.Similarity))
		return score
	}
	s.failed++
	msg := fmt.Sprintf("Rejected: similarity %.2f", score.Similarity)
	if score.ClickMismatch {
		msg += " (click count differs)"
	}
	s.setStatus(now, OutcomeRejected, nil, msg)
	return score
}

func (s *Session) logAttempt(attempt model.Attempt) {
	if s.attempts == nil {
		return
	}
	if _, err := s.attempts.InsertAttempt(context.Background(), attempt); err != nil {
		s.logger.Error("failed to record attempt", "mode", attempt.Mode, "err", err)
	}
}

func (s *Session) setStatus(now time.Time, outcome Outcome, err error, msg string) {
	s.status = Status{Message: msg, Outcome: outcome, Err: err, At: now}
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%gs", d.Seconds())
}
