package domain

import (
	"sync"
	"sync/atomic"
	"time"
)

// Session is the explicit state of one viewer: the selected run, time and
// variable, plus the in-flight guard that allows only one render at a time.
type Session struct {
	mu        sync.Mutex
	model     Model
	run       ModelRun
	timestamp time.Time
	variable  Variable

	inFlight atomic.Bool
}

// SessionState is an immutable snapshot of a Session.
type SessionState struct {
	Model        string    `json:"model"`
	Run          ModelRun  `json:"run"`
	Timestamp    time.Time `json:"timestamp"`
	ForecastHour int       `json:"forecast_hour"`
	Variable     string    `json:"variable"`
	RangeStart   time.Time `json:"range_start"`
	RangeEnd     time.Time `json:"range_end"`
}

// NewSession starts a session on run with m's default variable at the
// initial time for the current clock.
func NewSession(m Model, run ModelRun) *Session {
	s := &Session{model: m, run: run, variable: m.DefaultVariable()}
	snap := NewTimeSnapper(m, run)
	s.timestamp = snap.ApplyMinHour(snap.Initial(Now()), s.variable)
	return s
}

// Model returns the session's model configuration.
func (s *Session) Model() Model {
	return s.model
}

// Snapshot returns the current state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() SessionState {
	snap := NewTimeSnapper(s.model, s.run)
	return SessionState{
		Model:        s.model.Key,
		Run:          s.run,
		Timestamp:    s.timestamp,
		ForecastHour: snap.ForecastHour(s.timestamp),
		Variable:     s.variable.Key,
		RangeStart:   snap.Start(),
		RangeEnd:     snap.End(),
	}
}

// Request returns the run, variable and snapped forecast hour to render.
func (s *Session) Request() (ModelRun, Variable, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run, s.variable, NewTimeSnapper(s.model, s.run).ForecastHour(s.timestamp)
}

// TryBegin claims the in-flight slot. It returns false when a render is
// already running; the caller drops its request.
func (s *Session) TryBegin() bool {
	return s.inFlight.CompareAndSwap(false, true)
}

// End releases the in-flight slot.
func (s *Session) End() {
	s.inFlight.Store(false)
}

// InFlight reports whether a render is running.
func (s *Session) InFlight() bool {
	return s.inFlight.Load()
}

// Command mutates a session. Every command leaves the timestamp on the lattice.
type Command interface {
	apply(s *Session) error
}

// Apply reduces cmd into the session state and returns the new snapshot.
func (s *Session) Apply(cmd Command) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := cmd.apply(s); err != nil {
		return s.stateLocked(), err
	}
	return s.stateLocked(), nil
}

// SetVariable selects a variable by key, honouring its minimum forecast hour.
type SetVariable struct {
	Key string
}

func (c SetVariable) apply(s *Session) error {
	v, err := s.model.Variable(c.Key)
	if err != nil {
		return err
	}
	s.variable = v
	s.timestamp = NewTimeSnapper(s.model, s.run).ApplyMinHour(s.timestamp, v)
	return nil
}

// SetTimestamp moves to the lattice point nearest Time within the forecast range.
type SetTimestamp struct {
	Time time.Time
}

func (c SetTimestamp) apply(s *Session) error {
	s.timestamp = NewTimeSnapper(s.model, s.run).ApplyMinHour(c.Time, s.variable)
	return nil
}

// Step moves one lattice point forward (Direction > 0) or backward (< 0).
type Step struct {
	Direction int
}

// StepForward and StepBackward are the two Step commands.
var (
	StepForward  = Step{Direction: 1}
	StepBackward = Step{Direction: -1}
)

func (c Step) apply(s *Session) error {
	snap := NewTimeSnapper(s.model, s.run)
	s.timestamp = snap.ApplyMinHour(snap.Step(s.timestamp, c.Direction), s.variable)
	return nil
}

// SelectRun switches the session to another run, keeping the absolute time
// where the new range allows it.
type SelectRun struct {
	Run ModelRun
}

func (c SelectRun) apply(s *Session) error {
	s.run = c.Run
	s.timestamp = NewTimeSnapper(s.model, s.run).ApplyMinHour(s.timestamp, s.variable)
	return nil
}
