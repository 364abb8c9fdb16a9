package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, m Model, nowHours float64) *Session {
	t.Helper()
	withClock(t, hoursAfter(testRun, nowHours))
	return NewSession(m, testRun)
}

func TestNewSession(t *testing.T) {
	s := newTestSession(t, GFS025(), 6.2)

	state := s.Snapshot()
	assert.Equal(t, "gfs-0p25", state.Model)
	assert.Equal(t, "temp_2m", state.Variable)
	assert.Equal(t, 6, state.ForecastHour)
	assert.Equal(t, testRun.At(6), state.Timestamp)
	assert.Equal(t, testRun.Epoch(), state.RangeStart)
	assert.Equal(t, testRun.At(168), state.RangeEnd)
}

func TestSession_SetVariable(t *testing.T) {
	s := newTestSession(t, GFS025(), 0)

	state, err := s.Apply(SetVariable{Key: "precip_total"})
	require.NoError(t, err)
	assert.Equal(t, "precip_total", state.Variable)
	assert.Equal(t, 3, state.ForecastHour, "precipitation starts at hour 3")

	_, err = s.Apply(SetVariable{Key: "reflectivity_comp"})
	require.ErrorIs(t, err, ErrUnknownVariable)
	assert.Equal(t, "precip_total", s.Snapshot().Variable, "failed command leaves state unchanged")
}

func TestSession_SetTimestamp(t *testing.T) {
	s := newTestSession(t, GFS025(), 0)

	tests := []struct {
		name  string
		hours float64
		want  int
	}{
		{"snaps to the nearest hour", 17.6, 18},
		{"snaps across the crossover", 121.7, 123},
		{"clamps past range end", 400, 168},
		{"clamps before range start", -30, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := s.Apply(SetTimestamp{Time: hoursAfter(testRun, tt.hours)})
			require.NoError(t, err)
			assert.Equal(t, tt.want, state.ForecastHour)
			assert.Equal(t, testRun.At(tt.want), state.Timestamp)
		})
	}
}

func TestSession_Step(t *testing.T) {
	s := newTestSession(t, GFS025(), 119)

	var hours []int
	for range 3 {
		state, err := s.Apply(StepForward)
		require.NoError(t, err)
		hours = append(hours, state.ForecastHour)
	}
	assert.Equal(t, []int{120, 123, 126}, hours)

	state, err := s.Apply(StepBackward)
	require.NoError(t, err)
	assert.Equal(t, 123, state.ForecastHour)
}

func TestSession_StepRespectsMinHour(t *testing.T) {
	s := newTestSession(t, GFS025(), 4)
	_, err := s.Apply(SetVariable{Key: "precip_total"})
	require.NoError(t, err)

	state, err := s.Apply(StepBackward)
	require.NoError(t, err)
	assert.Equal(t, 3, state.ForecastHour)

	state, err = s.Apply(StepBackward)
	require.NoError(t, err)
	assert.Equal(t, 3, state.ForecastHour)
}

func TestSession_SelectRun(t *testing.T) {
	s := newTestSession(t, HRRR(), 10)

	next := ModelRun{Date: testRun.Date, Cycle: 18}
	state, err := s.Apply(SelectRun{Run: next})
	require.NoError(t, err)

	assert.Equal(t, next, state.Run)
	assert.Equal(t, 4, state.ForecastHour, "same absolute time in the later run")
	assert.Equal(t, testRun.At(10), state.Timestamp)
}

func TestSession_Request(t *testing.T) {
	s := newTestSession(t, HRRR(), 7)

	run, v, fh := s.Request()
	assert.Equal(t, testRun, run)
	assert.Equal(t, "reflectivity_comp", v.Key)
	assert.Equal(t, 7, fh)
}

func TestSession_SingleFlight(t *testing.T) {
	s := newTestSession(t, GFS025(), 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryBegin() {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.True(t, s.InFlight())

	s.End()
	assert.False(t, s.InFlight())
	assert.True(t, s.TryBegin())
}

func TestModelRun_Formatting(t *testing.T) {
	run := NewModelRun(time.Date(2024, time.June, 27, 17, 45, 0, 0, time.UTC), 6)
	assert.Equal(t, "20240627", run.DateString())
	assert.Equal(t, "06", run.CycleString())
	assert.Equal(t, "2024-06-27 06Z", run.String())
	assert.Equal(t, time.Date(2024, time.June, 27, 6, 0, 0, 0, time.UTC), run.Epoch())
	assert.InDelta(t, 2.5, run.ForecastHours(run.Epoch().Add(150*time.Minute)), 1e-9)
	assert.False(t, run.IsZero())
	assert.True(t, ModelRun{}.IsZero())
}
