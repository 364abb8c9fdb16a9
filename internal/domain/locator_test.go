package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withClock(t *testing.T, at time.Time) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCandidates_GFS(t *testing.T) {
	withClock(t, time.Date(2024, time.June, 28, 3, 0, 0, 0, time.UTC))

	got := Candidates(GFS025())
	require.Len(t, got, 12)

	want := []ModelRun{
		{Date: day(2024, time.June, 28), Cycle: 18},
		{Date: day(2024, time.June, 28), Cycle: 12},
		{Date: day(2024, time.June, 28), Cycle: 6},
		{Date: day(2024, time.June, 28), Cycle: 0},
		{Date: day(2024, time.June, 27), Cycle: 18},
	}
	assert.Equal(t, want, got[:5])
	assert.Equal(t, ModelRun{Date: day(2024, time.June, 26), Cycle: 0}, got[11])
}

func TestCandidates_HRRR(t *testing.T) {
	withClock(t, time.Date(2024, time.June, 28, 3, 30, 0, 0, time.UTC))

	got := Candidates(HRRR())
	require.Len(t, got, 48)
	assert.Equal(t, ModelRun{Date: day(2024, time.June, 28), Cycle: 3}, got[0])
	assert.Equal(t, ModelRun{Date: day(2024, time.June, 28), Cycle: 0}, got[3])
	assert.Equal(t, ModelRun{Date: day(2024, time.June, 27), Cycle: 23}, got[4])
}

func TestFindLatestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("first confirmed candidate wins", func(t *testing.T) {
		withClock(t, time.Date(2024, time.June, 28, 3, 0, 0, 0, time.UTC))

		var probed []string
		probe := func(_ context.Context, path string) (bool, error) {
			probed = append(probed, path)
			return path == "gfs.20240627/12/atmos/gfs.t12z.pgrb2.0p25.f168.idx", nil
		}

		run, err := FindLatestRun(ctx, GFS025(), probe, discardLogger())
		require.NoError(t, err)
		assert.Equal(t, ModelRun{Date: day(2024, time.June, 27), Cycle: 12}, run)
		assert.Len(t, probed, 6)
		assert.Equal(t, "gfs.20240628/18/atmos/gfs.t18z.pgrb2.0p25.f168.idx", probed[0])
	})

	t.Run("probe errors reject only that candidate", func(t *testing.T) {
		withClock(t, time.Date(2024, time.June, 28, 3, 30, 0, 0, time.UTC))

		calls := 0
		probe := func(_ context.Context, path string) (bool, error) {
			calls++
			if calls == 1 {
				assert.Equal(t, "hrrr.20240628/conus/hrrr.t03z.wrfsfcf18.grib2.idx", path)
				return false, errors.New("connection reset")
			}
			return true, nil
		}

		run, err := FindLatestRun(ctx, HRRR(), probe, discardLogger())
		require.NoError(t, err)
		assert.Equal(t, ModelRun{Date: day(2024, time.June, 28), Cycle: 2}, run)
	})

	t.Run("exhausted candidates", func(t *testing.T) {
		withClock(t, time.Date(2024, time.June, 28, 3, 0, 0, 0, time.UTC))

		probe := func(context.Context, string) (bool, error) { return false, nil }
		_, err := FindLatestRun(ctx, GFS100(), probe, discardLogger())
		assert.ErrorIs(t, err, ErrRunNotFound)
	})

	t.Run("cancelled context stops the walk", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		probe := func(context.Context, string) (bool, error) {
			t.Fatal("probe called after cancellation")
			return false, nil
		}
		_, err := FindLatestRun(cctx, GFS025(), probe, discardLogger())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestModelPaths(t *testing.T) {
	run := ModelRun{Date: day(2024, time.June, 27), Cycle: 12}

	assert.Equal(t, "gfs.20240627/12/atmos/gfs.t12z.pgrb2.1p00.f000", GFS100().ObjectPath(run, 0))
	assert.Equal(t, "gfs.20240627/12/atmos/gfs.t12z.pgrb2.0p25.f123.idx", GFS025().IndexPath(run, 123))

	hrrrRun := ModelRun{Date: day(2024, time.June, 28), Cycle: 3}
	assert.Equal(t, "hrrr.20240628/conus/hrrr.t03z.wrfsfcf07.grib2", HRRR().ObjectPath(hrrrRun, 7))
}

func TestLookupModel(t *testing.T) {
	m, err := LookupModel("hrrr")
	require.NoError(t, err)
	assert.Equal(t, LayoutLambert, m.Layout)

	_, err = LookupModel("nam")
	assert.ErrorIs(t, err, ErrUnknownModel)

	_, err = m.Variable("precip_total")
	assert.ErrorIs(t, err, ErrUnknownVariable)
}
