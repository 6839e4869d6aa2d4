package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grid-sim/grid-sim/sim/grid"
)

func TestDirectory_LocalValidationSendsNothing(t *testing.T) {
	s := NewSimulator(1000)

	arRes, err := grid.NewResource(0, "ar", 4, 100, 0, 0, grid.AdvanceReservation)
	require.NoError(t, err)
	_, err = NewResourceScheduler(s, arRes)
	require.NoError(t, err)

	tsRes, err := grid.NewResource(1, "ts", 4, 100, 0, 0, grid.TimeShared)
	require.NoError(t, err)
	_, err = NewResourceScheduler(s, tsRes)
	require.NoError(t, err)

	d, err := NewReservationDirectory(s, 1000, "user0", 0)
	require.NoError(t, err)

	cases := []struct {
		name string
		call func() CreateOutcome
		want CreateOutcome
	}{
		{"unknown resource", func() CreateOutcome { return d.CreateAdvance(42, 10, 50, 2).Outcome }, CreateErrInvalidResource},
		{"no reservation support", func() CreateOutcome { return d.CreateAdvance(1, 10, 50, 2).Outcome }, CreateErrResourceUnsupported},
		{"zero PEs", func() CreateOutcome { return d.CreateAdvance(0, 10, 50, 0).Outcome }, CreateErrInvalidPECount},
		{"too many PEs", func() CreateOutcome { return d.CreateAdvance(0, 10, 50, 5).Outcome }, CreateErrInsufficientPE},
		{"start in the past", func() CreateOutcome { return d.CreateAdvance(0, -5, 50, 2).Outcome }, CreateErrInvalidStartTime},
		{"absent start", func() CreateOutcome { return d.CreateAdvance(0, NoValue, 50, 2).Outcome }, CreateErrInvalidStartTime},
		{"zero duration", func() CreateOutcome { return d.CreateAdvance(0, 10, 0, 2).Outcome }, CreateErrInvalidEndTime},
		{"immediate zero duration", func() CreateOutcome { return d.CreateImmediate(0, 0, 2).Outcome }, CreateErrInvalidEndTime},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.call())
			assert.Equal(t, 0, s.PendingEvents(), "rejection must not go on the wire")
		})
	}
}

func TestDirectory_MalformedBookingIDsFailLocally(t *testing.T) {
	s := NewSimulator(1000)
	res, err := grid.NewResource(0, "ar", 4, 100, 0, 0, grid.AdvanceReservation)
	require.NoError(t, err)
	_, err = NewResourceScheduler(s, res)
	require.NoError(t, err)
	d, err := NewReservationDirectory(s, 1000, "user0", 0)
	require.NoError(t, err)

	for _, id := range []string{"", "junk", "1_2_3", "a_0", "9_0"} {
		assert.Equal(t, CommitErrInvalidBookingID, d.Commit(id), "commit %q", id)
		assert.Equal(t, CancelErrInvalidBookingID, d.Cancel(id), "cancel %q", id)
		assert.Equal(t, ModifyErrInvalidBookingID, d.Modify(id, 10, 50, 2), "modify %q", id)
		assert.Equal(t, QueryDoesNotExist, d.QueryStatus(id), "query %q", id)
		assert.Equal(t, 0, s.PendingEvents())
	}
}

func TestDirectory_TimeZoneConversion(t *testing.T) {
	// GIVEN a resource 100 ticks ahead of the caller's zone
	s := NewSimulator(1000)
	res, err := grid.NewResource(0, "east", 4, 100, 100, 0, grid.AdvanceReservation)
	require.NoError(t, err)
	rs, err := NewResourceScheduler(s, res)
	require.NoError(t, err)
	d, err := NewReservationDirectory(s, 1000, "user0", 0)
	require.NoError(t, err)

	// WHEN the caller books caller-local [50, 60)
	created := d.CreateAdvance(0, 50, 10, 2)
	require.Equal(t, CreateSuccess, created.Outcome)

	// THEN the resource stores the interval in its own ticks, and the
	// expiry comes back converted to the caller's zone
	require.Len(t, rs.Reservations(), 1)
	assert.Equal(t, int64(150), rs.Reservations()[0].StartTime)
	assert.Equal(t, int64(50), created.Expiry)
}

func TestDirectory_CallerZoneAnchorsPastCheck(t *testing.T) {
	// GIVEN a caller whose local time is 30 ticks ahead of simulation time
	s := NewSimulator(1000)
	res, err := grid.NewResource(0, "ar", 4, 100, 0, 0, grid.AdvanceReservation)
	require.NoError(t, err)
	_, err = NewResourceScheduler(s, res)
	require.NoError(t, err)
	d, err := NewReservationDirectory(s, 1000, "user0", 30)
	require.NoError(t, err)

	// THEN a start before the caller's local now is rejected even though
	// it is in the simulator's future
	assert.Equal(t, CreateErrInvalidStartTime, d.CreateAdvance(0, 20, 50, 2).Outcome)
	assert.Equal(t, CreateSuccess, d.CreateAdvance(0, 30, 50, 2).Outcome)
}

func TestDirectory_SubmitWithoutAckIsFireAndForget(t *testing.T) {
	s := NewSimulator(1000)
	res, err := grid.NewResource(0, "ar", 2, 100, 0, 0, grid.AdvanceReservation)
	require.NoError(t, err)
	rs, err := NewResourceScheduler(s, res)
	require.NoError(t, err)
	d, err := NewReservationDirectory(s, 1000, "user0", 0)
	require.NoError(t, err)

	gl := grid.NewGridlet(1, 0, 500, 0, 0, 1)
	_, err = d.SubmitGridlet(0, gl, false)
	require.NoError(t, err)
	assert.Equal(t, 1000, gl.UserID)

	s.Run()

	// The job ran to completion and came back without any ack round trip.
	returned := d.Returned()
	require.Len(t, returned, 1)
	assert.Equal(t, grid.StatusSuccess, returned[0].Status)
	_, _, executing, _ := rs.QueueLengths()
	assert.Equal(t, 0, executing)
}

func TestDirectory_GridletStatusRoundTrip(t *testing.T) {
	s := NewSimulator(1000)
	res, err := grid.NewResource(0, "ar", 2, 100, 0, 0, grid.AdvanceReservation)
	require.NoError(t, err)
	_, err = NewResourceScheduler(s, res)
	require.NoError(t, err)
	d, err := NewReservationDirectory(s, 1000, "user0", 0)
	require.NoError(t, err)

	gl := grid.NewGridlet(7, 0, 100000, 0, 0, 1)
	_, err = d.SubmitGridlet(0, gl, true)
	require.NoError(t, err)

	ack, err := d.GridletStatus(0, 7)
	require.NoError(t, err)
	assert.True(t, ack.Found)
	assert.Equal(t, grid.StatusInExec, ack.Status)

	ack, err = d.GridletStatus(0, 99)
	require.NoError(t, err)
	assert.False(t, ack.Found)
}

func TestDirectory_CancelGridletReturnsPartialWork(t *testing.T) {
	s := NewSimulator(1000)
	res, err := grid.NewResource(0, "ar", 1, 100, 0, 0, grid.AdvanceReservation)
	require.NoError(t, err)
	_, err = NewResourceScheduler(s, res)
	require.NoError(t, err)
	d, err := NewReservationDirectory(s, 1000, "user0", 0)
	require.NoError(t, err)

	gl := grid.NewGridlet(1, 0, 100000, 0, 0, 1)
	_, err = d.SubmitGridlet(0, gl, true)
	require.NoError(t, err)

	s.ScheduleFunc(7, func(*Simulator) {
		ack, err := d.CancelGridlet(0, 1)
		require.NoError(t, err)
		assert.True(t, ack.Found)
		assert.Equal(t, grid.StatusCanceled, ack.Status)
	})
	s.Horizon = 10
	s.Run()

	returned := d.Returned()
	require.Len(t, returned, 1)
	assert.Equal(t, grid.StatusCanceled, returned[0].Status)
	assert.InDelta(t, 700.0, returned[0].FinishedSoFar(), 1e-9)

	// Cancelling an unknown job is answered, not an error.
	ack, err := d.CancelGridlet(0, 99)
	require.NoError(t, err)
	assert.False(t, ack.Found)
}

func TestDirectory_PauseResumeRetainsProgress(t *testing.T) {
	// GIVEN a 1000-MI job executing at 100 MI per tick from tick 0
	s := NewSimulator(1000)
	res, err := grid.NewResource(0, "ar", 1, 100, 0, 0, grid.AdvanceReservation)
	require.NoError(t, err)
	_, err = NewResourceScheduler(s, res)
	require.NoError(t, err)
	d, err := NewReservationDirectory(s, 1000, "user0", 0)
	require.NoError(t, err)

	gl := grid.NewGridlet(1, 0, 1000, 0, 0, 1)
	_, err = d.SubmitGridlet(0, gl, true)
	require.NoError(t, err)

	// WHEN it is paused at tick 5 and resumed at tick 8
	var atPause float64
	s.ScheduleFunc(5, func(*Simulator) {
		ack, err := d.PauseGridlet(0, 1)
		require.NoError(t, err)
		assert.Equal(t, grid.StatusPaused, ack.Status)
		atPause = gl.FinishedSoFar()
	})
	s.ScheduleFunc(8, func(*Simulator) {
		_, err := d.ResumeGridlet(0, 1)
		require.NoError(t, err)
	})
	var doneAt12, doneAt14 bool
	s.ScheduleFunc(12, func(*Simulator) { doneAt12 = gl.IsFinished() })
	s.ScheduleFunc(14, func(*Simulator) { doneAt14 = gl.IsFinished() })
	s.Run()

	// THEN the three paused ticks do not count: the job needs until tick
	// 13 instead of 10, and no progress is lost
	assert.InDelta(t, 500.0, atPause, 1e-9)
	assert.False(t, doneAt12)
	assert.True(t, doneAt14)
	returned := d.Returned()
	require.Len(t, returned, 1)
	assert.Equal(t, grid.StatusSuccess, returned[0].Status)
	assert.InDelta(t, 1000.0, returned[0].FinishedSoFar(), 1e-9)
}

func TestDirectory_MoveGridletCarriesProgressRecord(t *testing.T) {
	// GIVEN two resources and a job started on the first
	s := NewSimulator(1000)
	resA, err := grid.NewResource(0, "a", 1, 100, 0, 0, grid.AdvanceReservation)
	require.NoError(t, err)
	_, err = NewResourceScheduler(s, resA)
	require.NoError(t, err)
	resB, err := grid.NewResource(1, "b", 1, 200, 0, 0, grid.AdvanceReservation)
	require.NoError(t, err)
	_, err = NewResourceScheduler(s, resB)
	require.NoError(t, err)
	d, err := NewReservationDirectory(s, 1000, "user0", 0)
	require.NoError(t, err)

	gl := grid.NewGridlet(1, 0, 100000, 0, 0, 1)
	_, err = d.SubmitGridlet(0, gl, true)
	require.NoError(t, err)

	// WHEN it moves to the second resource at tick 10
	var history []grid.ExecRecord
	s.ScheduleFunc(10, func(*Simulator) {
		ack, err := d.MoveGridlet(0, 1, 1)
		require.NoError(t, err)
		assert.True(t, ack.Found)
	})
	s.ScheduleFunc(11, func(*Simulator) {
		history = gl.History()
	})
	s.Horizon = 20
	s.Run()

	// THEN the first resource's record keeps the progress made there and a
	// fresh record opens on the destination
	require.Len(t, history, 2)
	assert.Equal(t, 0, history[0].ResourceID)
	assert.InDelta(t, 1000.0, history[0].FinishedSoFar, 1e-9)
	assert.Equal(t, 1, history[1].ResourceID)
	assert.Equal(t, grid.StatusInExec, gl.Status)
}
