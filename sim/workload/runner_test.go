package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_ReservedAndOrdinaryJobsComplete(t *testing.T) {
	// GIVEN one 4-PE reservation resource and a script booking 2 PEs over
	// [10, 60) with two fixed-length jobs, plus an ordinary submission
	scn := &Scenario{
		Seed:    1,
		Horizon: 10000,
		Resources: []ResourceSpec{
			{Name: "cluster-a", PE: 4, MIPSPerPE: 100, Policy: "advance-reservation"},
		},
		Users: []UserSpec{
			{Name: "alice", Actions: []ActionSpec{
				{At: 0, Op: OpReserve, Resource: "cluster-a", Start: 10, Duration: 50, PE: 2, Commit: true, Jobs: 2, Length: 1000},
				{At: 5, Op: OpSubmit, Resource: "cluster-a", Length: 500},
			}},
		},
	}
	require.NoError(t, scn.Validate())

	r, err := Build(scn)
	require.NoError(t, err)
	summary := r.Run()

	// THEN every job runs to completion and the summary reflects it
	assert.Equal(t, 1, summary.ReservationsAccepted)
	assert.Equal(t, 0, summary.ReservationsRejected)
	assert.Equal(t, 1, summary.CommitsSucceeded)
	assert.Equal(t, 3, summary.JobsSubmitted)
	assert.Equal(t, 3, summary.JobsReturned)
	assert.Equal(t, 3, summary.JobsSucceeded)
}

func TestRunner_RejectionCounted(t *testing.T) {
	// Two users compete for the same 2 PEs over the same interval; the
	// second booking must be rejected.
	scn := &Scenario{
		Seed:    1,
		Horizon: 10000,
		Resources: []ResourceSpec{
			{Name: "small", PE: 2, MIPSPerPE: 100, Policy: "advance-reservation"},
		},
		Users: []UserSpec{
			{Name: "alice", Actions: []ActionSpec{
				{At: 0, Op: OpReserve, Resource: "small", Start: 100, Duration: 100, PE: 2},
			}},
			{Name: "bob", Actions: []ActionSpec{
				{At: 1, Op: OpReserve, Resource: "small", Start: 150, Duration: 100, PE: 1},
			}},
		},
	}
	r, err := Build(scn)
	require.NoError(t, err)
	summary := r.Run()

	assert.Equal(t, 1, summary.ReservationsAccepted)
	assert.Equal(t, 1, summary.ReservationsRejected)
}

func TestRunner_UserTimeZoneAnchorsActions(t *testing.T) {
	// GIVEN a user 50 ticks ahead of simulation time booking at local 60
	scn := &Scenario{
		Seed:    1,
		Horizon: 10000,
		Resources: []ResourceSpec{
			{Name: "cluster-a", PE: 4, MIPSPerPE: 100, Policy: "advance-reservation"},
		},
		Users: []UserSpec{
			{Name: "alice", TimeZone: 50, Actions: []ActionSpec{
				{At: 60, Op: OpReserve, Resource: "cluster-a", Start: 70, Duration: 10, PE: 1, Commit: true, Jobs: 1, Length: 100},
			}},
		},
	}
	r, err := Build(scn)
	require.NoError(t, err)
	summary := r.Run()

	assert.Equal(t, 1, summary.ReservationsAccepted)
	assert.Equal(t, 1, summary.CommitsSucceeded)
	assert.Equal(t, 1, summary.JobsSucceeded)
}

func TestRunner_ImmediateZeroDurationMeansAsLongAsPossible(t *testing.T) {
	scn := &Scenario{
		Seed:    1,
		Horizon: 10000,
		Resources: []ResourceSpec{
			{Name: "cluster-a", PE: 2, MIPSPerPE: 100, Policy: "advance-reservation"},
		},
		Users: []UserSpec{
			{Name: "alice", Actions: []ActionSpec{
				{At: 0, Op: OpReserveImmediate, Resource: "cluster-a", PE: 1, Commit: true, Jobs: 1, Length: 200},
			}},
		},
	}
	r, err := Build(scn)
	require.NoError(t, err)
	summary := r.Run()

	assert.Equal(t, 1, summary.ReservationsAccepted)
	assert.Equal(t, 1, summary.CommitsSucceeded)
	assert.Equal(t, 1, summary.JobsSucceeded)
}

func TestRunner_DeterministicAcrossRuns(t *testing.T) {
	build := func() *Summary {
		scn := &Scenario{
			Seed:    99,
			Horizon: 10000,
			Resources: []ResourceSpec{
				{Name: "cluster-a", PE: 2, MIPSPerPE: 100, Policy: "advance-reservation"},
			},
			Users: []UserSpec{
				{Name: "alice", Actions: []ActionSpec{
					{At: 0, Op: OpSubmit, Resource: "cluster-a", Length: 1000, LengthStdev: 200},
					{At: 0, Op: OpSubmit, Resource: "cluster-a", Length: 1000, LengthStdev: 200},
					{At: 2, Op: OpSubmit, Resource: "cluster-a", Length: 1000, LengthStdev: 200},
				}},
			},
		}
		r, err := Build(scn)
		require.NoError(t, err)
		return r.Run()
	}

	first := build()
	second := build()
	assert.Equal(t, first, second)
	assert.Equal(t, 3, first.JobsSucceeded)
	assert.Equal(t, first.FinalClock, second.FinalClock)
}

func TestRunner_ResourceID(t *testing.T) {
	scn := validScenario()
	r, err := Build(scn)
	require.NoError(t, err)

	id, err := r.ResourceID("cluster-a")
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	_, err = r.ResourceID("nowhere")
	assert.Error(t, err)

	assert.NotNil(t, r.Directory("alice"))
	assert.Nil(t, r.Directory("nobody"))
}
