package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReservation_Overlaps(t *testing.T) {
	r := &Reservation{StartTime: 100, Duration: 50} // [100, 150)

	cases := []struct {
		name       string
		start, end int64
		want       bool
	}{
		{"fully inside", 110, 120, true},
		{"covers", 50, 200, true},
		{"left edge touch", 50, 100, false}, // [50,100) ends where r starts
		{"right edge touch", 150, 200, false},
		{"left overlap", 90, 110, true},
		{"right overlap", 140, 160, true},
		{"disjoint before", 0, 50, false},
		{"disjoint after", 200, 300, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, r.Overlaps(c.start, c.end), c.name)
	}
}

func TestReservation_AttachDetach(t *testing.T) {
	r := &Reservation{NumPE: 2}

	assert.Equal(t, 1, r.AttachJob())
	assert.Equal(t, 2, r.AttachJob())
	assert.Equal(t, 1, r.DetachJob())
	assert.Equal(t, 0, r.DetachJob())

	// The counter never goes below zero.
	assert.Equal(t, 0, r.DetachJob())
}

func TestReservation_EndTime(t *testing.T) {
	r := &Reservation{StartTime: 100, Duration: 50}
	assert.Equal(t, int64(150), r.EndTime())
}

func TestNewResource_Validation(t *testing.T) {
	_, err := NewResource(0, "r", 0, 100, 0, 0, SpaceShared)
	assert.Error(t, err, "zero PEs")

	_, err = NewResource(0, "r", 4, 0, 0, 0, SpaceShared)
	assert.Error(t, err, "zero MIPS")

	_, err = NewResource(0, "r", 4, 100, 0, 1.0, SpaceShared)
	assert.Error(t, err, "full local load")

	res, err := NewResource(0, "r", 4, 100, 0, 0.5, AdvanceReservation)
	assert.NoError(t, err)
	assert.True(t, res.SupportsAdvanceReservation())
}

func TestParsePolicyKind(t *testing.T) {
	k, err := ParsePolicyKind("time-shared")
	assert.NoError(t, err)
	assert.Equal(t, TimeShared, k)

	_, err = ParsePolicyKind("best-effort")
	assert.Error(t, err)
}
