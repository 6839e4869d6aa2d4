package grid

import (
	"fmt"

	"github.com/pkg/errors"
)

// PolicyKind selects the allocation discipline a resource is constructed
// with. The set is closed; there is no runtime policy switching.
type PolicyKind int

const (
	// SpaceShared runs one job per concrete PE at the full per-PE rate.
	SpaceShared PolicyKind = iota
	// TimeShared divides each PE's instruction rate among the jobs
	// assigned to it (generalized processor sharing).
	TimeShared
	// AdvanceReservation is space-shared execution extended with the
	// booking protocol and reservation-aware dispatch.
	AdvanceReservation
)

var policyKindNames = map[PolicyKind]string{
	SpaceShared:        "space-shared",
	TimeShared:         "time-shared",
	AdvanceReservation: "advance-reservation",
}

func (k PolicyKind) String() string {
	if name, ok := policyKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// ParsePolicyKind maps a configuration string to a PolicyKind.
func ParsePolicyKind(s string) (PolicyKind, error) {
	for k, name := range policyKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, errors.Errorf("unknown allocation policy %q", s)
}

// Resource describes the static capability of one simulated resource:
// a fixed pool of identical PEs with a per-PE instruction rate.
type Resource struct {
	ID        int
	Name      string
	NumPE     int
	MIPSPerPE float64
	// TimeZone is the resource's local offset from simulation time, in ticks.
	TimeZone int64
	// LocalLoad is the resource-wide background utilization in [0, 1);
	// executing jobs only receive the remaining fraction of each share.
	LocalLoad float64
	// CostPerSec is the usage price recorded on each gridlet's execution
	// record; it does not influence scheduling.
	CostPerSec float64
	Policy     PolicyKind
}

// NewResource validates and constructs a resource description.
func NewResource(id int, name string, numPE int, mipsPerPE float64, timeZone int64, localLoad float64, policy PolicyKind) (*Resource, error) {
	if numPE <= 0 {
		return nil, errors.Errorf("resource %q: PE count must be positive, got %d", name, numPE)
	}
	if mipsPerPE <= 0 {
		return nil, errors.Errorf("resource %q: MIPS per PE must be positive, got %f", name, mipsPerPE)
	}
	if localLoad < 0 || localLoad >= 1 {
		return nil, errors.Errorf("resource %q: local load must be in [0, 1), got %f", name, localLoad)
	}
	return &Resource{
		ID:         id,
		Name:       name,
		NumPE:      numPE,
		MIPSPerPE:  mipsPerPE,
		TimeZone:   timeZone,
		LocalLoad:  localLoad,
		CostPerSec: 1.0,
		Policy:     policy,
	}, nil
}

// SupportsAdvanceReservation reports whether the resource accepts the
// booking protocol at all.
func (r *Resource) SupportsAdvanceReservation() bool {
	return r.Policy == AdvanceReservation
}
