// Builds a simulator from a scenario and drives the user scripts through
// it, collecting a summary of protocol outcomes.

package workload

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	simpkg "github.com/grid-sim/grid-sim/sim"
	"github.com/grid-sim/grid-sim/sim/grid"
)

// User entity ids start above resource ids so the two spaces never collide.
const userIDBase = 1000

// Summary aggregates the outcomes of one scenario run.
type Summary struct {
	ReservationsAccepted int
	ReservationsRejected int
	CommitsSucceeded     int
	CommitsFailed        int
	JobsSubmitted        int
	JobsReturned         int
	JobsSucceeded        int
	FinalClock           int64
}

func (s *Summary) String() string {
	return fmt.Sprintf("reservations: %d accepted / %d rejected; commits: %d ok / %d failed; jobs: %d submitted, %d returned (%d succeeded); final clock: %d",
		s.ReservationsAccepted, s.ReservationsRejected, s.CommitsSucceeded, s.CommitsFailed,
		s.JobsSubmitted, s.JobsReturned, s.JobsSucceeded, s.FinalClock)
}

// Runner owns a built simulation and its entities.
type Runner struct {
	Sim     *simpkg.Simulator
	Summary *Summary

	resourceIDs map[string]int
	users       map[string]*simpkg.ReservationDirectory
	rng         *PartitionedRNG
	nextGridlet int
}

// Build constructs the simulator, resources and users of a scenario and
// schedules every scripted action.
func Build(scn *Scenario) (*Runner, error) {
	s := simpkg.NewSimulator(scn.Horizon)
	s.MessageLatency = scn.MessageLatency

	r := &Runner{
		Sim:         s,
		Summary:     &Summary{},
		resourceIDs: make(map[string]int),
		users:       make(map[string]*simpkg.ReservationDirectory),
		rng:         NewPartitionedRNG(scn.Seed),
	}

	for i, spec := range scn.Resources {
		policy, err := grid.ParsePolicyKind(spec.Policy)
		if err != nil {
			return nil, err
		}
		res, err := grid.NewResource(i, spec.Name, spec.PE, spec.MIPSPerPE, spec.TimeZone, spec.LocalLoad, policy)
		if err != nil {
			return nil, err
		}
		if spec.CostPerSec > 0 {
			res.CostPerSec = spec.CostPerSec
		}
		if _, err := simpkg.NewResourceScheduler(s, res); err != nil {
			return nil, err
		}
		r.resourceIDs[spec.Name] = res.ID
	}

	for i, spec := range scn.Users {
		dir, err := simpkg.NewReservationDirectory(s, userIDBase+i, spec.Name, spec.TimeZone)
		if err != nil {
			return nil, err
		}
		r.users[spec.Name] = dir
		for _, action := range spec.Actions {
			r.scheduleAction(dir, spec, action)
		}
	}
	return r, nil
}

// scheduleAction turns one scripted step into a simulator event. Action
// times are user-local; the event is scheduled at the absolute tick.
func (r *Runner) scheduleAction(dir *simpkg.ReservationDirectory, user UserSpec, action ActionSpec) {
	at := action.At - user.TimeZone
	resourceID := r.resourceIDs[action.Resource]

	switch action.Op {
	case OpReserve, OpReserveImmediate:
		r.Sim.ScheduleFunc(at, func(s *simpkg.Simulator) {
			r.runReserve(dir, user.Name, resourceID, action)
		})
	case OpSubmit:
		r.Sim.ScheduleFunc(at, func(s *simpkg.Simulator) {
			gl := r.newGridlet(user.Name, action)
			if _, err := dir.SubmitGridlet(resourceID, gl, false); err != nil {
				logrus.Warnf("%s: submit failed: %v", user.Name, err)
				return
			}
			r.Summary.JobsSubmitted++
		})
	}
}

func (r *Runner) runReserve(dir *simpkg.ReservationDirectory, userName string, resourceID int, action ActionSpec) {
	var result simpkg.CreateResult
	if action.Op == OpReserveImmediate {
		duration := action.Duration
		if duration == 0 {
			duration = simpkg.NoValue
		}
		result = dir.CreateImmediate(resourceID, duration, action.PE)
	} else {
		result = dir.CreateAdvance(resourceID, action.Start, action.Duration, action.PE)
	}
	if result.Outcome != simpkg.CreateSuccess {
		logrus.Infof("%s: reservation on resource %d rejected: %s", userName, resourceID, result.Outcome)
		r.Summary.ReservationsRejected++
		return
	}
	r.Summary.ReservationsAccepted++

	if !action.Commit {
		return
	}
	gridlets := make([]*grid.Gridlet, 0, action.Jobs)
	for i := 0; i < action.Jobs; i++ {
		gridlets = append(gridlets, r.newGridlet(userName, action))
	}
	outcome := dir.Commit(result.BookingID, gridlets...)
	if outcome != simpkg.CommitSuccess {
		logrus.Infof("%s: commit of %s failed: %s", userName, result.BookingID, outcome)
		r.Summary.CommitsFailed++
		return
	}
	r.Summary.CommitsSucceeded++
	r.Summary.JobsSubmitted += len(gridlets)
}

// newGridlet samples a job from the action's length distribution using the
// user's isolated RNG stream.
func (r *Runner) newGridlet(userName string, action ActionSpec) *grid.Gridlet {
	length := action.Length
	if length <= 0 {
		length = 1000
	}
	if action.LengthStdev > 0 {
		length += action.LengthStdev * r.rng.For("user_"+userName).NormFloat64()
		if length < 1 {
			length = 1
		}
	}
	r.nextGridlet++
	return grid.NewGridlet(r.nextGridlet, 0, length, 0, 0, 1)
}

// Run executes the scenario to completion and fills in the summary.
func (r *Runner) Run() *Summary {
	r.Sim.Run()
	for _, dir := range r.users {
		for _, gl := range dir.Returned() {
			r.Summary.JobsReturned++
			if gl.Status == grid.StatusSuccess {
				r.Summary.JobsSucceeded++
			}
		}
	}
	r.Summary.FinalClock = r.Sim.Clock
	return r.Summary
}

// Directory returns a user's directory, for tests and embedders.
func (r *Runner) Directory(userName string) *simpkg.ReservationDirectory {
	return r.users[userName]
}

// ResourceID maps a resource name to its entity id.
func (r *Runner) ResourceID(name string) (int, error) {
	id, ok := r.resourceIDs[name]
	if !ok {
		return 0, errors.Errorf("unknown resource %q", name)
	}
	return id, nil
}
