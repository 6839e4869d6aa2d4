// Generalized processor sharing over a fixed PE pool. Progress is never
// simulated tick by tick: each executing job's finished-so-far length is
// advanced only at event boundaries from elapsed time and its current
// instruction-rate share, and a single wakeup is kept at the earliest
// forecast finish.

package sim

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/grid-sim/grid-sim/sim/grid"
)

// execJob binds an executing gridlet to its current allocation.
type execJob struct {
	gl *grid.Gridlet
	// rate is the instruction-rate share (MI per tick) currently assigned
	// by the allocation discipline, before the local-load discount.
	rate float64
	// reserved jobs hold a PE granted by a committed reservation.
	reserved bool
	resvID   int
}

// sharePolicy is the closed set of allocation disciplines. A resource is
// constructed with exactly one; there is no runtime switching.
type sharePolicy interface {
	// assignRates distributes the per-PE instruction rate among the
	// executing jobs.
	assignRates(jobs []*execJob, numPE int, mipsPerPE float64)
	// capacity reports how many more jobs may enter execution alongside
	// the given number already executing.
	capacity(executing, numPE int) int
}

// spaceShared runs one job per concrete PE at the full per-PE rate.
type spaceShared struct{}

func (spaceShared) assignRates(jobs []*execJob, numPE int, mipsPerPE float64) {
	for _, j := range jobs {
		j.rate = mipsPerPE
	}
}

func (spaceShared) capacity(executing, numPE int) int {
	free := numPE - executing
	if free < 0 {
		return 0
	}
	return free
}

// timeShared divides each PE's rate among the jobs assigned to it. With n
// jobs on p PEs and n > p, each PE runs either ceil(n/p) or floor(n/p)
// jobs; (p - n mod p) * floor(n/p) jobs land on the less-busy PEs and
// receive the larger share.
type timeShared struct{}

func (timeShared) assignRates(jobs []*execJob, numPE int, mipsPerPE float64) {
	n := len(jobs)
	if n == 0 {
		return
	}
	if n <= numPE {
		for _, j := range jobs {
			j.rate = mipsPerPE
		}
		return
	}
	low := n / numPE // jobs per less-busy PE
	numMax := (numPE - n%numPE) * low
	maxShare := mipsPerPE / float64(low)
	minShare := mipsPerPE / float64(low+1)
	for i, j := range jobs {
		if i < numMax {
			j.rate = maxShare
		} else {
			j.rate = minShare
		}
	}
}

// A time-shared PE pool never turns a job away; it dilutes shares instead.
func (timeShared) capacity(executing, numPE int) int {
	return math.MaxInt32
}

// ShareAllocator owns the executing-job list of one resource and performs
// the lazy progress accounting.
type ShareAllocator struct {
	numPE     int
	mipsPerPE float64
	localLoad float64
	policy    sharePolicy

	executing  []*execJob
	lastUpdate int64
}

// NewShareAllocator builds the allocator for a resource. Advance
// reservation resources execute space-shared.
func NewShareAllocator(res *grid.Resource) *ShareAllocator {
	var policy sharePolicy
	switch res.Policy {
	case grid.TimeShared:
		policy = timeShared{}
	default:
		policy = spaceShared{}
	}
	return &ShareAllocator{
		numPE:     res.NumPE,
		mipsPerPE: res.MIPSPerPE,
		localLoad: res.LocalLoad,
		policy:    policy,
	}
}

// Capacity reports how many more jobs may enter execution right now.
func (a *ShareAllocator) Capacity() int {
	return a.policy.capacity(len(a.executing), a.numPE)
}

// Executing returns the executing-job list. Callers must not mutate it.
func (a *ShareAllocator) Executing() []*execJob {
	return a.executing
}

// Running reports the number of executing jobs.
func (a *ShareAllocator) Running() int {
	return len(a.executing)
}

// Find returns the executing record for a gridlet id, or nil.
func (a *ShareAllocator) Find(gridletID int) *execJob {
	for _, j := range a.executing {
		if j.gl.ID == gridletID {
			return j
		}
	}
	return nil
}

// Add moves a gridlet into execution and refreshes all shares. Progress
// must already have been brought up to the current tick.
func (a *ShareAllocator) Add(now int64, gl *grid.Gridlet, reserved bool, resvID int) *execJob {
	job := &execJob{gl: gl, reserved: reserved, resvID: resvID}
	a.executing = append(a.executing, job)
	a.policy.assignRates(a.executing, a.numPE, a.mipsPerPE)
	a.lastUpdate = now
	return job
}

// Remove takes a gridlet out of execution and refreshes the remaining
// shares. Returns the removed record, or nil if the gridlet was not
// executing.
func (a *ShareAllocator) Remove(gridletID int) *execJob {
	for i, j := range a.executing {
		if j.gl.ID == gridletID {
			a.executing = append(a.executing[:i], a.executing[i+1:]...)
			a.policy.assignRates(a.executing, a.numPE, a.mipsPerPE)
			return j
		}
	}
	return nil
}

// effectiveRate is the MI-per-tick progress speed of a job after the
// resource-wide background load discount.
func (a *ShareAllocator) effectiveRate(j *execJob) float64 {
	return j.rate * (1 - a.localLoad)
}

// Progress advances finished-so-far for every executing job by
// elapsed × share × (1 − local load). Idempotent at a fixed tick.
func (a *ShareAllocator) Progress(now int64) {
	elapsed := now - a.lastUpdate
	if elapsed <= 0 {
		return
	}
	for _, j := range a.executing {
		done := float64(elapsed) * a.effectiveRate(j)
		j.gl.UpdateFinishedSoFar(j.gl.FinishedSoFar() + done)
		if rec := j.gl.CurrentRecord(); rec != nil {
			rec.ActualCPUTime += elapsed
		}
	}
	a.lastUpdate = now
}

// EarliestForecast returns the earliest forecast finish tick across the
// executing jobs, or -1 when nothing is executing. Each forecast is
// remaining length over current rate, floored at one tick so vanishing
// remainders cannot deadlock the event loop.
func (a *ShareAllocator) EarliestForecast(now int64) int64 {
	earliest := int64(-1)
	for _, j := range a.executing {
		rate := a.effectiveRate(j)
		if rate <= 0 {
			logrus.Warnf("gridlet %d executing with zero rate", j.gl.ID)
			continue
		}
		ticks := int64(math.Ceil(j.gl.RemainingLength() / rate))
		if ticks < 1 {
			ticks = 1
		}
		if earliest == -1 || now+ticks < earliest {
			earliest = now + ticks
		}
	}
	return earliest
}

// TakeFinished removes and returns every executing job that has consumed
// its full length, finalizing its wall-clock accounting.
func (a *ShareAllocator) TakeFinished(now int64) []*execJob {
	var finished []*execJob
	remaining := a.executing[:0]
	for _, j := range a.executing {
		if j.gl.IsFinished() {
			if rec := j.gl.CurrentRecord(); rec != nil {
				rec.WallClockTime = now - rec.SubmissionTime
			}
			finished = append(finished, j)
		} else {
			remaining = append(remaining, j)
		}
	}
	a.executing = remaining
	if len(finished) > 0 {
		a.policy.assignRates(a.executing, a.numPE, a.mipsPerPE)
	}
	return finished
}
