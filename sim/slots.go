// Slot search over a time-sorted reservation list: decides whether a
// proposed interval and PE count can be admitted without ever exceeding
// the resource's total PE count at any instant. Rejections carry a coarse
// busy-time bucket rather than a precise retry time.

package sim

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/grid-sim/grid-sim/sim/grid"
)

// maxImmediateDuration caps an immediate reservation whose duration was
// given as "as long as possible". It coincides with the largest busy
// bucket boundary.
const maxImmediateDuration int64 = 45 * 3600

// SlotDecision is the outcome of a slot search.
type SlotDecision struct {
	Accepted bool
	// InsertAt is the position that keeps the reservation list sorted by
	// ascending start time; only meaningful when Accepted.
	InsertAt int
	// Outcome is CreateSuccess on acceptance, or a busy-time bucket.
	Outcome CreateOutcome
	// PeakDemand is the worst-case concurrent PE demand observed inside
	// the proposed window, excluding the proposal itself.
	PeakDemand int
}

type peEvent struct {
	time  int64
	delta int
}

// FindSlot tests whether reserving numPE PEs over [start, start+duration)
// keeps the capacity invariant, against a list sorted by ascending start
// time. now is the resource-local current time, used only to anchor the
// busy-time gap of a rejection.
func FindSlot(now, start, duration int64, numPE, totalPE int, list []*grid.Reservation) SlotDecision {
	end := start + duration

	// Single forward scan: insertion point, first overlap, last
	// reservation starting at or before the proposed end. The list is
	// sorted, so the scan stops at the first reservation starting past
	// the end; no backward adjustment is ever needed.
	pos := -1
	begin := -1
	last := -1
	for i, r := range list {
		if pos == -1 && r.StartTime > start {
			pos = i
		}
		if begin == -1 && r.Overlaps(start, end) {
			begin = i
		}
		if r.StartTime > end {
			break
		}
		last = i
	}
	if pos == -1 {
		pos = len(list)
	}

	if begin == -1 {
		return SlotDecision{Accepted: true, InsertAt: pos, Outcome: CreateSuccess}
	}

	// Collect the reservations actually overlapping the window; entries
	// between begin and last may have finished before the proposed start.
	var overlaps []*grid.Reservation
	for i := begin; i <= last; i++ {
		if list[i].Overlaps(start, end) {
			overlaps = append(overlaps, list[i])
		}
	}

	if len(overlaps) == 1 {
		other := overlaps[0]
		if start >= other.EndTime() || other.NumPE+numPE <= totalPE {
			return SlotDecision{Accepted: true, InsertAt: pos, Outcome: CreateSuccess, PeakDemand: other.NumPE}
		}
		gap := other.EndTime() - maxTick(now, start)
		logrus.Debugf("slot search: single conflict with reservation %d, gap %d ticks", other.ID, gap)
		return SlotDecision{Outcome: BusyOutcomeFor(gap), PeakDemand: other.NumPE}
	}

	// Multiple overlaps: sweep the start/finish events clipped to the
	// window and take the running maximum of concurrent PE demand.
	events := make([]peEvent, 0, 2*len(overlaps))
	for _, r := range overlaps {
		s := maxTick(r.StartTime, start)
		e := minTick(r.EndTime(), end)
		events = append(events, peEvent{s, r.NumPE}, peEvent{e, -r.NumPE})
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].time != events[j].time {
			return events[i].time < events[j].time
		}
		// A release at t frees capacity for an acquisition at t.
		return events[i].delta < events[j].delta
	})

	demand, peak := 0, 0
	for _, ev := range events {
		demand += ev.delta
		if demand > peak {
			peak = demand
		}
	}

	if peak+numPE <= totalPE {
		return SlotDecision{Accepted: true, InsertAt: pos, Outcome: CreateSuccess, PeakDemand: peak}
	}

	gap := busyGap(now, start, numPE, totalPE, peak, overlaps)
	logrus.Debugf("slot search: peak demand %d + %d > %d PEs, gap %d ticks", peak, numPE, totalPE, gap)
	return SlotDecision{Outcome: BusyOutcomeFor(gap), PeakDemand: peak}
}

// busyGap estimates how long the resource stays too full, from the nearest
// single reservation whose completion should free enough capacity. The
// true earliest availability may depend on several reservations finishing
// in combination; the single-reservation estimate is kept deliberately.
func busyGap(now, start int64, numPE, totalPE, peak int, overlaps []*grid.Reservation) int64 {
	needed := peak + numPE - totalPE

	byEnd := make([]*grid.Reservation, len(overlaps))
	copy(byEnd, overlaps)
	sort.Slice(byEnd, func(i, j int) bool { return byEnd[i].EndTime() < byEnd[j].EndTime() })

	candidate := byEnd[0]
	for _, r := range byEnd {
		if r.NumPE >= needed {
			candidate = r
			break
		}
	}
	return candidate.EndTime() - maxTick(now, start)
}

// InsertReservation places r at pos, preserving ascending start order.
func InsertReservation(list []*grid.Reservation, r *grid.Reservation, pos int) []*grid.Reservation {
	list = append(list, nil)
	copy(list[pos+1:], list[pos:])
	list[pos] = r
	return list
}

// MaxConcurrentDemand sweeps the whole list and returns the worst-case
// concurrent PE demand at any instant.
func MaxConcurrentDemand(list []*grid.Reservation) int {
	events := make([]peEvent, 0, 2*len(list))
	for _, r := range list {
		events = append(events, peEvent{r.StartTime, r.NumPE}, peEvent{r.EndTime(), -r.NumPE})
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].time != events[j].time {
			return events[i].time < events[j].time
		}
		return events[i].delta < events[j].delta
	})
	demand, peak := 0, 0
	for _, ev := range events {
		demand += ev.delta
		if demand > peak {
			peak = demand
		}
	}
	return peak
}

// demandAt returns the summed PE demand of all reservations whose interval
// contains t.
func demandAt(list []*grid.Reservation, t int64) int {
	demand := 0
	for _, r := range list {
		if r.StartTime <= t && t < r.EndTime() {
			demand += r.NumPE
		}
	}
	return demand
}

// MaxFeasibleDuration returns the longest duration from start for which
// numPE additional PEs stay within capacity, capped at
// maxImmediateDuration. Returns 0 when even the instant of start is full.
func MaxFeasibleDuration(start int64, numPE, totalPE int, list []*grid.Reservation) int64 {
	if demandAt(list, start)+numPE > totalPE {
		return 0
	}
	for _, r := range list {
		if r.StartTime <= start {
			continue
		}
		if r.StartTime-start >= maxImmediateDuration {
			break
		}
		if demandAt(list, r.StartTime)+numPE > totalPE {
			return r.StartTime - start
		}
	}
	return maxImmediateDuration
}

func maxTick(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minTick(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
