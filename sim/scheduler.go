// ResourceScheduler owns one resource's reservation lists and job queues
// and turns committed reservations and ordinary submissions into executing
// work. It is a pure message/timer-driven entity: every state transition
// happens inside a handler, and stale timers are no-ops.

package sim

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/grid-sim/grid-sim/sim/grid"
)

// arJob is a committed job waiting for its reservation's start time.
type arJob struct {
	gl   *grid.Gridlet
	resv *grid.Reservation
}

// ResourceScheduler is the resource-side entity of the booking protocol.
// All reservation times it stores are in the resource's local ticks.
type ResourceScheduler struct {
	res   *grid.Resource
	alloc *ShareAllocator

	// reservations is the active list, always sorted by ascending start
	// time. A record lives in exactly one of reservations or archive.
	reservations []*grid.Reservation
	archive      []*grid.Reservation

	// Job lists with mutually exclusive membership. A gridlet moving
	// between lists is always removed from its current list first.
	arWaiting []arJob          // committed, not dispatched; reservation start order
	ordinaryQ []*grid.Gridlet  // non-reserved submissions awaiting a PE
	paused    []*grid.Gridlet

	nextResvID int
	forecastAt int64
}

// NewResourceScheduler builds the scheduler entity for a resource and
// registers it with the simulator.
func NewResourceScheduler(s *Simulator, res *grid.Resource) (*ResourceScheduler, error) {
	rs := &ResourceScheduler{
		res:        res,
		alloc:      NewShareAllocator(res),
		forecastAt: -1,
	}
	if err := s.RegisterResource(res, rs); err != nil {
		return nil, err
	}
	return rs, nil
}

func (rs *ResourceScheduler) ID() int      { return rs.res.ID }
func (rs *ResourceScheduler) Name() string { return rs.res.Name }

// Resource returns the static description of the scheduled resource.
func (rs *ResourceScheduler) Resource() *grid.Resource { return rs.res }

// localNow converts the simulator clock into the resource's local ticks.
func (rs *ResourceScheduler) localNow(s *Simulator) int64 {
	return s.Clock + rs.res.TimeZone
}

// absolute converts a resource-local tick back to simulator time.
func (rs *ResourceScheduler) absolute(local int64) int64 {
	return local - rs.res.TimeZone
}

// HandleMessage dispatches one protocol request. The switch is exhaustive
// over request tags; reply tags arriving here indicate a wiring bug and
// are logged and dropped.
func (rs *ResourceScheduler) HandleMessage(s *Simulator, msg *Message) {
	switch msg.Tag {
	case TagCreateReservation:
		rs.handleCreate(s, msg, false)
	case TagCreateImmediate:
		rs.handleCreate(s, msg, true)
	case TagCommitReservation, TagCommitReservationJob, TagCommitReservationJobs:
		rs.handleCommit(s, msg)
	case TagCancelReservation:
		rs.handleCancelReservation(s, msg)
	case TagCancelReservationJobs, TagCancelReservationJob:
		rs.handleCancelReservationJobs(s, msg)
	case TagModifyReservation:
		rs.replyReservation(s, msg, func(m *Message) { m.Modify = ModifyErrUnsupported })
	case TagQueryReservationStatus:
		rs.handleQueryStatus(s, msg)
	case TagQueryBusyTime, TagQueryFreeTime:
		rs.replyReservation(s, msg, func(m *Message) { m.Query = QueryErrUnsupported })
	case TagGridletSubmit:
		rs.handleSubmit(s, msg)
	case TagGridletCancel:
		rs.handleGridletCancel(s, msg)
	case TagGridletPause:
		rs.handleGridletPause(s, msg)
	case TagGridletResume:
		rs.handleGridletResume(s, msg)
	case TagGridletMove:
		rs.handleGridletMove(s, msg)
	case TagGridletStatus:
		rs.handleGridletStatus(s, msg)
	default:
		logrus.Warnf("%s: dropping unexpected %s from entity %d", rs.res.Name, msg.Tag, msg.Src)
	}
}

// HandleTimer processes the scheduler's self-directed wakeups. Every
// branch re-validates against current state, so firing a stale timer is
// harmless.
func (rs *ResourceScheduler) HandleTimer(s *Simulator, kind TimerKind) {
	switch kind {
	case TimerForecast:
		rs.forecastAt = -1
		rs.refresh(s)
	case TimerDispatch:
		rs.refresh(s)
	case TimerExpiry:
		rs.expirySweep(rs.localNow(s))
		rs.refresh(s)
	}
}

func (rs *ResourceScheduler) replyReservation(s *Simulator, req *Message, fill func(*Message)) {
	reply := &Message{
		Tag:   TagReservationReply,
		TxnID: req.TxnID,
		Src:   rs.ID(),
		Dst:   req.Src,
	}
	fill(reply)
	s.Send(reply)
}

func (rs *ResourceScheduler) ackGridlet(s *Simulator, req *Message, gl *grid.Gridlet, found bool) {
	if !req.Ack {
		return
	}
	reply := &Message{
		Tag:   TagGridletAck,
		TxnID: req.TxnID,
		Src:   rs.ID(),
		Dst:   req.Src,
		Found: found,
	}
	if gl != nil {
		reply.GridletID = gl.ID
		reply.GridletStatus = gl.Status
	}
	s.Send(reply)
}

// returnGridlet transfers ownership of a gridlet back to its user.
func (rs *ResourceScheduler) returnGridlet(s *Simulator, gl *grid.Gridlet) {
	s.Send(&Message{
		Tag:     TagGridletReturn,
		Src:     rs.ID(),
		Dst:     gl.UserID,
		Gridlet: gl,
	})
}

// === Reservation creation ===

func (rs *ResourceScheduler) handleCreate(s *Simulator, msg *Message, immediate bool) {
	now := rs.localNow(s)

	outcome := CreateSuccess
	start := msg.StartTime
	duration := msg.Duration

	switch {
	case !rs.res.SupportsAdvanceReservation():
		outcome = CreateErrResourceUnsupported
	case msg.NumPE <= 0:
		outcome = CreateErrInvalidPECount
	case msg.NumPE > rs.res.NumPE:
		outcome = CreateErrInsufficientPE
	}
	if outcome == CreateSuccess {
		if immediate {
			if start == NoValue {
				start = now
			}
			if start < now {
				outcome = CreateErrInvalidStartTime
			} else if duration == NoValue {
				duration = MaxFeasibleDuration(start, msg.NumPE, rs.res.NumPE, rs.reservations)
				if duration == 0 {
					// Full right now: report the bucket for a minimal slot.
					outcome = FindSlot(now, start, 1, msg.NumPE, rs.res.NumPE, rs.reservations).Outcome
				}
			}
		} else if start == NoValue || start < now {
			outcome = CreateErrInvalidStartTime
		}
	}
	if outcome == CreateSuccess && duration <= 0 {
		outcome = CreateErrInvalidEndTime
	}
	if outcome != CreateSuccess {
		rs.replyReservation(s, msg, func(m *Message) { m.Create = outcome })
		return
	}

	decision := FindSlot(now, start, duration, msg.NumPE, rs.res.NumPE, rs.reservations)
	if !decision.Accepted {
		rs.replyReservation(s, msg, func(m *Message) { m.Create = decision.Outcome })
		return
	}

	resv := &grid.Reservation{
		ID:            rs.nextResvID,
		TransactionID: msg.TxnID,
		UserID:        msg.Src,
		ResourceID:    rs.res.ID,
		StartTime:     start,
		Duration:      duration,
		NumPE:         msg.NumPE,
		TimeZone:      msg.UserZone,
		Status:        grid.ResvNotCommitted,
	}
	rs.nextResvID++

	// Commit deadline: an advance reservation must be committed before it
	// starts, an immediate one before it ends.
	if immediate {
		resv.ExpiryTime = resv.EndTime()
	} else {
		resv.ExpiryTime = resv.StartTime
	}

	rs.reservations = InsertReservation(rs.reservations, resv, decision.InsertAt)
	s.ScheduleTimer(rs.absolute(resv.ExpiryTime+1), rs.ID(), TimerExpiry)

	logrus.Infof("%s: accepted reservation %d [%d, %d) x %d PEs (expiry %d)",
		rs.res.Name, resv.ID, resv.StartTime, resv.EndTime(), resv.NumPE, resv.ExpiryTime)

	rs.replyReservation(s, msg, func(m *Message) {
		m.Create = CreateSuccess
		m.BookingID = grid.FormatBookingID(rs.res.ID, resv.ID)
		m.Expiry = resv.ExpiryTime
	})
}

// === Commit ===

func (rs *ResourceScheduler) handleCommit(s *Simulator, msg *Message) {
	resv, archived, ok := rs.lookupBooking(msg.BookingID)
	if !ok {
		rs.replyReservation(s, msg, func(m *Message) { m.Commit = CommitErrInvalidBookingID })
		return
	}
	if archived != nil {
		// Repeated commits after expiry keep answering EXPIRED; the
		// record was moved to the archive exactly once.
		outcome := CommitFailed
		if archived.Status == grid.ResvExpired {
			outcome = CommitExpired
		}
		rs.replyReservation(s, msg, func(m *Message) { m.Commit = outcome })
		return
	}

	now := rs.localNow(s)
	if (!resv.Committed && now > resv.ExpiryTime) || now > resv.EndTime() {
		rs.archiveReservation(resv, grid.ResvExpired)
		rs.replyReservation(s, msg, func(m *Message) { m.Commit = CommitExpired })
		return
	}

	resv.Committed = true
	if resv.Status == grid.ResvNotCommitted {
		resv.Status = grid.ResvNotStarted
	}

	// One job per reserved PE for the whole duration; excess jobs in a
	// bulk commit are dropped and do not count toward the attached total.
	for _, gl := range msg.Gridlets {
		if resv.AttachedJobs() >= resv.NumPE {
			logrus.Warnf("%s: reservation %d already has %d jobs for %d PEs, dropping gridlet %d",
				rs.res.Name, resv.ID, resv.AttachedJobs(), resv.NumPE, gl.ID)
			continue
		}
		gl.ReservationID = resv.ID
		gl.AddResource(rs.res.ID, rs.res.Name, rs.res.CostPerSec, now)
		if err := gl.SetStatus(grid.StatusQueued); err != nil {
			logrus.Warnf("%s: %v", rs.res.Name, err)
			continue
		}
		resv.AttachJob()
		rs.arWaiting = append(rs.arWaiting, arJob{gl: gl, resv: resv})
	}
	sort.SliceStable(rs.arWaiting, func(i, j int) bool {
		return rs.arWaiting[i].resv.StartTime < rs.arWaiting[j].resv.StartTime
	})

	s.ScheduleTimer(rs.absolute(maxTick(now, resv.StartTime)), rs.ID(), TimerDispatch)
	s.ScheduleTimer(rs.absolute(resv.EndTime()+1), rs.ID(), TimerExpiry)

	rs.replyReservation(s, msg, func(m *Message) { m.Commit = CommitSuccess })
}

// === Cancel ===

func (rs *ResourceScheduler) handleCancelReservation(s *Simulator, msg *Message) {
	resv, archived, ok := rs.lookupBooking(msg.BookingID)
	if !ok {
		rs.replyReservation(s, msg, func(m *Message) { m.Cancel = CancelErrInvalidBookingID })
		return
	}
	if archived != nil {
		rs.replyReservation(s, msg, func(m *Message) { m.Cancel = CancelAlreadyFinished })
		return
	}

	now := rs.localNow(s)
	rs.alloc.Progress(now)

	for _, gl := range rs.detachAllJobs(resv, now) {
		rs.returnGridlet(s, gl)
	}
	rs.archiveReservation(resv, grid.ResvCanceled)
	rs.replyReservation(s, msg, func(m *Message) { m.Cancel = CancelSuccess })
	rs.refresh(s)
}

func (rs *ResourceScheduler) handleCancelReservationJobs(s *Simulator, msg *Message) {
	resv, archived, ok := rs.lookupBooking(msg.BookingID)
	if !ok {
		rs.replyReservation(s, msg, func(m *Message) { m.Cancel = CancelErrInvalidBookingID })
		return
	}
	if archived != nil {
		rs.replyReservation(s, msg, func(m *Message) { m.Cancel = CancelAlreadyFinished })
		return
	}

	ids := msg.GridletIDs
	if msg.Tag == TagCancelReservationJob {
		ids = []int{msg.GridletID}
	}

	now := rs.localNow(s)
	rs.alloc.Progress(now)

	outcome := CancelSuccess
	canceled := 0
	for _, id := range ids {
		gl := rs.detachJob(resv, id, now)
		if gl == nil {
			logrus.Warnf("%s: reservation %d has no job %d to cancel", rs.res.Name, resv.ID, id)
			outcome = CancelError
			continue
		}
		if gl.Status != grid.StatusSuccess {
			canceled++
		}
		rs.returnGridlet(s, gl)
	}
	if outcome == CancelSuccess && canceled == 0 && len(ids) > 0 {
		// Every targeted job had already finished.
		outcome = CancelAlreadyFinished
	}
	rs.replyReservation(s, msg, func(m *Message) { m.Cancel = outcome })
	rs.refresh(s)
}

// detachAllJobs cancels every not-yet-finished job attached to resv and
// returns all detached gridlets. Finished jobs keep their Success status.
// Progress must already be refreshed.
func (rs *ResourceScheduler) detachAllJobs(resv *grid.Reservation, now int64) []*grid.Gridlet {
	var out []*grid.Gridlet
	for resv.AttachedJobs() > 0 {
		gl := rs.detachAnyJob(resv, now)
		if gl == nil {
			logrus.Warnf("%s: reservation %d counts %d attached jobs but none found",
				rs.res.Name, resv.ID, resv.AttachedJobs())
			break
		}
		out = append(out, gl)
	}
	return out
}

func (rs *ResourceScheduler) detachAnyJob(resv *grid.Reservation, now int64) *grid.Gridlet {
	for _, j := range rs.arWaiting {
		if j.resv == resv {
			return rs.detachJob(resv, j.gl.ID, now)
		}
	}
	for _, j := range rs.alloc.Executing() {
		if j.reserved && j.resvID == resv.ID {
			return rs.detachJob(resv, j.gl.ID, now)
		}
	}
	for _, gl := range rs.paused {
		if gl.ReservationID == resv.ID {
			return rs.detachJob(resv, gl.ID, now)
		}
	}
	return nil
}

// detachJob removes one attached job from whichever list holds it,
// finalizes it as Success if it already consumed its length and Canceled
// otherwise, and decrements the attached-job counter.
func (rs *ResourceScheduler) detachJob(resv *grid.Reservation, gridletID int, now int64) *grid.Gridlet {
	var gl *grid.Gridlet

	for i, j := range rs.arWaiting {
		if j.resv == resv && j.gl.ID == gridletID {
			gl = j.gl
			rs.arWaiting = append(rs.arWaiting[:i], rs.arWaiting[i+1:]...)
			break
		}
	}
	if gl == nil {
		if j := rs.alloc.Find(gridletID); j != nil && j.reserved && j.resvID == resv.ID {
			rs.alloc.Remove(gridletID)
			gl = j.gl
		}
	}
	if gl == nil {
		for i, p := range rs.paused {
			if p.ReservationID == resv.ID && p.ID == gridletID {
				gl = p
				rs.paused = append(rs.paused[:i], rs.paused[i+1:]...)
				break
			}
		}
	}
	if gl == nil {
		return nil
	}

	if rec := gl.CurrentRecord(); rec != nil {
		rec.WallClockTime = now - rec.SubmissionTime
	}
	status := grid.StatusCanceled
	if gl.IsFinished() {
		status = grid.StatusSuccess
	}
	if err := gl.SetStatus(status); err != nil {
		logrus.Warnf("%s: %v", rs.res.Name, err)
	}
	resv.DetachJob()
	return gl
}

// === Query ===

func (rs *ResourceScheduler) handleQueryStatus(s *Simulator, msg *Message) {
	resv, archived, ok := rs.lookupBooking(msg.BookingID)
	if !ok {
		rs.replyReservation(s, msg, func(m *Message) { m.Query = QueryDoesNotExist })
		return
	}
	r := resv
	if archived != nil {
		r = archived
	}
	rs.replyReservation(s, msg, func(m *Message) { m.Query = queryOutcomeForStatus(r.Status) })
}

func queryOutcomeForStatus(st grid.ReservationStatus) QueryOutcome {
	switch st {
	case grid.ResvNotCommitted:
		return QueryNotCommitted
	case grid.ResvNotStarted:
		return QueryNotStarted
	case grid.ResvActive:
		return QueryActive
	case grid.ResvCompleted:
		return QueryCompleted
	case grid.ResvCanceled:
		return QueryCanceled
	case grid.ResvTerminated:
		return QueryTerminated
	case grid.ResvExpired:
		return QueryExpired
	}
	return QueryError
}

// === Ordinary job operations ===

func (rs *ResourceScheduler) handleSubmit(s *Simulator, msg *Message) {
	gl := msg.Gridlet
	now := rs.localNow(s)
	rs.alloc.Progress(now)

	gl.AddResource(rs.res.ID, rs.res.Name, rs.res.CostPerSec, now)
	if rs.alloc.Capacity() > 0 {
		if err := gl.SetStatus(grid.StatusInExec); err == nil {
			rs.alloc.Add(now, gl, false, -1)
		} else {
			logrus.Warnf("%s: %v", rs.res.Name, err)
		}
	} else {
		if err := gl.SetStatus(grid.StatusQueued); err == nil {
			rs.ordinaryQ = append(rs.ordinaryQ, gl)
		} else {
			logrus.Warnf("%s: %v", rs.res.Name, err)
		}
	}
	rs.ackGridlet(s, msg, gl, true)
	rs.refresh(s)
}

func (rs *ResourceScheduler) handleGridletCancel(s *Simulator, msg *Message) {
	now := rs.localNow(s)
	rs.alloc.Progress(now)

	gl := rs.removeJob(msg.GridletID, now)
	if gl == nil {
		rs.ackGridlet(s, msg, nil, false)
		return
	}
	status := grid.StatusCanceled
	if gl.IsFinished() {
		status = grid.StatusSuccess
	}
	if err := gl.SetStatus(status); err != nil {
		logrus.Warnf("%s: %v", rs.res.Name, err)
	}
	rs.ackGridlet(s, msg, gl, true)
	rs.returnGridlet(s, gl)
	rs.refresh(s)
}

func (rs *ResourceScheduler) handleGridletPause(s *Simulator, msg *Message) {
	now := rs.localNow(s)
	rs.alloc.Progress(now)

	var gl *grid.Gridlet
	if j := rs.alloc.Remove(msg.GridletID); j != nil {
		gl = j.gl
	} else {
		for i, q := range rs.ordinaryQ {
			if q.ID == msg.GridletID {
				gl = q
				rs.ordinaryQ = append(rs.ordinaryQ[:i], rs.ordinaryQ[i+1:]...)
				break
			}
		}
	}
	if gl == nil {
		rs.ackGridlet(s, msg, nil, false)
		return
	}
	if err := gl.SetStatus(grid.StatusPaused); err != nil {
		logrus.Warnf("%s: %v", rs.res.Name, err)
	}
	rs.paused = append(rs.paused, gl)
	rs.ackGridlet(s, msg, gl, true)
	rs.refresh(s)
}

func (rs *ResourceScheduler) handleGridletResume(s *Simulator, msg *Message) {
	now := rs.localNow(s)
	rs.alloc.Progress(now)

	var gl *grid.Gridlet
	for i, p := range rs.paused {
		if p.ID == msg.GridletID {
			gl = p
			rs.paused = append(rs.paused[:i], rs.paused[i+1:]...)
			break
		}
	}
	if gl == nil {
		rs.ackGridlet(s, msg, nil, false)
		return
	}
	// Resumed is a transitional state on the way back to InExec or Queued.
	if err := gl.SetStatus(grid.StatusResumed); err != nil {
		logrus.Warnf("%s: %v", rs.res.Name, err)
	}
	if rs.alloc.Capacity() > 0 {
		_ = gl.SetStatus(grid.StatusInExec)
		rs.alloc.Add(now, gl, gl.ReservationID >= 0, gl.ReservationID)
	} else {
		_ = gl.SetStatus(grid.StatusQueued)
		rs.ordinaryQ = append(rs.ordinaryQ, gl)
	}
	rs.ackGridlet(s, msg, gl, true)
	rs.refresh(s)
}

func (rs *ResourceScheduler) handleGridletMove(s *Simulator, msg *Message) {
	now := rs.localNow(s)
	rs.alloc.Progress(now)

	gl := rs.removeJob(msg.GridletID, now)
	if gl == nil {
		rs.ackGridlet(s, msg, nil, false)
		return
	}
	gl.ReservationID = -1
	rs.ackGridlet(s, msg, gl, true)
	s.Send(&Message{
		Tag:     TagGridletSubmit,
		Src:     gl.UserID,
		Dst:     msg.MoveDst,
		Gridlet: gl,
	})
	rs.refresh(s)
}

func (rs *ResourceScheduler) handleGridletStatus(s *Simulator, msg *Message) {
	gl := rs.findJob(msg.GridletID)
	rs.ackGridlet(s, msg, gl, gl != nil)
}

// findJob locates a gridlet in any of the scheduler's lists.
func (rs *ResourceScheduler) findJob(gridletID int) *grid.Gridlet {
	if j := rs.alloc.Find(gridletID); j != nil {
		return j.gl
	}
	for _, q := range rs.ordinaryQ {
		if q.ID == gridletID {
			return q
		}
	}
	for _, p := range rs.paused {
		if p.ID == gridletID {
			return p
		}
	}
	for _, j := range rs.arWaiting {
		if j.gl.ID == gridletID {
			return j.gl
		}
	}
	return nil
}

// removeJob removes a gridlet from whichever list holds it, finalizing its
// wall-clock accounting and detaching it from its reservation if any.
func (rs *ResourceScheduler) removeJob(gridletID int, now int64) *grid.Gridlet {
	var gl *grid.Gridlet

	if j := rs.alloc.Remove(gridletID); j != nil {
		gl = j.gl
	}
	if gl == nil {
		for i, q := range rs.ordinaryQ {
			if q.ID == gridletID {
				gl = q
				rs.ordinaryQ = append(rs.ordinaryQ[:i], rs.ordinaryQ[i+1:]...)
				break
			}
		}
	}
	if gl == nil {
		for i, p := range rs.paused {
			if p.ID == gridletID {
				gl = p
				rs.paused = append(rs.paused[:i], rs.paused[i+1:]...)
				break
			}
		}
	}
	if gl == nil {
		for i, j := range rs.arWaiting {
			if j.gl.ID == gridletID {
				gl = j.gl
				rs.arWaiting = append(rs.arWaiting[:i], rs.arWaiting[i+1:]...)
				break
			}
		}
	}
	if gl == nil {
		return nil
	}
	if rec := gl.CurrentRecord(); rec != nil {
		rec.WallClockTime = now - rec.SubmissionTime
	}
	if gl.ReservationID >= 0 {
		if resv, _ := rs.findActive(gl.ReservationID); resv != nil {
			resv.DetachJob()
		}
	}
	return gl
}

// === Progress, dispatch and expiry ===

// refresh is the single consolidation point run after every event that can
// change execution state: progress is brought up to now, finished jobs are
// returned, due reserved jobs dispatch, free PEs are filled from the
// ordinary queue, and the next forecast wakeup is scheduled.
func (rs *ResourceScheduler) refresh(s *Simulator) {
	now := rs.localNow(s)
	rs.alloc.Progress(now)

	for _, j := range rs.alloc.TakeFinished(now) {
		if err := j.gl.SetStatus(grid.StatusSuccess); err != nil {
			logrus.Warnf("%s: %v", rs.res.Name, err)
		}
		logrus.Infof("%s: gridlet %d finished at %d", rs.res.Name, j.gl.ID, now)
		if j.reserved {
			if resv, _ := rs.findActive(j.resvID); resv != nil {
				if resv.DetachJob() == 0 && now > resv.EndTime() {
					rs.archiveReservation(resv, grid.ResvCompleted)
				}
			}
		}
		rs.returnGridlet(s, j.gl)
	}

	rs.dispatchDue(s, now)
	rs.fillFromQueue(now)
	rs.scheduleForecast(s, now)
}

// dispatchDue moves AR-waiting jobs whose reservation start has arrived
// into execution, in reservation start order, evicting non-reserved work
// and then stale reserved occupants when PEs run short.
func (rs *ResourceScheduler) dispatchDue(s *Simulator, now int64) {
	i := 0
	for i < len(rs.arWaiting) {
		j := rs.arWaiting[i]
		if j.resv.StartTime > now {
			// The list is ordered by reservation start; nothing further
			// is due yet.
			break
		}
		if rs.alloc.Capacity() == 0 && !rs.evictForReservation(now) {
			logrus.Warnf("%s: no PE for reserved gridlet %d (reservation %d)",
				rs.res.Name, j.gl.ID, j.resv.ID)
			s.ScheduleTimer(rs.absolute(now+1), rs.ID(), TimerDispatch)
			break
		}
		rs.arWaiting = append(rs.arWaiting[:i], rs.arWaiting[i+1:]...)
		if err := j.gl.SetStatus(grid.StatusInExec); err != nil {
			logrus.Warnf("%s: %v", rs.res.Name, err)
			continue
		}
		rs.alloc.Add(now, j.gl, true, j.resv.ID)
		if j.resv.Status == grid.ResvNotStarted {
			j.resv.Status = grid.ResvActive
		}
		logrus.Infof("%s: dispatched reserved gridlet %d (reservation %d) at %d",
			rs.res.Name, j.gl.ID, j.resv.ID, now)
	}
}

// evictForReservation frees one PE for a due reserved job. Non-reserved
// running jobs go back to the ordinary queue first; reserved jobs whose
// reservation already ran past its end time are stale occupants and go
// next. Returns false when every PE is held by a still-valid reservation.
func (rs *ResourceScheduler) evictForReservation(now int64) bool {
	for _, j := range rs.alloc.Executing() {
		if !j.reserved {
			rs.evictToQueue(j)
			return true
		}
	}
	for _, j := range rs.alloc.Executing() {
		resv, _ := rs.findActive(j.resvID)
		if resv == nil || resv.EndTime() <= now {
			if resv != nil {
				resv.DetachJob()
			}
			j.gl.ReservationID = -1
			rs.evictToQueue(j)
			return true
		}
	}
	return false
}

func (rs *ResourceScheduler) evictToQueue(j *execJob) {
	rs.alloc.Remove(j.gl.ID)
	if err := j.gl.SetStatus(grid.StatusQueued); err != nil {
		logrus.Warnf("%s: %v", rs.res.Name, err)
	}
	// Evicted work goes to the head of the queue for the next free PE.
	rs.ordinaryQ = append([]*grid.Gridlet{j.gl}, rs.ordinaryQ...)
	logrus.Infof("%s: evicted gridlet %d back to the queue", rs.res.Name, j.gl.ID)
}

// fillFromQueue starts queued ordinary jobs on free PEs in FIFO order.
func (rs *ResourceScheduler) fillFromQueue(now int64) {
	for rs.alloc.Capacity() > 0 && len(rs.ordinaryQ) > 0 {
		gl := rs.ordinaryQ[0]
		rs.ordinaryQ = rs.ordinaryQ[1:]
		if err := gl.SetStatus(grid.StatusInExec); err != nil {
			logrus.Warnf("%s: %v", rs.res.Name, err)
			continue
		}
		rs.alloc.Add(now, gl, false, -1)
	}
}

// scheduleForecast keeps exactly one wakeup at the earliest forecast
// finish. A newer forecast supersedes older ones; stale wakeups no-op.
func (rs *ResourceScheduler) scheduleForecast(s *Simulator, now int64) {
	t := rs.alloc.EarliestForecast(now)
	if t < 0 || t == rs.forecastAt {
		return
	}
	rs.forecastAt = t
	s.ScheduleTimer(rs.absolute(t), rs.ID(), TimerForecast)
}

// expirySweep archives every uncommitted reservation past its expiry and
// every committed reservation that drained its jobs past its end time.
func (rs *ResourceScheduler) expirySweep(now int64) {
	i := 0
	for i < len(rs.reservations) {
		r := rs.reservations[i]
		switch {
		case !r.Committed && now > r.ExpiryTime:
			rs.archiveReservation(r, grid.ResvExpired)
		case r.Committed && r.AttachedJobs() == 0 && now > r.EndTime():
			rs.archiveReservation(r, grid.ResvCompleted)
		default:
			i++
		}
	}
}

// === Reservation list bookkeeping ===

// lookupBooking parses a booking id addressed to this resource and locates
// the record. Exactly one of the two returned records is non-nil when
// ok is true and the record exists; ok is false for malformed or foreign
// booking ids.
func (rs *ResourceScheduler) lookupBooking(bookingID string) (active, archived *grid.Reservation, ok bool) {
	resourceID, resvID, err := grid.ParseBookingID(bookingID)
	if err != nil || resourceID != rs.res.ID {
		return nil, nil, false
	}
	if r, _ := rs.findActive(resvID); r != nil {
		return r, nil, true
	}
	if r := rs.findArchived(resvID); r != nil {
		return nil, r, true
	}
	return nil, nil, false
}

func (rs *ResourceScheduler) findActive(resvID int) (*grid.Reservation, int) {
	for i, r := range rs.reservations {
		if r.ID == resvID {
			return r, i
		}
	}
	return nil, -1
}

func (rs *ResourceScheduler) findArchived(resvID int) *grid.Reservation {
	for _, r := range rs.archive {
		if r.ID == resvID {
			return r
		}
	}
	return nil
}

// archiveReservation moves a record from the active list to the archive,
// preserving the active list's start-time order.
func (rs *ResourceScheduler) archiveReservation(r *grid.Reservation, status grid.ReservationStatus) {
	if _, i := rs.findActive(r.ID); i >= 0 {
		rs.reservations = append(rs.reservations[:i], rs.reservations[i+1:]...)
	}
	r.Status = status
	rs.archive = append(rs.archive, r)
	logrus.Infof("%s: archived reservation %d as %s", rs.res.Name, r.ID, status)
}

// Reservations returns the active reservation list (sorted by start time).
func (rs *ResourceScheduler) Reservations() []*grid.Reservation { return rs.reservations }

// Archive returns the archived reservation records.
func (rs *ResourceScheduler) Archive() []*grid.Reservation { return rs.archive }

// QueueLengths reports the sizes of the four job lists, in the order
// AR-waiting, ordinary queue, executing, paused.
func (rs *ResourceScheduler) QueueLengths() (arWaiting, queued, executing, paused int) {
	return len(rs.arWaiting), len(rs.ordinaryQ), rs.alloc.Running(), len(rs.paused)
}
