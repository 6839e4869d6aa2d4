// ReservationDirectory is the user-side API of the booking protocol. It
// validates requests locally before anything goes on the wire, converts
// times between the caller's and the resource's zones, generates
// transaction ids, and correlates the asynchronous replies.

package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/grid-sim/grid-sim/sim/grid"
)

// CreateResult is the caller-facing outcome of a create request. Expiry is
// in the caller's local ticks and only meaningful on success.
type CreateResult struct {
	Outcome   CreateOutcome
	BookingID string
	Expiry    int64
}

// GridletAck is the caller-facing outcome of an acknowledged job request.
type GridletAck struct {
	Found  bool
	Status grid.GridletStatus
}

// ReservationDirectory acts for one simulated user. It owns no resource
// state; every mutation happens on the resource side and is observed only
// through replies and returned gridlets.
type ReservationDirectory struct {
	id       int
	name     string
	timeZone int64
	sim      *Simulator

	nextTxn  int64
	replies  []*Message
	returned []*grid.Gridlet
}

// NewReservationDirectory creates and registers a directory entity.
func NewReservationDirectory(s *Simulator, id int, name string, timeZone int64) (*ReservationDirectory, error) {
	d := &ReservationDirectory{
		id:       id,
		name:     name,
		timeZone: timeZone,
		sim:      s,
	}
	if err := s.Register(d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *ReservationDirectory) ID() int      { return d.id }
func (d *ReservationDirectory) Name() string { return d.name }

// HandleMessage buffers replies for correlation and accepts returned
// gridlets. A directory never receives requests.
func (d *ReservationDirectory) HandleMessage(s *Simulator, msg *Message) {
	switch msg.Tag {
	case TagReservationReply, TagGridletAck:
		d.replies = append(d.replies, msg)
	case TagGridletReturn:
		d.returned = append(d.returned, msg.Gridlet)
	default:
		logrus.Warnf("%s: dropping unexpected %s from entity %d", d.name, msg.Tag, msg.Src)
	}
}

// TakeReply removes and returns the buffered reply matching (transaction
// id, tag), or nil.
func (d *ReservationDirectory) TakeReply(txnID int64, tag MessageTag) *Message {
	for i, m := range d.replies {
		if m.TxnID == txnID && m.Tag == tag {
			d.replies = append(d.replies[:i], d.replies[i+1:]...)
			return m
		}
	}
	return nil
}

// Returned drains and returns the gridlets whose ownership has come back
// to this user (completed, canceled or failed).
func (d *ReservationDirectory) Returned() []*grid.Gridlet {
	out := d.returned
	d.returned = nil
	return out
}

// localNow is the current simulation time in the caller's zone.
func (d *ReservationDirectory) localNow() int64 {
	return d.sim.Clock + d.timeZone
}

// toResourceTime converts a caller-local tick into the resource's zone.
// The NoValue sentinel passes through untouched.
func (d *ReservationDirectory) toResourceTime(res *grid.Resource, t int64) int64 {
	if t == NoValue {
		return t
	}
	return t - d.timeZone + res.TimeZone
}

// fromResourceTime converts a resource-local tick back to the caller's zone.
func (d *ReservationDirectory) fromResourceTime(res *grid.Resource, t int64) int64 {
	return t - res.TimeZone + d.timeZone
}

func (d *ReservationDirectory) newTxn() int64 {
	d.nextTxn++
	return d.nextTxn
}

// call sends a request and suspends until the matching reply arrives.
func (d *ReservationDirectory) call(msg *Message, replyTag MessageTag) (*Message, error) {
	msg.Src = d.id
	msg.TxnID = d.newTxn()
	d.sim.Send(msg)
	return d.sim.RecvMatch(d, msg.TxnID, replyTag)
}

// validateCreate performs the caller-side checks that never require a
// network round trip.
func (d *ReservationDirectory) validateCreate(resourceID int, start, duration int64, numPE int, immediate bool) (*grid.Resource, CreateOutcome) {
	res := d.sim.ResourceByID(resourceID)
	if res == nil {
		return nil, CreateErrInvalidResource
	}
	if !res.SupportsAdvanceReservation() {
		return nil, CreateErrResourceUnsupported
	}
	if numPE <= 0 {
		return nil, CreateErrInvalidPECount
	}
	if numPE > res.NumPE {
		return nil, CreateErrInsufficientPE
	}
	if immediate {
		if duration != NoValue && duration <= 0 {
			return nil, CreateErrInvalidEndTime
		}
		return res, CreateSuccess
	}
	if start == NoValue || start < d.localNow() {
		return nil, CreateErrInvalidStartTime
	}
	if duration <= 0 {
		return nil, CreateErrInvalidEndTime
	}
	return res, CreateSuccess
}

// CreateAdvance books [start, start+duration) x numPE on a resource. Times
// are in the caller's local ticks; start must not be in the past.
func (d *ReservationDirectory) CreateAdvance(resourceID int, start, duration int64, numPE int) CreateResult {
	res, outcome := d.validateCreate(resourceID, start, duration, numPE, false)
	if outcome != CreateSuccess {
		return CreateResult{Outcome: outcome}
	}
	return d.sendCreate(res, TagCreateReservation, d.toResourceTime(res, start), duration, numPE)
}

// CreateImmediate books a reservation starting now. Duration may be the
// NoValue sentinel, meaning "as long as possible".
func (d *ReservationDirectory) CreateImmediate(resourceID int, duration int64, numPE int) CreateResult {
	res, outcome := d.validateCreate(resourceID, NoValue, duration, numPE, true)
	if outcome != CreateSuccess {
		return CreateResult{Outcome: outcome}
	}
	return d.sendCreate(res, TagCreateImmediate, NoValue, duration, numPE)
}

func (d *ReservationDirectory) sendCreate(res *grid.Resource, tag MessageTag, start, duration int64, numPE int) CreateResult {
	reply, err := d.call(&Message{
		Tag:       tag,
		Dst:       res.ID,
		StartTime: start,
		Duration:  duration,
		NumPE:     numPE,
		UserZone:  d.timeZone,
	}, TagReservationReply)
	if err != nil {
		logrus.Warnf("%s: %v", d.name, err)
		return CreateResult{Outcome: CreateErrNoReply}
	}
	result := CreateResult{Outcome: reply.Create}
	if reply.Create == CreateSuccess {
		result.BookingID = reply.BookingID
		result.Expiry = d.fromResourceTime(res, reply.Expiry)
	}
	return result
}

// resolveBooking maps a booking id to the target resource, applying the
// same strictness as the wire format: malformed ids and ids naming an
// unknown resource fail locally.
func (d *ReservationDirectory) resolveBooking(bookingID string) *grid.Resource {
	resourceID, _, err := grid.ParseBookingID(bookingID)
	if err != nil {
		logrus.Debugf("%s: %v", d.name, err)
		return nil
	}
	return d.sim.ResourceByID(resourceID)
}

// Commit confirms a reservation, optionally attaching jobs to run in it.
// The gridlets become owned by this user; they come back through Returned.
func (d *ReservationDirectory) Commit(bookingID string, gridlets ...*grid.Gridlet) CommitOutcome {
	res := d.resolveBooking(bookingID)
	if res == nil {
		return CommitErrInvalidBookingID
	}
	tag := TagCommitReservation
	switch {
	case len(gridlets) == 1:
		tag = TagCommitReservationJob
	case len(gridlets) > 1:
		tag = TagCommitReservationJobs
	}
	for _, gl := range gridlets {
		gl.UserID = d.id
	}
	reply, err := d.call(&Message{
		Tag:       tag,
		Dst:       res.ID,
		BookingID: bookingID,
		Gridlets:  gridlets,
	}, TagReservationReply)
	if err != nil {
		logrus.Warnf("%s: %v", d.name, err)
		return CommitErrNoReply
	}
	return reply.Commit
}

// Cancel cancels a whole reservation including all attached jobs.
func (d *ReservationDirectory) Cancel(bookingID string) CancelOutcome {
	return d.sendCancel(bookingID, TagCancelReservation, nil, 0)
}

// CancelJobs cancels a list of attached jobs; the reservation remains.
func (d *ReservationDirectory) CancelJobs(bookingID string, gridletIDs []int) CancelOutcome {
	return d.sendCancel(bookingID, TagCancelReservationJobs, gridletIDs, 0)
}

// CancelJob cancels a single attached job; the reservation remains.
func (d *ReservationDirectory) CancelJob(bookingID string, gridletID int) CancelOutcome {
	return d.sendCancel(bookingID, TagCancelReservationJob, nil, gridletID)
}

func (d *ReservationDirectory) sendCancel(bookingID string, tag MessageTag, ids []int, id int) CancelOutcome {
	res := d.resolveBooking(bookingID)
	if res == nil {
		return CancelErrInvalidBookingID
	}
	reply, err := d.call(&Message{
		Tag:        tag,
		Dst:        res.ID,
		BookingID:  bookingID,
		GridletIDs: ids,
		GridletID:  id,
	}, TagReservationReply)
	if err != nil {
		logrus.Warnf("%s: %v", d.name, err)
		return CancelErrNoReply
	}
	return reply.Cancel
}

// Modify asks the resource to change a reservation's window or PE count.
// The reference scheduler does not support modification and answers with
// the unsupported code; the directory still validates locally first.
func (d *ReservationDirectory) Modify(bookingID string, start, duration int64, numPE int) ModifyOutcome {
	res := d.resolveBooking(bookingID)
	if res == nil {
		return ModifyErrInvalidBookingID
	}
	if start == NoValue || start < d.localNow() {
		return ModifyErrInvalidStartTime
	}
	if duration <= 0 {
		return ModifyErrInvalidEndTime
	}
	if numPE <= 0 || numPE > res.NumPE {
		return ModifyErrInvalidPECount
	}
	reply, err := d.call(&Message{
		Tag:       TagModifyReservation,
		Dst:       res.ID,
		BookingID: bookingID,
		StartTime: d.toResourceTime(res, start),
		Duration:  duration,
		NumPE:     numPE,
		UserZone:  d.timeZone,
	}, TagReservationReply)
	if err != nil {
		logrus.Warnf("%s: %v", d.name, err)
		return ModifyErrNoReply
	}
	return reply.Modify
}

// QueryStatus returns the reservation's current state as seen by the
// resource.
func (d *ReservationDirectory) QueryStatus(bookingID string) QueryOutcome {
	res := d.resolveBooking(bookingID)
	if res == nil {
		return QueryDoesNotExist
	}
	reply, err := d.call(&Message{
		Tag:       TagQueryReservationStatus,
		Dst:       res.ID,
		BookingID: bookingID,
	}, TagReservationReply)
	if err != nil {
		logrus.Warnf("%s: %v", d.name, err)
		return QueryErrNoReply
	}
	return reply.Query
}

// QueryBusyTime asks a resource for its booked time. The reference
// scheduler does not support it; the outcome says so rather than silently
// succeeding.
func (d *ReservationDirectory) QueryBusyTime(resourceID int) QueryOutcome {
	return d.sendTimeQuery(resourceID, TagQueryBusyTime)
}

// QueryFreeTime asks a resource for its free time. Unsupported, like
// QueryBusyTime.
func (d *ReservationDirectory) QueryFreeTime(resourceID int) QueryOutcome {
	return d.sendTimeQuery(resourceID, TagQueryFreeTime)
}

func (d *ReservationDirectory) sendTimeQuery(resourceID int, tag MessageTag) QueryOutcome {
	if d.sim.ResourceByID(resourceID) == nil {
		return QueryDoesNotExist
	}
	reply, err := d.call(&Message{Tag: tag, Dst: resourceID}, TagReservationReply)
	if err != nil {
		logrus.Warnf("%s: %v", d.name, err)
		return QueryErrNoReply
	}
	return reply.Query
}

// === Ordinary job operations ===

// SubmitGridlet submits a non-reserved job. With ack the call suspends
// until the resource acknowledges; without it the submission is fire and
// forget.
func (d *ReservationDirectory) SubmitGridlet(resourceID int, gl *grid.Gridlet, ack bool) (GridletAck, error) {
	gl.UserID = d.id
	msg := &Message{
		Tag:     TagGridletSubmit,
		Dst:     resourceID,
		Gridlet: gl,
		Ack:     ack,
	}
	if !ack {
		msg.Src = d.id
		msg.TxnID = d.newTxn()
		d.sim.Send(msg)
		return GridletAck{}, nil
	}
	reply, err := d.call(msg, TagGridletAck)
	if err != nil {
		return GridletAck{}, err
	}
	return GridletAck{Found: reply.Found, Status: reply.GridletStatus}, nil
}

// CancelGridlet cancels a non-reserved job on a resource.
func (d *ReservationDirectory) CancelGridlet(resourceID, gridletID int) (GridletAck, error) {
	return d.jobCall(TagGridletCancel, resourceID, gridletID, 0)
}

// PauseGridlet suspends an executing or queued job.
func (d *ReservationDirectory) PauseGridlet(resourceID, gridletID int) (GridletAck, error) {
	return d.jobCall(TagGridletPause, resourceID, gridletID, 0)
}

// ResumeGridlet puts a paused job back into execution or the queue.
func (d *ReservationDirectory) ResumeGridlet(resourceID, gridletID int) (GridletAck, error) {
	return d.jobCall(TagGridletResume, resourceID, gridletID, 0)
}

// MoveGridlet transfers a job from one resource to another. Progress made
// so far stays recorded against the source resource.
func (d *ReservationDirectory) MoveGridlet(srcResourceID, dstResourceID, gridletID int) (GridletAck, error) {
	return d.jobCall(TagGridletMove, srcResourceID, gridletID, dstResourceID)
}

// GridletStatus queries a job's current status on a resource.
func (d *ReservationDirectory) GridletStatus(resourceID, gridletID int) (GridletAck, error) {
	return d.jobCall(TagGridletStatus, resourceID, gridletID, 0)
}

func (d *ReservationDirectory) jobCall(tag MessageTag, resourceID, gridletID, moveDst int) (GridletAck, error) {
	reply, err := d.call(&Message{
		Tag:       tag,
		Dst:       resourceID,
		GridletID: gridletID,
		MoveDst:   moveDst,
		Ack:       true,
	}, TagGridletAck)
	if err != nil {
		return GridletAck{}, err
	}
	return GridletAck{Found: reply.Found, Status: reply.GridletStatus}, nil
}
