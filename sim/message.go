// Protocol surface between user-side directories and resource schedulers:
// the tagged message-kind enum, the enumerated per-operation result codes,
// and the flat message record they travel in. The message shape is decided
// once here; handlers switch exhaustively on the tag and never inspect
// payload types at runtime.

package sim

import (
	"fmt"

	"github.com/grid-sim/grid-sim/sim/grid"
)

// NoValue is the "don't care" sentinel for start time and duration. An
// immediate reservation passes NoValue as its start ("now") and may pass
// NoValue as its duration ("as long as possible").
const NoValue int64 = -1

// MessageTag enumerates every request and reply kind on the wire.
type MessageTag int

const (
	// Reservation protocol requests.
	TagCreateReservation MessageTag = iota // advance
	TagCreateImmediate
	TagModifyReservation
	TagCancelReservation     // whole reservation
	TagCancelReservationJobs // a list of attached jobs
	TagCancelReservationJob  // a single attached job
	TagCommitReservation     // commit only
	TagCommitReservationJob
	TagCommitReservationJobs
	TagQueryReservationStatus
	TagQueryBusyTime
	TagQueryFreeTime

	// Ordinary job requests.
	TagGridletSubmit
	TagGridletCancel
	TagGridletPause
	TagGridletResume
	TagGridletMove
	TagGridletStatus

	// Replies.
	TagReservationReply
	TagGridletAck    // acknowledgement for a job request, correlated by txn id
	TagGridletReturn // ownership transfer of a finished/canceled/moved gridlet
)

var messageTagNames = map[MessageTag]string{
	TagCreateReservation:      "create-reservation",
	TagCreateImmediate:        "create-immediate",
	TagModifyReservation:      "modify-reservation",
	TagCancelReservation:      "cancel-reservation",
	TagCancelReservationJobs:  "cancel-reservation-jobs",
	TagCancelReservationJob:   "cancel-reservation-job",
	TagCommitReservation:      "commit-reservation",
	TagCommitReservationJob:   "commit-reservation-job",
	TagCommitReservationJobs:  "commit-reservation-jobs",
	TagQueryReservationStatus: "query-reservation-status",
	TagQueryBusyTime:          "query-busy-time",
	TagQueryFreeTime:          "query-free-time",
	TagGridletSubmit:          "gridlet-submit",
	TagGridletCancel:          "gridlet-cancel",
	TagGridletPause:           "gridlet-pause",
	TagGridletResume:          "gridlet-resume",
	TagGridletMove:            "gridlet-move",
	TagGridletStatus:          "gridlet-status",
	TagReservationReply:       "reservation-reply",
	TagGridletAck:             "gridlet-ack",
	TagGridletReturn:          "gridlet-return",
}

func (t MessageTag) String() string {
	if name, ok := messageTagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown-tag(%d)", int(t))
}

// Message is the flat record every request and reply travels in. Which
// fields are meaningful is fixed by the Tag; unused fields stay zero.
type Message struct {
	Tag   MessageTag
	TxnID int64
	Src   int
	Dst   int
	Ack   bool // job requests only: caller wants a TagGridletAck reply

	// Reservation request fields. Times are already converted to the
	// destination resource's local ticks by the sending directory.
	StartTime  int64
	Duration   int64
	NumPE      int
	UserZone   int64
	BookingID  string
	GridletIDs []int

	// Job payloads.
	Gridlet   *grid.Gridlet
	Gridlets  []*grid.Gridlet
	GridletID int
	MoveDst   int // destination resource for gridlet-move

	// Reply fields, grouped per operation.
	Create        CreateOutcome
	Cancel        CancelOutcome
	Commit        CommitOutcome
	Modify        ModifyOutcome
	Query         QueryOutcome
	Expiry        int64 // resource-local; the directory converts back
	GridletStatus grid.GridletStatus
	Found         bool // job acks: whether the resource knew the gridlet
}
