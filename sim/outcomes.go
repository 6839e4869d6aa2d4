// Enumerated result codes returned to callers, one closed group per
// operation. Rejections are coded, never free-form strings, and a capacity
// rejection carries a coarse busy-time bucket instead of a precise retry
// time.

package sim

import "fmt"

// CreateOutcome codes the result of a create-reservation request. The busy
// buckets are part of the enum: a full resource answers with the smallest
// bucket boundary at or above the computed gap, never a smaller one.
type CreateOutcome int

const (
	CreateSuccess CreateOutcome = iota
	CreateErrInvalidStartTime
	CreateErrInvalidEndTime
	CreateErrInvalidPECount
	CreateErrInvalidResource
	CreateErrResourceUnsupported
	CreateErrInsufficientPE
	CreateErrNoReply

	CreateBusy1Sec
	CreateBusy5Secs
	CreateBusy10Secs
	CreateBusy15Secs
	CreateBusy30Secs
	CreateBusy45Secs
	CreateBusy1Min
	CreateBusy5Mins
	CreateBusy10Mins
	CreateBusy15Mins
	CreateBusy30Mins
	CreateBusy45Mins
	CreateBusy1Hour
	CreateBusy5Hours
	CreateBusy10Hours
	CreateBusy15Hours
	CreateBusy30Hours
	CreateBusy45HoursOrMore
)

var createOutcomeNames = map[CreateOutcome]string{
	CreateSuccess:                "success",
	CreateErrInvalidStartTime:    "invalid-start-time",
	CreateErrInvalidEndTime:      "invalid-end-or-duration",
	CreateErrInvalidPECount:      "invalid-pe-count",
	CreateErrInvalidResource:     "invalid-resource",
	CreateErrResourceUnsupported: "resource-unsupported",
	CreateErrInsufficientPE:      "insufficient-pe",
	CreateErrNoReply:             "no-reply",
	CreateBusy1Sec:               "busy-for-~1s",
	CreateBusy5Secs:              "busy-for-~5s",
	CreateBusy10Secs:             "busy-for-~10s",
	CreateBusy15Secs:             "busy-for-~15s",
	CreateBusy30Secs:             "busy-for-~30s",
	CreateBusy45Secs:             "busy-for-~45s",
	CreateBusy1Min:               "busy-for-~1min",
	CreateBusy5Mins:              "busy-for-~5min",
	CreateBusy10Mins:             "busy-for-~10min",
	CreateBusy15Mins:             "busy-for-~15min",
	CreateBusy30Mins:             "busy-for-~30min",
	CreateBusy45Mins:             "busy-for-~45min",
	CreateBusy1Hour:              "busy-for-~1h",
	CreateBusy5Hours:             "busy-for-~5h",
	CreateBusy10Hours:            "busy-for-~10h",
	CreateBusy15Hours:            "busy-for-~15h",
	CreateBusy30Hours:            "busy-for-~30h",
	CreateBusy45HoursOrMore:      "busy-for-~45h-or-more",
}

func (o CreateOutcome) String() string {
	if name, ok := createOutcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("unknown-create-outcome(%d)", int(o))
}

// Busy reports whether the outcome is a busy-time bucket.
func (o CreateOutcome) Busy() bool {
	return o >= CreateBusy1Sec && o <= CreateBusy45HoursOrMore
}

// busyBuckets lists the bucket boundaries in ticks (1 tick = 1 second),
// ascending. A computed gap is rounded UP to the first boundary at or
// above it; rounding down would under-promise availability.
var busyBuckets = []struct {
	limit   int64
	outcome CreateOutcome
}{
	{1, CreateBusy1Sec},
	{5, CreateBusy5Secs},
	{10, CreateBusy10Secs},
	{15, CreateBusy15Secs},
	{30, CreateBusy30Secs},
	{45, CreateBusy45Secs},
	{60, CreateBusy1Min},
	{5 * 60, CreateBusy5Mins},
	{10 * 60, CreateBusy10Mins},
	{15 * 60, CreateBusy15Mins},
	{30 * 60, CreateBusy30Mins},
	{45 * 60, CreateBusy45Mins},
	{3600, CreateBusy1Hour},
	{5 * 3600, CreateBusy5Hours},
	{10 * 3600, CreateBusy10Hours},
	{15 * 3600, CreateBusy15Hours},
	{30 * 3600, CreateBusy30Hours},
}

// BusyOutcomeFor maps a computed gap to its busy-time bucket. Gaps at or
// below zero land in the smallest bucket; gaps beyond the last boundary
// land in the "45 hours or more" bucket.
func BusyOutcomeFor(gap int64) CreateOutcome {
	for _, b := range busyBuckets {
		if gap <= b.limit {
			return b.outcome
		}
	}
	return CreateBusy45HoursOrMore
}

// CancelOutcome codes the result of a cancel request.
type CancelOutcome int

const (
	CancelSuccess CancelOutcome = iota
	CancelErrInvalidBookingID
	CancelAlreadyFinished
	CancelErrUnsupported
	CancelErrNoReply
	CancelError
)

var cancelOutcomeNames = map[CancelOutcome]string{
	CancelSuccess:             "success",
	CancelErrInvalidBookingID: "invalid-booking-id",
	CancelAlreadyFinished:     "already-finished",
	CancelErrUnsupported:      "unsupported",
	CancelErrNoReply:          "no-reply",
	CancelError:               "error",
}

func (o CancelOutcome) String() string {
	if name, ok := cancelOutcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("unknown-cancel-outcome(%d)", int(o))
}

// CommitOutcome codes the result of a commit request.
type CommitOutcome int

const (
	CommitSuccess CommitOutcome = iota
	CommitFailed
	CommitExpired
	CommitErrInvalidBookingID
	CommitErrUnsupported
	CommitErrNoReply
	CommitError
)

var commitOutcomeNames = map[CommitOutcome]string{
	CommitSuccess:             "success",
	CommitFailed:              "fail",
	CommitExpired:             "expired",
	CommitErrInvalidBookingID: "invalid-booking-id",
	CommitErrUnsupported:      "unsupported",
	CommitErrNoReply:          "no-reply",
	CommitError:               "error",
}

func (o CommitOutcome) String() string {
	if name, ok := commitOutcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("unknown-commit-outcome(%d)", int(o))
}

// ModifyOutcome codes the result of a modify request.
type ModifyOutcome int

const (
	ModifySuccess ModifyOutcome = iota
	ModifyErrInvalidBookingID
	ModifyErrReservationActive
	ModifyErrInvalidStartTime
	ModifyErrInvalidEndTime
	ModifyErrInvalidPECount
	ModifyErrUnsupported
	ModifyErrNoReply
	ModifyError
)

var modifyOutcomeNames = map[ModifyOutcome]string{
	ModifySuccess:              "success",
	ModifyErrInvalidBookingID:  "invalid-booking-id",
	ModifyErrReservationActive: "reservation-active",
	ModifyErrInvalidStartTime:  "invalid-start-time",
	ModifyErrInvalidEndTime:    "invalid-end-or-duration",
	ModifyErrInvalidPECount:    "invalid-pe-count",
	ModifyErrUnsupported:       "unsupported",
	ModifyErrNoReply:           "no-reply",
	ModifyError:                "error",
}

func (o ModifyOutcome) String() string {
	if name, ok := modifyOutcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("unknown-modify-outcome(%d)", int(o))
}

// QueryOutcome codes the result of a status or busy/free-time query. The
// status values mirror the reservation status enum.
type QueryOutcome int

const (
	QueryNotCommitted QueryOutcome = iota
	QueryNotStarted
	QueryActive
	QueryCompleted
	QueryCanceled
	QueryTerminated
	QueryExpired
	QueryDoesNotExist
	QueryErrUnsupported
	QueryErrNoReply
	QueryError
)

var queryOutcomeNames = map[QueryOutcome]string{
	QueryNotCommitted:   "not-committed",
	QueryNotStarted:     "not-started",
	QueryActive:         "active",
	QueryCompleted:      "completed",
	QueryCanceled:       "canceled",
	QueryTerminated:     "terminated",
	QueryExpired:        "expired",
	QueryDoesNotExist:   "does-not-exist",
	QueryErrUnsupported: "unsupported",
	QueryErrNoReply:     "no-reply",
	QueryError:          "error",
}

func (o QueryOutcome) String() string {
	if name, ok := queryOutcomeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("unknown-query-outcome(%d)", int(o))
}
