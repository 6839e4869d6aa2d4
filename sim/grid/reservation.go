package grid

import "fmt"

// ReservationStatus represents the lifecycle state of a reservation on the
// resource that accepted it.
type ReservationStatus int

const (
	// ResvNotCommitted: accepted, holding capacity, waiting for a commit
	// before the expiry deadline.
	ResvNotCommitted ReservationStatus = iota
	// ResvNotStarted: committed, start time still in the future.
	ResvNotStarted
	// ResvActive: start time passed and at least one attached job dispatched.
	ResvActive
	// ResvCompleted: attached-job counter reached zero past the end time.
	ResvCompleted
	ResvCanceled
	ResvTerminated
	ResvExpired
)

var reservationStatusNames = map[ReservationStatus]string{
	ResvNotCommitted: "not-committed",
	ResvNotStarted:   "not-started",
	ResvActive:       "active",
	ResvCompleted:    "completed",
	ResvCanceled:     "canceled",
	ResvTerminated:   "terminated",
	ResvExpired:      "expired",
}

func (s ReservationStatus) String() string {
	if name, ok := reservationStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Reservation is the booking record held by a resource scheduler. A record
// lives in exactly one of the scheduler's two lists (active or archive) at
// a time. All times are in the owning resource's local ticks.
type Reservation struct {
	ID            int // assigned by the resource, unique per resource
	TransactionID int64
	UserID        int
	ResourceID    int
	StartTime     int64
	Duration      int64
	NumPE         int
	TimeZone      int64 // requesting user's local offset, in ticks
	ExpiryTime    int64 // commit deadline
	Committed     bool
	Status        ReservationStatus

	attached int
}

// EndTime returns the exclusive end of the reserved interval.
func (r *Reservation) EndTime() int64 {
	return r.StartTime + r.Duration
}

// Overlaps reports whether the reservation's [StartTime, EndTime) interval
// intersects [start, end).
func (r *Reservation) Overlaps(start, end int64) bool {
	return r.StartTime < end && r.EndTime() > start
}

// AttachJob increments the attached-job counter and returns the new count.
func (r *Reservation) AttachJob() int {
	r.attached++
	return r.attached
}

// DetachJob decrements the attached-job counter and returns the new count.
// The counter never goes below zero.
func (r *Reservation) DetachJob() int {
	if r.attached > 0 {
		r.attached--
	}
	return r.attached
}

// AttachedJobs returns the number of jobs currently attached.
func (r *Reservation) AttachedJobs() int {
	return r.attached
}

func (r *Reservation) String() string {
	return fmt.Sprintf("Reservation: (ID: %d, Resource: %d, Start: %d, Duration: %d, PEs: %d, Status: %s)",
		r.ID, r.ResourceID, r.StartTime, r.Duration, r.NumPE, r.Status)
}
