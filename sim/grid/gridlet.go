// Defines the Gridlet struct that models an individual job in the simulation.
// Tracks requested PEs, instruction length, status, and per-resource
// execution records.

package grid

import (
	"fmt"

	"github.com/pkg/errors"
)

// GridletStatus represents the lifecycle state of a gridlet.
type GridletStatus int

const (
	StatusCreated GridletStatus = iota
	StatusReady
	StatusQueued
	StatusInExec
	StatusPaused
	StatusResumed
	StatusSuccess
	StatusCanceled
	StatusFailed
	StatusFailedResourceUnavailable
)

var gridletStatusNames = map[GridletStatus]string{
	StatusCreated:                   "created",
	StatusReady:                     "ready",
	StatusQueued:                    "queued",
	StatusInExec:                    "in-exec",
	StatusPaused:                    "paused",
	StatusResumed:                   "resumed",
	StatusSuccess:                   "success",
	StatusCanceled:                  "canceled",
	StatusFailed:                    "failed",
	StatusFailedResourceUnavailable: "failed-resource-unavailable",
}

func (s GridletStatus) String() string {
	if name, ok := gridletStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Terminal reports whether the status admits no further transitions.
func (s GridletStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusCanceled, StatusFailed, StatusFailedResourceUnavailable:
		return true
	}
	return false
}

// ExecRecord captures one visit of a gridlet to a resource. A gridlet
// accumulates one record per resource it is submitted to; the record for
// the current (last) resource carries the authoritative finished-so-far
// length.
type ExecRecord struct {
	ResourceID     int
	ResourceName   string
	CostPerSec     float64
	SubmissionTime int64
	WallClockTime  int64
	ActualCPUTime  int64
	FinishedSoFar  float64 // MI completed on this resource
}

// Gridlet models a single job's lifecycle in the simulation.
// Length is the total instruction count (MI) to be executed per requested PE.
// The gridlet is owned exclusively by a resource scheduler while queued or
// executing; ownership transfers back to the submitting user on
// completion, cancellation, or move.
type Gridlet struct {
	ID         int
	UserID     int
	NumPE      int
	Length     float64 // MI per PE
	InputSize  int64
	OutputSize int64
	Priority   int

	Status GridletStatus

	// ReservationID links the gridlet to the booking it was committed
	// under; -1 when the gridlet is an ordinary (non-reserved) submission.
	ReservationID int

	history []ExecRecord
}

// NewGridlet creates a gridlet in the Created state.
func NewGridlet(id, userID int, length float64, inputSize, outputSize int64, numPE int) *Gridlet {
	return &Gridlet{
		ID:            id,
		UserID:        userID,
		NumPE:         numPE,
		Length:        length,
		InputSize:     inputSize,
		OutputSize:    outputSize,
		Status:        StatusCreated,
		ReservationID: -1,
	}
}

// SetStatus transitions the gridlet to a new status. Setting the current
// status again is a no-op. Transitions out of a terminal status are
// rejected.
func (g *Gridlet) SetStatus(s GridletStatus) error {
	if s == g.Status {
		return nil
	}
	if g.Status.Terminal() {
		return errors.Errorf("gridlet %d: cannot leave terminal status %s", g.ID, g.Status)
	}
	g.Status = s
	return nil
}

// AddResource appends a new execution record for a resource the gridlet
// has just arrived at. Progress on the previous resource, if any, is
// preserved in its own record.
func (g *Gridlet) AddResource(resourceID int, resourceName string, costPerSec float64, now int64) {
	g.history = append(g.history, ExecRecord{
		ResourceID:     resourceID,
		ResourceName:   resourceName,
		CostPerSec:     costPerSec,
		SubmissionTime: now,
	})
}

// CurrentRecord returns the execution record for the resource the gridlet
// currently resides on, or nil if it has never been submitted.
func (g *Gridlet) CurrentRecord() *ExecRecord {
	if len(g.history) == 0 {
		return nil
	}
	return &g.history[len(g.history)-1]
}

// History returns all per-resource execution records in visit order.
func (g *Gridlet) History() []ExecRecord {
	return g.history
}

// FinishedSoFar returns the MI completed on the current resource.
func (g *Gridlet) FinishedSoFar() float64 {
	rec := g.CurrentRecord()
	if rec == nil {
		return 0
	}
	return rec.FinishedSoFar
}

// UpdateFinishedSoFar advances the finished-so-far length on the current
// resource. The value is strictly non-decreasing and clamped to Length;
// a smaller value than already recorded is ignored.
func (g *Gridlet) UpdateFinishedSoFar(finished float64) {
	rec := g.CurrentRecord()
	if rec == nil {
		return
	}
	if finished > g.Length {
		finished = g.Length
	}
	if finished > rec.FinishedSoFar {
		rec.FinishedSoFar = finished
	}
}

// RemainingLength returns the MI still to execute on the current resource.
func (g *Gridlet) RemainingLength() float64 {
	remaining := g.Length - g.FinishedSoFar()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsFinished reports whether the gridlet has consumed its full length.
func (g *Gridlet) IsFinished() bool {
	return len(g.history) > 0 && g.FinishedSoFar() >= g.Length
}

func (g *Gridlet) String() string {
	return fmt.Sprintf("Gridlet: (ID: %d, User: %d, Status: %s, Finished: %.1f/%.1f MI)",
		g.ID, g.UserID, g.Status, g.FinishedSoFar(), g.Length)
}
