package sim

import "github.com/sirupsen/logrus"

// EventKind discriminates the event types flowing through the simulator.
type EventKind int

const (
	// KindMessage delivers a tagged protocol message to an entity.
	KindMessage EventKind = iota
	// KindTimer is a self-directed wakeup owned by a resource scheduler
	// (dispatch trigger, expiry sweep, progress forecast).
	KindTimer
	// KindFunc runs an arbitrary scripted action (workload steps, tests).
	KindFunc
)

// eventKindPriority breaks timestamp ties deterministically: message
// deliveries are observed before timer wakeups at the same tick, so a
// commit arriving at t is processed before the dispatch timer at t.
var eventKindPriority = map[EventKind]int{
	KindMessage: 0,
	KindFunc:    1,
	KindTimer:   2,
}

// Event defines the interface for all simulation events.
// Each event must have a Timestamp (in ticks) and an Execute method that
// advances simulation state when invoked.
type Event interface {
	Timestamp() int64
	Kind() EventKind
	EventID() uint64
	Execute(*Simulator)
}

// MessageEvent represents the delivery of a protocol message to its
// destination entity.
type MessageEvent struct {
	time int64
	id   uint64
	Msg  *Message
}

func (e *MessageEvent) Timestamp() int64 { return e.time }
func (e *MessageEvent) Kind() EventKind  { return KindMessage }
func (e *MessageEvent) EventID() uint64  { return e.id }

// Execute hands the message to the destination entity. A message to an
// unregistered entity is logged and dropped; it is never an error for the
// sender.
func (e *MessageEvent) Execute(sim *Simulator) {
	dst := sim.entity(e.Msg.Dst)
	if dst == nil {
		logrus.Warnf("[tick %07d] dropping %s for unknown entity %d", e.time, e.Msg.Tag, e.Msg.Dst)
		return
	}
	logrus.Debugf("[tick %07d] deliver %s (txn %d) %d -> %d", e.time, e.Msg.Tag, e.Msg.TxnID, e.Msg.Src, e.Msg.Dst)
	dst.HandleMessage(sim, e.Msg)
}

// TimerKind names the self-directed wakeups a resource scheduler uses.
type TimerKind int

const (
	// TimerDispatch moves due AR-waiting jobs toward execution.
	TimerDispatch TimerKind = iota
	// TimerExpiry sweeps uncommitted reservations past their deadline and
	// drained reservations past their end time.
	TimerExpiry
	// TimerForecast advances lazy progress at the earliest forecast
	// finish time of the executing jobs.
	TimerForecast
)

var timerKindNames = map[TimerKind]string{
	TimerDispatch: "dispatch",
	TimerExpiry:   "expiry",
	TimerForecast: "forecast",
}

func (k TimerKind) String() string { return timerKindNames[k] }

// TimerEvent is a self-directed wakeup. Stale timers (the state they were
// scheduled for has since changed) must be no-ops: the handler re-validates
// everything against current state.
type TimerEvent struct {
	time     int64
	id       uint64
	EntityID int
	Timer    TimerKind
}

func (e *TimerEvent) Timestamp() int64 { return e.time }
func (e *TimerEvent) Kind() EventKind  { return KindTimer }
func (e *TimerEvent) EventID() uint64  { return e.id }

func (e *TimerEvent) Execute(sim *Simulator) {
	ent := sim.entity(e.EntityID)
	if ent == nil {
		return
	}
	handler, ok := ent.(TimerHandler)
	if !ok {
		logrus.Warnf("[tick %07d] %s timer for entity %d which handles no timers", e.time, e.Timer, e.EntityID)
		return
	}
	logrus.Debugf("[tick %07d] %s timer fires at entity %d", e.time, e.Timer, e.EntityID)
	handler.HandleTimer(sim, e.Timer)
}

// FuncEvent runs a closure at a scheduled tick. Workload scripts and tests
// use it to act as simulated users.
type FuncEvent struct {
	time int64
	id   uint64
	Fn   func(*Simulator)
}

func (e *FuncEvent) Timestamp() int64 { return e.time }
func (e *FuncEvent) Kind() EventKind  { return KindFunc }
func (e *FuncEvent) EventID() uint64  { return e.id }

func (e *FuncEvent) Execute(sim *Simulator) {
	e.Fn(sim)
}
