package sim

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/grid-sim/grid-sim/sim/grid"
)

// Entity is anything that can receive protocol messages: a resource's
// scheduler or a user-side directory. Each entity owns its local state
// exclusively; entities only interact through timestamped messages.
type Entity interface {
	ID() int
	Name() string
	HandleMessage(*Simulator, *Message)
}

// TimerHandler is implemented by entities that schedule self-directed
// wakeups.
type TimerHandler interface {
	HandleTimer(*Simulator, TimerKind)
}

// ReplyBuffer is implemented by entities that issue requests and suspend
// until the matching reply arrives. TakeReply removes and returns the
// buffered reply matching (transaction id, tag), or nil if none is held.
type ReplyBuffer interface {
	TakeReply(txnID int64, tag MessageTag) *Message
}

// Simulator is the core object that holds simulation time, the registry of
// entities and resources, and the event loop. All coordination between
// entities goes through its event heap; there is no shared mutable state.
type Simulator struct {
	Clock   int64
	Horizon int64

	// MessageLatency is the fixed delivery delay applied to every
	// protocol message, in ticks. Network simulation proper is out of
	// scope; this stands in for it.
	MessageLatency int64

	events      *EventHeap
	entities    map[int]Entity
	resources   map[int]*grid.Resource
	nextEventID uint64
}

// NewSimulator creates an empty simulator with the given horizon.
func NewSimulator(horizon int64) *Simulator {
	return &Simulator{
		Horizon:   horizon,
		events:    NewEventHeap(),
		entities:  make(map[int]Entity),
		resources: make(map[int]*grid.Resource),
	}
}

// Register adds an entity to the registry. Registering a duplicate id is a
// configuration error.
func (s *Simulator) Register(e Entity) error {
	if _, exists := s.entities[e.ID()]; exists {
		return errors.Errorf("entity id %d already registered", e.ID())
	}
	s.entities[e.ID()] = e
	return nil
}

// RegisterResource records a resource's static capability alongside its
// scheduler entity. Directories consult this registry for local validation
// (resource existence, PE totals, reservation support) without a network
// round trip.
func (s *Simulator) RegisterResource(res *grid.Resource, scheduler Entity) error {
	if err := s.Register(scheduler); err != nil {
		return err
	}
	s.resources[res.ID] = res
	return nil
}

// ResourceByID returns the registered resource description, or nil.
func (s *Simulator) ResourceByID(id int) *grid.Resource {
	return s.resources[id]
}

// ResourceIDs returns all registered resource ids.
func (s *Simulator) ResourceIDs() []int {
	ids := make([]int, 0, len(s.resources))
	for id := range s.resources {
		ids = append(ids, id)
	}
	return ids
}

func (s *Simulator) entity(id int) Entity {
	return s.entities[id]
}

// PendingEvents reports how many events are scheduled but not yet
// executed.
func (s *Simulator) PendingEvents() int {
	return s.events.Len()
}

// newEventID generates the next event ID for deterministic tie-breaking.
func (s *Simulator) newEventID() uint64 {
	s.nextEventID++
	return s.nextEventID
}

// Schedule adds an event to the event heap.
func (s *Simulator) Schedule(e Event) {
	s.events.Schedule(e)
}

// Send schedules delivery of a message after the simulator's fixed
// message latency.
func (s *Simulator) Send(msg *Message) {
	s.Schedule(&MessageEvent{
		time: s.Clock + s.MessageLatency,
		id:   s.newEventID(),
		Msg:  msg,
	})
}

// ScheduleTimer schedules a self-directed wakeup for an entity. Timers are
// never cancelled; handlers must treat stale wakeups as no-ops.
func (s *Simulator) ScheduleTimer(at int64, entityID int, kind TimerKind) {
	if at < s.Clock {
		at = s.Clock
	}
	s.Schedule(&TimerEvent{
		time:     at,
		id:       s.newEventID(),
		EntityID: entityID,
		Timer:    kind,
	})
}

// ScheduleFunc schedules a scripted action (a simulated user's step).
func (s *Simulator) ScheduleFunc(at int64, fn func(*Simulator)) {
	s.Schedule(&FuncEvent{
		time: at,
		id:   s.newEventID(),
		Fn:   fn,
	})
}

// step pops and executes the next event, advancing the clock. Returns
// false when the heap is empty.
func (s *Simulator) step() bool {
	ev := s.events.PopNext()
	if ev == nil {
		return false
	}
	if ev.Timestamp() < s.Clock {
		panic(fmt.Sprintf("clock went backwards: %d < %d", ev.Timestamp(), s.Clock))
	}
	s.Clock = ev.Timestamp()
	logrus.Debugf("[tick %07d] executing %T", s.Clock, ev)
	ev.Execute(s)
	return true
}

// Run processes events in nondecreasing timestamp order until the heap
// drains or the horizon is passed.
func (s *Simulator) Run() {
	for s.events.Len() > 0 {
		if next := s.events.Peek(); next.Timestamp() > s.Horizon {
			break
		}
		s.step()
	}
	logrus.Infof("[tick %07d] simulation ended", s.Clock)
}

// RecvMatch suspends the caller until a reply matching (transaction id,
// tag) is buffered for it, pumping the event loop meanwhile. Events for
// other entities execute normally while the caller waits; this is the only
// suspension point in the system. Returns an error if the event heap
// drains without a matching reply.
func (s *Simulator) RecvMatch(waiter ReplyBuffer, txnID int64, tag MessageTag) (*Message, error) {
	for {
		if reply := waiter.TakeReply(txnID, tag); reply != nil {
			return reply, nil
		}
		if !s.step() {
			return nil, errors.Errorf("no reply for txn %d tag %s: event queue drained", txnID, tag)
		}
	}
}
