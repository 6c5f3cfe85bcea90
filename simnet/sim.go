// Package simnet is a deterministic, time-simulated network. A single
// cooperative thread advances a virtual clock and fires events in
// timestamp order, so a run is a pure function of its seed and inputs.
// Roles register one handler per address; handlers run one at a time,
// which makes every state transition an atomic step.
package simnet

import (
	"container/heap"
	"fmt"
	"log"
	"math/rand"
	"time"
)

func init() {
	log.SetFlags(log.Lshortfile)
}

// Address names a role instance: ("acceptor", 2), ("leader", 0) and so on.
type Address struct {
	Role string `json:"role"`
	ID   int    `json:"id"`
}

func (a Address) String() string {
	return fmt.Sprintf("%v#%v", a.Role, a.ID)
}

// Message is an opaque payload; the simulator never inspects it.
type Message interface{}

// Handler consumes one delivered message.
type Handler func(m Message)

type event struct {
	at  time.Duration
	seq uint64
	fn  func()
}

type eventHeap []event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) { *h = append(*h, x.(event)) }

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// Sim owns the virtual clock and the timeline. It is not safe for use from
// more than one goroutine; everything it drives is cooperative.
type Sim struct {
	now      time.Duration
	seq      uint64
	queue    eventHeap
	handlers map[Address]Handler
	profile  DelayProfile
	rand     *rand.Rand
	trace    *Trace
}

func New(seed int64) *Sim {
	return &Sim{
		handlers: make(map[Address]Handler),
		profile:  Constant(0),
		rand:     rand.New(rand.NewSource(seed)),
		trace:    NewTrace(),
	}
}

// Now returns the current virtual time.
func (s *Sim) Now() time.Duration {
	return s.now
}

// Schedule runs f after the given virtual delay. Negative delays fire at
// the current instant.
func (s *Sim) Schedule(d time.Duration, f func()) {
	if d < 0 {
		d = 0
	}
	s.seq++
	heap.Push(&s.queue, event{at: s.now + d, seq: s.seq, fn: f})
}

// Register installs the handler serving an address. A second registration
// for the same address replaces the first.
func (s *Sim) Register(addr Address, h Handler) {
	s.handlers[addr] = h
}

// SetDelays swaps the delay profile. Messages already in flight keep the
// delay they were sent with.
func (s *Sim) SetDelays(p DelayProfile) {
	if p == nil {
		p = Constant(0)
	}
	s.profile = p
}

// Send delivers one message to the address after the profile's delay, or
// drops it if the profile says the link is down. Sends are reliable per
// link but carry no ordering guarantee against each other.
func (s *Sim) Send(from, to Address, m Message) {
	d, ok := s.profile.Delay(from, to, s.now, s.rand)
	if !ok {
		s.trace.Append(TraceEntry{At: s.now, From: from, To: to, Dropped: true, Msg: m})
		return
	}
	s.Schedule(d, func() {
		s.trace.Append(TraceEntry{At: s.now, From: from, To: to, Msg: m})
		h, ok := s.handlers[to]
		if !ok {
			log.Printf("simnet: no handler for %v, dropping %v", to, m)
			return
		}
		h(m)
	})
}

// Run fires events in order until the timeline is exhausted or the next
// event lies past the horizon. The clock finishes at the horizon.
func (s *Sim) Run(until time.Duration) {
	for s.queue.Len() > 0 {
		if s.queue[0].at > until {
			break
		}
		e := heap.Pop(&s.queue).(event)
		s.now = e.at
		e.fn()
	}
	if s.now < until {
		s.now = until
	}
}

// Trace exposes the record of every delivery and drop so far.
func (s *Sim) Trace() *Trace {
	return s.trace
}
