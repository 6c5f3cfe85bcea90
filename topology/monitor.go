package topology

import (
	"time"

	"github.com/Martoon-00/sdn-policies/protocol"
	"github.com/Martoon-00/sdn-policies/simnet"
)

// AllStates is one atomic observation of every role.
type AllStates struct {
	Proposer  protocol.ProposerState
	Leader    protocol.LeaderState
	Acceptors []protocol.AcceptorState
	Learners  []protocol.LearnerState
}

// Monitor is the handle a launched topology hands back: it drives the
// simulated clock and observes role states without ever mutating them.
type Monitor struct {
	sim       *simnet.Sim
	lifetime  time.Duration
	proposer  *protocol.Proposer
	leader    *protocol.Leader
	acceptors []*protocol.Acceptor
	learners  []*protocol.Learner
	errs      *protocol.ErrorLog
}

// Snapshot captures the state of every role. Within a role the copy is
// atomic; across roles it is taken at a single instant of virtual time,
// which amounts to the same thing under the cooperative simulator.
func (m *Monitor) Snapshot() AllStates {
	st := AllStates{
		Proposer: m.proposer.Snapshot(),
		Leader:   m.leader.Snapshot(),
	}
	for _, a := range m.acceptors {
		st.Acceptors = append(st.Acceptors, a.Snapshot())
	}
	for _, l := range m.learners {
		st.Learners = append(st.Learners, l.Snapshot())
	}
	return st
}

// RunUntil advances virtual time to t, bounded by the lifetime.
func (m *Monitor) RunUntil(t time.Duration) {
	if t > m.lifetime {
		t = m.lifetime
	}
	m.sim.Run(t)
}

// AwaitTermination drives the run to the end of its lifetime. Events past
// the deadline are discarded, never half-applied: every handler runs
// atomically or not at all.
func (m *Monitor) AwaitTermination() {
	m.sim.Run(m.lifetime)
}

// Now is the current virtual time.
func (m *Monitor) Now() time.Duration {
	return m.sim.Now()
}

// InjectDelays swaps the network delay profile mid-run.
func (m *Monitor) InjectDelays(p simnet.DelayProfile) {
	m.sim.SetDelays(p)
}

// Errors lists the recoverable errors reported so far.
func (m *Monitor) Errors() []error {
	return m.errs.List()
}

// Trace exposes the network's delivery record.
func (m *Monitor) Trace() *simnet.Trace {
	return m.sim.Trace()
}
