package protocol

import (
	"fmt"
	"log"
	"sync"

	"github.com/Martoon-00/sdn-policies/policy"
	"github.com/Martoon-00/sdn-policies/simnet"
)

// AcceptorState holds an acceptor's whole mutable state: the highest
// ballot it has heard and its configuration. The ballot only ever grows.
// Under the classic variant the configuration only grows under Extends;
// under the fast variant a recovery phase 2a may replace it with a payload
// that does not extend it.
type AcceptorState struct {
	ID     policy.AcceptorID
	Ballot policy.BallotID
	Config policy.Configuration
}

type Acceptor struct {
	mu      sync.Mutex
	state   AcceptorState
	variant Variant
	members Members
	net     *simnet.Sim
	errs    *ErrorLog
}

func NewAcceptor(id policy.AcceptorID, variant Variant, members Members, net *simnet.Sim, errs *ErrorLog) *Acceptor {
	return &Acceptor{
		state:   AcceptorState{ID: id, Ballot: policy.NoBallot, Config: policy.NewConfiguration()},
		variant: variant,
		members: members,
		net:     net,
		errs:    errs,
	}
}

func (a *Acceptor) HandleMessage(m simnet.Message) {
	msg, ok := m.(Msg)
	if !ok {
		return
	}
	switch msg.Type {
	case Phase1aMsg:
		a.onPhase1a(msg)
	case Phase2aMsg:
		a.onPhase2a(msg)
	case FastProposalMsg:
		a.onFastProposal(msg)
	default:
		log.Printf("acceptor %v: unexpected message type %v", a.state.ID, msg.Type)
	}
}

func (a *Acceptor) onPhase1a(msg Msg) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if msg.Ballot <= a.state.Ballot {
		return
	}
	a.state.Ballot = msg.Ballot
	a.net.Send(AcceptorAddr(a.state.ID), LeaderAddr(), Msg{
		Type:     Phase1bMsg,
		Acceptor: a.state.ID,
		Ballot:   msg.Ballot,
		Config:   a.state.Config.Copy(),
	})
}

func (a *Acceptor) onPhase2a(msg Msg) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if msg.Ballot < a.state.Ballot || (a.variant == Classic && msg.Ballot != a.state.Ballot) {
		return
	}
	if !msg.Config.Extends(a.state.Config) {
		if a.variant == Classic {
			a.errs.Report(fmt.Errorf("acceptor %v: phase2a at ballot %v does not extend local cstruct %v",
				a.state.ID, msg.Ballot, a.state.Config))
			return
		}
		// Fast recovery: the ballot is at least as recent as anything
		// promised here, and its payload reconciles diverged fast
		// accepts. Adopt it wholesale.
		log.Printf("acceptor %v: adopting recovery cstruct at ballot %v", a.state.ID, msg.Ballot)
	}
	a.state.Ballot = msg.Ballot
	a.state.Config = msg.Config.Copy()
	a.broadcast2b()
}

func (a *Acceptor) onFastProposal(msg Msg) {
	if a.variant != Fast {
		log.Printf("acceptor %v: fast proposal under classic variant, dropping", a.state.ID)
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, cfg := policy.AcceptOrReject(msg.Policy, a.state.Config)
	a.state.Config = cfg
	a.broadcast2b()
}

// broadcast2b announces the current configuration to every learner, and to
// the leader too under the fast variant so it can watch for conflicts.
// Callers hold the lock.
func (a *Acceptor) broadcast2b() {
	out := Msg{
		Type:     Phase2bMsg,
		Acceptor: a.state.ID,
		Ballot:   a.state.Ballot,
		Config:   a.state.Config.Copy(),
	}
	for i := 0; i < a.members.Learners; i++ {
		a.net.Send(AcceptorAddr(a.state.ID), LearnerAddr(i), out)
	}
	if a.variant == Fast {
		a.net.Send(AcceptorAddr(a.state.ID), LeaderAddr(), out)
	}
}

// Snapshot returns an atomic copy of the acceptor state.
func (a *Acceptor) Snapshot() AcceptorState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return AcceptorState{ID: a.state.ID, Ballot: a.state.Ballot, Config: a.state.Config.Copy()}
}
