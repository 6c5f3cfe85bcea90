package protocol

import (
	"log"
	"sync"

	"github.com/Martoon-00/sdn-policies/policy"
	"github.com/Martoon-00/sdn-policies/simnet"
)

// ProposerState is the whole mutable state of a proposer: every policy it
// ever proposed, in submission order.
type ProposerState struct {
	Proposed []policy.Policy
}

// Proposer submits policies for replication. Classic routes them through
// the leader; fast hands them straight to the acceptors. The proposer owns
// retransmission: on its insistence schedule it re-sends everything it has
// proposed, and the cstruct algebra dedups on the far side.
type Proposer struct {
	mu      sync.Mutex
	state   ProposerState
	variant Variant
	members Members
	net     *simnet.Sim
}

func NewProposer(variant Variant, members Members, net *simnet.Sim) *Proposer {
	return &Proposer{variant: variant, members: members, net: net}
}

// Propose submits one policy.
func (p *Proposer) Propose(pol policy.Policy) {
	p.mu.Lock()
	p.state.Proposed = append(p.state.Proposed, pol)
	p.mu.Unlock()
	log.Printf("proposer: proposing %v", pol)
	p.send(pol)
}

// Insist re-sends every proposed policy. Duplicates are harmless: a
// configuration already holding a verdict on the policy absorbs them.
func (p *Proposer) Insist() {
	p.mu.Lock()
	pending := make([]policy.Policy, len(p.state.Proposed))
	copy(pending, p.state.Proposed)
	p.mu.Unlock()
	for _, pol := range pending {
		p.send(pol)
	}
}

func (p *Proposer) send(pol policy.Policy) {
	if p.variant == Fast {
		for _, id := range p.members.AcceptorIDs() {
			p.net.Send(ProposerAddr(), AcceptorAddr(id),
				Msg{Type: FastProposalMsg, Policy: pol, Ballot: policy.NoBallot})
		}
		return
	}
	p.net.Send(ProposerAddr(), LeaderAddr(), Msg{Type: ProposalMsg, Policy: pol})
}

// Snapshot returns an atomic copy of the proposer state.
func (p *Proposer) Snapshot() ProposerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := ProposerState{Proposed: make([]policy.Policy, len(p.state.Proposed))}
	copy(st.Proposed, p.state.Proposed)
	return st
}
