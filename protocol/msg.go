package protocol

import (
	"github.com/Martoon-00/sdn-policies/policy"
	"github.com/Martoon-00/sdn-policies/simnet"
)

type MsgType uint

const (
	Empty MsgType = iota
	ProposalMsg
	Phase1aMsg
	Phase1bMsg
	Phase2aMsg
	Phase2bMsg
	FastProposalMsg
)

func (m MsgType) String() string {
	switch m {
	case Empty:
		return "Empty"
	case ProposalMsg:
		return "Proposal"
	case Phase1aMsg:
		return "Phase1a"
	case Phase1bMsg:
		return "Phase1b"
	case Phase2aMsg:
		return "Phase2a"
	case Phase2bMsg:
		return "Phase2b"
	case FastProposalMsg:
		return "FastProposal"
	}
	return "INVALID"
}

// Msg is the single wire record exchanged between roles. Which fields are
// meaningful depends on Type:
//
//	Proposal:     Policy
//	Phase1a:      Ballot
//	Phase1b:      Acceptor, Ballot, Config
//	Phase2a:      Ballot, Config
//	Phase2b:      Acceptor, Ballot, Config
//	FastProposal: Policy, Ballot
type Msg struct {
	Type     MsgType              `json:"type"`
	Acceptor policy.AcceptorID    `json:"acceptor"`
	Ballot   policy.BallotID      `json:"ballot"`
	Policy   policy.Policy        `json:"policy"`
	Config   policy.Configuration `json:"config"`
}

// Role addresses. Proposer and leader are singletons for a run.

func ProposerAddr() simnet.Address {
	return simnet.Address{Role: "proposer", ID: 0}
}

func LeaderAddr() simnet.Address {
	return simnet.Address{Role: "leader", ID: 0}
}

func AcceptorAddr(id policy.AcceptorID) simnet.Address {
	return simnet.Address{Role: "acceptor", ID: int(id)}
}

func LearnerAddr(id int) simnet.Address {
	return simnet.Address{Role: "learner", ID: id}
}
