package protocol

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Martoon-00/sdn-policies/policy"
	"github.com/Martoon-00/sdn-policies/simnet"
)

type LeaderPhase uint

const (
	Idle LeaderPhase = iota
	Collecting1b
	Announcing2a
	Collecting2b
)

func (p LeaderPhase) String() string {
	switch p {
	case Idle:
		return "Idle"
	case Collecting1b:
		return "Collecting1b"
	case Announcing2a:
		return "Announcing2a"
	case Collecting2b:
		return "Collecting2b"
	}
	return "INVALID"
}

// BallotRound is the bookkeeping of one ballot: the policies fixed for it
// at phase 1a, and the votes gathered in each phase.
type BallotRound struct {
	Policies []policy.Policy
	Votes1b  policy.Votes
	Votes2b  policy.Votes
}

// LeaderState is the whole mutable state of the leader.
type LeaderState struct {
	Ballot  policy.BallotID
	Phase   LeaderPhase
	Pending []policy.Policy
	Rounds  map[policy.BallotID]*BallotRound
	// Fast variant only: the latest configuration each acceptor announced
	// on the fast path, and whether a recovery ballot is already scheduled.
	FastVotes       policy.Votes
	RecoveryPending bool
}

// Leader drives ballots. It initiates phase 1a on the topology's ballot
// schedule, gathers 1b votes until its quorum family is satisfied, and
// announces a phase-2a extension covering the ballot's pending policies.
// There are no leader-side retries: a ballot that never reaches quorum is
// abandoned and superseded by the next one, with its policies carried
// forward. Under the fast variant the leader additionally watches the
// acceptors' 2b stream for conflicts and schedules a recovery ballot.
type Leader struct {
	mu            sync.Mutex
	state         LeaderState
	variant       Variant
	members       Members
	net           *simnet.Sim
	errs          *ErrorLog
	recoveryDelay time.Duration
}

func NewLeader(variant Variant, members Members, net *simnet.Sim, errs *ErrorLog, recoveryDelay time.Duration) *Leader {
	qf := variant.Family(members.Acceptors)
	return &Leader{
		state: LeaderState{
			Ballot:    policy.NoBallot,
			Phase:     Idle,
			Rounds:    make(map[policy.BallotID]*BallotRound),
			FastVotes: policy.NewVotes(qf),
		},
		variant:       variant,
		members:       members,
		net:           net,
		errs:          errs,
		recoveryDelay: recoveryDelay,
	}
}

func (l *Leader) HandleMessage(m simnet.Message) {
	msg, ok := m.(Msg)
	if !ok {
		return
	}
	switch msg.Type {
	case ProposalMsg:
		l.RememberProposal(msg.Policy)
	case Phase1bMsg:
		l.onPhase1b(msg)
	case Phase2bMsg:
		l.onPhase2b(msg)
	default:
		log.Printf("leader: unexpected message type %v", msg.Type)
	}
}

// RememberProposal queues a policy for the next ballot. Duplicates are
// permitted; the cstruct dedups. A proposal arriving while a ballot is in
// flight waits for the next phase 1a, which is what fixes the queue.
func (l *Leader) RememberProposal(pol policy.Policy) {
	l.mu.Lock()
	l.state.Pending = append(l.state.Pending, pol)
	l.mu.Unlock()
}

// Phase1a opens the next ballot: it bumps the ballot id, fixes the set of
// policies the ballot will decide, and asks every acceptor to promise.
func (l *Leader) Phase1a() {
	l.mu.Lock()
	defer l.mu.Unlock()
	qf := l.variant.Family(l.members.Acceptors)
	b := l.state.Ballot + 1
	l.state.Ballot = b
	fixed := make([]policy.Policy, len(l.state.Pending))
	copy(fixed, l.state.Pending)
	l.state.Rounds[b] = &BallotRound{
		Policies: fixed,
		Votes1b:  policy.NewVotes(qf),
		Votes2b:  policy.NewVotes(qf),
	}
	l.state.Phase = Collecting1b
	log.Printf("leader: ballot %v, %v pending policies", b, len(fixed))
	for _, id := range l.members.AcceptorIDs() {
		l.net.Send(LeaderAddr(), AcceptorAddr(id), Msg{Type: Phase1aMsg, Ballot: b})
	}
}

func (l *Leader) onPhase1b(msg Msg) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if msg.Ballot != l.state.Ballot {
		return
	}
	round, ok := l.state.Rounds[msg.Ballot]
	if !ok {
		return
	}
	round.Votes1b.Add(msg.Acceptor, msg.Config)
	if l.state.Phase != Collecting1b || !round.Votes1b.IsQuorum() {
		return
	}
	l.state.Phase = Announcing2a
	ext, err := l.extension(round)
	if err != nil {
		l.errs.Report(fmt.Errorf("leader: ballot %v: %v", msg.Ballot, err))
		return
	}
	for _, id := range l.members.AcceptorIDs() {
		l.net.Send(LeaderAddr(), AcceptorAddr(id), Msg{Type: Phase2aMsg, Ballot: msg.Ballot, Config: ext.Copy()})
	}
	l.state.Phase = Collecting2b
	l.dropPending(round.Policies)
}

// extension builds the phase-2a payload: the combination of the 1b votes,
// a verdict for every command some acceptor reported but no quorum settled,
// and a verdict for each of the ballot's own policies. The result extends
// the lub of the received 1b cstructs, since fully-shared acceptances
// always have quorum support.
func (l *Leader) extension(round *BallotRound) (policy.Configuration, error) {
	ext, err := policy.Combination(round.Votes1b)
	if err != nil {
		return nil, err
	}
	for _, a := range round.Votes1b.Acceptances() {
		if !ext.Contains(a.Policy) {
			_, ext = policy.AcceptOrReject(a.Policy, ext)
		}
	}
	for _, pol := range round.Policies {
		if !ext.Contains(pol) {
			_, ext = policy.AcceptOrReject(pol, ext)
		}
	}
	return ext, nil
}

// dropPending removes one queued occurrence of each policy the ballot just
// announced; anything proposed since stays for the next ballot.
func (l *Leader) dropPending(announced []policy.Policy) {
	for _, pol := range announced {
		for i, p := range l.state.Pending {
			if p == pol {
				l.state.Pending = append(l.state.Pending[:i], l.state.Pending[i+1:]...)
				break
			}
		}
	}
}

func (l *Leader) onPhase2b(msg Msg) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if round, ok := l.state.Rounds[msg.Ballot]; ok {
		round.Votes2b.Add(msg.Acceptor, msg.Config)
	}
	if l.variant != Fast {
		return
	}
	l.state.FastVotes.Add(msg.Acceptor, msg.Config)
	if l.state.RecoveryPending {
		return
	}
	if l.fastConflict() {
		l.state.RecoveryPending = true
		log.Printf("leader: fast path conflict, recovery ballot in %v", l.recoveryDelay)
		l.net.Schedule(l.recoveryDelay, l.recover)
	}
}

// fastConflict reports whether the fast votes can no longer converge on
// their own: either combining them already contradicts, or some policy can
// reach a fast quorum neither as accepted nor as rejected. Callers hold
// the lock.
func (l *Leader) fastConflict() bool {
	votes := l.state.FastVotes
	if _, err := policy.Combination(votes); err != nil {
		return true
	}
	qf := votes.Family
	for _, a := range votes.Acceptances() {
		accepted := policy.NewConfiguration(policy.Accepted(a.Policy))
		rejected := policy.NewConfiguration(policy.Rejected(a.Policy))
		supA, supR := 0, 0
		for _, id := range votes.Acceptors() {
			if votes.M[id].Extends(accepted) {
				supA++
			}
			if votes.M[id].Extends(rejected) {
				supR++
			}
		}
		// An acceptor that voted one way never flips, so the other
		// verdict can only gain the acceptors it has not lost yet.
		if !qf.IsQuorumSize(l.members.Acceptors-supR) && !qf.IsQuorumSize(l.members.Acceptors-supA) {
			return true
		}
	}
	return false
}

// recover opens a classic ballot to reconcile the diverged fast path. The
// fast observation window restarts: post-recovery 2b traffic repopulates
// the votes.
func (l *Leader) recover() {
	l.mu.Lock()
	l.state.RecoveryPending = false
	l.state.FastVotes = policy.NewVotes(l.variant.Family(l.members.Acceptors))
	l.mu.Unlock()
	l.Phase1a()
}

// Snapshot returns an atomic deep copy of the leader state.
func (l *Leader) Snapshot() LeaderState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := LeaderState{
		Ballot:          l.state.Ballot,
		Phase:           l.state.Phase,
		Pending:         make([]policy.Policy, len(l.state.Pending)),
		Rounds:          make(map[policy.BallotID]*BallotRound, len(l.state.Rounds)),
		FastVotes:       l.state.FastVotes.Copy(),
		RecoveryPending: l.state.RecoveryPending,
	}
	copy(st.Pending, l.state.Pending)
	for b, r := range l.state.Rounds {
		pols := make([]policy.Policy, len(r.Policies))
		copy(pols, r.Policies)
		st.Rounds[b] = &BallotRound{
			Policies: pols,
			Votes1b:  r.Votes1b.Copy(),
			Votes2b:  r.Votes2b.Copy(),
		}
	}
	return st
}
