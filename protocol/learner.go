package protocol

import (
	"fmt"
	"log"
	"sync"

	"github.com/Martoon-00/sdn-policies/policy"
	"github.com/Martoon-00/sdn-policies/simnet"
)

// LearnerState is the whole mutable state of a learner: the latest
// configuration each acceptor reported, and what the learner has committed
// to so far. Learned only ever grows under Extends.
type LearnerState struct {
	ID      int
	Votes   policy.Votes
	Learned policy.Configuration
}

// Learner reconciles the acceptors' 2b stream. Whenever the votes form a
// quorum of its family it recombines them; a combination that extends the
// current learned configuration replaces it, and the newly learned
// commands are handed to the callback exactly once each.
type Learner struct {
	mu      sync.Mutex
	state   LearnerState
	errs    *ErrorLog
	onLearn func([]policy.Acceptance)
}

func NewLearner(id int, variant Variant, members Members, errs *ErrorLog) *Learner {
	return &Learner{
		state: LearnerState{
			ID:      id,
			Votes:   policy.NewVotes(variant.Family(members.Acceptors)),
			Learned: policy.NewConfiguration(),
		},
		errs: errs,
	}
}

// RegisterLearnCallback installs the function invoked with each batch of
// newly learned commands. Must be called before the run starts.
func (l *Learner) RegisterLearnCallback(fn func([]policy.Acceptance)) {
	l.onLearn = fn
}

func (l *Learner) HandleMessage(m simnet.Message) {
	msg, ok := m.(Msg)
	if !ok || msg.Type != Phase2bMsg {
		return
	}
	l.mu.Lock()
	l.state.Votes.Add(msg.Acceptor, msg.Config)
	if !l.state.Votes.IsQuorum() {
		l.mu.Unlock()
		return
	}
	learned, err := policy.Combination(l.state.Votes)
	if err != nil {
		l.mu.Unlock()
		l.errs.Report(fmt.Errorf("learner %v: %v", l.state.ID, err))
		return
	}
	if !learned.Extends(l.state.Learned) {
		l.mu.Unlock()
		return
	}
	delta := learned.Diff(l.state.Learned)
	l.state.Learned = learned
	fn := l.onLearn
	l.mu.Unlock()
	if len(delta) > 0 {
		log.Printf("learner %v: learned %v", l.state.ID, delta)
		if fn != nil {
			fn(delta)
		}
	}
}

// Snapshot returns an atomic copy of the learner state.
func (l *Learner) Snapshot() LearnerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LearnerState{
		ID:      l.state.ID,
		Votes:   l.state.Votes.Copy(),
		Learned: l.state.Learned.Copy(),
	}
}
