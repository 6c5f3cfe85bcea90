package topology

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/Martoon-00/sdn-policies/protocol"
	"github.com/Martoon-00/sdn-policies/simnet"
)

func init() {
	log.SetOutput(io.Discard)
}

// runChecked launches the config, probes the run every half second feeding
// a Checker, and returns the final snapshot.
func runChecked(t *testing.T, raw string) (AllStates, *Monitor) {
	t.Helper()
	cfg, err := Parse([]byte(raw))
	if err != nil {
		t.Fatal("parse failed: ", err)
	}
	mon, err := Launch(cfg)
	if err != nil {
		t.Fatal("launch failed: ", err)
	}
	variant, _ := cfg.Variant()
	ck := NewChecker(variant)
	lifetime := time.Duration(cfg.Lifetime * float64(time.Second))
	for at := 500 * time.Millisecond; at < lifetime; at += 500 * time.Millisecond {
		mon.RunUntil(at)
		ck.Observe(mon.Snapshot())
	}
	mon.AwaitTermination()
	st := mon.Snapshot()
	ck.Observe(st)
	for _, v := range ck.Violations() {
		t.Error("invariant violated: ", v)
	}
	return st, mon
}

func countVerdicts(st AllStates) (accepted, rejected int) {
	for a := range st.Learners[0].Learned {
		if a.Accepted {
			accepted++
		} else {
			rejected++
		}
	}
	return
}

func TestScenarioSimple(t *testing.T) {
	st, mon := runChecked(t, `
type: classic
members: {acceptors: 3, learners: 1}
lifetime: 5
seed: 42
ballots: {period: 1, schedule: {once: true}}
proposals: {delay: 0.1, schedule: {once: good}}
`)
	if len(st.Proposer.Proposed) != 1 {
		t.Fatal("expected one proposal, got ", st.Proposer.Proposed)
	}
	accepted, rejected := countVerdicts(st)
	if accepted != 1 || rejected != 0 {
		t.Error("learned ", st.Learners[0].Learned)
	}
	if !EveryProposalDecided(st) {
		t.Error("the proposal should be decided")
	}
	if errs := mon.Errors(); len(errs) > 0 {
		t.Error("unexpected errors: ", errs)
	}
}

func TestScenarioOneAcceptorDown(t *testing.T) {
	st, mon := runChecked(t, `
type: classic
members: {acceptors: 3, learners: 1}
lifetime: 5
seed: 42
ballots: {period: 1, schedule: {once: true}}
proposals: {delay: 0.1, schedule: {once: good}}
delays: {blackout: [1]}
`)
	accepted, _ := countVerdicts(st)
	if accepted != 1 {
		t.Error("two of three acceptors still form a quorum, learned ", st.Learners[0].Learned)
	}
	if errs := mon.Errors(); len(errs) > 0 {
		t.Error("unexpected errors: ", errs)
	}
}

func TestScenarioQuorumLost(t *testing.T) {
	st, mon := runChecked(t, `
type: classic
members: {acceptors: 3, learners: 1}
lifetime: 5
seed: 42
ballots: {period: 1, schedule: {once: true}}
proposals: {delay: 0.1, schedule: {once: good}}
delays: {blackout: [1, 2]}
`)
	if st.Learners[0].Learned.Len() != 0 {
		t.Error("one acceptor is no quorum, yet learned ", st.Learners[0].Learned)
	}
	if EveryProposalDecided(st) {
		t.Error("nothing should have been decided")
	}
	if errs := mon.Errors(); len(errs) > 0 {
		t.Error("a lost quorum is not an error: ", errs)
	}
}

func TestScenarioAllConflicting(t *testing.T) {
	st, mon := runChecked(t, `
type: classic
members: {acceptors: 3, learners: 1}
lifetime: 10
seed: 42
ballots: {delay: 0.5, period: 1, schedule: {once: true}}
proposals: {repeat: 5, period: 1, schedule: {once: bad}}
`)
	if len(st.Proposer.Proposed) != 5 {
		t.Fatal("expected five proposals, got ", len(st.Proposer.Proposed))
	}
	accepted, _ := countVerdicts(st)
	if accepted != 1 {
		t.Error("conflicting policies should leave exactly one accepted, learned ", st.Learners[0].Learned)
	}
	if !EveryProposalDecided(st) {
		t.Error("every proposal should have a verdict")
	}
	if !LearnersAgree(st) {
		t.Error("learners should agree")
	}
	if errs := mon.Errors(); len(errs) > 0 {
		t.Error("unexpected errors: ", errs)
	}
}

func TestScenarioTemporaryQuorumLoss(t *testing.T) {
	cfg, err := Parse([]byte(`
type: classic
members: {acceptors: 3, learners: 1}
lifetime: 30
seed: 7
ballots: {delay: 1, period: 10, schedule: {once: true}}
proposals: {delay: 0.5, schedule: {once: good}}
reproposals: {delay: 5, period: 7, schedule: {once: true}}
delays:
  - {blackout: [1, 2], to: 15}
`))
	if err != nil {
		t.Fatal("parse failed: ", err)
	}
	mon, err := Launch(cfg)
	if err != nil {
		t.Fatal("launch failed: ", err)
	}
	mon.RunUntil(14 * time.Second)
	mid := mon.Snapshot()
	if mid.Learners[0].Learned.Len() != 0 {
		t.Error("nothing should be learned during the blackout, learned ", mid.Learners[0].Learned)
	}
	mon.AwaitTermination()
	st := mon.Snapshot()
	if !EveryProposalDecided(st) {
		t.Error("the proposal should be decided once the quorum is back: ", st.Learners[0].Learned)
	}
	accepted, _ := countVerdicts(st)
	if accepted != 1 {
		t.Error("learned ", st.Learners[0].Learned)
	}
	if errs := mon.Errors(); len(errs) > 0 {
		t.Error("unexpected errors: ", errs)
	}
}

func TestScenarioFastConflict(t *testing.T) {
	st, mon := runChecked(t, `
type: fast
members: {acceptors: 3, learners: 1}
lifetime: 10
seed: 5
recoveryDelay: 0.5
proposals: {times: 2, schedule: {once: bad}}
reproposals: {delay: 2, period: 2, schedule: {once: true}}
delays: {uniform: {lo: 0.01, hi: 0.3}}
`)
	if len(st.Proposer.Proposed) != 2 {
		t.Fatal("expected two proposals, got ", st.Proposer.Proposed)
	}
	accepted, rejected := countVerdicts(st)
	if accepted != 1 || rejected != 1 {
		t.Error("exactly one conflicting policy should win, learned ", st.Learners[0].Learned)
	}
	if !LearnersAgree(st) {
		t.Error("learners should agree")
	}
	if st.Leader.Ballot >= 0 {
		t.Log("fast path diverged, recovery ballot ", st.Leader.Ballot)
	}
	if errs := mon.Errors(); len(errs) > 0 {
		t.Error("unexpected errors: ", errs)
	}
}

func TestSeededReplayIsPure(t *testing.T) {
	raw := `
type: classic
members: {acceptors: 3, learners: 2}
lifetime: 10
seed: 99
ballots: {delay: 0.5, period: 1, schedule: {once: true}}
proposals:
  repeat: 4
  period: 2
  schedule:
    once:
      - {weight: 1, policy: good}
      - {weight: 1, policy: bad}
delays: {uniform: {lo: 0.005, hi: 0.1}}
`
	run := func() AllStates {
		cfg, err := Parse([]byte(raw))
		if err != nil {
			t.Fatal("parse failed: ", err)
		}
		mon, err := Launch(cfg)
		if err != nil {
			t.Fatal("launch failed: ", err)
		}
		mon.AwaitTermination()
		return mon.Snapshot()
	}
	a, b := run(), run()
	if len(a.Proposer.Proposed) != len(b.Proposer.Proposed) {
		t.Fatal("replay proposed a different number of policies")
	}
	for i := range a.Proposer.Proposed {
		if a.Proposer.Proposed[i] != b.Proposer.Proposed[i] {
			t.Error("replay diverged at proposal ", i)
		}
	}
	for i := range a.Learners {
		if !a.Learners[i].Learned.Equal(b.Learners[i].Learned) {
			t.Error("replay diverged at learner ", i)
		}
	}
	if a.Leader.Ballot != b.Leader.Ballot {
		t.Error("replay diverged at the leader ballot")
	}
}

func TestInjectDelays(t *testing.T) {
	cfg, err := Parse([]byte(`
type: classic
members: {acceptors: 3, learners: 1}
lifetime: 5
seed: 42
ballots: {period: 1, schedule: {once: true}}
proposals: {delay: 0.1, schedule: {once: good}}
`))
	if err != nil {
		t.Fatal("parse failed: ", err)
	}
	mon, err := Launch(cfg)
	if err != nil {
		t.Fatal("launch failed: ", err)
	}
	var addrs []simnet.Address
	for _, id := range cfg.Members.AcceptorIDs() {
		addrs = append(addrs, protocol.AcceptorAddr(id))
	}
	mon.InjectDelays(simnet.Blackout{Addrs: addrs, Under: simnet.Constant(DefaultDelay)})
	mon.AwaitTermination()
	st := mon.Snapshot()
	if st.Learners[0].Learned.Len() != 0 {
		t.Error("with every acceptor dark nothing can be learned, got ", st.Learners[0].Learned)
	}
}
