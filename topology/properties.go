package topology

import (
	"fmt"

	"github.com/Martoon-00/sdn-policies/policy"
	"github.com/Martoon-00/sdn-policies/protocol"
)

// Checker evaluates the run invariants over a stream of snapshots: feed it
// one Observe per probe and read Violations at the end. It checks
//
//   - learned configurations only grow, per learner
//   - learned configurations are never contradictive
//   - every accepted policy was proposed first
//   - ballots never decrease, per acceptor and at the leader
//   - acceptor cstructs only grow (classic runs; fast recovery may
//     legitimately rewrite a diverged acceptor)
type Checker struct {
	variant    protocol.Variant
	prev       *AllStates
	violations []string
}

func NewChecker(variant protocol.Variant) *Checker {
	return &Checker{variant: variant}
}

func (c *Checker) failf(format string, args ...interface{}) {
	c.violations = append(c.violations, fmt.Sprintf(format, args...))
}

func (c *Checker) Observe(st AllStates) {
	proposed := make(map[policy.Policy]bool, len(st.Proposer.Proposed))
	for _, p := range st.Proposer.Proposed {
		proposed[p] = true
	}
	for _, l := range st.Learners {
		if l.Learned.Contradictive() {
			c.failf("learner %v: learned is contradictive: %v", l.ID, l.Learned)
		}
		for a := range l.Learned {
			if a.Accepted && !proposed[a.Policy] {
				c.failf("learner %v: learned unproposed policy %v", l.ID, a.Policy)
			}
		}
	}
	for _, a := range st.Acceptors {
		if a.Config.Contradictive() {
			c.failf("acceptor %v: cstruct is contradictive: %v", a.ID, a.Config)
		}
	}
	if c.prev != nil {
		c.observeStep(*c.prev, st)
	}
	c.prev = &st
}

func (c *Checker) observeStep(prev, cur AllStates) {
	for i, l := range cur.Learners {
		if !l.Learned.Extends(prev.Learners[i].Learned) {
			c.failf("learner %v: learned shrank from %v to %v", l.ID, prev.Learners[i].Learned, l.Learned)
		}
	}
	if cur.Leader.Ballot < prev.Leader.Ballot {
		c.failf("leader: ballot fell from %v to %v", prev.Leader.Ballot, cur.Leader.Ballot)
	}
	for i, a := range cur.Acceptors {
		if a.Ballot < prev.Acceptors[i].Ballot {
			c.failf("acceptor %v: ballot fell from %v to %v", a.ID, prev.Acceptors[i].Ballot, a.Ballot)
		}
		if c.variant == protocol.Classic && !a.Config.Extends(prev.Acceptors[i].Config) {
			c.failf("acceptor %v: cstruct shrank from %v to %v", a.ID, prev.Acceptors[i].Config, a.Config)
		}
	}
}

func (c *Checker) Violations() []string {
	return c.violations
}

// LearnersAgree reports whether all learners hold the same learned
// configuration.
func LearnersAgree(st AllStates) bool {
	for i := 1; i < len(st.Learners); i++ {
		if !st.Learners[i].Learned.Equal(st.Learners[0].Learned) {
			return false
		}
	}
	return true
}

// EveryProposalDecided reports whether each proposed policy has a verdict,
// accepted or rejected, at every learner.
func EveryProposalDecided(st AllStates) bool {
	for _, l := range st.Learners {
		for _, p := range st.Proposer.Proposed {
			if !l.Learned.Contains(p) {
				return false
			}
		}
	}
	return true
}

// AcceptedPolicies lists the distinct policies a configuration accepts.
func AcceptedPolicies(cfg policy.Configuration) []policy.Policy {
	var ps []policy.Policy
	for _, a := range cfg.List() {
		if a.Accepted {
			ps = append(ps, a.Policy)
		}
	}
	return ps
}
