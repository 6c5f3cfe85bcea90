package protocol

import (
	"fmt"

	"github.com/Martoon-00/sdn-policies/policy"
)

// Variant selects between the two protocol flavours. All variant-specific
// behavior dispatches on this tag; there is no role-class hierarchy.
type Variant uint

const (
	Classic Variant = iota
	Fast
)

func (v Variant) String() string {
	switch v {
	case Classic:
		return "classic"
	case Fast:
		return "fast"
	}
	return "INVALID"
}

// Family is the quorum family the variant gathers votes against.
func (v Variant) Family(acceptors int) policy.QuorumFamily {
	if v == Fast {
		return policy.FastMajority(acceptors)
	}
	return policy.ClassicMajority(acceptors)
}

// Members is the size of each role class. It is the only fact shared
// between roles, and it never changes during a run.
type Members struct {
	Acceptors int `json:"acceptors" yaml:"acceptors"`
	Learners  int `json:"learners" yaml:"learners"`
}

func (m Members) Validate() error {
	if m.Acceptors < 1 {
		return fmt.Errorf("protocol: need at least one acceptor, got %v", m.Acceptors)
	}
	if m.Learners < 1 {
		return fmt.Errorf("protocol: need at least one learner, got %v", m.Learners)
	}
	return nil
}

// AcceptorIDs lists the acceptor identities of the run, 1 through N.
func (m Members) AcceptorIDs() []policy.AcceptorID {
	ids := make([]policy.AcceptorID, m.Acceptors)
	for i := range ids {
		ids[i] = policy.AcceptorID(i + 1)
	}
	return ids
}
