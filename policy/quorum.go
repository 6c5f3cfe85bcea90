package policy

import (
	"errors"
	"fmt"
)

var ErrImpossibleQuorum error = errors.New("policy: quorum family admits no quorum")

// QuorumFamily classifies sets of acceptor votes by size. A set of n votes
// out of Members acceptors is a quorum when n exceeds Members multiplied by
// the threshold fraction. The fraction is kept as an exact rational so the
// classification never suffers float rounding.
type QuorumFamily struct {
	Members int `json:"members"`
	Num     int `json:"num"`
	Den     int `json:"den"`
}

// ClassicMajority is the 1/2 family used by classic ballots.
func ClassicMajority(members int) QuorumFamily {
	return QuorumFamily{Members: members, Num: 1, Den: 2}
}

// FastMajority is the 3/4 family used by the fast path.
func FastMajority(members int) QuorumFamily {
	return QuorumFamily{Members: members, Num: 3, Den: 4}
}

func (qf QuorumFamily) Validate() error {
	if qf.Members < 1 {
		return fmt.Errorf("policy: quorum family needs at least one member, got %v", qf.Members)
	}
	if qf.Den < 1 || qf.Num < 0 || qf.Num >= qf.Den {
		return fmt.Errorf("policy: bad quorum fraction %v/%v", qf.Num, qf.Den)
	}
	if !qf.IsQuorumSize(qf.Members) {
		return ErrImpossibleQuorum
	}
	return nil
}

// IsQuorumSize reports whether n votes form a quorum: n > Members * Num/Den.
func (qf QuorumFamily) IsQuorumSize(n int) bool {
	return n*qf.Den > qf.Members*qf.Num
}

// IsMinQuorumSize reports whether n votes form a quorum that stops being
// one once any single vote is dropped.
func (qf QuorumFamily) IsMinQuorumSize(n int) bool {
	return qf.IsQuorumSize(n) && !qf.IsQuorumSize(n-1)
}

// MinQuorumSize is the size of every minimum quorum of the family.
func (qf QuorumFamily) MinQuorumSize() int {
	return qf.Members*qf.Num/qf.Den + 1
}

// IsSubIntersectionWithQuorumSize reports whether v votes are enough to
// guarantee a non-empty claim on the intersection with any quorum of size q.
// Derived from |q ∩ r| >= |q| + |r| - Members: it holds when
// v > q + Members*(Num/Den - 1), computed in rational arithmetic.
func (qf QuorumFamily) IsSubIntersectionWithQuorumSize(q, v int) bool {
	return v*qf.Den > q*qf.Den+qf.Members*(qf.Num-qf.Den)
}

func (qf QuorumFamily) String() string {
	return fmt.Sprintf("MajorityQuorum(%v/%v of %v)", qf.Num, qf.Den, qf.Members)
}
