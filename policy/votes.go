package policy

import (
	"fmt"
	"sort"
	"strings"
)

// Votes maps acceptors to the configuration each one reported, tagged by
// the quorum family the mapping is judged against. The tag travels with the
// value so quorum checks always use the family the votes were gathered for.
type Votes struct {
	Family QuorumFamily                 `json:"family"`
	M      map[AcceptorID]Configuration `json:"votes"`
}

func NewVotes(qf QuorumFamily) Votes {
	return Votes{Family: qf, M: make(map[AcceptorID]Configuration)}
}

func (v Votes) Copy() Votes {
	w := NewVotes(v.Family)
	for id, c := range v.M {
		w.M[id] = c.Copy()
	}
	return w
}

// Add records the vote of one acceptor, replacing any earlier vote of the
// same acceptor.
func (v Votes) Add(id AcceptorID, c Configuration) {
	v.M[id] = c
}

func (v Votes) Len() int {
	return len(v.M)
}

// Acceptors lists the voting acceptors in increasing order.
func (v Votes) Acceptors() []AcceptorID {
	ids := make([]AcceptorID, 0, len(v.M))
	for id := range v.M {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Restrict keeps only the votes of the given acceptors.
func (v Votes) Restrict(ids []AcceptorID) Votes {
	w := NewVotes(v.Family)
	for _, id := range ids {
		if c, ok := v.M[id]; ok {
			w.M[id] = c
		}
	}
	return w
}

func (v Votes) IsQuorum() bool {
	return v.Family.IsQuorumSize(len(v.M))
}

func (v Votes) IsMinQuorum() bool {
	return v.Family.IsMinQuorumSize(len(v.M))
}

// IsSubIntersectionWithQuorum reports whether v is large enough to be the
// intersection of the quorum q with another quorum of the family.
func (v Votes) IsSubIntersectionWithQuorum(q Votes) bool {
	return v.Family.IsSubIntersectionWithQuorumSize(q.Len(), v.Len())
}

// SubVotes enumerates every subset of the votes, the empty one included.
// Exponential in the number of acceptors; vote sets are bounded by the full
// acceptor membership, which stays small.
func (v Votes) SubVotes() []Votes {
	ids := v.Acceptors()
	subs := make([]Votes, 0, 1<<len(ids))
	for mask := 0; mask < 1<<len(ids); mask++ {
		w := NewVotes(v.Family)
		for i, id := range ids {
			if mask&(1<<i) != 0 {
				w.M[id] = v.M[id]
			}
		}
		subs = append(subs, w)
	}
	return subs
}

// AllMinQuorums enumerates the subsets of the votes that are minimum
// quorums of the family.
func (v Votes) AllMinQuorums() []Votes {
	var qs []Votes
	for _, w := range v.SubVotes() {
		if w.IsMinQuorum() {
			qs = append(qs, w)
		}
	}
	return qs
}

// AllQuorums enumerates the subsets of the votes that are quorums.
func (v Votes) AllQuorums() []Votes {
	var qs []Votes
	for _, w := range v.SubVotes() {
		if w.IsQuorum() {
			qs = append(qs, w)
		}
	}
	return qs
}

// Acceptances is the union of all voted acceptances, in stable order.
func (v Votes) Acceptances() []Acceptance {
	seen := NewConfiguration()
	for _, c := range v.M {
		for a := range c {
			seen[a] = true
		}
	}
	return seen.List()
}

// Combination reconciles acceptor configurations into the single cstruct
// containing exactly the acceptances some minimum quorum of acceptors
// voted for. It fails with ErrContradictive when quorums vouch for
// conflicting acceptances.
func Combination(v Votes) (Configuration, error) {
	combined := NewConfiguration()
	for _, a := range v.Acceptances() {
		supporters := 0
		single := NewConfiguration(a)
		for _, c := range v.M {
			if c.Extends(single) {
				supporters++
			}
		}
		if v.Family.IsQuorumSize(supporters) {
			combined[a] = true
		}
	}
	if combined.Contradictive() {
		return nil, ErrContradictive
	}
	return combined, nil
}

// CombinationSlow is the quorum-enumerating formulation of Combination:
// the lub over each minimum quorum, glb'd across all of them. Kept for
// cross-checking the direct scan; both must agree on well-formed input.
func CombinationSlow(v Votes) (Configuration, error) {
	combined := NewConfiguration()
	for _, q := range v.AllMinQuorums() {
		var common Configuration
		for _, id := range q.Acceptors() {
			if common == nil {
				common = q.M[id].Copy()
			} else {
				common = LUB(common, q.M[id])
			}
		}
		var err error
		combined, err = GLB(combined, common)
		if err != nil {
			return nil, err
		}
	}
	return combined, nil
}

func (v Votes) String() string {
	var b strings.Builder
	b.WriteString("Votes{")
	for i, id := range v.Acceptors() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%v: %v", id, v.M[id])
	}
	b.WriteString("}")
	return b.String()
}
