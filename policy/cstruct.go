package policy

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

var ErrConflict error = errors.New("policy: command conflicts with configuration")
var ErrContradictive error = errors.New("policy: contradictive configuration")

// Configuration is the cstruct instance used throughout: a conflict-free
// set of acceptances. The zero value is not usable; call NewConfiguration.
type Configuration map[Acceptance]bool

func NewConfiguration(as ...Acceptance) Configuration {
	c := make(Configuration, len(as))
	for _, a := range as {
		c[a] = true
	}
	return c
}

func (c Configuration) Copy() Configuration {
	d := make(Configuration, len(c))
	for a := range c {
		d[a] = true
	}
	return d
}

func (c Configuration) Len() int {
	return len(c)
}

// List returns the acceptances in a stable order.
func (c Configuration) List() []Acceptance {
	as := make([]Acceptance, 0, len(c))
	for a := range c {
		as = append(as, a)
	}
	sort.Slice(as, func(i, j int) bool { return as[i].less(as[j]) })
	return as
}

func (c Configuration) Equal(d Configuration) bool {
	if len(c) != len(d) {
		return false
	}
	for a := range c {
		if !d[a] {
			return false
		}
	}
	return true
}

// AgreesWith reports whether the acceptance agrees with every member of
// the configuration.
func (c Configuration) AgreesWith(a Acceptance) bool {
	for b := range c {
		if !a.Agrees(b) {
			return false
		}
	}
	return true
}

// Contradictive reports whether some internal pair conflicts. A well-formed
// configuration never is; the check guards values reassembled from votes.
func (c Configuration) Contradictive() bool {
	as := c.List()
	for i := 0; i < len(as); i++ {
		for j := i + 1; j < len(as); j++ {
			if !as[i].Agrees(as[j]) {
				return true
			}
		}
	}
	return false
}

// AddCommand extends the configuration with a command that agrees with all
// of it, or fails with ErrConflict. The receiver is not modified.
func AddCommand(a Acceptance, c Configuration) (Configuration, error) {
	if !c.AgreesWith(a) {
		return nil, ErrConflict
	}
	d := c.Copy()
	d[a] = true
	return d, nil
}

// AcceptOrReject records the policy as accepted when it agrees with the
// whole configuration and as rejected otherwise. It never fails.
func AcceptOrReject(p Policy, c Configuration) (Acceptance, Configuration) {
	a := Accepted(p)
	if d, err := AddCommand(a, c); err == nil {
		return a, d
	}
	a = Rejected(p)
	d := c.Copy()
	d[a] = true
	return a, d
}

// Extends reports whether c is an extension of base, that is whether every
// acceptance of base is present in c. It is the partial order on cstructs.
func (c Configuration) Extends(base Configuration) bool {
	for a := range base {
		if !c[a] {
			return false
		}
	}
	return true
}

// GLB is the union of two configurations, defined only when the result is
// conflict-free.
func GLB(a, b Configuration) (Configuration, error) {
	d := a.Copy()
	for x := range b {
		d[x] = true
	}
	if d.Contradictive() {
		return nil, ErrContradictive
	}
	return d, nil
}

// LUB is the intersection of two configurations. It is always defined.
func LUB(a, b Configuration) Configuration {
	d := NewConfiguration()
	for x := range a {
		if b[x] {
			d[x] = true
		}
	}
	return d
}

// Contains reports whether the configuration carries any verdict on the
// policy, accepted or rejected.
func (c Configuration) Contains(p Policy) bool {
	return c.Extends(NewConfiguration(Accepted(p))) ||
		c.Extends(NewConfiguration(Rejected(p)))
}

// Diff returns the acceptances of c that base lacks, in stable order.
func (c Configuration) Diff(base Configuration) []Acceptance {
	var as []Acceptance
	for _, a := range c.List() {
		if !base[a] {
			as = append(as, a)
		}
	}
	return as
}

func (c Configuration) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, a := range c.List() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteString("}")
	return b.String()
}

func (c Configuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.List())
}

func (c *Configuration) UnmarshalJSON(by []byte) error {
	var as []Acceptance
	if err := json.Unmarshal(by, &as); err != nil {
		return err
	}
	*c = NewConfiguration(as...)
	return nil
}
