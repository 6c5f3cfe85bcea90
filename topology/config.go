package topology

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Martoon-00/sdn-policies/policy"
	"github.com/Martoon-00/sdn-policies/protocol"
	"github.com/Martoon-00/sdn-policies/sched"
	"github.com/Martoon-00/sdn-policies/simnet"
)

var ErrNoLifetime error = errors.New("topology: lifetime must be positive")

// Config is the topology file. Durations are in seconds.
type Config struct {
	Type          string           `yaml:"type"`
	Members       protocol.Members `yaml:"members"`
	Ballots       *ScheduleSpec    `yaml:"ballots"`
	Proposals     *ScheduleSpec    `yaml:"proposals"`
	Reproposals   *ScheduleSpec    `yaml:"reproposals"`
	Delays        *DelaySpec       `yaml:"delays"`
	Lifetime      float64          `yaml:"lifetime"`
	RecoveryDelay float64          `yaml:"recoveryDelay"`
	Seed          int64            `yaml:"seed"`
}

// Parse reads and validates a topology file.
func Parse(by []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(by, &c); err != nil {
		return Config{}, fmt.Errorf("topology: bad config: %v", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Variant() (protocol.Variant, error) {
	switch c.Type {
	case "classic":
		return protocol.Classic, nil
	case "fast":
		return protocol.Fast, nil
	}
	return 0, fmt.Errorf("topology: unknown protocol type %q", c.Type)
}

func (c Config) Validate() error {
	v, err := c.Variant()
	if err != nil {
		return err
	}
	if err := c.Members.Validate(); err != nil {
		return err
	}
	if err := v.Family(c.Members.Acceptors).Validate(); err != nil {
		return err
	}
	if c.Lifetime <= 0 {
		return ErrNoLifetime
	}
	if c.RecoveryDelay < 0 {
		return fmt.Errorf("topology: negative recoveryDelay %v", c.RecoveryDelay)
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// ScheduleSpec is the recursive schedule grammar of the config file. A
// mapping combines the keys delay, period, repeat, times around an inner
// schedule (or a leaf under once); a list runs its entries in parallel.
type ScheduleSpec struct {
	Once     *PolicySpec   `yaml:"once"`
	Period   *float64      `yaml:"period"`
	Delay    *float64      `yaml:"delay"`
	Times    *int          `yaml:"times"`
	Repeat   *int          `yaml:"repeat"`
	Schedule *ScheduleSpec `yaml:"schedule"`
	Par      []*ScheduleSpec `yaml:"-"`
}

func (s *ScheduleSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&s.Par)
	}
	type plain ScheduleSpec
	return node.Decode((*plain)(s))
}

// buildSchedule translates a spec into the scheduler DSL. The leaf hook
// decides what a single firing produces; it receives the once descriptor,
// or nil when the node has no leaf of its own.
func buildSchedule[T any](s *ScheduleSpec, leaf func(*PolicySpec) (sched.Scheduler[T], error)) (sched.Scheduler[T], error) {
	if s == nil {
		return sched.Par[T](), nil
	}
	if s.Par != nil {
		parts := make([]sched.Scheduler[T], 0, len(s.Par))
		for _, sub := range s.Par {
			p, err := buildSchedule(sub, leaf)
			if err != nil {
				return nil, err
			}
			parts = append(parts, p)
		}
		return sched.Par(parts...), nil
	}
	var inner sched.Scheduler[T]
	var err error
	if s.Schedule != nil {
		inner, err = buildSchedule(s.Schedule, leaf)
	} else {
		inner, err = leaf(s.Once)
	}
	if err != nil {
		return nil, err
	}
	if s.Times != nil {
		inner = sched.Times(*s.Times, inner)
	}
	switch {
	case s.Period != nil && s.Repeat != nil:
		inner = sched.Repeating(*s.Repeat, seconds(*s.Period), inner)
	case s.Period != nil:
		inner = sched.Periodic(seconds(*s.Period), inner)
	case s.Repeat != nil:
		return nil, errors.New("topology: repeat requires period")
	}
	if s.Delay != nil {
		inner = sched.Delayed(seconds(*s.Delay), inner)
	}
	return inner, nil
}

// PolicySpec is a schedule leaf: good, bad, {moody: n}, or a weighted
// list of descriptors. A non-policy scalar (say, once: true in a ballot
// schedule) parses as a unit leaf.
type PolicySpec struct {
	Kind     string
	Group    int
	Weighted []WeightedPolicy
}

type WeightedPolicy struct {
	Weight float64     `yaml:"weight"`
	Policy *PolicySpec `yaml:"policy"`
}

func (p *PolicySpec) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Value {
		case "good":
			p.Kind = "good"
		case "bad":
			p.Kind = "bad"
		default:
			p.Kind = "unit"
		}
		return nil
	case yaml.MappingNode:
		var m struct {
			Moody *int `yaml:"moody"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		if m.Moody == nil {
			return errors.New("topology: policy mapping needs a moody key")
		}
		p.Kind = "moody"
		p.Group = *m.Moody
		return nil
	case yaml.SequenceNode:
		if err := node.Decode(&p.Weighted); err != nil {
			return err
		}
		p.Kind = "weighted"
		for _, w := range p.Weighted {
			if w.Policy == nil || w.Weight <= 0 {
				return errors.New("topology: weighted policy needs a policy and a positive weight")
			}
		}
		return nil
	}
	return errors.New("topology: unrecognized policy descriptor")
}

// Gen draws one concrete policy. Names come from the generator stream so
// replays of a seed submit the same policies.
func (p *PolicySpec) Gen(r *rand.Rand) (policy.Policy, error) {
	name := fmt.Sprintf("p%v", r.Intn(1<<30))
	switch p.Kind {
	case "good":
		return policy.GoodPolicy(name), nil
	case "bad":
		return policy.BadPolicy(name), nil
	case "moody":
		return policy.MoodyPolicy(p.Group, name), nil
	case "weighted":
		total := 0.0
		for _, w := range p.Weighted {
			total += w.Weight
		}
		pick := r.Float64() * total
		for _, w := range p.Weighted {
			pick -= w.Weight
			if pick < 0 {
				return w.Policy.Gen(r)
			}
		}
		return p.Weighted[len(p.Weighted)-1].Policy.Gen(r)
	}
	return policy.Policy{}, fmt.Errorf("topology: policy descriptor %q cannot produce a policy", p.Kind)
}

// DelaySpec is the delay grammar: a constant or uniform per-send delay,
// a blackout of acceptors, optionally scoped to a [from, to) time window.
// A list composes entries; later entries win inside their windows.
type DelaySpec struct {
	Constant *float64     `yaml:"constant"`
	Uniform  *UniformSpec `yaml:"uniform"`
	Blackout []int        `yaml:"blackout"`
	From     *float64     `yaml:"from"`
	To       *float64     `yaml:"to"`
	Par      []*DelaySpec `yaml:"-"`
}

type UniformSpec struct {
	Lo float64 `yaml:"lo"`
	Hi float64 `yaml:"hi"`
}

func (d *DelaySpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&d.Par)
	}
	type plain DelaySpec
	return node.Decode((*plain)(d))
}

// Profile materializes the spec over a base profile.
func (d *DelaySpec) Profile(base simnet.DelayProfile) (simnet.DelayProfile, error) {
	if d == nil {
		return base, nil
	}
	if d.Par != nil {
		prof := base
		var err error
		for _, sub := range d.Par {
			prof, err = sub.Profile(prof)
			if err != nil {
				return nil, err
			}
		}
		return prof, nil
	}
	core := base
	switch {
	case d.Constant != nil:
		core = simnet.Constant(seconds(*d.Constant))
	case d.Uniform != nil:
		core = simnet.Uniform{Lo: seconds(d.Uniform.Lo), Hi: seconds(d.Uniform.Hi)}
	}
	if len(d.Blackout) > 0 {
		addrs := make([]simnet.Address, 0, len(d.Blackout))
		for _, id := range d.Blackout {
			addrs = append(addrs, protocol.AcceptorAddr(policy.AcceptorID(id)))
		}
		core = simnet.Blackout{Addrs: addrs, Under: core}
	}
	if d.From != nil || d.To != nil {
		from, to := time.Duration(0), time.Duration(1<<62)
		if d.From != nil {
			from = seconds(*d.From)
		}
		if d.To != nil {
			to = seconds(*d.To)
		}
		return simnet.Window{From: from, To: to, During: core, Outside: base}, nil
	}
	return core, nil
}
