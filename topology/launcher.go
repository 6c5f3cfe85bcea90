package topology

import (
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/Martoon-00/sdn-policies/policy"
	"github.com/Martoon-00/sdn-policies/protocol"
	"github.com/Martoon-00/sdn-policies/sched"
	"github.com/Martoon-00/sdn-policies/simnet"
)

// DefaultDelay is the per-send network delay when the config gives none.
const DefaultDelay = 10 * time.Millisecond

// Launch wires one instance of every role onto a fresh simulated network,
// installs the configured schedules, and returns the monitor handle. The
// run has not consumed any simulated time yet; drive it with RunUntil or
// AwaitTermination.
func Launch(cfg Config) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	variant, err := cfg.Variant()
	if err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		log.Printf("topology: no seed configured, using %v", seed)
	}
	// One root seed fans out into per-concern streams so that, say, adding
	// a reproposal schedule does not shift the proposal names.
	seeds := rand.New(rand.NewSource(seed))
	simSeed := seeds.Int63()
	ballotSeed := seeds.Int63()
	proposalSeed := seeds.Int63()
	reproposalSeed := seeds.Int63()

	sim := simnet.New(simSeed)
	profile, err := cfg.Delays.Profile(simnet.Constant(DefaultDelay))
	if err != nil {
		return nil, err
	}
	sim.SetDelays(profile)

	errs := protocol.NewErrorLog()
	recovery := seconds(cfg.RecoveryDelay)

	proposer := protocol.NewProposer(variant, cfg.Members, sim)
	leader := protocol.NewLeader(variant, cfg.Members, sim, errs, recovery)
	acceptors := make([]*protocol.Acceptor, 0, cfg.Members.Acceptors)
	for _, id := range cfg.Members.AcceptorIDs() {
		a := protocol.NewAcceptor(id, variant, cfg.Members, sim, errs)
		acceptors = append(acceptors, a)
		sim.Register(protocol.AcceptorAddr(id), a.HandleMessage)
	}
	learners := make([]*protocol.Learner, 0, cfg.Members.Learners)
	for i := 0; i < cfg.Members.Learners; i++ {
		l := protocol.NewLearner(i, variant, cfg.Members, errs)
		learners = append(learners, l)
		sim.Register(protocol.LearnerAddr(i), l.HandleMessage)
	}
	sim.Register(protocol.LeaderAddr(), leader.HandleMessage)

	ballots, err := buildSchedule(cfg.Ballots, unitLeaf)
	if err != nil {
		return nil, err
	}
	proposals, err := buildSchedule(cfg.Proposals, policyLeaf)
	if err != nil {
		return nil, err
	}
	reproposals, err := buildSchedule(cfg.Reproposals, unitLeaf)
	if err != nil {
		return nil, err
	}

	sched.Run(ballots, sim, ballotSeed, func(struct{}) { leader.Phase1a() })
	sched.Run(proposals, sim, proposalSeed, func(p policy.Policy) { proposer.Propose(p) })
	sched.Run(reproposals, sim, reproposalSeed, func(struct{}) { proposer.Insist() })

	return &Monitor{
		sim:       sim,
		lifetime:  seconds(cfg.Lifetime),
		proposer:  proposer,
		leader:    leader,
		acceptors: acceptors,
		learners:  learners,
		errs:      errs,
	}, nil
}

// unitLeaf fires regardless of any descriptor attached to the leaf.
func unitLeaf(*PolicySpec) (sched.Scheduler[struct{}], error) {
	return sched.Execute(), nil
}

// policyLeaf draws a policy from the leaf descriptor.
func policyLeaf(spec *PolicySpec) (sched.Scheduler[policy.Policy], error) {
	if spec == nil {
		return nil, errors.New("topology: proposal schedule leaf needs a policy descriptor")
	}
	if _, err := spec.Gen(rand.New(rand.NewSource(1))); err != nil {
		return nil, err
	}
	return sched.Generate(func(r *rand.Rand) policy.Policy {
		p, _ := spec.Gen(r)
		return p
	}), nil
}
