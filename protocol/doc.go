// protocol implements a generalized Paxos over partially-ordered policy
// commands, in two interchangeable variants. Classic runs every command
// through a two-phase leader ballot with majority quorums. Fast lets
// proposers hand commands straight to the acceptors and learn at a
// three-quarter quorum, falling back to a classic recovery ballot when
// concurrent conflicting commands keep the fast quorum from agreeing.
//
// The four roles are kept separate: a Proposer submits policies, the
// Leader drives ballots, Acceptors grow a conflict-free configuration of
// accepted and rejected policies, and Learners reconcile acceptor votes
// into the configuration the system has committed to.
//
// Roles exchange one-way messages over a deterministic simulated network,
// so any run replays exactly from its seed.
//
// References:
//
// - Generalized Consensus and Paxos - Lamport
//
// - Fast Paxos - Lamport
//
// - Paxos Made Simple - Lamport
package protocol
