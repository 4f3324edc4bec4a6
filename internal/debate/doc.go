// Package debate implements the debate-and-refine engine: several
// model-backed agents argue over a shared draft across rounds until a
// convergence judge is satisfied or the round budget runs out.
//
// # Components
//
//   - Agent: a persona bound to an ai.Client that turns the current draft and
//     the previous round's contributions into one Contribution.
//   - Session: owns the Transcript and the SharedArtifact. It appends each
//     round in agent-registration order and replaces the artifact through a
//     Fold.
//   - Judge: decides whether two consecutive artifacts have converged.
//     SimilarityJudge is heuristic and pure; ModelJudge asks a model.
//   - Orchestrator: drives a Session through rounds, fanning calls out
//     concurrently, retrying retryable failures with backoff, and stopping on
//     convergence, budget exhaustion, or a fatal round.
//
// # Lifecycle
//
//	Init -> RoundRunning(1) -> Judging(1) -> RoundRunning(2) -> ... -> Done
//
// A round in which every agent fails is fatal: Run returns a *FatalError that
// carries the partial Transcript. Per-agent terminal failures only degrade
// the round.
//
// # Thread Safety
//
// Agents never touch the Session. The Orchestrator is its only writer;
// agents receive immutable snapshots. An Orchestrator may run several
// sessions concurrently since all round state lives in the Session.
package debate
