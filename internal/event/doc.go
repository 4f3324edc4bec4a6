// Package event provides the synchronous pub-sub bus that decouples the
// debate engine from its observers.
//
// The orchestrator publishes lifecycle events while a session runs, and the
// reading service adds one event per final answer. The bubbletea view and the
// plain progress printer subscribe to them; neither is referenced by the
// engine directly. Reports and history are written from the finished reading.
//
// # Event Types
//
// Event types follow a "category.action" convention:
//
//   - session.started, session.finished
//   - round.started
//   - contribution.recorded
//   - attempt.failed
//   - verdict.issued
//   - answer.completed
//
// # Basic Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeVerdictIssued, func(e event.Event) {
//	    v := e.(event.VerdictIssuedEvent)
//	    fmt.Println(v.Round, v.Converged)
//	})
//	bus.Subscribe("session.*", func(e event.Event) { ... })
//
// # Thread Safety
//
// Publish may be called from several goroutines. Handlers run synchronously
// on the publishing goroutine, so they must be quick and must not publish
// recursively while holding their own locks.
package event
