// Package coordinator provides background scheduling for inbound sync runs.
//
// The coordinator polls the configuration table and enqueues a sync trigger
// message for every enabled configuration whose sync interval has elapsed
// since its last successful run. Triggers are delivered over the same Redis
// stream the outbound queue uses, so execution, retry and dead-lettering all
// follow the queue consumer's rules.
//
// The coordinator separates concerns between:
//
//   - sync/inbound: Domain logic (what to pull, how to correlate records)
//   - sync/coordinator: Orchestration (dueness, enqueueing, lifecycle)
//   - cmd/app/serve: Process lifecycle (just starts/stops the coordinator)
//
// The Coordinator interface provides a simple lifecycle API:
//
//	type Coordinator interface {
//	    Start(ctx context.Context) error  // Begin background scheduling loop
//	    Stop() error                      // Graceful shutdown
//	}
//
// Failed runs are not rescheduled eagerly: the trigger message is retried by
// the queue consumer, and the configuration becomes due again on the next
// tick because its last successful sync never advanced.
package coordinator
