// Package workflow drives the worker's job loop.
//
// A Manager registers the worker with the coordinator registry, polls the
// queue database for claimable jobs in queue priority order, and hands each
// claimed job to the compile stage handler. While a job runs, a heartbeat
// goroutine keeps the claim fresh; jobs whose worker stops heartbeating are
// reclaimed to pending so another worker can pick them up. Failures are
// classified, persisted locally, pushed to the application API, and surfaced
// through ntfy notifications when configured.
package workflow
