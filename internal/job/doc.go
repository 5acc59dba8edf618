// Package job runs persisted background work on a fixed pool of workers.
//
// Every job is written to a Store before it is queued, so pending and
// interrupted jobs are recovered when the runner starts, and jobs stuck in
// processing are periodically re-queued. Delivery is at least once; handlers
// are registered per kind and must tolerate duplicate execution.
package job
