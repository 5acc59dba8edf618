// Package events decouples the services that request background work from the
// job runner that performs it. Services emit a JobRequestEvent through an
// EventEmitter after their transaction commits; registered EventHandlers turn
// the event into a persisted job.
package events
