// Package service contains the application use cases: registering and
// authenticating users, managing projects, and the task mutation workflow
// that requests notification jobs once a change has been committed.
//
// Services coordinate domain objects and the store interfaces inside
// transactions and translate store errors into the service vocabulary.
// Ownership failures and missing rows are deliberately indistinguishable to
// callers (ErrNotFoundOrForbidden).
package service
