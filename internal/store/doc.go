// Package store defines the persistence ports for users, projects and tasks,
// the shared store error vocabulary, and the transaction helper services use
// to group reads and writes into one unit of work.
package store
