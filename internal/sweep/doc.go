// Package sweep implements the daily overdue summary: it finds past-due tasks
// that are not done, groups them by assignee and sends each assignee a single
// aggregated email. A Lease keeps concurrent runs from sending duplicates.
package sweep
