// Package domain contains the core business entities of the task manager:
// users, projects and tasks, the closed status and priority enumerations,
// and the value types used for partial updates and filtered listings.
// It is independent of any specific infrastructure or delivery mechanism.
package domain
