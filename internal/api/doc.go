// Package api holds the HTTP handlers for authentication, projects and tasks.
// Handlers decode and validate requests, call the services and map service
// errors to status codes through MapErrorToStatusCode and GetSafeErrorMessage.
package api
