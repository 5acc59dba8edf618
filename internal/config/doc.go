// Package config handles configuration loading, parsing, and validation
// from environment variables, an optional .env file and an optional
// config.yaml. It provides type-safe access to settings for the HTTP server,
// database, auth, background jobs, notification channel and overdue sweep.
package config
