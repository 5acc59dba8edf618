// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database. Tests are skipped unless DATABASE_URL is set; each
// test runs inside a transaction that is rolled back afterwards.
package testdb
