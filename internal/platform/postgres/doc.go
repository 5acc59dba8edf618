// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver, maps driver errors to store errors, and
// embeds the goose schema migrations.
package postgres
