// Package database provides PostgreSQL connectivity and repositories.
//
// Uses pgx for connection pooling. Repositories implement domain interfaces:
// PlayerStore via PlayerRepo, HistoryStore via HistoryRepo. Player aggregates
// are updated with single-statement upserts so concurrent channels cannot
// corrupt totals.
package database
