// internal/database/visits.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InsertVisit records one connection by an (already hashed) fingerprint.
func InsertVisit(ctx context.Context, db *pgxpool.Pool, fingerprint string) error {
	q := `INSERT INTO visits (fingerprint) VALUES ($1)`
	if _, err := db.Exec(ctx, q, fingerprint); err != nil {
		return fmt.Errorf("failed to insert visit: %w", err)
	}
	return nil
}

// TotalVisits counts every recorded connection, repeats included.
func TotalVisits(ctx context.Context, db *pgxpool.Pool) (int64, error) {
	var n int64
	if err := db.QueryRow(ctx, `SELECT count(*) FROM visits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return n, nil
}
