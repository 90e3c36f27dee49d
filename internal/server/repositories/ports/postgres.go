// Package ports provides the PostgreSQL-backed store for the SSH port
// allocation sequence.
package ports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/p2pvps/marketd/internal/common"
	"github.com/p2pvps/marketd/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) LastAllocated(ctx context.Context) (int, bool, error) {
	var port int
	err := r.db.QueryRowContext(ctx,
		`SELECT port FROM ssh_ports ORDER BY seq DESC LIMIT 1`).Scan(&port)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("error performing sql request: %w", err)
	}
	return port, true, nil
}

func (r *PostgresRepository) Append(ctx context.Context, port int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO ssh_ports (port) VALUES ($1)`, port)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Remove(ctx context.Context, port int) error {
	// Delete exactly one matching row, the oldest, so duplicate ports created
	// by wraparound are released one allocation at a time.
	query := `
		DELETE FROM ssh_ports
		WHERE seq = (SELECT seq FROM ssh_ports WHERE port = $1 ORDER BY seq LIMIT 1)
	`
	res, err := r.db.ExecContext(ctx, query, port)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Used(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT port FROM ssh_ports ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to select used ports: %w", err)
	}
	defer rows.Close()

	result := make([]int, 0)
	for rows.Next() {
		var port int
		if err := rows.Scan(&port); err != nil {
			return nil, err
		}
		result = append(result, port)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
