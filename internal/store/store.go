package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Allocation modes for new row identifiers. Mirrors config.AllocGapFill
// and config.AllocSerial; stores take the mode as a plain string so they
// do not depend on the config package.
const (
	AllocGapFill = "gapfill"
	AllocSerial  = "serial"
)

// authorize is the single ownership predicate: a caller may act on a
// resource only when they own it.
func authorize(ownerID, callerID int) bool {
	return ownerID == callerID
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// nextFreeID scans the table's identifiers in ascending order and returns
// the smallest positive integer not in use, plus the maximum id the
// sequence must be reseeded to. Must run inside the same transaction as
// the insert: two concurrent creates would otherwise compute the same gap.
func nextFreeID(ctx context.Context, tx *sql.Tx, table string) (next, max int, err error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM "+table+" ORDER BY id ASC")
	if err != nil {
		return 0, 0, fmt.Errorf("scan %s ids: %w", table, err)
	}
	defer rows.Close()

	next = 1
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return 0, 0, fmt.Errorf("scan %s id: %w", table, err)
		}
		if id == next {
			next++
		}
		if id > max {
			max = id
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("scan %s ids: %w", table, err)
	}
	if next > max {
		max = next
	}
	return next, max, nil
}

// reseedSequence moves the table's id sequence to maxID so a future
// default-generated identifier cannot collide with an explicitly
// allocated one.
func reseedSequence(ctx context.Context, tx *sql.Tx, table string, maxID int) error {
	_, err := tx.ExecContext(ctx,
		"SELECT setval(pg_get_serial_sequence($1, 'id'), $2, true)", table, maxID)
	if err != nil {
		return fmt.Errorf("reseed %s sequence: %w", table, err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505). Concurrent gap-fill creates lose the race
// this way and surface as a Conflict the caller may retry.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// serializableTx begins a serializable transaction. The gap scan, insert,
// and sequence reseed must be atomic with respect to concurrent creates.
func serializableTx(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}
