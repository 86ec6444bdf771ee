package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq" // postgres driver
)

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS deployment_state (
			state_key     varchar(255) not null,
			state_record  text not null,

			PRIMARY KEY(state_key)
		);`
	selectStateSQL = `SELECT state_key, state_record FROM deployment_state`
	deleteStateSQL = `DELETE FROM deployment_state`
	insertStateSQL = `INSERT INTO deployment_state (state_key, state_record) VALUES ($1, $2)`
)

// SQLStore persists the state in a single table, one row per key with the record as JSON.
type SQLStore struct {
	db *sql.DB
}

// OpenPostgres connects to the postgres database at dsn and prepares the state table.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	store, err := NewSQLStore(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// NewSQLStore returns a SQLStore over db, creating the state table if needed.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create deployment_state table: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Load reads every row of the state table. An empty table yields an empty state.
func (s *SQLStore) Load(ctx context.Context) (DeploymentState, error) {
	rows, err := s.db.QueryContext(ctx, selectStateSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployment state: %w", err)
	}
	defer rows.Close()

	out := New()
	for rows.Next() {
		var key, raw string
		if err = rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan deployment state: %w", err)
		}

		var rec Record
		if err = json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%w: key %s: %w", ErrCorruptState, key, err)
		}
		out[key] = rec
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read deployment state: %w", err)
	}

	return out, nil
}

// Save replaces all rows of the state table inside one transaction.
func (s *SQLStore) Save(ctx context.Context, st DeploymentState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	if _, err = tx.ExecContext(ctx, deleteStateSQL); err != nil {
		return fmt.Errorf("failed to clear deployment state: %w", err)
	}

	for _, key := range st.Keys() {
		raw, merr := json.Marshal(st[key])
		if merr != nil {
			return fmt.Errorf("failed to marshal record %s: %w", key, merr)
		}
		if _, err = tx.ExecContext(ctx, insertStateSQL, key, string(raw)); err != nil {
			return fmt.Errorf("failed to write record %s: %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deployment state: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
