package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	corestore "github.com/kilianp07/islandsim/core/store"
)

// SQLiteStore persists minute records to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS minute_records (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT,
        scenario TEXT,
        minute INTEGER,
        island INTEGER,
        record TEXT
    );
    CREATE INDEX IF NOT EXISTS minute_records_run ON minute_records (run_id, scenario, minute);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec corestore.MinuteRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	island := 0
	if rec.Island {
		island = 1
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO minute_records (run_id, scenario, minute, island, record) VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, rec.Scenario, rec.Minute, island, string(b))
	return err
}

// Query returns records matching q in insertion order.
func (s *SQLiteStore) Query(ctx context.Context, q corestore.Query) ([]corestore.MinuteRecord, error) {
	var args []any
	query := `SELECT record FROM minute_records WHERE minute >= ?`
	args = append(args, q.From)
	if q.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, q.RunID)
	}
	if q.Scenario != "" {
		query += ` AND scenario = ?`
		args = append(args, q.Scenario)
	}
	if q.To > 0 {
		query += ` AND minute < ?`
		args = append(args, q.To)
	}
	if q.IslandOnly {
		query += ` AND island = 1`
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []corestore.MinuteRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r corestore.MinuteRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
