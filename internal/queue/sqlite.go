package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// SQLiteBackend stores queue items as rows ordered by position.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// OpenSQLiteBackend opens or creates the database at path and applies migrations.
func OpenSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open sqlite db", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, storageErr(fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	backend := &SQLiteBackend{db: db, path: path}
	if err := backend.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, storageErr("migrate", err)
	}
	return backend, nil
}

// Path returns the database file location.
func (b *SQLiteBackend) Path() string { return b.path }

// Close closes the underlying database connection.
func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Load returns all rows ordered by position.
func (b *SQLiteBackend) Load(ctx context.Context) ([]Item, error) {
	var items []Item
	err := retryOnBusy(ctx, func() error {
		rows, err := b.db.QueryContext(ctx,
			`SELECT id, job_json, status, retries, error_message FROM queue_items ORDER BY position ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		items = items[:0]
		for rows.Next() {
			var (
				rec     record
				jobJSON string
				errMsg  sql.NullString
			)
			if err := rows.Scan(&rec.ID, &jobJSON, &rec.Status, &rec.Retries, &errMsg); err != nil {
				return err
			}
			rec.Job = json.RawMessage(jobJSON)
			if errMsg.Valid {
				msg := errMsg.String
				rec.Error = &msg
			}
			item, convErr := rec.toItem()
			if convErr != nil {
				return fmt.Errorf("%w: row %s: %v", ErrParse, rec.ID, convErr)
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		if errors.Is(err, ErrParse) {
			return nil, err
		}
		return nil, storageErr("load queue rows", err)
	}
	if items == nil {
		items = []Item{}
	}
	return items, nil
}

// Save replaces every row inside one transaction.
func (b *SQLiteBackend) Save(ctx context.Context, items []Item) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	err := retryOnBusy(ctx, func() error {
		tx, err := b.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save tx: %w", err)
		}
		defer func() {
			_ = tx.Rollback()
		}()

		if _, err := tx.ExecContext(ctx, `DELETE FROM queue_items`); err != nil {
			return fmt.Errorf("clear rows: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO queue_items (id, position, job_json, status, retries, error_message, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for idx, item := range items {
			jobJSON, err := json.Marshal(item.Job)
			if err != nil {
				return fmt.Errorf("encode job %s: %w", item.ID, err)
			}
			var errMsg any
			if item.Status == StatusFailed {
				errMsg = item.Error
			}
			if _, err := stmt.ExecContext(ctx, item.ID, idx, string(jobJSON), string(item.Status), item.Retries, errMsg, timestamp); err != nil {
				return fmt.Errorf("insert item %s: %w", item.ID, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return storageErr("save queue rows", err)
	}
	return nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
