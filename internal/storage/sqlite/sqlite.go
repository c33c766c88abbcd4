// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/rowflow/internal/models"
	"github.com/mmynk/rowflow/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite.
// Numeric columns hold the canonical text rendering so rows read back
// exactly as they were written.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; SQLite locks the whole file anyway.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return newWithDB(db), nil
}

func newWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateAccount inserts a new account.
func (s *SQLiteStore) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (username, password_hash, created_at, storage_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING
	`

	res, err := s.db.ExecContext(ctx, query,
		account.Username,
		account.PasswordHash,
		models.FormatTimestamp(account.CreatedAt),
		account.StorageID,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return requireInserted(res, storage.ErrUsernameExists)
}

// GetAccount retrieves an account by username.
func (s *SQLiteStore) GetAccount(ctx context.Context, username string) (*models.Account, error) {
	query := `
		SELECT username, password_hash, created_at, storage_id
		FROM accounts
		WHERE username = ?
	`

	var (
		account   models.Account
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&account.Username,
		&account.PasswordHash,
		&createdAt,
		&account.StorageID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Account not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.CreatedAt = models.ParseTimestamp(createdAt)
	return &account, nil
}

// CreatePartition registers an empty partition.
func (s *SQLiteStore) CreatePartition(ctx context.Context, storageID string) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO partitions (storage_id, created_at) VALUES (?, CURRENT_TIMESTAMP) ON CONFLICT (storage_id) DO NOTHING",
		storageID,
	)
	if err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}
	return requireInserted(res, storage.ErrPartitionExists)
}

// AppendEntry inserts entry after every existing entry of the partition.
func (s *SQLiteStore) AppendEntry(ctx context.Context, storageID string, entry models.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO partitions (storage_id, created_at) VALUES (?, CURRENT_TIMESTAMP) ON CONFLICT (storage_id) DO NOTHING",
		storageID,
	)
	if err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}

	rec := entry.Record()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (storage_id, date, distance_km, duration_min, speed_kmh, session_type, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		storageID, rec[0], rec[1], rec[2], rec[3], rec[4], rec[5], rec[6],
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ReadEntries returns the partition's entries ordered by insertion.
func (s *SQLiteStore) ReadEntries(ctx context.Context, storageID string) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, distance_km, duration_min, speed_kmh, session_type, notes, created_at
		FROM entries
		WHERE storage_id = ?
		ORDER BY seq`,
		storageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		rec := make([]string, len(models.EntryColumns))
		dest := make([]any, len(rec))
		for i := range rec {
			dest[i] = &rec[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}

		fields := make(map[string]string, len(rec))
		for i, name := range models.EntryColumns {
			fields[name] = rec[i]
		}
		entries = append(entries, models.EntryFromFields(fields))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

// requireInserted returns conflict when res reports no inserted row.
func requireInserted(res sql.Result, conflict error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return conflict
	}
	return nil
}
