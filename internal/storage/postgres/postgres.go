// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface, using pgx through database/sql and goose
// migrations.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pressly/goose/v3"

	"github.com/mmynk/rowflow/internal/models"
	"github.com/mmynk/rowflow/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// gooseUp is a seam for testing goose.UpContext.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Ensure PostgresStore implements storage.Store
var _ storage.Store = (*PostgresStore)(nil)

// PostgresStore implements storage.Store on PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// New connects to dsn and applies pending migrations.
func New(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := newWithDB(db)
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func newWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return gooseUp(ctx, s.db, "migrations")
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// CreateAccount inserts a new account.
func (s *PostgresStore) CreateAccount(ctx context.Context, account *models.Account) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (username, password_hash, created_at, storage_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING`,
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
func (s *PostgresStore) GetAccount(ctx context.Context, username string) (*models.Account, error) {
	var (
		account   models.Account
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, created_at, storage_id
		FROM accounts
		WHERE username = $1`,
		username,
	).Scan(&account.Username, &account.PasswordHash, &createdAt, &account.StorageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // Account not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.CreatedAt = models.ParseTimestamp(createdAt)
	return &account, nil
}

const insertPartition = `INSERT INTO partitions (storage_id) VALUES ($1) ON CONFLICT (storage_id) DO NOTHING`

// CreatePartition registers an empty partition.
func (s *PostgresStore) CreatePartition(ctx context.Context, storageID string) error {
	res, err := s.db.ExecContext(ctx, insertPartition, storageID)
	if err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}
	return requireInserted(res, storage.ErrPartitionExists)
}

// AppendEntry inserts entry after every existing entry of the partition.
func (s *PostgresStore) AppendEntry(ctx context.Context, storageID string, entry models.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, insertPartition, storageID); err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}

	rec := entry.Record()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO entries (storage_id, date, distance_km, duration_min, speed_kmh, session_type, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
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
func (s *PostgresStore) ReadEntries(ctx context.Context, storageID string) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, distance_km, duration_min, speed_kmh, session_type, notes, created_at
		FROM entries
		WHERE storage_id = $1
		ORDER BY seq`,
		storageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var date, distance, duration, speed, sessionType, notes, createdAt string
		if err := rows.Scan(&date, &distance, &duration, &speed, &sessionType, &notes, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, models.EntryFromFields(map[string]string{
			models.FieldDate:        date,
			models.FieldDistanceKM:  distance,
			models.FieldDurationMin: duration,
			models.FieldSpeedKMH:    speed,
			models.FieldSessionType: sessionType,
			models.FieldNotes:       notes,
			models.FieldCreatedAt:   createdAt,
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}
	return entries, nil
}

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
