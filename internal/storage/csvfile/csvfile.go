// Package csvfile provides a storage.Store kept in plain CSV files, laid out
// as:
//
//	<dir>/users.csv
//	<dir>/users/<storage_id>/rowing_log.csv
package csvfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mmynk/rowflow/internal/csvlog"
	"github.com/mmynk/rowflow/internal/models"
	"github.com/mmynk/rowflow/internal/storage"
)

const (
	registryFile  = "users.csv"
	partitionsDir = "users"
	partitionFile = "rowing_log.csv"
)

// Ensure FileStore implements storage.Store
var _ storage.Store = (*FileStore)(nil)

// FileStore implements storage.Store on the local filesystem.
// The context arguments are accepted for interface compatibility and ignored.
type FileStore struct {
	dir string

	// registryMu guards users.csv.
	registryMu sync.Mutex
}

// New creates a FileStore rooted at dir, creating the directory and an empty
// registry if needed.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, partitionsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s := &FileStore{dir: dir}
	if err := createWithHeader(s.registryPath(), models.AccountColumns); err != nil && !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}
	return s, nil
}

// Dir returns the data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Close is a no-op; files are opened per operation.
func (s *FileStore) Close() error {
	return nil
}

// CreateAccount appends account to users.csv.
func (s *FileStore) CreateAccount(_ context.Context, account *models.Account) error {
	s.registryMu.Lock()
	defer s.registryMu.Unlock()

	accounts, err := s.readAccounts()
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a.Username == account.Username {
			return storage.ErrUsernameExists
		}
	}

	if err := createWithHeader(s.registryPath(), models.AccountColumns); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("failed to create registry: %w", err)
	}
	if err := appendRecord(s.registryPath(), account.Record()); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount returns the first account registered under username.
func (s *FileStore) GetAccount(_ context.Context, username string) (*models.Account, error) {
	accounts, err := s.readAccounts()
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, nil // Account not found
}

// CreatePartition creates an empty partition file with a header row.
func (s *FileStore) CreatePartition(_ context.Context, storageID string) error {
	path, err := s.partitionPath(storageID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create partition directory: %w", err)
	}
	err = createWithHeader(path, models.EntryColumns)
	if errors.Is(err, fs.ErrExist) {
		return storage.ErrPartitionExists
	}
	if err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}
	return nil
}

// AppendEntry appends one row to the partition file.
func (s *FileStore) AppendEntry(ctx context.Context, storageID string, entry models.Entry) error {
	if err := s.CreatePartition(ctx, storageID); err != nil && !errors.Is(err, storage.ErrPartitionExists) {
		return err
	}
	path, err := s.partitionPath(storageID)
	if err != nil {
		return err
	}
	if err := appendRecord(path, entry.Record()); err != nil {
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

// ReadEntries reads the partition file, creating it empty when missing.
func (s *FileStore) ReadEntries(ctx context.Context, storageID string) ([]models.Entry, error) {
	path, err := s.partitionPath(storageID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.CreatePartition(ctx, storageID); err != nil && !errors.Is(err, storage.ErrPartitionExists) {
			return nil, err
		}
		return []models.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open partition: %w", err)
	}
	defer f.Close()

	entries, err := csvlog.ReadEntries(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read partition: %w", err)
	}
	return entries, nil
}

// PartitionPath returns the file backing storageID.
func (s *FileStore) PartitionPath(storageID string) (string, error) {
	return s.partitionPath(storageID)
}

func (s *FileStore) registryPath() string {
	return filepath.Join(s.dir, registryFile)
}

func (s *FileStore) partitionPath(storageID string) (string, error) {
	if err := storage.CheckStorageID(storageID); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, partitionsDir, storageID, partitionFile), nil
}

func (s *FileStore) readAccounts() ([]models.Account, error) {
	f, err := os.Open(s.registryPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	defer f.Close()

	accounts, err := csvlog.ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return accounts, nil
}

// createWithHeader creates path exclusively and writes header to it.
// Returns an error wrapping fs.ErrExist if the file is already there.
func createWithHeader(path string, header []string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if err := csvlog.WriteRecords(f, header); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// appendRecord writes rec to the end of path in a single write call.
func appendRecord(path string, rec []string) error {
	var buf bytes.Buffer
	if err := csvlog.WriteRecords(&buf, nil, rec); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
