// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/mmynk/rowflow/internal/models"
)

// ErrInvalidStorageID is returned when a partition key is not a hex SHA-256.
var ErrInvalidStorageID = errors.New("invalid storage id")

// ErrPartitionExists is returned by CreatePartition when the partition is
// already present. Callers that only need the partition to exist may ignore it.
var ErrPartitionExists = errors.New("partition already exists")

// ErrUsernameExists is returned by CreateAccount when the username is taken.
var ErrUsernameExists = errors.New("username already exists")

// AccountStore is the append-only account registry.
type AccountStore interface {
	// CreateAccount appends a new account.
	// Returns ErrUsernameExists if the username is already registered.
	CreateAccount(ctx context.Context, account *models.Account) error

	// GetAccount retrieves an account by username.
	// Returns nil, nil if the account is not found.
	GetAccount(ctx context.Context, username string) (*models.Account, error)
}

// PartitionStore holds one append-only entry sequence per storage ID.
// Implementations are not required to serialize concurrent writers to the
// same partition; the ledger does that.
type PartitionStore interface {
	// CreatePartition creates an empty partition.
	// Returns ErrPartitionExists if it is already present.
	CreatePartition(ctx context.Context, storageID string) error

	// AppendEntry writes entry to the end of the partition, creating the
	// partition first if it does not exist.
	AppendEntry(ctx context.Context, storageID string, entry models.Entry) error

	// ReadEntries returns every entry in append order.
	// A missing partition reads as empty.
	ReadEntries(ctx context.Context, storageID string) ([]models.Entry, error)
}

// Store defines the full set of storage operations.
// This abstraction allows swapping storage backends (CSV files, SQLite,
// PostgreSQL) without changing the service layer.
type Store interface {
	AccountStore
	PartitionStore

	// Close releases any resources held by the store.
	Close() error
}

// CheckStorageID reports whether id is 64 lowercase hex characters.
func CheckStorageID(id string) error {
	if len(id) != 64 {
		return fmt.Errorf("%w: %q", ErrInvalidStorageID, id)
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidStorageID, id)
		}
	}
	return nil
}
