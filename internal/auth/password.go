package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/rowflow/internal/models"
	"github.com/mmynk/rowflow/internal/storage"
)

var (
	ErrInvalidInput       = errors.New("username and password are required")
	ErrUsernameTaken      = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// PartitionCreator creates the training partition of a new account.
// Creating a partition that already exists must succeed.
type PartitionCreator interface {
	Create(ctx context.Context, storageID string) error
}

// Ensure Directory implements Authenticator
var _ Authenticator = (*Directory)(nil)

// Directory is the password-based account registry, hashing with bcrypt.
type Directory struct {
	accounts   storage.AccountStore
	partitions PartitionCreator
	cost       int
	now        func() time.Time

	// mu serializes registrations so the username check and the append
	// cannot interleave.
	mu sync.Mutex

	dummyOnce sync.Once
	dummyHash []byte
}

// NewDirectory creates a Directory. A cost of 0 selects bcrypt.DefaultCost.
func NewDirectory(accounts storage.AccountStore, partitions PartitionCreator, cost int) *Directory {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Directory{
		accounts:   accounts,
		partitions: partitions,
		cost:       cost,
		now:        time.Now,
	}
}

// Register creates a new account with a hashed password.
func (d *Directory) Register(ctx context.Context, username, password string) (*models.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: password exceeds 72 bytes", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, err := d.accounts.GetAccount(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	account := &models.Account{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    d.now().UTC().Truncate(time.Second),
		StorageID:    StorageID(username),
	}

	if err := d.partitions.Create(ctx, account.StorageID); err != nil {
		return nil, fmt.Errorf("failed to create partition: %w", err)
	}

	err = d.accounts.CreateAccount(ctx, account)
	if errors.Is(err, storage.ErrUsernameExists) {
		return nil, ErrUsernameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// Authenticate verifies the username and password, returning the account if
// valid.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (*models.Account, error) {
	account, err := d.accounts.GetAccount(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if account == nil {
		// Unknown users pay for one comparison too.
		_ = bcrypt.CompareHashAndPassword(d.dummy(), []byte(password))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

func (d *Directory) dummy() []byte {
	d.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte("rowflow-dummy-password"), d.cost)
		if err != nil {
			panic(fmt.Sprintf("auth: failed to hash dummy password: %v", err))
		}
		d.dummyHash = hash
	})
	return d.dummyHash
}
