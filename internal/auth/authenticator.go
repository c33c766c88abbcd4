package auth

import (
	"context"

	"github.com/mmynk/rowflow/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction lets the service layer and the CLI share one account
// registry without knowing how credentials are checked.
type Authenticator interface {
	// Register creates a new account and its empty training partition.
	// Returns ErrInvalidInput for blank credentials and ErrUsernameTaken if
	// the username is already registered.
	Register(ctx context.Context, username, password string) (*models.Account, error)

	// Authenticate verifies the credentials and returns the account.
	// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
	Authenticate(ctx context.Context, username, password string) (*models.Account, error)
}
