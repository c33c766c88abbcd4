package models

import "time"

// Field names of a persisted account, in column order.
const (
	FieldUsername     = "username"
	FieldPasswordHash = "password_hash"
	FieldStorageID    = "storage_id"
)

// AccountColumns is the header row of the account registry.
var AccountColumns = []string{
	FieldUsername,
	FieldPasswordHash,
	FieldCreatedAt,
	FieldStorageID,
}

// Account represents a registered user.
//
// Accounts are append-only: there is no rename, password change or deletion.
type Account struct {
	// Username is the unique, case-sensitive login name.
	Username string

	// PasswordHash is the bcrypt hash of the password.
	// The plaintext password is never stored.
	PasswordHash string

	// CreatedAt is the UTC time the account was registered.
	CreatedAt time.Time

	// StorageID addresses the account's training partition.
	// It is the hex SHA-256 of the username, computed once at registration
	// and read back from storage afterwards.
	StorageID string
}

// Record returns the account's values in AccountColumns order.
func (a Account) Record() []string {
	return []string{
		a.Username,
		a.PasswordHash,
		FormatTimestamp(a.CreatedAt),
		a.StorageID,
	}
}
