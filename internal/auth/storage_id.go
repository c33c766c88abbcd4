package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// StorageID returns the partition key for username: the lowercase hex
// SHA-256 of its UTF-8 bytes.
func StorageID(username string) string {
	sum := sha256.Sum256([]byte(username))
	return hex.EncodeToString(sum[:])
}
