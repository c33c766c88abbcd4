package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckStorageID(t *testing.T) {
	valid := strings.Repeat("ab01", 16)

	assert.NoError(t, CheckStorageID(valid))

	for name, id := range map[string]string{
		"empty":     "",
		"short":     valid[:63],
		"long":      valid + "0",
		"uppercase": strings.ToUpper(valid),
		"traversal": "../" + valid[3:],
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, CheckStorageID(id), ErrInvalidStorageID)
		})
	}
}
