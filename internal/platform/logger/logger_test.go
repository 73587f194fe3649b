package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKVs(t *testing.T) {
	in := []interface{}{"user_id", "u1", "db_password", "hunter2", "Authorization", "Bearer x", "dangling"}
	out := sanitizeKVs(in)

	assert.Equal(t, []interface{}{
		"user_id", "u1",
		"db_password", "[REDACTED]",
		"Authorization", "[REDACTED]",
		"dangling",
	}, out)
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"production", "development", ""} {
		l, err := New(mode)
		assert.NoError(t, err, mode)
		assert.NotNil(t, l.With("service", "test"))
	}
}
