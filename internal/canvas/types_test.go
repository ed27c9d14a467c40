package canvas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateCoords(t *testing.T) {
	tests := []struct {
		name    string
		x, y    int
		wantErr bool
	}{
		{"origin", 0, 0, false},
		{"max corner", 31, 31, false},
		{"x too large", 32, 0, true},
		{"y too large", 0, 32, true},
		{"negative x", -1, 0, true},
		{"negative y", 0, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoords(tt.x, tt.y)
			if tt.wantErr {
				assert.Equal(t, CodeInvalidArgument, CodeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateColor(t *testing.T) {
	assert.NoError(t, ValidateColor(0))
	assert.NoError(t, ValidateColor(15))
	assert.Equal(t, CodeInvalidArgument, CodeOf(ValidateColor(16)))
	assert.Equal(t, CodeInvalidArgument, CodeOf(ValidateColor(-1)))
}

func TestNormalizeUsername(t *testing.T) {
	assert.Equal(t, "alice", NormalizeUsername("  alice\t"))

	// Decomposed e + combining acute composes to the single code point.
	assert.Equal(t, "caf\u00e9", NormalizeUsername("cafe\u0301"))

	assert.Equal(t, "", NormalizeUsername("   "))
}

func TestErrorCodeExtraction(t *testing.T) {
	err := NewUnavailable("contention", errors.New("database is locked"))
	assert.Equal(t, CodeUnavailable, CodeOf(err))
	assert.True(t, IsUnavailable(err))

	// Codes survive wrapping.
	wrapped := errors.Join(errors.New("outer"), err)
	assert.Equal(t, CodeUnavailable, CodeOf(wrapped))

	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := NewStoreFailure("write failed", errors.New("disk full"))
	assert.Contains(t, err.Error(), "STORE_FAILURE")
	assert.Contains(t, err.Error(), "disk full")

	bare := NewNotFound("user not found")
	assert.Equal(t, "NOT_FOUND: user not found", bare.Error())
}
