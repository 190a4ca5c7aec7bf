package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     string
		wantErr  bool
	}{
		{
			name:     "valid username - lowercase",
			username: "alice",
			want:     "alice",
		},
		{
			name:     "valid username - uppercase is normalized",
			username: "ALICE",
			want:     "alice",
		},
		{
			name:     "valid username - mixed case is normalized",
			username: "AliceSmith",
			want:     "alicesmith",
		},
		{
			name:     "valid username - with underscore",
			username: "alice_smith",
			want:     "alice_smith",
		},
		{
			name:     "valid username - with numbers",
			username: "alice123",
			want:     "alice123",
		},
		{
			name:     "valid username - all numbers",
			username: "123456",
			want:     "123456",
		},
		{
			name:     "valid username - single character",
			username: "a",
			want:     "a",
		},
		{
			name:     "valid username - max length",
			username: strings.Repeat("a", 64),
			want:     strings.Repeat("a", 64),
		},
		{
			name:     "invalid - empty username",
			username: "",
			wantErr:  true,
		},
		{
			name:     "invalid - too long (65 chars)",
			username: strings.Repeat("a", 65),
			wantErr:  true,
		},
		{
			name:     "invalid - with dot",
			username: "alice.smith",
			wantErr:  true,
		},
		{
			name:     "invalid - with dash",
			username: "alice-smith",
			wantErr:  true,
		},
		{
			name:     "invalid - with space",
			username: "alice smith",
			wantErr:  true,
		},
		{
			name:     "invalid - with @ symbol",
			username: "alice@email",
			wantErr:  true,
		},
		{
			name:     "invalid - with special characters",
			username: "alice!@#",
			wantErr:  true,
		},
		{
			name:     "invalid - cyrillic characters",
			username: "алиса",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Username(tt.username)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidUsername)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
