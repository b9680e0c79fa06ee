package kis

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seojun-lab/kistrader/internal/domain"
)

func TestTokenStoreLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, path string)
		wantOK  bool
		wantTok string
	}{
		{
			name:   "missing file",
			setup:  func(t *testing.T, path string) {},
			wantOK: false,
		},
		{
			name: "corrupt json",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
			},
			wantOK: false,
		},
		{
			name: "empty token",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"","issued_at":"2026-08-30T09:00:00Z"}`), 0o600))
			},
			wantOK: false,
		},
		{
			name: "zero issued_at",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"tok"}`), 0o600))
			},
			wantOK: false,
		},
		{
			name: "valid record",
			setup: func(t *testing.T, path string) {
				require.NoError(t, os.WriteFile(path, []byte(`{"access_token":"tok-123","issued_at":"2026-08-30T09:00:00Z"}`), 0o600))
			},
			wantOK:  true,
			wantTok: "tok-123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "token.json")
			tt.setup(t, path)

			cred, ok := NewTokenStore(path).Load()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantTok, cred.AccessToken)
		})
	}
}

func TestTokenStoreSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	store := NewTokenStore(path)

	issued := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(domain.Credential{AccessToken: "tok-abc", IssuedAt: issued}))

	cred, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, "tok-abc", cred.AccessToken)
	assert.True(t, cred.IssuedAt.Equal(issued))

	// Overwrite wins.
	require.NoError(t, store.Save(domain.Credential{AccessToken: "tok-def", IssuedAt: issued.Add(time.Hour)}))
	cred, ok = store.Load()
	require.True(t, ok)
	assert.Equal(t, "tok-def", cred.AccessToken)
}

func TestCredentialValidity(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cred domain.Credential
		want bool
	}{
		{"fresh", domain.Credential{AccessToken: "t", IssuedAt: now.Add(-time.Hour)}, true},
		{"just under expiry", domain.Credential{AccessToken: "t", IssuedAt: now.Add(-domain.TokenExpiry + time.Second)}, true},
		{"at expiry", domain.Credential{AccessToken: "t", IssuedAt: now.Add(-domain.TokenExpiry)}, false},
		{"a day old", domain.Credential{AccessToken: "t", IssuedAt: now.Add(-24 * time.Hour)}, false},
		{"no token", domain.Credential{IssuedAt: now}, false},
		{"zero issued_at", domain.Credential{AccessToken: "t"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cred.Valid(now))
		})
	}
}
