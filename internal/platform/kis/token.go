package kis

import (
	"encoding/json"
	"os"

	"github.com/seojun-lab/kistrader/internal/domain"
)

// TokenStore persists the access credential across process restarts as a
// small JSON file. A readable, valid file lets the client start warm without
// re-authenticating; anything else degrades to "must re-authenticate" rather
// than an error.
type TokenStore struct {
	path string
}

// NewTokenStore creates a TokenStore backed by the file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load reads the persisted credential. ok is false when the file is missing,
// unreadable, or malformed; corrupt state is never surfaced as an error.
func (s *TokenStore) Load() (domain.Credential, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.Credential{}, false
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return domain.Credential{}, false
	}
	if cred.AccessToken == "" || cred.IssuedAt.IsZero() {
		return domain.Credential{}, false
	}
	return cred, true
}

// Save durably persists the credential, overwriting any prior value. Writes
// go through a temp file and rename so a crash never leaves a half-written
// token behind.
func (s *TokenStore) Save(cred domain.Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
