package auth

import (
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"

	"github.com/noah-isme/backend-mithai/internal/common"
)

// APIKeyUser is the user id recorded for requests authenticated by API key.
const APIKeyUser = "api-key"

// APIKeys checks the admin X-API-Key header against an argon2id hash.
type APIKeys struct {
	hash string

	mu       sync.RWMutex
	verified map[string]struct{}
}

// NewAPIKeys returns a checker for hash. An empty hash disables API keys.
func NewAPIKeys(hash string) *APIKeys {
	return &APIKeys{hash: strings.TrimSpace(hash), verified: map[string]struct{}{}}
}

// Enabled reports whether a key hash is configured.
func (k *APIKeys) Enabled() bool {
	return k != nil && k.hash != ""
}

// Verify reports whether key matches the configured hash. Matches are
// remembered by digest so argon2 runs once per distinct key.
func (k *APIKeys) Verify(key string) (bool, error) {
	if !k.Enabled() || key == "" {
		return false, nil
	}
	digest := common.Sha256Hex(key)
	k.mu.RLock()
	_, ok := k.verified[digest]
	k.mu.RUnlock()
	if ok {
		return true, nil
	}
	match, err := argon2id.ComparePasswordAndHash(key, k.hash)
	if err != nil || !match {
		return false, err
	}
	k.mu.Lock()
	k.verified[digest] = struct{}{}
	k.mu.Unlock()
	return true, nil
}

// HashKey produces the hash stored in ADMIN_API_KEY_HASH.
func HashKey(key string) (string, error) {
	return argon2id.CreateHash(key, argon2id.DefaultParams)
}
