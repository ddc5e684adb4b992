package testutil

import (
	"testing"

	"catalog-go/internal/catalog"
	"catalog-go/internal/encryption"
	"catalog-go/internal/store"
)

// NewSealedStore wraps inner in an EncryptedStore using the test encryptor.
func NewSealedStore(t *testing.T, inner catalog.Store) *store.EncryptedStore {
	t.Helper()

	enc := encryption.NewTestEncryptor()
	dec, err := enc.Unlock("test-passphrase")
	if err != nil {
		t.Fatalf("failed to unlock test encryptor: %v", err)
	}
	return store.NewEncryptedStore(inner, enc, dec)
}
