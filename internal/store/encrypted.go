package store

import (
	"bytes"
	"context"
	"fmt"

	"catalog-go/internal/catalog"
)

// EncryptedStore seals every value before handing it to the wrapped store.
// A value that fails to decrypt is reported as a read error, which the
// cache manager treats like a corrupt snapshot.
type EncryptedStore struct {
	inner catalog.Store
	enc   catalog.Encryptor
	dec   catalog.DecryptionContext
}

// NewEncryptedStore wraps inner. dec must come from enc.Unlock.
func NewEncryptedStore(inner catalog.Store, enc catalog.Encryptor, dec catalog.DecryptionContext) *EncryptedStore {
	return &EncryptedStore{inner: inner, enc: enc, dec: dec}
}

func (s *EncryptedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	sealed, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}

	var plain bytes.Buffer
	if err := s.dec.Decrypt(bytes.NewReader(sealed), &plain); err != nil {
		return nil, false, fmt.Errorf("decrypting %s: %w", key, err)
	}
	return plain.Bytes(), true, nil
}

func (s *EncryptedStore) Set(ctx context.Context, key string, value []byte) error {
	var sealed bytes.Buffer
	if err := s.enc.Encrypt(bytes.NewReader(value), &sealed); err != nil {
		return fmt.Errorf("encrypting %s: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed.Bytes())
}

func (s *EncryptedStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}

var _ catalog.Store = (*EncryptedStore)(nil)
