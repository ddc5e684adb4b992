package encryption

import (
	"bytes"
	"fmt"
	"io"

	"catalog-go/internal/catalog"
)

// testHeader marks values sealed by TestEncryptor.
var testHeader = []byte("CATENC\x00\x00")

// TestEncryptor is a deterministic stand-in for AgeEncryptor. It prepends a
// fixed header on Encrypt and strips it on Decrypt, so sealed values differ
// from plaintext without any key material.
type TestEncryptor struct {
	setupCalled bool
}

var _ catalog.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(string) error {
	e.setupCalled = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testHeader); err != nil {
		return fmt.Errorf("writing test header: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(string) (catalog.DecryptionContext, error) {
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool { return true }

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ catalog.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(header, testHeader) {
		return fmt.Errorf("invalid test encryption header")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying data: %w", err)
	}
	return nil
}
