package catalog

import "io"

// Encryptor seals durable cache values at rest.
// Sealing needs only the public key; opening needs the passphrase that
// protects the private key, which produces a DecryptionContext.
type Encryptor interface {
	// Setup generates the key pair once. Called by `catalog keys init`.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock opens the private key with the passphrase.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for the
// lifetime of a process. The key is never written back to disk.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
