// Package crypto is the vault's encryption boundary. Plaintext quote, proof,
// and transaction structures cross it exactly once in each direction; the
// record store only ever sees the sealed blobs this package produces.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"satsvault/internal/sentinel"
	"satsvault/internal/vault/models"
	id "satsvault/pkg/domain"
)

// blobVersion prefixes every sealed blob so the format can evolve under key
// rotation without guessing.
const blobVersion = byte(1)

// hkdfInfo domain-separates vault payload keys from any other use of the
// master key.
const hkdfInfo = "satsvault/payload/v1"

// Envelope seals and opens payloads with a per-owner subkey derived from the
// master key. It is stateless; key rotation policy belongs to the caller, who
// re-seals via the store's UpdatePayload path.
type Envelope struct {
	masterKey []byte
}

// NewEnvelope constructs an Envelope from the master key material.
func NewEnvelope(masterKey []byte) (*Envelope, error) {
	if len(masterKey) < 32 {
		return nil, fmt.Errorf("master key must be at least 32 bytes, got %d", len(masterKey))
	}
	key := make([]byte, len(masterKey))
	copy(key, masterKey)
	return &Envelope{masterKey: key}, nil
}

// ownerKey derives the owner-scoped subkey. The owner id is the HKDF salt, so
// two owners never share a payload key even under the same master key.
func (e *Envelope) ownerKey(ownerID id.OwnerID) ([]byte, error) {
	kdf := hkdf.New(sha256.New, e.masterKey, []byte(ownerID), []byte(hkdfInfo))
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive owner key: %w", err)
	}
	return key, nil
}

// Seal encrypts a plaintext payload under the owner's key. The owner id is
// bound as associated data, so a blob can never be opened under a different
// owner even if copied between partitions.
func (e *Envelope) Seal(ownerID id.OwnerID, plaintext []byte) (models.Ciphertext, error) {
	if ownerID.IsNil() {
		return nil, sentinel.ErrInvalidInput
	}
	key, err := e.ownerKey(ownerID)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	blob := make([]byte, 0, 1+len(nonce)+len(plaintext)+aead.Overhead())
	blob = append(blob, blobVersion)
	blob = append(blob, nonce...)
	blob = aead.Seal(blob, nonce, plaintext, []byte(ownerID))
	return models.Ciphertext(blob), nil
}

// Open decrypts a sealed blob under the owner's key. Any failure (wrong
// owner, truncated or tampered blob, unknown version) returns
// sentinel.ErrDecryptFailed; it indicates key desync or corruption and must
// surface to the caller rather than be swallowed.
func (e *Envelope) Open(ownerID id.OwnerID, blob models.Ciphertext) ([]byte, error) {
	if ownerID.IsNil() {
		return nil, sentinel.ErrInvalidInput
	}
	if len(blob) < 1+chacha20poly1305.NonceSizeX || blob[0] != blobVersion {
		return nil, sentinel.ErrDecryptFailed
	}
	key, err := e.ownerKey(ownerID)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init aead: %w", err)
	}

	nonce := blob[1 : 1+aead.NonceSize()]
	plaintext, err := aead.Open(nil, nonce, blob[1+aead.NonceSize():], []byte(ownerID))
	if err != nil {
		return nil, sentinel.ErrDecryptFailed
	}
	return plaintext, nil
}
