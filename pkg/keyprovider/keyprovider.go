// Package keyprovider derives per-stream EXT-X-KEY content keys and
// performs the AES-128-CTR transform used to encrypt segment payloads.
//
// It supplements EXT-X-KEY emission without taking on DRM key delivery:
// callers who never configure an EXT-X-KEY never touch this package.
package keyprovider

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/ngohuy/hlspacker/pkg/errors"
)

// ContentKey is a 128-bit AES key and its companion IV.
type ContentKey struct {
	Key [16]byte
	IV  [16]byte
}

// Provider derives content keys from an operator-supplied master secret.
// The secret never appears verbatim in any derived key.
type Provider struct {
	masterSecret []byte
}

// NewProvider wraps a master secret. The secret is never logged or stored
// again outside this struct.
func NewProvider(masterSecret []byte) *Provider {
	return &Provider{masterSecret: masterSecret}
}

// DeriveContentKey derives a key and IV unique to streamID via HKDF-SHA256,
// so no two streams ever share key material.
func (p *Provider) DeriveContentKey(streamID string) (ContentKey, error) {
	var ck ContentKey

	reader := hkdf.New(sha256.New, p.masterSecret, []byte(streamID), []byte("hlspacker-content-key"))
	if _, err := io.ReadFull(reader, ck.Key[:]); err != nil {
		return ContentKey{}, errors.NewInvalidData("hkdf key derivation failed")
	}
	if _, err := io.ReadFull(reader, ck.IV[:]); err != nil {
		return ContentKey{}, errors.NewInvalidData("hkdf iv derivation failed")
	}
	return ck, nil
}

// Encrypt applies AES-128-CTR to content using key.
func Encrypt(content []byte, key ContentKey) ([]byte, error) {
	block, err := aes.NewCipher(key.Key[:])
	if err != nil {
		return nil, errors.NewInvalidData("invalid AES key")
	}
	out := make([]byte, len(content))
	stream := cipher.NewCTR(block, key.IV[:])
	stream.XORKeyStream(out, content)
	return out, nil
}
