package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const (
	// SymmetricKeyBytes is the AES-128 key size.
	SymmetricKeyBytes = 16
	// NonceBytes is the random prefix of the initial counter block.
	NonceBytes = 12
	// IVBytes is the full counter block: nonce followed by a zero counter.
	IVBytes = aes.BlockSize
)

// SymmetricKey is the per-send secret: an AES-128 key and the initial CTR
// counter block (96-bit random nonce, 32-bit zero counter).
type SymmetricKey struct {
	Key [SymmetricKeyBytes]byte
	IV  [IVBytes]byte
}

// NewSymmetricKey draws a fresh key and counter block. Never reuse one
// across sends.
func NewSymmetricKey() (SymmetricKey, error) {
	var k SymmetricKey
	if _, err := rand.Read(k.Key[:]); err != nil {
		return SymmetricKey{}, err
	}
	if _, err := rand.Read(k.IV[:NonceBytes]); err != nil {
		return SymmetricKey{}, err
	}
	return k, nil
}

// Wipe zeroes the key material.
func (k *SymmetricKey) Wipe() {
	Wipe(k.Key[:])
	Wipe(k.IV[:])
}

// SymEncrypt encrypts plaintext with AES-128-CTR and returns base64.
func SymEncrypt(k SymmetricKey, plaintext []byte) string {
	return B64(ctr(k, plaintext))
}

// SymDecrypt reverses SymEncrypt. A wrong key or counter block yields
// garbage rather than an error; only malformed base64 fails.
func SymDecrypt(k SymmetricKey, ciphertext string) ([]byte, error) {
	raw, err := UnB64(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	return ctr(k, raw), nil
}

func ctr(k SymmetricKey, in []byte) []byte {
	block, err := aes.NewCipher(k.Key[:])
	if err != nil {
		// Key length is fixed by the type.
		panic(err)
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, k.IV[:]).XORKeyStream(out, in)
	return out
}
