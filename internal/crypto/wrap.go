package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"fmt"
	"strings"

	"ciphergroup/internal/domain"
)

// keyDelimiter separates key and counter block inside the wrapped string.
const keyDelimiter = "|"

// WrapKey serialises k as "base64(key)|base64(iv)" and encrypts it with
// RSA-OAEP (SHA-1) under the recipient's public key. The result is base64.
func WrapKey(recipient domain.Token, k SymmetricKey) (string, error) {
	pub, err := ParsePublicKey(recipient)
	if err != nil {
		return "", fmt.Errorf("recipient key: %w", err)
	}
	plain := []byte(B64(k.Key[:]) + keyDelimiter + B64(k.IV[:]))
	defer Wipe(plain)

	ct, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub, plain, nil)
	if err != nil {
		return "", fmt.Errorf("wrap key: %w", err)
	}
	return B64(ct), nil
}

// UnwrapKey is the inverse of WrapKey. Any failure, including a blob that
// was wrapped for a different key pair, wraps domain.ErrDecrypt.
func UnwrapKey(priv *rsa.PrivateKey, wrapped string) (SymmetricKey, error) {
	ct, err := UnB64(wrapped)
	if err != nil {
		return SymmetricKey{}, fmt.Errorf("%w: wrapped key encoding: %v", domain.ErrDecrypt, err)
	}
	plain, err := rsa.DecryptOAEP(sha1.New(), nil, priv, ct, nil)
	if err != nil {
		return SymmetricKey{}, fmt.Errorf("%w: unwrap key: %v", domain.ErrDecrypt, err)
	}
	defer Wipe(plain)

	keyPart, ivPart, ok := strings.Cut(string(plain), keyDelimiter)
	if !ok {
		return SymmetricKey{}, fmt.Errorf("%w: wrapped key has no delimiter", domain.ErrDecrypt)
	}
	key, err := UnB64(keyPart)
	if err != nil || len(key) != SymmetricKeyBytes {
		return SymmetricKey{}, fmt.Errorf("%w: bad symmetric key", domain.ErrDecrypt)
	}
	iv, err := UnB64(ivPart)
	if err != nil || len(iv) != IVBytes {
		return SymmetricKey{}, fmt.Errorf("%w: bad counter block", domain.ErrDecrypt)
	}

	var k SymmetricKey
	copy(k.Key[:], key)
	copy(k.IV[:], iv)
	Wipe(key)
	return k, nil
}
