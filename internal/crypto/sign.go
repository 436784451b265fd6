package crypto

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"

	"ciphergroup/internal/domain"
)

// Sign hashes data with SHA-256 and signs it with RSASSA-PKCS1-v1_5.
// The signature covers these exact bytes; re-serialising a body breaks it.
func Sign(priv *rsa.PrivateKey, data []byte) (string, error) {
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, stdcrypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return B64(sig), nil
}

// Verify reports whether sig is a valid signature of data by pub.
// Malformed keys or signatures simply yield false.
func Verify(pub domain.Token, data []byte, sig string) bool {
	key, err := ParsePublicKey(pub)
	if err != nil {
		return false
	}
	raw, err := UnB64(sig)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(key, stdcrypto.SHA256, digest[:], raw) == nil
}
