package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"ciphergroup/internal/domain"
)

// KeyBits is the RSA modulus size of a new identity.
const KeyBits = 4096

var errNoPEM = errors.New("no PEM block found")

// GenerateKeyPair returns a fresh RSA identity: PKIX public key and PKCS#8
// private key, both PEM encoded.
func GenerateKeyPair() (domain.KeyPair, error) {
	return GenerateKeyPairSize(KeyBits)
}

// GenerateKeyPairSize is GenerateKeyPair with an explicit modulus size.
func GenerateKeyPairSize(bits int) (domain.KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return domain.KeyPair{}, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return domain.KeyPair{}, err
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return domain.KeyPair{}, err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	return domain.KeyPair{
		PublicKey:  domain.ParseToken(string(pubPEM)),
		PrivateKey: string(privPEM),
	}, nil
}

// Identifier returns the relay mailbox address for a token: the standard
// base64 SHA-256 digest of its canonical UTF-8 bytes.
func Identifier(t domain.Token) string {
	sum := sha256.Sum256([]byte(domain.ParseToken(t.String())))
	return B64(sum[:])
}

// ParsePublicKey decodes an RSA public key from a token. Both the canonical
// single-line form and ordinary PEM are accepted.
func ParsePublicKey(t domain.Token) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(domain.ParseToken(t.String()).PEM()))
	if block == nil {
		return nil, errNoPEM
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	default:
		key, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("unsupported public key type %T", key)
		}
		return pub, nil
	}
}

// ParsePrivateKey decodes a PKCS#8 (or PKCS#1) PEM RSA private key.
func ParsePrivateKey(s string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(s))
	if block == nil {
		return nil, errNoPEM
	}
	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}
	return priv, nil
}
