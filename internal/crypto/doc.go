// Package crypto exposes the minimal primitives used by ciphergroup.
//
// Contents
//
//   - RSA identity key pairs in PEM form and the relay mailbox identifier
//     derived from a public key (GenerateKeyPair, Identifier)
//   - AES-128-CTR symmetric encryption with a fresh key and counter block per
//     send (NewSymmetricKey, SymEncrypt, SymDecrypt)
//   - RSA-OAEP wrapping of the symmetric key per recipient (WrapKey, UnwrapKey)
//   - SHA-256 RSA PKCS#1 v1.5 signatures (Sign, Verify)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//
// # Notes
//
// Everything here is a pure function over its inputs. Binary values cross
// the wire as standard base64 strings. Symmetric decryption never fails on
// a wrong key: it returns garbage, and callers must rely on the signature
// check that follows to reject it.
package crypto
