package domain

import "errors"

// Receive-path error taxonomy. Every error produced while handling one relay
// item wraps exactly one of these, and none of them escape the item.
var (
	// ErrNotForMe: the wrapped key was not produced for the local private key.
	ErrNotForMe = errors.New("envelope not addressed to this identity")
	// ErrDecrypt: malformed ciphertext or wrapped key.
	ErrDecrypt = errors.New("decrypt failed")
	// ErrMalformed: payload decrypted but does not parse as a signed body.
	ErrMalformed = errors.New("malformed message")
	// ErrSignature: the body signature does not verify under its sender.
	ErrSignature = errors.New("signature mismatch")
	// ErrUnauthorized: HELLO from a non-friend or MESSAGE from a non-member.
	ErrUnauthorized = errors.New("authorization denied")
	// ErrTransport: the relay could not be reached or answered with an error.
	ErrTransport = errors.New("relay transport error")
	// ErrConflict: a friend name or group guid is already taken.
	ErrConflict = errors.New("state conflict")
)
