// Package identity manages creation, encryption and loading of the local identity.
//
// It enforces passphrase policy, generates the RSA key pair, and persists it
// as the seed of a fresh client state via the domain.StateStore.
package identity
