// Package store persists the local client state on disk.
//
// The whole state (key pair, friends, groups, message logs, the receive
// cursor and the replay window) is serialised as one JSON document and sealed
// with a passphrase-derived key before it is written. Writes go through a
// temp file and a rename so a crash never leaves a half-written file behind.
package store
