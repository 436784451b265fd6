// Package state holds the loaded client state for the lifetime of a process.
//
// A Keeper opens the sealed state once, hands out the trust store and the
// replay guard built from it, and owns the receive cursor. Writes go through
// Update, which holds the store lock and reloads what other processes saved
// before applying a change.
package state
