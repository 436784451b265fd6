// Package message sends and receives signed, hybrid-encrypted group messages.
//
// Outbound, a body is serialised canonically, signed, encrypted once under a
// fresh symmetric key and fanned out with that key wrapped per participant.
// Inbound, every relay item is unwrapped, decrypted, verified, checked
// against the replay window and only then dispatched with trust decisions.
package message
