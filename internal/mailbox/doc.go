// Package mailbox stores relay items per recipient.
//
// Every backend assigns item timestamps in unix milliseconds, strictly
// increasing within one mailbox, so a reader that fetches "everything newer
// than the last timestamp I saw" never skips an item that landed in the same
// millisecond.
package mailbox
