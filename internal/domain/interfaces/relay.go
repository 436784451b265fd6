package interfaces

import (
	"context"

	domaintypes "ciphergroup/internal/domain/types"
)

// RelayClient is how we talk to the store-and-forward relay, all with context.
// Recipients are mailbox identifiers (base64 SHA-256 of a canonical token),
// never raw public keys.
type RelayClient interface {
	Enqueue(ctx context.Context, recipient string, payload []byte) error
	FetchSince(ctx context.Context, recipient string, since int64) ([]domaintypes.Item, error)
}

// Mailbox is the relay's storage backend.
type Mailbox interface {
	// Append stores data for recipient and returns the stored item with its
	// relay-assigned id and timestamp.
	Append(ctx context.Context, recipient string, data string) (domaintypes.Item, error)
	// Since returns every item with TS strictly greater than since, oldest
	// first. A missing mailbox yields an empty slice.
	Since(ctx context.Context, recipient string, since int64) ([]domaintypes.Item, error)
}
