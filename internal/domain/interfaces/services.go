package interfaces

import (
	"context"

	domaintypes "ciphergroup/internal/domain/types"
)

// IdentityService creates and loads the local key pair.
type IdentityService interface {
	GenerateIdentity(passphrase string) (domaintypes.KeyPair, string, error)
	LoadIdentity(passphrase string) (domaintypes.KeyPair, error)
}

// MessageService signs, fans out, receives and dispatches group messages.
type MessageService interface {
	SendHello(ctx context.Context, guid domaintypes.GroupID) error
	SendText(ctx context.Context, guid domaintypes.GroupID, text string) error
	Process(ctx context.Context, item domaintypes.Item) error
	Poll(ctx context.Context) (int, error)
}

// GroupService manages friends and locally created groups.
type GroupService interface {
	AddFriend(ctx context.Context, name string, token domaintypes.Token) error
	CreateGroup(ctx context.Context, name string, friends []string) (domaintypes.GroupID, error)
}
