package domain

import (
	interfaces "ciphergroup/internal/domain/interfaces"
	types "ciphergroup/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Token       = types.Token
	GroupID     = types.GroupID
	KeyPair     = types.KeyPair
	Kind        = types.Kind
	Body        = types.Body
	Hello       = types.Hello
	Text        = types.Text
	SignedBody  = types.SignedBody
	Envelope    = types.Envelope
	Item        = types.Item
	Directory   = types.Directory
	Window      = types.Window
	WindowEntry = types.WindowEntry
	State       = types.State
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityService = interfaces.IdentityService
	MessageService  = interfaces.MessageService
	GroupService    = interfaces.GroupService
	RelayClient     = interfaces.RelayClient
	Mailbox         = interfaces.Mailbox
	StateStore      = interfaces.StateStore
)

const (
	KindHello    = types.KindHello
	KindText     = types.KindText
	DataTypeText = types.DataTypeText
	StateVersion = types.StateVersion
)

// Function re-exports.
var (
	ParseToken    = types.ParseToken
	MarshalBody   = types.MarshalBody
	UnmarshalBody = types.UnmarshalBody
)
