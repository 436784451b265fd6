package types

import (
	"encoding/json"
	"fmt"
)

// Kind tags a message body on the wire.
type Kind string

const (
	KindHello Kind = "HELLO"
	KindText  Kind = "MESSAGE"
)

// DataTypeText is the only content type a Text body carries.
const DataTypeText = "TEXT"

// Body is the closed set of signed message bodies: Hello and Text.
// The unexported method keeps the set closed to this package.
type Body interface {
	Kind() Kind
	Sender() Token
	Group() GroupID
	Timestamp() int64
	body()
}

// Hello introduces a group and its ordered participant list.
type Hello struct {
	From         Token   `json:"from" validate:"required"`
	GUID         GroupID `json:"guid" validate:"required"`
	Participants []Token `json:"participants" validate:"required,min=1,dive,required"`
	TS           int64   `json:"ts" validate:"gt=0"`
}

func (Hello) Kind() Kind { return KindHello }
func (h Hello) Sender() Token { return h.From }
func (h Hello) Group() GroupID { return h.GUID }
func (h Hello) Timestamp() int64 { return h.TS }
func (Hello) body() {}

// Text is a line of group content.
type Text struct {
	From     Token   `json:"from" validate:"required"`
	GUID     GroupID `json:"guid" validate:"required"`
	TS       int64   `json:"ts" validate:"gt=0"`
	DataType string  `json:"data_type" validate:"eq=TEXT"`
	Data     string  `json:"data"`
}

func (Text) Kind() Kind { return KindText }
func (t Text) Sender() Token { return t.From }
func (t Text) Group() GroupID { return t.GUID }
func (t Text) Timestamp() int64 { return t.TS }
func (Text) body() {}

// Wire layouts. Field order here is the canonical serialisation.
type helloWire struct {
	Type         Kind    `json:"type"`
	From         Token   `json:"from"`
	GUID         GroupID `json:"guid"`
	Participants []Token `json:"participants"`
	TS           int64   `json:"ts"`
}

type textWire struct {
	Type     Kind    `json:"type"`
	From     Token   `json:"from"`
	GUID     GroupID `json:"guid"`
	TS       int64   `json:"ts"`
	DataType string  `json:"data_type"`
	Data     string  `json:"data"`
}

// MarshalBody returns the canonical serialisation of b. The result is what
// gets signed, and it must be carried verbatim; receivers never re-derive it.
func MarshalBody(b Body) ([]byte, error) {
	switch v := b.(type) {
	case Hello:
		return json.Marshal(helloWire{
			Type:         KindHello,
			From:         v.From,
			GUID:         v.GUID,
			Participants: v.Participants,
			TS:           v.TS,
		})
	case Text:
		return json.Marshal(textWire{
			Type:     KindText,
			From:     v.From,
			GUID:     v.GUID,
			TS:       v.TS,
			DataType: v.DataType,
			Data:     v.Data,
		})
	default:
		return nil, fmt.Errorf("unsupported body %T", b)
	}
}

// UnmarshalBody decodes a serialised body by its type tag.
func UnmarshalBody(data []byte) (Body, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case KindHello:
		var w helloWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return Hello{From: w.From, GUID: w.GUID, Participants: w.Participants, TS: w.TS}, nil
	case KindText:
		var w textWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return Text{From: w.From, GUID: w.GUID, TS: w.TS, DataType: w.DataType, Data: w.Data}, nil
	default:
		return nil, fmt.Errorf("unknown body type %q", head.Type)
	}
}

// SignedBody carries the exact signed body string and its base64 signature.
type SignedBody struct {
	Body      string `json:"message_body" validate:"required"`
	Signature string `json:"message_sign" validate:"required,base64"`
}

// Envelope is the per-recipient wire record handed to the relay.
// Every recipient of one send shares Ciphertext; only WrappedKey differs.
type Envelope struct {
	WrappedKey string `json:"encrypted_symmetric_key" validate:"required,base64"`
	Ciphertext string `json:"encrypted_data" validate:"required,base64"`
}

// Item is one mailbox entry as returned by the relay. TS is assigned by the
// relay in unix milliseconds; Data is the opaque payload.
type Item struct {
	ID   string `json:"id,omitempty"`
	TS   int64  `json:"ts"`
	Data string `json:"data"`
}
