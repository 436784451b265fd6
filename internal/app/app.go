package app

import (
	"ciphergroup/internal/receiver"
	"ciphergroup/internal/services/group"
	"ciphergroup/internal/services/message"
	"ciphergroup/internal/services/state"
)

// Session is the unlocked client: loaded state plus the services that act
// on it.
type Session struct {
	State    *state.Keeper
	Messages *message.Service
	Groups   *group.Service
	Receiver *receiver.Loop
}

// Open unlocks the state with passphrase and builds the services around it.
func (w *Wire) Open(passphrase string) (*Session, error) {
	k, err := state.Open(w.Store, passphrase, w.Config.ReplayWindow)
	if err != nil {
		return nil, err
	}
	msgs := message.New(k, w.Relay, w.Log.WithField("component", "message"))
	return &Session{
		State:    k,
		Messages: msgs,
		Groups:   group.New(k, msgs),
		Receiver: receiver.New(msgs, w.Config.PollInterval, w.Config.RelayTimeout, w.Log.WithField("component", "receiver")),
	}, nil
}
