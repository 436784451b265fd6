package types

// StateVersion is the current layout of the persisted State.
const StateVersion = 1

// Directory is the persisted trust data: friends by name, group participant
// lists by guid and the rendered message log of every group.
type Directory struct {
	Friends  map[string]Token     `json:"friends"`
	Groups   map[GroupID][]Token  `json:"groups"`
	Messages map[GroupID][]string `json:"messages"`
}

// WindowEntry is one accepted message in the replay window. Fingerprint is
// the exact verified body bytes.
type WindowEntry struct {
	TS          int64  `json:"ts"`
	Fingerprint []byte `json:"fingerprint"`
}

// Window is the persisted replay window.
type Window struct {
	MaxTS   int64         `json:"max_ts"`
	SizeMS  int64         `json:"size_ms"`
	Entries []WindowEntry `json:"entries"`
}

// State is everything the client keeps between runs.
type State struct {
	Directory

	Version        int     `json:"version"`
	Keys           KeyPair `json:"keys"`
	LastReceivedTS int64   `json:"last_received_ts"`
	Window         Window  `json:"receive_window"`
}
