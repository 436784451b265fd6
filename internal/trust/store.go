// Package trust owns the friend table, the group table, the per-group message
// log and the group that is currently open for live display.
//
// All of it sits behind one mutex so the receive loop and the interactive
// flow can both mutate it. Every public-key comparison goes through
// domain.Token.Equal.
package trust

import (
	"errors"
	"slices"
	"sort"
	"sync"

	"ciphergroup/internal/domain"
)

// UnknownName is rendered for tokens that are not in the friend table.
const UnknownName = "unknown"

// liveBuffer bounds how far a live reader may lag before lines are dropped
// from the live feed. The message log keeps them regardless.
const liveBuffer = 64

// ErrUnknownGroup is returned by Open for a guid that does not exist.
var ErrUnknownGroup = errors.New("unknown group")

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	friends  map[string]domain.Token
	groups   map[domain.GroupID][]domain.Token
	messages map[domain.GroupID][]string

	active domain.GroupID
	live   chan string
}

// New builds a store from persisted tables. The maps in d are copied.
func New(d domain.Directory) *Store {
	s := &Store{
		friends:  make(map[string]domain.Token, len(d.Friends)),
		groups:   make(map[domain.GroupID][]domain.Token, len(d.Groups)),
		messages: make(map[domain.GroupID][]string, len(d.Messages)),
	}
	for name, tok := range d.Friends {
		s.friends[name] = domain.ParseToken(tok.String())
	}
	for guid, members := range d.Groups {
		s.groups[guid] = canonicalAll(members)
	}
	for guid, lines := range d.Messages {
		s.messages[guid] = slices.Clone(lines)
	}
	return s
}

// IsFriend reports whether token belongs to any friend.
func (s *Store) IsFriend(token domain.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nameOf(token)
	return ok
}

// IsMember reports whether token is a participant of guid. Unknown groups
// have no members.
func (s *Store) IsMember(guid domain.GroupID, token domain.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.groups[guid] {
		if p.Equal(token) {
			return true
		}
	}
	return false
}

// AddFriend records name → token. It never overwrites: false if the name is
// already taken.
func (s *Store) AddFriend(name string, token domain.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.friends[name]; taken {
		return false
	}
	s.friends[name] = domain.ParseToken(token.String())
	return true
}

// AddGroup records guid → participants. First writer wins: false if the
// guid already exists. Participant lists are immutable afterwards.
func (s *Store) AddGroup(guid domain.GroupID, participants []domain.Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.groups[guid]; exists {
		return false
	}
	s.groups[guid] = canonicalAll(participants)
	return true
}

// ResolveName returns the friend name for token, or UnknownName.
func (s *Store) ResolveName(token domain.Token) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name, ok := s.nameOf(token); ok {
		return name
	}
	return UnknownName
}

// FriendByName returns the token stored under name.
func (s *Store) FriendByName(name string) (domain.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, ok := s.friends[name]
	return tok, ok
}

// Participants returns a copy of the ordered participant list of guid.
func (s *Store) Participants(guid domain.GroupID) ([]domain.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.groups[guid]
	return slices.Clone(members), ok
}

// Friends returns the friend names in sorted order.
func (s *Store) Friends() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.friends))
	for name := range s.friends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Groups returns the known guids in sorted order.
func (s *Store) Groups() []domain.GroupID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.GroupID, 0, len(s.groups))
	for guid := range s.groups {
		out = append(out, guid)
	}
	slices.Sort(out)
	return out
}

// History returns a copy of the message log of guid.
func (s *Store) History(guid domain.GroupID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages[guid])
}

// AppendMessage appends line to the log of guid and, if guid is the open
// group, pushes it to the live feed. The push never blocks.
func (s *Store) AppendMessage(guid domain.GroupID, line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[guid] = append(s.messages[guid], line)

	if s.live != nil && s.active == guid {
		select {
		case s.live <- line:
		default:
		}
	}
}

// Open makes guid the group shown live and returns its feed. Opening a group
// closes the feed of the previously open one.
func (s *Store) Open(guid domain.GroupID) (<-chan string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[guid]; !ok {
		return nil, ErrUnknownGroup
	}
	s.closeLocked()
	s.active = guid
	s.live = make(chan string, liveBuffer)
	return s.live, nil
}

// Close stops live display. The feed channel is closed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// Active returns the open group, or "" when none is open.
func (s *Store) Active() domain.GroupID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Reload replaces the tables with d, keeping the open group. Lines that d
// adds to the open group's log are pushed to the live feed.
func (s *Store) Reload(d domain.Directory) {
	fresh := New(d)

	s.mu.Lock()
	defer s.mu.Unlock()
	var pending []string
	if s.live != nil {
		have := len(s.messages[s.active])
		if lines := fresh.messages[s.active]; len(lines) > have {
			pending = lines[have:]
		}
	}
	s.friends = fresh.friends
	s.groups = fresh.groups
	s.messages = fresh.messages

	for _, line := range pending {
		select {
		case s.live <- line:
		default:
		}
	}
}

// Snapshot copies the tables for persistence.
func (s *Store) Snapshot() domain.Directory {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := domain.Directory{
		Friends:  make(map[string]domain.Token, len(s.friends)),
		Groups:   make(map[domain.GroupID][]domain.Token, len(s.groups)),
		Messages: make(map[domain.GroupID][]string, len(s.messages)),
	}
	for name, tok := range s.friends {
		d.Friends[name] = tok
	}
	for guid, members := range s.groups {
		d.Groups[guid] = slices.Clone(members)
	}
	for guid, lines := range s.messages {
		d.Messages[guid] = slices.Clone(lines)
	}
	return d
}

func (s *Store) closeLocked() {
	if s.live != nil {
		close(s.live)
	}
	s.live = nil
	s.active = ""
}

// nameOf scans names in sorted order so a token listed under two names
// always resolves the same way.
func (s *Store) nameOf(token domain.Token) (string, bool) {
	names := make([]string, 0, len(s.friends))
	for name, tok := range s.friends {
		if tok.Equal(token) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", false
	}
	sort.Strings(names)
	return names[0], true
}

func canonicalAll(tokens []domain.Token) []domain.Token {
	out := make([]domain.Token, len(tokens))
	for i, t := range tokens {
		out[i] = domain.ParseToken(t.String())
	}
	return out
}
