package group

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ciphergroup/internal/domain"
	"ciphergroup/internal/services/state"
)

var (
	// ErrUnknownFriend is returned when a group is created with a name that
	// is not in the friend table.
	ErrUnknownFriend = errors.New("unknown friend")
	// ErrEmptyName is returned for a blank friend or group name.
	ErrEmptyName = errors.New("name must not be empty")
)

// Announcer sends the HELLO that introduces a group to its participants.
type Announcer interface {
	SendHello(ctx context.Context, guid domain.GroupID) error
}

// Service adds friends and creates groups, persisting after each change.
type Service struct {
	keeper *state.Keeper
	hello  Announcer
	now    func() time.Time
}

// New returns a group Service.
func New(keeper *state.Keeper, hello Announcer) *Service {
	return &Service{keeper: keeper, hello: hello, now: time.Now}
}

// AddFriend stores token under name. A taken name is a domain.ErrConflict;
// the existing entry is never replaced.
func (s *Service) AddFriend(ctx context.Context, name string, token domain.Token) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if token.IsZero() {
		return fmt.Errorf("%w: empty public key", domain.ErrMalformed)
	}
	return s.keeper.Update(ctx, func() error {
		if !s.keeper.Trust().AddFriend(name, token) {
			return fmt.Errorf("%w: friend %q already exists", domain.ErrConflict, name)
		}
		return nil
	})
}

// CreateGroup creates a group of the local identity plus the named friends,
// saves it, and announces it to every participant. The guid is the group
// name followed by the creation time in milliseconds.
func (s *Service) CreateGroup(ctx context.Context, name string, friends []string) (domain.GroupID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	guid := domain.GroupID(name + strconv.FormatInt(s.now().UnixMilli(), 10))
	err := s.keeper.Update(ctx, func() error {
		tr := s.keeper.Trust()
		participants := []domain.Token{s.keeper.Self()}
		for _, f := range friends {
			tok, ok := tr.FriendByName(f)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownFriend, f)
			}
			if containsToken(participants, tok) {
				continue
			}
			participants = append(participants, tok)
		}
		if !tr.AddGroup(guid, participants) {
			return fmt.Errorf("%w: group %q already exists", domain.ErrConflict, guid)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return guid, s.hello.SendHello(ctx, guid)
}

func containsToken(list []domain.Token, t domain.Token) bool {
	for _, x := range list {
		if x.Equal(t) {
			return true
		}
	}
	return false
}

// Compile-time assertion that Service implements domain.GroupService.
var _ domain.GroupService = (*Service)(nil)
