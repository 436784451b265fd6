package message_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciphergroup/internal/crypto"
	"ciphergroup/internal/domain"
	"ciphergroup/internal/logging"
	"ciphergroup/internal/mailbox"
	"ciphergroup/internal/relay"
	"ciphergroup/internal/replay"
	"ciphergroup/internal/services/group"
	"ciphergroup/internal/services/message"
	"ciphergroup/internal/services/state"
	"ciphergroup/internal/store"
	"ciphergroup/internal/trust"
)

const pass = "Correct-Horse-9"

var (
	keysOnce sync.Once
	keys     map[string]domain.KeyPair
)

// testKeys generates the fixed cast once per test binary.
func testKeys(t *testing.T) map[string]domain.KeyPair {
	t.Helper()
	keysOnce.Do(func() {
		keys = make(map[string]domain.KeyPair)
		for _, name := range []string{"alice", "bob", "eve"} {
			kp, err := crypto.GenerateKeyPairSize(2048)
			if err != nil {
				panic(err)
			}
			keys[name] = kp
		}
	})
	return keys
}

type peer struct {
	kp     domain.KeyPair
	fs     *store.StateFileStore
	keeper *state.Keeper
	msg    *message.Service
	group  *group.Service
}

func (p *peer) token() domain.Token { return p.kp.PublicKey }

type world struct {
	relay domain.RelayClient
	peers map[string]*peer
}

func newWorld(t *testing.T) *world {
	t.Helper()
	srv := httptest.NewServer(relay.NewServer(mailbox.NewMemory(0), logging.Discard()).Routes())
	t.Cleanup(srv.Close)

	w := &world{
		relay: relay.NewHTTP(srv.URL, 5*time.Second),
		peers: make(map[string]*peer),
	}
	for name, kp := range testKeys(t) {
		fs := store.NewStateFileStore(t.TempDir())
		require.NoError(t, fs.SaveState(pass, domain.State{Keys: kp}))
		k, err := state.Open(fs, pass, replay.DefaultWindow)
		require.NoError(t, err)
		msg := message.New(k, w.relay, logging.Discard())
		w.peers[name] = &peer{kp: kp, fs: fs, keeper: k, msg: msg, group: group.New(k, msg)}
	}
	return w
}

func (w *world) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, w.peers[a].group.AddFriend(ctx, b, w.peers[b].token()))
	require.NoError(t, w.peers[b].group.AddFriend(ctx, a, w.peers[a].token()))
}

// inbox returns the raw items waiting for name, without processing them.
func (w *world) inbox(t *testing.T, name string) []domain.Item {
	t.Helper()
	items, err := w.relay.FetchSince(context.Background(), w.peers[name].keeper.Identifier(), 0)
	require.NoError(t, err)
	return items
}

func TestEndToEnd_GroupAndText(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	alice, bob := w.peers["alice"], w.peers["bob"]

	guid, err := alice.group.CreateGroup(ctx, "weekend", []string{"bob"})
	require.NoError(t, err)

	// One envelope per participant, the sender included.
	assert.Len(t, w.inbox(t, "alice"), 1)
	assert.Len(t, w.inbox(t, "bob"), 1)

	n, err := bob.msg.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	members, ok := bob.keeper.Trust().Participants(guid)
	require.True(t, ok)
	assert.Equal(t, []domain.Token{alice.token(), bob.token()}, members)

	require.NoError(t, alice.msg.SendText(ctx, guid, "hi"))

	_, err = bob.msg.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice: hi"}, bob.keeper.Trust().History(guid))

	_, err = alice.msg.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"You: hi"}, alice.keeper.Trust().History(guid))

	// The cursor moved past everything; nothing is redelivered.
	n, err = bob.msg.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEndToEnd_StateSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	alice, bob := w.peers["alice"], w.peers["bob"]

	guid, err := alice.group.CreateGroup(ctx, "g", []string{"bob"})
	require.NoError(t, err)
	require.NoError(t, alice.msg.SendText(ctx, guid, "persist me"))
	_, err = bob.msg.Poll(ctx)
	require.NoError(t, err)

	cursor := bob.keeper.Cursor()
	assert.Positive(t, cursor)

	reopened, err := state.Open(bob.fs, pass, replay.DefaultWindow)
	require.NoError(t, err)
	assert.Equal(t, cursor, reopened.Cursor())
	assert.Equal(t, []string{"alice: persist me"}, reopened.Trust().History(guid))
	assert.True(t, reopened.Trust().IsMember(guid, alice.token()))
}

func TestHello_FromNonFriendDropped(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	eve, bob := w.peers["eve"], w.peers["bob"]

	// Eve knows Bob; Bob has never heard of Eve.
	require.NoError(t, eve.group.AddFriend(ctx, "bob", bob.token()))
	guid, err := eve.group.CreateGroup(ctx, "trap", []string{"bob"})
	require.NoError(t, err)

	items := w.inbox(t, "bob")
	require.Len(t, items, 1)

	// The signature is valid; authorization is what rejects it.
	err = bob.msg.Process(ctx, items[0])
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "unauthorized", message.Reason(err))

	_, ok := bob.keeper.Trust().Participants(guid)
	assert.False(t, ok)
}

func TestHello_FromSelfCreatesUnknownGroup(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	alice, bob := w.peers["alice"], w.peers["bob"]

	// Alice has no friend entry for herself and does not know the group yet,
	// as when it was created from another device holding her key.
	raw, err := domain.MarshalBody(domain.Hello{
		From:         alice.token(),
		GUID:         "elsewhere-1",
		Participants: []domain.Token{alice.token(), bob.token()},
		TS:           time.Now().UnixMilli(),
	})
	require.NoError(t, err)
	sig, err := crypto.Sign(alice.keeper.PrivateKey(), raw)
	require.NoError(t, err)
	payload, err := json.Marshal(domain.SignedBody{Body: string(raw), Signature: sig})
	require.NoError(t, err)
	require.NoError(t, alice.msg.FanOut(ctx, payload, []domain.Token{alice.token()}))

	require.False(t, alice.keeper.Trust().IsFriend(alice.token()))
	n, err := alice.msg.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	members, ok := alice.keeper.Trust().Participants("elsewhere-1")
	require.True(t, ok)
	assert.Equal(t, []domain.Token{alice.token(), bob.token()}, members)
}

func TestText_FromNonMemberDropped(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	w.befriend(t, "eve", "bob")
	alice, bob, eve := w.peers["alice"], w.peers["bob"], w.peers["eve"]

	guid, err := alice.group.CreateGroup(ctx, "g", []string{"bob"})
	require.NoError(t, err)
	_, err = bob.msg.Poll(ctx)
	require.NoError(t, err)

	// Eve fakes local knowledge of the group so she can address Bob.
	require.True(t, eve.keeper.Trust().AddGroup(guid, []domain.Token{eve.token(), bob.token()}))
	require.NoError(t, eve.msg.SendText(ctx, guid, "let me in"))

	items := w.inbox(t, "bob")
	last := items[len(items)-1]
	err = bob.msg.Process(ctx, last)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, bob.keeper.Trust().History(guid))
}

func TestText_UnknownGroupDropped(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	alice, bob := w.peers["alice"], w.peers["bob"]

	require.True(t, alice.keeper.Trust().AddGroup("ghost", []domain.Token{bob.token()}))
	require.NoError(t, alice.msg.SendText(ctx, "ghost", "boo"))

	items := w.inbox(t, "bob")
	require.Len(t, items, 1)
	require.ErrorIs(t, bob.msg.Process(ctx, items[0]), domain.ErrUnauthorized)
	assert.Empty(t, bob.keeper.Trust().History("ghost"))
}

func TestHello_SecondForSameGuidIsNoop(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	alice, bob, eve := w.peers["alice"], w.peers["bob"], w.peers["eve"]

	guid, err := alice.group.CreateGroup(ctx, "g", []string{"bob"})
	require.NoError(t, err)
	_, err = bob.msg.Poll(ctx)
	require.NoError(t, err)

	// A later HELLO for the same guid tries to add Eve.
	require.NoError(t, alice.msg.Send(ctx, domain.Hello{
		From:         alice.token(),
		GUID:         guid,
		Participants: []domain.Token{alice.token(), bob.token(), eve.token()},
		TS:           time.Now().UnixMilli() + 1,
	}))
	_, err = bob.msg.Poll(ctx)
	require.NoError(t, err)

	members, _ := bob.keeper.Trust().Participants(guid)
	assert.Equal(t, []domain.Token{alice.token(), bob.token()}, members)
	assert.False(t, bob.keeper.Trust().IsMember(guid, eve.token()))
}

func TestReplay_CapturedEnvelopeRejected(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	alice, bob := w.peers["alice"], w.peers["bob"]

	guid, err := alice.group.CreateGroup(ctx, "g", []string{"bob"})
	require.NoError(t, err)
	require.NoError(t, alice.msg.SendText(ctx, guid, "once"))
	_, err = bob.msg.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice: once"}, bob.keeper.Trust().History(guid))

	// An attacker re-posts the captured envelope to Bob's mailbox.
	items := w.inbox(t, "bob")
	captured := items[len(items)-1]
	require.NoError(t, w.relay.Enqueue(ctx, bob.keeper.Identifier(), []byte(captured.Data)))

	n, err := bob.msg.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"alice: once"}, bob.keeper.Trust().History(guid))

	err = bob.msg.Process(ctx, captured)
	require.ErrorIs(t, err, replay.ErrDuplicate)
	assert.Equal(t, "duplicate", message.Reason(err))
}

func TestPoll_KeepsChangesFromAnotherSession(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	alice, bob, eve := w.peers["alice"], w.peers["bob"], w.peers["eve"]

	// A second session over Bob's state, as a foreground command would open
	// while the receive loop keeps running.
	other, err := state.Open(bob.fs, pass, replay.DefaultWindow)
	require.NoError(t, err)
	otherMsg := message.New(other, w.relay, logging.Discard())
	require.NoError(t, group.New(other, otherMsg).AddFriend(ctx, "eve", eve.token()))

	guid, err := alice.group.CreateGroup(ctx, "g", []string{"bob"})
	require.NoError(t, err)
	n, err := bob.msg.Poll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.True(t, bob.keeper.Trust().IsFriend(eve.token()))

	reopened, err := state.Open(bob.fs, pass, replay.DefaultWindow)
	require.NoError(t, err)
	_, ok := reopened.Trust().FriendByName("eve")
	assert.True(t, ok)
	_, ok = reopened.Trust().Participants(guid)
	assert.True(t, ok)

	// The other session picks up the cursor and window instead of
	// re-fetching with its stale ones.
	n, err = otherMsg.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, bob.keeper.Cursor(), other.Cursor())
	assert.True(t, other.Trust().IsMember(guid, alice.token()))
}

func TestProcess_NotForMe(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	alice, bob := w.peers["alice"], w.peers["bob"]

	_, err := alice.group.CreateGroup(ctx, "g", []string{"bob"})
	require.NoError(t, err)

	// Alice's own copy, misrouted to Bob.
	mine := w.inbox(t, "alice")
	require.Len(t, mine, 1)
	err = bob.msg.Process(ctx, mine[0])
	require.ErrorIs(t, err, domain.ErrNotForMe)
	assert.Equal(t, "not_for_me", message.Reason(err))
}

func TestProcess_ForgedSignatureDropped(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	alice, bob, eve := w.peers["alice"], w.peers["bob"], w.peers["eve"]

	guid, err := alice.group.CreateGroup(ctx, "g", []string{"bob"})
	require.NoError(t, err)
	_, err = bob.msg.Poll(ctx)
	require.NoError(t, err)

	// Eve claims to be Alice but signs with her own key.
	raw, err := domain.MarshalBody(domain.Text{
		From:     alice.token(),
		GUID:     guid,
		TS:       time.Now().UnixMilli(),
		DataType: domain.DataTypeText,
		Data:     "send money",
	})
	require.NoError(t, err)
	sig, err := crypto.Sign(eve.keeper.PrivateKey(), raw)
	require.NoError(t, err)
	payload, err := json.Marshal(domain.SignedBody{Body: string(raw), Signature: sig})
	require.NoError(t, err)
	require.NoError(t, eve.msg.FanOut(ctx, payload, []domain.Token{bob.token()}))

	items := w.inbox(t, "bob")
	err = bob.msg.Process(ctx, items[len(items)-1])
	require.ErrorIs(t, err, domain.ErrSignature)
	assert.Empty(t, bob.keeper.Trust().History(guid))
}

func TestPoll_MalformedItemsDoNotBlockBatch(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	alice, bob, eve := w.peers["alice"], w.peers["bob"], w.peers["eve"]

	guid, err := alice.group.CreateGroup(ctx, "g", []string{"bob"})
	require.NoError(t, err)

	bobID := bob.keeper.Identifier()
	require.NoError(t, w.relay.Enqueue(ctx, bobID, []byte("not json")))
	require.NoError(t, w.relay.Enqueue(ctx, bobID, []byte(`{"encrypted_symmetric_key":"","encrypted_data":""}`)))
	// Valid envelope whose plaintext is not a signed body.
	require.NoError(t, eve.msg.FanOut(ctx, []byte("plain garbage"), []domain.Token{bob.token()}))
	require.NoError(t, alice.msg.SendText(ctx, guid, "still arrives"))

	n, err := bob.msg.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []string{"alice: still arrives"}, bob.keeper.Trust().History(guid))
}

func TestProcess_MalformedReasons(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	bob, eve := w.peers["bob"], w.peers["eve"]

	err := bob.msg.Process(ctx, domain.Item{Data: "{"})
	require.ErrorIs(t, err, domain.ErrMalformed)

	require.NoError(t, eve.msg.FanOut(ctx, []byte(`{"message_body":"{\"type\":\"PING\"}","message_sign":"AAAA"}`), []domain.Token{bob.token()}))
	items := w.inbox(t, "bob")
	require.Len(t, items, 1)
	err = bob.msg.Process(ctx, items[0])
	require.ErrorIs(t, err, domain.ErrMalformed)
	assert.Equal(t, "malformed", message.Reason(err))
}

func TestSend_UnknownGroup(t *testing.T) {
	w := newWorld(t)
	err := w.peers["alice"].msg.SendText(context.Background(), "nope", "hi")
	require.ErrorIs(t, err, trust.ErrUnknownGroup)
}

// flakyRelay fails every enqueue addressed to one recipient.
type flakyRelay struct {
	domain.RelayClient
	broken string
}

func (f flakyRelay) Enqueue(ctx context.Context, recipient string, payload []byte) error {
	if recipient == f.broken {
		return errors.New("connection refused")
	}
	return f.RelayClient.Enqueue(ctx, recipient, payload)
}

func TestFanOut_OneRecipientFailingDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	alice, bob, eve := w.peers["alice"], w.peers["bob"], w.peers["eve"]

	flaky := flakyRelay{RelayClient: w.relay, broken: bob.keeper.Identifier()}
	svc := message.New(alice.keeper, flaky, logging.Discard())

	err := svc.FanOut(ctx, []byte("payload"), []domain.Token{bob.token(), eve.token(), alice.token()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), bob.keeper.Identifier())

	assert.Empty(t, w.inbox(t, "bob"))
	assert.Len(t, w.inbox(t, "eve"), 1)
	assert.Len(t, w.inbox(t, "alice"), 1)

	// Every recipient got the same ciphertext; only the wrapped key differs.
	var a, e domain.Envelope
	require.NoError(t, json.Unmarshal([]byte(w.inbox(t, "alice")[0].Data), &a))
	require.NoError(t, json.Unmarshal([]byte(w.inbox(t, "eve")[0].Data), &e))
	assert.Equal(t, a.Ciphertext, e.Ciphertext)
	assert.NotEqual(t, a.WrappedKey, e.WrappedKey)
}

func TestLiveFeed_ReceivesLinesForOpenGroup(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	w.befriend(t, "alice", "bob")
	alice, bob := w.peers["alice"], w.peers["bob"]

	guid, err := alice.group.CreateGroup(ctx, "g", []string{"bob"})
	require.NoError(t, err)
	_, err = bob.msg.Poll(ctx)
	require.NoError(t, err)

	feed, err := bob.keeper.Trust().Open(guid)
	require.NoError(t, err)
	defer bob.keeper.Trust().Close()

	require.NoError(t, alice.msg.SendText(ctx, guid, "live"))
	_, err = bob.msg.Poll(ctx)
	require.NoError(t, err)

	select {
	case line := <-feed:
		assert.Equal(t, "alice: live", line)
	case <-time.After(time.Second):
		t.Fatal("no live line")
	}
}
