package client

import (
	"bytes"
	"context"
	"math/rand"
	"testing"
	"time"

	"cardtable/internal/app"
	"cardtable/internal/config"
	"cardtable/internal/domain"
	"cardtable/internal/logging"
	"cardtable/internal/replica"
	"cardtable/internal/wire"
	"cardtable/internal/world"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	opCode int64
	data   []byte
}

type recordingSender struct {
	sent []sent
}

func (r *recordingSender) Send(_ context.Context, opCode int64, data []byte) error {
	r.sent = append(r.sent, sent{opCode: opCode, data: data})
	return nil
}

// authority stands in for the match handler: it owns the service and numbers
// deltas per participant.
type authority struct {
	svc     *app.Service
	store   *replica.Store
	cursors map[string]*replica.Cursor
}

func newAuthority(t *testing.T, users ...string) *authority {
	t.Helper()
	store := replica.NewAuthority(world.NewRegistry())
	svc := app.NewService(store, config.Default(), rand.New(rand.NewSource(1)))
	require.NoError(t, svc.Setup())
	for _, u := range users {
		_, err := svc.Join(u, false)
		require.NoError(t, err)
	}
	store.Drain()
	return &authority{svc: svc, store: store, cursors: make(map[string]*replica.Cursor)}
}

func (a *authority) connect(t *testing.T, c *Client) {
	t.Helper()
	a.cursors[c.Self()] = &replica.Cursor{}
	data := wire.MustMarshal(wire.Snapshot{Seq: 0, Changes: a.store.Snapshot(c.Self())})
	require.NoError(t, c.Receive(context.Background(), wire.OpSnapshot, data))
}

func (a *authority) deltas(clients ...*Client) map[string][]byte {
	changes := a.store.Drain()
	out := make(map[string][]byte)
	for _, c := range clients {
		batch := a.cursors[c.Self()].Stamp(changes, c.Self())
		if len(batch) > 0 {
			out[c.Self()] = wire.MustMarshal(wire.Delta{Changes: batch})
		}
	}
	return out
}

func (a *authority) flush(t *testing.T, clients ...*Client) {
	t.Helper()
	msgs := a.deltas(clients...)
	for _, c := range clients {
		if data, ok := msgs[c.Self()]; ok {
			require.NoError(t, c.Receive(context.Background(), wire.OpDelta, data))
		}
	}
}

func newClient(self string) (*Client, *recordingSender) {
	s := &recordingSender{}
	return New(self, s, config.Default(), logging.New(&bytes.Buffer{}, "debug")), s
}

func TestMirrorFollowsAuthority(t *testing.T) {
	a := newAuthority(t, "p1", "p2")
	c1, _ := newClient("p1")
	c2, _ := newClient("p2")
	a.connect(t, c1)
	a.connect(t, c2)

	deckID, _, err := a.svc.SpawnDeck("p1", []string{"A", "B", "C"}, domain.Vec2{})
	require.NoError(t, err)
	_, err = a.svc.ShuffleDeckSeeded("p1", deckID, 1)
	require.NoError(t, err)
	a.flush(t, c1, c2)

	_, err = a.svc.DrawCard("p1", deckID)
	require.NoError(t, err)
	a.flush(t, c1, c2)

	own, ok := c1.Store().Deck(deckID)
	require.True(t, ok)
	assert.Len(t, own.DrawOrder, 2)
	assert.Len(t, own.Contents, 3)
	require.Len(t, c1.Hand(), 1)

	theirs, ok := c2.Store().Deck(deckID)
	require.True(t, ok)
	assert.Equal(t, 2, theirs.Count)
	assert.Empty(t, theirs.Contents)
	assert.Empty(t, theirs.DrawOrder)
	assert.Empty(t, c2.Hand())
	assert.Equal(t, 1, c2.Store().Table().HandCounts["p1"])

	assert.Equal(t, a.cursors["p1"].Seq(), c1.Store().Seq())
	assert.Equal(t, a.cursors["p2"].Seq(), c2.Store().Seq())
}

func TestGapRequestsOneResync(t *testing.T) {
	a := newAuthority(t, "p1", "p2")
	c, s := newClient("p2")
	a.connect(t, c)

	_, err := a.svc.RollDice("p1")
	require.NoError(t, err)
	lost := a.deltas(c)["p2"]
	require.NotEmpty(t, lost)

	_, err = a.svc.RollDice("p1")
	require.NoError(t, err)
	next := a.deltas(c)["p2"]
	require.NoError(t, c.Receive(context.Background(), wire.OpDelta, next))
	require.NoError(t, c.Receive(context.Background(), wire.OpDelta, next))

	require.Len(t, s.sent, 1)
	assert.Equal(t, wire.OpRequestSync, s.sent[0].opCode)
	assert.True(t, c.Store().Stale())

	snap := wire.MustMarshal(wire.Snapshot{Seq: a.cursors["p2"].Seq(), Changes: a.store.Snapshot("p2")})
	require.NoError(t, c.Receive(context.Background(), wire.OpSnapshot, snap))
	assert.False(t, c.Store().Stale())
	assert.Equal(t, a.store.Table().Dice, c.Store().Table().Dice)
	assert.Equal(t, 2, c.Store().Table().RollID)

	_, err = a.svc.RollDice("p1")
	require.NoError(t, err)
	a.flush(t, c)
	assert.Equal(t, 3, c.Store().Table().RollID)
}

func TestRequestsArePreCheckedForOwnership(t *testing.T) {
	a := newAuthority(t, "p1", "p2")
	c2, s := newClient("p2")
	a.connect(t, c2)

	deckID, _, err := a.svc.SpawnDeck("p1", []string{"A"}, domain.Vec2{})
	require.NoError(t, err)
	a.flush(t, c2)

	assert.ErrorIs(t, c2.DrawCard(context.Background(), deckID), ErrNotOwner)
	assert.ErrorIs(t, c2.MoveCard(context.Background(), deckID, domain.Vec2{}, 0, false, true), ErrNotOwner)
	assert.Empty(t, s.sent)

	require.NoError(t, c2.Delete(context.Background(), deckID))
	require.NoError(t, c2.RollDice(context.Background()))
	require.Len(t, s.sent, 2)
	assert.Equal(t, wire.OpDelete, s.sent[0].opCode)

	var req wire.CardRequest
	require.NoError(t, wire.Unmarshal(s.sent[0].data, &req))
	assert.Equal(t, deckID, req.CardID)
}

func TestWaitForDeck(t *testing.T) {
	a := newAuthority(t, "p1", "p2")
	c2, _ := newClient("p2")
	a.connect(t, c2)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c2.WaitForDeck(ctx, "p1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	type result struct {
		deck replica.DeckState
		err  error
	}
	done := make(chan result, 1)
	go func() {
		d, err := c2.WaitForDeck(context.Background(), "p1")
		done <- result{d, err}
	}()

	deckID, _, err := a.svc.SpawnDeck("p1", []string{"A", "B"}, domain.Vec2{X: 3})
	require.NoError(t, err)
	a.flush(t, c2)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, deckID, r.deck.ID)
		assert.Equal(t, "p1", r.deck.Owner)
	case <-time.After(time.Second):
		t.Fatal("wait was not resolved by the spawn")
	}
}

func TestEventsReachHandler(t *testing.T) {
	c, _ := newClient("p1")
	var got []int64
	c.OnEvent(func(op int64, _ []byte) { got = append(got, op) })

	require.NoError(t, c.Receive(context.Background(), wire.OpDiceRolled, wire.MustMarshal(app.DiceRolledPayload{RollID: 1})))
	require.NoError(t, c.Receive(context.Background(), wire.OpPlayerJoined, nil))
	assert.Equal(t, []int64{wire.OpDiceRolled, wire.OpPlayerJoined}, got)

	assert.Error(t, c.Receive(context.Background(), wire.OpDelta, []byte{0xff, 0x01}))
}

func TestLocalPileQueries(t *testing.T) {
	a := newAuthority(t, "p1", "p2")
	c2, _ := newClient("p2")
	a.connect(t, c2)

	bottom, err := a.store.SpawnCard(domain.KindCard, "p1", "Bottom", domain.Transform{StackIndex: 30}, domain.ResourceNone)
	require.NoError(t, err)
	top, err := a.store.SpawnCard(domain.KindCard, "p1", "Top", domain.Transform{Pos: domain.Vec2{X: 0.2}, StackIndex: 31}, domain.ResourceNone)
	require.NoError(t, err)
	_, err = a.store.SpawnCard(domain.KindCard, "p2", "Mine", domain.Transform{Pos: domain.Vec2{X: 0.4}, StackIndex: 40}, domain.ResourceNone)
	require.NoError(t, err)
	deckID, _, err := a.svc.SpawnDeck("p2", nil, domain.Vec2{X: 4})
	require.NoError(t, err)
	a.flush(t, c2)

	pile := c2.Pile(bottom)
	require.Len(t, pile, 2)
	assert.Equal(t, bottom, pile[0].ID)
	assert.Equal(t, top, pile[1].ID)

	hit, ok := c2.TopAt(domain.Vec2{X: 0.1})
	require.True(t, ok)
	assert.Equal(t, "Mine", hit.Name)

	d, ok := c2.NearestOwnDeck(domain.Vec2{X: 1}, 5)
	require.True(t, ok)
	assert.Equal(t, deckID, d.ID)
	assert.Len(t, c2.MyDecks(), 1)
}
