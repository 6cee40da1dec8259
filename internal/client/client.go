// Package client is the participant side of a table: a read-only mirror of
// the authority's state, local pile queries over it, and typed request
// senders.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cardtable/internal/config"
	"cardtable/internal/domain"
	"cardtable/internal/pile"
	"cardtable/internal/replica"
	"cardtable/internal/wire"
	"cardtable/internal/world"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Sender delivers one request to the authority.
type Sender interface {
	Send(ctx context.Context, opCode int64, data []byte) error
}

// EventHandler observes server events other than deltas and snapshots.
type EventHandler func(opCode int64, data []byte)

var (
	ErrNotOwner = errors.New("entity is not controlled by this participant")
	ErrNoDeck   = errors.New("no deck of this participant is live")
)

type Client struct {
	self   string
	store  *replica.Store
	piles  pile.Resolver
	sender Sender
	logger runtime.Logger
	wait   time.Duration

	mu        sync.Mutex
	onEvent   EventHandler
	resyncing bool
}

// New returns a client for participant self sending through sender.
func New(self string, sender Sender, cfg config.TableConfig, logger runtime.Logger) *Client {
	return &Client{
		self:   self,
		store:  replica.NewMirror(world.NewRegistry(), self),
		piles:  pile.NewResolver(cfg.GroupRadius, domain.Vec2{X: cfg.CardWidth, Y: cfg.CardHeight}),
		sender: sender,
		logger: logger.WithField("participant", self),
		wait:   time.Duration(cfg.WaitTimeoutSeconds) * time.Second,
	}
}

func (c *Client) Self() string { return c.self }

// Store is the local mirror. Subscribe to it to refresh visuals.
func (c *Client) Store() *replica.Store { return c.store }

// Resolver is the pile geometry shared with the authority.
func (c *Client) Resolver() pile.Resolver { return c.piles }

// OnEvent sets the handler for server events.
func (c *Client) OnEvent(fn EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvent = fn
}

// Receive handles one message from the authority. A delta that does not
// continue the mirror's sequence triggers a single resync request; further
// deltas are ignored until the snapshot arrives.
func (c *Client) Receive(ctx context.Context, opCode int64, data []byte) error {
	switch opCode {
	case wire.OpDelta:
		var delta wire.Delta
		if err := wire.Unmarshal(data, &delta); err != nil {
			return fmt.Errorf("decode delta: %w", err)
		}
		err := c.store.Apply(delta.Changes)
		if err == nil {
			return nil
		}
		c.logger.Warn("Mirror out of sync: %v", err)
		return c.requestResync(ctx)

	case wire.OpSnapshot:
		var snap wire.Snapshot
		if err := wire.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("decode snapshot: %w", err)
		}
		c.mu.Lock()
		c.resyncing = false
		c.mu.Unlock()
		if err := c.store.Reset(snap.Seq, snap.Changes); err != nil {
			c.logger.Error("Snapshot at seq %d did not apply cleanly: %v", snap.Seq, err)
			return c.requestResync(ctx)
		}
		return nil
	}

	c.mu.Lock()
	fn := c.onEvent
	c.mu.Unlock()
	if fn != nil {
		fn(opCode, data)
	}
	return nil
}

func (c *Client) requestResync(ctx context.Context) error {
	c.mu.Lock()
	if c.resyncing {
		c.mu.Unlock()
		return nil
	}
	c.resyncing = true
	c.mu.Unlock()
	return c.send(ctx, wire.OpRequestSync, wire.Empty{})
}

func (c *Client) send(ctx context.Context, opCode int64, msg any) error {
	data, err := wire.Marshal(msg)
	if err != nil {
		return err
	}
	return c.sender.Send(ctx, opCode, data)
}

// controls reports whether the local mirror says self owns id. The authority
// checks again; this only avoids sending requests that are bound to fail.
func (c *Client) controls(id domain.EntityID) error {
	if !c.store.Registry().IsOwnedBy(id, c.self) {
		return fmt.Errorf("entity %d: %w", id, ErrNotOwner)
	}
	return nil
}

// WaitForDeck blocks until a deck owned by owner is live in the mirror, or
// the configured wait timeout passes.
func (c *Client) WaitForDeck(ctx context.Context, owner string) (replica.DeckState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.wait)
	defer cancel()
	e, err := c.store.Registry().WaitFor(ctx, world.OwnedBy(domain.KindDeck, owner))
	if err != nil {
		c.logger.Warn("Gave up waiting for a deck of %s: %v", owner, err)
		return replica.DeckState{}, fmt.Errorf("wait for deck: %w", err)
	}
	d, ok := c.store.Deck(e.ID)
	if !ok {
		return replica.DeckState{}, ErrNoDeck
	}
	return d, nil
}

// WaitForEntity blocks until id is live in the mirror, bounded like WaitForDeck.
func (c *Client) WaitForEntity(ctx context.Context, id domain.EntityID) (world.Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.wait)
	defer cancel()
	e, err := c.store.Registry().WaitFor(ctx, world.WithID(id))
	if err != nil {
		c.logger.Warn("Gave up waiting for entity %d: %v", id, err)
		return world.Entity{}, fmt.Errorf("wait for entity %d: %w", id, err)
	}
	return e, nil
}

// Hand is the participant's own hand as last replicated.
func (c *Client) Hand() []replica.HandCard {
	return c.store.Hand(c.self)
}

// Pile returns the pile containing id, bottom to top.
func (c *Client) Pile(id domain.EntityID) []replica.CardState {
	return c.piles.Members(c.store, id)
}

// TopAt picks the card a pointer at point would target.
func (c *Client) TopAt(point domain.Vec2) (replica.CardState, bool) {
	return c.piles.TopAt(c.store, point)
}

// NearestOwnDeck returns the deck a return-to-deck or return-to-hand at pos
// would use, if any is in reach.
func (c *Client) NearestOwnDeck(pos domain.Vec2, radius float64) (replica.DeckState, bool) {
	return c.piles.NearestDeck(c.store, pos, radius, c.self)
}

// MyDecks returns the decks owned by this participant.
func (c *Client) MyDecks() []replica.DeckState {
	var out []replica.DeckState
	for _, d := range c.store.Decks() {
		if d.Owner == c.self {
			out = append(out, d)
		}
	}
	return out
}
