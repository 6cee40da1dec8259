package client

import (
	"context"

	"cardtable/internal/domain"
	"cardtable/internal/wire"
)

// Requests are fire and forget: the outcome shows up as state changes or
// events, or not at all when the authority rejects the request.

func (c *Client) ClaimSeat(ctx context.Context, seat domain.Seat) error {
	return c.send(ctx, wire.OpClaimSeat, wire.ClaimSeatRequest{Seat: seat.String()})
}

func (c *Client) SpawnDeck(ctx context.Context, names []string, pos domain.Vec2) error {
	return c.send(ctx, wire.OpSpawnDeck, wire.SpawnDeckRequest{Names: names, X: pos.X, Y: pos.Y})
}

func (c *Client) DrawCard(ctx context.Context, deckID domain.EntityID) error {
	if err := c.controls(deckID); err != nil {
		return err
	}
	return c.send(ctx, wire.OpDrawCard, wire.DeckRequest{DeckID: deckID})
}

func (c *Client) TakeFromDeck(ctx context.Context, deckID domain.EntityID, position int) error {
	if err := c.controls(deckID); err != nil {
		return err
	}
	return c.send(ctx, wire.OpTakeFromDeck, wire.TakeFromDeckRequest{DeckID: deckID, Position: position})
}

func (c *Client) ShuffleDeck(ctx context.Context, deckID domain.EntityID) error {
	if err := c.controls(deckID); err != nil {
		return err
	}
	return c.send(ctx, wire.OpShuffleDeck, wire.DeckRequest{DeckID: deckID})
}

func (c *Client) FlipDeck(ctx context.Context, deckID domain.EntityID) error {
	if err := c.controls(deckID); err != nil {
		return err
	}
	return c.send(ctx, wire.OpFlipDeck, wire.DeckRequest{DeckID: deckID})
}

func (c *Client) HandToDeck(ctx context.Context, handID string, deckID domain.EntityID, onTop bool) error {
	if err := c.controls(deckID); err != nil {
		return err
	}
	return c.send(ctx, wire.OpHandToDeck, wire.HandToDeckRequest{HandID: handID, DeckID: deckID, OnTop: onTop})
}

func (c *Client) PlayFromHand(ctx context.Context, handID string, pos domain.Vec2, rotation float64) error {
	return c.send(ctx, wire.OpPlayFromHand, wire.PlayFromHandRequest{HandID: handID, X: pos.X, Y: pos.Y, Rotation: rotation})
}

// MoveCard sends a drag update. Send release once the drag ends.
func (c *Client) MoveCard(ctx context.Context, id domain.EntityID, pos domain.Vec2, rotation float64, withPile, release bool) error {
	if err := c.controls(id); err != nil {
		return err
	}
	return c.send(ctx, wire.OpMoveCard, wire.MoveCardRequest{
		CardID:   id,
		X:        pos.X,
		Y:        pos.Y,
		Rotation: rotation,
		WithPile: withPile,
		Release:  release,
	})
}

func (c *Client) CyclePile(ctx context.Context, id domain.EntityID, up bool) error {
	if err := c.controls(id); err != nil {
		return err
	}
	return c.send(ctx, wire.OpCyclePile, wire.CyclePileRequest{CardID: id, Up: up})
}

func (c *Client) ReturnToHand(ctx context.Context, id domain.EntityID) error {
	if err := c.controls(id); err != nil {
		return err
	}
	return c.send(ctx, wire.OpReturnToHand, wire.CardRequest{CardID: id})
}

func (c *Client) ReturnToDeck(ctx context.Context, id domain.EntityID) error {
	if err := c.controls(id); err != nil {
		return err
	}
	return c.send(ctx, wire.OpReturnToDeck, wire.CardRequest{CardID: id})
}

func (c *Client) AdjustExhaust(ctx context.Context, id domain.EntityID, delta int) error {
	if err := c.controls(id); err != nil {
		return err
	}
	return c.send(ctx, wire.OpAdjustExhaust, wire.AdjustExhaustRequest{CardID: id, Delta: delta})
}

func (c *Client) AdjustBuff(ctx context.Context, id domain.EntityID, power, health int) error {
	if err := c.controls(id); err != nil {
		return err
	}
	return c.send(ctx, wire.OpAdjustBuff, wire.AdjustBuffRequest{CardID: id, Power: power, Health: health})
}

func (c *Client) ClearBuff(ctx context.Context, id domain.EntityID) error {
	if err := c.controls(id); err != nil {
		return err
	}
	return c.send(ctx, wire.OpClearBuff, wire.CardRequest{CardID: id})
}

func (c *Client) SetResourceType(ctx context.Context, id domain.EntityID, r domain.ResourceType) error {
	if err := c.controls(id); err != nil {
		return err
	}
	return c.send(ctx, wire.OpSetResourceType, wire.SetResourceTypeRequest{CardID: id, Resource: r.String()})
}

// Delete is not pre-checked: the host may delete anything.
func (c *Client) Delete(ctx context.Context, id domain.EntityID) error {
	return c.send(ctx, wire.OpDelete, wire.CardRequest{CardID: id})
}

func (c *Client) SpawnResource(ctx context.Context) error {
	return c.send(ctx, wire.OpSpawnResource, wire.Empty{})
}

func (c *Client) AdjustHealth(ctx context.Context, seat domain.Seat, delta int) error {
	return c.send(ctx, wire.OpAdjustHealth, wire.AdjustHealthRequest{Seat: seat.String(), Delta: delta})
}

func (c *Client) RollDice(ctx context.Context) error {
	return c.send(ctx, wire.OpRollDice, wire.Empty{})
}

func (c *Client) ResetTable(ctx context.Context) error {
	return c.send(ctx, wire.OpResetTable, wire.Empty{})
}

// RequestSync asks for a fresh snapshot.
func (c *Client) RequestSync(ctx context.Context) error {
	return c.send(ctx, wire.OpRequestSync, wire.Empty{})
}
