package nakama

import (
	"fmt"

	"cardtable/internal/app"
	"cardtable/internal/domain"
	"cardtable/internal/wire"
)

// requestHandler decodes one request body and applies it for userID.
type requestHandler func(svc *app.Service, userID string, data []byte) ([]app.Event, error)

var requestHandlers = map[int64]requestHandler{
	wire.OpClaimSeat: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.ClaimSeatRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		seat, ok := wire.ParseSeat(req.Seat)
		if !ok {
			return nil, fmt.Errorf("seat %q: %w", req.Seat, app.ErrInvalidSeat)
		}
		return svc.ClaimSeat(userID, seat)
	},
	wire.OpSpawnDeck: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.SpawnDeckRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		_, events, err := svc.SpawnDeck(userID, req.Names, domain.Vec2{X: req.X, Y: req.Y})
		return events, err
	},
	wire.OpDrawCard: deckHandler((*app.Service).DrawCard),
	wire.OpTakeFromDeck: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.TakeFromDeckRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return svc.TakeFromDeck(userID, req.DeckID, req.Position)
	},
	wire.OpShuffleDeck: deckHandler((*app.Service).ShuffleDeck),
	wire.OpFlipDeck:    deckHandler((*app.Service).FlipDeck),
	wire.OpHandToDeck: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.HandToDeckRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return svc.HandToDeck(userID, req.HandID, req.DeckID, req.OnTop)
	},
	wire.OpPlayFromHand: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.PlayFromHandRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		_, events, err := svc.PlayFromHand(userID, req.HandID, domain.Vec2{X: req.X, Y: req.Y}, req.Rotation)
		return events, err
	},
	wire.OpMoveCard: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.MoveCardRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return svc.MoveCard(userID, req.CardID, domain.Vec2{X: req.X, Y: req.Y}, req.Rotation, req.WithPile, req.Release)
	},
	wire.OpCyclePile: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.CyclePileRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return svc.CyclePile(userID, req.CardID, req.Up)
	},
	wire.OpReturnToHand: cardHandler((*app.Service).ReturnToHand),
	wire.OpReturnToDeck: cardHandler((*app.Service).ReturnToDeck),
	wire.OpAdjustExhaust: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.AdjustExhaustRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return svc.AdjustExhaust(userID, req.CardID, req.Delta)
	},
	wire.OpAdjustBuff: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.AdjustBuffRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return svc.AdjustBuff(userID, req.CardID, req.Power, req.Health)
	},
	wire.OpClearBuff: cardHandler((*app.Service).ClearBuff),
	wire.OpSetResourceType: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.SetResourceTypeRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		r, ok := domain.ParseResourceType(req.Resource)
		if !ok {
			return nil, fmt.Errorf("resource %q: %w", req.Resource, app.ErrInvalidRequest)
		}
		return svc.SetResourceType(userID, req.CardID, r)
	},
	wire.OpDelete:        cardHandler((*app.Service).Delete),
	wire.OpSpawnResource: emptyHandler((*app.Service).SpawnResource),
	wire.OpAdjustHealth: func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.AdjustHealthRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		seat, ok := wire.ParseSeat(req.Seat)
		if !ok || seat == domain.SeatSpectator {
			return nil, fmt.Errorf("seat %q: %w", req.Seat, app.ErrInvalidSeat)
		}
		return svc.AdjustHealth(userID, seat, req.Delta)
	},
	wire.OpRollDice:   emptyHandler((*app.Service).RollDice),
	wire.OpResetTable: emptyHandler((*app.Service).ResetTable),
}

func deckHandler(fn func(*app.Service, string, domain.EntityID) ([]app.Event, error)) requestHandler {
	return func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.DeckRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return fn(svc, userID, req.DeckID)
	}
}

func cardHandler(fn func(*app.Service, string, domain.EntityID) ([]app.Event, error)) requestHandler {
	return func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.CardRequest
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return fn(svc, userID, req.CardID)
	}
}

func emptyHandler(fn func(*app.Service, string) ([]app.Event, error)) requestHandler {
	return func(svc *app.Service, userID string, data []byte) ([]app.Event, error) {
		var req wire.Empty
		if err := wire.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return fn(svc, userID)
	}
}

var eventOpCodes = map[app.EventKind]int64{
	app.EventPlayerJoined:    wire.OpPlayerJoined,
	app.EventPlayerLeft:      wire.OpPlayerLeft,
	app.EventHostChanged:     wire.OpHostChanged,
	app.EventCardDrawn:       wire.OpCardDrawn,
	app.EventDeckShuffled:    wire.OpDeckShuffled,
	app.EventPileOrder:       wire.OpPileOrder,
	app.EventReturnedToHand:  wire.OpReturnedToHand,
	app.EventReturnedToDeck:  wire.OpReturnedToDeck,
	app.EventResourceSpawned: wire.OpResourceSpawned,
	app.EventDiceRolled:      wire.OpDiceRolled,
	app.EventTableReset:      wire.OpTableReset,
}

func eventOpCode(kind app.EventKind) (int64, bool) {
	op, ok := eventOpCodes[kind]
	return op, ok
}
