package wire

import (
	"cardtable/internal/domain"
	"cardtable/internal/replica"
)

// Requests sent by participants. Ids are entity ids as assigned by the
// server; hand cards are addressed by their opaque handle.

type ClaimSeatRequest struct {
	Seat string `json:"seat"`
}

type SpawnDeckRequest struct {
	Names []string `json:"names"`
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
}

// DeckRequest addresses draw, shuffle and flip.
type DeckRequest struct {
	DeckID domain.EntityID `json:"deck_id"`
}

type TakeFromDeckRequest struct {
	DeckID   domain.EntityID `json:"deck_id"`
	Position int             `json:"position"`
}

type HandToDeckRequest struct {
	HandID string          `json:"hand_id"`
	DeckID domain.EntityID `json:"deck_id"`
	OnTop  bool            `json:"on_top"`
}

type PlayFromHandRequest struct {
	HandID   string  `json:"hand_id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rot"`
}

type MoveCardRequest struct {
	CardID   domain.EntityID `json:"card_id"`
	X        float64         `json:"x"`
	Y        float64         `json:"y"`
	Rotation float64         `json:"rot"`
	WithPile bool            `json:"with_pile"`
	Release  bool            `json:"release"`
}

type CyclePileRequest struct {
	CardID domain.EntityID `json:"card_id"`
	Up     bool            `json:"up"`
}

// CardRequest addresses return-to-hand, return-to-deck, clear-buff and delete.
type CardRequest struct {
	CardID domain.EntityID `json:"card_id"`
}

type AdjustExhaustRequest struct {
	CardID domain.EntityID `json:"card_id"`
	Delta  int             `json:"delta"`
}

type AdjustBuffRequest struct {
	CardID domain.EntityID `json:"card_id"`
	Power  int             `json:"power"`
	Health int             `json:"health"`
}

type SetResourceTypeRequest struct {
	CardID   domain.EntityID `json:"card_id"`
	Resource string          `json:"resource"`
}

type AdjustHealthRequest struct {
	Seat  string `json:"seat"`
	Delta int    `json:"delta"`
}

// Empty is the body of requests that carry no arguments.
type Empty struct{}

// Delta carries the changes a recipient may see since its last delta.
type Delta struct {
	Changes []replica.Change `json:"changes"`
}

// Snapshot replaces a recipient's whole view; later deltas continue from Seq.
type Snapshot struct {
	Seq     uint64           `json:"seq"`
	Changes []replica.Change `json:"changes"`
}

// ParseSeat maps a seat name to a seat.
func ParseSeat(name string) (domain.Seat, bool) {
	for _, s := range []domain.Seat{domain.SeatPlayer1, domain.SeatPlayer2, domain.SeatSpectator} {
		if s.String() == name {
			return s, true
		}
	}
	return domain.SeatSpectator, false
}
