package app

import (
	"cardtable/internal/domain"
	"cardtable/internal/pile"
	"cardtable/internal/replica"
)

// EventKind identifies emitted table events for Nakama dispatch.
type EventKind string

const (
	EventPlayerJoined    EventKind = "player_joined"
	EventPlayerLeft      EventKind = "player_left"
	EventHostChanged     EventKind = "host_changed"
	EventCardDrawn       EventKind = "card_drawn"
	EventDeckShuffled    EventKind = "deck_shuffled"
	EventPileOrder       EventKind = "pile_order"
	EventReturnedToHand  EventKind = "returned_to_hand"
	EventReturnedToDeck  EventKind = "returned_to_deck"
	EventResourceSpawned EventKind = "resource_spawned"
	EventDiceRolled      EventKind = "dice_rolled"
	EventTableReset      EventKind = "table_reset"
)

// Event is a table event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type PlayerJoinedPayload struct {
	UserID string `json:"user_id"`
	Seat   string `json:"seat"`
	Host   bool   `json:"host"`
}

type PlayerLeftPayload struct {
	UserID string `json:"user_id"`
}

type HostChangedPayload struct {
	UserID string `json:"user_id"`
}

// CardDrawnPayload only ever goes to the participant who drew.
type CardDrawnPayload struct {
	DeckID domain.EntityID  `json:"deck_id"`
	Card   replica.HandCard `json:"card"`
}

// DeckShuffledPayload signals completion without revealing the new order.
type DeckShuffledPayload struct {
	DeckID domain.EntityID `json:"deck_id"`
	Count  int             `json:"count"`
}

type PileOrderPayload struct {
	Assignments []pile.Assignment `json:"assignments"`
}

type ReturnedToHandPayload struct {
	CardID domain.EntityID  `json:"card_id"`
	Card   replica.HandCard `json:"card"`
}

type ReturnedToDeckPayload struct {
	DeckID domain.EntityID   `json:"deck_id"`
	Cards  []domain.EntityID `json:"cards"`
}

type ResourceSpawnedPayload struct {
	CardID domain.EntityID `json:"card_id"`
	Owner  string          `json:"owner"`
}

type DiceRolledPayload struct {
	UserID string `json:"user_id"`
	RollID int    `json:"roll_id"`
	Dice   [2]int `json:"dice"`
}

type TableResetPayload struct {
	UserID string `json:"user_id"`
}
