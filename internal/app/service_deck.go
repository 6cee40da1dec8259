package app

import (
	"fmt"

	"cardtable/internal/deck"
	"cardtable/internal/domain"
	"cardtable/internal/replica"
)

// SpawnDeck imports a deck owned by userID at pos, face down with the draw
// order matching names.
func (s *Service) SpawnDeck(userID string, names []string, pos domain.Vec2) (domain.EntityID, []Event, error) {
	if !finite(pos.X, pos.Y) {
		return 0, nil, ErrInvalidRequest
	}
	if len(names) > s.cfg.MaxDeckSize {
		return 0, nil, fmt.Errorf("%w: %d > %d", ErrDeckTooLarge, len(names), s.cfg.MaxDeckSize)
	}
	for _, n := range names {
		if !domain.ValidName(n) {
			return 0, nil, fmt.Errorf("%w: %q", deck.ErrInvalidName, n)
		}
	}
	id, err := s.store.SpawnDeck(userID, domain.Transform{Pos: pos, StackIndex: s.cfg.DefaultStackIndex})
	if err != nil {
		return 0, nil, err
	}
	if err := s.decks.Initialize(id, names); err != nil {
		return 0, nil, err
	}
	return id, nil, nil
}

// DrawCard moves the top card of an owned deck into the drawer's hand. Only
// the drawer learns its name. Drawing from an empty deck does nothing.
func (s *Service) DrawCard(userID string, deckID domain.EntityID) ([]Event, error) {
	return s.TakeFromDeck(userID, deckID, 0)
}

// TakeFromDeck moves the card at draw position pos into the hand.
func (s *Service) TakeFromDeck(userID string, deckID domain.EntityID, pos int) ([]Event, error) {
	if _, err := s.requireOwnedDeck(userID, deckID); err != nil {
		return nil, err
	}
	if len(s.store.Hand(userID)) >= MaxHandSize {
		return nil, ErrHandFull
	}
	drawn, ok, err := s.decks.TakeAt(deckID, pos)
	if err != nil || !ok {
		return nil, err
	}
	hc := replica.HandCard{ID: s.handID(), Name: drawn.Name}
	if err := s.store.AddHandCard(userID, hc); err != nil {
		return nil, err
	}
	return []Event{{
		Kind:       EventCardDrawn,
		Payload:    CardDrawnPayload{DeckID: deckID, Card: hc},
		Recipients: []string{userID},
	}}, nil
}

// ShuffleDeck reorders an owned deck with a fresh seed. Everyone is told the
// shuffle happened; nobody but the owner's mirror sees the order.
func (s *Service) ShuffleDeck(userID string, deckID domain.EntityID) ([]Event, error) {
	return s.ShuffleDeckSeeded(userID, deckID, s.rng.Int63())
}

// ShuffleDeckSeeded is ShuffleDeck with a caller-chosen seed, for replays.
func (s *Service) ShuffleDeckSeeded(userID string, deckID domain.EntityID, seed int64) ([]Event, error) {
	if _, err := s.requireOwnedDeck(userID, deckID); err != nil {
		return nil, err
	}
	shuffled, err := s.decks.Shuffle(deckID, seed)
	if err != nil || !shuffled {
		return nil, err
	}
	d, _ := s.store.Deck(deckID)
	return []Event{{
		Kind:    EventDeckShuffled,
		Payload: DeckShuffledPayload{DeckID: deckID, Count: d.Count},
	}}, nil
}

// FlipDeck toggles whether the top card of an owned deck is shown.
func (s *Service) FlipDeck(userID string, deckID domain.EntityID) ([]Event, error) {
	if _, err := s.requireOwnedDeck(userID, deckID); err != nil {
		return nil, err
	}
	_, err := s.decks.ToggleFaceUp(deckID)
	return nil, err
}

// HandToDeck puts a hand card on top of, or under, an owned deck.
func (s *Service) HandToDeck(userID, handID string, deckID domain.EntityID, onTop bool) ([]Event, error) {
	if _, err := s.requireOwnedDeck(userID, deckID); err != nil {
		return nil, err
	}
	if _, ok := s.handCard(userID, handID); !ok {
		return nil, ErrUnknownHandCard
	}
	if err := s.checkDeckRoom(deckID, 1); err != nil {
		return nil, err
	}
	hc, err := s.store.RemoveHandCard(userID, handID)
	if err != nil {
		return nil, err
	}
	return nil, s.decks.Insert(deckID, hc.Name, onTop)
}

// checkDeckRoom rejects adding n cards when the deck's content list would
// pass MaxDeckSize. Drawn cards keep their content slot.
func (s *Service) checkDeckRoom(deckID domain.EntityID, n int) error {
	d, ok := s.store.Deck(deckID)
	if !ok {
		return ErrUnknownEntity
	}
	if len(d.Contents)+n > s.cfg.MaxDeckSize {
		return fmt.Errorf("%w: %d + %d > %d", ErrDeckTooLarge, len(d.Contents), n, s.cfg.MaxDeckSize)
	}
	return nil
}

func (s *Service) handCard(userID, handID string) (replica.HandCard, bool) {
	for _, hc := range s.store.Hand(userID) {
		if hc.ID == handID {
			return hc, true
		}
	}
	return replica.HandCard{}, false
}
