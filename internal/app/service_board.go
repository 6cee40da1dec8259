package app

import (
	"fmt"

	"cardtable/internal/domain"
	"cardtable/internal/pile"
	"cardtable/internal/replica"
)

// PlayFromHand spawns a hand card onto the board at pos, owned by the player.
// The card lands SpawnYOffset above pos and then settles like a released
// drag.
func (s *Service) PlayFromHand(userID, handID string, pos domain.Vec2, rotation float64) (domain.EntityID, []Event, error) {
	if !finite(pos.X, pos.Y, rotation) {
		return 0, nil, ErrInvalidRequest
	}
	if _, ok := s.handCard(userID, handID); !ok {
		return 0, nil, ErrUnknownHandCard
	}
	hc, err := s.store.RemoveHandCard(userID, handID)
	if err != nil {
		return 0, nil, err
	}
	xf := domain.Transform{
		Pos:        domain.Vec2{X: pos.X, Y: pos.Y + s.cfg.SpawnYOffset},
		Rotation:   domain.SnapRotation(rotation),
		StackIndex: s.cfg.DefaultStackIndex,
	}
	id, err := s.store.SpawnCard(domain.KindCard, userID, hc.Name, xf, domain.ResourceNone)
	if err != nil {
		return 0, nil, err
	}
	events, err := s.settle(id)
	return id, events, err
}

// MoveCard drags an owned card to pos. With withPile the rest of the pile
// under the card's old position moves by the same offset. On release a card
// dropped on a deck or token is pushed clear of it, with its group when one
// was dragged; otherwise the dragged card is promoted to the top of the pile
// it was dropped on.
func (s *Service) MoveCard(userID string, id domain.EntityID, pos domain.Vec2, rotation float64, withPile, release bool) ([]Event, error) {
	if !finite(pos.X, pos.Y, rotation) {
		return nil, ErrInvalidRequest
	}
	card, err := s.requireOwnedCard(userID, id)
	if err != nil {
		return nil, err
	}

	var group []replica.CardState
	if withPile {
		group = s.piles.Members(s.store, id)
	}
	delta := pos.Sub(card.Transform.Pos)

	xf := card.Transform
	xf.Pos = pos
	xf.Rotation = domain.SnapRotation(rotation)
	if err := s.store.SetTransform(id, xf); err != nil {
		return nil, err
	}
	for _, m := range group {
		if m.ID == id {
			continue
		}
		mxf := m.Transform
		mxf.Pos = mxf.Pos.Add(delta)
		if err := s.store.SetTransform(m.ID, mxf); err != nil {
			return nil, err
		}
	}

	if !release {
		return nil, nil
	}
	if len(group) > 1 {
		pushed, err := s.pushGroupClear(id, group)
		if err != nil || pushed {
			return nil, err
		}
		return s.promote(id)
	}
	return s.settle(id)
}

// settle resolves where a released card ends up.
func (s *Service) settle(id domain.EntityID) ([]Event, error) {
	card, ok := s.store.Card(id)
	if !ok {
		return nil, ErrUnknownEntity
	}
	if push, blocked := s.blockerPush(card); blocked {
		xf := card.Transform
		xf.Pos = xf.Pos.Add(push)
		return nil, s.store.SetTransform(id, xf)
	}
	if !card.Groupable() {
		return nil, nil
	}
	return s.promote(id)
}

// promote puts id on top of the pile around its current position.
func (s *Service) promote(id domain.EntityID) ([]Event, error) {
	members := s.piles.Members(s.store, id)
	return s.reorder(members, pile.SetAsTop(members, id))
}

// pushGroupClear moves a dragged pile off whatever the lead card landed on,
// keeping the pile's shape. It reports whether the group had to move.
func (s *Service) pushGroupClear(lead domain.EntityID, group []replica.CardState) (bool, error) {
	card, ok := s.store.Card(lead)
	if !ok {
		return false, ErrUnknownEntity
	}
	push, blocked := s.blockerPush(card)
	if !blocked {
		return false, nil
	}
	for _, m := range group {
		cur, ok := s.store.Card(m.ID)
		if !ok {
			continue
		}
		xf := cur.Transform
		xf.Pos = xf.Pos.Add(push)
		if err := s.store.SetTransform(m.ID, xf); err != nil {
			return false, err
		}
	}
	return true, nil
}

// blockerPush returns the displacement clearing card from an overlapped deck,
// or for groupable cards from an overlapped token.
func (s *Service) blockerPush(card replica.CardState) (domain.Vec2, bool) {
	fp := s.piles.Footprint(card.Transform)
	if d, ok := s.piles.OverlappingDeck(s.store.Decks(), card.Transform); ok {
		return pile.PushOut(fp, s.piles.Footprint(d.Transform)), true
	}
	if !card.Groupable() {
		return domain.Vec2{}, false
	}
	if tok, ok := s.piles.OverlappingToken(s.store.Cards(), card.ID, card.Transform); ok {
		return pile.PushOut(fp, s.piles.Footprint(tok.Transform)), true
	}
	return domain.Vec2{}, false
}

// CyclePile rotates the pile containing an owned card.
func (s *Service) CyclePile(userID string, id domain.EntityID, up bool) ([]Event, error) {
	card, err := s.requireOwnedCard(userID, id)
	if err != nil {
		return nil, err
	}
	if !card.Groupable() {
		return nil, fmt.Errorf("cycle token %d: %w", id, ErrWrongKind)
	}
	members := s.piles.Members(s.store, id)
	return s.reorder(members, pile.Cycle(members, up))
}

// reorder writes stack index assignments and announces the ones that changed.
func (s *Service) reorder(members []replica.CardState, assignments []pile.Assignment) ([]Event, error) {
	changed := pile.Changed(members, assignments)
	if len(changed) == 0 {
		return nil, nil
	}
	for _, a := range changed {
		if err := s.store.SetStackIndex(a.ID, a.StackIndex); err != nil {
			return nil, err
		}
	}
	return []Event{{
		Kind:    EventPileOrder,
		Payload: PileOrderPayload{Assignments: changed},
	}}, nil
}

// ReturnToHand takes an owned card off the board into its owner's hand. The
// card must be within reach of one of the owner's decks.
func (s *Service) ReturnToHand(userID string, id domain.EntityID) ([]Event, error) {
	card, err := s.requireOwnedCard(userID, id)
	if err != nil {
		return nil, err
	}
	if !card.Groupable() {
		return nil, fmt.Errorf("return token %d: %w", id, ErrWrongKind)
	}
	if _, ok := s.piles.NearestDeck(s.store, card.Transform.Pos, s.cfg.DeckSearchRadius, userID); !ok {
		return nil, ErrNoDeckInRange
	}
	if len(s.store.Hand(userID)) >= MaxHandSize {
		return nil, ErrHandFull
	}

	if err := s.store.Despawn(id); err != nil {
		return nil, err
	}
	hc := replica.HandCard{ID: s.handID(), Name: card.Name}
	if err := s.store.AddHandCard(userID, hc); err != nil {
		return nil, err
	}
	return []Event{{
		Kind:       EventReturnedToHand,
		Payload:    ReturnedToHandPayload{CardID: id, Card: hc},
		Recipients: []string{userID},
	}}, nil
}

// ReturnToDeck puts the pile containing an owned card under the nearest deck
// the owner has within reach. The pile's top card goes in first, so the
// pile's bottom card ends up last in the deck.
func (s *Service) ReturnToDeck(userID string, id domain.EntityID) ([]Event, error) {
	card, err := s.requireOwnedCard(userID, id)
	if err != nil {
		return nil, err
	}
	if !card.Groupable() {
		return nil, fmt.Errorf("return token %d: %w", id, ErrWrongKind)
	}
	target, ok := s.piles.NearestDeck(s.store, card.Transform.Pos, s.cfg.DeckSearchRadius, userID)
	if !ok {
		return nil, ErrNoDeckInRange
	}

	members := s.piles.Members(s.store, id)
	if len(members) == 0 {
		members = []replica.CardState{card}
	}
	if err := s.checkDeckRoom(target.ID, len(members)); err != nil {
		return nil, err
	}
	returned := make([]domain.EntityID, 0, len(members))
	for i := len(members) - 1; i >= 0; i-- {
		m := members[i]
		if err := s.decks.Insert(target.ID, m.Name, false); err != nil {
			return nil, err
		}
		if err := s.store.Despawn(m.ID); err != nil {
			return nil, err
		}
		returned = append(returned, m.ID)
	}
	return []Event{{
		Kind:    EventReturnedToDeck,
		Payload: ReturnedToDeckPayload{DeckID: target.ID, Cards: returned},
	}}, nil
}

// AdjustExhaust changes the exhaust counter of an owned card or token.
func (s *Service) AdjustExhaust(userID string, id domain.EntityID, delta int) ([]Event, error) {
	card, err := s.requireOwnedCard(userID, id)
	if err != nil {
		return nil, err
	}
	return nil, s.store.SetExhaust(id, domain.AddExhaust(card.Exhaust, delta))
}

// AdjustBuff changes the power and health deltas of an owned card.
func (s *Service) AdjustBuff(userID string, id domain.EntityID, power, health int) ([]Event, error) {
	card, err := s.requireOwnedCard(userID, id)
	if err != nil {
		return nil, err
	}
	return nil, s.store.SetBuff(id, domain.AddBuff(card.Power, power), domain.AddBuff(card.Health, health))
}

// ClearBuff resets both buff deltas of an owned card.
func (s *Service) ClearBuff(userID string, id domain.EntityID) ([]Event, error) {
	if _, err := s.requireOwnedCard(userID, id); err != nil {
		return nil, err
	}
	return nil, s.store.SetBuff(id, 0, 0)
}

// SetResourceType changes the flavour of an owned resource token.
func (s *Service) SetResourceType(userID string, id domain.EntityID, r domain.ResourceType) ([]Event, error) {
	if !r.Valid() {
		return nil, ErrInvalidRequest
	}
	card, err := s.requireOwnedCard(userID, id)
	if err != nil {
		return nil, err
	}
	if card.Kind != domain.KindResource {
		return nil, fmt.Errorf("set resource on %s %d: %w", card.Kind, id, ErrWrongKind)
	}
	return nil, s.store.SetResource(id, r)
}

// SpawnResource places a resource token at the requester's seat spawn point.
func (s *Service) SpawnResource(userID string) ([]Event, error) {
	table := s.store.Table()
	seat := domain.SeatOf(&table.Seats, userID)
	if seat == domain.SeatSpectator {
		return nil, ErrNotSeated
	}
	sp := s.cfg.ResourceSpawns[seat]
	rot := float64(resourceRotation)
	if seat == domain.SeatPlayer1 {
		rot += 180
	}
	xf := domain.Transform{
		Pos:        domain.Vec2{X: sp.X, Y: sp.Y},
		Rotation:   domain.SnapRotation(rot),
		StackIndex: s.cfg.DefaultStackIndex,
	}
	id, err := s.store.SpawnCard(domain.KindResource, userID, resourceName, xf, domain.ResourceNone)
	if err != nil {
		return nil, err
	}
	return []Event{{
		Kind:    EventResourceSpawned,
		Payload: ResourceSpawnedPayload{CardID: id, Owner: userID},
	}}, nil
}
