package replica

import (
	"fmt"
	"sort"

	"cardtable/internal/domain"
)

// SpawnCard registers a new card or token owned by owner and replicates its
// initial fields.
func (s *Store) SpawnCard(kind domain.Kind, owner, name string, xf domain.Transform, res domain.ResourceType) (domain.EntityID, error) {
	if s.mode != Authority {
		return 0, ErrReadOnly
	}
	if !kind.OnBoard() {
		return 0, fmt.Errorf("%w: cannot spawn %q as a card", ErrWrongKind, kind)
	}
	e := s.reg.Spawn(kind, owner)
	err := s.commit(
		Change{Op: OpSpawn, Entity: e.ID, Spawn: &e},
		Change{Op: OpSet, Entity: e.ID, Field: FieldName, Str: name},
		Change{Op: OpSet, Entity: e.ID, Field: FieldTransform, Xform: &xf},
		Change{Op: OpSet, Entity: e.ID, Field: FieldResource, Int: int(res)},
	)
	return e.ID, err
}

// SpawnDeck registers a new empty, face-down deck owned by owner.
func (s *Store) SpawnDeck(owner string, xf domain.Transform) (domain.EntityID, error) {
	if s.mode != Authority {
		return 0, ErrReadOnly
	}
	e := s.reg.Spawn(domain.KindDeck, owner)
	err := s.commit(
		Change{Op: OpSpawn, Entity: e.ID, Spawn: &e},
		Change{Op: OpSet, Entity: e.ID, Field: FieldTransform, Xform: &xf},
	)
	return e.ID, err
}

// Despawn removes a card, token or deck. Despawning a stale id is a no-op.
func (s *Store) Despawn(id domain.EntityID) error {
	return s.commit(Change{Op: OpDespawn, Entity: id})
}

// SetTransform moves a card, token or deck.
func (s *Store) SetTransform(id domain.EntityID, xf domain.Transform) error {
	return s.commit(Change{Op: OpSet, Entity: id, Field: FieldTransform, Xform: &xf})
}

// SetStackIndex changes only the stack layer of a card.
func (s *Store) SetStackIndex(id domain.EntityID, index int) error {
	card, ok := s.Card(id)
	if !ok {
		return ErrUnknownEntity
	}
	xf := card.Transform
	xf.StackIndex = index
	return s.SetTransform(id, xf)
}

// SetName renames a card.
func (s *Store) SetName(id domain.EntityID, name string) error {
	if err := s.requireCard(id); err != nil {
		return err
	}
	return s.commit(Change{Op: OpSet, Entity: id, Field: FieldName, Str: name})
}

// SetExhaust stores an already clamped exhaust counter.
func (s *Store) SetExhaust(id domain.EntityID, v int) error {
	if err := s.requireCard(id); err != nil {
		return err
	}
	return s.commit(Change{Op: OpSet, Entity: id, Field: FieldExhaust, Int: v})
}

// SetBuff stores already clamped power and health deltas.
func (s *Store) SetBuff(id domain.EntityID, power, health int) error {
	if err := s.requireCard(id); err != nil {
		return err
	}
	return s.commit(
		Change{Op: OpSet, Entity: id, Field: FieldPower, Int: power},
		Change{Op: OpSet, Entity: id, Field: FieldHealth, Int: health},
	)
}

// SetResource changes the flavour of a token.
func (s *Store) SetResource(id domain.EntityID, r domain.ResourceType) error {
	if err := s.requireCard(id); err != nil {
		return err
	}
	return s.commit(Change{Op: OpSet, Entity: id, Field: FieldResource, Int: int(r)})
}

// SetFaceUp flips a deck and refreshes its public top face.
func (s *Store) SetFaceUp(id domain.EntityID, faceUp bool) error {
	if err := s.commit(Change{Op: OpSet, Entity: id, Field: FieldFaceUp, Bool: faceUp}); err != nil {
		return err
	}
	return s.syncDeckSummary(id)
}

// AppendContent adds a name to a deck's content list and returns its index.
// The name is not drawable until its index is placed in the draw order.
func (s *Store) AppendContent(id domain.EntityID, name string) (int, error) {
	deck, ok := s.Deck(id)
	if !ok {
		return 0, ErrUnknownEntity
	}
	idx := len(deck.Contents)
	err := s.commit(Change{Op: OpInsert, Entity: id, Field: FieldContents, Index: idx, Str: name, Audience: deck.Owner})
	return idx, err
}

// InsertDrawOrder places content index contentIdx at position pos of the draw
// order (0 is the top).
func (s *Store) InsertDrawOrder(id domain.EntityID, pos, contentIdx int) error {
	deck, ok := s.Deck(id)
	if !ok {
		return ErrUnknownEntity
	}
	if pos < 0 || pos > len(deck.DrawOrder) || contentIdx < 0 || contentIdx >= len(deck.Contents) {
		return ErrOutOfRange
	}
	for _, existing := range deck.DrawOrder {
		if existing == contentIdx {
			return fmt.Errorf("%w: content %d already in draw order", ErrInvalidChange, contentIdx)
		}
	}
	if err := s.commit(Change{Op: OpInsert, Entity: id, Field: FieldDrawOrder, Index: pos, Int: contentIdx, Audience: deck.Owner}); err != nil {
		return err
	}
	return s.syncDeckSummary(id)
}

// RemoveDrawOrder removes position pos from the draw order and returns the
// content index that was there.
func (s *Store) RemoveDrawOrder(id domain.EntityID, pos int) (int, error) {
	deck, ok := s.Deck(id)
	if !ok {
		return 0, ErrUnknownEntity
	}
	if pos < 0 || pos >= len(deck.DrawOrder) {
		return 0, ErrOutOfRange
	}
	contentIdx := deck.DrawOrder[pos]
	if err := s.commit(Change{Op: OpRemove, Entity: id, Field: FieldDrawOrder, Index: pos, Int: contentIdx, Audience: deck.Owner}); err != nil {
		return 0, err
	}
	return contentIdx, s.syncDeckSummary(id)
}

// SetDrawOrder replaces the draw order with a permutation of itself.
// Only positions whose value changed produce changes.
func (s *Store) SetDrawOrder(id domain.EntityID, order []int) error {
	deck, ok := s.Deck(id)
	if !ok {
		return ErrUnknownEntity
	}
	if !samePermutation(deck.DrawOrder, order) {
		return fmt.Errorf("%w: new draw order is not a permutation of the old one", ErrInvalidChange)
	}
	changes := make([]Change, 0, len(order))
	for pos, idx := range order {
		if deck.DrawOrder[pos] != idx {
			changes = append(changes, Change{Op: OpValue, Entity: id, Field: FieldDrawOrder, Index: pos, Int: idx, Audience: deck.Owner})
		}
	}
	if err := s.commit(changes...); err != nil {
		return err
	}
	return s.syncDeckSummary(id)
}

func samePermutation(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[int]int, len(a))
	for _, v := range a {
		seen[v]++
	}
	for _, v := range b {
		if seen[v] == 0 {
			return false
		}
		seen[v]--
	}
	return true
}

// syncDeckSummary recomputes the public count and top face of a deck.
func (s *Store) syncDeckSummary(id domain.EntityID) error {
	s.mu.RLock()
	deck, ok := s.decks[id]
	if !ok {
		s.mu.RUnlock()
		return ErrUnknownEntity
	}
	count, top := deck.summary()
	s.mu.RUnlock()
	return s.commit(
		Change{Op: OpSet, Entity: id, Field: FieldCount, Int: count},
		Change{Op: OpSet, Entity: id, Field: FieldTopFace, Str: top},
	)
}

func (s *Store) requireCard(id domain.EntityID) error {
	if s.mode != Authority {
		return ErrReadOnly
	}
	if _, ok := s.Card(id); !ok {
		return ErrUnknownEntity
	}
	return nil
}

// SetSeat assigns a player seat; an empty user frees it.
func (s *Store) SetSeat(seat domain.Seat, user string) error {
	if !seat.Valid() {
		return ErrOutOfRange
	}
	return s.commit(Change{Op: OpSet, Entity: domain.TableEntity, Field: FieldSeat, Index: int(seat), Participant: user})
}

// SetHost records the participant allowed to run host-only operations.
func (s *Store) SetHost(user string) error {
	return s.commit(Change{Op: OpSet, Entity: domain.TableEntity, Field: FieldHost, Participant: user})
}

// SetLife stores an already clamped health total for a seat.
func (s *Store) SetLife(seat domain.Seat, v int) error {
	if !seat.Valid() {
		return ErrOutOfRange
	}
	return s.commit(Change{Op: OpSet, Entity: domain.TableEntity, Field: FieldLife, Index: int(seat), Int: v})
}

// SetDice records a roll. The roll id always advances so repeated values
// still notify.
func (s *Store) SetDice(d1, d2 int) (int, error) {
	rollID := s.Table().RollID + 1
	err := s.commit(
		Change{Op: OpSet, Entity: domain.TableEntity, Field: FieldDie, Index: 0, Int: d1},
		Change{Op: OpSet, Entity: domain.TableEntity, Field: FieldDie, Index: 1, Int: d2},
		Change{Op: OpSet, Entity: domain.TableEntity, Field: FieldRollID, Int: rollID},
	)
	return rollID, err
}

// AddHandCard appends a card to the private hand of participant.
func (s *Store) AddHandCard(participant string, hc HandCard) error {
	if participant == "" || hc.ID == "" {
		return ErrInvalidChange
	}
	hand := s.Hand(participant)
	return s.commit(
		Change{Op: OpInsert, Entity: domain.TableEntity, Field: FieldHand, Index: len(hand), Participant: participant, Key: hc.ID, Str: hc.Name, Audience: participant},
		Change{Op: OpSet, Entity: domain.TableEntity, Field: FieldHandCount, Participant: participant, Int: len(hand) + 1},
	)
}

// RemoveHandCard removes the hand card with the given handle.
func (s *Store) RemoveHandCard(participant, handID string) (HandCard, error) {
	hand := s.Hand(participant)
	for i, hc := range hand {
		if hc.ID != handID {
			continue
		}
		err := s.commit(
			Change{Op: OpRemove, Entity: domain.TableEntity, Field: FieldHand, Index: i, Participant: participant, Key: hc.ID, Str: hc.Name, Audience: participant},
			Change{Op: OpSet, Entity: domain.TableEntity, Field: FieldHandCount, Participant: participant, Int: len(hand) - 1},
		)
		return hc, err
	}
	return HandCard{}, fmt.Errorf("hand card %q: %w", handID, ErrOutOfRange)
}

// ClearHand empties the hand of participant.
func (s *Store) ClearHand(participant string) error {
	hand := s.Hand(participant)
	changes := make([]Change, 0, len(hand)+1)
	for i := len(hand) - 1; i >= 0; i-- {
		hc := hand[i]
		changes = append(changes, Change{Op: OpRemove, Entity: domain.TableEntity, Field: FieldHand, Index: i, Participant: participant, Key: hc.ID, Str: hc.Name, Audience: participant})
	}
	changes = append(changes, Change{Op: OpSet, Entity: domain.TableEntity, Field: FieldHandCount, Participant: participant, Int: 0})
	return s.commit(changes...)
}

// HandOwners returns every participant currently holding cards.
func (s *Store) HandOwners() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.hands))
	for p := range s.hands {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
