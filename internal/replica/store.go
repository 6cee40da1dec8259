// Package replica holds the replicated card, deck and table state.
//
// A Store runs either as the authority, which accepts writes and journals
// every change for fan-out, or as a mirror, which is read-only and only
// changes by applying batches received from the authority. Both modes go
// through the same apply path, so local listeners observe the same ordered
// change stream on every participant.
package replica

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"cardtable/internal/domain"
	"cardtable/internal/world"
)

var (
	ErrReadOnly      = errors.New("store is a read-only mirror")
	ErrUnknownEntity = fmt.Errorf("unknown entity: %w", world.ErrStale)
	ErrWrongKind     = errors.New("entity has the wrong kind for this field")
	ErrOutOfRange    = errors.New("index out of range")
	ErrInvalidChange = errors.New("malformed change")
	ErrSequenceGap   = errors.New("change sequence gap")
)

// Mode selects authority or mirror behaviour.
type Mode int

const (
	Authority Mode = iota
	Mirror
)

// Listener receives changes in application order.
type Listener func(Change)

// Store is the replicated state of one table.
type Store struct {
	mu    sync.RWMutex
	mode  Mode
	self  string
	reg   *world.Registry
	cards map[domain.EntityID]*CardState
	decks map[domain.EntityID]*DeckState
	hands map[string][]HandCard
	table TableState

	journal []Change
	// seq counts journaled changes on the authority and the last applied
	// change on a mirror.
	seq   uint64
	stale bool

	subMu   sync.Mutex
	subs    []*Subscription
	nextSub uint64
}

// NewAuthority returns a writable store that assigns ids through reg.
func NewAuthority(reg *world.Registry) *Store {
	return newStore(Authority, "", reg)
}

// NewMirror returns a read-only store for participant self.
func NewMirror(reg *world.Registry, self string) *Store {
	return newStore(Mirror, self, reg)
}

func newStore(mode Mode, self string, reg *world.Registry) *Store {
	return &Store{
		mode:  mode,
		self:  self,
		reg:   reg,
		cards: make(map[domain.EntityID]*CardState),
		decks: make(map[domain.EntityID]*DeckState),
		hands: make(map[string][]HandCard),
		table: TableState{HandCounts: make(map[string]int)},
	}
}

// Mode reports whether the store is the authority or a mirror.
func (s *Store) Mode() Mode {
	return s.mode
}

// Registry returns the identity registry backing the store.
func (s *Store) Registry() *world.Registry {
	return s.reg
}

// Card returns a copy of a card or token state.
func (s *Store) Card(id domain.EntityID) (CardState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return CardState{}, false
	}
	return *c, true
}

// Cards returns every card and token ordered by id.
func (s *Store) Cards() []CardState {
	s.mu.RLock()
	out := make([]CardState, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, *c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Deck returns a copy of a deck state.
func (s *Store) Deck(id domain.EntityID) (DeckState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decks[id]
	if !ok {
		return DeckState{}, false
	}
	return d.clone(), true
}

// Decks returns every deck ordered by id.
func (s *Store) Decks() []DeckState {
	s.mu.RLock()
	out := make([]DeckState, 0, len(s.decks))
	for _, d := range s.decks {
		out = append(out, d.clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Hand returns the hand of participant as known to this store.
// A mirror only knows its own hand.
func (s *Store) Hand(participant string) []HandCard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]HandCard(nil), s.hands[participant]...)
}

// Table returns a copy of the table-wide state.
func (s *Store) Table() TableState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.clone()
}

// Seq returns the journal position on the authority, or the last applied
// sequence number on a mirror.
func (s *Store) Seq() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// Stale reports whether a mirror detected loss and is waiting for a snapshot.
func (s *Store) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// Drain returns the journaled changes since the last drain.
func (s *Store) Drain() []Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.journal
	s.journal = nil
	return out
}

// Apply applies a batch received from the authority to a mirror.
// On a sequence gap the batch is dropped, the mirror is marked stale and
// ErrSequenceGap is returned; the caller should request a snapshot.
func (s *Store) Apply(batch []Change) error {
	if s.mode != Mirror {
		return fmt.Errorf("apply on authority: %w", ErrInvalidChange)
	}
	s.mu.Lock()
	if s.stale {
		s.mu.Unlock()
		return ErrSequenceGap
	}
	applied := make([]Change, 0, len(batch))
	for _, c := range batch {
		if c.Seq != s.seq+1 {
			s.stale = true
			s.mu.Unlock()
			s.dispatch(applied)
			return fmt.Errorf("%w: want %d, got %d", ErrSequenceGap, s.seq+1, c.Seq)
		}
		s.seq = c.Seq
		changed, err := s.applyLocked(c)
		if err != nil {
			s.stale = true
			s.mu.Unlock()
			s.dispatch(applied)
			return fmt.Errorf("apply seq %d: %w", c.Seq, err)
		}
		if changed {
			applied = append(applied, c)
		}
	}
	s.mu.Unlock()
	s.dispatch(applied)
	return nil
}

// Reset replaces the whole state of a mirror with a snapshot taken at seq.
// Entities missing from the snapshot are despawned; listeners receive a
// single OpReset change.
func (s *Store) Reset(seq uint64, snapshot []Change) error {
	if s.mode != Mirror {
		return fmt.Errorf("reset on authority: %w", ErrInvalidChange)
	}
	keep := make(map[domain.EntityID]bool)
	for _, c := range snapshot {
		if c.Op == OpSpawn && c.Spawn != nil {
			keep[c.Spawn.ID] = true
		}
	}

	s.mu.Lock()
	var gone []domain.EntityID
	for id := range s.cards {
		if !keep[id] {
			gone = append(gone, id)
		}
	}
	for id := range s.decks {
		if !keep[id] {
			gone = append(gone, id)
		}
	}
	s.cards = make(map[domain.EntityID]*CardState)
	s.decks = make(map[domain.EntityID]*DeckState)
	s.hands = make(map[string][]HandCard)
	s.table = TableState{HandCounts: make(map[string]int)}

	var firstErr error
	for _, c := range snapshot {
		if _, err := s.applyLocked(c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.seq = seq
	s.stale = firstErr != nil
	s.mu.Unlock()

	for _, id := range gone {
		s.reg.Despawn(id)
	}
	s.dispatch([]Change{{Op: OpReset, Seq: seq}})
	return firstErr
}

// Snapshot describes everything participant may see as a change list that
// rebuilds the state on an empty mirror.
func (s *Store) Snapshot(participant string) []Change {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Change
	table := domain.TableEntity
	for i, user := range s.table.Seats {
		out = append(out, Change{Op: OpSet, Entity: table, Field: FieldSeat, Index: i, Participant: user})
	}
	out = append(out, Change{Op: OpSet, Entity: table, Field: FieldHost, Participant: s.table.Host})
	owners := make([]string, 0, len(s.table.HandCounts))
	for p := range s.table.HandCounts {
		owners = append(owners, p)
	}
	sort.Strings(owners)
	for _, p := range owners {
		out = append(out, Change{Op: OpSet, Entity: table, Field: FieldHandCount, Participant: p, Int: s.table.HandCounts[p]})
	}
	for i, v := range s.table.Life {
		out = append(out, Change{Op: OpSet, Entity: table, Field: FieldLife, Index: i, Int: v})
	}
	for i, v := range s.table.Dice {
		out = append(out, Change{Op: OpSet, Entity: table, Field: FieldDie, Index: i, Int: v})
	}
	out = append(out, Change{Op: OpSet, Entity: table, Field: FieldRollID, Int: s.table.RollID})
	for i, hc := range s.hands[participant] {
		out = append(out, Change{Op: OpInsert, Entity: table, Field: FieldHand, Index: i, Participant: participant, Key: hc.ID, Str: hc.Name})
	}

	ids := make([]domain.EntityID, 0, len(s.cards)+len(s.decks))
	for id := range s.cards {
		ids = append(ids, id)
	}
	for id := range s.decks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if c, ok := s.cards[id]; ok {
			xf := c.Transform
			out = append(out,
				Change{Op: OpSpawn, Entity: id, Spawn: &world.Entity{ID: id, Kind: c.Kind, Owner: c.Owner}},
				Change{Op: OpSet, Entity: id, Field: FieldName, Str: c.Name},
				Change{Op: OpSet, Entity: id, Field: FieldTransform, Xform: &xf},
				Change{Op: OpSet, Entity: id, Field: FieldExhaust, Int: c.Exhaust},
				Change{Op: OpSet, Entity: id, Field: FieldPower, Int: c.Power},
				Change{Op: OpSet, Entity: id, Field: FieldHealth, Int: c.Health},
				Change{Op: OpSet, Entity: id, Field: FieldResource, Int: int(c.Resource)},
			)
			continue
		}
		d := s.decks[id]
		xf := d.Transform
		out = append(out,
			Change{Op: OpSpawn, Entity: id, Spawn: &world.Entity{ID: id, Kind: domain.KindDeck, Owner: d.Owner}},
			Change{Op: OpSet, Entity: id, Field: FieldTransform, Xform: &xf},
			Change{Op: OpSet, Entity: id, Field: FieldFaceUp, Bool: d.FaceUp},
			Change{Op: OpSet, Entity: id, Field: FieldCount, Int: d.Count},
			Change{Op: OpSet, Entity: id, Field: FieldTopFace, Str: d.TopFace},
		)
		if d.Owner != participant {
			continue
		}
		for i, name := range d.Contents {
			out = append(out, Change{Op: OpInsert, Entity: id, Field: FieldContents, Index: i, Str: name})
		}
		for i, idx := range d.DrawOrder {
			out = append(out, Change{Op: OpInsert, Entity: id, Field: FieldDrawOrder, Index: i, Int: idx})
		}
	}
	return out
}

// commit applies authority writes, journals the ones that changed state and
// notifies listeners. Writes that leave a value unchanged are dropped.
func (s *Store) commit(changes ...Change) error {
	if s.mode != Authority {
		return ErrReadOnly
	}
	s.mu.Lock()
	applied := make([]Change, 0, len(changes))
	for _, c := range changes {
		changed, err := s.applyLocked(c)
		if err != nil {
			s.mu.Unlock()
			s.dispatch(applied)
			return err
		}
		if !changed {
			continue
		}
		s.seq++
		c.Seq = s.seq
		s.journal = append(s.journal, c)
		applied = append(applied, c)
	}
	s.mu.Unlock()
	s.dispatch(applied)
	return nil
}

func (s *Store) applyLocked(c Change) (bool, error) {
	switch c.Op {
	case OpSpawn:
		return s.spawnLocked(c)
	case OpDespawn:
		_, isCard := s.cards[c.Entity]
		_, isDeck := s.decks[c.Entity]
		if !isCard && !isDeck {
			return false, nil
		}
		delete(s.cards, c.Entity)
		delete(s.decks, c.Entity)
		return true, nil
	case OpSet:
		if c.Entity == domain.TableEntity {
			return s.setTableLocked(c)
		}
		if card, ok := s.cards[c.Entity]; ok {
			return setCardField(card, c)
		}
		if deck, ok := s.decks[c.Entity]; ok {
			return setDeckField(deck, c)
		}
		return false, ErrUnknownEntity
	case OpInsert, OpRemove, OpValue:
		return s.listLocked(c)
	default:
		return false, fmt.Errorf("%w: op %q", ErrInvalidChange, c.Op)
	}
}

func (s *Store) spawnLocked(c Change) (bool, error) {
	if c.Spawn == nil || c.Spawn.ID != c.Entity || c.Entity == domain.TableEntity {
		return false, fmt.Errorf("%w: spawn without identity", ErrInvalidChange)
	}
	e := *c.Spawn
	if _, ok := s.cards[e.ID]; ok {
		return false, nil
	}
	if _, ok := s.decks[e.ID]; ok {
		return false, nil
	}
	if s.mode == Mirror {
		if err := s.reg.Adopt(e); err != nil && !errors.Is(err, world.ErrDuplicate) {
			return false, err
		}
	}
	switch {
	case e.Kind == domain.KindDeck:
		s.decks[e.ID] = &DeckState{ID: e.ID, Owner: e.Owner}
	case e.Kind.OnBoard():
		s.cards[e.ID] = &CardState{ID: e.ID, Kind: e.Kind, Owner: e.Owner}
	default:
		return false, fmt.Errorf("%w: kind %q", ErrWrongKind, e.Kind)
	}
	return true, nil
}

func setCardField(card *CardState, c Change) (bool, error) {
	switch c.Field {
	case FieldName:
		return setValue(&card.Name, c.Str), nil
	case FieldTransform:
		if c.Xform == nil {
			return false, ErrInvalidChange
		}
		return setValue(&card.Transform, *c.Xform), nil
	case FieldExhaust:
		return setValue(&card.Exhaust, c.Int), nil
	case FieldPower:
		return setValue(&card.Power, c.Int), nil
	case FieldHealth:
		return setValue(&card.Health, c.Int), nil
	case FieldResource:
		return setValue(&card.Resource, domain.ResourceType(c.Int)), nil
	default:
		return false, fmt.Errorf("%w: card field %q", ErrWrongKind, c.Field)
	}
}

func setDeckField(deck *DeckState, c Change) (bool, error) {
	switch c.Field {
	case FieldTransform:
		if c.Xform == nil {
			return false, ErrInvalidChange
		}
		return setValue(&deck.Transform, *c.Xform), nil
	case FieldFaceUp:
		return setValue(&deck.FaceUp, c.Bool), nil
	case FieldCount:
		return setValue(&deck.Count, c.Int), nil
	case FieldTopFace:
		return setValue(&deck.TopFace, c.Str), nil
	default:
		return false, fmt.Errorf("%w: deck field %q", ErrWrongKind, c.Field)
	}
}

func (s *Store) setTableLocked(c Change) (bool, error) {
	t := &s.table
	switch c.Field {
	case FieldSeat:
		if c.Index < 0 || c.Index >= len(t.Seats) {
			return false, ErrOutOfRange
		}
		return setValue(&t.Seats[c.Index], c.Participant), nil
	case FieldHost:
		return setValue(&t.Host, c.Participant), nil
	case FieldHandCount:
		if c.Participant == "" {
			return false, ErrInvalidChange
		}
		prev, ok := t.HandCounts[c.Participant]
		if c.Int == 0 {
			delete(t.HandCounts, c.Participant)
			return ok && prev != 0, nil
		}
		t.HandCounts[c.Participant] = c.Int
		return prev != c.Int, nil
	case FieldLife:
		if c.Index < 0 || c.Index >= len(t.Life) {
			return false, ErrOutOfRange
		}
		return setValue(&t.Life[c.Index], c.Int), nil
	case FieldDie:
		if c.Index < 0 || c.Index >= len(t.Dice) {
			return false, ErrOutOfRange
		}
		return setValue(&t.Dice[c.Index], c.Int), nil
	case FieldRollID:
		return setValue(&t.RollID, c.Int), nil
	default:
		return false, fmt.Errorf("%w: table field %q", ErrWrongKind, c.Field)
	}
}

func (s *Store) listLocked(c Change) (bool, error) {
	switch c.Field {
	case FieldContents:
		deck, ok := s.decks[c.Entity]
		if !ok {
			return false, ErrUnknownEntity
		}
		if c.Op != OpInsert || c.Index != len(deck.Contents) {
			return false, fmt.Errorf("%w: contents are append-only", ErrInvalidChange)
		}
		deck.Contents = append(deck.Contents, c.Str)
		return true, nil
	case FieldDrawOrder:
		deck, ok := s.decks[c.Entity]
		if !ok {
			return false, ErrUnknownEntity
		}
		return applyList(&deck.DrawOrder, c.Op, c.Index, c.Int)
	case FieldHand:
		if c.Entity != domain.TableEntity || c.Participant == "" {
			return false, ErrInvalidChange
		}
		hand := s.hands[c.Participant]
		changed, err := applyList(&hand, c.Op, c.Index, HandCard{ID: c.Key, Name: c.Str})
		if len(hand) == 0 {
			delete(s.hands, c.Participant)
		} else {
			s.hands[c.Participant] = hand
		}
		return changed, err
	default:
		return false, fmt.Errorf("%w: list field %q", ErrWrongKind, c.Field)
	}
}

func applyList[T comparable](list *[]T, op Op, index int, v T) (bool, error) {
	l := *list
	switch op {
	case OpInsert:
		if index < 0 || index > len(l) {
			return false, ErrOutOfRange
		}
		l = append(l, v)
		copy(l[index+1:], l[index:])
		l[index] = v
	case OpRemove:
		if index < 0 || index >= len(l) {
			return false, ErrOutOfRange
		}
		l = append(l[:index], l[index+1:]...)
	case OpValue:
		if index < 0 || index >= len(l) {
			return false, ErrOutOfRange
		}
		if l[index] == v {
			return false, nil
		}
		l[index] = v
	default:
		return false, ErrInvalidChange
	}
	*list = l
	return true, nil
}

func setValue[T comparable](dst *T, v T) bool {
	if *dst == v {
		return false
	}
	*dst = v
	return true
}
