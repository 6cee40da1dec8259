// Package deck implements the draw, shuffle and return lifecycle of decks
// on top of the replicated store.
package deck

import (
	"errors"
	"fmt"
	"math/rand"

	"cardtable/internal/domain"
	"cardtable/internal/replica"
)

var (
	ErrNotEmpty    = errors.New("deck already has contents")
	ErrInvalidName = errors.New("invalid card name")
)

// Drawn is a card that left a deck.
type Drawn struct {
	ContentIndex int
	Name         string
}

// Manager mutates decks held in an authority store.
type Manager struct {
	store *replica.Store
}

// NewManager returns a manager writing through store.
func NewManager(store *replica.Store) *Manager {
	return &Manager{store: store}
}

// Initialize fills an empty deck. The draw order starts as the content
// order and the deck starts face down.
func (m *Manager) Initialize(id domain.EntityID, names []string) error {
	d, ok := m.store.Deck(id)
	if !ok {
		return replica.ErrUnknownEntity
	}
	if len(d.Contents) > 0 {
		return ErrNotEmpty
	}
	for _, n := range names {
		if !domain.ValidName(n) {
			return fmt.Errorf("%w: %q", ErrInvalidName, n)
		}
	}
	if err := m.store.SetFaceUp(id, false); err != nil {
		return err
	}
	for i, n := range names {
		idx, err := m.store.AppendContent(id, n)
		if err != nil {
			return err
		}
		if err := m.store.InsertDrawOrder(id, i, idx); err != nil {
			return err
		}
	}
	return nil
}

// Shuffle permutes the draw order with a seeded Fisher-Yates shuffle.
// It reports false, changing nothing, when the deck has fewer than two cards.
func (m *Manager) Shuffle(id domain.EntityID, seed int64) (bool, error) {
	d, ok := m.store.Deck(id)
	if !ok {
		return false, replica.ErrUnknownEntity
	}
	if len(d.DrawOrder) <= 1 {
		return false, nil
	}
	return true, m.store.SetDrawOrder(id, Permute(d.DrawOrder, seed))
}

// Draw removes the top card. An empty deck reports false.
func (m *Manager) Draw(id domain.EntityID) (Drawn, bool, error) {
	return m.TakeAt(id, 0)
}

// TakeAt removes the card at draw position pos. An empty deck or a position
// past the end reports false.
func (m *Manager) TakeAt(id domain.EntityID, pos int) (Drawn, bool, error) {
	d, ok := m.store.Deck(id)
	if !ok {
		return Drawn{}, false, replica.ErrUnknownEntity
	}
	if pos < 0 || pos >= len(d.DrawOrder) {
		return Drawn{}, false, nil
	}
	idx, err := m.store.RemoveDrawOrder(id, pos)
	if err != nil {
		return Drawn{}, false, err
	}
	return Drawn{ContentIndex: idx, Name: d.Contents[idx]}, true, nil
}

// Insert adds a new card to the deck, on top or at the bottom.
func (m *Manager) Insert(id domain.EntityID, name string, onTop bool) error {
	if !domain.ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	d, ok := m.store.Deck(id)
	if !ok {
		return replica.ErrUnknownEntity
	}
	idx, err := m.store.AppendContent(id, name)
	if err != nil {
		return err
	}
	pos := len(d.DrawOrder)
	if onTop {
		pos = 0
	}
	return m.store.InsertDrawOrder(id, pos, idx)
}

// ToggleFaceUp flips the deck and returns the new face state.
func (m *Manager) ToggleFaceUp(id domain.EntityID) (bool, error) {
	d, ok := m.store.Deck(id)
	if !ok {
		return false, replica.ErrUnknownEntity
	}
	return !d.FaceUp, m.store.SetFaceUp(id, !d.FaceUp)
}

// TopFace returns the name of the top card when the deck is face up.
func TopFace(d replica.DeckState) (string, bool) {
	if !d.FaceUp || len(d.DrawOrder) == 0 {
		return "", false
	}
	return d.Contents[d.DrawOrder[0]], true
}

// Permute returns order shuffled with Fisher-Yates driven by
// rand.NewSource(seed). The same seed always yields the same permutation.
func Permute(order []int, seed int64) []int {
	out := append([]int(nil), order...)
	rng := rand.New(rand.NewSource(seed))
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
