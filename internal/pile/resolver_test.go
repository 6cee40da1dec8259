package pile

import (
	"math"
	"testing"

	"cardtable/internal/domain"
	"cardtable/internal/replica"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type board struct {
	cards []replica.CardState
	decks []replica.DeckState
}

func (b board) Cards() []replica.CardState { return b.cards }
func (b board) Decks() []replica.DeckState { return b.decks }

func card(id domain.EntityID, owner string, x, y float64, stack int) replica.CardState {
	return replica.CardState{
		ID:        id,
		Kind:      domain.KindCard,
		Owner:     owner,
		Name:      "c",
		Transform: domain.Transform{Pos: domain.Vec2{X: x, Y: y}, StackIndex: stack},
	}
}

func deckAt(id domain.EntityID, owner string, x, y float64) replica.DeckState {
	return replica.DeckState{ID: id, Owner: owner, Transform: domain.Transform{Pos: domain.Vec2{X: x, Y: y}}}
}

func ids(cards []replica.CardState) []domain.EntityID {
	out := make([]domain.EntityID, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}

func TestMembersGroupsSameOwnerWithinRadius(t *testing.T) {
	r := NewResolver(0, domain.Vec2{})
	b := board{cards: []replica.CardState{
		card(1, "p1", 0, 0, 30),
		card(2, "p1", 0.5, 0.5, 31),
		card(3, "p2", 0.2, 0, 32),
		card(4, "p1", 3, 0, 33),
		card(5, "p1", 1, 0, 29),
	}}

	got := r.Members(b, 1)
	assert.Equal(t, []domain.EntityID{5, 1, 2}, ids(got), "ordered bottom to top; radius is inclusive")
	assert.Nil(t, r.Members(b, 99))
}

func TestMembersExcludesTokensAndDeckOverlaps(t *testing.T) {
	r := NewResolver(1, DefaultCardSize)
	token := card(2, "p1", 0.1, 0, 40)
	token.Kind = domain.KindResource
	b := board{
		cards: []replica.CardState{
			card(1, "p1", 0, 0, 30),
			token,
			card(3, "p1", 10, 0, 30),
			card(4, "p1", 10.5, 0, 31),
		},
		decks: []replica.DeckState{deckAt(9, "p1", 11, 0)},
	}

	assert.Equal(t, []domain.EntityID{1}, ids(r.Members(b, 1)))
	assert.Nil(t, r.Members(b, 2), "tokens host nothing")
	assert.Nil(t, r.Members(b, 3), "cards on a deck are not a pile")
}

func TestMembersTieBreaksAreTotal(t *testing.T) {
	r := NewResolver(1, DefaultCardSize)
	b := board{cards: []replica.CardState{
		card(1, "p1", 0, 0.2, 30),
		card(2, "p1", 0, 0.1, 30),
		card(3, "p1", 0, 0.2, 30),
	}}

	want := []domain.EntityID{2, 1, 3}
	for _, ref := range want {
		assert.Equal(t, want, ids(r.Members(b, ref)), "resolved from card %d", ref)
	}

	reversed := board{cards: []replica.CardState{b.cards[2], b.cards[1], b.cards[0]}}
	assert.Equal(t, want, ids(r.Members(reversed, 1)), "board order does not matter")
}

func TestTopAt(t *testing.T) {
	r := NewResolver(1, DefaultCardSize)
	b := board{cards: []replica.CardState{
		card(1, "p1", 0, 0, 30),
		card(2, "p2", 0.2, 0.3, 31),
		card(3, "p1", 0.1, 0.5, 31),
		card(4, "p1", 20, 0, 99),
	}}

	top, ok := r.TopAt(b, domain.Vec2{X: 0.1, Y: 0.1})
	require.True(t, ok)
	assert.Equal(t, domain.EntityID(3), top.ID, "same stack index resolves to higher Y")

	_, ok = r.TopAt(b, domain.Vec2{X: 10, Y: 10})
	assert.False(t, ok)
}

func TestNearestDeck(t *testing.T) {
	r := NewResolver(1, DefaultCardSize)
	b := board{decks: []replica.DeckState{
		deckAt(2, "p1", -3, 0),
		deckAt(5, "p1", 3, 0),
		deckAt(7, "p2", 0.5, 0),
		deckAt(8, "p1", 0, 6),
	}}

	d, ok := r.NearestDeck(b, domain.Vec2{}, 5, "p1")
	require.True(t, ok)
	assert.Equal(t, domain.EntityID(2), d.ID, "equal distance goes to the lowest id")

	d, ok = r.NearestDeck(b, domain.Vec2{X: 1}, 5, "p1")
	require.True(t, ok)
	assert.Equal(t, domain.EntityID(5), d.ID)

	_, ok = r.NearestDeck(b, domain.Vec2{X: 50}, 5, "p1")
	assert.False(t, ok)
	_, ok = r.NearestDeck(b, domain.Vec2{}, 5, "p3")
	assert.False(t, ok, "only the requester's decks qualify")
}

func TestFootprintRotation(t *testing.T) {
	upright := Footprint(domain.Transform{}, DefaultCardSize)
	assert.InDelta(t, 0.875, upright.HalfSize().X, 1e-9)
	assert.InDelta(t, 1.25, upright.HalfSize().Y, 1e-9)

	sideways := Footprint(domain.Transform{Rotation: 90}, DefaultCardSize)
	assert.InDelta(t, 1.25, sideways.HalfSize().X, 1e-9)
	assert.InDelta(t, 0.875, sideways.HalfSize().Y, 1e-9)
}

func TestPushOutIsMinimal(t *testing.T) {
	deck := Footprint(domain.Transform{}, DefaultCardSize)
	moving := Footprint(domain.Transform{Pos: domain.Vec2{X: 1}}, DefaultCardSize)

	d := PushOut(moving, deck)
	assert.InDelta(t, 0.75, d.X, 1e-5, "width 1.75 needs 0.75 more along +X")
	assert.InDelta(t, 0, d.Y, 1e-9)

	moved := Rect{Min: moving.Min.Add(d), Max: moving.Max.Add(d)}
	assert.False(t, moved.Overlaps(deck))
}

func TestPushOutCoincidentCentres(t *testing.T) {
	deck := Footprint(domain.Transform{}, DefaultCardSize)
	d := PushOut(deck, deck)
	assert.InDelta(t, 0, d.X, 1e-9)
	assert.InDelta(t, 2.5, d.Y, 1e-5)
}

func TestPushOutDiagonal(t *testing.T) {
	deck := Footprint(domain.Transform{}, DefaultCardSize)
	moving := Footprint(domain.Transform{Pos: domain.Vec2{X: 1, Y: 1}}, DefaultCardSize)

	d := PushOut(moving, deck)
	assert.InDelta(t, d.X, d.Y, 1e-9, "push follows the centre-to-centre direction")
	assert.InDelta(t, 0.75, d.X, 1e-5, "x clears first")
	assert.InDelta(t, math.Sqrt2*0.75, d.Len(), 1e-5)

	assert.Equal(t, domain.Vec2{}, PushOut(Footprint(domain.Transform{Pos: domain.Vec2{X: 5}}, DefaultCardSize), deck))
}
