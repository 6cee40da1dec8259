// Package pile turns the spatial layout of cards into logical piles.
//
// Everything here is a pure function of the board, so the authority and
// every mirror derive the same piles from the same replicated state.
package pile

import (
	"math"
	"sort"

	"cardtable/internal/domain"
	"cardtable/internal/replica"
)

// Board is the replicated state the resolver reads. Both slices are ordered by id.
type Board interface {
	Cards() []replica.CardState
	Decks() []replica.DeckState
}

// Default geometry.
var (
	DefaultCardSize    = domain.Vec2{X: 1.75, Y: 2.5}
	DefaultGroupRadius = 1.0
)

// Resolver computes piles for one table geometry.
type Resolver struct {
	GroupRadius float64
	CardSize    domain.Vec2
}

// NewResolver returns a resolver; zero values fall back to the defaults.
func NewResolver(groupRadius float64, cardSize domain.Vec2) Resolver {
	if groupRadius <= 0 {
		groupRadius = DefaultGroupRadius
	}
	if cardSize.X <= 0 || cardSize.Y <= 0 {
		cardSize = DefaultCardSize
	}
	return Resolver{GroupRadius: groupRadius, CardSize: cardSize}
}

// Footprint is the board area covered by a card or deck at xf.
func (r Resolver) Footprint(xf domain.Transform) Rect {
	return Footprint(xf, r.CardSize)
}

// OverlappingDeck returns the lowest-id deck whose footprint overlaps xf.
func (r Resolver) OverlappingDeck(decks []replica.DeckState, xf domain.Transform) (replica.DeckState, bool) {
	fp := r.Footprint(xf)
	for _, d := range decks {
		if fp.Overlaps(r.Footprint(d.Transform)) {
			return d, true
		}
	}
	return replica.DeckState{}, false
}

// OverlappingToken returns the lowest-id non-groupable card other than self
// whose footprint overlaps xf.
func (r Resolver) OverlappingToken(cards []replica.CardState, self domain.EntityID, xf domain.Transform) (replica.CardState, bool) {
	fp := r.Footprint(xf)
	for _, c := range cards {
		if c.ID == self || c.Groupable() {
			continue
		}
		if fp.Overlaps(r.Footprint(c.Transform)) {
			return c, true
		}
	}
	return replica.CardState{}, false
}

// Around returns the pile of owner's cards within GroupRadius of center,
// ordered bottom to top. Tokens and cards overlapping a deck never join.
func (r Resolver) Around(b Board, owner string, center domain.Vec2) []replica.CardState {
	decks := b.Decks()
	var out []replica.CardState
	for _, c := range b.Cards() {
		if c.Owner != owner || !c.Groupable() {
			continue
		}
		if c.Transform.Pos.Dist(center) > r.GroupRadius {
			continue
		}
		if _, blocked := r.OverlappingDeck(decks, c.Transform); blocked {
			continue
		}
		out = append(out, c)
	}
	Sort(out)
	return out
}

// Members returns the pile containing ref, ordered bottom to top.
// A token, a card overlapping a deck, or an unknown id yields nil.
func (r Resolver) Members(b Board, ref domain.EntityID) []replica.CardState {
	card, ok := findCard(b.Cards(), ref)
	if !ok || !card.Groupable() {
		return nil
	}
	if _, blocked := r.OverlappingDeck(b.Decks(), card.Transform); blocked {
		return nil
	}
	return r.Around(b, card.Owner, card.Transform.Pos)
}

// Top returns the top card of the pile containing ref.
func (r Resolver) Top(b Board, ref domain.EntityID) (replica.CardState, bool) {
	members := r.Members(b, ref)
	if len(members) == 0 {
		return replica.CardState{}, false
	}
	return members[len(members)-1], true
}

// TopAt returns the topmost card whose footprint contains point: highest
// stack index, then higher Y, then higher id.
func (r Resolver) TopAt(b Board, point domain.Vec2) (replica.CardState, bool) {
	var (
		best  replica.CardState
		found bool
	)
	for _, c := range b.Cards() {
		if !r.Footprint(c.Transform).Contains(point) {
			continue
		}
		if !found || Less(best, c) {
			best, found = c, true
		}
	}
	return best, found
}

// NearestDeck returns owner's deck closest to pos within radius. Ties go to
// the lowest id.
func (r Resolver) NearestDeck(b Board, pos domain.Vec2, radius float64, owner string) (replica.DeckState, bool) {
	var (
		best     replica.DeckState
		bestDist = math.Inf(1)
		found    bool
	)
	for _, d := range b.Decks() {
		if d.Owner != owner {
			continue
		}
		dist := d.Transform.Pos.Dist(pos)
		if dist > radius {
			continue
		}
		if dist < bestDist || (dist == bestDist && d.ID < best.ID) {
			best, bestDist, found = d, dist, true
		}
	}
	return best, found
}

// Less orders cards bottom to top: stack index, then Y, then id.
func Less(a, b replica.CardState) bool {
	if a.Transform.StackIndex != b.Transform.StackIndex {
		return a.Transform.StackIndex < b.Transform.StackIndex
	}
	if a.Transform.Pos.Y != b.Transform.Pos.Y {
		return a.Transform.Pos.Y < b.Transform.Pos.Y
	}
	return a.ID < b.ID
}

// Sort orders cards bottom to top in place.
func Sort(cards []replica.CardState) {
	sort.SliceStable(cards, func(i, j int) bool { return Less(cards[i], cards[j]) })
}

func findCard(cards []replica.CardState, id domain.EntityID) (replica.CardState, bool) {
	i := sort.Search(len(cards), func(i int) bool { return cards[i].ID >= id })
	if i < len(cards) && cards[i].ID == id {
		return cards[i], true
	}
	return replica.CardState{}, false
}
