package pile

import (
	"cardtable/internal/domain"
	"cardtable/internal/replica"
)

// Assignment sets the stack index of one card.
type Assignment struct {
	ID         domain.EntityID `json:"id"`
	StackIndex int             `json:"stack"`
}

// Cycle rotates a pile. With up the bottom card moves to the top, otherwise
// the top card moves to the bottom. Indices are reassigned contiguously from
// the pile's current minimum. Piles of fewer than two cards are left alone.
func Cycle(members []replica.CardState, up bool) []Assignment {
	if len(members) < 2 {
		return nil
	}
	ordered := sorted(members)
	base := ordered[0].Transform.StackIndex

	rotated := make([]replica.CardState, 0, len(ordered))
	if up {
		rotated = append(rotated, ordered[1:]...)
		rotated = append(rotated, ordered[0])
	} else {
		rotated = append(rotated, ordered[len(ordered)-1])
		rotated = append(rotated, ordered[:len(ordered)-1]...)
	}
	return assign(rotated, base)
}

// SetAsTop promotes id to the top of the pile it was dropped on. The other
// members keep their relative order and the pile is renumbered
// contiguously from their minimum stack index. Nothing happens when id is
// not a member or has nothing below it.
func SetAsTop(members []replica.CardState, id domain.EntityID) []Assignment {
	if len(members) < 2 {
		return nil
	}
	others := make([]replica.CardState, 0, len(members)-1)
	var (
		me    replica.CardState
		found bool
	)
	for _, c := range members {
		if c.ID == id {
			me, found = c, true
			continue
		}
		others = append(others, c)
	}
	if !found || len(others) == 0 {
		return nil
	}
	others = sorted(others)
	base := others[0].Transform.StackIndex
	return assign(append(others, me), base)
}

// Changed drops assignments that would not change a card's stack index.
func Changed(members []replica.CardState, assignments []Assignment) []Assignment {
	current := make(map[domain.EntityID]int, len(members))
	for _, c := range members {
		current[c.ID] = c.Transform.StackIndex
	}
	out := assignments[:0:0]
	for _, a := range assignments {
		if idx, ok := current[a.ID]; ok && idx == a.StackIndex {
			continue
		}
		out = append(out, a)
	}
	return out
}

func sorted(cards []replica.CardState) []replica.CardState {
	out := append([]replica.CardState(nil), cards...)
	Sort(out)
	return out
}

func assign(ordered []replica.CardState, base int) []Assignment {
	out := make([]Assignment, len(ordered))
	for i, c := range ordered {
		out[i] = Assignment{ID: c.ID, StackIndex: base + i}
	}
	return out
}

// Render layer offsets above a card's own layer.
const (
	statusLayerOffset = 101
	badgeLayerOffset  = 120
)

// Layers are the render orders derived from a card's stack index.
type Layers struct {
	Card   int
	Status int
	Badge  int
}

// RenderOrder derives the render layers for a stack index. Render order is
// never replicated on its own.
func RenderOrder(stackIndex int) Layers {
	return Layers{
		Card:   stackIndex,
		Status: stackIndex + statusLayerOffset,
		Badge:  stackIndex + badgeLayerOffset,
	}
}
