package replica

import "cardtable/internal/domain"

// CardState is the replicated state of a card or resource token on the board.
type CardState struct {
	ID        domain.EntityID
	Kind      domain.Kind
	Owner     string
	Name      string
	Transform domain.Transform
	Exhaust   int
	Power     int
	Health    int
	Resource  domain.ResourceType
}

// Groupable reports whether the card can be part of a pile.
func (c CardState) Groupable() bool {
	return c.Kind.Groupable()
}

// DeckState is the replicated state of a deck. Contents and DrawOrder are
// only populated for the authority and for the deck owner's mirror.
type DeckState struct {
	ID        domain.EntityID
	Owner     string
	Transform domain.Transform
	FaceUp    bool
	Count     int
	TopFace   string
	Contents  []string
	DrawOrder []int
}

func (d DeckState) clone() DeckState {
	d.Contents = append([]string(nil), d.Contents...)
	d.DrawOrder = append([]int(nil), d.DrawOrder...)
	return d
}

// summary derives the public fields from the private ones.
func (d *DeckState) summary() (count int, top string) {
	count = len(d.DrawOrder)
	if d.FaceUp && count > 0 {
		idx := d.DrawOrder[0]
		if idx >= 0 && idx < len(d.Contents) {
			top = d.Contents[idx]
		}
	}
	return count, top
}

// HandCard is a card held privately by a participant. ID is an opaque
// handle so the owner can refer to one of several same-named cards.
type HandCard struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TableState is the table-wide replicated state.
type TableState struct {
	Seats      domain.Seats
	Host       string
	HandCounts map[string]int
	Life       [domain.PlayerSeats]int
	Dice       [2]int
	RollID     int
}

func (t TableState) clone() TableState {
	counts := make(map[string]int, len(t.HandCounts))
	for k, v := range t.HandCounts {
		counts[k] = v
	}
	t.HandCounts = counts
	return t
}
