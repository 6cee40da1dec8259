package domain

import "fmt"

// EntityID identifies a spawned board entity for the lifetime of a session.
// IDs are assigned by the authority only and are never reused.
type EntityID uint64

// TableEntity is the reserved id carrying table-wide replicated state
// (seats, host, hands, health, dice). It is never spawned or despawned.
const TableEntity EntityID = 0

// Kind is the archetype of a spawned entity.
type Kind string

const (
	// KindCard is a normal card on the board. Cards group into piles.
	KindCard Kind = "card"
	// KindResource is a resource token. Tokens never join piles.
	KindResource Kind = "resource"
	// KindDeck is an ordered, owner-private collection of card names.
	KindDeck Kind = "deck"
)

// Groupable reports whether entities of this kind take part in pile resolution.
func (k Kind) Groupable() bool {
	return k == KindCard
}

// OnBoard reports whether entities of this kind carry a card-sized board transform.
func (k Kind) OnBoard() bool {
	return k == KindCard || k == KindResource
}

// ResourceType is the flavour of a resource token.
type ResourceType int

const (
	ResourceNone ResourceType = iota
	ResourcePrimal
	ResourceArcane
	ResourceRefined
	ResourceTech
)

var resourceNames = [...]string{"none", "primal", "arcane", "refined", "tech"}

// Valid reports whether r is a known resource type.
func (r ResourceType) Valid() bool {
	return r >= ResourceNone && r <= ResourceTech
}

func (r ResourceType) String() string {
	if !r.Valid() {
		return fmt.Sprintf("resource(%d)", int(r))
	}
	return resourceNames[r]
}

// ParseResourceType maps a lowercase resource name back to its type.
func ParseResourceType(name string) (ResourceType, bool) {
	for i, n := range resourceNames {
		if n == name {
			return ResourceType(i), true
		}
	}
	return ResourceNone, false
}
