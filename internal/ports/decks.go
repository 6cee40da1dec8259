package ports

import (
	"context"
	"errors"

	"cardtable/internal/deckfile"
)

var ErrDeckNotFound = errors.New("deck list not found")

// DeckStoragePort keeps the deck lists a user brings to a table.
type DeckStoragePort interface {
	// SaveDeck stores list under its name. When once is set an existing list
	// with that name is kept and saved is false.
	SaveDeck(ctx context.Context, userID string, list deckfile.List, once bool) (saved bool, err error)
	// LoadDeck returns ErrDeckNotFound when userID has no list called name.
	LoadDeck(ctx context.Context, userID, name string) (deckfile.List, error)
}
