package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cardtable/internal/deckfile"
	"cardtable/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const deckCollection = "decks"

// DeckStorageAdapter keeps deck lists in Nakama storage, one object per list
// keyed by its name. Owners may read their lists; only the server writes them.
type DeckStorageAdapter struct {
	nk runtime.NakamaModule
}

func NewDeckStorageAdapter(nk runtime.NakamaModule) *DeckStorageAdapter {
	return &DeckStorageAdapter{nk: nk}
}

func (a *DeckStorageAdapter) SaveDeck(ctx context.Context, userID string, list deckfile.List, once bool) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("userID is required")
	}
	if list.Name == "" {
		return false, fmt.Errorf("deck list needs a name")
	}
	value, err := json.Marshal(list)
	if err != nil {
		return false, fmt.Errorf("failed to marshal deck list: %w", err)
	}

	write := &runtime.StorageWrite{
		Collection:      deckCollection,
		Key:             list.Name,
		UserID:          userID,
		Value:           string(value),
		PermissionRead:  runtime.STORAGE_PERMISSION_OWNER_READ,
		PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
	}
	if once {
		// Only write when no object exists yet.
		write.Version = "*"
	}

	if _, err := a.nk.StorageWrite(ctx, []*runtime.StorageWrite{write}); err != nil {
		if once && errors.Is(err, runtime.ErrStorageRejectedVersion) {
			return false, nil
		}
		return false, fmt.Errorf("failed to save deck list %q: %w", list.Name, err)
	}
	return true, nil
}

func (a *DeckStorageAdapter) LoadDeck(ctx context.Context, userID, name string) (deckfile.List, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{{
		Collection: deckCollection,
		Key:        name,
		UserID:     userID,
	}})
	if err != nil {
		return deckfile.List{}, fmt.Errorf("failed to read deck list %q: %w", name, err)
	}
	if len(objects) == 0 {
		return deckfile.List{}, ports.ErrDeckNotFound
	}
	// Stored lists are JSON, which the YAML parser accepts.
	return deckfile.Parse([]byte(objects[0].GetValue()))
}

var _ ports.DeckStoragePort = (*DeckStorageAdapter)(nil)
