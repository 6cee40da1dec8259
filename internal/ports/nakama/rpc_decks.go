package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"cardtable/internal/deckfile"
	"cardtable/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// SaveDeckResponse confirms a stored deck list.
type SaveDeckResponse struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// LoadDeckRequest names the list to load; empty means the starter list.
type LoadDeckRequest struct {
	Name string `json:"name"`
}

// LoadDeckResponse carries the list and the names to pass to SpawnDeck.
type LoadDeckResponse struct {
	List  deckfile.List `json:"list"`
	Cards []string      `json:"cards"`
}

// rpcSaveDeck stores a deck list given as YAML or JSON.
func rpcSaveDeck(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", runtime.NewError("authentication required", 16)
	}

	list, err := deckfile.Parse([]byte(payload))
	if err != nil {
		return "", runtime.NewError(err.Error(), 3)
	}
	if list.Name == "" {
		return "", runtime.NewError("deck list needs a name", 3)
	}
	if cfg := tableConfigFromContext(ctx, logger); list.Size() > cfg.MaxDeckSize {
		return "", runtime.NewError("deck list is too large", 3)
	}

	if _, err := NewDeckStorageAdapter(nk).SaveDeck(ctx, userID, list, false); err != nil {
		logger.Error("rpcSaveDeck [User:%s]: %v", userID, err)
		return "", runtime.NewError("could not save deck list", 13)
	}
	return encodeJSON(SaveDeckResponse{Name: list.Name, Size: list.Size()})
}

func rpcLoadDeck(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", runtime.NewError("authentication required", 16)
	}

	var req LoadDeckRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", 3)
		}
	}
	if req.Name == "" {
		req.Name = "starter"
	}

	list, err := NewDeckStorageAdapter(nk).LoadDeck(ctx, userID, req.Name)
	switch {
	case errors.Is(err, ports.ErrDeckNotFound):
		return "", runtime.NewError("deck list not found", 5)
	case err != nil:
		logger.Error("rpcLoadDeck [User:%s]: %v", userID, err)
		return "", runtime.NewError("could not load deck list", 13)
	}
	return encodeJSON(LoadDeckResponse{List: list, Cards: list.Expand()})
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
