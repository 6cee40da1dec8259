package nakama

import (
	"context"
	"database/sql"

	"github.com/heroiclabs/nakama-common/runtime"
)

// rpcCreateTable always starts a fresh table, ignoring open ones. The caller
// gets a host ticket for it.
//
// Payload: unused.
// Returns: QuickTableResponse JSON.
func rpcCreateTable(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, ok := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if !ok || userID == "" {
		return "", runtime.NewError("authentication required", 16)
	}

	resp, err := createTable(ctx, logger, nk, userID)
	if err != nil {
		return "", err
	}
	return encodeJSON(resp)
}
