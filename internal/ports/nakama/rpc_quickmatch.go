package nakama

import (
	"context"
	"database/sql"

	"cardtable/internal/app"

	"github.com/heroiclabs/nakama-common/runtime"
)

// QuickTableResponse is the payload returned to clients looking for a table.
// HostTicket is set only when the caller created the table and a ticket
// secret is configured.
type QuickTableResponse struct {
	MatchID    string `json:"match_id"`
	IsNew      bool   `json:"is_new"`
	HostTicket string `json:"host_ticket,omitempty"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcQuickTable:  rpcQuickTable,
		RpcCreateTable: rpcCreateTable,
		RpcSaveDeck:    rpcSaveDeck,
		RpcLoadDeck:    rpcLoadDeck,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return err
		}
	}
	return nil
}

func rpcQuickTable(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	limit := 10
	authoritative := true
	minSize := 1

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, nil, labelQueryOpen)
	if err != nil {
		logger.Error("rpcQuickTable [User:%s]: MatchList error: %v", userID, err)
		return "", err
	}

	if len(matches) > 0 {
		logger.Info("rpcQuickTable [User:%s]: Found table %s", userID, matches[0].MatchId)
		return encodeJSON(QuickTableResponse{MatchID: matches[0].MatchId})
	}

	resp, err := createTable(ctx, logger, nk, userID)
	if err != nil {
		return "", err
	}
	return encodeJSON(resp)
}

// createTable starts a new table and, when possible, issues the caller a
// ticket to host it.
func createTable(ctx context.Context, logger runtime.Logger, nk runtime.NakamaModule, userID string) (QuickTableResponse, error) {
	matchID, err := nk.MatchCreate(ctx, MatchNameCardTable, map[string]interface{}{})
	if err != nil {
		logger.Error("createTable [User:%s]: MatchCreate error: %v", userID, err)
		return QuickTableResponse{}, runtime.NewError("could not create table", 13)
	}
	logger.Info("createTable [User:%s]: Created table %s", userID, matchID)

	resp := QuickTableResponse{MatchID: matchID, IsNew: true}
	cfg := tableConfigFromContext(ctx, logger)
	if cfg.TicketSecret == "" || userID == "" {
		return resp, nil
	}
	ticket, err := app.NewTicketService(cfg.TicketSecret).Issue(userID, matchID)
	if err != nil {
		logger.Warn("createTable [User:%s]: Could not issue host ticket: %v", userID, err)
		return resp, nil
	}
	resp.HostTicket = ticket
	return resp, nil
}
