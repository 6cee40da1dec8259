package nakama

import (
	"context"

	"cardtable/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// AccountAdapter implements ports.AccountPort using Nakama's account API.
type AccountAdapter struct {
	nk runtime.NakamaModule
}

func NewAccountAdapter(nk runtime.NakamaModule) *AccountAdapter {
	return &AccountAdapter{nk: nk}
}

// UpdateProfile leaves every other account field unchanged.
func (a *AccountAdapter) UpdateProfile(ctx context.Context, userID, username, displayName string) error {
	return a.nk.AccountUpdateId(ctx, userID, username, nil, displayName, "", "", "", "")
}

var _ ports.AccountPort = (*AccountAdapter)(nil)
