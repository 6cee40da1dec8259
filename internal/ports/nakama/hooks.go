package nakama

import (
	"context"
	"database/sql"
	"fmt"

	"cardtable/internal/app/onboarding"
	"cardtable/internal/deckfile"

	"github.com/form3tech-oss/jwt-go"
	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// AfterAuthenticateDevice onboards accounts created by this authentication.
func AfterAuthenticateDevice(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, out *api.Session, in *api.AuthenticateDeviceRequest) error {
	if !out.Created {
		return nil
	}

	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)
	if userID == "" {
		resolvedID, err := extractUserIDFromToken(out.Token)
		if err != nil {
			logger.Error("AfterAuthenticateDevice: Failed to extract user ID from token: %v", err)
			return err
		}
		userID = resolvedID
	}

	logger.Info("Onboarding new user %s", userID)

	service := onboarding.NewService(NewAccountAdapter(nk), NewDeckStorageAdapter(nk), starterDeck(logger), nil)
	result, err := service.OnboardNewUser(ctx, userID)
	if result.ProfileUpdateErr != nil {
		logger.Warn("AfterAuthenticateDevice: Failed to update profile for user %s: %v", userID, result.ProfileUpdateErr)
	}
	if err != nil {
		logger.Error("AfterAuthenticateDevice: Onboarding failed for user %s: %v", userID, err)
		return err
	}
	if !result.StarterDeckSaved {
		logger.Info("AfterAuthenticateDevice: User %s already has a starter deck", userID)
	}
	return nil
}

func starterDeck(logger runtime.Logger) deckfile.List {
	list, err := deckfile.Load(StarterDeckPath)
	if err != nil {
		logger.Debug("Using the builtin starter deck: %v", err)
		return onboarding.StarterDeck
	}
	list.Name = onboarding.StarterDeck.Name
	return list
}

// extractUserIDFromToken reads the uid claim of a session token. Nakama has
// already verified the token, so the signature is not checked again.
func extractUserIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", fmt.Errorf("token claims missing uid")
	}
	return uid, nil
}
