package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"cardtable/internal/deckfile"
	"cardtable/internal/ports"
)

// StarterDeck is saved for every new account when no deck file is configured.
var StarterDeck = deckfile.List{
	Name: "starter",
	Cards: []deckfile.Entry{
		{Name: "Scout", Count: 3},
		{Name: "Shield Wall", Count: 2},
		{Name: "Firebolt", Count: 3},
		{Name: "Field Medic", Count: 2},
		{Name: "Siege Golem", Count: 1},
	},
}

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
	// StarterDeckSaved is false when the account already had a starter list.
	StarterDeckSaved bool
}

// Service prepares new accounts for the card table.
type Service struct {
	accounts ports.AccountPort
	decks    ports.DeckStoragePort
	starter  deckfile.List
	rng      *rand.Rand
}

// NewService constructs an onboarding service. accounts and decks must be
// non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, decks ports.DeckStoragePort, starter deckfile.List, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		decks:    decks,
		starter:  starter,
		rng:      rng,
	}
}

// OnboardNewUser gives a new account a display name and a starter deck list.
// Only a failed deck save is an error.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.decks == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	result := Result{}
	displayName := s.generateFriendlyName()
	if err := s.accounts.UpdateProfile(ctx, userID, displayName, displayName); err != nil {
		result.ProfileUpdateErr = err
	}

	saved, err := s.decks.SaveDeck(ctx, userID, s.starter, true)
	if err != nil {
		return result, fmt.Errorf("failed to save starter deck: %w", err)
	}
	result.StarterDeckSaved = saved
	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Quiet", "Lucky", "Bold", "Clever", "Swift", "Patient", "Mighty", "Wary", "Sly", "Keen"}
	nouns := []string{"Dealer", "Knight", "Rook", "Jester", "Warden", "Scribe", "Herald", "Ranger", "Sage", "Baron"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
