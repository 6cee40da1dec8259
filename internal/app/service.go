package app

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"cardtable/internal/config"
	"cardtable/internal/deck"
	"cardtable/internal/domain"
	"cardtable/internal/pile"
	"cardtable/internal/replica"
)

// Service contains the table use-cases. Every operation validates against the
// current authority state before writing anything, so a rejected request
// leaves no partial effect.
type Service struct {
	store  *replica.Store
	decks  *deck.Manager
	piles  pile.Resolver
	cfg    config.TableConfig
	rng    *rand.Rand
	handID func() string
}

// NewService constructs a Service over an authority store with provided rng
// or a time-seeded default.
func NewService(store *replica.Store, cfg config.TableConfig, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		store:  store,
		decks:  deck.NewManager(store),
		piles:  pile.NewResolver(cfg.GroupRadius, domain.Vec2{X: cfg.CardWidth, Y: cfg.CardHeight}),
		cfg:    cfg,
		rng:    rng,
		handID: uuid.NewString,
	}
}

var (
	ErrNotOwner        = errors.New("actor does not own the entity")
	ErrNotHost         = errors.New("actor is not the table host")
	ErrWrongKind       = errors.New("entity kind does not support this request")
	ErrNoDeckInRange   = errors.New("no owned deck within range")
	ErrUnknownHandCard = errors.New("hand card not found")
	ErrSeatTaken       = errors.New("seat already taken")
	ErrInvalidSeat     = errors.New("invalid seat")
	ErrNotSeated       = errors.New("actor has no player seat")
	ErrTableFull       = errors.New("table is full")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrDeckTooLarge    = errors.New("deck exceeds maximum size")
	ErrHandFull        = errors.New("hand is full")
	ErrUnknownEntity   = replica.ErrUnknownEntity
)

// Store returns the authority store the service writes through.
func (s *Service) Store() *replica.Store {
	return s.store
}

// Resolver returns the pile resolver configured for this table.
func (s *Service) Resolver() pile.Resolver {
	return s.piles
}

// Setup writes the initial table state.
func (s *Service) Setup() error {
	for seat := domain.SeatPlayer1; seat <= domain.SeatPlayer2; seat++ {
		if err := s.store.SetLife(seat, domain.ClampHealth(s.cfg.StartingHealth)); err != nil {
			return err
		}
	}
	return nil
}

// Join seats a participant in the lowest free player seat, or as a spectator
// when both are taken. A participant holding a valid host ticket becomes the
// host; otherwise the first participant to join is.
func (s *Service) Join(userID string, claimsHost bool) ([]Event, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}
	table := s.store.Table()
	seat := domain.SeatOf(&table.Seats, userID)
	if seat == domain.SeatSpectator {
		seat = domain.LowestAvailableSeat(&table.Seats)
		if seat == domain.SeatSpectator && !s.cfg.AllowSpectators {
			return nil, ErrTableFull
		}
		if seat != domain.SeatSpectator {
			if err := s.store.SetSeat(seat, userID); err != nil {
				return nil, err
			}
		}
	}

	host := table.Host == userID
	if !host && (claimsHost || table.Host == "") {
		if err := s.store.SetHost(userID); err != nil {
			return nil, err
		}
		host = true
	}

	return []Event{{
		Kind:    EventPlayerJoined,
		Payload: PlayerJoinedPayload{UserID: userID, Seat: seat.String(), Host: host},
	}}, nil
}

// Leave frees the participant's seat. If the host left, hosting moves to the
// first remaining seated participant, then to any remaining participant.
// Cards, decks and hands of the participant stay on the table.
func (s *Service) Leave(userID string, remaining []string) ([]Event, error) {
	table := s.store.Table()
	if seat := domain.SeatOf(&table.Seats, userID); seat != domain.SeatSpectator {
		if err := s.store.SetSeat(seat, ""); err != nil {
			return nil, err
		}
		table.Seats[seat] = ""
	}

	events := []Event{{Kind: EventPlayerLeft, Payload: PlayerLeftPayload{UserID: userID}}}
	if table.Host != userID {
		return events, nil
	}

	next := findNextHost(&table.Seats, remaining, userID)
	if err := s.store.SetHost(next); err != nil {
		return nil, err
	}
	if next != "" {
		events = append(events, Event{Kind: EventHostChanged, Payload: HostChangedPayload{UserID: next}})
	}
	return events, nil
}

func findNextHost(seats *domain.Seats, remaining []string, leaving string) string {
	present := make(map[string]bool, len(remaining))
	for _, id := range remaining {
		if id != leaving {
			present[id] = true
		}
	}
	for _, id := range seats {
		if id != "" && present[id] {
			return id
		}
	}
	for _, id := range remaining {
		if id != leaving {
			return id
		}
	}
	return ""
}

// ClaimSeat moves the participant to a player seat, or out of its seat when
// seat is the spectator seat.
func (s *Service) ClaimSeat(userID string, seat domain.Seat) ([]Event, error) {
	table := s.store.Table()
	current := domain.SeatOf(&table.Seats, userID)
	if seat == current {
		return nil, nil
	}
	if seat == domain.SeatSpectator {
		if !s.cfg.AllowSpectators {
			return nil, ErrInvalidSeat
		}
		return nil, s.store.SetSeat(current, "")
	}
	if !seat.Valid() {
		return nil, ErrInvalidSeat
	}
	if table.Seats[seat] != "" {
		return nil, ErrSeatTaken
	}
	if current != domain.SeatSpectator {
		if err := s.store.SetSeat(current, ""); err != nil {
			return nil, err
		}
	}
	return nil, s.store.SetSeat(seat, userID)
}

// Delete despawns a card, token or deck. The owner or the host may delete.
func (s *Service) Delete(userID string, id domain.EntityID) ([]Event, error) {
	owner, ok := s.store.Registry().OwnerOf(id)
	if !ok || id == domain.TableEntity {
		return nil, ErrUnknownEntity
	}
	if owner != userID && s.store.Table().Host != userID {
		return nil, fmt.Errorf("delete %d: %w", id, ErrNotOwner)
	}
	return nil, s.store.Despawn(id)
}

// AdjustHealth changes a seat's health total. Any seated participant may
// adjust either seat.
func (s *Service) AdjustHealth(userID string, seat domain.Seat, delta int) ([]Event, error) {
	if !seat.Valid() {
		return nil, ErrInvalidSeat
	}
	table := s.store.Table()
	if domain.SeatOf(&table.Seats, userID) == domain.SeatSpectator {
		return nil, ErrNotSeated
	}
	return nil, s.store.SetLife(seat, domain.AddHealth(table.Life[seat], delta))
}

// RollDice draws both dice on the server.
func (s *Service) RollDice(userID string) ([]Event, error) {
	dice := [2]int{s.rng.Intn(domain.DieFaces) + 1, s.rng.Intn(domain.DieFaces) + 1}
	rollID, err := s.store.SetDice(dice[0], dice[1])
	if err != nil {
		return nil, err
	}
	return []Event{{
		Kind:    EventDiceRolled,
		Payload: DiceRolledPayload{UserID: userID, RollID: rollID, Dice: dice},
	}}, nil
}

// ResetTable despawns every card, token and deck, empties every hand and
// restores starting health. Host only.
func (s *Service) ResetTable(userID string) ([]Event, error) {
	if s.store.Table().Host != userID {
		return nil, ErrNotHost
	}
	for _, e := range s.store.Registry().Live("") {
		if err := s.store.Despawn(e.ID); err != nil {
			return nil, err
		}
	}
	for _, p := range s.store.HandOwners() {
		if err := s.store.ClearHand(p); err != nil {
			return nil, err
		}
	}
	if err := s.Setup(); err != nil {
		return nil, err
	}
	return []Event{{Kind: EventTableReset, Payload: TableResetPayload{UserID: userID}}}, nil
}

// requireOwnedCard returns the card or token when it exists and userID owns it.
func (s *Service) requireOwnedCard(userID string, id domain.EntityID) (replica.CardState, error) {
	card, ok := s.store.Card(id)
	if !ok {
		if _, isDeck := s.store.Deck(id); isDeck {
			return replica.CardState{}, fmt.Errorf("entity %d is a deck: %w", id, ErrWrongKind)
		}
		return replica.CardState{}, ErrUnknownEntity
	}
	if card.Owner != userID {
		return replica.CardState{}, fmt.Errorf("card %d: %w", id, ErrNotOwner)
	}
	return card, nil
}

func (s *Service) requireOwnedDeck(userID string, id domain.EntityID) (replica.DeckState, error) {
	d, ok := s.store.Deck(id)
	if !ok {
		if _, isCard := s.store.Card(id); isCard {
			return replica.DeckState{}, fmt.Errorf("entity %d is not a deck: %w", id, ErrWrongKind)
		}
		return replica.DeckState{}, ErrUnknownEntity
	}
	if d.Owner != userID {
		return replica.DeckState{}, fmt.Errorf("deck %d: %w", id, ErrNotOwner)
	}
	return d, nil
}

func finite(v ...float64) bool {
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
