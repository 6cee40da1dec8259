// Command tablesim plays a scripted two-participant session against the card
// table match in process. The same seed always produces the same table, which
// makes it useful for replaying a reported problem.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"cardtable/internal/app"
	"cardtable/internal/client"
	"cardtable/internal/config"
	"cardtable/internal/deckfile"
	"cardtable/internal/domain"
	"cardtable/internal/logging"
	"cardtable/internal/loopback"
	"cardtable/internal/ports/nakama"
	"cardtable/internal/wire"

	"github.com/heroiclabs/nakama-common/runtime"
	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
)

var builtinDeck = deckfile.List{
	Name: "builtin",
	Cards: []deckfile.Entry{
		{Name: "Scout", Count: 3},
		{Name: "Firebolt", Count: 3},
		{Name: "Shield Wall", Count: 2},
	},
}

func main() {
	seed := flag.Int64("seed", 1, "seed for every shuffle and dice roll")
	deckPath := flag.String("deck", "data/decks/starter.yaml", "deck list for both participants")
	envPath := flag.String("env", ".env", "file with cardtable_* overrides")
	configPath := flag.String("config", config.DefaultPath, "table config shared by the match and both participants")
	flag.Parse()

	if err := run(*seed, *deckPath, *envPath, *configPath); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(seed int64, deckPath, envPath, configPath string) error {
	env, err := godotenv.Read(envPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", envPath, err)
	}
	cfg, err := loadConfig(configPath, env)
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel)

	list, err := deckfile.Load(deckPath)
	if err != nil {
		pterm.Warning.Printfln("Using the builtin deck: %v", err)
		list = builtinDeck
	}

	ctx := context.Background()
	match, err := nakama.NewMatch(ctx, logger, nil, nil)
	if err != nil {
		return err
	}
	table, err := loopback.NewTable(ctx, logger, match, env, map[string]interface{}{nakama.MatchParamSeed: seed})
	if err != nil {
		return err
	}
	defer table.Terminate(0)

	pterm.DefaultSection.Printfln("Table %s (seed %d)", table.MatchID(), seed)
	alice, err := connect(table, "alice", cfg, logger)
	if err != nil {
		return err
	}
	bob, err := connect(table, "bob", cfg, logger)
	if err != nil {
		return err
	}

	s := &session{ctx: ctx, table: table, alice: alice, bob: bob}
	return s.play(list)
}

// loadConfig resolves the configuration the participants share with the
// match. The file is loaded once per process, so the match picks up the same
// values when it initializes.
func loadConfig(path string, env map[string]string) (config.TableConfig, error) {
	if err := config.LoadTableConfig(path); err != nil {
		pterm.Warning.Printfln("Using the default table config: %v", err)
	}
	cfg := config.GetTableConfig()
	if err := cfg.ApplyEnv(env); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func connect(table *loopback.Table, user string, cfg config.TableConfig, logger runtime.Logger) (*client.Client, error) {
	var conn *loopback.Conn
	c := client.New(user, senderFunc(func(ctx context.Context, op int64, data []byte) error {
		if conn == nil {
			return loopback.ErrClosed
		}
		return conn.Send(ctx, op, data)
	}), cfg, logger)
	c.OnEvent(func(op int64, data []byte) { announce(user, op, data) })

	var err error
	conn, err = table.Join(user, nil, func(op int64, data []byte) {
		if err := c.Receive(context.Background(), op, data); err != nil {
			logger.WithField("participant", user).Warn("receive failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("join %s: %w", user, err)
	}
	return c, nil
}

type senderFunc func(ctx context.Context, op int64, data []byte) error

func (f senderFunc) Send(ctx context.Context, op int64, data []byte) error { return f(ctx, op, data) }

type session struct {
	ctx   context.Context
	table *loopback.Table
	alice *client.Client
	bob   *client.Client
}

// step runs the requests and ticks the table once so their results replicate.
func (s *session) step(title string, requests ...func() error) error {
	for _, req := range requests {
		if err := req(); err != nil {
			return fmt.Errorf("%s: %w", title, err)
		}
	}
	if !s.table.Tick() {
		return fmt.Errorf("%s: %w", title, loopback.ErrTerminated)
	}
	pterm.Info.Println(title)
	return nil
}

func (s *session) play(list deckfile.List) error {
	cards := list.Expand()
	err := s.step("Both participants spawn a deck",
		func() error { return s.alice.SpawnDeck(s.ctx, cards, domain.Vec2{X: -3, Y: -2}) },
		func() error { return s.bob.SpawnDeck(s.ctx, cards, domain.Vec2{X: 3, Y: 2}) },
	)
	if err != nil {
		return err
	}
	aliceDeck, err := s.alice.WaitForDeck(s.ctx, "alice")
	if err != nil {
		return err
	}
	bobDeck, err := s.bob.WaitForDeck(s.ctx, "bob")
	if err != nil {
		return err
	}

	err = s.step("Both decks are shuffled",
		func() error { return s.alice.ShuffleDeck(s.ctx, aliceDeck.ID) },
		func() error { return s.bob.ShuffleDeck(s.ctx, bobDeck.ID) },
	)
	if err != nil {
		return err
	}

	var draws []func() error
	for i := 0; i < 3; i++ {
		draws = append(draws,
			func() error { return s.alice.DrawCard(s.ctx, aliceDeck.ID) },
			func() error { return s.bob.DrawCard(s.ctx, bobDeck.ID) },
		)
	}
	if err := s.step("Opening hands of three", draws...); err != nil {
		return err
	}
	render(s.alice, s.bob)

	hand := s.alice.Hand()
	plays := make([]func() error, 0, len(hand))
	for i, card := range hand {
		id := card.ID
		offset := float64(i) * 0.2
		plays = append(plays, func() error {
			return s.alice.PlayFromHand(s.ctx, id, domain.Vec2{X: offset}, 0)
		})
	}
	if err := s.step("Alice plays her hand into one pile", plays...); err != nil {
		return err
	}

	top, ok := s.alice.TopAt(domain.Vec2{})
	if !ok {
		return errors.New("no pile at the origin")
	}
	err = s.step("Alice cycles the pile and Bob rolls the dice",
		func() error { return s.alice.CyclePile(s.ctx, top.ID, true) },
		func() error { return s.bob.RollDice(s.ctx) },
		func() error { return s.bob.AdjustHealth(s.ctx, domain.SeatPlayer1, -3) },
	)
	if err != nil {
		return err
	}
	render(s.alice, s.bob)

	top, ok = s.alice.TopAt(domain.Vec2{})
	if !ok {
		return errors.New("pile vanished")
	}
	err = s.step("Alice returns the pile to her deck",
		func() error { return s.alice.ReturnToDeck(s.ctx, top.ID) },
	)
	if err != nil {
		return err
	}
	render(s.alice, s.bob)
	return nil
}

// announce prints the events a participant receives.
func announce(user string, op int64, data []byte) {
	who := pterm.LightCyan(user)
	switch op {
	case wire.OpDiceRolled:
		var p app.DiceRolledPayload
		if wire.Unmarshal(data, &p) == nil {
			pterm.Info.Printfln("%s sees roll #%d: %d and %d", who, p.RollID, p.Dice[0], p.Dice[1])
		}
	case wire.OpCardDrawn:
		var p app.CardDrawnPayload
		if wire.Unmarshal(data, &p) == nil {
			pterm.Info.Printfln("%s drew %s", who, pterm.LightGreen(p.Card.Name))
		}
	case wire.OpPileOrder:
		pterm.Info.Printfln("%s sees a pile reordered", who)
	case wire.OpReturnedToDeck:
		pterm.Info.Printfln("%s sees a card go back to a deck", who)
	}
}
