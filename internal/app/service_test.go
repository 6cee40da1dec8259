package app

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"cardtable/internal/config"
	"cardtable/internal/domain"
	"cardtable/internal/replica"
	"cardtable/internal/world"
)

func newTable(t *testing.T) (*Service, *replica.Store) {
	t.Helper()
	store := replica.NewAuthority(world.NewRegistry())
	svc := NewService(store, config.Default(), rand.New(rand.NewSource(7)))
	if err := svc.Setup(); err != nil {
		t.Fatalf("setup error: %v", err)
	}
	for _, u := range []string{"p1", "p2"} {
		if _, err := svc.Join(u, false); err != nil {
			t.Fatalf("join %s error: %v", u, err)
		}
	}
	return svc, store
}

func spawnCard(t *testing.T, store *replica.Store, owner, name string, x, y float64, stack int) domain.EntityID {
	t.Helper()
	xf := domain.Transform{Pos: domain.Vec2{X: x, Y: y}, StackIndex: stack}
	id, err := store.SpawnCard(domain.KindCard, owner, name, xf, domain.ResourceNone)
	if err != nil {
		t.Fatalf("spawn card error: %v", err)
	}
	return id
}

func spawnDeck(t *testing.T, svc *Service, owner string, x, y float64, names ...string) domain.EntityID {
	t.Helper()
	id, _, err := svc.SpawnDeck(owner, names, domain.Vec2{X: x, Y: y})
	if err != nil {
		t.Fatalf("spawn deck error: %v", err)
	}
	return id
}

func stackOf(t *testing.T, store *replica.Store, id domain.EntityID) int {
	t.Helper()
	c, ok := store.Card(id)
	if !ok {
		t.Fatalf("card %d missing", id)
	}
	return c.Transform.StackIndex
}

func TestJoinAssignsSeatsAndHost(t *testing.T) {
	svc, store := newTable(t)

	table := store.Table()
	if table.Seats[domain.SeatPlayer1] != "p1" || table.Seats[domain.SeatPlayer2] != "p2" {
		t.Fatalf("seats = %v, want [p1 p2]", table.Seats)
	}
	if table.Host != "p1" {
		t.Fatalf("host = %s, want p1", table.Host)
	}
	if table.Life != [2]int{30, 30} {
		t.Fatalf("life = %v, want starting health", table.Life)
	}

	evs, err := svc.Join("p3", false)
	if err != nil {
		t.Fatalf("join spectator error: %v", err)
	}
	payload := evs[0].Payload.(PlayerJoinedPayload)
	if payload.Seat != "spectator" || payload.Host {
		t.Fatalf("p3 joined as %+v, want non-host spectator", payload)
	}

	evs, err = svc.Join("p2", false)
	if err != nil {
		t.Fatalf("rejoin error: %v", err)
	}
	if got := evs[0].Payload.(PlayerJoinedPayload).Seat; got != "player2" {
		t.Fatalf("rejoin seat = %s, want player2", got)
	}
}

func TestJoinWithHostTicketTakesOverHost(t *testing.T) {
	svc, store := newTable(t)
	if _, err := svc.Join("p3", true); err != nil {
		t.Fatalf("join error: %v", err)
	}
	if store.Table().Host != "p3" {
		t.Fatalf("host = %s, want p3", store.Table().Host)
	}
}

func TestJoinRejectsSpectatorsWhenDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.AllowSpectators = false
	svc := NewService(replica.NewAuthority(world.NewRegistry()), cfg, nil)
	for _, u := range []string{"p1", "p2"} {
		if _, err := svc.Join(u, false); err != nil {
			t.Fatalf("join %s error: %v", u, err)
		}
	}
	if _, err := svc.Join("p3", false); !errors.Is(err, ErrTableFull) {
		t.Fatalf("err = %v, want ErrTableFull", err)
	}
}

func TestLeaveReassignsHost(t *testing.T) {
	svc, store := newTable(t)
	if _, err := svc.Join("p3", false); err != nil {
		t.Fatalf("join error: %v", err)
	}

	evs, err := svc.Leave("p1", []string{"p3", "p2"})
	if err != nil {
		t.Fatalf("leave error: %v", err)
	}
	table := store.Table()
	if table.Host != "p2" {
		t.Fatalf("host = %s, want seated p2 before spectator p3", table.Host)
	}
	if table.Seats[domain.SeatPlayer1] != "" {
		t.Fatalf("seat 1 = %s, want free", table.Seats[domain.SeatPlayer1])
	}
	if len(evs) != 2 || evs[1].Kind != EventHostChanged {
		t.Fatalf("events = %+v, want left + host changed", evs)
	}

	if _, err := svc.Leave("p2", []string{"p3"}); err != nil {
		t.Fatalf("leave error: %v", err)
	}
	if store.Table().Host != "p3" {
		t.Fatalf("host = %s, want remaining spectator p3", store.Table().Host)
	}
}

func TestClaimSeat(t *testing.T) {
	svc, store := newTable(t)
	if _, err := svc.ClaimSeat("p2", domain.SeatPlayer1); !errors.Is(err, ErrSeatTaken) {
		t.Fatalf("err = %v, want ErrSeatTaken", err)
	}
	if _, err := svc.ClaimSeat("p1", domain.SeatSpectator); err != nil {
		t.Fatalf("stand up error: %v", err)
	}
	if _, err := svc.ClaimSeat("p2", domain.SeatPlayer1); err != nil {
		t.Fatalf("switch seat error: %v", err)
	}
	seats := store.Table().Seats
	if seats != (domain.Seats{"p2", ""}) {
		t.Fatalf("seats = %v, want [p2 \"\"]", seats)
	}
	if _, err := svc.ClaimSeat("p1", domain.Seat(5)); !errors.Is(err, ErrInvalidSeat) {
		t.Fatalf("err = %v, want ErrInvalidSeat", err)
	}
}

func TestDrawIsPrivateAndOwnerOnly(t *testing.T) {
	svc, store := newTable(t)
	deckID := spawnDeck(t, svc, "p1", 0, 0, "A", "B", "C")

	before := store.Seq()
	if _, err := svc.DrawCard("p2", deckID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if store.Seq() != before {
		t.Fatal("rejected draw changed state")
	}

	evs, err := svc.DrawCard("p1", deckID)
	if err != nil {
		t.Fatalf("draw error: %v", err)
	}
	if len(evs) != 1 || evs[0].Kind != EventCardDrawn {
		t.Fatalf("events = %+v, want one card drawn", evs)
	}
	if len(evs[0].Recipients) != 1 || evs[0].Recipients[0] != "p1" {
		t.Fatalf("recipients = %v, want only p1", evs[0].Recipients)
	}
	drawn := evs[0].Payload.(CardDrawnPayload)
	if drawn.Card.Name != "A" || drawn.Card.ID == "" {
		t.Fatalf("drawn = %+v, want A with a handle", drawn.Card)
	}
	if hand := store.Hand("p1"); len(hand) != 1 || hand[0] != drawn.Card {
		t.Fatalf("hand = %+v, want the drawn card", hand)
	}
	if store.Table().HandCounts["p1"] != 1 {
		t.Fatalf("hand count = %d, want 1", store.Table().HandCounts["p1"])
	}
}

func TestDrawFromEmptyDeckIsNoOp(t *testing.T) {
	svc, store := newTable(t)
	deckID := spawnDeck(t, svc, "p1", 0, 0)
	before := store.Seq()
	evs, err := svc.DrawCard("p1", deckID)
	if err != nil || evs != nil {
		t.Fatalf("draw empty = %v, %v; want nothing", evs, err)
	}
	if store.Seq() != before {
		t.Fatal("empty draw changed state")
	}
}

func TestShuffleAnnouncesWithoutOrder(t *testing.T) {
	svc, _ := newTable(t)
	deckID := spawnDeck(t, svc, "p1", 0, 0, "A", "B", "C", "D")

	evs, err := svc.ShuffleDeckSeeded("p1", deckID, 3)
	if err != nil {
		t.Fatalf("shuffle error: %v", err)
	}
	if len(evs) != 1 || evs[0].Kind != EventDeckShuffled || evs[0].Recipients != nil {
		t.Fatalf("events = %+v, want one public shuffle event", evs)
	}
	if got := evs[0].Payload.(DeckShuffledPayload); got.Count != 4 {
		t.Fatalf("count = %d, want 4", got.Count)
	}
}

func TestSpawnDeckValidation(t *testing.T) {
	svc, _ := newTable(t)
	names := make([]string, svc.cfg.MaxDeckSize+1)
	for i := range names {
		names[i] = "x"
	}
	if _, _, err := svc.SpawnDeck("p1", names, domain.Vec2{}); !errors.Is(err, ErrDeckTooLarge) {
		t.Fatalf("err = %v, want ErrDeckTooLarge", err)
	}
	if _, _, err := svc.SpawnDeck("p1", []string{""}, domain.Vec2{}); err == nil {
		t.Fatal("expected empty name to be rejected")
	}
}

func TestDropOnPileSetsAsTop(t *testing.T) {
	svc, store := newTable(t)
	x := spawnCard(t, store, "p1", "X", 0, 0, 5)
	y := spawnCard(t, store, "p1", "Y", 10, 0, 3)

	evs, err := svc.MoveCard("p1", y, domain.Vec2{X: 0.3, Y: 0.2}, 0, false, true)
	if err != nil {
		t.Fatalf("move error: %v", err)
	}
	if stackOf(t, store, x) != 5 || stackOf(t, store, y) != 6 {
		t.Fatalf("stacks = X%d Y%d, want X5 Y6", stackOf(t, store, x), stackOf(t, store, y))
	}
	if len(evs) != 1 || evs[0].Kind != EventPileOrder {
		t.Fatalf("events = %+v, want pile order", evs)
	}

	evs, err = svc.MoveCard("p1", y, domain.Vec2{X: 0.3, Y: 0.2}, 0, false, true)
	if err != nil || len(evs) != 0 {
		t.Fatalf("repeat drop = %v, %v; want no change", evs, err)
	}
}

func TestDropPileOnPileSetsLeadAsTop(t *testing.T) {
	svc, store := newTable(t)
	a := spawnCard(t, store, "p1", "A", 5, 0, 30)
	b := spawnCard(t, store, "p1", "B", 5, 0, 31)
	lead := spawnCard(t, store, "p1", "L", 0, 0, 30)
	under := spawnCard(t, store, "p1", "M", 0, 0, 29)

	evs, err := svc.MoveCard("p1", lead, domain.Vec2{X: 5, Y: 0.2}, 0, true, true)
	if err != nil {
		t.Fatalf("move error: %v", err)
	}
	if len(evs) != 1 || evs[0].Kind != EventPileOrder {
		t.Fatalf("events = %+v, want pile order", evs)
	}
	top, ok := svc.piles.Top(store, a)
	if !ok || top.ID != lead {
		t.Fatalf("top = %d, want the released card %d", top.ID, lead)
	}
	got := [4]int{stackOf(t, store, under), stackOf(t, store, a), stackOf(t, store, b), stackOf(t, store, lead)}
	if got != [4]int{29, 30, 31, 32} {
		t.Fatalf("stacks M A B L = %v, want [29 30 31 32]", got)
	}
}

func TestDropPileOnDeckPushesGroupOut(t *testing.T) {
	svc, store := newTable(t)
	spawnDeck(t, svc, "p1", 0, 0, "A")
	lead := spawnCard(t, store, "p1", "L", 10, 0, 30)
	other := spawnCard(t, store, "p1", "O", 10.2, 0, 31)

	evs, err := svc.MoveCard("p1", lead, domain.Vec2{X: 0.5}, 0, true, true)
	if err != nil {
		t.Fatalf("move error: %v", err)
	}
	if len(evs) != 0 {
		t.Fatalf("events = %+v, want none for a pushed group", evs)
	}
	cl, _ := store.Card(lead)
	co, _ := store.Card(other)
	if _, blocked := svc.piles.OverlappingDeck(store.Decks(), cl.Transform); blocked {
		t.Fatalf("lead at %v still overlaps the deck", cl.Transform.Pos)
	}
	if d := co.Transform.Pos.Sub(cl.Transform.Pos); d.X < 0.199 || d.X > 0.201 || d.Y != 0 {
		t.Fatalf("offset = %v, want the group's shape kept", d)
	}
	if stackOf(t, store, lead) != 30 || stackOf(t, store, other) != 31 {
		t.Fatal("a pushed group must keep its order")
	}
}

func TestDropOnDeckPushesOut(t *testing.T) {
	svc, store := newTable(t)
	spawnDeck(t, svc, "p1", 0, 0, "A")
	c := spawnCard(t, store, "p1", "C", 10, 0, 30)

	if _, err := svc.MoveCard("p1", c, domain.Vec2{X: 1}, 0, false, true); err != nil {
		t.Fatalf("move error: %v", err)
	}
	card, _ := store.Card(c)
	if card.Transform.Pos.X < 1.75 || card.Transform.Pos.X > 1.76 {
		t.Fatalf("x = %v, want pushed just clear of the deck", card.Transform.Pos.X)
	}
	if card.Transform.Pos.Y != 0 {
		t.Fatalf("y = %v, want 0", card.Transform.Pos.Y)
	}
}

func TestMoveWithPileKeepsShape(t *testing.T) {
	svc, store := newTable(t)
	a := spawnCard(t, store, "p1", "A", 0, 0, 30)
	b := spawnCard(t, store, "p1", "B", 0.2, 0.2, 31)
	far := spawnCard(t, store, "p1", "F", 5, 5, 30)

	if _, err := svc.MoveCard("p1", b, domain.Vec2{X: 10.2, Y: 0.2}, 0, true, true); err != nil {
		t.Fatalf("move error: %v", err)
	}
	ca, _ := store.Card(a)
	if ca.Transform.Pos != (domain.Vec2{X: 10, Y: 0}) {
		t.Fatalf("a at %v, want moved with the pile", ca.Transform.Pos)
	}
	cf, _ := store.Card(far)
	if cf.Transform.Pos != (domain.Vec2{X: 5, Y: 5}) {
		t.Fatalf("far card moved to %v", cf.Transform.Pos)
	}
	if stackOf(t, store, a) != 30 || stackOf(t, store, b) != 31 {
		t.Fatal("dragging a pile must keep its order")
	}
}

func TestMoveRejectsOtherOwner(t *testing.T) {
	svc, store := newTable(t)
	c := spawnCard(t, store, "p1", "C", 0, 0, 30)
	before := store.Seq()
	if _, err := svc.MoveCard("p2", c, domain.Vec2{X: 1}, 0, false, true); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if store.Seq() != before {
		t.Fatal("rejected move changed state")
	}
}

func TestPlayFromHand(t *testing.T) {
	svc, store := newTable(t)
	deckID := spawnDeck(t, svc, "p1", 0, 0, "A", "B")
	var handIDs []string
	for i := 0; i < 2; i++ {
		evs, err := svc.DrawCard("p1", deckID)
		if err != nil {
			t.Fatalf("draw error: %v", err)
		}
		handIDs = append(handIDs, evs[0].Payload.(CardDrawnPayload).Card.ID)
	}

	first, evs, err := svc.PlayFromHand("p1", handIDs[0], domain.Vec2{X: 10, Y: 10}, 44)
	if err != nil {
		t.Fatalf("play error: %v", err)
	}
	if len(evs) != 0 {
		t.Fatalf("events = %+v, want none for a lone card", evs)
	}
	card, _ := store.Card(first)
	if card.Owner != "p1" || card.Name != "A" {
		t.Fatalf("card = %+v, want p1's A", card)
	}
	if card.Transform.Pos != (domain.Vec2{X: 10, Y: 10.5}) || card.Transform.Rotation != 30 {
		t.Fatalf("transform = %+v, want offset position and snapped rotation", card.Transform)
	}

	second, evs, err := svc.PlayFromHand("p1", handIDs[1], domain.Vec2{X: 10, Y: 10}, 0)
	if err != nil {
		t.Fatalf("play error: %v", err)
	}
	if len(evs) != 1 || stackOf(t, store, second) != stackOf(t, store, first)+1 {
		t.Fatal("second card should land on top of the first")
	}

	if _, _, err := svc.PlayFromHand("p1", handIDs[0], domain.Vec2{}, 0); !errors.Is(err, ErrUnknownHandCard) {
		t.Fatalf("err = %v, want ErrUnknownHandCard", err)
	}
	if len(store.Hand("p1")) != 0 {
		t.Fatal("hand should be empty")
	}
}

func TestCyclePileOwnerOnly(t *testing.T) {
	svc, store := newTable(t)
	a := spawnCard(t, store, "p1", "A", 0, 0, 10)
	b := spawnCard(t, store, "p1", "B", 0.1, 0, 11)

	if _, err := svc.CyclePile("p2", a, true); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	evs, err := svc.CyclePile("p1", a, true)
	if err != nil {
		t.Fatalf("cycle error: %v", err)
	}
	if stackOf(t, store, b) != 10 || stackOf(t, store, a) != 11 {
		t.Fatal("bottom card should move to the top")
	}
	if got := evs[0].Payload.(PileOrderPayload).Assignments; len(got) != 2 {
		t.Fatalf("assignments = %+v, want both cards", got)
	}
}

func TestCyclePileUpThenDownRestoresOrder(t *testing.T) {
	svc, store := newTable(t)
	a := spawnCard(t, store, "p1", "A", 0, 0, 10)
	b := spawnCard(t, store, "p1", "B", 0.1, 0, 12)
	c := spawnCard(t, store, "p1", "C", 0.2, 0, 15)

	if _, err := svc.CyclePile("p1", a, true); err != nil {
		t.Fatalf("cycle up error: %v", err)
	}
	if _, err := svc.CyclePile("p1", a, false); err != nil {
		t.Fatalf("cycle down error: %v", err)
	}
	sa, sb, sc := stackOf(t, store, a), stackOf(t, store, b), stackOf(t, store, c)
	if sa != 10 || sb != 11 || sc != 12 {
		t.Fatalf("stacks A B C = %d %d %d, want 10 11 12", sa, sb, sc)
	}
}

func TestReturnToDeck(t *testing.T) {
	svc, store := newTable(t)
	deckID := spawnDeck(t, svc, "p1", 0, 0, "A", "B")
	x := spawnCard(t, store, "p1", "X", 3, 0, 30)
	y := spawnCard(t, store, "p1", "Y", 3.2, 0, 31)

	evs, err := svc.ReturnToDeck("p1", x)
	if err != nil {
		t.Fatalf("return error: %v", err)
	}
	d, _ := store.Deck(deckID)
	var order []string
	for _, idx := range d.DrawOrder {
		order = append(order, d.Contents[idx])
	}
	if len(order) != 4 || order[2] != "Y" || order[3] != "X" {
		t.Fatalf("draw order = %v, want [A B Y X]", order)
	}
	if _, ok := store.Card(x); ok {
		t.Fatal("x should be despawned")
	}
	if _, ok := store.Card(y); ok {
		t.Fatal("y should be despawned")
	}
	if got := evs[0].Payload.(ReturnedToDeckPayload); got.DeckID != deckID || len(got.Cards) != 2 {
		t.Fatalf("payload = %+v", got)
	}
}

func newSmallDeckTable(t *testing.T, maxDeck int) (*Service, *replica.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.MaxDeckSize = maxDeck
	store := replica.NewAuthority(world.NewRegistry())
	svc := NewService(store, cfg, rand.New(rand.NewSource(7)))
	if err := svc.Setup(); err != nil {
		t.Fatalf("setup error: %v", err)
	}
	if _, err := svc.Join("p1", false); err != nil {
		t.Fatalf("join error: %v", err)
	}
	return svc, store
}

func TestReturnToDeckRespectsMaxDeckSize(t *testing.T) {
	svc, store := newSmallDeckTable(t, 2)
	full := spawnDeck(t, svc, "p1", 0, 0, "A", "B")
	c := spawnCard(t, store, "p1", "C", 3, 0, 30)

	before := store.Seq()
	if _, err := svc.ReturnToDeck("p1", c); !errors.Is(err, ErrDeckTooLarge) {
		t.Fatalf("err = %v, want ErrDeckTooLarge", err)
	}
	if store.Seq() != before {
		t.Fatal("rejected return changed state")
	}
	if d, _ := store.Deck(full); len(d.Contents) != 2 {
		t.Fatalf("contents = %v, want unchanged", d.Contents)
	}
}

func TestHandToDeckRespectsMaxDeckSize(t *testing.T) {
	svc, store := newSmallDeckTable(t, 2)
	full := spawnDeck(t, svc, "p1", 0, 0, "A", "B")
	roomy := spawnDeck(t, svc, "p1", 20, 0)

	evs, err := svc.DrawCard("p1", full)
	if err != nil {
		t.Fatalf("draw error: %v", err)
	}
	handID := evs[0].Payload.(CardDrawnPayload).Card.ID

	if _, err := svc.HandToDeck("p1", handID, full, true); !errors.Is(err, ErrDeckTooLarge) {
		t.Fatalf("err = %v, want ErrDeckTooLarge (drawn cards keep their slot)", err)
	}
	if len(store.Hand("p1")) != 1 {
		t.Fatal("rejected insert must leave the card in hand")
	}
	if _, err := svc.HandToDeck("p1", handID, roomy, true); err != nil {
		t.Fatalf("insert into deck with room: %v", err)
	}
	if d, _ := store.Deck(roomy); len(d.DrawOrder) != 1 {
		t.Fatalf("draw order = %v, want one card", d.DrawOrder)
	}
}

func TestReturnNeedsDeckInRange(t *testing.T) {
	svc, store := newTable(t)
	spawnDeck(t, svc, "p2", 0, 0, "A")
	c := spawnCard(t, store, "p1", "C", 2, 0, 30)
	far := spawnCard(t, store, "p1", "F", 40, 0, 30)
	spawnDeck(t, svc, "p1", 20, 0)

	before := store.Seq()
	if _, err := svc.ReturnToDeck("p1", c); !errors.Is(err, ErrNoDeckInRange) {
		t.Fatalf("err = %v, want ErrNoDeckInRange (only the opponent's deck is near)", err)
	}
	if _, err := svc.ReturnToHand("p1", far); !errors.Is(err, ErrNoDeckInRange) {
		t.Fatalf("err = %v, want ErrNoDeckInRange", err)
	}
	if store.Seq() != before {
		t.Fatal("rejected return changed state")
	}
}

func TestReturnToHandIsPrivate(t *testing.T) {
	svc, store := newTable(t)
	spawnDeck(t, svc, "p1", 0, 0)
	c := spawnCard(t, store, "p1", "Secret", 3, 0, 30)

	evs, err := svc.ReturnToHand("p1", c)
	if err != nil {
		t.Fatalf("return error: %v", err)
	}
	if len(evs) != 1 || len(evs[0].Recipients) != 1 || evs[0].Recipients[0] != "p1" {
		t.Fatalf("events = %+v, want a p1-only event", evs)
	}
	if hand := store.Hand("p1"); len(hand) != 1 || hand[0].Name != "Secret" {
		t.Fatalf("hand = %+v", hand)
	}
}

func TestDeleteOwnerOrHost(t *testing.T) {
	svc, store := newTable(t)
	mine := spawnCard(t, store, "p2", "M", 0, 0, 30)
	theirs := spawnCard(t, store, "p1", "T", 5, 0, 30)

	if _, err := svc.Delete("p2", theirs); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if _, err := svc.Delete("p1", mine); err != nil {
		t.Fatalf("host delete error: %v", err)
	}
	if _, ok := store.Card(mine); ok {
		t.Fatal("card should be gone")
	}
	if _, err := svc.Delete("p1", mine); !errors.Is(err, world.ErrStale) {
		t.Fatalf("err = %v, want stale id", err)
	}
}

func TestStatusCounters(t *testing.T) {
	svc, store := newTable(t)
	c := spawnCard(t, store, "p1", "C", 0, 0, 30)

	if _, err := svc.AdjustExhaust("p1", c, -3); err != nil {
		t.Fatalf("exhaust error: %v", err)
	}
	if _, err := svc.AdjustBuff("p1", c, 150, -2); err != nil {
		t.Fatalf("buff error: %v", err)
	}
	card, _ := store.Card(c)
	if card.Exhaust != 0 || card.Power != domain.MaxBuff || card.Health != -2 {
		t.Fatalf("card = %+v, want clamped counters", card)
	}
	if _, err := svc.ClearBuff("p1", c); err != nil {
		t.Fatalf("clear error: %v", err)
	}
	card, _ = store.Card(c)
	if card.Power != 0 || card.Health != 0 {
		t.Fatalf("buffs = %d/%d, want cleared", card.Power, card.Health)
	}
	if _, err := svc.AdjustBuff("p1", c, -5, 0); err != nil {
		t.Fatalf("buff error: %v", err)
	}
	if _, err := svc.AdjustBuff("p1", c, math.MinInt, math.MaxInt); err != nil {
		t.Fatalf("buff error: %v", err)
	}
	if _, err := svc.AdjustExhaust("p1", c, math.MaxInt); err != nil {
		t.Fatalf("exhaust error: %v", err)
	}
	card, _ = store.Card(c)
	if card.Power != domain.MinBuff || card.Health != domain.MaxBuff || card.Exhaust != domain.MaxExhaust {
		t.Fatalf("card = %+v, want extreme deltas pinned to the bounds", card)
	}
	if _, err := svc.AdjustExhaust("p2", c, 1); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if _, err := svc.SetResourceType("p1", c, domain.ResourceArcane); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("err = %v, want ErrWrongKind", err)
	}
}

func TestSpawnResource(t *testing.T) {
	svc, store := newTable(t)
	tests := []struct {
		user string
		rot  float64
	}{
		{"p1", 90},
		{"p2", 270},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			evs, err := svc.SpawnResource(tt.user)
			if err != nil {
				t.Fatalf("spawn error: %v", err)
			}
			id := evs[0].Payload.(ResourceSpawnedPayload).CardID
			tok, _ := store.Card(id)
			if tok.Kind != domain.KindResource || tok.Owner != tt.user {
				t.Fatalf("token = %+v", tok)
			}
			if tok.Transform.Rotation != tt.rot {
				t.Fatalf("rotation = %v, want %v", tok.Transform.Rotation, tt.rot)
			}
			if _, err := svc.SetResourceType(tt.user, id, domain.ResourceTech); err != nil {
				t.Fatalf("set resource error: %v", err)
			}
			if _, err := svc.CyclePile(tt.user, id, true); !errors.Is(err, ErrWrongKind) {
				t.Fatalf("err = %v, want ErrWrongKind", err)
			}
		})
	}

	if _, err := svc.SpawnResource("watcher"); !errors.Is(err, ErrNotSeated) {
		t.Fatalf("err = %v, want ErrNotSeated", err)
	}
}

func TestHealthAndDice(t *testing.T) {
	svc, store := newTable(t)
	if _, err := svc.AdjustHealth("p1", domain.SeatPlayer2, -5); err != nil {
		t.Fatalf("health error: %v", err)
	}
	if _, err := svc.AdjustHealth("p2", domain.SeatPlayer1, 500); err != nil {
		t.Fatalf("health error: %v", err)
	}
	if life := store.Table().Life; life != [2]int{domain.MaxHealth, 25} {
		t.Fatalf("life = %v, want [99 25]", life)
	}
	if _, err := svc.AdjustHealth("watcher", domain.SeatPlayer1, 1); !errors.Is(err, ErrNotSeated) {
		t.Fatalf("err = %v, want ErrNotSeated", err)
	}

	for want := 1; want <= 3; want++ {
		evs, err := svc.RollDice("p2")
		if err != nil {
			t.Fatalf("roll error: %v", err)
		}
		got := evs[0].Payload.(DiceRolledPayload)
		if got.RollID != want {
			t.Fatalf("roll id = %d, want %d", got.RollID, want)
		}
		for _, d := range got.Dice {
			if d < 1 || d > domain.DieFaces {
				t.Fatalf("die = %d out of range", d)
			}
		}
		if store.Table().Dice != got.Dice {
			t.Fatal("table dice do not match the event")
		}
	}
}

func TestResetTableHostOnly(t *testing.T) {
	svc, store := newTable(t)
	deckID := spawnDeck(t, svc, "p2", 0, 0, "A", "B")
	if _, err := svc.DrawCard("p2", deckID); err != nil {
		t.Fatalf("draw error: %v", err)
	}
	spawnCard(t, store, "p1", "C", 5, 0, 30)
	if _, err := svc.AdjustHealth("p1", domain.SeatPlayer1, -10); err != nil {
		t.Fatalf("health error: %v", err)
	}

	if _, err := svc.ResetTable("p2"); !errors.Is(err, ErrNotHost) {
		t.Fatalf("err = %v, want ErrNotHost", err)
	}
	evs, err := svc.ResetTable("p1")
	if err != nil {
		t.Fatalf("reset error: %v", err)
	}
	if len(evs) != 1 || evs[0].Kind != EventTableReset {
		t.Fatalf("events = %+v, want table reset", evs)
	}
	if store.Registry().Len() != 0 {
		t.Fatalf("registry holds %d entities, want 0", store.Registry().Len())
	}
	if len(store.Hand("p2")) != 0 || store.Table().HandCounts["p2"] != 0 {
		t.Fatal("hands should be empty")
	}
	if store.Table().Life != [2]int{30, 30} {
		t.Fatalf("life = %v, want restored", store.Table().Life)
	}
}
