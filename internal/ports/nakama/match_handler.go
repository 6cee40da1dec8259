package nakama

import (
	"context"
	"database/sql"
	"math/rand"
	"time"

	"cardtable/internal/app"
	"cardtable/internal/config"
	"cardtable/internal/domain"
	"cardtable/internal/replica"
	"cardtable/internal/wire"
	"cardtable/internal/world"

	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// MatchState holds the authoritative runtime state for the Nakama match handler.
type MatchState struct {
	MatchID   string                      `json:"match_id"`
	Tick      int64                       `json:"tick"`       // Current tick of the match
	Presences map[string]runtime.Presence `json:"-"`          // Map UserId -> Presence for targeted messaging
	JoinOrder []string                    `json:"join_order"` // Connected user ids in join order
	Store     *replica.Store              `json:"-"`          // Authoritative replicated table state
	App       *app.Service                `json:"-"`          // Table use-cases validating every request
	Tickets   *app.TicketService          `json:"-"`          // Host ticket verification
	Cursors   map[string]*replica.Cursor  `json:"-"`          // Per-recipient delta numbering
	// PendingHosts holds users whose host ticket verified in MatchJoinAttempt.
	PendingHosts map[string]bool   `json:"-"`
	Config       config.TableConfig `json:"-"`
	Label        string             `json:"label"`
}

// Seats returns the current seat map.
func (ms *MatchState) Seats() domain.Seats {
	return ms.Store.Table().Seats
}

// GetOpenSeatsCount returns how many player seats are free.
func (ms *MatchState) GetOpenSeatsCount() int {
	seats := ms.Seats()
	return domain.OpenSeats(&seats)
}

// connectedUsers returns connected user ids in join order.
func (ms *MatchState) connectedUsers() []string {
	out := make([]string, 0, len(ms.JoinOrder))
	for _, id := range ms.JoinOrder {
		if _, ok := ms.Presences[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (ms *MatchState) removeFromJoinOrder(userID string) {
	out := ms.JoinOrder[:0]
	for _, id := range ms.JoinOrder {
		if id != userID {
			out = append(out, id)
		}
	}
	ms.JoinOrder = out
}

// shouldTerminateNoHumans returns true when nobody is connected any more.
func shouldTerminateNoHumans(presences map[string]runtime.Presence) bool {
	return len(presences) == 0
}

// NewMatch is the factory function registered with Nakama.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// tableConfigFromContext loads the table configuration and applies runtime
// env overrides. Invalid results fall back to the defaults.
func tableConfigFromContext(ctx context.Context, logger runtime.Logger) config.TableConfig {
	if err := config.LoadTableConfig(config.DefaultPath); err != nil {
		logger.Warn("Could not load table config, using defaults: %v", err)
	}
	cfg := config.GetTableConfig()
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if err := cfg.ApplyEnv(env); err != nil {
			logger.Warn("Ignoring invalid table env overrides: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("Table config invalid, using defaults: %v", err)
		return config.Default()
	}
	return cfg
}

// MatchInit is called when the match is created. A MatchParamSeed param
// makes every server-side random choice reproducible.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	logger.Debug("MatchInit: Initializing card table.")

	cfg := tableConfigFromContext(ctx, logger)
	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	var rng *rand.Rand
	if seed, ok := params[MatchParamSeed].(int64); ok {
		rng = rand.New(rand.NewSource(seed))
	}

	store := replica.NewAuthority(world.NewRegistry())
	state := &MatchState{
		MatchID:      matchID,
		Tick:         time.Now().Unix(),
		Presences:    make(map[string]runtime.Presence),
		Store:        store,
		App:          app.NewService(store, cfg, rng),
		Tickets:      app.NewTicketService(cfg.TicketSecret),
		Cursors:      make(map[string]*replica.Cursor),
		PendingHosts: make(map[string]bool),
		Config:       cfg,
	}
	if err := state.App.Setup(); err != nil {
		logger.Error("MatchInit: Failed to set up table: %v", err)
		return nil, 0, ""
	}
	// Nobody is connected yet; joiners receive a snapshot.
	store.Drain()

	label, err := renderLabel(state.Seats())
	if err != nil {
		logger.Error("MatchInit: Failed to marshal label: %v", err)
		return nil, 0, ""
	}
	state.Label = label

	return state, cfg.TickRate, label
}

func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	userID := presence.GetUserId()
	seats := matchState.Seats()
	if domain.SeatOf(&seats, userID) == domain.SeatSpectator && matchState.GetOpenSeatsCount() == 0 && !matchState.Config.AllowSpectators {
		return state, false, "Table full"
	}

	if ticket := metadata[MetadataHostTicket]; ticket != "" {
		if err := matchState.Tickets.Verify(ticket, userID, matchState.MatchID); err != nil {
			logger.Warn("MatchJoinAttempt: Ignoring host ticket from %s: %v", userID, err)
		} else {
			matchState.PendingHosts[userID] = true
		}
	}

	return state, true, ""
}

func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	var (
		events  []app.Event
		joiners []string
	)
	for _, p := range presences {
		userID := p.GetUserId()
		if _, rejoin := matchState.Presences[userID]; !rejoin {
			matchState.JoinOrder = append(matchState.JoinOrder, userID)
		}
		matchState.Presences[userID] = p

		evs, err := matchState.App.Join(userID, matchState.PendingHosts[userID])
		delete(matchState.PendingHosts, userID)
		if err != nil {
			logger.Warn("MatchJoin: User %s could not join: %v", userID, err)
			delete(matchState.Presences, userID)
			matchState.removeFromJoinOrder(userID)
			if err := dispatcher.MatchKick([]runtime.Presence{p}); err != nil {
				logger.Error("MatchJoin: Failed to kick %s: %v", userID, err)
			}
			continue
		}
		events = append(events, evs...)
		joiners = append(joiners, userID)
	}

	// Changes made by the joins go to those already at the table; joiners
	// get the full picture as a snapshot instead.
	for _, userID := range joiners {
		delete(matchState.Cursors, userID)
	}
	mh.flushChanges(matchState, dispatcher, logger)
	for _, userID := range joiners {
		matchState.Cursors[userID] = &replica.Cursor{}
		mh.sendSnapshot(matchState, dispatcher, logger, userID)
	}

	for _, ev := range events {
		mh.broadcastEvent(matchState, dispatcher, logger, ev)
	}
	mh.updateLabel(matchState, dispatcher, logger)

	return matchState
}

// MatchLeave is called when one or more players leave the match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	var events []app.Event
	for _, p := range presences {
		userID := p.GetUserId()
		if _, joined := matchState.Presences[userID]; !joined {
			// Kicked during MatchJoin; never took part.
			continue
		}
		delete(matchState.Presences, userID)
		delete(matchState.Cursors, userID)
		matchState.removeFromJoinOrder(userID)

		evs, err := matchState.App.Leave(userID, matchState.connectedUsers())
		if err != nil {
			logger.Error("MatchLeave: Failed to release %s: %v", userID, err)
			continue
		}
		logger.Debug("MatchLeave: User %s left.", userID)
		events = append(events, evs...)
	}

	if shouldTerminateNoHumans(matchState.Presences) {
		logger.Info("MatchLeave: Terminating table with nobody connected.")
		return nil
	}

	mh.flushChanges(matchState, dispatcher, logger)
	for _, ev := range events {
		mh.broadcastEvent(matchState, dispatcher, logger, ev)
	}
	mh.updateLabel(matchState, dispatcher, logger)

	return matchState
}

// MatchLoop applies requests in arrival order. Each accepted request is
// followed by its state deltas and then its events.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	matchState.Tick = tick

	for _, msg := range messages {
		userID := msg.GetUserId()
		if _, connected := matchState.Presences[userID]; !connected {
			logger.Warn("MatchLoop: Dropping op %d from unknown presence %s", msg.GetOpCode(), userID)
			continue
		}

		if msg.GetOpCode() == wire.OpRequestSync {
			mh.sendSnapshot(matchState, dispatcher, logger, userID)
			continue
		}

		handle, known := requestHandlers[msg.GetOpCode()]
		if !known {
			logger.Warn("MatchLoop: Unknown opcode received: %d", msg.GetOpCode())
			continue
		}

		events, err := handle(matchState.App, userID, msg.GetData())
		if err != nil {
			logger.Warn("MatchLoop: Rejected op %d from %s: %v", msg.GetOpCode(), userID, err)
		}
		// A rejected request leaves nothing to flush, but a store error
		// midway may have; either way mirrors must see what was applied.
		mh.flushChanges(matchState, dispatcher, logger)
		if err != nil {
			continue
		}
		for _, ev := range events {
			mh.broadcastEvent(matchState, dispatcher, logger, ev)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// flushChanges drains the store journal and sends every connected recipient
// the part it may see, numbered on its own cursor.
func (mh *matchHandler) flushChanges(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	changes := state.Store.Drain()
	if len(changes) == 0 {
		return
	}
	for _, userID := range state.connectedUsers() {
		cursor, ok := state.Cursors[userID]
		if !ok {
			continue
		}
		batch := cursor.Stamp(changes, userID)
		if len(batch) == 0 {
			continue
		}
		data, err := wire.Marshal(wire.Delta{Changes: batch})
		if err != nil {
			logger.Error("flushChanges: Failed to marshal delta for %s: %v", userID, err)
			continue
		}
		if err := dispatcher.BroadcastMessage(wire.OpDelta, data, []runtime.Presence{state.Presences[userID]}, nil, true); err != nil {
			logger.Error("flushChanges: Failed to send delta to %s: %v", userID, err)
		}
	}
}

// sendSnapshot sends userID everything it may see. Later deltas continue
// the recipient's numbering from the snapshot's sequence.
func (mh *matchHandler) sendSnapshot(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string) {
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("sendSnapshot: Presence not found for %s", userID)
		return
	}
	cursor, ok := state.Cursors[userID]
	if !ok {
		cursor = &replica.Cursor{}
		state.Cursors[userID] = cursor
	}

	data, err := wire.Marshal(wire.Snapshot{Seq: cursor.Seq(), Changes: state.Store.Snapshot(userID)})
	if err != nil {
		logger.Error("sendSnapshot: Failed to marshal snapshot for %s: %v", userID, err)
		return
	}
	if err := dispatcher.BroadcastMessage(wire.OpSnapshot, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("sendSnapshot: Failed to send snapshot to %s: %v", userID, err)
	}
}

// broadcastEvent handles the conversion and dispatching of app events to Nakama.
func (mh *matchHandler) broadcastEvent(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, ev app.Event) {
	opCode, ok := eventOpCode(ev.Kind)
	if !ok {
		logger.Warn("Unknown event kind: %v", ev.Kind)
		return
	}

	bytes, err := wire.Marshal(ev.Payload)
	if err != nil {
		logger.Error("Failed to marshal event %v: %v", ev.Kind, err)
		return
	}

	// Determine recipients (default to broadcast)
	var recipients []runtime.Presence
	if len(ev.Recipients) > 0 {
		for _, uid := range ev.Recipients {
			if p, ok := state.Presences[uid]; ok {
				recipients = append(recipients, p)
			}
		}

		// If we had intended recipients but none are connected,
		// we MUST NOT broadcast to everyone else.
		if len(recipients) == 0 {
			return
		}
	}

	if err := dispatcher.BroadcastMessage(opCode, bytes, recipients, nil, true); err != nil {
		logger.Error("Failed to send event %v: %v", ev.Kind, err)
	}
}

// renderLabel renders the match label JSON used by quick_table queries.
func renderLabel(seats domain.Seats) (string, error) {
	payload := domain.ComputeLabel(&seats)
	label, err := structpb.NewStruct(map[string]interface{}{
		"open":       payload.Open,
		"game":       payload.Game,
		"open_seats": payload.OpenSeats,
		"players":    payload.Players,
	})
	if err != nil {
		return "", err
	}
	labelBytes, err := (&protojson.MarshalOptions{EmitUnpopulated: true}).Marshal(label)
	if err != nil {
		return "", err
	}
	return string(labelBytes), nil
}

// updateLabel pushes the label when the seat map changed it.
func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label, err := renderLabel(state.Seats())
	if err != nil {
		logger.Error("UpdateLabel: Failed to marshal: %v", err)
		return
	}
	if label == state.Label {
		return
	}
	if err := dispatcher.MatchLabelUpdate(label); err != nil {
		logger.Error("UpdateLabel: Failed to update: %v", err)
		return
	}
	state.Label = label
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: Match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}
