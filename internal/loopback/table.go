// Package loopback hosts a Nakama authoritative match in process. It plays
// the part of the Nakama match registry and socket layer: presences join and
// leave, requests are queued and handed to MatchLoop once per tick, and
// dispatcher broadcasts are delivered to the connected receivers.
package loopback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/heroiclabs/nakama-common/runtime"
)

var (
	ErrTerminated = errors.New("match terminated")
	ErrRejected   = errors.New("join rejected")
	ErrClosed     = errors.New("connection closed")
)

// Receiver gets every message the match sends to a connection.
type Receiver func(opCode int64, data []byte)

type delivery struct {
	opCode     int64
	data       []byte
	recipients []string // session ids; nil means everyone
}

// Table runs one match.
type Table struct {
	ctx      context.Context
	logger   runtime.Logger
	match    runtime.Match
	matchID  string
	tickRate int

	mu         sync.Mutex
	state      interface{}
	tick       int64
	label      string
	conns      map[string]*Conn // session id -> connection
	terminated bool

	inMu  sync.Mutex
	inbox []runtime.MatchData

	outMu    sync.Mutex
	outbox   []delivery
	deferred []delivery
	kicked   []runtime.Presence
}

// NewTable initialises match and returns a table hosting it. env becomes the
// runtime environment the match reads from its context.
func NewTable(ctx context.Context, logger runtime.Logger, match runtime.Match, env map[string]string, params map[string]interface{}) (*Table, error) {
	matchID := uuid.NewString() + ".loopback"
	ctx = context.WithValue(ctx, runtime.RUNTIME_CTX_MATCH_ID, matchID)
	ctx = context.WithValue(ctx, runtime.RUNTIME_CTX_NODE, "loopback")
	if env == nil {
		env = map[string]string{}
	}
	ctx = context.WithValue(ctx, runtime.RUNTIME_CTX_ENV, env)

	state, tickRate, label := match.MatchInit(ctx, logger, nil, nil, params)
	if state == nil {
		return nil, fmt.Errorf("match init: %w", ErrTerminated)
	}
	if tickRate <= 0 {
		tickRate = 1
	}
	return &Table{
		ctx:      ctx,
		logger:   logger,
		match:    match,
		matchID:  matchID,
		tickRate: tickRate,
		state:    state,
		label:    label,
		conns:    make(map[string]*Conn),
	}, nil
}

func (t *Table) MatchID() string { return t.matchID }

// TickRate is the rate the match asked for.
func (t *Table) TickRate() int { return t.tickRate }

func (t *Table) Label() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.label
}

func (t *Table) Terminated() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.terminated
}

// Join connects userID. The match may refuse in MatchJoinAttempt.
func (t *Table) Join(userID string, metadata map[string]string, recv Receiver) (*Conn, error) {
	conn := &Conn{
		table:    t,
		presence: presence{userID: userID, sessionID: uuid.NewString()},
		recv:     recv,
	}

	t.mu.Lock()
	if t.terminated {
		t.mu.Unlock()
		return nil, ErrTerminated
	}
	d := t.dispatcher()
	state, ok, reason := t.match.MatchJoinAttempt(t.ctx, t.logger, nil, nil, d, t.tick, t.state, conn.presence, metadata)
	t.apply(state)
	if !ok {
		t.mu.Unlock()
		t.flush()
		return nil, fmt.Errorf("%w: %s", ErrRejected, reason)
	}
	t.conns[conn.presence.sessionID] = conn
	t.apply(t.match.MatchJoin(t.ctx, t.logger, nil, nil, d, t.tick, t.state, []runtime.Presence{conn.presence}))
	t.mu.Unlock()

	t.flush()
	return conn, nil
}

// Tick hands every queued request to MatchLoop and delivers what the match
// sent. It reports whether the match is still running.
func (t *Table) Tick() bool {
	t.inMu.Lock()
	messages := t.inbox
	t.inbox = nil
	t.inMu.Unlock()

	t.mu.Lock()
	if t.terminated {
		t.mu.Unlock()
		return false
	}
	t.tick++
	t.apply(t.match.MatchLoop(t.ctx, t.logger, nil, nil, t.dispatcher(), t.tick, t.state, messages))
	running := !t.terminated
	t.mu.Unlock()

	t.flush()
	return running
}

// Run ticks at the match's tick rate until ctx is done or the match ends.
func (t *Table) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(t.tickRate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.Terminate(0)
			return ctx.Err()
		case <-ticker.C:
			if !t.Tick() {
				return ErrTerminated
			}
		}
	}
}

// Terminate ends the match as a server shutdown would.
func (t *Table) Terminate(graceSeconds int) {
	t.mu.Lock()
	if t.terminated {
		t.mu.Unlock()
		return
	}
	t.match.MatchTerminate(t.ctx, t.logger, nil, nil, t.dispatcher(), t.tick, t.state, graceSeconds)
	t.terminated = true
	t.mu.Unlock()
	t.flush()
}

// Signal forwards data to MatchSignal.
func (t *Table) Signal(data string) (string, error) {
	t.mu.Lock()
	if t.terminated {
		t.mu.Unlock()
		return "", ErrTerminated
	}
	state, result := t.match.MatchSignal(t.ctx, t.logger, nil, nil, t.dispatcher(), t.tick, t.state, data)
	t.apply(state)
	t.mu.Unlock()
	t.flush()
	return result, nil
}

func (t *Table) leave(c *Conn) {
	t.mu.Lock()
	if _, ok := t.conns[c.presence.sessionID]; !ok || t.terminated {
		t.mu.Unlock()
		return
	}
	delete(t.conns, c.presence.sessionID)
	t.apply(t.match.MatchLeave(t.ctx, t.logger, nil, nil, t.dispatcher(), t.tick, t.state, []runtime.Presence{c.presence}))
	t.mu.Unlock()
	t.flush()
}

// apply stores the state a match callback returned. Nil ends the match.
// Callers hold t.mu.
func (t *Table) apply(state interface{}) {
	if state == nil {
		t.terminated = true
		return
	}
	t.state = state
}

func (t *Table) enqueue(m runtime.MatchData) error {
	if t.Terminated() {
		return ErrTerminated
	}
	t.inMu.Lock()
	t.inbox = append(t.inbox, m)
	t.inMu.Unlock()
	return nil
}

// flush delivers queued broadcasts outside t.mu, so receivers may send
// requests of their own, then processes kicks.
func (t *Table) flush() {
	for {
		t.outMu.Lock()
		out := append(t.outbox, t.deferred...)
		kicked := t.kicked
		t.outbox, t.deferred, t.kicked = nil, nil, nil
		t.outMu.Unlock()
		if len(out) == 0 && len(kicked) == 0 {
			return
		}

		for _, d := range out {
			for _, c := range t.recipients(d.recipients) {
				c.deliver(d.opCode, d.data)
			}
		}
		for _, p := range kicked {
			t.mu.Lock()
			c, ok := t.conns[p.GetSessionId()]
			t.mu.Unlock()
			if ok {
				c.Leave()
			}
		}
	}
}

func (t *Table) recipients(sessions []string) []*Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Conn
	if sessions == nil {
		for _, c := range t.conns {
			out = append(out, c)
		}
		return out
	}
	for _, id := range sessions {
		if c, ok := t.conns[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Conn is one participant's connection. It satisfies client.Sender.
type Conn struct {
	table    *Table
	presence presence
	recv     Receiver

	mu     sync.Mutex
	closed bool
}

func (c *Conn) UserID() string { return c.presence.userID }

func (c *Conn) Presence() runtime.Presence { return c.presence }

// Send queues a request for the next tick.
func (c *Conn) Send(ctx context.Context, opCode int64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return c.table.enqueue(matchData{
		presence:    c.presence,
		opCode:      opCode,
		data:        append([]byte(nil), data...),
		receiveTime: time.Now().UnixMilli(),
	})
}

// Leave disconnects the participant. It is safe to call more than once.
func (c *Conn) Leave() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.table.leave(c)
}

func (c *Conn) deliver(opCode int64, data []byte) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed || c.recv == nil {
		return
	}
	c.recv(opCode, data)
}
