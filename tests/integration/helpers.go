package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"cardtable/internal/client"
	"cardtable/internal/config"
	"cardtable/internal/logging"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	ServerKey = "defaultkey"
	Host      = "127.0.0.1"
	Port      = 7350
)

// requireServer skips unless a local Nakama with the module loaded is up.
func requireServer(t *testing.T) {
	t.Helper()
	if os.Getenv("NAKAMA_INTEGRATION") == "" {
		t.Skip("set NAKAMA_INTEGRATION=1 to run against a local Nakama")
	}
}

// envelope is the subset of the Nakama realtime JSON protocol the tests use.
type envelope struct {
	Cid           string         `json:"cid,omitempty"`
	Rpc           *rpcMessage    `json:"rpc,omitempty"`
	MatchJoin     *matchJoin     `json:"match_join,omitempty"`
	Match         *matchInfo     `json:"match,omitempty"`
	MatchDataSend *matchDataSend `json:"match_data_send,omitempty"`
	MatchData     *matchData     `json:"match_data,omitempty"`
	Error         *socketError   `json:"error,omitempty"`
}

type rpcMessage struct {
	ID      string `json:"id"`
	Payload string `json:"payload,omitempty"`
}

type matchJoin struct {
	MatchID  string            `json:"match_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type matchInfo struct {
	MatchID       string `json:"match_id"`
	Authoritative bool   `json:"authoritative"`
}

type matchDataSend struct {
	MatchID string `json:"match_id"`
	OpCode  int64  `json:"op_code,string"`
	Data    []byte `json:"data,omitempty"`
}

type matchData struct {
	MatchID string `json:"match_id"`
	OpCode  int64  `json:"op_code,string"`
	Data    []byte `json:"data,omitempty"`
}

type socketError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type TestClient struct {
	UserID string
	Token  string
	Mirror *client.Client

	conn    *websocket.Conn
	cancel  context.CancelFunc
	matchID string

	mu      sync.Mutex
	cid     int
	replies map[string]chan envelope
	events  []int64
}

func NewTestClient(t *testing.T) *TestClient {
	t.Helper()
	ctx := context.Background()
	deviceID := fmt.Sprintf("cardtable_test_device_%d", time.Now().UnixNano())

	var auth struct {
		Token string `json:"token"`
	}
	body, _ := json.Marshal(map[string]string{"id": deviceID})
	if err := call(ctx, http.MethodPost, "/v2/account/authenticate/device?create=true", body, func(r *http.Request) {
		r.SetBasicAuth(ServerKey, "")
	}, &auth); err != nil {
		t.Fatalf("Failed to authenticate: %v", err)
	}

	var account struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := call(ctx, http.MethodGet, "/v2/account", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+auth.Token)
	}, &account); err != nil {
		t.Fatalf("Failed to fetch account: %v", err)
	}

	url := fmt.Sprintf("ws://%s:%d/ws?lang=en&status=true&token=%s", Host, Port, auth.Token)
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Failed to connect socket: %v", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	tc := &TestClient{
		UserID:  account.User.ID,
		Token:   auth.Token,
		conn:    conn,
		cancel:  cancel,
		replies: make(map[string]chan envelope),
	}
	tc.Mirror = client.New(tc.UserID, tc, config.Default(), logging.New(io.Discard, "info"))
	tc.Mirror.OnEvent(func(op int64, _ []byte) {
		tc.mu.Lock()
		tc.events = append(tc.events, op)
		tc.mu.Unlock()
	})
	go tc.read(readCtx)
	return tc
}

func call(ctx context.Context, method, path string, body []byte, auth func(*http.Request), out any) error {
	req, err := http.NewRequestWithContext(ctx, method, fmt.Sprintf("http://%s:%d%s", Host, Port, path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	auth(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (tc *TestClient) Close() {
	tc.cancel()
	tc.conn.Close(websocket.StatusNormalClosure, "")
}

// read routes replies to their waiting request and match data to the mirror.
func (tc *TestClient) read(ctx context.Context) {
	for {
		var env envelope
		if err := wsjson.Read(ctx, tc.conn, &env); err != nil {
			return
		}
		if env.MatchData != nil {
			// A bad delta makes the mirror resync on its own.
			_ = tc.Mirror.Receive(ctx, env.MatchData.OpCode, env.MatchData.Data)
			continue
		}
		if env.Cid == "" {
			continue
		}
		tc.mu.Lock()
		ch, ok := tc.replies[env.Cid]
		delete(tc.replies, env.Cid)
		tc.mu.Unlock()
		if ok {
			ch <- env
		}
	}
}

func (tc *TestClient) request(ctx context.Context, env envelope) (envelope, error) {
	ch := make(chan envelope, 1)
	tc.mu.Lock()
	tc.cid++
	env.Cid = strconv.Itoa(tc.cid)
	tc.replies[env.Cid] = ch
	tc.mu.Unlock()

	if err := wsjson.Write(ctx, tc.conn, env); err != nil {
		return envelope{}, err
	}
	select {
	case reply := <-ch:
		if reply.Error != nil {
			return reply, fmt.Errorf("socket error %d: %s", reply.Error.Code, reply.Error.Message)
		}
		return reply, nil
	case <-ctx.Done():
		return envelope{}, ctx.Err()
	}
}

// Send satisfies client.Sender for the joined match.
func (tc *TestClient) Send(ctx context.Context, opCode int64, data []byte) error {
	tc.mu.Lock()
	matchID := tc.matchID
	tc.mu.Unlock()
	return wsjson.Write(ctx, tc.conn, envelope{MatchDataSend: &matchDataSend{
		MatchID: matchID,
		OpCode:  opCode,
		Data:    data,
	}})
}

// Rpc calls a registered RPC over the socket and decodes its JSON payload.
func (tc *TestClient) Rpc(t *testing.T, id string, out any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	reply, err := tc.request(ctx, envelope{Rpc: &rpcMessage{ID: id}})
	if err != nil {
		t.Fatalf("RPC %s failed: %v", id, err)
	}
	if reply.Rpc == nil {
		t.Fatalf("RPC %s returned no payload", id)
	}
	if err := json.Unmarshal([]byte(reply.Rpc.Payload), out); err != nil {
		t.Fatalf("RPC %s payload: %v", id, err)
	}
}

// JoinMatch joins matchID and waits for the initial snapshot to arrive.
func (tc *TestClient) JoinMatch(t *testing.T, matchID string, metadata map[string]string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tc.mu.Lock()
	tc.matchID = matchID
	tc.mu.Unlock()
	if _, err := tc.request(ctx, envelope{MatchJoin: &matchJoin{MatchID: matchID, Metadata: metadata}}); err != nil {
		t.Fatalf("Failed to join match %s: %v", matchID, err)
	}
	Eventually(t, 5*time.Second, func() bool {
		return tc.Mirror.Store().Table().Seats != [2]string{}
	}, "no snapshot for %s", tc.UserID)
}

// Events returns the event op codes received so far.
func (tc *TestClient) Events() []int64 {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]int64(nil), tc.events...)
}

// Eventually polls cond until it holds or timeout passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, format string, args ...any) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf(format, args...)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
