package loopback

import (
	"github.com/heroiclabs/nakama-common/runtime"
)

type presence struct {
	userID    string
	sessionID string
}

func (p presence) GetHidden() bool                   { return false }
func (p presence) GetPersistence() bool              { return false }
func (p presence) GetUsername() string               { return p.userID }
func (p presence) GetStatus() string                 { return "" }
func (p presence) GetReason() runtime.PresenceReason { return runtime.PresenceReasonUnknown }
func (p presence) GetUserId() string                 { return p.userID }
func (p presence) GetSessionId() string              { return p.sessionID }
func (p presence) GetNodeId() string                 { return "loopback" }

type matchData struct {
	presence
	opCode      int64
	data        []byte
	receiveTime int64
}

func (m matchData) GetOpCode() int64      { return m.opCode }
func (m matchData) GetData() []byte       { return m.data }
func (m matchData) GetReliable() bool     { return true }
func (m matchData) GetReceiveTime() int64 { return m.receiveTime }

// dispatcher queues what the match sends; Table.flush delivers it once the
// match callback has returned.
type dispatcher struct {
	t *Table
}

func (t *Table) dispatcher() runtime.MatchDispatcher {
	return dispatcher{t: t}
}

// sessions maps presences to session ids; none means everyone.
func sessions(presences []runtime.Presence) []string {
	if len(presences) == 0 {
		return nil
	}
	out := make([]string, 0, len(presences))
	for _, p := range presences {
		out = append(out, p.GetSessionId())
	}
	return out
}

func (d dispatcher) BroadcastMessage(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	d.t.outMu.Lock()
	defer d.t.outMu.Unlock()
	d.t.outbox = append(d.t.outbox, delivery{opCode: opCode, data: append([]byte(nil), data...), recipients: sessions(presences)})
	return nil
}

func (d dispatcher) BroadcastMessageDeferred(opCode int64, data []byte, presences []runtime.Presence, sender runtime.Presence, reliable bool) error {
	d.t.outMu.Lock()
	defer d.t.outMu.Unlock()
	d.t.deferred = append(d.t.deferred, delivery{opCode: opCode, data: append([]byte(nil), data...), recipients: sessions(presences)})
	return nil
}

func (d dispatcher) MatchKick(presences []runtime.Presence) error {
	d.t.outMu.Lock()
	defer d.t.outMu.Unlock()
	d.t.kicked = append(d.t.kicked, presences...)
	return nil
}

// MatchLabelUpdate runs inside a match callback, which already holds t.mu.
func (d dispatcher) MatchLabelUpdate(label string) error {
	d.t.label = label
	return nil
}
