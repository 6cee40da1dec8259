package replica

import (
	"cardtable/internal/domain"
	"cardtable/internal/world"
)

// Op is the structural kind of a change.
type Op string

const (
	OpSpawn   Op = "spawn"
	OpDespawn Op = "despawn"
	OpSet     Op = "set"
	OpInsert  Op = "insert"
	OpRemove  Op = "remove"
	OpValue   Op = "value"
	// OpReset is only ever delivered to local listeners after a mirror
	// replaced its whole state from a snapshot.
	OpReset Op = "reset"
)

// Field names a replicated variable.
type Field string

// Card and token fields.
const (
	FieldName      Field = "name"
	FieldTransform Field = "xform"
	FieldExhaust   Field = "exhaust"
	FieldPower     Field = "power"
	FieldHealth    Field = "health"
	FieldResource  Field = "resource"
)

// Deck fields. Contents and DrawOrder are visible to the deck owner only.
const (
	FieldFaceUp    Field = "face_up"
	FieldCount     Field = "count"
	FieldTopFace   Field = "top_face"
	FieldContents  Field = "contents"
	FieldDrawOrder Field = "draw_order"
)

// Table fields, carried by domain.TableEntity.
const (
	FieldSeat      Field = "seat"
	FieldHost      Field = "host"
	FieldHand      Field = "hand"
	FieldHandCount Field = "hand_count"
	FieldLife      Field = "life"
	FieldDie       Field = "die"
	FieldRollID    Field = "roll_id"
)

// Change is one logical write to the replicated state.
//
// Index is the list position for list ops and the seat or die index for
// indexed table fields. Participant names the seat holder, host, or hand
// owner. Audience is the only participant allowed to see the change; empty
// means everyone. It never leaves the authority.
type Change struct {
	Seq         uint64            `json:"seq,omitempty"`
	Op          Op                `json:"op"`
	Entity      domain.EntityID   `json:"entity,omitempty"`
	Field       Field             `json:"field,omitempty"`
	Index       int               `json:"index,omitempty"`
	Participant string            `json:"who,omitempty"`
	Key         string            `json:"key,omitempty"`
	Str         string            `json:"str,omitempty"`
	Int         int               `json:"int,omitempty"`
	Bool        bool              `json:"bool,omitempty"`
	Xform       *domain.Transform `json:"xform,omitempty"`
	Spawn       *world.Entity     `json:"spawn,omitempty"`

	Audience string `json:"-"`
}

// VisibleTo reports whether participant may observe c.
func (c Change) VisibleTo(participant string) bool {
	return c.Audience == "" || c.Audience == participant
}

// Cursor numbers the changes delivered to a single recipient so the
// recipient can detect loss.
type Cursor struct {
	seq uint64
}

// Seq returns the sequence number of the last stamped change.
func (c *Cursor) Seq() uint64 {
	return c.seq
}

// Reset restarts numbering after the recipient received a snapshot at seq.
func (c *Cursor) Reset(seq uint64) {
	c.seq = seq
}

// Stamp filters changes down to what participant may see and numbers them
// contiguously. The input is not modified.
func (c *Cursor) Stamp(changes []Change, participant string) []Change {
	out := make([]Change, 0, len(changes))
	for _, ch := range changes {
		if !ch.VisibleTo(participant) {
			continue
		}
		c.seq++
		ch.Seq = c.seq
		ch.Audience = ""
		out = append(out, ch)
	}
	return out
}
