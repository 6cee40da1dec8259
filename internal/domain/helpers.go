package domain

// LabelPayload is what a table advertises through its match label.
type LabelPayload struct {
	Open      bool   `json:"open"`
	Game      string `json:"game"`
	OpenSeats int    `json:"open_seats"`
	Players   int    `json:"players"`
}

// GameName is the label value used to find tables of this game.
const GameName = "cardtable"

// ComputeLabel derives the advertised label from the seat map.
func ComputeLabel(seats *Seats) LabelPayload {
	open := OpenSeats(seats)
	return LabelPayload{
		Open:      open > 0,
		Game:      GameName,
		OpenSeats: open,
		Players:   PlayerSeats - open,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampExhaust bounds an exhaust counter.
func ClampExhaust(v int) int { return clamp(v, MinExhaust, MaxExhaust) }

// ClampBuff bounds a power or health buff delta.
func ClampBuff(v int) int { return clamp(v, MinBuff, MaxBuff) }

// ClampHealth bounds a seat's health total.
func ClampHealth(v int) int { return clamp(v, MinHealth, MaxHealth) }

// add applies delta to v within [lo, hi]. delta is bounded by the width of the
// range first so the sum cannot overflow.
func add(v, delta, lo, hi int) int {
	span := hi - lo
	return clamp(clamp(v, lo, hi)+clamp(delta, -span, span), lo, hi)
}

// AddExhaust applies a change to an exhaust counter.
func AddExhaust(v, delta int) int { return add(v, delta, MinExhaust, MaxExhaust) }

// AddBuff applies a change to a power or health buff delta.
func AddBuff(v, delta int) int { return add(v, delta, MinBuff, MaxBuff) }

// AddHealth applies a change to a seat's health total.
func AddHealth(v, delta int) int { return add(v, delta, MinHealth, MaxHealth) }

// ValidName reports whether name can be stored as a card name.
func ValidName(name string) bool {
	return name != "" && len(name) <= MaxNameBytes
}
