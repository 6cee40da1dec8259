package domain

// Seat is a participant's place at the table.
type Seat int

const (
	// SeatSpectator marks a participant without a player seat.
	SeatSpectator Seat = -1
	// SeatPlayer1 is the first player seat.
	SeatPlayer1 Seat = 0
	// SeatPlayer2 is the second player seat.
	SeatPlayer2 Seat = 1
)

// PlayerSeats is the number of player seats at a table.
const PlayerSeats = 2

// Valid reports whether s is a player seat.
func (s Seat) Valid() bool {
	return s == SeatPlayer1 || s == SeatPlayer2
}

func (s Seat) String() string {
	switch s {
	case SeatPlayer1:
		return "player1"
	case SeatPlayer2:
		return "player2"
	default:
		return "spectator"
	}
}

// Seats maps player seat index to user id; empty string means the seat is free.
type Seats [PlayerSeats]string

// LowestAvailableSeat returns the lowest free player seat, or SeatSpectator when both are taken.
func LowestAvailableSeat(seats *Seats) Seat {
	for i, userID := range seats {
		if userID == "" {
			return Seat(i)
		}
	}
	return SeatSpectator
}

// SeatOf returns the player seat held by userID, or SeatSpectator.
func SeatOf(seats *Seats, userID string) Seat {
	if userID == "" {
		return SeatSpectator
	}
	for i, id := range seats {
		if id == userID {
			return Seat(i)
		}
	}
	return SeatSpectator
}

// OpenSeats counts free player seats.
func OpenSeats(seats *Seats) int {
	n := 0
	for _, id := range seats {
		if id == "" {
			n++
		}
	}
	return n
}
