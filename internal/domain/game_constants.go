package domain

// Status counter and health limits.
const (
	MinExhaust = 0
	MaxExhaust = 99

	MinBuff = -99
	MaxBuff = 99

	MinHealth      = 0
	MaxHealth      = 99
	StartingHealth = 30

	DieFaces = 6
)

// MaxNameBytes bounds card names so they fit the client's fixed-size string slots.
const MaxNameBytes = 127
