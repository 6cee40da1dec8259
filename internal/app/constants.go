package app

// Resource tokens face the second seat at -90 degrees; the first seat's
// tokens are turned a further half circle.
const (
	resourceRotation = -90
	resourceName     = "resource"
)

// MaxHandSize caps how many cards a participant may hold.
const MaxHandSize = 200
