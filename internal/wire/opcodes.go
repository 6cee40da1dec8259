package wire

// Op codes for client requests and server messages.
const (
	// Client -> Server
	OpClaimSeat       int64 = 1
	OpSpawnDeck       int64 = 2
	OpDrawCard        int64 = 3
	OpTakeFromDeck    int64 = 4
	OpShuffleDeck     int64 = 5
	OpFlipDeck        int64 = 6
	OpHandToDeck      int64 = 7
	OpPlayFromHand    int64 = 8
	OpMoveCard        int64 = 9
	OpCyclePile       int64 = 10
	OpReturnToHand    int64 = 11
	OpReturnToDeck    int64 = 12
	OpAdjustExhaust   int64 = 13
	OpAdjustBuff      int64 = 14
	OpClearBuff       int64 = 15
	OpSetResourceType int64 = 16
	OpDelete          int64 = 17
	OpSpawnResource   int64 = 18
	OpAdjustHealth    int64 = 19
	OpRollDice        int64 = 20
	OpResetTable      int64 = 21
	OpRequestSync     int64 = 22

	// Server -> Client
	OpDelta           int64 = 101 // per-recipient, sequence numbered
	OpSnapshot        int64 = 102 // per-recipient
	OpPlayerJoined    int64 = 103
	OpPlayerLeft      int64 = 104
	OpHostChanged     int64 = 105
	OpCardDrawn       int64 = 106 // send privately
	OpDeckShuffled    int64 = 107
	OpPileOrder       int64 = 108
	OpReturnedToHand  int64 = 109 // send privately
	OpReturnedToDeck  int64 = 110
	OpResourceSpawned int64 = 111
	OpDiceRolled      int64 = 112
	OpTableReset      int64 = 113
)
