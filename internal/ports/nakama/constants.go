package nakama

const (
	// RpcQuickTable is the Nakama RPC id clients call to find or create a table.
	RpcQuickTable = "quick_table"

	// RpcCreateTable always creates a new table hosted by the caller.
	RpcCreateTable = "create_table"

	// RpcSaveDeck stores a deck list for the caller.
	RpcSaveDeck = "save_deck"

	// RpcLoadDeck returns one of the caller's deck lists.
	RpcLoadDeck = "load_deck"

	// StarterDeckPath is the deck list saved for new accounts.
	StarterDeckPath = "data/decks/starter.yaml"

	// MatchNameCardTable is the authoritative match handler name registered with Nakama.
	MatchNameCardTable = "cardtable_match"

	// MatchParamSeed is the optional int64 match param seeding shuffles and dice.
	MatchParamSeed = "seed"

	// MetadataHostTicket is the join metadata key carrying a host ticket.
	MetadataHostTicket = "host_ticket"

	// labelQueryOpen finds tables of this game that still have a free player seat.
	labelQueryOpen = "+label.open:T +label.game:cardtable"
)
