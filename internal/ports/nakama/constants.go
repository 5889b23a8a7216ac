package nakama

const (
	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"

	// MatchNameHearts is the authoritative match handler name registered with Nakama.
	MatchNameHearts = "hearts_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpSubmitPass int64 = 1
	OpPlayCard   int64 = 2

	// Server -> Client events
	OpPlayerJoined  int64 = 101
	OpPlayerLeft    int64 = 102
	OpRoundStarted  int64 = 103
	OpHandDealt     int64 = 104 // sent privately
	OpPassRequested int64 = 105
	OpCardsPassed   int64 = 106 // sent privately
	OpYourTurn      int64 = 107 // sent privately
	OpCardPlayed    int64 = 108
	OpTrickResolved int64 = 109
	OpRoundScored   int64 = 110
	OpGameOver      int64 = 111
	OpGameAborted   int64 = 112
	OpGameError     int64 = 120
)
