// Package wire defines the messages exchanged with clients. Both directions
// are closed tagged unions: an envelope whose Type selects which fields are
// meaningful. Anything that does not match a known tag is rejected upstream.
package wire

import "time"

// Intent tags (client → server).
const (
	IntentJoinGame     = "joinGame"
	IntentMakeMove     = "makeMove"
	IntentRemoveSymbol = "removeSymbol"
	IntentUndo         = "undo"
	IntentResetGame    = "resetGame"
	IntentRematch      = "rematch"
	IntentGetRoomInfo  = "getRoomInfo"
	IntentChatMessage  = "chatMessage"
)

// Notification tags (server → client).
const (
	NoticeInit         = "init"
	NoticeUpdate       = "update"
	NoticePlayerJoined = "playerJoined"
	NoticePlayerLeft   = "playerLeft"
	NoticeGameOver     = "gameOver"
	NoticeGameReset    = "gameReset"
	NoticeRoomInfo     = "roomInfo"
	NoticeChatMessage  = "chatMessage"
	NoticeError        = "error"
)

// Intent is the single inbound envelope. Index is a pointer so a missing
// cell index is distinguishable from cell 0.
type Intent struct {
	Type        string `json:"type"`
	RoomID      string `json:"roomId,omitempty"`
	Index       *int   `json:"index,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Message     string `json:"message,omitempty"`
}

// GameState is the full authoritative game snapshot broadcast to clients.
type GameState struct {
	Board         []string         `json:"board"`
	CurrentPlayer string           `json:"currentPlayer"`
	Moves         map[string][]int `json:"moves"`
	MoveHistory   []HistoryEntry   `json:"moveHistory"`
	Winner        string           `json:"winner"`
	WinningLine   []int            `json:"winningLine,omitempty"`
	Status        string           `json:"status"`
	TurnStartedAt time.Time        `json:"turnStartTime"`
	Scores        Scores           `json:"scores"`
	SymbolCap     int              `json:"symbolCap"`
}

type HistoryEntry struct {
	Type  string    `json:"type"`
	Role  string    `json:"role"`
	Index int       `json:"index"`
	At    time.Time `json:"at"`
}

type Scores struct {
	X     int `json:"X"`
	O     int `json:"O"`
	Draws int `json:"draws"`
}

// RoomStats summarizes the room around the game.
type RoomStats struct {
	RoomID     string `json:"roomId"`
	HasX       bool   `json:"hasX"`
	HasO       bool   `json:"hasO"`
	Spectators int    `json:"spectators"`
	Status     string `json:"status"`
	Scores     Scores `json:"scores"`
}

// Init is sent only to the joining connection.
type Init struct {
	Type      string    `json:"type"`
	Role      string    `json:"role"`
	DisplayID string    `json:"displayId"`
	Game      GameState `json:"game"`
	Stats     RoomStats `json:"stats"`
}

// Update carries the full state after every accepted transition.
type Update struct {
	Type  string    `json:"type"`
	Game  GameState `json:"game"`
	Stats RoomStats `json:"stats"`
}

type PlayerJoined struct {
	Type      string    `json:"type"`
	Role      string    `json:"role"`
	DisplayID string    `json:"displayId"`
	Stats     RoomStats `json:"stats"`
}

type PlayerLeft struct {
	Type      string    `json:"type"`
	Role      string    `json:"role"`
	DisplayID string    `json:"displayId"`
	Stats     RoomStats `json:"stats"`
}

// GameOver reports either a winning line or a textual reason (forfeit).
type GameOver struct {
	Type   string `json:"type"`
	Winner string `json:"winner"`
	Line   []int  `json:"line,omitempty"`
	Reason string `json:"reason,omitempty"`
	Scores Scores `json:"scores"`
}

type GameReset struct {
	Type  string    `json:"type"`
	Game  GameState `json:"game"`
	Stats RoomStats `json:"stats"`
}

type RoomInfo struct {
	Type  string    `json:"type"`
	Stats RoomStats `json:"stats"`
}

type ChatMessage struct {
	Type      string `json:"type"`
	Role      string `json:"role"`
	DisplayID string `json:"displayId"`
	Message   string `json:"message"`
}

// Error is only ever sent to the offending connection, never broadcast.
type Error struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
