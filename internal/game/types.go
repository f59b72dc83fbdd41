package game

import "time"

// Role is one of the two competitive participants. Spectators never appear
// inside a Game value; they exist only at the room membership level.
type Role string

const (
	RoleX Role = "X"
	RoleO Role = "O"
)

// Opponent returns the other competitive role.
func (r Role) Opponent() Role {
	if r == RoleX {
		return RoleO
	}
	return RoleX
}

func (r Role) Valid() bool { return r == RoleX || r == RoleO }

// Status is the game lifecycle state.
//
//	waiting → playing → finished → (rematch) → playing
//	playing → waiting when an active player disconnects (pause, not finish)
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Outcome is the resolved result of a game.
type Outcome string

const (
	OutcomeNone Outcome = ""
	OutcomeX    Outcome = "X"
	OutcomeO    Outcome = "O"
	OutcomeDraw Outcome = "draw"
)

func outcomeFor(r Role) Outcome {
	if r == RoleX {
		return OutcomeX
	}
	return OutcomeO
}

// HistoryEntry is one line of the append-only audit log. It is never used for
// rule decisions.
type HistoryEntry struct {
	Type  string    `json:"type"` // "place" | "remove"
	Role  Role      `json:"role"`
	Index int       `json:"index"`
	At    time.Time `json:"at"`
}

// Scores persist across rematches within a room and reset only when the room
// itself is destroyed.
type Scores struct {
	X     int `json:"X"`
	O     int `json:"O"`
	Draws int `json:"draws"`
}

// Game holds the full authoritative state of one match. One Game per room,
// replaced wholesale on reset or rematch.
type Game struct {
	Board         [BoardSize]Role    `json:"board"` // "" means empty
	CurrentPlayer Role               `json:"currentPlayer"`
	Moves         map[Role][]int     `json:"moves"` // role → occupied indices, oldest first
	History       []HistoryEntry     `json:"moveHistory"`
	Winner        Outcome            `json:"winner"`
	WinningLine   []int              `json:"winningLine,omitempty"`
	Status        Status             `json:"status"`
	TurnStartedAt time.Time          `json:"turnStartTime"`
	Scores        Scores             `json:"scores"`
	SymbolCap     int                `json:"symbolCap"`
}

// Errors returned by rule application. Each maps 1:1 to a scoped error
// notification kind; none of them is ever fatal.
var (
	ErrGameNotActive       = staticErr("game is not active")
	ErrNotYourTurn         = staticErr("not your turn")
	ErrInvalidCellIndex    = staticErr("cell index out of range")
	ErrCellOccupied        = staticErr("cell already occupied")
	ErrSymbolCapReached    = staticErr("symbol cap reached, remove one first")
	ErrCannotRemoveForeign = staticErr("cell does not hold your symbol")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
