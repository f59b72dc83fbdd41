package game

import "time"

const (
	// BoardSize is fixed: a 3x3 grid addressed 0..8, row-major.
	BoardSize = 9

	// DefaultSymbolCap is the number of symbols a role may hold on the board
	// at once before being forced to remove one.
	DefaultSymbolCap = 3
)

// winLines are the 8 possible winning triples, checked in this fixed order.
// At most one line can complete per placement, so enumeration order only
// matters for determinism.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// New returns a fresh waiting game with zeroed scores. X always opens.
func New(symbolCap int) *Game {
	if symbolCap <= 0 {
		symbolCap = DefaultSymbolCap
	}
	return &Game{
		CurrentPlayer: RoleX,
		Moves:         map[Role][]int{RoleX: {}, RoleO: {}},
		Status:        StatusWaiting,
		SymbolCap:     symbolCap,
	}
}

// Start moves the game into playing and opens the first (or resumed) turn.
// Idempotent when already playing.
func (g *Game) Start(now time.Time) {
	if g.Status != StatusWaiting {
		return
	}
	g.Status = StatusPlaying
	g.TurnStartedAt = now
}

// Pause returns an in-progress game to waiting, used when an active player
// disconnects mid-game. Finished games stay finished.
func (g *Game) Pause() {
	if g.Status == StatusPlaying {
		g.Status = StatusWaiting
	}
}

// ApplyPlacement validates and applies one symbol placement by role at index.
// Validation is complete before any mutation: on error the game is unchanged.
func (g *Game) ApplyPlacement(role Role, index int, now time.Time) error {
	if g.Status != StatusPlaying {
		return ErrGameNotActive
	}
	if role != g.CurrentPlayer {
		return ErrNotYourTurn
	}
	if index < 0 || index >= BoardSize {
		return ErrInvalidCellIndex
	}
	if g.Board[index] != "" {
		return ErrCellOccupied
	}
	if len(g.Moves[role]) >= g.SymbolCap {
		return ErrSymbolCapReached
	}

	g.Board[index] = role
	g.Moves[role] = append(g.Moves[role], index)
	g.History = append(g.History, HistoryEntry{Type: "place", Role: role, Index: index, At: now})

	if outcome, line := EvaluateWin(g.Board); outcome != OutcomeNone {
		g.finish(outcome, line)
		return nil
	}
	g.CurrentPlayer = role.Opponent()
	g.TurnStartedAt = now
	return nil
}

// ApplyRemoval validates and applies removal of one of role's own symbols.
// Removal always consumes the turn; there is no re-placement in the same turn.
func (g *Game) ApplyRemoval(role Role, index int, now time.Time) error {
	if g.Status != StatusPlaying {
		return ErrGameNotActive
	}
	if role != g.CurrentPlayer {
		return ErrNotYourTurn
	}
	if index < 0 || index >= BoardSize {
		return ErrInvalidCellIndex
	}
	if g.Board[index] != role {
		return ErrCannotRemoveForeign
	}

	g.Board[index] = ""
	g.Moves[role] = removeIndex(g.Moves[role], index)
	g.History = append(g.History, HistoryEntry{Type: "remove", Role: role, Index: index, At: now})
	g.CurrentPlayer = role.Opponent()
	g.TurnStartedAt = now
	return nil
}

// Forfeit ends a playing game in favor of loser's opponent. Used for turn
// timeouts. No-op on any other status.
func (g *Game) Forfeit(loser Role) {
	if g.Status != StatusPlaying {
		return
	}
	g.finish(outcomeFor(loser.Opponent()), nil)
}

// EvaluateWin scans the fixed line order and reports the first complete
// non-empty triple, a draw when the board is full, or no outcome yet.
func EvaluateWin(board [BoardSize]Role) (Outcome, []int) {
	for _, l := range winLines {
		if board[l[0]] != "" && board[l[0]] == board[l[1]] && board[l[1]] == board[l[2]] {
			return outcomeFor(board[l[0]]), []int{l[0], l[1], l[2]}
		}
	}
	for _, c := range board {
		if c == "" {
			return OutcomeNone, nil
		}
	}
	return OutcomeDraw, nil
}

// ResetPreservingScores returns a fresh game carrying over the scores.
// The new game starts playing immediately when both seats are occupied.
func (g *Game) ResetPreservingScores(bothSeated bool, now time.Time) *Game {
	next := New(g.SymbolCap)
	next.Scores = g.Scores
	if bothSeated {
		next.Start(now)
	}
	return next
}

func (g *Game) finish(outcome Outcome, line []int) {
	g.Status = StatusFinished
	g.Winner = outcome
	g.WinningLine = line
	switch outcome {
	case OutcomeX:
		g.Scores.X++
	case OutcomeO:
		g.Scores.O++
	case OutcomeDraw:
		g.Scores.Draws++
	}
}

func removeIndex(s []int, idx int) []int {
	out := s[:0]
	for _, v := range s {
		if v != idx {
			out = append(out, v)
		}
	}
	return out
}
