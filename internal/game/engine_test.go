package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func startedGame(t *testing.T, cap int) *Game {
	t.Helper()
	g := New(cap)
	g.Start(t0)
	return g
}

// checkInvariants asserts the board/moves consistency rules that must hold
// after every accepted transition.
func checkInvariants(t *testing.T, g *Game) {
	t.Helper()
	occupied := 0
	for i, c := range g.Board {
		if c == "" {
			continue
		}
		occupied++
		count := 0
		for _, idx := range g.Moves[c] {
			if idx == i {
				count++
			}
		}
		require.Equalf(t, 1, count, "cell %d held by %s must appear exactly once in its moves", i, c)
		for _, idx := range g.Moves[c.Opponent()] {
			require.NotEqualf(t, i, idx, "cell %d must not appear in both roles' moves", i)
		}
	}
	require.Equal(t, occupied, len(g.Moves[RoleX])+len(g.Moves[RoleO]))
	require.LessOrEqual(t, len(g.Moves[RoleX]), g.SymbolCap)
	require.LessOrEqual(t, len(g.Moves[RoleO]), g.SymbolCap)
	require.Equal(t, g.Status == StatusFinished, g.Winner != OutcomeNone)
}

func TestPlacementSequenceKeepsInvariants(t *testing.T) {
	g := startedGame(t, DefaultSymbolCap)
	// alternating placements, no win line completed
	seq := []struct {
		role Role
		idx  int
	}{
		{RoleX, 0}, {RoleO, 4}, {RoleX, 1}, {RoleO, 2}, {RoleX, 6}, {RoleO, 7},
	}
	for _, s := range seq {
		require.NoError(t, g.ApplyPlacement(s.role, s.idx, t0))
		checkInvariants(t, g)
	}
	assert.Equal(t, StatusPlaying, g.Status)
}

func TestPlacementRejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) *Game
		role    Role
		idx     int
		wantErr error
	}{
		{
			name:    "not started",
			setup:   func(t *testing.T) *Game { return New(3) },
			role:    RoleX,
			idx:     0,
			wantErr: ErrGameNotActive,
		},
		{
			name:    "not your turn",
			setup:   func(t *testing.T) *Game { return startedGame(t, 3) },
			role:    RoleO,
			idx:     0,
			wantErr: ErrNotYourTurn,
		},
		{
			name:    "index below range",
			setup:   func(t *testing.T) *Game { return startedGame(t, 3) },
			role:    RoleX,
			idx:     -1,
			wantErr: ErrInvalidCellIndex,
		},
		{
			name:    "index above range",
			setup:   func(t *testing.T) *Game { return startedGame(t, 3) },
			role:    RoleX,
			idx:     9,
			wantErr: ErrInvalidCellIndex,
		},
		{
			name: "cell occupied",
			setup: func(t *testing.T) *Game {
				g := startedGame(t, 3)
				require.NoError(t, g.ApplyPlacement(RoleX, 4, t0))
				return g
			},
			role:    RoleO,
			idx:     4,
			wantErr: ErrCellOccupied,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.setup(t)
			before := *g
			err := g.ApplyPlacement(tt.role, tt.idx, t0)
			require.ErrorIs(t, err, tt.wantErr)
			// rejected placements leave the turn untouched
			assert.Equal(t, before.CurrentPlayer, g.CurrentPlayer)
			assert.Equal(t, before.Board, g.Board)
		})
	}
}

func TestSymbolCapReached(t *testing.T) {
	g := startedGame(t, 3)
	// alternate placements until X holds 3 symbols
	require.NoError(t, g.ApplyPlacement(RoleX, 0, t0))
	require.NoError(t, g.ApplyPlacement(RoleO, 8, t0))
	require.NoError(t, g.ApplyPlacement(RoleX, 1, t0))
	require.NoError(t, g.ApplyPlacement(RoleO, 2, t0))
	require.NoError(t, g.ApplyPlacement(RoleX, 3, t0))
	require.NoError(t, g.ApplyPlacement(RoleO, 7, t0))

	err := g.ApplyPlacement(RoleX, 5, t0)
	require.ErrorIs(t, err, ErrSymbolCapReached)
	assert.Equal(t, RoleX, g.CurrentPlayer, "rejection must not consume the turn")

	// after removing one, placement succeeds again (removal consumes the turn)
	require.NoError(t, g.ApplyRemoval(RoleX, 0, t0))
	assert.Equal(t, RoleO, g.CurrentPlayer)
	require.NoError(t, g.ApplyRemoval(RoleO, 8, t0))
	require.NoError(t, g.ApplyPlacement(RoleX, 5, t0))
	checkInvariants(t, g)
}

func TestRemovalRules(t *testing.T) {
	g := startedGame(t, 3)
	require.NoError(t, g.ApplyPlacement(RoleX, 0, t0))

	require.ErrorIs(t, g.ApplyRemoval(RoleO, 0, t0), ErrCannotRemoveForeign)
	require.ErrorIs(t, g.ApplyRemoval(RoleO, 5, t0), ErrCannotRemoveForeign)
	require.ErrorIs(t, g.ApplyRemoval(RoleO, 12, t0), ErrInvalidCellIndex)
	require.ErrorIs(t, g.ApplyRemoval(RoleX, 0, t0), ErrNotYourTurn)

	require.NoError(t, g.ApplyPlacement(RoleO, 4, t0))
	require.NoError(t, g.ApplyPlacement(RoleX, 1, t0))
	require.NoError(t, g.ApplyRemoval(RoleO, 4, t0))
	assert.Equal(t, Role(""), g.Board[4])
	assert.Empty(t, g.Moves[RoleO])
	assert.Equal(t, RoleX, g.CurrentPlayer)
	checkInvariants(t, g)

	entry := g.History[len(g.History)-1]
	assert.Equal(t, "remove", entry.Type)
	assert.Equal(t, 4, entry.Index)
}

func TestWinDetection(t *testing.T) {
	g := startedGame(t, 3)
	require.NoError(t, g.ApplyPlacement(RoleX, 0, t0))
	require.NoError(t, g.ApplyPlacement(RoleO, 3, t0))
	require.NoError(t, g.ApplyPlacement(RoleX, 1, t0))
	require.NoError(t, g.ApplyPlacement(RoleO, 4, t0))
	require.NoError(t, g.ApplyPlacement(RoleX, 2, t0))

	assert.Equal(t, StatusFinished, g.Status)
	assert.Equal(t, OutcomeX, g.Winner)
	assert.Equal(t, []int{0, 1, 2}, g.WinningLine)
	assert.Equal(t, 1, g.Scores.X)
	assert.Equal(t, 0, g.Scores.O)

	// finished game rejects further input
	require.ErrorIs(t, g.ApplyPlacement(RoleO, 5, t0), ErrGameNotActive)
	require.ErrorIs(t, g.ApplyRemoval(RoleO, 4, t0), ErrGameNotActive)
}

func TestEvaluateWinBoards(t *testing.T) {
	tests := []struct {
		name     string
		board    [BoardSize]Role
		wantOut  Outcome
		wantLine []int
	}{
		{
			name:     "top row X",
			board:    [BoardSize]Role{RoleX, RoleX, RoleX, "", "", "", "", "", ""},
			wantOut:  OutcomeX,
			wantLine: []int{0, 1, 2},
		},
		{
			name:     "left column O",
			board:    [BoardSize]Role{RoleO, RoleX, RoleX, RoleO, "", "", RoleO, "", ""},
			wantOut:  OutcomeO,
			wantLine: []int{0, 3, 6},
		},
		{
			name:     "anti-diagonal X",
			board:    [BoardSize]Role{"", "", RoleX, RoleO, RoleX, RoleO, RoleX, "", ""},
			wantOut:  OutcomeX,
			wantLine: []int{2, 4, 6},
		},
		{
			name:    "full board no line is a draw",
			board:   [BoardSize]Role{RoleX, RoleO, RoleX, RoleX, RoleO, RoleO, RoleO, RoleX, RoleX},
			wantOut: OutcomeDraw,
		},
		{
			name:    "empty board no outcome",
			board:   [BoardSize]Role{},
			wantOut: OutcomeNone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, line := EvaluateWin(tt.board)
			assert.Equal(t, tt.wantOut, out)
			assert.Equal(t, tt.wantLine, line)
		})
	}
}

func TestForfeit(t *testing.T) {
	g := startedGame(t, 3)
	require.NoError(t, g.ApplyPlacement(RoleX, 0, t0))
	// O is on turn and times out
	g.Forfeit(RoleO)
	assert.Equal(t, StatusFinished, g.Status)
	assert.Equal(t, OutcomeX, g.Winner)
	assert.Nil(t, g.WinningLine)
	assert.Equal(t, 1, g.Scores.X)

	// forfeit on a finished game is a no-op
	g.Forfeit(RoleX)
	assert.Equal(t, OutcomeX, g.Winner)
	assert.Equal(t, 1, g.Scores.X)
}

func TestResetPreservingScores(t *testing.T) {
	g := startedGame(t, 3)
	require.NoError(t, g.ApplyPlacement(RoleX, 0, t0))
	require.NoError(t, g.ApplyPlacement(RoleO, 3, t0))
	require.NoError(t, g.ApplyPlacement(RoleX, 1, t0))
	require.NoError(t, g.ApplyPlacement(RoleO, 4, t0))
	require.NoError(t, g.ApplyPlacement(RoleX, 2, t0))
	require.Equal(t, 1, g.Scores.X)

	next := g.ResetPreservingScores(true, t0)
	assert.Equal(t, g.Scores, next.Scores)
	assert.Equal(t, StatusPlaying, next.Status)
	assert.Equal(t, RoleX, next.CurrentPlayer)
	assert.Equal(t, [BoardSize]Role{}, next.Board)
	assert.Empty(t, next.Moves[RoleX])
	assert.Empty(t, next.Moves[RoleO])
	assert.Equal(t, OutcomeNone, next.Winner)

	// with a seat empty the rematch waits
	waiting := g.ResetPreservingScores(false, t0)
	assert.Equal(t, StatusWaiting, waiting.Status)
}

func TestPauseAndResume(t *testing.T) {
	g := startedGame(t, 3)
	require.NoError(t, g.ApplyPlacement(RoleX, 4, t0))
	g.Pause()
	assert.Equal(t, StatusWaiting, g.Status)
	require.ErrorIs(t, g.ApplyPlacement(RoleO, 0, t0), ErrGameNotActive)

	// board survives the pause; resume continues from the same position
	g.Start(t0.Add(time.Minute))
	assert.Equal(t, RoleX, g.Board[4])
	assert.Equal(t, RoleO, g.CurrentPlayer)
	require.NoError(t, g.ApplyPlacement(RoleO, 0, t0))
}
