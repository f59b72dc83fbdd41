package session

import (
	"github.com/kapu/gridlock/internal/game"
	"github.com/kapu/gridlock/internal/room"
	"github.com/kapu/gridlock/pkg/wire"
)

// toGameState deep-copies the game into its wire shape. Called under the
// room lock; the result shares nothing with the live game.
func toGameState(g *game.Game) wire.GameState {
	board := make([]string, len(g.Board))
	for i, r := range g.Board {
		board[i] = string(r)
	}
	moves := make(map[string][]int, len(g.Moves))
	for role, idxs := range g.Moves {
		moves[string(role)] = append([]int(nil), idxs...)
	}
	history := make([]wire.HistoryEntry, len(g.History))
	for i, h := range g.History {
		history[i] = wire.HistoryEntry{
			Type:  h.Type,
			Role:  string(h.Role),
			Index: h.Index,
			At:    h.At,
		}
	}
	return wire.GameState{
		Board:         board,
		CurrentPlayer: string(g.CurrentPlayer),
		Moves:         moves,
		MoveHistory:   history,
		Winner:        string(g.Winner),
		WinningLine:   append([]int(nil), g.WinningLine...),
		Status:        string(g.Status),
		TurnStartedAt: g.TurnStartedAt,
		Scores:        toScores(g.Scores),
		SymbolCap:     g.SymbolCap,
	}
}

func toStats(s room.Stats) wire.RoomStats {
	return wire.RoomStats{
		RoomID:     s.RoomID,
		HasX:       s.HasX,
		HasO:       s.HasO,
		Spectators: s.Spectators,
		Status:     string(s.Status),
		Scores:     toScores(s.Scores),
	}
}

func toScores(s game.Scores) wire.Scores {
	return wire.Scores{X: s.X, O: s.O, Draws: s.Draws}
}
