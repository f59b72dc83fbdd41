// Package archive records finished games in Postgres when DATABASE_URL is
// configured. It is write-only and optional: a nil *Repository disables it,
// and live session state never depends on it.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/kapu/gridlock/internal/game"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveResult inserts one finished game. method is "line", "draw" or
// "forfeit". A nil repository or an unfinished game is a no-op.
func (r *Repository) SaveResult(ctx context.Context, roomID string, g *game.Game, method string) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	if g.Status != game.StatusFinished {
		return nil
	}

	historyRaw, _ := json.Marshal(g.History)
	lineRaw, _ := json.Marshal(g.WinningLine)

	startedAt := time.Now()
	if len(g.History) > 0 {
		startedAt = g.History[0].At
	}
	endedAt := time.Now()

	q := `INSERT INTO finished_games (
	    room_id, winner, method, winning_line, move_history,
	    score_x, score_o, score_draws, symbol_cap, started_at, ended_at
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`

	_, err := r.db.ExecContext(ctx, q,
		roomID,
		string(g.Winner), strings.TrimSpace(method),
		string(lineRaw), string(historyRaw),
		g.Scores.X, g.Scores.O, g.Scores.Draws,
		g.SymbolCap, startedAt, endedAt,
	)
	return err
}
