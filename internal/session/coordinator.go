// Package session is the authority between the transport and the rules: it
// decodes client intents, validates them against room and game state, applies
// them, and fans the resulting notifications back out. All mutation of a room
// happens under that room's lock, inside this package or the timer callbacks.
package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/gridlock/internal/archive"
	"github.com/kapu/gridlock/internal/game"
	"github.com/kapu/gridlock/internal/msgcat"
	"github.com/kapu/gridlock/internal/obslog"
	"github.com/kapu/gridlock/internal/ratelimit"
	"github.com/kapu/gridlock/internal/room"
	"github.com/kapu/gridlock/pkg/wire"
)

const maxChatLen = 200

// Sender is one connected client as the coordinator sees it. Send must never
// block; the transport buffers and drops on overflow.
type Sender interface {
	ID() string
	Send(v any)
}

// Coordinator routes intents from connections into rooms and notifications
// back out. One per process.
type Coordinator struct {
	reg     *room.Registry
	limiter ratelimit.Limiter
	cat     *msgcat.Catalog
	repo    *archive.Repository

	mu          sync.RWMutex
	peers       map[string]Sender
	memberships map[string]map[string]struct{} // connID → room ids
}

func NewCoordinator(reg *room.Registry, limiter ratelimit.Limiter, cat *msgcat.Catalog) *Coordinator {
	c := &Coordinator{
		reg:         reg,
		limiter:     limiter,
		cat:         cat,
		peers:       make(map[string]Sender),
		memberships: make(map[string]map[string]struct{}),
	}
	reg.SetCallbacks(c.onForfeit, c.onExpire)
	return c
}

// AttachRepository enables archiving of finished games. Optional; without it
// results live only in room scores until the room dies.
func (c *Coordinator) AttachRepository(repo *archive.Repository) {
	c.repo = repo
}

// Register makes the connection addressable for notifications. The transport
// calls this once per accepted socket, before the read loop starts.
func (c *Coordinator) Register(s Sender) {
	c.mu.Lock()
	c.peers[s.ID()] = s
	c.mu.Unlock()
}

// HandleIntent decodes and dispatches one inbound message. Malformed or
// unknown payloads cost the sender a rate-limit slot like any other action.
func (c *Coordinator) HandleIntent(ctx context.Context, s Sender, data []byte) {
	if !c.limiter.Allow(ctx, s.ID()) {
		s.Send(c.errorNotice(CodeRateLimited, nil))
		return
	}

	var in wire.Intent
	if err := json.Unmarshal(data, &in); err != nil {
		s.Send(c.errorNotice(CodeBadRequest, nil))
		return
	}

	switch in.Type {
	case wire.IntentJoinGame:
		c.handleJoin(s, in)
	case wire.IntentMakeMove:
		c.handleMove(ctx, s, in, false)
	case wire.IntentRemoveSymbol:
		c.handleMove(ctx, s, in, true)
	case wire.IntentUndo:
		s.Send(c.errorNotice(CodeNothingToUndo, nil))
	case wire.IntentResetGame:
		c.handleReset(s, in, false)
	case wire.IntentRematch:
		c.handleReset(s, in, true)
	case wire.IntentGetRoomInfo:
		c.handleRoomInfo(s, in)
	case wire.IntentChatMessage:
		c.handleChat(s, in)
	default:
		s.Send(c.errorNotice(CodeBadRequest, nil))
	}
}

// Disconnect removes the connection from every room it joined, pausing games
// it was playing in and destroying rooms it leaves empty.
func (c *Coordinator) Disconnect(ctx context.Context, s Sender) {
	connID := s.ID()

	c.mu.Lock()
	rooms := c.memberships[connID]
	delete(c.memberships, connID)
	delete(c.peers, connID)
	c.mu.Unlock()

	for roomID := range rooms {
		c.leaveRoom(connID, roomID)
	}
	c.limiter.Forget(ctx, connID)
}

func (c *Coordinator) leaveRoom(connID, roomID string) {
	r := c.reg.Get(roomID)
	if r == nil {
		return
	}

	r.Mu.Lock()
	m := r.RemoveMember(connID)
	if m == nil {
		r.Mu.Unlock()
		return
	}
	if _, isPlayer := m.Seat.GameRole(); isPlayer && r.Game.Status == game.StatusPlaying {
		r.Game.Pause()
		c.reg.DisarmTurnTimer(r)
	}
	r.Touch()
	empty := len(r.Members) == 0
	stats := toStats(r.Stats())
	targets := c.roomTargets(r)
	r.Mu.Unlock()

	obslog.L().Info("session_leave",
		zap.String("room_id", roomID),
		zap.String("conn_id", connID),
		zap.String("seat", string(m.Seat)),
	)

	if empty {
		c.reg.Destroy(roomID)
		return
	}
	c.send(targets, wire.PlayerLeft{
		Type:      wire.NoticePlayerLeft,
		Role:      string(m.Seat),
		DisplayID: m.DisplayID,
		Stats:     stats,
	})
}

func (c *Coordinator) handleJoin(s Sender, in wire.Intent) {
	r, err := c.reg.GetOrCreate(in.RoomID)
	if err != nil {
		s.Send(c.errorNotice(CodeInvalidRoomID, nil))
		return
	}

	r.Mu.Lock()
	m, created := r.AssignRole(s.ID(), in.DisplayName)
	if created {
		if _, ok := m.Seat.GameRole(); ok && r.BothSeated() && r.Game.Status == game.StatusWaiting {
			r.Game.Start(time.Now())
			c.reg.ArmTurnTimer(r)
		}
	}
	r.Touch()
	c.reg.TouchExpiry(r)
	gs := toGameState(r.Game)
	stats := toStats(r.Stats())
	targets := c.roomTargets(r)
	r.Mu.Unlock()

	c.mu.Lock()
	set := c.memberships[s.ID()]
	if set == nil {
		set = make(map[string]struct{})
		c.memberships[s.ID()] = set
	}
	set[r.ID] = struct{}{}
	c.mu.Unlock()

	s.Send(wire.Init{
		Type:      wire.NoticeInit,
		Role:      string(m.Seat),
		DisplayID: m.DisplayID,
		Game:      gs,
		Stats:     stats,
	})
	if !created {
		return
	}

	obslog.L().Info("session_join",
		zap.String("room_id", r.ID),
		zap.String("conn_id", s.ID()),
		zap.String("seat", string(m.Seat)),
	)
	c.sendExcept(targets, s.ID(), wire.PlayerJoined{
		Type:      wire.NoticePlayerJoined,
		Role:      string(m.Seat),
		DisplayID: m.DisplayID,
		Stats:     stats,
	})
}

func (c *Coordinator) handleMove(ctx context.Context, s Sender, in wire.Intent, removal bool) {
	r, role, ok := c.playerRoom(s, in.RoomID)
	if !ok {
		return
	}
	if in.Index == nil {
		r.Mu.Unlock()
		s.Send(c.errorNotice(CodeInvalidCellIndex, nil))
		return
	}

	now := time.Now()
	var err error
	if removal {
		err = r.Game.ApplyRemoval(role, *in.Index, now)
	} else {
		err = r.Game.ApplyPlacement(role, *in.Index, now)
	}
	if err != nil {
		var data map[string]any
		if err == game.ErrSymbolCapReached {
			data = map[string]any{"Cap": r.Game.SymbolCap}
		}
		r.Mu.Unlock()
		s.Send(c.errorNotice(codeForEngineErr(err), data))
		return
	}

	r.Touch()
	c.reg.TouchExpiry(r)
	finished := r.Game.Status == game.StatusFinished
	if finished {
		c.reg.DisarmTurnTimer(r)
	} else {
		c.reg.ArmTurnTimer(r)
	}
	snapshot := *r.Game
	gs := toGameState(r.Game)
	stats := toStats(r.Stats())
	targets := c.roomTargets(r)
	roomID := r.ID
	r.Mu.Unlock()

	kind := "place"
	if removal {
		kind = "remove"
	}
	obslog.L().Info("session_move",
		zap.String("room_id", roomID),
		zap.String("role", string(role)),
		zap.String("kind", kind),
		zap.Int("index", *in.Index),
	)

	c.send(targets, wire.Update{Type: wire.NoticeUpdate, Game: gs, Stats: stats})
	if finished {
		c.finishGame(ctx, roomID, &snapshot, targets)
	}
}

// playerRoom resolves the room and the sender's playing role, locking the
// room on success. The caller owns the unlock. On failure the error has
// already been sent.
func (c *Coordinator) playerRoom(s Sender, roomID string) (*room.Room, game.Role, bool) {
	r := c.reg.Get(roomID)
	if r == nil {
		s.Send(c.errorNotice(CodeRoomNotFound, nil))
		return nil, "", false
	}
	r.Mu.Lock()
	m, ok := r.Members[s.ID()]
	if !ok {
		r.Mu.Unlock()
		s.Send(c.errorNotice(CodeRoomNotFound, nil))
		return nil, "", false
	}
	role, isPlayer := m.Seat.GameRole()
	if !isPlayer {
		r.Mu.Unlock()
		s.Send(c.errorNotice(CodeSpectatorForbidden, nil))
		return nil, "", false
	}
	return r, role, true
}

// handleReset covers both resets: rematch keeps scores and requires a
// finished game, a plain reset zeroes scores and works any time.
func (c *Coordinator) handleReset(s Sender, in wire.Intent, rematch bool) {
	r, role, ok := c.playerRoom(s, in.RoomID)
	if !ok {
		return
	}

	now := time.Now()
	if rematch {
		if r.Game.Status != game.StatusFinished {
			r.Mu.Unlock()
			s.Send(c.errorNotice(CodeGameNotActive, nil))
			return
		}
		r.Game = r.Game.ResetPreservingScores(r.BothSeated(), now)
	} else {
		g := game.New(r.Game.SymbolCap)
		if r.BothSeated() {
			g.Start(now)
		}
		r.Game = g
	}
	if r.Game.Status == game.StatusPlaying {
		c.reg.ArmTurnTimer(r)
	} else {
		c.reg.DisarmTurnTimer(r)
	}
	r.Touch()
	c.reg.TouchExpiry(r)
	gs := toGameState(r.Game)
	stats := toStats(r.Stats())
	targets := c.roomTargets(r)
	roomID := r.ID
	r.Mu.Unlock()

	event := "session_reset"
	if rematch {
		event = "session_rematch"
	}
	obslog.L().Info(event,
		zap.String("room_id", roomID),
		zap.String("role", string(role)),
	)
	c.send(targets, wire.GameReset{Type: wire.NoticeGameReset, Game: gs, Stats: stats})
}

func (c *Coordinator) handleRoomInfo(s Sender, in wire.Intent) {
	r := c.reg.Get(in.RoomID)
	if r == nil {
		s.Send(c.errorNotice(CodeRoomNotFound, nil))
		return
	}
	r.Mu.Lock()
	stats := toStats(r.Stats())
	r.Mu.Unlock()
	s.Send(wire.RoomInfo{Type: wire.NoticeRoomInfo, Stats: stats})
}

func (c *Coordinator) handleChat(s Sender, in wire.Intent) {
	r := c.reg.Get(in.RoomID)
	if r == nil {
		s.Send(c.errorNotice(CodeRoomNotFound, nil))
		return
	}
	r.Mu.Lock()
	m, ok := r.Members[s.ID()]
	if !ok {
		r.Mu.Unlock()
		s.Send(c.errorNotice(CodeRoomNotFound, nil))
		return
	}
	r.Touch()
	c.reg.TouchExpiry(r)
	seat, display := m.Seat, m.DisplayID
	targets := c.roomTargets(r)
	r.Mu.Unlock()

	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return
	}
	if len(msg) > maxChatLen {
		msg = msg[:maxChatLen]
	}
	c.send(targets, wire.ChatMessage{
		Type:      wire.NoticeChatMessage,
		Role:      string(seat),
		DisplayID: display,
		Message:   msg,
	})
}

// onForfeit runs after a turn timer expired a game. Outside any lock.
func (c *Coordinator) onForfeit(roomID string, loser game.Role) {
	r := c.reg.Get(roomID)
	if r == nil {
		return
	}
	r.Mu.Lock()
	snapshot := *r.Game
	gs := toGameState(r.Game)
	stats := toStats(r.Stats())
	targets := c.roomTargets(r)
	r.Mu.Unlock()

	c.send(targets, wire.Update{Type: wire.NoticeUpdate, Game: gs, Stats: stats})
	c.send(targets, wire.GameOver{
		Type:   wire.NoticeGameOver,
		Winner: string(snapshot.Winner),
		Reason: c.cat.Text("game_over.forfeit", map[string]any{
			"Loser":  string(loser),
			"Winner": string(snapshot.Winner),
		}),
		Scores: toScores(snapshot.Scores),
	})
	c.archiveResult(context.Background(), roomID, &snapshot, "forfeit")
}

// onExpire runs after an idle room was destroyed; the membership index is the
// only thing left to clean.
func (c *Coordinator) onExpire(roomID string) {
	c.mu.Lock()
	for _, set := range c.memberships {
		delete(set, roomID)
	}
	c.mu.Unlock()
}

// finishGame broadcasts the terminal notification and archives the result.
// Called after the room lock was released, with a value snapshot.
func (c *Coordinator) finishGame(ctx context.Context, roomID string, g *game.Game, targets []Sender) {
	method := "line"
	msg := c.cat.Text("game_over.line", map[string]any{"Winner": string(g.Winner)})
	if g.Winner == game.OutcomeDraw {
		method = "draw"
		msg = c.cat.Text("game_over.draw", nil)
	}
	obslog.L().Info("game_over",
		zap.String("room_id", roomID),
		zap.String("winner", string(g.Winner)),
		zap.String("method", method),
	)
	c.send(targets, wire.GameOver{
		Type:   wire.NoticeGameOver,
		Winner: string(g.Winner),
		Line:   g.WinningLine,
		Reason: msg,
		Scores: toScores(g.Scores),
	})
	c.archiveResult(ctx, roomID, g, method)
}

func (c *Coordinator) archiveResult(ctx context.Context, roomID string, g *game.Game, method string) {
	if c.repo == nil {
		return
	}
	if err := c.repo.SaveResult(ctx, roomID, g, method); err != nil {
		obslog.L().Warn("archive_save_failed",
			zap.String("room_id", roomID),
			zap.Error(err),
		)
	}
}

// roomTargets resolves the room's members to live senders. Caller holds r.Mu;
// the peers lock nests inside the room lock, never the other way around.
func (c *Coordinator) roomTargets(r *room.Room) []Sender {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Sender, 0, len(r.Members))
	for connID := range r.Members {
		if s, ok := c.peers[connID]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Coordinator) send(targets []Sender, v any) {
	for _, s := range targets {
		s.Send(v)
	}
}

func (c *Coordinator) sendExcept(targets []Sender, exceptID string, v any) {
	for _, s := range targets {
		if s.ID() != exceptID {
			s.Send(v)
		}
	}
}

func (c *Coordinator) errorNotice(code string, data map[string]any) wire.Error {
	return wire.Error{
		Type:    wire.NoticeError,
		Code:    code,
		Message: c.cat.Text(catalogKey[code], data),
	}
}
