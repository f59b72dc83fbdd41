// Package room owns the live session state: the registry of rooms, seat
// assignment, and the per-room turn/expiry timers. Rooms exist only in
// memory; destroying a room is final.
package room

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kapu/gridlock/internal/game"
	"github.com/kapu/gridlock/internal/obslog"
)

var (
	ErrInvalidRoomID = staticErr("room id must be alphanumeric, hyphen or underscore")
	ErrRoomNotFound  = staticErr("room not found")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }

var roomIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SeatRole is a member's place in the room: one of the two player seats or
// spectator. Assigned at join, immutable until the connection leaves.
type SeatRole string

const (
	SeatX         SeatRole = "X"
	SeatO         SeatRole = "O"
	SeatSpectator SeatRole = "spectator"
)

// GameRole maps a seat to its in-game role. Spectators have none.
func (s SeatRole) GameRole() (game.Role, bool) {
	switch s {
	case SeatX:
		return game.RoleX, true
	case SeatO:
		return game.RoleO, true
	}
	return "", false
}

// Member is one connection's membership in one room.
type Member struct {
	ConnID    string    `json:"-"`
	Seat      SeatRole  `json:"role"`
	DisplayID string    `json:"displayId"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Room bundles one Game with its members and timers. Mu guards every field;
// handlers and timer callbacks hold it for the whole mutation, which gives
// each room a total order over its state transitions.
type Room struct {
	ID string

	Mu           sync.Mutex
	Game         *game.Game
	Members      map[string]*Member
	CreatedAt    time.Time
	LastActivity time.Time

	destroyed   bool
	turnGen     uint64 // bumped on every arm/disarm; stale timer fires bail out
	turnTimer   *time.Timer
	expiryTimer *time.Timer
}

// Stats is the per-room summary answered to info queries and attached to
// join/leave broadcasts.
type Stats struct {
	RoomID     string      `json:"roomId"`
	HasX       bool        `json:"hasX"`
	HasO       bool        `json:"hasO"`
	Spectators int         `json:"spectators"`
	Status     game.Status `json:"status"`
	Scores     game.Scores `json:"scores"`
}

// Options configures a Registry.
type Options struct {
	SymbolCap       int
	MoveTimeout     time.Duration
	RoomExpiry      time.Duration
	MaxRoomIDLength int
}

// Registry maps room ids to live rooms. It is the only holder of Room
// references; timers re-resolve rooms through it rather than closing over
// state.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	opts  Options

	// onForfeit fires after a turn timeout forfeited a game; onExpire fires
	// after an idle room was destroyed. Both run outside any room lock.
	onForfeit func(roomID string, loser game.Role)
	onExpire  func(roomID string)
}

func NewRegistry(opts Options) *Registry {
	if opts.MaxRoomIDLength <= 0 {
		opts.MaxRoomIDLength = 50
	}
	return &Registry{rooms: make(map[string]*Room), opts: opts}
}

// SetCallbacks wires the timer consequences back to the coordinator. Must be
// called before any room is created.
func (reg *Registry) SetCallbacks(onForfeit func(string, game.Role), onExpire func(string)) {
	reg.onForfeit = onForfeit
	reg.onExpire = onExpire
}

// ValidateID checks a client-chosen room id against the allow-list pattern.
func (reg *Registry) ValidateID(id string) error {
	if id == "" || len(id) > reg.opts.MaxRoomIDLength || !roomIDPattern.MatchString(id) {
		return ErrInvalidRoomID
	}
	return nil
}

// GetOrCreate returns the live room for id, creating it with a fresh game
// when absent. Creation arms the expiry timer.
func (reg *Registry) GetOrCreate(id string) (*Room, error) {
	if err := reg.ValidateID(id); err != nil {
		return nil, err
	}

	reg.mu.Lock()
	r, ok := reg.rooms[id]
	if !ok {
		now := time.Now()
		r = &Room{
			ID:           id,
			Game:         game.New(reg.opts.SymbolCap),
			Members:      make(map[string]*Member),
			CreatedAt:    now,
			LastActivity: now,
		}
		reg.rooms[id] = r
	}
	reg.mu.Unlock()

	if !ok {
		r.Mu.Lock()
		reg.armExpiryLocked(r)
		r.Mu.Unlock()
		obslog.L().Info("room_create", zap.String("room_id", id))
	}
	return r, nil
}

// Get returns the live room or nil.
func (reg *Registry) Get(id string) *Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.rooms[id]
}

// Destroy removes the room and cancels its timers. Idempotent; reports
// whether this call removed it.
func (reg *Registry) Destroy(id string) bool {
	reg.mu.Lock()
	r, ok := reg.rooms[id]
	if ok {
		delete(reg.rooms, id)
	}
	reg.mu.Unlock()
	if !ok {
		return false
	}

	r.Mu.Lock()
	r.destroyed = true
	r.turnGen++
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
	if r.expiryTimer != nil {
		r.expiryTimer.Stop()
		r.expiryTimer = nil
	}
	r.Mu.Unlock()
	obslog.L().Info("room_destroy", zap.String("room_id", id))
	return true
}

// Len reports how many rooms are live.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// AssignRole seats the connection: idempotent for a connection already in
// the room (reports created=false), otherwise first free seat among X then
// O, else spectator. Caller must hold r.Mu.
func (r *Room) AssignRole(connID, displayName string) (*Member, bool) {
	if m, ok := r.Members[connID]; ok {
		return m, false
	}
	taken := map[SeatRole]bool{}
	for _, m := range r.Members {
		taken[m.Seat] = true
	}
	seat := SeatSpectator
	switch {
	case !taken[SeatX]:
		seat = SeatX
	case !taken[SeatO]:
		seat = SeatO
	}

	display := sanitizeDisplayName(displayName)
	if display == "" {
		display = "player-" + uuid.NewString()[:8]
	}
	m := &Member{ConnID: connID, Seat: seat, DisplayID: display, JoinedAt: time.Now()}
	r.Members[connID] = m
	return m, true
}

// RemoveMember deletes and returns the membership, or nil when the
// connection was not in the room. Caller must hold r.Mu.
func (r *Room) RemoveMember(connID string) *Member {
	m, ok := r.Members[connID]
	if !ok {
		return nil
	}
	delete(r.Members, connID)
	return m
}

// MemberBySeat returns the member holding seat, or nil. Caller must hold r.Mu.
func (r *Room) MemberBySeat(seat SeatRole) *Member {
	for _, m := range r.Members {
		if m.Seat == seat {
			return m
		}
	}
	return nil
}

// BothSeated reports whether the X and O seats are both held.
// Caller must hold r.Mu.
func (r *Room) BothSeated() bool {
	return r.MemberBySeat(SeatX) != nil && r.MemberBySeat(SeatO) != nil
}

// Stats summarizes the room. Caller must hold r.Mu.
func (r *Room) Stats() Stats {
	s := Stats{
		RoomID: r.ID,
		Status: r.Game.Status,
		Scores: r.Game.Scores,
	}
	for _, m := range r.Members {
		switch m.Seat {
		case SeatX:
			s.HasX = true
		case SeatO:
			s.HasO = true
		default:
			s.Spectators++
		}
	}
	return s
}

// Touch records activity. Caller must hold r.Mu.
func (r *Room) Touch() { r.LastActivity = time.Now() }

func sanitizeDisplayName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 32 {
		s = s[:32]
	}
	return s
}
