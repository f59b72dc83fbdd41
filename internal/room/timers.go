package room

import (
	"time"

	"go.uber.org/zap"

	"github.com/kapu/gridlock/internal/game"
	"github.com/kapu/gridlock/internal/obslog"
)

// Timer callbacks capture only the room id and a generation number, never the
// room or game value. On fire they re-resolve the room through the registry
// and re-validate under the room lock, so a timer scheduled against state
// that has since moved on is a no-op. Stop() on the old timer is best-effort;
// the generation check is what actually fences stale fires.

// ArmTurnTimer (re)schedules the turn deadline and stamps the turn start.
// Caller must hold r.Mu and have the game in playing state.
func (reg *Registry) ArmTurnTimer(r *Room) {
	if reg.opts.MoveTimeout <= 0 || r.destroyed {
		return
	}
	r.turnGen++
	gen := r.turnGen
	if r.turnTimer != nil {
		r.turnTimer.Stop()
	}
	r.Game.TurnStartedAt = time.Now()
	id := r.ID
	r.turnTimer = time.AfterFunc(reg.opts.MoveTimeout, func() {
		reg.fireTurnTimeout(id, gen)
	})
}

// DisarmTurnTimer cancels any pending turn deadline. Caller must hold r.Mu.
func (reg *Registry) DisarmTurnTimer(r *Room) {
	r.turnGen++
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
}

func (reg *Registry) fireTurnTimeout(roomID string, gen uint64) {
	r := reg.Get(roomID)
	if r == nil {
		return
	}

	r.Mu.Lock()
	if r.destroyed || gen != r.turnGen || r.Game.Status != game.StatusPlaying {
		r.Mu.Unlock()
		return
	}
	loser := r.Game.CurrentPlayer
	r.Game.Forfeit(loser)
	r.turnTimer = nil
	r.Touch()
	r.Mu.Unlock()

	obslog.L().Info("turn_forfeit",
		zap.String("room_id", roomID),
		zap.String("loser", string(loser)),
	)
	if reg.onForfeit != nil {
		reg.onForfeit(roomID, loser)
	}
}

// TouchExpiry pushes the room expiry deadline out by a full window. Called on
// every accepted game-affecting action so an active room never expires
// mid-game. Caller must hold r.Mu.
func (reg *Registry) TouchExpiry(r *Room) {
	reg.armExpiryLocked(r)
}

func (reg *Registry) armExpiryLocked(r *Room) {
	if reg.opts.RoomExpiry <= 0 || r.destroyed {
		return
	}
	if r.expiryTimer != nil {
		r.expiryTimer.Stop()
	}
	id := r.ID
	r.expiryTimer = time.AfterFunc(reg.opts.RoomExpiry, func() {
		reg.fireExpiry(id)
	})
}

func (reg *Registry) fireExpiry(roomID string) {
	// destruction is unconditional: a room this old is idle by definition,
	// and Destroy itself re-checks liveness
	if !reg.Destroy(roomID) {
		return
	}
	obslog.L().Info("room_expired", zap.String("room_id", roomID))
	if reg.onExpire != nil {
		reg.onExpire(roomID)
	}
}
