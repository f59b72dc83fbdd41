package room

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kapu/gridlock/internal/game"
)

func newTestRegistry(opts Options) *Registry {
	if opts.SymbolCap == 0 {
		opts.SymbolCap = 3
	}
	return NewRegistry(opts)
}

func TestValidateID(t *testing.T) {
	reg := newTestRegistry(Options{MaxRoomIDLength: 10})

	assert.NoError(t, reg.ValidateID("room-1_a"))
	assert.ErrorIs(t, reg.ValidateID(""), ErrInvalidRoomID)
	assert.ErrorIs(t, reg.ValidateID("has space"), ErrInvalidRoomID)
	assert.ErrorIs(t, reg.ValidateID("room!"), ErrInvalidRoomID)
	assert.ErrorIs(t, reg.ValidateID(strings.Repeat("a", 11)), ErrInvalidRoomID)
	assert.NoError(t, reg.ValidateID(strings.Repeat("a", 10)))
}

func TestGetOrCreateReusesRoom(t *testing.T) {
	reg := newTestRegistry(Options{})

	r1, err := reg.GetOrCreate("arena")
	require.NoError(t, err)
	r2, err := reg.GetOrCreate("arena")
	require.NoError(t, err)
	assert.Same(t, r1, r2)
	assert.Equal(t, 1, reg.Len())

	_, err = reg.GetOrCreate("bad id")
	assert.ErrorIs(t, err, ErrInvalidRoomID)
}

func TestSeatAssignmentOrder(t *testing.T) {
	reg := newTestRegistry(Options{})
	r, err := reg.GetOrCreate("arena")
	require.NoError(t, err)

	r.Mu.Lock()
	defer r.Mu.Unlock()

	m1, created := r.AssignRole("c1", "alice")
	require.True(t, created)
	assert.Equal(t, SeatX, m1.Seat)
	assert.Equal(t, "alice", m1.DisplayID)

	m2, _ := r.AssignRole("c2", "")
	assert.Equal(t, SeatO, m2.Seat)
	assert.True(t, strings.HasPrefix(m2.DisplayID, "player-"))

	m3, _ := r.AssignRole("c3", "carol")
	assert.Equal(t, SeatSpectator, m3.Seat)

	// rejoin keeps the original seat
	again, created := r.AssignRole("c1", "other")
	assert.False(t, created)
	assert.Same(t, m1, again)
	assert.Equal(t, "alice", again.DisplayID)
}

func TestSeatFreedByLeaveIsReassigned(t *testing.T) {
	reg := newTestRegistry(Options{})
	r, _ := reg.GetOrCreate("arena")

	r.Mu.Lock()
	defer r.Mu.Unlock()

	r.AssignRole("c1", "")
	r.AssignRole("c2", "")
	require.NotNil(t, r.RemoveMember("c1"))

	m, _ := r.AssignRole("c3", "")
	assert.Equal(t, SeatX, m.Seat)
}

func TestStats(t *testing.T) {
	reg := newTestRegistry(Options{})
	r, _ := reg.GetOrCreate("arena")

	r.Mu.Lock()
	r.AssignRole("c1", "")
	r.AssignRole("c2", "")
	r.AssignRole("c3", "")
	r.AssignRole("c4", "")
	s := r.Stats()
	r.Mu.Unlock()

	assert.Equal(t, "arena", s.RoomID)
	assert.True(t, s.HasX)
	assert.True(t, s.HasO)
	assert.Equal(t, 2, s.Spectators)
	assert.Equal(t, game.StatusWaiting, s.Status)
}

func TestDestroyIsIdempotent(t *testing.T) {
	reg := newTestRegistry(Options{})
	_, err := reg.GetOrCreate("arena")
	require.NoError(t, err)

	assert.True(t, reg.Destroy("arena"))
	assert.False(t, reg.Destroy("arena"))
	assert.Nil(t, reg.Get("arena"))
	assert.Equal(t, 0, reg.Len())
}

func TestTurnTimerForfeitsCurrentPlayer(t *testing.T) {
	reg := newTestRegistry(Options{MoveTimeout: 15 * time.Millisecond})

	var mu sync.Mutex
	var gotRoom string
	var gotLoser game.Role
	reg.SetCallbacks(func(roomID string, loser game.Role) {
		mu.Lock()
		gotRoom, gotLoser = roomID, loser
		mu.Unlock()
	}, nil)

	r, _ := reg.GetOrCreate("arena")
	r.Mu.Lock()
	r.Game.Start(time.Now())
	reg.ArmTurnTimer(r)
	r.Mu.Unlock()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotRoom == "arena"
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, game.RoleX, gotLoser)
	mu.Unlock()

	r.Mu.Lock()
	assert.Equal(t, game.StatusFinished, r.Game.Status)
	assert.Equal(t, game.OutcomeO, r.Game.Winner)
	r.Mu.Unlock()
}

func TestDisarmPreventsForfeit(t *testing.T) {
	reg := newTestRegistry(Options{MoveTimeout: 15 * time.Millisecond})

	fired := make(chan struct{}, 1)
	reg.SetCallbacks(func(string, game.Role) { fired <- struct{}{} }, nil)

	r, _ := reg.GetOrCreate("arena")
	r.Mu.Lock()
	r.Game.Start(time.Now())
	reg.ArmTurnTimer(r)
	reg.DisarmTurnTimer(r)
	r.Mu.Unlock()

	select {
	case <-fired:
		t.Fatal("disarmed timer still fired")
	case <-time.After(60 * time.Millisecond):
	}

	r.Mu.Lock()
	assert.Equal(t, game.StatusPlaying, r.Game.Status)
	r.Mu.Unlock()
}

func TestExpiryDestroysIdleRoom(t *testing.T) {
	reg := newTestRegistry(Options{RoomExpiry: 15 * time.Millisecond})

	expired := make(chan string, 1)
	reg.SetCallbacks(nil, func(roomID string) { expired <- roomID })

	_, err := reg.GetOrCreate("arena")
	require.NoError(t, err)

	select {
	case id := <-expired:
		assert.Equal(t, "arena", id)
	case <-time.After(time.Second):
		t.Fatal("expiry never fired")
	}
	assert.Equal(t, 0, reg.Len())
}

func TestTouchExpiryExtendsDeadline(t *testing.T) {
	reg := newTestRegistry(Options{RoomExpiry: 40 * time.Millisecond})

	expired := make(chan string, 1)
	reg.SetCallbacks(nil, func(roomID string) { expired <- roomID })

	r, _ := reg.GetOrCreate("arena")
	for i := 0; i < 3; i++ {
		time.Sleep(25 * time.Millisecond)
		r.Mu.Lock()
		reg.TouchExpiry(r)
		r.Mu.Unlock()
	}

	select {
	case <-expired:
		t.Fatal("touched room expired early")
	default:
	}
	assert.Equal(t, 1, reg.Len())
}
