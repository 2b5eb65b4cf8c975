package app

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrConnClosed is what transports return from TrySend once closed.
var ErrConnClosed = errors.New("connection closed")

// Frame is a serialized outbound message.
type Frame []byte

// MemberConn is a live transport connection. Owned by the adapter; the
// adapter must Close() it. TrySend fails on closed or backpressured
// connections instead of blocking.
type MemberConn interface {
	TrySend(Frame) error
}

type userKey struct {
	roomID string
	userID string
}

type connInfo struct {
	roomID string
	userID string
}

// Registry owns every index that relates connections, rooms and user
// identities: conns-by-room for fan-out, identity-by-conn for disconnects,
// a refcount per (room,user) because one user may hold several connections
// (tabs), and the pending grace timers. Keeping all four behind one mutex is
// what makes the invariants (refcount == live connections, a conn belongs to
// at most one room) hold without call-site discipline.
type Registry struct {
	mu     sync.Mutex
	conns  map[MemberConn]connInfo
	rooms  map[string]map[MemberConn]struct{}
	counts map[userKey]int
	timers map[userKey]*time.Timer
	gens   map[userKey]uint64
	gen    uint64

	grace   time.Duration
	onEvict func(roomID, userID string)
	closed  bool
}

func NewRegistry(grace time.Duration) *Registry {
	return &Registry{
		conns:  make(map[MemberConn]connInfo),
		rooms:  make(map[string]map[MemberConn]struct{}),
		counts: make(map[userKey]int),
		timers: make(map[userKey]*time.Timer),
		gens:   make(map[userKey]uint64),
		grace:  grace,
	}
}

// OnEvict sets the callback run when the grace period for a fully
// disconnected (room,user) expires. Set once during wiring, before any
// connection registers.
func (r *Registry) OnEvict(fn func(roomID, userID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onEvict = fn
}

// Register associates a connection with a (room,user). Re-registering the
// same connection under different ids drops the old association first: last
// join wins. Any pending removal timer for the identity is cancelled, which
// is what lets a reload within the grace window keep the participant.
func (r *Registry) Register(c MemberConn, roomID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.conns[c]; ok {
		if old.roomID == roomID && old.userID == userID {
			return
		}
		r.dropLocked(c, old)
	}

	r.conns[c] = connInfo{roomID: roomID, userID: userID}
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[MemberConn]struct{})
	}
	r.rooms[roomID][c] = struct{}{}

	key := userKey{roomID, userID}
	r.counts[key]++
	if t, ok := r.timers[key]; ok {
		t.Stop()
		delete(r.timers, key)
		delete(r.gens, key)
		log.Debug().Str("module", "app.registry").Str("room", roomID).Str("user", userID).Msg("grace timer cancelled on rejoin")
	}
	log.Info().Str("module", "app.registry").Str("room", roomID).Str("user", userID).Int("count", r.counts[key]).Msg("connection registered")
}

// Unregister removes the connection. When it was the identity's last one a
// grace timer is armed; eviction only happens if the count is still zero
// when it fires.
func (r *Registry) Unregister(c MemberConn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.conns[c]
	if !ok {
		return
	}
	r.dropLocked(c, info)
}

func (r *Registry) dropLocked(c MemberConn, info connInfo) {
	delete(r.conns, c)
	if set, ok := r.rooms[info.roomID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.rooms, info.roomID)
		}
	}

	key := userKey{info.roomID, info.userID}
	if r.counts[key] > 1 {
		r.counts[key]--
		return
	}
	delete(r.counts, key)

	if r.closed || r.onEvict == nil {
		return
	}
	if t, ok := r.timers[key]; ok {
		t.Stop()
	}
	// The generation guards against a stale fired timer racing a rejoin
	// that armed a fresh one for the same identity.
	r.gen++
	gen := r.gen
	r.gens[key] = gen
	r.timers[key] = time.AfterFunc(r.grace, func() { r.expire(key, gen) })
	log.Debug().Str("module", "app.registry").Str("room", info.roomID).Str("user", info.userID).Dur("grace", r.grace).Msg("last connection gone, grace timer armed")
}

func (r *Registry) expire(key userKey, gen uint64) {
	r.mu.Lock()
	if r.closed || r.gens[key] != gen || r.counts[key] > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.timers, key)
	delete(r.gens, key)
	fn := r.onEvict
	r.mu.Unlock()

	if fn != nil {
		fn(key.roomID, key.userID)
	}
}

// CountFor reports the number of live connections for a (room,user).
func (r *Registry) CountFor(roomID, userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[userKey{roomID, userID}]
}

// ConnsFor snapshots the connections currently joined to a room.
func (r *Registry) ConnsFor(roomID string) []MemberConn {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.rooms[roomID]
	out := make([]MemberConn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// Shutdown cancels every pending grace timer. No evictions run after it
// returns.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for key, t := range r.timers {
		t.Stop()
		delete(r.timers, key)
		delete(r.gens, key)
	}
}
