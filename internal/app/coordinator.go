package app

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkarev/pokerboard/internal/core"
	"github.com/dkarev/pokerboard/internal/domain"
)

// Coordinator is the composition root for room commands. Every mutating
// command runs the same pipeline: validate shape, apply the rule through the
// store, broadcast the result. Commands for the same room are serialized so
// a broadcast never mixes the state of two mutations.
type Coordinator struct {
	Store    *core.SessionStore
	Registry *Registry
	Caster   *Broadcaster

	mu        sync.Mutex
	roomLocks map[string]*sync.Mutex
}

func NewCoordinator(store *core.SessionStore, registry *Registry, caster *Broadcaster) *Coordinator {
	c := &Coordinator{
		Store:     store,
		Registry:  registry,
		Caster:    caster,
		roomLocks: make(map[string]*sync.Mutex),
	}
	registry.OnEvict(c.removeOnDisconnect)
	return c
}

func (c *Coordinator) roomLock(roomID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.roomLocks[roomID]
	if !ok {
		l = &sync.Mutex{}
		c.roomLocks[roomID] = l
	}
	return l
}

// apply is the mutate-then-broadcast pipeline. The per-room lock holds
// across both steps; the store's own mutex alone would allow two broadcasts
// to interleave.
func (c *Coordinator) apply(roomID string, fn func(domain.SessionData) (domain.SessionData, error)) error {
	l := c.roomLock(roomID)
	l.Lock()
	defer l.Unlock()

	if _, err := c.Store.Update(roomID, fn); err != nil {
		return err
	}
	c.Caster.Broadcast(roomID)
	return nil
}

// Join registers the connection for (roomID, userID) and sends the current
// snapshot to that connection only. It does not mutate the session and does
// not broadcast. Blank ids are ignored, leaving the connection unjoined.
func (c *Coordinator) Join(conn MemberConn, roomID, userID string) {
	roomID, userID = strings.TrimSpace(roomID), strings.TrimSpace(userID)
	if roomID == "" || userID == "" {
		log.Warn().Str("module", "app.coordinator").Msg("join with blank ids ignored")
		return
	}
	c.Registry.Register(conn, roomID, userID)
	c.Caster.SendTo(conn, roomID)
}

// Disconnect drops the connection from the registry. Participant removal
// happens later through the grace-timer eviction path, if no connection for
// the same identity shows up in time.
func (c *Coordinator) Disconnect(conn MemberConn) {
	c.Registry.Unregister(conn)
}

func (c *Coordinator) UpsertParticipant(roomID, userID, name string, role domain.Role) error {
	if strings.TrimSpace(roomID) == "" {
		return fmt.Errorf("%w: blank room id", core.ErrInvalidPayload)
	}
	return c.apply(strings.TrimSpace(roomID), func(s domain.SessionData) (domain.SessionData, error) {
		return core.UpsertParticipant(s, userID, name, role)
	})
}

func (c *Coordinator) SubmitVote(roomID, userID string, vote *domain.Vote) error {
	if strings.TrimSpace(roomID) == "" || strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: blank ids", core.ErrInvalidPayload)
	}
	return c.apply(strings.TrimSpace(roomID), func(s domain.SessionData) (domain.SessionData, error) {
		return core.SubmitVote(s, userID, vote)
	})
}

func (c *Coordinator) Reveal(roomID string) error {
	if strings.TrimSpace(roomID) == "" {
		return fmt.Errorf("%w: blank room id", core.ErrInvalidPayload)
	}
	return c.apply(strings.TrimSpace(roomID), core.Reveal)
}

func (c *Coordinator) Reset(roomID string) error {
	if strings.TrimSpace(roomID) == "" {
		return fmt.Errorf("%w: blank room id", core.ErrInvalidPayload)
	}
	return c.apply(strings.TrimSpace(roomID), core.Reset)
}

// Snapshot returns the room's current sorted read model, for request/response
// consumers that want state without holding a connection.
func (c *Coordinator) Snapshot(roomID string) core.Snapshot {
	return core.BuildSnapshot(c.Store.Get(roomID))
}

// removeOnDisconnect runs on grace-timer expiry. One room's cleanup failure
// must not take down the eviction path for others, so it never panics out.
func (c *Coordinator) removeOnDisconnect(roomID, userID string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "app.coordinator").Str("room", roomID).Str("user", userID).Interface("panic", rec).Msg("disconnect cleanup panicked")
		}
	}()

	err := c.apply(roomID, func(s domain.SessionData) (domain.SessionData, error) {
		return core.RemoveParticipant(s, userID)
	})
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Str("room", roomID).Str("user", userID).Msg("disconnect cleanup failed")
		return
	}
	log.Info().Str("module", "app.coordinator").Str("room", roomID).Str("user", userID).Msg("participant removed after grace period")
}
