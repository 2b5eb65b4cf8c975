package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkarev/pokerboard/internal/core"
)

// sessionEvent is the sole server-to-client message kind.
type sessionEvent struct {
	Type    string        `json:"type"`
	RoomID  string        `json:"roomId"`
	Session core.Snapshot `json:"session"`
}

// Broadcaster fans the current snapshot of a room out to every connection
// registered there. It only ever reads; mutations happen before it runs.
type Broadcaster struct {
	store    *core.SessionStore
	registry *Registry
}

func NewBroadcaster(store *core.SessionStore, registry *Registry) *Broadcaster {
	return &Broadcaster{store: store, registry: registry}
}

func (b *Broadcaster) frame(roomID string) (Frame, error) {
	snap := core.BuildSnapshot(b.store.Get(roomID))
	data, err := json.Marshal(sessionEvent{Type: "session", RoomID: roomID, Session: snap})
	if err != nil {
		return nil, err
	}
	return Frame(data), nil
}

// Broadcast pushes the room's sorted snapshot to all of its connections.
// Sends to closed or backpressured connections are skipped, never letting
// one bad connection starve the rest.
func (b *Broadcaster) Broadcast(roomID string) {
	data, err := b.frame(roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcaster").Str("room", roomID).Msg("marshal session event")
		return
	}

	sent, dropped := 0, 0
	for _, c := range b.registry.ConnsFor(roomID) {
		if err := c.TrySend(data); err != nil {
			dropped++
			continue
		}
		sent++
	}
	log.Debug().Str("module", "app.broadcaster").Str("room", roomID).Int("sent_to", sent).Int("dropped", dropped).Msg("broadcast session")
}

// SendTo delivers the room's current snapshot to a single connection. Used
// on join so a fresh client does not wait for the next mutation.
func (b *Broadcaster) SendTo(c MemberConn, roomID string) {
	data, err := b.frame(roomID)
	if err != nil {
		log.Error().Err(err).Str("module", "app.broadcaster").Str("room", roomID).Msg("marshal session event")
		return
	}
	if err := c.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "app.broadcaster").Str("room", roomID).Msg("send to joining connection")
	}
}
