// Package realtime manages live client connections, user presence and
// topic membership for broadcast fan-out.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

// event is the frame shape written to clients: {"type": ..., "data": ...}.
type event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub is the authoritative in-memory view of which users are reachable live
// and which connections are joined to which topics.
//
// Presence, topic membership and the connection table are guarded by a
// single mutex so that registration, broadcast and disconnect events observe
// one consistent state: a broadcast can never see a connection identifier
// after its cleanup has started. Sends themselves happen outside the lock
// against a snapshot of the members.
type Hub struct {
	mu sync.Mutex

	// conns maps connection ID to its live client handle.
	conns map[string]*Client

	// users maps user ID to the set of its connection IDs. An entry exists
	// iff the user has at least one live connection.
	users map[string]map[string]struct{}

	// userByConn is the reverse lookup used by Unregister.
	userByConn map[string]string

	// rooms maps topic to the set of member connection IDs.
	rooms map[delivery.Topic]map[string]struct{}

	// topicsByConn tracks every topic a connection belongs to, so closing a
	// connection removes it from all of them.
	topicsByConn map[string]map[delivery.Topic]struct{}

	logger zerolog.Logger
}

// NewHub creates an empty hub. The hub is created at startup, torn down at
// shutdown, and injected into the components that need it.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		conns:        make(map[string]*Client),
		users:        make(map[string]map[string]struct{}),
		userByConn:   make(map[string]string),
		rooms:        make(map[delivery.Topic]map[string]struct{}),
		topicsByConn: make(map[string]map[delivery.Topic]struct{}),
		logger:       logger.With().Str("component", "Hub").Logger(),
	}
}

// Register binds a connection to a user identity, records presence and
// implicitly joins the reserved per-user topic. Registering the same
// (user, connection) pair twice is a no-op.
//
// If the connection was already registered under a different user, the old
// identity is replaced: the prior presence entry and every topic membership
// are cleaned up before the new registration takes effect.
func (h *Hub) Register(userID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.userByConn[c.ID]; ok {
		if prev == userID {
			h.conns[c.ID] = c
			return
		}
		h.logger.Warn().
			Str("conn", c.ID).Str("old_user", prev).Str("new_user", userID).
			Msg("Connection re-registered under a new identity. Replacing the old mapping.")
		h.removeLocked(c.ID)
	}

	h.conns[c.ID] = c
	h.userByConn[c.ID] = userID

	set, ok := h.users[userID]
	if !ok {
		set = make(map[string]struct{})
		h.users[userID] = set
	}
	set[c.ID] = struct{}{}

	h.joinLocked(c.ID, delivery.UserTopic(userID))

	h.logger.Info().Str("user", userID).Str("conn", c.ID).
		Int("user_conns", len(set)).Msg("User registered.")
}

// Unregister removes the connection from presence and from every topic it
// belongs to. It is safe to call for a connection that was never registered,
// or more than once, so every close path can invoke it unconditionally.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(connID)
}

// removeLocked is the single cleanup path. Callers hold h.mu.
func (h *Hub) removeLocked(connID string) {
	delete(h.conns, connID)

	for topic := range h.topicsByConn[connID] {
		if members, ok := h.rooms[topic]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(h.rooms, topic)
			}
		}
	}
	delete(h.topicsByConn, connID)

	userID, ok := h.userByConn[connID]
	if !ok {
		return
	}
	delete(h.userByConn, connID)

	if set, ok := h.users[userID]; ok {
		delete(set, connID)
		if len(set) == 0 {
			// The entry is removed, never left empty.
			delete(h.users, userID)
			h.logger.Info().Str("user", userID).Msg("User went offline.")
		}
	}
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users[userID]) > 0
}

// Join adds the connection to a topic. Unregistered connections cannot join.
func (h *Hub) Join(connID string, topic delivery.Topic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[connID]; !ok {
		return
	}
	h.joinLocked(connID, topic)
}

func (h *Hub) joinLocked(connID string, topic delivery.Topic) {
	members, ok := h.rooms[topic]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[topic] = members
	}
	members[connID] = struct{}{}

	topics, ok := h.topicsByConn[connID]
	if !ok {
		topics = make(map[delivery.Topic]struct{})
		h.topicsByConn[connID] = topics
	}
	topics[topic] = struct{}{}
}

// Leave removes the connection from a topic.
func (h *Hub) Leave(connID string, topic delivery.Topic) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[topic]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, topic)
		}
	}
	if topics, ok := h.topicsByConn[connID]; ok {
		delete(topics, topic)
	}
}

// Broadcast marshals the event once and dispatches it to every connection
// currently joined to the topic. Sends are best effort and failure isolated:
// a full or closing member is skipped and logged, the rest still receive the
// frame. The member list is snapshotted under the hub lock; the sends happen
// outside it.
func (h *Hub) Broadcast(topic delivery.Topic, eventType string, payload any) int {
	frame, err := json.Marshal(event{Type: eventType, Data: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("event", eventType).Msg("Failed to marshal broadcast frame.")
		return 0
	}

	h.mu.Lock()
	targets := make([]*Client, 0, len(h.rooms[topic]))
	for connID := range h.rooms[topic] {
		if c, ok := h.conns[connID]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	sent := 0
	for _, c := range targets {
		if c.Send(frame) {
			sent++
		} else {
			h.logger.Warn().Str("conn", c.ID).Str("topic", string(topic)).
				Msg("Dropped broadcast frame for unreachable connection.")
		}
	}

	h.logger.Debug().Str("topic", string(topic)).Str("event", eventType).
		Int("sent", sent).Msg("Broadcast dispatched.")
	return sent
}

// UserOf returns the identity a connection is registered under.
func (h *Hub) UserOf(connID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	userID, ok := h.userByConn[connID]
	return userID, ok
}
