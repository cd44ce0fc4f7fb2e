// Package delivery consolidates the core domain types and service dependency
// definitions for the presence-aware delivery service.
package delivery

import (
	"context"
	"errors"
)

// Outbound event names understood by connected clients. The delivery engine
// treats these as opaque routing labels; they are owned by the control
// surface and the live-connection protocol layer.
const (
	EventNewMessage   = "nuevo_mensaje"
	EventEntityChange = "cambios_eventos"
	EventAdChange     = "cambio_publicidad"
)

// ErrTokenNotFound is returned by a TokenStore when no push credential is
// stored for the requested user.
var ErrTokenNotFound = errors.New("token not found")

// TokenStore is the durable mapping from a user identifier to their push
// credential. Put has upsert semantics: a second registration for the same
// user overwrites the previous token.
type TokenStore interface {
	Put(ctx context.Context, userID, token string) error
	Get(ctx context.Context, userID string) (string, error)
	Close() error
}

// Notification is the push payload handed to the PushGateway when a
// recipient has no live connection.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushGateway is a stateless client to a third-party push-delivery API.
// The outcome of a send is opaque to the delivery engine: it is logged,
// never interpreted and never retried.
type PushGateway interface {
	Send(ctx context.Context, token string, note Notification) error
}

// Broadcaster is the live fan-out path. It is implemented by the realtime
// hub, which is the only component allowed to resolve connection identifiers
// to transport handles.
type Broadcaster interface {
	// IsOnline reports whether the user has at least one live connection.
	IsOnline(userID string) bool

	// Broadcast sends the event to every connection joined to the topic and
	// returns the number of connections the frame was dispatched to. A send
	// failure to one member never prevents delivery to the others.
	Broadcast(topic Topic, event string, payload any) int
}

// ServiceDependencies holds the external services the delivery service needs
// to operate. This struct is used for dependency injection.
type ServiceDependencies struct {
	Broadcaster Broadcaster
	TokenStore  TokenStore
	PushGateway PushGateway
}
