// Package fakes provides in-memory test doubles (fakes) for the service's
// external collaborators. These are used in unit and integration tests.
package fakes

import (
	"context"
	"sync"

	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

// --- Token Store ---

// TokenStore is an in-memory delivery.TokenStore with upsert semantics.
type TokenStore struct {
	mu     sync.Mutex
	tokens map[string]string

	// FailPut and FailGet force the next call to return the given error.
	FailPut error
	FailGet error
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]string)}
}

func (s *TokenStore) Put(_ context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut != nil {
		return s.FailPut
	}
	s.tokens[userID] = token
	return nil
}

func (s *TokenStore) Get(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGet != nil {
		return "", s.FailGet
	}
	token, ok := s.tokens[userID]
	if !ok {
		return "", delivery.ErrTokenNotFound
	}
	return token, nil
}

func (s *TokenStore) Close() error { return nil }

// --- Push Gateway ---

// PushCall records one invocation of the gateway.
type PushCall struct {
	Token string
	Note  delivery.Notification
}

// PushGateway records every Send for later assertions.
type PushGateway struct {
	mu    sync.Mutex
	calls []PushCall

	// Err, when set, is returned by every Send.
	Err error
}

func NewPushGateway() *PushGateway { return &PushGateway{} }

func (g *PushGateway) Send(_ context.Context, token string, note delivery.Notification) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, PushCall{Token: token, Note: note})
	return g.Err
}

func (g *PushGateway) Calls() []PushCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]PushCall, len(g.calls))
	copy(out, g.calls)
	return out
}

// --- Deliverer ---

// DeliverCall records one envelope handed to the fake engine.
type DeliverCall struct {
	Event    string
	Envelope *delivery.Envelope
}

// Deliverer is a recording stand-in for the delivery engine.
type Deliverer struct {
	mu    sync.Mutex
	calls []DeliverCall

	// Err, when set, is returned by every Deliver.
	Err error
}

func NewDeliverer() *Deliverer { return &Deliverer{} }

func (d *Deliverer) Deliver(_ context.Context, event string, env *delivery.Envelope) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, DeliverCall{Event: event, Envelope: env})
	return d.Err
}

func (d *Deliverer) Calls() []DeliverCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DeliverCall, len(d.calls))
	copy(out, d.calls)
	return out
}
