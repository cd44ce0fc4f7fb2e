// Package engine implements the delivery-decision core: given a recipient
// and an envelope, it picks the live broadcast path or the asynchronous
// push-notification fallback.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

// DefaultPushTimeout bounds a single push-gateway call.
const DefaultPushTimeout = 10 * time.Second

// Engine routes envelopes. Presence is the single source of truth for the
// channel choice: it is checked once per delivery, and a recipient that
// disconnects between the check and the fan-out may still get a dispatch
// attempt on a now-closed connection. That race is accepted as best effort;
// broadcast failures are isolated per connection and never re-route through
// the fallback path.
type Engine struct {
	broadcaster delivery.Broadcaster
	tokens      delivery.TokenStore
	gateway     delivery.PushGateway
	pushTimeout time.Duration
	logger      zerolog.Logger
	wg          sync.WaitGroup
}

// New wires up a delivery engine from its injected collaborators.
func New(deps *delivery.ServiceDependencies, pushTimeout time.Duration, logger zerolog.Logger) (*Engine, error) {
	if deps == nil || deps.Broadcaster == nil {
		return nil, fmt.Errorf("broadcaster cannot be nil")
	}
	if deps.TokenStore == nil {
		return nil, fmt.Errorf("token store cannot be nil")
	}
	if deps.PushGateway == nil {
		return nil, fmt.Errorf("push gateway cannot be nil")
	}
	if pushTimeout <= 0 {
		pushTimeout = DefaultPushTimeout
	}
	return &Engine{
		broadcaster: deps.Broadcaster,
		tokens:      deps.TokenStore,
		gateway:     deps.PushGateway,
		pushTimeout: pushTimeout,
		logger:      logger.With().Str("component", "Engine").Logger(),
	}, nil
}

// Deliver routes one envelope to its recipient.
//
// Online recipients get a synchronous broadcast on their per-user topic; the
// call returns once the fan-out is dispatched, not once clients acknowledge
// anything (the live transport has no acks). Offline recipients fall back to
// a detached push-notification send whose outcome is only logged. An offline
// recipient with no stored credential is a terminal no-op, not an error.
func (e *Engine) Deliver(ctx context.Context, event string, env *delivery.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	log := e.logger.With().
		Str("event", event).
		Str("recipient", env.RecipientID).
		Int64("msg_id", env.ID).
		Logger()

	// 1. Check presence.
	if e.broadcaster.IsOnline(env.RecipientID) {
		sent := e.broadcaster.Broadcast(delivery.UserTopic(env.RecipientID), event, env)
		log.Info().Int("connections", sent).Msg("Recipient online. Delivered over live channel.")
		return nil
	}

	// 2. Offline: look up the push credential. The hub lock is long released
	// by now; this I/O never runs inside the presence critical section.
	token, err := e.tokens.Get(ctx, env.RecipientID)
	if errors.Is(err, delivery.ErrTokenNotFound) {
		log.Info().Msg("Recipient offline with no stored credential. Dropping message.")
		return nil
	}
	if err != nil {
		// A store failure on the fallback path never fails the triggering
		// call; the delivery decision has already been made.
		log.Error().Err(err).Msg("Token store lookup failed. Message dropped.")
		return nil
	}

	// 3. Fire-and-forget push. The triggering request has already succeeded;
	// the send outcome is logged, never surfaced, never retried.
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		pushCtx, cancel := context.WithTimeout(context.Background(), e.pushTimeout)
		defer cancel()

		if err := e.gateway.Send(pushCtx, token, notificationFor(event, env)); err != nil {
			log.Warn().Err(err).Msg("Push notification failed.")
			return
		}
		log.Info().Msg("Push notification dispatched.")
	}()

	return nil
}

// Wait blocks until all detached push sends have finished. Used during
// shutdown and by tests.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// notificationFor derives the push text from the envelope and its routing
// label.
func notificationFor(event string, env *delivery.Envelope) delivery.Notification {
	title := "Nueva notificación"
	switch event {
	case delivery.EventNewMessage:
		title = "Nuevo mensaje"
	case delivery.EventEntityChange:
		title = "Cambios en tus eventos"
	case delivery.EventAdChange:
		title = "Cambio de publicidad"
	}
	return delivery.Notification{
		Title: title,
		Body:  env.Content,
		Data: map[string]string{
			"event":  event,
			"sender": env.SenderID,
		},
	}
}
