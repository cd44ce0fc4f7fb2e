// Package api defines the HTTP control surface: token registration and
// lookup, plus the endpoints that trigger deliveries from outside the
// live-connection layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

// Deliverer hands a constructed envelope to the delivery engine.
type Deliverer interface {
	Deliver(ctx context.Context, event string, env *delivery.Envelope) error
}

// API holds the dependencies for the stateless HTTP handlers.
type API struct {
	deliverer Deliverer
	tokens    delivery.TokenStore
	logger    zerolog.Logger
}

// NewAPI creates a new, stateless API handler.
func NewAPI(deliverer Deliverer, tokens delivery.TokenStore, logger zerolog.Logger) *API {
	return &API{
		deliverer: deliverer,
		tokens:    tokens,
		logger:    logger.With().Str("component", "API").Logger(),
	}
}

// Routes mounts every handler on the given router.
func (a *API) Routes(r chi.Router) {
	r.Post("/save-token", a.SaveTokenHandler)
	r.Get("/get-token/{user_id}", a.GetTokenHandler)
	r.Post("/send-message", a.SendMessageHandler)
	r.Post("/notify-event", a.notifyHandler(delivery.EventEntityChange))
	r.Post("/notify-ad", a.notifyHandler(delivery.EventAdChange))
	r.Get("/healthz", a.HealthHandler)
}

type saveTokenRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// SaveTokenHandler upserts a push credential for a user. Idempotent: a
// repeat registration overwrites the stored token.
func (a *API) SaveTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req saveTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID == "" || req.Token == "" {
		writeJSONError(w, http.StatusBadRequest, "user_id and token are required")
		return
	}

	if err := a.tokens.Put(r.Context(), req.UserID, req.Token); err != nil {
		a.logger.Error().Err(err).Str("user", req.UserID).Msg("Failed to store token.")
		writeJSONError(w, http.StatusInternalServerError, "failed to store token")
		return
	}

	a.logger.Info().Str("user", req.UserID).Msg("Token saved.")
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GetTokenHandler returns the stored credential for a user, or 404.
func (a *API) GetTokenHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, err := a.tokens.Get(r.Context(), userID)
	if errors.Is(err, delivery.ErrTokenNotFound) {
		writeJSONError(w, http.StatusNotFound, "token not found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("user", userID).Msg("Token lookup failed.")
		writeJSONError(w, http.StatusInternalServerError, "failed to query token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": userID,
		"token":   token,
	})
}

type sendMessageRequest struct {
	SenderID    string `json:"id_remitente"`
	RecipientID string `json:"id_destinatario"`
	ChatID      string `json:"id_chat,omitempty"`
	Content     string `json:"contenido"`
}

// SendMessageHandler builds a message envelope and hands it to the delivery
// engine. It responds as soon as the routing decision is dispatched; a push
// fallback in flight is never awaited.
func (a *API) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SenderID == "" || req.RecipientID == "" || req.Content == "" {
		writeJSONError(w, http.StatusBadRequest, "id_remitente, id_destinatario and contenido are required")
		return
	}

	env := delivery.NewEnvelope(req.SenderID, req.RecipientID, req.ChatID, req.Content)
	if err := a.deliverer.Deliver(r.Context(), delivery.EventNewMessage, env); err != nil {
		a.logger.Error().Err(err).Str("recipient", env.RecipientID).Msg("Delivery failed.")
		writeJSONError(w, http.StatusInternalServerError, "failed to deliver message")
		return
	}

	a.logger.Info().Str("sender", env.SenderID).Str("recipient", env.RecipientID).Msg("Message dispatched.")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": env})
}

type notifyRequest struct {
	UserID  string `json:"user_id"`
	Payload string `json:"payload"`
}

// notifyHandler triggers an entity-change or ad-change delivery to a
// recipient. The event name is a routing label fixed per endpoint.
func (a *API) notifyHandler(event string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req notifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.UserID == "" || req.Payload == "" {
			writeJSONError(w, http.StatusBadRequest, "user_id and payload are required")
			return
		}

		env := delivery.NewEnvelope("", req.UserID, "", req.Payload)
		if err := a.deliverer.Deliver(r.Context(), event, env); err != nil {
			a.logger.Error().Err(err).Str("recipient", req.UserID).Msg("Delivery failed.")
			writeJSONError(w, http.StatusInternalServerError, "failed to deliver notification")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": "notification dispatched"})
	}
}

// HealthHandler is the liveness probe.
func (a *API) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
