package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

// Inbound protocol event names. enviar_mensaje is the legacy alias still
// sent by older clients.
const (
	frameRegisterUser = "register_user"
	frameJoinChat     = "join_chat"
	frameLeaveChat    = "leave_chat"
	frameSendMessage  = "send_message"
	frameSendMessageA = "enviar_mensaje"
)

// Deliverer hands a constructed envelope to the delivery engine.
type Deliverer interface {
	Deliver(ctx context.Context, event string, env *delivery.Envelope) error
}

// inboundFrame is the wire shape of every client-to-server event.
type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type registerPayload struct {
	UserID        string `json:"userId"`
	ExpoPushToken string `json:"expoPushToken,omitempty"`
}

type chatPayload struct {
	ChatID string `json:"chatId"`
}

type messagePayload struct {
	SenderID    string `json:"id_remitente"`
	RecipientID string `json:"id_destinatario"`
	ChatID      string `json:"id_chat,omitempty"`
	Content     string `json:"contenido"`
}

// ConnectionManager owns the websocket transport: it upgrades connections,
// runs their read loops, drives the per-connection registration state
// machine and guarantees hub cleanup exactly once per close, whichever path
// (client close, network error, idle timeout) triggered it.
// It runs its own dedicated HTTP server.
type ConnectionManager struct {
	server     *http.Server
	upgrader   websocket.Upgrader
	hub        *Hub
	deliverer  Deliverer
	tokens     delivery.TokenStore
	logger     zerolog.Logger
	instanceID string
}

// NewConnectionManager creates and wires up a new websocket connection
// manager listening on the given port.
func NewConnectionManager(
	port string,
	hub *Hub,
	deliverer Deliverer,
	tokens delivery.TokenStore,
	allowedOrigins []string,
	logger zerolog.Logger,
) (*ConnectionManager, error) {
	if hub == nil {
		return nil, fmt.Errorf("hub cannot be nil")
	}
	if deliverer == nil {
		return nil, fmt.Errorf("deliverer cannot be nil")
	}

	instanceID := uuid.NewString()
	cmLogger := logger.With().Str("component", "ConnectionManager").Str("instance", instanceID).Logger()

	cm := &ConnectionManager{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		hub:        hub,
		deliverer:  deliverer,
		tokens:     tokens,
		logger:     cmLogger,
		instanceID: instanceID,
	}

	mux := http.NewServeMux()
	mux.Handle("/connect", http.HandlerFunc(cm.connectHandler))
	cm.server = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	return cm, nil
}

// originChecker allows every origin when the list is empty or contains "*",
// mirroring the permissive CORS setup of the HTTP surface.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Start runs the HTTP server for websocket connections.
func (cm *ConnectionManager) Start(_ context.Context) error {
	cm.logger.Info().Str("addr", cm.server.Addr).Msg("WebSocket server starting...")
	if err := cm.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (cm *ConnectionManager) Shutdown(ctx context.Context) error {
	cm.logger.Info().Msg("Shutting down WebSocket service...")
	if err := cm.server.Shutdown(ctx); err != nil {
		cm.logger.Error().Err(err).Msg("WebSocket server shutdown failed.")
		return err
	}
	cm.logger.Info().Msg("WebSocket service shut down.")
	return nil
}

// Handler exposes the connect endpoint for tests that mount the manager on
// their own server.
func (cm *ConnectionManager) Handler() http.Handler {
	return http.HandlerFunc(cm.connectHandler)
}

// connectHandler upgrades a new HTTP request to a websocket and manages its
// lifecycle until the transport closes.
func (cm *ConnectionManager) connectHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cm.logger.Error().Err(err).Msg("Failed to upgrade connection.")
		return
	}

	client := NewClient(uuid.NewString(), conn, cm.logger)
	defer client.Close()
	defer cm.hub.Unregister(client.ID)

	go client.WritePump()

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cm.logger.Info().Str("conn", client.ID).Msg("Client connected.")
	cm.readLoop(r.Context(), client, conn)
	cm.logger.Info().Str("conn", client.ID).Msg("Client disconnected.")
}

// readLoop decodes inbound frames and dispatches them until the connection
// drops.
func (cm *ConnectionManager) readLoop(ctx context.Context, client *Client, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cm.logger.Debug().Err(err).Str("conn", client.ID).Msg("Read error.")
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			cm.logger.Warn().Err(err).Str("conn", client.ID).Msg("Discarding malformed frame.")
			continue
		}

		cm.handleFrame(ctx, client, frame)
	}
}

func (cm *ConnectionManager) handleFrame(ctx context.Context, client *Client, frame inboundFrame) {
	switch frame.Type {
	case frameRegisterUser:
		var p registerPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.UserID == "" {
			cm.logger.Warn().Str("conn", client.ID).Msg("Invalid register_user payload.")
			return
		}
		cm.hub.Register(p.UserID, client)

		// Storing the credential is a side effect of registration, not part
		// of the state transition, so it never blocks the read loop.
		if p.ExpoPushToken != "" && cm.tokens != nil {
			go cm.saveToken(p.UserID, p.ExpoPushToken)
		}

	case frameJoinChat:
		var p chatPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.ChatID == "" {
			return
		}
		cm.hub.Join(client.ID, delivery.ChatTopic(p.ChatID))

	case frameLeaveChat:
		var p chatPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil || p.ChatID == "" {
			return
		}
		cm.hub.Leave(client.ID, delivery.ChatTopic(p.ChatID))

	case frameSendMessage, frameSendMessageA:
		var p messagePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			cm.logger.Warn().Str("conn", client.ID).Msg("Invalid message payload.")
			return
		}
		env := delivery.NewEnvelope(p.SenderID, p.RecipientID, p.ChatID, p.Content)
		if err := env.Validate(); err != nil {
			cm.logger.Warn().Err(err).Str("conn", client.ID).Msg("Rejecting malformed message.")
			return
		}
		if err := cm.deliverer.Deliver(ctx, delivery.EventNewMessage, env); err != nil {
			cm.logger.Error().Err(err).Str("recipient", env.RecipientID).Msg("Delivery failed.")
		}

	default:
		cm.logger.Debug().Str("conn", client.ID).Str("type", frame.Type).Msg("Ignoring unknown frame type.")
	}
}

func (cm *ConnectionManager) saveToken(userID, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cm.tokens.Put(ctx, userID, token); err != nil {
		cm.logger.Error().Err(err).Str("user", userID).Msg("Failed to store push token.")
		return
	}
	cm.logger.Debug().Str("user", userID).Msg("Push token stored.")
}
