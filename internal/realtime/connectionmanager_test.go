package realtime_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raul302/Push-notifications-brazof/internal/realtime"
	"github.com/Raul302/Push-notifications-brazof/internal/test/fakes"
	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

type testServer struct {
	hub       *realtime.Hub
	deliverer *fakes.Deliverer
	tokens    *fakes.TokenStore
	srv       *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	hub := realtime.NewHub(zerolog.Nop())
	deliverer := fakes.NewDeliverer()
	tokens := fakes.NewTokenStore()

	cm, err := realtime.NewConnectionManager("0", hub, deliverer, tokens, nil, zerolog.Nop())
	require.NoError(t, err)

	srv := httptest.NewServer(cm.Handler())
	t.Cleanup(srv.Close)

	return &testServer{hub: hub, deliverer: deliverer, tokens: tokens, srv: srv}
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frameType string, data any) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"type": frameType, "data": data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

func TestConnectionManager_RegisterSetsPresence(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	send(t, conn, "register_user", map[string]string{"userId": "u1"})

	require.Eventually(t, func() bool {
		return ts.hub.IsOnline("u1")
	}, time.Second, 10*time.Millisecond, "user should come online after register_user")
}

func TestConnectionManager_RegisterStoresTokenAsSideEffect(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	send(t, conn, "register_user", map[string]string{
		"userId":        "u1",
		"expoPushToken": "tok-123",
	})

	require.Eventually(t, func() bool {
		tok, err := ts.tokens.Get(t.Context(), "u1")
		return err == nil && tok == "tok-123"
	}, time.Second, 10*time.Millisecond, "token should be stored asynchronously")
}

func TestConnectionManager_LiveDeliveryReachesConnection(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	send(t, conn, "register_user", map[string]string{"userId": "u1"})
	require.Eventually(t, func() bool { return ts.hub.IsOnline("u1") }, time.Second, 10*time.Millisecond)

	env := delivery.NewEnvelope("u2", "u1", "", "hello")
	sent := ts.hub.Broadcast(delivery.UserTopic("u1"), delivery.EventNewMessage, env)
	require.Equal(t, 1, sent)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type string             `json:"type"`
		Data *delivery.Envelope `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, delivery.EventNewMessage, got.Type)
	assert.Equal(t, "hello", got.Data.Content)
}

func TestConnectionManager_SendMessageFrameTriggersDelivery(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	send(t, conn, "register_user", map[string]string{"userId": "u1"})
	send(t, conn, "send_message", map[string]string{
		"id_remitente":    "u1",
		"id_destinatario": "u2",
		"contenido":       "que tal",
	})

	require.Eventually(t, func() bool {
		return len(ts.deliverer.Calls()) == 1
	}, time.Second, 10*time.Millisecond)

	call := ts.deliverer.Calls()[0]
	assert.Equal(t, delivery.EventNewMessage, call.Event)
	assert.Equal(t, "u1", call.Envelope.SenderID)
	assert.Equal(t, "u2", call.Envelope.RecipientID)
	assert.Equal(t, "que tal", call.Envelope.Content)
}

func TestConnectionManager_LegacySendAliasIsAccepted(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	send(t, conn, "enviar_mensaje", map[string]string{
		"id_remitente":    "u1",
		"id_destinatario": "u2",
		"contenido":       "hola",
	})

	require.Eventually(t, func() bool {
		return len(ts.deliverer.Calls()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestConnectionManager_JoinChatReceivesRoomBroadcast(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	send(t, conn, "register_user", map[string]string{"userId": "u1"})
	send(t, conn, "join_chat", map[string]string{"chatId": "42"})

	topic := delivery.ChatTopic("42")
	require.Eventually(t, func() bool {
		return ts.hub.Broadcast(topic, delivery.EventNewMessage, "ping") == 1
	}, time.Second, 20*time.Millisecond)
}

func TestConnectionManager_DisconnectClearsPresence(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	send(t, conn, "register_user", map[string]string{"userId": "u1"})
	require.Eventually(t, func() bool { return ts.hub.IsOnline("u1") }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		return !ts.hub.IsOnline("u1")
	}, time.Second, 10*time.Millisecond, "presence should clear on transport close")
}

func TestConnectionManager_MalformedFramesAreIgnored(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, conn, "register_user", map[string]string{"userId": "u1"})

	// The connection survives the garbage frame and still registers.
	require.Eventually(t, func() bool {
		return ts.hub.IsOnline("u1")
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, ts.deliverer.Calls())
}
