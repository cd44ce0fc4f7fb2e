package push_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raul302/Push-notifications-brazof/internal/platform/push"
	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

func TestExpoGateway_Send(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"status":"ok"}}`))
	}))
	defer srv.Close()

	gw := push.NewExpoGateway(srv.URL, 2*time.Second, zerolog.Nop())

	err := gw.Send(context.Background(), "ExponentPushToken[abc]", delivery.Notification{
		Title: "Nuevo mensaje",
		Body:  "hello",
		Data:  map[string]string{"sender": "u2"},
	})

	require.NoError(t, err)
	assert.Equal(t, "ExponentPushToken[abc]", received["to"])
	assert.Equal(t, "Nuevo mensaje", received["title"])
	assert.Equal(t, "hello", received["body"])
	assert.Equal(t, "default", received["sound"])
}

func TestExpoGateway_RejectedNotification(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"errors":[{"code":"PUSH_TOO_MANY_REQUESTS"}]}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	gw := push.NewExpoGateway(srv.URL, 2*time.Second, zerolog.Nop())

	err := gw.Send(context.Background(), "tok", delivery.Notification{Title: "t", Body: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestExpoGateway_Timeout(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-blocked
	}))
	defer func() {
		close(blocked)
		srv.Close()
	}()

	gw := push.NewExpoGateway(srv.URL, 2*time.Second, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := gw.Send(ctx, "tok", delivery.Notification{Title: "t", Body: "b"})
	require.Error(t, err)
}
