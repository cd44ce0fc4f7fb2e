// Package push provides the outbound push-notification gateway client.
package push

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/Raul302/Push-notifications-brazof/pkg/delivery"
)

// DefaultExpoURL is the Expo push-delivery HTTP API endpoint.
const DefaultExpoURL = "https://exp.host/--/api/v2/push/send"

// expoMessage is the request body accepted by the Expo push API.
type expoMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Sound string            `json:"sound"`
	Data  map[string]string `json:"data,omitempty"`
}

// ExpoGateway implements delivery.PushGateway against the Expo push API.
// It is stateless; every send is independent and carries its own deadline.
type ExpoGateway struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewExpoGateway builds the gateway client. An empty url selects the public
// Expo endpoint; tests point it at a local server.
func NewExpoGateway(url string, timeout time.Duration, logger zerolog.Logger) *ExpoGateway {
	if url == "" {
		url = DefaultExpoURL
	}
	client := resty.New().
		SetBaseURL(url).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &ExpoGateway{
		client: client,
		logger: logger.With().Str("component", "ExpoGateway").Logger(),
	}
}

// Send posts one notification to the gateway. The response is treated as an
// opaque outcome: it is logged and a non-2xx status is reported as an error
// to the caller, which only logs it in turn.
func (g *ExpoGateway) Send(ctx context.Context, token string, note delivery.Notification) error {
	msg := expoMessage{
		To:    token,
		Title: note.Title,
		Body:  note.Body,
		Sound: "default",
		Data:  note.Data,
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post("")
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		g.logger.Warn().
			Int("status", resp.StatusCode()).
			Str("body", resp.String()).
			Msg("Push gateway rejected notification.")
		return fmt.Errorf("push gateway returned status %d", resp.StatusCode())
	}

	g.logger.Debug().Int("status", resp.StatusCode()).Msg("Push accepted by gateway.")
	return nil
}
