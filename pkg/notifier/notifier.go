// Package notifier implements the best-effort outbound messaging gateway
// (WhatsApp support requests and purchase confirmations).
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Jengeka/bingwa-sokoni/internal/config"
)

// Notifier sends a message to a destination. Delivery is best effort: the
// caller logs failures and moves on, it never blocks a purchase or a
// redemption on the outcome.
type Notifier interface {
	Send(ctx context.Context, destination, message string) error
}

// WhatsAppGateway represents the WhatsApp Business messaging gateway
type WhatsAppGateway struct {
	baseURL     string
	apiKey      string
	mockGateway bool
	client      *http.Client
}

var _ Notifier = (*WhatsAppGateway)(nil)

// NewWhatsAppGateway creates a new WhatsApp gateway
func NewWhatsAppGateway(cfg *config.Config) *WhatsAppGateway {
	return &WhatsAppGateway{
		baseURL:     strings.TrimRight(cfg.Notifier.BaseURL, "/"),
		apiKey:      cfg.Notifier.APIKey,
		mockGateway: cfg.Notifier.MockGateway,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Send delivers a message to the given phone number.
func (g *WhatsAppGateway) Send(ctx context.Context, destination, message string) error {
	if g.mockGateway {
		slog.Info("Mock notification sent", "destination", destination, "message", message)
		return nil
	}

	payload := map[string]string{
		"to":   destination,
		"body": message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification gateway returned status %d", resp.StatusCode)
	}
	return nil
}
