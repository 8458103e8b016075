package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/marwanayman128/TaskFlow-sub001/internal/session"
)

// GatewayConfig points at the hosted messaging gateway used when no
// device session is connected.
type GatewayConfig struct {
	URL      string
	Token    string
	SenderID string
}

func (c GatewayConfig) configured() bool {
	return c.URL != "" && c.Token != "" && c.SenderID != ""
}

type gatewayText struct {
	Body string `json:"body"`
}

type gatewayRequest struct {
	From string      `json:"from"`
	To   string      `json:"to"`
	Type string      `json:"type"`
	Text gatewayText `json:"text"`
}

// WhatsAppSender tries the device session first and falls back to the
// hosted gateway when the session is not connected.
type WhatsAppSender struct {
	session *session.Manager
	gateway GatewayConfig
	client  *http.Client
	logger  *slog.Logger
}

func NewWhatsAppSender(mgr *session.Manager, gateway GatewayConfig, logger *slog.Logger) *WhatsAppSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &WhatsAppSender{
		session: mgr,
		gateway: gateway,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

func (s *WhatsAppSender) Name() string { return "whatsapp" }

func (s *WhatsAppSender) IsConfigured() bool {
	if s.session != nil && s.session.Status() == session.StateConnected {
		return true
	}
	return s.gateway.configured()
}

func (s *WhatsAppSender) Send(ctx context.Context, to string, msg Message) bool {
	text := FormatWhatsApp(msg)

	if s.session != nil && s.session.Send(ctx, to, text) {
		return true
	}
	if !s.gateway.configured() {
		s.logger.Warn("whatsapp delivery skipped: session down and no gateway", "to", to)
		return false
	}
	if err := s.sendViaGateway(ctx, to, text); err != nil {
		s.logger.Warn("whatsapp gateway delivery failed", "to", to, "error", err)
		return false
	}
	return true
}

func (s *WhatsAppSender) sendViaGateway(ctx context.Context, to, text string) error {
	payload := gatewayRequest{
		From: s.gateway.SenderID,
		To:   digitsOnly(to),
		Type: "text",
		Text: gatewayText{Body: text},
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gateway.URL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.gateway.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway error: status %d", resp.StatusCode)
	}
	return nil
}

func digitsOnly(v string) string {
	var b strings.Builder
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
