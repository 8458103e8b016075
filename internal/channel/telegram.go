package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const defaultTelegramAPI = "https://api.telegram.org"

type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// TelegramSender delivers through the hosted bot API; there is no
// device-session path for Telegram.
type TelegramSender struct {
	token   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewTelegramSender(botToken string, logger *slog.Logger) *TelegramSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramSender{
		token:   botToken,
		baseURL: defaultTelegramAPI,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) IsConfigured() bool { return s.token != "" }

func (s *TelegramSender) Send(ctx context.Context, to string, msg Message) bool {
	if !s.IsConfigured() {
		s.logger.Warn("telegram delivery skipped: no bot token", "to", to)
		return false
	}
	if err := s.sendMessage(ctx, to, FormatTelegram(msg)); err != nil {
		s.logger.Warn("telegram delivery failed", "to", to, "error", err)
		return false
	}
	return true
}

func (s *TelegramSender) sendMessage(ctx context.Context, chatID, text string) error {
	payload := telegramRequest{ChatID: chatID, Text: text, ParseMode: "HTML"}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("bot API error: status %d", resp.StatusCode)
	}
	return nil
}
