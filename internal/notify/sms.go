package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrNoPhone is returned when the recipient has no phone number on file.
var ErrNoPhone = errors.New("phone number not available")

// HTTPSender posts messages to an SMS gateway API. The gateway contract is a
// JSON POST with a bearer token, matching the hosted providers the clinic
// has used; the concrete provider is swappable behind SMSSender.
type HTTPSender struct {
	url    string
	token  string
	client *http.Client
	log    *slog.Logger
}

func NewHTTPSender(url, token string, log *slog.Logger) *HTTPSender {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPSender{
		url:   url,
		token: token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

func (s *HTTPSender) Send(ctx context.Context, phone, message string) error {
	if phone == "" {
		return ErrNoPhone
	}

	body, err := json.Marshal(map[string]string{
		"to":      phone,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.log.Warn("sms gateway rejected message", "status", resp.StatusCode, "body", string(detail))
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	s.log.Debug("sms sent", "to", phone)
	return nil
}

// NoopSender is used in dev and tests when no gateway is configured.
type NoopSender struct {
	log *slog.Logger
}

func NewNoopSender(log *slog.Logger) *NoopSender {
	if log == nil {
		log = slog.Default()
	}
	return &NoopSender{log: log}
}

func (s *NoopSender) Send(ctx context.Context, phone, message string) error {
	if phone == "" {
		return ErrNoPhone
	}
	s.log.Info("sms suppressed (no gateway configured)", "to", phone, "message", message)
	return nil
}
