package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-be/internal/logger"

	"go.uber.org/zap"
)

type Sender interface {
	Send(ctx context.Context, email Email) error
}

// HTTPSender posts emails to a hosted email API as JSON with a bearer key.
type HTTPSender struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPSender(apiURL, apiKey string) *HTTPSender {
	if apiKey == "" {
		logger.L().Warn("email API key is empty")
	}

	return &HTTPSender{
		apiURL: apiURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *HTTPSender) Send(ctx context.Context, email Email) error {
	log := logger.FromCtx(ctx).With(
		zap.String("component", "email"),
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
	)

	jsonBody, err := json.Marshal(email)
	if err != nil {
		log.Error("failed to marshal email", zap.Error(err))
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		log.Error("failed creating request", zap.Error(err))
		return err
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error("email request failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error("email provider returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", bodyBytes),
		)
		return fmt.Errorf("email provider error: status %d", resp.StatusCode)
	}

	log.Debug("email accepted by provider", zap.Int("status", resp.StatusCode))
	return nil
}

// LogSender writes emails to the log instead of sending them.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, email Email) error {
	logger.FromCtx(ctx).Info("email not sent, no provider configured",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("html_bytes", len(email.HTML)),
	)
	return nil
}
