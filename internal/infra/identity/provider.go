package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/planora/account-service/internal/core/port"
	"github.com/planora/account-service/internal/infra/logger"
)

// ProviderClient triggers email-change verification challenges through the
// hosted identity provider's admin API. The provider owns the challenge
// lifecycle and calls back into this service once the address is verified.
type ProviderClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewProviderClient constructs a ProviderClient against the given base URL.
func NewProviderClient(baseURL, apiKey string, timeout time.Duration) *ProviderClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProviderClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type emailChangePayload struct {
	NewEmail string `json:"new_email"`
}

// SendEmailChangeChallenge implements port.VerificationSender.
func (c *ProviderClient) SendEmailChangeChallenge(ctx context.Context, userID, newEmail string) error {
	body, err := json.Marshal(emailChangePayload{NewEmail: newEmail})
	if err != nil {
		return fmt.Errorf("marshal challenge payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/admin/v1/users/%s/email-change", c.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build challenge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send challenge request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}
	return nil
}

var _ port.VerificationSender = (*ProviderClient)(nil)

// LoggingSender logs challenges instead of delivering them. Used in
// development environments without a configured provider.
type LoggingSender struct {
	logger *zap.Logger
}

// NewLoggingSender constructs a development-friendly verification sender.
func NewLoggingSender(log *zap.Logger) *LoggingSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingSender{logger: log}
}

// SendEmailChangeChallenge implements port.VerificationSender.
func (s *LoggingSender) SendEmailChangeChallenge(_ context.Context, userID, newEmail string) error {
	s.logger.Info("stub verification challenge",
		zap.String("user_id", userID),
		zap.String("new_email", logger.MaskEmail(newEmail)),
	)
	return nil
}

var _ port.VerificationSender = (*LoggingSender)(nil)
