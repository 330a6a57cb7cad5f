// Package credentials obtains the connection credential for a voice session.
// Tokens are held in memory only and handed to the session client at connect
// time; nothing here writes them to disk or logs them.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tmoody1973/mkedev-voice/pkg/voice/client"
)

// Source yields a credential for one connection attempt. Implementations
// that mint single-use tokens must set Ephemeral so the session client
// knows not to reuse the credential on reconnect.
type Source interface {
	Credential(ctx context.Context) (client.Credential, error)
}

// Static wraps a long-lived API key as a Source. Reconnects reuse it.
type Static struct {
	Token string
	Model string
}

func (s Static) Credential(context.Context) (client.Credential, error) {
	if s.Token == "" {
		return client.Credential{}, fmt.Errorf("credentials: empty static token")
	}
	return client.Credential{Token: s.Token, Model: s.Model}, nil
}

// HTTPSource fetches single-use tokens from the token service. Each call
// mints a fresh token, so the credentials it returns are ephemeral.
type HTTPSource struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger
}

// NewHTTPSource points at a token service, e.g. "http://localhost:8787".
func NewHTTPSource(baseURL string, logger *zap.Logger) *HTTPSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSource{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type tokenResponse struct {
	Token     string    `json:"token"`
	Model     string    `json:"model"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *HTTPSource) Credential(ctx context.Context) (client.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/token", nil)
	if err != nil {
		return client.Credential{}, fmt.Errorf("credentials: build request: %w", err)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return client.Credential{}, fmt.Errorf("credentials: token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return client.Credential{}, fmt.Errorf("credentials: token service returned %d: %s", resp.StatusCode, body)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return client.Credential{}, fmt.Errorf("credentials: decode token response: %w", err)
	}
	if tr.Token == "" {
		return client.Credential{}, fmt.Errorf("credentials: token service returned empty token")
	}

	s.logger.Debug("minted session credential",
		zap.String("model", tr.Model),
		zap.Time("expires_at", tr.ExpiresAt))

	return client.Credential{Token: tr.Token, Model: tr.Model, Ephemeral: true}, nil
}
