package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/afterword/vaultword/internal/common"
)

// HTTPVerifier forwards the credential to the identity provider's user
// endpoint and treats its answer as authoritative.
type HTTPVerifier struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPVerifier builds a verifier against the provider's base URL
// (the verifier calls GET {base}/auth/v1/user). Every call is bounded
// by timeout so a hung provider cannot stall a decrypt request.
func NewHTTPVerifier(baseURL, apiKey string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		endpoint: baseURL + "/auth/v1/user",
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (v *HTTPVerifier) VerifyCredential(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("identity request: %w", err)
	}
	req.Header.Set("apikey", v.apiKey)
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	resp, err := v.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("identity endpoint: %w", common.ErrUpstreamTimeout)
		}
		return "", fmt.Errorf("identity endpoint: %v: %w", err, common.ErrUpstream)
	}
	defer resp.Body.Close()

	// The provider answers non-200 for any invalid or expired
	// credential; 5xx means the provider itself is unhealthy.
	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("identity endpoint status %d: %w", resp.StatusCode, common.ErrUpstream)
	}
	if resp.StatusCode != http.StatusOK {
		return "", common.ErrUnauthorized
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("identity response: %v: %w", err, common.ErrUpstream)
	}
	if body.ID == "" {
		return "", common.ErrUnauthorized
	}

	return body.ID, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
