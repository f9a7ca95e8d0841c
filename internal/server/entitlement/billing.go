// Package entitlement resolves an account's paid tier from the billing
// collaborator and persists it through the privileged update path.
package entitlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/afterword/vaultword/internal/common"
)

// Entitlement is a billing-system feature grant. A nil ExpiresDate
// means the upstream reported no expiry.
type Entitlement struct {
	ExpiresDate       *time.Time
	ProductIdentifier string
}

// Subscriber is the billing API's view of one account.
type Subscriber struct {
	Entitlements map[string]Entitlement
}

// BillingClient fetches subscriber records.
type BillingClient interface {
	GetSubscriber(ctx context.Context, accountID string) (*Subscriber, error)
}

// HTTPBillingClient talks to a RevenueCat-style REST API:
// GET {base}/v1/subscribers/{account} with a bearer API secret.
type HTTPBillingClient struct {
	baseURL   string
	apiSecret string
	client    *http.Client
}

func NewHTTPBillingClient(baseURL, apiSecret string, timeout time.Duration) *HTTPBillingClient {
	return &HTTPBillingClient{
		baseURL:   baseURL,
		apiSecret: apiSecret,
		client:    &http.Client{Timeout: timeout},
	}
}

// wire types; only entitlement objects count, the non-subscription
// purchase list is deliberately ignored because it includes refunds.
type subscriberResponse struct {
	Subscriber struct {
		Entitlements map[string]struct {
			ExpiresDate       *string `json:"expires_date"`
			ProductIdentifier string  `json:"product_identifier"`
		} `json:"entitlements"`
	} `json:"subscriber"`
}

func (c *HTTPBillingClient) GetSubscriber(ctx context.Context, accountID string) (*Subscriber, error) {
	endpoint := c.baseURL + "/v1/subscribers/" + url.PathEscape(accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("billing request: %w", err)
	}
	req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.apiSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("billing api: %w", common.ErrUpstreamTimeout)
		}
		return nil, fmt.Errorf("billing api: %v: %w", err, common.ErrUpstream)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("billing api status %d: %w", resp.StatusCode, common.ErrUpstream)
	}

	var body subscriberResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("billing response: %v: %w", err, common.ErrUpstream)
	}

	sub := &Subscriber{Entitlements: make(map[string]Entitlement, len(body.Subscriber.Entitlements))}
	for name, e := range body.Subscriber.Entitlements {
		ent := Entitlement{ProductIdentifier: e.ProductIdentifier}
		if e.ExpiresDate != nil {
			parsed, err := time.Parse(time.RFC3339, *e.ExpiresDate)
			if err != nil {
				return nil, fmt.Errorf("billing response: bad expires_date %q: %w", *e.ExpiresDate, common.ErrUpstream)
			}
			ent.ExpiresDate = &parsed
		}
		sub.Entitlements[name] = ent
	}

	return sub, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
