// Package risk is the client for the platform's risk service, which backs
// the fraud and account-recovery predicates consumed by the validator.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openvest/payout-pipeline/pkg/models"
	"github.com/openvest/payout-pipeline/pkg/withdrawal"
)

// Client calls the risk service. Both predicates may block the account on
// the service side; callers re-read the account afterwards.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a risk service client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Make sure we conform to the interfaces
var _ withdrawal.FraudChecker = (*Client)(nil)
var _ withdrawal.RecoveryChecker = (*Client)(nil)

type fraudCheckResponse struct {
	Risk bool `json:"risk"`
}

// IsFraudRisk asks the risk service to score the withdrawal.
func (c *Client) IsFraudRisk(ctx context.Context, account *models.Account, amount int64) (bool, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/fraud-check?amount=%d", c.BaseURL, account.ID, amount)
	var resp fraudCheckResponse
	if err := c.get(ctx, url, &resp); err != nil {
		return false, fmt.Errorf("fraud check request failed: %w", err)
	}
	return resp.Risk, nil
}

type recoveryStatusResponse struct {
	Active bool `json:"active"`
}

// RecoveryActive reports whether an account recovery is in flight.
func (c *Client) RecoveryActive(ctx context.Context, accountID string) (bool, error) {
	url := fmt.Sprintf("%s/v1/accounts/%s/recovery", c.BaseURL, accountID)
	var resp recoveryStatusResponse
	if err := c.get(ctx, url, &resp); err != nil {
		return false, fmt.Errorf("recovery status request failed: %w", err)
	}
	return resp.Active, nil
}

func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("risk service returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
