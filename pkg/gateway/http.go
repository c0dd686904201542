package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPGateway talks to the payment-processor service over its REST API.
type HTTPGateway struct {
	BaseURL string
	Client  *http.Client
	APIKey  string
}

// NewHTTPGateway creates a gateway client. Call timeouts come from the
// caller's context; the http.Client carries no timeout of its own.
func NewHTTPGateway(baseURL, apiKey string) *HTTPGateway {
	return &HTTPGateway{
		BaseURL: baseURL,
		Client:  &http.Client{},
		APIKey:  apiKey,
	}
}

// Make sure we conform to the interface
var _ PaymentGateway = (*HTTPGateway)(nil)

type sendPaymentRequest struct {
	Destination    string `json:"destination"`
	Amount         int64  `json:"amount"`
	PreviousHandle string `json:"previous_handle,omitempty"`
}

type sendPaymentResponse struct {
	Success        bool   `json:"success"`
	Handle         string `json:"handle,omitempty"`
	Status         string `json:"status,omitempty"`
	Error          string `json:"error,omitempty"`
	FeeRateOffered int64  `json:"fee_rate_offered,omitempty"`
}

// SendPayment submits a payment. The previous handle, when present, lets the
// processor check the prior attempt instead of paying twice.
func (g *HTTPGateway) SendPayment(ctx context.Context, destination string, amount int64, prevHandle string) (*SendResult, error) {
	body, err := json.Marshal(sendPaymentRequest{
		Destination:    destination,
		Amount:         amount,
		PreviousHandle: prevHandle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal send request: %w", err)
	}

	var resp sendPaymentResponse
	if err := g.do(ctx, http.MethodPost, "/v1/payments", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}

	return &SendResult{
		Success:        resp.Success,
		Handle:         resp.Handle,
		Status:         SendStatus(resp.Status),
		Error:          resp.Error,
		FeeRateOffered: resp.FeeRateOffered,
	}, nil
}

type statusResponse struct {
	Status        string `json:"status"`
	FinalityBlock int64  `json:"finality_block,omitempty"`
	FeeRate       int64  `json:"fee_rate,omitempty"`
}

// GetStatus queries the external ledger's view of a settlement handle.
func (g *HTTPGateway) GetStatus(ctx context.Context, handle string) (*StatusResult, error) {
	var resp statusResponse
	if err := g.do(ctx, http.MethodGet, "/v1/payments/"+handle, nil, &resp); err != nil {
		return nil, err
	}
	return &StatusResult{
		Status:        LedgerStatus(resp.Status),
		FinalityBlock: resp.FinalityBlock,
		FeeRate:       resp.FeeRate,
	}, nil
}

type feeRateResponse struct {
	Rate int64 `json:"rate"`
}

// CurrentFeeRate returns the network's current price of inclusion.
func (g *HTTPGateway) CurrentFeeRate(ctx context.Context) (int64, error) {
	var resp feeRateResponse
	if err := g.do(ctx, http.MethodGet, "/v1/fee-rate", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Rate, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, g.BaseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, g.BaseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned status %d for %s %s", resp.StatusCode, method, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
