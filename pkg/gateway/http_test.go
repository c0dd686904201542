package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		var received sendPaymentRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v1/payments", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			json.NewDecoder(r.Body).Decode(&received)
			json.NewEncoder(w).Encode(sendPaymentResponse{
				Success: true, Handle: "handle-1", FeeRateOffered: 7,
			})
		}))
		defer server.Close()

		g := NewHTTPGateway(server.URL, "test-key")

		result, err := g.SendPayment(context.Background(), "dest-1", 3920, "handle-old")
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "handle-1", result.Handle)
		assert.Equal(t, int64(7), result.FeeRateOffered)
		assert.Equal(t, "dest-1", received.Destination)
		assert.Equal(t, int64(3920), received.Amount)
		assert.Equal(t, "handle-old", received.PreviousHandle)
	})

	t.Run("Processor Refusal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(sendPaymentResponse{
				Success: false, Status: string(SendFailed), Error: "destination blocked",
			})
		}))
		defer server.Close()

		g := NewHTTPGateway(server.URL, "")

		result, err := g.SendPayment(context.Background(), "dest-1", 3920, "")
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, SendFailed, result.Status)
		assert.Equal(t, "destination blocked", result.Error)
	})

	t.Run("Server Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		g := NewHTTPGateway(server.URL, "")

		_, err := g.SendPayment(context.Background(), "dest-1", 3920, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}

func TestGetStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/handle-1", r.URL.Path)
		json.NewEncoder(w).Encode(statusResponse{Status: "confirmed", FinalityBlock: 812345})
	}))
	defer server.Close()

	g := NewHTTPGateway(server.URL, "")

	status, err := g.GetStatus(context.Background(), "handle-1")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, status.Status)
	assert.Equal(t, int64(812345), status.FinalityBlock)
}

func TestCurrentFeeRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/fee-rate", r.URL.Path)
		json.NewEncoder(w).Encode(feeRateResponse{Rate: 12})
	}))
	defer server.Close()

	g := NewHTTPGateway(server.URL, "")

	rate, err := g.CurrentFeeRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), rate)
}
