package risk

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openvest/payout-pipeline/pkg/models"
)

func TestIsFraudRisk(t *testing.T) {
	account := &models.Account{ID: "acct-1"}

	t.Run("Flags Risky Withdrawal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/accounts/acct-1/fraud-check", r.URL.Path)
			assert.Equal(t, "4000", r.URL.Query().Get("amount"))
			w.Write([]byte(`{"risk": true}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		risky, err := client.IsFraudRisk(context.Background(), account, 4000)
		require.NoError(t, err)
		assert.True(t, risky)
	})

	t.Run("Clears Normal Withdrawal", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"risk": false}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		risky, err := client.IsFraudRisk(context.Background(), account, 4000)
		require.NoError(t, err)
		assert.False(t, risky)
	})

	t.Run("Service Error Surfaces", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		_, err := client.IsFraudRisk(context.Background(), account, 4000)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}

func TestRecoveryActive(t *testing.T) {
	t.Run("Recovery In Flight", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/accounts/acct-1/recovery", r.URL.Path)
			w.Write([]byte(`{"active": true}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		active, err := client.RecoveryActive(context.Background(), "acct-1")
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("No Recovery", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"active": false}`))
		}))
		defer server.Close()

		client := NewClient(server.URL, time.Second)
		active, err := client.RecoveryActive(context.Background(), "acct-1")
		require.NoError(t, err)
		assert.False(t, active)
	})
}
