package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepositStatus(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/deposits/USDT/0xabc", r.URL.Path)
			fmt.Fprint(w, `{"status":"confirmed","confirmations":12}`)
		}))
		defer server.Close()

		client := NewClient(server.URL, zerolog.Nop())
		state, err := client.DepositStatus(context.Background(), "USDT", "0xabc")
		require.NoError(t, err)
		assert.Equal(t, DepositConfirmed, state)
	})

	t.Run("rejected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"rejected"}`)
		}))
		defer server.Close()

		client := NewClient(server.URL, zerolog.Nop())
		state, err := client.DepositStatus(context.Background(), "USDT", "0xabc")
		require.NoError(t, err)
		assert.Equal(t, DepositRejected, state)
	})

	t.Run("unknown transfer reads as pending", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(server.URL, zerolog.Nop())
		state, err := client.DepositStatus(context.Background(), "USDT", "0xmissing")
		require.NoError(t, err)
		assert.Equal(t, DepositPending, state)
	})

	t.Run("server errors are retried", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, `{"status":"confirmed"}`)
		}))
		defer server.Close()

		client := NewClient(server.URL, zerolog.Nop(), WithRetries(3, time.Millisecond))
		state, err := client.DepositStatus(context.Background(), "USDT", "0xabc")
		require.NoError(t, err)
		assert.Equal(t, DepositConfirmed, state)
		assert.Equal(t, 3, attempts)
	})

	t.Run("retry budget exhausts", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(server.URL, zerolog.Nop(), WithRetries(2, time.Millisecond))
		_, err := client.DepositStatus(context.Background(), "USDT", "0xabc")
		assert.Error(t, err)
	})

	t.Run("unknown status value is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"sideways"}`)
		}))
		defer server.Close()

		client := NewClient(server.URL, zerolog.Nop())
		_, err := client.DepositStatus(context.Background(), "USDT", "0xabc")
		assert.Error(t, err)
	})

	t.Run("api key is sent", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"status":"pending"}`)
		}))
		defer server.Close()

		client := NewClient(server.URL, zerolog.Nop(), WithAPIKey("secret"))
		_, err := client.DepositStatus(context.Background(), "USDT", "0xabc")
		require.NoError(t, err)
	})
}
