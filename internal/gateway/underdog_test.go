package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"business-visa-backend/internal/domain"
	"business-visa-backend/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUnderdog(t *testing.T, h http.HandlerFunc) *UnderdogClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewUnderdogClient(UnderdogConfig{BaseURL: srv.URL, APIKey: "key", ProjectID: 7})
}

func TestUnderdogClient_CountMinted(t *testing.T) {
	client := newTestUnderdog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/projects/n/7/nfts", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Write([]byte(`{"results":[],"page":1,"limit":1,"totalPages":41,"totalResults":41}`))
	})

	n, err := client.CountMinted(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 41, n)
}

func TestUnderdogClient_ForwardsRequestID(t *testing.T) {
	client := newTestUnderdog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "req-42", r.Header.Get("X-Request-ID"))
		w.Write([]byte(`{"id":9,"mintAddress":"M9"}`))
	})

	ctx := logger.ContextWithRequestID(context.Background(), "req-42")
	nft, err := client.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "M9", nft.MintAddress)
}

func TestUnderdogClient_Mint(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		client := newTestUnderdog(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/v2/projects/n/7/nfts", r.URL.Path)

			var req domain.MintRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "W1", req.ReceiverAddress)
			assert.Equal(t, domain.VisaStatusActive, req.Attributes.Status)

			w.Write([]byte(`{"id":42,"projectId":7,"mintAddress":"ABC","status":"pending"}`))
		})

		nft, err := client.Mint(context.Background(), domain.MintRequest{
			Name:            domain.VisaName(1),
			ReceiverAddress: "W1",
			Attributes:      domain.NFTAttributes{Status: domain.VisaStatusActive},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(42), nft.ID)
		assert.Equal(t, "ABC", nft.MintAddress)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		client := newTestUnderdog(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`null`))
		})

		nft, err := client.Mint(context.Background(), domain.MintRequest{})
		assert.ErrorIs(t, err, domain.ErrGateway)
		assert.Nil(t, nft)
	})

	t.Run("ServerError", func(t *testing.T) {
		client := newTestUnderdog(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})

		_, err := client.Mint(context.Background(), domain.MintRequest{})
		assert.ErrorIs(t, err, domain.ErrGateway)
	})
}

func TestUnderdogClient_GetAndUpdate(t *testing.T) {
	client := newTestUnderdog(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/projects/n/7/nfts/42", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"id":42,"status":"confirmed","mintAddress":"ABC"}`))
		case http.MethodPatch:
			var upd map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&upd))
			_, hasImage := upd["image"]
			assert.False(t, hasImage)
			w.Write([]byte(`{"id":42,"status":"confirmed"}`))
		default:
			t.Fatalf("unexpected method %s", r.Method)
		}
	})

	nft, err := client.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, domain.NFTStatusConfirmed, nft.Status)

	_, err = client.Update(context.Background(), 42, domain.NFTUpdate{
		Attributes: domain.NFTAttributes{Status: domain.VisaStatusExpired},
	})
	require.NoError(t, err)
}
