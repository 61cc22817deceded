package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChargeSendsCredentialAndAmount(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/pixQrCode/create", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"ch_9","brCode":"00020126","brCodeBase64":"data:...","expiresAt":"2026-01-01T00:00:00Z"},"error":null}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "secret-key")
	charge, err := gw.CreateCharge(context.Background(), "a@b.com", 4990)
	require.NoError(t, err)
	assert.Equal(t, "ch_9", charge.ID)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, float64(4990), gotBody["amount"])
	meta, _ := gotBody["metadata"].(map[string]any)
	assert.Equal(t, "a@b.com", meta["externalId"])
}

func TestChargeStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pixQrCode/ch_9", r.URL.Path)
		w.Write([]byte(`{"data":{"id":"ch_9","status":"PAID"},"error":null}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "k")
	status, err := gw.ChargeStatus(context.Background(), "ch_9")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, status)
}

func TestEnvelopeErrorWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"data":null,"error":{"code":"invalid_amount","message":"amount too low"}}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "k")
	_, err := gw.CreateCharge(context.Background(), "a@b.com", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount too low")
}

func TestNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream down</html>"))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "k")
	_, err := gw.ChargeStatus(context.Background(), "x")
	assert.Error(t, err)
}

func TestMissingDataField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"error":null}`))
	}))
	defer srv.Close()

	gw := NewGateway(srv.URL, "k")
	_, err := gw.CreateCharge(context.Background(), "a@b.com", 4990)
	assert.Error(t, err)
}
