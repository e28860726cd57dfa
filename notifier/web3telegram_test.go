package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privibase/relay/interfaces"
)

// Throwaway key for tests, never funded or used anywhere.
const testSigningKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

const testTarget = interfaces.Address("0x2222222222222222222222222222222222222222")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifySubmitsSignedRequest(t *testing.T) {
	var gotBody sendRequest
	var gotSignature, gotSender string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/send", r.URL.Path)
		gotSignature = r.Header.Get(SignatureHeader)
		gotSender = r.Header.Get(SenderHeader)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client, err := NewWeb3TelegramClient(ts.URL, testSigningKey, testLogger())
	require.NoError(t, err)

	err = client.Notify(context.Background(), testTarget, "Privibase Alert: test triggered on Arbitrum Sepolia.")
	require.NoError(t, err)

	assert.Contains(t, gotBody.GraphQLQuery, testTarget.String())
	assert.Contains(t, gotBody.GraphQLQuery, "protectedData")
	assert.Equal(t, "Privibase Alert: test triggered on Arbitrum Sepolia.", gotBody.TelegramContent)
	assert.NotEmpty(t, gotSignature)
	assert.Equal(t, client.Sender().String(), gotSender)
}

func TestNotifyProviderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	client, err := NewWeb3TelegramClient(ts.URL, testSigningKey, testLogger())
	require.NoError(t, err)

	err = client.Notify(context.Background(), testTarget, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNotifyProviderUnreachable(t *testing.T) {
	client, err := NewWeb3TelegramClient("http://127.0.0.1:1", testSigningKey, testLogger())
	require.NoError(t, err)

	err = client.Notify(context.Background(), testTarget, "hello")
	assert.Error(t, err)
}

func TestNewClientRejectsBadKey(t *testing.T) {
	_, err := NewWeb3TelegramClient("", "zz-not-hex", testLogger())
	assert.Error(t, err)
}

func TestNewClientAcceptsPrefixedKey(t *testing.T) {
	client, err := NewWeb3TelegramClient("", "0x"+testSigningKey, testLogger())
	require.NoError(t, err)
	assert.NotEmpty(t, client.Sender().String())
}
