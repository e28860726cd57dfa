package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/privibase/relay/interfaces"
	"github.com/privibase/relay/notifier"
	"github.com/privibase/relay/storage"
	"github.com/privibase/relay/subscriptions"
)

const (
	userAddr   = "0x1111111111111111111111111111111111111111"
	targetAddr = "0x2222222222222222222222222222222222222222"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T) *subscriptions.Store {
	t.Helper()
	backend, err := storage.NewFileBackend(filepath.Join(t.TempDir(), "subs.json"), testLogger())
	require.NoError(t, err)
	return subscriptions.NewStore(backend, testLogger())
}

func postNotify(t *testing.T, handler *Handler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/notify", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.HandleNotify(rec, req)
	return rec
}

func TestHandleNotifySuccess(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set(context.Background(), userAddr, targetAddr))

	mockNotifier := new(notifier.MockNotifier)
	mockNotifier.On("Notify", mock.Anything, interfaces.Address(targetAddr), "Privibase Hardware Alert: disk failing").
		Return(nil).Once()

	handler := NewHandler(store, mockNotifier, nil, testLogger())
	rec := postNotify(t, handler, []byte(`{"user":"`+userAddr+`","message":"disk failing"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	mockNotifier.AssertExpectations(t)
}

func TestHandleNotifyUnregisteredUser(t *testing.T) {
	store := newStore(t)
	mockNotifier := new(notifier.MockNotifier)

	handler := NewHandler(store, mockNotifier, nil, testLogger())
	rec := postNotify(t, handler, []byte(`{"user":"`+userAddr+`","message":"hi"}`))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
	mockNotifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleNotifyMalformedJSON(t *testing.T) {
	store := newStore(t)
	mockNotifier := new(notifier.MockNotifier)

	handler := NewHandler(store, mockNotifier, nil, testLogger())
	rec := postNotify(t, handler, []byte(`{not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
	assert.Equal(t, 0, store.Len(), "registry untouched by malformed requests")
}

func TestHandleNotifyMissingFields(t *testing.T) {
	store := newStore(t)
	mockNotifier := new(notifier.MockNotifier)
	handler := NewHandler(store, mockNotifier, nil, testLogger())

	for _, body := range []string{
		`{"user":"` + userAddr + `"}`,
		`{"message":"hi"}`,
		`{}`,
	} {
		rec := postNotify(t, handler, []byte(body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
	mockNotifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleNotifyInvalidUserAddress(t *testing.T) {
	store := newStore(t)
	mockNotifier := new(notifier.MockNotifier)
	handler := NewHandler(store, mockNotifier, nil, testLogger())

	rec := postNotify(t, handler, []byte(`{"user":"not-an-address","message":"hi"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleNotifyDispatchFailure(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set(context.Background(), userAddr, targetAddr))

	mockNotifier := new(notifier.MockNotifier)
	mockNotifier.On("Notify", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("provider down")).Once()

	handler := NewHandler(store, mockNotifier, nil, testLogger())
	rec := postNotify(t, handler, []byte(`{"user":"`+userAddr+`","message":"hi"}`))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "error")
}

func TestHandleNotifyCaseInsensitiveUser(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Set(context.Background(), userAddr, targetAddr))

	mockNotifier := new(notifier.MockNotifier)
	mockNotifier.On("Notify", mock.Anything, interfaces.Address(targetAddr), mock.Anything).Return(nil).Once()

	handler := NewHandler(store, mockNotifier, nil, testLogger())
	rec := postNotify(t, handler, []byte(`{"user":"0x1111111111111111111111111111111111111111","message":"hi"}`))
	assert.Equal(t, http.StatusOK, rec.Code)

	mockNotifier.On("Notify", mock.Anything, interfaces.Address(targetAddr), mock.Anything).Return(nil).Once()
	rec = postNotify(t, handler, []byte(`{"user":"0X1111111111111111111111111111111111111111","message":"hi"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	mockNotifier.AssertExpectations(t)
}
