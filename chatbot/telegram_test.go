package chatbot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privibase/relay/registration"
	"github.com/privibase/relay/storage"
	"github.com/privibase/relay/subscriptions"
)

const (
	identity = "0x1111111111111111111111111111111111111111"
	target   = "0x2222222222222222222222222222222222222222"
)

func newBot(t *testing.T, apiBase string) (*Bot, *subscriptions.Store) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend, err := storage.NewFileBackend(filepath.Join(t.TempDir(), "subs.json"), logger)
	require.NoError(t, err)
	store := subscriptions.NewStore(backend, logger)
	engine := registration.NewEngine(store, logger)
	return New(apiBase, "test-token", engine, logger), store
}

func TestReplyRouting(t *testing.T) {
	ctx := context.Background()
	bot, store := newBot(t, "")

	assert.Contains(t, bot.Reply(ctx, "/start"), "Welcome to Privibase")
	assert.Contains(t, bot.Reply(ctx, "/subscribe 0xabc"), "<ethAddress>:<protectedDataAddress>")

	reply := bot.Reply(ctx, identity+":"+target)
	assert.Contains(t, reply, "Successfully subscribed")
	assert.Equal(t, 1, store.Len())

	assert.Contains(t, bot.Reply(ctx, "what is this"), "Unrecognized input")
}

func TestHandleMessageSendsReply(t *testing.T) {
	var sentText string
	var sentChat int64

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"), "unexpected path %s", r.URL.Path)
		assert.Contains(t, r.URL.Path, "bottest-token")

		var payload struct {
			ChatID int64  `json:"chat_id"`
			Text   string `json:"text"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		sentText = payload.Text
		sentChat = payload.ChatID
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer ts.Close()

	bot, _ := newBot(t, ts.URL)
	bot.HandleMessage(context.Background(), 42, identity+":"+target)

	assert.Equal(t, int64(42), sentChat)
	assert.Contains(t, sentText, "Successfully subscribed")
}

func TestGetUpdatesAdvancesOffset(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getUpdates") {
			w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":"hi","chat":{"id":1}}}]}`))
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	bot, _ := newBot(t, ts.URL)
	updates, err := bot.getUpdates(context.Background())
	require.NoError(t, err)
	require.Len(t, updates, 1)

	for _, upd := range updates {
		if upd.UpdateID >= bot.offset {
			bot.offset = upd.UpdateID + 1
		}
	}
	assert.Equal(t, int64(8), bot.offset)
}

func TestGetUpdatesRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
	}))
	defer ts.Close()

	bot, _ := newBot(t, ts.URL)
	_, err := bot.getUpdates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unauthorized")
}
