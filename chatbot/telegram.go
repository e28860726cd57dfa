// Package chatbot is the conversational transport for the registration
// interface: a minimal Telegram Bot API client that long-polls for messages
// and relays the registration engine's replies. All parsing and registry
// logic lives in the registration package; this one only moves text.
package chatbot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/privibase/relay/registration"
)

// defaultAPIBase is the Telegram Bot API endpoint.
const defaultAPIBase = "https://api.telegram.org"

// pollTimeout is the long-poll wait passed to getUpdates.
const pollTimeout = 30 * time.Second

// retryDelay spaces out polls after a transport error.
const retryDelay = 3 * time.Second

// update mirrors the fields of a Telegram update the bot consumes.
type update struct {
	UpdateID int64    `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	Text string `json:"text"`
	Chat chat   `json:"chat"`
}

type chat struct {
	ID int64 `json:"id"`
}

type updatesResponse struct {
	OK          bool     `json:"ok"`
	Result      []update `json:"result"`
	Description string   `json:"description"`
}

// Bot long-polls the Telegram Bot API and routes message text through the
// registration engine.
type Bot struct {
	apiBase    string
	token      string
	engine     *registration.Engine
	httpClient *http.Client
	log        *slog.Logger

	offset int64
}

// New creates a bot for the given authentication token. An empty apiBase
// selects the public Telegram endpoint; tests point it at a local server.
func New(apiBase, token string, engine *registration.Engine, log *slog.Logger) *Bot {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Bot{
		apiBase: strings.TrimSuffix(apiBase, "/"),
		token:   token,
		engine:  engine,
		// Client timeout must exceed the long-poll window
		httpClient: &http.Client{Timeout: pollTimeout + 10*time.Second},
		log:        log,
	}
}

// Run polls for updates until the context is canceled. Transport errors are
// logged and polling resumes after a short delay; one bad update never stops
// the loop.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Info("Chat bot polling started")
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		updates, err := b.getUpdates(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Error("Failed to poll chat updates", "err", err)
			select {
			case <-time.After(retryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		for _, upd := range updates {
			if upd.UpdateID >= b.offset {
				b.offset = upd.UpdateID + 1
			}
			if upd.Message == nil || upd.Message.Text == "" {
				continue
			}
			b.HandleMessage(ctx, upd.Message.Chat.ID, upd.Message.Text)
		}
	}
}

// HandleMessage routes one message text and sends the engine's reply back to
// the originating chat. Send failures are logged; the user simply misses one
// reply rather than wedging the poll loop.
func (b *Bot) HandleMessage(ctx context.Context, chatID int64, text string) {
	reply := b.Reply(ctx, text)
	if err := b.sendMessage(ctx, chatID, reply); err != nil {
		b.log.Error("Failed to send chat reply", "err", err,
			slog.Int64("chat", chatID))
	}
}

// Reply computes the response text for one inbound message.
func (b *Bot) Reply(ctx context.Context, text string) string {
	trimmed := strings.TrimSpace(text)
	switch {
	case trimmed == "/start":
		return b.engine.Welcome()
	case strings.HasPrefix(trimmed, "/subscribe"):
		return b.engine.SubscribeHint()
	default:
		return b.engine.HandleText(ctx, text)
	}
}

// getUpdates long-polls the Bot API for new updates past the current offset.
func (b *Bot) getUpdates(ctx context.Context) ([]update, error) {
	query := url.Values{}
	query.Set("timeout", strconv.Itoa(int(pollTimeout/time.Second)))
	query.Set("offset", strconv.FormatInt(b.offset, 10))

	reqURL := fmt.Sprintf("%s/bot%s/getUpdates?%s", b.apiBase, b.token, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not request updates endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("updates endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed updatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not parse updates response: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("updates request rejected: %s", parsed.Description)
	}

	return parsed.Result, nil
}

// sendMessage posts a reply into a chat.
func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s/bot%s/sendMessage", b.apiBase, b.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request send endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send endpoint returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
