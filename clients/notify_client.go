// Package clients provides HTTP clients for the relay's webhook API, used by
// the notify CLI and by integration tests.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/privibase/relay/httpserver"
)

// NotifyClient submits alerts to a running relay's webhook endpoint.
type NotifyClient struct {
	// ServerAddr is the base URL of the relay (e.g. http://127.0.0.1:3000)
	ServerAddr string
}

// Notify posts an alert for the given subscriber identity. Returns an error
// carrying the server's error body for any non-200 response.
func (c *NotifyClient) Notify(ctx context.Context, user, message string) error {
	payload, err := json.Marshal(httpserver.NotifyRequest{User: user, Message: message})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/notify", c.ServerAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request notify endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return fmt.Errorf("notify endpoint returned non-200 response: %d", resp.StatusCode)
		}
		return fmt.Errorf("notify endpoint returned error %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
