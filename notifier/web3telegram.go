// Package notifier implements dispatch to the external confidential
// notification provider. A dispatch formats a target-scoped request and
// submits it; the provider handles the actual confidential delivery, so the
// target address is never dereferenced locally.
package notifier

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/privibase/relay/interfaces"
)

// Request headers carrying the relay's identity and request signature.
const (
	// SignatureHeader holds the hex-encoded secp256k1 signature over the
	// keccak256 hash of the request body.
	SignatureHeader = "X-Privibase-Signature"

	// SenderHeader holds the relay's chain address derived from its
	// signing key.
	SenderHeader = "X-Privibase-Sender"
)

// DefaultEndpoint is the public web3telegram submission gateway.
const DefaultEndpoint = "https://web3telegram.iex.ec"

// sendRequest is the provider's submission payload: a GraphQL query scoping
// the delivery to one protected-data handle, plus the message content.
type sendRequest struct {
	GraphQLQuery    string `json:"graphQLQuery"`
	TelegramContent string `json:"telegramContent"`
}

// Web3TelegramClient submits confidential notifications to the
// web3telegram provider, authenticating each request with the relay's
// signing key.
type Web3TelegramClient struct {
	endpoint   string
	signingKey *ecdsa.PrivateKey
	sender     interfaces.Address
	httpClient *http.Client
	log        *slog.Logger
}

// NewWeb3TelegramClient creates a provider client. The signing key is the
// relay's credential with the provider; its hex form comes from
// configuration and must parse as a secp256k1 private key.
func NewWeb3TelegramClient(endpoint, signingKeyHex string, log *slog.Logger) (*Web3TelegramClient, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(signingKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signing key: %w", err)
	}

	return &Web3TelegramClient{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		signingKey: key,
		sender:     interfaces.AddressFromEth(crypto.PubkeyToAddress(key.PublicKey)),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}, nil
}

// Sender returns the relay address derived from the signing key.
func (c *Web3TelegramClient) Sender() interfaces.Address {
	return c.sender
}

// Notify formats and submits a notification for the given protected-data
// target. It returns an error on any transport or provider failure and
// never panics; callers own the failure policy.
func (c *Web3TelegramClient) Notify(ctx context.Context, target interfaces.Address, content string) error {
	payload := sendRequest{
		GraphQLQuery:    fmt.Sprintf(`query { protectedData(id: "%s") { id } }`, target),
		TelegramContent: content,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/v1/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	signature, err := c.signBody(body)
	if err != nil {
		return fmt.Errorf("failed to sign provider request: %w", err)
	}
	req.Header.Set(SignatureHeader, signature)
	req.Header.Set(SenderHeader, c.sender.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not reach notification provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return fmt.Errorf("notification provider returned %d", resp.StatusCode)
		}
		return fmt.Errorf("notification provider returned %d: %s", resp.StatusCode, string(respBody))
	}

	c.log.Debug("Notification dispatched",
		slog.String("target", target.String()),
		slog.Int("status", resp.StatusCode))

	return nil
}

// signBody signs the keccak256 hash of the request body.
func (c *Web3TelegramClient) signBody(body []byte) (string, error) {
	digest := crypto.Keccak256(body)
	signature, err := crypto.Sign(digest, c.signingKey)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(signature), nil
}
