// Package registration turns free-form chat input into subscription registry
// mutations and status queries. It is transport-agnostic: the chat bot feeds
// it message text and relays the reply strings it produces.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/privibase/relay/interfaces"
)

// Separator divides the identity from the target in a registration message.
const Separator = ":"

// Reply texts returned to chat users. Every input produces exactly one.
const (
	replyWelcome = "Welcome to Privibase! Use /subscribe <protectedDataAddress> to receive confidential notifications."

	replySubscribeHint = "Please send your ETH address and Protected Data address in this format: <ethAddress>:<protectedDataAddress>"

	replyInvalidPair = "Invalid addresses. Please use format: <ethAddress>:<protectedDataAddress>"

	replyUnrecognized = "Unrecognized input. Send <ethAddress>:<protectedDataAddress> to subscribe, or a single address to check your subscription."
)

// Engine drives the subscription registry from parsed chat input.
type Engine struct {
	registry interfaces.SubscriptionRegistry
	log      *slog.Logger

	// onRegister, when set, is invoked after every accepted registration.
	// Used to bump metrics without coupling parsing to prometheus.
	onRegister func()
}

// NewEngine creates a registration engine over the given registry.
func NewEngine(registry interfaces.SubscriptionRegistry, log *slog.Logger) *Engine {
	return &Engine{registry: registry, log: log}
}

// OnRegister sets a callback invoked after each accepted registration.
func (e *Engine) OnRegister(fn func()) {
	e.onRegister = fn
}

// Welcome returns the /start greeting.
func (e *Engine) Welcome() string {
	return replyWelcome
}

// SubscribeHint returns the /subscribe prompt asking for the address pair.
func (e *Engine) SubscribeHint() string {
	return replySubscribeHint
}

// HandleText processes a free-form chat message and returns the reply to
// send back. It never returns an empty reply and never panics: chat users
// always get a textual response.
//
// A message containing the separator is always treated as a registration
// attempt, even if the halves are not valid addresses. A chain address that
// somehow contains the separator would therefore misfire as a registration;
// accepted, since valid addresses cannot contain ':'.
func (e *Engine) HandleText(ctx context.Context, text string) string {
	if strings.Contains(text, Separator) {
		return e.handleRegistration(ctx, text)
	}

	if single := strings.TrimSpace(text); ethcommon.IsHexAddress(single) {
		return e.handleStatusQuery(single)
	}

	return replyUnrecognized
}

// handleRegistration parses "<identity>:<target>" and mutates the registry.
func (e *Engine) handleRegistration(ctx context.Context, text string) string {
	parts := strings.SplitN(text, Separator, 2)
	identity := strings.TrimSpace(parts[0])
	target := strings.TrimSpace(parts[1])

	if err := e.registry.Set(ctx, identity, target); err != nil {
		if errors.Is(err, interfaces.ErrInvalidAddress) {
			return replyInvalidPair
		}
		// Set only fails on validation; anything else would be a bug,
		// still answer the user.
		e.log.Error("Unexpected registration failure", "err", err)
		return replyInvalidPair
	}

	normalized, _ := interfaces.NewAddress(identity)
	if e.onRegister != nil {
		e.onRegister()
	}
	e.log.Info("Subscription registered",
		slog.String("identity", normalized.String()))

	return fmt.Sprintf("Successfully subscribed %s to notifications!", normalized)
}

// handleStatusQuery reports whether a single address has a subscription.
func (e *Engine) handleStatusQuery(identity string) string {
	target, err := e.registry.Get(identity)
	if errors.Is(err, interfaces.ErrNotSubscribed) {
		return fmt.Sprintf("%s is not subscribed.", strings.ToLower(identity))
	}
	if err != nil {
		e.log.Error("Unexpected status query failure", "err", err)
		return replyUnrecognized
	}

	return fmt.Sprintf("%s is subscribed with protected data %s.", strings.ToLower(identity), target)
}
