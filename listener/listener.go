// Package listener implements the chain ingestion path: a subscription to
// ConfidentialAlertTriggered events on the monitored contract, resolved
// through the subscription registry and forwarded to dispatch.
package listener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/privibase/relay/interfaces"
	"github.com/privibase/relay/metrics"
)

// alertEventJSON is the ABI fragment for the single event the relay watches:
// ConfidentialAlertTriggered(address indexed user, string messageType).
const alertEventJSON = `[{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"user","type":"address"},{"indexed":false,"internalType":"string","name":"messageType","type":"string"}],"name":"ConfidentialAlertTriggered","type":"event"}]`

const alertEventName = "ConfidentialAlertTriggered"

// resubscribeDelay is how long to wait before re-establishing a dropped log
// subscription.
const resubscribeDelay = 5 * time.Second

// pollInterval paces log polling when the RPC transport does not support
// push subscriptions (plain HTTP endpoints).
const pollInterval = 5 * time.Second

var alertABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(alertEventJSON))
	if err != nil {
		panic(fmt.Sprintf("invalid alert event ABI: %v", err))
	}
	return parsed
}()

// Config holds the listener's wiring.
type Config struct {
	// Contract is the monitored contract emitting alert events.
	Contract ethcommon.Address

	// Network names the chain in user-visible alert messages.
	Network string

	Registry  interfaces.SubscriptionRegistry
	Notifier  interfaces.Notifier
	Collector *metrics.Collectors
	Log       *slog.Logger
}

// EthClient is the slice of the RPC client the listener needs: log
// filtering plus head tracking for the polling fallback.
type EthClient interface {
	ethereum.LogFilterer
	BlockNumber(ctx context.Context) (uint64, error)
}

// Listener subscribes to alert events and relays them as notifications.
// One malformed event, lookup miss, or dispatch failure never terminates
// the subscription: per-event errors are returned to the run loop and
// logged there.
type Listener struct {
	client  EthClient
	cfg     Config
	eventID ethcommon.Hash
}

// New creates a listener over the given log source.
func New(client EthClient, cfg Config) *Listener {
	if cfg.Network == "" {
		cfg.Network = "Arbitrum Sepolia"
	}
	return &Listener{
		client:  client,
		cfg:     cfg,
		eventID: alertABI.Events[alertEventName].ID,
	}
}

// Run subscribes to alert logs and processes them until the context is
// canceled. Dropped subscriptions are re-established after a short delay.
// The error policy is enforced here, at the subscription boundary: every
// per-event error is logged and the loop continues.
func (l *Listener) Run(ctx context.Context) error {
	query := ethereum.FilterQuery{
		Addresses: []ethcommon.Address{l.cfg.Contract},
		Topics:    [][]ethcommon.Hash{{l.eventID}},
	}

	for {
		logs := make(chan types.Log, 16)
		sub, err := l.client.SubscribeFilterLogs(ctx, query, logs)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, rpc.ErrNotificationsUnsupported) {
				// HTTP transport; fall back to polling getLogs the
				// way push-less providers expect.
				l.cfg.Log.Info("RPC does not support subscriptions, polling for alert logs",
					slog.String("contract", l.cfg.Contract.Hex()))
				return l.poll(ctx, query)
			}
			l.cfg.Log.Error("Failed to subscribe to alert logs, retrying",
				"err", err,
				slog.String("contract", l.cfg.Contract.Hex()))
			select {
			case <-time.After(resubscribeDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		l.cfg.Log.Info("Subscribed to alert events",
			slog.String("contract", l.cfg.Contract.Hex()))

		err = l.consume(ctx, sub, logs)
		sub.Unsubscribe()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.cfg.Log.Error("Alert subscription dropped, resubscribing", "err", err)

		select {
		case <-time.After(resubscribeDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// poll walks new blocks on a fixed interval and filters each fresh range
// for alert logs. Filter errors are logged and the range is retried on the
// next tick, so no block span is skipped.
func (l *Listener) poll(ctx context.Context, query ethereum.FilterQuery) error {
	lastProcessed, err := l.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain head: %w", err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		head, err := l.client.BlockNumber(ctx)
		if err != nil {
			l.cfg.Log.Error("Failed to get chain head", "err", err)
			continue
		}
		if head <= lastProcessed {
			continue
		}

		rangeQuery := query
		rangeQuery.FromBlock = new(big.Int).SetUint64(lastProcessed + 1)
		rangeQuery.ToBlock = new(big.Int).SetUint64(head)

		logs, err := l.client.FilterLogs(ctx, rangeQuery)
		if err != nil {
			l.cfg.Log.Error("Failed to filter alert logs", "err", err,
				slog.Uint64("from", lastProcessed+1),
				slog.Uint64("to", head))
			continue
		}

		for _, vlog := range logs {
			if vlog.Removed {
				continue
			}
			if err := l.HandleLog(ctx, vlog); err != nil {
				l.cfg.Log.Error("Failed to relay alert event",
					"err", err,
					slog.String("tx", vlog.TxHash.Hex()))
			}
		}
		lastProcessed = head
	}
}

// consume drains one subscription until it errors or the context ends.
func (l *Listener) consume(ctx context.Context, sub ethereum.Subscription, logs <-chan types.Log) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case vlog := <-logs:
			if vlog.Removed {
				// Reorged-out log; the event no longer exists.
				continue
			}
			if err := l.HandleLog(ctx, vlog); err != nil {
				l.cfg.Log.Error("Failed to relay alert event",
					"err", err,
					slog.String("tx", vlog.TxHash.Hex()))
			}
		}
	}
}

// HandleLog decodes one alert log, resolves the emitting identity and
// dispatches the notification. A lookup miss is logged and swallowed; it is
// a normal negative result, not a per-event failure.
func (l *Listener) HandleLog(ctx context.Context, vlog types.Log) error {
	event, err := decodeAlert(vlog)
	if err != nil {
		return err
	}

	if l.cfg.Collector != nil {
		l.cfg.Collector.ChainEventsTotal.Inc()
	}

	l.cfg.Log.Info("Alert triggered",
		slog.String("user", event.User.String()),
		slog.String("messageType", event.MessageType))

	target, err := l.cfg.Registry.Get(event.User.String())
	if errors.Is(err, interfaces.ErrNotSubscribed) {
		if l.cfg.Collector != nil {
			l.cfg.Collector.SubscriptionMissTotal.Inc()
		}
		l.cfg.Log.Info("No subscription found for user",
			slog.String("user", event.User.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("registry lookup: %w", err)
	}

	content := fmt.Sprintf("Privibase Alert: %s triggered on %s.", event.MessageType, l.cfg.Network)
	if err := l.cfg.Notifier.Notify(ctx, target, content); err != nil {
		if l.cfg.Collector != nil {
			l.cfg.Collector.DispatchTotal.WithLabelValues("failure").Inc()
		}
		return fmt.Errorf("dispatch to %s: %w", target, err)
	}

	if l.cfg.Collector != nil {
		l.cfg.Collector.DispatchTotal.WithLabelValues("success").Inc()
	}
	l.cfg.Log.Info("Notification sent",
		slog.String("target", target.String()))
	return nil
}

// decodeAlert unpacks a raw log into an AlertEvent.
func decodeAlert(vlog types.Log) (interfaces.AlertEvent, error) {
	if len(vlog.Topics) < 2 {
		return interfaces.AlertEvent{}, fmt.Errorf("alert log missing indexed user topic")
	}

	unpacked, err := alertABI.Unpack(alertEventName, vlog.Data)
	if err != nil {
		return interfaces.AlertEvent{}, fmt.Errorf("failed to decode alert event: %w", err)
	}
	messageType, ok := unpacked[0].(string)
	if !ok {
		return interfaces.AlertEvent{}, fmt.Errorf("unexpected messageType field type %T", unpacked[0])
	}

	user := ethcommon.BytesToAddress(vlog.Topics[1].Bytes())
	return interfaces.AlertEvent{
		User:        interfaces.AddressFromEth(user),
		MessageType: messageType,
	}, nil
}

// EventID returns the topic hash of the watched event. Exposed for tests
// and for constructing filter queries elsewhere.
func EventID() ethcommon.Hash {
	return alertABI.Events[alertEventName].ID
}

// EncodeAlertData ABI-encodes the non-indexed fields of an alert event.
// Used by tests to fabricate logs.
func EncodeAlertData(messageType string) ([]byte, error) {
	return alertABI.Events[alertEventName].Inputs.NonIndexed().Pack(messageType)
}
