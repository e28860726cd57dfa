package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/privibase/relay/interfaces"
	"github.com/privibase/relay/metrics"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// NotifyRequest is the webhook body: the subscriber identity and the
// free-text alert message.
type NotifyRequest struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

// Handler processes webhook notification requests. It resolves the
// submitted identity through the subscription registry and dispatches the
// message synchronously, reflecting the dispatch outcome in the response.
type Handler struct {
	registry  interfaces.SubscriptionRegistry
	notifier  interfaces.Notifier
	collector *metrics.Collectors
	log       *slog.Logger
}

// NewHandler creates a webhook handler. The collector may be nil.
func NewHandler(registry interfaces.SubscriptionRegistry, notifier interfaces.Notifier, collector *metrics.Collectors, log *slog.Logger) *Handler {
	return &Handler{
		registry:  registry,
		notifier:  notifier,
		collector: collector,
		log:       log,
	}
}

// HandleNotify processes POST /notify.
//
// Response contract:
//   - malformed JSON or missing field -> 400 with an error body
//   - unregistered user -> 404 with an error body
//   - dispatch failure -> 502 with an error body
//   - dispatch success -> 200 {"success":true}
func (h *Handler) HandleNotify(w http.ResponseWriter, r *http.Request) {
	if h.collector != nil {
		h.collector.WebhookRequestsTotal.Inc()
	}

	var req NotifyRequest
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		h.log.Debug("Malformed notify body", "err", err)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.User == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "missing user or message")
		return
	}

	target, err := h.registry.Get(req.User)
	if errors.Is(err, interfaces.ErrInvalidAddress) {
		writeError(w, http.StatusBadRequest, "invalid user address")
		return
	}
	if err != nil {
		if h.collector != nil {
			h.collector.SubscriptionMissTotal.Inc()
		}
		h.log.Info("Webhook alert for unsubscribed user",
			slog.String("user", req.User))
		writeError(w, http.StatusNotFound, "user not subscribed")
		return
	}

	content := fmt.Sprintf("Privibase Hardware Alert: %s", req.Message)
	if err := h.notifier.Notify(r.Context(), target, content); err != nil {
		if h.collector != nil {
			h.collector.DispatchTotal.WithLabelValues("failure").Inc()
		}
		h.log.Error("Failed to dispatch webhook alert",
			"err", err,
			slog.String("target", target.String()))
		writeError(w, http.StatusBadGateway, "notification dispatch failed")
		return
	}

	if h.collector != nil {
		h.collector.DispatchTotal.WithLabelValues("success").Inc()
	}
	h.log.Info("Webhook notification sent",
		slog.String("target", target.String()))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"success":true}`))
}

// writeError sends a JSON error body with the given status code.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
