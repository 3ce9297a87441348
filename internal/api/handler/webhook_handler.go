package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"cloudcoder/internal/app/worker"
	"cloudcoder/internal/common"
)

// WebhookHandler accepts test run reports from builders and queues them for
// the result worker.
type WebhookHandler struct {
	rdb    *redis.Client
	queue  string
	secret string
	log    *zap.Logger
}

func NewWebhookHandler(rdb *redis.Client, queue, secret string, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{rdb: rdb, queue: queue, secret: secret, log: log}
}

func (h *WebhookHandler) RegisterRoutes(r chi.Router) {
	r.Post("/test-results", h.handleTestRunReport)
}

func (h *WebhookHandler) handleTestRunReport(w http.ResponseWriter, r *http.Request) {
	got := r.Header.Get("X-Webhook-Secret")
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
		common.RespondWithError(w, http.StatusUnauthorized, "Invalid webhook secret")
		return
	}

	var report worker.TestRunReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	defer r.Body.Close()
	if report.ReceiptEventID <= 0 {
		common.RespondWithError(w, http.StatusBadRequest, "receipt_event_id is required")
		return
	}

	if err := worker.Publish(r.Context(), h.rdb, h.queue, &report); err != nil {
		h.log.Error("failed to queue test run report", zap.Int("receipt_event_id", report.ReceiptEventID), zap.Error(err))
		common.RespondWithError(w, common.HTTPStatusFromError(err), "Could not queue report")
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, map[string]int{"receipt_event_id": report.ReceiptEventID})
}
