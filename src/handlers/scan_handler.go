package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ikppramesh/everypaisa/backend/src/config"
	"github.com/ikppramesh/everypaisa/backend/src/logger"
	"github.com/ikppramesh/everypaisa/backend/src/models"
	"github.com/ikppramesh/everypaisa/backend/src/security/validation"
	"github.com/ikppramesh/everypaisa/backend/src/services"
	"github.com/ikppramesh/everypaisa/backend/src/utils"
)

// ScanHandler exposes the pipeline's entry points to the host app: the
// full-inbox scan, the live-message push, and the inbox sync.
type ScanHandler struct {
	smsService services.SmsService
	listener   *services.Listener
}

func NewScanHandler(smsService services.SmsService, listener *services.Listener) *ScanHandler {
	return &ScanHandler{
		smsService: smsService,
		listener:   listener,
	}
}

// HandleScanInbox accepts the full inbox (newest-first) and runs the scan
// synchronously, responding with the scanned/parsed counts.
func (h *ScanHandler) HandleScanInbox(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.Cfg.MaxScanBodyBytes)

	var msgs []models.SmsMessage
	if err := json.NewDecoder(r.Body).Decode(&msgs); err != nil {
		logger.L.Warn("Failed to decode scan payload", "error", err)
		utils.SendJSONError(w, "Invalid scan payload: expected a JSON array of messages.", http.StatusBadRequest)
		return
	}
	for i := range msgs {
		msgs[i].Sender = validation.SanitizeSender(msgs[i].Sender)
		msgs[i].Body = validation.SanitizeSmsBody(msgs[i].Body)
	}

	result, err := h.smsService.ScanInbox(r.Context(), msgs)
	if err != nil {
		// The scan checkpoints between messages; a cancelled scan still
		// reports what it completed.
		logger.L.Warn("Inbox scan ended early", "error", err, "scanned", result.Scanned)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding scan result", "error", err)
	}
}

// HandleScanStatus reports the most recent scan summary for UI feedback.
func (h *ScanHandler) HandleScanStatus(w http.ResponseWriter, r *http.Request) {
	result, found := h.smsService.LastScanResult()
	if !found {
		utils.SendJSONError(w, "No scan has run yet.", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding scan status", "error", err)
	}
}

// HandleLiveMessage queues one broadcast message for the listener worker.
func (h *ScanHandler) HandleLiveMessage(w http.ResponseWriter, r *http.Request) {
	var msg models.SmsMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		logger.L.Warn("Failed to decode live message payload", "error", err)
		utils.SendJSONError(w, "Invalid message payload.", http.StatusBadRequest)
		return
	}
	msg.Sender = validation.SanitizeSender(msg.Sender)
	msg.Body = validation.SanitizeSmsBody(msg.Body)

	if err := h.listener.Enqueue(msg); err != nil {
		if errors.Is(err, services.ErrQueueFull) {
			utils.SendJSONError(w, "Listener queue is full, retry later.", http.StatusServiceUnavailable)
			return
		}
		utils.SendJSONError(w, "Failed to queue message.", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type syncRequest struct {
	PresentIds []int64 `json:"presentIds"`
}

// HandleSyncInbox reconciles ledger soft-delete state against the
// authoritative set of on-device SMS ids.
func (h *ScanHandler) HandleSyncInbox(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.L.Warn("Failed to decode sync payload", "error", err)
		utils.SendJSONError(w, "Invalid sync payload.", http.StatusBadRequest)
		return
	}

	if err := h.smsService.SyncWithInbox(r.Context(), req.PresentIds); err != nil {
		logger.L.Error("Inbox sync failed", "error", err)
		utils.SendJSONError(w, "Inbox sync failed.", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
