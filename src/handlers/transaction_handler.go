package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ikppramesh/everypaisa/backend/src/ledger"
	"github.com/ikppramesh/everypaisa/backend/src/logger"
	"github.com/ikppramesh/everypaisa/backend/src/models"
	"github.com/ikppramesh/everypaisa/backend/src/utils"
)

type TransactionHandler struct {
	ledger ledger.Ledger
}

func NewTransactionHandler(l ledger.Ledger) *TransactionHandler {
	return &TransactionHandler{ledger: l}
}

// HandleGetTransactions returns the full ledger for downstream consumers
// (UI, export), with ETag support so unchanged data is not re-sent.
func (h *TransactionHandler) HandleGetTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := h.ledger.ListTransactions(r.Context())
	if err != nil {
		logger.L.Error("Error retrieving transactions", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving transactions: %v", err), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []models.TransactionRecord{}
	}

	currentETag, etagErr := utils.GenerateETag(records)
	if etagErr != nil {
		logger.L.Error("Failed to generate ETag for transactions", "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		logger.L.Error("Error generating JSON response for transactions", "error", err)
	}
}
