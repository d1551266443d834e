package services

import (
	"context"

	"github.com/ikppramesh/everypaisa/backend/src/models"
)

// SmsService is the pipeline's two entry points plus the inbox
// reconciliation. ScanInbox and ProcessMessage may run concurrently; both
// are safe because the transaction hash makes identical-content writes
// idempotent.
type SmsService interface {
	// ScanInbox runs the full pipeline over every message (newest-first).
	// Per-message failures are logged and skipped; one failure never
	// aborts the scan. Cancellation is honored between messages.
	ScanInbox(ctx context.Context, msgs []models.SmsMessage) (*models.ScanResult, error)

	// ProcessMessage runs the pipeline over exactly one live message.
	// The bool result reports whether a transaction record was produced.
	ProcessMessage(ctx context.Context, msg models.SmsMessage) (bool, error)

	// SyncWithInbox reconciles ledger soft-delete state with the
	// authoritative set of SMS ids still present on-device.
	SyncWithInbox(ctx context.Context, presentIds []int64) error

	// LastScanResult returns the most recent scan summary, if any.
	LastScanResult() (*models.ScanResult, bool)
}
