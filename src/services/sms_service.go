package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ikppramesh/everypaisa/backend/src/ledger"
	"github.com/ikppramesh/everypaisa/backend/src/logger"
	"github.com/ikppramesh/everypaisa/backend/src/models"
	"github.com/ikppramesh/everypaisa/backend/src/parsers"
	"github.com/ikppramesh/everypaisa/backend/src/processors"
	"github.com/patrickmn/go-cache"
)

const ckLastScanResult = "last_scan_result"

type smsServiceImpl struct {
	ledger          ledger.Ledger
	txnProcessor    *processors.TransactionProcessor
	refundProcessor *processors.RefundProcessor
	statusCache     *cache.Cache
}

func NewSmsService(
	l ledger.Ledger,
	txnProcessor *processors.TransactionProcessor,
	refundProcessor *processors.RefundProcessor,
	statusCache *cache.Cache,
) SmsService {
	return &smsServiceImpl{
		ledger:          l,
		txnProcessor:    txnProcessor,
		refundProcessor: refundProcessor,
		statusCache:     statusCache,
	}
}

func (s *smsServiceImpl) ScanInbox(ctx context.Context, msgs []models.SmsMessage) (*models.ScanResult, error) {
	result := &models.ScanResult{
		ScanRunID: uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger.L.Info("Inbox scan START", "scanRunId", result.ScanRunID, "messages", len(msgs))

	for _, msg := range msgs {
		// Checkpoint between messages only: a message is either fully
		// persisted or not processed at all.
		if err := ctx.Err(); err != nil {
			logger.L.Warn("Inbox scan cancelled", "scanRunId", result.ScanRunID, "scanned", result.Scanned)
			result.FinishedAt = time.Now()
			s.storeResult(result)
			return result, err
		}

		result.Scanned++
		produced, err := s.ProcessMessage(ctx, msg)
		if err != nil {
			// Per-message failures are independent; the next scan retries.
			logger.L.Error("Error processing message during scan, skipping",
				"scanRunId", result.ScanRunID, "sender", msg.Sender, "error", err)
			continue
		}
		if produced {
			result.Parsed++
		}
	}

	result.FinishedAt = time.Now()
	s.storeResult(result)
	logger.L.Info("Inbox scan END", "scanRunId", result.ScanRunID,
		"scanned", result.Scanned, "parsed", result.Parsed,
		"duration", result.FinishedAt.Sub(result.StartedAt))
	return result, nil
}

func (s *smsServiceImpl) ProcessMessage(ctx context.Context, msg models.SmsMessage) (bool, error) {
	if processors.IsNonTransactional(msg.Body) {
		return false, nil
	}
	if processors.IsFailedOrReversed(msg.Body) {
		return s.refundProcessor.HandleFailed(ctx, msg)
	}

	parsed := parsers.Dispatch(msg.Sender, msg.Body)
	if parsed == nil {
		// Not an error: scanned-but-not-parsed.
		return false, nil
	}

	if _, err := s.txnProcessor.Process(ctx, parsed, msg); err != nil {
		return false, err
	}
	return true, nil
}

// SyncWithInbox marks every SMS-derived record deleted, then restores the
// ids still present on-device in chunks sized under SQLite's host
// parameter limit. A single "NOT IN (...)" statement could exceed that
// limit on large inboxes.
func (s *smsServiceImpl) SyncWithInbox(ctx context.Context, presentIds []int64) error {
	logger.L.Info("Inbox sync START", "presentIds", len(presentIds))

	if err := s.ledger.MarkAllSmsDerivedDeleted(ctx); err != nil {
		return fmt.Errorf("inbox sync: mark phase failed: %w", err)
	}
	if err := s.ledger.RestoreBySmsIds(ctx, presentIds); err != nil {
		return fmt.Errorf("inbox sync: restore phase failed: %w", err)
	}

	logger.L.Info("Inbox sync END", "restored", len(presentIds))
	return nil
}

func (s *smsServiceImpl) LastScanResult() (*models.ScanResult, bool) {
	if s.statusCache == nil {
		return nil, false
	}
	if cached, found := s.statusCache.Get(ckLastScanResult); found {
		// Hand out a copy so callers cannot mutate the cached summary.
		cp := *cached.(*models.ScanResult)
		return &cp, true
	}
	return nil, false
}

func (s *smsServiceImpl) storeResult(result *models.ScanResult) {
	if s.statusCache != nil {
		s.statusCache.Set(ckLastScanResult, result, cache.NoExpiration)
	}
}
