package processors

import (
	"context"
	"fmt"
	"time"

	"github.com/ikppramesh/everypaisa/backend/src/ledger"
	"github.com/ikppramesh/everypaisa/backend/src/logger"
	"github.com/ikppramesh/everypaisa/backend/src/models"
	"github.com/ikppramesh/everypaisa/backend/src/parsers"
)

const refundCategory = "Refunds"

// RefundProcessor handles failed/reversed transaction messages: it finds
// the original charge in the ledger, retires it, and records the
// correcting income.
type RefundProcessor struct {
	ledger       ledger.Ledger
	lookbackDays int
}

func NewRefundProcessor(l ledger.Ledger, lookbackDays int) *RefundProcessor {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}
	return &RefundProcessor{ledger: l, lookbackDays: lookbackDays}
}

// HandleFailed parses the failed message through the normal dispatcher to
// recover amount/merchant/bank/account context, soft-deletes the matching
// original expense when one exists, and inserts the refund income record.
// When no original is found the refund record is inserted anyway.
// The bool result reports whether a record was produced.
func (r *RefundProcessor) HandleFailed(ctx context.Context, msg models.SmsMessage) (bool, error) {
	parsed := parsers.Dispatch(msg.Sender, msg.Body)
	if parsed == nil {
		logger.L.Debug("Failed-transaction message did not parse, abandoning", "sender", msg.Sender)
		return false, nil
	}

	since := time.Now().AddDate(0, 0, -r.lookbackDays)
	candidates, err := r.ledger.FindExpensesByAmountRange(ctx, parsed.Amount, parsed.Amount, since)
	if err != nil {
		return false, fmt.Errorf("error searching for original charge: %w", err)
	}

	suffix := parsed.AccountLast4
	if suffix == "" {
		suffix = parsed.CardLast4
	}

	for _, candidate := range candidates {
		if !candidate.Amount.Equal(parsed.Amount) {
			continue
		}
		if candidate.BankName != parsed.BankName || candidate.AccountLast4 != suffix {
			continue
		}
		if err := r.ledger.SoftDelete(ctx, candidate.ID); err != nil {
			return false, fmt.Errorf("error retiring original charge %d: %w", candidate.ID, err)
		}
		logger.L.Info("Retired original charge for reversed transaction",
			"originalID", candidate.ID, "amount", parsed.Amount.String(), "bank", parsed.BankName)
		break
	}

	refund := r.buildRefundRecord(parsed, msg, suffix)
	if _, err := r.ledger.InsertTransaction(ctx, refund); err != nil {
		return false, fmt.Errorf("error inserting refund record: %w", err)
	}
	return true, nil
}

func (r *RefundProcessor) buildRefundRecord(parsed *models.ParsedTransaction, msg models.SmsMessage, suffix string) *models.TransactionRecord {
	dateTime := parsed.DateTime
	if deviceTime := msg.Timestamp(); !deviceTime.IsZero() {
		dateTime = deviceTime
	}

	return &models.TransactionRecord{
		Amount:       parsed.Amount,
		MerchantName: parsed.MerchantName + " - Refund",
		Category:     refundCategory,
		Type:         models.LedgerIncome,
		DateTime:     dateTime,
		Description:  DetectPaymentMethod(parsed.RawMessage),
		SmsBody:      parsed.RawMessage,
		SmsSender:    msg.Sender,
		SmsID:        msg.ID,
		BankName:     parsed.BankName,
		AccountLast4: suffix,
		// Suffixed so the refund never collides with the hash of the
		// original message that produced the charge.
		TransactionHash: HashMessage(parsed.RawMessage + "_refund"),
		Currency:        parsed.Currency,
	}
}
