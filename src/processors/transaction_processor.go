package processors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ikppramesh/everypaisa/backend/src/ledger"
	"github.com/ikppramesh/everypaisa/backend/src/models"
)

// TransactionProcessor turns a successful parse into a persistable ledger
// record: idempotency hash, category, ledger-level type, payment method
// and final timestamp.
type TransactionProcessor struct {
	ledger      ledger.Ledger
	categorizer *KeywordCategorizer
}

func NewTransactionProcessor(l ledger.Ledger, c *KeywordCategorizer) *TransactionProcessor {
	return &TransactionProcessor{ledger: l, categorizer: c}
}

// HashMessage is the idempotency key: a SHA-256 digest of the raw message
// text. The hash covers the text only, not sender or time, so identical
// bodies from different times collide; a known limitation kept as-is
// pending a product decision.
func HashMessage(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// paymentMethodTable is scanned in order; the generic "card" entry comes
// last so the specific card kinds win.
var paymentMethodTable = []struct {
	keyword string
	label   string
}{
	{"upi", "UPI"},
	{"credit card", "Credit Card"},
	{"debit card", "Debit Card"},
	{"neft", "NEFT"},
	{"imps", "IMPS"},
	{"rtgs", "RTGS"},
	{"net banking", "Net Banking"},
	{"netbanking", "Net Banking"},
	{"atm", "ATM"},
	{"auto-debit", "Auto-debit"},
	{"autopay", "Auto-debit"},
	{"card", "Card"},
}

// DetectPaymentMethod returns a free-text payment method label for the
// message, or "" when none is recognizable.
func DetectPaymentMethod(body string) string {
	lower := strings.ToLower(body)
	for _, pm := range paymentMethodTable {
		if strings.Contains(lower, pm.keyword) {
			return pm.label
		}
	}
	return ""
}

// mapToLedgerType maps the parser-level type to the ledger-level one.
// Anything unexpected (mandates included) is treated as an expense.
func mapToLedgerType(t models.TxnType) models.LedgerTxnType {
	switch t {
	case models.TxnDebit:
		return models.LedgerExpense
	case models.TxnCredit:
		return models.LedgerIncome
	case models.TxnRefund:
		return models.LedgerCredit
	case models.TxnTransfer:
		return models.LedgerTransfer
	default:
		return models.LedgerExpense
	}
}

// Synthesize builds the ledger record for a parse. The device timestamp
// wins over the parser's own estimate when present.
func (p *TransactionProcessor) Synthesize(ctx context.Context, parsed *models.ParsedTransaction, msg models.SmsMessage) *models.TransactionRecord {
	dateTime := parsed.DateTime
	if deviceTime := msg.Timestamp(); !deviceTime.IsZero() {
		dateTime = deviceTime
	}
	if dateTime.IsZero() {
		dateTime = time.Now()
	}

	accountLast4 := parsed.AccountLast4
	if accountLast4 == "" {
		accountLast4 = parsed.CardLast4
	}

	method := DetectPaymentMethod(parsed.RawMessage)
	ledgerType := mapToLedgerType(parsed.Type)

	rec := &models.TransactionRecord{
		Amount:          parsed.Amount,
		MerchantName:    parsed.MerchantName,
		Category:        p.categorizer.Categorize(ctx, parsed.MerchantName, parsed.RawMessage, parsed.Type),
		Type:            ledgerType,
		DateTime:        dateTime,
		Description:     method,
		SmsBody:         parsed.RawMessage,
		SmsSender:       msg.Sender,
		SmsID:           msg.ID,
		BankName:        parsed.BankName,
		AccountLast4:    accountLast4,
		TransactionHash: HashMessage(parsed.RawMessage),
		Currency:        parsed.Currency,

		IsAtmWithdrawal:        method == "ATM" && ledgerType == models.LedgerExpense,
		IsInterAccountTransfer: ledgerType == models.LedgerTransfer,
	}
	if ledgerType == models.LedgerTransfer {
		rec.FromAccount = accountLast4
	}
	return rec
}

// Process synthesizes and persists the record, returning the ledger row id.
func (p *TransactionProcessor) Process(ctx context.Context, parsed *models.ParsedTransaction, msg models.SmsMessage) (int64, error) {
	rec := p.Synthesize(ctx, parsed, msg)
	return p.ledger.InsertTransaction(ctx, rec)
}
