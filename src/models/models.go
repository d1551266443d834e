package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxnType is the parser-level classification of a message.
type TxnType string

const (
	TxnDebit           TxnType = "DEBIT"
	TxnCredit          TxnType = "CREDIT"
	TxnRefund          TxnType = "REFUND"
	TxnTransfer        TxnType = "TRANSFER"
	TxnMandateCreated  TxnType = "MANDATE_CREATED"
	TxnMandateExecuted TxnType = "MANDATE_EXECUTED"
	TxnFailed          TxnType = "FAILED"
)

// LedgerTxnType is the ledger-level classification of a persisted record.
// It is distinct from TxnType and mapped from it by the synthesizer.
type LedgerTxnType string

const (
	LedgerIncome     LedgerTxnType = "INCOME"
	LedgerExpense    LedgerTxnType = "EXPENSE"
	LedgerCredit     LedgerTxnType = "CREDIT"
	LedgerTransfer   LedgerTxnType = "TRANSFER"
	LedgerInvestment LedgerTxnType = "INVESTMENT"
)

// SmsMessage is one message as delivered by the device inbox or the
// live broadcast listener. ID is nil for live messages the device has
// not assigned an inbox id to yet.
type SmsMessage struct {
	ID              *int64 `json:"id,omitempty"`
	Sender          string `json:"sender"`
	Body            string `json:"body"`
	TimestampMillis int64  `json:"timestampMillis"`
}

// Timestamp returns the device timestamp as a time.Time, or the zero
// time when the device did not provide one.
func (m SmsMessage) Timestamp() time.Time {
	if m.TimestampMillis > 0 {
		return time.UnixMilli(m.TimestampMillis)
	}
	return time.Time{}
}

// ParsedTransaction is the ephemeral output of a bank parser. It lives
// only between dispatch and synthesis.
type ParsedTransaction struct {
	Amount       decimal.Decimal
	MerchantName string
	Type         TxnType
	DateTime     time.Time
	BankName     string
	AccountLast4 string
	CardLast4    string
	Balance      *decimal.Decimal
	RawMessage   string
	Currency     string
}

// TransactionRecord is the persisted ledger row proposed by the
// synthesizer. TransactionHash is the idempotency key: a SHA-256 digest
// of the raw message text, unique among non-superseded records.
type TransactionRecord struct {
	ID                     int64           `json:"id,omitempty"`
	Amount                 decimal.Decimal `json:"amount"`
	MerchantName           string          `json:"merchantName"`
	Category               string          `json:"category"`
	Type                   LedgerTxnType   `json:"type"`
	DateTime               time.Time       `json:"dateTime"`
	Description            string          `json:"description"` // detected payment method label
	SmsBody                string          `json:"smsBody,omitempty"`
	SmsSender              string          `json:"smsSender,omitempty"`
	SmsID                  *int64          `json:"smsId,omitempty"` // nil means manually entered
	BankName               string          `json:"bankName"`
	AccountLast4           string          `json:"accountLast4,omitempty"`
	TransactionHash        string          `json:"transactionHash"`
	Currency               string          `json:"currency"`
	IsDeleted              bool            `json:"isDeleted"`
	IsAtmWithdrawal        bool            `json:"isAtmWithdrawal"`
	IsInterAccountTransfer bool            `json:"isInterAccountTransfer"`
	FromAccount            string          `json:"fromAccount,omitempty"`
	ToAccount              string          `json:"toAccount,omitempty"`
}

// MerchantMapping is a persisted merchant-name -> category override,
// consulted before keyword categorization.
type MerchantMapping struct {
	MerchantName string `json:"merchantName"`
	Category     string `json:"category"`
}

// ScanResult summarizes one full-inbox scan for UI feedback.
type ScanResult struct {
	ScanRunID  string    `json:"scanRunId"`
	Scanned    int       `json:"scanned"`
	Parsed     int       `json:"parsed"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}
