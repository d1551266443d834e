package ledger

import (
	"context"
	"time"

	"github.com/ikppramesh/everypaisa/backend/src/models"
	"github.com/shopspring/decimal"
)

// Ledger is the persistent transaction store the pipeline writes through.
// The pipeline never issues storage queries of its own beyond these
// operations. Insert has replace-on-conflict semantics keyed on the
// transaction hash, which is the sole deduplication guard.
type Ledger interface {
	// InsertTransaction persists the record, replacing any existing record
	// with the same transaction hash (and clearing its soft-delete flag, so
	// a message reprocessed after deletion restores rather than duplicates).
	InsertTransaction(ctx context.Context, rec *models.TransactionRecord) (int64, error)

	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error

	// FindExpensesByAmountRange returns non-deleted EXPENSE records dated at
	// or after since whose amount falls in [min, max]. Callers needing exact
	// decimal equality filter the result themselves.
	FindExpensesByAmountRange(ctx context.Context, min, max decimal.Decimal, since time.Time) ([]models.TransactionRecord, error)

	// AllKnownSmsIds returns the distinct device SMS ids of every
	// SMS-derived record, deleted or not.
	AllKnownSmsIds(ctx context.Context) ([]int64, error)

	// MarkAllSmsDerivedDeleted soft-deletes every record with a non-null
	// SMS id. Manually entered records are untouched.
	MarkAllSmsDerivedDeleted(ctx context.Context) error

	// RestoreBySmsIds un-deletes all records whose SMS id is in ids,
	// issuing statements in chunks sized under the parameter limit.
	RestoreBySmsIds(ctx context.Context, ids []int64) error

	// CategoryForMerchant looks up the user's override table. The second
	// return is false when no mapping exists.
	CategoryForMerchant(ctx context.Context, merchantName string) (string, bool, error)
	SaveMerchantMapping(ctx context.Context, merchantName, category string) error

	ListTransactions(ctx context.Context) ([]models.TransactionRecord, error)
}
