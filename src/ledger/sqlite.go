package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ikppramesh/everypaisa/backend/src/models"
	"github.com/shopspring/decimal"
)

// SQLLedger implements Ledger on the application's SQLite database.
type SQLLedger struct {
	db *sql.DB

	// restoreChunkSize keeps RestoreBySmsIds statements under SQLite's
	// host-parameter limit.
	restoreChunkSize int
}

func NewSQLLedger(db *sql.DB, restoreChunkSize int) *SQLLedger {
	if restoreChunkSize < 1 {
		restoreChunkSize = 500
	}
	return &SQLLedger{db: db, restoreChunkSize: restoreChunkSize}
}

const transactionColumns = `id, amount, merchant_name, category, transaction_type, date_time,
	description, sms_body, sms_sender, sms_id, bank_name, account_last4,
	transaction_hash, currency, is_deleted, is_atm_withdrawal,
	is_inter_account_transfer, from_account, to_account`

func (l *SQLLedger) InsertTransaction(ctx context.Context, rec *models.TransactionRecord) (int64, error) {
	var id int64
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO transactions (amount, merchant_name, category, transaction_type, date_time,
			description, sms_body, sms_sender, sms_id, bank_name, account_last4,
			transaction_hash, currency, is_deleted, is_atm_withdrawal,
			is_inter_account_transfer, from_account, to_account)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_hash) DO UPDATE SET
			amount = excluded.amount,
			merchant_name = excluded.merchant_name,
			category = excluded.category,
			transaction_type = excluded.transaction_type,
			date_time = excluded.date_time,
			description = excluded.description,
			sms_body = excluded.sms_body,
			sms_sender = excluded.sms_sender,
			sms_id = excluded.sms_id,
			bank_name = excluded.bank_name,
			account_last4 = excluded.account_last4,
			currency = excluded.currency,
			is_deleted = FALSE
		RETURNING id`,
		rec.Amount.String(), rec.MerchantName, rec.Category, string(rec.Type),
		rec.DateTime.UnixMilli(), rec.Description, rec.SmsBody, rec.SmsSender,
		rec.SmsID, rec.BankName, rec.AccountLast4, rec.TransactionHash,
		rec.Currency, rec.IsDeleted, rec.IsAtmWithdrawal,
		rec.IsInterAccountTransfer, rec.FromAccount, rec.ToAccount,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("error inserting transaction (hash %s): %w", rec.TransactionHash, err)
	}
	return id, nil
}

func (l *SQLLedger) SoftDelete(ctx context.Context, id int64) error {
	_, err := l.db.ExecContext(ctx, `UPDATE transactions SET is_deleted = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error soft-deleting transaction %d: %w", id, err)
	}
	return nil
}

func (l *SQLLedger) Restore(ctx context.Context, id int64) error {
	_, err := l.db.ExecContext(ctx, `UPDATE transactions SET is_deleted = FALSE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("error restoring transaction %d: %w", id, err)
	}
	return nil
}

func (l *SQLLedger) FindExpensesByAmountRange(ctx context.Context, min, max decimal.Decimal, since time.Time) ([]models.TransactionRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE transaction_type = ? AND is_deleted = FALSE AND date_time >= ?
			AND CAST(amount AS REAL) BETWEEN ? AND ?
		ORDER BY date_time DESC, id DESC`,
		string(models.LedgerExpense), since.UnixMilli(),
		min.InexactFloat64(), max.InexactFloat64())
	if err != nil {
		return nil, fmt.Errorf("error querying expenses by amount range: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (l *SQLLedger) AllKnownSmsIds(ctx context.Context) ([]int64, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT DISTINCT sms_id FROM transactions WHERE sms_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("error querying known sms ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning sms id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sms ids: %w", err)
	}
	return ids, nil
}

func (l *SQLLedger) MarkAllSmsDerivedDeleted(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `UPDATE transactions SET is_deleted = TRUE WHERE sms_id IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("error marking sms-derived transactions deleted: %w", err)
	}
	return nil
}

func (l *SQLLedger) RestoreBySmsIds(ctx context.Context, ids []int64) error {
	for start := 0; start < len(ids); start += l.restoreChunkSize {
		end := start + l.restoreChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]interface{}, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		_, err := l.db.ExecContext(ctx,
			`UPDATE transactions SET is_deleted = FALSE WHERE sms_id IN (`+placeholders+`)`, args...)
		if err != nil {
			return fmt.Errorf("error restoring transactions by sms ids (chunk %d-%d): %w", start, end, err)
		}
	}
	return nil
}

func (l *SQLLedger) CategoryForMerchant(ctx context.Context, merchantName string) (string, bool, error) {
	var category string
	err := l.db.QueryRowContext(ctx,
		`SELECT category FROM merchant_mappings WHERE merchant_name = ?`, merchantName).Scan(&category)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error looking up merchant mapping for %q: %w", merchantName, err)
	}
	return category, true, nil
}

func (l *SQLLedger) SaveMerchantMapping(ctx context.Context, merchantName, category string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO merchant_mappings (merchant_name, category) VALUES (?, ?)
		ON CONFLICT(merchant_name) DO UPDATE SET category = excluded.category`,
		merchantName, category)
	if err != nil {
		return fmt.Errorf("error saving merchant mapping %q: %w", merchantName, err)
	}
	return nil
}

func (l *SQLLedger) ListTransactions(ctx context.Context) ([]models.TransactionRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE is_deleted = FALSE
		ORDER BY date_time DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]models.TransactionRecord, error) {
	var records []models.TransactionRecord
	for rows.Next() {
		var rec models.TransactionRecord
		var amountStr, txnType string
		var dateTimeMillis int64
		var smsID sql.NullInt64
		var description, smsBody, smsSender, bankName, accountLast4, fromAccount, toAccount sql.NullString

		err := rows.Scan(&rec.ID, &amountStr, &rec.MerchantName, &rec.Category, &txnType,
			&dateTimeMillis, &description, &smsBody, &smsSender, &smsID, &bankName,
			&accountLast4, &rec.TransactionHash, &rec.Currency, &rec.IsDeleted,
			&rec.IsAtmWithdrawal, &rec.IsInterAccountTransfer, &fromAccount, &toAccount)
		if err != nil {
			return nil, fmt.Errorf("error scanning transaction row: %w", err)
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("error parsing stored amount %q: %w", amountStr, err)
		}
		rec.Amount = amount
		rec.Type = models.LedgerTxnType(txnType)
		rec.DateTime = time.UnixMilli(dateTimeMillis)
		rec.Description = description.String
		rec.SmsBody = smsBody.String
		rec.SmsSender = smsSender.String
		rec.BankName = bankName.String
		rec.AccountLast4 = accountLast4.String
		rec.FromAccount = fromAccount.String
		rec.ToAccount = toAccount.String
		if smsID.Valid {
			id := smsID.Int64
			rec.SmsID = &id
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return records, nil
}
