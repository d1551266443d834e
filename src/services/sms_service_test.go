package services

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ikppramesh/everypaisa/backend/src/logger"
	"github.com/ikppramesh/everypaisa/backend/src/models"
	"github.com/ikppramesh/everypaisa/backend/src/processors"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// fakeLedger mirrors the SQLite ledger's replace-on-conflict insert so the
// service-level idempotency and sync tests exercise the real pipeline
// against in-memory state.
type fakeLedger struct {
	mu       sync.Mutex
	nextID   int64
	records  []*models.TransactionRecord
	mappings map[string]string

	failNextInserts int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{mappings: make(map[string]string)}
}

func (f *fakeLedger) InsertTransaction(ctx context.Context, rec *models.TransactionRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextInserts > 0 {
		f.failNextInserts--
		return 0, errors.New("insert failed")
	}
	for _, existing := range f.records {
		if existing.TransactionHash == rec.TransactionHash {
			id := existing.ID
			*existing = *rec
			existing.ID = id
			existing.IsDeleted = false
			return id, nil
		}
	}
	f.nextID++
	cp := *rec
	cp.ID = f.nextID
	f.records = append(f.records, &cp)
	return cp.ID, nil
}

func (f *fakeLedger) SoftDelete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.ID == id {
			rec.IsDeleted = true
			return nil
		}
	}
	return errors.New("record not found")
}

func (f *fakeLedger) Restore(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.ID == id {
			rec.IsDeleted = false
			return nil
		}
	}
	return errors.New("record not found")
}

func (f *fakeLedger) FindExpensesByAmountRange(ctx context.Context, min, max decimal.Decimal, since time.Time) ([]models.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TransactionRecord
	for _, rec := range f.records {
		if rec.IsDeleted || rec.Type != models.LedgerExpense || rec.DateTime.Before(since) {
			continue
		}
		if rec.Amount.LessThan(min) || rec.Amount.GreaterThan(max) {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakeLedger) AllKnownSmsIds(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[int64]bool)
	var out []int64
	for _, rec := range f.records {
		if rec.SmsID != nil && !seen[*rec.SmsID] {
			seen[*rec.SmsID] = true
			out = append(out, *rec.SmsID)
		}
	}
	return out, nil
}

func (f *fakeLedger) MarkAllSmsDerivedDeleted(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.SmsID != nil {
			rec.IsDeleted = true
		}
	}
	return nil
}

func (f *fakeLedger) RestoreBySmsIds(ctx context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	present := make(map[int64]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	for _, rec := range f.records {
		if rec.SmsID != nil && present[*rec.SmsID] {
			rec.IsDeleted = false
		}
	}
	return nil
}

func (f *fakeLedger) CategoryForMerchant(ctx context.Context, merchantName string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	category, found := f.mappings[merchantName]
	return category, found, nil
}

func (f *fakeLedger) SaveMerchantMapping(ctx context.Context, merchantName, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mappings[merchantName] = category
	return nil
}

func (f *fakeLedger) ListTransactions(ctx context.Context) ([]models.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TransactionRecord
	for _, rec := range f.records {
		if !rec.IsDeleted {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeLedger) bySmsID(id int64) *models.TransactionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.SmsID != nil && *rec.SmsID == id {
			cp := *rec
			return &cp
		}
	}
	return nil
}

func newTestService(fl *fakeLedger) SmsService {
	categorizer := processors.NewKeywordCategorizer(fl, nil)
	return NewSmsService(
		fl,
		processors.NewTransactionProcessor(fl, categorizer),
		processors.NewRefundProcessor(fl, 30),
		cache.New(cache.NoExpiration, cache.NoExpiration),
	)
}

func smsID(v int64) *int64 { return &v }

const hdfcDebitBody = "Rs.2500 debited from a/c XX1234 at Amazon. Avl Bal Rs.10000"

func TestScanInboxIdempotent(t *testing.T) {
	fl := newFakeLedger()
	svc := newTestService(fl)

	msgs := []models.SmsMessage{
		{ID: smsID(1), Sender: "VM-HDFCBK", Body: hdfcDebitBody, TimestampMillis: time.Now().UnixMilli()},
		{ID: smsID(1), Sender: "VM-HDFCBK", Body: hdfcDebitBody, TimestampMillis: time.Now().UnixMilli()},
	}

	result, err := svc.ScanInbox(context.Background(), msgs)
	if err != nil {
		t.Fatalf("ScanInbox: %v", err)
	}
	if result.Scanned != 2 || result.Parsed != 2 {
		t.Errorf("scanned/parsed = %d/%d, want 2/2", result.Scanned, result.Parsed)
	}
	if fl.count() != 1 {
		t.Errorf("record count = %d, want 1 (hash dedup)", fl.count())
	}
}

func TestScanInboxSkipsNoise(t *testing.T) {
	fl := newFakeLedger()
	svc := newTestService(fl)

	msgs := []models.SmsMessage{
		{ID: smsID(1), Sender: "VM-HDFCBK", Body: "Your OTP is 482910. Do not share it with anyone"},
		{ID: smsID(2), Sender: "DM-PROMO", Body: "Congratulations! Get 50% off today"},
		{ID: smsID(3), Sender: "VM-HDFCBK", Body: hdfcDebitBody},
	}

	result, err := svc.ScanInbox(context.Background(), msgs)
	if err != nil {
		t.Fatalf("ScanInbox: %v", err)
	}
	if result.Scanned != 3 || result.Parsed != 1 {
		t.Errorf("scanned/parsed = %d/%d, want 3/1", result.Scanned, result.Parsed)
	}
	if fl.count() != 1 {
		t.Errorf("record count = %d, want 1", fl.count())
	}
}

func TestScanInboxContinuesAfterError(t *testing.T) {
	fl := newFakeLedger()
	fl.failNextInserts = 1
	svc := newTestService(fl)

	msgs := []models.SmsMessage{
		{ID: smsID(1), Sender: "VM-HDFCBK", Body: hdfcDebitBody},
		{ID: smsID(2), Sender: "VM-HDFCBK", Body: "Rs.350 debited from a/c XX1234 at Swiggy"},
	}

	result, err := svc.ScanInbox(context.Background(), msgs)
	if err != nil {
		t.Fatalf("ScanInbox: %v", err)
	}
	if result.Scanned != 2 || result.Parsed != 1 {
		t.Errorf("scanned/parsed = %d/%d, want 2/1", result.Scanned, result.Parsed)
	}
	if fl.count() != 1 {
		t.Errorf("record count = %d, want 1", fl.count())
	}
}

func TestScanInboxHonorsCancellation(t *testing.T) {
	fl := newFakeLedger()
	svc := newTestService(fl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.ScanInbox(ctx, []models.SmsMessage{
		{ID: smsID(1), Sender: "VM-HDFCBK", Body: hdfcDebitBody},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result.Scanned != 0 {
		t.Errorf("scanned = %d, want 0", result.Scanned)
	}
	if fl.count() != 0 {
		t.Errorf("record count = %d, want 0", fl.count())
	}
}

func TestScanInboxStoresLastResult(t *testing.T) {
	svc := newTestService(newFakeLedger())

	if _, found := svc.LastScanResult(); found {
		t.Fatal("unexpected result before any scan")
	}

	result, err := svc.ScanInbox(context.Background(), nil)
	if err != nil {
		t.Fatalf("ScanInbox: %v", err)
	}

	stored, found := svc.LastScanResult()
	if !found {
		t.Fatal("expected a stored result")
	}
	if stored.ScanRunID == "" || stored.ScanRunID != result.ScanRunID {
		t.Errorf("stored run id %q does not match %q", stored.ScanRunID, result.ScanRunID)
	}
}

func TestLastScanResultIsolatedFromCallers(t *testing.T) {
	svc := newTestService(newFakeLedger())

	if _, err := svc.ScanInbox(context.Background(), nil); err != nil {
		t.Fatalf("ScanInbox: %v", err)
	}

	first, found := svc.LastScanResult()
	if !found {
		t.Fatal("expected a stored result")
	}
	first.Scanned = 999
	first.ScanRunID = "tampered"

	second, found := svc.LastScanResult()
	if !found {
		t.Fatal("expected a stored result")
	}
	if second.Scanned == 999 || second.ScanRunID == "tampered" {
		t.Errorf("cached result mutated through caller copy: %+v", second)
	}
}

func TestProcessMessageRoutesReversals(t *testing.T) {
	fl := newFakeLedger()
	svc := newTestService(fl)

	produced, err := svc.ProcessMessage(context.Background(), models.SmsMessage{
		Sender: "ICICIB",
		Body:   "Your payment of Rs.999 at XYZ from a/c XX4321 failed and will be reversed",
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !produced {
		t.Fatal("expected a record")
	}

	txns, err := fl.ListTransactions(context.Background())
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 1 || txns[0].Category != "Refunds" {
		t.Errorf("expected one refund record, got %+v", txns)
	}
}

func TestProcessMessageUnparsedIsNotAnError(t *testing.T) {
	svc := newTestService(newFakeLedger())

	produced, err := svc.ProcessMessage(context.Background(), models.SmsMessage{
		Sender: "AX-FAMILY",
		Body:   "Dinner at 8 tonight?",
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if produced {
		t.Error("expected no record for a personal message")
	}
}

func TestSyncWithInboxTwoPhase(t *testing.T) {
	fl := newFakeLedger()
	svc := newTestService(fl)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		id := i
		if _, err := fl.InsertTransaction(ctx, &models.TransactionRecord{
			Amount:          decimal.RequireFromString("100"),
			Type:            models.LedgerExpense,
			DateTime:        time.Now(),
			SmsID:           &id,
			TransactionHash: seedHash(i),
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	// A manual record has no SMS id and must survive any sync untouched.
	if _, err := fl.InsertTransaction(ctx, &models.TransactionRecord{
		Amount:          decimal.RequireFromString("500"),
		Type:            models.LedgerExpense,
		DateTime:        time.Now(),
		TransactionHash: "manual-entry",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.SyncWithInbox(ctx, []int64{2, 3}); err != nil {
		t.Fatalf("SyncWithInbox: %v", err)
	}

	if rec := fl.bySmsID(1); rec == nil || !rec.IsDeleted {
		t.Error("record for deleted SMS 1 should be soft-deleted")
	}
	for _, id := range []int64{2, 3} {
		if rec := fl.bySmsID(id); rec == nil || rec.IsDeleted {
			t.Errorf("record for present SMS %d should stay visible", id)
		}
	}

	txns, err := fl.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txns) != 3 {
		t.Errorf("visible records = %d, want 3 (two restored + one manual)", len(txns))
	}
}

func TestListenerEnqueueBackpressure(t *testing.T) {
	l := NewListener(newTestService(newFakeLedger()), 1)

	if err := l.Enqueue(models.SmsMessage{Body: "first"}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := l.Enqueue(models.SmsMessage{Body: "second"}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
}

func TestListenerProcessesQueuedMessage(t *testing.T) {
	fl := newFakeLedger()
	l := NewListener(newTestService(fl), 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l.Start(ctx)

	if err := l.Enqueue(models.SmsMessage{Sender: "VM-HDFCBK", Body: hdfcDebitBody}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for fl.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker did not process the message in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// seedHash builds distinct placeholder hashes for seeded records.
func seedHash(i int64) string {
	return processors.HashMessage(time.Unix(i, 0).String())
}
