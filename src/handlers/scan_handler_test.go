package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ikppramesh/everypaisa/backend/src/config"
	"github.com/ikppramesh/everypaisa/backend/src/logger"
	"github.com/ikppramesh/everypaisa/backend/src/models"
	"github.com/ikppramesh/everypaisa/backend/src/services"
)

func TestMain(m *testing.M) {
	config.LoadConfig()
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// stubSmsService records its inputs and serves canned outputs.
type stubSmsService struct {
	scanMsgs   []models.SmsMessage
	scanResult *models.ScanResult
	scanErr    error

	syncIds []int64
	syncErr error

	lastResult *models.ScanResult
}

func (s *stubSmsService) ScanInbox(ctx context.Context, msgs []models.SmsMessage) (*models.ScanResult, error) {
	s.scanMsgs = msgs
	if s.scanResult == nil {
		s.scanResult = &models.ScanResult{}
	}
	return s.scanResult, s.scanErr
}

func (s *stubSmsService) ProcessMessage(ctx context.Context, msg models.SmsMessage) (bool, error) {
	return true, nil
}

func (s *stubSmsService) SyncWithInbox(ctx context.Context, presentIds []int64) error {
	s.syncIds = presentIds
	return s.syncErr
}

func (s *stubSmsService) LastScanResult() (*models.ScanResult, bool) {
	return s.lastResult, s.lastResult != nil
}

func TestHandleScanInbox(t *testing.T) {
	stub := &stubSmsService{scanResult: &models.ScanResult{ScanRunID: "run-1", Scanned: 2, Parsed: 1}}
	h := NewScanHandler(stub, services.NewListener(stub, 4))

	payload := `[
		{"id":1,"sender":"  VM-HDFCBK ","body":" Rs.2500 debited from a/c XX1234 at Amazon \u0000"},
		{"id":2,"sender":"DM-PROMO","body":"Congratulations! 50% off"}
	]`
	req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	h.HandleScanInbox(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var result models.ScanResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.ScanRunID != "run-1" || result.Scanned != 2 || result.Parsed != 1 {
		t.Errorf("unexpected result: %+v", result)
	}

	if len(stub.scanMsgs) != 2 {
		t.Fatalf("service received %d messages, want 2", len(stub.scanMsgs))
	}
	if stub.scanMsgs[0].Sender != "VM-HDFCBK" {
		t.Errorf("sender not sanitized: %q", stub.scanMsgs[0].Sender)
	}
	if strings.ContainsRune(stub.scanMsgs[0].Body, 0) || strings.HasSuffix(stub.scanMsgs[0].Body, " ") {
		t.Errorf("body not sanitized: %q", stub.scanMsgs[0].Body)
	}
}

func TestHandleScanInboxRejectsBadPayload(t *testing.T) {
	h := NewScanHandler(&stubSmsService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader(`{"not":"an array"}`))
	rr := httptest.NewRecorder()
	h.HandleScanInbox(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleScanStatus(t *testing.T) {
	stub := &stubSmsService{}
	h := NewScanHandler(stub, nil)

	rr := httptest.NewRecorder()
	h.HandleScanStatus(rr, httptest.NewRequest(http.MethodGet, "/api/scan/status", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status before any scan = %d, want 404", rr.Code)
	}

	stub.lastResult = &models.ScanResult{ScanRunID: "run-2", Scanned: 5, Parsed: 3}
	rr = httptest.NewRecorder()
	h.HandleScanStatus(rr, httptest.NewRequest(http.MethodGet, "/api/scan/status", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var result models.ScanResult
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.ScanRunID != "run-2" {
		t.Errorf("ScanRunID = %q, want %q", result.ScanRunID, "run-2")
	}
}

func TestHandleLiveMessage(t *testing.T) {
	// Queue of one, worker never started: the second push must get a 503.
	h := NewScanHandler(&stubSmsService{}, services.NewListener(&stubSmsService{}, 1))

	body := `{"sender":"VM-HDFCBK","body":"Rs.100 debited from a/c XX1234"}`
	rr := httptest.NewRecorder()
	h.HandleLiveMessage(rr, httptest.NewRequest(http.MethodPost, "/api/sms", strings.NewReader(body)))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.HandleLiveMessage(rr, httptest.NewRequest(http.MethodPost, "/api/sms", strings.NewReader(body)))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status with full queue = %d, want 503", rr.Code)
	}
}

func TestHandleLiveMessageRejectsBadPayload(t *testing.T) {
	h := NewScanHandler(&stubSmsService{}, services.NewListener(&stubSmsService{}, 1))

	rr := httptest.NewRecorder()
	h.HandleLiveMessage(rr, httptest.NewRequest(http.MethodPost, "/api/sms", strings.NewReader("not json")))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}

func TestHandleSyncInbox(t *testing.T) {
	stub := &stubSmsService{}
	h := NewScanHandler(stub, nil)

	rr := httptest.NewRecorder()
	h.HandleSyncInbox(rr, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader(`{"presentIds":[2,3]}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(stub.syncIds) != 2 || stub.syncIds[0] != 2 || stub.syncIds[1] != 3 {
		t.Errorf("service received ids %v, want [2 3]", stub.syncIds)
	}

	rr = httptest.NewRecorder()
	h.HandleSyncInbox(rr, httptest.NewRequest(http.MethodPost, "/api/sync", strings.NewReader("not json")))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
