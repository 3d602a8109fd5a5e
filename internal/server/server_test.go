package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditrepo "github.com/digiunlocks/soccer-club-sub006/internal/audit/repository"
	auditservice "github.com/digiunlocks/soccer-club-sub006/internal/audit/service"
	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	integrationservice "github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/service"
	reportservice "github.com/digiunlocks/soccer-club-sub006/internal/financereport/service"
	ledgerrepo "github.com/digiunlocks/soccer-club-sub006/internal/ledger/repository"
	ledgerservice "github.com/digiunlocks/soccer-club-sub006/internal/ledger/service"
	"github.com/digiunlocks/soccer-club-sub006/internal/migration"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability"
	paymentrepo "github.com/digiunlocks/soccer-club-sub006/internal/payment/repository"
	paymentservice "github.com/digiunlocks/soccer-club-sub006/internal/payment/service"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:server_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 8, 1, 9, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	audit := auditservice.NewService(auditservice.Params{DB: db, Log: log, GenID: node, Repo: auditrepo.Provide(), Clock: clk})
	payments := paymentservice.NewService(paymentservice.Params{DB: db, Log: log, GenID: node, Repo: paymentrepo.Provide(), AuditSvc: audit, Clock: clk})
	ledger := ledgerservice.NewService(ledgerservice.Params{DB: db, Log: log, GenID: node, Repo: ledgerrepo.Provide(), AuditSvc: audit, Clock: clk})
	writer := integrationservice.NewService(integrationservice.Params{Log: log, Ledger: ledger, Clock: clk})
	reports := reportservice.NewService(reportservice.Params{Log: log, Ledger: ledger, Payments: payments, Clock: clk})

	engine := NewEngine(observability.Config{LogLevel: "info", Environment: "test"})
	NewServer(ServerParams{
		Gin:        engine,
		Log:        log,
		PaymentSvc: payments,
		LedgerSvc:  ledger,
		Writer:     writer,
		ReportSvc:  reports,
		AuditSvc:   audit,
	})
	return engine
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "admin-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
	Error    *errorPayload   `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type paymentView struct {
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

func TestHealth(t *testing.T) {
	r := newTestServer(t)
	rec := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreatePaymentMirrorsToLedger(t *testing.T) {
	r := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/admin/payments", map[string]any{
		"source":     "registration",
		"amount":     "120.00",
		"method":     "credit_card",
		"status":     "completed",
		"payer_name": "Sam Keeper",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Empty(t, body.Warnings)

	var payment paymentView
	require.NoError(t, json.Unmarshal(body.Data, &payment))
	assert.Equal(t, "completed", payment.Status)

	rec = doJSON(t, r, http.MethodGet, "/admin/ledger?category=Registration+Fees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []struct {
		ReferenceNumber string  `json:"reference_number"`
		Amount          float64 `json:"amount"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, payment.TransactionID, entries[0].ReferenceNumber)
	assert.Equal(t, 120.0, entries[0].Amount)
}

func TestRefundOverRemainingIsRejected(t *testing.T) {
	r := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/admin/payments", map[string]any{
		"source": "donation",
		"amount": 50,
		"method": "cash",
		"status": "completed",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var payment paymentView
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &payment))

	rec = doJSON(t, r, http.MethodPost, "/admin/payments/"+payment.ID+"/refunds", map[string]any{"amount": 20, "reason": "duplicate"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode(t, rec).Warnings)

	rec = doJSON(t, r, http.MethodPost, "/admin/payments/"+payment.ID+"/refunds", map[string]any{"amount": 40, "reason": "too much"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Error)
	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "invalid_amount", body.Error.Errors[0].Code)

	rec = doJSON(t, r, http.MethodDelete, "/admin/payments/"+payment.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRefundWithoutLedgerMirrorWarns(t *testing.T) {
	r := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/admin/payments", map[string]any{
		"source": "merchandise",
		"amount": 30,
		"method": "cash",
		"status": "pending",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var payment paymentView
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &payment))

	status := "completed"
	rec = doJSON(t, r, http.MethodPatch, "/admin/payments/"+payment.ID, map[string]any{"status": status})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, "/admin/payments/"+payment.ID+"/refunds", map[string]any{"amount": 30, "reason": "returned"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	require.Len(t, body.Warnings, 1)
	assert.Contains(t, body.Warnings[0], payment.TransactionID)

	var result struct {
		Payment paymentView `json:"payment"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, "refunded", result.Payment.Status)
}

func TestGetPaymentErrors(t *testing.T) {
	r := newTestServer(t)

	rec := doJSON(t, r, http.MethodGet, "/admin/payments/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/admin/payments/123456", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManualLedgerEntryAndSummary(t *testing.T) {
	r := newTestServer(t)

	rec := doJSON(t, r, http.MethodPost, "/admin/ledger", map[string]any{
		"type":        "expense",
		"category":    "Other Expense",
		"description": "Field chalk",
		"amount":      "12.40",
		"date":        "2024-07-20T00:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry struct {
		RecordedBy string `json:"recorded_by"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &entry))
	assert.Equal(t, "admin-1", entry.RecordedBy)

	rec = doJSON(t, r, http.MethodPost, "/admin/ledger", map[string]any{
		"type":        "expense",
		"category":    "Snacks",
		"description": "Oranges",
		"amount":      "5",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/donations", map[string]any{
		"amount":     "40",
		"method":     "paypal",
		"donor_name": "Pat",
		"campaign":   "New Nets",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Empty(t, decode(t, rec).Warnings)

	rec = doJSON(t, r, http.MethodGet, "/admin/reports/summary?from=2024-07-01&to=2024-08-31", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var summary struct {
		TotalIncome  float64 `json:"total_income"`
		TotalExpense float64 `json:"total_expense"`
		NetIncome    float64 `json:"net_income"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &summary))
	assert.Equal(t, 40.0, summary.TotalIncome)
	assert.Equal(t, 12.4, summary.TotalExpense)
	assert.InDelta(t, 27.6, summary.NetIncome, 0.001)

	rec = doJSON(t, r, http.MethodGet, "/admin/reports/summary?from=2024-09-01&to=2024-08-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/admin/audit-logs?target_type=payment", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
