package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	integrationservice "github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/service"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	ledgerrepo "github.com/digiunlocks/soccer-club-sub006/internal/ledger/repository"
	ledgerservice "github.com/digiunlocks/soccer-club-sub006/internal/ledger/service"
	"github.com/digiunlocks/soccer-club-sub006/internal/lock"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	obsmetrics "github.com/digiunlocks/soccer-club-sub006/internal/observability/metrics"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
	paymentrepo "github.com/digiunlocks/soccer-club-sub006/internal/payment/repository"
	paymentservice "github.com/digiunlocks/soccer-club-sub006/internal/payment/service"
)

type fixture struct {
	reconciler *Reconciler
	payments   paymentdomain.Service
	ledger     ledgerdomain.Service
	registry   *prometheus.Registry
}

func setup(t *testing.T, locker *lock.Locker) fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:reconcile_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&paymentdomain.Payment{}, &ledgerdomain.FinancialTransaction{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	node, err := snowflake.NewNode(11)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC))
	payments := paymentservice.NewService(paymentservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: paymentrepo.Provide(), Clock: clk,
	})
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: ledgerrepo.Provide(), Clock: clk,
	})
	writer := integrationservice.NewService(integrationservice.Params{
		Log: zap.NewNop(), Ledger: ledger, Clock: clk,
	})
	registry := prometheus.NewRegistry()
	metrics := obsmetrics.NewReconcileMetrics(registry, obsmetrics.Config{ServiceName: "clubledger", Environment: "test"})

	r, err := New(Params{
		Log:      zap.NewNop(),
		Payments: payments,
		Ledger:   ledger,
		Writer:   writer,
		Config:   Config{BatchSize: 2},
		Locker:   locker,
		Clock:    clk,
		Metrics:  metrics,
	})
	require.NoError(t, err)
	return fixture{reconciler: r, payments: payments, ledger: ledger, registry: registry}
}

func (f fixture) createPayment(t *testing.T, amount string, status paymentdomain.PaymentStatus) paymentdomain.Payment {
	t.Helper()
	p, err := f.payments.Create(context.Background(), paymentdomain.CreatePaymentRequest{
		Source: paymentdomain.SourceRegistration,
		Amount: money.MustParse(amount),
		Method: paymentdomain.PaymentMethodCash,
		Status: status,
	})
	require.NoError(t, err)
	return p
}

func TestRunOnceBackfillsPaymentsAndRefunds(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	refunded := f.createPayment(t, "100", paymentdomain.PaymentStatusCompleted)
	f.createPayment(t, "40", paymentdomain.PaymentStatusCompleted)
	f.createPayment(t, "15", paymentdomain.PaymentStatusPending)
	_, err := f.payments.Refund(ctx, paymentdomain.RefundRequest{PaymentID: refunded.ID, Amount: money.MustParse("60"), Reason: "moved"})
	require.NoError(t, err)
	_, err = f.payments.Refund(ctx, paymentdomain.RefundRequest{PaymentID: refunded.ID, Amount: money.MustParse("40"), Reason: "moved"})
	require.NoError(t, err)

	report, err := f.reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.PaymentsMirrored)
	assert.Equal(t, 2, report.RefundsMirrored)

	original, err := f.ledger.GetByReference(ctx, refunded.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.TransactionStatusRefunded, original.Status)
	_, err = f.ledger.GetByReference(ctx, "REFUND-"+refunded.TransactionID+"-2")
	require.NoError(t, err)

	report, err = f.reconciler.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.PaymentsMirrored)
	assert.Zero(t, report.RefundsMirrored)

	series, err := testutil.GatherAndCount(f.registry, "clubledger_reconcile_mirrored_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := lock.NewLocker(client)

	f := setup(t, locker)
	f.createPayment(t, "10", paymentdomain.PaymentStatusCompleted)

	_, ok, err := locker.TryLock(context.Background(), f.reconciler.cfg.LockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	report, err := f.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, report.PaymentsMirrored)

	mr.Del(f.reconciler.cfg.LockKey)
	report, err = f.reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, report.PaymentsMirrored)
	assert.False(t, mr.Exists(f.reconciler.cfg.LockKey))
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 5*time.Minute, cfg.RunInterval)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.NotEmpty(t, cfg.LockKey)
}
