package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	reportdomain "github.com/digiunlocks/soccer-club-sub006/internal/financereport/domain"
	reportservice "github.com/digiunlocks/soccer-club-sub006/internal/financereport/service"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	ledgerrepo "github.com/digiunlocks/soccer-club-sub006/internal/ledger/repository"
	ledgerservice "github.com/digiunlocks/soccer-club-sub006/internal/ledger/service"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
	paymentrepo "github.com/digiunlocks/soccer-club-sub006/internal/payment/repository"
	paymentservice "github.com/digiunlocks/soccer-club-sub006/internal/payment/service"
)

type fixture struct {
	report   reportdomain.Service
	ledger   ledgerdomain.Service
	payments paymentdomain.Service
	clock    *clock.FakeClock
}

func setup(t *testing.T) fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:report_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerdomain.FinancialTransaction{}, &paymentdomain.Payment{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC))
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: ledgerrepo.Provide(), Clock: clk,
	})
	payments := paymentservice.NewService(paymentservice.Params{
		DB: db, Log: zap.NewNop(), GenID: node, Repo: paymentrepo.Provide(), Clock: clk,
	})
	report := reportservice.NewService(reportservice.Params{
		Log: zap.NewNop(), Ledger: ledger, Payments: payments, Clock: clk,
	})
	return fixture{report: report, ledger: ledger, payments: payments, clock: clk}
}

func (f fixture) append(t *testing.T, txType ledgerdomain.TransactionType, category, amount string, status ledgerdomain.TransactionStatus, date time.Time) {
	t.Helper()
	_, err := f.ledger.Append(context.Background(), ledgerdomain.AppendRequest{
		Type:        txType,
		Category:    category,
		Description: category,
		Amount:      money.MustParse(amount),
		Status:      status,
		Date:        date,
	})
	require.NoError(t, err)
}

func TestSummaryCountsOnlyCompleted(t *testing.T) {
	f := setup(t)
	now := f.clock.Now()
	f.append(t, ledgerdomain.TransactionTypeIncome, ledgerdomain.CategoryDonations, "100.10", "", now)
	f.append(t, ledgerdomain.TransactionTypeIncome, ledgerdomain.CategoryDonations, "0.20", "", now)
	f.append(t, ledgerdomain.TransactionTypeIncome, ledgerdomain.CategoryDonations, "999", ledgerdomain.TransactionStatusPending, now)
	f.append(t, ledgerdomain.TransactionTypeExpense, ledgerdomain.CategoryOtherExpense, "150", "", now)

	summary, err := f.report.Summary(context.Background(), reportdomain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "100.30", summary.TotalIncome.String())
	assert.Equal(t, "150.00", summary.TotalExpense.String())
	assert.Equal(t, "-49.70", summary.NetIncome.String())
	assert.Equal(t, 2, summary.IncomeCount)
	assert.Equal(t, 1, summary.ExpenseCount)
}

func TestSummaryRespectsDateRange(t *testing.T) {
	f := setup(t)
	now := f.clock.Now()
	f.append(t, ledgerdomain.TransactionTypeIncome, ledgerdomain.CategoryDonations, "10", "", now.AddDate(0, 0, -10))
	f.append(t, ledgerdomain.TransactionTypeIncome, ledgerdomain.CategoryDonations, "20", "", now)

	from := now.AddDate(0, 0, -1)
	summary, err := f.report.Summary(context.Background(), reportdomain.DateRange{From: &from})
	require.NoError(t, err)
	assert.Equal(t, "20.00", summary.TotalIncome.String())

	to := now.AddDate(0, 0, -2)
	_, err = f.report.Summary(context.Background(), reportdomain.DateRange{From: &from, To: &to})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidDateRange)
}

func TestCategoryBreakdownOrder(t *testing.T) {
	f := setup(t)
	now := f.clock.Now()
	f.append(t, ledgerdomain.TransactionTypeIncome, ledgerdomain.CategoryDonations, "50", "", now)
	f.append(t, ledgerdomain.TransactionTypeIncome, ledgerdomain.CategoryDonations, "25", "", now)
	f.append(t, ledgerdomain.TransactionTypeIncome, ledgerdomain.CategoryRegistrationFees, "100", "", now)
	f.append(t, ledgerdomain.TransactionTypeExpense, ledgerdomain.CategoryRefunds, "500", "", now)

	out, err := f.report.CategoryBreakdown(context.Background(), reportdomain.CategoryBreakdownRequest{Type: ledgerdomain.TransactionTypeIncome})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, ledgerdomain.CategoryRegistrationFees, out[0].Category)
	assert.Equal(t, "100.00", out[0].Total.String())
	assert.Equal(t, 1, out[0].Count)
	assert.Equal(t, ledgerdomain.CategoryDonations, out[1].Category)
	assert.Equal(t, "75.00", out[1].Total.String())
	assert.Equal(t, 2, out[1].Count)

	_, err = f.report.CategoryBreakdown(context.Background(), reportdomain.CategoryBreakdownRequest{Type: "transfer"})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidType)
}

func TestTrendBucketsByMonth(t *testing.T) {
	f := setup(t)
	f.append(t, ledgerdomain.TransactionTypeIncome, ledgerdomain.CategoryDonations, "40", "", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	f.append(t, ledgerdomain.TransactionTypeExpense, ledgerdomain.CategoryOtherExpense, "15", "", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))

	resp, err := f.report.Trend(context.Background(), reportdomain.TrendRequest{
		Start:       time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Granularity: reportdomain.GranularityMonth,
	})
	require.NoError(t, err)
	require.Len(t, resp.Series, 3)
	assert.True(t, resp.HasData)
	assert.Equal(t, "2024-01", resp.Series[0].Period)
	assert.Equal(t, "40.00", resp.Series[0].Income.String())
	assert.Equal(t, "0.00", resp.Series[1].Net.String())
	assert.Equal(t, "-15.00", resp.Series[2].Net.String())

	_, err = f.report.Trend(context.Background(), reportdomain.TrendRequest{Granularity: "year"})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidGranularity)
}

func TestTrendRejectsOversizedSeries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	_, err := f.report.Trend(ctx, reportdomain.TrendRequest{
		Start:       time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         end,
		Granularity: reportdomain.GranularityDay,
	})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidDateRange)

	_, err = f.report.Trend(ctx, reportdomain.TrendRequest{
		Start:       time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC),
		End:         end,
		Granularity: reportdomain.GranularityMonth,
	})
	assert.ErrorIs(t, err, reportdomain.ErrInvalidDateRange)

	resp, err := f.report.Trend(ctx, reportdomain.TrendRequest{
		Start:       end.AddDate(0, 0, -730),
		End:         end,
		Granularity: reportdomain.GranularityDay,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Series, 731)
	assert.False(t, resp.HasData)
}

func TestPaymentStatsDelegatesToPaymentStore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.payments.Create(ctx, paymentdomain.CreatePaymentRequest{
		Amount: money.MustParse("100"),
		Method: paymentdomain.PaymentMethodCash,
	})
	require.NoError(t, err)
	_, err = f.payments.Refund(ctx, paymentdomain.RefundRequest{PaymentID: p.ID, Amount: money.MustParse("30"), Reason: "r"})
	require.NoError(t, err)

	stats, err := f.report.PaymentStats(ctx, reportdomain.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, "100.00", stats.GrossCollected.String())
	assert.Equal(t, "30.00", stats.TotalRefunded.String())
	assert.Equal(t, "70.00", stats.NetCollected.String())
	assert.Equal(t, 1, stats.CountByStatus[paymentdomain.PaymentStatusPartial])
}
