package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	"github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/service"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	ledgerrepo "github.com/digiunlocks/soccer-club-sub006/internal/ledger/repository"
	ledgerservice "github.com/digiunlocks/soccer-club-sub006/internal/ledger/service"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

type fixture struct {
	writer domain.Service
	ledger ledgerdomain.Service
	logs   *observer.ObservedLogs
}

func setup(t *testing.T) fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:integration_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ledgerdomain.FinancialTransaction{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  ledgerrepo.Provide(),
		Clock: clk,
	})

	core, logs := observer.New(zapcore.WarnLevel)
	writer := service.NewService(service.Params{
		Log:    zap.New(core),
		Ledger: ledger,
		Clock:  clk,
	})
	return fixture{writer: writer, ledger: ledger, logs: logs}
}

func TestRecordDonationCreatesOneIncomeEntry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	entry, err := f.writer.RecordDonation(ctx, domain.Donation{ID: "d1", Amount: money.MustParse("20"), DonorName: "A"})
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.TransactionTypeIncome, entry.Type)
	assert.Equal(t, ledgerdomain.CategoryDonations, entry.Category)
	assert.Equal(t, "20.00", entry.Amount.String())
	assert.Equal(t, "DON-d1", entry.ReferenceNumber)
	assert.Equal(t, "donation", entry.SourceType)

	list, err := f.ledger.List(ctx, ledgerdomain.ListTransactionRequest{})
	require.NoError(t, err)
	require.Len(t, list.Transactions, 1)
	assert.Equal(t, entry.ID, list.Transactions[0].ID)
}

func TestRecordersUseTheirTemplates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ten := money.MustParse("10")

	cases := []struct {
		name     string
		record   func() (ledgerdomain.FinancialTransaction, error)
		category string
		ref      string
	}{
		{"registration", func() (ledgerdomain.FinancialTransaction, error) {
			return f.writer.RecordRegistrationFee(ctx, domain.Registration{ID: "r1", PlayerName: "Sam", Season: "Fall"}, domain.User{Name: "Pat"}, ten)
		}, ledgerdomain.CategoryRegistrationFees, "REG-r1"},
		{"membership", func() (ledgerdomain.FinancialTransaction, error) {
			return f.writer.RecordMembershipPayment(ctx, domain.Membership{ID: "m1", TransactionID: "MEM-1-ABC", Amount: ten}, domain.User{Name: "Pat"})
		}, ledgerdomain.CategoryMembershipDues, "MEM-1-ABC"},
		{"sponsorship", func() (ledgerdomain.FinancialTransaction, error) {
			return f.writer.RecordSponsorshipPayment(ctx, domain.Sponsor{ID: "s1", BusinessName: "Pizza Co", Amount: ten}, "check")
		}, ledgerdomain.CategorySponsorships, "SPN-s1"},
		{"event", func() (ledgerdomain.FinancialTransaction, error) {
			return f.writer.RecordEventFee(ctx, domain.Event{ID: "e1", Name: "Cup"}, domain.Participant{ID: "p1", TeamName: "U10"}, ten)
		}, ledgerdomain.CategoryTournamentFees, "EVT-p1"},
		{"invoice", func() (ledgerdomain.FinancialTransaction, error) {
			return f.writer.RecordInvoicePayment(ctx, domain.Invoice{ID: "i1", Number: "1001"}, domain.InvoicePayment{Amount: ten})
		}, ledgerdomain.CategoryOtherIncome, "INV-1001"},
		{"merchandise", func() (ledgerdomain.FinancialTransaction, error) {
			return f.writer.RecordMerchandiseSale(ctx, domain.Order{ID: "o1", Number: "A7", Total: ten, ItemCount: 2}, domain.Customer{Name: "Lee"})
		}, ledgerdomain.CategoryMerchandiseSales, "MER-A7"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry, err := tc.record()
			require.NoError(t, err)
			assert.Equal(t, ledgerdomain.TransactionTypeIncome, entry.Type)
			assert.Equal(t, tc.category, entry.Category)
			assert.Equal(t, tc.ref, entry.ReferenceNumber)
			assert.Equal(t, "10.00", entry.Amount.String())
		})
	}
}

func TestRecordPaymentMapsCategoryFromSource(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	entry, err := f.writer.RecordPayment(ctx, paymentdomain.Payment{
		ID:            9,
		TransactionID: "SPN-1-XYZ",
		Source:        paymentdomain.SourceSponsorship,
		Amount:        money.MustParse("500"),
		Method:        paymentdomain.PaymentMethodCheck,
		Status:        paymentdomain.PaymentStatusCompleted,
		PayerName:     "Pizza Co",
	})
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.CategorySponsorships, entry.Category)
	assert.Equal(t, "SPN-1-XYZ", entry.ReferenceNumber)
	assert.Equal(t, "9", entry.SourceID)

	_, err = f.writer.RecordPayment(ctx, paymentdomain.Payment{TransactionID: "X-1", Source: "lottery", Amount: money.MustParse("1")})
	assert.ErrorIs(t, err, domain.ErrIntegrationWriteFailed)
	assert.ErrorIs(t, err, domain.ErrInvalidSource)
}

func TestRecordRefundAppendsExpenseAndMarksOriginal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	original, err := f.writer.RecordDonation(ctx, domain.Donation{TransactionID: "DON-1-AAA", Amount: money.MustParse("100"), DonorName: "A"})
	require.NoError(t, err)

	first, err := f.writer.RecordRefund(ctx, original, domain.RefundDetails{Amount: money.MustParse("60"), Reason: "dup", Sequence: 1})
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.TransactionTypeExpense, first.Type)
	assert.Equal(t, ledgerdomain.CategoryRefunds, first.Category)
	assert.Equal(t, "REFUND-DON-1-AAA", first.ReferenceNumber)
	assert.Equal(t, "60.00", first.Amount.String())

	second, err := f.writer.RecordRefund(ctx, original, domain.RefundDetails{Amount: money.MustParse("40"), Sequence: 2})
	require.NoError(t, err)
	assert.Equal(t, "REFUND-DON-1-AAA-2", second.ReferenceNumber)

	stored, err := f.ledger.GetByReference(ctx, "DON-1-AAA")
	require.NoError(t, err)
	assert.Equal(t, ledgerdomain.TransactionStatusRefunded, stored.Status)
	assert.Equal(t, "100.00", stored.Amount.String())
	assert.Contains(t, stored.Notes, "REFUND-DON-1-AAA-2")
}

func TestRecordRefundWithoutSequenceTakesNextFreeSuffix(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	original, err := f.writer.RecordDonation(ctx, domain.Donation{TransactionID: "DON-9-Z", Amount: money.MustParse("50"), DonorName: "B"})
	require.NoError(t, err)

	first, err := f.writer.RecordRefund(ctx, original, domain.RefundDetails{Amount: money.MustParse("10")})
	require.NoError(t, err)
	assert.Equal(t, "REFUND-DON-9-Z", first.ReferenceNumber)

	second, err := f.writer.RecordRefund(ctx, original, domain.RefundDetails{Amount: money.MustParse("10")})
	require.NoError(t, err)
	assert.Equal(t, "REFUND-DON-9-Z-2", second.ReferenceNumber)

	// A position already taken by an explicit caller is skipped.
	_, err = f.writer.RecordRefund(ctx, original, domain.RefundDetails{Amount: money.MustParse("5"), Sequence: 4})
	require.NoError(t, err)
	third, err := f.writer.RecordRefund(ctx, original, domain.RefundDetails{Amount: money.MustParse("5")})
	require.NoError(t, err)
	assert.Equal(t, "REFUND-DON-9-Z-3", third.ReferenceNumber)
	fifth, err := f.writer.RecordRefund(ctx, original, domain.RefundDetails{Amount: money.MustParse("5")})
	require.NoError(t, err)
	assert.Equal(t, "REFUND-DON-9-Z-5", fifth.ReferenceNumber)

	list, err := f.ledger.List(ctx, ledgerdomain.ListTransactionRequest{Category: ledgerdomain.CategoryRefunds})
	require.NoError(t, err)
	assert.Len(t, list.Transactions, 5)
	assert.Zero(t, f.logs.Len())
}

func TestRecordPaymentRefundWithoutMirrorIsWarning(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.writer.RecordPaymentRefund(ctx,
		paymentdomain.Payment{TransactionID: "REG-404", Source: paymentdomain.SourceRegistration},
		paymentdomain.Refund{Amount: money.MustParse("5"), Sequence: 1},
	)
	var writeErr *domain.IntegrationWriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, "REG-404", writeErr.Reference)
	assert.ErrorIs(t, err, ledgerdomain.ErrNotFound)

	entries := f.logs.FilterMessage("ledger integration write failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "registration", entries[0].ContextMap()["source_type"])
}

func TestDuplicateMirrorIsReportedNotPanicked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	donation := domain.Donation{TransactionID: "DON-7", Amount: money.MustParse("5")}
	_, err := f.writer.RecordDonation(ctx, donation)
	require.NoError(t, err)
	_, err = f.writer.RecordDonation(ctx, donation)
	assert.ErrorIs(t, err, ledgerdomain.ErrDuplicateReference)
	assert.ErrorIs(t, err, domain.ErrIntegrationWriteFailed)
}

func TestRecordManualEntryValidatesCategory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.writer.RecordManualEntry(ctx, domain.ManualEntry{
		Type: "expense", Category: "Pizza", Description: "team party", Amount: money.MustParse("30"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)

	entry, err := f.writer.RecordManualEntry(ctx, domain.ManualEntry{
		Type: "expense", Category: ledgerdomain.CategoryOtherExpense, Description: "team party", Amount: money.MustParse("30"),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^TXN-`, entry.ReferenceNumber)
	assert.Equal(t, "manual", entry.SourceType)
}
