package domain

import (
	"context"
	"errors"
	"fmt"

	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

// Service is the single path through which club subsystems produce ledger
// entries. Every Record call appends exactly one entry or returns an
// *IntegrationWriteError.
type Service interface {
	RecordDonation(ctx context.Context, donation Donation) (ledgerdomain.FinancialTransaction, error)
	RecordRegistrationFee(ctx context.Context, registration Registration, user User, amount money.Money) (ledgerdomain.FinancialTransaction, error)
	RecordMembershipPayment(ctx context.Context, membership Membership, user User) (ledgerdomain.FinancialTransaction, error)
	RecordSponsorshipPayment(ctx context.Context, sponsor Sponsor, method string) (ledgerdomain.FinancialTransaction, error)
	RecordEventFee(ctx context.Context, event Event, participant Participant, amount money.Money) (ledgerdomain.FinancialTransaction, error)
	RecordInvoicePayment(ctx context.Context, invoice Invoice, payment InvoicePayment) (ledgerdomain.FinancialTransaction, error)
	RecordMerchandiseSale(ctx context.Context, order Order, customer Customer) (ledgerdomain.FinancialTransaction, error)
	RecordPayment(ctx context.Context, payment paymentdomain.Payment) (ledgerdomain.FinancialTransaction, error)
	RecordManualEntry(ctx context.Context, entry ManualEntry) (ledgerdomain.FinancialTransaction, error)
	// RecordRefund appends the refund expense and then marks original refunded.
	RecordRefund(ctx context.Context, original ledgerdomain.FinancialTransaction, details RefundDetails) (ledgerdomain.FinancialTransaction, error)
	// RecordPaymentRefund resolves the mirrored entry of payment and records refund against it.
	RecordPaymentRefund(ctx context.Context, payment paymentdomain.Payment, refund paymentdomain.Refund) (ledgerdomain.FinancialTransaction, error)
}

var (
	ErrIntegrationWriteFailed = errors.New("integration_write_failed")
	ErrInvalidSource          = errors.New("invalid_source")
	ErrInvalidCategory        = errors.New("invalid_category")
)

// IntegrationWriteError reports a ledger write that failed after the
// originating record was already saved. Callers surface it as a warning.
type IntegrationWriteError struct {
	SourceType string
	Reference  string
	Err        error
}

func (e *IntegrationWriteError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrIntegrationWriteFailed, e.SourceType, e.Reference, e.Err)
}

func (e *IntegrationWriteError) Unwrap() []error {
	return []error{ErrIntegrationWriteFailed, e.Err}
}
