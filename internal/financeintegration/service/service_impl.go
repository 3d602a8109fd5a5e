package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	"github.com/digiunlocks/soccer-club-sub006/internal/config"
	"github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/domain"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability/logger"
	obsmetrics "github.com/digiunlocks/soccer-club-sub006/internal/observability/metrics"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/reference"
)

const (
	refundLookupWindow     = 16
	refundSequenceAttempts = 5
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Ledger     ledgerdomain.Service
	Clock      clock.Clock                 `optional:"true"`
	Finance    *config.FinanceConfigHolder `optional:"true"`
	ObsMetrics *obsmetrics.Metrics         `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	ledger     ledgerdomain.Service
	clock      clock.Clock
	finance    *config.FinanceConfigHolder
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	finance := p.Finance
	if finance == nil {
		finance = config.NewStaticFinanceConfigHolder(config.DefaultFinanceConfig())
	}
	return &Service{
		log:        p.Log.Named("finance.integration"),
		ledger:     p.Ledger,
		clock:      clk,
		finance:    finance,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) RecordDonation(ctx context.Context, donation domain.Donation) (ledgerdomain.FinancialTransaction, error) {
	payer := strings.TrimSpace(donation.DonorName)
	if donation.Anonymous || payer == "" {
		payer = "Anonymous"
	}
	description := "Donation from " + payer
	if campaign := strings.TrimSpace(donation.Campaign); campaign != "" {
		description += " - " + campaign
	}
	return s.write(ctx, config.SourceDonation, ledgerdomain.AppendRequest{
		Type:            ledgerdomain.TransactionTypeIncome,
		Category:        ledgerdomain.CategoryDonations,
		Description:     description,
		Amount:          donation.Amount,
		Date:            donation.Date,
		PaymentMethod:   donation.PaymentMethod,
		ReferenceNumber: s.referenceFor(config.SourceDonation, donation.TransactionID, donation.ID),
		Payer:           payer,
		Notes:           donation.Message,
		SourceID:        donation.ID,
	})
}

func (s *Service) RecordRegistrationFee(ctx context.Context, registration domain.Registration, user domain.User, amount money.Money) (ledgerdomain.FinancialTransaction, error) {
	description := "Registration fee - " + firstNonEmpty(registration.PlayerName, user.Name)
	if season := strings.TrimSpace(registration.Season); season != "" {
		description += " (" + season + ")"
	}
	return s.write(ctx, config.SourceRegistration, ledgerdomain.AppendRequest{
		Type:            ledgerdomain.TransactionTypeIncome,
		Category:        ledgerdomain.CategoryRegistrationFees,
		Description:     description,
		Amount:          amount,
		Date:            registration.Date,
		PaymentMethod:   registration.PaymentMethod,
		ReferenceNumber: s.referenceFor(config.SourceRegistration, registration.TransactionID, registration.ID),
		Payer:           firstNonEmpty(user.Name, user.Email),
		Notes:           registration.Program,
		SourceID:        registration.ID,
	})
}

func (s *Service) RecordMembershipPayment(ctx context.Context, membership domain.Membership, user domain.User) (ledgerdomain.FinancialTransaction, error) {
	payer := firstNonEmpty(user.Name, user.Email)
	var notes string
	if !membership.StartDate.IsZero() && !membership.EndDate.IsZero() {
		notes = fmt.Sprintf("Valid %s to %s", membership.StartDate.Format(time.DateOnly), membership.EndDate.Format(time.DateOnly))
	}
	return s.write(ctx, config.SourceMembership, ledgerdomain.AppendRequest{
		Type:            ledgerdomain.TransactionTypeIncome,
		Category:        ledgerdomain.CategoryMembershipDues,
		Description:     fmt.Sprintf("Membership dues - %s (%s)", firstNonEmpty(membership.Plan, "standard"), payer),
		Amount:          membership.Amount,
		Date:            membership.StartDate,
		PaymentMethod:   membership.PaymentMethod,
		ReferenceNumber: s.referenceFor(config.SourceMembership, membership.TransactionID, membership.ID),
		Payer:           payer,
		Notes:           notes,
		SourceID:        membership.ID,
	})
}

func (s *Service) RecordSponsorshipPayment(ctx context.Context, sponsor domain.Sponsor, method string) (ledgerdomain.FinancialTransaction, error) {
	description := "Sponsorship - " + sponsor.BusinessName
	if tier := strings.TrimSpace(sponsor.Tier); tier != "" {
		description += " (" + tier + ")"
	}
	var notes string
	if contact := strings.TrimSpace(sponsor.ContactName); contact != "" {
		notes = "Contact: " + contact
	}
	return s.write(ctx, config.SourceSponsorship, ledgerdomain.AppendRequest{
		Type:            ledgerdomain.TransactionTypeIncome,
		Category:        ledgerdomain.CategorySponsorships,
		Description:     description,
		Amount:          sponsor.Amount,
		Date:            sponsor.Date,
		PaymentMethod:   method,
		ReferenceNumber: s.referenceFor(config.SourceSponsorship, sponsor.TransactionID, sponsor.ID),
		Payer:           sponsor.BusinessName,
		Notes:           notes,
		SourceID:        sponsor.ID,
	})
}

func (s *Service) RecordEventFee(ctx context.Context, event domain.Event, participant domain.Participant, amount money.Money) (ledgerdomain.FinancialTransaction, error) {
	payer := firstNonEmpty(participant.TeamName, participant.Name)
	var notes string
	if !event.Date.IsZero() {
		notes = "Event date " + event.Date.Format(time.DateOnly)
	}
	return s.write(ctx, config.SourceEvent, ledgerdomain.AppendRequest{
		Type:            ledgerdomain.TransactionTypeIncome,
		Category:        ledgerdomain.CategoryTournamentFees,
		Description:     fmt.Sprintf("Event fee - %s - %s", event.Name, payer),
		Amount:          amount,
		PaymentMethod:   participant.PaymentMethod,
		ReferenceNumber: s.referenceFor(config.SourceEvent, participant.TransactionID, participant.ID),
		Payer:           payer,
		Notes:           notes,
		SourceID:        event.ID,
	})
}

func (s *Service) RecordInvoicePayment(ctx context.Context, invoice domain.Invoice, payment domain.InvoicePayment) (ledgerdomain.FinancialTransaction, error) {
	description := fmt.Sprintf("Invoice %s payment", firstNonEmpty(invoice.Number, invoice.ID))
	if customer := strings.TrimSpace(invoice.CustomerName); customer != "" {
		description += " - " + customer
	}
	return s.write(ctx, config.SourceInvoice, ledgerdomain.AppendRequest{
		Type:            ledgerdomain.TransactionTypeIncome,
		Category:        ledgerdomain.CategoryOtherIncome,
		Description:     description,
		Amount:          payment.Amount,
		Date:            payment.Date,
		PaymentMethod:   payment.PaymentMethod,
		ReferenceNumber: s.referenceFor(config.SourceInvoice, payment.TransactionID, firstNonEmpty(payment.ID, invoice.Number, invoice.ID)),
		Payer:           invoice.CustomerName,
		Notes:           invoice.Description,
		SourceID:        invoice.ID,
	})
}

func (s *Service) RecordMerchandiseSale(ctx context.Context, order domain.Order, customer domain.Customer) (ledgerdomain.FinancialTransaction, error) {
	description := "Merchandise order " + firstNonEmpty(order.Number, order.ID)
	if order.ItemCount > 0 {
		description += fmt.Sprintf(" (%d items)", order.ItemCount)
	}
	return s.write(ctx, config.SourceMerchandise, ledgerdomain.AppendRequest{
		Type:            ledgerdomain.TransactionTypeIncome,
		Category:        ledgerdomain.CategoryMerchandiseSales,
		Description:     description,
		Amount:          order.Total,
		Date:            order.Date,
		PaymentMethod:   order.PaymentMethod,
		ReferenceNumber: s.referenceFor(config.SourceMerchandise, order.TransactionID, firstNonEmpty(order.Number, order.ID)),
		Payer:           firstNonEmpty(customer.Name, customer.Email),
		SourceID:        order.ID,
	})
}

var categoryBySource = map[paymentdomain.Source]string{
	paymentdomain.SourceDonation:     ledgerdomain.CategoryDonations,
	paymentdomain.SourceRegistration: ledgerdomain.CategoryRegistrationFees,
	paymentdomain.SourceMembership:   ledgerdomain.CategoryMembershipDues,
	paymentdomain.SourceSponsorship:  ledgerdomain.CategorySponsorships,
	paymentdomain.SourceEvent:        ledgerdomain.CategoryTournamentFees,
	paymentdomain.SourceInvoice:      ledgerdomain.CategoryOtherIncome,
	paymentdomain.SourceMerchandise:  ledgerdomain.CategoryMerchandiseSales,
	paymentdomain.SourceManual:       ledgerdomain.CategoryOtherIncome,
}

func (s *Service) RecordPayment(ctx context.Context, payment paymentdomain.Payment) (ledgerdomain.FinancialTransaction, error) {
	sourceType := string(payment.Source)
	category, ok := categoryBySource[payment.Source]
	if !ok {
		return ledgerdomain.FinancialTransaction{}, s.fail(ctx, sourceType, payment.TransactionID, domain.ErrInvalidSource)
	}

	status := ledgerdomain.TransactionStatusCompleted
	switch payment.Status {
	case paymentdomain.PaymentStatusPending:
		status = ledgerdomain.TransactionStatusPending
	case paymentdomain.PaymentStatusFailed:
		status = ledgerdomain.TransactionStatusFailed
	}

	description := strings.TrimSpace(payment.Description)
	if description == "" {
		description = category + " payment"
		if payer := strings.TrimSpace(payment.PayerName); payer != "" {
			description += " - " + payer
		}
	}
	return s.write(ctx, sourceType, ledgerdomain.AppendRequest{
		Type:            ledgerdomain.TransactionTypeIncome,
		Category:        category,
		Description:     description,
		Amount:          payment.Amount,
		Date:            payment.CreatedAt,
		PaymentMethod:   string(payment.Method),
		Status:          status,
		ReferenceNumber: payment.TransactionID,
		Payer:           firstNonEmpty(payment.PayerName, payment.PayerEmail),
		Notes:           payment.Notes,
		SourceID:        firstNonEmpty(payment.SourceID, payment.ID.String()),
	})
}

// RecordManualEntry is itself the primary write, so its errors are returned
// unwrapped.
func (s *Service) RecordManualEntry(ctx context.Context, entry domain.ManualEntry) (ledgerdomain.FinancialTransaction, error) {
	category := strings.TrimSpace(entry.Category)
	if !ledgerdomain.IsKnownCategory(category) {
		return ledgerdomain.FinancialTransaction{}, domain.ErrInvalidCategory
	}
	return s.ledger.Append(ctx, ledgerdomain.AppendRequest{
		Type:            ledgerdomain.TransactionType(entry.Type),
		Category:        category,
		Description:     entry.Description,
		Amount:          entry.Amount,
		Date:            entry.Date,
		PaymentMethod:   entry.PaymentMethod,
		ReferenceNumber: entry.ReferenceNumber,
		Payer:           entry.Payer,
		Payee:           entry.Payee,
		Notes:           entry.Notes,
		SourceType:      config.SourceManual,
		RecordedBy:      entry.RecordedBy,
	})
}

func (s *Service) RecordRefund(ctx context.Context, original ledgerdomain.FinancialTransaction, details domain.RefundDetails) (ledgerdomain.FinancialTransaction, error) {
	// Callers that do not track refund positions get the next free suffix. A
	// concurrent writer may still take it first, so a collision moves on.
	explicit := details.Sequence > 0
	if !explicit {
		seq, err := s.nextRefundSequence(ctx, original.ReferenceNumber)
		if err != nil {
			return ledgerdomain.FinancialTransaction{}, s.fail(ctx, original.SourceType, original.ReferenceNumber, err)
		}
		details.Sequence = seq
	}
	date := details.Date
	if date.IsZero() {
		date = s.clock.Now()
	}

	req := ledgerdomain.AppendRequest{
		Type:          ledgerdomain.TransactionTypeExpense,
		Category:      ledgerdomain.CategoryRefunds,
		Description:   "Refund: " + original.Description,
		Amount:        details.Amount,
		Date:          date,
		PaymentMethod: original.PaymentMethod,
		Payee:         original.Payer,
		Notes:         details.Reason,
		SourceType:    original.SourceType,
		SourceID:      original.SourceID,
		RecordedBy:    details.RefundedBy,
	}

	var (
		entry ledgerdomain.FinancialTransaction
		err   error
	)
	for attempt := 1; ; attempt++ {
		req.ReferenceNumber = reference.Refund(original.ReferenceNumber, details.Sequence)
		entry, err = s.ledger.Append(ctx, req)
		if err == nil || explicit || attempt >= refundSequenceAttempts || !errors.Is(err, ledgerdomain.ErrDuplicateReference) {
			break
		}
		details.Sequence++
	}
	if err != nil {
		return ledgerdomain.FinancialTransaction{}, s.fail(ctx, original.SourceType, req.ReferenceNumber, err)
	}

	note := fmt.Sprintf("Refunded %s on %s (%s)", details.Amount, date.Format(time.DateOnly), entry.ReferenceNumber)
	if _, err := s.ledger.MarkRefunded(ctx, original.ReferenceNumber, note); err != nil {
		return entry, s.fail(ctx, original.SourceType, original.ReferenceNumber, err)
	}
	return entry, nil
}

// nextRefundSequence returns the lowest refund position of original that has
// no ledger entry yet.
func (s *Service) nextRefundSequence(ctx context.Context, original string) (int, error) {
	for start := 1; ; start += refundLookupWindow {
		refs := make([]string, 0, refundLookupWindow)
		for n := start; n < start+refundLookupWindow; n++ {
			refs = append(refs, reference.Refund(original, n))
		}
		taken, err := s.ledger.ExistingReferences(ctx, refs)
		if err != nil {
			return 0, err
		}
		for i, ref := range refs {
			if !taken[ref] {
				return start + i, nil
			}
		}
	}
}

func (s *Service) RecordPaymentRefund(ctx context.Context, payment paymentdomain.Payment, refund paymentdomain.Refund) (ledgerdomain.FinancialTransaction, error) {
	original, err := s.ledger.GetByReference(ctx, payment.TransactionID)
	if err != nil {
		return ledgerdomain.FinancialTransaction{}, s.fail(ctx, string(payment.Source), payment.TransactionID, err)
	}
	return s.RecordRefund(ctx, original, domain.RefundDetails{
		Amount:     refund.Amount,
		Reason:     refund.Reason,
		Sequence:   refund.Sequence,
		RefundedBy: refund.RefundedBy,
		Date:       refund.RefundedAt,
	})
}

func (s *Service) write(ctx context.Context, sourceType string, req ledgerdomain.AppendRequest) (ledgerdomain.FinancialTransaction, error) {
	req.SourceType = sourceType
	entry, err := s.ledger.Append(ctx, req)
	if err != nil {
		return ledgerdomain.FinancialTransaction{}, s.fail(ctx, sourceType, req.ReferenceNumber, err)
	}
	return entry, nil
}

func (s *Service) fail(ctx context.Context, sourceType, ref string, err error) error {
	s.obsMetrics.RecordIntegrationFailure(ctx, sourceType)
	logger.WithContext(ctx, s.log).Warn("ledger integration write failed",
		zap.String("source_type", sourceType),
		zap.String("reference_number", ref),
		zap.Error(err),
	)
	var existing *domain.IntegrationWriteError
	if errors.As(err, &existing) {
		return existing
	}
	return &domain.IntegrationWriteError{SourceType: sourceType, Reference: ref, Err: err}
}

// referenceFor prefers the originating record's own transaction id, then its
// record id, and only generates a fresh reference when neither is known.
func (s *Service) referenceFor(source, transactionID, recordID string) string {
	if id := strings.TrimSpace(transactionID); id != "" {
		return id
	}
	prefix := s.finance.Get().Prefix(source)
	if id := strings.TrimSpace(recordID); id != "" {
		return reference.Derived(prefix, id)
	}
	return reference.New(prefix, s.clock.Now())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
