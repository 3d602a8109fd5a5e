package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	obscontext "github.com/digiunlocks/soccer-club-sub006/internal/observability/context"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

const systemActor = "system"

// Refund returns part or all of a payment's remaining amount. The payment row
// is written with a version guard so two concurrent refunds can never push
// totalRefunded past amount; a lost race re-reads and re-validates.
func (s *Service) Refund(ctx context.Context, req paymentdomain.RefundRequest) (paymentdomain.RefundResult, error) {
	if req.PaymentID == 0 {
		return paymentdomain.RefundResult{}, paymentdomain.ErrInvalidID
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		actor = obscontext.ActorFromContext(ctx)
	}
	if actor == "" {
		actor = systemActor
	}

	attempts := s.finance.Get().RefundRetryAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		current, err := s.repo.FindByID(ctx, s.db, req.PaymentID)
		if err != nil {
			return paymentdomain.RefundResult{}, err
		}
		if current == nil {
			return paymentdomain.RefundResult{}, paymentdomain.ErrNotFound
		}
		// A fully refunded payment has no balance left, which is an amount
		// error rather than a state error.
		if current.Status == paymentdomain.PaymentStatusRefunded {
			return paymentdomain.RefundResult{}, paymentdomain.ErrInvalidAmount
		}
		if !current.Status.Refundable() {
			return paymentdomain.RefundResult{}, paymentdomain.ErrInvalidState
		}
		if !req.Amount.IsPositive() || req.Amount.GreaterThan(current.Remaining()) {
			return paymentdomain.RefundResult{}, paymentdomain.ErrInvalidAmount
		}

		updated, refund := s.applyRefund(*current, req, actor)
		ok, err := s.repo.Update(ctx, s.db, &updated, current.Version)
		if err != nil {
			return paymentdomain.RefundResult{}, err
		}
		if !ok {
			s.log.Debug("refund lost version race, retrying",
				zap.String("payment_id", current.ID.String()),
				zap.Int("attempt", attempt),
			)
			continue
		}

		s.obsMetrics.RecordRefund(ctx, string(refund.RefundType), refund.Amount.Cents())
		s.log.Info("payment refunded",
			zap.String("payment_id", updated.ID.String()),
			zap.String("transaction_id", updated.TransactionID),
			zap.String("amount", refund.Amount.String()),
			zap.String("refund_type", string(refund.RefundType)),
			zap.String("status", string(updated.Status)),
		)
		s.audit(ctx, actor, "payment.refunded", updated.ID, map[string]any{
			"refund_id":      refund.ID.String(),
			"amount":         refund.Amount.String(),
			"reason":         refund.Reason,
			"refund_type":    string(refund.RefundType),
			"total_refunded": updated.TotalRefunded.String(),
		})
		return paymentdomain.RefundResult{Payment: updated, Refund: refund}, nil
	}

	return paymentdomain.RefundResult{}, paymentdomain.ErrConcurrentModification
}

// applyRefund derives the post-refund payment. A refund is full exactly when
// it brings totalRefunded up to amount.
func (s *Service) applyRefund(current paymentdomain.Payment, req paymentdomain.RefundRequest, actor string) (paymentdomain.Payment, paymentdomain.Refund) {
	now := s.clock.Now()
	total := current.TotalRefunded.Add(req.Amount)

	refund := paymentdomain.Refund{
		ID:         s.genID.Generate(),
		Sequence:   len(current.Refunds) + 1,
		Amount:     req.Amount,
		Reason:     strings.TrimSpace(req.Reason),
		RefundType: paymentdomain.RefundTypePartial,
		Status:     paymentdomain.RefundStatusProcessed,
		RefundedAt: now,
		RefundedBy: actor,
	}
	status := paymentdomain.PaymentStatusPartial
	if total.Equal(current.Amount) {
		refund.RefundType = paymentdomain.RefundTypeFull
		status = paymentdomain.PaymentStatusRefunded
	}

	refunds := make([]paymentdomain.Refund, 0, len(current.Refunds)+1)
	refunds = append(refunds, current.Refunds...)
	refunds = append(refunds, refund)

	updated := current
	updated.Refunds = refunds
	updated.TotalRefunded = total
	updated.Status = status
	updated.UpdatedAt = now
	return updated, refund
}
