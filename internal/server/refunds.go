package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	obscontext "github.com/digiunlocks/soccer-club-sub006/internal/observability/context"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability/logger"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

// RefundPayment records the refund on the payment first. The ledger mirror is
// best effort: a failure there is reported as a warning and left for the
// reconciler.
func (s *Server) RefundPayment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req paymentdomain.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	ctx := c.Request.Context()
	req.PaymentID = id
	req.Actor = obscontext.ActorFromContext(ctx)

	result, err := s.paymentSvc.Refund(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var warnings []string
	if _, err := s.writer.RecordPaymentRefund(ctx, result.Payment, result.Refund); err != nil {
		logger.WithContext(ctx, s.log).Warn("refund saved without ledger entry",
			zap.String("transaction_id", result.Payment.TransactionID),
			zap.Int("sequence", result.Refund.Sequence),
			zap.Error(err),
		)
		warnings = integrationWarnings(err)
	}

	c.JSON(http.StatusOK, gin.H{"data": result, "warnings": warnings})
}
