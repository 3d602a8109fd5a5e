package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/digiunlocks/soccer-club-sub006/internal/observability/logger"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

type listPaymentsQuery struct {
	paymentdomain.ListPaymentRequest
	From string `form:"from"`
	To   string `form:"to"`
}

func (s *Server) ListPayments(c *gin.Context) {
	var query listPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, to, err := parseRange(query.From, query.To)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := query.ListPaymentRequest
	req.From, req.To = from, to

	resp, err := s.paymentSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Payments, "page_info": resp.PageInfo})
}

func (s *Server) CreatePayment(c *gin.Context) {
	var req paymentdomain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	payment, err := s.paymentSvc.Create(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var warnings []string
	if payment.Status == paymentdomain.PaymentStatusCompleted {
		if _, err := s.writer.RecordPayment(ctx, payment); err != nil {
			logger.WithContext(ctx, s.log).Warn("payment saved without ledger entry",
				zap.String("transaction_id", payment.TransactionID),
				zap.Error(err),
			)
			warnings = integrationWarnings(err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"data": payment, "warnings": warnings})
}

func (s *Server) GetPayment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	payment, err := s.paymentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (s *Server) UpdatePayment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req paymentdomain.UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = id

	payment, err := s.paymentSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": payment})
}

func (s *Server) DeletePayment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	if err := s.paymentSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
