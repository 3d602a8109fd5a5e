package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	integrationdomain "github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	"github.com/digiunlocks/soccer-club-sub006/internal/observability/logger"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

type createDonationRequest struct {
	Amount     money.Money                 `json:"amount"`
	Method     paymentdomain.PaymentMethod `json:"method"`
	DonorName  string                      `json:"donor_name"`
	DonorEmail string                      `json:"donor_email"`
	Anonymous  bool                        `json:"anonymous"`
	Campaign   string                      `json:"campaign"`
	Message    string                      `json:"message"`
}

// CreateDonation takes a public donation, stores the payment and mirrors it as
// donation income.
func (s *Server) CreateDonation(c *gin.Context) {
	var req createDonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	description := "Donation"
	if campaign := strings.TrimSpace(req.Campaign); campaign != "" {
		description = "Donation - " + campaign
	}

	payment, err := s.paymentSvc.Create(ctx, paymentdomain.CreatePaymentRequest{
		Source:      paymentdomain.SourceDonation,
		Amount:      req.Amount,
		Method:      req.Method,
		Status:      paymentdomain.PaymentStatusCompleted,
		Description: description,
		PayerName:   req.DonorName,
		PayerEmail:  req.DonorEmail,
		Notes:       req.Message,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var warnings []string
	_, err = s.writer.RecordDonation(ctx, integrationdomain.Donation{
		ID:            payment.ID.String(),
		TransactionID: payment.TransactionID,
		Amount:        payment.Amount,
		DonorName:     req.DonorName,
		DonorEmail:    req.DonorEmail,
		Anonymous:     req.Anonymous,
		Campaign:      req.Campaign,
		Message:       req.Message,
		PaymentMethod: string(payment.Method),
		Date:          payment.CreatedAt,
	})
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("donation saved without ledger entry",
			zap.String("transaction_id", payment.TransactionID),
			zap.Error(err),
		)
		warnings = integrationWarnings(err)
	}

	c.JSON(http.StatusCreated, gin.H{"data": payment, "warnings": warnings})
}
