package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	integrationdomain "github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/domain"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	obscontext "github.com/digiunlocks/soccer-club-sub006/internal/observability/context"
)

type listLedgerQuery struct {
	ledgerdomain.ListTransactionRequest
	From string `form:"from"`
	To   string `form:"to"`
}

type createLedgerEntryRequest struct {
	Type            string      `json:"type"`
	Category        string      `json:"category"`
	Description     string      `json:"description"`
	Amount          money.Money `json:"amount"`
	Date            *time.Time  `json:"date"`
	PaymentMethod   string      `json:"payment_method"`
	ReferenceNumber string      `json:"reference_number"`
	Payer           string      `json:"payer"`
	Payee           string      `json:"payee"`
	Notes           string      `json:"notes"`
}

func (s *Server) ListLedgerEntries(c *gin.Context) {
	var query listLedgerQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	from, to, err := parseRange(query.From, query.To)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := query.ListTransactionRequest
	req.From, req.To = from, to

	resp, err := s.ledgerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Transactions, "page_info": resp.PageInfo})
}

func (s *Server) CreateLedgerEntry(c *gin.Context) {
	var req createLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	entry := integrationdomain.ManualEntry{
		Type:            req.Type,
		Category:        req.Category,
		Description:     req.Description,
		Amount:          req.Amount,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		Payer:           req.Payer,
		Payee:           req.Payee,
		Notes:           req.Notes,
		RecordedBy:      obscontext.ActorFromContext(ctx),
	}
	if req.Date != nil {
		entry.Date = *req.Date
	}

	tx, err := s.writer.RecordManualEntry(ctx, entry)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": tx})
}

func (s *Server) GetLedgerEntry(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	tx, err := s.ledgerSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tx})
}
