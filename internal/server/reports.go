package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	reportdomain "github.com/digiunlocks/soccer-club-sub006/internal/financereport/domain"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

type reportRangeQuery struct {
	From        string `form:"from"`
	To          string `form:"to"`
	Type        string `form:"type"`
	Granularity string `form:"granularity"`
}

func (s *Server) bindReportRange(c *gin.Context) (reportRangeQuery, reportdomain.DateRange, bool) {
	var query reportRangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return query, reportdomain.DateRange{}, false
	}
	from, to, err := parseRange(query.From, query.To)
	if err != nil {
		AbortWithError(c, err)
		return query, reportdomain.DateRange{}, false
	}
	return query, reportdomain.DateRange{From: from, To: to}, true
}

func (s *Server) GetSummary(c *gin.Context) {
	_, rng, ok := s.bindReportRange(c)
	if !ok {
		return
	}

	summary, err := s.reportSvc.Summary(c.Request.Context(), rng)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (s *Server) GetCategoryBreakdown(c *gin.Context) {
	query, rng, ok := s.bindReportRange(c)
	if !ok {
		return
	}

	totals, err := s.reportSvc.CategoryBreakdown(c.Request.Context(), reportdomain.CategoryBreakdownRequest{
		DateRange: rng,
		Type:      ledgerdomain.TransactionType(strings.ToLower(strings.TrimSpace(query.Type))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": totals})
}

func (s *Server) GetTrend(c *gin.Context) {
	query, rng, ok := s.bindReportRange(c)
	if !ok {
		return
	}

	req := reportdomain.TrendRequest{
		Granularity: reportdomain.Granularity(strings.ToLower(strings.TrimSpace(query.Granularity))),
	}
	if rng.From != nil {
		req.Start = *rng.From
	}
	if rng.To != nil {
		req.End = *rng.To
	}

	resp, err := s.reportSvc.Trend(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPaymentStats(c *gin.Context) {
	_, rng, ok := s.bindReportRange(c)
	if !ok {
		return
	}

	stats, err := s.reportSvc.PaymentStats(c.Request.Context(), rng)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if stats.CountByStatus == nil {
		stats.CountByStatus = map[paymentdomain.PaymentStatus]int{}
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
