package domain

import (
	"context"
	"errors"
	"time"

	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// DateRange bounds a report by ledger date. Nil bounds are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

type Summary struct {
	TotalIncome  money.Money   `json:"total_income"`
	TotalExpense money.Money   `json:"total_expense"`
	NetIncome    money.Balance `json:"net_income"`
	IncomeCount  int           `json:"income_count"`
	ExpenseCount int           `json:"expense_count"`
}

type CategoryBreakdownRequest struct {
	DateRange
	Type ledgerdomain.TransactionType
}

type CategoryTotal struct {
	Category string      `json:"category"`
	Total    money.Money `json:"total"`
	Count    int         `json:"count"`
}

type TrendRequest struct {
	Start       time.Time
	End         time.Time
	Granularity Granularity
}

type TrendPoint struct {
	Period  string        `json:"period"`
	Income  money.Money   `json:"income"`
	Expense money.Money   `json:"expense"`
	Net     money.Balance `json:"net"`
}

type TrendResponse struct {
	Granularity Granularity  `json:"granularity"`
	Series      []TrendPoint `json:"series"`
	HasData     bool         `json:"has_data"`
}

// Service computes every figure from raw ledger and payment rows on each
// call; no total is cached.
type Service interface {
	Summary(ctx context.Context, req DateRange) (Summary, error)
	CategoryBreakdown(ctx context.Context, req CategoryBreakdownRequest) ([]CategoryTotal, error)
	Trend(ctx context.Context, req TrendRequest) (TrendResponse, error)
	PaymentStats(ctx context.Context, req DateRange) (paymentdomain.Stats, error)
}

var (
	ErrInvalidDateRange   = errors.New("invalid_date_range")
	ErrInvalidType        = errors.New("invalid_type")
	ErrInvalidGranularity = errors.New("invalid_granularity")
)
