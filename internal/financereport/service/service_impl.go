package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	reportdomain "github.com/digiunlocks/soccer-club-sub006/internal/financereport/domain"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
)

// maxTrendPeriods bounds one trend series: two years of days or about sixty
// years of months.
const maxTrendPeriods = 731

type Params struct {
	fx.In

	Log      *zap.Logger
	Ledger   ledgerdomain.Service
	Payments paymentdomain.Service
	Clock    clock.Clock `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	ledger   ledgerdomain.Service
	payments paymentdomain.Service
	clock    clock.Clock
}

func NewService(p Params) reportdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:      p.Log.Named("finance.report"),
		ledger:   p.Ledger,
		payments: p.Payments,
		clock:    clk,
	}
}

func (s *Service) Summary(ctx context.Context, req reportdomain.DateRange) (reportdomain.Summary, error) {
	if err := validateRange(req); err != nil {
		return reportdomain.Summary{}, err
	}

	var income, expense []money.Money
	err := s.ledger.Each(ctx, completedIn(req, ""), func(batch []*ledgerdomain.FinancialTransaction) error {
		for _, tx := range batch {
			switch tx.Type {
			case ledgerdomain.TransactionTypeIncome:
				income = append(income, tx.Amount)
			case ledgerdomain.TransactionTypeExpense:
				expense = append(expense, tx.Amount)
			}
		}
		return nil
	})
	if err != nil {
		return reportdomain.Summary{}, err
	}

	totalIncome := money.Sum(income...)
	totalExpense := money.Sum(expense...)
	return reportdomain.Summary{
		TotalIncome:  totalIncome,
		TotalExpense: totalExpense,
		NetIncome:    money.Net(totalIncome, totalExpense),
		IncomeCount:  len(income),
		ExpenseCount: len(expense),
	}, nil
}

func (s *Service) CategoryBreakdown(ctx context.Context, req reportdomain.CategoryBreakdownRequest) ([]reportdomain.CategoryTotal, error) {
	if err := validateRange(req.DateRange); err != nil {
		return nil, err
	}
	txType := ledgerdomain.TransactionType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if txType != "" && !txType.Valid() {
		return nil, reportdomain.ErrInvalidType
	}

	totals := make(map[string]*reportdomain.CategoryTotal)
	err := s.ledger.Each(ctx, completedIn(req.DateRange, txType), func(batch []*ledgerdomain.FinancialTransaction) error {
		for _, tx := range batch {
			item, ok := totals[tx.Category]
			if !ok {
				item = &reportdomain.CategoryTotal{Category: tx.Category}
				totals[tx.Category] = item
			}
			item.Total = item.Total.Add(tx.Amount)
			item.Count++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]reportdomain.CategoryTotal, 0, len(totals))
	for _, item := range totals {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *Service) Trend(ctx context.Context, req reportdomain.TrendRequest) (reportdomain.TrendResponse, error) {
	granularity := req.Granularity
	if granularity == "" {
		granularity = reportdomain.GranularityDay
	}
	if granularity != reportdomain.GranularityDay && granularity != reportdomain.GranularityMonth {
		return reportdomain.TrendResponse{}, reportdomain.ErrInvalidGranularity
	}
	if !req.Start.IsZero() && !req.End.IsZero() && req.Start.After(req.End) {
		return reportdomain.TrendResponse{}, reportdomain.ErrInvalidDateRange
	}

	start, end := normalizeRange(req, granularity, s.clock.Now())
	if periodCount(start, end, granularity) > maxTrendPeriods {
		return reportdomain.TrendResponse{}, reportdomain.ErrInvalidDateRange
	}
	rangeEnd := endOfPeriod(end, granularity)

	type bucket struct {
		income  money.Money
		expense money.Money
	}
	buckets := make(map[string]*bucket)
	err := s.ledger.Each(ctx, completedIn(reportdomain.DateRange{From: &start, To: &rangeEnd}, ""), func(batch []*ledgerdomain.FinancialTransaction) error {
		for _, tx := range batch {
			key := periodKey(tx.Date, granularity)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{}
				buckets[key] = b
			}
			if tx.Type == ledgerdomain.TransactionTypeIncome {
				b.income = b.income.Add(tx.Amount)
			} else {
				b.expense = b.expense.Add(tx.Amount)
			}
		}
		return nil
	})
	if err != nil {
		return reportdomain.TrendResponse{}, err
	}

	series := make([]reportdomain.TrendPoint, 0)
	for period := start; !period.After(end); period = nextPeriod(period, granularity) {
		key := periodKey(period, granularity)
		point := reportdomain.TrendPoint{Period: key}
		if b, ok := buckets[key]; ok {
			point.Income = b.income
			point.Expense = b.expense
		}
		point.Net = money.Net(point.Income, point.Expense)
		series = append(series, point)
	}

	s.log.Debug("trend computed",
		zap.String("granularity", string(granularity)),
		zap.Time("start", start),
		zap.Time("end", rangeEnd),
		zap.Int("points", len(series)),
	)
	return reportdomain.TrendResponse{
		Granularity: granularity,
		Series:      series,
		HasData:     len(buckets) > 0,
	}, nil
}

func (s *Service) PaymentStats(ctx context.Context, req reportdomain.DateRange) (paymentdomain.Stats, error) {
	if err := validateRange(req); err != nil {
		return paymentdomain.Stats{}, err
	}
	return s.payments.Stats(ctx, paymentdomain.StatsRequest{From: req.From, To: req.To})
}

func completedIn(req reportdomain.DateRange, txType ledgerdomain.TransactionType) ledgerdomain.ListFilter {
	return ledgerdomain.ListFilter{
		Type:   txType,
		Status: ledgerdomain.TransactionStatusCompleted,
		From:   req.From,
		To:     req.To,
	}
}

func validateRange(req reportdomain.DateRange) error {
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return reportdomain.ErrInvalidDateRange
	}
	return nil
}

func normalizeRange(req reportdomain.TrendRequest, granularity reportdomain.Granularity, now time.Time) (time.Time, time.Time) {
	start := req.Start
	end := req.End
	if end.IsZero() {
		end = now.UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -30)
	}
	start = start.UTC()
	end = end.UTC()

	switch granularity {
	case reportdomain.GranularityMonth:
		return truncateToMonth(start), truncateToMonth(end)
	default:
		return truncateToDay(start), truncateToDay(end)
	}
}

// periodCount is the number of buckets from start to end inclusive. Both are
// already truncated to granularity.
func periodCount(start, end time.Time, granularity reportdomain.Granularity) int {
	if granularity == reportdomain.GranularityMonth {
		return (end.Year()-start.Year())*12 + int(end.Month()-start.Month()) + 1
	}
	return int(end.Sub(start).Hours()/24) + 1
}

func endOfPeriod(value time.Time, granularity reportdomain.Granularity) time.Time {
	return nextPeriod(value, granularity).Add(-time.Nanosecond)
}

func nextPeriod(value time.Time, granularity reportdomain.Granularity) time.Time {
	if granularity == reportdomain.GranularityMonth {
		return value.AddDate(0, 1, 0)
	}
	return value.AddDate(0, 0, 1)
}

func periodKey(value time.Time, granularity reportdomain.Granularity) string {
	value = value.UTC()
	if granularity == reportdomain.GranularityMonth {
		return value.Format("2006-01")
	}
	return value.Format(time.DateOnly)
}

func truncateToDay(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), 1, 0, 0, 0, 0, time.UTC)
}
