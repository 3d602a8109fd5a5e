package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/digiunlocks/soccer-club-sub006/internal/audit/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	"github.com/digiunlocks/soccer-club-sub006/internal/config"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	obscontext "github.com/digiunlocks/soccer-club-sub006/internal/observability/context"
	obsmetrics "github.com/digiunlocks/soccer-club-sub006/internal/observability/metrics"
	"github.com/digiunlocks/soccer-club-sub006/internal/reference"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db/pagination"
)

const (
	scanBatchSize = 500
	systemActor   = "system"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       ledgerdomain.Repository
	AuditSvc   auditdomain.Service         `optional:"true"`
	Clock      clock.Clock                 `optional:"true"`
	Finance    *config.FinanceConfigHolder `optional:"true"`
	ObsMetrics *obsmetrics.Metrics         `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       ledgerdomain.Repository
	auditSvc   auditdomain.Service
	clock      clock.Clock
	finance    *config.FinanceConfigHolder
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	finance := p.Finance
	if finance == nil {
		finance = config.NewStaticFinanceConfigHolder(config.DefaultFinanceConfig())
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		clock:      clk,
		finance:    finance,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Append(ctx context.Context, req ledgerdomain.AppendRequest) (ledgerdomain.FinancialTransaction, error) {
	txType := ledgerdomain.TransactionType(strings.ToLower(strings.TrimSpace(string(req.Type))))
	if !txType.Valid() {
		return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrInvalidType
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrInvalidCategory
	}
	if !req.Amount.IsPositive() {
		return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrInvalidAmount
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrInvalidDescription
	}
	status := ledgerdomain.TransactionStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	if status == "" {
		status = ledgerdomain.TransactionStatusCompleted
	}
	if !status.Valid() {
		return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrInvalidStatus
	}

	now := s.clock.Now()
	date := req.Date
	if date.IsZero() {
		date = now
	}
	ref := strings.TrimSpace(req.ReferenceNumber)
	if ref == "" {
		ref = reference.New(s.finance.Get().Prefix(config.SourceLedger), now)
	}
	recordedBy := strings.TrimSpace(req.RecordedBy)
	if recordedBy == "" {
		recordedBy = obscontext.ActorFromContext(ctx)
	}
	if recordedBy == "" {
		recordedBy = systemActor
	}

	entry := ledgerdomain.FinancialTransaction{
		ID:              s.genID.Generate(),
		Type:            txType,
		Category:        category,
		Description:     description,
		Amount:          req.Amount,
		Date:            date.UTC(),
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		Status:          status,
		ReferenceNumber: ref,
		Payer:           strings.TrimSpace(req.Payer),
		Payee:           strings.TrimSpace(req.Payee),
		Notes:           strings.TrimSpace(req.Notes),
		SourceType:      strings.TrimSpace(req.SourceType),
		SourceID:        strings.TrimSpace(req.SourceID),
		RecordedBy:      recordedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrDuplicateReference
		}
		return ledgerdomain.FinancialTransaction{}, err
	}

	s.obsMetrics.RecordLedgerEntry(ctx, string(entry.Type), entry.Category)
	s.log.Debug("ledger entry appended",
		zap.String("reference_number", entry.ReferenceNumber),
		zap.String("type", string(entry.Type)),
		zap.String("category", entry.Category),
		zap.String("amount", entry.Amount.String()),
	)
	return entry, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (ledgerdomain.FinancialTransaction, error) {
	if id == 0 {
		return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return ledgerdomain.FinancialTransaction{}, err
	}
	if item == nil {
		return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByReference(ctx context.Context, referenceNumber string) (ledgerdomain.FinancialTransaction, error) {
	referenceNumber = strings.TrimSpace(referenceNumber)
	if referenceNumber == "" {
		return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrInvalidReference
	}
	item, err := s.repo.FindByReference(ctx, s.db, referenceNumber, false)
	if err != nil {
		return ledgerdomain.FinancialTransaction{}, err
	}
	if item == nil {
		return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req ledgerdomain.ListTransactionRequest) (ledgerdomain.ListTransactionResponse, error) {
	filter, err := validateFilter(ledgerdomain.ListFilter{
		Type:     req.Type,
		Category: req.Category,
		Status:   req.Status,
		From:     req.From,
		To:       req.To,
	})
	if err != nil {
		return ledgerdomain.ListTransactionResponse{}, err
	}

	cfg := s.finance.Get()
	page := req.Page.Normalize(cfg.DefaultPageSize, cfg.MaxPageSize)
	items, err := s.repo.List(ctx, s.db, filter, page)
	if err != nil {
		return ledgerdomain.ListTransactionResponse{}, err
	}

	items, pageInfo := pagination.BuildPageInfo(items, page)
	out := make([]ledgerdomain.FinancialTransaction, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return ledgerdomain.ListTransactionResponse{PageInfo: pageInfo, Transactions: out}, nil
}

func (s *Service) MarkRefunded(ctx context.Context, referenceNumber, note string) (ledgerdomain.FinancialTransaction, error) {
	referenceNumber = strings.TrimSpace(referenceNumber)
	if referenceNumber == "" {
		return ledgerdomain.FinancialTransaction{}, ledgerdomain.ErrInvalidReference
	}
	note = strings.TrimSpace(note)

	var updated ledgerdomain.FinancialTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByReference(ctx, tx, referenceNumber, true)
		if err != nil {
			return err
		}
		if item == nil {
			return ledgerdomain.ErrNotFound
		}

		notes := item.Notes
		if note != "" {
			if notes != "" {
				notes += "\n"
			}
			notes += note
		}
		now := s.clock.Now()
		if err := s.repo.UpdateStatusAndNotes(ctx, tx, item.ID, ledgerdomain.TransactionStatusRefunded, notes, now); err != nil {
			return err
		}

		updated = *item
		updated.Status = ledgerdomain.TransactionStatusRefunded
		updated.Notes = notes
		updated.UpdatedAt = now
		return nil
	})
	if err != nil {
		return ledgerdomain.FinancialTransaction{}, err
	}

	if s.auditSvc != nil {
		if err := s.auditSvc.AuditLog(ctx, "", "ledger.marked_refunded", "financial_transaction", updated.ID.String(), map[string]any{
			"reference_number": updated.ReferenceNumber,
			"note":             note,
		}); err != nil {
			s.log.Warn("failed to write ledger audit log", zap.Error(err))
		}
	}
	return updated, nil
}

func (s *Service) Each(ctx context.Context, filter ledgerdomain.ListFilter, fn func([]*ledgerdomain.FinancialTransaction) error) error {
	filter, err := validateFilter(filter)
	if err != nil {
		return err
	}
	return s.repo.FindInBatches(ctx, s.db, filter, scanBatchSize, fn)
}

func (s *Service) ExistingReferences(ctx context.Context, refs []string) (map[string]bool, error) {
	found, err := s.repo.ExistingReferences(ctx, s.db, refs)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(found))
	for _, ref := range found {
		out[ref] = true
	}
	return out, nil
}

func validateFilter(filter ledgerdomain.ListFilter) (ledgerdomain.ListFilter, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return filter, ledgerdomain.ErrInvalidDateRange
	}
	filter.Type = ledgerdomain.TransactionType(strings.ToLower(strings.TrimSpace(string(filter.Type))))
	if filter.Type != "" && !filter.Type.Valid() {
		return filter, ledgerdomain.ErrInvalidType
	}
	filter.Status = ledgerdomain.TransactionStatus(strings.ToLower(strings.TrimSpace(string(filter.Status))))
	if filter.Status != "" && !filter.Status.Valid() {
		return filter, ledgerdomain.ErrInvalidStatus
	}
	filter.Category = strings.TrimSpace(filter.Category)
	return filter, nil
}
