package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/digiunlocks/soccer-club-sub006/internal/audit/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	"github.com/digiunlocks/soccer-club-sub006/internal/config"
	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	obscontext "github.com/digiunlocks/soccer-club-sub006/internal/observability/context"
	obsmetrics "github.com/digiunlocks/soccer-club-sub006/internal/observability/metrics"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/reference"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db/pagination"
)

const (
	maxReferenceAttempts = 5
	statsBatchSize       = 500
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	AuditSvc   auditdomain.Service         `optional:"true"`
	Clock      clock.Clock                 `optional:"true"`
	Finance    *config.FinanceConfigHolder `optional:"true"`
	ObsMetrics *obsmetrics.Metrics         `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	auditSvc   auditdomain.Service
	clock      clock.Clock
	finance    *config.FinanceConfigHolder
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
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
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		auditSvc:   p.AuditSvc,
		clock:      clk,
		finance:    finance,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Create(ctx context.Context, req paymentdomain.CreatePaymentRequest) (paymentdomain.Payment, error) {
	if !req.Amount.IsPositive() {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidAmount
	}
	method := paymentdomain.PaymentMethod(strings.ToLower(strings.TrimSpace(string(req.Method))))
	if !method.Valid() {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidMethod
	}
	source := paymentdomain.Source(strings.ToLower(strings.TrimSpace(string(req.Source))))
	if source == "" {
		source = paymentdomain.SourceManual
	}
	if !source.Valid() {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidSource
	}
	status := paymentdomain.PaymentStatus(strings.ToLower(strings.TrimSpace(string(req.Status))))
	switch status {
	case "":
		status = paymentdomain.PaymentStatusCompleted
	case paymentdomain.PaymentStatusPending, paymentdomain.PaymentStatusCompleted, paymentdomain.PaymentStatusFailed:
	default:
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidStatus
	}

	now := s.clock.Now()
	payment := paymentdomain.Payment{
		ID:            s.genID.Generate(),
		Source:        source,
		SourceID:      strings.TrimSpace(req.SourceID),
		Amount:        req.Amount,
		Method:        method,
		Status:        status,
		Description:   strings.TrimSpace(req.Description),
		PayerName:     strings.TrimSpace(req.PayerName),
		PayerEmail:    strings.ToLower(strings.TrimSpace(req.PayerEmail)),
		PayerID:       strings.TrimSpace(req.PayerID),
		Notes:         strings.TrimSpace(req.Notes),
		Refunds:       datatypes.JSONSlice[paymentdomain.Refund]{},
		TotalRefunded: money.Zero(),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if provided := strings.TrimSpace(req.TransactionID); provided != "" {
		payment.TransactionID = provided
		if err := s.repo.Insert(ctx, s.db, &payment); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return paymentdomain.Payment{}, paymentdomain.ErrDuplicateReference
			}
			return paymentdomain.Payment{}, err
		}
	} else if err := s.insertWithGeneratedReference(ctx, &payment); err != nil {
		return paymentdomain.Payment{}, err
	}

	s.obsMetrics.RecordPaymentCreated(ctx, string(payment.Method), string(payment.Status))
	s.log.Info("payment created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("transaction_id", payment.TransactionID),
		zap.String("source", string(payment.Source)),
		zap.String("amount", payment.Amount.String()),
	)
	return payment, nil
}

// insertWithGeneratedReference retries on the rare collision of a generated
// transaction id.
func (s *Service) insertWithGeneratedReference(ctx context.Context, payment *paymentdomain.Payment) error {
	prefix := s.finance.Get().Prefix(string(payment.Source))
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		payment.TransactionID = reference.New(prefix, s.clock.Now())
		err := s.repo.Insert(ctx, s.db, payment)
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
		s.log.Warn("generated transaction id collided, retrying",
			zap.String("transaction_id", payment.TransactionID),
			zap.Int("attempt", attempt+1),
		)
	}
	return paymentdomain.ErrReferenceGenerationFail
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (paymentdomain.Payment, error) {
	if id == 0 {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if item == nil {
		return paymentdomain.Payment{}, paymentdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) GetByTransactionID(ctx context.Context, transactionID string) (paymentdomain.Payment, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidID
	}
	item, err := s.repo.FindByTransactionID(ctx, s.db, transactionID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if item == nil {
		return paymentdomain.Payment{}, paymentdomain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req paymentdomain.ListPaymentRequest) (paymentdomain.ListPaymentResponse, error) {
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidDateRange
	}
	if req.Status != "" && !req.Status.Valid() {
		return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidStatus
	}
	if req.Method != "" && !req.Method.Valid() {
		return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidMethod
	}
	if req.Source != "" && !req.Source.Valid() {
		return paymentdomain.ListPaymentResponse{}, paymentdomain.ErrInvalidSource
	}

	cfg := s.finance.Get()
	page := req.Page.Normalize(cfg.DefaultPageSize, cfg.MaxPageSize)
	items, err := s.repo.List(ctx, s.db, paymentdomain.ListFilter{
		Status:  req.Status,
		Method:  req.Method,
		Source:  req.Source,
		PayerID: req.PayerID,
		Payer:   req.Payer,
		From:    req.From,
		To:      req.To,
	}, page)
	if err != nil {
		return paymentdomain.ListPaymentResponse{}, err
	}

	items, pageInfo := pagination.BuildPageInfo(items, page)
	payments := make([]paymentdomain.Payment, 0, len(items))
	for _, item := range items {
		payments = append(payments, *item)
	}
	return paymentdomain.ListPaymentResponse{PageInfo: pageInfo, Payments: payments}, nil
}

func (s *Service) Update(ctx context.Context, req paymentdomain.UpdatePaymentRequest) (paymentdomain.Payment, error) {
	if req.Refunds != nil || req.TotalRefunded != nil {
		return paymentdomain.Payment{}, paymentdomain.ErrInvalidState
	}
	current, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	hasRefunds := len(current.Refunds) > 0 || current.TotalRefunded.IsPositive()

	updated := current
	changes := map[string]any{}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			return paymentdomain.Payment{}, paymentdomain.ErrInvalidAmount
		}
		if hasRefunds && !req.Amount.Equal(current.Amount) {
			return paymentdomain.Payment{}, paymentdomain.ErrHasRefunds
		}
		updated.Amount = *req.Amount
		changes["amount"] = req.Amount.String()
	}
	if req.Method != nil {
		method := paymentdomain.PaymentMethod(strings.ToLower(strings.TrimSpace(string(*req.Method))))
		if !method.Valid() {
			return paymentdomain.Payment{}, paymentdomain.ErrInvalidMethod
		}
		updated.Method = method
		changes["method"] = string(method)
	}
	if req.Status != nil {
		next := paymentdomain.PaymentStatus(strings.ToLower(strings.TrimSpace(string(*req.Status))))
		if err := validateStatusChange(current.Status, next, hasRefunds); err != nil {
			return paymentdomain.Payment{}, err
		}
		updated.Status = next
		changes["status"] = string(next)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.PayerName != nil {
		updated.PayerName = strings.TrimSpace(*req.PayerName)
		changes["payer_name"] = updated.PayerName
	}
	if req.PayerEmail != nil {
		updated.PayerEmail = strings.ToLower(strings.TrimSpace(*req.PayerEmail))
		changes["payer_email"] = updated.PayerEmail
	}
	if req.PayerID != nil {
		updated.PayerID = strings.TrimSpace(*req.PayerID)
	}
	if req.Notes != nil {
		updated.Notes = strings.TrimSpace(*req.Notes)
	}
	updated.UpdatedAt = s.clock.Now()

	ok, err := s.repo.Update(ctx, s.db, &updated, current.Version)
	if err != nil {
		return paymentdomain.Payment{}, err
	}
	if !ok {
		return paymentdomain.Payment{}, paymentdomain.ErrConcurrentModification
	}

	s.audit(ctx, "", "payment.updated", updated.ID, changes)
	return updated, nil
}

// validateStatusChange allows pending -> completed|failed and, while nothing
// has been refunded, completed -> failed. partial and refunded are reachable
// only through refunds.
func validateStatusChange(from, to paymentdomain.PaymentStatus, hasRefunds bool) error {
	if !to.Valid() {
		return paymentdomain.ErrInvalidStatus
	}
	if from == to {
		return nil
	}
	switch {
	case to == paymentdomain.PaymentStatusPartial, to == paymentdomain.PaymentStatusRefunded:
		return paymentdomain.ErrInvalidState
	case from == paymentdomain.PaymentStatusPending && (to == paymentdomain.PaymentStatusCompleted || to == paymentdomain.PaymentStatusFailed):
		return nil
	case from == paymentdomain.PaymentStatusCompleted && to == paymentdomain.PaymentStatusFailed && !hasRefunds:
		return nil
	default:
		return paymentdomain.ErrInvalidState
	}
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if len(current.Refunds) > 0 || current.TotalRefunded.IsPositive() {
		return paymentdomain.ErrHasRefunds
	}

	deleted, err := s.repo.DeleteUnrefunded(ctx, s.db, id)
	if err != nil {
		return err
	}
	if !deleted {
		// Either removed or refunded since the read above.
		if _, err := s.GetByID(ctx, id); err != nil {
			return err
		}
		return paymentdomain.ErrHasRefunds
	}

	s.audit(ctx, "", "payment.deleted", id, map[string]any{
		"transaction_id": current.TransactionID,
		"amount":         current.Amount.String(),
	})
	return nil
}

func (s *Service) Stats(ctx context.Context, req paymentdomain.StatsRequest) (paymentdomain.Stats, error) {
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return paymentdomain.Stats{}, paymentdomain.ErrInvalidDateRange
	}

	stats := paymentdomain.Stats{CountByStatus: map[paymentdomain.PaymentStatus]int{}}
	gross := money.Zero()
	refunded := money.Zero()
	err := s.repo.FindInRange(ctx, s.db, req.From, req.To, statsBatchSize, func(batch []*paymentdomain.Payment) error {
		for _, p := range batch {
			stats.CountByStatus[p.Status]++
			switch p.Status {
			case paymentdomain.PaymentStatusCompleted, paymentdomain.PaymentStatusPartial, paymentdomain.PaymentStatusRefunded:
				gross = gross.Add(p.Amount)
				refunded = refunded.Add(p.TotalRefunded)
			}
		}
		return nil
	})
	if err != nil {
		return paymentdomain.Stats{}, err
	}

	net, err := gross.Sub(refunded)
	if err != nil {
		return paymentdomain.Stats{}, err
	}
	stats.GrossCollected = gross
	stats.TotalRefunded = refunded
	stats.NetCollected = net
	return stats, nil
}

func (s *Service) Each(ctx context.Context, req paymentdomain.StatsRequest, batch int, fn func([]*paymentdomain.Payment) error) error {
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return paymentdomain.ErrInvalidDateRange
	}
	if batch <= 0 {
		batch = statsBatchSize
	}
	return s.repo.FindInRange(ctx, s.db, req.From, req.To, batch, fn)
}

func (s *Service) audit(ctx context.Context, actor, action string, id snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if actor == "" {
		actor = obscontext.ActorFromContext(ctx)
	}
	if err := s.auditSvc.AuditLog(ctx, actor, action, "payment", id.String(), metadata); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("payment_id", id.String()),
			zap.Error(err),
		)
	}
}
