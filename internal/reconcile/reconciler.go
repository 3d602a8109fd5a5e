// Package reconcile backfills ledger entries for payments and refunds whose
// best-effort mirror failed.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/digiunlocks/soccer-club-sub006/internal/clock"
	integrationdomain "github.com/digiunlocks/soccer-club-sub006/internal/financeintegration/domain"
	ledgerdomain "github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/lock"
	obscontext "github.com/digiunlocks/soccer-club-sub006/internal/observability/context"
	obsmetrics "github.com/digiunlocks/soccer-club-sub006/internal/observability/metrics"
	paymentdomain "github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
	"github.com/digiunlocks/soccer-club-sub006/internal/reference"
)

const (
	JobMirrorPayments = "mirror_payments"
	JobMirrorRefunds  = "mirror_refunds"

	actor = "reconciler"
)

var ErrInvalidConfig = errors.New("invalid_reconcile_config")

type Params struct {
	fx.In

	Log      *zap.Logger
	Payments paymentdomain.Service
	Ledger   ledgerdomain.Service
	Writer   integrationdomain.Service
	Config   Config                       `optional:"true"`
	Locker   *lock.Locker                 `optional:"true"`
	Clock    clock.Clock                  `optional:"true"`
	Metrics  *obsmetrics.ReconcileMetrics `optional:"true"`
}

type Reconciler struct {
	log      *zap.Logger
	cfg      Config
	payments paymentdomain.Service
	ledger   ledgerdomain.Service
	writer   integrationdomain.Service
	locker   *lock.Locker
	clock    clock.Clock
	metrics  *obsmetrics.ReconcileMetrics
}

// Report summarises one RunOnce.
type Report struct {
	PaymentsMirrored int
	RefundsMirrored  int
	Skipped          bool
}

func New(p Params) (*Reconciler, error) {
	if p.Log == nil || p.Payments == nil || p.Ledger == nil || p.Writer == nil {
		return nil, ErrInvalidConfig
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Reconciler{
		log:      p.Log.Named("reconcile"),
		cfg:      p.Config.withDefaults(),
		payments: p.Payments,
		ledger:   p.Ledger,
		writer:   p.Writer,
		locker:   p.Locker,
		clock:    clk,
		metrics:  p.Metrics,
	}, nil
}

// RunOnce mirrors missing payments first so that refunds found in the same
// run have an original entry to point at.
func (r *Reconciler) RunOnce(parent context.Context) (Report, error) {
	var report Report
	run := func(ctx context.Context) error {
		var err error
		err = errors.Join(err, r.runJob(ctx, JobMirrorPayments, func(ctx context.Context) (int, error) {
			n, err := r.mirrorPayments(ctx)
			report.PaymentsMirrored = n
			return n, err
		}))
		err = errors.Join(err, r.runJob(ctx, JobMirrorRefunds, func(ctx context.Context) (int, error) {
			n, err := r.mirrorRefunds(ctx)
			report.RefundsMirrored = n
			return n, err
		}))
		return err
	}

	ctx := obscontext.WithActor(parent, actor)
	if r.locker == nil {
		return report, run(ctx)
	}

	acquired, err := r.locker.WithLock(ctx, r.cfg.LockKey, r.cfg.RunInterval, run)
	if err != nil {
		return report, err
	}
	if !acquired {
		report.Skipped = true
		if r.metrics != nil {
			r.metrics.IncLockSkipped(JobMirrorPayments)
		}
		r.log.Debug("reconcile skipped, lock held by another instance")
	}
	return report, nil
}

func (r *Reconciler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.RunInterval)
	defer ticker.Stop()

	for {
		report, err := r.RunOnce(ctx)
		if err != nil {
			r.log.Warn("reconcile run failed", zap.Error(err))
		} else if report.PaymentsMirrored > 0 || report.RefundsMirrored > 0 {
			r.log.Info("reconcile backfilled ledger",
				zap.Int("payments", report.PaymentsMirrored),
				zap.Int("refunds", report.RefundsMirrored),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (r *Reconciler) runJob(parent context.Context, name string, fn func(ctx context.Context) (int, error)) error {
	start := r.clock.Now()
	ctx, cancel := context.WithTimeout(parent, r.cfg.JobTimeout)
	defer cancel()

	if r.metrics != nil {
		r.metrics.IncJobRun(name)
	}
	mirrored, err := fn(ctx)
	if r.metrics != nil {
		r.metrics.ObserveJobDuration(name, r.clock.Now().Sub(start))
		r.metrics.AddMirrored(name, mirrored)
	}
	if err == nil {
		return nil
	}
	if r.metrics != nil {
		r.metrics.IncJobError(name)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		r.log.Warn("reconcile job timed out", zap.String("job", name), zap.Duration("timeout", r.cfg.JobTimeout))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (r *Reconciler) mirrorPayments(ctx context.Context) (int, error) {
	mirrored := 0
	var jobErr error
	err := r.payments.Each(ctx, paymentdomain.StatsRequest{}, r.cfg.BatchSize, func(batch []*paymentdomain.Payment) error {
		refs := make([]string, 0, len(batch))
		for _, p := range batch {
			if collected(p.Status) {
				refs = append(refs, p.TransactionID)
			}
		}
		existing, err := r.ledger.ExistingReferences(ctx, refs)
		if err != nil {
			return err
		}
		for _, p := range batch {
			if !collected(p.Status) || existing[p.TransactionID] {
				continue
			}
			if _, err := r.writer.RecordPayment(ctx, *p); err != nil {
				jobErr = errors.Join(jobErr, err)
				continue
			}
			mirrored++
		}
		return ctx.Err()
	})
	return mirrored, errors.Join(err, jobErr)
}

func (r *Reconciler) mirrorRefunds(ctx context.Context) (int, error) {
	mirrored := 0
	var jobErr error
	err := r.payments.Each(ctx, paymentdomain.StatsRequest{}, r.cfg.BatchSize, func(batch []*paymentdomain.Payment) error {
		var refs []string
		for _, p := range batch {
			for _, refund := range p.Refunds {
				if refund.Status == paymentdomain.RefundStatusProcessed {
					refs = append(refs, reference.Refund(p.TransactionID, refund.Sequence))
				}
			}
		}
		if len(refs) == 0 {
			return ctx.Err()
		}
		existing, err := r.ledger.ExistingReferences(ctx, refs)
		if err != nil {
			return err
		}
		for _, p := range batch {
			for _, refund := range p.Refunds {
				if refund.Status != paymentdomain.RefundStatusProcessed {
					continue
				}
				if existing[reference.Refund(p.TransactionID, refund.Sequence)] {
					continue
				}
				if _, err := r.writer.RecordPaymentRefund(ctx, *p, refund); err != nil {
					jobErr = errors.Join(jobErr, err)
					continue
				}
				mirrored++
			}
		}
		return ctx.Err()
	})
	return mirrored, errors.Join(err, jobErr)
}

func collected(status paymentdomain.PaymentStatus) bool {
	switch status {
	case paymentdomain.PaymentStatusCompleted, paymentdomain.PaymentStatusPartial, paymentdomain.PaymentStatusRefunded:
		return true
	}
	return false
}
