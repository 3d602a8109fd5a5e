package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/digiunlocks/soccer-club-sub006/internal/payment/domain"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db/option"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db/pagination"
)

const paymentColumns = `id, transaction_id, source, source_id, amount, method, status, description,
	payer_name, payer_email, payer_id, notes, refunds, total_refunded, version, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.TransactionID,
		payment.Source,
		payment.SourceID,
		payment.Amount,
		payment.Method,
		payment.Status,
		payment.Description,
		payment.PayerName,
		payment.PayerEmail,
		payment.PayerID,
		payment.Notes,
		payment.Refunds,
		payment.TotalRefunded,
		payment.Version,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`,
		id,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) FindByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = ?`,
		transactionID,
	).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	stmt := applyFilter(db.WithContext(ctx).Model(&domain.Payment{}), filter)
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, payment *domain.Payment, expectedVersion int64) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET amount = ?, method = ?, status = ?, description = ?, payer_name = ?, payer_email = ?,
			payer_id = ?, notes = ?, refunds = ?, total_refunded = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		payment.Amount,
		payment.Method,
		payment.Status,
		payment.Description,
		payment.PayerName,
		payment.PayerEmail,
		payment.PayerID,
		payment.Notes,
		payment.Refunds,
		payment.TotalRefunded,
		payment.UpdatedAt,
		payment.ID,
		expectedVersion,
	)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	payment.Version = expectedVersion + 1
	return true, nil
}

func (r *repo) DeleteUnrefunded(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM payments WHERE id = ? AND total_refunded = 0`,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindInRange(ctx context.Context, db *gorm.DB, from, to *time.Time, batch int, fn func([]*domain.Payment) error) error {
	var rows []*domain.Payment
	stmt := option.DateRange("created_at", from, to).Apply(db.WithContext(ctx).Model(&domain.Payment{}))
	return stmt.FindInBatches(&rows, batch, func(tx *gorm.DB, _ int) error {
		return fn(rows)
	}).Error
}

func applyFilter(stmt *gorm.DB, filter domain.ListFilter) *gorm.DB {
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Method != "" {
		stmt = stmt.Where("method = ?", filter.Method)
	}
	if filter.Source != "" {
		stmt = stmt.Where("source = ?", filter.Source)
	}
	if payerID := strings.TrimSpace(filter.PayerID); payerID != "" {
		stmt = stmt.Where("payer_id = ?", payerID)
	}
	if payer := strings.ToLower(strings.TrimSpace(filter.Payer)); payer != "" {
		like := "%" + escapeLike(payer) + "%"
		stmt = stmt.Where("(LOWER(payer_name) LIKE ? ESCAPE '!' OR LOWER(payer_email) LIKE ? ESCAPE '!')", like, like)
	}
	return option.DateRange("created_at", filter.From, filter.To).Apply(stmt)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}
