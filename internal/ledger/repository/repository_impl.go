package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/digiunlocks/soccer-club-sub006/internal/ledger/domain"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db/option"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db/pagination"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tx *domain.FinancialTransaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO financial_transactions (
			id, type, category, description, amount, date, payment_method, status,
			reference_number, payer, payee, notes, source_type, source_id, recorded_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.Type,
		tx.Category,
		tx.Description,
		tx.Amount,
		tx.Date,
		tx.PaymentMethod,
		tx.Status,
		tx.ReferenceNumber,
		tx.Payer,
		tx.Payee,
		tx.Notes,
		tx.SourceType,
		tx.SourceID,
		tx.RecordedBy,
		tx.CreatedAt,
		tx.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.FinancialTransaction, error) {
	var item domain.FinancialTransaction
	err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByReference(ctx context.Context, db *gorm.DB, referenceNumber string, forUpdate bool) (*domain.FinancialTransaction, error) {
	var item domain.FinancialTransaction
	stmt := db.WithContext(ctx)
	// sqlite serializes writers and has no row locks.
	if forUpdate && db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := stmt.Where("reference_number = ?", referenceNumber).Limit(1).Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Page) ([]*domain.FinancialTransaction, error) {
	var items []*domain.FinancialTransaction
	stmt := applyFilter(db.WithContext(ctx).Model(&domain.FinancialTransaction{}), filter)
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("date desc, id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) UpdateStatusAndNotes(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.TransactionStatus, notes string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE financial_transactions SET status = ?, notes = ?, updated_at = ? WHERE id = ?`,
		status,
		notes,
		updatedAt,
		id,
	).Error
}

func (r *repo) FindInBatches(ctx context.Context, db *gorm.DB, filter domain.ListFilter, batch int, fn func([]*domain.FinancialTransaction) error) error {
	var rows []*domain.FinancialTransaction
	stmt := applyFilter(db.WithContext(ctx).Model(&domain.FinancialTransaction{}), filter)
	return stmt.FindInBatches(&rows, batch, func(tx *gorm.DB, _ int) error {
		return fn(rows)
	}).Error
}

func (r *repo) ExistingReferences(ctx context.Context, db *gorm.DB, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	var found []string
	err := db.WithContext(ctx).
		Model(&domain.FinancialTransaction{}).
		Where("reference_number IN ?", refs).
		Pluck("reference_number", &found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}

func applyFilter(stmt *gorm.DB, filter domain.ListFilter) *gorm.DB {
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		stmt = stmt.Where("category = ?", category)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	return option.DateRange("date", filter.From, filter.To).Apply(stmt)
}
