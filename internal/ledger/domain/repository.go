package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/digiunlocks/soccer-club-sub006/pkg/db/pagination"
)

type ListFilter struct {
	Type     TransactionType
	Category string
	Status   TransactionStatus
	From     *time.Time
	To       *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tx *FinancialTransaction) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FinancialTransaction, error)
	FindByReference(ctx context.Context, db *gorm.DB, referenceNumber string, forUpdate bool) (*FinancialTransaction, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page) ([]*FinancialTransaction, error)
	UpdateStatusAndNotes(ctx context.Context, db *gorm.DB, id snowflake.ID, status TransactionStatus, notes string, updatedAt time.Time) error
	FindInBatches(ctx context.Context, db *gorm.DB, filter ListFilter, batch int, fn func([]*FinancialTransaction) error) error
	ExistingReferences(ctx context.Context, db *gorm.DB, refs []string) ([]string, error)
}
