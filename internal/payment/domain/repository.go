package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/digiunlocks/soccer-club-sub006/pkg/db/pagination"
)

type ListFilter struct {
	Status  PaymentStatus
	Method  PaymentMethod
	Source  Source
	PayerID string
	Payer   string
	From    *time.Time
	To      *time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*Payment, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Page) ([]*Payment, error)
	// Update writes every mutable column when the stored version still equals
	// expectedVersion, bumping it by one. It reports whether a row changed.
	Update(ctx context.Context, db *gorm.DB, payment *Payment, expectedVersion int64) (bool, error)
	// DeleteUnrefunded removes the payment only while it has no refunds.
	DeleteUnrefunded(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindInRange(ctx context.Context, db *gorm.DB, from, to *time.Time, batch int, fn func([]*Payment) error) error
}
