package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db/pagination"
)

type CreatePaymentRequest struct {
	// TransactionID is optional; one is generated when empty.
	TransactionID string        `json:"transaction_id"`
	Source        Source        `json:"source"`
	SourceID      string        `json:"source_id"`
	Amount        money.Money   `json:"amount"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	Description   string        `json:"description"`
	PayerName     string        `json:"payer_name"`
	PayerEmail    string        `json:"payer_email"`
	PayerID       string        `json:"payer_id"`
	Notes         string        `json:"notes"`
}

// UpdatePaymentRequest carries the mutable fields; nil means unchanged.
type UpdatePaymentRequest struct {
	ID          snowflake.ID   `json:"-"`
	Amount      *money.Money   `json:"amount"`
	Method      *PaymentMethod `json:"method"`
	Status      *PaymentStatus `json:"status"`
	Description *string        `json:"description"`
	PayerName   *string        `json:"payer_name"`
	PayerEmail  *string        `json:"payer_email"`
	PayerID     *string        `json:"payer_id"`
	Notes       *string        `json:"notes"`

	// Refund bookkeeping is owned by the refund engine. Any value here is
	// rejected.
	Refunds       *[]Refund    `json:"refunds,omitempty"`
	TotalRefunded *money.Money `json:"total_refunded,omitempty"`
}

type ListPaymentRequest struct {
	pagination.Page
	Status  PaymentStatus `form:"status"`
	Method  PaymentMethod `form:"method"`
	Source  Source        `form:"source"`
	PayerID string        `form:"payer_id"`
	Payer   string        `form:"payer"`
	From    *time.Time    `form:"-"`
	To      *time.Time    `form:"-"`
}

type ListPaymentResponse struct {
	pagination.PageInfo
	Payments []Payment `json:"payments"`
}

type RefundRequest struct {
	PaymentID snowflake.ID `json:"-"`
	Amount    money.Money  `json:"amount"`
	Reason    string       `json:"reason"`
	Actor     string       `json:"-"`
}

// RefundResult is the updated payment plus the refund that was just appended.
type RefundResult struct {
	Payment Payment `json:"payment"`
	Refund  Refund  `json:"refund"`
}

type StatsRequest struct {
	From *time.Time
	To   *time.Time
}

type Stats struct {
	GrossCollected money.Money           `json:"gross_collected"`
	TotalRefunded  money.Money           `json:"total_refunded"`
	NetCollected   money.Money           `json:"net_collected"`
	CountByStatus  map[PaymentStatus]int `json:"count_by_status"`
}

type Service interface {
	Create(ctx context.Context, req CreatePaymentRequest) (Payment, error)
	GetByID(ctx context.Context, id snowflake.ID) (Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (Payment, error)
	List(ctx context.Context, req ListPaymentRequest) (ListPaymentResponse, error)
	Update(ctx context.Context, req UpdatePaymentRequest) (Payment, error)
	Delete(ctx context.Context, id snowflake.ID) error
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
	Stats(ctx context.Context, req StatsRequest) (Stats, error)
	// Each streams payments created in the range in batches of at most batch.
	Each(ctx context.Context, req StatsRequest, batch int, fn func([]*Payment) error) error
}

var (
	ErrNotFound                = errors.New("not_found")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrInvalidState            = errors.New("invalid_state")
	ErrInvalidMethod           = errors.New("invalid_method")
	ErrInvalidStatus           = errors.New("invalid_status")
	ErrInvalidSource           = errors.New("invalid_source")
	ErrInvalidID               = errors.New("invalid_id")
	ErrInvalidDateRange        = errors.New("invalid_date_range")
	ErrDuplicateReference      = errors.New("duplicate_reference")
	ErrHasRefunds              = errors.New("has_refunds")
	ErrConcurrentModification  = errors.New("concurrent_modification")
	ErrReferenceGenerationFail = errors.New("reference_generation_failed")
)
