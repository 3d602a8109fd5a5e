package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/digiunlocks/soccer-club-sub006/internal/money"
	"github.com/digiunlocks/soccer-club-sub006/pkg/db/pagination"
)

type AppendRequest struct {
	Type            TransactionType   `json:"type"`
	Category        string            `json:"category"`
	Description     string            `json:"description"`
	Amount          money.Money       `json:"amount"`
	Date            time.Time         `json:"date"`
	PaymentMethod   string            `json:"payment_method"`
	Status          TransactionStatus `json:"status"`
	ReferenceNumber string            `json:"reference_number"`
	Payer           string            `json:"payer"`
	Payee           string            `json:"payee"`
	Notes           string            `json:"notes"`
	SourceType      string            `json:"source_type"`
	SourceID        string            `json:"source_id"`
	RecordedBy      string            `json:"recorded_by"`
}

type ListTransactionRequest struct {
	pagination.Page
	Type     TransactionType   `form:"type"`
	Category string            `form:"category"`
	Status   TransactionStatus `form:"status"`
	From     *time.Time        `form:"-"`
	To       *time.Time        `form:"-"`
}

type ListTransactionResponse struct {
	pagination.PageInfo
	Transactions []FinancialTransaction `json:"transactions"`
}

type Service interface {
	Append(ctx context.Context, req AppendRequest) (FinancialTransaction, error)
	GetByID(ctx context.Context, id snowflake.ID) (FinancialTransaction, error)
	GetByReference(ctx context.Context, referenceNumber string) (FinancialTransaction, error)
	List(ctx context.Context, req ListTransactionRequest) (ListTransactionResponse, error)
	// MarkRefunded flips the referenced entry to refunded and appends note.
	MarkRefunded(ctx context.Context, referenceNumber, note string) (FinancialTransaction, error)
	// Each streams every entry matching filter in batches.
	Each(ctx context.Context, filter ListFilter, fn func([]*FinancialTransaction) error) error
	// ExistingReferences reports which of refs already have an entry.
	ExistingReferences(ctx context.Context, refs []string) (map[string]bool, error)
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidType        = errors.New("invalid_type")
	ErrInvalidCategory    = errors.New("invalid_category")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidReference   = errors.New("invalid_reference")
	ErrInvalidDateRange   = errors.New("invalid_date_range")
	ErrDuplicateReference = errors.New("duplicate_reference")
)
