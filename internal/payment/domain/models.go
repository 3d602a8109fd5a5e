package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	"github.com/digiunlocks/soccer-club-sub006/internal/money"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusPartial   PaymentStatus = "partial"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusPartial, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

// Refundable reports whether money can still be returned on a payment in
// this status.
func (s PaymentStatus) Refundable() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusPartial
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCheck        PaymentMethod = "check"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodPaypal       PaymentMethod = "paypal"
	PaymentMethodVenmo        PaymentMethod = "venmo"
	PaymentMethodCashApp      PaymentMethod = "cashapp"
	PaymentMethodOnline       PaymentMethod = "online"
	PaymentMethodOther        PaymentMethod = "other"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCheck, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodBankTransfer, PaymentMethodPaypal, PaymentMethodVenmo, PaymentMethodCashApp,
		PaymentMethodOnline, PaymentMethodOther:
		return true
	}
	return false
}

// Source identifies the club subsystem a payment came from.
type Source string

const (
	SourceDonation     Source = "donation"
	SourceRegistration Source = "registration"
	SourceMembership   Source = "membership"
	SourceSponsorship  Source = "sponsorship"
	SourceEvent        Source = "event"
	SourceInvoice      Source = "invoice"
	SourceMerchandise  Source = "merchandise"
	SourceManual       Source = "manual"
)

func (s Source) Valid() bool {
	switch s {
	case SourceDonation, SourceRegistration, SourceMembership, SourceSponsorship,
		SourceEvent, SourceInvoice, SourceMerchandise, SourceManual:
		return true
	}
	return false
}

type RefundType string

const (
	RefundTypeFull    RefundType = "full"
	RefundTypePartial RefundType = "partial"
)

type RefundStatus string

const (
	RefundStatusProcessed RefundStatus = "processed"
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusFailed    RefundStatus = "failed"
)

// Refund is embedded in its payment; it has no lifecycle of its own.
type Refund struct {
	ID         snowflake.ID `json:"id"`
	Sequence   int          `json:"sequence"`
	Amount     money.Money  `json:"amount"`
	Reason     string       `json:"reason"`
	RefundType RefundType   `json:"refund_type"`
	Status     RefundStatus `json:"status"`
	RefundedAt time.Time    `json:"refunded_at"`
	RefundedBy string       `json:"refunded_by"`
}

// Payment is an authoritative record of money received by the club.
type Payment struct {
	ID            snowflake.ID                `gorm:"primaryKey" json:"id"`
	TransactionID string                      `gorm:"size:96;not null;uniqueIndex" json:"transaction_id"`
	Source        Source                      `gorm:"type:text;not null" json:"source"`
	SourceID      string                      `gorm:"type:text" json:"source_id,omitempty"`
	Amount        money.Money                 `gorm:"not null" json:"amount"`
	Method        PaymentMethod               `gorm:"type:text;not null" json:"method"`
	Status        PaymentStatus               `gorm:"size:16;not null;index:idx_payments_status_created,priority:1" json:"status"`
	Description   string                      `gorm:"type:text" json:"description,omitempty"`
	PayerName     string                      `gorm:"type:text" json:"payer_name,omitempty"`
	PayerEmail    string                      `gorm:"type:text" json:"payer_email,omitempty"`
	PayerID       string                      `gorm:"size:64;index" json:"payer_id,omitempty"`
	Notes         string                      `gorm:"type:text" json:"notes,omitempty"`
	Refunds       datatypes.JSONSlice[Refund] `json:"refunds"`
	TotalRefunded money.Money                 `gorm:"not null;default:0" json:"total_refunded"`
	Version       int64                       `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time                   `gorm:"not null;index:idx_payments_status_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// Remaining is the amount still refundable.
func (p Payment) Remaining() money.Money {
	rest, err := p.Amount.Sub(p.TotalRefunded)
	if err != nil {
		return money.Zero()
	}
	return rest
}
