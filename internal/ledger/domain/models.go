package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/digiunlocks/soccer-club-sub006/internal/money"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusCompleted, TransactionStatusPending, TransactionStatusFailed,
		TransactionStatusRefunded, TransactionStatusCancelled:
		return true
	}
	return false
}

// Category vocabulary used by the integration writer and the reports.
const (
	CategoryDonations        = "Donations"
	CategoryRegistrationFees = "Registration Fees"
	CategoryMembershipDues   = "Membership Dues"
	CategorySponsorships     = "Sponsorships"
	CategoryTournamentFees   = "Tournament Fees"
	CategoryMerchandiseSales = "Merchandise Sales"
	CategoryRefunds          = "Refunds"
	CategoryOtherIncome      = "Other Income"
	CategoryOtherExpense     = "Other Expense"
)

var knownCategories = map[string]struct{}{
	CategoryDonations:        {},
	CategoryRegistrationFees: {},
	CategoryMembershipDues:   {},
	CategorySponsorships:     {},
	CategoryTournamentFees:   {},
	CategoryMerchandiseSales: {},
	CategoryRefunds:          {},
	CategoryOtherIncome:      {},
	CategoryOtherExpense:     {},
}

func IsKnownCategory(category string) bool {
	_, ok := knownCategories[category]
	return ok
}

// FinancialTransaction is one row of the club's income/expense ledger.
// Rows are append-only; only Status and Notes change afterwards.
type FinancialTransaction struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	Type            TransactionType   `gorm:"size:16;not null;index:idx_financial_transactions_type_date,priority:1" json:"type"`
	Category        string            `gorm:"size:64;not null;index" json:"category"`
	Description     string            `gorm:"type:text;not null" json:"description"`
	Amount          money.Money       `gorm:"not null" json:"amount"`
	Date            time.Time         `gorm:"not null;index:idx_financial_transactions_type_date,priority:2;index:idx_financial_transactions_status_date,priority:2" json:"date"`
	PaymentMethod   string            `gorm:"type:text" json:"payment_method,omitempty"`
	Status          TransactionStatus `gorm:"size:16;not null;index:idx_financial_transactions_status_date,priority:1" json:"status"`
	ReferenceNumber string            `gorm:"size:128;not null;uniqueIndex" json:"reference_number"`
	Payer           string            `gorm:"type:text" json:"payer,omitempty"`
	Payee           string            `gorm:"type:text" json:"payee,omitempty"`
	Notes           string            `gorm:"type:text" json:"notes,omitempty"`
	SourceType      string            `gorm:"type:text" json:"source_type,omitempty"`
	SourceID        string            `gorm:"type:text" json:"source_id,omitempty"`
	RecordedBy      string            `gorm:"type:text" json:"recorded_by,omitempty"`
	CreatedAt       time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null" json:"updated_at"`
}

func (FinancialTransaction) TableName() string { return "financial_transactions" }
