package domain

import (
	"time"

	"github.com/digiunlocks/soccer-club-sub006/internal/money"
)

// The types below are the minimal views of records owned by the club's other
// subsystems. Those subsystems validate their own records before calling the
// writer.

type Donation struct {
	ID            string
	TransactionID string
	Amount        money.Money
	DonorName     string
	DonorEmail    string
	Anonymous     bool
	Campaign      string
	Message       string
	PaymentMethod string
	Date          time.Time
}

type Registration struct {
	ID            string
	TransactionID string
	PlayerName    string
	Season        string
	Program       string
	PaymentMethod string
	Date          time.Time
}

type User struct {
	ID    string
	Name  string
	Email string
}

type Membership struct {
	ID            string
	TransactionID string
	Plan          string
	Amount        money.Money
	PaymentMethod string
	StartDate     time.Time
	EndDate       time.Time
}

type Sponsor struct {
	ID            string
	TransactionID string
	BusinessName  string
	ContactName   string
	Tier          string
	Amount        money.Money
	Date          time.Time
}

type Event struct {
	ID   string
	Name string
	Date time.Time
}

type Participant struct {
	ID            string
	TransactionID string
	Name          string
	TeamName      string
	Email         string
	PaymentMethod string
}

type Invoice struct {
	ID           string
	Number       string
	CustomerName string
	Description  string
}

type InvoicePayment struct {
	ID            string
	TransactionID string
	Amount        money.Money
	PaymentMethod string
	Date          time.Time
}

type Order struct {
	ID            string
	TransactionID string
	Number        string
	Total         money.Money
	ItemCount     int
	PaymentMethod string
	Date          time.Time
}

type Customer struct {
	ID    string
	Name  string
	Email string
}

// ManualEntry is an admin-entered "Other Income/Expense" style row.
type ManualEntry struct {
	Type            string
	Category        string
	Description     string
	Amount          money.Money
	Date            time.Time
	PaymentMethod   string
	ReferenceNumber string
	Payer           string
	Payee           string
	Notes           string
	RecordedBy      string
}

// RefundDetails describes one processed refund of an already mirrored entry.
// Sequence is the 1-based position of the refund on its payment.
type RefundDetails struct {
	Amount     money.Money
	Reason     string
	Sequence   int
	RefundedBy string
	Date       time.Time
}
