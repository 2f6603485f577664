package models

// InvoiceStatus is the lifecycle state of a supplier invoice.
// PAID is terminal. OVERDUE is derived at read time for PENDING invoices
// past their due date; both count toward outstanding credit.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "PENDING"
	InvoiceOverdue InvoiceStatus = "OVERDUE"
	InvoicePaid    InvoiceStatus = "PAID"
)

// CreditLine is a supplier's credit facility for one restaurant.
// There is at most one line per (restaurant, supplier) pair; setting a new
// one overwrites the old.
type CreditLine struct {
	RestaurantID string `json:"restaurantId"`
	SupplierID   string `json:"supplierId"`

	// LimitUsd6 caps the sum of outstanding (non-PAID) invoice amounts.
	LimitUsd6 int64 `json:"limitUsd6"`

	// TermsHash is the hex digest of the agreed credit terms document.
	// Every credit draw must present the matching hash.
	TermsHash string `json:"termsHash"`

	UpdatedAt int64 `json:"updatedAt"`
}

// Invoice is a single credit draw against a CreditLine. Created PENDING,
// transitions to PAID on full repayment. Partial repayment is not modeled.
type Invoice struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurantId"`
	SupplierID   string `json:"supplierId"`
	AmountUsd6   int64  `json:"amountUsd6"`

	// DueDate is the Unix timestamp after which a PENDING invoice reads
	// as OVERDUE.
	DueDate int64 `json:"dueDate"`

	Status    InvoiceStatus `json:"status"`
	CreatedAt int64         `json:"createdAt"`

	// PaidAt is the Unix timestamp of repayment, zero until PAID.
	PaidAt int64 `json:"paidAt,omitempty"`
}

// EffectiveStatus derives the reported status at time now: a PENDING
// invoice past its due date is OVERDUE.
func (i *Invoice) EffectiveStatus(now int64) InvoiceStatus {
	if i.Status == InvoicePending && i.DueDate > 0 && now > i.DueDate {
		return InvoiceOverdue
	}
	return i.Status
}
