package models

import "time"

// Renewal represents a paid or payable membership period for a student.
type Renewal struct {
	RenewalID        string    `db:"renewal_id" json:"renewal_id"`
	StudentID        string    `db:"student_id" json:"student_id" validate:"required"`
	DurationMonths   int       `db:"duration_months" json:"duration_months" validate:"min=1"`
	PaymentDate      time.Time `db:"payment_date" json:"payment_date" validate:"required"`
	ExpirationDate   time.Time `db:"expiration_date" json:"expiration_date" validate:"required"`
	AmountDue        float64   `db:"amount_due" json:"amount_due" validate:"min=0"`
	AmountPaid       float64   `db:"amount_paid" json:"amount_paid" validate:"min=0"`
	NumberOfPayments int       `db:"number_of_payments" json:"number_of_payments" validate:"min=0"`
	NumberOfClasses  int       `db:"number_of_classes" json:"number_of_classes" validate:"min=0"`
	PaidTo           string    `db:"paid_to" json:"paid_to"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// IsPaid reports whether the recorded payments cover the amount due.
func (r Renewal) IsPaid() bool {
	return r.AmountPaid >= r.AmountDue
}

// RenewalFilter encapsulates allowed search parameters for listing renewals.
type RenewalFilter struct {
	StudentID string
}

// RenewalPatch carries a partial update; nil fields are left untouched.
type RenewalPatch struct {
	DurationMonths   *int       `json:"duration_months,omitempty"`
	PaymentDate      *time.Time `json:"payment_date,omitempty"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
	AmountDue        *float64   `json:"amount_due,omitempty"`
	AmountPaid       *float64   `json:"amount_paid,omitempty"`
	NumberOfPayments *int       `json:"number_of_payments,omitempty"`
	NumberOfClasses  *int       `json:"number_of_classes,omitempty"`
	PaidTo           *string    `json:"paid_to,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p RenewalPatch) IsEmpty() bool {
	return p.DurationMonths == nil && p.PaymentDate == nil && p.ExpirationDate == nil &&
		p.AmountDue == nil && p.AmountPaid == nil && p.NumberOfPayments == nil &&
		p.NumberOfClasses == nil && p.PaidTo == nil
}

// Apply merges the patch into a renewal copy and returns it.
func (p RenewalPatch) Apply(r Renewal) Renewal {
	if p.DurationMonths != nil {
		r.DurationMonths = *p.DurationMonths
	}
	if p.PaymentDate != nil {
		r.PaymentDate = *p.PaymentDate
	}
	if p.ExpirationDate != nil {
		r.ExpirationDate = *p.ExpirationDate
	}
	if p.AmountDue != nil {
		r.AmountDue = *p.AmountDue
	}
	if p.AmountPaid != nil {
		r.AmountPaid = *p.AmountPaid
	}
	if p.NumberOfPayments != nil {
		r.NumberOfPayments = *p.NumberOfPayments
	}
	if p.NumberOfClasses != nil {
		r.NumberOfClasses = *p.NumberOfClasses
	}
	if p.PaidTo != nil {
		r.PaidTo = *p.PaidTo
	}
	return r
}

// ExpiringStatus labels a renewal inside the attention window.
type ExpiringStatus string

const (
	StatusExpired      ExpiringStatus = "expired"
	StatusGracePeriod  ExpiringStatus = "grace_period"
	StatusExpiringSoon ExpiringStatus = "expiring_soon"
)

// ExpiringRenewal is a Renewal annotated with derived attention-window
// fields. It is a projection computed on every read, never persisted.
type ExpiringRenewal struct {
	Renewal
	DaysOverdue   int            `json:"daysOverdue"`
	Status        ExpiringStatus `json:"status"`
	StatusMessage string         `json:"statusMessage"`
	Priority      int            `json:"priority"`
}

// ResolutionAction enumerates terminal actions on an expiring renewal.
type ResolutionAction string

const (
	ActionQuit  ResolutionAction = "quit"
	ActionRenew ResolutionAction = "renew"
)

// RenewalResolution records a resolution taken by staff. It is returned to
// the caller as an audit object and is not persisted as its own entity.
type RenewalResolution struct {
	RenewalID  string           `json:"renewal_id"`
	Action     ResolutionAction `json:"action"`
	ResolvedAt time.Time        `json:"resolved_at"`
	Notes      string           `json:"notes,omitempty"`
}

// CategorizedRenewals is the coarse lifecycle partition of a collection.
// Buckets are disjoint and cover the input exactly.
type CategorizedRenewals struct {
	Expired []Renewal `json:"expired"`
	Active  []Renewal `json:"active"`
	Paid    []Renewal `json:"paid"`
}

// GroupedExpiringRenewals is the prioritized windowed partition.
type GroupedExpiringRenewals struct {
	Expired      []ExpiringRenewal `json:"expired"`
	GracePeriod  []ExpiringRenewal `json:"gracePeriod"`
	ExpiringSoon []ExpiringRenewal `json:"expiringSoon"`
}
