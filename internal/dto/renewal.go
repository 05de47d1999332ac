package dto

import (
	"time"

	"github.com/dojoworks/renewals-api/internal/models"
)

// CreateRenewalRequest is the payload for registering a new renewal.
type CreateRenewalRequest struct {
	StudentID        string    `json:"student_id" binding:"required"`
	DurationMonths   int       `json:"duration_months" binding:"required,min=1"`
	PaymentDate      time.Time `json:"payment_date" binding:"required"`
	ExpirationDate   time.Time `json:"expiration_date" binding:"required"`
	AmountDue        float64   `json:"amount_due" binding:"min=0"`
	AmountPaid       float64   `json:"amount_paid" binding:"min=0"`
	NumberOfPayments int       `json:"number_of_payments" binding:"min=0"`
	NumberOfClasses  int       `json:"number_of_classes" binding:"min=0"`
	PaidTo           string    `json:"paid_to"`
}

// ToModel converts the request into a renewal record.
func (r CreateRenewalRequest) ToModel() models.Renewal {
	payments := r.NumberOfPayments
	if payments == 0 {
		payments = 1
	}
	return models.Renewal{
		StudentID:        r.StudentID,
		DurationMonths:   r.DurationMonths,
		PaymentDate:      r.PaymentDate,
		ExpirationDate:   r.ExpirationDate,
		AmountDue:        r.AmountDue,
		AmountPaid:       r.AmountPaid,
		NumberOfPayments: payments,
		NumberOfClasses:  r.NumberOfClasses,
		PaidTo:           r.PaidTo,
	}
}

// UpdateRenewalRequest carries a partial renewal update; nil fields are
// left untouched.
type UpdateRenewalRequest struct {
	DurationMonths   *int       `json:"duration_months,omitempty" binding:"omitempty,min=1"`
	PaymentDate      *time.Time `json:"payment_date,omitempty"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
	AmountDue        *float64   `json:"amount_due,omitempty" binding:"omitempty,min=0"`
	AmountPaid       *float64   `json:"amount_paid,omitempty" binding:"omitempty,min=0"`
	NumberOfPayments *int       `json:"number_of_payments,omitempty" binding:"omitempty,min=1"`
	NumberOfClasses  *int       `json:"number_of_classes,omitempty" binding:"omitempty,min=0"`
	PaidTo           *string    `json:"paid_to,omitempty"`
}

// ToPatch converts the request into a repository patch.
func (r UpdateRenewalRequest) ToPatch() models.RenewalPatch {
	return models.RenewalPatch{
		DurationMonths:   r.DurationMonths,
		PaymentDate:      r.PaymentDate,
		ExpirationDate:   r.ExpirationDate,
		AmountDue:        r.AmountDue,
		AmountPaid:       r.AmountPaid,
		NumberOfPayments: r.NumberOfPayments,
		NumberOfClasses:  r.NumberOfClasses,
		PaidTo:           r.PaidTo,
	}
}

// ResolveQuitRequest optionally overrides the quit note.
type ResolveQuitRequest struct {
	Notes string `json:"notes,omitempty"`
}

// ResolveRenewRequest overrides fields of the successor renewal; absent
// fields inherit from the current record.
type ResolveRenewRequest struct {
	DurationMonths   *int     `json:"duration_months,omitempty" binding:"omitempty,min=1"`
	AmountDue        *float64 `json:"amount_due,omitempty" binding:"omitempty,min=0"`
	AmountPaid       *float64 `json:"amount_paid,omitempty" binding:"omitempty,min=0"`
	NumberOfPayments *int     `json:"number_of_payments,omitempty" binding:"omitempty,min=1"`
	NumberOfClasses  *int     `json:"number_of_classes,omitempty" binding:"omitempty,min=0"`
	PaidTo           *string  `json:"paid_to,omitempty"`
}

// ToPatch converts the overrides into a patch consumed by the resolution flow.
func (r ResolveRenewRequest) ToPatch() models.RenewalPatch {
	return models.RenewalPatch{
		DurationMonths:   r.DurationMonths,
		AmountDue:        r.AmountDue,
		AmountPaid:       r.AmountPaid,
		NumberOfPayments: r.NumberOfPayments,
		NumberOfClasses:  r.NumberOfClasses,
		PaidTo:           r.PaidTo,
	}
}

// ResolveRenewResponse bundles the audit record with the created successor.
type ResolveRenewResponse struct {
	Resolution models.RenewalResolution `json:"resolution"`
	NewRenewal models.Renewal           `json:"new_renewal"`
}
