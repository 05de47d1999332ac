package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dojoworks/renewals-api/internal/models"
)

// RenewalRepository manages persistence for student renewal records.
type RenewalRepository struct {
	db *sqlx.DB
}

// NewRenewalRepository constructs a RenewalRepository.
func NewRenewalRepository(db *sqlx.DB) *RenewalRepository {
	return &RenewalRepository{db: db}
}

const renewalColumns = `renewal_id, student_id, duration_months, payment_date, expiration_date,
        amount_due, amount_paid, number_of_payments, number_of_classes, paid_to, created_at, updated_at`

// List returns renewals, optionally filtered by student, newest first.
func (r *RenewalRepository) List(ctx context.Context, filter models.RenewalFilter) ([]models.Renewal, error) {
	query := fmt.Sprintf("SELECT %s FROM student_renewals", renewalColumns)
	args := []interface{}{}
	if filter.StudentID != "" {
		query += " WHERE student_id = $1"
		args = append(args, filter.StudentID)
	}
	query += " ORDER BY created_at DESC"

	var renewals []models.Renewal
	if err := r.db.SelectContext(ctx, &renewals, query, args...); err != nil {
		return nil, fmt.Errorf("list renewals: %w", err)
	}
	return renewals, nil
}

// GetByID fetches a single renewal. sql.ErrNoRows is passed through so the
// caller can map it to a not-found error.
func (r *RenewalRepository) GetByID(ctx context.Context, id string) (*models.Renewal, error) {
	query := fmt.Sprintf("SELECT %s FROM student_renewals WHERE renewal_id = $1", renewalColumns)
	var renewal models.Renewal
	if err := r.db.GetContext(ctx, &renewal, query, id); err != nil {
		return nil, err
	}
	return &renewal, nil
}

// ListExpiring returns renewals whose expiration date falls within
// [today, today+daysFromNow], ascending by expiration date.
func (r *RenewalRepository) ListExpiring(ctx context.Context, daysFromNow int) ([]models.Renewal, error) {
	if daysFromNow <= 0 {
		daysFromNow = 30
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	until := today.AddDate(0, 0, daysFromNow)

	query := fmt.Sprintf(`SELECT %s FROM student_renewals
        WHERE expiration_date >= $1 AND expiration_date <= $2
        ORDER BY expiration_date ASC`, renewalColumns)

	var renewals []models.Renewal
	if err := r.db.SelectContext(ctx, &renewals, query, today, until); err != nil {
		return nil, fmt.Errorf("list expiring renewals: %w", err)
	}
	return renewals, nil
}

// Create inserts a new renewal record.
func (r *RenewalRepository) Create(ctx context.Context, renewal *models.Renewal) error {
	if renewal.RenewalID == "" {
		renewal.RenewalID = uuid.NewString()
	}
	now := time.Now().UTC()
	if renewal.CreatedAt.IsZero() {
		renewal.CreatedAt = now
	}
	renewal.UpdatedAt = now
	const query = `INSERT INTO student_renewals (renewal_id, student_id, duration_months, payment_date, expiration_date,
        amount_due, amount_paid, number_of_payments, number_of_classes, paid_to, created_at, updated_at)
        VALUES (:renewal_id, :student_id, :duration_months, :payment_date, :expiration_date,
        :amount_due, :amount_paid, :number_of_payments, :number_of_classes, :paid_to, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, renewal); err != nil {
		return fmt.Errorf("create renewal: %w", err)
	}
	return nil
}

// Update applies the non-nil patch fields to an existing renewal.
func (r *RenewalRepository) Update(ctx context.Context, id string, patch models.RenewalPatch) error {
	set := make([]string, 0, 9)
	args := make([]interface{}, 0, 10)
	argPos := 1

	add := func(column string, value interface{}) {
		set = append(set, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if patch.DurationMonths != nil {
		add("duration_months", *patch.DurationMonths)
	}
	if patch.PaymentDate != nil {
		add("payment_date", *patch.PaymentDate)
	}
	if patch.ExpirationDate != nil {
		add("expiration_date", *patch.ExpirationDate)
	}
	if patch.AmountDue != nil {
		add("amount_due", *patch.AmountDue)
	}
	if patch.AmountPaid != nil {
		add("amount_paid", *patch.AmountPaid)
	}
	if patch.NumberOfPayments != nil {
		add("number_of_payments", *patch.NumberOfPayments)
	}
	if patch.NumberOfClasses != nil {
		add("number_of_classes", *patch.NumberOfClasses)
	}
	if patch.PaidTo != nil {
		add("paid_to", *patch.PaidTo)
	}

	if len(set) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE student_renewals SET %s WHERE renewal_id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update renewal: %w", err)
	}
	return nil
}

// Delete removes a renewal record permanently.
func (r *RenewalRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM student_renewals WHERE renewal_id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete renewal: %w", err)
	}
	return nil
}
