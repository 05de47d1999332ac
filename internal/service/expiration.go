package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/dojoworks/renewals-api/internal/models"
)

// Default attention-window bounds, in days relative to the expiration
// date. A renewal more than WarningPeriodDays away or more than
// GracePeriodDays overdue falls outside the window and is not surfaced
// for follow-up.
const (
	GracePeriodDays   = 7
	WarningPeriodDays = 15
)

// Priority bands for the windowed view; higher means more urgent.
const (
	PriorityExpiringSoon = 1
	PriorityGracePeriod  = 2
	PriorityExpired      = 3
)

// Classifier evaluates renewals against a configurable attention window.
type Classifier struct {
	graceDays   int
	warningDays int
}

// NewClassifier builds a classifier; non-positive bounds fall back to the
// package defaults.
func NewClassifier(graceDays, warningDays int) Classifier {
	if graceDays <= 0 {
		graceDays = GracePeriodDays
	}
	if warningDays <= 0 {
		warningDays = WarningPeriodDays
	}
	return Classifier{graceDays: graceDays, warningDays: warningDays}
}

// Midnight strips the time-of-day component, pinning the value to UTC so
// day arithmetic is immune to DST transitions.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween returns whole days from one date to another, ignoring
// time-of-day on both sides.
func daysBetween(from, to time.Time) int {
	return int(Midnight(to).Sub(Midnight(from)) / (24 * time.Hour))
}

// Classify computes the attention-window status of a renewal relative to
// today. It returns nil when the renewal needs no attention: expiration
// is beyond the warning horizon, or further overdue than the grace
// period. The result is a projection; none of the derived fields are
// ever written back to storage.
//
// Payment state is deliberately not consulted here: a fully paid renewal
// that is chronologically expiring is still surfaced for follow-up.
func (c Classifier) Classify(renewal models.Renewal, today time.Time) *models.ExpiringRenewal {
	daysDiff := daysBetween(renewal.ExpirationDate, today)

	if daysDiff < -c.warningDays || daysDiff > c.graceDays {
		return nil
	}

	processed := &models.ExpiringRenewal{Renewal: renewal, DaysOverdue: daysDiff}

	if daysDiff > 0 {
		if daysDiff <= c.graceDays {
			processed.Status = models.StatusGracePeriod
			processed.StatusMessage = fmt.Sprintf("In grace period (%d days overdue)", daysDiff)
			processed.Priority = PriorityGracePeriod
		} else {
			// Unreachable under the window bound above; retained so the
			// expired labelling survives any future widening of the window.
			processed.Status = models.StatusExpired
			processed.StatusMessage = fmt.Sprintf("Expired %d days ago", daysDiff)
			processed.Priority = PriorityExpired
		}
	} else {
		processed.Status = models.StatusExpiringSoon
		processed.StatusMessage = fmt.Sprintf("Expires in %d days", -daysDiff)
		processed.Priority = PriorityExpiringSoon
	}

	return processed
}

// Group classifies every renewal, drops the ones outside the attention
// window, orders the rest most-urgent-first (ties broken by the earlier
// expiration date), and partitions them by status.
func (c Classifier) Group(renewals []models.Renewal, today time.Time) models.GroupedExpiringRenewals {
	processed := make([]models.ExpiringRenewal, 0, len(renewals))
	for _, renewal := range renewals {
		if expiring := c.Classify(renewal, today); expiring != nil {
			processed = append(processed, *expiring)
		}
	}

	sort.SliceStable(processed, func(i, j int) bool {
		if processed[i].Priority != processed[j].Priority {
			return processed[i].Priority > processed[j].Priority
		}
		return processed[i].ExpirationDate.Before(processed[j].ExpirationDate)
	})

	grouped := models.GroupedExpiringRenewals{
		Expired:      []models.ExpiringRenewal{},
		GracePeriod:  []models.ExpiringRenewal{},
		ExpiringSoon: []models.ExpiringRenewal{},
	}
	for _, expiring := range processed {
		switch expiring.Status {
		case models.StatusExpired:
			grouped.Expired = append(grouped.Expired, expiring)
		case models.StatusGracePeriod:
			grouped.GracePeriod = append(grouped.GracePeriod, expiring)
		case models.StatusExpiringSoon:
			grouped.ExpiringSoon = append(grouped.ExpiringSoon, expiring)
		}
	}

	return grouped
}

// ClassifyRenewal applies the default attention window.
func ClassifyRenewal(renewal models.Renewal, today time.Time) *models.ExpiringRenewal {
	return NewClassifier(0, 0).Classify(renewal, today)
}

// GroupExpiringRenewals applies the default attention window.
func GroupExpiringRenewals(renewals []models.Renewal, today time.Time) models.GroupedExpiringRenewals {
	return NewClassifier(0, 0).Group(renewals, today)
}

// CategorizeRenewals partitions a collection into the coarse lifecycle
// buckets. Every renewal lands in exactly one bucket: paid when payments
// cover the amount due, otherwise expired when past the expiration date,
// otherwise active.
func CategorizeRenewals(renewals []models.Renewal, today time.Time) models.CategorizedRenewals {
	categorized := models.CategorizedRenewals{
		Expired: []models.Renewal{},
		Active:  []models.Renewal{},
		Paid:    []models.Renewal{},
	}
	todayMidnight := Midnight(today)

	for _, renewal := range renewals {
		switch {
		case renewal.IsPaid():
			categorized.Paid = append(categorized.Paid, renewal)
		case Midnight(renewal.ExpirationDate).Before(todayMidnight):
			categorized.Expired = append(categorized.Expired, renewal)
		default:
			categorized.Active = append(categorized.Active, renewal)
		}
	}

	return categorized
}
