package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoworks/renewals-api/internal/models"
)

var classifyToday = time.Date(2026, time.March, 15, 10, 30, 0, 0, time.UTC)

func renewalExpiring(id string, expiration time.Time) models.Renewal {
	return models.Renewal{
		RenewalID:      id,
		StudentID:      "s-" + id,
		DurationMonths: 3,
		ExpirationDate: expiration,
		AmountDue:      150,
	}
}

func TestClassifyRenewalGracePeriod(t *testing.T) {
	renewal := renewalExpiring("r1", classifyToday.AddDate(0, 0, -3))

	expiring := ClassifyRenewal(renewal, classifyToday)
	require.NotNil(t, expiring)

	assert.Equal(t, 3, expiring.DaysOverdue)
	assert.Equal(t, models.StatusGracePeriod, expiring.Status)
	assert.Equal(t, "In grace period (3 days overdue)", expiring.StatusMessage)
	assert.Equal(t, PriorityGracePeriod, expiring.Priority)
}

func TestClassifyRenewalExpiringSoon(t *testing.T) {
	renewal := renewalExpiring("r1", classifyToday.AddDate(0, 0, 10))

	expiring := ClassifyRenewal(renewal, classifyToday)
	require.NotNil(t, expiring)

	assert.Equal(t, -10, expiring.DaysOverdue)
	assert.Equal(t, models.StatusExpiringSoon, expiring.Status)
	assert.Equal(t, "Expires in 10 days", expiring.StatusMessage)
	assert.Equal(t, PriorityExpiringSoon, expiring.Priority)
}

func TestClassifyRenewalExpiringToday(t *testing.T) {
	renewal := renewalExpiring("r1", classifyToday)

	expiring := ClassifyRenewal(renewal, classifyToday)
	require.NotNil(t, expiring)

	assert.Equal(t, 0, expiring.DaysOverdue)
	assert.Equal(t, models.StatusExpiringSoon, expiring.Status)
	assert.Equal(t, "Expires in 0 days", expiring.StatusMessage)
}

func TestClassifyRenewalWindowBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		daysOffset int
		inside     bool
		status     models.ExpiringStatus
	}{
		{"last grace day", -GracePeriodDays, true, models.StatusGracePeriod},
		{"just past grace", -(GracePeriodDays + 1), false, ""},
		{"warning horizon", WarningPeriodDays, true, models.StatusExpiringSoon},
		{"beyond warning horizon", WarningPeriodDays + 1, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renewal := renewalExpiring("r1", classifyToday.AddDate(0, 0, tt.daysOffset))
			expiring := ClassifyRenewal(renewal, classifyToday)
			if !tt.inside {
				assert.Nil(t, expiring)
				return
			}
			require.NotNil(t, expiring)
			assert.Equal(t, tt.status, expiring.Status)
		})
	}
}

func TestClassifyRenewalIgnoresTimeOfDay(t *testing.T) {
	lateEvening := time.Date(2026, time.March, 12, 23, 59, 0, 0, time.UTC)
	renewal := renewalExpiring("r1", lateEvening)

	expiring := ClassifyRenewal(renewal, classifyToday)
	require.NotNil(t, expiring)
	assert.Equal(t, 3, expiring.DaysOverdue)
}

func TestClassifyRenewalPaidStillClassified(t *testing.T) {
	renewal := renewalExpiring("r1", classifyToday.AddDate(0, 0, -2))
	renewal.AmountPaid = renewal.AmountDue

	expiring := ClassifyRenewal(renewal, classifyToday)
	require.NotNil(t, expiring)
	assert.Equal(t, models.StatusGracePeriod, expiring.Status)
}

func TestCategorizeRenewalsPartition(t *testing.T) {
	paid := renewalExpiring("paid", classifyToday.AddDate(0, 0, -40))
	paid.AmountPaid = paid.AmountDue
	expired := renewalExpiring("expired", classifyToday.AddDate(0, 0, -1))
	active := renewalExpiring("active", classifyToday.AddDate(0, 0, 60))
	expiresToday := renewalExpiring("today", classifyToday)

	categorized := CategorizeRenewals([]models.Renewal{paid, expired, active, expiresToday}, classifyToday)

	require.Len(t, categorized.Paid, 1)
	assert.Equal(t, "paid", categorized.Paid[0].RenewalID)

	require.Len(t, categorized.Expired, 1)
	assert.Equal(t, "expired", categorized.Expired[0].RenewalID)

	// A renewal expiring today has not yet passed its expiration date.
	require.Len(t, categorized.Active, 2)
	assert.Equal(t, "active", categorized.Active[0].RenewalID)
	assert.Equal(t, "today", categorized.Active[1].RenewalID)
}

func TestCategorizeRenewalsPaidWinsOverExpired(t *testing.T) {
	renewal := renewalExpiring("r1", classifyToday.AddDate(0, 0, -30))
	renewal.AmountPaid = renewal.AmountDue + 10

	categorized := CategorizeRenewals([]models.Renewal{renewal}, classifyToday)

	assert.Len(t, categorized.Paid, 1)
	assert.Empty(t, categorized.Expired)
	assert.Empty(t, categorized.Active)
}

func TestCategorizeRenewalsEmptyInput(t *testing.T) {
	categorized := CategorizeRenewals(nil, classifyToday)

	assert.NotNil(t, categorized.Paid)
	assert.NotNil(t, categorized.Expired)
	assert.NotNil(t, categorized.Active)
	assert.Empty(t, categorized.Paid)
}

func TestGroupExpiringRenewalsBucketsAndOrder(t *testing.T) {
	renewals := []models.Renewal{
		renewalExpiring("soon-far", classifyToday.AddDate(0, 0, 14)),
		renewalExpiring("grace-late", classifyToday.AddDate(0, 0, -6)),
		renewalExpiring("soon-near", classifyToday.AddDate(0, 0, 2)),
		renewalExpiring("grace-early", classifyToday.AddDate(0, 0, -1)),
		renewalExpiring("outside", classifyToday.AddDate(0, 0, 45)),
	}

	grouped := GroupExpiringRenewals(renewals, classifyToday)

	assert.Empty(t, grouped.Expired)

	require.Len(t, grouped.GracePeriod, 2)
	assert.Equal(t, "grace-late", grouped.GracePeriod[0].RenewalID)
	assert.Equal(t, "grace-early", grouped.GracePeriod[1].RenewalID)

	require.Len(t, grouped.ExpiringSoon, 2)
	assert.Equal(t, "soon-near", grouped.ExpiringSoon[0].RenewalID)
	assert.Equal(t, "soon-far", grouped.ExpiringSoon[1].RenewalID)
}

func TestGroupExpiringRenewalsDropsOutOfWindow(t *testing.T) {
	renewals := []models.Renewal{
		renewalExpiring("long-gone", classifyToday.AddDate(0, 0, -90)),
		renewalExpiring("far-future", classifyToday.AddDate(0, 0, 90)),
	}

	grouped := GroupExpiringRenewals(renewals, classifyToday)

	assert.Empty(t, grouped.Expired)
	assert.Empty(t, grouped.GracePeriod)
	assert.Empty(t, grouped.ExpiringSoon)
}
