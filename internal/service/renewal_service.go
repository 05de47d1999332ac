package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dojoworks/renewals-api/internal/models"
	"github.com/dojoworks/renewals-api/pkg/config"
	appErrors "github.com/dojoworks/renewals-api/pkg/errors"
)

const expiringCachePattern = "renewals:expiring:*"

// renewalGateway is the persistence surface the store depends on.
type renewalGateway interface {
	List(ctx context.Context, filter models.RenewalFilter) ([]models.Renewal, error)
	GetByID(ctx context.Context, id string) (*models.Renewal, error)
	ListExpiring(ctx context.Context, daysFromNow int) ([]models.Renewal, error)
	Create(ctx context.Context, renewal *models.Renewal) error
	Update(ctx context.Context, id string, patch models.RenewalPatch) error
	Delete(ctx context.Context, id string) error
}

// snapshotCache stores short-lived copies of the expiring set.
type snapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// RenewalService orchestrates the renewal lifecycle: it owns the working
// collection, the selected record, the raw expiring set, and the
// loading/error flags, and runs every mutation through the persistence
// gateway. Unlike its single-threaded ancestry, all state access is
// serialised behind a mutex so concurrent HTTP requests cannot corrupt
// the snapshot.
type RenewalService struct {
	gateway    renewalGateway
	cache      snapshotCache
	classifier Classifier
	validator  *validator.Validate
	cfg        config.RenewalsConfig
	logger     *zap.Logger
	metrics    *MetricsService

	mu               sync.RWMutex
	renewals         []models.Renewal
	selectedRenewal  *models.Renewal
	expiringRenewals []models.Renewal
	currentStudentID string
	loading          bool
	lastError        string
}

// NewRenewalService constructs the store.
func NewRenewalService(gateway renewalGateway, cache snapshotCache, validate *validator.Validate, cfg config.RenewalsConfig, logger *zap.Logger) *RenewalService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RenewalService{
		gateway:    gateway,
		cache:      cache,
		classifier: NewClassifier(cfg.GracePeriodDays, cfg.WarningPeriodDays),
		validator:  validate,
		cfg:        cfg,
		logger:     logger,
	}
}

// WithMetrics attaches snapshot-cache instrumentation.
func (s *RenewalService) WithMetrics(metrics *MetricsService) *RenewalService {
	s.metrics = metrics
	return s
}

// run is the shared action wrapper: raise the loading flag, clear the
// previous error, execute, and on failure record "Failed to {action}"
// while logging the underlying cause. The loading flag is always reset,
// and the original error is returned so callers can react.
func (s *RenewalService) run(action string, fn func() error) error {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	if err := fn(); err != nil {
		message := "Failed to " + action
		s.mu.Lock()
		s.lastError = message
		s.mu.Unlock()
		s.logger.Error(message, zap.Error(err))
		return err
	}
	return nil
}

// notFoundAware maps missing-row errors from the gateway onto the typed
// not-found error; everything else passes through unchanged.
func notFoundAware(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrNotFound
	}
	return err
}

// LoadAll fetches every renewal and replaces the working collection,
// clearing any student filter.
func (s *RenewalService) LoadAll(ctx context.Context) ([]models.Renewal, error) {
	var loaded []models.Renewal
	err := s.run("load renewals", func() error {
		renewals, err := s.gateway.List(ctx, models.RenewalFilter{})
		if err != nil {
			return err
		}
		loaded = renewals
		s.mu.Lock()
		s.renewals = renewals
		s.currentStudentID = ""
		s.mu.Unlock()
		return nil
	})
	return copyRenewals(loaded), err
}

// LoadByStudent fetches the renewals of one student, replaces the working
// collection, and remembers the filter for later reloads.
func (s *RenewalService) LoadByStudent(ctx context.Context, studentID string) ([]models.Renewal, error) {
	var loaded []models.Renewal
	err := s.run("load student renewals", func() error {
		renewals, err := s.gateway.List(ctx, models.RenewalFilter{StudentID: studentID})
		if err != nil {
			return err
		}
		loaded = renewals
		s.mu.Lock()
		s.renewals = renewals
		s.currentStudentID = studentID
		s.mu.Unlock()
		return nil
	})
	return copyRenewals(loaded), err
}

// LoadByID fetches one renewal and marks it as selected.
func (s *RenewalService) LoadByID(ctx context.Context, id string) (*models.Renewal, error) {
	var loaded *models.Renewal
	err := s.run("load renewal", func() error {
		renewal, err := s.gateway.GetByID(ctx, id)
		if err != nil {
			return notFoundAware(err)
		}
		loaded = renewal
		s.mu.Lock()
		s.selectedRenewal = renewal
		s.mu.Unlock()
		return nil
	})
	return loaded, err
}

// LoadExpiring fetches the renewals expiring within daysFromNow days
// (defaulting to the configured window) and replaces the raw expiring
// set. Results are served from the snapshot cache when fresh. Like the
// other load operations it returns a copy, so later mutations of the
// store cannot reach into slices already handed to callers.
func (s *RenewalService) LoadExpiring(ctx context.Context, daysFromNow int) ([]models.Renewal, error) {
	if daysFromNow <= 0 {
		daysFromNow = s.cfg.DefaultWindowDays
	}

	var loaded []models.Renewal
	err := s.run("load expiring renewals", func() error {
		key := fmt.Sprintf("renewals:expiring:%d", daysFromNow)

		var cached []models.Renewal
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			loaded = cached
		} else {
			s.metrics.RecordCacheOperation(false)
			renewals, err := s.gateway.ListExpiring(ctx, daysFromNow)
			if err != nil {
				return err
			}
			loaded = renewals
			if err := s.cache.Set(ctx, key, renewals, s.cfg.SnapshotTTL); err != nil {
				s.logger.Warn("failed to cache expiring snapshot", zap.Error(err))
			}
		}

		s.mu.Lock()
		s.expiringRenewals = loaded
		s.mu.Unlock()
		return nil
	})
	return copyRenewals(loaded), err
}

// Create persists a new renewal, then reloads the current filter's list
// and the expiring set.
func (s *RenewalService) Create(ctx context.Context, renewal *models.Renewal) error {
	return s.run("create renewal", func() error {
		if err := s.validator.Struct(renewal); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid renewal")
		}
		if err := s.gateway.Create(ctx, renewal); err != nil {
			return err
		}
		s.invalidateSnapshots(ctx)
		return s.reload(ctx)
	})
}

// Update persists the patch, then merges it into the matching local
// entries instead of performing a full reload.
func (s *RenewalService) Update(ctx context.Context, id string, patch models.RenewalPatch) (*models.Renewal, error) {
	var updated *models.Renewal
	err := s.run("update renewal", func() error {
		if _, err := s.gateway.GetByID(ctx, id); err != nil {
			return notFoundAware(err)
		}
		if err := s.gateway.Update(ctx, id, patch); err != nil {
			return err
		}
		s.invalidateSnapshots(ctx)

		s.mu.Lock()
		for i := range s.renewals {
			if s.renewals[i].RenewalID == id {
				s.renewals[i] = patch.Apply(s.renewals[i])
				merged := s.renewals[i]
				updated = &merged
			}
		}
		for i := range s.expiringRenewals {
			if s.expiringRenewals[i].RenewalID == id {
				s.expiringRenewals[i] = patch.Apply(s.expiringRenewals[i])
			}
		}
		if s.selectedRenewal != nil && s.selectedRenewal.RenewalID == id {
			merged := patch.Apply(*s.selectedRenewal)
			s.selectedRenewal = &merged
			updated = &merged
		}
		s.mu.Unlock()

		if updated == nil {
			renewal, err := s.gateway.GetByID(ctx, id)
			if err != nil {
				return notFoundAware(err)
			}
			updated = renewal
		}
		return nil
	})
	return updated, err
}

// Remove deletes the renewal, drops it from the local collections, and
// clears the selection when it pointed at the removed record.
func (s *RenewalService) Remove(ctx context.Context, id string) error {
	return s.run("delete renewal", func() error {
		if _, err := s.gateway.GetByID(ctx, id); err != nil {
			return notFoundAware(err)
		}
		if err := s.gateway.Delete(ctx, id); err != nil {
			return err
		}
		s.invalidateSnapshots(ctx)

		s.mu.Lock()
		s.renewals = dropRenewal(s.renewals, id)
		s.expiringRenewals = dropRenewal(s.expiringRenewals, id)
		if s.selectedRenewal != nil && s.selectedRenewal.RenewalID == id {
			s.selectedRenewal = nil
		}
		s.mu.Unlock()
		return nil
	})
}

// Refresh reloads the current filter's list and the expiring set.
func (s *RenewalService) Refresh(ctx context.Context) error {
	return s.run("refresh renewals", func() error {
		return s.reload(ctx)
	})
}

// ResolveAsQuit records a quit resolution for the renewal: the record
// stays in the main store untouched, but it is dropped from the windowed
// attention view. Notes default to "Student quit".
func (s *RenewalService) ResolveAsQuit(ctx context.Context, id, notes string) (*models.RenewalResolution, error) {
	var resolution *models.RenewalResolution
	err := s.run("resolve renewal", func() error {
		if _, err := s.gateway.GetByID(ctx, id); err != nil {
			return notFoundAware(err)
		}

		if notes == "" {
			notes = "Student quit"
		}
		resolution = &models.RenewalResolution{
			RenewalID:  id,
			Action:     models.ActionQuit,
			ResolvedAt: time.Now().UTC(),
			Notes:      notes,
		}

		s.mu.Lock()
		s.expiringRenewals = dropRenewal(s.expiringRenewals, id)
		s.mu.Unlock()
		return nil
	})
	return resolution, err
}

// ResolveWithNext rolls an expiring renewal into a successor: the new
// period starts the day after the current expiration, runs for the
// requested number of calendar months (default 1), and inherits amounts
// and attribution from the current renewal unless overridden. The
// original record is left untouched.
func (s *RenewalService) ResolveWithNext(ctx context.Context, id string, overrides models.RenewalPatch) (*models.RenewalResolution, *models.Renewal, error) {
	var (
		resolution *models.RenewalResolution
		created    *models.Renewal
	)
	err := s.run("renew", func() error {
		current, err := s.gateway.GetByID(ctx, id)
		if err != nil {
			return notFoundAware(err)
		}

		months := 1
		if overrides.DurationMonths != nil {
			months = *overrides.DurationMonths
		}
		newStart := current.ExpirationDate.AddDate(0, 0, 1)
		now := time.Now().UTC()

		next := models.Renewal{
			StudentID:        current.StudentID,
			DurationMonths:   months,
			PaymentDate:      now,
			ExpirationDate:   newStart.AddDate(0, months, 0),
			AmountDue:        current.AmountDue,
			AmountPaid:       0,
			NumberOfPayments: 1,
			NumberOfClasses:  current.NumberOfClasses,
			PaidTo:           current.PaidTo,
		}
		if overrides.AmountDue != nil {
			next.AmountDue = *overrides.AmountDue
		}
		if overrides.AmountPaid != nil {
			next.AmountPaid = *overrides.AmountPaid
		}
		if overrides.NumberOfPayments != nil {
			next.NumberOfPayments = *overrides.NumberOfPayments
		}
		if overrides.NumberOfClasses != nil {
			next.NumberOfClasses = *overrides.NumberOfClasses
		}
		if overrides.PaidTo != nil {
			next.PaidTo = *overrides.PaidTo
		}

		if err := s.gateway.Create(ctx, &next); err != nil {
			return err
		}
		s.invalidateSnapshots(ctx)

		created = &next
		resolution = &models.RenewalResolution{
			RenewalID:  current.RenewalID,
			Action:     models.ActionRenew,
			ResolvedAt: now,
			Notes:      fmt.Sprintf("Renewed for %d months", months),
		}
		return s.reload(ctx)
	})
	return resolution, created, err
}

// Categorized loads the renewals for the optional student filter and
// partitions them into the coarse lifecycle buckets.
func (s *RenewalService) Categorized(ctx context.Context, studentID string) (models.CategorizedRenewals, error) {
	var renewals []models.Renewal
	var err error
	if studentID != "" {
		renewals, err = s.LoadByStudent(ctx, studentID)
	} else {
		renewals, err = s.LoadAll(ctx)
	}
	if err != nil {
		return models.CategorizedRenewals{}, err
	}
	return CategorizeRenewals(renewals, time.Now()), nil
}

// Expiring loads the raw expiring set and annotates each entry with its
// attention-window status, dropping out-of-window records.
func (s *RenewalService) Expiring(ctx context.Context, daysFromNow int) ([]models.ExpiringRenewal, error) {
	renewals, err := s.LoadExpiring(ctx, daysFromNow)
	if err != nil {
		return nil, err
	}

	today := time.Now()
	processed := make([]models.ExpiringRenewal, 0, len(renewals))
	for _, renewal := range renewals {
		if expiring := s.classifier.Classify(renewal, today); expiring != nil {
			processed = append(processed, *expiring)
		}
	}
	return processed, nil
}

// GroupedExpiring loads the raw expiring set and returns the prioritized
// windowed partition.
func (s *RenewalService) GroupedExpiring(ctx context.Context, daysFromNow int) (models.GroupedExpiringRenewals, error) {
	renewals, err := s.LoadExpiring(ctx, daysFromNow)
	if err != nil {
		return models.GroupedExpiringRenewals{}, err
	}
	return s.classifier.Group(renewals, time.Now()), nil
}

// ClearSelected drops the selected renewal. Local-only.
func (s *RenewalService) ClearSelected() {
	s.mu.Lock()
	s.selectedRenewal = nil
	s.mu.Unlock()
}

// ClearError resets the recorded error message. Local-only.
func (s *RenewalService) ClearError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
}

// Snapshot returns a copy of the observable store state.
func (s *RenewalService) Snapshot() (renewals []models.Renewal, selected *models.Renewal, expiring []models.Renewal, loading bool, lastError string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	renewals = append([]models.Renewal(nil), s.renewals...)
	expiring = append([]models.Renewal(nil), s.expiringRenewals...)
	if s.selectedRenewal != nil {
		copied := *s.selectedRenewal
		selected = &copied
	}
	return renewals, selected, expiring, s.loading, s.lastError
}

// CurrentStudentID reports the active student filter, empty when none.
func (s *RenewalService) CurrentStudentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentStudentID
}

// reload refreshes the working collection under the remembered filter
// plus the expiring set, sequentially, surfacing the first failure.
func (s *RenewalService) reload(ctx context.Context) error {
	s.mu.RLock()
	studentID := s.currentStudentID
	s.mu.RUnlock()

	renewals, err := s.gateway.List(ctx, models.RenewalFilter{StudentID: studentID})
	if err != nil {
		return err
	}

	expiring, err := s.gateway.ListExpiring(ctx, s.cfg.DefaultWindowDays)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.renewals = renewals
	s.expiringRenewals = expiring
	s.mu.Unlock()
	return nil
}

// invalidateSnapshots drops cached expiring sets after any write. Cache
// trouble is logged, never surfaced; the database remains authoritative.
func (s *RenewalService) invalidateSnapshots(ctx context.Context) {
	if err := s.cache.DeleteByPattern(ctx, expiringCachePattern); err != nil {
		s.logger.Warn("failed to invalidate expiring snapshots", zap.Error(err))
	}
}

// dropRenewal filters into a fresh slice; compacting in place would
// scribble over backing arrays that may still be referenced elsewhere.
func dropRenewal(renewals []models.Renewal, id string) []models.Renewal {
	filtered := make([]models.Renewal, 0, len(renewals))
	for _, renewal := range renewals {
		if renewal.RenewalID != id {
			filtered = append(filtered, renewal)
		}
	}
	return filtered
}

func copyRenewals(renewals []models.Renewal) []models.Renewal {
	if renewals == nil {
		return nil
	}
	return append([]models.Renewal(nil), renewals...)
}
