package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dojoworks/renewals-api/internal/models"
	"github.com/dojoworks/renewals-api/pkg/export"
	"github.com/dojoworks/renewals-api/pkg/storage"
)

type renewalSourceStub struct{}

func (renewalSourceStub) List(_ context.Context, filter models.RenewalFilter) ([]models.Renewal, error) {
	renewal := sampleRenewal("r1")
	if filter.StudentID != "" {
		renewal.StudentID = filter.StudentID
	}
	return []models.Renewal{renewal}, nil
}

func (renewalSourceStub) ListExpiring(_ context.Context, daysFromNow int) ([]models.Renewal, error) {
	soon := sampleRenewal("r-soon")
	soon.ExpirationDate = time.Now().AddDate(0, 0, 5)
	overdue := sampleRenewal("r-overdue")
	overdue.ExpirationDate = time.Now().AddDate(0, 0, -3)
	return []models.Renewal{soon, overdue}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour, DefaultWindowDays: 30}
	svc := NewExportService(renewalSourceStub{}, store, signer, NewClassifier(0, 0), cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateExpiringCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeExpiring,
		Params:    models.ReportJobParams{WindowDays: 30, Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/export/")

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	payload, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "r-soon")
	assert.Contains(t, string(payload), "r-overdue")
	assert.Contains(t, string(payload), string(models.StatusGracePeriod))
}

func TestExportServiceGenerateSummaryPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeSummary,
		Params:    models.ReportJobParams{Format: models.ReportFormatPDF},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	info, err := file.Stat()
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateAllFiltersStudent(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	student := "s-42"
	job := &models.ReportJob{
		ID:        "job-3",
		Type:      models.ReportTypeAll,
		Params:    models.ReportJobParams{StudentID: &student, Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	assert.Contains(t, result.RelativePath, "s-42")

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	payload, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "s-42")
}

func TestExportServiceGenerateUnsupportedFormat(t *testing.T) {
	svc, _ := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:     "job-4",
		Type:   models.ReportTypeAll,
		Params: models.ReportJobParams{Format: "xlsx"},
	}
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}
