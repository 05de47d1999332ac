package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dojoworks/renewals-api/internal/models"
	"github.com/dojoworks/renewals-api/pkg/export"
	"github.com/dojoworks/renewals-api/pkg/storage"
)

type renewalSource interface {
	List(ctx context.Context, filter models.RenewalFilter) ([]models.Renewal, error)
	ListExpiring(ctx context.Context, daysFromNow int) ([]models.Renewal, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix         string
	ResultTTL         time.Duration
	DefaultWindowDays int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds renewal report datasets and persists rendered files.
type ExportService struct {
	renewals   renewalSource
	storage    fileStorage
	csv        csvRenderer
	pdf        pdfRenderer
	signer     *storage.SignedURLSigner
	classifier Classifier
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(renewals renewalSource, store fileStorage, signer *storage.SignedURLSigner, classifier Classifier, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = 30
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		renewals:   renewals,
		storage:    store,
		csv:        csv,
		pdf:        pdf,
		signer:     signer,
		classifier: classifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// Generate builds the dataset for the job definition and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all-students"
	if job.Params.StudentID != nil && *job.Params.StudentID != "" {
		scope = sanitizeFilename(*job.Params.StudentID)
	}
	return fmt.Sprintf("renewals_%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeExpiring:
		return s.buildExpiringDataset(ctx, job.Params)
	case models.ReportTypeSummary:
		return s.buildSummaryDataset(ctx, job.Params)
	case models.ReportTypeAll:
		return s.buildAllDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildExpiringDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	windowDays := params.WindowDays
	if windowDays <= 0 {
		windowDays = s.cfg.DefaultWindowDays
	}
	renewals, err := s.renewals.ListExpiring(ctx, windowDays)
	if err != nil {
		return export.Dataset{}, "", err
	}

	today := time.Now()
	dataRows := make([]map[string]string, 0, len(renewals))
	for _, renewal := range renewals {
		expiring := s.classifier.Classify(renewal, today)
		if expiring == nil {
			continue
		}
		dataRows = append(dataRows, map[string]string{
			"Renewal ID":      expiring.RenewalID,
			"Student ID":      expiring.StudentID,
			"Expiration Date": formatReportDate(expiring.ExpirationDate),
			"Days Overdue":    fmt.Sprintf("%d", expiring.DaysOverdue),
			"Status":          string(expiring.Status),
			"Priority":        fmt.Sprintf("%d", expiring.Priority),
			"Amount Due":      fmt.Sprintf("%.2f", expiring.AmountDue),
			"Amount Paid":     fmt.Sprintf("%.2f", expiring.AmountPaid),
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Renewal ID", "Student ID", "Expiration Date", "Days Overdue", "Status", "Priority", "Amount Due", "Amount Paid"},
		Rows:    dataRows,
	}
	title := fmt.Sprintf("Expiring Renewals (next %d days)", windowDays)
	return dataset, title, nil
}

func (s *ExportService) buildAllDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	filter := models.RenewalFilter{StudentID: deref(params.StudentID)}
	renewals, err := s.renewals.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}

	dataRows := make([]map[string]string, 0, len(renewals))
	for _, renewal := range renewals {
		dataRows = append(dataRows, map[string]string{
			"Renewal ID":      renewal.RenewalID,
			"Student ID":      renewal.StudentID,
			"Duration":        fmt.Sprintf("%d mo", renewal.DurationMonths),
			"Payment Date":    formatReportDate(renewal.PaymentDate),
			"Expiration Date": formatReportDate(renewal.ExpirationDate),
			"Amount Due":      fmt.Sprintf("%.2f", renewal.AmountDue),
			"Amount Paid":     fmt.Sprintf("%.2f", renewal.AmountPaid),
			"Classes":         fmt.Sprintf("%d", renewal.NumberOfClasses),
			"Paid To":         renewal.PaidTo,
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Renewal ID", "Student ID", "Duration", "Payment Date", "Expiration Date", "Amount Due", "Amount Paid", "Classes", "Paid To"},
		Rows:    dataRows,
	}
	title := "All Renewals"
	if filter.StudentID != "" {
		title = fmt.Sprintf("Renewals for %s", filter.StudentID)
	}
	return dataset, title, nil
}

func (s *ExportService) buildSummaryDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	filter := models.RenewalFilter{StudentID: deref(params.StudentID)}
	renewals, err := s.renewals.List(ctx, filter)
	if err != nil {
		return export.Dataset{}, "", err
	}

	today := time.Now()
	categorized := CategorizeRenewals(renewals, today)
	grouped := s.classifier.Group(renewals, today)

	var outstanding float64
	for _, renewal := range renewals {
		if balance := renewal.AmountDue - renewal.AmountPaid; balance > 0 {
			outstanding += balance
		}
	}

	rows := []map[string]string{
		{"Metric": "Total Renewals", "Value": fmt.Sprintf("%d", len(renewals)), "Notes": ""},
		{"Metric": "Paid", "Value": fmt.Sprintf("%d", len(categorized.Paid)), "Notes": ""},
		{"Metric": "Active", "Value": fmt.Sprintf("%d", len(categorized.Active)), "Notes": ""},
		{"Metric": "Expired", "Value": fmt.Sprintf("%d", len(categorized.Expired)), "Notes": ""},
		{"Metric": "In Grace Period", "Value": fmt.Sprintf("%d", len(grouped.GracePeriod)), "Notes": "needs follow-up"},
		{"Metric": "Expiring Soon", "Value": fmt.Sprintf("%d", len(grouped.ExpiringSoon)), "Notes": "needs follow-up"},
		{"Metric": "Outstanding Balance", "Value": fmt.Sprintf("%.2f", outstanding), "Notes": ""},
	}

	dataset := export.Dataset{
		Headers: []string{"Metric", "Value", "Notes"},
		Rows:    rows,
	}
	return dataset, "Renewal Summary", nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func formatReportDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}
