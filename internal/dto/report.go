package dto

import "github.com/dojoworks/renewals-api/internal/models"

// ReportRequest asks for an asynchronous renewal report.
type ReportRequest struct {
	Type       models.ReportType   `json:"type" binding:"required"`
	Format     models.ReportFormat `json:"format" binding:"required"`
	WindowDays int                 `json:"window_days,omitempty" binding:"omitempty,min=1,max=365"`
	StudentID  *string             `json:"student_id,omitempty"`
}

// ReportJobResponse acknowledges an accepted report job.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress and, when finished, the
// signed download URL.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
