package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dojoworks/renewals-api/internal/dto"
	"github.com/dojoworks/renewals-api/internal/service"
	appErrors "github.com/dojoworks/renewals-api/pkg/errors"
	"github.com/dojoworks/renewals-api/pkg/response"
)

// RenewalHandler exposes renewal lifecycle endpoints.
type RenewalHandler struct {
	renewals *service.RenewalService
}

// NewRenewalHandler constructs RenewalHandler.
func NewRenewalHandler(renewals *service.RenewalService) *RenewalHandler {
	return &RenewalHandler{renewals: renewals}
}

// List godoc
// @Summary List renewals
// @Tags Renewals
// @Produce json
// @Param studentId query string false "Filter by student"
// @Success 200 {object} response.Envelope
// @Router /renewals [get]
func (h *RenewalHandler) List(c *gin.Context) {
	studentID := c.Query("studentId")

	var err error
	var renewals interface{}
	if studentID != "" {
		renewals, err = h.renewals.LoadByStudent(c.Request.Context(), studentID)
	} else {
		renewals, err = h.renewals.LoadAll(c.Request.Context())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, renewals, nil)
}

// Get godoc
// @Summary Get renewal detail
// @Tags Renewals
// @Produce json
// @Param id path string true "Renewal ID"
// @Success 200 {object} response.Envelope
// @Router /renewals/{id} [get]
func (h *RenewalHandler) Get(c *gin.Context) {
	renewal, err := h.renewals.LoadByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, renewal, nil)
}

// Create godoc
// @Summary Register a renewal
// @Tags Renewals
// @Accept json
// @Produce json
// @Param payload body dto.CreateRenewalRequest true "Renewal payload"
// @Success 201 {object} response.Envelope
// @Router /renewals [post]
func (h *RenewalHandler) Create(c *gin.Context) {
	var req dto.CreateRenewalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	renewal := req.ToModel()
	if err := h.renewals.Create(c.Request.Context(), &renewal); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, renewal)
}

// Update godoc
// @Summary Partially update a renewal
// @Tags Renewals
// @Accept json
// @Produce json
// @Param id path string true "Renewal ID"
// @Param payload body dto.UpdateRenewalRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /renewals/{id} [patch]
func (h *RenewalHandler) Update(c *gin.Context) {
	var req dto.UpdateRenewalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	renewal, err := h.renewals.Update(c.Request.Context(), c.Param("id"), req.ToPatch())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, renewal, nil)
}

// Delete godoc
// @Summary Delete a renewal
// @Tags Renewals
// @Param id path string true "Renewal ID"
// @Success 204
// @Router /renewals/{id} [delete]
func (h *RenewalHandler) Delete(c *gin.Context) {
	if err := h.renewals.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Lifecycle partition of renewals
// @Tags Renewals
// @Produce json
// @Param studentId query string false "Filter by student"
// @Success 200 {object} response.Envelope
// @Router /renewals/summary [get]
func (h *RenewalHandler) Summary(c *gin.Context) {
	categorized, err := h.renewals.Categorized(c.Request.Context(), c.Query("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categorized, nil)
}

// Expiring godoc
// @Summary Renewals needing attention
// @Tags Renewals
// @Produce json
// @Param days query int false "Fetch window in days (default 30)"
// @Success 200 {object} response.Envelope
// @Router /renewals/expiring [get]
func (h *RenewalHandler) Expiring(c *gin.Context) {
	days := parseDays(c)
	expiring, err := h.renewals.Expiring(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, expiring, nil)
}

// ExpiringGrouped godoc
// @Summary Prioritized attention buckets
// @Tags Renewals
// @Produce json
// @Param days query int false "Fetch window in days (default 30)"
// @Success 200 {object} response.Envelope
// @Router /renewals/expiring/grouped [get]
func (h *RenewalHandler) ExpiringGrouped(c *gin.Context) {
	days := parseDays(c)
	grouped, err := h.renewals.GroupedExpiring(c.Request.Context(), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grouped, nil)
}

// Quit godoc
// @Summary Resolve an expiring renewal as quit
// @Tags Renewals
// @Accept json
// @Produce json
// @Param id path string true "Renewal ID"
// @Param payload body dto.ResolveQuitRequest false "Optional notes"
// @Success 200 {object} response.Envelope
// @Router /renewals/{id}/quit [post]
func (h *RenewalHandler) Quit(c *gin.Context) {
	var req dto.ResolveQuitRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	resolution, err := h.renewals.ResolveAsQuit(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolution, nil)
}

// Renew godoc
// @Summary Roll a renewal into a successor period
// @Tags Renewals
// @Accept json
// @Produce json
// @Param id path string true "Renewal ID"
// @Param payload body dto.ResolveRenewRequest false "Successor overrides"
// @Success 201 {object} response.Envelope
// @Router /renewals/{id}/renew [post]
func (h *RenewalHandler) Renew(c *gin.Context) {
	var req dto.ResolveRenewRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	resolution, newRenewal, err := h.renewals.ResolveWithNext(c.Request.Context(), c.Param("id"), req.ToPatch())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ResolveRenewResponse{Resolution: *resolution, NewRenewal: *newRenewal})
}

func parseDays(c *gin.Context) int {
	days, err := strconv.Atoi(c.DefaultQuery("days", "0"))
	if err != nil || days < 0 {
		return 0
	}
	return days
}
