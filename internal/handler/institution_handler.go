package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	"github.com/bogdanivan12/odes/internal/service"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/response"
)

// InstitutionHandler handles institution and time-grid endpoints.
type InstitutionHandler struct {
	service *service.InstitutionService
}

// NewInstitutionHandler creates a new institution handler.
func NewInstitutionHandler(svc *service.InstitutionService) *InstitutionHandler {
	return &InstitutionHandler{service: svc}
}

// Create godoc
// @Summary Create institution
// @Description Register an institution with its weekly time grid
// @Tags Institutions
// @Accept json
// @Produce json
// @Param payload body dto.CreateInstitutionRequest true "Institution payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /institutions [post]
func (h *InstitutionHandler) Create(c *gin.Context) {
	var req dto.CreateInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid institution payload"))
		return
	}

	institution, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, institution)
}

// List godoc
// @Summary List institutions
// @Tags Institutions
// @Produce json
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /institutions [get]
func (h *InstitutionHandler) List(c *gin.Context) {
	var query struct {
		Search   string `form:"search"`
		Page     int    `form:"page"`
		PageSize int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	institutions, pagination, err := h.service.List(c.Request.Context(), models.InstitutionFilter{
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institutions, pagination)
}

// Get godoc
// @Summary Get institution
// @Tags Institutions
// @Produce json
// @Param institutionId path string true "Institution id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId} [get]
func (h *InstitutionHandler) Get(c *gin.Context) {
	institution, err := h.service.Get(c.Request.Context(), c.Param("institutionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institution, nil)
}

// Update godoc
// @Summary Update institution
// @Tags Institutions
// @Accept json
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param payload body dto.UpdateInstitutionRequest true "Institution payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId} [put]
func (h *InstitutionHandler) Update(c *gin.Context) {
	var req dto.UpdateInstitutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid institution payload"))
		return
	}

	institution, err := h.service.Update(c.Request.Context(), c.Param("institutionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institution, nil)
}

// UpdateTimeGrid godoc
// @Summary Update time grid
// @Description Replace the institution's weekly grid; existing schedules keep their copy
// @Tags Institutions
// @Accept json
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param payload body dto.TimeGridRequest true "Grid payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/time-grid [put]
func (h *InstitutionHandler) UpdateTimeGrid(c *gin.Context) {
	var req dto.TimeGridRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid time grid payload"))
		return
	}

	institution, err := h.service.UpdateTimeGrid(c.Request.Context(), c.Param("institutionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, institution, nil)
}

// Delete godoc
// @Summary Delete institution
// @Tags Institutions
// @Param institutionId path string true "Institution id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId} [delete]
func (h *InstitutionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("institutionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
