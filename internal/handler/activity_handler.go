package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/service"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/response"
)

// ActivityHandler handles activity endpoints scoped to an institution.
type ActivityHandler struct {
	service *service.ActivityService
}

// NewActivityHandler creates a new activity handler.
func NewActivityHandler(svc *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: svc}
}

// Create godoc
// @Summary Create activity
// @Description Register a schedulable activity, optionally pinned to a timeslot
// @Tags Activities
// @Accept json
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param payload body dto.CreateActivityRequest true "Activity payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /institutions/{institutionId}/activities [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	var req dto.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity payload"))
		return
	}

	activity, err := h.service.Create(c.Request.Context(), c.Param("institutionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, activity)
}

// List godoc
// @Summary List activities
// @Tags Activities
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param group_id query string false "Group filter"
// @Param course_id query string false "Course filter"
// @Param professor_id query string false "Professor filter"
// @Success 200 {object} response.Envelope
// @Router /institutions/{institutionId}/activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	var query dto.ActivityListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	activities, err := h.service.List(c.Request.Context(), c.Param("institutionId"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, nil)
}

// Get godoc
// @Summary Get activity
// @Tags Activities
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param id path string true "Activity id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	activity, err := h.service.Get(c.Request.Context(), c.Param("institutionId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

// Update godoc
// @Summary Update activity
// @Tags Activities
// @Accept json
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param id path string true "Activity id"
// @Param payload body dto.UpdateActivityRequest true "Activity payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/activities/{id} [put]
func (h *ActivityHandler) Update(c *gin.Context) {
	var req dto.UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid activity payload"))
		return
	}

	activity, err := h.service.Update(c.Request.Context(), c.Param("institutionId"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

// Delete godoc
// @Summary Delete activity
// @Tags Activities
// @Param institutionId path string true "Institution id"
// @Param id path string true "Activity id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("institutionId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
