package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/service"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/response"
)

// CourseHandler handles course endpoints scoped to an institution.
type CourseHandler struct {
	service *service.CourseService
}

// NewCourseHandler creates a new course handler.
func NewCourseHandler(svc *service.CourseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// Create godoc
// @Summary Create course
// @Tags Courses
// @Accept json
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /institutions/{institutionId}/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.service.Create(c.Request.Context(), c.Param("institutionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param institutionId path string true "Institution id"
// @Success 200 {object} response.Envelope
// @Router /institutions/{institutionId}/courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.service.List(c.Request.Context(), c.Param("institutionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param id path string true "Course id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.service.Get(c.Request.Context(), c.Param("institutionId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Update godoc
// @Summary Update course
// @Tags Courses
// @Accept json
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param id path string true "Course id"
// @Param payload body dto.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req dto.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}

	course, err := h.service.Update(c.Request.Context(), c.Param("institutionId"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete course
// @Tags Courses
// @Param institutionId path string true "Institution id"
// @Param id path string true "Course id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("institutionId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
