package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/middleware"
	"github.com/bogdanivan12/odes/internal/service"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/response"
)

// ScheduleHandler manages schedule lifecycle, timetable view and export endpoints.
type ScheduleHandler struct {
	schedules  *service.ScheduleService
	timetables *service.TimetableService
	exports    *service.ExportService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(schedules *service.ScheduleService, timetables *service.TimetableService, exports *service.ExportService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, timetables: timetables, exports: exports}
}

// Generate godoc
// @Summary Generate schedule
// @Description Create a draft schedule and enqueue asynchronous generation
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generation payload"))
		return
	}

	schedule, err := h.schedules.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param institution_id query string true "Institution id"
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var query dto.ScheduleListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	if query.InstitutionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "institution_id is required"))
		return
	}

	schedules, pagination, err := h.schedules.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ScheduleListResponse{Schedules: schedules}, pagination)
}

// Get godoc
// @Summary Get schedule
// @Description Get one schedule with its lifecycle state and failure classifier
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	schedule, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Placements godoc
// @Summary List placements
// @Description List the scheduled activities of a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id}/scheduled-activities [get]
func (h *ScheduleHandler) Placements(c *gin.Context) {
	placements, err := h.schedules.Placements(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ScheduledActivityListResponse{ScheduledActivities: placements}, nil)
}

// Update godoc
// @Summary Update schedule
// @Description Patch lifecycle fields; illegal transitions are rejected
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule id"
// @Param payload body dto.UpdateScheduleRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req dto.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patch payload"))
		return
	}

	schedule, err := h.schedules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete schedule
// @Description Remove a schedule together with its placements
// @Tags Schedules
// @Param id path string true "Schedule id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Timetable godoc
// @Summary Timetable view
// @Description Week-grid view of a completed schedule for a group, professor or room
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule id"
// @Param group_id query string false "Group scope"
// @Param professor_id query string false "Professor scope"
// @Param room_id query string false "Room scope"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/timetable [get]
func (h *ScheduleHandler) Timetable(c *gin.Context) {
	var query dto.TimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	scheduleID := c.Param("id")
	scopes := 0
	for _, v := range []string{query.GroupID, query.ProfessorID, query.RoomID} {
		if v != "" {
			scopes++
		}
	}
	if scopes != 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "exactly one of group_id, professor_id or room_id is required"))
		return
	}

	var err error
	var view interface{}
	switch {
	case query.GroupID != "":
		view, err = h.timetables.GroupView(c.Request.Context(), scheduleID, query.GroupID)
	case query.ProfessorID != "":
		view, err = h.timetables.ProfessorView(c.Request.Context(), scheduleID, query.ProfessorID)
	default:
		view, err = h.timetables.RoomView(c.Request.Context(), scheduleID, query.RoomID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

// Stats godoc
// @Summary Schedule statistics
// @Description Placement totals, room utilisation and professor load
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/stats [get]
func (h *ScheduleHandler) Stats(c *gin.Context) {
	stats, err := h.timetables.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export schedule
// @Description Render a completed schedule to CSV or PDF and return a signed download URL
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule id"
// @Param payload body dto.ExportScheduleRequest true "Export payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/export [post]
func (h *ScheduleHandler) Export(c *gin.Context) {
	var req dto.ExportScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}

	res, err := h.exports.Export(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Download godoc
// @Summary Download export
// @Description Stream a previously exported file via its signed token
// @Tags Schedules
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /downloads/{token} [get]
func (h *ScheduleHandler) Download(c *gin.Context) {
	file, relPath, err := h.exports.ResolveDownload(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.FileAttachment(file.Name(), downloadName(relPath))
}

func downloadName(relPath string) string {
	for i := len(relPath) - 1; i >= 0; i-- {
		if relPath[i] == '/' {
			return relPath[i+1:]
		}
	}
	return relPath
}
