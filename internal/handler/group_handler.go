package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/service"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/response"
)

// GroupHandler handles student-group endpoints scoped to an institution.
type GroupHandler struct {
	service *service.GroupService
}

// NewGroupHandler creates a new group handler.
func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{service: svc}
}

// Create godoc
// @Summary Create group
// @Description Register a student group, optionally under a parent group
// @Tags Groups
// @Accept json
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param payload body dto.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /institutions/{institutionId}/groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	var req dto.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}

	group, err := h.service.Create(c.Request.Context(), c.Param("institutionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// List godoc
// @Summary List groups
// @Tags Groups
// @Produce json
// @Param institutionId path string true "Institution id"
// @Success 200 {object} response.Envelope
// @Router /institutions/{institutionId}/groups [get]
func (h *GroupHandler) List(c *gin.Context) {
	groups, err := h.service.List(c.Request.Context(), c.Param("institutionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Get godoc
// @Summary Get group
// @Tags Groups
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param id path string true "Group id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.service.Get(c.Request.Context(), c.Param("institutionId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Update godoc
// @Summary Update group
// @Tags Groups
// @Accept json
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param id path string true "Group id"
// @Param payload body dto.UpdateGroupRequest true "Group payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	var req dto.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}

	group, err := h.service.Update(c.Request.Context(), c.Param("institutionId"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// Delete godoc
// @Summary Delete group
// @Description Remove a group; groups with child groups are rejected
// @Tags Groups
// @Param institutionId path string true "Institution id"
// @Param id path string true "Group id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /institutions/{institutionId}/groups/{id} [delete]
func (h *GroupHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("institutionId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
