package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/service"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/response"
)

// RoomHandler handles room endpoints scoped to an institution.
type RoomHandler struct {
	service *service.RoomService
}

// NewRoomHandler creates a new room handler.
func NewRoomHandler(svc *service.RoomService) *RoomHandler {
	return &RoomHandler{service: svc}
}

// Create godoc
// @Summary Create room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param payload body dto.CreateRoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /institutions/{institutionId}/rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req dto.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room payload"))
		return
	}

	room, err := h.service.Create(c.Request.Context(), c.Param("institutionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Param institutionId path string true "Institution id"
// @Success 200 {object} response.Envelope
// @Router /institutions/{institutionId}/rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	rooms, err := h.service.List(c.Request.Context(), c.Param("institutionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// Get godoc
// @Summary Get room
// @Tags Rooms
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param id path string true "Room id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.service.Get(c.Request.Context(), c.Param("institutionId"), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Update godoc
// @Summary Update room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param institutionId path string true "Institution id"
// @Param id path string true "Room id"
// @Param payload body dto.UpdateRoomRequest true "Room payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	var req dto.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid room payload"))
		return
	}

	room, err := h.service.Update(c.Request.Context(), c.Param("institutionId"), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Delete godoc
// @Summary Delete room
// @Tags Rooms
// @Param institutionId path string true "Institution id"
// @Param id path string true "Room id"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /institutions/{institutionId}/rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("institutionId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
