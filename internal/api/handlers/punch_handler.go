package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"driver-punch-api-server/internal/models"
	"driver-punch-api-server/internal/punch"
)

type PunchHandler struct {
	Punch *punch.Service
	Log   *slog.Logger
}

type PINPunchRequest struct {
	PIN      string           `json:"pin" binding:"required"`
	Location *models.Location `json:"location"`
}

// FacePunchRequest carries the live descriptor; an empty one means no face was detected.
type FacePunchRequest struct {
	Descriptor []float64        `json:"descriptor"`
	Location   *models.Location `json:"location"`
}

func (h *PunchHandler) GetPunchState(c *gin.Context) {
	state, err := h.Punch.State(c.Request.Context(), c.Param("driverId"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *PunchHandler) PunchWithPIN(c *gin.Context) {
	var req PINPunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Punch.PunchWithPIN(c.Request.Context(), c.Param("driverId"), req.PIN, req.Location)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *PunchHandler) PunchWithFace(c *gin.Context) {
	var req FacePunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Punch.PunchWithFace(c.Request.Context(), c.Param("driverId"), req.Descriptor, req.Location)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// ListPunchLogs is the admin ledger view: ?driverId=&from=&to=&limit=.
func (h *PunchHandler) ListPunchLogs(c *gin.Context) {
	from, err := queryTime(c, "from")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' timestamp"})
		return
	}
	to, err := queryTime(c, "to")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' timestamp"})
		return
	}
	filter := models.PunchFilter{DriverID: c.Query("driverId"), From: from, To: to}
	c.JSON(http.StatusOK, h.Punch.History(c.Request.Context(), filter, queryLimit(c, 100, 1000)))
}
