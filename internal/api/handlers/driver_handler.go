package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"driver-punch-api-server/internal/drivers"
	"driver-punch-api-server/internal/models"
)

type DriverHandler struct {
	Drivers *drivers.Service
	Log     *slog.Logger
}

type CreateDriverRequest struct {
	DriverID string `json:"driverId"`
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"omitempty,email"`
	Phone    string `json:"phone"`
	PIN      string `json:"pin" binding:"required"`
}

type UpdateDriverRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" binding:"omitempty,email"`
	Phone *string `json:"phone"`
	PIN   *string `json:"pin"`
}

type EnrollFaceRequest struct {
	Descriptor []float64 `json:"descriptor" binding:"required"`
}

func views(list []models.Driver) []models.DriverView {
	out := make([]models.DriverView, len(list))
	for i, d := range list {
		out[i] = d.View()
	}
	return out
}

// CreateDriver registers a driver (admin).
func (h *DriverHandler) CreateDriver(c *gin.Context) {
	var req CreateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	d, err := h.Drivers.Create(c.Request.Context(), drivers.CreateInput{
		DriverID: req.DriverID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		PIN:      req.PIN,
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, d.View())
}

// ListDrivers returns all drivers, or only active ones with ?active=true.
func (h *DriverHandler) ListDrivers(c *gin.Context) {
	list := h.Drivers.List(c.Request.Context(), c.Query("active") == "true")
	c.JSON(http.StatusOK, views(list))
}

func (h *DriverHandler) GetDriver(c *gin.Context) {
	d, err := h.Drivers.Lookup(c.Request.Context(), c.Param("driverId"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, d.View())
}

func (h *DriverHandler) UpdateDriver(c *gin.Context) {
	var req UpdateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	d, err := h.Drivers.Update(c.Request.Context(), c.Param("driverId"), drivers.UpdateInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		PIN:   req.PIN,
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, d.View())
}

func (h *DriverHandler) DeactivateDriver(c *gin.Context) {
	if err := h.Drivers.Deactivate(c.Request.Context(), c.Param("driverId")); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Driver deactivated"})
}

func (h *DriverHandler) DeleteDriver(c *gin.Context) {
	if err := h.Drivers.Delete(c.Request.Context(), c.Param("driverId")); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Driver deleted successfully"})
}

// EnrollFace stores the descriptor computed by the client-side face model.
func (h *DriverHandler) EnrollFace(c *gin.Context) {
	var req EnrollFaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	d, err := h.Drivers.EnrollFace(c.Request.Context(), c.Param("driverId"), req.Descriptor)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, d.View())
}
