package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"driver-punch-api-server/internal/api/middleware"
	"driver-punch-api-server/internal/export"
	"driver-punch-api-server/internal/models"
	"driver-punch-api-server/internal/returns"
)

// Uploader stores exported documents and returns their URL.
type Uploader interface {
	Upload(ctx context.Context, body io.Reader, objectKey, contentType string) (string, error)
}

type ReturnFormHandler struct {
	Returns  *returns.Service
	Uploader Uploader // nil when S3 is not configured
	Log      *slog.Logger
}

// SubmitReturnFormRequest ignores any client-side total; it is recomputed.
type SubmitReturnFormRequest struct {
	DriverID   string              `json:"driverId"`
	PunchLogID string              `json:"punchLogId" binding:"required"`
	Items      []models.ReturnItem `json:"items"`
}

type DecideRequest struct {
	Status models.FormStatus `json:"status" binding:"required,oneof=approved rejected"`
}

// SubmitReturnForm records a form for the caller. Drivers always submit for themselves;
// admins must name the driver.
func (h *ReturnFormHandler) SubmitReturnForm(c *gin.Context) {
	var req SubmitReturnFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	claims := middleware.Claims(c)
	driverID := req.DriverID
	if claims.Role == models.RoleDriver {
		if driverID != "" && driverID != claims.DriverID {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only submit forms for yourself"})
			return
		}
		driverID = claims.DriverID
	}
	if driverID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "driverId is required"})
		return
	}

	form, err := h.Returns.Submit(c.Request.Context(), returns.SubmitInput{
		DriverID:   driverID,
		PunchLogID: req.PunchLogID,
		Items:      req.Items,
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, form)
}

// ListReturnForms: admins see all (?status=&driverId=), drivers only their own.
func (h *ReturnFormHandler) ListReturnForms(c *gin.Context) {
	filter := models.FormFilter{
		Status:   models.FormStatus(c.Query("status")),
		DriverID: c.Query("driverId"),
	}
	if claims := middleware.Claims(c); claims.Role != models.RoleAdmin {
		filter.DriverID = claims.DriverID
	}
	c.JSON(http.StatusOK, h.Returns.List(c.Request.Context(), filter, queryLimit(c, 200, 1000)))
}

func (h *ReturnFormHandler) GetReturnForm(c *gin.Context) {
	form, ok := h.visibleForm(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, form)
}

// DownloadPDF renders the form. ?disposition=inline opens it for print preview.
func (h *ReturnFormHandler) DownloadPDF(c *gin.Context) {
	form, ok := h.visibleForm(c)
	if !ok {
		return
	}
	doc, err := export.RenderReturnForm(*form)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	disposition := "attachment"
	if c.Query("disposition") == "inline" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, export.FileName(*form)))
	c.Data(http.StatusOK, export.ContentType, doc)
}

// DecideReturnForm sets approved or rejected (admin).
func (h *ReturnFormHandler) DecideReturnForm(c *gin.Context) {
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	form, err := h.Returns.Decide(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, form)
}

// ExportReturnForm uploads the rendered PDF to S3 (admin).
func (h *ReturnFormHandler) ExportReturnForm(c *gin.Context) {
	if h.Uploader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Document storage is not configured"})
		return
	}
	form, err := h.Returns.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	doc, err := export.RenderReturnForm(*form)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	key := export.ObjectKey(*form)
	url, err := h.Uploader.Upload(c.Request.Context(), bytes.NewReader(doc), key, export.ContentType)
	if err != nil {
		h.Log.Error("return form export failed", "formId", c.Param("id"), "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to upload document"})
		return
	}
	h.Log.Info("return form exported", "formId", c.Param("id"), "key", key)
	c.JSON(http.StatusOK, gin.H{"url": url, "key": key})
}

// visibleForm loads :id and hides other drivers' forms behind a 404.
func (h *ReturnFormHandler) visibleForm(c *gin.Context) (*models.ReturnForm, bool) {
	form, err := h.Returns.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return nil, false
	}
	if !middleware.CanActFor(middleware.Claims(c), form.DriverID) {
		c.JSON(http.StatusNotFound, gin.H{"error": returns.ErrNotFound.Error()})
		return nil, false
	}
	return form, true
}
