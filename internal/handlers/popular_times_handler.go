package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"cafepulse/internal/repository"
	"cafepulse/internal/service"

	"github.com/gin-gonic/gin"
)

// Refresher queues an out-of-schedule batch run.
type Refresher interface {
	Trigger() bool
}

type PopularTimesHandler struct {
	export    service.ExportService
	batch     service.BatchService
	refresher Refresher
}

func NewPopularTimesHandler(export service.ExportService, batch service.BatchService, refresher Refresher) *PopularTimesHandler {
	return &PopularTimesHandler{
		export:    export,
		batch:     batch,
		refresher: refresher,
	}
}

var exportContentTypes = map[string]string{
	"csv":   "text/csv",
	"xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"excel": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"json":  "application/json",
}

func (h *PopularTimesHandler) GetCafePopularTimes(c *gin.Context) {
	cafe, err := h.export.GetCafePopularTimes(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to get popular times")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":           cafe.ID,
			"name":         cafe.Name,
			"popularTimes": cafe.PopularTimes,
			"updatedAt":    cafe.PopularTimesUpdatedAt,
		},
	})
}

func (h *PopularTimesHandler) ExportPopularTimes(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	contentType, ok := exportContentTypes[format]
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "unsupported format, use csv, xlsx or json",
		})
		return
	}

	path, err := h.export.ExportPopularTimes(c.Request.Context(), format)
	if err != nil {
		respondError(c, err, "failed to export popular times")
		return
	}

	ext := format
	if ext == "excel" {
		ext = "xlsx"
	}
	c.Header("Content-Type", contentType)
	c.FileAttachment(path, fmt.Sprintf("popular_times.%s", ext))
}

func (h *PopularTimesHandler) GetLastRun(c *gin.Context) {
	report, found, err := h.batch.LastReport(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to read last run")
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no batch run recorded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    report,
	})
}

func (h *PopularTimesHandler) Refresh(c *gin.Context) {
	if !h.refresher.Trigger() {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "a refresh is already queued"})
		return
	}

	c.JSON(http.StatusAccepted, SuccessResponse{
		Success: true,
		Message: "popular times refresh queued",
	})
}

func respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrCafeNotFound), errors.Is(err, service.ErrNoPopularTimes):
		status = http.StatusNotFound
	case errors.Is(err, repository.ErrStorageUnavailable):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, ErrorResponse{
		Error:   message,
		Message: err.Error(),
		Code:    status,
	})
}
