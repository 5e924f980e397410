package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/schoolyard-io/schoolyard-api/internal/service"
	appErrors "github.com/schoolyard-io/schoolyard-api/pkg/errors"
	"github.com/schoolyard-io/schoolyard-api/pkg/response"
)

// ExportHandler exposes roster export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Roster godoc
// @Summary Download a school roster as CSV or PDF
// @Tags Exports
// @Produce octet-stream
// @Param id path string true "School ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /schools/{id}/roster/export [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	caller, ok := callerFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	file, err := h.exports.Roster(c.Request.Context(), caller, c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
