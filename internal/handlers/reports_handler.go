package handlers

import (
	"fmt"
	"log"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"eventcrm/internal/services"
)

type ReportHandler struct {
	Service services.ReportService
}

func NewReportHandler(service services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// Progress godoc
// @Summary      Task progress of an event
// @Tags         Reports
// @Produce      json
// @Param        id   path      int  true  "Event ID"
// @Success      200  {object}  services.EventProgress
// @Failure      404  {object}  map[string]string
// @Router       /events/{id}/progress [get]
func (h *ReportHandler) Progress(c *gin.Context) {
	id, ok := parseID(c, "report][progress")
	if !ok {
		return
	}
	data, err := h.Service.Progress(c.Request.Context(), id)
	if err != nil {
		respondError(c, "report][progress", err)
		return
	}
	c.JSON(http.StatusOK, data)
}

// SummaryPDF godoc
// @Summary      Event summary as PDF
// @Description  Inline by default, ?download=1 sends it as an attachment.
// @Tags         Reports
// @Produce      application/pdf
// @Param        id        path   int     true   "Event ID"
// @Param        download  query  string  false  "1 to download"
// @Success      200
// @Failure      404  {object}  map[string]string
// @Router       /events/{id}/summary.pdf [get]
func (h *ReportHandler) SummaryPDF(c *gin.Context) {
	id, ok := parseID(c, "report][pdf")
	if !ok {
		return
	}
	userID, roleID := getUserAndRole(c)
	log.Printf("[report][pdf] event=%d by userID=%d role=%d", id, userID, roleID)

	stored, content, err := h.Service.SummaryPDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, "report][pdf", err)
		return
	}

	disposition := "inline"
	if c.Query("download") == "1" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, path.Base(stored)))
	c.Data(http.StatusOK, "application/pdf", content)
}
