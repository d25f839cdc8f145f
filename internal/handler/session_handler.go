package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campus-labs/attendance-api/internal/service"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
	"github.com/campus-labs/attendance-api/pkg/response"
	"github.com/campus-labs/attendance-api/pkg/storage"
)

// SessionHandler exposes the attendance window, presence and report
// endpoints for session dates.
type SessionHandler struct {
	sessions *service.SessionService
	presence *service.PresenceService
	notify   *service.NotifyService
	reports  *service.ReportService
	metrics  *service.MetricsService
	links    *storage.ReportLinkSigner
}

// NewSessionHandler constructs SessionHandler. links may be nil to disable
// shareable report downloads.
func NewSessionHandler(sessions *service.SessionService, presence *service.PresenceService, notify *service.NotifyService, reports *service.ReportService, metrics *service.MetricsService, links *storage.ReportLinkSigner) *SessionHandler {
	return &SessionHandler{sessions: sessions, presence: presence, notify: notify, reports: reports, metrics: metrics, links: links}
}

// Start opens the attendance window for a session date.
func (h *SessionHandler) Start(c *gin.Context) {
	sd, err := h.sessions.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sd, nil)
}

// Stop closes the attendance window. Idempotent.
func (h *SessionHandler) Stop(c *gin.Context) {
	sd, err := h.sessions.Stop(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sd, nil)
}

// PresenceRequest is a manually entered presence claim.
type PresenceRequest struct {
	MatricNo string `json:"matric_no" binding:"required"`
}

// MarkPresence records a typed-in presence claim.
func (h *SessionHandler) MarkPresence(c *gin.Context) {
	var req PresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.presence.MarkPresent(c.Request.Context(), c.Param("id"), req.MatricNo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"outcome": outcome, "matric_no": req.MatricNo}, nil)
}

// RecognizeRequest carries a captured sample for identity resolution.
type RecognizeRequest struct {
	Sample []byte `json:"sample" binding:"required"`
}

// Recognize resolves a captured sample and records the resulting claim. A
// sample that matches nobody is reported as NO_MATCH without touching any
// enrollment record.
func (h *SessionHandler) Recognize(c *gin.Context) {
	var req RecognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, matricNo, err := h.presence.Recognize(c.Request.Context(), c.Param("id"), req.Sample)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"outcome": outcome, "matric_no": matricNo}, nil)
}

// Revert is the privileged edit putting a record back to Absent.
func (h *SessionHandler) Revert(c *gin.Context) {
	var req PresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.presence.RevertAbsent(c.Request.Context(), c.Param("id"), req.MatricNo); err != nil {
		response.Error(c, err)
		return
	}
	h.reports.Invalidate(c.Request.Context(), c.Param("id"))
	response.NoContent(c)
}

// Absentees lists still-absent enrollees of a closed session date.
func (h *SessionHandler) Absentees(c *gin.Context) {
	_, absentees, err := h.notify.CollectAbsentees(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, absentees, nil)
}

// Notify queues absence notices for a closed session date.
func (h *SessionHandler) Notify(c *gin.Context) {
	queued, err := h.notify.Dispatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveNoticesQueued(queued)
	}
	response.JSON(c, http.StatusAccepted, gin.H{"queued": queued}, nil)
}

// Report returns the attendance report for a session date.
func (h *SessionHandler) Report(c *gin.Context) {
	report, err := h.reports.Build(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ReportPDF streams the attendance report as a PDF download.
func (h *SessionHandler) ReportPDF(c *gin.Context) {
	data, filename, err := h.reports.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// ReportLink mints a short-lived signed download link for the report, so it
// can be shared without an access token. format defaults to pdf.
func (h *SessionHandler) ReportLink(c *gin.Context) {
	if h.links == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "report links are not enabled"))
		return
	}
	format := c.DefaultQuery("format", "pdf")
	if format != "pdf" && format != "csv" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be pdf or csv"))
		return
	}
	if _, err := h.sessions.Detail(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	token, expiresAt, err := h.links.Generate(c.Param("id"), format)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign report link"))
		return
	}
	base := strings.TrimSuffix(c.Request.URL.Path, "/sessions/"+c.Param("id")+"/report/link")
	response.JSON(c, http.StatusOK, gin.H{
		"url":        base + "/downloads/reports?token=" + token,
		"expires_at": expiresAt,
	}, nil)
}

// DownloadReport validates a signed link token and streams the rendered
// report. Mounted outside the authenticated group.
func (h *SessionHandler) DownloadReport(c *gin.Context) {
	if h.links == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, ""))
		return
	}
	sessionDateID, format, _, err := h.links.Parse(c.Query("token"))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link"))
		return
	}

	var data []byte
	var filename, contentType string
	switch format {
	case "csv":
		data, filename, err = h.reports.RenderCSV(c.Request.Context(), sessionDateID)
		contentType = "text/csv"
	default:
		data, filename, err = h.reports.RenderPDF(c.Request.Context(), sessionDateID)
		contentType = "application/pdf"
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// ReportCSV streams the attendance report as CSV.
func (h *SessionHandler) ReportCSV(c *gin.Context) {
	data, filename, err := h.reports.RenderCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}
