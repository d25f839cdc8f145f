package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campus-labs/attendance-api/internal/models"
	"github.com/campus-labs/attendance-api/internal/service"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
	"github.com/campus-labs/attendance-api/pkg/response"
	"github.com/campus-labs/attendance-api/pkg/storage"
)

// UploadHandler receives roster CSV uploads and hands them to the
// reconciler. All three upload kinds are all-or-nothing batches. Applied
// uploads are archived on disk for audit; a failed batch archives nothing.
type UploadHandler struct {
	roster  *service.RosterService
	archive *storage.UploadArchive
	metrics *service.MetricsService
	logger  *zap.Logger
}

// NewUploadHandler constructs UploadHandler. archive and metrics may be nil.
func NewUploadHandler(roster *service.RosterService, archive *storage.UploadArchive, metrics *service.MetricsService, logger *zap.Logger) *UploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandler{roster: roster, archive: archive, metrics: metrics, logger: logger}
}

// Courses reconciles a course upload CSV.
func (h *UploadHandler) Courses(c *gin.Context) {
	h.apply(c, "courses", h.roster.ImportCourses)
}

// Students reconciles a student upload CSV.
func (h *UploadHandler) Students(c *gin.Context) {
	h.apply(c, "students", h.roster.ImportStudents)
}

// Roster reconciles an attendance roster CSV.
func (h *UploadHandler) Roster(c *gin.Context) {
	h.apply(c, "roster", h.roster.ImportRoster)
}

func (h *UploadHandler) apply(c *gin.Context, kind string, importer func(context.Context, io.Reader) (*models.ReconcileSummary, error)) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing upload file"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read upload file"))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "could not read upload file"))
		return
	}

	summary, err := importer(c.Request.Context(), bytes.NewReader(raw))
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.archive != nil {
		if _, err := h.archive.Store(kind, fileHeader.Filename, bytes.NewReader(raw)); err != nil {
			h.logger.Warn("failed to archive upload", zap.String("kind", kind), zap.Error(err))
		}
	}
	if h.metrics != nil {
		h.metrics.ObserveUpload(kind, summary.RowsApplied)
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
