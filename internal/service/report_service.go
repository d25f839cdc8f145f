package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campus-labs/attendance-api/internal/models"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
	"github.com/campus-labs/attendance-api/pkg/export"
)

type rosterReader interface {
	Roster(ctx context.Context, sessionDateID string) ([]models.RosterRow, error)
}

// SessionReport is the full attendance picture of one session date.
type SessionReport struct {
	Session models.SessionDateDetail `json:"session"`
	Rows    []models.RosterRow       `json:"rows"`
	Present int                      `json:"present"`
	Absent  int                      `json:"absent"`
}

// ReportService builds per-session attendance reports and renders them for
// download. Closed sessions are immutable in the normal flow, so their
// reports are cached; open sessions are always read fresh.
type ReportService struct {
	sessions sessionGateRepository
	roster   rosterReader
	cache    *redis.Client
	cacheTTL time.Duration
	pdf      *export.PDFExporter
	csv      *export.CSVExporter
	logger   *zap.Logger
}

// NewReportService constructs the report service. cache may be nil.
func NewReportService(sessions sessionGateRepository, roster rosterReader, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		sessions: sessions,
		roster:   roster,
		cache:    cache,
		cacheTTL: cacheTTL,
		pdf:      export.NewPDFExporter(),
		csv:      export.NewCSVExporter(),
		logger:   logger,
	}
}

func reportCacheKey(sessionDateID string) string {
	return "report:session:" + sessionDateID
}

// Build assembles the report for a session date.
func (s *ReportService) Build(ctx context.Context, sessionDateID string) (*SessionReport, error) {
	detail, err := s.sessions.FindDetail(ctx, sessionDateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session date not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session date")
	}

	if s.cache != nil && !detail.SessionOpen {
		if cached, err := s.cache.Get(ctx, reportCacheKey(sessionDateID)).Bytes(); err == nil {
			var report SessionReport
			if err := json.Unmarshal(cached, &report); err == nil {
				return &report, nil
			}
		}
	}

	rows, err := s.roster.Roster(ctx, sessionDateID)
	if err != nil {
		return nil, err
	}

	report := &SessionReport{Session: *detail, Rows: rows}
	for _, row := range rows {
		if row.Status == models.PresencePresent {
			report.Present++
		} else {
			report.Absent++
		}
	}

	if s.cache != nil && !detail.SessionOpen {
		if encoded, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, reportCacheKey(sessionDateID), encoded, s.cacheTTL).Err(); err != nil {
				s.logger.Warn("failed to cache session report", zap.Error(err))
			}
		}
	}
	return report, nil
}

// Invalidate drops the cached report for a session date. Called after the
// privileged presence edit, which can change a closed session's report.
func (s *ReportService) Invalidate(ctx context.Context, sessionDateID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, reportCacheKey(sessionDateID)).Err(); err != nil {
		s.logger.Warn("failed to invalidate session report cache", zap.Error(err))
	}
}

// RenderPDF renders the report as a downloadable PDF.
func (s *ReportService) RenderPDF(ctx context.Context, sessionDateID string) ([]byte, string, error) {
	report, err := s.Build(ctx, sessionDateID)
	if err != nil {
		return nil, "", err
	}

	title := fmt.Sprintf("%s %s attendance", report.Session.CourseCode, report.Session.SectionLabel)
	subtitle := fmt.Sprintf("%s - %d present, %d absent",
		report.Session.Date.Format("02/01/2006"), report.Present, report.Absent)
	data, err := s.pdf.Render(reportDataset(report), title, subtitle)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("attendance-%s-%s.pdf", report.Session.CourseCode, report.Session.Date.Format("2006-01-02"))
	return data, filename, nil
}

// RenderCSV renders the report as CSV.
func (s *ReportService) RenderCSV(ctx context.Context, sessionDateID string) ([]byte, string, error) {
	report, err := s.Build(ctx, sessionDateID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.csv.Render(reportDataset(report))
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("attendance-%s-%s.csv", report.Session.CourseCode, report.Session.Date.Format("2006-01-02"))
	return data, filename, nil
}

func reportDataset(report *SessionReport) export.Dataset {
	headers := []string{"Seat", "Matric No", "Name", "Status"}
	rows := make([]map[string]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, map[string]string{
			"Seat":      fmt.Sprintf("%d", row.SeatNo),
			"Matric No": row.MatricNo,
			"Name":      row.StudentName,
			"Status":    string(row.Status),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
