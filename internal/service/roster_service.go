package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campus-labs/attendance-api/internal/models"
	"github.com/campus-labs/attendance-api/internal/repository"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
)

// uploadDateLayout is the DD/MM/YYYY format used by the upload files.
const uploadDateLayout = "02/01/2006"

type rosterRepository interface {
	ApplyCourseBatch(ctx context.Context, rows []models.CourseUploadRow) (models.ReconcileSummary, error)
	ApplyStudentBatch(ctx context.Context, rows []models.StudentUploadRow) (models.ReconcileSummary, error)
	ApplyRosterBatch(ctx context.Context, rows []models.RosterUploadRow) (models.ReconcileSummary, error)
}

// RosterService parses upload CSVs and reconciles them into the entity
// graph. A batch either applies completely or not at all: any malformed row
// or unresolved reference aborts the upload with nothing written.
type RosterService struct {
	repo   rosterRepository
	logger *zap.Logger
}

// NewRosterService constructs the roster service.
func NewRosterService(repo rosterRepository, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{repo: repo, logger: logger}
}

// ImportCourses reconciles a course upload: each row names a course, one of
// its class sections, a session date and the staff member in charge.
func (s *RosterService) ImportCourses(ctx context.Context, r io.Reader) (*models.ReconcileSummary, error) {
	records, header, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	rows := make([]models.CourseUploadRow, 0, len(records))
	for i, record := range records {
		get := fieldGetter(header, record)

		courseCode, err := get("courseCode")
		if err != nil {
			return nil, malformedRow(i, err)
		}
		courseName, err := get("courseName")
		if err != nil {
			return nil, malformedRow(i, err)
		}
		sectionID, err := get("sectionId")
		if err != nil {
			return nil, malformedRow(i, err)
		}
		sectionLabel, err := get("sectionLabel")
		if err != nil {
			return nil, malformedRow(i, err)
		}
		room, _ := get("room")
		rawDate, err := get("date")
		if err != nil {
			return nil, malformedRow(i, err)
		}
		date, err := time.Parse(uploadDateLayout, rawDate)
		if err != nil {
			return nil, malformedRow(i, fmt.Errorf("date %q is not DD/MM/YYYY", rawDate))
		}
		staffEmployeeNo, err := get("staffEmployeeNo")
		if err != nil {
			return nil, malformedRow(i, err)
		}

		rows = append(rows, models.CourseUploadRow{
			CourseCode:      courseCode,
			CourseName:      courseName,
			SectionID:       sectionID,
			SectionLabel:    sectionLabel,
			Room:            room,
			Date:            date,
			StaffEmployeeNo: staffEmployeeNo,
		})
	}

	summary, err := s.repo.ApplyCourseBatch(ctx, rows)
	if err != nil {
		return nil, reconcileError(err)
	}
	s.logger.Info("course upload reconciled",
		zap.Int("rows", summary.RowsApplied),
		zap.Int("created", summary.EntitiesCreated),
		zap.Int("skipped", summary.EntitiesSkipped))
	return &summary, nil
}

// ImportStudents reconciles a student upload against the matric number key.
func (s *RosterService) ImportStudents(ctx context.Context, r io.Reader) (*models.ReconcileSummary, error) {
	records, header, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	rows := make([]models.StudentUploadRow, 0, len(records))
	for i, record := range records {
		get := fieldGetter(header, record)

		studentID, err := get("studentId")
		if err != nil {
			return nil, malformedRow(i, err)
		}
		studentName, err := get("studentName")
		if err != nil {
			return nil, malformedRow(i, err)
		}
		studentEmail, err := get("studentEmail")
		if err != nil {
			return nil, malformedRow(i, err)
		}

		rows = append(rows, models.StudentUploadRow{
			StudentID:    studentID,
			StudentName:  studentName,
			StudentEmail: studentEmail,
		})
	}

	summary, err := s.repo.ApplyStudentBatch(ctx, rows)
	if err != nil {
		return nil, reconcileError(err)
	}
	s.logger.Info("student upload reconciled",
		zap.Int("rows", summary.RowsApplied),
		zap.Int("created", summary.EntitiesCreated))
	return &summary, nil
}

// ImportRoster reconciles an attendance roster upload, enrolling students
// into sections with stable seat numbers.
func (s *RosterService) ImportRoster(ctx context.Context, r io.Reader) (*models.ReconcileSummary, error) {
	records, header, err := readCSV(r)
	if err != nil {
		return nil, err
	}

	rows := make([]models.RosterUploadRow, 0, len(records))
	for i, record := range records {
		get := fieldGetter(header, record)

		sectionID, err := get("sectionId")
		if err != nil {
			return nil, malformedRow(i, err)
		}
		studentID, err := get("studentId")
		if err != nil {
			return nil, malformedRow(i, err)
		}

		seatNo := 0
		if raw, err := get("seatNo"); err == nil && raw != "" {
			seatNo, err = strconv.Atoi(raw)
			if err != nil || seatNo < 0 {
				return nil, malformedRow(i, fmt.Errorf("seatNo %q is not a positive integer", raw))
			}
		}

		rows = append(rows, models.RosterUploadRow{
			SectionID: sectionID,
			StudentID: studentID,
			SeatNo:    seatNo,
		})
	}

	summary, err := s.repo.ApplyRosterBatch(ctx, rows)
	if err != nil {
		return nil, reconcileError(err)
	}
	s.logger.Info("roster upload reconciled",
		zap.Int("rows", summary.RowsApplied),
		zap.Int("created", summary.EntitiesCreated),
		zap.Int("skipped", summary.EntitiesSkipped))
	return &summary, nil
}

// readCSV loads all records and the lower-level header index. An upload with
// no data rows is rejected so callers can tell "nothing to do" apart from
// "everything was already on file".
func readCSV(r io.Reader) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headerRecord, err := reader.Read()
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrMalformedRow, "upload is empty or has no header line")
	}
	header := make(map[string]int, len(headerRecord))
	for i, name := range headerRecord {
		header[strings.TrimSpace(name)] = i
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrMalformedRow.Code, appErrors.ErrMalformedRow.Status, "upload row could not be parsed")
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrMalformedRow, "upload contains no data rows")
	}
	return records, header, nil
}

// fieldGetter returns a lookup closure over one record keyed by header name.
func fieldGetter(header map[string]int, record []string) func(string) (string, error) {
	return func(name string) (string, error) {
		idx, ok := header[name]
		if !ok || idx >= len(record) {
			return "", fmt.Errorf("missing field %q", name)
		}
		value := strings.TrimSpace(record[idx])
		if value == "" {
			return "", fmt.Errorf("field %q is empty", name)
		}
		return value, nil
	}
}

func malformedRow(rowIndex int, cause error) error {
	return appErrors.Wrap(cause, appErrors.ErrMalformedRow.Code, appErrors.ErrMalformedRow.Status,
		fmt.Sprintf("row %d: %v", rowIndex+1, cause))
}

func reconcileError(err error) error {
	var unresolved *repository.UnresolvedError
	if errors.As(err, &unresolved) {
		return appErrors.Wrap(err, appErrors.ErrUnresolvedReference.Code, appErrors.ErrUnresolvedReference.Status, unresolved.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile upload")
}
