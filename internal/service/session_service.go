package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campus-labs/attendance-api/internal/models"
	"github.com/campus-labs/attendance-api/internal/repository"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
)

type sessionGateRepository interface {
	FindByID(ctx context.Context, id string) (*models.SessionDate, error)
	FindDetail(ctx context.Context, id string) (*models.SessionDateDetail, error)
	Open(ctx context.Context, id string) error
	Close(ctx context.Context, id string) error
}

// SessionService is the gate over a class section's attendance window. A
// class section has at most one open session date at any instant; attendance
// capture for a class is a single live activity even though the class meets
// on many dates.
type SessionService struct {
	repo   sessionGateRepository
	logger *zap.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(repo sessionGateRepository, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, logger: logger}
}

// Start opens the attendance window for a session date. Fails with
// SESSION_CONFLICT when any date of the same class section, including this
// one, is already open.
func (s *SessionService) Start(ctx context.Context, sessionDateID string) (*models.SessionDate, error) {
	if err := s.repo.Open(ctx, sessionDateID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session date not found")
		case errors.Is(err, repository.ErrOpenSessionExists):
			return nil, appErrors.Clone(appErrors.ErrSessionConflict, "")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start session")
		}
	}

	sd, err := s.repo.FindByID(ctx, sessionDateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session date")
	}
	s.logger.Info("attendance session started",
		zap.String("session_date_id", sd.ID),
		zap.String("class_section_id", sd.ClassSectionID))
	return sd, nil
}

// Stop closes the attendance window. Stopping an already-closed session date
// is a no-op.
func (s *SessionService) Stop(ctx context.Context, sessionDateID string) (*models.SessionDate, error) {
	sd, err := s.repo.FindByID(ctx, sessionDateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session date not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session date")
	}

	if sd.SessionOpen {
		if err := s.repo.Close(ctx, sessionDateID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stop session")
		}
		sd.SessionOpen = false
		s.logger.Info("attendance session stopped",
			zap.String("session_date_id", sd.ID),
			zap.String("class_section_id", sd.ClassSectionID))
	}
	return sd, nil
}

// Detail returns a session date with its section and course context.
func (s *SessionService) Detail(ctx context.Context, sessionDateID string) (*models.SessionDateDetail, error) {
	detail, err := s.repo.FindDetail(ctx, sessionDateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session date not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session date")
	}
	return detail, nil
}
