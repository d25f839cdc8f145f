package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campus-labs/attendance-api/internal/models"
	"github.com/campus-labs/attendance-api/internal/notifier"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
	"github.com/campus-labs/attendance-api/pkg/jobs"
)

type absenteeRepository interface {
	Absentees(ctx context.Context, sessionDateID string) ([]models.Absentee, error)
}

type notifySessionLookup interface {
	FindDetail(ctx context.Context, id string) (*models.SessionDateDetail, error)
}

// NotifyService enumerates still-absent enrollees of a closed session and
// hands notices to the delivery collaborator through a worker queue. There
// is no sent marker: dispatching twice notifies twice, and callers wanting
// exactly-once delivery must keep that bookkeeping themselves.
type NotifyService struct {
	absentees absenteeRepository
	sessions  notifySessionLookup
	target    notifier.Notifier
	queue     *jobs.Queue
	logger    *zap.Logger
}

// NewNotifyService constructs the notify service and its dispatch queue.
// Start must be called before Dispatch is used.
func NewNotifyService(absentees absenteeRepository, sessions notifySessionLookup, target notifier.Notifier, queueCfg jobs.QueueConfig, logger *zap.Logger) *NotifyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotifyService{
		absentees: absentees,
		sessions:  sessions,
		target:    target,
		logger:    logger,
	}
	s.queue = jobs.NewQueue("absentee-notices", s.handleNotice, queueCfg)
	return s
}

// Start launches the dispatch workers.
func (s *NotifyService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *NotifyService) Stop() {
	s.queue.Stop()
}

// CollectAbsentees returns every enrollee of the session date still marked
// Absent, with contact addresses. Only callable once the session is closed;
// repeated calls return the same set.
func (s *NotifyService) CollectAbsentees(ctx context.Context, sessionDateID string) (*models.SessionDateDetail, []models.Absentee, error) {
	detail, err := s.sessions.FindDetail(ctx, sessionDateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "session date not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session date")
	}
	if detail.SessionOpen {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "attendance session is still open")
	}

	absentees, err := s.absentees.Absentees(ctx, sessionDateID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load absentees")
	}
	return detail, absentees, nil
}

// Dispatch collects the absentee set and enqueues one notice per student.
// Returns the number of notices queued.
func (s *NotifyService) Dispatch(ctx context.Context, sessionDateID string) (int, error) {
	detail, absentees, err := s.CollectAbsentees(ctx, sessionDateID)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, absentee := range absentees {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: "absence-notice",
			Payload: notifier.Notice{
				Address:    absentee.Email,
				CourseCode: detail.CourseCode,
				ClassLabel: detail.SectionLabel,
				Date:       detail.Date,
			},
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to queue absence notice",
				zap.String("session_date_id", sessionDateID),
				zap.String("matric_no", absentee.MatricNo),
				zap.Error(err))
			continue
		}
		queued++
	}

	s.logger.Info("absence notices queued",
		zap.String("session_date_id", sessionDateID),
		zap.Int("queued", queued),
		zap.Int("absent", len(absentees)))
	return queued, nil
}

func (s *NotifyService) handleNotice(ctx context.Context, job jobs.Job) error {
	notice, ok := job.Payload.(notifier.Notice)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.target.Send(ctx, notice)
}
