package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/campus-labs/attendance-api/internal/models"
	"github.com/campus-labs/attendance-api/internal/recognizer"
	"github.com/campus-labs/attendance-api/internal/repository"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
)

type presenceRepository interface {
	MarkPresent(ctx context.Context, sessionDateID, matricNo string) (models.MarkOutcome, error)
	RevertAbsent(ctx context.Context, sessionDateID, matricNo string) error
}

// IdentityResolver resolves a captured sample to a student matric number, or
// reports that nothing matched. The matching model itself lives behind this
// boundary and is never consulted twice for one claim.
type IdentityResolver interface {
	Resolve(ctx context.Context, sample []byte) (string, error)
}

// PresenceService funnels presence claims from every input channel into one
// idempotent Absent -> Present transition. The recorder itself has no
// channel-specific logic: by the time a claim reaches MarkPresent it is just
// a (session date, matric number) pair, whether it was typed in by hand or
// produced by the identity resolver.
type PresenceService struct {
	repo     presenceRepository
	resolver IdentityResolver
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewPresenceService constructs the presence service. resolver and metrics
// may be nil when the corresponding features are disabled.
func NewPresenceService(repo presenceRepository, resolver IdentityResolver, metrics *MetricsService, logger *zap.Logger) *PresenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresenceService{repo: repo, resolver: resolver, metrics: metrics, logger: logger}
}

// MarkPresent applies a presence claim against an open session. Returns
// MarkApplied the first time and MarkAlreadyPresent on repeats; the presence
// status ends up Present either way.
func (s *PresenceService) MarkPresent(ctx context.Context, sessionDateID, matricNo string) (models.MarkOutcome, error) {
	outcome, err := s.repo.MarkPresent(ctx, sessionDateID, matricNo)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return "", appErrors.Clone(appErrors.ErrNotFound, "session date not found")
		case errors.Is(err, repository.ErrSessionClosed):
			return "", appErrors.Clone(appErrors.ErrSessionNotOpen, "")
		case errors.Is(err, repository.ErrNotEnrolled):
			return "", appErrors.Clone(appErrors.ErrUnknownStudent, "")
		default:
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record presence")
		}
	}

	if s.metrics != nil {
		s.metrics.ObservePresenceMark(string(outcome))
	}
	s.logger.Info("presence recorded",
		zap.String("session_date_id", sessionDateID),
		zap.String("matric_no", matricNo),
		zap.String("outcome", string(outcome)))
	return outcome, nil
}

// Recognize resolves a captured sample through the identity collaborator and
// feeds the result to the recorder. A non-match is its own outcome, distinct
// from UNKNOWN_STUDENT: the latter means a real student who is simply not
// enrolled for this session date.
func (s *PresenceService) Recognize(ctx context.Context, sessionDateID string, sample []byte) (models.MarkOutcome, string, error) {
	if s.resolver == nil {
		return "", "", appErrors.Clone(appErrors.ErrValidation, "identity resolution is not enabled")
	}

	matricNo, err := s.resolver.Resolve(ctx, sample)
	if err != nil {
		if errors.Is(err, recognizer.ErrNoMatch) {
			return "", "", appErrors.Clone(appErrors.ErrNoMatch, "")
		}
		return "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "identity resolution failed")
	}

	outcome, err := s.MarkPresent(ctx, sessionDateID, matricNo)
	if err != nil {
		return "", matricNo, err
	}
	return outcome, matricNo, nil
}

// RevertAbsent is the privileged correction that puts a record back to
// Absent. It is not gated on the session window.
func (s *PresenceService) RevertAbsent(ctx context.Context, sessionDateID, matricNo string) error {
	if err := s.repo.RevertAbsent(ctx, sessionDateID, matricNo); err != nil {
		if errors.Is(err, repository.ErrNotEnrolled) {
			return appErrors.Clone(appErrors.ErrUnknownStudent, "")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revert presence")
	}
	s.logger.Info("presence reverted",
		zap.String("session_date_id", sessionDateID),
		zap.String("matric_no", matricNo))
	return nil
}
