package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campus-labs/attendance-api/internal/models"
	"github.com/campus-labs/attendance-api/internal/repository"
	appErrors "github.com/campus-labs/attendance-api/pkg/errors"
)

type mockSessionRepo struct {
	sessionDate *models.SessionDate
	detail      *models.SessionDateDetail
	openErr     error
	findErr     error
	closeCalls  int
}

func (m *mockSessionRepo) FindByID(_ context.Context, _ string) (*models.SessionDate, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	sd := *m.sessionDate
	return &sd, nil
}

func (m *mockSessionRepo) FindDetail(_ context.Context, _ string) (*models.SessionDateDetail, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.detail, nil
}

func (m *mockSessionRepo) Open(_ context.Context, _ string) error {
	return m.openErr
}

func (m *mockSessionRepo) Close(_ context.Context, _ string) error {
	m.closeCalls++
	return nil
}

func newSessionDate(open bool) *models.SessionDate {
	return &models.SessionDate{
		ID:             "sd-1",
		ClassSectionID: "sec-1",
		Date:           time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		SessionOpen:    open,
	}
}

func TestSessionServiceStart(t *testing.T) {
	repo := &mockSessionRepo{sessionDate: newSessionDate(true)}
	svc := NewSessionService(repo, nil)

	sd, err := svc.Start(context.Background(), "sd-1")
	require.NoError(t, err)
	require.Equal(t, "sd-1", sd.ID)
}

func TestSessionServiceStartConflict(t *testing.T) {
	repo := &mockSessionRepo{openErr: repository.ErrOpenSessionExists}
	svc := NewSessionService(repo, nil)

	_, err := svc.Start(context.Background(), "sd-1")
	require.Equal(t, appErrors.ErrSessionConflict.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceStartUnknownDate(t *testing.T) {
	repo := &mockSessionRepo{openErr: sql.ErrNoRows}
	svc := NewSessionService(repo, nil)

	_, err := svc.Start(context.Background(), "missing")
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceStop(t *testing.T) {
	repo := &mockSessionRepo{sessionDate: newSessionDate(true)}
	svc := NewSessionService(repo, nil)

	sd, err := svc.Stop(context.Background(), "sd-1")
	require.NoError(t, err)
	require.False(t, sd.SessionOpen)
	require.Equal(t, 1, repo.closeCalls)
}

func TestSessionServiceStopAlreadyClosed(t *testing.T) {
	repo := &mockSessionRepo{sessionDate: newSessionDate(false)}
	svc := NewSessionService(repo, nil)

	sd, err := svc.Stop(context.Background(), "sd-1")
	require.NoError(t, err)
	require.False(t, sd.SessionOpen)
	require.Equal(t, 0, repo.closeCalls)
}
