package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-labs/attendance-api/internal/models"
	"github.com/campus-labs/attendance-api/internal/repository"
	"github.com/campus-labs/attendance-api/internal/service"
)

type sessionRepoStub struct {
	sessionDate *models.SessionDate
	openErr     error
}

func (s *sessionRepoStub) FindByID(_ context.Context, _ string) (*models.SessionDate, error) {
	sd := *s.sessionDate
	return &sd, nil
}

func (s *sessionRepoStub) FindDetail(_ context.Context, _ string) (*models.SessionDateDetail, error) {
	return &models.SessionDateDetail{SessionDate: *s.sessionDate}, nil
}

func (s *sessionRepoStub) Open(_ context.Context, _ string) error  { return s.openErr }
func (s *sessionRepoStub) Close(_ context.Context, _ string) error { return nil }

type presenceRepoStub struct {
	outcome models.MarkOutcome
	err     error
}

func (s *presenceRepoStub) MarkPresent(_ context.Context, _, _ string) (models.MarkOutcome, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.outcome, nil
}

func (s *presenceRepoStub) RevertAbsent(_ context.Context, _, _ string) error { return s.err }

func newSessionTestContext(t *testing.T, method, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, "/sessions/sd-1/start", reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "sd-1"}}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestSessionHandlerStart(t *testing.T) {
	repo := &sessionRepoStub{sessionDate: &models.SessionDate{ID: "sd-1", ClassSectionID: "sec-1", SessionOpen: true}}
	handler := NewSessionHandler(service.NewSessionService(repo, nil), nil, nil, nil, nil, nil)

	c, w := newSessionTestContext(t, http.MethodPost, "")
	handler.Start(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Contains(t, string(envelope["data"]), `"sd-1"`)
}

func TestSessionHandlerStartConflict(t *testing.T) {
	repo := &sessionRepoStub{openErr: repository.ErrOpenSessionExists}
	handler := NewSessionHandler(service.NewSessionService(repo, nil), nil, nil, nil, nil, nil)

	c, w := newSessionTestContext(t, http.MethodPost, "")
	handler.Start(c)

	require.Equal(t, http.StatusConflict, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Contains(t, string(envelope["error"]), "SESSION_CONFLICT")
}

func TestSessionHandlerMarkPresence(t *testing.T) {
	presence := service.NewPresenceService(&presenceRepoStub{outcome: models.MarkApplied}, nil, nil, nil)
	handler := NewSessionHandler(nil, presence, nil, nil, nil, nil)

	c, w := newSessionTestContext(t, http.MethodPost, `{"matric_no":"U1922103F"}`)
	handler.MarkPresence(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Contains(t, string(envelope["data"]), "APPLIED")
}

func TestSessionHandlerMarkPresenceSessionNotOpen(t *testing.T) {
	presence := service.NewPresenceService(&presenceRepoStub{err: repository.ErrSessionClosed}, nil, nil, nil)
	handler := NewSessionHandler(nil, presence, nil, nil, nil, nil)

	c, w := newSessionTestContext(t, http.MethodPost, `{"matric_no":"U1922103F"}`)
	handler.MarkPresence(c)

	require.Equal(t, http.StatusConflict, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Contains(t, string(envelope["error"]), "SESSION_NOT_OPEN")
}

func TestSessionHandlerMarkPresenceInvalidBody(t *testing.T) {
	presence := service.NewPresenceService(&presenceRepoStub{}, nil, nil, nil)
	handler := NewSessionHandler(nil, presence, nil, nil, nil, nil)

	c, w := newSessionTestContext(t, http.MethodPost, `{"matric_no":`)
	handler.MarkPresence(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}
