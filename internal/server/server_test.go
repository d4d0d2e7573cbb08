package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) RouteJSON(ctx context.Context, raw []byte) models.Envelope {
	return m.Called(ctx, raw).Get(0).(models.Envelope)
}

func (m *MockRouter) TranscriptionStatus(ctx context.Context, jobName string) models.Envelope {
	return m.Called(ctx, jobName).Get(0).(models.Envelope)
}

func newTestServer(t *testing.T, router Router, checks map[string]Check) *httptest.Server {
	srv := New(Config{MaxBodyBytes: 64}, router, checks, logger.NewTestLogger(t))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// ==========================
// Tests
// ==========================

func TestOrchestrate_WritesEnvelopeStatusAndBody(t *testing.T) {
	router := new(MockRouter)
	router.On("RouteJSON", mock.Anything, []byte(`{"request_type":"x"}`)).
		Return(models.NewErrorEnvelope(http.StatusBadRequest, "UNRECOGNIZED_REQUEST_TYPE", "Unknown request type: x"))
	ts := newTestServer(t, router, nil)

	resp, err := http.Post(ts.URL+"/v1/orchestrate", "application/json", strings.NewReader(`{"request_type":"x"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body := decode(t, resp)
	assert.Equal(t, "Unknown request type: x", body["error"])
	router.AssertExpectations(t)
}

func TestOrchestrate_RejectsOversizedBody(t *testing.T) {
	router := new(MockRouter)
	ts := newTestServer(t, router, nil)

	resp, err := http.Post(ts.URL+"/v1/orchestrate", "application/json", strings.NewReader(strings.Repeat("a", 200)))
	require.NoError(t, err)

	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "Request body too large", decode(t, resp)["error"])
	router.AssertNotCalled(t, "RouteJSON", mock.Anything, mock.Anything)
}

func TestOrchestrate_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, new(MockRouter), nil)

	resp, err := http.Get(ts.URL + "/v1/orchestrate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestTranscriptionStatus_PassesJobName(t *testing.T) {
	router := new(MockRouter)
	router.On("TranscriptionStatus", mock.Anything, "reasoncare-transcription-abc").
		Return(models.NewEnvelope(http.StatusOK, models.TranscriptionStatus{JobName: "reasoncare-transcription-abc", Status: "COMPLETED"}))
	ts := newTestServer(t, router, nil)

	resp, err := http.Get(ts.URL + "/v1/transcriptions/reasoncare-transcription-abc")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, decode(t, resp))
	router.AssertExpectations(t)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, new(MockRouter), nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", decode(t, resp)["status"])
}

func TestReady(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		ts := newTestServer(t, new(MockRouter), map[string]Check{
			"redis": func(context.Context) error { return nil },
		})
		resp, err := http.Get(ts.URL + "/ready")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ready", decode(t, resp)["status"])
	})

	t.Run("failing check", func(t *testing.T) {
		ts := newTestServer(t, new(MockRouter), map[string]Check{
			"redis":    func(context.Context) error { return nil },
			"postgres": func(context.Context) error { return stderrors.New("connection refused") },
		})
		resp, err := http.Get(ts.URL + "/ready")
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		body := decode(t, resp)
		assert.Equal(t, "not_ready", body["status"])
		checks := body["checks"].(map[string]interface{})
		assert.Equal(t, "ok", checks["redis"])
		assert.Equal(t, "connection refused", checks["postgres"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, new(MockRouter), nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
