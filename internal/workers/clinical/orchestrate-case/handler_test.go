package orchestratecase

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"reasoncare-orchestrator/internal/common/camunda"
	"reasoncare-orchestrator/internal/common/config"
	"reasoncare-orchestrator/internal/common/errors"
	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockRouter struct {
	mock.Mock
}

func (m *MockRouter) Route(ctx context.Context, req models.Request) models.Envelope {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Envelope)
}

// fakeJobClient hands out complete-job commands whose Send fails with
// sendErrs in order, then succeeds.
type fakeJobClient struct {
	worker.JobClient
	cmd *fakeCompleteCommand
}

func (c *fakeJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return c.cmd
}

type fakeCompleteCommand struct {
	commands.CompleteJobCommandStep2
	jobKey    int64
	variables interface{}
	sendErrs  []error
	sends     int
}

func (c *fakeCompleteCommand) JobKey(key int64) commands.CompleteJobCommandStep2 {
	c.jobKey = key
	return c
}

func (c *fakeCompleteCommand) VariablesFromObject(v interface{}) (commands.DispatchCompleteJobCommand, error) {
	c.variables = v
	return c, nil
}

func (c *fakeCompleteCommand) Send(context.Context) (*pb.CompleteJobResponse, error) {
	c.sends++
	if c.sends <= len(c.sendErrs) {
		return nil, c.sendErrs[c.sends-1]
	}
	return &pb.CompleteJobResponse{}, nil
}

func createTestRetrier() *camunda.Client {
	return camunda.NewClientFromZeebe(nil, &camunda.ClientConfig{
		RetryConfig: &camunda.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	})
}

func diagnosisRouter() *MockRouter {
	router := new(MockRouter)
	router.On("Route", mock.Anything, mock.Anything).
		Return(models.NewEnvelope(http.StatusOK, models.OrchestrationResponse{Success: true, Confidence: 75}))
	return router
}

func createTestConfig() *Config {
	return LoadConfig(&config.Config{})
}

// ==========================
// Tests
// ==========================

func TestLoadConfig_UsesWorkerDefaults(t *testing.T) {
	cfg := createTestConfig()
	assert.Equal(t, 5, cfg.MaxJobsActive)
	assert.Equal(t, int64(180000), cfg.Timeout.Milliseconds())
}

func TestExecute_Success(t *testing.T) {
	router := new(MockRouter)
	body := models.OrchestrationResponse{Success: true, Diagnosis: "Stable angina", Confidence: 75}
	router.On("Route", mock.Anything, mock.MatchedBy(func(req models.Request) bool {
		return req.RequestType == models.RequestTypeDiagnosis && req.RequestID == "case-1" && req.Agents == nil
	})).Return(models.NewEnvelope(http.StatusOK, body))

	h := NewHandler(createTestConfig(), router, logger.NewTestLogger(t))
	out, err := h.Execute(context.Background(), &Input{
		RequestType: "diagnosis",
		RequestID:   "case-1",
		PatientData: models.CasePayload{"age": 67},
	})

	require.NoError(t, err)
	assert.Equal(t, "case-1", out.RequestID)
	assert.Equal(t, http.StatusOK, out.StatusCode)
	assert.Equal(t, body, out.Result)
	router.AssertExpectations(t)
}

func TestExecute_ErrorEnvelopes(t *testing.T) {
	tests := []struct {
		name      string
		env       models.Envelope
		wantCode  errors.ErrorCode
		retryable bool
	}{
		{
			name:     "unknown request type",
			env:      models.NewErrorEnvelope(http.StatusBadRequest, string(errors.ErrCodeUnrecognizedRequestType), "Unknown request type: x"),
			wantCode: errors.ErrCodeUnrecognizedRequestType,
		},
		{
			name:      "transcription submit failure",
			env:       models.NewErrorEnvelope(http.StatusInternalServerError, string(errors.ErrCodeTranscriptionSubmitFailed), "Voice processing failed"),
			wantCode:  errors.ErrCodeTranscriptionSubmitFailed,
			retryable: true,
		},
		{
			name:     "missing code",
			env:      models.NewEnvelope(http.StatusInternalServerError, "boom"),
			wantCode: errors.ErrCodeInternal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := new(MockRouter)
			router.On("Route", mock.Anything, mock.Anything).Return(tt.env)
			h := NewHandler(createTestConfig(), router, logger.NewTestLogger(t))

			out, err := h.Execute(context.Background(), &Input{RequestType: "x"})

			assert.Nil(t, out)
			require.Error(t, err)
			stdErr := errors.AsStandardError(err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestInput_PreservesExplicitEmptyAgents(t *testing.T) {
	var withEmpty, absent Input
	require.NoError(t, json.Unmarshal([]byte(`{"agents":[]}`), &withEmpty))
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))

	assert.NotNil(t, withEmpty.toRequest().Agents)
	assert.Empty(t, withEmpty.toRequest().Agents)
	assert.Nil(t, absent.toRequest().Agents)
}

func TestInput_MapsVoiceFields(t *testing.T) {
	var in Input
	require.NoError(t, json.Unmarshal([]byte(`{"requestType":"voice_processing","audioData":"s3://bucket/a.mp3","reportType":"brief"}`), &in))
	req := in.toRequest()
	assert.Equal(t, models.RequestTypeVoiceProcessing, req.RequestType)
	assert.Equal(t, "s3://bucket/a.mp3", req.AudioData)
	assert.Equal(t, "brief", req.ReportType)
}

func TestHandle_RetriesTransientCompleteFailure(t *testing.T) {
	cmd := &fakeCompleteCommand{sendErrs: []error{stderrors.New("rpc error: code = Unavailable desc = connection refused")}}
	client := &fakeJobClient{cmd: cmd}
	h := NewHandler(createTestConfig(), diagnosisRouter(), logger.NewTestLogger(t), WithRetrier(createTestRetrier()))

	err := h.Handle(context.Background(), client, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Variables: `{"requestType":"diagnosis"}`}})

	require.NoError(t, err)
	assert.Equal(t, 2, cmd.sends)
	assert.Equal(t, int64(42), cmd.jobKey)
	out, ok := cmd.variables.(*Output)
	require.True(t, ok)
	assert.Equal(t, "job-42", out.RequestID)
	assert.Equal(t, http.StatusOK, out.StatusCode)
}

func TestHandle_PermanentCompleteFailureIsNotRetried(t *testing.T) {
	cmd := &fakeCompleteCommand{sendErrs: []error{stderrors.New("rpc error: code = NotFound desc = job not found")}}
	h := NewHandler(createTestConfig(), diagnosisRouter(), logger.NewTestLogger(t), WithRetrier(createTestRetrier()))

	err := h.Handle(context.Background(), &fakeJobClient{cmd: cmd}, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7, Variables: `{}`}})

	require.Error(t, err)
	assert.Equal(t, 1, cmd.sends)
	stdErr := errors.AsStandardError(err)
	assert.Equal(t, errors.ErrCodeExternalCallFailure, stdErr.Code)
	assert.Equal(t, "complete-job", stdErr.Metadata["operation"])
}

func TestHandle_WithoutRetrierSendsOnce(t *testing.T) {
	cmd := &fakeCompleteCommand{sendErrs: []error{stderrors.New("connection refused")}}
	h := NewHandler(createTestConfig(), diagnosisRouter(), logger.NewTestLogger(t))

	err := h.Handle(context.Background(), &fakeJobClient{cmd: cmd}, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 9, Variables: `{}`}})

	require.Error(t, err)
	assert.Equal(t, 1, cmd.sends)
	assert.Equal(t, errors.ErrCodeExternalCallFailure, errors.AsStandardError(err).Code)
}
