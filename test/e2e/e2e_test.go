package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	awsv2 "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reasoncare-orchestrator/internal/audit"
	"reasoncare-orchestrator/internal/cache"
	awsclients "reasoncare-orchestrator/internal/common/aws"
	"reasoncare-orchestrator/internal/common/database"
	"reasoncare-orchestrator/internal/common/logger"
	"reasoncare-orchestrator/internal/invoker"
	"reasoncare-orchestrator/internal/orchestrator"
	"reasoncare-orchestrator/internal/prompt"
	"reasoncare-orchestrator/internal/router"
	"reasoncare-orchestrator/internal/server"
	"reasoncare-orchestrator/pkg/registry"
)

// ==========================
// Fake AWS backends
// ==========================

type fakeBedrock struct {
	calls     atomic.Int32
	failFocus string
}

func (f *fakeBedrock) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.calls.Add(1)

	var req struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(in.Body, &req); err != nil || len(req.Messages) == 0 {
		return nil, stderrors.New("ValidationException: malformed body")
	}
	p := req.Messages[0].Content

	text := "Specialist assessment for " + awsv2.ToString(in.ModelId) + ". Confidence level: 70%"
	switch {
	case f.failFocus != "" && strings.Contains(p, "focusing on "+f.failFocus+"."):
		return nil, stderrors.New("AccessDeniedException: model access not granted")
	case strings.Contains(p, prompt.SynthesisKey):
		text = "Primary diagnosis: NSTEMI. Confidence: 82%"
	case strings.Contains(p, "focusing on reporting."):
		text = "CLINICAL REPORT\nFindings consistent with heart failure."
	}

	body, _ := json.Marshal(map[string]interface{}{
		"content":     []map[string]string{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
		"usage":       map[string]int{"input_tokens": len(p), "output_tokens": len(text)},
	})
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

type fakeTranscribe struct {
	started []string
}

func (f *fakeTranscribe) StartTranscriptionJob(_ context.Context, in *transcribe.StartTranscriptionJobInput, _ ...func(*transcribe.Options)) (*transcribe.StartTranscriptionJobOutput, error) {
	name := awsv2.ToString(in.TranscriptionJobName)
	f.started = append(f.started, name)
	return &transcribe.StartTranscriptionJobOutput{TranscriptionJob: &types.TranscriptionJob{
		TranscriptionJobName:   in.TranscriptionJobName,
		TranscriptionJobStatus: types.TranscriptionJobStatusInProgress,
	}}, nil
}

func (f *fakeTranscribe) GetTranscriptionJob(_ context.Context, in *transcribe.GetTranscriptionJobInput, _ ...func(*transcribe.Options)) (*transcribe.GetTranscriptionJobOutput, error) {
	name := awsv2.ToString(in.TranscriptionJobName)
	for _, started := range f.started {
		if started == name {
			return &transcribe.GetTranscriptionJobOutput{TranscriptionJob: &types.TranscriptionJob{
				TranscriptionJobName:   in.TranscriptionJobName,
				TranscriptionJobStatus: types.TranscriptionJobStatusCompleted,
				Transcript:             &types.Transcript{TranscriptFileUri: awsv2.String("s3://transcripts/" + name + ".json")},
			}}, nil
		}
	}
	return nil, &types.NotFoundException{Message: awsv2.String("The requested job couldn't be found.")}
}

// ==========================
// Stack
// ==========================

type stack struct {
	url     string
	bedrock *fakeBedrock
	redis   *miniredis.Miniredis
}

func newStack(t *testing.T, bedrock *fakeBedrock, opts ...router.Option) *stack {
	t.Helper()
	log := logger.NewTestLogger(t)

	mr := miniredis.RunT(t)
	rdb := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rdb.Close() })

	bedrockClient := awsclients.NewBedrockClientWithAPI(bedrock, awsclients.DefaultBedrockConfig(), log)
	generator := cache.New(bedrockClient, rdb, cache.Config{TTL: time.Minute, KeyPrefix: "e2e:"}, log)
	inv := invoker.New(generator, invoker.Config{Timeout: 2 * time.Second, MaxRetries: 1, BaseDelay: time.Millisecond}, log, nil)
	orch := orchestrator.New(registry.Default(), inv, orchestrator.DefaultConfig(), log, nil)

	transcriber := awsclients.NewTranscribeClientWithAPI(&fakeTranscribe{}, log)
	rt := router.New(router.DefaultConfig(), orch, transcriber, log, opts...)

	srv := server.New(server.Config{}, rt, map[string]server.Check{"redis": rdb.Ping}, log)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &stack{url: ts.URL, bedrock: bedrock, redis: mr}
}

func (s *stack) post(t *testing.T, body string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(s.url+"/v1/orchestrate", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

// ==========================
// Scenarios
// ==========================

func TestDiagnosis_DefaultAgents(t *testing.T) {
	s := newStack(t, &fakeBedrock{})

	status, body := s.post(t, `{"patient_data":{"age":64,"symptoms":["chest pain"]}}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 75.0, body["confidence"])
	assert.Equal(t, false, body["degraded"])
	assert.NotEmpty(t, body["request_id"])

	responses := body["agent_responses"].(map[string]interface{})
	assert.Len(t, responses, 2)
	assert.Contains(t, responses, registry.CardiologistAgent)
	assert.Contains(t, responses, registry.ReasoningAgent)

	diagnosis := body["diagnosis"].(map[string]interface{})
	assert.Equal(t, "Primary diagnosis: NSTEMI. Confidence: 82%", diagnosis["response"])
	assert.Equal(t, "synthesis", diagnosis["specialization"])
	assert.EqualValues(t, 3, s.bedrock.calls.Load())
}

func TestDiagnosis_RepeatedCaseServedFromCache(t *testing.T) {
	s := newStack(t, &fakeBedrock{})
	payload := `{"request_type":"diagnosis","patient_data":{"age":51},"agents":["electrophysiology_agent"]}`

	status, _ := s.post(t, payload)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.post(t, payload)
	require.Equal(t, http.StatusOK, status)

	assert.EqualValues(t, 2, s.bedrock.calls.Load())
	assert.Len(t, s.redis.Keys(), 2)
}

func TestDiagnosis_PartialFailureIsDegraded(t *testing.T) {
	s := newStack(t, &fakeBedrock{failFocus: "clinical_reasoning"})

	status, body := s.post(t, `{"patient_data":{"age":70}}`)

	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["degraded"])
	assert.Equal(t, []interface{}{registry.ReasoningAgent}, body["failed_agents"])

	responses := body["agent_responses"].(map[string]interface{})
	failed := responses[registry.ReasoningAgent].(map[string]interface{})
	assert.Equal(t, "error", failed["status"])
	assert.Equal(t, "EXTERNAL_CALL_FAILURE", failed["error_code"])
	assert.True(t, strings.HasPrefix(failed["response"].(string), "Error: "))
}

func TestDiagnosis_ExplicitEmptyAgentsStillSynthesizes(t *testing.T) {
	s := newStack(t, &fakeBedrock{})

	status, body := s.post(t, `{"patient_data":{"age":45},"agents":[]}`)

	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["agent_responses"])
	assert.Equal(t, 0.0, body["confidence"])
	assert.EqualValues(t, 1, s.bedrock.calls.Load())
}

func TestReportGeneration(t *testing.T) {
	s := newStack(t, &fakeBedrock{})

	status, body := s.post(t, `{"request_type":"report_generation","diagnosis_data":{"diagnosis":"HFrEF"}}`)

	require.Equal(t, http.StatusOK, status)
	report := body["report"].(map[string]interface{})
	assert.Contains(t, report["response"], "CLINICAL REPORT")
	assert.Equal(t, "reporting", report["specialization"])
}

func TestVoiceProcessing_SubmitThenStatus(t *testing.T) {
	s := newStack(t, &fakeBedrock{})

	status, body := s.post(t, `{"request_type":"voice_processing","request_id":"abc123","audio_data":"s3://audio/visit.mp3"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "processing", body["status"])
	assert.Equal(t, "reasoncare-transcription-abc123", body["transcription_job_name"])

	resp, err := http.Get(s.url + "/v1/transcriptions/reasoncare-transcription-abc123")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var job map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	assert.Equal(t, "COMPLETED", job["status"])

	missing, err := http.Get(s.url + "/v1/transcriptions/unknown-job")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestVoiceProcessing_NoAudio(t *testing.T) {
	s := newStack(t, &fakeBedrock{})

	status, body := s.post(t, `{"request_type":"voice_processing"}`)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No audio data provided", body["error"])
}

func TestRejectedRequests(t *testing.T) {
	s := newStack(t, &fakeBedrock{})

	status, body := s.post(t, `{"request_type":"unknown_type"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Unknown request type: unknown_type", body["error"])

	status, _ = s.post(t, `{"agents":"cardiologist_agent"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.post(t, `not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	assert.EqualValues(t, 0, s.bedrock.calls.Load())
}

func TestAuditTrailRecorded(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(`INSERT INTO "orchestration_runs"`).WillReturnResult(sqlmock.NewResult(0, 1))

	store := audit.NewPostgresStore(database.NewPostgresFromDB(db), "")
	s := newStack(t, &fakeBedrock{}, router.WithRecorder(store))

	status, _ := s.post(t, `{"patient_data":{"age":58}}`)

	require.Equal(t, http.StatusOK, status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadiness(t *testing.T) {
	s := newStack(t, &fakeBedrock{})

	resp, err := http.Get(s.url + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.redis.Close()
	resp, err = http.Get(s.url + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
