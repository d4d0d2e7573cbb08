package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  name: reasoncare-test\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "reasoncare-test", cfg.App.Name)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "bedrock-2023-05-31", cfg.AWS.Bedrock.AnthropicVersion)
	assert.Equal(t, 4000, cfg.AWS.Bedrock.MaxTokens)
	assert.Equal(t, "reasoncare-transcription-", cfg.AWS.Transcribe.JobNamePrefix)
	assert.True(t, cfg.AWS.Transcribe.ShowSpeakerLabels)
	assert.Equal(t, 2, cfg.AWS.Transcribe.MaxSpeakerLabels)
	assert.Equal(t, []string{"cardiologist_agent", "reasoning_agent"}, cfg.Orchestrator.DefaultAgents)
	assert.Equal(t, 1, cfg.Orchestrator.MaxRetries)
	assert.Equal(t, "fixed", cfg.Orchestrator.ConfidenceStrategy)
	assert.Equal(t, 75.0, cfg.Orchestrator.ConfidenceFallback)
	assert.Equal(t, "orchestration_runs", cfg.Audit.Table)
	assert.Equal(t, "reasoncare-test", cfg.Tracing.ServiceName)
}

func TestLoadFromFile_ReadsSections(t *testing.T) {
	path := writeConfig(t, `
orchestrator:
  default_agents: [cardiologist_agent]
  max_concurrency: 3
  invocation_timeout: 2500
  max_retries: 0
  confidence_strategy: percent
aws:
  region: eu-west-1
  transcribe:
    show_speaker_labels: false
cache:
  enabled: true
  ttl: 60000
database:
  redis:
    address: localhost:6379
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"cardiologist_agent"}, cfg.Orchestrator.DefaultAgents)
	assert.Equal(t, 3, cfg.Orchestrator.MaxConcurrency)
	assert.Equal(t, 2500*time.Millisecond, GetDuration(cfg.Orchestrator.InvocationTimeout))
	assert.Equal(t, 0, cfg.Orchestrator.MaxRetries)
	assert.Equal(t, "percent", cfg.Orchestrator.ConfidenceStrategy)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.False(t, cfg.AWS.Transcribe.ShowSpeakerLabels)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Database.Redis.Address)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("REASONCARE_TEST_TOPIC", "arn:aws:sns:us-east-1:123456789012:reasoncare")
	path := writeConfig(t, `
aws:
  sns:
    enabled: true
    topic_arn: ${REASONCARE_TEST_TOPIC}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:reasoncare", cfg.AWS.SNS.TopicARN)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"camunda without broker", "camunda:\n  enabled: true\n", "camunda.broker_address"},
		{"unknown strategy", "orchestrator:\n  confidence_strategy: median\n", "confidence_strategy"},
		{"negative concurrency", "orchestrator:\n  max_concurrency: -1\n", "max_concurrency"},
		{"cache without redis", "cache:\n  enabled: true\n", "database.redis.address"},
		{"audit without postgres", "audit:\n  enabled: true\n", "database.postgres.host"},
		{"tracing without endpoint", "tracing:\n  enabled: true\n", "jaeger_endpoint"},
		{"fallback out of range", "orchestrator:\n  confidence_fallback: 150\n", "confidence_fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"orchestrate-case": {Enabled: false, MaxJobsActive: 2, Timeout: 1000, MaxRetries: 1},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "orchestrate-case").MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "orchestrate-case"))

	fallback := GetWorkerConfig(cfg, "other")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, 3, fallback.MaxRetries)
	assert.True(t, IsWorkerEnabled(cfg, "other"))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "rc", Password: "pw", Database: "reasoncare", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=rc password=pw dbname=reasoncare sslmode=disable", p.GetDSN())
}
