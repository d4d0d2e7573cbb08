package config

import "fmt"

type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Server       ServerConfig            `mapstructure:"server"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	AWS          AWSConfig               `mapstructure:"aws"`
	Orchestrator OrchestratorConfig      `mapstructure:"orchestrator"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Cache        CacheConfig             `mapstructure:"cache"`
	Audit        AuditConfig             `mapstructure:"audit"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Tracing      TracingConfig           `mapstructure:"tracing"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	MaxBodyBytes    int64  `mapstructure:"max_body_bytes"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type AWSConfig struct {
	Region     string           `mapstructure:"region"`
	Bedrock    BedrockConfig    `mapstructure:"bedrock"`
	Transcribe TranscribeConfig `mapstructure:"transcribe"`
	SNS        SNSConfig        `mapstructure:"sns"`
}

type BedrockConfig struct {
	AnthropicVersion string `mapstructure:"anthropic_version"`
	MaxTokens        int    `mapstructure:"max_tokens"`
}

type TranscribeConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	JobNamePrefix     string `mapstructure:"job_name_prefix"`
	LanguageCode      string `mapstructure:"language_code"`
	MediaFormat       string `mapstructure:"media_format"`
	VocabularyName    string `mapstructure:"vocabulary_name"`
	ShowSpeakerLabels bool   `mapstructure:"show_speaker_labels"`
	MaxSpeakerLabels  int    `mapstructure:"max_speaker_labels"`
}

type SNSConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	TopicARN string `mapstructure:"topic_arn"`
}

type OrchestratorConfig struct {
	DefaultAgents      []string `mapstructure:"default_agents"`
	MaxConcurrency     int      `mapstructure:"max_concurrency"`
	InvocationTimeout  int      `mapstructure:"invocation_timeout"` // milliseconds
	MaxRetries         int      `mapstructure:"max_retries"`
	RetryBaseDelay     int      `mapstructure:"retry_base_delay"` // milliseconds
	ConfidenceStrategy string   `mapstructure:"confidence_strategy"`
	ConfidenceFallback float64  `mapstructure:"confidence_fallback"`
	RegistryPath       string   `mapstructure:"registry_path"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls memoization of generated text.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	TTL       int    `mapstructure:"ttl"` // milliseconds
	KeyPrefix string `mapstructure:"key_prefix"`
}

// AuditConfig controls the run metadata table.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Table   string `mapstructure:"table"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
