// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Redis, Kafka, Retrieval, Vector, LLM, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Projects  ProjectsConfig  `yaml:"projects"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Vector    VectorConfig    `yaml:"vector"`
	LLM       LLMConfig       `yaml:"llm"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and answer-cache parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	QuestionEvents string `yaml:"questionEvents"`
	IngestEvents   string `yaml:"ingestEvents"`
}

// ProjectsConfig controls where per-project artifacts live and the ingest
// size limits applied while walking a repository.
type ProjectsConfig struct {
	Dir           string `yaml:"dir"`
	MaxFileBytes  int64  `yaml:"maxFileBytes"`
	MaxParagraphs int    `yaml:"maxParagraphs"`
	ExcerptBytes  int    `yaml:"excerptBytes"`
}

// RetrievalConfig carries the BM25 and fusion constants. Zero values are
// replaced with the documented defaults at load time.
type RetrievalConfig struct {
	K1        float64 `yaml:"k1"`
	B         float64 `yaml:"b"`
	Epsilon   float64 `yaml:"epsilon"`
	RRFK      int     `yaml:"rrfK"`
	TopK      int     `yaml:"topK"`
	FusedTopK int     `yaml:"fusedTopK"`
	AlignTopN int     `yaml:"alignTopN"`
	MaxTerms  int     `yaml:"maxTerms"`
	AlignMax  int     `yaml:"alignMax"`
}

// VectorConfig selects the vector-index backend and its embedding source.
type VectorConfig struct {
	Backend    string        `yaml:"backend"` // "tfidf" or "sqlitevec"
	Dim        int           `yaml:"dim"`
	Model      string        `yaml:"model"`
	OllamaURL  string        `yaml:"ollamaUrl"`
	EmbedBatch int           `yaml:"embedBatch"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LLMConfig holds the answer-generation backend settings. Provider "none"
// disables generation and returns evidence-only answers.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	APIBase  string        `yaml:"apiBase"`
	APIKey   string        `yaml:"apiKey"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	applyRetrievalDefaults(&cfg.Retrieval)
	return cfg, nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowOrigins:    []string{"http://localhost:5173"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "paperalign",
			User:            "paperalign",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "paperalign-group",
			Topics: KafkaTopics{
				QuestionEvents: "question-events",
				IngestEvents:   "ingest-events",
			},
		},
		Projects: ProjectsConfig{
			Dir:           "projects",
			MaxFileBytes:  1_000_000,
			MaxParagraphs: 2000,
			ExcerptBytes:  2000,
		},
		Vector: VectorConfig{
			Backend:    "tfidf",
			Dim:        768,
			Model:      "nomic-embed-text",
			OllamaURL:  "http://localhost:11434",
			EmbedBatch: 32,
			Timeout:    30 * time.Second,
		},
		LLM: LLMConfig{
			Provider: "none",
			APIBase:  "https://api.openai.com/v1",
			Model:    "gpt-4o-mini",
			Timeout:  120 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyRetrievalDefaults fills zero retrieval constants with the documented
// defaults (k1=1.2, b=0.75, epsilon=0.25, rrf_k=60, max_terms=200).
func applyRetrievalDefaults(r *RetrievalConfig) {
	if r.K1 == 0 {
		r.K1 = 1.2
	}
	if r.B == 0 {
		r.B = 0.75
	}
	if r.Epsilon == 0 {
		r.Epsilon = 0.25
	}
	if r.RRFK == 0 {
		r.RRFK = 60
	}
	if r.TopK == 0 {
		r.TopK = 5
	}
	if r.FusedTopK == 0 {
		r.FusedTopK = 3
	}
	if r.AlignTopN == 0 {
		r.AlignTopN = 5
	}
	if r.MaxTerms == 0 {
		r.MaxTerms = 200
	}
	if r.AlignMax == 0 {
		r.AlignMax = 2
	}
}

// applyEnvOverrides reads PA_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PA_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("PA_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("PA_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("PA_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("PA_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("PA_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("PA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PA_PROJECTS_DIR"); v != "" {
		cfg.Projects.Dir = v
	}
	if v := os.Getenv("PA_VECTOR_BACKEND"); v != "" {
		cfg.Vector.Backend = v
	}
	if v := os.Getenv("PA_EMBED_MODEL"); v != "" {
		cfg.Vector.Model = v
	}
	if v := os.Getenv("PA_OLLAMA_URL"); v != "" {
		cfg.Vector.OllamaURL = v
	}
	if v := os.Getenv("PA_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("PA_LLM_API_BASE"); v != "" {
		cfg.LLM.APIBase = v
	}
	if v := os.Getenv("PA_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("PA_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("PA_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PA_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
