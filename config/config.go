package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	Database   DatabaseConfig
	Executor   ExecutorConfig
	Generator  GeneratorConfig
	Judge      JudgeConfig
	Storage    StorageConfig
	MQ         MQConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// ExecutorConfig configures the remote execution backend client.
// The default endpoint is the public Piston instance.
type ExecutorConfig struct {
	Endpoint    string
	APIKey      string
	CallTimeout time.Duration
	MaxAttempts int
	RetryBase   time.Duration
}

// GeneratorConfig configures the generative backend used to author
// the daily problem. An empty APIKey disables generation entirely and
// routes every request to the static fallback problem.
type GeneratorConfig struct {
	APIKey      string
	Model       string
	Endpoint    string
	CallTimeout time.Duration
	MinTests    int
	TargetTests int
}

// JudgeConfig holds grading policy knobs.
type JudgeConfig struct {
	// FailFast stops grading once an accepted verdict is impossible.
	// The default grades every test case for better diagnostics.
	FailFast bool

	// MaxConcurrency caps the number of in-flight execution calls per
	// submission.
	MaxConcurrency int
}

// StorageConfig selects the object-storage backend used to archive
// submitted source code. An empty Backend disables archiving.
type StorageConfig struct {
	Backend string // "minio", "gcs" or ""
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

// MQConfig selects the broker used to publish verdict events. An
// empty Backend disables publishing.
type MQConfig struct {
	Backend  string // "rabbitmq", "pubsub" or ""
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "dailyoj"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "dailyoj_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	executorConfig := ExecutorConfig{
		Endpoint:    getEnv("EXECUTOR_URL", "https://emkc.org/api/v2/piston/execute"),
		APIKey:      getEnv("EXECUTOR_API_KEY", ""),
		CallTimeout: getEnvDuration("EXECUTOR_TIMEOUT", 15*time.Second),
		MaxAttempts: getEnvInt("EXECUTOR_MAX_ATTEMPTS", 3),
		RetryBase:   getEnvDuration("EXECUTOR_RETRY_BASE", 250*time.Millisecond),
	}

	generatorConfig := GeneratorConfig{
		APIKey:      getEnv("GEMINI_API_KEY", ""),
		Model:       getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		Endpoint:    getEnv("GEMINI_URL", "https://generativelanguage.googleapis.com/v1beta"),
		CallTimeout: getEnvDuration("GEMINI_TIMEOUT", 30*time.Second),
		MinTests:    getEnvInt("GENERATOR_MIN_TESTS", 5),
		TargetTests: getEnvInt("GENERATOR_TARGET_TESTS", 20),
	}

	judgeConfig := JudgeConfig{
		FailFast:       getEnvBool("JUDGE_FAIL_FAST", false),
		MaxConcurrency: getEnvInt("JUDGE_MAX_CONCURRENCY", 4),
	}

	storageConfig := StorageConfig{
		Backend: getEnv("STORAGE_BACKEND", ""),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "dailyoj-submissions"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	mqConfig := MQConfig{
		Backend: getEnv("MQ_BACKEND", ""),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH_COUNT", 0),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	return Config{
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Database:   dbConfig,
		Executor:   executorConfig,
		Generator:  generatorConfig,
		Judge:      judgeConfig,
		Storage:    storageConfig,
		MQ:         mqConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		return valueStr == "true" || valueStr == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
