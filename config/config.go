package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App               AppConfig
	HTTP              ServerConfig
	GRPC              ServerConfig
	Store             StoreConfig
	Log               LogConfig
	InternalEndpoints InternalEndpointsConfig
	Telegram          TelegramConfig
	Approvals         ApprovalsConfig
	Plans             PlansConfig
	Languages         LanguagesConfig
	Events            EventsConfig
	Jobs              JobsConfig
}

type AppConfig struct {
	ServiceName string
	APIKey      string
}

type ServerConfig struct {
	Host string
	Port string
}

type StoreConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type InternalEndpointsConfig struct {
	AuthGRPCAddr string
}

type TelegramConfig struct {
	BotToken     string
	ReviewChatID int64
	// InviteChatID is the channel invite links are issued for. Zero disables
	// credential issuance.
	InviteChatID   int64
	ReviewerLocale string
	PollTimeout    int
	Workers        int
	Debug          bool
}

func (c TelegramConfig) Enabled() bool {
	return c.BotToken != ""
}

type ApprovalsConfig struct {
	ReviewerIDs        []int64
	StoreTimeout       time.Duration
	NotifyTimeout      time.Duration
	CredentialTimeout  time.Duration
	CredentialTTL      time.Duration
	CredentialMaxUses  int
	CredentialScopeID  int64
	ProofMinTextLength int
	AllowEmptyProof    bool
	RedeliverMinAge    time.Duration
	JobBatchSize       int32
	NodeID             int64
}

type PlansConfig struct {
	File string
}

type LanguagesConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

type EventsConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
}

type JobsConfig struct {
	RedeliverInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	storeDSN := os.Getenv("STORE_DSN")
	if storeDSN == "" {
		return nil, errors.New("STORE_DSN environment variable is required")
	}

	reviewerIDs, err := getInt64ListEnv("APPROVALS_REVIEWER_IDS")
	if err != nil {
		return nil, errors.New("APPROVALS_REVIEWER_IDS must be a comma separated list of user ids")
	}

	telegram := TelegramConfig{
		BotToken:       getEnv("TELEGRAM_BOT_TOKEN", ""),
		ReviewChatID:   getInt64Env("TELEGRAM_REVIEW_CHAT_ID", 0),
		InviteChatID:   getInt64Env("TELEGRAM_INVITE_CHAT_ID", 0),
		ReviewerLocale: getEnv("TELEGRAM_REVIEWER_LOCALE", "en"),
		PollTimeout:    getIntEnv("TELEGRAM_POLL_TIMEOUT_SECONDS", 30),
		Workers:        getIntEnv("TELEGRAM_WORKERS", 8),
		Debug:          getBoolEnv("TELEGRAM_DEBUG", false),
	}
	if telegram.Enabled() && telegram.ReviewChatID == 0 {
		return nil, errors.New("TELEGRAM_REVIEW_CHAT_ID environment variable is required when TELEGRAM_BOT_TOKEN is set")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "payment-approvals-service"),
			APIKey:      getEnv("APP_API_KEY", ""),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		Store: StoreConfig{
			Driver:          getEnv("STORE_DRIVER", "mysql"),
			DSN:             storeDSN,
			MaxOpenConns:    getIntEnv("STORE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("STORE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("STORE_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		InternalEndpoints: InternalEndpointsConfig{
			AuthGRPCAddr: getEnv("AUTH_SERVICE_GRPC_ADDR", "localhost:9090"),
		},
		Telegram: telegram,
		Approvals: ApprovalsConfig{
			ReviewerIDs:        reviewerIDs,
			StoreTimeout:       getSecondsEnv("APPROVALS_STORE_TIMEOUT_SECONDS", 5*time.Second),
			NotifyTimeout:      getSecondsEnv("APPROVALS_NOTIFY_TIMEOUT_SECONDS", 10*time.Second),
			CredentialTimeout:  getSecondsEnv("APPROVALS_CREDENTIAL_TIMEOUT_SECONDS", 10*time.Second),
			CredentialTTL:      getMinutesEnv("APPROVALS_CREDENTIAL_TTL_MINUTES", 24*time.Hour),
			CredentialMaxUses:  getIntEnv("APPROVALS_CREDENTIAL_MAX_USES", 1),
			CredentialScopeID:  telegram.InviteChatID,
			ProofMinTextLength: getIntEnv("APPROVALS_PROOF_MIN_TEXT_LENGTH", 5),
			AllowEmptyProof:    getBoolEnv("APPROVALS_ALLOW_EMPTY_PROOF", false),
			RedeliverMinAge:    getMinutesEnv("APPROVALS_REDELIVER_MIN_AGE_MINUTES", 5*time.Minute),
			JobBatchSize:       int32(getIntEnv("APPROVALS_JOB_BATCH_SIZE", 100)),
			NodeID:             getInt64Env("APPROVALS_NODE_ID", 1),
		},
		Plans: PlansConfig{
			File: getEnv("PLANS_FILE", ""),
		},
		Languages: LanguagesConfig{
			RedisAddr:     getEnv("LANGUAGES_REDIS_ADDR", ""),
			RedisPassword: getEnv("LANGUAGES_REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("LANGUAGES_REDIS_DB", 0),
			TTL:           getMinutesEnv("LANGUAGES_TTL_MINUTES", 0),
		},
		Events: EventsConfig{
			KafkaBrokers: getListEnv("EVENTS_KAFKA_BROKERS"),
			KafkaTopic:   getEnv("EVENTS_KAFKA_TOPIC", "payment-approvals"),
		},
		Jobs: JobsConfig{
			RedeliverInterval: getMinutesEnv("APPROVALS_REDELIVER_INTERVAL_MINUTES", time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

func getInt64ListEnv(key string) ([]int64, error) {
	parts := getListEnv(key)
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
