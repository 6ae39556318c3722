package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string

	AppOrigin          string
	AgentAccessCode    string
	AgentEmail         string
	AgentTokenTTL      time.Duration
	JWTSecret          string
	ConfirmationPrefix string

	ReceiverURL     string
	ReceiverTimeout time.Duration

	LLMProvider  string
	LLMModel     string
	GeminiAPIKey string
	OpenAIAPIKey string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	IntakeEnabled   bool
	DatabaseURL     string
	SubmissionStore string
	DynamoTable     string
	SheetPath       string

	NotifyQueueURL string
	SMTPAddr       string
	SMTPUser       string
	SMTPPassword   string
	NotifyFrom     string
	NotifyTo       string

	PreviewDir string
	SessionTTL time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
	AgentEmailDomain   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")
	store := normalizeSubmissionStore(getEnv("SUBMISSION_STORE", ""), dbURL)

	if env == "production" && store == "postgres" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}
	if env == "production" && strings.TrimSpace(os.Getenv("JWT_SECRET")) == "" {
		log.Printf("JWT_SECRET is required in production; agent sign-in is disabled")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		AppOrigin:          getEnv("APP_ORIGIN", "http://localhost:5173"),
		AgentAccessCode:    getEnv("AGENT_ACCESS_CODE", ""),
		AgentEmail:         getEnv("AGENT_EMAIL", "Save@BillLayneInsurance.com"),
		AgentTokenTTL:      getDuration("AGENT_TOKEN_TTL", 12*time.Hour),
		JWTSecret:          jwtSecret(env),
		ConfirmationPrefix: getEnv("CONFIRMATION_PREFIX", "BLI"),

		ReceiverURL:     strings.TrimSpace(os.Getenv("RECEIVER_URL")),
		ReceiverTimeout: getDuration("RECEIVER_TIMEOUT", 2*time.Minute),

		LLMProvider:  normalizeProvider(getEnv("LLM_PROVIDER", "gemini")),
		LLMModel:     getEnv("LLM_MODEL", ""),
		GeminiAPIKey: getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		IntakeEnabled:   getBool("INTAKE_ENABLED", true),
		DatabaseURL:     dbURL,
		SubmissionStore: store,
		DynamoTable:     getEnv("DYNAMO_TABLE", "photo-submissions"),
		SheetPath:       getEnv("SHEET_PATH", "./data/submissions.csv"),

		NotifyQueueURL: getEnv("NOTIFY_QUEUE_URL", ""),
		SMTPAddr:       getEnv("SMTP_ADDR", ""),
		SMTPUser:       getEnv("SMTP_USER", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		NotifyFrom:     getEnv("NOTIFY_FROM", "no-reply@myinsurancephoto.com"),
		NotifyTo:       getEnv("NOTIFY_TO", "Save@BillLayneInsurance.com"),

		PreviewDir: getEnv("PREVIEW_DIR", ""),
		SessionTTL: getDuration("SESSION_TTL", 2*time.Hour),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
		AgentEmailDomain:   strings.ToLower(getEnv("AGENT_EMAIL_DOMAIN", "")),
	}
}

// jwtSecret falls back to a fixed development secret outside production.
func jwtSecret(env string) string {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" && env != "production" {
		return "dev-secret"
	}
	return secret
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		log.Printf("invalid %s=%q, using %t", key, raw, def)
		return def
	}
	return val
}

// getDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	log.Printf("invalid %s=%q, using %s", key, raw, def)
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "none", "off", "disabled":
		return "none"
	default:
		return "gemini"
	}
}

// normalizeSubmissionStore falls back to postgres when a database is configured
// and to the in-memory log otherwise.
func normalizeSubmissionStore(raw, dbURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "dynamodb", "dynamo":
		return "dynamodb"
	case "csv", "sheet":
		return "csv"
	case "memory":
		return "memory"
	}
	if dbURL != "" {
		return "postgres"
	}
	return "memory"
}
