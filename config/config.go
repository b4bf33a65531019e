package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	UploadDisk  = "disk"
	UploadMinIO = "minio"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	Store                  string
	MongoURI               string
	MongoDB                string
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration

	AllowedOrigins []string

	MaxFileSize   int64
	UploadBackend string
	UploadDir     string
	MinIO         MinIOConfig

	SMTP SMTPConfig

	JWTSecret string
	JWTExpiry time.Duration

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	PhoneRegion string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
	NotifyTo string
}

// Enabled reports whether credentials were supplied.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.User != "" && s.Password != ""
}

// IsProduction controls whether error details are exposed to callers.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads the configuration from the environment.
func Load() *Config {
	origins := splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:3001,http://localhost:5173"))
	if frontend := os.Getenv("FRONTEND_URL"); frontend != "" {
		origins = append(origins, frontend)
	}

	smtpUser := os.Getenv("SMTP_USER")
	return &Config{
		Port:     getEnv("PORT", "5000"),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Store:                  strings.ToLower(getEnv("STORE", StoreMongo)),
		MongoURI:               getEnv("MONGODB_URI", os.Getenv("MONGOURI")),
		MongoDB:                getEnv("MONGODB_DB", getEnv("DB", "realestate")),
		ServerSelectionTimeout: getDurationEnv("MONGO_SERVER_SELECTION_TIMEOUT", 10*time.Second),
		SocketTimeout:          getDurationEnv("MONGO_SOCKET_TIMEOUT", 45*time.Second),

		AllowedOrigins: origins,

		MaxFileSize:   int64(getIntEnv("MAX_FILE_SIZE", 5*1024*1024)),
		UploadBackend: strings.ToLower(getEnv("UPLOAD_BACKEND", UploadDisk)),
		UploadDir:     getEnv("UPLOAD_DIR", "uploads"),
		MinIO: MinIOConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "realestate-uploads"),
			UseSSL:    getBoolEnv("MINIO_USE_SSL", false),
			PublicURL: os.Getenv("MINIO_PUBLIC_URL"),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getIntEnv("SMTP_PORT", 587),
			User:     smtpUser,
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("FROM_EMAIL", smtpUser),
			FromName: getEnv("FROM_NAME", "Real Estate Platform"),
			NotifyTo: getEnv("NOTIFY_EMAIL", smtpUser),
		},

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTExpiry: getDurationEnv("JWT_EXPIRY", 24*time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", os.Getenv("REDIS_ADD")),
		RedisPassword: os.Getenv("REDIS_PASS"),
		CacheTTL:      getDurationEnv("CACHE_TTL", 10*time.Minute),

		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 20),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		PhoneRegion: getEnv("PHONE_REGION", "US"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
