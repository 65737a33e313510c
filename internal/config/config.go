package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	AppEnv      string
	MySQLDSN    string
	ResetDB     bool
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	SwaggerHost string

	JWTSecret        string
	JWTExpiresIn     time.Duration
	RefreshSecret    string
	RefreshExpiresIn time.Duration
	BcryptCost       int

	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	ResetTokenKey        string
	EmailDomain          string

	SMTPHost             string
	SMTPPort             int
	SMTPUser             string
	SMTPKey              string
	FromEmail            string
	FrontendURL          string
	EmailVerificationURL string

	LiveKitURL       string
	LiveKitAPIKey    string
	LiveKitAPISecret string

	CORSAllowedOrigins []string
}

// Load builds Config from environment with sensible defaults. A .env file in
// the working directory is read first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, relying on process environment")
	}

	frontendURL := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/")

	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		AppEnv:      getEnv("APP_ENV", "production"),
		MySQLDSN:    getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/campusconnect?charset=utf8mb4&parseTime=True&loc=UTC"),
		ResetDB:     os.Getenv("RESET_DB") == "true",
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:     getEnvInt("REDIS_DB", 0),
		RedisPass:   os.Getenv("REDIS_PASSWORD"),
		SwaggerHost: os.Getenv("SWAGGER_HOST"),

		JWTSecret:        getEnv("JWT_SECRET", "change-me-access"),
		JWTExpiresIn:     getEnvDuration("JWT_EXPIRES_IN", 15*time.Minute),
		RefreshSecret:    getEnv("REFRESH_SECRET", "change-me-refresh"),
		RefreshExpiresIn: getEnvDuration("REFRESH_SECRET_EXPIRES_IN", 7*24*time.Hour),
		BcryptCost:       getEnvInt("BCRYPT_SALT_ROUNDS", 11),

		VerificationTokenTTL: getEnvDuration("VERIFICATION_TOKEN_EXPIRY", time.Hour),
		ResetTokenTTL:        getEnvDuration("PASSWORD_RESET_TOKEN_EXPIRY", time.Hour),
		ResetTokenKey:        getEnv("RESET_TOKEN_KEY", "change-me-reset"),
		EmailDomain:          strings.ToLower(getEnv("EMAIL_DOMAIN", "@my.csun.edu")),

		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPKey:              os.Getenv("SMTP_KEY"),
		FromEmail:            os.Getenv("FROM_EMAIL"),
		FrontendURL:          frontendURL,
		EmailVerificationURL: getEnv("EMAIL_VERIFICATION_URL", frontendURL+"/access/verify"),

		LiveKitURL:       getEnv("LIVEKIT_URL", "wss://localhost:7880"),
		LiveKitAPIKey:    os.Getenv("LIVEKIT_API_KEY"),
		LiveKitAPISecret: os.Getenv("LIVEKIT_API_SECRET"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}
}

// IsDevelopment reports whether development-only routes should be exposed.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Validate rejects configurations that would weaken the token model.
func (c *Config) Validate() error {
	if c.JWTSecret == "" || c.RefreshSecret == "" {
		return errors.New("JWT_SECRET and REFRESH_SECRET must be set")
	}
	if c.JWTSecret == c.RefreshSecret {
		return errors.New("JWT_SECRET and REFRESH_SECRET must differ")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_SALT_ROUNDS must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.JWTExpiresIn <= 0 || c.RefreshExpiresIn <= 0 || c.ResetTokenTTL <= 0 || c.VerificationTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if !strings.HasPrefix(c.EmailDomain, "@") {
		return errors.New("EMAIL_DOMAIN must start with @")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

// getEnvDuration accepts Go duration syntax, or an integer KEY_SECONDS twin.
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
