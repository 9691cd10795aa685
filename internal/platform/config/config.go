package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything main needs to wire the service. Values come
// from the environment so main stays lean; a .env file is honored in
// development.
type Config struct {
	Addr string

	PostgresURL string
	RedisURL    string

	KafkaBrokers    []string
	AuditTopic      string
	AuditBufferSize int

	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration

	OTPLength   int
	OTPTTL      time.Duration
	OTPCooldown time.Duration
	OTPMaxTries int

	LoginMaxFailures   int
	LoginLockoutWindow time.Duration

	// Seed credentials for the first SUPER admin; ignored once any admin
	// exists. Empty email disables seeding.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string
	BootstrapAdminID       string

	SweepInterval time.Duration
}

// FromEnv builds a Config from environment variables, loading .env first if
// one is present.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr: getEnv("CAMPUSVOTE_ADDR", ":8080"),

		PostgresURL: os.Getenv("POSTGRES_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		KafkaBrokers:    splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
		AuditTopic:      getEnv("AUDIT_TOPIC", "campusvote.audit"),
		AuditBufferSize: getEnvInt("AUDIT_BUFFER_SIZE", 256),

		// Default for development only; override in production.
		JWTSigningKey: getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getEnv("JWT_ISSUER", "campusvote"),
		TokenTTL:      getEnvDuration("TOKEN_TTL", 7*24*time.Hour),

		OTPLength:   getEnvInt("OTP_LENGTH", 6),
		OTPTTL:      getEnvDuration("OTP_TTL", 10*time.Minute),
		OTPCooldown: getEnvDuration("OTP_COOLDOWN", 60*time.Second),
		OTPMaxTries: getEnvInt("OTP_MAX_TRIES", 5),

		LoginMaxFailures:   getEnvInt("LOGIN_MAX_FAILURES", 5),
		LoginLockoutWindow: getEnvDuration("LOGIN_LOCKOUT_WINDOW", 15*time.Minute),

		BootstrapAdminEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminName:     getEnv("BOOTSTRAP_ADMIN_NAME", "Super Admin"),
		BootstrapAdminID:       getEnv("BOOTSTRAP_ADMIN_ID", "SUPER-1"),

		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Minute),
	}
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
