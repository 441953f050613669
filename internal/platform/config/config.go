package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	stringsutil "checkpoint/pkg/platform/strings"
)

// Server captures process-level configuration. Built once in main and passed
// down; nothing reads the environment after startup.
type Server struct {
	Addr          string
	JWTSigningKey string

	PostgresDSN  string
	RedisURL     string
	KafkaBrokers string
	AuditTopic   string

	TokenTTL           time.Duration
	PayloadFreshness   time.Duration
	BiometricThreshold float64
	NonceCacheSize     int

	ScanRatePerMinute int
	ScanRateBurst     int

	// AgentKeys holds "agent-id=bcrypt-hash" pairs, comma separated.
	AgentKeys string

	// DevSiteID and DevSubjects seed the in-memory policy store and roster
	// when no postgres DSN is configured, so a dev deployment can issue and
	// verify out of the box.
	DevSiteID   string
	DevSubjects string

	ShutdownTimeout time.Duration
}

// RedisConfig tunes the shared Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:          envString("CHECKPOINT_ADDR", ":8080"),
		JWTSigningKey: envString("CHECKPOINT_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),

		PostgresDSN:  os.Getenv("CHECKPOINT_POSTGRES_DSN"),
		RedisURL:     os.Getenv("CHECKPOINT_REDIS_URL"),
		KafkaBrokers: os.Getenv("CHECKPOINT_KAFKA_BROKERS"),
		AuditTopic:   envString("CHECKPOINT_AUDIT_TOPIC", "checkpoint.audit"),

		TokenTTL:           envDuration("CHECKPOINT_TOKEN_TTL", 60*time.Second),
		PayloadFreshness:   envDuration("CHECKPOINT_PAYLOAD_FRESHNESS", 15*time.Second),
		BiometricThreshold: envFloat("CHECKPOINT_BIOMETRIC_THRESHOLD", 0.58),
		NonceCacheSize:     envInt("CHECKPOINT_NONCE_CACHE_SIZE", 4096),

		ScanRatePerMinute: envInt("CHECKPOINT_SCAN_RATE_PER_MINUTE", 30),
		ScanRateBurst:     envInt("CHECKPOINT_SCAN_RATE_BURST", 5),

		AgentKeys: os.Getenv("CHECKPOINT_AGENT_KEYS"),

		DevSiteID:   os.Getenv("CHECKPOINT_DEV_SITE"),
		DevSubjects: os.Getenv("CHECKPOINT_DEV_SUBJECTS"),

		ShutdownTimeout: envDuration("CHECKPOINT_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// AgentKeyring parses AgentKeys into the id-to-hash map the kiosk auth
// middleware consumes. Malformed pairs are skipped.
func (s Server) AgentKeyring() map[string]string {
	keyring := make(map[string]string)
	for _, pair := range stringsutil.SplitList(s.AgentKeys) {
		id, hash, ok := strings.Cut(pair, "=")
		if ok && id != "" && hash != "" {
			keyring[id] = hash
		}
	}
	return keyring
}

// Brokers returns the kafka broker list, cleaned.
func (s Server) Brokers() []string {
	return stringsutil.SplitList(s.KafkaBrokers)
}

// DevSubjectIDs returns the dev roster seed list, cleaned.
func (s Server) DevSubjectIDs() []string {
	return stringsutil.SplitList(s.DevSubjects)
}

// Redis derives the Redis client settings from the server config.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
