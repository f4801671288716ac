package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Entry store backends.
const (
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
	BackendDynamoDB  = "dynamodb"
	BackendMemory    = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Entry store
	StoreBackend string        // firestore | redis | dynamodb | memory
	StoreTimeout time.Duration // per-call timeout for store operations (ex: 10s)
	Collection   string        // Firestore collection / DynamoDB table / Redis key namespace

	FirestoreProjectID       string // GCP project holding the Firestore database
	FirestoreCredentialsFile string // optional service account key, ADC when empty

	DynamoRegion   string // ex: "eu-west-3"
	DynamoEndpoint string // optional, ex: "http://localhost:8000" for dynamodb-local

	// Redis (optional unless StoreBackend=redis). Empty address => in-memory sessions and cache.
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	SessionTTL      time.Duration // idle lifetime of a browser session (ex: 72h)
	CommentCacheTTL time.Duration // lifetime of a cached AI comment (ex: 720h)

	// Generative AI
	GenAIAPIKey string        // required
	GenAIModel  string        // ex: "gemini-2.0-flash"
	AITimeout   time.Duration // per-call timeout (ex: 20s)

	// Music catalog (optional, both or neither)
	SpotifyClientID     string
	SpotifyClientSecret string
	CatalogTimeout      time.Duration // ex: 10s
	MoodsFile           string        // optional YAML mood catalog

	// Conversation log (optional)
	ChatLogDir           string        // empty => disabled
	ChatLogRetention     time.Duration // logs untouched for longer are swept (ex: 720h)
	ChatLogSweepInterval time.Duration // ex: 24h

	RateLimitBurst  int // AI-backed endpoints, per client IP
	RateLimitPerMin int

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins  []string // optional, enables CORS on /api for these origins

	SecureCookies bool // true => session cookie only sent over HTTPS

	TimeZone *time.Location // journal days are calendar days here (ex: "Europe/Paris"), default local
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MINDHAVEN_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MINDHAVEN_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MINDHAVEN_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MINDHAVEN_PRETTY_LOG", true),

		// Entry store
		StoreBackend: strings.ToLower(getenv("MINDHAVEN_STORE_BACKEND", BackendFirestore)),
		StoreTimeout: mustDuration("MINDHAVEN_STORE_TIMEOUT", 10*time.Second),
		Collection:   getenv("MINDHAVEN_COLLECTION", "journal"),

		FirestoreProjectID:       getenv("MINDHAVEN_FIRESTORE_PROJECT", ""),
		FirestoreCredentialsFile: getenv("MINDHAVEN_FIRESTORE_CREDENTIALS", ""),

		DynamoRegion:   getenv("MINDHAVEN_DYNAMODB_REGION", ""),
		DynamoEndpoint: getenv("MINDHAVEN_DYNAMODB_ENDPOINT", ""),

		// Redis settings
		RedisAddr:           getenv("MINDHAVEN_REDIS_ADDR", ""),
		RedisUser:           getenv("MINDHAVEN_REDIS_USERNAME", ""),
		RedisPassword:       getenv("MINDHAVEN_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("MINDHAVEN_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		SessionTTL:      mustDuration("MINDHAVEN_SESSION_TTL", 72*time.Hour),
		CommentCacheTTL: mustDuration("MINDHAVEN_COMMENT_CACHE_TTL", 30*24*time.Hour),

		// Generative AI
		GenAIAPIKey: requireEnv("MINDHAVEN_GENAI_API_KEY"),
		GenAIModel:  getenv("MINDHAVEN_GENAI_MODEL", "gemini-2.0-flash"),
		AITimeout:   mustDuration("MINDHAVEN_AI_TIMEOUT", 20*time.Second),

		// Music
		SpotifyClientID:     getenv("MINDHAVEN_SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: getenv("MINDHAVEN_SPOTIFY_CLIENT_SECRET", ""),
		CatalogTimeout:      mustDuration("MINDHAVEN_CATALOG_TIMEOUT", 10*time.Second),
		MoodsFile:           getenv("MINDHAVEN_MOODS_FILE", ""),

		// Conversation log
		ChatLogDir:           getenv("MINDHAVEN_CHAT_LOG_DIR", ""),
		ChatLogRetention:     mustDuration("MINDHAVEN_CHAT_LOG_RETENTION", 30*24*time.Hour),
		ChatLogSweepInterval: mustDuration("MINDHAVEN_CHAT_LOG_SWEEP_INTERVAL", 24*time.Hour),

		RateLimitBurst:  getenvInt("MINDHAVEN_RATE_LIMIT_BURST", 10),
		RateLimitPerMin: getenvInt("MINDHAVEN_RATE_LIMIT_PER_MIN", 20),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("MINDHAVEN_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("MINDHAVEN_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MINDHAVEN_TRUST_PROXY", false),
		CORSOrigins:  splitAndTrim(getenv("MINDHAVEN_CORS_ORIGINS", "")),

		SecureCookies: mustBool("MINDHAVEN_SECURE_COOKIES", false),

		TimeZone: mustLocation("MINDHAVEN_TZ"),
	}

	if err := cfg.validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = redact(cfg.RedisPassword)
		cfgCopy.GenAIAPIKey = redact(cfg.GenAIAPIKey)
		cfgCopy.SpotifyClientSecret = redact(cfg.SpotifyClientSecret)
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// MusicEnabled reports whether Spotify credentials were supplied.
func (c *Config) MusicEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

// validate checks cross-field requirements: credentials needed by the
// selected backends must be present at startup.
func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("MINDHAVEN_FIRESTORE_PROJECT is required when MINDHAVEN_STORE_BACKEND=%s", BackendFirestore)
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("MINDHAVEN_REDIS_ADDR is required when MINDHAVEN_STORE_BACKEND=%s", BackendRedis)
		}
	case BackendDynamoDB:
		if c.DynamoRegion == "" {
			return fmt.Errorf("MINDHAVEN_DYNAMODB_REGION is required when MINDHAVEN_STORE_BACKEND=%s", BackendDynamoDB)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown MINDHAVEN_STORE_BACKEND %q", c.StoreBackend)
	}

	if (c.SpotifyClientID == "") != (c.SpotifyClientSecret == "") {
		return fmt.Errorf("MINDHAVEN_SPOTIFY_CLIENT_ID and MINDHAVEN_SPOTIFY_CLIENT_SECRET must be set together")
	}
	if c.Collection == "" {
		return fmt.Errorf("MINDHAVEN_COLLECTION must not be empty")
	}
	if c.ChatLogDir != "" {
		if c.ChatLogSweepInterval <= 0 {
			return fmt.Errorf("MINDHAVEN_CHAT_LOG_SWEEP_INTERVAL must be positive, got %s", c.ChatLogSweepInterval)
		}
		if c.ChatLogRetention <= 0 {
			return fmt.Errorf("MINDHAVEN_CHAT_LOG_RETENTION must be positive, got %s", c.ChatLogRetention)
		}
	}
	return nil
}

func redact(v string) string {
	if v == "" {
		return ""
	}
	return "***REDACTED***"
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// mustLocation loads an IANA zone name; unset means the host's local zone.
func mustLocation(key string) *time.Location {
	v := os.Getenv(key)
	if v == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: %s=%q is not a known time zone: %v", key, v, err))
	}
	return loc
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
