package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// pendingLimitPrefix is the env prefix for per-platform pending-server caps,
// e.g. PENDING_SERVERS_LIMIT_OPENSTACK=10.
const pendingLimitPrefix = "PENDING_SERVERS_LIMIT_"

// Config holds application configuration.
type Config struct {
	AppName    string
	AppVersion string
	Port       string

	Environment string

	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	SnowflakeNodeID int64

	// Secret key (base64, 32 bytes) used to encrypt agent shared secrets at rest.
	SecretsKey string

	// PendingServersLimits caps the number of Pending servers per platform.
	// A platform without an entry has no cap.
	PendingServersLimits map[string]int

	// Agent ports handed out when the farm role does not override them.
	AgentAPIPort       int
	AgentMessagingPort int

	// Webhook delivery worker tuning.
	WebhookPollIntervalSec int
	WebhookBatchSize       int
	WebhookMaxAttempts     int
	WebhookRatePerSec      int
	WebhookTimeoutSec      int

	// Pending-launch reconciler tuning.
	LaunchRetryIntervalSec int
	LaunchRetryBatchSize   int
	LaunchMaxAttempts      int
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "scalr"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Port:        getenv("PORT", "8080"),
		Environment: getenv("ENVIRONMENT", "development"),

		DBHost:            getenv("DB_HOST", "localhost"),
		DBPort:            getenv("DB_PORT", "5432"),
		DBName:            getenv("DB_NAME", "scalr"),
		DBUser:            getenv("DB_USER", "postgres"),
		DBPassword:        getenv("DB_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DB_SSL_MODE", "disable"),
		DBMaxIdleConn:     getenvInt("DB_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DB_MAX_OPEN_CONN", 100),
		DBConnMaxLifetime: getenvInt("DB_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DB_CONN_MAX_IDLE_TIME", 60),

		SnowflakeNodeID: int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		SecretsKey:      strings.TrimSpace(getenv("SECRETS_KEY", "")),

		PendingServersLimits: parsePendingLimits(os.Environ()),

		AgentAPIPort:       getenvInt("AGENT_API_PORT", 8010),
		AgentMessagingPort: getenvInt("AGENT_MESSAGING_PORT", 8013),

		WebhookPollIntervalSec: getenvInt("WEBHOOK_POLL_INTERVAL", 5),
		WebhookBatchSize:       getenvInt("WEBHOOK_BATCH_SIZE", 20),
		WebhookMaxAttempts:     getenvInt("WEBHOOK_MAX_ATTEMPTS", 10),
		WebhookRatePerSec:      getenvInt("WEBHOOK_RATE_PER_SEC", 25),
		WebhookTimeoutSec:      getenvInt("WEBHOOK_TIMEOUT", 10),

		LaunchRetryIntervalSec: getenvInt("LAUNCH_RETRY_INTERVAL", 60),
		LaunchRetryBatchSize:   getenvInt("LAUNCH_RETRY_BATCH_SIZE", 50),
		LaunchMaxAttempts:      getenvInt("LAUNCH_MAX_ATTEMPTS", 10),
	}

	return &cfg
}

// PendingServersLimit returns the configured cap for a platform, or false
// when the platform is uncapped.
func (c *Config) PendingServersLimit(platform string) (int, bool) {
	limit, ok := c.PendingServersLimits[strings.ToLower(platform)]
	return limit, ok
}

func parsePendingLimits(environ []string) map[string]int {
	limits := make(map[string]int)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, pendingLimitPrefix) {
			continue
		}
		platform := strings.ToLower(strings.TrimPrefix(key, pendingLimitPrefix))
		if platform == "" {
			continue
		}
		limit, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || limit < 0 {
			continue
		}
		limits[platform] = limit
	}
	return limits
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
