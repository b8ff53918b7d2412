package profile

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string

	// IntentConfigPath points to the topic/slot definition file.
	// Empty means the embedded default configuration.
	IntentConfigPath string

	// NLU Configuration
	NLUAPIKey     string        // COVERLINE_NLU_API_KEY
	NLUBaseURL    string        // COVERLINE_NLU_BASE_URL (default: https://api.openai.com/v1)
	NLUModel      string        // COVERLINE_NLU_MODEL (default: gpt-4o-mini)
	NLUTimeout    time.Duration // COVERLINE_NLU_TIMEOUT (default: 15s)
	NLUMaxRetries int           // COVERLINE_NLU_MAX_RETRIES (default: 3)
	NLURateLimit  float64       // COVERLINE_NLU_RATE_LIMIT requests/sec (default: 5)

	// Search Configuration
	SearchAPIKey  string        // COVERLINE_SEARCH_API_KEY
	SearchBaseURL string        // COVERLINE_SEARCH_BASE_URL (default: https://api.ydc-index.io/v1)
	SearchTimeout time.Duration // COVERLINE_SEARCH_TIMEOUT (default: 10s)

	// Dialogue policy
	SessionTTL               time.Duration // COVERLINE_SESSION_TTL (default: 1h)
	SessionSweepInterval     time.Duration // COVERLINE_SESSION_SWEEP_INTERVAL (default: 10m)
	DynamicQuestions         bool          // COVERLINE_DYNAMIC_QUESTIONS: LLM-generated slot questions
	RetainSlotsAfterComplete bool          // COVERLINE_RETAIN_SLOTS_AFTER_COMPLETE (default: true)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsNLUConfigured returns true if the NLU upstream has credentials.
func (p *Profile) IsNLUConfigured() bool {
	return p.NLUAPIKey != ""
}

// IsSearchConfigured returns true if the search upstream has credentials.
func (p *Profile) IsSearchConfigured() bool {
	return p.SearchAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// FromEnv loads configuration from COVERLINE_* environment variables.
func (p *Profile) FromEnv() {
	p.IntentConfigPath = os.Getenv("COVERLINE_INTENT_CONFIG")

	p.NLUAPIKey = os.Getenv("COVERLINE_NLU_API_KEY")
	p.NLUBaseURL = getEnvOrDefault("COVERLINE_NLU_BASE_URL", "https://api.openai.com/v1")
	p.NLUModel = getEnvOrDefault("COVERLINE_NLU_MODEL", "gpt-4o-mini")
	p.NLUTimeout = getDurationEnv("COVERLINE_NLU_TIMEOUT", 15*time.Second)
	if retries, err := strconv.Atoi(os.Getenv("COVERLINE_NLU_MAX_RETRIES")); err == nil && retries > 0 {
		p.NLUMaxRetries = retries
	} else {
		p.NLUMaxRetries = 3
	}
	if limit, err := strconv.ParseFloat(os.Getenv("COVERLINE_NLU_RATE_LIMIT"), 64); err == nil && limit > 0 {
		p.NLURateLimit = limit
	} else {
		p.NLURateLimit = 5
	}

	p.SearchAPIKey = os.Getenv("COVERLINE_SEARCH_API_KEY")
	p.SearchBaseURL = getEnvOrDefault("COVERLINE_SEARCH_BASE_URL", "https://api.ydc-index.io/v1")
	p.SearchTimeout = getDurationEnv("COVERLINE_SEARCH_TIMEOUT", 10*time.Second)

	p.SessionTTL = getDurationEnv("COVERLINE_SESSION_TTL", time.Hour)
	p.SessionSweepInterval = getDurationEnv("COVERLINE_SESSION_SWEEP_INTERVAL", 10*time.Minute)
	p.DynamicQuestions = getBoolEnv("COVERLINE_DYNAMIC_QUESTIONS", false)
	p.RetainSlotsAfterComplete = getBoolEnv("COVERLINE_RETAIN_SLOTS_AFTER_COMPLETE", true)
}

// Validate normalizes and validates the profile.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	if p.IntentConfigPath != "" {
		if _, err := os.Stat(p.IntentConfigPath); err != nil {
			return errors.Wrapf(err, "unable to access intent config %s", p.IntentConfigPath)
		}
	}

	if p.SessionTTL <= 0 {
		p.SessionTTL = time.Hour
	}
	if p.SessionSweepInterval <= 0 {
		p.SessionSweepInterval = 10 * time.Minute
	}

	return nil
}

// ListenAddr returns the address the HTTP server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}
