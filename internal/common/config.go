package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/courier/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Target      TargetConfig    `toml:"target"`
	Session     SessionConfig   `toml:"session"`
	Dispatch    DispatchConfig  `toml:"dispatch"`
	Queue       QueueConfig     `toml:"queue"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// TargetConfig identifies the site the session controller drives and the
// credentials it logs in with. Credentials are consumed at login time and
// never logged.
type TargetConfig struct {
	LoginURL    string             `toml:"login_url"`   // Site login page
	LandingURL  string             `toml:"landing_url"` // Post-login landing page used as auth marker
	LogoutURL   string             `toml:"logout_url"`  // Logout endpoint
	Credentials models.Credentials `toml:"credentials"` // Login identity + secret
}

// SessionConfig controls the browser automation context
type SessionConfig struct {
	Headless          bool     `toml:"headless"`           // Run Chrome headless (default: true)
	NoSandbox         bool     `toml:"no_sandbox"`         // Disable Chrome sandbox (containers)
	UserAgent         string   `toml:"user_agent"`         // Non-default UA to reduce automation detection
	AcceptLanguage    string   `toml:"accept_language"`    // Accept-Language header sent with every request
	ViewportWidth     int      `toml:"viewport_width"`     // Realistic viewport width
	ViewportHeight    int      `toml:"viewport_height"`    // Realistic viewport height
	NavigationTimeout Duration `toml:"navigation_timeout"` // Upper bound for any navigation
	ElementTimeout    Duration `toml:"element_timeout"`    // Upper bound for element waits
}

// DispatchConfig controls the per-message delivery interaction
type DispatchConfig struct {
	MaxAttempts    int      `toml:"max_attempts"`     // Attempt cap per message
	RetryDelay     Duration `toml:"retry_delay"`      // Delay between attempts
	RetryBackoff   bool     `toml:"retry_backoff"`    // Double the delay after each failed attempt
	TypingDelayMin Duration `toml:"typing_delay_min"` // Minimum inter-character typing delay
	TypingDelayMax Duration `toml:"typing_delay_max"` // Maximum inter-character typing delay
	SettleDelay    Duration `toml:"settle_delay"`     // Wait after opening composer / submitting
	ExtractProfile bool     `toml:"extract_profile"`  // Extract recipient display name from profile HTML
}

type QueueConfig struct {
	PacingDelay Duration `toml:"pacing_delay"` // Delay between consecutive messages
	IdleDelay   Duration `toml:"idle_delay"`   // Poll interval when the queue is empty
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration. An empty path
// selects the in-memory store (queue state is not expected to survive a
// restart).
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// WebSocketConfig contains configuration for the status push channel
type WebSocketConfig struct {
	// Throttle interval for high-frequency progress events. Zero disables
	// throttling; terminal events are never throttled.
	ProgressThrottle Duration `toml:"progress_throttle"`
}

// SchedulerConfig enables cron-scheduled queue starts
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron expression, e.g. "0 9 * * 1-5"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability;
// only user-facing settings belong in courier.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8090,
			Host: "localhost",
		},
		Target: TargetConfig{
			LoginURL:   "https://www.linkedin.com/login",
			LandingURL: "https://www.linkedin.com/feed",
			LogoutURL:  "https://www.linkedin.com/m/logout/",
		},
		Session: SessionConfig{
			Headless:          true,
			NoSandbox:         false,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			AcceptLanguage:    "en-US,en;q=0.9",
			ViewportWidth:     1280,
			ViewportHeight:    800,
			NavigationTimeout: Duration(30 * time.Second),
			ElementTimeout:    Duration(10 * time.Second),
		},
		Dispatch: DispatchConfig{
			MaxAttempts:    3,
			RetryDelay:     Duration(5 * time.Second),
			RetryBackoff:   false,
			TypingDelayMin: Duration(50 * time.Millisecond),
			TypingDelayMax: Duration(150 * time.Millisecond),
			SettleDelay:    Duration(2 * time.Second),
			ExtractProfile: true,
		},
		Queue: QueueConfig{
			PacingDelay: Duration(5 * time.Second),
			IdleDelay:   Duration(1 * time.Second),
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		WebSocket: WebSocketConfig{
			ProgressThrottle: Duration(1 * time.Second),
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 9 * * 1-5", // Weekday mornings
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COURIER_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("COURIER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("COURIER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Target site + credentials (credentials usually come from env, not file)
	if loginURL := os.Getenv("COURIER_TARGET_LOGIN_URL"); loginURL != "" {
		config.Target.LoginURL = loginURL
	}
	if landingURL := os.Getenv("COURIER_TARGET_LANDING_URL"); landingURL != "" {
		config.Target.LandingURL = landingURL
	}
	if identity := os.Getenv("COURIER_TARGET_IDENTITY"); identity != "" {
		config.Target.Credentials.Identity = identity
	}
	if secret := os.Getenv("COURIER_TARGET_SECRET"); secret != "" {
		config.Target.Credentials.Secret = secret
	}

	// Session configuration
	if headless := os.Getenv("COURIER_SESSION_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Session.Headless = h
		}
	}
	if noSandbox := os.Getenv("COURIER_SESSION_NO_SANDBOX"); noSandbox != "" {
		if ns, err := strconv.ParseBool(noSandbox); err == nil {
			config.Session.NoSandbox = ns
		}
	}
	if userAgent := os.Getenv("COURIER_SESSION_USER_AGENT"); userAgent != "" {
		config.Session.UserAgent = userAgent
	}
	if navTimeout := os.Getenv("COURIER_SESSION_NAVIGATION_TIMEOUT"); navTimeout != "" {
		if d, err := time.ParseDuration(navTimeout); err == nil {
			config.Session.NavigationTimeout = Duration(d)
		}
	}

	// Dispatch configuration
	if maxAttempts := os.Getenv("COURIER_DISPATCH_MAX_ATTEMPTS"); maxAttempts != "" {
		if ma, err := strconv.Atoi(maxAttempts); err == nil {
			config.Dispatch.MaxAttempts = ma
		}
	}
	if retryDelay := os.Getenv("COURIER_DISPATCH_RETRY_DELAY"); retryDelay != "" {
		if d, err := time.ParseDuration(retryDelay); err == nil {
			config.Dispatch.RetryDelay = Duration(d)
		}
	}

	// Queue configuration
	if pacing := os.Getenv("COURIER_QUEUE_PACING_DELAY"); pacing != "" {
		if d, err := time.ParseDuration(pacing); err == nil {
			config.Queue.PacingDelay = Duration(d)
		}
	}

	// Storage configuration
	if badgerPath := os.Getenv("COURIER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("COURIER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// Validate checks configuration consistency before startup
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Target.LoginURL == "" {
		return fmt.Errorf("target login_url is required")
	}
	if c.Target.LandingURL == "" {
		return fmt.Errorf("target landing_url is required")
	}
	if c.Dispatch.MaxAttempts <= 0 {
		return fmt.Errorf("dispatch max_attempts must be positive, got %d", c.Dispatch.MaxAttempts)
	}
	if c.Session.NavigationTimeout <= 0 {
		return fmt.Errorf("session navigation_timeout must be positive")
	}
	if c.Dispatch.TypingDelayMax < c.Dispatch.TypingDelayMin {
		return fmt.Errorf("dispatch typing_delay_max must be >= typing_delay_min")
	}
	return nil
}
