package wiki

import (
	"fmt"
	"net/url"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Defaults used by DefaultConfig and therefore by LoadConfig
const (
	DefaultBaseURL      = "https://aow4.paradoxwikis.com/api.php"
	DefaultUserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/88.0.4324.96 Safari/537.36"
	DefaultTimeout      = 30 * time.Second
	DefaultPageLimit    = 500
	DefaultRequestDelay = 200 * time.Millisecond

	// MaxPageLimit is the largest aplimit MediaWiki accepts (for bot accounts)
	MaxPageLimit = 5000
)

// Config holds MediaWiki connection settings
type Config struct {
	// BaseURL is the wiki API endpoint (e.g., https://wiki.example.com/api.php)
	BaseURL string `yaml:"url" env:"MEDIAWIKI_URL"`

	// UserAgent is sent with every request; some wikis reject non-browser agents
	UserAgent string `yaml:"user_agent" env:"MEDIAWIKI_USER_AGENT"`

	// Timeout for API requests, zero disables it
	Timeout time.Duration `yaml:"timeout" env:"MEDIAWIKI_TIMEOUT"`

	// PageLimit is the aplimit sent with every listing request
	PageLimit int `yaml:"page_limit" env:"MEDIAWIKI_PAGE_LIMIT"`

	// RequestDelay is slept between consecutive API calls
	RequestDelay time.Duration `yaml:"request_delay" env:"MEDIAWIKI_REQUEST_DELAY"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      DefaultBaseURL,
		UserAgent:    DefaultUserAgent,
		Timeout:      DefaultTimeout,
		PageLimit:    DefaultPageLimit,
		RequestDelay: DefaultRequestDelay,
	}
}

// LoadConfig loads configuration from the YAML file at path, if path is not empty,
// and then from environment variables. Unset values fall back to the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read wiki config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings before a client is built
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{
			Field:      "MEDIAWIKI_URL",
			Value:      c.BaseURL,
			Message:    "must be an absolute http(s) URL",
			Suggestion: "Point it at the wiki's api.php endpoint",
		}
	}

	if c.UserAgent == "" {
		return &ValidationError{
			Field:   "MEDIAWIKI_USER_AGENT",
			Message: "must not be empty",
		}
	}

	if c.Timeout < 0 {
		return &ValidationError{
			Field:   "MEDIAWIKI_TIMEOUT",
			Value:   c.Timeout.String(),
			Message: "must not be negative",
		}
	}

	if c.PageLimit < 1 || c.PageLimit > MaxPageLimit {
		return &ValidationError{
			Field:   "MEDIAWIKI_PAGE_LIMIT",
			Value:   fmt.Sprint(c.PageLimit),
			Message: fmt.Sprintf("must be between 1 and %d", MaxPageLimit),
		}
	}

	if c.RequestDelay < 0 {
		return &ValidationError{
			Field:   "MEDIAWIKI_REQUEST_DELAY",
			Value:   c.RequestDelay.String(),
			Message: "must not be negative",
		}
	}

	return nil
}
