package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"vostcard-gateway/internal/logging"
)

const (
	logFormatAuto = "auto"
	logFormatText = "text"
	logFormatJSON = "json"

	// MaxUpstreamTimeoutSeconds bounds every upstream timeout so a call always
	// finishes inside the HTTP server's write timeout.
	MaxUpstreamTimeoutSeconds = 80
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Script  ScriptConfig  `yaml:"script"`
	Geocode GeocodeConfig `yaml:"geocode"`
	Email   EmailConfig   `yaml:"email"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port      int             `yaml:"port"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	// TrustedProxies lists the CIDR ranges whose X-Forwarded-For is honoured
	// when resolving the client IP. Empty means the peer address is used.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// TrustedProxyRanges parses TrustedProxies.
func (s ServerConfig) TrustedProxyRanges() ([]*net.IPNet, error) {
	ranges := make([]*net.IPNet, 0, len(s.TrustedProxies))
	for _, raw := range s.TrustedProxies {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("server.trusted_proxies: %q is not a CIDR range", raw)
		}
		ranges = append(ranges, ipNet)
	}
	return ranges, nil
}

// CORSConfig is the single cross-origin policy applied to every route.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxAgeSeconds  int      `yaml:"max_age_seconds"`
}

// RateLimitConfig enables per-client-IP throttling when RequestsPerSecond > 0.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ScriptConfig captures the chat-completion upstream and the prompt it is sent.
type ScriptConfig struct {
	APIKey         string   `yaml:"api_key"`
	BaseURL        string   `yaml:"base_url"`
	Model          string   `yaml:"model"`
	Temperature    *float64 `yaml:"temperature"`
	MaxTokens      int      `yaml:"max_tokens"`
	TargetWords    int      `yaml:"target_words"`
	PromptTemplate string   `yaml:"prompt_template"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
}

// SamplingTemperature returns the configured temperature, or the default when
// the key is absent. An explicit 0 is kept.
func (s ScriptConfig) SamplingTemperature() float64 {
	if s.Temperature == nil {
		return defaultScriptTemperature
	}
	return *s.Temperature
}

// GeocodeConfig points at a Nominatim-compatible search API.
type GeocodeConfig struct {
	BaseURL        string `yaml:"base_url"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// EmailConfig describes the SMTP relay and notification recipients.
type EmailConfig struct {
	Host                string   `yaml:"host"`
	Port                int      `yaml:"port"`
	Username            string   `yaml:"username"`
	Password            string   `yaml:"password"`
	From                string   `yaml:"from"`
	SiteURL             string   `yaml:"site_url"`
	AdvertiserRecipient string   `yaml:"advertiser_recipient"`
	BugReportRecipients []string `yaml:"bug_report_recipients"`
}

// Configured reports whether SMTP credentials are present.
func (e EmailConfig) Configured() bool {
	return strings.TrimSpace(e.Username) != "" && strings.TrimSpace(e.Password) != ""
}

// Sender returns the From address, falling back to the SMTP username.
func (e EmailConfig) Sender() string {
	if from := strings.TrimSpace(e.From); from != "" {
		return from
	}
	return strings.TrimSpace(e.Username)
}

// Default returns a configuration populated only from defaults and the
// environment, for running without a config file.
func Default() (Config, error) {
	var cfg Config
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}
	return parse(absPath, data)
}

func parse(path string, data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); v != "" {
		cfg.Script.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("EMAIL_USER")); v != "" {
		cfg.Email.Username = v
	}
	if v := os.Getenv("EMAIL_PASS"); strings.TrimSpace(v) != "" {
		cfg.Email.Password = v
	}
	if v := strings.TrimSpace(os.Getenv("VOSTCARD_PORT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("VOSTCARD_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = v
	}
	// Netlify exposes the primary site URL as URL and per-deploy URLs as DEPLOY_URL.
	if v := strings.TrimSpace(os.Getenv("URL")); v != "" {
		cfg.Email.SiteURL = v
	} else if v := strings.TrimSpace(os.Getenv("DEPLOY_URL")); v != "" {
		cfg.Email.SiteURL = v
	}
}

// Validate performs strict sanity checks on the configuration. A missing
// OpenAI key or SMTP credentials is not an error here: the affected endpoints
// report it per request.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if len(c.Server.CORS.AllowedOrigins) == 0 {
		return errors.New("server.cors.allowed_origins must list at least one origin")
	}
	for _, origin := range c.Server.CORS.AllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			return errors.New("server.cors.allowed_origins must not contain empty entries")
		}
	}
	if c.Server.CORS.MaxAgeSeconds < 0 {
		return errors.New("server.cors.max_age_seconds must be non-negative")
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 || c.Server.RateLimit.Burst < 0 {
		return errors.New("server.rate_limit values must be non-negative")
	}

	if _, err := c.Server.TrustedProxyRanges(); err != nil {
		return err
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case logFormatAuto, logFormatText, logFormatJSON:
	default:
		return fmt.Errorf("logging.format %q must be one of %q, %q or %q", c.Logging.Format, logFormatAuto, logFormatText, logFormatJSON)
	}

	if err := validateScript(c.Script); err != nil {
		return err
	}
	if err := validateBaseURL("geocode.base_url", c.Geocode.BaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(c.Geocode.UserAgent) == "" {
		return errors.New("geocode.user_agent must be provided")
	}
	if err := validateTimeout("geocode.timeout_seconds", c.Geocode.TimeoutSeconds); err != nil {
		return err
	}
	return validateEmail(c.Email)
}

func validateScript(s ScriptConfig) error {
	if err := validateBaseURL("script.base_url", s.BaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(s.Model) == "" {
		return errors.New("script.model must be provided")
	}
	if t := s.SamplingTemperature(); t < 0 || t > 2 {
		return fmt.Errorf("script.temperature must be between 0 and 2, got %v", t)
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("script.max_tokens must be positive, got %d", s.MaxTokens)
	}
	if s.TargetWords <= 0 {
		return fmt.Errorf("script.target_words must be positive, got %d", s.TargetWords)
	}
	if _, err := template.New("prompt").Option("missingkey=error").Parse(s.PromptTemplate); err != nil {
		return fmt.Errorf("script.prompt_template: %w", err)
	}
	return validateTimeout("script.timeout_seconds", s.TimeoutSeconds)
}

func validateTimeout(field string, seconds int) error {
	if seconds > MaxUpstreamTimeoutSeconds {
		return fmt.Errorf("%s must be at most %d, got %d", field, MaxUpstreamTimeoutSeconds, seconds)
	}
	return nil
}

func validateEmail(e EmailConfig) error {
	if strings.TrimSpace(e.Host) == "" {
		return errors.New("email.host must be provided")
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("email.port must be a valid TCP port, got %d", e.Port)
	}
	for _, r := range e.BugReportRecipients {
		if !strings.Contains(r, "@") {
			return fmt.Errorf("email.bug_report_recipients: %q is not an email address", r)
		}
	}
	if r := strings.TrimSpace(e.AdvertiserRecipient); r != "" && !strings.Contains(r, "@") {
		return fmt.Errorf("email.advertiser_recipient: %q is not an email address", r)
	}
	if e.SiteURL != "" {
		if err := validateBaseURL("email.site_url", e.SiteURL); err != nil {
			return err
		}
	}
	return nil
}

func validateBaseURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%s must be provided", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", field, raw)
	}
	return nil
}
