package config

import "strings"

// DefaultPromptTemplate is the canonical script prompt. It renders with
// .Topic, .Style and .Words.
const DefaultPromptTemplate = "Write a 30-second video script in a '{{.Style}}' style about: {{.Topic}}. " +
	"Make it engaging, conversational, and suitable for a short location-based video. " +
	"Keep it around {{.Words}} words. " +
	"Write only the words to be spoken: no stage directions, camera cues, or speaker labels."

const (
	defaultPort              = 8080
	defaultCORSMaxAge        = 86400
	defaultScriptBaseURL     = "https://api.openai.com/v1"
	defaultScriptModel       = "gpt-3.5-turbo"
	defaultScriptTemperature = 0.7
	defaultScriptMaxTokens   = 300
	defaultScriptWords       = 80
	defaultScriptTimeout     = 60
	defaultGeocodeBaseURL    = "https://nominatim.openstreetmap.org"
	defaultGeocodeUserAgent  = "vostcard-gateway/1.0"
	defaultGeocodeTimeout    = 15
	defaultEmailHost         = "smtp.gmail.com"
	defaultEmailPort         = 587
)

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.CORS.MaxAgeSeconds == 0 {
		cfg.Server.CORS.MaxAgeSeconds = defaultCORSMaxAge
	}

	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if strings.TrimSpace(cfg.Logging.Format) == "" {
		cfg.Logging.Format = logFormatAuto
	}

	s := &cfg.Script
	if strings.TrimSpace(s.BaseURL) == "" {
		s.BaseURL = defaultScriptBaseURL
	}
	if strings.TrimSpace(s.Model) == "" {
		s.Model = defaultScriptModel
	}
	if s.Temperature == nil {
		t := defaultScriptTemperature
		s.Temperature = &t
	}
	if s.MaxTokens == 0 {
		s.MaxTokens = defaultScriptMaxTokens
	}
	if s.TargetWords == 0 {
		s.TargetWords = defaultScriptWords
	}
	if strings.TrimSpace(s.PromptTemplate) == "" {
		s.PromptTemplate = DefaultPromptTemplate
	}
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = defaultScriptTimeout
	}

	g := &cfg.Geocode
	if strings.TrimSpace(g.BaseURL) == "" {
		g.BaseURL = defaultGeocodeBaseURL
	}
	if strings.TrimSpace(g.UserAgent) == "" {
		g.UserAgent = defaultGeocodeUserAgent
	}
	if g.TimeoutSeconds <= 0 {
		g.TimeoutSeconds = defaultGeocodeTimeout
	}

	e := &cfg.Email
	if strings.TrimSpace(e.Host) == "" {
		e.Host = defaultEmailHost
	}
	if e.Port == 0 {
		e.Port = defaultEmailPort
	}
}
