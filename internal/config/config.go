package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultPort        = "3000"
	defaultSlackAPIURL = "https://slack.com/api/"
	defaultOpenAIModel = "gpt-4o-mini"
)

type Config struct {
	Port               string
	DatabaseURL        string
	DatabaseSSLMode    string
	BaseURL            string
	SlackClientID      string
	SlackClientSecret  string
	SlackSigningSecret string
	SlackAPIURL        string
	TrustProxyHeaders  bool
	OpenAIAPIKey       string
	OpenAIModel        string
	LogLevel           string
	LogFormat          string
	Environment        string
}

// RedirectURLs are the public URLs Slack and the browser are sent to.
type RedirectURLs struct {
	OAuthCallback string `json:"oauth_callback"`
	Success       string `json:"success"`
	Error         string `json:"error"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	port := getEnvOrDefault("PORT", defaultPort)

	return &Config{
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		DatabaseSSLMode:    os.Getenv("DATABASE_SSLMODE"),
		BaseURL:            strings.TrimRight(getEnvOrDefault("BASE_URL", "http://localhost:"+port), "/"),
		SlackClientID:      os.Getenv("SLACK_CLIENT_ID"),
		SlackClientSecret:  os.Getenv("SLACK_CLIENT_SECRET"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		SlackAPIURL:        getEnvOrDefault("SLACK_API_URL", defaultSlackAPIURL),
		TrustProxyHeaders:  getEnvBool("TRUST_PROXY_HEADERS", false),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getEnvOrDefault("OPENAI_MODEL", defaultOpenAIModel),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "INFO"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", "text"),
		Environment:        getEnvOrDefault("ENVIRONMENT", "development"),
	}
}

// Validate reports every fatal configuration problem at once. Missing Slack
// client credentials are not fatal: the OAuth routes report them to the user.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}

	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		errs = append(errs, errors.New("BASE_URL must start with http:// or https://"))
	}

	if !strings.HasSuffix(c.SlackAPIURL, "/") {
		errs = append(errs, errors.New("SLACK_API_URL must end with '/'"))
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if !contains(validLogLevels, strings.ToUpper(c.LogLevel)) {
		errs = append(errs, errors.New("LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR"))
	}

	validLogFormats := []string{"text", "json"}
	if !contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errs = append(errs, errors.New("LOG_FORMAT must be one of: text, json"))
	}

	return errors.Join(errs...)
}

// Warnings lists non-fatal problems worth logging at startup.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.SlackClientID == "" || c.SlackClientSecret == "" {
		warnings = append(warnings, "SLACK_CLIENT_ID and SLACK_CLIENT_SECRET are not both set; installation will fail")
	}
	if c.SlackSigningSecret == "" {
		warnings = append(warnings, "SLACK_SIGNING_SECRET is not set; Slack request signatures are not verified")
	}
	return warnings
}

func (c *Config) RedirectURLs() RedirectURLs {
	return RedirectURLs{
		OAuthCallback: c.BaseURL + "/slack/oauth/callback",
		Success:       c.BaseURL + "/success",
		Error:         c.BaseURL + "/error",
	}
}

// MemoryStoreURL selects the in-process store instead of Postgres
const MemoryStoreURL = "memory://"

func (c *Config) UsesMemoryStore() bool {
	return c.DatabaseURL == MemoryStoreURL
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Environment) == "development"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
