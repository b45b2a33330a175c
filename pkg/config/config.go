package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/orgperm"
	ConfigFileName    = "permctl.yml"
)

// ValidLogLevels is the list of accepted log_level values
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Config holds all permctl configuration settings
type Config struct {
	// LogLevel is the minimum level logged by the server and CLI
	LogLevel string `yaml:"log_level" json:"log_level"`

	// TokenTTL is the lifetime of issued operator tokens in seconds
	TokenTTL int `yaml:"token_ttl" json:"token_ttl"`

	// EffectiveCacheTTL is the lifetime of cached effective sets in seconds
	EffectiveCacheTTL int `yaml:"effective_cache_ttl" json:"effective_cache_ttl"`

	// RedisURL enables the effective-set cache when set
	RedisURL string `yaml:"redis_url" json:"redis_url"`

	// RateLimitRPS limits matrix writes per operator; 0 disables the limit
	RateLimitRPS float64 `yaml:"rate_limit_rps" json:"rate_limit_rps"`

	// RateLimitBurst is the burst allowed above RateLimitRPS
	RateLimitBurst int `yaml:"rate_limit_burst" json:"rate_limit_burst"`

	// AuditEnabled enables audit events for matrix saves
	AuditEnabled bool `yaml:"audit_enabled" json:"audit_enabled"`

	// TrustedProxies is a list of CIDR ranges whose X-Forwarded-For is honored
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	// JWTSecret signs operator tokens. It is only read from the environment.
	JWTSecret string `yaml:"-" json:"-"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// fileConfig mirrors Config with pointers where a zero value is meaningful
type fileConfig struct {
	LogLevel          string   `yaml:"log_level"`
	TokenTTL          int      `yaml:"token_ttl"`
	EffectiveCacheTTL int      `yaml:"effective_cache_ttl"`
	RedisURL          string   `yaml:"redis_url"`
	RateLimitRPS      *float64 `yaml:"rate_limit_rps"`
	RateLimitBurst    int      `yaml:"rate_limit_burst"`
	AuditEnabled      *bool    `yaml:"audit_enabled"`
	TrustedProxies    []string `yaml:"trusted_proxies"`
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return cfg, nil
}

// newDefault returns a config with default values
func newDefault() *Config {
	return &Config{
		LogLevel:          "info",
		TokenTTL:          3600,
		EffectiveCacheTTL: 300,
		RateLimitRPS:      10,
		RateLimitBurst:    20,
		AuditEnabled:      true,
		TrustedProxies:    []string{},
		sources:           make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*Config, error) {
	config := newDefault()

	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	configPath := os.Getenv("PERMCTL_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&file)
	}

	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"log_level", "token_ttl", "effective_cache_ttl", "redis_url",
		"rate_limit_rps", "rate_limit_burst", "audit_enabled",
		"trusted_proxies", "jwt_secret",
	}
}

func (c *Config) applyFileConfig(file *fileConfig) {
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
		c.sources["log_level"] = "file"
	}
	if file.TokenTTL != 0 {
		c.TokenTTL = file.TokenTTL
		c.sources["token_ttl"] = "file"
	}
	if file.EffectiveCacheTTL != 0 {
		c.EffectiveCacheTTL = file.EffectiveCacheTTL
		c.sources["effective_cache_ttl"] = "file"
	}
	if file.RedisURL != "" {
		c.RedisURL = file.RedisURL
		c.sources["redis_url"] = "file"
	}
	if file.RateLimitRPS != nil {
		c.RateLimitRPS = *file.RateLimitRPS
		c.sources["rate_limit_rps"] = "file"
	}
	if file.RateLimitBurst != 0 {
		c.RateLimitBurst = file.RateLimitBurst
		c.sources["rate_limit_burst"] = "file"
	}
	if file.AuditEnabled != nil {
		c.AuditEnabled = *file.AuditEnabled
		c.sources["audit_enabled"] = "file"
	}
	if len(file.TrustedProxies) > 0 {
		c.TrustedProxies = file.TrustedProxies
		c.sources["trusted_proxies"] = "file"
	}
}

func (c *Config) applyEnvConfig() {
	if val := os.Getenv("PERMCTL_LOG_LEVEL"); val != "" {
		c.LogLevel = strings.ToLower(val)
		c.sources["log_level"] = "environment"
	}
	if val := os.Getenv("PERMCTL_TOKEN_TTL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.TokenTTL = i
			c.sources["token_ttl"] = "environment"
		}
	}
	if val := os.Getenv("PERMCTL_EFFECTIVE_CACHE_TTL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.EffectiveCacheTTL = i
			c.sources["effective_cache_ttl"] = "environment"
		}
	}
	if val := os.Getenv("PERMCTL_REDIS_URL"); val != "" {
		c.RedisURL = val
		c.sources["redis_url"] = "environment"
	}
	if val := os.Getenv("PERMCTL_RATE_LIMIT_RPS"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.RateLimitRPS = f
			c.sources["rate_limit_rps"] = "environment"
		}
	}
	if val := os.Getenv("PERMCTL_RATE_LIMIT_BURST"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.RateLimitBurst = i
			c.sources["rate_limit_burst"] = "environment"
		}
	}
	if val := os.Getenv("PERMCTL_AUDIT_ENABLED"); val != "" {
		c.AuditEnabled = val == "true" || val == "1"
		c.sources["audit_enabled"] = "environment"
	}
	if val := os.Getenv("PERMCTL_TRUSTED_PROXIES"); val != "" {
		c.TrustedProxies = splitAndTrim(val)
		c.sources["trusted_proxies"] = "environment"
	}
	if val := os.Getenv("PERMCTL_JWT_SECRET"); val != "" {
		c.JWTSecret = val
		c.sources["jwt_secret"] = "environment"
	}
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// TokenDuration returns the operator token TTL as a duration
func (c *Config) TokenDuration() time.Duration {
	return time.Duration(c.TokenTTL) * time.Second
}

// CacheDuration returns the effective-set cache TTL as a duration
func (c *Config) CacheDuration() time.Duration {
	return time.Duration(c.EffectiveCacheTTL) * time.Second
}

// IsTrustedProxy checks if an IP is from a trusted proxy
func (c *Config) IsTrustedProxy(ip string) bool {
	if len(c.TrustedProxies) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Try as plain IP
			if net.ParseIP(cidr) != nil && cidr == ip {
				return true
			}
			continue
		}
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *Config) Validate() error {
	valid := false
	for _, level := range ValidLogLevels {
		if c.LogLevel == level {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("token_ttl must be positive, got %d", c.TokenTTL)
	}
	if c.EffectiveCacheTTL < 0 {
		return fmt.Errorf("effective_cache_ttl must not be negative, got %d", c.EffectiveCacheTTL)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid trusted_proxies value: %s", cidr)
			}
		}
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	secret := ""
	if c.JWTSecret != "" {
		secret = "(set)"
	}
	return []Attribute{
		{Name: "log_level", Value: c.LogLevel, Source: c.Source("log_level")},
		{Name: "token_ttl", Value: strconv.Itoa(c.TokenTTL), Source: c.Source("token_ttl")},
		{Name: "effective_cache_ttl", Value: strconv.Itoa(c.EffectiveCacheTTL), Source: c.Source("effective_cache_ttl")},
		{Name: "redis_url", Value: c.RedisURL, Source: c.Source("redis_url")},
		{Name: "rate_limit_rps", Value: strconv.FormatFloat(c.RateLimitRPS, 'g', -1, 64), Source: c.Source("rate_limit_rps")},
		{Name: "rate_limit_burst", Value: strconv.Itoa(c.RateLimitBurst), Source: c.Source("rate_limit_burst")},
		{Name: "audit_enabled", Value: strconv.FormatBool(c.AuditEnabled), Source: c.Source("audit_enabled")},
		{Name: "trusted_proxies", Value: strings.Join(c.TrustedProxies, ","), Source: c.Source("trusted_proxies")},
		{Name: "jwt_secret", Value: secret, Source: c.Source("jwt_secret")},
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
