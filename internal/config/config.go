// Package config loads settings from an optional config file, a .env file
// and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/FranksOps/leadscout/internal/apperr"
	"github.com/FranksOps/leadscout/internal/fingerprint"
)

// EnvPrefix namespaces the generic environment overrides, e.g.
// LEADSCOUT_SCRAPE_JITTER for scrape.jitter.
const EnvPrefix = "LEADSCOUT"

// Config is the full application configuration.
type Config struct {
	SerpAPI SerpAPI `mapstructure:"serpapi"`
	Google  Google  `mapstructure:"google"`
	Server  Server  `mapstructure:"server"`
	Metrics Metrics `mapstructure:"metrics"`
	HTTP    HTTP    `mapstructure:"http"`
	Browser Browser `mapstructure:"browser"`
	Scrape  Scrape  `mapstructure:"scrape"`
	Log     Log     `mapstructure:"log"`
}

type SerpAPI struct {
	Key string `mapstructure:"key"`
}

type Google struct {
	APIKey                 string `mapstructure:"api_key"`
	SearchEngineID         string `mapstructure:"search_engine_id"`
	FacebookSearchEngineID string `mapstructure:"facebook_search_engine_id"`
}

// Configured reports whether the Programmable Search credentials are set.
func (g Google) Configured() bool {
	return g.APIKey != "" && g.SearchEngineID != ""
}

type Server struct {
	Port int `mapstructure:"port"`
}

type Metrics struct {
	// Port for a standalone /metrics listener; 0 disables it.
	Port int `mapstructure:"port"`
}

type HTTP struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Fingerprint string        `mapstructure:"fingerprint"`
	ProxyFile   string        `mapstructure:"proxy_file"`
	UserAgent   string        `mapstructure:"user_agent"`
}

type Browser struct {
	Headless  bool   `mapstructure:"headless"`
	UserAgent string `mapstructure:"user_agent"`
	ExecPath  string `mapstructure:"exec_path"`
	// Proxy is passed to Chrome as --proxy-server.
	Proxy string `mapstructure:"proxy"`
}

type Scrape struct {
	RespectRobots     bool          `mapstructure:"respect_robots"`
	SitemapFallback   bool          `mapstructure:"sitemap_fallback"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Jitter            float64       `mapstructure:"jitter"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envNames maps keys to the variable names the project has always used.
// Every other key is reachable as LEADSCOUT_<SECTION>_<KEY>.
var envNames = map[string]string{
	"serpapi.key":                      "SERPAPI_KEY",
	"google.api_key":                   "GOOGLE_API_KEY",
	"google.search_engine_id":          "GOOGLE_SEARCH_ENGINE_ID",
	"google.facebook_search_engine_id": "GOOGLE_FACEBOOK_SEARCH_ENGINE_ID",
	"server.port":                      "PORT",
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("serpapi.key", "")
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.search_engine_id", "")
	v.SetDefault("google.facebook_search_engine_id", "")
	v.SetDefault("server.port", 3000)
	v.SetDefault("metrics.port", 0)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.fingerprint", string(fingerprint.ProfileChrome))
	v.SetDefault("http.proxy_file", "")
	v.SetDefault("http.user_agent", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.proxy", "")
	v.SetDefault("scrape.respect_robots", false)
	v.SetDefault("scrape.sitemap_fallback", false)
	v.SetDefault("scrape.requests_per_second", 0.0)
	v.SetDefault("scrape.jitter", 0.0)
	v.SetDefault("scrape.navigation_timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadDotEnv loads dotenv files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configFile (when non-empty) and the environment into a
// Config. Call LoadDotEnv first for .env support.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envNames {
		if err := v.BindEnv(key, env, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later and obscurely.
// Missing API keys are not an error here: each provider reports its own
// when it is selected.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return apperr.Configuration("config", fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return apperr.Configuration("config", fmt.Sprintf("metrics.port %d out of range", c.Metrics.Port))
	}
	if _, err := fingerprint.ParseProfile(c.HTTP.Fingerprint); err != nil {
		return apperr.Configuration("config", err.Error())
	}
	if c.Scrape.Jitter < 0 || c.Scrape.Jitter > 1 {
		return apperr.Configuration("config", "scrape.jitter must be between 0 and 1")
	}
	if c.Scrape.RequestsPerSecond < 0 {
		return apperr.Configuration("config", "scrape.requests_per_second must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return apperr.Configuration("config", err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return apperr.Configuration("config", fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}
	return nil
}

// NewLogger builds the slog logger described by l, writing to w.
func (l Log) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}
