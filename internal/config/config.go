package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/subwatch/internal/match"
	"github.com/ppiankov/subwatch/internal/notify"
	"github.com/ppiankov/subwatch/internal/source"
	"github.com/ppiankov/subwatch/internal/store"
)

const (
	DefaultConfigFile     = "config.yaml"
	DefaultTOMLConfigFile = "config.toml"
	DefaultEnvFile        = ".env"

	DefaultClientIDEnv     = "REDDIT_CLIENT_ID"
	DefaultClientSecretEnv = "REDDIT_CLIENT_SECRET"
	DefaultUserAgentEnv    = "REDDIT_USER_AGENT"
	DefaultWebhookURLEnv   = "DISCORD_WEBHOOK_URL"
	DefaultDSNEnv          = "DATABASE_URL"

	DefaultUserAgent    = "subwatch/1.0"
	DefaultRequestDelay = time.Second
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// ErrNoSources is returned when the configuration names no subreddits.
var ErrNoSources = errors.New("at least one source must be configured")

// Duration wraps time.Duration for YAML and TOML values like "1s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Reddit  RedditConfig   `yaml:"reddit" toml:"reddit"`
	Sources []SourceConfig `yaml:"sources" toml:"sources"`
	Storage StorageConfig  `yaml:"storage" toml:"storage"`
	Notify  NotifyConfig   `yaml:"notify" toml:"notify"`
	Log     LogConfig      `yaml:"log" toml:"log"`

	// Path of the file the config was read from.
	Path string `yaml:"-" toml:"-"`
}

type RedditConfig struct {
	Client          string   `yaml:"client" toml:"client"`
	ClientIDEnv     string   `yaml:"client_id_env" toml:"client_id_env"`
	ClientSecretEnv string   `yaml:"client_secret_env" toml:"client_secret_env"`
	UserAgent       string   `yaml:"user_agent" toml:"user_agent"`
	UserAgentEnv    string   `yaml:"user_agent_env" toml:"user_agent_env"`
	Limit           int      `yaml:"limit" toml:"limit"`
	RequestDelay    Duration `yaml:"request_delay" toml:"request_delay"`
	BaseURL         string   `yaml:"base_url" toml:"base_url"`

	// Resolved from env vars at load time.
	ClientID     string `yaml:"-" toml:"-"`
	ClientSecret string `yaml:"-" toml:"-"`
}

// SourceConfig is one subreddit and its match criteria.
type SourceConfig struct {
	Subreddit       string `yaml:"subreddit" toml:"subreddit"`
	Keyword         string `yaml:"keyword" toml:"keyword"`
	Flair           string `yaml:"flair" toml:"flair"`
	CustomPredicate string `yaml:"custom_predicate" toml:"custom_predicate"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
	Path    string `yaml:"path" toml:"path"`
	DSNEnv  string `yaml:"dsn_env" toml:"dsn_env"`

	// Resolved from env var at load time.
	DSN string `yaml:"-" toml:"-"`
}

type NotifyConfig struct {
	WebhookURLEnv string   `yaml:"webhook_url_env" toml:"webhook_url_env"`
	ExcerptLimit  int      `yaml:"excerpt_limit" toml:"excerpt_limit"`
	Redact        []string `yaml:"redact" toml:"redact"`
	Content       string   `yaml:"content" toml:"content"`
	Footer        string   `yaml:"footer" toml:"footer"`
	BaseURL       string   `yaml:"base_url" toml:"base_url"`

	// Resolved from env var at load time.
	WebhookURL string `yaml:"-" toml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"`
}

// Load reads config.yaml (or config.toml) from dir, applies defaults,
// resolves env vars, and validates. Variables in dir/.env are used when
// the process environment does not set them.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	cfg, err := decode(dir)
	if err != nil {
		return nil, err
	}

	env, err := readDotEnv(filepath.Join(dir, DefaultEnvFile))
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	resolveEnv(cfg, env.lookup)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func decode(dir string) (*Config, error) {
	var cfg Config

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		cfg.Path = path
		return &cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	tomlPath := filepath.Join(dir, DefaultTOMLConfigFile)
	data, tomlErr := os.ReadFile(tomlPath)
	if errors.Is(tomlErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if tomlErr != nil {
		return nil, fmt.Errorf("read config: %w", tomlErr)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Path = tomlPath
	return &cfg, nil
}

type dotEnv map[string]string

func readDotEnv(path string) (dotEnv, error) {
	env, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return dotEnv{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return env, nil
}

// lookup prefers the process environment over the .env file.
func (e dotEnv) lookup(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return e[key]
}

func applyDefaults(cfg *Config) {
	if cfg.Reddit.Client == "" {
		cfg.Reddit.Client = source.ModeOAuth
	}
	if cfg.Reddit.ClientIDEnv == "" {
		cfg.Reddit.ClientIDEnv = DefaultClientIDEnv
	}
	if cfg.Reddit.ClientSecretEnv == "" {
		cfg.Reddit.ClientSecretEnv = DefaultClientSecretEnv
	}
	if cfg.Reddit.UserAgentEnv == "" {
		cfg.Reddit.UserAgentEnv = DefaultUserAgentEnv
	}
	if cfg.Reddit.UserAgent == "" {
		cfg.Reddit.UserAgent = DefaultUserAgent
	}
	if cfg.Reddit.Limit == 0 {
		cfg.Reddit.Limit = source.DefaultLimit
	}
	if cfg.Reddit.RequestDelay.Duration == 0 {
		cfg.Reddit.RequestDelay.Duration = DefaultRequestDelay
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = store.BackendJSON
	}
	if cfg.Storage.Path == "" {
		switch cfg.Storage.Backend {
		case store.BackendSQLite:
			cfg.Storage.Path = store.DefaultSQLitePath
		default:
			cfg.Storage.Path = store.DefaultJSONPath
		}
	}
	if cfg.Storage.DSNEnv == "" {
		cfg.Storage.DSNEnv = DefaultDSNEnv
	}
	if cfg.Notify.WebhookURLEnv == "" {
		cfg.Notify.WebhookURLEnv = DefaultWebhookURLEnv
	}
	if cfg.Notify.ExcerptLimit == 0 {
		cfg.Notify.ExcerptLimit = notify.DefaultExcerptLimit
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

func resolveEnv(cfg *Config, lookup func(string) string) {
	cfg.Reddit.ClientID = lookup(cfg.Reddit.ClientIDEnv)
	cfg.Reddit.ClientSecret = lookup(cfg.Reddit.ClientSecretEnv)
	if ua := lookup(cfg.Reddit.UserAgentEnv); ua != "" {
		cfg.Reddit.UserAgent = ua
	}
	cfg.Storage.DSN = lookup(cfg.Storage.DSNEnv)
	cfg.Notify.WebhookURL = lookup(cfg.Notify.WebhookURLEnv)
}

func validate(cfg *Config) error {
	if _, err := cfg.Criteria(); err != nil {
		return err
	}

	switch cfg.Reddit.Client {
	case source.ModeOAuth, source.ModePublic, source.ModeRSS:
		// valid
	default:
		return fmt.Errorf("reddit.client: unknown client %q (want %s, %s or %s)",
			cfg.Reddit.Client, source.ModeOAuth, source.ModePublic, source.ModeRSS)
	}
	if cfg.Reddit.Limit < 0 || cfg.Reddit.Limit > source.MaxLimit {
		return fmt.Errorf("reddit.limit: must be between 1 and %d, got %d", source.MaxLimit, cfg.Reddit.Limit)
	}
	if cfg.Reddit.RequestDelay.Duration < 0 {
		return fmt.Errorf("reddit.request_delay: must not be negative")
	}

	switch cfg.Storage.Backend {
	case store.BackendJSON, store.BackendSQLite:
		// valid
	case store.BackendPostgres:
		if cfg.Storage.DSN == "" {
			return fmt.Errorf("storage: backend postgres needs %s to be set", cfg.Storage.DSNEnv)
		}
	default:
		return fmt.Errorf("storage.backend: %w %q", store.ErrUnknownBackend, cfg.Storage.Backend)
	}

	if cfg.Notify.ExcerptLimit < 0 {
		return fmt.Errorf("notify.excerpt_limit: must not be negative")
	}
	if _, err := notify.CompileRedact(cfg.Notify.Redact); err != nil {
		return fmt.Errorf("notify.redact: %w", err)
	}

	switch cfg.Log.Format {
	case "text", "json":
		// valid
	default:
		return fmt.Errorf("log.format: unknown format %q (want text or json)", cfg.Log.Format)
	}

	return nil
}

// Criteria converts the configured sources to match criteria, in order.
func (c *Config) Criteria() ([]match.Criteria, error) {
	if len(c.Sources) == 0 {
		return nil, fmt.Errorf("sources: %w", ErrNoSources)
	}
	out := make([]match.Criteria, 0, len(c.Sources))
	for i, s := range c.Sources {
		name := subredditName(s.Subreddit)
		if name == "" {
			return nil, fmt.Errorf("sources[%d]: subreddit is required", i)
		}
		pred, err := match.NewPredicate(s.Keyword, s.Flair, s.CustomPredicate)
		if err != nil {
			return nil, fmt.Errorf("sources[%d] (r/%s): %w", i, name, err)
		}
		out = append(out, match.Criteria{Source: name, Predicate: pred})
	}
	return out, nil
}

// Source returns the criteria for the named subreddit, compared
// case-insensitively.
func (c *Config) Source(name string) (match.Criteria, bool) {
	criteria, err := c.Criteria()
	if err != nil {
		return match.Criteria{}, false
	}
	name = subredditName(name)
	for _, cr := range criteria {
		if strings.EqualFold(cr.Source, name) {
			return cr, true
		}
	}
	return match.Criteria{}, false
}

func subredditName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "/")
	return strings.TrimPrefix(name, "r/")
}
