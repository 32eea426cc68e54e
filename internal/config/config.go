// Package config loads the directory agent configuration from flags, environment,
// .env files, a YAML config file and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jonathan/company-directory/internal/fetch"
	"github.com/jonathan/company-directory/internal/mention"
	"github.com/jonathan/company-directory/internal/reconcile"
	"github.com/jonathan/company-directory/internal/sources"
	"github.com/jonathan/company-directory/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. DIRECTORY_DATA_DIR.
const EnvPrefix = "DIRECTORY"

// DefaultConfigName is the config file looked up in the working directory.
const DefaultConfigName = "directory"

// Config is the full agent configuration.
type Config struct {
	Data     DataConfig                `mapstructure:"data" validate:"required"`
	Tags     mention.Tags              `mapstructure:"tags" validate:"required"`
	LinkedIn sources.LinkedInSelectors `mapstructure:"linkedin" validate:"required"`
	YC       sources.DirectoryConfig   `mapstructure:"yc" validate:"required"`
	Fetch    FetchConfig               `mapstructure:"fetch"`
	Pacing   PacingConfig              `mapstructure:"pacing"`
	Workers  int                       `mapstructure:"workers" validate:"gte=1,lte=64"`
	Merge    MergeConfig               `mapstructure:"merge"`
	Server   ServerConfig              `mapstructure:"server"`
	Database DatabaseConfig            `mapstructure:"database"`
	Cache    CacheConfig               `mapstructure:"cache"`
	Log      LogConfig                 `mapstructure:"log"`

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string `mapstructure:"-"`
}

// DataConfig locates the dataset documents.
type DataConfig struct {
	Dir        string `mapstructure:"dir" validate:"required"`
	RawFile    string `mapstructure:"raw_file" validate:"required"`
	DedupFile  string `mapstructure:"dedup_file" validate:"required"`
	BackupFile string `mapstructure:"backup_file" validate:"required"`
}

// FetchConfig configures plain HTTP fetching and browser rendering.
type FetchConfig struct {
	Timeout    time.Duration     `mapstructure:"timeout" validate:"gt=0"`
	UserAgent  string            `mapstructure:"user_agent" validate:"required"`
	Headers    map[string]string `mapstructure:"headers"`
	UseBrowser bool              `mapstructure:"use_browser"`
}

// PacingConfig spaces requests to the same host.
type PacingConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`
	Burst    int           `mapstructure:"burst" validate:"gte=1"`
}

// MergeConfig selects the name-merge behavior.
type MergeConfig struct {
	NeitherDirectoryPolicy string `mapstructure:"neither_directory_policy" validate:"oneof=discard union"`
}

// ServerConfig configures the dashboard API.
type ServerConfig struct {
	Port               int             `mapstructure:"port" validate:"gte=1,lte=65535"`
	AdminPasswordHash  string          `mapstructure:"admin_password_hash"`
	PasswordPepper     string          `mapstructure:"password_pepper"`
	BcryptCost         int             `mapstructure:"bcrypt_cost" validate:"gte=10,lte=14"`
	JWTSecret          string          `mapstructure:"jwt_secret"`
	JWTExpirationHours int             `mapstructure:"jwt_expiration_hours" validate:"gte=1"`
	CORSOrigin         string          `mapstructure:"cors_origin"`
	RateLimit          RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-client request limits.
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DefaultLimit    int           `mapstructure:"default_limit" validate:"gte=0"`
	DefaultWindow   time.Duration `mapstructure:"default_window" validate:"gte=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gte=0"`
	Whitelist       []string      `mapstructure:"whitelist"`
	Blacklist       []string      `mapstructure:"blacklist"`
}

// DatabaseConfig selects the optional Postgres store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// CacheConfig configures the fetched-page cache (Postgres only).
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `mapstructure:"format" validate:"oneof=auto console json"`
	Output string `mapstructure:"output" validate:"required"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:        ".",
			RawFile:    store.DefaultRawFile,
			DedupFile:  store.DefaultDedupFile,
			BackupFile: store.DefaultBackupFile,
		},
		Tags:     mention.DefaultTags(),
		LinkedIn: sources.DefaultLinkedInSelectors(),
		YC:       sources.DefaultDirectoryConfig(),
		Fetch: FetchConfig{
			Timeout:    fetch.DefaultTimeout,
			UserAgent:  fetch.DefaultUserAgent,
			Headers:    map[string]string{"Accept-Language": "en-US,en;q=0.9"},
			UseBrowser: true,
		},
		Pacing:  PacingConfig{Interval: time.Second, Burst: 1},
		Workers: reconcile.DefaultWorkers,
		Merge:   MergeConfig{NeitherDirectoryPolicy: string(reconcile.PolicyDiscard)},
		Server: ServerConfig{
			Port:               8080,
			BcryptCost:         12,
			JWTExpirationHours: 24,
			CORSOrigin:         "*",
			RateLimit: RateLimitConfig{
				Enabled:         true,
				DefaultLimit:    1000,
				DefaultWindow:   time.Minute,
				CleanupInterval: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{Enabled: true, TTL: fetch.DefaultCacheTTL},
		Log:   LogConfig{Level: "info", Format: "auto", Output: "stderr"},
	}
}

// Load reads configuration in order of precedence:
// 1. Environment variables (DIRECTORY_ prefix)
// 2. .env files
// 3. Config file (path, else ./directory.yaml)
// 4. Defaults
//
// Command-line flags are applied by the caller after Load returns.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("data.dir", d.Data.Dir)
	v.SetDefault("data.raw_file", d.Data.RawFile)
	v.SetDefault("data.dedup_file", d.Data.DedupFile)
	v.SetDefault("data.backup_file", d.Data.BackupFile)

	v.SetDefault("tags.accelerator", d.Tags.Accelerator)
	v.SetDefault("tags.cohort", d.Tags.Cohort)

	v.SetDefault("linkedin.tagline", d.LinkedIn.Tagline)
	v.SetDefault("linkedin.short_description", d.LinkedIn.ShortDescription)
	v.SetDefault("linkedin.full_description", d.LinkedIn.FullDescription)
	v.SetDefault("linkedin.website", d.LinkedIn.Website)
	v.SetDefault("linkedin.similar_pages", d.LinkedIn.SimilarPages)
	v.SetDefault("linkedin.company_prefix", d.LinkedIn.CompanyPrefix)

	v.SetDefault("yc.base_url", d.YC.BaseURL)
	v.SetDefault("yc.batch", d.YC.Batch)
	v.SetDefault("yc.company_link", d.YC.CompanyLink)
	v.SetDefault("yc.name", d.YC.Name)
	v.SetDefault("yc.description", d.YC.Description)
	v.SetDefault("yc.website_button", d.YC.WebsiteButton)
	v.SetDefault("yc.linkedin_link", d.YC.LinkedInLink)
	v.SetDefault("yc.scrolls", d.YC.Scrolls)
	v.SetDefault("yc.scroll_pause", d.YC.ScrollPause)
	v.SetDefault("yc.render_timeout", d.YC.RenderTimeout)

	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.headers", d.Fetch.Headers)
	v.SetDefault("fetch.use_browser", d.Fetch.UseBrowser)

	v.SetDefault("pacing.interval", d.Pacing.Interval)
	v.SetDefault("pacing.burst", d.Pacing.Burst)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("merge.neither_directory_policy", d.Merge.NeitherDirectoryPolicy)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.admin_password_hash", d.Server.AdminPasswordHash)
	v.SetDefault("server.password_pepper", d.Server.PasswordPepper)
	v.SetDefault("server.bcrypt_cost", d.Server.BcryptCost)
	v.SetDefault("server.jwt_secret", d.Server.JWTSecret)
	v.SetDefault("server.jwt_expiration_hours", d.Server.JWTExpirationHours)
	v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	v.SetDefault("server.rate_limit.default_limit", d.Server.RateLimit.DefaultLimit)
	v.SetDefault("server.rate_limit.default_window", d.Server.RateLimit.DefaultWindow)
	v.SetDefault("server.rate_limit.cleanup_interval", d.Server.RateLimit.CleanupInterval)
	v.SetDefault("server.rate_limit.whitelist", []string{})
	v.SetDefault("server.rate_limit.blacklist", []string{})

	v.SetDefault("database.url", d.Database.URL)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
}

// loadEnvFiles loads .env files; .env.local overrides .env.
func loadEnvFiles() {
	for _, envFile := range []string{".env.local", ".env"} {
		_ = godotenv.Load(envFile)
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config error: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}

	files := map[string]string{}
	for field, name := range map[string]string{
		"raw_file":    c.Data.RawFile,
		"dedup_file":  c.Data.DedupFile,
		"backup_file": c.Data.BackupFile,
	} {
		if other, dup := files[name]; dup {
			return fmt.Errorf("config error: data.%s and data.%s name the same file %q", field, other, name)
		}
		files[name] = field
	}

	if c.Server.AdminPasswordHash != "" && c.Server.JWTSecret == "" {
		return fmt.Errorf("config error: server.jwt_secret is required when server.admin_password_hash is set")
	}
	return nil
}

// MergeOptions converts the merge section into engine options.
func (c *Config) MergeOptions() (reconcile.MergeOptions, error) {
	policy, err := reconcile.ParseNeitherDirectoryPolicy(c.Merge.NeitherDirectoryPolicy)
	if err != nil {
		return reconcile.MergeOptions{}, err
	}
	return reconcile.MergeOptions{NeitherDirectoryPolicy: policy}, nil
}

// FileOptions converts the data section into file store options.
func (c *Config) FileOptions() store.FileOptions {
	return store.FileOptions{
		Dir:        c.Data.Dir,
		RawFile:    c.Data.RawFile,
		DedupFile:  c.Data.DedupFile,
		BackupFile: c.Data.BackupFile,
	}
}

// FetchOptions converts the fetch section into HTTP options.
func (c *Config) FetchOptions() *fetch.Options {
	headers := make(map[string]string, len(c.Fetch.Headers))
	for k, v := range c.Fetch.Headers {
		headers[k] = v
	}
	return &fetch.Options{
		Timeout:   c.Fetch.Timeout,
		UserAgent: c.Fetch.UserAgent,
		Headers:   headers,
	}
}
