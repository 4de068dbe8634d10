// Package config builds the immutable run configuration from flags, the
// environment, an optional YAML file and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/taigrr/artifact-reaper/internal/catalog"
	"github.com/taigrr/artifact-reaper/internal/classify"
	"github.com/taigrr/artifact-reaper/internal/logging"
	"github.com/taigrr/artifact-reaper/internal/timestamp"
	"github.com/taigrr/artifact-reaper/internal/types"
)

// ErrConfiguration wraps every validation failure.
var ErrConfiguration = errors.New("configuration error")

// EnvPrefix is prepended to every key for environment lookup.
const EnvPrefix = "REAPER"

// LocalSourcePrefix selects a local mirror instead of the HTTP API.
const LocalSourcePrefix = "local:"

// Store backends.
const (
	StoreFile = "file"
	StoreS3   = "s3"
)

// DefaultSkipFolders are the folder rules used when none are configured.
var DefaultSkipFolders = []string{"master-SNAPSHOT", "development-SNAPSHOT", "develop-SNAPSHOT", "dev-SNAPSHOT"}

// DefaultSkipFiles are the file rules used when none are configured.
var DefaultSkipFiles = []string{"DONOTDELETE", "DO_NOT_DELETE", "DONTDELETE", "DONT_DELETE", "maven-metadata.xml"}

// Config is the run configuration. Build it with Load and pass it by value.
type Config struct {
	BaseURL          string   `mapstructure:"base_url"`
	Source           string   `mapstructure:"source"`
	DevRepo          string   `mapstructure:"dev_repo"`
	ReleaseRepo      string   `mapstructure:"release_repo"`
	MaxDays          int      `mapstructure:"max_days"`
	SkipFolders      []string `mapstructure:"skip_folders"`
	ExtraSkipFolders []string `mapstructure:"extra_skip_folders"`
	SkipFiles        []string `mapstructure:"skip_files"`
	MaxItems         int      `mapstructure:"max_items"`
	TimestampField   string   `mapstructure:"timestamp_field"`
	TimestampFormat  string   `mapstructure:"timestamp_format"`
	ReleaseMatch     string   `mapstructure:"release_match"`
	Today            string   `mapstructure:"today"`

	Enforce     bool   `mapstructure:"enforce"`
	Interactive bool   `mapstructure:"interactive"`
	DeleteOne   bool   `mapstructure:"delete_one"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`

	OutputDir    string           `mapstructure:"output_dir"`
	CatalogStore string           `mapstructure:"catalog_store"`
	S3           catalog.S3Config `mapstructure:"s3"`
	Log          logging.Config   `mapstructure:"log"`
	Metrics      MetricsConfig    `mapstructure:"metrics"`
	HTTP         HTTPConfig       `mapstructure:"http"`
}

// MetricsConfig selects where run metrics are exported.
type MetricsConfig struct {
	Textfile    string `mapstructure:"textfile"`
	Pushgateway string `mapstructure:"pushgateway"`
}

// HTTPConfig tunes the repository client.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// Options tell Load where to look.
type Options struct {
	ConfigFile string         // optional YAML file
	EnvFile    string         // optional dotenv file; missing is not an error when empty
	Flags      *pflag.FlagSet // flags override everything else
}

// flagKeys maps flag names that do not follow the dash-to-underscore rule.
var flagKeys = map[string]string{
	"skip":                "extra_skip_folders",
	"log-level":           "log.level",
	"log-format":          "log.format",
	"log-file":            "log.file",
	"metrics-textfile":    "metrics.textfile",
	"metrics-pushgateway": "metrics.pushgateway",
	"http-timeout":        "http.timeout",
	"http-retries":        "http.retries",
	"s3-bucket":           "s3.bucket",
	"s3-endpoint":         "s3.endpoint",
	"s3-prefix":           "s3.prefix",
}

// legacyEnv lists the environment names used by older deployments.
var legacyEnv = map[string][]string{
	"max_days":           {"MAX_DAYS"},
	"extra_skip_folders": {"SKIP_FOLDERS", "SKIP_LIST"},
	"max_items":          {"MAX_FILES_TO_COLLECT"},
	"enforce":            {"DO_DELETE"},
	"delete_one":         {"DELETE_ONE"},
	"use_created_time":   {"USE_CREATED_TIME"},
	"verbose":            {"VERBOSE"},
}

var envKeys = []string{
	"base_url", "source", "dev_repo", "release_repo", "max_days",
	"skip_folders", "extra_skip_folders", "skip_files", "max_items",
	"timestamp_field", "timestamp_format", "release_match", "today",
	"enforce", "interactive", "delete_one", "user", "password",
	"output_dir", "catalog_store",
	"s3.endpoint", "s3.bucket", "s3.prefix", "s3.region", "s3.access_key", "s3.secret_key",
	"log.level", "log.format", "log.file",
	"metrics.textfile", "metrics.pushgateway",
	"http.timeout", "http.retries",
}

// setDefaults leaves timestamp_field and log.level unset so the legacy
// switches can be told apart from explicit values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("max_days", 30)
	v.SetDefault("skip_folders", DefaultSkipFolders)
	v.SetDefault("skip_files", DefaultSkipFiles)
	v.SetDefault("max_items", 0)
	v.SetDefault("timestamp_format", string(timestamp.FormatArtifactory))
	v.SetDefault("release_match", string(classify.MatchExact))
	v.SetDefault("output_dir", ".")
	v.SetDefault("catalog_store", StoreFile)
	v.SetDefault("log.format", "console")
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.retries", 3)
}

// Load builds a validated Config.
func Load(opts Options) (Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		args := append([]string{key, EnvPrefix + "_" + strings.ToUpper(key)}, names...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("%w: bind %s: %w", ErrConfiguration, key, err)
		}
	}
	// Unmarshal only sees environment values for keys viper already knows.
	for _, key := range envKeys {
		if _, legacy := legacyEnv[key]; legacy {
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("%w: bind %s: %w", ErrConfiguration, key, err)
		}
	}

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("%w: read config: %w", ErrConfiguration, err)
		}
	}

	if opts.Flags != nil {
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("%w: bind flags: %w", ErrConfiguration, bindErr)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("%w: unmarshal: %w", ErrConfiguration, err)
	}

	cfg.SkipFolders = cleanList(cfg.SkipFolders)
	cfg.ExtraSkipFolders = cleanList(cfg.ExtraSkipFolders)
	cfg.SkipFiles = cleanList(cfg.SkipFiles)

	if cfg.TimestampField == "" {
		cfg.TimestampField = string(types.FieldCreated)
		if v.IsSet("use_created_time") && !v.GetBool("use_created_time") {
			cfg.TimestampField = string(types.FieldLastModified)
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
		if v.GetBool("verbose") {
			cfg.Log.Level = "debug"
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile(name string) error {
	if name == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		name = ".env"
	}
	if err := godotenv.Load(name); err != nil {
		return fmt.Errorf("%w: load %s: %w", ErrConfiguration, name, err)
	}
	return nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks values that the components cannot recover from.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.DevRepo) == "" {
		add("dev_repo is required")
	}
	if _, local := c.LocalMirror(); !local && strings.TrimSpace(c.BaseURL) == "" {
		add("base_url is required unless source is %s<dir>", LocalSourcePrefix)
	}
	if c.Source != "" && !strings.HasPrefix(c.Source, LocalSourcePrefix) {
		add("source must be empty or %s<dir>, got %q", LocalSourcePrefix, c.Source)
	}
	if c.ReleaseRepo != "" && c.ReleaseRepo == c.DevRepo {
		add("release_repo must differ from dev_repo")
	}
	if c.MaxDays < 0 {
		add("max_days must not be negative")
	}
	if c.MaxItems < 0 {
		add("max_items must not be negative")
	}
	switch types.TimestampField(c.TimestampField) {
	case types.FieldCreated, types.FieldLastModified:
	default:
		add("timestamp_field must be %s or %s, got %q", types.FieldCreated, types.FieldLastModified, c.TimestampField)
	}
	if _, err := timestamp.ParseFormat(c.TimestampFormat); err != nil {
		add("%v", err)
	}
	if _, err := classify.ParseMatchMode(c.ReleaseMatch); err != nil {
		add("%v", err)
	}
	if c.Today != "" {
		if _, err := time.Parse(time.DateOnly, c.Today); err != nil {
			add("today must be YYYY-MM-DD, got %q", c.Today)
		}
	}
	switch c.CatalogStore {
	case StoreFile:
	case StoreS3:
		if c.S3.Bucket == "" {
			add("s3.bucket is required for the s3 catalog store")
		}
	default:
		add("catalog_store must be %s or %s, got %q", StoreFile, StoreS3, c.CatalogStore)
	}
	if c.HTTP.Retries < 0 {
		add("http.retries must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// FolderRules returns the configured folder rules followed by the extras.
func (c Config) FolderRules() []string {
	rules := append([]string(nil), c.SkipFolders...)
	return append(rules, c.ExtraSkipFolders...)
}

// Field returns the timestamp field feeding the catalog.
func (c Config) Field() types.TimestampField {
	return types.TimestampField(c.TimestampField)
}

// Format returns the timestamp format. Validate guarantees it parses.
func (c Config) Format() timestamp.Format {
	f, _ := timestamp.ParseFormat(c.TimestampFormat)
	return f
}

// Match returns the release match mode.
func (c Config) Match() classify.MatchMode {
	m, _ := classify.ParseMatchMode(c.ReleaseMatch)
	return m
}

// TodayDate returns the configured reference date, or the UTC date of now.
func (c Config) TodayDate(now time.Time) timestamp.Date {
	if c.Today != "" {
		if t, err := time.Parse(time.DateOnly, c.Today); err == nil {
			return timestamp.DateOf(t)
		}
	}
	return timestamp.DateOf(now.UTC())
}

// SingleRepo reports whether no release repository is configured.
func (c Config) SingleRepo() bool {
	return c.ReleaseRepo == ""
}

// LocalMirror returns the mirror directory when source is local:<dir>.
func (c Config) LocalMirror() (string, bool) {
	dir, ok := strings.CutPrefix(c.Source, LocalSourcePrefix)
	if !ok || dir == "" {
		return "", false
	}
	return dir, true
}

// HasCredentials reports whether user and password are both set.
func (c Config) HasCredentials() bool {
	return c.User != "" && c.Password != ""
}
