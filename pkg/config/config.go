package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// DefaultDataFile is where the tracker keeps its assignments unless overridden.
	DefaultDataFile = "assignments.csv"
	// DefaultPriorityWindowDays is the look-ahead of the priority view.
	DefaultPriorityWindowDays = 7
)

type Config struct {
	Env         string
	Port        int
	APIPrefix   string
	CORSOrigins []string

	Tracker TrackerConfig
	Exports ExportsConfig
	Log     LogConfig
}

// TrackerConfig points the store at its persistence location.
type TrackerConfig struct {
	DataFile           string
	PriorityWindowDays int
}

// ExportsConfig controls where rendered reports land.
type ExportsConfig struct {
	Dir string
}

type LogConfig struct {
	Level  string
	Format string
}

// Flags registers the command-line overrides understood by Load.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("data-file", "", "path of the assignments file")
	fs.Int("port", 0, "listen port for serve mode")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	return fs
}

// Load reads configuration from .env, the environment and, when given, parsed flags.
// Flags win over environment, which wins over defaults.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if flags != nil {
		bindFlag(v, flags, "TRACKER_DATA_FILE", "data-file")
		bindFlag(v, flags, "PORT", "port")
		bindFlag(v, flags, "LOG_LEVEL", "log-level")
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.CORSOrigins = splitAndTrim(v.GetString("CORS_ALLOWED_ORIGINS"))

	cfg.Tracker = TrackerConfig{
		DataFile:           strings.TrimSpace(v.GetString("TRACKER_DATA_FILE")),
		PriorityWindowDays: v.GetInt("PRIORITY_WINDOW_DAYS"),
	}
	if cfg.Tracker.DataFile == "" {
		cfg.Tracker.DataFile = DefaultDataFile
	}
	if cfg.Tracker.PriorityWindowDays <= 0 {
		cfg.Tracker.PriorityWindowDays = DefaultPriorityWindowDays
	}

	cfg.Exports = ExportsConfig{Dir: v.GetString("EXPORTS_DIR")}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("TRACKER_DATA_FILE", DefaultDataFile)
	v.SetDefault("PRIORITY_WINDOW_DAYS", DefaultPriorityWindowDays)
	v.SetDefault("EXPORTS_DIR", "./exports")

	v.SetDefault("LOG_LEVEL", "warn")
	v.SetDefault("LOG_FORMAT", "console")
}

// bindFlag only lets a flag override the key when the user actually set it.
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	f := flags.Lookup(name)
	if f == nil || !f.Changed {
		return
	}
	_ = v.BindPFlag(key, f)
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
