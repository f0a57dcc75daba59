package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DevSessionSecret = "dev-secret-change-me"

type Config struct {
	Port            string        `mapstructure:"PORT"`
	DBPath          string        `mapstructure:"DB_PATH"`
	StaticDir       string        `mapstructure:"STATIC_DIR"`
	SessionSecret   string        `mapstructure:"SESSION_SECRET"`
	SessionTTL      time.Duration `mapstructure:"SESSION_TTL"`
	SeedUsername    string        `mapstructure:"SEED_USERNAME"`
	SeedPassword    string        `mapstructure:"SEED_PASSWORD"`
	MaxUploadBytes  int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	AllowedVideoExt []string      `mapstructure:"ALLOWED_VIDEO_EXT"`
	AllowedOrigins  string        `mapstructure:"ALLOWED_ORIGINS"`
	LogMode         string        `mapstructure:"LOG_MODE"`
	GinMode         string        `mapstructure:"GIN_MODE"`
}

var defaults = map[string]any{
	"PORT":              ":5000",
	"DB_PATH":           "./data/site.db",
	"STATIC_DIR":        "./static",
	"SESSION_SECRET":    DevSessionSecret,
	"SESSION_TTL":       "720h",
	"SEED_USERNAME":     "deepika",
	"SEED_PASSWORD":     "teachersday",
	"MAX_UPLOAD_BYTES":  int64(2 << 30),
	"ALLOWED_VIDEO_EXT": "mp4,mov,m4v,webm,ogg",
	"ALLOWED_ORIGINS":   "",
	"LOG_MODE":          "dev",
	"GIN_MODE":          "debug",
}

// Load reads <path>/app.env when present, then lets environment variables
// override any key.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.AllowedVideoExt = normalizeExt(cfg.AllowedVideoExt)
	if len(cfg.AllowedVideoExt) == 0 {
		return Config{}, errors.New("ALLOWED_VIDEO_EXT must list at least one extension")
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, errors.New("SESSION_TTL must be positive")
	}
	return cfg, nil
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// env values arrive as one comma separated element
func normalizeExt(in []string) []string {
	var out []string
	for _, item := range in {
		for _, e := range strings.Split(item, ",") {
			e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
			if e != "" {
				out = append(out, e)
			}
		}
	}
	return out
}
