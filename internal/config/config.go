package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Geocoder   GeocoderConfig   `yaml:"geocoder" mapstructure:"geocoder"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Boundaries BoundariesConfig `yaml:"boundaries" mapstructure:"boundaries"`
	Aggregate  AggregateConfig  `yaml:"aggregate" mapstructure:"aggregate"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// GeocoderConfig configures the geocoding provider and its safeguards.
type GeocoderConfig struct {
	APIKey               string   `yaml:"api_key" mapstructure:"api_key"`
	RateLimit            float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	CacheOnly            bool     `yaml:"cache_only" mapstructure:"cache_only"`
	MaxDistanceKM        float64  `yaml:"max_distance_km" mapstructure:"max_distance_km"`
	KnownAddressesPath   string   `yaml:"known_addresses_path" mapstructure:"known_addresses_path"`
	KnownAddressPrefixes []string `yaml:"known_address_prefixes" mapstructure:"known_address_prefixes"`
}

// CacheConfig configures the durable geocoding cache.
type CacheConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// BoundariesConfig points at the geography reference files. All optional.
type BoundariesConfig struct {
	LocalitiesPath  string `yaml:"localities_path" mapstructure:"localities_path"`
	LocalityIDField string `yaml:"locality_id_field" mapstructure:"locality_id_field"`
	NationalPath    string `yaml:"national_path" mapstructure:"national_path"`
}

// AggregateConfig configures location aggregation.
type AggregateConfig struct {
	Precision int `yaml:"precision" mapstructure:"precision"`
}

// OutputConfig configures where campaign artifacts are written.
type OutputConfig struct {
	Folder   string `yaml:"folder" mapstructure:"folder"`
	Override bool   `yaml:"override" mapstructure:"override"`
}

// ServerConfig configures the results server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ILELECTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("geocoder.rate_limit", 10.0)
	v.SetDefault("geocoder.cache_only", false)
	v.SetDefault("geocoder.max_distance_km", 10.0)
	v.SetDefault("cache.path", "outputs/geocode-cache.sqlite")
	v.SetDefault("boundaries.locality_id_field", "SEMEL_YISH")
	v.SetDefault("aggregate.precision", 6)
	v.SetDefault("output.folder", "outputs/preprocessing")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
