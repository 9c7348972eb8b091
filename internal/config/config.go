package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/johnpfay/WakeVoter/internal/store"
	"github.com/johnpfay/WakeVoter/internal/voter"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Census CensusConfig `yaml:"census" mapstructure:"census"`
	Voter  VoterConfig  `yaml:"voter" mapstructure:"voter"`
	Turf   TurfConfig   `yaml:"turf" mapstructure:"turf"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string           `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string           `yaml:"database_url" mapstructure:"database_url"`
	Pool        store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// CensusConfig locates the census block inputs.
type CensusConfig struct {
	ShapefilePath  string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
	AttributesPath string `yaml:"attributes_path" mapstructure:"attributes_path"`
	StateFIPS      string `yaml:"state_fips" mapstructure:"state_fips"`
	CountyFIPS     string `yaml:"county_fips" mapstructure:"county_fips"`
}

// VoterConfig locates the state voter files and names the elections that
// feed engagement scoring.
type VoterConfig struct {
	RegistrationPath string         `yaml:"registration_path" mapstructure:"registration_path"`
	AddressPath      string         `yaml:"address_path" mapstructure:"address_path"`
	HistoryPath      string         `yaml:"history_path" mapstructure:"history_path"`
	County           string         `yaml:"county" mapstructure:"county"`
	Elections        map[string]int `yaml:"elections" mapstructure:"elections"`
}

// TurfConfig configures turf assembly.
type TurfConfig struct {
	Seed int64 `yaml:"seed" mapstructure:"seed"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("WAKEVOTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "wakevoter.db")
	v.SetDefault("census.state_fips", "37")
	v.SetDefault("census.county_fips", "183")
	v.SetDefault("voter.county", "WAKE")
	v.SetDefault("turf.seed", 0)
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

	if len(cfg.Voter.Elections) == 0 {
		cfg.Voter.Elections = voter.DefaultElections
	}

	return &cfg, nil
}

// Validate checks that the fields a given mode depends on are set. Modes
// mirror the CLI commands: "build", "export", and "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	switch mode {
	case "build":
		if c.Census.ShapefilePath == "" {
			problems = append(problems, "census.shapefile_path is required")
		}
		if c.Census.AttributesPath == "" {
			problems = append(problems, "census.attributes_path is required")
		}
		if c.Voter.RegistrationPath == "" {
			problems = append(problems, "voter.registration_path is required")
		}
		if c.Voter.AddressPath == "" {
			problems = append(problems, "voter.address_path is required")
		}
		if c.Voter.HistoryPath == "" {
			problems = append(problems, "voter.history_path is required")
		}
	case "export":
		// Store settings alone are enough to re-export a run.
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
