package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/adscope/suggest-triage/internal/georesolve"
	"github.com/adscope/suggest-triage/internal/pipeline"
	"github.com/adscope/suggest-triage/internal/semantic"
	"github.com/adscope/suggest-triage/pkg/embeddings"
	"github.com/adscope/suggest-triage/pkg/judge"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig       `yaml:"store" mapstructure:"store"`
	Geo        GeoConfig         `yaml:"geo" mapstructure:"geo"`
	Signals    SignalsConfig     `yaml:"signals" mapstructure:"signals"`
	Semantic   semantic.Config   `yaml:"semantic" mapstructure:"semantic"`
	Embeddings embeddings.Config `yaml:"embeddings" mapstructure:"embeddings"`
	Judge      JudgeConfig       `yaml:"judge" mapstructure:"judge"`
	Pipeline   pipeline.Config   `yaml:"pipeline" mapstructure:"pipeline"`
	Server     ServerConfig      `yaml:"server" mapstructure:"server"`
	Log        LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// SQLitePath is used when the driver is sqlite.
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// GeoConfig locates the geo dictionaries and carries the resolver
// policy switches.
type GeoConfig struct {
	DictPath string            `yaml:"dict_path" mapstructure:"dict_path"`
	Resolver georesolve.Config `yaml:"resolver" mapstructure:"resolver"`
}

// SignalsConfig configures the heuristic classifier.
type SignalsConfig struct {
	// LexiconPath points at a YAML overlay for the built-in word sets.
	// Empty means defaults only.
	LexiconPath string `yaml:"lexicon_path" mapstructure:"lexicon_path"`
}

// JudgeConfig configures the LLM fallback for grey tails.
type JudgeConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
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

// Validate checks the fields required by the given run mode. Modes
// are "classify" for one-shot batch runs and "serve" for the HTTP API.
func (c *Config) Validate(mode string) error {
	var missing []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			missing = append(missing, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required for the postgres driver")
		}
	default:
		missing = append(missing, "store.driver must be sqlite or postgres")
	}

	if c.Pipeline.Workers < 1 || c.Pipeline.Workers > 64 {
		missing = append(missing, "pipeline.workers must be between 1 and 64")
	}
	if c.Semantic.ValidThreshold <= c.Semantic.TrashThreshold {
		missing = append(missing, "semantic.valid_threshold must exceed semantic.trash_threshold")
	}
	if c.Judge.Enabled && c.Judge.Key == "" {
		missing = append(missing, "judge.key is required when the judge is enabled")
	}

	switch mode {
	case "classify":
	case "serve":
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// Environment
	v.SetEnvPrefix("SUGGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "suggest.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("geo.dict_path", "configs/geodict.yaml")
	v.SetDefault("geo.resolver.language", "ru")
	v.SetDefault("geo.resolver.grammar_check", true)
	v.SetDefault("geo.resolver.allow_seed_city_pairs", true)
	v.SetDefault("pipeline.language", "ru")
	v.SetDefault("pipeline.workers", 8)
	v.SetDefault("semantic.valid_threshold", 0.62)
	v.SetDefault("semantic.trash_threshold", 0.35)
	v.SetDefault("semantic.policy", semantic.PolicyConservative)
	v.SetDefault("semantic.combined_weight", 0.6)
	v.SetDefault("semantic.weighted_valid", 0.58)
	v.SetDefault("semantic.weighted_trash", 0.4)
	v.SetDefault("semantic.batch_size", 64)
	v.SetDefault("embeddings.model", "text-embedding-3-small")
	v.SetDefault("embeddings.max_retries", 3)
	v.SetDefault("embeddings.timeout_sec", 30)
	v.SetDefault("embeddings.rps", 4)
	v.SetDefault("judge.model", judge.DefaultModel)

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
