package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment variable name.
	EnvPrefix = "VERDICT"
	// FileEnv names an optional YAML config file.
	FileEnv = EnvPrefix + "_CONFIG"
)

// Load reads configuration from defaults, the optional file named by
// VERDICT_CONFIG and VERDICT_* environment variables, in increasing order of
// precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path := os.Getenv(FileEnv); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return &Config{
		HTTP: HTTPConf{
			Addr:               v.GetString("HTTP_ADDR"),
			RateLimitPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
			MaxBodyBytes:       v.GetInt64("MAX_BODY_BYTES"),
		},
		Store: StoreConf{
			Type:  v.GetString("STORE_TYPE"),
			Path:  v.GetString("RULES_FILE"),
			Watch: v.GetBool("RULES_WATCH"),
			Seed:  v.GetString("RULES_SEED"),
		},
		Log: LogConf{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Engine: EngineConf{
			Workers:       v.GetInt("BATCH_WORKERS"),
			QueueDepth:    v.GetInt("BATCH_QUEUE_DEPTH"),
			BatchMaxSize:  v.GetInt("BATCH_MAX_SIZE"),
			EvalTimeoutMs: v.GetInt("EVAL_TIMEOUT_MS"),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 600)
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("STORE_TYPE", "file")
	v.SetDefault("RULES_FILE", "data/rules.json")
	v.SetDefault("RULES_WATCH", true)
	v.SetDefault("RULES_SEED", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("BATCH_WORKERS", 8)
	v.SetDefault("BATCH_QUEUE_DEPTH", 1024)
	v.SetDefault("BATCH_MAX_SIZE", 100)
	v.SetDefault("EVAL_TIMEOUT_MS", 5000)
}
