package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "PALETTEFORGE"

type ConfigLoader struct {
	logger *zap.Logger
	v      *viper.Viper
}

func NewConfigLoader(logger *zap.Logger) *ConfigLoader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return &ConfigLoader{
		logger: logger,
		v:      v,
	}
}

// Load reads filePath when it exists and falls back to the built-in defaults
// otherwise. Environment variables (PALETTEFORGE_PALETTE_CLUSTERS, ...) win over both.
func (cl *ConfigLoader) Load(filePath string) (*Config, error) {
	if filePath != "" {
		cl.v.SetConfigFile(filePath)
		if err := cl.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				cl.logger.Error("Failed to read config file", zap.String("file", filePath), zap.Error(err))
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			cl.logger.Debug("Config file not found, using defaults", zap.String("file", filePath))
		}
	}

	var cfg Config
	if err := cl.v.Unmarshal(&cfg); err != nil {
		cl.logger.Error("Failed to unmarshal config", zap.Error(err))
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cl.validate(&cfg); err != nil {
		cl.logger.Error("Config validation failed", zap.Error(err))
		return nil, err
	}

	cl.logger.Debug("Config loaded", zap.String("file", cl.v.ConfigFileUsed()))
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.ff_mpeg_path", "ffmpeg")
	v.SetDefault("pipeline.ff_probe_path", "ffprobe")
	v.SetDefault("pipeline.max_samples", 8)
	v.SetDefault("pipeline.output_dir", "./outputs")
	v.SetDefault("pipeline.frames_dir", "frames")

	v.SetDefault("palette.clusters", 6)
	v.SetDefault("palette.attempts", 10)
	v.SetDefault("palette.max_iterations", 50)
	v.SetDefault("palette.epsilon", 0.2)
	v.SetDefault("palette.sample_width", 160)
	v.SetDefault("palette.sample_height", 90)
	v.SetDefault("palette.seed", 0)

	v.SetDefault("storage.type", "none")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.local.base_path", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("plugins", []map[string]interface{}{
		{"name": "site", "enabled": true, "config": map[string]interface{}{}},
		{"name": "watermark", "enabled": false, "config": map[string]interface{}{}},
	})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "console")
	v.SetDefault("logging.file_path", "")

	v.SetDefault("database.dsn", "")

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "palette-extraction")
}

func (cl *ConfigLoader) validate(cfg *Config) error {
	if cfg.Pipeline.FFMpegPath == "" {
		cfg.Pipeline.FFMpegPath = "ffmpeg" // Default to the one that's in PATH
	}
	if cfg.Pipeline.FFProbePath == "" {
		cfg.Pipeline.FFProbePath = "ffprobe"
	}
	if cfg.Pipeline.MaxSamples < 1 {
		return fmt.Errorf("pipeline.max_samples must be at least 1")
	}
	if cfg.Pipeline.FramesDir == "" {
		cfg.Pipeline.FramesDir = "frames"
	}

	if cfg.Palette.Clusters < 1 {
		return fmt.Errorf("palette.clusters must be at least 1")
	}
	if cfg.Palette.Attempts < 10 {
		return fmt.Errorf("palette.attempts must be at least 10, got %d", cfg.Palette.Attempts)
	}
	if cfg.Palette.MaxIterations < 1 {
		return fmt.Errorf("palette.max_iterations must be positive")
	}
	if cfg.Palette.Epsilon < 0 {
		return fmt.Errorf("palette.epsilon must be non-negative")
	}
	if cfg.Palette.SampleWidth < 1 || cfg.Palette.SampleHeight < 1 {
		return fmt.Errorf("palette sample size must be positive, got %dx%d", cfg.Palette.SampleWidth, cfg.Palette.SampleHeight)
	}

	storage := strings.ToLower(cfg.Storage.Type)
	cfg.Storage.Type = storage
	switch storage {
	case "", "none":
		cfg.Storage.Type = "none"
	case "s3":
		if cfg.Storage.Bucket == "" {
			return fmt.Errorf("s3 bucket required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region required")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("s3 access_key and secret_key required")
		}
	case "local":
		if cfg.Storage.Local.BasePath == "" {
			return fmt.Errorf("storage.local.base_path required for local storage")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s", storage)
	}

	for _, pc := range cfg.Plugins {
		if pc.Name == "" {
			return fmt.Errorf("plugin name cannot be empty")
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if !isValidLogLevel(cfg.Logging.Level) {
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "console"
	}
	if cfg.Logging.Output == "file" && cfg.Logging.FilePath == "" {
		return fmt.Errorf("file_path required for file logging")
	}

	if cfg.Temporal.TaskQueue == "" {
		cfg.Temporal.TaskQueue = "palette-extraction"
	}

	return nil
}

func isValidLogLevel(level string) bool {
	levels := []string{"debug", "info", "warn", "error"}
	for _, l := range levels {
		if strings.ToLower(level) == l {
			return true
		}
	}
	return false
}
