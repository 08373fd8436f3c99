package config

import (
	types "PaletteForge/pkg"
)

type Config struct {
	Database DatabaseConfig       `mapstructure:"database" json:"database"`
	Pipeline types.PipelineConfig `mapstructure:"pipeline" json:"pipeline"`
	Palette  types.PaletteConfig  `mapstructure:"palette" json:"palette"`
	Storage  types.StorageConfig  `mapstructure:"storage" json:"storage"`
	Plugins  []types.PluginConfig `mapstructure:"plugins" json:"plugins"`
	Logging  types.LoggingConfig  `mapstructure:"logging" json:"logging"`
	Temporal types.TemporalConfig `mapstructure:"temporal" json:"temporal"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" json:"dsn"`
}
