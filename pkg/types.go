package types

type PipelineConfig struct {
	FFMpegPath  string `mapstructure:"ff_mpeg_path" json:"ff_mpeg_path"`
	FFProbePath string `mapstructure:"ff_probe_path" json:"ff_probe_path"`
	MaxSamples  int    `mapstructure:"max_samples" json:"max_samples"`
	OutputDir   string `mapstructure:"output_dir" json:"output_dir"`
	FramesDir   string `mapstructure:"frames_dir" json:"frames_dir"`
}

// PaletteConfig drives the clustering step. A zero Seed means a fresh random
// source per run.
type PaletteConfig struct {
	Clusters      int     `mapstructure:"clusters" json:"clusters"`
	Attempts      int     `mapstructure:"attempts" json:"attempts"`
	MaxIterations int     `mapstructure:"max_iterations" json:"max_iterations"`
	Epsilon       float64 `mapstructure:"epsilon" json:"epsilon"`
	SampleWidth   int     `mapstructure:"sample_width" json:"sample_width"`
	SampleHeight  int     `mapstructure:"sample_height" json:"sample_height"`
	Seed          uint64  `mapstructure:"seed" json:"seed"`
}

type StorageConfig struct {
	Type   string      `mapstructure:"type" json:"type"`
	Bucket string      `mapstructure:"bucket" json:"bucket"`
	Local  LocalConfig `mapstructure:"local" json:"local"`
	S3     S3Config    `mapstructure:"s3" json:"s3"`
}

type LocalConfig struct {
	BasePath string `mapstructure:"base_path" json:"base_path"`
}

type S3Config struct {
	Region          string `mapstructure:"region" json:"region"`
	AccessKeyID     string `mapstructure:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" json:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint" json:"endpoint"`
	UsePathStyle    bool   `mapstructure:"use_path_style" json:"use_path_style"`
}

type PluginConfig struct {
	Name    string                 `mapstructure:"name" json:"name"`
	Enabled bool                   `mapstructure:"enabled" json:"enabled"`
	Config  map[string]interface{} `mapstructure:"config" json:"config"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level" json:"level"`
	Output   string `mapstructure:"output" json:"output"`
	FilePath string `mapstructure:"file_path" json:"file_path"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port" json:"host_port"`
	Namespace string `mapstructure:"namespace" json:"namespace"`
	TaskQueue string `mapstructure:"task_queue" json:"task_queue"`
}
