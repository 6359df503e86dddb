package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	// WebServer Configuration
	Host string `mapstructure:"HOST"`
	Port int    `mapstructure:"PORT" validate:"required,min=1,max=65535"`

	// Storage layout. Paths left empty are derived from DATA_DIR.
	DataDir      string `mapstructure:"DATA_DIR" validate:"required"`
	DatabasePath string `mapstructure:"DATABASE_PATH"`
	UploadsDir   string `mapstructure:"UPLOADS_DIR"`
	ProcessedDir string `mapstructure:"PROCESSED_DIR"`
	CaptionsDir  string `mapstructure:"CAPTIONS_DIR"`

	// Queue / pipeline
	Workers          int `mapstructure:"WORKERS" validate:"min=1"`
	DownloadTimeout  int `mapstructure:"DOWNLOAD_TIMEOUT" validate:"min=1"`
	EncodeTimeout    int `mapstructure:"ENCODE_TIMEOUT" validate:"min=1"`
	ProbeTimeout     int `mapstructure:"PROBE_TIMEOUT" validate:"min=1"`
	MaxUploadMB      int `mapstructure:"MAX_UPLOAD_MB" validate:"min=1"`
	JobRetentionDays int `mapstructure:"JOB_RETENTION_DAYS" validate:"min=1"`

	// Secrets
	SessionSecret string `mapstructure:"SESSION_SECRET" validate:"required"`
	EncryptionKey string `mapstructure:"ENCRYPTION_KEY" validate:"omitempty,len=64,hexadecimal"`
	AdminPasscode string `mapstructure:"ADMIN_PASSCODE"`
	ConfigFile    string `mapstructure:"CONFIG_FILE"`

	// External tools
	FFmpegPath      string `mapstructure:"FFMPEG_PATH"`
	FFprobePath     string `mapstructure:"FFPROBE_PATH"`
	YtdlpPath       string `mapstructure:"YTDLP_PATH"`
	WhisperPath     string `mapstructure:"WHISPER_PATH"`
	WhisperModelDir string `mapstructure:"WHISPER_MODEL_DIR"`

	// Aspect conversion target frame
	TargetWidth  int `mapstructure:"TARGET_WIDTH" validate:"min=2"`
	TargetHeight int `mapstructure:"TARGET_HEIGHT" validate:"min=2"`

	LogLevel string `mapstructure:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
}

// use reflect to bind environment variables based on mapstructure tags
func bindEnv(c Config) {
	val := reflect.ValueOf(c)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)
		tag := field.Tag.Get("mapstructure")

		if tag != "" {
			viper.BindEnv(tag)
		}

		// Handle nested structs
		if field.Type.Kind() == reflect.Struct && tag == "" {
			nestedTyp := fieldVal.Type()
			for j := 0; j < fieldVal.NumField(); j++ {
				nestedField := nestedTyp.Field(j)
				nestedTag := nestedField.Tag.Get("mapstructure")
				if nestedTag != "" {
					viper.BindEnv(nestedTag)
				}
			}
		}
	}
}

func LoadConfig(ctx context.Context) (*Config, error) {
	bindEnv(Config{})
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", 8090)
	viper.SetDefault("DATA_DIR", "./data")
	viper.SetDefault("WORKERS", 4)
	viper.SetDefault("DOWNLOAD_TIMEOUT", 300)
	viper.SetDefault("ENCODE_TIMEOUT", 600)
	viper.SetDefault("PROBE_TIMEOUT", 30)
	viper.SetDefault("MAX_UPLOAD_MB", 2048)
	viper.SetDefault("JOB_RETENTION_DAYS", 30)
	viper.SetDefault("FFMPEG_PATH", "ffmpeg")
	viper.SetDefault("FFPROBE_PATH", "ffprobe")
	viper.SetDefault("YTDLP_PATH", "yt-dlp")
	viper.SetDefault("WHISPER_PATH", "whisper-cli")
	viper.SetDefault("TARGET_WIDTH", 1080)
	viper.SetDefault("TARGET_HEIGHT", 1920)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.derivePaths()

	slog.Info("Loaded configuration",
		"host", cfg.Host,
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"database", cfg.DatabasePath,
		"workers", cfg.Workers,
		"target", fmt.Sprintf("%dx%d", cfg.TargetWidth, cfg.TargetHeight),
	)

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) derivePaths() {
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "reframe.db")
	}
	if c.UploadsDir == "" {
		c.UploadsDir = filepath.Join(c.DataDir, "uploads")
	}
	if c.ProcessedDir == "" {
		c.ProcessedDir = filepath.Join(c.DataDir, "processed")
	}
	if c.CaptionsDir == "" {
		c.CaptionsDir = filepath.Join(c.DataDir, "captions")
	}
	if c.WhisperModelDir == "" {
		c.WhisperModelDir = filepath.Join(c.DataDir, "models")
	}
	if c.ConfigFile == "" {
		c.ConfigFile = filepath.Join(c.DataDir, "admin_config.json")
	}
}

// EnsureDirs creates the artifact directories if they are missing.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.UploadsDir, c.ProcessedDir, c.CaptionsDir, c.WhisperModelDir, c.StagingDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// StagingDir is where the remote-browser companion places downloads
// awaiting import.
func (c *Config) StagingDir() string {
	return filepath.Join(c.UploadsDir, "browser_staged")
}

func (c *Config) DownloadTimeoutDur() time.Duration {
	return time.Duration(c.DownloadTimeout) * time.Second
}

func (c *Config) EncodeTimeoutDur() time.Duration {
	return time.Duration(c.EncodeTimeout) * time.Second
}

func (c *Config) ProbeTimeoutDur() time.Duration {
	return time.Duration(c.ProbeTimeout) * time.Second
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
