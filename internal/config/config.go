package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"

	"github.com/unimarket/image-uploader/internal/model"
)

// Config holds the main configuration for the application.
type Config struct {
	Server     Server         `mapstructure:"server"`
	Storage    Storage        `mapstructure:"storage"`
	Kafka      Kafka          `mapstructure:"kafka"`
	Retry      Retry          `mapstructure:"retry"`
	Upload     Upload         `mapstructure:"upload"`
	Validation Validation     `mapstructure:"validation"`
	Targets    []TargetConfig `mapstructure:"targets"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort string `mapstructure:"http_port"` // HTTP port to listen on
}

// Storage holds configuration for the object storage backend.
type Storage struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	BucketName    string `mapstructure:"bucket_name"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// Kafka holds configuration for the Kafka message queue.
type Kafka struct {
	GroupID        string   `mapstructure:"group_id"`        // Consumer group ID
	CompletedTopic string   `mapstructure:"completed_topic"` // Topic for upload-completed events
	RecropTopic    string   `mapstructure:"recrop_topic"`    // Topic for re-crop requests
	Brokers        []string `mapstructure:"brokers"`         // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// Upload bounds the upload step of the queue.
type Upload struct {
	Folder  string        `mapstructure:"folder"`  // Top-level storage folder
	Timeout time.Duration `mapstructure:"timeout"` // Per-attempt upload timeout
}

// Validation bounds a batch of selected files.
type Validation struct {
	MaxSizeMB         int64    `mapstructure:"max_size_mb"`
	AcceptedMimeTypes []string `mapstructure:"accepted_mime_types"`
	MaxCount          int      `mapstructure:"max_count"`
}

// TargetConfig describes one crop target (avatar, listing photo, ...).
type TargetConfig struct {
	Name     string `mapstructure:"name"`
	Width    int    `mapstructure:"width"`
	Height   int    `mapstructure:"height"`
	Fit      string `mapstructure:"fit"`
	Circular bool   `mapstructure:"circular"`
}

// CropTargets converts the configured crop targets into a lookup by name,
// falling back to the compiled-in marketplace defaults when the config
// file defines none.
func (c *Config) CropTargets() (map[string]model.CropTarget, error) {
	if len(c.Targets) == 0 {
		return defaultTargets(), nil
	}

	targets := make(map[string]model.CropTarget, len(c.Targets))
	for _, t := range c.Targets {
		fit, err := model.ParseFitMode(t.Fit)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", t.Name, err)
		}
		if t.Width <= 0 || t.Height <= 0 {
			return nil, fmt.Errorf("target %q: invalid size %dx%d", t.Name, t.Width, t.Height)
		}
		targets[t.Name] = model.CropTarget{
			Name:         t.Name,
			OutputWidth:  t.Width,
			OutputHeight: t.Height,
			Fit:          fit,
			Circular:     t.Circular,
		}
	}

	return targets, nil
}

// defaultTargets returns the marketplace's fixed crop contracts.
func defaultTargets() map[string]model.CropTarget {
	return map[string]model.CropTarget{
		"avatar":      {Name: "avatar", OutputWidth: 240, OutputHeight: 240, Fit: model.FitCover, Circular: true},
		"listing":     {Name: "listing", OutputWidth: 1200, OutputHeight: 1200, Fit: model.FitContain},
		"shop-logo":   {Name: "shop-logo", OutputWidth: 500, OutputHeight: 500, Fit: model.FitCover, Circular: true},
		"shop-banner": {Name: "shop-banner", OutputWidth: 1200, OutputHeight: 300, Fit: model.FitContain},
	}
}

// mustBindEnv binds critical environment variables to Viper keys.
//
// It panics if any environment variable cannot be bound.
func mustBindEnv() {
	bindings := map[string]string{
		"storage.endpoint":   "STORAGE_ENDPOINT",
		"storage.access_key": "STORAGE_ACCESS_KEY",
		"storage.secret_key": "STORAGE_SECRET_KEY",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			zlog.Logger.Panic().Err(err).Msgf("failed to bind env %s", env)
		}
	}
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	mustBindEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msgf("failed to unmarshal config: %v", err)
	}

	return &cfg
}
