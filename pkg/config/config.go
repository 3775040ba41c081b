// Package config loads the layered configuration described in SPEC_FULL
// §4.16: segmentation and LL-HLS settings (§6.4, unchanged), an optional
// S3 publish sink, an optional live fan-out endpoint, and logging.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ngohuy/hlspacker/pkg/live"
	"github.com/ngohuy/hlspacker/pkg/publish"
	"github.com/ngohuy/hlspacker/pkg/segmenter"
)

// Config is the top-level, YAML-loadable configuration for the engine.
type Config struct {
	Segmentation SegmentationConfig `yaml:"segmentation"`
	LLHLS        LLHLSConfig        `yaml:"llhls"`
	Storage      StorageConfig      `yaml:"storage"`
	Live         LiveConfig         `yaml:"live"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// SegmentationConfig mirrors segmenter.Config for YAML loading.
type SegmentationConfig struct {
	ContainerFormat       string  `yaml:"container_format"` // fragmented_mp4 | mpeg_ts
	TargetSegmentDuration float64 `yaml:"target_segment_duration"`
	OutputMode            string  `yaml:"output_mode"` // separate_files | byte_range
	SegmentNamePattern    string  `yaml:"segment_name_pattern"`
	InitSegmentName       string  `yaml:"init_segment_name"`
	PlaylistName          string  `yaml:"playlist_name"`
	IncludeAudio          bool    `yaml:"include_audio"`
	GeneratePlaylist      bool    `yaml:"generate_playlist"`
	PlaylistType          string  `yaml:"playlist_type"` // vod | event
}

// ToSegmenterConfig converts the loaded YAML shape to segmenter.Config.
func (s SegmentationConfig) ToSegmenterConfig() segmenter.Config {
	cfg := segmenter.Config{
		TargetSegmentDuration: s.TargetSegmentDuration,
		SegmentNamePattern:    s.SegmentNamePattern,
		InitSegmentName:       s.InitSegmentName,
		PlaylistName:          s.PlaylistName,
		IncludeAudio:          s.IncludeAudio,
		GeneratePlaylist:      s.GeneratePlaylist,
	}
	if s.ContainerFormat == "mpeg_ts" {
		cfg.ContainerFormat = segmenter.MPEGTS
	} else {
		cfg.ContainerFormat = segmenter.FragmentedMP4
	}
	if s.OutputMode == "byte_range" {
		cfg.OutputMode = segmenter.ByteRangeConcat
	} else {
		cfg.OutputMode = segmenter.SeparateFiles
	}
	if s.PlaylistType == "event" {
		cfg.PlaylistType = segmenter.PlaylistEvent
	} else {
		cfg.PlaylistType = segmenter.PlaylistVOD
	}
	return cfg
}

func defaultSegmentationConfig() SegmentationConfig {
	d := segmenter.DefaultConfig()
	return SegmentationConfig{
		ContainerFormat:       "fragmented_mp4",
		TargetSegmentDuration: d.TargetSegmentDuration,
		OutputMode:            "separate_files",
		SegmentNamePattern:    d.SegmentNamePattern,
		InitSegmentName:       d.InitSegmentName,
		PlaylistName:          d.PlaylistName,
		IncludeAudio:          d.IncludeAudio,
		GeneratePlaylist:      d.GeneratePlaylist,
		PlaylistType:          "vod",
	}
}

// LLHLSConfig mirrors live.Config for YAML loading.
type LLHLSConfig struct {
	PartTargetDuration      float64 `yaml:"part_target_duration"`
	MaxPartialsPerSegment   int     `yaml:"max_partials_per_segment"`
	SegmentTargetDuration   float64 `yaml:"segment_target_duration"`
	RetainedPartialSegments int     `yaml:"retained_partial_segments"`
	RetainedSegments        int     `yaml:"retained_segments"`
	PartialURITemplate      string  `yaml:"partial_uri_template"`
	FileExtension           string  `yaml:"file_extension"`
	IncludeProgramDateTime  bool    `yaml:"include_program_date_time"`
	CanSkipUntilSeconds     float64 `yaml:"can_skip_until_seconds"`
}

// ToLiveConfig converts the loaded YAML shape to live.Config.
func (l LLHLSConfig) ToLiveConfig() live.Config {
	return live.Config{
		MaxPartialsPerSegment: l.MaxPartialsPerSegment,
		RetentionSegments:     l.RetainedSegments,
		PartialRetentionCount: l.RetainedPartialSegments,
		PartTargetDuration:    l.PartTargetDuration,
		URITemplate:           l.PartialURITemplate,
		SegmentExtension:      l.FileExtension,
		CanSkipUntilSeconds:   l.CanSkipUntilSeconds,
	}
}

func defaultLLHLSConfig() LLHLSConfig {
	d := live.DefaultConfig()
	return LLHLSConfig{
		PartTargetDuration:      d.PartTargetDuration,
		MaxPartialsPerSegment:   d.MaxPartialsPerSegment,
		SegmentTargetDuration:   6.0,
		RetainedPartialSegments: d.PartialRetentionCount,
		RetainedSegments:        d.RetentionSegments,
		PartialURITemplate:      d.URITemplate,
		FileExtension:           d.SegmentExtension,
		IncludeProgramDateTime:  true,
		CanSkipUntilSeconds:     d.CanSkipUntilSeconds,
	}
}

// StorageConfig selects the optional publish sink: none or s3.
type StorageConfig struct {
	Type            string        `yaml:"type"` // none | s3
	Endpoint        string        `yaml:"endpoint"`
	Region          string        `yaml:"region"`
	Bucket          string        `yaml:"bucket"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	MaxRetries      int           `yaml:"max_retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
}

// ToPublishS3Config converts to publish.S3Config. Only meaningful when
// Type == "s3".
func (s StorageConfig) ToPublishS3Config() publish.S3Config {
	return publish.S3Config{
		Endpoint:        s.Endpoint,
		Region:          s.Region,
		Bucket:          s.Bucket,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		MaxRetries:      s.MaxRetries,
		RetryDelay:      s.RetryDelay,
	}
}

func defaultStorageConfig() StorageConfig {
	d := publish.DefaultS3Config()
	return StorageConfig{
		Type:       "none",
		MaxRetries: d.MaxRetries,
		RetryDelay: d.RetryDelay,
	}
}

// LiveConfig controls the optional Redis fan-out endpoint for
// cross-process event distribution. LiveCore's retention window is set in
// LLHLSConfig (RetainedSegments, RetainedPartialSegments).
type LiveConfig struct {
	Enabled      bool   `yaml:"enabled"`
	RedisAddress string `yaml:"redis_address"`
	RedisChannel string `yaml:"redis_channel"`
}

func defaultLiveConfig() LiveConfig {
	return LiveConfig{Enabled: false, RedisChannel: "hlspacker:live"}
}

// LoggingConfig controls the structured logger's level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "info", Format: "text"}
}

// DefaultConfig returns safe defaults: no publisher, no live fan-out, the
// engine works standalone with zero external configuration.
func DefaultConfig() *Config {
	return &Config{
		Segmentation: defaultSegmentationConfig(),
		LLHLS:        defaultLLHLSConfig(),
		Storage:      defaultStorageConfig(),
		Live:         defaultLiveConfig(),
		Logging:      defaultLoggingConfig(),
	}
}

// Load reads a YAML config file, applies it over DefaultConfig, then
// applies environment variable overrides.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromEnv() {
	if bucket := os.Getenv("HLSPACK_S3_BUCKET"); bucket != "" {
		c.Storage.Type = "s3"
		c.Storage.Bucket = bucket
	}
	if accessKey := os.Getenv("HLSPACK_S3_ACCESS_KEY_ID"); accessKey != "" {
		c.Storage.AccessKeyID = accessKey
	}
	if secretKey := os.Getenv("HLSPACK_S3_SECRET_ACCESS_KEY"); secretKey != "" {
		c.Storage.SecretAccessKey = secretKey
	}
	if redisAddr := os.Getenv("HLSPACK_REDIS_ADDRESS"); redisAddr != "" {
		c.Live.Enabled = true
		c.Live.RedisAddress = redisAddr
	}
	if level := os.Getenv("HLSPACK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks invariants DefaultConfig always satisfies but a loaded
// file might not.
func (c *Config) Validate() error {
	switch c.Segmentation.ContainerFormat {
	case "fragmented_mp4", "mpeg_ts":
	default:
		return fmt.Errorf("config: invalid segmentation.container_format %q", c.Segmentation.ContainerFormat)
	}
	if c.Segmentation.TargetSegmentDuration <= 0 {
		return fmt.Errorf("config: segmentation.target_segment_duration must be > 0")
	}
	switch c.Storage.Type {
	case "none", "s3":
	default:
		return fmt.Errorf("config: invalid storage.type %q", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.Bucket == "" {
		return fmt.Errorf("config: storage.bucket is required when storage.type is s3")
	}
	if c.LLHLS.MaxPartialsPerSegment <= 0 {
		return fmt.Errorf("config: llhls.max_partials_per_segment must be > 0")
	}
	return nil
}
