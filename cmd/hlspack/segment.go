package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ngohuy/hlspacker/pkg/config"
	"github.com/ngohuy/hlspacker/pkg/logger"
	"github.com/ngohuy/hlspacker/pkg/publish"
	"github.com/ngohuy/hlspacker/pkg/segmenter"
)

func runSegment(args []string) error {
	fs := flag.NewFlagSet("segment", flag.ExitOnError)
	format := fs.String("format", "fmp4", "output container: fmp4 or ts")
	out := fs.String("out", ".", "output directory")
	byteRange := fs.Bool("byte-range", false, "concatenate segments with byte ranges instead of separate files")
	configPath := fs.String("config", "", "optional hlspack.yaml config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("segment: missing input file")
	}
	inputPath := fs.Arg(0)

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *format == "ts" {
		cfg.Segmentation.ContainerFormat = "mpeg_ts"
	}
	if *byteRange {
		cfg.Segmentation.OutputMode = "byte_range"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.NewDefaultLogger(logger.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("segment: %w", err)
	}

	result, err := segmenter.Run(source, cfg.Segmentation.ToSegmenterConfig())
	if err != nil {
		return fmt.Errorf("segment: %w", err)
	}

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return fmt.Errorf("segment: %w", err)
	}

	var pub *publish.S3Publisher
	if cfg.Storage.Type == "s3" {
		pub, err = publish.NewS3Publisher(cfg.Storage.ToPublishS3Config(), log)
		if err != nil {
			return fmt.Errorf("segment: %w", err)
		}
		defer pub.Close()
	}

	if err := writeSegmentOutputs(*out, result, log, pub); err != nil {
		return err
	}

	log.Info("segmentation complete", logger.Int("segments", len(result.Segments)))
	return nil
}

func writeSegmentOutputs(outDir string, result *segmenter.Result, log logger.Logger, pub *publish.S3Publisher) error {
	if len(result.InitSegmentBytes) > 0 {
		if err := os.WriteFile(filepath.Join(outDir, result.Config.InitSegmentName), result.InitSegmentBytes, 0o644); err != nil {
			return fmt.Errorf("segment: writing init segment: %w", err)
		}
	}

	if result.Config.OutputMode == segmenter.ByteRangeConcat {
		concatName := "segments" + segmentConcatExtension(result.Config)
		if err := os.WriteFile(filepath.Join(outDir, concatName), result.ConcatenatedBytes, 0o644); err != nil {
			return fmt.Errorf("segment: writing concatenated segments: %w", err)
		}
	} else {
		for _, seg := range result.Segments {
			if err := os.WriteFile(filepath.Join(outDir, seg.Filename), seg.Bytes, 0o644); err != nil {
				return fmt.Errorf("segment: writing %s: %w", seg.Filename, err)
			}
		}
	}

	if result.PlaylistText != "" {
		if err := os.WriteFile(filepath.Join(outDir, result.Config.PlaylistName), []byte(result.PlaylistText), 0o644); err != nil {
			return fmt.Errorf("segment: writing playlist: %w", err)
		}
	}

	if pub != nil {
		ctx := cliContext()
		for _, seg := range result.Segments {
			if err := pub.Publish(ctx, seg.Filename, seg.Bytes, "video/mp4"); err != nil {
				log.Error("publish failed", logger.String("segment", seg.Filename), logger.Err(err))
			}
		}
	}

	return nil
}

func segmentConcatExtension(cfg segmenter.Config) string {
	if cfg.ContainerFormat == segmenter.MPEGTS {
		return ".ts"
	}
	return ".m4s"
}
