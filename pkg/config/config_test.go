package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ngohuy/hlspacker/pkg/segmenter"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "none", cfg.Storage.Type)
}

func TestValidateRejectsUnknownContainerFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Segmentation.ContainerFormat = "webm"
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresBucketForS3(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Type = "s3"
	require.Error(t, cfg.Validate())
	cfg.Storage.Bucket = "my-bucket"
	require.NoError(t, cfg.Validate())
}

func TestSegmentationConfigConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Segmentation.ContainerFormat = "mpeg_ts"
	cfg.Segmentation.OutputMode = "byte_range"
	cfg.Segmentation.PlaylistType = "event"

	sc := cfg.Segmentation.ToSegmenterConfig()
	assert.Equal(t, segmenter.MPEGTS, sc.ContainerFormat)
	assert.Equal(t, segmenter.ByteRangeConcat, sc.OutputMode)
	assert.Equal(t, segmenter.PlaylistEvent, sc.PlaylistType)
}
