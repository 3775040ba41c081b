package logger

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hlserrors "github.com/ngohuy/hlspacker/pkg/errors"
)

func TestErrRendersDomainErrorAsHumanMessage(t *testing.T) {
	err := hlserrors.NewMissingBox("esds")
	field := Err(err)
	assert.Equal(t, "error", field.Key)
	assert.Equal(t, err.HumanMessage(), field.Value)
}

func TestErrLeavesPlainErrorsAlone(t *testing.T) {
	err := assert.AnError
	field := Err(err)
	assert.Equal(t, err, field.Value)
}

func TestErrFieldsExpandsStructuredFields(t *testing.T) {
	err := hlserrors.NewPlaylistParseFailed("missing URI", 12)
	fields := ErrFields(err)

	byKey := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f.Value
	}

	assert.Equal(t, int(err.Code), byKey["err_code"])
	assert.Contains(t, byKey, "err.line")
	assert.Equal(t, 12, byKey["err.line"])
}

func TestErrFieldsDegradesForPlainErrors(t *testing.T) {
	fields := ErrFields(assert.AnError)
	require.Len(t, fields, 1)
	assert.Equal(t, "error", fields[0].Key)
}

func TestDefaultLoggerJSONRendersDurationAsString(t *testing.T) {
	var buf bytes.Buffer
	log := NewDefaultLogger(DebugLevel, "json")
	log.SetOutput(&buf)

	log.Info("upload retry", Duration("backoff", 2*time.Second))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "2s", entry["backoff"])
}

func TestDefaultLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewDefaultLogger(WarnLevel, "text")
	log.SetOutput(&buf)

	log.Info("should be suppressed")
	assert.Empty(t, buf.String())

	log.Warn("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestDefaultLoggerWithAppendsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewDefaultLogger(DebugLevel, "text").With(String("track", "video")).(*DefaultLogger)
	log.SetOutput(&buf)

	log.Debug("planning segment")
	assert.Contains(t, buf.String(), "track=video")
}
