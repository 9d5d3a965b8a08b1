package log_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/ladcache/pkg/log"
)

func TestNewZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewZerologLogger(zerolog.New(&buf)).With(log.String("stream", "s1"))
	logger.Info("stream started", log.Uint64("bytes", 12))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "s1", line["stream"])
	assert.Equal(t, float64(12), line["bytes"])
	assert.Equal(t, "stream started", line["message"])
}

func TestNewNoopLogger(t *testing.T) {
	logger := log.NewNoopLogger()
	logger.Error("ignored", log.Int("n", 1))
	assert.NotNil(t, logger.With(log.Bool("x", true)))
}
