package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/ladcache/internal/ports"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.With(ports.String("stream", "s-1")).Warn("frame lost",
		ports.Int64("offset", 42),
		ports.Uint64("length", 16),
		ports.Bool("resync", true),
		ports.Duration("took", time.Second),
		ports.Err(errors.New("bad length")),
	)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "frame lost", got["message"])
	assert.Equal(t, "s-1", got["stream"])
	assert.Equal(t, 42.0, got["offset"])
	assert.Equal(t, true, got["resync"])
	assert.Equal(t, "bad length", got["error"])
}

func TestZerologAdapter_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug("hidden")
	assert.Zero(t, buf.Len())

	l.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNoopLogger(t *testing.T) {
	var l ports.Logger = NewNoopLogger()
	assert.NotPanics(t, func() {
		l.With(ports.String("k", "v")).Error("ignored", ports.Any("x", 1))
	})
}
