package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	require.Nil(t, m)

	assert.NotPanics(t, func() {
		m.FrameDecoded("s", 16)
		m.FrameError("s", "decode")
		m.BytesSkipped("s", 3)
		m.RecordStored("eha", nil)
		m.StreamOpened()
		m.StreamClosed()
		m.QueryDone("history", time.Millisecond, 5, nil)
		m.ConversionFailed("evr")
		m.MessagesDropped("nats", 2)
		m.RecordsRemoved("reaped", 4)
	})
}

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.FrameDecoded("tcp:1", 16)
	m.FrameDecoded("tcp:1", 20)
	m.FrameError("tcp:1", "framing")
	m.BytesSkipped("tcp:1", 7)
	m.RecordStored("eha", nil)
	m.RecordStored("eha", errors.New("full"))
	m.StreamOpened()
	m.QueryDone("latest", time.Millisecond, 3, nil)
	m.QueryDone("latest", time.Millisecond, 0, errors.New("boom"))
	m.MessagesDropped("nats", 3)
	m.MessagesDropped("nats", 0)
	m.RecordsRemoved("reaped", 4)
	m.RecordsRemoved("pruned", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesTotal.WithLabelValues("tcp:1")))
	assert.Equal(t, 36.0, testutil.ToFloat64(m.frameBytes.WithLabelValues("tcp:1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frameErrors.WithLabelValues("tcp:1", "framing")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.skippedBytes.WithLabelValues("tcp:1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsStored.WithLabelValues("eha")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeStreams))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.queryResults.WithLabelValues("latest")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queryErrors.WithLabelValues("latest")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.droppedMsgs.WithLabelValues("nats")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.removed.WithLabelValues("reaped")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.removed.WithLabelValues("pruned")))
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}
