package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/ladcache/internal/domain"
)

const sampleYAML = `
channels:
  - id: A-1234
    name: BATT_VOLTAGE
    type: float
    definition_type: FSW
    eu_units: V
    subsystem: power
  - id: M-0001
    type: UNSIGNED_INT
    definition_type: m
events:
  fsw:
    - {id: 9001, name: FSW_BOOT, level: COMMAND, category: boot}
  sse:
    - {id: 9001, name: SSE_BOOT, level: ACTIVITY_LO}
`

func TestParse(t *testing.T) {
	d := New()
	require.NoError(t, d.Parse([]byte(sampleYAML)))

	ch, ok := d.LookupChannel("A-1234")
	require.True(t, ok)
	assert.Equal(t, domain.ChannelDefinition{
		ID:             "A-1234",
		Name:           "BATT_VOLTAGE",
		Type:           domain.ChannelFloat,
		DefinitionType: domain.DefinitionFSW,
		EUUnits:        "V",
		Subsystem:      "power",
	}, ch)

	ch, ok = d.LookupChannel("M-0001")
	require.True(t, ok)
	assert.Equal(t, "M-0001", ch.Name)
	assert.Equal(t, domain.DefinitionMonitor, ch.DefinitionType)

	ev, ok := d.LookupEvent(9001, true)
	require.True(t, ok)
	assert.Equal(t, "FSW_BOOT", ev.Name)
	assert.True(t, ev.FSW)

	ev, ok = d.LookupEvent(9001, false)
	require.True(t, ok)
	assert.Equal(t, "SSE_BOOT", ev.Name)

	_, ok = d.LookupEvent(1, true)
	assert.False(t, ok)

	channels, events := d.Size()
	assert.Equal(t, 2, channels)
	assert.Equal(t, 2, events)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "channels: [unterminated"},
		{"channel without id", "channels:\n  - name: X\n"},
		{"duplicate channel", "channels:\n  - id: A\n  - id: A\n"},
		{"duplicate event", "events:\n  fsw:\n    - id: 1\n    - id: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New()
			require.NoError(t, d.Parse([]byte(sampleYAML)))
			assert.Error(t, d.Parse([]byte(tt.doc)))

			// previous content survives a failed parse
			_, ok := d.LookupChannel("A-1234")
			assert.True(t, ok)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dict.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, d.Path())
	_, ok := d.LookupChannel("A-1234")
	assert.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
