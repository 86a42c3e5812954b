package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeySplitsOnFirstSeparator(t *testing.T) {
	k, err := ParseKey("BATTERY_input_voltage_low")
	require.NoError(t, err)
	assert.Equal(t, "BATTERY", k.Target)
	assert.Equal(t, "input_voltage_low", k.Event)
	assert.Equal(t, "BATTERY_input_voltage_low", k.String())
}

func TestParseKeyRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "T3", "_overload", "T3_", "none"} {
		_, err := ParseKey(in)
		assert.Error(t, err, in)
	}
}

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	ids := make([]string, 0, len(c.Targets()))
	for _, tg := range c.Targets() {
		ids = append(ids, tg.ID)
	}
	assert.Equal(t, []string{"T3", "T4", "BATTERY", "SUBSTATION", "WATERLINE"}, ids)

	d, ok := c.Lookup(Key{Target: "BATTERY", Event: "input_voltage_low"})
	require.True(t, ok)
	assert.Equal(t, "Charger", d.Group)
	assert.Equal(t, "Input Voltage Low", d.Label)

	first, ok := c.Position(Key{Target: "T3", Event: "overload"})
	require.True(t, ok)
	assert.Equal(t, 0, first)
	assert.Len(t, c.Descriptors(), len(c.order))
}

func TestLabelFallbacks(t *testing.T) {
	c := Default()
	assert.Equal(t, "Battery", c.TargetLabel("BATTERY"))
	assert.Equal(t, "PUMPHOUSE", c.TargetLabel("PUMPHOUSE"))
	assert.Equal(t, "Overload", c.EventLabel(Key{Target: "T3", Event: "overload"}))
	assert.Equal(t, "bearing temp high", c.EventLabel(Key{Target: "T3", Event: "bearing_temp_high"}))
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	_, err := Parse([]byte("targets:\n  - id: BAD_ID\n    groups:\n      - name: g\n        events:\n          - id: x\n"))
	require.Error(t, err)

	_, err = Parse([]byte("targets: []\n"))
	require.Error(t, err)
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`targets:
  - id: T1
    groups:
      - name: a
        events:
          - id: x
      - name: b
        events:
          - id: x
`))
	require.ErrorContains(t, err, "duplicate event")
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`targets:
  - id: PUMP
    label: Pump House
    groups:
      - name: Motor
        events:
          - id: bearing_temp_high
`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	d, ok := c.Lookup(Key{Target: "PUMP", Event: "bearing_temp_high"})
	require.True(t, ok)
	assert.Equal(t, "bearing temp high", d.Label)
	assert.Equal(t, "Pump House", c.TargetLabel("PUMP"))
}
