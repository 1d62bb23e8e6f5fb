package monica

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicholasRalph243/open-monica/bat"
)

func TestParseSetValue(t *testing.T) {
	tests := []struct {
		typeCode string
		raw      string
		want     any
	}{
		{"int", "42", 42},
		{"int", "-7", -7},
		{"flt", "1.5", float32(1.5)},
		{"dbl", "2.25", 2.25},
		{"str", "hello world", "hello world"},
		{"bool", "true", true},
		{"bool", "TRUE", true},
		{"bool", "yes", false},
		{"abst", "0x1000", bat.Time(0x1000)},
	}
	for _, tc := range tests {
		t.Run(tc.typeCode+"/"+tc.raw, func(t *testing.T) {
			got, err := parseSetValue(tc.typeCode, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("errors", func(t *testing.T) {
		for _, tc := range [][2]string{
			{"int", "nope"},
			{"flt", "nope"},
			{"dbl", "nope"},
			{"abst", "zzz"},
			{"blob", "anything"},
		} {
			_, err := parseSetValue(tc[0], tc[1])
			assert.Error(t, err, tc[0])
		}
	})
}

func TestParseWireBool(t *testing.T) {
	assert.True(t, parseWireBool("true"))
	assert.True(t, parseWireBool("True"))
	assert.True(t, parseWireBool(" TRUE "))
	assert.False(t, parseWireBool("false"))
	assert.False(t, parseWireBool("1"))
	assert.False(t, parseWireBool(""))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "?", formatValue(nil))
	assert.Equal(t, "21.5", formatValue(21.5))
	assert.Equal(t, "42", formatValue(42))
	assert.Equal(t, "on", formatValue("on"))
	assert.Equal(t, "true", formatValue(true))
}

func TestFormatPeriod(t *testing.T) {
	assert.Equal(t, "10", formatPeriod(10*time.Second))
	assert.Equal(t, "0.5", formatPeriod(500*time.Millisecond))
	assert.Equal(t, "0", formatPeriod(0))
}

func TestAlarmWireString(t *testing.T) {
	t.Run("quiescent", func(t *testing.T) {
		a := Alarm{Point: "site.power.ups", Priority: 1, Guidance: "Check UPS"}
		assert.Equal(t,
			"site.power.ups\t1\tfalse\tfalse\tnull\tnull\tfalse\tnull\tnull\t\"Check UPS\"",
			a.WireString())
	})

	t.Run("acknowledged and shelved", func(t *testing.T) {
		a := Alarm{
			Point:        "site.power.ups",
			Priority:     3,
			Alarmed:      true,
			Acknowledged: true,
			AckedBy:      "observer",
			AckedAt:      bat.Time(0x10),
			Shelved:      true,
			ShelvedBy:    "operator",
			ShelvedAt:    bat.Time(0x20),
			Guidance:     "Call site",
		}
		assert.Equal(t,
			"site.power.ups\t3\ttrue\ttrue\tobserver\t0x10\ttrue\toperator\t0x20\t\"Call site\"",
			a.WireString())
	})
}
