package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("charge_id", "pix_char_1").Msg("event appended")

	var output map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output), "logger output should be valid JSON")

	assert.Equal(t, "event appended", output["message"])
	assert.Equal(t, "pix_char_1", output["charge_id"])
	assert.Equal(t, "info", output["level"])
	assert.Contains(t, output, "time")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level       string
		debugShown  bool
		infoShown   bool
		warnShown   bool
		errorsShown bool
	}{
		{"debug", true, true, true, true},
		{"info", false, true, true, true},
		{"WARNING", false, false, true, true},
		{" error ", false, false, false, true},
		{"bogus", false, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(tt.level, &buf)

			log.Debug().Msg("d")
			assert.Equal(t, tt.debugShown, buf.Len() > 0)
			buf.Reset()

			log.Info().Msg("i")
			assert.Equal(t, tt.infoShown, buf.Len() > 0)
			buf.Reset()

			log.Warn().Msg("w")
			assert.Equal(t, tt.warnShown, buf.Len() > 0)
			buf.Reset()

			log.Error().Msg("e")
			assert.Equal(t, tt.errorsShown, buf.Len() > 0)
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := Component(NewWithWriter("info", &buf), "eventlog")

	log.Warn().Msg("skipping line")

	var output map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, "eventlog", output["component"])
}

func TestNewConsole_WritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsole("info", &buf)

	log.Info().Msg("polling charge")
	assert.Contains(t, buf.String(), "polling charge")
}

func TestNew_PrettyMode(t *testing.T) {
	log := New("info", true)
	log.Info().Msg("pretty mode test")
}
