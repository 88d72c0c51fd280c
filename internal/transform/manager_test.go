package transform

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const weatherStation = `
function transform(payload) {
  var p = JSON.parse(payload);
  log("weather station payload");
  return {
    humidity: p.rh,
    temperature: convertTemperature(p.temp_f, "F", "C"),
  };
}
`

func TestTransform(t *testing.T) {
	m := NewManager(zerolog.Nop())
	require.NoError(t, m.Register("weather_station", weatherStation, "inline"))

	out, ok, err := m.Transform("weather_station", []byte(`{"rh": 81, "temp_f": 212}`))

	require.NoError(t, err)
	require.True(t, ok)
	var doc map[string]float64
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, 81.0, doc["humidity"])
	assert.InDelta(t, 100.0, doc["temperature"], 1e-9)
}

func TestTransform_Unregistered(t *testing.T) {
	m := NewManager(zerolog.Nop())

	out, ok, err := m.Transform("soil_probe", []byte(`{}`))

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, out)
}

func TestTransform_ScriptErrors(t *testing.T) {
	m := NewManager(zerolog.Nop())

	assert.Error(t, m.Register("a", `var transform = 3;`, "inline"))
	assert.Error(t, m.Register("b", `function (`, "inline"))

	require.NoError(t, m.Register("c", `function transform(p) { return JSON.parse(p).missing.field; }`, "inline"))
	_, ok, err := m.Transform("c", []byte(`{}`))
	assert.True(t, ok)
	assert.Error(t, err)

	require.NoError(t, m.Register("d", `function transform(p) { return 42; }`, "inline"))
	_, _, err = m.Transform("d", []byte(`{}`))
	assert.ErrorContains(t, err, "not an object")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "weather_station.js"), []byte(weatherStation), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignored"), 0o644))

	m := NewManager(zerolog.Nop())
	require.NoError(t, m.LoadDir(dir))

	assert.True(t, m.Has("weather_station"))
	assert.False(t, m.Has("README"))
	assert.NoError(t, m.LoadDir(""))
}

func TestConvertTemperature(t *testing.T) {
	assert.InDelta(t, 0.0, convertTemperature(273.15, "K", "C"), 1e-9)
	assert.InDelta(t, 32.0, convertTemperature(0, "c", "f"), 1e-9)
	assert.Equal(t, 5.0, convertTemperature(5, "X", "C"))
}
