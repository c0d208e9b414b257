package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"api": { "serverUrl": "http://backend:8000" },
		"session": { "backend": "sqlite" },
		"location": { "enabled": true, "lat": 1.35, "lng": 103.94 }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parkfind.cfg.json"), []byte(cfg), 0644))

	require.NoError(t, Load(dir))

	assert.Equal(t, "debug", GetString("logLevel"))
	assert.Equal(t, "http://backend:8000", GetString("api.serverUrl"))
	assert.Equal(t, "sqlite", GetString("session.backend"))
	assert.Equal(t, true, GetBool("location.enabled"))
	assert.Equal(t, 1.35, GetFloat64("location.lat"))
	assert.Equal(t, 103.94, GetFloat64("location.lng"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parkfind.cfg.json"), []byte(`{}`), 0644))

	require.NoError(t, Load(dir))

	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, "./parkfindlogs", GetString("logsDir"))
	assert.Equal(t, "http://127.0.0.1:5000", GetString("api.serverUrl"))
	assert.Equal(t, "https://www.onemap.gov.sg", GetString("onemap.baseUrl"))
	assert.Equal(t, 40, GetInt("onemap.buffer"))
	assert.Equal(t, "memory", GetString("session.backend"))
	assert.Equal(t, 10, GetInt("history.pageSize"))
	assert.Equal(t, 1.2868108, GetFloat64("map.center.lat"))
	assert.Equal(t, 103.8545349, GetFloat64("map.center.lng"))
	assert.Equal(t, 16, GetInt("map.zoom"))
	assert.Equal(t, false, GetBool("location.enabled"))
	assert.Equal(t, false, GetBool("influx.enabled"))
	assert.Equal(t, "localhost", GetString("influx.host"))
	assert.Equal(t, "8086", GetString("influx.port"))
	assert.Equal(t, "parkfind-metrics", GetString("influx.org"))
	assert.Equal(t, "parkfind", GetString("influx.bucket"))
	assert.Equal(t, false, GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", GetString("graylog.address"))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)

	// A client run without a config file is normal; defaults apply.
	require.NoError(t, Load(t.TempDir()))
	assert.Equal(t, "info", GetString("logLevel"))
	assert.Equal(t, "memory", GetString("session.backend"))
}

func TestLoad_MalformedFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parkfind.cfg.json"), []byte(`{not json`), 0644))

	err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestAccessors(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testString", "value")
	viper.Set("testInt", 42)
	viper.Set("testFloat", 1.5)
	viper.Set("testBool", true)

	assert.Equal(t, "value", GetString("testString"))
	assert.Equal(t, 42, GetInt("testInt"))
	assert.Equal(t, 1.5, GetFloat64("testFloat"))
	assert.Equal(t, true, GetBool("testBool"))
}
