package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file. A missing file is
// not an error; defaults apply.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./parkfindlogs")

	viper.SetDefault("api.serverUrl", "http://127.0.0.1:5000")

	viper.SetDefault("onemap.baseUrl", "https://www.onemap.gov.sg")
	viper.SetDefault("onemap.buffer", 40)

	viper.SetDefault("session.backend", "memory")

	viper.SetDefault("history.pageSize", 10)

	// Default map center: Singapore
	viper.SetDefault("map.center.lat", 1.2868108)
	viper.SetDefault("map.center.lng", 103.8545349)
	viper.SetDefault("map.zoom", 16)

	// Simulated device location for routing. Disabled means the
	// geolocation request is denied, as a browser user could do.
	viper.SetDefault("location.enabled", false)
	viper.SetDefault("location.lat", 0.0)
	viper.SetDefault("location.lng", 0.0)

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "parkfind-metrics")
	viper.SetDefault("influx.bucket", "parkfind")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetConfigName("parkfind.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
