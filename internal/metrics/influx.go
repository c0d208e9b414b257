// Package metrics writes operational timings to InfluxDB: search latency,
// marker-batch outcomes, geocode failures. Disabled or unreachable Influx
// makes every write a no-op; metrics never interfere with the flows.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Manager handles the InfluxDB connection and writes.
type Manager struct {
	Client  influxdb2.Client
	Writer  influxdb2_api.WriteAPI
	IsValid bool
	Logger  zerolog.Logger
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		IsValid: false,
		Logger:  log,
	}
}

// Connect establishes a connection to InfluxDB using the influx.* config.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Msg("InfluxDB unreachable, metrics disabled")
		return fmt.Errorf("influxdb ping failed: %v", err)
	}

	m.Writer = m.Client.WriteAPI(
		viper.GetString("influx.org"),
		viper.GetString("influx.bucket"),
	)
	m.IsValid = true
	m.Logger.Info().Msg("InfluxDB connection established")
	return nil
}

// WritePoint records one measurement. Writes are asynchronous and dropped
// silently when the manager is not valid.
func (m *Manager) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !m.IsValid || m.Writer == nil {
		return
	}
	p := influxdb2.NewPoint(measurement, tags, fields, time.Now())
	m.Writer.WritePoint(p)
}

// Close flushes pending writes and shuts the client down.
func (m *Manager) Close() {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
}
