// Package command provides the root and sub-commands for the parkfind
// client. Commands are organized using the cobra library.
//
// The root command starts an interactive session: one run of the shell is
// one session, scoping the cached identity and search state the way a
// browser tab would. Sub-commands run single flows for scripting:
//
//	./parkfind                    # interactive session
//	./parkfind login <user>
//	./parkfind register <user> <email>
//	./parkfind search <destination> [--vehicle Car/Van]
//	./parkfind history [--pages 2]
package command

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/parkfind/parkfind/internal/api"
	"github.com/parkfind/parkfind/internal/auth"
	"github.com/parkfind/parkfind/internal/carpark"
	"github.com/parkfind/parkfind/internal/config"
	"github.com/parkfind/parkfind/internal/history"
	"github.com/parkfind/parkfind/internal/logging"
	"github.com/parkfind/parkfind/internal/metrics"
	"github.com/parkfind/parkfind/internal/model"
	"github.com/parkfind/parkfind/internal/onemap"
	"github.com/parkfind/parkfind/internal/search"
	"github.com/parkfind/parkfind/internal/session"
)

var cfgDir string

// app holds the wired components for the current invocation.
type app struct {
	log     *slog.Logger
	store   session.Store
	metrics *metrics.Manager

	auth    *auth.Flow
	search  *search.Flow
	carpark *carpark.Flow
	history *history.Flow
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "parkfind",
	Short: "Find and route to carparks near a destination",
	Long: `parkfind is the interaction layer of the carpark finder: account
management, destination search with address autocomplete, carpark
listing with map markers, routing from the current location, and a
view of past searches. It talks to the carpark backend and to the
OneMap geocoding and routing services.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd, current)
	},
}

// newApp loads configuration and wires every flow.
func newApp() (*app, error) {
	if err := config.Load(cfgDir); err != nil {
		return nil, err
	}

	logManager := logging.NewManager()
	logFile := openLogFile()
	graylogAddr := ""
	if config.GetBool("graylog.enabled") {
		graylogAddr = config.GetString("graylog.address")
	}
	logManager.Setup(logFile, config.GetString("logLevel"), graylogAddr)
	log := logManager.Logger()

	store, err := session.NewStore(config.GetString("session.backend"))
	if err != nil {
		return nil, err
	}

	client := api.New(config.GetString("api.serverUrl"))
	om := onemap.New(config.GetString("onemap.baseUrl"), config.GetInt("onemap.buffer"))

	mgr := metrics.NewManager(zerolog.New(os.Stderr).With().Timestamp().Logger())
	if config.GetBool("influx.enabled") {
		// metrics are best-effort; a failed connect leaves the manager inert
		_ = mgr.Connect()
	}

	locator := carpark.StaticGeolocator{
		Enabled: config.GetBool("location.enabled"),
		Position: model.LatLng{
			Lat: config.GetFloat64("location.lat"),
			Lng: config.GetFloat64("location.lng"),
		},
	}
	center := model.LatLng{
		Lat: config.GetFloat64("map.center.lat"),
		Lng: config.GetFloat64("map.center.lng"),
	}

	carparkFlow, err := carpark.NewFlow(
		client, om, store, locator, mgr,
		center, config.GetInt("map.zoom"), log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build carpark flow: %w", err)
	}

	return &app{
		log:     log,
		store:   store,
		metrics: mgr,
		auth:    auth.NewFlow(client, store, log),
		search:  search.NewFlow(client, om, store, log),
		carpark: carparkFlow,
		history: history.NewFlow(client, store, config.GetInt("history.pageSize"), log),
	}, nil
}

func (a *app) close() {
	a.carpark.Flush()
	a.metrics.Close()
}

// openLogFile returns the session log file, or nil when the logs
// directory is unusable. Returned as io.Writer so a nil stays nil.
func openLogFile() io.Writer {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil
	}
	path := logging.LogFilePath(logsDir, "parkfind", time.Now())
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	return f
}

// Execute runs the root command, parsing CLI arguments and dispatching.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(
		&cfgDir, "config", "c", ".",
		"directory containing parkfind.cfg.json",
	)
	rootCmd.AddCommand(
		loginCmd, registerCmd, resetPasswordCmd, logoutCmd, whoamiCmd,
		searchCmd, suggestCmd,
		historyCmd,
	)
}
