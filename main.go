package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/procdrain/cmd"
	"github.com/smazurov/procdrain/internal/api"
	"github.com/smazurov/procdrain/internal/attach"
	"github.com/smazurov/procdrain/internal/config"
	"github.com/smazurov/procdrain/internal/drain"
	"github.com/smazurov/procdrain/internal/events"
	"github.com/smazurov/procdrain/internal/logging"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Drain settings
	DrainBufferCapacity  int `help:"Bytes read from a stream per cycle" default:"4096" toml:"drain.buffer_capacity" env:"DRAIN_BUFFER_CAPACITY"`
	DrainPollIntervalMs  int `help:"Pause between reads in milliseconds" default:"100" toml:"drain.poll_interval_ms" env:"DRAIN_POLL_INTERVAL_MS"`
	DrainReaderWorkers   int `help:"Workers running drain tasks" default:"4" toml:"drain.reader_workers" env:"DRAIN_READER_WORKERS"`
	DrainCallbackWorkers int `help:"Workers running chunk callbacks" default:"2" toml:"drain.callback_workers" env:"DRAIN_CALLBACK_WORKERS"`
	DrainQueueDepth      int `help:"Worker pool queue depth" default:"16" toml:"drain.queue_depth" env:"DRAIN_QUEUE_DEPTH"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingDrain  string `help:"Drain logging level" default:"info" toml:"logging.drain" env:"LOGGING_DRAIN"`
	LoggingAttach string `help:"Attachment registry logging level" default:"info" toml:"logging.attach" env:"LOGGING_ATTACH"`
	LoggingAPI    string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingOutput string `help:"Relayed process output logging level" default:"info" toml:"logging.output" env:"LOGGING_OUTPUT"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"drain":  opts.LoggingDrain,
				"attach": opts.LoggingAttach,
				"api":    opts.LoggingAPI,
				"output": opts.LoggingOutput,
			},
		})
		logger := logging.GetLogger("main")

		eventBus := events.New()

		handler, err := drain.New(drain.Config{
			BufferCapacity:  opts.DrainBufferCapacity,
			PollInterval:    time.Duration(opts.DrainPollIntervalMs) * time.Millisecond,
			ReaderWorkers:   opts.DrainReaderWorkers,
			CallbackWorkers: opts.DrainCallbackWorkers,
			QueueDepth:      opts.DrainQueueDepth,
		}, drain.WithLogger(logging.GetLogger("drain")), drain.WithEventBus(eventBus))
		if err != nil {
			logger.Error("Failed to create drain handler", "error", err)
			os.Exit(1)
		}

		registry := attach.NewRegistry(eventBus, logging.GetLogger("attach"))

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Handler:           handler,
			Registry:          registry,
			PrometheusHandler: promhttp.Handler(),
		})

		// Reload log levels when the config file changes.
		watcher := config.NewConfigWatcher(
			opts.Config,
			func(path string) (logging.Config, error) {
				return config.LoadLoggingConfig(path), nil
			},
			logger,
		)
		watcher.OnReload(func(cfg logging.Config) {
			logging.UpdateLevels(cfg)
		})

		hooks.OnStart(func() {
			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Config watcher not started", "error", watchErr)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Warn("Error stopping config watcher", "error", stopErr)
			}
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			registry.Close()
			handler.Close()
		})
	})

	cli.Root().AddCommand(cmd.CreateAttachCmd())

	cli.Run()
}
