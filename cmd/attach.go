// Package cmd holds the auxiliary CLI commands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/procdrain/internal/config"
	"github.com/smazurov/procdrain/internal/drain"
	"github.com/smazurov/procdrain/internal/logging"
	"github.com/smazurov/procdrain/internal/proc"
)

// CreateAttachCmd creates the attach command: a one-shot drain of a
// running process that relays its output to our stdout and exits when
// the process dies.
func CreateAttachCmd() *cobra.Command {
	var configPath string
	var stdoutPath string
	var stderrPath string
	var bufferCapacity int
	var pollIntervalMs int
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "attach [pid]",
		Short: "Drain a running process until it exits",
		Long: `Attaches to an already-running process by PID and drains the given ` +
			`stdout/stderr sources (FIFOs or files), printing chunks as they arrive. ` +
			`Exits once the process is gone.`,
		Args: cobra.ExactArgs(1),
		Run: func(c *cobra.Command, args []string) {
			loggingConfig := logging.Config{
				Level:  "warn",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("attach")

			pid, err := strconv.Atoi(args[0])
			if err != nil {
				logger.Error("invalid pid", "arg", args[0])
				os.Exit(1)
			}
			if stdoutPath == "" && stderrPath == "" {
				logger.Error("need --stdout or --stderr")
				os.Exit(1)
			}

			var stdout, stderr io.Reader
			if stdoutPath != "" {
				f, openErr := proc.OpenSource(stdoutPath)
				if openErr != nil {
					logger.Error("cannot open stdout source", "path", stdoutPath, "error", openErr)
					os.Exit(1)
				}
				defer f.Close()
				stdout = f
			}
			if stderrPath != "" {
				f, openErr := proc.OpenSource(stderrPath)
				if openErr != nil {
					logger.Error("cannot open stderr source", "path", stderrPath, "error", openErr)
					os.Exit(1)
				}
				defer f.Close()
				stderr = f
			}

			attached, err := proc.Attach(pid, stdout, stderr)
			if err != nil {
				logger.Error("cannot attach", "pid", pid, "error", err)
				os.Exit(1)
			}

			cfg, err := resolveDrainConfig(c.Flags(), configPath)
			if err != nil {
				logger.Error("cannot load config", "path", configPath, "error", err)
				os.Exit(1)
			}
			handler, err := drain.New(cfg, drain.WithLogger(logger))
			if err != nil {
				logger.Error("cannot create drain handler", "error", err)
				os.Exit(1)
			}
			defer handler.Close()

			if stdout != nil {
				handler.DrainStdout(attached, func(chunk string) {
					fmt.Print(chunk)
				})
			}
			if stderr != nil {
				handler.DrainStderr(attached, func(chunk string) {
					fmt.Fprint(os.Stderr, chunk)
				})
			}

			for attached.Alive() {
				time.Sleep(cfg.PollInterval)
			}
			// One extra interval lets in-flight callbacks land before Close.
			time.Sleep(cfg.PollInterval)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.toml", "Path to the configuration file")
	cmd.Flags().StringVar(&stdoutPath, "stdout", "", "Path to the process stdout FIFO or file")
	cmd.Flags().StringVar(&stderrPath, "stderr", "", "Path to the process stderr FIFO or file")
	cmd.Flags().IntVar(&bufferCapacity, "buffer-capacity", drain.DefaultBufferCapacity, "Read buffer size in bytes")
	cmd.Flags().IntVar(&pollIntervalMs, "poll-interval-ms", int(drain.DefaultPollInterval/time.Millisecond), "Pause between reads in milliseconds")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Log in JSON format")

	return cmd
}

// resolveDrainConfig layers drain sizing: defaults, then the [drain]
// table of the config file, then flags the user actually set.
func resolveDrainConfig(flags *pflag.FlagSet, path string) (drain.Config, error) {
	cfg, err := config.LoadDrainConfig(path)
	if err != nil {
		return drain.Config{}, err
	}
	if flags.Changed("buffer-capacity") {
		if v, err := flags.GetInt("buffer-capacity"); err == nil {
			cfg.BufferCapacity = v
		}
	}
	if flags.Changed("poll-interval-ms") {
		if v, err := flags.GetInt("poll-interval-ms"); err == nil {
			cfg.PollInterval = time.Duration(v) * time.Millisecond
		}
	}
	return cfg, nil
}
