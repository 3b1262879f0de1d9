package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const historySize = 1000

// Logger is the subset of *slog.Logger the rest of the code depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config controls log format and levels. Modules maps a module name to a
// level string that overrides the global level for that module's logger.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu          sync.RWMutex
	cfg         Config
	initialized bool
	history     *RingBuffer

	loggers   = make(map[string]*slog.Logger)
	levelVars = make(map[string]*slog.LevelVar)
)

// Initialize applies config and rebuilds every existing module logger.
// Loggers created before Initialize run at info level with text output
// until this is called.
func Initialize(config Config) {
	mu.Lock()
	defer mu.Unlock()

	cfg = config
	initialized = true
	if history == nil {
		history = NewRingBuffer(historySize)
	}

	for module, levelVar := range levelVars {
		levelVar.Set(moduleLevel(config, module))
		loggers[module] = slog.New(buildHandler(config.Format, levelVar, history)).With("module", module)
	}

	global := &slog.LevelVar{}
	global.Set(moduleLevel(config, ""))
	slog.SetDefault(slog.New(buildHandler(config.Format, global, history)))
}

// UpdateLevels adjusts logger levels in place without rebuilding handlers.
// Used on config reload; format changes require Initialize.
func UpdateLevels(config Config) {
	mu.Lock()
	defer mu.Unlock()

	cfg.Level = config.Level
	cfg.Modules = config.Modules
	for module, levelVar := range levelVars {
		levelVar.Set(moduleLevel(cfg, module))
	}
}

// GetLogger returns the logger for a module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	if logger, ok := loggers[module]; ok {
		mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if logger, ok := loggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	format := "text"
	if initialized {
		levelVar.Set(moduleLevel(cfg, module))
		format = cfg.Format
	} else {
		levelVar.Set(slog.LevelInfo)
	}

	logger := slog.New(buildHandler(format, levelVar, history)).With("module", module)
	loggers[module] = logger
	levelVars[module] = levelVar
	return logger
}

// History returns the ring buffer of recent log entries, or nil before
// Initialize.
func History() *RingBuffer {
	mu.RLock()
	defer mu.RUnlock()
	return history
}

// buildHandler chains stdout, journal, and ring buffer outputs.
func buildHandler(format string, level slog.Leveler, buffer *RingBuffer) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	handlers := []slog.Handler{}
	if stdoutUsable() {
		handlers = append(handlers, stdout)
	}
	if journalAvailable() {
		handlers = append(handlers, newJournalHandler(level))
	}
	if buffer != nil {
		handlers = append(handlers, newBufferHandler(buffer, level))
	}

	switch len(handlers) {
	case 0:
		return stdout
	case 1:
		return handlers[0]
	default:
		return newTeeHandler(handlers...)
	}
}

// stdoutUsable reports whether stdout goes anywhere useful. Under systemd
// with StandardOutput=null it is a device and the journal handler carries
// the logs instead.
func stdoutUsable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

func moduleLevel(c Config, module string) slog.Level {
	level := slog.LevelInfo
	if parsed, ok := parseLevel(c.Level); ok {
		level = parsed
	}
	if module != "" {
		if override, ok := c.Modules[module]; ok {
			if parsed, ok := parseLevel(override); ok {
				level = parsed
			}
		}
	}
	return level
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
