// Package config layers configuration sources for the daemon: CLI flags
// take precedence over environment variables, which take precedence over
// the TOML config file.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/procdrain/internal/drain"
	"github.com/smazurov/procdrain/internal/logging"
)

// envPrefix namespaces the environment variables this process reads.
const envPrefix = "PROCDRAIN_"

// LoadConfig fills opts from the TOML file and environment. Fields whose
// flags were explicitly set on cmd are left alone, preserving the
// CLI > env > file precedence. opts must be a pointer to a struct whose
// fields carry `toml` (dotted path) and `env` (suffix) tags; the field
// named Config holds the file path.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()

	pinned := flagsChanged(cmd)

	if path := configPath(v); path != "" {
		if err := applyFile(v, path, pinned); err != nil {
			return err
		}
	}
	applyEnv(v, pinned)
	return nil
}

// flagsChanged collects the flag names the user set explicitly.
func flagsChanged(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	})
	return changed
}

func configPath(v reflect.Value) string {
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String {
		return f.String()
	}
	return ""
}

// applyFile overlays values from the TOML file. A missing file is fine;
// a file that exists but does not parse is an error.
func applyFile(v reflect.Value, path string, pinned map[string]bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if pinned[flagName(field.Name)] {
			continue
		}
		if path := field.Tag.Get("toml"); path != "" {
			if value := nestedValue(tree, path); value != nil {
				assign(v.Field(i), value)
			}
		}
	}
	return nil
}

func applyEnv(v reflect.Value, pinned map[string]bool) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if pinned[flagName(field.Name)] {
			continue
		}
		if key := field.Tag.Get("env"); key != "" {
			if value := os.Getenv(envPrefix + key); value != "" {
				assignString(v.Field(i), value)
			}
		}
	}
}

// flagName converts a field name to its kebab-case flag.
// "PollIntervalMs" becomes "poll-interval-ms".
func flagName(field string) string {
	var out []rune
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			out = append(out, '-')
		}
		out = append(out, unicode.ToLower(r))
	}
	return string(out)
}

// nestedValue walks a dotted path through nested TOML tables.
func nestedValue(tree map[string]any, path string) any {
	parts := strings.Split(path, ".")
	current := tree
	for i, part := range parts {
		if i == len(parts)-1 {
			return current[part]
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return nil
}

func assign(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		if arr, ok := value.([]any); ok {
			out := make([]string, 0, len(arr))
			for _, item := range arr {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			field.Set(reflect.ValueOf(out))
		}
	}
}

func assignString(field reflect.Value, value string) {
	if !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(value, ",")
		out := make([]string, len(parts))
		for i, part := range parts {
			out[i] = strings.TrimSpace(part)
		}
		field.Set(reflect.ValueOf(out))
	}
}

// LoadLoggingConfig reads the [logging] table. Keys other than level and
// format are treated as per-module level overrides. Missing or broken
// files fall back to defaults so logging always comes up.
func LoadLoggingConfig(path string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	var raw struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg
	}

	for key, value := range raw.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}

// LoadDrainConfig reads the [drain] table over drain.DefaultConfig.
// A missing file returns the defaults; a file that fails to parse is an
// error so the config watcher can report it.
func LoadDrainConfig(path string) (drain.Config, error) {
	cfg := drain.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, nil
	}

	var raw struct {
		Drain struct {
			BufferCapacity  int   `toml:"buffer_capacity"`
			PollIntervalMs  int64 `toml:"poll_interval_ms"`
			ReaderWorkers   int   `toml:"reader_workers"`
			CallbackWorkers int   `toml:"callback_workers"`
			QueueDepth      int   `toml:"queue_depth"`
		} `toml:"drain"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	if raw.Drain.BufferCapacity > 0 {
		cfg.BufferCapacity = raw.Drain.BufferCapacity
	}
	if raw.Drain.PollIntervalMs > 0 {
		cfg.PollInterval = time.Duration(raw.Drain.PollIntervalMs) * time.Millisecond
	}
	if raw.Drain.ReaderWorkers > 0 {
		cfg.ReaderWorkers = raw.Drain.ReaderWorkers
	}
	if raw.Drain.CallbackWorkers > 0 {
		cfg.CallbackWorkers = raw.Drain.CallbackWorkers
	}
	if raw.Drain.QueueDepth > 0 {
		cfg.QueueDepth = raw.Drain.QueueDepth
	}
	return cfg, nil
}
