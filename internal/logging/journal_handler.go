package logging

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

// journalHandler sends records to the systemd journal with structured
// fields per attribute.
type journalHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

func newJournalHandler(level slog.Leveler) *journalHandler {
	return &journalHandler{level: level}
}

func journalAvailable() bool {
	return journal.Enabled()
}

func (h *journalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *journalHandler) Handle(_ context.Context, r slog.Record) error {
	priority := journalPriority(r.Level)

	fields := map[string]string{
		"SYSLOG_IDENTIFIER": "procdrain",
	}
	for _, a := range h.attrs {
		journalField(fields, h.groups, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		journalField(fields, h.groups, a)
		return true
	})

	return journal.Send(r.Message, priority, fields)
}

func (h *journalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *journalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// journalField stores an attribute as an uppercase journal field,
// prefixing group names with underscores between segments.
func journalField(fields map[string]string, groups []string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if len(groups) > 0 {
		key = strings.Join(groups, "_") + "_" + key
	}
	key = strings.ToUpper(key)

	switch a.Value.Kind() {
	case slog.KindGroup:
		nested := append(slices.Clone(groups), key)
		for _, ga := range a.Value.Group() {
			journalField(fields, nested, ga)
		}
	case slog.KindInt64:
		fields[key] = strconv.FormatInt(a.Value.Int64(), 10)
	case slog.KindUint64:
		fields[key] = strconv.FormatUint(a.Value.Uint64(), 10)
	case slog.KindBool:
		fields[key] = strconv.FormatBool(a.Value.Bool())
	case slog.KindDuration:
		fields[key] = a.Value.Duration().String()
	case slog.KindTime:
		fields[key] = a.Value.Time().Format("2006-01-02T15:04:05.000Z07:00")
	default:
		fields[key] = a.Value.String()
	}
}
