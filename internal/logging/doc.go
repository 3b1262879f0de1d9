// Package logging provides per-module structured logging on top of
// log/slog.
//
// Each module gets its own logger via GetLogger; levels can be set
// globally and overridden per module, and changed at runtime when the
// configuration is reloaded. Records fan out to stdout (text or JSON),
// the systemd journal when running under it, and an in-memory ring
// buffer that the API serves for log history.
//
// Usage:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"drain": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("drain")
//	logger.Info("task scheduled", "pid", pid)
package logging
