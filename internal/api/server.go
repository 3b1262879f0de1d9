// Package api exposes the daemon's HTTP surface: attachment management,
// health, version, log history, and Prometheus metrics.
package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/smazurov/procdrain/internal/api/models"
	"github.com/smazurov/procdrain/internal/attach"
	"github.com/smazurov/procdrain/internal/drain"
	"github.com/smazurov/procdrain/internal/logging"
	"github.com/smazurov/procdrain/internal/version"
)

// Options wires the server to the rest of the daemon.
type Options struct {
	AuthUsername string
	AuthPassword string

	Handler  *drain.Handler
	Registry *attach.Registry

	// PrometheusHandler serves GET /metrics when set.
	PrometheusHandler http.Handler
}

// Server is the Huma v2 API server on the stdlib mux.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	logger     *slog.Logger
}

// NewServer builds the API server and registers all routes.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("procdrain API", version.String())
	config.Info.Description = "Attach to running processes and drain their output streams"
	// Relative paths in the OpenAPI doc work with any host.
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	api := humago.New(mux, config)

	server := &Server{
		api:     api,
		mux:     mux,
		options: opts,
		logger:  logging.GetLogger("api"),
	}

	api.UseMiddleware(requestLogMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		api.UseMiddleware(server.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	server.registerRoutes()
	return server
}

// GetAPI returns the Huma API instance, used by tests.
func (s *Server) GetAPI() huma.API {
	return s.api
}

// GetMux returns the underlying ServeMux for additional setup.
func (s *Server) GetMux() *http.ServeMux {
	return s.mux
}

// Start serves HTTP on addr and blocks until shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting API server", "addr", addr)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the server without waiting for open connections.
func (s *Server) Stop() error {
	s.logger.Info("stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

func (s *Server) registerRoutes() {
	// Health and version stay reachable without credentials.
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Description: "Check API health status",
		Tags:        []string{"health"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.HealthResponse, error) {
		return &models.HealthResponse{
			Body: models.HealthData{
				Status:  "ok",
				Message: "API is healthy",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Description: "Get application version information",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*models.VersionResponse, error) {
		info := version.Get()
		return &models.VersionResponse{
			Body: models.VersionData{
				Version:   info.Version,
				GitCommit: info.GitCommit,
				BuildDate: info.BuildDate,
				GoVersion: info.GoVersion,
				Platform:  info.Platform,
			},
		}, nil
	})

	s.registerAttachmentRoutes()
	s.registerStatsRoutes()
	s.registerLogRoutes()
}

// basicAuthMiddleware guards operations that declare a security
// requirement; operations registered with an empty Security slice pass
// through.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		reject := func(message string, errs ...error) {
			ctx.SetHeader("WWW-Authenticate", `Basic realm="procdrain API"`)
			huma.WriteErr(s.api, ctx, http.StatusUnauthorized, message, errs...)
		}

		const prefix = "Basic "
		header := ctx.Header("Authorization")
		if header == "" {
			reject("Authentication required")
			return
		}
		if !strings.HasPrefix(header, prefix) {
			reject("Invalid authentication type")
			return
		}
		decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
		if err != nil {
			reject("Invalid credentials format", err)
			return
		}
		parts := strings.SplitN(string(decoded), ":", 2)
		if len(parts) != 2 || parts[0] != username || parts[1] != password {
			reject("Invalid credentials")
			return
		}
		next(ctx)
	}
}

// withAuth returns the security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
