package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/procdrain/internal/api/models"
	"github.com/smazurov/procdrain/internal/logging"
)

// registerLogRoutes registers the log history endpoint.
func (s *Server) registerLogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-logs",
		Method:      http.MethodGet,
		Path:        "/api/logs",
		Summary:     "Log History",
		Description: "Return the buffered log history, oldest entries first.",
		Tags:        []string{"logs"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.LogsResponse, error) {
		var entries []logging.LogEntry
		if buffer := logging.History(); buffer != nil {
			entries = buffer.ReadAll()
		}
		return &models.LogsResponse{
			Body: models.LogsData{
				Entries: entries,
				Count:   len(entries),
			},
		}, nil
	})
}
