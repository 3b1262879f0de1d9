package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/procdrain/internal/api/models"
	"github.com/smazurov/procdrain/internal/metrics"
)

// registerStatsRoutes registers the aggregate drain stats endpoint. The
// same numbers are exported on /metrics; this endpoint serves them as
// JSON for clients that do not scrape.
func (s *Server) registerStatsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-drain-stats",
		Method:      http.MethodGet,
		Path:        "/api/stats",
		Summary:     "Drain Stats",
		Description: "Aggregate drain counters per stream label.",
		Tags:        []string{"stats"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.StatsResponse, error) {
		streams := make(map[string]models.StreamStats)
		for stream, stats := range metrics.GetAllDrainStats() {
			streams[stream] = models.StreamStats{
				TasksStarted: uint64(stats.TasksStarted),
				Chunks:       uint64(stats.Chunks),
				Bytes:        uint64(stats.Bytes),
				ReadFailures: uint64(stats.ReadFailures),
			}
		}
		return &models.StatsResponse{
			Body: models.StatsData{Streams: streams},
		}, nil
	})
}
