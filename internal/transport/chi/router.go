package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/meridian-data/searchbridge/internal/metrics"
)

// NewRouter mounts the tool endpoints with the standard middleware chain.
// apiKeys enables bearer authentication when non-empty.
func NewRouter(s *Server, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(jsonRecoverer(logger))
	r.Use(middleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/tools", func(r chi.Router) {
		r.Post("/search_vector_database", s.SearchVectorDatabase)
		r.Post("/smart_search_with_filter_extraction", s.SmartSearchWithFilterExtraction)
		r.Post("/store_documents", s.StoreDocuments)
		r.Post("/query_tabular_database", s.QueryTabularDatabase)
		r.Post("/get_database_info", s.GetDatabaseInfo)
		r.Post("/get_unique_values", s.GetUniqueValues)
	})

	return r
}
