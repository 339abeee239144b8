package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meridian-data/searchbridge/internal/domain"
	"github.com/meridian-data/searchbridge/internal/domain/search/filter"
	"github.com/meridian-data/searchbridge/internal/domain/search/request"
	"github.com/meridian-data/searchbridge/internal/domain/search/result"
	"github.com/meridian-data/searchbridge/internal/metrics"
	collectionuc "github.com/meridian-data/searchbridge/internal/usecase/collection"
	healthuc "github.com/meridian-data/searchbridge/internal/usecase/health"
	infouc "github.com/meridian-data/searchbridge/internal/usecase/info"
)

// DefaultSchemaType is assumed when a tool call does not name one.
const DefaultSchemaType = "document"

// Searcher runs hybrid searches.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) ([]result.Result, error)
}

// Extractor derives a filter map from a natural-language query.
type Extractor interface {
	Extract(ctx context.Context, query, collection string) (map[string]any, error)
}

// Ingestor stores record batches into a collection.
type Ingestor interface {
	Store(ctx context.Context, collection, schemaType string, rows []map[string]any) (int, error)
}

// Collections serves per-collection stats and tag vocabularies.
type Collections interface {
	Stats(ctx context.Context, name string) (collectionuc.Stats, error)
	DistinctValues(ctx context.Context, name, field string) ([]string, error)
}

// Tabular runs relational queries.
type Tabular interface {
	RawQuery(ctx context.Context, query string) ([]map[string]any, error)
	Query(ctx context.Context, table string, filters map[string]any, limit int) ([]map[string]any, error)
}

// InfoCollector aggregates store-level statistics.
type InfoCollector interface {
	Collect(ctx context.Context) (infouc.Info, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server exposes the retrieval tools over HTTP. Every tool handler converts
// per-request failures into an error envelope returned with HTTP 200: a tool
// call is independently recoverable by the calling agent, so failure is data,
// not a transport error. Only malformed request bodies get a 400.
type Server struct {
	search            Searcher
	extraction        Extractor
	ingest            Ingestor
	collections       Collections
	tabular           Tabular
	info              InfoCollector
	health            HealthChecker
	defaultCollection string
	logger            *zap.Logger
}

// NewServer creates the tool gateway. extraction and tabular can be nil when
// the corresponding backend is not configured.
func NewServer(
	search Searcher,
	extraction Extractor,
	ingest Ingestor,
	collections Collections,
	tabular Tabular,
	info InfoCollector,
	health HealthChecker,
	defaultCollection string,
	logger *zap.Logger,
) *Server {
	return &Server{
		search:            search,
		extraction:        extraction,
		ingest:            ingest,
		collections:       collections,
		tabular:           tabular,
		info:              info,
		health:            health,
		defaultCollection: defaultCollection,
		logger:            logger,
	}
}

type searchToolRequest struct {
	Query          string         `json:"query"`
	CollectionName string         `json:"collection_name"`
	SchemaType     string         `json:"schema_type"`
	TopK           int            `json:"top_k"`
	Filters        map[string]any `json:"filters"`
}

type searchToolResponse struct {
	Query            string           `json:"query"`
	Collection       string           `json:"collection"`
	SchemaType       string           `json:"schema_type"`
	TotalResults     int              `json:"total_results"`
	Results          []map[string]any `json:"results"`
	ExtractedFilters map[string]any   `json:"extracted_filters,omitempty"`
}

// SearchVectorDatabase handles POST /tools/search_vector_database.
func (s *Server) SearchVectorDatabase(w http.ResponseWriter, r *http.Request) {
	var req searchToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	s.normalizeSearchRequest(&req)

	resp, err := s.runSearch(r.Context(), &req, req.Filters)
	s.finishTool(w, "search_vector_database", err, resp, envelope{
		Error:      safeMessage(err),
		Query:      req.Query,
		Collection: req.CollectionName,
	})
}

// SmartSearchWithFilterExtraction handles POST /tools/smart_search_with_filter_extraction.
// Filter extraction failure is never fatal: the search degrades to unfiltered.
func (s *Server) SmartSearchWithFilterExtraction(w http.ResponseWriter, r *http.Request) {
	var req searchToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	s.normalizeSearchRequest(&req)

	extracted := s.extractFilters(r.Context(), req.Query, req.CollectionName)

	resp, err := s.runSearch(r.Context(), &req, extracted)
	if resp != nil {
		resp.ExtractedFilters = extracted
	}
	s.finishTool(w, "smart_search_with_filter_extraction", err, resp, envelope{
		Error:      safeMessage(err),
		Query:      req.Query,
		Collection: req.CollectionName,
	})
}

func (s *Server) normalizeSearchRequest(req *searchToolRequest) {
	if req.CollectionName == "" {
		req.CollectionName = s.defaultCollection
	}
	if req.SchemaType == "" {
		req.SchemaType = DefaultSchemaType
	}
}

func (s *Server) extractFilters(ctx context.Context, query, collection string) map[string]any {
	if s.extraction == nil {
		return nil
	}
	extracted, err := s.extraction.Extract(ctx, query, collection)
	if err != nil {
		// degrade to an unfiltered search
		s.logger.Warn("Filter extraction failed, searching without filters",
			zap.String("collection", collection),
			zap.Error(err))
		return nil
	}
	return extracted
}

func (s *Server) runSearch(
	ctx context.Context, req *searchToolRequest, filterMap map[string]any,
) (*searchToolResponse, error) {
	filters, err := filter.BuildFromMap(filterMap)
	if err != nil {
		return nil, errors.Join(domain.ErrInvalidQuery, err)
	}

	sr, err := request.New(req.Query, req.CollectionName, req.SchemaType, filters, req.TopK)
	if err != nil {
		return nil, err
	}

	results, err := s.search.Search(ctx, &sr)
	if err != nil {
		return nil, err
	}

	items := make([]map[string]any, len(results))
	for i := range results {
		items[i] = resultPayload(&results[i])
	}
	return &searchToolResponse{
		Query:        req.Query,
		Collection:   req.CollectionName,
		SchemaType:   req.SchemaType,
		TotalResults: len(items),
		Results:      items,
	}, nil
}

// resultPayload flattens a hit into one JSON object. id and score win over
// stored fields with the same name.
func resultPayload(r *result.Result) map[string]any {
	payload := make(map[string]any, len(r.Fields())+2)
	for k, v := range r.Fields() {
		payload[k] = v
	}
	payload["id"] = r.ID()
	payload["score"] = r.Score()
	return payload
}

type storeToolRequest struct {
	CollectionName string           `json:"collection_name"`
	SchemaType     string           `json:"schema_type"`
	Records        []map[string]any `json:"records"`
}

type storeToolResponse struct {
	Collection  string `json:"collection"`
	SchemaType  string `json:"schema_type"`
	StoredCount int    `json:"stored_count"`
}

// StoreDocuments handles POST /tools/store_documents.
func (s *Server) StoreDocuments(w http.ResponseWriter, r *http.Request) {
	var req storeToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.CollectionName == "" {
		req.CollectionName = s.defaultCollection
	}
	if req.SchemaType == "" {
		req.SchemaType = DefaultSchemaType
	}

	count, err := s.ingest.Store(r.Context(), req.CollectionName, req.SchemaType, req.Records)
	var resp *storeToolResponse
	if err == nil {
		resp = &storeToolResponse{
			Collection:  req.CollectionName,
			SchemaType:  req.SchemaType,
			StoredCount: count,
		}
	}
	s.finishTool(w, "store_documents", err, resp, envelope{
		Error:      safeMessage(err),
		Collection: req.CollectionName,
	})
}

type tabularToolRequest struct {
	SQLQuery  string `json:"sql_query"`
	TableName string `json:"table_name"`
}

type tabularToolResponse struct {
	Query        string           `json:"query"`
	TotalResults int              `json:"total_results"`
	Results      []map[string]any `json:"results"`
}

// QueryTabularDatabase handles POST /tools/query_tabular_database.
func (s *Server) QueryTabularDatabase(w http.ResponseWriter, r *http.Request) {
	var req tabularToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}

	resp, err := s.runTabularQuery(r.Context(), &req)
	s.finishTool(w, "query_tabular_database", err, resp, envelope{
		Error: safeMessage(err),
		Query: req.SQLQuery,
	})
}

func (s *Server) runTabularQuery(
	ctx context.Context, req *tabularToolRequest,
) (*tabularToolResponse, error) {
	if s.tabular == nil {
		return nil, errors.Join(domain.ErrInvalidQuery,
			errors.New("tabular store is not configured"))
	}

	var (
		rows []map[string]any
		err  error
	)
	switch {
	case req.SQLQuery != "":
		rows, err = s.tabular.RawQuery(ctx, req.SQLQuery)
	case req.TableName != "":
		rows, err = s.tabular.Query(ctx, req.TableName, nil, 0)
	default:
		return nil, errors.Join(domain.ErrInvalidQuery,
			errors.New("sql_query or table_name is required"))
	}
	if err != nil {
		return nil, err
	}

	return &tabularToolResponse{
		Query:        req.SQLQuery,
		TotalResults: len(rows),
		Results:      rows,
	}, nil
}

type infoToolRequest struct {
	DatabaseType   string `json:"database_type"`
	CollectionName string `json:"collection_name"`
}

// GetDatabaseInfo handles POST /tools/get_database_info.
func (s *Server) GetDatabaseInfo(w http.ResponseWriter, r *http.Request) {
	var req infoToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.DatabaseType == "" {
		req.DatabaseType = "vector"
	}

	resp, err := s.collectInfo(r.Context(), &req)
	s.finishTool(w, "get_database_info", err, resp, envelope{
		Error:      safeMessage(err),
		Collection: req.CollectionName,
	})
}

func (s *Server) collectInfo(ctx context.Context, req *infoToolRequest) (map[string]any, error) {
	if req.DatabaseType == "vector" && req.CollectionName != "" {
		st, err := s.collections.Stats(ctx, req.CollectionName)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"database_type": "vector",
			"collection": map[string]any{
				"name":   st.Name,
				"rows":   st.Rows,
				"fields": st.Fields,
			},
		}, nil
	}

	full, err := s.info.Collect(ctx)
	if err != nil {
		return nil, err
	}

	switch req.DatabaseType {
	case "vector":
		colls := make([]map[string]any, len(full.Collections))
		for i, c := range full.Collections {
			colls[i] = map[string]any{"name": c.Name, "rows": c.Rows, "fields": c.Fields}
		}
		return map[string]any{
			"database_type": "vector",
			"total_keys":    full.TotalKeys,
			"collections":   colls,
		}, nil
	case "tabular":
		if s.tabular == nil {
			return nil, errors.Join(domain.ErrInvalidQuery,
				errors.New("tabular store is not configured"))
		}
		tables := make([]map[string]any, len(full.Tables))
		for i, t := range full.Tables {
			tables[i] = map[string]any{"name": t.Name, "rows": t.Rows}
		}
		return map[string]any{
			"database_type": "tabular",
			"tables":        tables,
		}, nil
	default:
		return nil, errors.Join(domain.ErrInvalidQuery,
			errors.New(`database_type must be "vector" or "tabular"`))
	}
}

type uniqueValuesRequest struct {
	CollectionName string `json:"collection_name"`
	Field          string `json:"field"`
}

type uniqueValuesResponse struct {
	Collection string   `json:"collection"`
	Field      string   `json:"field"`
	Values     []string `json:"values"`
	Total      int      `json:"total"`
}

// GetUniqueValues handles POST /tools/get_unique_values.
func (s *Server) GetUniqueValues(w http.ResponseWriter, r *http.Request) {
	var req uniqueValuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if req.CollectionName == "" {
		req.CollectionName = s.defaultCollection
	}

	values, err := s.collections.DistinctValues(r.Context(), req.CollectionName, req.Field)
	var resp *uniqueValuesResponse
	if err == nil {
		resp = &uniqueValuesResponse{
			Collection: req.CollectionName,
			Field:      req.Field,
			Values:     values,
			Total:      len(values),
		}
	}
	s.finishTool(w, "get_unique_values", err, resp, envelope{
		Error:      safeMessage(err),
		Collection: req.CollectionName,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// envelope is the tool-boundary error payload, returned as data with HTTP
// 200 so a failed call never looks like a transport failure to the agent.
type envelope struct {
	Error      string `json:"error"`
	Query      string `json:"query,omitempty"`
	Collection string `json:"collection,omitempty"`
}

// finishTool writes either the success payload or the error envelope and
// records the tool-call metric.
func (s *Server) finishTool(w http.ResponseWriter, tool string, err error, resp any, env envelope) {
	if err != nil {
		s.logger.Warn("Tool call failed", zap.String("tool", tool), zap.Error(err))
		metrics.ToolCallsTotal.WithLabelValues(tool, "error").Inc()
		writeJSON(w, http.StatusOK, env)
		return
	}
	metrics.ToolCallsTotal.WithLabelValues(tool, "ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, envelope{Error: "invalid request body: " + err.Error()})
}

// safeMessage maps an error onto a client-facing message. Validation errors
// carry their full text; backend failures expose only the sentinel so
// connection strings and internals stay in the logs.
func safeMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, domain.ErrInvalidQuery) || errors.Is(err, domain.ErrInvalidSchema) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrVectorDimMismatch,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrBackend,
	}
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal error"
}
