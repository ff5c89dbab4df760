// Package chi is the HTTP transport: routing, request decoding, response
// shaping, and the mapping from domain errors to status codes.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/silverpath-kr/silverpath/internal/domain"
	"github.com/silverpath-kr/silverpath/internal/domain/namespace"
	"github.com/silverpath-kr/silverpath/internal/domain/route"
	exploreuc "github.com/silverpath-kr/silverpath/internal/usecase/explore"
	healthuc "github.com/silverpath-kr/silverpath/internal/usecase/health"
)

type errorCode string

const (
	codeBadRequest          errorCode = "bad_request"
	codeScopeRequired       errorCode = "scope_required"
	codeUpstreamUnavailable errorCode = "upstream_unavailable"
	codeInternalError       errorCode = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the query pipeline over HTTP.
type Server struct {
	pipeline      Pipeline
	explorer      Explorer
	health        HealthChecker
	catalog       namespace.Catalog
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	pipeline Pipeline,
	explorer Explorer,
	health HealthChecker,
	catalog namespace.Catalog,
	logger *zap.Logger,
) *Server {
	s := &Server{
		pipeline: pipeline,
		explorer: explorer,
		health:   health,
		catalog:  catalog,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrScopeRequired, http.StatusUnprocessableEntity, codeScopeRequired),
		sentinelHandler(domain.ErrCollaboratorUnavailable, http.StatusBadGateway, codeUpstreamUnavailable),
		sentinelHandler(domain.ErrMalformedModelResponse, http.StatusBadGateway, codeUpstreamUnavailable),
	}
	return s
}

// Routes registers the API endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/query", s.Query)
	r.Post("/explore", s.Explore)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type queryRequest struct {
	Query string `json:"query"`
	// Optional caller location, used only when the query text names no place.
	City     string `json:"city"`
	District string `json:"district"`
}

type resultItem struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Content  string  `json:"content"`
}

type districtInfo struct {
	TargetDistrict    string   `json:"target_district,omitempty"`
	DistrictsSearched []string `json:"districts_searched"`
	RegionType        string   `json:"region_type"`
}

type queryMeta struct {
	UsedFallback bool   `json:"used_fallback"`
	Note         string `json:"note,omitempty"`
}

type queryResponse struct {
	Query        string        `json:"query"`
	Results      []resultItem  `json:"results"`
	DistrictInfo *districtInfo `json:"district_info,omitempty"`
	Namespace    string        `json:"namespace,omitempty"`
	Confidence   float64       `json:"confidence"`
	Meta         queryMeta     `json:"meta"`
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Query parameter is required")
		return
	}

	var hint *route.Location
	if req.District != "" {
		hint = &route.Location{City: req.City, Region: req.District}
	}

	qc, err := s.pipeline.Process(r.Context(), req.Query, hint)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.queryToResponse(qc))
}

func (s *Server) queryToResponse(qc *route.Context) queryResponse {
	results := make([]resultItem, len(qc.Hits))
	for i, h := range qc.Hits {
		results[i] = resultItem{
			ID:       h.ID(),
			Score:    h.Score(),
			Title:    h.Title(),
			Category: h.Category(),
			Content:  h.Content(),
		}
	}

	resp := queryResponse{
		Query:      qc.RawQuery,
		Results:    results,
		Namespace:  qc.NamespaceKey,
		Confidence: qc.Confidence,
	}
	resp.Meta.UsedFallback = qc.UsedFallback
	if qc.UsedFallback {
		resp.Meta.Note = "검색 결과 대신 생성된 답변입니다."
	}

	if qc.NamespaceKey != "" {
		resp.DistrictInfo = &districtInfo{
			TargetDistrict:    qc.TargetRegion(),
			DistrictsSearched: qc.Scope,
			RegionType:        s.regionType(qc.NamespaceKey),
		}
	}
	return resp
}

func (s *Server) regionType(key string) string {
	ns, ok := s.catalog.Get(key)
	if !ok {
		return "unknown"
	}
	switch {
	case strings.Contains(ns.City(), "서울"):
		return "seoul"
	case strings.Contains(ns.City(), "경기"):
		return "gyeonggi"
	case strings.Contains(ns.City(), "인천"):
		return "incheon"
	default:
		return "other"
	}
}

type exploreRequest struct {
	UserCity     string `json:"userCity"`
	UserDistrict string `json:"userDistrict"`
}

type userLocation struct {
	City     string `json:"city"`
	District string `json:"district"`
}

type explorePreview struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

type exploreAnswer struct {
	Type     string           `json:"type"`
	Category string           `json:"category,omitempty"`
	Content  string           `json:"content,omitempty"`
	Results  []explorePreview `json:"results,omitempty"`
}

type exploreResponse struct {
	Status          string         `json:"status"`
	Message         string         `json:"message,omitempty"`
	UserLocation    *userLocation  `json:"user_location,omitempty"`
	Recommendations []string       `json:"recommendations"`
	PopularSearches []string       `json:"popular_searches,omitempty"`
	NearbyDistricts []string       `json:"nearby_districts,omitempty"`
	GeneratedQuery  string         `json:"generated_query,omitempty"`
	QueryResponse   *exploreAnswer `json:"query_response,omitempty"`
}

// Explore handles POST /explore.
func (s *Server) Explore(w http.ResponseWriter, r *http.Request) {
	var req exploreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res := s.explorer.Explore(r.Context(), req.UserCity, req.UserDistrict)
	writeJSON(w, http.StatusOK, exploreToResponse(res))
}

func exploreToResponse(res exploreuc.Result) exploreResponse {
	if res.City == "" && res.District == "" {
		return exploreResponse{
			Status:          "success",
			Message:         "위치 정보가 제공되지 않았습니다.",
			Recommendations: []string{},
		}
	}

	out := exploreResponse{
		Status:          "success",
		UserLocation:    &userLocation{City: res.City, District: res.District},
		Recommendations: res.Recommendations,
		PopularSearches: res.PopularSearches,
		NearbyDistricts: res.NearbyDistricts,
		GeneratedQuery:  res.GeneratedQuery,
	}

	if res.Response != nil {
		ans := &exploreAnswer{Category: res.Category}
		if res.Response.Fallback {
			ans.Type = "llm"
			ans.Content = res.Response.Content
		} else {
			ans.Type = "pinecone"
			previews := make([]explorePreview, len(res.Response.Previews))
			for i, p := range res.Response.Previews {
				previews[i] = explorePreview{
					Title:    p.Title,
					Category: p.Category,
					Content:  p.Content,
				}
			}
			ans.Results = previews
		}
		out.QueryResponse = ans
	}
	return out
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrScopeRequired,
		domain.ErrCollaboratorUnavailable,
		domain.ErrMalformedModelResponse,
		domain.ErrNamespaceUnknown,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
