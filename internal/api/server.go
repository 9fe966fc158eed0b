// Package api serves the public query surface: property search, facet
// metadata, and health.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/listing-aggregator/internal/cache"
	"github.com/sells-group/listing-aggregator/internal/config"
	"github.com/sells-group/listing-aggregator/internal/model"
	"github.com/sells-group/listing-aggregator/internal/search"
)

// responseCache is the slice of the cache the handlers use.
type responseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration)
}

// Server holds the query API's dependencies.
type Server struct {
	index   search.Index
	cache   responseCache
	limiter func(http.Handler) http.Handler

	propertiesTTL time.Duration
	metadataTTL   time.Duration
}

// New assembles a Server. limiter is the rate-limit middleware; pass nil to
// disable limiting (tests).
func New(idx search.Index, c responseCache, limiter func(http.Handler) http.Handler, cacheCfg config.CacheConfig) *Server {
	return &Server{
		index:         idx,
		cache:         c,
		limiter:       limiter,
		propertiesTTL: cacheCfg.PropertiesTTL(),
		metadataTTL:   cacheCfg.MetadataTTL(),
	}
}

// Handler builds the route tree. The rate limiter wraps every route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	if s.limiter != nil {
		r.Use(s.limiter)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/properties", s.handleProperties)
	r.Get("/properties/filters/metadata", s.handleMetadata)
	return r
}

// propertiesPage is the pagination envelope for /properties.
type propertiesPage struct {
	Items      []*model.Document `json:"items"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalItems int64             `json:"total_items"`
	TotalPages int               `json:"total_pages"`
	NextPage   *int              `json:"next_page"`
	PrevPage   *int              `json:"prev_page"`
}

func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	params, err := parseSearchParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := cache.Key(cache.PrefixProperties, cacheParams(r.URL.Query()))
	if body, ok := s.cache.Get(r.Context(), key); ok {
		writeCached(w, body)
		return
	}

	res, err := s.index.Search(r.Context(), params)
	if err != nil {
		zap.L().Error("property search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search unavailable")
		return
	}

	body, err := json.Marshal(buildPage(res, params.Page, params.Limit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding failed")
		return
	}

	s.cache.Set(r.Context(), key, body, s.propertiesTTL)
	writeJSONBody(w, http.StatusOK, body)
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	key := cache.Key(cache.PrefixMetadata, cacheParams(r.URL.Query()))
	if body, ok := s.cache.Get(r.Context(), key); ok {
		writeCached(w, body)
		return
	}

	facets, err := s.index.FacetMetadata(r.Context())
	if err != nil {
		zap.L().Error("facet metadata failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search unavailable")
		return
	}

	body, err := json.Marshal(facets)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding failed")
		return
	}

	s.cache.Set(r.Context(), key, body, s.metadataTTL)
	writeJSONBody(w, http.StatusOK, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.index.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func buildPage(res *search.Result, page, limit int) propertiesPage {
	totalPages := int((res.Total + int64(limit) - 1) / int64(limit))

	items := res.Items
	if items == nil {
		items = []*model.Document{}
	}

	p := propertiesPage{
		Items:      items,
		Page:       page,
		Limit:      limit,
		TotalItems: res.Total,
		TotalPages: totalPages,
	}
	if page > 1 {
		prev := page - 1
		p.PrevPage = &prev
	}
	if page < totalPages {
		next := page + 1
		p.NextPage = &next
	}
	return p
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding failed")
		return
	}
	writeJSONBody(w, code, body)
}

func writeJSONBody(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body) //nolint:errcheck
}

func writeCached(w http.ResponseWriter, body []byte) {
	w.Header().Set("X-Cache", "hit")
	writeJSONBody(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
