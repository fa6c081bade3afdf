package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/liamcoop/ruleseditor/decisiontable"
	"github.com/liamcoop/ruleseditor/internal/logger"
	"github.com/liamcoop/ruleseditor/registry"
	"github.com/liamcoop/ruleseditor/rules"
)

const (
	maxBodyBytes     = 10 << 20
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultRevisions = 50
)

type Server struct {
	registry    *registry.Registry
	db          *sql.DB // nil unless the postgres store is used
	storeKind   string
	corsOrigins []string
	router      *chi.Mux
}

func NewServer(reg *registry.Registry, db *sql.DB, storeKind string, corsOrigins []string) *Server {
	s := &Server{
		registry:    reg,
		db:          db,
		storeKind:   storeKind,
		corsOrigins: corsOrigins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/api/v1/health", s.handleHealth)

	// Default table
	r.Route("/rules", s.rulesRoutes)

	// Named tables
	r.Get("/tables", s.handleListTables)
	r.Route("/tables/{name}/rules", s.rulesRoutes)

	s.router = r
}

func (s *Server) rulesRoutes(r chi.Router) {
	r.Get("/", s.handleGetRules)
	r.Post("/validate", s.handleValidateRules)
	r.Post("/save", s.handleSaveRules)
	r.Get("/export", s.handleExportRules)
	r.Get("/revisions", s.handleListRevisions)
	r.Get("/revisions/{id}", s.handleGetRevision)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// service resolves the table a request addresses; it writes the error
// response itself and returns nil when there is none
func (s *Server) service(w http.ResponseWriter, r *http.Request) *rules.Service {
	var (
		svc *rules.Service
		err error
	)
	if name := chi.URLParam(r, "name"); name != "" {
		svc, err = s.registry.Get(name)
	} else {
		svc, err = s.registry.Default()
	}
	if err != nil {
		respondError(w, http.StatusNotFound, "table not found", err)
		return nil
	}
	return svc
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:   "healthy",
		Store:    s.storeKind,
		Tables:   len(s.registry.List()),
		Counters: logger.Counters(),
	}

	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// List tables handler
func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	defaultName := s.registry.DefaultName()

	tables := []TableSummary{}
	for _, name := range s.registry.List() {
		tables = append(tables, TableSummary{Name: name, Default: name == defaultName})
	}

	respondJSON(w, http.StatusOK, TablesListResponse{Tables: tables})
}

// Get rules handler
func (s *Server) handleGetRules(w http.ResponseWriter, r *http.Request) {
	svc := s.service(w, r)
	if svc == nil {
		return
	}

	table, err := svc.Get(r.Context())
	if errors.Is(err, rules.ErrTableNotFound) {
		respondError(w, http.StatusNotFound, "rules not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load rules", err)
		return
	}

	respondJSON(w, http.StatusOK, table)
}

// Validate rules handler
func (s *Server) handleValidateRules(w http.ResponseWriter, r *http.Request) {
	svc := s.service(w, r)
	if svc == nil {
		return
	}

	table, err := decodeTable(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	respondJSON(w, http.StatusOK, svc.Validate(table))
}

// Save rules handler
func (s *Server) handleSaveRules(w http.ResponseWriter, r *http.Request) {
	svc := s.service(w, r)
	if svc == nil {
		return
	}

	table, err := decodeTable(w, r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := svc.Save(r.Context(), table)
	if errors.Is(err, rules.ErrValidationFailed) {
		respondJSON(w, http.StatusBadRequest, result)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save rules", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Export handler streams the table as an xlsx workbook
func (s *Server) handleExportRules(w http.ResponseWriter, r *http.Request) {
	svc := s.service(w, r)
	if svc == nil {
		return
	}

	// Buffered so a failure can still be reported as JSON
	var buf bytes.Buffer
	err := svc.Export(r.Context(), &buf)
	if errors.Is(err, rules.ErrTableNotFound) {
		respondError(w, http.StatusNotFound, "rules not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to export rules", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", svc.Name()+".xlsx"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// List revisions handler
func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	svc := s.service(w, r)
	if svc == nil {
		return
	}

	limit := defaultRevisions
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	revisions, err := svc.Revisions(r.Context(), limit)
	if errors.Is(err, rules.ErrHistoryUnsupported) {
		respondError(w, http.StatusNotImplemented, "store does not keep revisions", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list revisions", err)
		return
	}

	resp := RevisionsListResponse{Revisions: make([]RevisionResponse, 0, len(revisions))}
	for _, rev := range revisions {
		resp.Revisions = append(resp.Revisions, toRevisionResponse(rev))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get revision handler
func (s *Server) handleGetRevision(w http.ResponseWriter, r *http.Request) {
	svc := s.service(w, r)
	if svc == nil {
		return
	}

	rev, err := svc.Revision(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, rules.ErrHistoryUnsupported):
		respondError(w, http.StatusNotImplemented, "store does not keep revisions", err)
	case errors.Is(err, rules.ErrRevisionNotFound):
		respondError(w, http.StatusNotFound, "revision not found", err)
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to get revision", err)
	default:
		respondJSON(w, http.StatusOK, toRevisionResponse(*rev))
	}
}

func toRevisionResponse(rev rules.Revision) RevisionResponse {
	return RevisionResponse{
		ID:        rev.ID,
		Table:     rev.TableName,
		Rows:      rev.Rows,
		CreatedAt: rev.CreatedAt,
		Document:  rev.Table,
	}
}

func decodeTable(w http.ResponseWriter, r *http.Request) (*decisiontable.DecisionTable, error) {
	var table decisiontable.DecisionTable
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&table); err != nil {
		return nil, err
	}
	return &table, nil
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}
