package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sheetbook/sheetbook/pkg/config"
	"github.com/sheetbook/sheetbook/pkg/importer"
	"github.com/sheetbook/sheetbook/pkg/ledger"
	"github.com/sheetbook/sheetbook/pkg/models"
	"github.com/sheetbook/sheetbook/pkg/parse"
	"github.com/sheetbook/sheetbook/pkg/sheets"
	"github.com/sheetbook/sheetbook/pkg/syncer"
	"github.com/sheetbook/sheetbook/pkg/watcher"
)

// Server exposes the ledger and its sync machinery over HTTP
type Server struct {
	config   *config.Config
	logger   *log.Logger
	mux      *http.ServeMux
	store    *ledger.Store
	importer *importer.Importer
	syncer   *syncer.Syncer
	watcher  *watcher.Watcher
}

// New creates a new HTTP server
func New(cfg *config.Config, logger *log.Logger, store *ledger.Store, imp *importer.Importer, sync *syncer.Syncer, w *watcher.Watcher) *Server {
	return &Server{
		config:   cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
		store:    store,
		importer: imp,
		syncer:   sync,
		watcher:  w,
	}
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	s.setupRoutes()
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/import", s.withLogging(s.handleImport))
	s.mux.HandleFunc("/api/ledger/", s.withLogging(s.handleLedger))
	s.mux.HandleFunc("/api/push", s.withLogging(s.handlePush))
	s.mux.HandleFunc("/api/watcher", s.withLogging(s.handleWatcher))
}

// ---------------- import handler ----------------

// handleImport pulls the configured source, or an uploaded file when one is
// attached, into the target ledger. The request context carries cancellation:
// a client that disconnects mid-import stops the run after the current row.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	ledgerID := r.FormValue("ledger_id")
	if ledgerID == "" {
		ledgerID = s.config.UserID
	}

	var imported, total int
	var err error
	onProgress := func(done, count int) { imported, total = done, count }

	if file, header, ferr := r.FormFile("statement"); ferr == nil {
		defer file.Close()
		data, rerr := io.ReadAll(file)
		if rerr != nil {
			s.respondError(w, r, http.StatusInternalServerError, "failed to read file", rerr)
			return
		}
		imported, err = s.importer.ImportBytes(r.Context(), data, filepath.Ext(header.Filename), ledgerID, onProgress)
	} else {
		src := sheets.New(s.config.Source.Ref, sheets.Kind(s.config.Source.Kind))
		imported, err = s.importer.Import(r.Context(), src, ledgerID, onProgress)
	}

	if err != nil {
		if errors.Is(err, importer.ErrCancelled) {
			// partial progress is already persisted
			s.logger.Info("import cancelled", "ledger", ledgerID, "imported", imported)
			_ = s.writeJSON(w, http.StatusOK, map[string]interface{}{
				"status":   "cancelled",
				"imported": imported,
				"total":    total,
			})
			return
		}
		s.respondError(w, r, http.StatusBadGateway, "import failed", err)
		return
	}

	s.syncer.PushAsync(ledgerID)

	if werr := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"imported": imported,
		"total":    total,
	}); werr != nil {
		s.logger.Warn("failed to write json response", "err", werr)
	}
}

// ---------------- ledger handlers ----------------

// Entry is the wire shape of one derived ledger row.
type Entry struct {
	Ref         int     `json:"ref"`
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	In          float64 `json:"in"`
	Out         float64 `json:"out"`
	Balance     float64 `json:"balance"`
}

// recordRequest is the body for creating or updating a record.
type recordRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Category    string `json:"category"`
	In          string `json:"in"`
	Out         string `json:"out"`
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/ledger/")
	ledgerID, recordID, _ := strings.Cut(rest, "/")
	if ledgerID == "" {
		s.respondError(w, r, http.StatusBadRequest, "ledger id required", nil)
		return
	}

	switch {
	case r.Method == http.MethodGet && recordID == "":
		s.handleView(w, r, ledgerID)
	case r.Method == http.MethodPost && recordID == "":
		s.handleAppend(w, r, ledgerID)
	case r.Method == http.MethodPatch && recordID != "":
		s.handleUpdate(w, r, ledgerID, recordID)
	case r.Method == http.MethodDelete && recordID != "":
		s.handleRemove(w, r, ledgerID, recordID)
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
	}
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, ledgerID string) {
	view, err := s.store.View(ledgerID)
	if err != nil {
		if errors.Is(err, ledger.ErrUnavailable) {
			s.respondError(w, r, http.StatusServiceUnavailable, "ledger unavailable", err)
			return
		}
		s.respondError(w, r, http.StatusInternalServerError, "failed to read ledger", err)
		return
	}

	entries := make([]Entry, 0, view.Len())
	for _, e := range view.Entries {
		entries = append(entries, Entry{
			Ref:         e.Ref,
			ID:          e.ID,
			Date:        e.OccurredOn.Format("2006-01-02"),
			Description: e.Description,
			Category:    e.Category,
			In:          e.In.InexactFloat64(),
			Out:         e.Out.InexactFloat64(),
			Balance:     e.Balance.InexactFloat64(),
		})
	}

	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"ledger":  ledgerID,
		"balance": view.Balance().InexactFloat64(),
		"entries": entries,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request, ledgerID string) {
	rec, err := s.decodeRecord(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	id, err := s.store.Append(ledgerID, rec)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.syncer.PushAsync(ledgerID)

	if err := s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"id":     id,
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, ledgerID, recordID string) {
	rec, err := s.decodeRecord(r)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	patch := models.Patch{
		OccurredOn:  rec.OccurredOn,
		Description: rec.Description,
		Category:    rec.Category,
		In:          rec.In,
		Out:         rec.Out,
	}
	if err := s.store.Update(ledgerID, recordID, patch); err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.syncer.PushAsync(ledgerID)

	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success"}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request, ledgerID, recordID string) {
	if err := s.store.Remove(ledgerID, recordID); err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	s.syncer.PushAsync(ledgerID)

	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success"}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

func (s *Server) decodeRecord(r *http.Request) (models.Record, error) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.Record{}, fmt.Errorf("malformed body: %w", err)
	}

	occurred, ok := parse.Date(req.Date)
	if !ok {
		occurred = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return models.Record{
		OccurredOn:  occurred,
		Description: req.Description,
		Category:    req.Category,
		In:          parse.Amount(req.In),
		Out:         parse.Amount(req.Out),
	}, nil
}

func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		s.respondError(w, r, http.StatusNotFound, "record not found", err)
	case errors.Is(err, ledger.ErrEmptyDescription), errors.Is(err, ledger.ErrNegativeAmount):
		s.respondError(w, r, http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, ledger.ErrUnavailable):
		s.respondError(w, r, http.StatusServiceUnavailable, "ledger unavailable", err)
	default:
		s.respondError(w, r, http.StatusInternalServerError, "store error", err)
	}
}

// ---------------- push handler ----------------

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	ledgerID := r.FormValue("ledger_id")
	if ledgerID == "" {
		ledgerID = s.config.UserID
	}

	if err := s.syncer.Push(r.Context(), ledgerID); err != nil {
		s.respondError(w, r, http.StatusBadGateway, "push failed", err)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success"}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// ---------------- watcher handler ----------------

func (s *Server) handleWatcher(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// report only
	case http.MethodPut:
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, http.StatusBadRequest, "malformed body", err)
			return
		}
		var err error
		if req.Enabled {
			err = s.watcher.Enable()
		} else {
			err = s.watcher.Disable()
		}
		if err != nil {
			s.respondError(w, r, http.StatusInternalServerError, "failed to persist watcher state", err)
			return
		}
	default:
		s.respondError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	if err := s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "success",
		"enabled": s.watcher.Enabled(),
	}); err != nil {
		s.logger.Warn("failed to write json response", "err", err)
	}
}

// --- helpers ---

// writeJSON encodes v as JSON with the given status and writes headers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// respondError logs the error and returns a minimal JSON error body.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if err != nil {
		s.logger.Warn("request error", "status", status, "msg", message, "err", err, "method", r.Method, "path", r.URL.Path)
	} else {
		s.logger.Warn("request error", "status", status, "msg", message, "method", r.Method, "path", r.URL.Path)
	}
	_ = s.writeJSON(w, status, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// withLogging wraps a handler to log request start/end and recover panics.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("http request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "panic", rec, "method", r.Method, "path", r.URL.Path)
				s.respondError(w, r, http.StatusInternalServerError, "internal server error", fmt.Errorf("panic: %v", rec))
			}
		}()
		next(w, r)
	}
}
