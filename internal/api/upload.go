package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/audit"
	"github.com/telfield/fieldcollect/internal/auth"
	"github.com/telfield/fieldcollect/internal/dataset"
	"github.com/telfield/fieldcollect/internal/metrics"
	"github.com/telfield/fieldcollect/internal/types"
	"github.com/telfield/fieldcollect/internal/websocket"
)

// maxUploadBytes caps the multipart form held in memory
const maxUploadBytes = 32 << 20

// UploadHandler receives dataset workbooks and swaps them in as the
// current Outstanding or Barred dataset. Each upload replaces the whole
// dataset; contact history lives in the ledger and is unaffected.
type UploadHandler struct {
	store  *dataset.Store
	audit  *audit.Log
	hub    *websocket.Hub
	logger zerolog.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(store *dataset.Store, auditLog *audit.Log, hub *websocket.Hub, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		store:  store,
		audit:  auditLog,
		hub:    hub,
		logger: logger.With().Str("component", "uploads").Logger(),
	}
}

type uploadResponse struct {
	Source           types.Source           `json:"source"`
	Rows             int                    `json:"rows"`
	Standardized     bool                   `json:"standardized"`
	Mapping          dataset.ColumnMapping  `json:"mapping"`
	SuggestedMapping *dataset.ColumnMapping `json:"suggestedMapping,omitempty"`
	Warnings         []string               `json:"warnings,omitempty"`
	AuditID          string                 `json:"auditId"`
}

// Upload handles POST /api/uploads/{source}
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	source, ok := sourceFromParam(chi.URLParam(r, "source"))
	if !ok {
		http.Error(w, "source must be outstanding or barred", http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mapping := dataset.DefaultMapping(source)
	if raw := r.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			http.Error(w, "invalid mapping", http.StatusBadRequest)
			return
		}
	}

	ds, warnings, err := dataset.Parse(file, source, mapping)
	if err != nil {
		metrics.Get().RecordUpload(false)
		h.logger.Error().Err(err).
			Str("source", string(source)).
			Str("filename", header.Filename).
			Msg("failed to parse upload")
		http.Error(w, "failed to parse workbook: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}

	if err := h.store.Replace(ds); err != nil {
		metrics.Get().RecordUpload(false)
		h.logger.Error().Err(err).Str("source", string(source)).Msg("failed to store dataset")
		http.Error(w, "failed to store dataset", http.StatusInternalServerError)
		return
	}

	entry, err := h.audit.Append(claims.Name, source, header.Filename)
	if err != nil {
		// The dataset is already live; log and carry on
		h.logger.Error().Err(err).Msg("failed to append audit entry")
	}

	metrics.Get().RecordUpload(true)
	h.logger.Info().
		Str("source", string(source)).
		Str("filename", header.Filename).
		Str("supervisor", claims.Name).
		Int("rows", len(ds.Rows)).
		Bool("standardized", ds.Standardized).
		Msg("dataset replaced")

	h.hub.NotifyRefresh(websocket.NewRefreshNotice("upload", source, ""))

	resp := uploadResponse{
		Source:       source,
		Rows:         len(ds.Rows),
		Standardized: ds.Standardized,
		Mapping:      mapping,
		Warnings:     warnings,
		AuditID:      entry.ID,
	}
	if !ds.Standardized && len(ds.Headers) > 0 {
		suggested := dataset.Suggest(ds.Headers)
		resp.SuggestedMapping = &suggested
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// sourceFromParam maps the URL segment to a dataset source
func sourceFromParam(param string) (types.Source, bool) {
	switch strings.ToLower(param) {
	case "outstanding":
		return types.SourceOutstanding, true
	case "barred":
		return types.SourceBarred, true
	default:
		return "", false
	}
}
