package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/audit"
)

// AuditHandler exposes the upload audit trail to management
type AuditHandler struct {
	audit  *audit.Log
	logger zerolog.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditLog *audit.Log, logger zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  auditLog,
		logger: logger.With().Str("component", "audit_api").Logger(),
	}
}

type auditResponse struct {
	Entries []audit.Entry `json:"entries"`
	Count   int           `json:"count"`
}

// List handles GET /api/uploads/audit
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.audit.Entries()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read audit log")
		http.Error(w, "failed to read audit log", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(auditResponse{Entries: entries, Count: len(entries)})
}
