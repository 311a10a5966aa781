package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/auth"
	"github.com/telfield/fieldcollect/internal/dataset"
	"github.com/telfield/fieldcollect/internal/identity"
	"github.com/telfield/fieldcollect/internal/ledger"
	"github.com/telfield/fieldcollect/internal/metrics"
	"github.com/telfield/fieldcollect/internal/types"
	"github.com/telfield/fieldcollect/internal/websocket"
)

// ContactHandler records contact actions (call done, whatsapp sent)
// against accounts the caller is authorized to see
type ContactHandler struct {
	store  *dataset.Store
	ledger ledger.Ledger
	hub    *websocket.Hub
	logger zerolog.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(store *dataset.Store, led ledger.Ledger, hub *websocket.Hub, logger zerolog.Logger) *ContactHandler {
	return &ContactHandler{
		store:  store,
		ledger: led,
		hub:    hub,
		logger: logger.With().Str("component", "contacts").Logger(),
	}
}

type contactRequest struct {
	AgentKey      string       `json:"agentKey"`
	SupervisorKey string       `json:"supervisorKey"`
	Source        types.Source `json:"source"`
	AccountID     string       `json:"accountId"`
	Call          bool         `json:"call"`
	WhatsApp      bool         `json:"whatsapp"`
}

type contactResponse struct {
	Record types.ContactRecord `json:"record"`
	Badge  types.Badge         `json:"badge"`
}

// Record handles POST /api/contacts
func (h *ContactHandler) Record(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !req.Source.Valid() {
		http.Error(w, "source must be OUTSTANDING or BARRED", http.StatusBadRequest)
		return
	}
	if !req.Call && !req.WhatsApp {
		http.Error(w, "at least one of call or whatsapp must be set", http.StatusBadRequest)
		return
	}

	key := types.ContactKey{
		AgentKey:      identity.Normalize(req.AgentKey),
		SupervisorKey: identity.Normalize(req.SupervisorKey),
		Source:        req.Source,
		AccountID:     strings.TrimSpace(req.AccountID),
	}
	if key.AgentKey == "" || key.AccountID == "" {
		http.Error(w, "agentKey and accountId are required", http.StatusBadRequest)
		return
	}

	if !h.authorized(claims, key) {
		metrics.Get().RecordContactUpsert(false)
		http.Error(w, "account is not in your view", http.StatusForbidden)
		return
	}

	record, err := h.ledger.Upsert(r.Context(), key, req.Call, req.WhatsApp)
	if err != nil {
		metrics.Get().RecordContactUpsert(false)
		h.logger.Error().Err(err).
			Str("account", key.AccountID).
			Msg("failed to record contact")
		http.Error(w, "failed to record contact", http.StatusInternalServerError)
		return
	}

	metrics.Get().RecordContactUpsert(true)
	h.logger.Info().
		Str("agent", key.AgentKey).
		Str("account", key.AccountID).
		Str("source", string(key.Source)).
		Bool("call", req.Call).
		Bool("whatsapp", req.WhatsApp).
		Msg("contact recorded")

	h.hub.NotifyRefresh(websocket.NewRefreshNotice("contact", key.Source, key.SupervisorKey))

	badge := types.BadgePending
	if record.Contacted() {
		badge = types.BadgeDone
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contactResponse{Record: record, Badge: badge})
}

// authorized reports whether the caller's partition of the current
// dataset contains the addressed row. Management may act on any loaded
// row; agents and supervisors only on rows inside their own view.
func (h *ContactHandler) authorized(claims *auth.Claims, key types.ContactKey) bool {
	ds := h.store.Get(key.Source)
	rows, _ := dataset.Partition(ds, claims.Role, claims.Name, "")
	for _, row := range rows {
		if row.Key() == key {
			return true
		}
	}
	return false
}
