package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/auth"
	"github.com/telfield/fieldcollect/internal/config"
	"github.com/telfield/fieldcollect/internal/dataset"
	"github.com/telfield/fieldcollect/internal/ledger"
	"github.com/telfield/fieldcollect/internal/presenter"
	"github.com/telfield/fieldcollect/internal/types"
)

// DashboardHandler assembles the role-scoped dashboard view: partitioned
// dataset rows joined with the current month's contact ledger
type DashboardHandler struct {
	store  *dataset.Store
	ledger ledger.Ledger
	config *config.Config
	logger zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(store *dataset.Store, led ledger.Ledger, cfg *config.Config, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		store:  store,
		ledger: led,
		config: cfg,
		logger: logger.With().Str("component", "dashboard").Logger(),
	}
}

type dashboardResponse struct {
	Month       string              `json:"month"`
	Role        types.Role          `json:"role"`
	Name        string              `json:"name"`
	Supervisor  string              `json:"supervisor,omitempty"` // resolved for agents
	Outstanding []types.AccountView `json:"outstanding"`
	Barred      []types.AccountView `json:"barred"`
	Summary     types.Summary       `json:"summary"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// Dashboard handles GET /api/dashboard
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	month := types.MonthKey(time.Now())
	records, err := h.ledger.Month(r.Context(), month)
	if err != nil {
		h.logger.Error().Err(err).Str("month", month).Msg("failed to read contact ledger")
		http.Error(w, "failed to read contact ledger", http.StatusInternalServerError)
		return
	}
	idx := ledger.Index(records)

	resp := dashboardResponse{
		Month:       month,
		Role:        claims.Role,
		Name:        claims.Name,
		Outstanding: []types.AccountView{},
		Barred:      []types.AccountView{},
	}

	// Agents are mapped to their supervisor through the Outstanding
	// dataset, so a supervisor scope can narrow their rows.
	var supervisorScope string
	if claims.Role == types.RoleAgent {
		if sup, found := dataset.SupervisorOf(h.store.Get(types.SourceOutstanding), claims.Name); found {
			supervisorScope = sup
			resp.Supervisor = sup
		}
	}

	var allRows []types.CustomerAccount
	for _, source := range types.AllSources {
		ds := h.store.Get(source)
		rows, warning := dataset.Partition(ds, claims.Role, claims.Name, supervisorScope)
		if warning != "" {
			resp.Warnings = append(resp.Warnings, warning)
		}

		views := presenter.BuildViews(rows, idx, h.config.WACountryCode)
		switch source {
		case types.SourceOutstanding:
			resp.Outstanding = views
		case types.SourceBarred:
			resp.Barred = views
		}
		allRows = append(allRows, rows...)
	}

	resp.Summary = presenter.Summarize(allRows, idx, presenter.GroupFor(claims.Role))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
