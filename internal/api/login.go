package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/auth"
	"github.com/telfield/fieldcollect/internal/credentials"
	"github.com/telfield/fieldcollect/internal/metrics"
	"github.com/telfield/fieldcollect/internal/types"
)

// LoginHandler authenticates users against the role credential files and
// issues session tokens
type LoginHandler struct {
	creds  *credentials.Store
	issuer *auth.Issuer
	logger zerolog.Logger
}

// NewLoginHandler creates a new LoginHandler
func NewLoginHandler(creds *credentials.Store, issuer *auth.Issuer, logger zerolog.Logger) *LoginHandler {
	return &LoginHandler{
		creds:  creds,
		issuer: issuer,
		logger: logger.With().Str("component", "login").Logger(),
	}
}

type loginRequest struct {
	Role     types.Role `json:"role"`
	Username string     `json:"username"`
	Password string     `json:"password"`
}

type loginResponse struct {
	Token string     `json:"token"`
	Role  types.Role `json:"role"`
	Name  string     `json:"name"`
}

// Login handles POST /api/login
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !req.Role.Valid() {
		http.Error(w, "role must be agent, supervisor or management", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "username and password are required", http.StatusBadRequest)
		return
	}

	id, err := h.creds.Authenticate(req.Role, req.Username, req.Password)
	if err != nil {
		metrics.Get().RecordLogin(false)
		if errors.Is(err, credentials.ErrInvalidCredentials) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.Error().Err(err).Msg("authentication failed")
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	token, err := h.issuer.Issue(id)
	if err != nil {
		metrics.Get().RecordLogin(false)
		h.logger.Error().Err(err).Msg("failed to issue token")
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	metrics.Get().RecordLogin(true)
	h.logger.Info().
		Str("role", string(id.Role)).
		Str("name", id.Name).
		Msg("user logged in")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loginResponse{
		Token: token,
		Role:  id.Role,
		Name:  id.Name,
	})
}
