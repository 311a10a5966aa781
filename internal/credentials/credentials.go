// Package credentials loads the three credential files the dashboard
// authenticates against: one code per agent, one per supervisor and a
// single management password. The files are provisioned out of band;
// their absence is a blocking startup error.
package credentials

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/telfield/fieldcollect/internal/identity"
	"github.com/telfield/fieldcollect/internal/types"
)

const (
	agentFile      = "tip_users.json"
	supervisorFile = "bbm_users.json"
	managementFile = "mgmt.json"
)

// ErrInvalidCredentials is returned when the username/password pair does
// not match any entry for the requested role
var ErrInvalidCredentials = errors.New("invalid credentials")

// Store holds the credential mappings loaded at process start.
// Names are normalized on load so that lookups survive case and
// whitespace variation in both the files and the login input.
type Store struct {
	agents         map[string]string
	supervisors    map[string]string
	managementCode string
}

// Load reads the three credential files from dir
func Load(dir string) (*Store, error) {
	agents, err := loadUserFile(filepath.Join(dir, agentFile))
	if err != nil {
		return nil, fmt.Errorf("loading agent credentials: %w", err)
	}

	supervisors, err := loadUserFile(filepath.Join(dir, supervisorFile))
	if err != nil {
		return nil, fmt.Errorf("loading supervisor credentials: %w", err)
	}

	mgmtPath := filepath.Join(dir, managementFile)
	data, err := os.ReadFile(mgmtPath)
	if err != nil {
		return nil, fmt.Errorf("loading management credentials: %w", err)
	}
	var mgmt struct {
		Password string `json:"password"`
	}
	if err := json.Unmarshal(data, &mgmt); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", mgmtPath, err)
	}
	if mgmt.Password == "" {
		return nil, fmt.Errorf("%s: empty management password", mgmtPath)
	}

	return &Store{
		agents:         agents,
		supervisors:    supervisors,
		managementCode: mgmt.Password,
	}, nil
}

// loadUserFile reads a name -> code JSON object and normalizes the names
func loadUserFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	users := make(map[string]string, len(raw))
	for name, code := range raw {
		users[identity.Normalize(name)] = code
	}
	return users, nil
}

// Authenticate verifies a username/password pair for the given role and
// returns the derived identity. The username is normalized before lookup;
// management logins ignore the username beyond normalization.
func (s *Store) Authenticate(role types.Role, username, password string) (identity.Identity, error) {
	name := identity.Normalize(username)

	switch role {
	case types.RoleManagement:
		if !equal(password, s.managementCode) {
			return identity.Identity{}, ErrInvalidCredentials
		}
		return identity.Identity{Role: role, Name: name}, nil

	case types.RoleSupervisor:
		code, ok := s.supervisors[name]
		if !ok || !equal(password, code) {
			return identity.Identity{}, ErrInvalidCredentials
		}
		return identity.Identity{Role: role, Name: name}, nil

	case types.RoleAgent:
		code, ok := s.agents[name]
		if !ok || !equal(password, code) {
			return identity.Identity{}, ErrInvalidCredentials
		}
		return identity.Identity{Role: role, Name: name}, nil

	default:
		return identity.Identity{}, fmt.Errorf("unknown role: %s", role)
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
