package dataset

import (
	"fmt"

	"github.com/telfield/fieldcollect/internal/types"
)

// Partition returns the subset of ds the given identity is authorized to
// see, plus an optional warning.
//
// Agents see rows matching their own key (and their supervisor's, when a
// scope is supplied); supervisors see their agents' rows; management sees
// everything. A dataset whose owner columns were missing at parse time
// partitions to zero rows for agents and supervisors — never to the
// unfiltered dataset, since that would disclose other agents' customers.
func Partition(ds *Dataset, role types.Role, identityKey, supervisorScope string) ([]types.CustomerAccount, string) {
	if ds == nil || len(ds.Rows) == 0 {
		return nil, ""
	}

	if role == types.RoleManagement {
		return ds.Rows, ""
	}

	if !ds.Standardized {
		return nil, fmt.Sprintf(
			"%s dataset is missing owner columns; no rows shown", ds.Source)
	}

	var out []types.CustomerAccount
	switch role {
	case types.RoleAgent:
		for _, row := range ds.Rows {
			if row.AgentKey != identityKey {
				continue
			}
			if supervisorScope != "" && row.SupervisorKey != supervisorScope {
				continue
			}
			out = append(out, row)
		}
	case types.RoleSupervisor:
		for _, row := range ds.Rows {
			if row.SupervisorKey == identityKey {
				out = append(out, row)
			}
		}
	}
	return out, ""
}

// SupervisorOf resolves an agent's supervisor from the dataset (the
// TIP → BBM auto-map of the Outstanding file). Returns false when the
// agent appears in no row.
func SupervisorOf(ds *Dataset, agentKey string) (string, bool) {
	if ds == nil || !ds.Standardized {
		return "", false
	}
	for _, row := range ds.Rows {
		if row.AgentKey == agentKey {
			return row.SupervisorKey, true
		}
	}
	return "", false
}
