package dataset

import (
	"testing"
	"time"

	"github.com/telfield/fieldcollect/internal/types"
)

func row(agent, supervisor, account string) types.CustomerAccount {
	return types.CustomerAccount{
		AgentKey:      agent,
		SupervisorKey: supervisor,
		Source:        types.SourceOutstanding,
		AccountID:     account,
	}
}

func testDataset() *Dataset {
	return &Dataset{
		Source:       types.SourceOutstanding,
		Standardized: true,
		UploadedAt:   time.Now(),
		Rows: []types.CustomerAccount{
			row("RAJ KUMAR", "ANIL", "BA1001"),
			row("RAJ KUMAR", "ANIL", "BA1002"),
			row("SURESH", "ANIL", "BA2001"),
			row("MOHAN", "PRAKASH", "BA3001"),
		},
	}
}

func TestPartitionAgent(t *testing.T) {
	ds := testDataset()

	rows, warning := Partition(ds, types.RoleAgent, "RAJ KUMAR", "ANIL")
	if warning != "" {
		t.Errorf("unexpected warning: %s", warning)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.AgentKey != "RAJ KUMAR" {
			t.Errorf("agent partition leaked row for %s", r.AgentKey)
		}
	}
}

func TestPartitionAgentSupervisorScope(t *testing.T) {
	ds := testDataset()

	// Wrong supervisor scope excludes the agent's rows
	rows, _ := Partition(ds, types.RoleAgent, "RAJ KUMAR", "PRAKASH")
	if len(rows) != 0 {
		t.Errorf("expected 0 rows under foreign supervisor scope, got %d", len(rows))
	}

	// Empty scope matches any supervisor
	rows, _ = Partition(ds, types.RoleAgent, "RAJ KUMAR", "")
	if len(rows) != 2 {
		t.Errorf("expected 2 rows with empty scope, got %d", len(rows))
	}
}

func TestPartitionDisjointness(t *testing.T) {
	ds := testDataset()

	raj, _ := Partition(ds, types.RoleAgent, "RAJ KUMAR", "ANIL")
	suresh, _ := Partition(ds, types.RoleAgent, "SURESH", "ANIL")

	seen := make(map[string]bool)
	for _, r := range raj {
		seen[r.AccountID] = true
	}
	for _, r := range suresh {
		if seen[r.AccountID] {
			t.Errorf("account %s visible to two distinct agents", r.AccountID)
		}
	}
}

func TestPartitionSupervisor(t *testing.T) {
	ds := testDataset()

	rows, _ := Partition(ds, types.RoleSupervisor, "ANIL", "")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows for ANIL, got %d", len(rows))
	}
	for _, r := range rows {
		if r.SupervisorKey != "ANIL" {
			t.Errorf("supervisor partition leaked row for %s", r.SupervisorKey)
		}
	}
}

func TestPartitionManagementSeesUnion(t *testing.T) {
	ds := testDataset()

	rows, warning := Partition(ds, types.RoleManagement, "ANYTHING", "ANYTHING")
	if warning != "" {
		t.Errorf("unexpected warning: %s", warning)
	}
	if len(rows) != len(ds.Rows) {
		t.Errorf("management must see all %d rows, got %d", len(ds.Rows), len(rows))
	}
}

func TestPartitionFailClosedOnMissingColumns(t *testing.T) {
	ds := testDataset()
	ds.Standardized = false

	for _, role := range []types.Role{types.RoleAgent, types.RoleSupervisor} {
		rows, warning := Partition(ds, role, "ANIL", "")
		if len(rows) != 0 {
			t.Errorf("role %s: expected 0 rows from unstandardized dataset, got %d", role, len(rows))
		}
		if warning == "" {
			t.Errorf("role %s: expected a warning", role)
		}
	}

	// Management still sees the raw rows
	rows, _ := Partition(ds, types.RoleManagement, "", "")
	if len(rows) != len(ds.Rows) {
		t.Errorf("management should still see raw rows, got %d", len(rows))
	}
}

func TestPartitionNilDataset(t *testing.T) {
	rows, warning := Partition(nil, types.RoleAgent, "RAJ KUMAR", "")
	if len(rows) != 0 || warning != "" {
		t.Errorf("nil dataset should partition to nothing, got %d rows, %q", len(rows), warning)
	}
}

func TestPartitionUnknownIdentityIsEmptyNotError(t *testing.T) {
	ds := testDataset()
	rows, warning := Partition(ds, types.RoleAgent, "NOBODY", "")
	if len(rows) != 0 {
		t.Errorf("expected 0 rows for unknown agent, got %d", len(rows))
	}
	if warning != "" {
		t.Errorf("unknown identity is not a warning condition, got %q", warning)
	}
}

func TestSupervisorOf(t *testing.T) {
	ds := testDataset()

	bbm, ok := SupervisorOf(ds, "RAJ KUMAR")
	if !ok || bbm != "ANIL" {
		t.Errorf("expected ANIL, got %q (ok=%v)", bbm, ok)
	}

	if _, ok := SupervisorOf(ds, "NOBODY"); ok {
		t.Error("expected no supervisor for unknown agent")
	}

	ds.Standardized = false
	if _, ok := SupervisorOf(ds, "RAJ KUMAR"); ok {
		t.Error("unstandardized dataset must not resolve supervisors")
	}
}
