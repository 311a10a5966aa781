package presenter

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/telfield/fieldcollect/internal/types"
)

func account(agent, supervisor, id string) types.CustomerAccount {
	return types.CustomerAccount{
		AgentKey:      agent,
		SupervisorKey: supervisor,
		Source:        types.SourceOutstanding,
		AccountID:     id,
	}
}

func contactedIndex(rows ...types.CustomerAccount) map[types.ContactKey]types.ContactRecord {
	now := time.Now()
	idx := make(map[types.ContactKey]types.ContactRecord)
	for _, row := range rows {
		idx[row.Key()] = types.ContactRecord{
			ContactKey: row.Key(),
			LastCallAt: &now,
			Month:      types.MonthKey(now),
		}
	}
	return idx
}

func TestBadge(t *testing.T) {
	row := account("RAJ KUMAR", "ANIL", "BA1001")

	// No record: pending
	if got := Badge(nil, row); got != types.BadgePending {
		t.Errorf("expected PENDING with empty index, got %s", got)
	}

	// Record without timestamps: still pending
	idx := map[types.ContactKey]types.ContactRecord{
		row.Key(): {ContactKey: row.Key()},
	}
	if got := Badge(idx, row); got != types.BadgePending {
		t.Errorf("expected PENDING for record with no timestamps, got %s", got)
	}

	// Call recorded: done
	if got := Badge(contactedIndex(row), row); got != types.BadgeDone {
		t.Errorf("expected DONE after call, got %s", got)
	}

	// WhatsApp alone also counts
	now := time.Now()
	idx[row.Key()] = types.ContactRecord{ContactKey: row.Key(), LastWhatsAppAt: &now}
	if got := Badge(idx, row); got != types.BadgeDone {
		t.Errorf("expected DONE after whatsapp, got %s", got)
	}
}

func TestBadgeKeyedOnFullTuple(t *testing.T) {
	row := account("RAJ KUMAR", "ANIL", "BA1001")

	// Same account under a different supervisor is a different key
	reassigned := account("RAJ KUMAR", "PRAKASH", "BA1001")
	idx := contactedIndex(reassigned)

	if got := Badge(idx, row); got != types.BadgePending {
		t.Errorf("contact history must not bleed across reassignment, got %s", got)
	}
}

func TestBuildViews(t *testing.T) {
	contacted := account("RAJ KUMAR", "ANIL", "BA1001")
	pending := account("RAJ KUMAR", "ANIL", "BA1002")
	contacted.Mobile = "9876543210"
	contacted.CustomerName = "Lakshmi"
	contacted.AmountDue = decimal.RequireFromString("1250.50")

	views := BuildViews([]types.CustomerAccount{contacted, pending}, contactedIndex(contacted), "91")
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}

	if views[0].Badge != types.BadgeDone || views[0].LastCallAt == nil {
		t.Errorf("expected first view DONE with call timestamp, got %+v", views[0])
	}
	if !strings.HasPrefix(views[0].WhatsAppLink, "https://wa.me/919876543210?text=") {
		t.Errorf("unexpected wa.me link: %s", views[0].WhatsAppLink)
	}
	if strings.Contains(views[0].WhatsAppLink, " ") {
		t.Errorf("wa.me link text must be URL-encoded: %s", views[0].WhatsAppLink)
	}

	if views[1].Badge != types.BadgePending {
		t.Errorf("expected second view PENDING, got %s", views[1].Badge)
	}
	if views[1].WhatsAppLink != "" {
		t.Errorf("expected no link without a mobile number, got %s", views[1].WhatsAppLink)
	}
}

func TestSummarize(t *testing.T) {
	rows := []types.CustomerAccount{
		account("RAJ KUMAR", "ANIL", "BA1001"),
		account("RAJ KUMAR", "ANIL", "BA1002"),
		account("SURESH", "ANIL", "BA2001"),
		account("MOHAN", "PRAKASH", "BA3001"),
	}
	idx := contactedIndex(rows[0], rows[2])

	summary := Summarize(rows, idx, GroupByAgent)
	if summary.Total != 4 || summary.Contacted != 2 || summary.Pending != 2 {
		t.Errorf("unexpected totals: %+v", summary)
	}
	if len(summary.Breakdown) != 3 {
		t.Fatalf("expected 3 agent groups, got %d", len(summary.Breakdown))
	}
	// Breakdown is sorted by key
	if summary.Breakdown[0].Key != "MOHAN" {
		t.Errorf("expected sorted breakdown, got %+v", summary.Breakdown)
	}
	for _, g := range summary.Breakdown {
		if g.Key == "RAJ KUMAR" && (g.Total != 2 || g.Contacted != 1 || g.Pending != 1) {
			t.Errorf("unexpected RAJ KUMAR group: %+v", g)
		}
	}

	bySupervisor := Summarize(rows, idx, GroupBySupervisor)
	if len(bySupervisor.Breakdown) != 2 {
		t.Errorf("expected 2 supervisor groups, got %d", len(bySupervisor.Breakdown))
	}

	plain := Summarize(rows, idx, GroupByNone)
	if plain.Breakdown != nil {
		t.Errorf("expected no breakdown without grouping, got %+v", plain.Breakdown)
	}
}

func TestGroupFor(t *testing.T) {
	tests := []struct {
		role types.Role
		want GroupBy
	}{
		{types.RoleAgent, GroupByNone},
		{types.RoleSupervisor, GroupByAgent},
		{types.RoleManagement, GroupBySupervisor},
	}
	for _, tt := range tests {
		if got := GroupFor(tt.role); got != tt.want {
			t.Errorf("GroupFor(%s) = %q, want %q", tt.role, got, tt.want)
		}
	}
}
