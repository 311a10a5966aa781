// Package presenter joins partitioned dataset rows against the contact
// ledger to produce display-ready badges, deep links and aggregate
// summaries.
package presenter

import (
	"fmt"
	"net/url"
	"sort"

	"github.com/telfield/fieldcollect/internal/types"
)

// GroupBy selects the identity field a summary breakdown is grouped by
type GroupBy string

const (
	GroupByNone       GroupBy = ""
	GroupByAgent      GroupBy = "agent"
	GroupBySupervisor GroupBy = "supervisor"
)

// GroupFor returns the complementary grouping for a viewing role:
// supervisors break down by agent, management by supervisor, agents get
// plain totals.
func GroupFor(role types.Role) GroupBy {
	switch role {
	case types.RoleSupervisor:
		return GroupByAgent
	case types.RoleManagement:
		return GroupBySupervisor
	default:
		return GroupByNone
	}
}

// Badge derives the binary contact status for a row from the month's
// ledger index. No record, or a record with neither timestamp, is PENDING.
func Badge(idx map[types.ContactKey]types.ContactRecord, row types.CustomerAccount) types.Badge {
	if rec, ok := idx[row.Key()]; ok && rec.Contacted() {
		return types.BadgeDone
	}
	return types.BadgePending
}

// BuildViews joins rows with their ledger records
func BuildViews(rows []types.CustomerAccount, idx map[types.ContactKey]types.ContactRecord, countryCode string) []types.AccountView {
	views := make([]types.AccountView, 0, len(rows))
	for _, row := range rows {
		view := types.AccountView{
			CustomerAccount: row,
			Badge:           Badge(idx, row),
			WhatsAppLink:    WhatsAppLink(countryCode, row),
		}
		if rec, ok := idx[row.Key()]; ok {
			view.LastCallAt = rec.LastCallAt
			view.LastWhatsAppAt = rec.LastWhatsAppAt
		}
		views = append(views, view)
	}
	return views
}

// WhatsAppLink builds the wa.me deep link for contacting a customer.
// Empty when the row has no mobile number.
func WhatsAppLink(countryCode string, row types.CustomerAccount) string {
	if row.Mobile == "" {
		return ""
	}
	text := fmt.Sprintf("Dear %s, your %s amount is ₹%s.", row.CustomerName, row.Source, row.AmountDue)
	return fmt.Sprintf("https://wa.me/%s%s?text=%s", countryCode, row.Mobile, url.QueryEscape(text))
}

// Summarize produces aggregate contact counts for a set of rows, with an
// optional breakdown grouped by agent or supervisor.
func Summarize(rows []types.CustomerAccount, idx map[types.ContactKey]types.ContactRecord, groupBy GroupBy) types.Summary {
	summary := types.Summary{
		Total:     len(rows),
		GroupedBy: string(groupBy),
	}

	groups := make(map[string]*types.GroupSummary)
	for _, row := range rows {
		contacted := Badge(idx, row) == types.BadgeDone
		if contacted {
			summary.Contacted++
		}

		if groupBy == GroupByNone {
			continue
		}
		key := row.AgentKey
		if groupBy == GroupBySupervisor {
			key = row.SupervisorKey
		}
		g, ok := groups[key]
		if !ok {
			g = &types.GroupSummary{Key: key}
			groups[key] = g
		}
		g.Total++
		if contacted {
			g.Contacted++
		}
	}
	summary.Pending = summary.Total - summary.Contacted

	if groupBy != GroupByNone {
		summary.Breakdown = make([]types.GroupSummary, 0, len(groups))
		for _, g := range groups {
			g.Pending = g.Total - g.Contacted
			summary.Breakdown = append(summary.Breakdown, *g)
		}
		sort.Slice(summary.Breakdown, func(i, j int) bool {
			return summary.Breakdown[i].Key < summary.Breakdown[j].Key
		})
	}

	return summary
}
