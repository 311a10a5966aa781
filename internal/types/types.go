package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role represents the dashboard role a user logs in as
type Role string

const (
	RoleAgent      Role = "agent"      // field agent ("TIP")
	RoleSupervisor Role = "supervisor" // supervisor ("BBM")
	RoleManagement Role = "management" // management ("MGMT")
)

// Valid reports whether r is one of the three known roles
func (r Role) Valid() bool {
	return r == RoleAgent || r == RoleSupervisor || r == RoleManagement
}

// Source identifies which uploaded dataset an account row came from
type Source string

const (
	SourceOutstanding Source = "OUTSTANDING" // disconnected customers owing money
	SourceBarred      Source = "BARRED"      // active customers with OG/IC barred
)

// Valid reports whether s is one of the two known sources
func (s Source) Valid() bool {
	return s == SourceOutstanding || s == SourceBarred
}

// AllSources lists both dataset sources
var AllSources = []Source{SourceOutstanding, SourceBarred}

// CustomerAccount is one standardized row from an uploaded dataset.
// The whole dataset is replaced on every upload; rows are never merged
// with a previous upload.
type CustomerAccount struct {
	AgentKey      string          `json:"agentKey"`      // normalized agent name
	SupervisorKey string          `json:"supervisorKey"` // normalized supervisor name
	Source        Source          `json:"source"`
	AccountID     string          `json:"accountId"` // opaque string, never numerically coerced
	CustomerName  string          `json:"customerName"`
	Mobile        string          `json:"mobile"`
	AmountDue     decimal.Decimal `json:"amountDue"`
}

// ContactKey is the natural key of a contact record within a month
// partition. It includes the supervisor so history does not bleed across
// agent reassignment boundaries.
type ContactKey struct {
	AgentKey      string `json:"agentKey"`
	SupervisorKey string `json:"supervisorKey"`
	Source        Source `json:"source"`
	AccountID     string `json:"accountId"`
}

// Key returns the contact key of an account row
func (a CustomerAccount) Key() ContactKey {
	return ContactKey{
		AgentKey:      a.AgentKey,
		SupervisorKey: a.SupervisorKey,
		Source:        a.Source,
		AccountID:     a.AccountID,
	}
}

// ContactRecord is the per-month contact history for one account.
// At most one record exists per (key, month); repeat actions overwrite
// the matching timestamp in place.
type ContactRecord struct {
	ContactKey
	LastCallAt     *time.Time `json:"lastCallAt,omitempty"`
	LastWhatsAppAt *time.Time `json:"lastWhatsAppAt,omitempty"`
	Month          string     `json:"month"` // YYYY-MM, wall clock at write time
}

// Contacted reports whether any contact action was recorded this month
func (r ContactRecord) Contacted() bool {
	return r.LastCallAt != nil || r.LastWhatsAppAt != nil
}

// Badge is the binary contact status shown next to an account row
type Badge string

const (
	BadgePending Badge = "PENDING"
	BadgeDone    Badge = "DONE"
)

// AccountView is a dataset row joined with its contact status,
// ready for display
type AccountView struct {
	CustomerAccount
	Badge          Badge      `json:"badge"`
	LastCallAt     *time.Time `json:"lastCallAt,omitempty"`
	LastWhatsAppAt *time.Time `json:"lastWhatsAppAt,omitempty"`
	WhatsAppLink   string     `json:"whatsAppLink,omitempty"`
}

// GroupSummary is one line of a summary breakdown
type GroupSummary struct {
	Key       string `json:"key"` // agent or supervisor key, per grouping
	Total     int    `json:"total"`
	Contacted int    `json:"contacted"`
	Pending   int    `json:"pending"`
}

// Summary holds aggregate contact counts for a set of rows
type Summary struct {
	Total     int            `json:"total"`
	Contacted int            `json:"contacted"`
	Pending   int            `json:"pending"`
	GroupedBy string         `json:"groupedBy,omitempty"` // "agent" or "supervisor"
	Breakdown []GroupSummary `json:"breakdown,omitempty"`
}

// MonthKey formats t as the YYYY-MM partition key
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
