package dataset

import (
	"strings"

	"github.com/telfield/fieldcollect/internal/types"
)

// ColumnMapping names the spreadsheet columns the parser reads. Mappings
// are explicit and versioned; the header heuristic in Suggest is only a
// fallback suggestion surfaced to the uploading supervisor, never
// silently trusted — misidentifying the account column would silently
// break every downstream join.
type ColumnMapping struct {
	Version          int    `json:"version"`
	AgentName        string `json:"agentName"`
	SupervisorName   string `json:"supervisorName"`
	AccountID        string `json:"accountId"`
	Mobile           string `json:"mobile"`
	CustomerName     string `json:"customerName"`
	CustomerFallback string `json:"customerFallback,omitempty"`
	AmountDue        string `json:"amountDue"`
}

// Default mappings match the headers of the operator's export files,
// misspellings included.
var (
	DefaultOutstandingMapping = ColumnMapping{
		Version:          1,
		AgentName:        "Maintanance Franchisee Name",
		SupervisorName:   "BBM",
		AccountID:        "Billing_Account_Number",
		Mobile:           "Mobile_Number",
		CustomerName:     "First_Name",
		CustomerFallback: "Customer Name",
		AmountDue:        "OS_Amount(Rs)",
	}

	DefaultBarredMapping = ColumnMapping{
		Version:        1,
		AgentName:      "Maintenance Fanchisee Name",
		SupervisorName: "BBM",
		AccountID:      "Account Number",
		Mobile:         "Mobile Number",
		CustomerName:   "Customer Name",
		AmountDue:      "OutStanding",
	}
)

// DefaultMapping returns the default mapping for a source
func DefaultMapping(source types.Source) ColumnMapping {
	if source == types.SourceBarred {
		return DefaultBarredMapping
	}
	return DefaultOutstandingMapping
}

// MissingOwnerColumns reports which of the owner columns (the ones the
// partitioner's visibility rules depend on) are absent from headers.
func (m ColumnMapping) MissingOwnerColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[strings.TrimSpace(h)] = true
	}

	var missing []string
	if !present[m.AgentName] {
		missing = append(missing, m.AgentName)
	}
	if !present[m.SupervisorName] {
		missing = append(missing, m.SupervisorName)
	}
	return missing
}

// Suggest builds a best-effort mapping from header names by substring
// matching. The result is a suggestion for the uploader to confirm.
func Suggest(headers []string) ColumnMapping {
	m := ColumnMapping{Version: 0}
	for _, h := range headers {
		lower := strings.ToLower(h)
		switch {
		case m.AgentName == "" && strings.Contains(lower, "franchisee"):
			m.AgentName = h
		case m.SupervisorName == "" && strings.Contains(lower, "bbm"):
			m.SupervisorName = h
		case m.AccountID == "" && strings.Contains(lower, "account"):
			m.AccountID = h
		case m.Mobile == "" && strings.Contains(lower, "mobile"):
			m.Mobile = h
		case m.AmountDue == "" && (strings.Contains(lower, "amount") || strings.Contains(lower, "outstanding")):
			m.AmountDue = h
		case m.CustomerName == "" && strings.Contains(lower, "name"):
			m.CustomerName = h
		}
	}
	return m
}
