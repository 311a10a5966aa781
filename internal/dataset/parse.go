package dataset

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/telfield/fieldcollect/internal/identity"
	"github.com/telfield/fieldcollect/internal/types"
	"github.com/xuri/excelize/v2"
)

// Dataset is one fully parsed upload. Standardized is false when the
// owner columns were absent, which makes the partitioner fail closed for
// agents and supervisors.
type Dataset struct {
	Source       types.Source            `json:"source"`
	Rows         []types.CustomerAccount `json:"rows"`
	Standardized bool                    `json:"standardized"`
	UploadedAt   time.Time               `json:"uploadedAt"`

	// Headers holds the first selected sheet's header row, kept so a
	// mapping can be suggested when standardization fails
	Headers []string `json:"-"`
}

// Parse reads an uploaded .xlsx workbook into a Dataset.
//
// Sheet selection follows the operator's export conventions: the
// Outstanding workbook carries Total OS and PRIVATE OS as its first two
// sheets, which are concatenated; the Barred workbook carries its data on
// the second sheet when more than one exists.
func Parse(r io.Reader, source types.Source, mapping ColumnMapping) (*Dataset, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	var selected []string
	switch source {
	case types.SourceOutstanding:
		selected = sheets[:1]
		if len(sheets) > 1 {
			selected = sheets[:2]
		}
	case types.SourceBarred:
		if len(sheets) > 1 {
			selected = []string{sheets[1]}
		} else {
			selected = []string{sheets[0]}
		}
	default:
		return nil, nil, fmt.Errorf("invalid source: %s", source)
	}

	ds := &Dataset{
		Source:       source,
		Standardized: true,
		UploadedAt:   time.Now(),
	}
	var warnings []string

	for _, sheet := range selected {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			warnings = append(warnings, fmt.Sprintf("sheet %q is empty", sheet))
			continue
		}

		headers := rows[0]
		if len(ds.Headers) == 0 {
			ds.Headers = headers
		}
		if missing := mapping.MissingOwnerColumns(headers); len(missing) > 0 {
			ds.Standardized = false
			warnings = append(warnings, fmt.Sprintf(
				"sheet %q is missing owner column(s) %s; agent and supervisor views will show no data from this upload",
				sheet, strings.Join(missing, ", ")))
		}

		cols := indexColumns(headers)
		parsed, w := parseRows(rows[1:], source, mapping, cols, sheet)
		ds.Rows = append(ds.Rows, parsed...)
		warnings = append(warnings, w...)
	}

	return ds, warnings, nil
}

// indexColumns maps trimmed header names to their column positions.
// The first occurrence of a duplicate header wins.
func indexColumns(headers []string) map[string]int {
	cols := make(map[string]int, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(h)
		if _, exists := cols[name]; !exists {
			cols[name] = i
		}
	}
	return cols
}

// parseRows converts sheet rows into standardized accounts
func parseRows(rows [][]string, source types.Source, mapping ColumnMapping, cols map[string]int, sheet string) ([]types.CustomerAccount, []string) {
	var warnings []string
	badAmounts := 0

	cell := func(row []string, header string) string {
		idx, ok := cols[header]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	accounts := make([]types.CustomerAccount, 0, len(rows))
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}

		customer := cell(row, mapping.CustomerName)
		if customer == "" && mapping.CustomerFallback != "" {
			customer = cell(row, mapping.CustomerFallback)
		}

		amount := decimal.Zero
		if raw := cell(row, mapping.AmountDue); raw != "" {
			parsed, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
			if err != nil {
				badAmounts++
			} else {
				amount = parsed
			}
		}

		accounts = append(accounts, types.CustomerAccount{
			AgentKey:      identity.Normalize(cell(row, mapping.AgentName)),
			SupervisorKey: identity.Normalize(cell(row, mapping.SupervisorName)),
			Source:        source,
			// Account IDs are join keys: kept as exact strings so leading
			// zeros survive
			AccountID:    cell(row, mapping.AccountID),
			CustomerName: customer,
			Mobile:       cell(row, mapping.Mobile),
			AmountDue:    amount,
		})
	}

	if badAmounts > 0 {
		warnings = append(warnings, fmt.Sprintf("sheet %q: %d unparseable amount value(s) treated as zero", sheet, badAmounts))
	}
	return accounts, warnings
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
