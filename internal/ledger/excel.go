package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/types"
	"github.com/xuri/excelize/v2"
)

const timestampLayout = "2006-01-02 15:04:05"

var sheetHeader = []interface{}{"AGENT", "SUPERVISOR", "SOURCE", "ACCOUNT", "LAST_CALL", "LAST_WA", "MONTH"}

// ExcelLedger keeps the full ledger in memory and mirrors it to a single
// .xlsx workbook, one sheet per YYYY-MM month. Every upsert rewrites the
// whole workbook; a single-writer mutex serializes writers within this
// process. Contact history is supplementary, so an unreadable or corrupt
// workbook degrades to an empty ledger instead of failing startup.
type ExcelLedger struct {
	path   string
	logger zerolog.Logger

	mu         sync.RWMutex
	partitions map[string]map[types.ContactKey]types.ContactRecord

	now func() time.Time
}

// NewExcelLedger opens (or initializes) the ledger workbook at path
func NewExcelLedger(path string, logger zerolog.Logger) (*ExcelLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}

	l := &ExcelLedger{
		path:       path,
		logger:     logger.With().Str("component", "ledger").Logger(),
		partitions: make(map[string]map[types.ContactKey]types.ContactRecord),
		now:        time.Now,
	}
	l.load()
	return l, nil
}

// load reads the workbook into memory. Failures degrade to an empty
// ledger with a warning; they never fail the caller.
func (l *ExcelLedger) load() {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		return // first run, nothing recorded yet
	}

	f, err := excelize.OpenFile(l.path)
	if err != nil {
		l.logger.Warn().Err(err).Str("path", l.path).
			Msg("ledger workbook unreadable, starting with empty ledger")
		return
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			l.logger.Warn().Err(err).Str("sheet", sheet).Msg("skipping unreadable ledger sheet")
			continue
		}

		partition := make(map[types.ContactKey]types.ContactRecord)
		for i, row := range rows {
			if i == 0 {
				continue // header
			}
			rec, ok := parseRow(sheet, row)
			if !ok {
				l.logger.Warn().Str("sheet", sheet).Int("row", i+1).Msg("skipping malformed ledger row")
				continue
			}
			partition[rec.ContactKey] = rec
		}
		l.partitions[sheet] = partition
	}

	l.logger.Info().Int("months", len(l.partitions)).Str("path", l.path).Msg("ledger loaded")
}

// parseRow converts one sheet row into a record. Sheet name is the month.
func parseRow(month string, row []string) (types.ContactRecord, bool) {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	source := types.Source(cell(2))
	if cell(0) == "" || cell(3) == "" || !source.Valid() {
		return types.ContactRecord{}, false
	}

	rec := types.ContactRecord{
		ContactKey: types.ContactKey{
			AgentKey:      cell(0),
			SupervisorKey: cell(1),
			Source:        source,
			AccountID:     cell(3),
		},
		Month: month,
	}
	rec.LastCallAt = parseTimestamp(cell(4))
	rec.LastWhatsAppAt = parseTimestamp(cell(5))
	return rec, true
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(timestampLayout, s, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timestampLayout)
}

// Upsert implements Ledger
func (l *ExcelLedger) Upsert(_ context.Context, key types.ContactKey, call, whatsapp bool) (types.ContactRecord, error) {
	if !key.Source.Valid() {
		return types.ContactRecord{}, fmt.Errorf("invalid source: %s", key.Source)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	month := types.MonthKey(now)

	partition, ok := l.partitions[month]
	if !ok {
		partition = make(map[types.ContactKey]types.ContactRecord)
		l.partitions[month] = partition
	}

	rec, ok := partition[key]
	if !ok {
		rec = types.ContactRecord{ContactKey: key, Month: month}
	}
	if call {
		ts := now
		rec.LastCallAt = &ts
	}
	if whatsapp {
		ts := now
		rec.LastWhatsAppAt = &ts
	}
	partition[key] = rec

	if err := l.saveLocked(); err != nil {
		return rec, fmt.Errorf("persisting ledger: %w", err)
	}
	return rec, nil
}

// saveLocked rewrites the whole workbook. Caller holds l.mu.
func (l *ExcelLedger) saveLocked() error {
	f := excelize.NewFile()
	defer f.Close()

	months := make([]string, 0, len(l.partitions))
	for month := range l.partitions {
		months = append(months, month)
	}
	sort.Strings(months)

	for _, month := range months {
		if _, err := f.NewSheet(month); err != nil {
			return fmt.Errorf("creating sheet %s: %w", month, err)
		}
		if err := f.SetSheetRow(month, "A1", &sheetHeader); err != nil {
			return err
		}

		records := l.sortedRecordsLocked(month)
		for i, rec := range records {
			row := []interface{}{
				rec.AgentKey,
				rec.SupervisorKey,
				string(rec.Source),
				rec.AccountID,
				formatTimestamp(rec.LastCallAt),
				formatTimestamp(rec.LastWhatsAppAt),
				rec.Month,
			}
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(month, cell, &row); err != nil {
				return err
			}
		}
	}

	if len(months) > 0 {
		// Drop the implicit default sheet
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
	}

	if err := f.SaveAs(l.path); err != nil {
		return fmt.Errorf("writing %s: %w", l.path, err)
	}
	return nil
}

// sortedRecordsLocked returns a month's records in stable order
func (l *ExcelLedger) sortedRecordsLocked(month string) []types.ContactRecord {
	partition := l.partitions[month]
	records := make([]types.ContactRecord, 0, len(partition))
	for _, rec := range partition {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.AgentKey != b.AgentKey {
			return a.AgentKey < b.AgentKey
		}
		if a.SupervisorKey != b.SupervisorKey {
			return a.SupervisorKey < b.SupervisorKey
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.AccountID < b.AccountID
	})
	return records
}

// Scope implements Ledger
func (l *ExcelLedger) Scope(_ context.Context, agentKey, supervisorKey string, source types.Source, month string) (map[string]types.ContactRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]types.ContactRecord)
	for key, rec := range l.partitions[month] {
		if key.AgentKey == agentKey && key.SupervisorKey == supervisorKey && key.Source == source {
			out[key.AccountID] = rec
		}
	}
	return out, nil
}

// Month implements Ledger
func (l *ExcelLedger) Month(_ context.Context, month string) ([]types.ContactRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sortedRecordsLocked(month), nil
}
