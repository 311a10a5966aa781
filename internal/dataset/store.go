package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/telfield/fieldcollect/internal/types"
	"github.com/xuri/excelize/v2"
)

const (
	outstandingFile = "Outstanding_latest.xlsx"
	barredFile      = "Barred_latest.xlsx"

	dataSheet = "DATA"
	metaSheet = "META"
)

var dataHeader = []interface{}{"AGENT", "SUPERVISOR", "SOURCE", "ACCOUNT", "CUSTOMER", "MOBILE", "AMOUNT"}

// Store holds the current dataset for each source and mirrors it to a
// standardized "latest" workbook in the data dir. A new upload fully
// replaces the prior dataset for that source; there is no merge.
type Store struct {
	dataDir string
	logger  zerolog.Logger

	mu       sync.RWMutex
	datasets map[types.Source]*Dataset
}

// NewStore creates the dataset store and loads any persisted latest files
func NewStore(dataDir string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &Store{
		dataDir:  dataDir,
		logger:   logger.With().Str("component", "dataset").Logger(),
		datasets: make(map[types.Source]*Dataset),
	}

	for _, source := range types.AllSources {
		ds, err := s.loadLatest(source)
		if err != nil {
			s.logger.Warn().Err(err).Str("source", string(source)).
				Msg("latest dataset file unreadable, starting without it")
			continue
		}
		if ds != nil {
			s.datasets[source] = ds
			s.logger.Info().
				Str("source", string(source)).
				Int("rows", len(ds.Rows)).
				Msg("dataset loaded")
		}
	}
	return s, nil
}

// Get returns the current dataset for a source, or nil when none was
// uploaded yet
func (s *Store) Get(source types.Source) *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datasets[source]
}

// Replace installs a freshly uploaded dataset and persists it as the
// source's latest file
func (s *Store) Replace(ds *Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.saveLatest(ds); err != nil {
		return fmt.Errorf("persisting %s dataset: %w", ds.Source, err)
	}
	s.datasets[ds.Source] = ds
	return nil
}

func (s *Store) path(source types.Source) string {
	name := outstandingFile
	if source == types.SourceBarred {
		name = barredFile
	}
	return filepath.Join(s.dataDir, name)
}

// saveLatest writes the standardized dataset workbook. Caller holds s.mu.
func (s *Store) saveLatest(ds *Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(dataSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(dataSheet, "A1", &dataHeader); err != nil {
		return err
	}
	for i, row := range ds.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.AgentKey,
			row.SupervisorKey,
			string(row.Source),
			row.AccountID,
			row.CustomerName,
			row.Mobile,
			row.AmountDue.String(),
		}
		if err := f.SetSheetRow(dataSheet, cell, &values); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(metaSheet); err != nil {
		return err
	}
	meta := [][]interface{}{
		{"standardized", strconv.FormatBool(ds.Standardized)},
		{"uploadedAt", ds.UploadedAt.Format(time.RFC3339)},
	}
	for i, row := range meta {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(metaSheet, cell, &r); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	return f.SaveAs(s.path(ds.Source))
}

// loadLatest reads a persisted latest workbook; nil when absent
func (s *Store) loadLatest(source types.Source) (*Dataset, error) {
	path := s.path(source)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ds := &Dataset{Source: source, Standardized: true}

	if rows, err := f.GetRows(metaSheet); err == nil {
		for _, row := range rows {
			if len(row) < 2 {
				continue
			}
			switch row[0] {
			case "standardized":
				ds.Standardized = row[1] == "true"
			case "uploadedAt":
				if t, err := time.Parse(time.RFC3339, row[1]); err == nil {
					ds.UploadedAt = t
				}
			}
		}
	}

	rows, err := f.GetRows(dataSheet)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		cell := func(j int) string {
			if j < len(row) {
				return row[j]
			}
			return ""
		}
		amount := decimal.Zero
		if raw := cell(6); raw != "" {
			if parsed, err := decimal.NewFromString(raw); err == nil {
				amount = parsed
			}
		}
		ds.Rows = append(ds.Rows, types.CustomerAccount{
			AgentKey:      cell(0),
			SupervisorKey: cell(1),
			Source:        source,
			AccountID:     cell(3),
			CustomerName:  cell(4),
			Mobile:        cell(5),
			AmountDue:     amount,
		})
	}
	return ds, nil
}
