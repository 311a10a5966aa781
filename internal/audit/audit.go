// Package audit keeps an append-only record of dataset uploads. The core
// only ever appends; the management view reads it back.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/types"
)

const logFile = "upload_audit.jsonl"

// Entry is one recorded upload
type Entry struct {
	ID         string       `json:"id"`
	Supervisor string       `json:"supervisor"` // normalized key
	Source     types.Source `json:"source"`
	Filename   string       `json:"filename"`
	UploadedAt time.Time    `json:"uploadedAt"`
	Month      string       `json:"month"`
}

// Log appends upload entries to a JSONL file, one JSON object per line
type Log struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewLog creates the audit log in dataDir
func NewLog(dataDir string, logger zerolog.Logger) (*Log, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &Log{
		path:   filepath.Join(dataDir, logFile),
		logger: logger.With().Str("component", "audit").Logger(),
	}, nil
}

// Append records an upload and returns the written entry
func (l *Log) Append(supervisor string, source types.Source, filename string) (Entry, error) {
	now := time.Now()
	entry := Entry{
		ID:         uuid.New().String(),
		Supervisor: supervisor,
		Source:     source,
		Filename:   filename,
		UploadedAt: now,
		Month:      types.MonthKey(now),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("marshaling audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return Entry{}, fmt.Errorf("writing audit entry: %w", err)
	}

	l.logger.Info().
		Str("supervisor", supervisor).
		Str("source", string(source)).
		Str("filename", filename).
		Msg("upload recorded")

	return entry, nil
}

// Entries returns all recorded uploads in append order. Malformed lines
// are skipped with a warning; a missing file is an empty log.
func (l *Log) Entries() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	entries := []Entry{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			l.logger.Warn().Err(err).Msg("skipping malformed audit line")
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return entries, nil
}
