// Package ledger records contact actions (call done / whatsapp sent)
// against customer accounts, partitioned by calendar month. Each month is
// an independent partition: a record created in November never answers a
// December lookup, so the pending/done cycle resets every billing cycle.
package ledger

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/types"
)

// Ledger is the contact history store. Keys must be pre-normalized;
// account IDs are opaque strings.
type Ledger interface {
	// Upsert records a contact action for the current wall-clock month.
	// The flagged timestamp(s) are overwritten with now; the other field
	// is left untouched. The record is persisted before returning.
	Upsert(ctx context.Context, key types.ContactKey, call, whatsapp bool) (types.ContactRecord, error)

	// Scope returns all records for one (agent, supervisor, source) in the
	// given month, keyed by account ID. Absence is not an error: an empty
	// map means no contact yet.
	Scope(ctx context.Context, agentKey, supervisorKey string, source types.Source, month string) (map[string]types.ContactRecord, error)

	// Month returns the full partition for the given month
	Month(ctx context.Context, month string) ([]types.ContactRecord, error)
}

// New creates the configured ledger backend
func New(ctx context.Context, dataDir string, logger zerolog.Logger) (Ledger, error) {
	cfg := LoadConfig(dataDir)

	switch cfg.Backend {
	case BackendExcel:
		return NewExcelLedger(cfg.WorkbookPath, logger)
	case BackendDynamo:
		return NewDynamoLedger(ctx, cfg.Dynamo, logger)
	default:
		return nil, fmt.Errorf("unknown ledger backend: %s", cfg.Backend)
	}
}

// Index builds a lookup map over a month partition, keyed by the full
// contact key. Used by the presenter to badge arbitrary row sets.
func Index(records []types.ContactRecord) map[types.ContactKey]types.ContactRecord {
	idx := make(map[types.ContactKey]types.ContactRecord, len(records))
	for _, r := range records {
		idx[r.ContactKey] = r
	}
	return idx
}
