package api

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/telfield/fieldcollect/internal/auth"
	"github.com/telfield/fieldcollect/internal/dataset"
	"github.com/telfield/fieldcollect/internal/ledger"
	"github.com/telfield/fieldcollect/internal/types"
	"github.com/telfield/fieldcollect/internal/websocket"
)

// testDeps bundles the stores every handler test needs, all rooted in a
// temp directory
type testDeps struct {
	store  *dataset.Store
	ledger ledger.Ledger
	hub    *websocket.Hub
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	logger := zerolog.New(&bytes.Buffer{})
	dir := t.TempDir()

	store, err := dataset.NewStore(dir, logger)
	if err != nil {
		t.Fatalf("failed to create dataset store: %v", err)
	}

	led, err := ledger.NewExcelLedger(filepath.Join(dir, "ledger.xlsx"), logger)
	if err != nil {
		t.Fatalf("failed to create ledger: %v", err)
	}

	hub := websocket.NewHub(logger)
	go hub.Run()

	return &testDeps{store: store, ledger: led, hub: hub}
}

// installDataset swaps in a dataset without going through an upload
func (d *testDeps) installDataset(t *testing.T, ds *dataset.Dataset) {
	t.Helper()
	if err := d.store.Replace(ds); err != nil {
		t.Fatalf("failed to install dataset: %v", err)
	}
}

func account(agent, supervisor string, source types.Source, id string) types.CustomerAccount {
	return types.CustomerAccount{
		AgentKey:      agent,
		SupervisorKey: supervisor,
		Source:        source,
		AccountID:     id,
		CustomerName:  "CUSTOMER " + id,
		Mobile:        "9876543210",
		AmountDue:     decimal.NewFromInt(1500),
	}
}

func outstandingDataset(rows ...types.CustomerAccount) *dataset.Dataset {
	return &dataset.Dataset{
		Source:       types.SourceOutstanding,
		Rows:         rows,
		Standardized: true,
		UploadedAt:   time.Now(),
	}
}

func claimsFor(role types.Role, name string) *auth.Claims {
	return &auth.Claims{Role: role, Name: name}
}
