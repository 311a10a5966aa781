package ledger

import (
	"os"
	"path/filepath"
)

// Backend selects the ledger storage implementation
type Backend string

const (
	// BackendExcel keeps the ledger in a single .xlsx workbook, one sheet
	// per month, rewritten wholesale on every upsert
	BackendExcel Backend = "excel"
	// BackendDynamo keeps the ledger in a DynamoDB table with row-level
	// writes, which eliminates the whole-file lost-update race
	BackendDynamo Backend = "dynamo"
)

// DynamoMode represents the DynamoDB connection mode
type DynamoMode string

const (
	DynamoModeLocal DynamoMode = "local"
	DynamoModeAWS   DynamoMode = "aws"
)

// DynamoConfig holds DynamoDB settings for the dynamo backend
type DynamoConfig struct {
	Mode     DynamoMode
	Endpoint string // for local mode
	Region   string
	Table    string
}

// Config holds ledger storage configuration
type Config struct {
	Backend      Backend
	WorkbookPath string
	Dynamo       DynamoConfig
}

// LoadConfig loads ledger config from the environment
func LoadConfig(dataDir string) Config {
	backend := Backend(getEnv("LEDGER_BACKEND", "excel"))
	if backend != BackendExcel && backend != BackendDynamo {
		backend = BackendExcel
	}

	mode := DynamoMode(getEnv("DYNAMO_MODE", "local"))
	if mode != DynamoModeLocal && mode != DynamoModeAWS {
		mode = DynamoModeLocal
	}

	return Config{
		Backend:      backend,
		WorkbookPath: filepath.Join(dataDir, getEnv("LEDGER_FILE", "tip_contact_status.xlsx")),
		Dynamo: DynamoConfig{
			Mode:     mode,
			Endpoint: getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
			Region:   getEnv("DYNAMO_REGION", "ap-south-1"),
			Table:    getEnv("DYNAMO_LEDGER_TABLE", "fieldcollect-contact-ledger"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
