package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/types"
)

// DynamoLedger stores contact records in a DynamoDB table with
// PK=Month and SK=RecordKey. Upserts touch individual attributes via
// UpdateItem, so concurrent writers to different accounts cannot lose
// each other's updates the way the whole-workbook backend can.
type DynamoLedger struct {
	client *dynamodb.Client
	table  string
	logger zerolog.Logger
	now    func() time.Time
}

// dynamoRecord is the persisted attribute layout
type dynamoRecord struct {
	Month          string `dynamodbav:"Month"`
	RecordKey      string `dynamodbav:"RecordKey"`
	AgentKey       string `dynamodbav:"AgentKey"`
	SupervisorKey  string `dynamodbav:"SupervisorKey"`
	Source         string `dynamodbav:"Source"`
	AccountID      string `dynamodbav:"AccountID"`
	LastCallAt     string `dynamodbav:"LastCallAt,omitempty"`
	LastWhatsAppAt string `dynamodbav:"LastWhatsAppAt,omitempty"`
}

// NewDynamoLedger creates a DynamoDB-backed ledger
func NewDynamoLedger(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (*DynamoLedger, error) {
	var client *dynamodb.Client

	if cfg.Mode == DynamoModeLocal {
		// For local mode, build the client directly without LoadDefaultConfig.
		// LoadDefaultConfig probes the EC2 IMDS endpoint which hangs when
		// static credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	l := &DynamoLedger{
		client: client,
		table:  cfg.Table,
		logger: logger.With().Str("component", "ledger").Logger(),
		now:    time.Now,
	}

	if cfg.Mode == DynamoModeLocal {
		if err := l.createTableIfNotExists(ctx); err != nil {
			return nil, err
		}
	}

	l.logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("table", cfg.Table).
		Msg("dynamo ledger initialized")

	return l, nil
}

// createTableIfNotExists creates the ledger table for local development
func (l *DynamoLedger) createTableIfNotExists(ctx context.Context) error {
	_, err := l.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(l.table),
	})
	if err == nil {
		l.logger.Info().Str("table", l.table).Msg("table already exists")
		return nil
	}

	_, err = l.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(l.table),
		KeySchema: []dbtypes.KeySchemaElement{
			{AttributeName: aws.String("Month"), KeyType: dbtypes.KeyTypeHash},
			{AttributeName: aws.String("RecordKey"), KeyType: dbtypes.KeyTypeRange},
		},
		AttributeDefinitions: []dbtypes.AttributeDefinition{
			{AttributeName: aws.String("Month"), AttributeType: dbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("RecordKey"), AttributeType: dbtypes.ScalarAttributeTypeS},
		},
		BillingMode: dbtypes.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", l.table, err)
	}
	l.logger.Info().Str("table", l.table).Msg("table created")
	return nil
}

// recordKey builds the sort key from the 4-part natural key
func recordKey(key types.ContactKey) string {
	return strings.Join([]string{key.AgentKey, key.SupervisorKey, string(key.Source), key.AccountID}, "|")
}

// Upsert implements Ledger
func (l *DynamoLedger) Upsert(ctx context.Context, key types.ContactKey, call, whatsapp bool) (types.ContactRecord, error) {
	if !key.Source.Valid() {
		return types.ContactRecord{}, fmt.Errorf("invalid source: %s", key.Source)
	}

	now := l.now()
	month := types.MonthKey(now)

	update := expression.
		Set(expression.Name("AgentKey"), expression.Value(key.AgentKey)).
		Set(expression.Name("SupervisorKey"), expression.Value(key.SupervisorKey)).
		Set(expression.Name("Source"), expression.Value(string(key.Source))).
		Set(expression.Name("AccountID"), expression.Value(key.AccountID))
	if call {
		update = update.Set(expression.Name("LastCallAt"), expression.Value(now.Format(time.RFC3339)))
	}
	if whatsapp {
		update = update.Set(expression.Name("LastWhatsAppAt"), expression.Value(now.Format(time.RFC3339)))
	}

	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return types.ContactRecord{}, fmt.Errorf("failed to build expression: %w", err)
	}

	out, err := l.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(l.table),
		Key: map[string]dbtypes.AttributeValue{
			"Month":     &dbtypes.AttributeValueMemberS{Value: month},
			"RecordKey": &dbtypes.AttributeValueMemberS{Value: recordKey(key)},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              dbtypes.ReturnValueAllNew,
	})
	if err != nil {
		return types.ContactRecord{}, fmt.Errorf("failed to upsert contact record: %w", err)
	}

	var item dynamoRecord
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return types.ContactRecord{}, fmt.Errorf("failed to unmarshal contact record: %w", err)
	}
	return item.toRecord(), nil
}

// toRecord converts the persisted layout to the domain record
func (d dynamoRecord) toRecord() types.ContactRecord {
	rec := types.ContactRecord{
		ContactKey: types.ContactKey{
			AgentKey:      d.AgentKey,
			SupervisorKey: d.SupervisorKey,
			Source:        types.Source(d.Source),
			AccountID:     d.AccountID,
		},
		Month: d.Month,
	}
	if t, err := time.Parse(time.RFC3339, d.LastCallAt); err == nil && d.LastCallAt != "" {
		rec.LastCallAt = &t
	}
	if t, err := time.Parse(time.RFC3339, d.LastWhatsAppAt); err == nil && d.LastWhatsAppAt != "" {
		rec.LastWhatsAppAt = &t
	}
	return rec
}

// Scope implements Ledger
func (l *DynamoLedger) Scope(ctx context.Context, agentKey, supervisorKey string, source types.Source, month string) (map[string]types.ContactRecord, error) {
	keyCond := expression.Key("Month").Equal(expression.Value(month))
	filter := expression.Name("AgentKey").Equal(expression.Value(agentKey)).
		And(expression.Name("SupervisorKey").Equal(expression.Value(supervisorKey))).
		And(expression.Name("Source").Equal(expression.Value(string(source))))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	items, err := l.query(ctx, expr, true)
	if err != nil {
		return nil, err
	}

	out := make(map[string]types.ContactRecord, len(items))
	for _, item := range items {
		rec := item.toRecord()
		out[rec.AccountID] = rec
	}
	return out, nil
}

// Month implements Ledger
func (l *DynamoLedger) Month(ctx context.Context, month string) ([]types.ContactRecord, error) {
	keyCond := expression.Key("Month").Equal(expression.Value(month))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	items, err := l.query(ctx, expr, false)
	if err != nil {
		return nil, err
	}

	records := make([]types.ContactRecord, 0, len(items))
	for _, item := range items {
		records = append(records, item.toRecord())
	}
	return records, nil
}

// query runs a paginated Query over the ledger table
func (l *DynamoLedger) query(ctx context.Context, expr expression.Expression, filtered bool) ([]dynamoRecord, error) {
	var items []dynamoRecord
	var lastKey map[string]dbtypes.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(l.table),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
		}
		if filtered {
			input.FilterExpression = expr.Filter()
		}
		if lastKey != nil {
			input.ExclusiveStartKey = lastKey
		}

		result, err := l.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query contact records: %w", err)
		}

		var page []dynamoRecord
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal contact records: %w", err)
		}
		items = append(items, page...)

		if result.LastEvaluatedKey == nil {
			break
		}
		lastKey = result.LastEvaluatedKey
	}

	return items, nil
}
