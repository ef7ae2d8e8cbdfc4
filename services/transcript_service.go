package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"kbchat/models"
)

// TranscriptStore records conversation turns in DynamoDB, keyed by session
// identifier and timestamp. The request handler itself stays stateless; this
// is a write-behind log used for history replay and batch archiving.
type TranscriptStore struct {
	db    *dynamodb.Client
	table string
}

// NewTranscriptStore builds a store over the given table.
func NewTranscriptStore(awsCfg aws.Config, endpoint, table string) *TranscriptStore {
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &TranscriptStore{db: client, table: table}
}

// EnsureTable creates the table if it does not already exist.
func (s *TranscriptStore) EnsureTable(ctx context.Context) error {
	_, err := s.db.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("SessionID"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("Timestamp"),
				AttributeType: types.ScalarAttributeTypeS, // RFC3339Nano sort key
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("SessionID"),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String("Timestamp"),
				KeyType:       types.KeyTypeRange,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var exists *types.ResourceInUseException
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// SaveTurn appends one turn to the session's transcript.
func (s *TranscriptStore) SaveTurn(ctx context.Context, sessionID, role, content string, sources []string) (models.Turn, error) {
	turn := models.Turn{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Sources:   sources,
		Timestamp: time.Now(),
	}

	item := map[string]types.AttributeValue{
		"ID":        &types.AttributeValueMemberS{Value: turn.ID},
		"SessionID": &types.AttributeValueMemberS{Value: turn.SessionID},
		"Role":      &types.AttributeValueMemberS{Value: turn.Role},
		"Content":   &types.AttributeValueMemberS{Value: turn.Content},
		"Timestamp": &types.AttributeValueMemberS{Value: turn.Timestamp.Format(time.RFC3339Nano)},
	}
	if len(turn.Sources) > 0 {
		item["Sources"] = &types.AttributeValueMemberSS{Value: turn.Sources}
	}

	_, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return models.Turn{}, err
	}

	return turn, nil
}

// RecentTurns returns up to limit turns for a session, newest first.
func (s *TranscriptStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]models.Turn, error) {
	result, err := s.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("SessionID = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, err
	}

	return itemsToTurns(result.Items), nil
}

// TurnsBefore scans for turns older than the cutoff, across all sessions.
// Used by the batch archiver.
func (s *TranscriptStore) TurnsBefore(ctx context.Context, cutoff time.Time) ([]models.Turn, error) {
	turns := make([]models.Turn, 0)

	var startKey map[string]types.AttributeValue
	for {
		result, err := s.db.Scan(ctx, &dynamodb.ScanInput{
			TableName:        aws.String(s.table),
			FilterExpression: aws.String("#ts < :cutoff"),
			ExpressionAttributeNames: map[string]string{
				"#ts": "Timestamp",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":cutoff": &types.AttributeValueMemberS{Value: cutoff.Format(time.RFC3339Nano)},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, err
		}

		turns = append(turns, itemsToTurns(result.Items)...)

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	return turns, nil
}

func itemsToTurns(items []map[string]types.AttributeValue) []models.Turn {
	turns := make([]models.Turn, 0, len(items))
	for _, item := range items {
		turn := models.Turn{
			ID:        stringAttr(item, "ID"),
			SessionID: stringAttr(item, "SessionID"),
			Role:      stringAttr(item, "Role"),
			Content:   stringAttr(item, "Content"),
		}
		ts, err := time.Parse(time.RFC3339Nano, stringAttr(item, "Timestamp"))
		if err == nil {
			turn.Timestamp = ts
		}
		if ss, ok := item["Sources"].(*types.AttributeValueMemberSS); ok {
			turn.Sources = ss.Value
		}
		turns = append(turns, turn)
	}
	return turns
}

func stringAttr(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
