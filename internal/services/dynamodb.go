package services

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"nyc-local-events-pipeline/internal/models"
)

// eventItem is the DynamoDB representation of a geocoded event. PK/SK follow
// the single-table layout: one partition per calendar date, sorted by event ID.
type eventItem struct {
	PK string `dynamodbav:"PK"` // DATE#<iso-date>
	SK string `dynamodbav:"SK"` // EVENT#<id>
	models.GeocodedEvent
	RunID string `dynamodbav:"runId"`
}

// DynamoDBService persists geocoded events to DynamoDB
type DynamoDBService struct {
	client      *dynamodb.Client
	eventsTable string
}

// NewDynamoDBService creates a DynamoDB service from the environment
func NewDynamoDBService(ctx context.Context) (*DynamoDBService, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	table := os.Getenv("EVENTS_TABLE_NAME")
	if table == "" {
		table = "nyc-local-events"
	}

	return &DynamoDBService{
		client:      dynamodb.NewFromConfig(cfg),
		eventsTable: table,
	}, nil
}

// NewDynamoDBServiceWithClient creates a DynamoDB service with an existing client
func NewDynamoDBServiceWithClient(client *dynamodb.Client, eventsTable string) *DynamoDBService {
	return &DynamoDBService{
		client:      client,
		eventsTable: eventsTable,
	}
}

// PutEvent stores one geocoded event
func (s *DynamoDBService) PutEvent(ctx context.Context, runID string, event models.GeocodedEvent) error {
	item, err := attributevalue.MarshalMap(eventItem{
		PK:            "DATE#" + event.Date,
		SK:            "EVENT#" + event.ID,
		GeocodedEvent: event,
		RunID:         runID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.eventsTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put event %s: %w", event.ID, err)
	}

	return nil
}

// PutEvents stores a batch of geocoded events. Returns the first error but
// keeps going, so one bad record does not block the rest of the batch.
func (s *DynamoDBService) PutEvents(ctx context.Context, runID string, events []models.GeocodedEvent) error {
	var firstErr error
	for _, event := range events {
		if err := s.PutEvent(ctx, runID, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetEvent retrieves a geocoded event by date and ID
func (s *DynamoDBService) GetEvent(ctx context.Context, date, id string) (*models.GeocodedEvent, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.eventsTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "DATE#" + date},
			"SK": &types.AttributeValueMemberS{Value: "EVENT#" + id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get event %s: %w", id, err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("event %s not found", id)
	}

	var item eventItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event %s: %w", id, err)
	}

	return &item.GeocodedEvent, nil
}

// QueryEventsByDate returns all events stored for one calendar date
func (s *DynamoDBService) QueryEventsByDate(ctx context.Context, date string, limit int32) ([]models.GeocodedEvent, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.eventsTable),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "DATE#" + date},
		},
		Limit: aws.Int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %s: %w", date, err)
	}

	events := make([]models.GeocodedEvent, 0, len(result.Items))
	for _, rawItem := range result.Items {
		var item eventItem
		if err := attributevalue.UnmarshalMap(rawItem, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queried event: %w", err)
		}
		events = append(events, item.GeocodedEvent)
	}

	return events, nil
}

// DeleteEvent removes an event from the table
func (s *DynamoDBService) DeleteEvent(ctx context.Context, date, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.eventsTable),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "DATE#" + date},
			"SK": &types.AttributeValueMemberS{Value: "EVENT#" + id},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete event %s: %w", id, err)
	}

	return nil
}
