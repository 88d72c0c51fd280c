package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

const deviceIndex = "deviceId-sortKey-index"

type dynamoAPI interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoDBClient stores sensor documents in a table keyed by farmId with a
// time-ordered sort key, and serves them back as a reading source.
type DynamoDBClient struct {
	svc   dynamoAPI
	table string
}

func NewDynamoDBClient(cfg aws.Config, table string) *DynamoDBClient {
	return &DynamoDBClient{svc: dynamodb.NewFromConfig(cfg), table: table}
}

// documentItem is the stored layout. sortKey orders by time and stays unique
// per document.
type documentItem struct {
	domain.SensorDocument
	SortKey string `dynamodbav:"sortKey"`
}

func sortKey(seconds int64, id string) string {
	return fmt.Sprintf("%012d#%s", seconds, id)
}

func toItem(doc domain.SensorDocument) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(documentItem{SensorDocument: doc, SortKey: sortKey(doc.Time.Seconds, doc.ID)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return item, nil
}

// InsertDocument stores one sensor document
func (c *DynamoDBClient) InsertDocument(ctx context.Context, doc domain.SensorDocument) error {
	item, err := toItem(doc)
	if err != nil {
		return err
	}
	_, err = c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item in DynamoDB: %w", err)
	}
	return nil
}

// BatchPutDocuments stores documents in batches of 25
func (c *DynamoDBClient) BatchPutDocuments(ctx context.Context, docs []domain.SensorDocument) error {
	const batchSize = 25 // DynamoDB batch write limit

	for i := 0; i < len(docs); i += batchSize {
		end := i + batchSize
		if end > len(docs) {
			end = len(docs)
		}

		writeRequests := make([]types.WriteRequest, 0, end-i)
		for j, doc := range docs[i:end] {
			item, err := toItem(doc)
			if err != nil {
				return fmt.Errorf("document %d: %w", i+j, err)
			}
			writeRequests = append(writeRequests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}

		_, err := c.svc.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{c.table: writeRequests},
		})
		if err != nil {
			return fmt.Errorf("failed to batch write items: %w", err)
		}
	}
	return nil
}

// ReadingsForFarm returns the farm's documents timestamped at or after since
func (c *DynamoDBClient) ReadingsForFarm(ctx context.Context, farmID string, since time.Time) ([]domain.SensorDocument, error) {
	return c.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("farmId = :id AND sortKey >= :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id":    &types.AttributeValueMemberS{Value: farmID},
			":since": &types.AttributeValueMemberS{Value: sortKey(since.Unix(), "")},
		},
	})
}

// ReadingsForDevice queries the device index for documents at or after since
func (c *DynamoDBClient) ReadingsForDevice(ctx context.Context, deviceID string, since time.Time) ([]domain.SensorDocument, error) {
	return c.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		IndexName:              aws.String(deviceIndex),
		KeyConditionExpression: aws.String("deviceId = :id AND sortKey >= :since"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id":    &types.AttributeValueMemberS{Value: deviceID},
			":since": &types.AttributeValueMemberS{Value: sortKey(since.Unix(), "")},
		},
	})
}

func (c *DynamoDBClient) query(ctx context.Context, input *dynamodb.QueryInput) ([]domain.SensorDocument, error) {
	var out []domain.SensorDocument
	paginator := dynamodb.NewQueryPaginator(c.svc, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}
		var items []documentItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal documents: %w", err)
		}
		for _, it := range items {
			out = append(out, it.SensorDocument)
		}
	}
	return out, nil
}
