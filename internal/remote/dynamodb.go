package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"catalog-go/internal/catalog"
)

const (
	// productEntity is the EntityType of product items and the partition
	// key of the creation-time index.
	productEntity = "PRODUCT"

	// createdAtLayout is fixed-width so the index sort key orders by time.
	createdAtLayout = "2006-01-02T15:04:05.000000000Z"
)

// DynamoDBClient is the subset of the DynamoDB API the remote uses.
type DynamoDBClient interface {
	dynamodb.ScanAPIClient
	dynamodb.QueryAPIClient
}

// DynamoDBRemote reads products from a DynamoDB table. Full downloads scan
// the table; incremental syncs query a GSI with EntityType as partition key
// and CreatedAt as sort key.
type DynamoDBRemote struct {
	client    DynamoDBClient
	tableName string
	indexName string
}

// NewDynamoDBRemote creates a remote over tableName. indexName may be empty,
// in which case every incremental sync falls back to a full download.
func NewDynamoDBRemote(client DynamoDBClient, tableName, indexName string) *DynamoDBRemote {
	return &DynamoDBRemote{
		client:    client,
		tableName: tableName,
		indexName: indexName,
	}
}

// productItem represents the DynamoDB item structure for a product
type productItem struct {
	ID            string   `dynamodbav:"ID"`
	EntityType    string   `dynamodbav:"EntityType"`
	Brand         string   `dynamodbav:"Brand"`
	Name          string   `dynamodbav:"Name"`
	Category      int      `dynamodbav:"Category"`
	SafetyScore   *float64 `dynamodbav:"SafetyScore,omitempty"`
	SkinTypes     []int    `dynamodbav:"SkinTypes,omitempty"`
	Concerns      []int    `dynamodbav:"Concerns,omitempty"`
	Sensitivities []int    `dynamodbav:"Sensitivities,omitempty"`
	ImageURL      string   `dynamodbav:"ImageURL,omitempty"`
	CreatedAt     string   `dynamodbav:"CreatedAt"`
}

func (it productItem) toProduct() (catalog.Product, error) {
	p := catalog.Product{
		ID:            it.ID,
		Brand:         it.Brand,
		Name:          it.Name,
		Category:      catalog.Category(it.Category),
		SafetyScore:   it.SafetyScore,
		SkinTypes:     it.SkinTypes,
		Concerns:      it.Concerns,
		Sensitivities: it.Sensitivities,
		ImageURL:      it.ImageURL,
	}
	if it.CreatedAt != "" {
		// The index compares sort keys as strings against a UTC cursor.
		if !strings.HasSuffix(it.CreatedAt, "Z") {
			return catalog.Product{}, fmt.Errorf("product %s: CreatedAt %q is not UTC", it.ID, it.CreatedAt)
		}
		t, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
		if err != nil {
			return catalog.Product{}, fmt.Errorf("product %s: parsing CreatedAt: %w", it.ID, err)
		}
		p.CreatedAt = t
	}
	return p, nil
}

// FetchAll scans every product item in the table.
func (r *DynamoDBRemote) FetchAll(ctx context.Context) ([]catalog.Product, error) {
	filter := expression.Name("EntityType").Equal(expression.Value(productEntity))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("building scan expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var products []catalog.Product
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", r.tableName, err)
		}
		batch, err := decodeItems(page.Items)
		if err != nil {
			return nil, err
		}
		products = append(products, batch...)
	}
	return products, nil
}

// FetchCreatedAfter queries the creation-time index, newest first.
func (r *DynamoDBRemote) FetchCreatedAfter(ctx context.Context, cursor time.Time) ([]catalog.Product, error) {
	if r.indexName == "" {
		return nil, fmt.Errorf("%w: no creation-time index configured for %s", catalog.ErrQueryUnavailable, r.tableName)
	}

	keyCond := expression.Key("EntityType").Equal(expression.Value(productEntity)).
		And(expression.Key("CreatedAt").GreaterThan(expression.Value(cursor.UTC().Format(createdAtLayout))))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("building query expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(false),
	})

	var products []catalog.Product
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying %s/%s: %w", r.tableName, r.indexName, classifyQueryError(err))
		}
		batch, err := decodeItems(page.Items)
		if err != nil {
			return nil, err
		}
		products = append(products, batch...)
	}

	// Sort keys written without fractional seconds sort after the cursor
	// string even when equal in time.
	out := products[:0]
	for _, p := range products {
		if p.CreatedAt.After(cursor) {
			out = append(out, p)
		}
	}
	return out, nil
}

func decodeItems(items []map[string]types.AttributeValue) ([]catalog.Product, error) {
	var raw []productItem
	if err := attributevalue.UnmarshalListOfMaps(items, &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling product items: %w", err)
	}

	products := make([]catalog.Product, 0, len(raw))
	for _, it := range raw {
		p, err := it.toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

var _ catalog.Remote = (*DynamoDBRemote)(nil)
