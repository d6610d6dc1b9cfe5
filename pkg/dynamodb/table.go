package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// TableAPI is the subset of the DynamoDB client needed to bootstrap a table.
type TableAPI interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// TableSpec describes a table with a single string hash key and an optional TTL attribute.
type TableSpec struct {
	Name         string
	HashKey      string
	TTLAttribute string
}

// EnsureTable creates the table when it does not exist, waits for it to become
// active and enables TTL. It returns true when the table was created.
func EnsureTable(ctx context.Context, client TableAPI, spec TableSpec, wait time.Duration) (bool, error) {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: sdkaws.String(spec.Name)})
	if err == nil {
		return false, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("failed to describe table %s: %w", spec.Name, err)
	}

	if _, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: sdkaws.String(spec.Name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: sdkaws.String(spec.HashKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: sdkaws.String(spec.HashKey), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	}); err != nil {
		return false, fmt.Errorf("failed to create table %s: %w", spec.Name, err)
	}

	if wait > 0 {
		waiter := dynamodb.NewTableExistsWaiter(client)
		if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: sdkaws.String(spec.Name)}, wait); err != nil {
			return true, fmt.Errorf("table %s did not become active: %w", spec.Name, err)
		}
	}

	if spec.TTLAttribute != "" {
		if _, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
			TableName: sdkaws.String(spec.Name),
			TimeToLiveSpecification: &types.TimeToLiveSpecification{
				AttributeName: sdkaws.String(spec.TTLAttribute),
				Enabled:       sdkaws.Bool(true),
			},
		}); err != nil {
			return true, fmt.Errorf("failed to enable ttl on %s: %w", spec.Name, err)
		}
	}
	return true, nil
}
