package aws

import (
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// NewDynamoDBClient creates a DynamoDB client honoring AWS_DYNAMODB_ENDPOINT / AWS_ENDPOINT.
func NewDynamoDBClient(cfg sdkaws.Config) *dynamodb.Client {
	endpoint := Endpoint("DYNAMODB")
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = sdkaws.String(endpoint)
		}
	})
}
