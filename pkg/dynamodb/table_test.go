package dynamodb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ddb "github.com/yashrajoria/markup-backend/pkg/dynamodb"
)

type fakeTableAPI struct {
	exists      bool
	describeErr error
	created     *dynamodb.CreateTableInput
	ttl         *dynamodb.UpdateTimeToLiveInput
}

func (f *fakeTableAPI) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if f.describeErr != nil {
		return nil, f.describeErr
	}
	if !f.exists {
		return nil, &types.ResourceNotFoundException{Message: aws.String("not found")}
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{TableStatus: types.TableStatusActive}}, nil
}

func (f *fakeTableAPI) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.created = params
	f.exists = true
	return &dynamodb.CreateTableOutput{}, nil
}

func (f *fakeTableAPI) UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error) {
	f.ttl = params
	return &dynamodb.UpdateTimeToLiveOutput{}, nil
}

var sessionSpec = ddb.TableSpec{Name: "MarkupSessions", HashKey: "session_id", TTLAttribute: "expires_at"}

func TestEnsureTable_ExistingTable(t *testing.T) {
	api := &fakeTableAPI{exists: true}

	created, err := ddb.EnsureTable(context.Background(), api, sessionSpec, 0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, api.created)
}

func TestEnsureTable_CreatesWithTTL(t *testing.T) {
	api := &fakeTableAPI{}

	created, err := ddb.EnsureTable(context.Background(), api, sessionSpec, 0)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, api.created)
	assert.Equal(t, "session_id", *api.created.KeySchema[0].AttributeName)
	assert.Equal(t, types.BillingModePayPerRequest, api.created.BillingMode)
	require.NotNil(t, api.ttl)
	assert.Equal(t, "expires_at", *api.ttl.TimeToLiveSpecification.AttributeName)
}

func TestEnsureTable_DescribeFailure(t *testing.T) {
	api := &fakeTableAPI{describeErr: errors.New("access denied")}

	_, err := ddb.EnsureTable(context.Background(), api, sessionSpec, 0)
	assert.Error(t, err)
	assert.Nil(t, api.created)
}
