package aws_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	aws_pkg "github.com/yashrajoria/markup-backend/pkg/aws"
	"go.uber.org/zap"
)

type fakeSQS struct {
	messages []sqstypes.Message
	deleted  []string
	err      error
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.messages}
	f.messages = nil
	return out, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, *params.ReceiptHandle)
	return &sqs.DeleteMessageOutput{}, nil
}

func TestPollOnce_DeletesOnlyHandledMessages(t *testing.T) {
	client := &fakeSQS{messages: []sqstypes.Message{
		{Body: sdkaws.String(`{"task":"search"}`), ReceiptHandle: sdkaws.String("r1")},
		{Body: sdkaws.String(`fail`), ReceiptHandle: sdkaws.String("r2")},
		{ReceiptHandle: sdkaws.String("r3")},
	}}
	consumer := aws_pkg.NewSQSConsumer(client, "https://sqs.local/queue", zap.NewNop())

	handled, err := consumer.PollOnce(context.Background(), func(ctx context.Context, body string) error {
		if body == "fail" {
			return errors.New("handler failed")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	assert.Equal(t, []string{"r1"}, client.deleted)
}

func TestPollOnce_ReceiveError(t *testing.T) {
	client := &fakeSQS{err: errors.New("queue missing")}
	consumer := aws_pkg.NewSQSConsumer(client, "https://sqs.local/queue", zap.NewNop())

	_, err := consumer.PollOnce(context.Background(), func(ctx context.Context, body string) error { return nil })
	assert.Error(t, err)
}

type fakeSecretsAPI struct {
	calls  int
	values map[string]string
}

func (f *fakeSecretsAPI) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	v, ok := f.values[*params.SecretId]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: sdkaws.String(v)}, nil
}

func TestSecretsClient_CachesValues(t *testing.T) {
	api := &fakeSecretsAPI{values: map[string]string{"markup/REDIS": `{"REDIS_URL":"redis://cache:6379/0"}`}}
	sc := aws_pkg.NewSecretsClientWithAPI(api)

	m, err := sc.GetSecretJSON(context.Background(), "markup/REDIS")
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/0", m["REDIS_URL"])

	_, err = sc.GetSecret(context.Background(), "markup/REDIS")
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)

	_, err = sc.GetSecret(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSecretsClient_JSONScalars(t *testing.T) {
	api := &fakeSecretsAPI{values: map[string]string{
		"rds": `{"username":"markup","port":5432,"ssl":true,"tags":{"env":"prod"}}`,
	}}
	m, err := aws_pkg.NewSecretsClientWithAPI(api).GetSecretJSON(context.Background(), "rds")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"username": "markup", "port": "5432", "ssl": "true"}, m)
}

func TestSecretsClient_RejectsNonJSON(t *testing.T) {
	sc := aws_pkg.NewSecretsClientWithAPI(&fakeSecretsAPI{values: map[string]string{"plain": "hunter2"}})

	_, err := sc.GetSecretJSON(context.Background(), "plain")
	assert.Error(t, err)
}

type fakeCloudWatch struct {
	mu    sync.Mutex
	input []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = append(f.input, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func TestMetricsClient(t *testing.T) {
	api := &fakeCloudWatch{}
	m := aws_pkg.NewMetricsClientWithAPI(api, "Markup", true)

	require.NoError(t, m.RecordCount(context.Background(), aws_pkg.MetricVerdictsSubmitted, map[string]string{"Task": "search"}))
	require.Len(t, api.input, 1)
	assert.Equal(t, "Markup", *api.input[0].Namespace)
	assert.Equal(t, aws_pkg.MetricVerdictsSubmitted, *api.input[0].MetricData[0].MetricName)
	assert.Equal(t, "Task", *api.input[0].MetricData[0].Dimensions[0].Name)
}

func TestMetricsClient_Disabled(t *testing.T) {
	api := &fakeCloudWatch{}
	m := aws_pkg.NewMetricsClientWithAPI(api, "Markup", false)

	require.NoError(t, m.RecordCount(context.Background(), aws_pkg.MetricSessionsStarted, nil))
	assert.Empty(t, api.input)

	var nilClient *aws_pkg.MetricsClient
	assert.False(t, nilClient.IsEnabled())
}

func TestEndpoint(t *testing.T) {
	t.Setenv("AWS_ENDPOINT", "http://localstack:4566")
	t.Setenv("AWS_S3_ENDPOINT", "http://minio:9000")

	assert.Equal(t, "http://minio:9000", aws_pkg.Endpoint("S3"))
	assert.Equal(t, "http://localstack:4566", aws_pkg.Endpoint("SQS"))
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	return &sns.PublishOutput{}, f.err
}

func TestSNSClient_PublishWithAttributes(t *testing.T) {
	api := &fakeSNS{}
	client := aws_pkg.NewSNSClientWithAPI(api)

	err := client.Publish(context.Background(), "arn:topic", []byte(`{"task":"search"}`), map[string]string{"task": "search"})
	require.NoError(t, err)
	assert.Equal(t, `{"task":"search"}`, *api.input.Message)
	require.Contains(t, api.input.MessageAttributes, "task")
	assert.Equal(t, "search", *api.input.MessageAttributes["task"].StringValue)
	assert.Equal(t, "String", *api.input.MessageAttributes["task"].DataType)
}

func TestSNSClient_Errors(t *testing.T) {
	client := aws_pkg.NewSNSClientWithAPI(&fakeSNS{err: errors.New("throttled")})

	assert.ErrorIs(t, client.Publish(context.Background(), "", nil, nil), aws_pkg.ErrNoTopic)
	assert.ErrorContains(t, client.Publish(context.Background(), "arn:topic", []byte("{}"), nil), "throttled")
}

type fakeLogsAPI struct {
	mu       sync.Mutex
	groupErr error
	streams  []string
	batches  [][]string
}

func (f *fakeLogsAPI) CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	return &cloudwatchlogs.CreateLogGroupOutput{}, f.groupErr
}

func (f *fakeLogsAPI) PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error) {
	return &cloudwatchlogs.PutRetentionPolicyOutput{}, nil
}

func (f *fakeLogsAPI) CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	f.streams = append(f.streams, *params.LogStreamName)
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func (f *fakeLogsAPI) PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(params.LogEvents))
	for _, e := range params.LogEvents {
		lines = append(lines, *e.Message)
	}
	f.batches = append(f.batches, lines)
	return &cloudwatchlogs.PutLogEventsOutput{}, nil
}

func TestCloudWatchLogs_FlushesOnClose(t *testing.T) {
	api := &fakeLogsAPI{groupErr: &cwltypes.ResourceAlreadyExistsException{}}
	cw, err := aws_pkg.NewCloudWatchLogsClientWithAPI(context.Background(), api, "/markup/services", "markup-service-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"markup-service-1"}, api.streams)

	buf := []byte("line one")
	_, err = cw.Write(buf)
	require.NoError(t, err)
	copy(buf, "LINE")
	_, _ = cw.Write([]byte("line two"))

	require.NoError(t, cw.Close(context.Background()))

	api.mu.Lock()
	defer api.mu.Unlock()
	var all []string
	for _, b := range api.batches {
		all = append(all, b...)
	}
	assert.Equal(t, []string{"line one", "line two"}, all)
}

func TestCloudWatchLogs_GroupFailure(t *testing.T) {
	_, err := aws_pkg.NewCloudWatchLogsClientWithAPI(context.Background(), &fakeLogsAPI{groupErr: errors.New("denied")}, "g", "s")
	assert.Error(t, err)
}

func TestCloudWatchLogs_NilIsDisabled(t *testing.T) {
	var cw *aws_pkg.CloudWatchLogsClient
	assert.False(t, cw.IsEnabled())
	n, err := cw.Write([]byte("x"))
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, cw.Close(context.Background()))
}

func TestStartPolling_StopsWhileBackingOff(t *testing.T) {
	consumer := aws_pkg.NewSQSConsumer(&fakeSQS{err: errors.New("unreachable")}, "https://sqs/refresh", zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := consumer.StartPolling(ctx, func(ctx context.Context, body string) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
