package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const (
	logBatchSize     = 100
	logFlushInterval = 2 * time.Second
	logBufferSize    = 1024
)

// LogsAPI is the subset of the CloudWatch Logs client used for shipping.
type LogsAPI interface {
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchLogsClient ships log lines to one log stream. It implements
// io.Writer so it can be tee'd into the zap core. Writes never block: lines
// are batched by a background loop and dropped when the buffer is full.
type CloudWatchLogsClient struct {
	api     LogsAPI
	group   string
	stream  string
	enabled bool

	events    chan types.InputLogEvent
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Int64
}

// NewCloudWatchLogsClient creates the shipper when CLOUDWATCH_ENABLED=true.
// The log group (CLOUDWATCH_LOG_GROUP, default /markup/services) and a fresh
// stream named after serviceName are created up front.
func NewCloudWatchLogsClient(ctx context.Context, cfg sdkaws.Config, serviceName string) (*CloudWatchLogsClient, error) {
	if os.Getenv("CLOUDWATCH_ENABLED") != "true" {
		return &CloudWatchLogsClient{}, nil
	}

	endpoint := Endpoint("CLOUDWATCH")
	api := cloudwatchlogs.NewFromConfig(cfg, func(o *cloudwatchlogs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = sdkaws.String(endpoint)
		}
	})

	group := os.Getenv("CLOUDWATCH_LOG_GROUP")
	if group == "" {
		group = "/markup/services"
	}
	stream := fmt.Sprintf("%s-%d", serviceName, time.Now().Unix())
	return NewCloudWatchLogsClientWithAPI(ctx, api, group, stream)
}

// NewCloudWatchLogsClientWithAPI prepares group and stream and starts the
// flush loop. Call Close to flush what is buffered.
func NewCloudWatchLogsClientWithAPI(ctx context.Context, api LogsAPI, group, stream string) (*CloudWatchLogsClient, error) {
	c := &CloudWatchLogsClient{
		api:     api,
		group:   group,
		stream:  stream,
		enabled: true,
		events:  make(chan types.InputLogEvent, logBufferSize),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if err := c.prepare(ctx); err != nil {
		return nil, err
	}
	go c.run()
	return c, nil
}

func (c *CloudWatchLogsClient) prepare(ctx context.Context) error {
	_, err := c.api.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: sdkaws.String(c.group)})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log group %s: %w", c.group, err)
	}
	if _, err := c.api.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    sdkaws.String(c.group),
		RetentionInDays: sdkaws.Int32(14),
	}); err != nil {
		return fmt.Errorf("failed to set retention on %s: %w", c.group, err)
	}
	if _, err := c.api.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  sdkaws.String(c.group),
		LogStreamName: sdkaws.String(c.stream),
	}); err != nil {
		return fmt.Errorf("failed to create log stream %s: %w", c.stream, err)
	}
	return nil
}

// Write implements io.Writer.
func (c *CloudWatchLogsClient) Write(p []byte) (int, error) {
	if !c.IsEnabled() {
		return len(p), nil
	}
	// zap reuses p after Write returns.
	event := types.InputLogEvent{
		Message:   sdkaws.String(string(p)),
		Timestamp: sdkaws.Int64(time.Now().UnixMilli()),
	}
	select {
	case c.events <- event:
	default:
		c.dropped.Add(1)
	}
	return len(p), nil
}

func (c *CloudWatchLogsClient) run() {
	defer close(c.done)
	ticker := time.NewTicker(logFlushInterval)
	defer ticker.Stop()

	batch := make([]types.InputLogEvent, 0, logBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := c.api.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  sdkaws.String(c.group),
			LogStreamName: sdkaws.String(c.stream),
			LogEvents:     batch,
		})
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cloudwatch logs: dropped %d events: %v\n", len(batch), err)
		}
		batch = make([]types.InputLogEvent, 0, logBatchSize)
	}

	for {
		select {
		case e := <-c.events:
			batch = append(batch, e)
			if len(batch) >= logBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-c.stop:
			for {
				select {
				case e := <-c.events:
					batch = append(batch, e)
					if len(batch) >= logBatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close flushes buffered lines. Lines written afterwards are discarded.
func (c *CloudWatchLogsClient) Close(ctx context.Context) error {
	if !c.IsEnabled() {
		return nil
	}
	c.closeOnce.Do(func() { close(c.stop) })
	select {
	case <-c.done:
		if n := c.dropped.Load(); n > 0 {
			return fmt.Errorf("cloudwatch logs: %d lines dropped on a full buffer", n)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsEnabled reports whether lines are shipped. Safe on a nil client.
func (c *CloudWatchLogsClient) IsEnabled() bool {
	return c != nil && c.enabled
}
