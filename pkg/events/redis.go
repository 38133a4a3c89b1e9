package events

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"liyu1981.xyz/iwown-health-service/pkg/common"
)

const redisStreamMaxLen int64 = 100000

type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisStreamPublisher appends every event to a Redis stream with XADD.
type RedisStreamPublisher struct {
	client streamClient
	stream string
}

func NewRedisStreamPublisher(url, stream string) (*RedisStreamPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	common.GetLoggerWith(common.LoggerNameEvents).Info("Publishing health uploads to redis stream",
		zap.String("addr", opts.Addr),
		zap.String("stream", stream),
	)
	return &RedisStreamPublisher{client: redis.NewClient(opts), stream: stream}, nil
}

func (p *RedisStreamPublisher) Name() string {
	return "redis:" + p.stream
}

func (p *RedisStreamPublisher) Publish(ctx context.Context, evt HealthUploadEvent) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: redisStreamMaxLen,
		Approx: true,
		Values: map[string]any{
			"device_id": evt.DeviceID,
			"timestamp": evt.Timestamp,
			"size":      strconv.Itoa(evt.Size),
			"raw_hex":   evt.RawHex,
		},
	}).Err()
}

func (p *RedisStreamPublisher) Close() error {
	return p.client.Close()
}
