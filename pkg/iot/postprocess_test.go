package iot

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zapcore"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/events"
	eventmocks "liyu1981.xyz/iwown-health-service/pkg/events/mocks"
	"liyu1981.xyz/iwown-health-service/pkg/models"
	"liyu1981.xyz/iwown-health-service/pkg/observability"
	_ "liyu1981.xyz/iwown-health-service/pkg/testing"
)

func jobCount(result string) float64 {
	return testutil.ToFloat64(observability.PostProcessJobsTotal.WithLabelValues(result))
}

func TestPostProcessor_Publishes(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	job := models.HealthUpload{DeviceID: "dev-1", Timestamp: common.FormatTimestamp(testNow), Payload: []byte{0x0a, 0x0b}}

	publisher := eventmocks.NewMockPublisher(ctrl)
	publisher.EXPECT().
		Publish(gomock.Any(), gomock.Eq(events.HealthUploadEvent{
			DeviceID:  "dev-1",
			Timestamp: job.Timestamp,
			RawHex:    hex.EncodeToString(job.Payload),
			Size:      2,
		})).
		Return(nil).
		Times(1)
	publisher.EXPECT().Close().Return(nil).Times(1)

	before := jobCount(observability.JobResultProcessed)

	pp := NewPostProcessor(2, 4, nil, publisher)
	pp.Start(context.Background())
	assert.True(t, pp.Enqueue(job))
	pp.Stop()

	assert.Equal(t, before+1, jobCount(observability.JobResultProcessed))
}

func TestPostProcessor_DropsWhenFull(t *testing.T) {
	common.SetTestLoggerNop()

	before := jobCount(observability.JobResultDropped)

	// not started, so nothing drains the queue
	pp := NewPostProcessor(1, 1, nil)
	assert.True(t, pp.Enqueue(models.HealthUpload{DeviceID: "dev-1"}))
	assert.False(t, pp.Enqueue(models.HealthUpload{DeviceID: "dev-1"}))

	assert.Equal(t, before+1, jobCount(observability.JobResultDropped))
}

func TestPostProcessor_RejectsAfterStop(t *testing.T) {
	common.SetTestLoggerNop()

	pp := NewPostProcessor(1, 8, nil)
	pp.Start(context.Background())
	pp.Stop()
	pp.Stop()

	assert.False(t, pp.Enqueue(models.HealthUpload{DeviceID: "dev-1"}))
}

func TestPostProcessor_Throttles(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	publisher := eventmocks.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	publisher.EXPECT().Close().Return(nil).Times(1)

	before := jobCount(observability.JobResultThrottled)

	// one token and no refill
	pp := NewPostProcessor(1, 4, NewRateLimiterStore(0, 1), publisher)
	pp.Start(context.Background())
	require.True(t, pp.Enqueue(models.HealthUpload{DeviceID: "dev-1"}))
	require.True(t, pp.Enqueue(models.HealthUpload{DeviceID: "dev-1"}))
	pp.Stop()

	assert.Equal(t, before+1, jobCount(observability.JobResultThrottled))
}

func TestPostProcessor_PublishFailureAndPanic(t *testing.T) {
	var buf bytes.Buffer
	common.SetTestCaptureLogger(&buf, zapcore.InfoLevel)
	defer common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	publisher := eventmocks.NewMockPublisher(ctrl)
	gomock.InOrder(
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")),
		publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, events.HealthUploadEvent) error {
				panic("bad payload")
			},
		),
	)
	publisher.EXPECT().Name().Return("redis").AnyTimes()
	publisher.EXPECT().Close().Return(errors.New("already closed")).Times(1)

	before := jobCount(observability.JobResultFailed)

	pp := NewPostProcessor(1, 4, nil, publisher)
	pp.Start(context.Background())
	require.True(t, pp.Enqueue(models.HealthUpload{DeviceID: "dev-1"}))
	require.True(t, pp.Enqueue(models.HealthUpload{DeviceID: "dev-2"}))
	pp.Stop()

	assert.Equal(t, before+2, jobCount(observability.JobResultFailed))

	logs := ParseLogs(&buf)
	publishErr := findLog(logs, "Error publishing health upload")
	require.NotNil(t, publishErr)
	assert.Equal(t, "dev-1", publishErr["device_id"])
	assert.Equal(t, "broker down", publishErr["error"])

	recovered := findLog(logs, "Error processing health data")
	require.NotNil(t, recovered)
	assert.Equal(t, "dev-2", recovered["device_id"])

	assert.NotNil(t, findLog(logs, "Error closing publisher"))
}
