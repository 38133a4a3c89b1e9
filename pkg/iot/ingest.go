package iot

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/db"
	"liyu1981.xyz/iwown-health-service/pkg/models"
	"liyu1981.xyz/iwown-health-service/pkg/observability"
)

func (i *IOT) ingest(ctx context.Context, topic models.Topic, upload *models.Upload) (models.Record, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTIngest),
	)

	if !topic.Valid() {
		return nil, fmt.Errorf("unknown topic %q", topic)
	}

	ctx, span := observability.Tracer().Start(ctx, "iot.Ingest",
		oteltrace.WithAttributes(attribute.String("topic", string(topic))),
	)
	defer span.End()

	payload := ParsePayload(topic, upload)
	deviceID := ResolveDeviceID(upload.HeaderDeviceID, payload)
	span.SetAttributes(attribute.String("device_id", deviceID))

	logger.Info("Request received",
		zap.String("endpoint", upload.Endpoint),
		zap.String("device_id", deviceID),
		zap.Int("size", len(upload.Body)),
	)
	observability.UploadsTotal.WithLabelValues(string(topic)).Inc()

	if topic == models.TopicHealth && len(upload.Body) == 0 {
		return nil, nil
	}

	record := ShapeRecord(topic, deviceID, upload.Body, payload, i.now())
	if err := i.persist(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return record, fmt.Errorf("store %s record for device %s: %w", topic, deviceID, err)
	}

	if health, ok := record.(*models.HealthRecord); ok && i.PostProcessor != nil {
		job := models.HealthUpload{
			DeviceID:  health.DeviceID,
			Timestamp: health.Timestamp,
			Payload:   health.Payload,
		}
		if !i.PostProcessor.Enqueue(job) {
			logger.Warn("Health post-processing skipped", zap.String("device_id", deviceID))
		}
	}

	return record, nil
}

func (i *IOT) persist(ctx context.Context, record models.Record) error {
	coll := i.Store.Collection(record.Collection())
	if key := record.UpsertKey(); key != nil {
		return coll.Upsert(ctx, db.Filter(key), record.Document())
	}
	return coll.Insert(ctx, record.Document())
}

func (i *IOT) sleep(ctx context.Context, upload *models.Upload) (*models.SleepResult, error) {
	record, err := i.ingest(ctx, models.TopicSleep, upload)
	if err != nil {
		return nil, err
	}
	return record.(*models.SleepRecord).Result(), nil
}

type IIngestImpl struct {
	iot *IOT
}

func (ii *IIngestImpl) Ingest(ctx context.Context, topic models.Topic, upload *models.Upload) (models.Record, error) {
	return ii.iot.ingest(ctx, topic, upload)
}

func (ii *IIngestImpl) Sleep(ctx context.Context, upload *models.Upload) (*models.SleepResult, error) {
	return ii.iot.sleep(ctx, upload)
}

func (i *IOT) GetIIngest() IIngest {
	return &IIngestImpl{iot: i}
}
