package iot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/db"
	"liyu1981.xyz/iwown-health-service/pkg/models"
	"liyu1981.xyz/iwown-health-service/pkg/observability"
)

const (
	StoreStatusConnected    = "connected"
	StoreStatusDisconnected = "disconnected"

	storePingTimeout = 5 * time.Second
)

// device ids are collected from these collections
var deviceSources = []string{
	models.CollectionHealthData,
	models.CollectionDeviceInfo,
	models.CollectionStatus,
}

func (i *IOT) listDevices(ctx context.Context) ([]models.DeviceSummary, error) {
	ctx, span := observability.Tracer().Start(ctx, "iot.ListDevices")
	defer span.End()

	ids := map[string]struct{}{}
	for _, name := range deviceSources {
		values, err := i.Store.Collection(name).Distinct(ctx, "device_id", nil)
		if err != nil {
			return nil, fmt.Errorf("distinct device ids in %s: %w", name, err)
		}
		for _, v := range values {
			if v == nil {
				continue
			}
			ids[fmt.Sprint(NormalizeValue(v))] = struct{}{}
		}
	}

	infoColl := i.Store.Collection(models.CollectionDeviceInfo)
	statusColl := i.Store.Collection(models.CollectionStatus)

	sortedIDs := make([]string, 0, len(ids))
	for id := range ids {
		sortedIDs = append(sortedIDs, id)
	}
	slices.Sort(sortedIDs)

	devices := make([]models.DeviceSummary, 0, len(ids))
	for _, id := range sortedIDs {
		info, err := findOptional(ctx, infoColl, id)
		if err != nil {
			return nil, err
		}
		status, err := findOptional(ctx, statusColl, id)
		if err != nil {
			return nil, err
		}

		summary := models.DeviceSummary{
			ID:       id,
			Battery:  info["battery"],
			Status:   "unknown",
			LastSeen: status["last_update"],
			Firmware: info["firmware_version"],
			Model:    info["model"],
		}
		if s, ok := status["Status"]; ok {
			summary.Status = s
		}
		devices = append(devices, summary)
	}

	span.SetAttributes(attribute.Int("devices", len(devices)))
	return devices, nil
}

// findOptional returns the normalized document for deviceID, or nil when there is none.
func findOptional(ctx context.Context, coll db.Collection, deviceID string) (map[string]any, error) {
	doc, err := coll.FindOne(ctx, db.Filter{"device_id": deviceID})
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find %s for device %s: %w", coll.Name(), deviceID, err)
	}
	return NormalizeDocument(doc), nil
}

func (i *IOT) getStats(ctx context.Context) (*models.SystemStats, error) {
	ctx, span := observability.Tracer().Start(ctx, "iot.GetStats")
	defer span.End()

	devices, err := i.Store.Collection(models.CollectionDeviceInfo).Distinct(ctx, "device_id", nil)
	if err != nil {
		return nil, fmt.Errorf("count devices: %w", err)
	}
	online, err := i.Store.Collection(models.CollectionStatus).Count(ctx, db.Filter{"Status": "online"})
	if err != nil {
		return nil, fmt.Errorf("count online devices: %w", err)
	}
	falls, err := i.Store.Collection(models.CollectionAlarms).Count(ctx, db.Filter{"alarm_type": "fall_detected"})
	if err != nil {
		return nil, fmt.Errorf("count fall alerts: %w", err)
	}
	records, err := i.Store.Collection(models.CollectionHealthData).Count(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("count health records: %w", err)
	}

	// the averages stay fixed until health payloads are decoded
	return &models.SystemStats{
		TotalDevices:       int64(len(devices)),
		OnlineDevices:      online,
		FallAlerts:         falls,
		TotalHealthRecords: records,
		AvgHR:              0,
		AvgO2:              0,
		AvgHRV:             0,
		AvgStress:          0,
		AvgSleepHours:      7.5,
	}, nil
}

var historyTopics = []models.Topic{models.TopicHealth, models.TopicAlarm, models.TopicSOS}

func (i *IOT) getDeviceHistory(ctx context.Context, topic models.Topic, deviceID string) ([]map[string]any, error) {
	if !slices.Contains(historyTopics, topic) {
		return nil, fmt.Errorf("no history for topic %q", topic)
	}

	ctx, span := observability.Tracer().Start(ctx, "iot.GetDeviceHistory", oteltrace.WithAttributes(
		attribute.String("topic", string(topic)),
		attribute.String("device_id", deviceID),
	))
	defer span.End()

	docs, err := i.Store.Collection(topic.Collection()).Find(ctx,
		db.Filter{"device_id": deviceID},
		db.FindOptions{SortField: "timestamp", SortDesc: true, Limit: i.historyLimit()},
	)
	if err != nil {
		return nil, fmt.Errorf("find %s history for device %s: %w", topic, deviceID, err)
	}
	return common.Mapper(docs, NormalizeDocument), nil
}

func (i *IOT) storeStatus(ctx context.Context) string {
	logger := common.GetLoggerWith(
		common.LoggerNameIOTCore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTDashboard),
	)

	if i.Store == nil {
		return StoreStatusDisconnected
	}

	ctx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()

	if err := i.Store.Ping(ctx); err != nil {
		logger.Warn("Store ping failed", zap.String("store", i.Store.Name()), zap.Error(err))
		return StoreStatusDisconnected
	}
	return StoreStatusConnected
}

type IDashboardImpl struct {
	iot *IOT
}

func (id *IDashboardImpl) ListDevices(ctx context.Context) ([]models.DeviceSummary, error) {
	return id.iot.listDevices(ctx)
}

func (id *IDashboardImpl) GetStats(ctx context.Context) (*models.SystemStats, error) {
	return id.iot.getStats(ctx)
}

func (id *IDashboardImpl) GetDeviceHistory(ctx context.Context, topic models.Topic, deviceID string) ([]map[string]any, error) {
	return id.iot.getDeviceHistory(ctx, topic, deviceID)
}

func (id *IDashboardImpl) StoreStatus(ctx context.Context) string {
	return id.iot.storeStatus(ctx)
}

func (i *IOT) GetIDashboard() IDashboard {
	return &IDashboardImpl{iot: i}
}
