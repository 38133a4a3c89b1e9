package models

import (
	"encoding/hex"
	"maps"
	"time"
)

// Document is the store-facing representation of a record.
type Document map[string]any

type Topic string

const (
	TopicHealth     Topic = "health"
	TopicAlarm      Topic = "alarm"
	TopicSOS        Topic = "sos"
	TopicDeviceInfo Topic = "device_info"
	TopicStatus     Topic = "status"
	TopicSleep      Topic = "sleep"
)

const (
	CollectionHealthData = "health_data"
	CollectionAlarms     = "alarms"
	CollectionSosCalls   = "sos_calls"
	CollectionDeviceInfo = "device_info"
	CollectionStatus     = "status"
	CollectionSleepData  = "sleep_data"
)

var Collections = []string{
	CollectionHealthData,
	CollectionAlarms,
	CollectionSosCalls,
	CollectionDeviceInfo,
	CollectionStatus,
	CollectionSleepData,
}

var topicCollections = map[Topic]string{
	TopicHealth:     CollectionHealthData,
	TopicAlarm:      CollectionAlarms,
	TopicSOS:        CollectionSosCalls,
	TopicDeviceInfo: CollectionDeviceInfo,
	TopicStatus:     CollectionStatus,
	TopicSleep:      CollectionSleepData,
}

func (t Topic) Collection() string {
	return topicCollections[t]
}

func (t Topic) Valid() bool {
	_, ok := topicCollections[t]
	return ok
}

// Upload is one device request as seen by the ingestion pipeline.
type Upload struct {
	Endpoint       string
	HeaderDeviceID string
	ContentType    string
	Body           []byte
}

type Record interface {
	Collection() string
	Document() Document
	// UpsertKey returns nil for append-only records.
	UpsertKey() Document
}

type HealthRecord struct {
	DeviceID  string
	Timestamp string
	Payload   []byte
	CreatedAt time.Time
}

func (r *HealthRecord) Collection() string { return CollectionHealthData }
func (r *HealthRecord) UpsertKey() Document { return nil }

func (r *HealthRecord) Document() Document {
	return Document{
		"device_id":  r.DeviceID,
		"timestamp":  r.Timestamp,
		"raw_hex":    hex.EncodeToString(r.Payload),
		"decoded":    nil,
		"size":       len(r.Payload),
		"created_at": r.CreatedAt,
	}
}

// EventRecord is an alarm or SOS/call-log entry.
type EventRecord struct {
	Topic     Topic
	DeviceID  string
	Timestamp string
	CreatedAt time.Time
	// Extra carries the device JSON payload; nil means the body was not JSON.
	Extra map[string]any
	Raw   []byte
}

func (r *EventRecord) Collection() string { return r.Topic.Collection() }
func (r *EventRecord) UpsertKey() Document { return nil }

func (r *EventRecord) Document() Document {
	doc := Document{}
	if r.Extra != nil {
		maps.Copy(doc, r.Extra)
	} else {
		doc["raw_hex"] = hex.EncodeToString(r.Raw)
	}
	doc["device_id"] = r.DeviceID
	doc["timestamp"] = r.Timestamp
	doc["created_at"] = r.CreatedAt
	return doc
}

type DeviceInfoRecord struct {
	DeviceID  string
	UpdatedAt time.Time
	Extra     map[string]any
	// Raw and Timestamp are only used when the body was not JSON.
	Raw       []byte
	Timestamp string
}

func (r *DeviceInfoRecord) Collection() string { return CollectionDeviceInfo }

func (r *DeviceInfoRecord) UpsertKey() Document {
	return Document{"device_id": r.DeviceID}
}

func (r *DeviceInfoRecord) Document() Document {
	doc := Document{"updated_at": r.UpdatedAt}
	if r.Extra != nil {
		maps.Copy(doc, r.Extra)
	} else {
		doc["raw_hex"] = hex.EncodeToString(r.Raw)
		doc["timestamp"] = r.Timestamp
	}
	doc["device_id"] = r.DeviceID
	return doc
}

type StatusRecord struct {
	DeviceID   string
	LastUpdate string
	UpdatedAt  time.Time
	Extra      map[string]any
}

func (r *StatusRecord) Collection() string { return CollectionStatus }

func (r *StatusRecord) UpsertKey() Document {
	return Document{"device_id": r.DeviceID}
}

func (r *StatusRecord) Document() Document {
	doc := Document{
		"last_update": r.LastUpdate,
		"updated_at":  r.UpdatedAt,
	}
	maps.Copy(doc, r.Extra)
	doc["device_id"] = r.DeviceID
	return doc
}

// SleepMetrics are the per-night values reported back to the device.
type SleepMetrics struct {
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	DeepSleep    int64  `json:"deep_sleep"`
	LightSleep   int64  `json:"light_sleep"`
	WeakSleep    int64  `json:"weak_sleep"`
	EyemoveSleep int64  `json:"eyemove_sleep"`
	Score        int64  `json:"score"`
	OsahsRisk    int64  `json:"osahs_risk"`
	Spo2Score    int64  `json:"spo2_score"`
	SleepHR      int64  `json:"sleep_hr"`
}

// DefaultSleepMetrics is the placeholder night used until device telemetry is decoded.
func DefaultSleepMetrics() SleepMetrics {
	return SleepMetrics{
		StartTime:    "22:00:00",
		EndTime:      "06:00:00",
		DeepSleep:    120,
		LightSleep:   280,
		WeakSleep:    20,
		EyemoveSleep: 30,
		Score:        85,
		OsahsRisk:    0,
		Spo2Score:    0,
		SleepHR:      65,
	}
}

type SleepRecord struct {
	DeviceID  string
	SleepDate string
	SleepMetrics
	UpdatedAt time.Time
	Extra     map[string]any
}

func (r *SleepRecord) Collection() string { return CollectionSleepData }

func (r *SleepRecord) UpsertKey() Document {
	return Document{"device_id": r.DeviceID, "sleep_date": r.SleepDate}
}

func (r *SleepRecord) Document() Document {
	doc := Document{}
	maps.Copy(doc, r.Extra)
	doc["device_id"] = r.DeviceID
	doc["sleep_date"] = r.SleepDate
	doc["start_time"] = r.StartTime
	doc["end_time"] = r.EndTime
	doc["deep_sleep"] = r.DeepSleep
	doc["light_sleep"] = r.LightSleep
	doc["weak_sleep"] = r.WeakSleep
	doc["eyemove_sleep"] = r.EyemoveSleep
	doc["score"] = r.Score
	doc["osahs_risk"] = r.OsahsRisk
	doc["spo2_score"] = r.Spo2Score
	doc["sleep_hr"] = r.SleepHR
	doc["updated_at"] = r.UpdatedAt
	return doc
}

func (r *SleepRecord) Result() *SleepResult {
	return &SleepResult{
		DeviceID:     r.DeviceID,
		SleepDate:    r.SleepDate,
		SleepMetrics: r.SleepMetrics,
	}
}

type SleepResult struct {
	DeviceID  string `json:"deviceid"`
	SleepDate string `json:"sleep_date"`
	SleepMetrics
}

// SleepResponse is what /4g/health/sleep answers; Data is an empty object on failure.
type SleepResponse struct {
	ReturnCode int `json:"ReturnCode"`
	Data       any `json:"Data"`
}

type DeviceSummary struct {
	ID       string `json:"id"`
	Battery  any    `json:"battery"`
	Status   any    `json:"status"`
	LastSeen any    `json:"last_seen"`
	Firmware any    `json:"firmware"`
	Model    any    `json:"model"`
}

type SystemStats struct {
	TotalDevices       int64   `json:"total_devices"`
	OnlineDevices      int64   `json:"online_devices"`
	FallAlerts         int64   `json:"fall_alerts"`
	TotalHealthRecords int64   `json:"total_health_records"`
	AvgHR              int64   `json:"avg_hr"`
	AvgO2              int64   `json:"avg_o2"`
	AvgHRV             int64   `json:"avg_hrv"`
	AvgStress          int64   `json:"avg_stress"`
	AvgSleepHours      float64 `json:"avg_sleep_hours"`
}

// APIResponse is the dashboard envelope.
type APIResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Timestamp string `json:"timestamp"`
}

// HealthUpload is a post-processing job for one stored health upload.
type HealthUpload struct {
	DeviceID  string
	Timestamp string
	Payload   []byte
}

func NewAPIResponse(message string, data any, timestamp string) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: timestamp,
	}
}
