package iot

import (
	"maps"
	"math"
	"mime"
	"strconv"
	"strings"
	"time"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/models"
)

func IsJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// ParsePayload returns the upload's JSON object, or nil when the upload is not
// declared as JSON, does not parse, or is an empty object. Health uploads are
// always opaque.
func ParsePayload(topic models.Topic, upload *models.Upload) map[string]any {
	if topic == models.TopicHealth || !IsJSONContentType(upload.ContentType) {
		return nil
	}
	obj, err := common.DecodeJSONObject(upload.Body)
	if err != nil || len(obj) == 0 {
		return nil
	}
	return obj
}

// ResolveDeviceID prefers the DeviceId header, then the payload's deviceid or
// DeviceId field.
func ResolveDeviceID(header string, payload map[string]any) string {
	if id := strings.TrimSpace(header); id != "" {
		return id
	}
	for _, key := range []string{"deviceid", "DeviceId"} {
		if id := idString(payload[key]); id != "" {
			return id
		}
	}
	return common.UnknownDeviceID
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// ShapeRecord turns one upload into the record stored for topic. It never fails:
// anything it cannot use falls back to defaults or is left out.
func ShapeRecord(topic models.Topic, deviceID string, body []byte, payload map[string]any, now time.Time) models.Record {
	utc := now.UTC()
	timestamp := common.FormatTimestamp(utc)

	switch topic {
	case models.TopicHealth:
		return &models.HealthRecord{
			DeviceID:  deviceID,
			Timestamp: timestamp,
			Payload:   body,
			CreatedAt: utc,
		}
	case models.TopicAlarm, models.TopicSOS:
		return &models.EventRecord{
			Topic:     topic,
			DeviceID:  deviceID,
			Timestamp: timestamp,
			CreatedAt: utc,
			Extra:     payload,
			Raw:       body,
		}
	case models.TopicDeviceInfo:
		rec := &models.DeviceInfoRecord{
			DeviceID:  deviceID,
			UpdatedAt: utc,
			Extra:     payload,
		}
		if payload == nil {
			rec.Raw = body
			rec.Timestamp = timestamp
		}
		return rec
	case models.TopicStatus:
		// non-JSON status bodies are dropped, not hex-encoded
		extra := map[string]any{}
		maps.Copy(extra, payload)
		return &models.StatusRecord{
			DeviceID:   deviceID,
			LastUpdate: timestamp,
			UpdatedAt:  utc,
			Extra:      extra,
		}
	case models.TopicSleep:
		return ShapeSleep(deviceID, payload, now)
	default:
		return nil
	}
}

var (
	sleepIntFields = map[string]func(*models.SleepMetrics) *int64{
		"deep_sleep":    func(m *models.SleepMetrics) *int64 { return &m.DeepSleep },
		"light_sleep":   func(m *models.SleepMetrics) *int64 { return &m.LightSleep },
		"weak_sleep":    func(m *models.SleepMetrics) *int64 { return &m.WeakSleep },
		"eyemove_sleep": func(m *models.SleepMetrics) *int64 { return &m.EyemoveSleep },
		"score":         func(m *models.SleepMetrics) *int64 { return &m.Score },
		"osahs_risk":    func(m *models.SleepMetrics) *int64 { return &m.OsahsRisk },
		"spo2_score":    func(m *models.SleepMetrics) *int64 { return &m.Spo2Score },
		"sleep_hr":      func(m *models.SleepMetrics) *int64 { return &m.SleepHR },
	}
	sleepStringFields = map[string]func(*models.SleepMetrics) *string{
		"start_time": func(m *models.SleepMetrics) *string { return &m.StartTime },
		"end_time":   func(m *models.SleepMetrics) *string { return &m.EndTime },
	}
)

// ShapeSleep starts from the default night and overrides every field the payload
// supplies with a value of the right type. Values of the wrong type are ignored.
func ShapeSleep(deviceID string, payload map[string]any, now time.Time) *models.SleepRecord {
	rec := &models.SleepRecord{
		DeviceID:     deviceID,
		SleepDate:    now.Local().Format(common.SleepDateLayout),
		SleepMetrics: models.DefaultSleepMetrics(),
		UpdatedAt:    now.UTC(),
		Extra:        map[string]any{},
	}

	for key, value := range payload {
		if field, ok := sleepIntFields[key]; ok {
			if n, ok := wholeNumber(value); ok {
				*field(&rec.SleepMetrics) = n
			}
			continue
		}
		if field, ok := sleepStringFields[key]; ok {
			if s, ok := value.(string); ok {
				*field(&rec.SleepMetrics) = s
			}
			continue
		}
		switch key {
		case "sleep_date":
			if s, ok := value.(string); ok && s != "" {
				rec.SleepDate = s
			}
		case "device_id", "updated_at":
		default:
			rec.Extra[key] = value
		}
	}
	return rec
}

func wholeNumber(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
		if t == math.Trunc(t) && t >= math.MinInt64 && t < math.MaxInt64 {
			return int64(t), true
		}
	}
	return 0, false
}
