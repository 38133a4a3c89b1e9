package iot

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/models"
	_ "liyu1981.xyz/iwown-health-service/pkg/testing"
)

func TestResolveDeviceID(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		payload map[string]any
		want    string
	}{
		{"header wins", "hdr-1", map[string]any{"deviceid": "json-1"}, "hdr-1"},
		{"lowercase json field", "", map[string]any{"deviceid": "json-1", "DeviceId": "json-2"}, "json-1"},
		{"camel json field", " ", map[string]any{"DeviceId": "json-2"}, "json-2"},
		{"numeric id", "", map[string]any{"deviceid": int64(860123)}, "860123"},
		{"empty string falls through", "", map[string]any{"deviceid": "", "DeviceId": "json-2"}, "json-2"},
		{"nothing", "", nil, common.UnknownDeviceID},
		{"unsupported type", "", map[string]any{"deviceid": []any{"x"}}, common.UnknownDeviceID},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ResolveDeviceID(c.header, c.payload))
		})
	}
}

func TestIsJSONContentType(t *testing.T) {
	assert.True(t, IsJSONContentType("application/json"))
	assert.True(t, IsJSONContentType("application/json; charset=utf-8"))
	assert.False(t, IsJSONContentType("application/octet-stream"))
	assert.False(t, IsJSONContentType("text/plain"))
	assert.False(t, IsJSONContentType(""))
}

func TestParsePayload(t *testing.T) {
	jsonUpload := func(body string) *models.Upload {
		return &models.Upload{ContentType: "application/json", Body: []byte(body)}
	}

	assert.Equal(t, map[string]any{"alarm_type": "fall_detected", "level": int64(2)},
		ParsePayload(models.TopicAlarm, jsonUpload(`{"alarm_type":"fall_detected","level":2}`)))

	assert.Nil(t, ParsePayload(models.TopicHealth, jsonUpload(`{"a":1}`)), "health payloads are opaque")
	assert.Nil(t, ParsePayload(models.TopicAlarm, jsonUpload(`{"a":`)), "broken JSON")
	assert.Nil(t, ParsePayload(models.TopicAlarm, jsonUpload(`[1,2]`)), "not an object")
	assert.Nil(t, ParsePayload(models.TopicAlarm, jsonUpload(`{}`)), "empty object")
	assert.Nil(t, ParsePayload(models.TopicAlarm, &models.Upload{ContentType: "text/plain", Body: []byte(`{"a":1}`)}))
}

func TestShapeHealth_HexRoundTrip(t *testing.T) {
	body := []byte{0x0a, 0x00, 0xff, 0x10, 0x7f}
	rec := ShapeRecord(models.TopicHealth, "dev-1", body, nil, testNow)
	require.IsType(t, &models.HealthRecord{}, rec)
	assert.Nil(t, rec.UpsertKey())
	assert.Equal(t, models.CollectionHealthData, rec.Collection())

	doc := rec.Document()
	assert.Equal(t, "0a00ff107f", doc["raw_hex"])
	assert.Equal(t, len(body), doc["size"])
	assert.Contains(t, doc, "decoded")
	assert.Nil(t, doc["decoded"])
	assert.Equal(t, "2025-03-01T08:30:00.123456+00:00", doc["timestamp"])

	back, err := hex.DecodeString(doc["raw_hex"].(string))
	require.NoError(t, err)
	assert.Equal(t, body, back)
}

func TestShapeAlarmAndSOS(t *testing.T) {
	for _, topic := range []models.Topic{models.TopicAlarm, models.TopicSOS} {
		withJSON := ShapeRecord(topic, "dev-1", nil, map[string]any{
			"alarm_type": "fall_detected",
			"device_id":  "spoofed",
			"timestamp":  "device-clock",
		}, testNow)
		assert.Equal(t, topic.Collection(), withJSON.Collection())
		assert.Nil(t, withJSON.UpsertKey())

		doc := withJSON.Document()
		assert.Equal(t, "fall_detected", doc["alarm_type"])
		assert.Equal(t, "dev-1", doc["device_id"])
		assert.Equal(t, common.FormatTimestamp(testNow), doc["timestamp"])
		assert.Equal(t, testNow, doc["created_at"])
		assert.NotContains(t, doc, "raw_hex")

		raw := ShapeRecord(topic, "dev-1", []byte{0xde, 0xad}, nil, testNow).Document()
		assert.Equal(t, "dead", raw["raw_hex"])
		assert.Len(t, raw, 4)
	}
}

func TestShapeDeviceInfo(t *testing.T) {
	rec := ShapeRecord(models.TopicDeviceInfo, "dev-1", nil, map[string]any{
		"battery":          int64(80),
		"firmware_version": "1.2.3",
		"device_id":        "spoofed",
	}, testNow)
	assert.Equal(t, models.Document{"device_id": "dev-1"}, rec.UpsertKey())

	doc := rec.Document()
	assert.Equal(t, int64(80), doc["battery"])
	assert.Equal(t, "1.2.3", doc["firmware_version"])
	assert.Equal(t, "dev-1", doc["device_id"])
	assert.Equal(t, testNow, doc["updated_at"])
	assert.NotContains(t, doc, "raw_hex")

	raw := ShapeRecord(models.TopicDeviceInfo, "dev-1", []byte("xyz"), nil, testNow).Document()
	assert.Equal(t, hex.EncodeToString([]byte("xyz")), raw["raw_hex"])
	assert.Equal(t, common.FormatTimestamp(testNow), raw["timestamp"])
}

func TestShapeStatus(t *testing.T) {
	doc := ShapeRecord(models.TopicStatus, "dev-1", nil, map[string]any{"Status": "online", "battery_level": int64(40)}, testNow).Document()
	assert.Equal(t, "online", doc["Status"])
	assert.Equal(t, int64(40), doc["battery_level"])
	assert.Equal(t, common.FormatTimestamp(testNow), doc["last_update"])

	// raw status bodies are not kept
	raw := ShapeRecord(models.TopicStatus, "dev-1", []byte{0x01, 0x02}, nil, testNow).Document()
	assert.Equal(t, models.Document{
		"device_id":   "dev-1",
		"last_update": common.FormatTimestamp(testNow),
		"updated_at":  testNow,
	}, raw)
}

func TestShapeSleep(t *testing.T) {
	defaults := models.DefaultSleepMetrics()

	rec := ShapeSleep("dev-1", map[string]any{"score": int64(90)}, testNow)
	assert.Equal(t, testNow.Local().Format(common.SleepDateLayout), rec.SleepDate)
	assert.Equal(t, int64(90), rec.Score)

	expected := defaults
	expected.Score = 90
	assert.Equal(t, expected, rec.SleepMetrics)
	assert.Equal(t, models.Document{"device_id": "dev-1", "sleep_date": rec.SleepDate}, rec.UpsertKey())

	rec = ShapeSleep("dev-1", map[string]any{
		"sleep_date":  "2025-02-28",
		"start_time":  "23:15:00",
		"deep_sleep":  float64(95),
		"sleep_hr":    "fast",
		"light_sleep": 12.5,
		"vendor_tag":  "x",
		"device_id":   "spoofed",
	}, testNow)
	assert.Equal(t, "2025-02-28", rec.SleepDate)
	assert.Equal(t, "23:15:00", rec.StartTime)
	assert.Equal(t, int64(95), rec.DeepSleep)
	assert.Equal(t, defaults.SleepHR, rec.SleepHR, "ill-typed values are ignored")
	assert.Equal(t, defaults.LightSleep, rec.LightSleep, "fractional minutes are ignored")

	doc := rec.Document()
	assert.Equal(t, "dev-1", doc["device_id"])
	assert.Equal(t, "x", doc["vendor_tag"])

	result := rec.Result()
	assert.Equal(t, "dev-1", result.DeviceID)
	assert.Equal(t, "2025-02-28", result.SleepDate)

	rec = ShapeSleep("dev-1", map[string]any{"score": 1e20, "sleep_hr": -1e20}, testNow)
	assert.Equal(t, defaults.Score, rec.Score, "whole numbers beyond int64 are ignored")
	assert.Equal(t, defaults.SleepHR, rec.SleepHR)

	for _, raw := range []string{`{"score":1e20}`, `{"score":12345678901234567890}`, `{"score":9223372036854775808}`} {
		payload, err := common.DecodeJSONObject([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, int64(85), ShapeSleep("dev-1", payload, testNow).Score, raw)
	}
}

func TestShapeSleep_Defaults(t *testing.T) {
	rec := ShapeSleep("dev-1", nil, testNow)
	assert.Equal(t, models.SleepMetrics{
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
	}, rec.SleepMetrics)
}
