package iot

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zapcore"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/db"
	dbmocks "liyu1981.xyz/iwown-health-service/pkg/db/mocks"
	"liyu1981.xyz/iwown-health-service/pkg/models"
	_ "liyu1981.xyz/iwown-health-service/pkg/testing"
)

func jsonUpload(deviceID, body string) *models.Upload {
	return &models.Upload{HeaderDeviceID: deviceID, ContentType: "application/json", Body: []byte(body)}
}

func TestIngestHealth(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, mockPostProcessor := GetMockIOTWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	deviceID := uuid.NewString()
	payload := []byte{0x08, 0x96, 0x01, 0x00, 0xff}

	mockPostProcessor.EXPECT().
		Enqueue(gomock.Eq(models.HealthUpload{
			DeviceID:  deviceID,
			Timestamp: common.FormatTimestamp(testNow),
			Payload:   payload,
		})).
		Return(true).
		Times(1)

	rec, err := iotObj.Ingest.Ingest(context.Background(), models.TopicHealth, &models.Upload{
		Endpoint:       "/4g/pb/upload",
		HeaderDeviceID: deviceID,
		ContentType:    "application/octet-stream",
		Body:           payload,
	})
	require.NoError(t, err)
	require.NotNil(t, rec)

	doc, err := iotObj.Store.Collection(models.CollectionHealthData).FindOne(context.Background(), db.Filter{"device_id": deviceID})
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(payload), doc["raw_hex"])
	assert.Equal(t, int64(len(payload)), doc["size"])
	assert.Nil(t, doc["decoded"])

	stored, err := hex.DecodeString(doc["raw_hex"].(string))
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
}

func TestIngestHealth_EmptyBodyIsNotStored(t *testing.T) {
	common.SetTestLoggerNop()

	// no Enqueue expectation: the mock fails the test if it is called
	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	rec, err := iotObj.Ingest.Ingest(context.Background(), models.TopicHealth, &models.Upload{HeaderDeviceID: "dev-1"})
	assert.NoError(t, err)
	assert.Nil(t, rec)

	n, err := iotObj.Store.Collection(models.CollectionHealthData).Count(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestIngestDeviceInfoAndStatus_UpsertKeepsOneRow(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	ctx := context.Background()
	deviceID := uuid.NewString()

	_, err := iotObj.Ingest.Ingest(ctx, models.TopicDeviceInfo, jsonUpload(deviceID, `{"battery":90,"model":"V8","firmware_version":"1.0"}`))
	require.NoError(t, err)
	_, err = iotObj.Ingest.Ingest(ctx, models.TopicDeviceInfo, jsonUpload(deviceID, `{"battery":42,"firmware_version":"1.1"}`))
	require.NoError(t, err)

	_, err = iotObj.Ingest.Ingest(ctx, models.TopicStatus, jsonUpload(deviceID, `{"Status":"offline"}`))
	require.NoError(t, err)
	_, err = iotObj.Ingest.Ingest(ctx, models.TopicStatus, jsonUpload(deviceID, `{"Status":"online","signal_strength":3}`))
	require.NoError(t, err)

	info := iotObj.Store.Collection(models.CollectionDeviceInfo)
	n, err := info.Count(ctx, db.Filter{"device_id": deviceID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	doc, err := info.FindOne(ctx, db.Filter{"device_id": deviceID})
	require.NoError(t, err)
	assert.Equal(t, int64(42), doc["battery"])
	assert.Equal(t, "1.1", doc["firmware_version"])
	assert.NotContains(t, doc, "model")

	status := iotObj.Store.Collection(models.CollectionStatus)
	n, err = status.Count(ctx, db.Filter{"device_id": deviceID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	doc, err = status.FindOne(ctx, db.Filter{"device_id": deviceID})
	require.NoError(t, err)
	assert.Equal(t, "online", doc["Status"])
	assert.Equal(t, int64(3), doc["signal_strength"])
}

func TestIngestDeviceIDFromPayload(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	ctx := context.Background()
	deviceID := uuid.NewString()

	_, err := iotObj.Ingest.Ingest(ctx, models.TopicAlarm, jsonUpload("", `{"deviceid":"`+deviceID+`","alarm_type":"fall_detected"}`))
	require.NoError(t, err)
	_, err = iotObj.Ingest.Ingest(ctx, models.TopicSOS, &models.Upload{Body: []byte{0x01}})
	require.NoError(t, err)

	n, err := iotObj.Store.Collection(models.CollectionAlarms).Count(ctx, db.Filter{"device_id": deviceID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = iotObj.Store.Collection(models.CollectionSosCalls).Count(ctx, db.Filter{"device_id": common.UnknownDeviceID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIngestSleep(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	ctx := context.Background()
	deviceID := uuid.NewString()

	result, err := iotObj.Ingest.Sleep(ctx, jsonUpload(deviceID, `{"score":90}`))
	require.NoError(t, err)

	sleepDate := testNow.Local().Format(common.SleepDateLayout)
	expected := models.DefaultSleepMetrics()
	expected.Score = 90
	assert.Equal(t, &models.SleepResult{DeviceID: deviceID, SleepDate: sleepDate, SleepMetrics: expected}, result)

	// a second poll for the same night replaces the row
	_, err = iotObj.Ingest.Sleep(ctx, jsonUpload(deviceID, `{"score":70}`))
	require.NoError(t, err)

	coll := iotObj.Store.Collection(models.CollectionSleepData)
	n, err := coll.Count(ctx, db.Filter{"device_id": deviceID, "sleep_date": sleepDate})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	doc, err := coll.FindOne(ctx, db.Filter{"device_id": deviceID})
	require.NoError(t, err)
	assert.Equal(t, int64(70), doc["score"])
	assert.Equal(t, int64(120), doc["deep_sleep"])
	assert.Equal(t, "22:00:00", doc["start_time"])
}

func TestIngest_StoreFailure(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := dbmocks.NewMockStore(ctrl)
	mockCollection := dbmocks.NewMockCollection(ctrl)
	mockStore.EXPECT().Collection(models.CollectionAlarms).Return(mockCollection).Times(1)
	mockCollection.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("no reachable servers")).Times(1)

	iotObj := &IOT{Store: mockStore, Now: func() time.Time { return testNow }}

	rec, err := iotObj.GetIIngest().Ingest(context.Background(), models.TopicAlarm, &models.Upload{HeaderDeviceID: "dev-1", Body: []byte{0x01}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no reachable servers")
	assert.NotNil(t, rec)
}

func TestIngest_UnknownTopic(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := &IOT{}
	_, err := iotObj.GetIIngest().Ingest(context.Background(), models.Topic("weather"), &models.Upload{})
	assert.Error(t, err)
}

func TestIngest_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	common.SetTestCaptureLogger(&buf, zapcore.InfoLevel)
	defer common.SetTestLoggerNop()

	ctrl, iotObj, _ := GetMockIOTWithMemorySqliteDialector(t)
	defer ctrl.Finish()

	deviceID := uuid.NewString()
	_, err := iotObj.Ingest.Ingest(context.Background(), models.TopicStatus, &models.Upload{
		Endpoint:       "/4g/status/notify",
		HeaderDeviceID: deviceID,
		Body:           []byte("abc"),
	})
	require.NoError(t, err)

	entry := findLog(ParseLogs(&buf), "Request received")
	require.NotNil(t, entry, "expected a request log line")
	assert.Equal(t, deviceID, entry["device_id"])
	assert.Equal(t, "/4g/status/notify", entry["endpoint"])
	assert.Equal(t, float64(3), entry["size"])
	assert.Equal(t, common.LoggerCategoryIOTIngest, entry[common.LoggerFieldIOTCategory])
}
