package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/models"
)

func openMongoIntegrationStore(t *testing.T) *MongoStore {
	t.Helper()
	common.SetTestLoggerNop()

	if os.Getenv(common.EnvKeyRunIntegrationTests) != "true" {
		t.Skip("Skipping integration test: RUN_INTEGRATION_TESTS environment variable not set")
	}
	uri := os.Getenv(common.EnvKeyMongoURL)
	if uri == "" {
		t.Skip("Skipping integration test: MONGODB_URL environment variable not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := "iwown_test_" + uuid.NewString()[:8]
	store, err := ConnectMongo(ctx, uri, dbName)
	require.NoError(t, err)
	require.NoError(t, store.EnsureIndexes(ctx))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = store.database.Drop(ctx)
		_ = store.Close(ctx)
	})
	return store
}

func TestMongoStore_UpsertAndHistory(t *testing.T) {
	store := openMongoIntegrationStore(t)
	ctx := context.Background()

	deviceID := uuid.NewString()
	status := store.Collection(models.CollectionStatus)
	key := Filter{"device_id": deviceID}
	require.NoError(t, status.Upsert(ctx, key, models.Document{"device_id": deviceID, "Status": "offline"}))
	require.NoError(t, status.Upsert(ctx, key, models.Document{"device_id": deviceID, "Status": "online"}))

	n, err := status.Count(ctx, Filter{"Status": "online"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	health := store.Collection(models.CollectionHealthData)
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, health.Insert(ctx, models.Document{
			"device_id":  deviceID,
			"timestamp":  common.FormatTimestamp(base.Add(time.Duration(i) * time.Second)),
			"created_at": base,
		}))
	}

	docs, err := health.Find(ctx, key, FindOptions{SortField: "timestamp", SortDesc: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, common.FormatTimestamp(base.Add(2*time.Second)), docs[0]["timestamp"])

	ids, err := health.Distinct(ctx, "device_id", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{deviceID}, ids)

	_, err = health.FindOne(ctx, Filter{"device_id": "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}
