package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/models"
)

type MongoStore struct {
	client      *mongo.Client
	database    *mongo.Database
	collections map[string]*mongoCollection
}

// ConnectMongo builds the client and pings the server. When the ping fails the
// store is still returned together with the error: the driver keeps trying to
// reach the server in the background and callers may choose to run degraded.
func ConnectMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameStore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTStoreLifetime),
	)

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(30 * time.Second).
		SetConnectTimeout(30 * time.Second).
		SetTimeout(30 * time.Second).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	s := NewMongoStore(client, database)

	if err := s.Ping(ctx); err != nil {
		return s, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", zap.String("database", database))
	return s, nil
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	s := &MongoStore{
		client:      client,
		database:    client.Database(database),
		collections: map[string]*mongoCollection{},
	}
	for _, name := range models.Collections {
		s.collections[name] = &mongoCollection{coll: s.database.Collection(name)}
	}
	return s
}

func (s *MongoStore) Name() string {
	return "mongo:" + s.database.Name()
}

func (s *MongoStore) Collection(name string) Collection {
	mustKnownCollection(name)
	return s.collections[name]
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	deviceTimeline := []mongo.IndexModel{{
		Keys: bson.D{{Key: "device_id", Value: 1}, {Key: "timestamp", Value: -1}},
	}}
	uniqueDevice := []mongo.IndexModel{{
		Keys:    bson.D{{Key: "device_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}}

	indexes := map[string][]mongo.IndexModel{
		models.CollectionHealthData: deviceTimeline,
		models.CollectionAlarms:     deviceTimeline,
		models.CollectionSosCalls:   deviceTimeline,
		models.CollectionDeviceInfo: uniqueDevice,
		models.CollectionStatus:     uniqueDevice,
		models.CollectionSleepData: {{
			Keys:    bson.D{{Key: "device_id", Value: 1}, {Key: "sleep_date", Value: -1}},
			Options: options.Index().SetUnique(true),
		}},
	}

	for _, name := range models.Collections {
		if _, err := s.collections[name].coll.Indexes().CreateMany(ctx, indexes[name]); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Name() string {
	return c.coll.Name()
}

func (c *mongoCollection) Insert(ctx context.Context, doc models.Document) error {
	_, err := c.coll.InsertOne(ctx, bson.M(doc))
	return err
}

func (c *mongoCollection) Upsert(ctx context.Context, key Filter, doc models.Document) error {
	if len(key) == 0 {
		return fmt.Errorf("upsert into %s: empty key", c.coll.Name())
	}
	_, err := c.coll.ReplaceOne(ctx, bson.M(key), bson.M(doc), options.Replace().SetUpsert(true))
	return err
}

func (c *mongoCollection) Find(ctx context.Context, filter Filter, opts FindOptions) ([]models.Document, error) {
	findOpts := options.Find()
	if opts.SortField != "" {
		direction := 1
		if opts.SortDesc {
			direction = -1
		}
		findOpts.SetSort(bson.D{{Key: opts.SortField, Value: direction}})
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cursor, err := c.coll.Find(ctx, toBSON(filter), findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return common.Mapper(results, func(m bson.M) models.Document { return models.Document(m) }), nil
}

func (c *mongoCollection) FindOne(ctx context.Context, filter Filter) (models.Document, error) {
	var result bson.M
	err := c.coll.FindOne(ctx, toBSON(filter)).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return models.Document(result), nil
}

func (c *mongoCollection) Distinct(ctx context.Context, field string, filter Filter) ([]any, error) {
	res := c.coll.Distinct(ctx, field, toBSON(filter))
	if err := res.Err(); err != nil {
		return nil, err
	}
	var values []any
	if err := res.Decode(&values); err != nil {
		return nil, err
	}
	return values, nil
}

func (c *mongoCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	return c.coll.CountDocuments(ctx, toBSON(filter))
}

func toBSON(filter Filter) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return bson.M(filter)
}

var _ Store = (*MongoStore)(nil)
