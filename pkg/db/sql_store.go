package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"liyu1981.xyz/iwown-health-service/pkg/common"
	"liyu1981.xyz/iwown-health-service/pkg/models"
)

// DocumentRow stores one document of any collection. device_id and timestamp
// are promoted to columns; everything else lives in Body. DocKey holds the
// hex sha256 of an upsert key, so its width does not depend on the key values.
type DocumentRow struct {
	ID         uint           `gorm:"primaryKey"`
	Collection string         `gorm:"size:64;not null;index:idx_documents_collection_device,priority:1;uniqueIndex:idx_documents_collection_key,priority:1"`
	DocKey     *string        `gorm:"size:64;uniqueIndex:idx_documents_collection_key,priority:2"`
	DeviceID   string         `gorm:"index:idx_documents_collection_device,priority:2"`
	Timestamp  string         `gorm:"size:64;index"`
	Body       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DocumentRow) TableName() string {
	return "documents"
}

var promotedColumns = []string{"device_id", "timestamp"}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type SQLStore struct {
	conn        *gorm.DB
	collections map[string]*sqlCollection
}

func Open(dialector gorm.Dialector) (*SQLStore, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameStore,
		zap.String(common.LoggerFieldIOTCategory, common.LoggerCategoryIOTStoreLifetime),
	)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialector.Name(), err)
	}

	logger.Info("Connected to database with dialector", zap.String("dialector", dialector.Name()))

	if dialector.Name() == "sqlite" {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		// shared-cache memory databases lock tables across connections
		sqlDB.SetMaxOpenConns(1)

		if err := conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			return nil, fmt.Errorf("set sqlite journal mode: %w", err)
		}
	}

	if err := conn.AutoMigrate(&DocumentRow{}); err != nil {
		return nil, fmt.Errorf("migrate documents table: %w", err)
	}

	logger.Info("Database migration completed")

	s := &SQLStore{conn: conn, collections: map[string]*sqlCollection{}}
	for _, name := range models.Collections {
		s.collections[name] = &sqlCollection{store: s, name: name}
	}
	return s, nil
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(common.EnvKeyIOTDbPath); !found || dbPath == "" {
		dbPath = "iwown.db"
	}
	return sqlite.Open(dbPath)
}

// UseMemorySqliteDialector returns a dialector for a fresh, private in-memory database.
func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:iwown_%s?mode=memory&cache=shared", uuid.NewString()))
}

func UsePostgresDialector(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

func (s *SQLStore) Name() string {
	return "sql:" + s.conn.Dialector.Name()
}

func (s *SQLStore) Collection(name string) Collection {
	mustKnownCollection(name)
	return s.collections[name]
}

func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) EnsureIndexes(ctx context.Context) error {
	m := s.conn.WithContext(ctx).Migrator()
	for _, idx := range []string{"idx_documents_collection_key", "idx_documents_collection_device"} {
		if m.HasIndex(&DocumentRow{}, idx) {
			continue
		}
		if err := m.CreateIndex(&DocumentRow{}, idx); err != nil {
			return fmt.Errorf("create index %s: %w", idx, err)
		}
	}
	return nil
}

func (s *SQLStore) Close(_ context.Context) error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) jsonFieldExpr(field string) string {
	if s.conn.Dialector.Name() == "postgres" {
		return fmt.Sprintf("body->>'%s'", field)
	}
	return fmt.Sprintf("json_extract(body, '$.%s')", field)
}

type sqlCollection struct {
	store *SQLStore
	name  string
}

func (c *sqlCollection) Name() string {
	return c.name
}

func (c *sqlCollection) Insert(ctx context.Context, doc models.Document) error {
	row, err := newDocumentRow(c.name, doc)
	if err != nil {
		return err
	}
	return c.store.conn.WithContext(ctx).Create(row).Error
}

func (c *sqlCollection) Upsert(ctx context.Context, key Filter, doc models.Document) error {
	if len(key) == 0 {
		return fmt.Errorf("upsert into %s: empty key", c.name)
	}
	row, err := newDocumentRow(c.name, doc)
	if err != nil {
		return err
	}
	docKey, err := canonicalKey(key)
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", c.name, err)
	}
	row.DocKey = &docKey

	return c.store.conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"device_id", "timestamp", "body", "updated_at"}),
		}).
		Create(row).Error
}

func (c *sqlCollection) Find(ctx context.Context, filter Filter, opts FindOptions) ([]models.Document, error) {
	q, err := c.scoped(ctx, filter)
	if err != nil {
		return nil, err
	}

	if opts.SortField != "" {
		if !fieldNamePattern.MatchString(opts.SortField) {
			return nil, fmt.Errorf("invalid sort field %q", opts.SortField)
		}
		sortCol := clause.Column{Name: opts.SortField}
		if !slices.Contains(promotedColumns, opts.SortField) {
			sortCol = clause.Column{Name: c.store.jsonFieldExpr(opts.SortField), Raw: true}
		}
		q = q.Order(clause.OrderByColumn{Column: sortCol, Desc: opts.SortDesc})
	}
	// insertion order breaks ties
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: opts.SortDesc})

	if opts.Limit > 0 {
		q = q.Limit(int(opts.Limit))
	}

	var rows []DocumentRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	docs := make([]models.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.document()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *sqlCollection) FindOne(ctx context.Context, filter Filter) (models.Document, error) {
	docs, err := c.Find(ctx, filter, FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

func (c *sqlCollection) Distinct(ctx context.Context, field string, filter Filter) ([]any, error) {
	if slices.Contains(promotedColumns, field) {
		q, err := c.scoped(ctx, filter)
		if err != nil {
			return nil, err
		}
		var values []string
		if err := q.Distinct().Order(field).Pluck(field, &values).Error; err != nil {
			return nil, err
		}
		return common.Mapper(values, func(v string) any { return v }), nil
	}

	docs, err := c.Find(ctx, filter, FindOptions{})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var values []any
	for _, doc := range docs {
		v, ok := doc[field]
		if !ok {
			continue
		}
		k := fmt.Sprintf("%T:%v", v, v)
		if seen[k] {
			continue
		}
		seen[k] = true
		values = append(values, v)
	}
	return values, nil
}

func (c *sqlCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	q, err := c.scoped(ctx, filter)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (c *sqlCollection) scoped(ctx context.Context, filter Filter) (*gorm.DB, error) {
	q := c.store.conn.WithContext(ctx).
		Model(&DocumentRow{}).
		Where(clause.Eq{Column: clause.Column{Name: "collection"}, Value: c.name})

	for _, field := range sortedKeys(filter) {
		value := filter[field]
		if slices.Contains(promotedColumns, field) {
			q = q.Where(clause.Eq{Column: clause.Column{Name: field}, Value: value})
			continue
		}
		if !fieldNamePattern.MatchString(field) {
			return nil, fmt.Errorf("invalid filter field %q", field)
		}
		q = q.Where(datatypes.JSONQuery("body").Equals(value, field))
	}
	return q, nil
}

func newDocumentRow(collection string, doc models.Document) (*DocumentRow, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s document: %w", collection, err)
	}
	row := &DocumentRow{
		Collection: collection,
		Body:       datatypes.JSON(body),
	}
	row.DeviceID, _ = doc["device_id"].(string)
	row.Timestamp, _ = doc["timestamp"].(string)
	return row, nil
}

func (row *DocumentRow) document() (models.Document, error) {
	obj, err := common.DecodeJSONObject(row.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s document %d: %w", row.Collection, row.ID, err)
	}
	return models.Document(obj), nil
}

// canonicalKey hashes the JSON encoding of the sorted [field, value] pairs of
// an upsert key. Equal keys give equal hashes and distinct keys never share an
// encoding.
func canonicalKey(key Filter) (string, error) {
	pairs := common.Mapper(sortedKeys(key), func(k string) [2]any {
		return [2]any{k, key[k]}
	})
	encoded, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("encode key: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:]), nil
}

func sortedKeys(m Filter) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ Store = (*SQLStore)(nil)
