package db

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"liyu1981.xyz/iwown-health-service/pkg/models"
)

var ErrNotFound = errors.New("document not found")

// Filter matches documents whose fields equal every given value.
type Filter map[string]any

type FindOptions struct {
	SortField string
	SortDesc  bool
	// Limit <= 0 means no limit.
	Limit int64
}

type Collection interface {
	Name() string
	Insert(ctx context.Context, doc models.Document) error
	// Upsert replaces the single document matching key, inserting it when
	// absent, in one store operation.
	Upsert(ctx context.Context, key Filter, doc models.Document) error
	Find(ctx context.Context, filter Filter, opts FindOptions) ([]models.Document, error)
	FindOne(ctx context.Context, filter Filter) (models.Document, error)
	Distinct(ctx context.Context, field string, filter Filter) ([]any, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

type Store interface {
	Name() string
	// Collection panics when name is not one of models.Collections.
	Collection(name string) Collection
	Ping(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
	Close(ctx context.Context) error
}

func mustKnownCollection(name string) {
	if !slices.Contains(models.Collections, name) {
		panic(fmt.Sprintf("db: unknown collection %q", name))
	}
}
