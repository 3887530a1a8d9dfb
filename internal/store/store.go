package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// Record is one row of the single-table entity store. PK/SK form the
// composite primary key; GSI1PK/GSI1SK are the secondary index pair used
// for "children of parent, ordered by creation" queries. Data holds the
// JSON document of the domain entity.
type Record struct {
	PK        string
	SK        string
	GSI1PK    string
	GSI1SK    string
	Entity    string
	TenantID  string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Query selects records through the secondary index.
type Query struct {
	GSI1PK   string
	SKPrefix string // prefix match on gsi1sk; empty matches all

	// Status filters on the document's "status" field when set.
	Status string
	// CreatedFrom/CreatedTo bound created_at when set.
	CreatedFrom *time.Time
	CreatedTo   *time.Time

	Page  int // 1-based; defaults to 1
	Limit int // <= 0 disables pagination

	// SortBy is a whitelisted field name (createdAt, updatedAt, title,
	// status); unknown values fall back to createdAt.
	SortBy    string
	Ascending bool
}

// Store is the generic document store behind every repository. Update is a
// read-merge-write of the whole record; there is no conditional update or
// cross-record transaction.
type Store interface {
	Put(ctx context.Context, rec Record) error
	// PutNew inserts and returns ErrConflict when (pk, sk) already exists.
	PutNew(ctx context.Context, rec Record) error
	Get(ctx context.Context, pk, sk string) (*Record, error)
	Update(ctx context.Context, pk, sk string, mutate func(*Record) error) (*Record, error)
	// Query returns the matching page and the total match count.
	Query(ctx context.Context, q Query) ([]Record, int, error)
	Delete(ctx context.Context, pk, sk string) error
}

func (q Query) page() int {
	if q.Page < 1 {
		return 1
	}
	return q.Page
}

func (q Query) offset() int {
	if q.Limit <= 0 {
		return 0
	}
	return (q.page() - 1) * q.Limit
}
