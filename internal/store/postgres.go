package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres implements Store on a single `entities` table. The key scheme
// mirrors a DynamoDB single-table design: composite (pk, sk) plus one
// secondary index (gsi1pk, gsi1sk), with the entity body in a JSONB column.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "data->>'title'",
	"status":    "data->>'status'",
}

func (s *Postgres) Put(ctx context.Context, rec Record) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO entities (pk, sk, gsi1pk, gsi1sk, entity, tenant_id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (pk, sk) DO UPDATE
		 SET gsi1pk = EXCLUDED.gsi1pk, gsi1sk = EXCLUDED.gsi1sk,
		     data = EXCLUDED.data, updated_at = now()`,
		rec.PK, rec.SK, rec.GSI1PK, rec.GSI1SK, rec.Entity, rec.TenantID,
		rec.Data, orNow(rec.CreatedAt), orNow(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", rec.PK, rec.SK, err)
	}
	return nil
}

func (s *Postgres) PutNew(ctx context.Context, rec Record) error {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO entities (pk, sk, gsi1pk, gsi1sk, entity, tenant_id, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (pk, sk) DO NOTHING`,
		rec.PK, rec.SK, rec.GSI1PK, rec.GSI1SK, rec.Entity, rec.TenantID,
		rec.Data, orNow(rec.CreatedAt), orNow(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put new %s/%s: %w", rec.PK, rec.SK, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, pk, sk string) (*Record, error) {
	var rec Record
	err := s.db.QueryRow(ctx,
		`SELECT pk, sk, gsi1pk, gsi1sk, entity, tenant_id, data, created_at, updated_at
		 FROM entities WHERE pk = $1 AND sk = $2`, pk, sk,
	).Scan(&rec.PK, &rec.SK, &rec.GSI1PK, &rec.GSI1SK, &rec.Entity, &rec.TenantID,
		&rec.Data, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", pk, sk, err)
	}
	return &rec, nil
}

func (s *Postgres) Update(ctx context.Context, pk, sk string, mutate func(*Record) error) (*Record, error) {
	rec, err := s.Get(ctx, pk, sk)
	if err != nil {
		return nil, err
	}
	if err := mutate(rec); err != nil {
		return nil, err
	}
	rec.UpdatedAt = time.Now().UTC()

	_, err = s.db.Exec(ctx,
		`UPDATE entities SET gsi1pk = $3, gsi1sk = $4, data = $5, updated_at = $6
		 WHERE pk = $1 AND sk = $2`,
		pk, sk, rec.GSI1PK, rec.GSI1SK, rec.Data, rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", pk, sk, err)
	}
	return rec, nil
}

func (s *Postgres) Query(ctx context.Context, q Query) ([]Record, int, error) {
	where := "gsi1pk = $1"
	args := []interface{}{q.GSI1PK}
	argIdx := 2

	if q.SKPrefix != "" {
		where += fmt.Sprintf(" AND gsi1sk LIKE $%d || '%%'", argIdx)
		args = append(args, q.SKPrefix)
		argIdx++
	}
	if q.Status != "" {
		where += fmt.Sprintf(" AND data->>'status' = $%d", argIdx)
		args = append(args, q.Status)
		argIdx++
	}
	if q.CreatedFrom != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *q.CreatedFrom)
		argIdx++
	}
	if q.CreatedTo != nil {
		where += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *q.CreatedTo)
		argIdx++
	}

	var total int
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM entities WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", q.GSI1PK, err)
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if q.Ascending {
		dir = "ASC"
	}

	query := fmt.Sprintf(
		`SELECT pk, sk, gsi1pk, gsi1sk, entity, tenant_id, data, created_at, updated_at
		 FROM entities WHERE %s ORDER BY %s %s`, where, col, dir)
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
		args = append(args, q.Limit, q.offset())
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query %s: %w", q.GSI1PK, err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.PK, &rec.SK, &rec.GSI1PK, &rec.GSI1SK, &rec.Entity,
			&rec.TenantID, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, total, rows.Err()
}

func (s *Postgres) Delete(ctx context.Context, pk, sk string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM entities WHERE pk = $1 AND sk = $2", pk, sk)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", pk, sk, err)
	}
	return nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
