// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package instancerp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/momeni/dtransfer/pkg/adapter/db/postgres"
	"github.com/momeni/dtransfer/pkg/core/model"
	"github.com/momeni/dtransfer/pkg/core/repo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// createTables is executed by the Bootstrap method of providers which
// were created with the WithInitialize option.
const createTables = `
CREATE TABLE IF NOT EXISTS dt_metadata (
    id smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    app_version text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT now(),
    extra jsonb
);
CREATE TABLE IF NOT EXISTS dt_schemas (
    uid text PRIMARY KEY,
    doc jsonb NOT NULL
);
CREATE TABLE IF NOT EXISTS dt_entities (
    type text NOT NULL,
    id text NOT NULL,
    data jsonb,
    PRIMARY KEY (type, id)
);
CREATE TABLE IF NOT EXISTS dt_links (
    seq bigserial PRIMARY KEY,
    kind text NOT NULL,
    left_type text NOT NULL,
    left_id text NOT NULL,
    left_field text NOT NULL DEFAULT '',
    right_type text NOT NULL,
    right_id text NOT NULL,
    right_field text NOT NULL DEFAULT '',
    position integer NOT NULL DEFAULT 0,
    UNIQUE (kind, left_type, left_id, left_field,
        right_type, right_id, right_field),
    FOREIGN KEY (left_type, left_id) REFERENCES dt_entities (type, id),
    FOREIGN KEY (right_type, right_id) REFERENCES dt_entities (type, id)
);
CREATE TABLE IF NOT EXISTS dt_configuration (
    type text NOT NULL,
    key text NOT NULL,
    value jsonb,
    PRIMARY KEY (type, key)
);`

type gMetadata struct {
	ID         int16 `gorm:"primaryKey"`
	AppVersion string
	CreatedAt  sql.NullTime
	Extra      sql.NullString `gorm:"type:jsonb"`
}

func (gm *gMetadata) TableName() string {
	return "dt_metadata"
}

func (gm *gMetadata) Model() (*model.Metadata, error) {
	m := &model.Metadata{
		AppVersion: gm.AppVersion,
		CreatedAt:  gm.CreatedAt.Time,
	}
	if gm.Extra.Valid {
		if err := json.Unmarshal([]byte(gm.Extra.String), &m.Extra); err != nil {
			return nil, fmt.Errorf("parsing metadata extra: %w", err)
		}
	}
	return m, nil
}

type gSchema struct {
	UID string `gorm:"primaryKey;column:uid"`
	Doc string `gorm:"type:jsonb"`
}

func (gs *gSchema) TableName() string {
	return "dt_schemas"
}

type gEntity struct {
	Type string         `gorm:"primaryKey"`
	ID   string         `gorm:"primaryKey"`
	Data sql.NullString `gorm:"type:jsonb"`
}

func (ge *gEntity) TableName() string {
	return "dt_entities"
}

type gLink struct {
	Seq        int64 `gorm:"primaryKey;autoIncrement"`
	Kind       string
	LeftType   string
	LeftID     string `gorm:"column:left_id"`
	LeftField  string
	RightType  string
	RightID    string `gorm:"column:right_id"`
	RightField string
	Position   int
}

func (gl *gLink) TableName() string {
	return "dt_links"
}

type gConfigEntry struct {
	Type  string         `gorm:"primaryKey"`
	Key   string         `gorm:"primaryKey"`
	Value sql.NullString `gorm:"type:jsonb"`
}

func (gc *gConfigEntry) TableName() string {
	return "dt_configuration"
}

// SelectMetadata returns the instance metadata, or nil if the instance
// has no metadata row (or has no dt_metadata table at all).
func SelectMetadata[Q postgres.Queryer](ctx context.Context, q Q) (
	*model.Metadata, error,
) {
	var gm gMetadata
	err := q.GORM(ctx).Take(&gm, "id = 1").Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), postgres.IsUndefinedTable(err):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("query: %w", err)
	}
	return gm.Model()
}

// StampMetadata inserts the metadata row with the appVersion version
// unless the instance has a metadata row already.
func StampMetadata[Q postgres.Queryer](
	ctx context.Context, q Q, appVersion string,
) error {
	gm := gMetadata{ID: 1, AppVersion: appVersion}
	err := q.GORM(ctx).Omit("CreatedAt", "Extra").Clauses(
		clause.OnConflict{DoNothing: true},
	).Create(&gm).Error
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	return nil
}

// SelectSchemas returns all schemas keyed by their UIDs, or nil if the
// instance has no dt_schemas table.
func SelectSchemas[Q postgres.Queryer](ctx context.Context, q Q) (
	model.SchemaMap, error,
) {
	var gs []gSchema
	err := q.GORM(ctx).Order("uid").Find(&gs).Error
	switch {
	case postgres.IsUndefinedTable(err):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("query: %w", err)
	}
	sm := make(model.SchemaMap, len(gs))
	for _, g := range gs {
		s := &model.Schema{}
		if err = json.Unmarshal([]byte(g.Doc), s); err != nil {
			return nil, fmt.Errorf("parsing schema %q: %w", g.UID, err)
		}
		sm[g.UID] = s
	}
	return sm, nil
}

// Fetch queries which are used to declare the read cursors.
const (
	selectSchemas = `SELECT uid, doc FROM dt_schemas ORDER BY uid`

	selectEntities = `SELECT type, id, data FROM dt_entities
ORDER BY type, id`

	selectLinks = `SELECT kind, left_type, left_id, left_field,
right_type, right_id, right_field, position FROM dt_links ORDER BY seq`

	selectConfiguration = `SELECT type, key, value FROM dt_configuration
ORDER BY type, key`
)

func scanSchema(rows repo.Rows) (model.Schema, error) {
	var uid, doc string
	var s model.Schema
	if err := rows.Scan(&uid, &doc); err != nil {
		return s, err
	}
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return s, fmt.Errorf("parsing schema %q: %w", uid, err)
	}
	return s, nil
}

func scanEntity(rows repo.Rows) (model.Entity, error) {
	var e model.Entity
	var data sql.NullString
	if err := rows.Scan(&e.Type, &e.ID, &data); err != nil {
		return e, err
	}
	if err := unmarshalNullable(data, &e.Data); err != nil {
		return e, fmt.Errorf("parsing entity %s/%s: %w", e.Type, e.ID, err)
	}
	return e, nil
}

func scanLink(rows repo.Rows) (model.Link, error) {
	var l model.Link
	err := rows.Scan(
		&l.Kind, &l.Left.Type, &l.Left.ID, &l.Left.Field,
		&l.Right.Type, &l.Right.ID, &l.Right.Field, &l.Position,
	)
	return l, err
}

func scanConfigEntry(rows repo.Rows) (model.ConfigEntry, error) {
	var c model.ConfigEntry
	var value sql.NullString
	if err := rows.Scan(&c.Type, &c.Key, &value); err != nil {
		return c, err
	}
	if err := unmarshalNullable(value, &c.Value); err != nil {
		return c, fmt.Errorf("parsing entry %s/%s: %w", c.Type, c.Key, err)
	}
	return c, nil
}

func unmarshalNullable(s sql.NullString, v any) error {
	if !s.Valid {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}

func marshalNullable(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// UpsertSchemas inserts or replaces the ss schemas.
func UpsertSchemas[Q postgres.Queryer](
	ctx context.Context, q Q, ss []model.Schema,
) error {
	gs := make([]gSchema, 0, len(ss))
	for _, s := range ss {
		b, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshaling schema %q: %w", s.UID, err)
		}
		gs = append(gs, gSchema{UID: s.UID, Doc: string(b)})
	}
	return create(ctx, q, &gs, clause.OnConflict{UpdateAll: true})
}

// UpsertEntities inserts or replaces the es entities.
func UpsertEntities[Q postgres.Queryer](
	ctx context.Context, q Q, es []model.Entity,
) error {
	ge := make([]gEntity, 0, len(es))
	for _, e := range es {
		var data any
		if e.Data != nil {
			data = e.Data
		}
		d, err := marshalNullable(data)
		if err != nil {
			return fmt.Errorf("marshaling entity %s/%s: %w", e.Type, e.ID, err)
		}
		ge = append(ge, gEntity{Type: e.Type, ID: e.ID, Data: d})
	}
	return create(ctx, q, &ge, clause.OnConflict{UpdateAll: true})
}

// InsertLinks inserts the ls links, ignoring the existing ones.
func InsertLinks[Q postgres.Queryer](
	ctx context.Context, q Q, ls []model.Link,
) error {
	gl := make([]gLink, 0, len(ls))
	for _, l := range ls {
		gl = append(gl, gLink{
			Kind:       l.Kind,
			LeftType:   l.Left.Type,
			LeftID:     l.Left.ID,
			LeftField:  l.Left.Field,
			RightType:  l.Right.Type,
			RightID:    l.Right.ID,
			RightField: l.Right.Field,
			Position:   l.Position,
		})
	}
	return create(ctx, q, &gl, clause.OnConflict{DoNothing: true})
}

// UpsertConfiguration inserts or replaces the cs entries.
func UpsertConfiguration[Q postgres.Queryer](
	ctx context.Context, q Q, cs []model.ConfigEntry,
) error {
	gc := make([]gConfigEntry, 0, len(cs))
	for _, c := range cs {
		v, err := marshalNullable(c.Value)
		if err != nil {
			return fmt.Errorf("marshaling entry %s/%s: %w", c.Type, c.Key, err)
		}
		gc = append(gc, gConfigEntry{Type: c.Type, Key: c.Key, Value: v})
	}
	return create(ctx, q, &gc, clause.OnConflict{UpdateAll: true})
}

func create[Q postgres.Queryer](
	ctx context.Context, q Q, rows any, onConflict clause.OnConflict,
) error {
	err := q.GORM(ctx).Clauses(onConflict).Create(rows).Error
	if err != nil {
		return fmt.Errorf("query: %w", postgres.DescribeViolation(err))
	}
	return nil
}
