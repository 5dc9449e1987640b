package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

const (
	// DefaultTable is the table metafield records live in.
	DefaultTable = "meta_fields"
	// DefaultOwnerColumn is the stem of the polymorphic owner columns,
	// giving model_type and model_id.
	DefaultOwnerColumn = "model"
)

// ErrOwnerNotPersisted is returned when writing records for an owner
// without an identifier.
var ErrOwnerNotPersisted = errors.New("metafields: owner has no identifier")

// Record is one stored metafield. Value is nil when the column is NULL.
type Record struct {
	ID        string    `bun:"id,pk"`
	Key       string    `bun:"key"`
	Value     *string   `bun:"value"`
	OwnerType string    `bun:"owner_type"`
	OwnerID   string    `bun:"owner_id"`
	CreatedAt time.Time `bun:"created_at"`
	UpdatedAt time.Time `bun:"updated_at"`
}

// Owner identifies the entity records belong to.
type Owner struct {
	Type string
	ID   string
}

// Options configures a Store.
type Options struct {
	Table       string
	OwnerColumn string
	Logger      *zap.Logger
	Now         func() time.Time
}

// Store reads and writes metafield records with bun. Table and owner
// column names are runtime configuration, so every query is built with
// bun.Ident rather than struct tags.
type Store struct {
	db         bun.IDB
	table      string
	typeColumn string
	idColumn   string
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a Store over db.
func New(db bun.IDB, opts Options) *Store {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	if opts.OwnerColumn == "" {
		opts.OwnerColumn = DefaultOwnerColumn
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		db:         db,
		table:      opts.Table,
		typeColumn: opts.OwnerColumn + "_type",
		idColumn:   opts.OwnerColumn + "_id",
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// Table returns the configured table name.
func (s *Store) Table() string {
	return s.table
}

// CreateTable creates the records table and its (owner, key) unique index
// when they do not exist yet.
func (s *Store) CreateTable(ctx context.Context) error {
	if _, err := s.db.NewRaw(
		"CREATE TABLE IF NOT EXISTS ? ("+
			"? VARCHAR(36) NOT NULL PRIMARY KEY, "+
			"? VARCHAR(255) NOT NULL, "+
			"? TEXT, "+
			"? VARCHAR(255) NOT NULL, "+
			"? VARCHAR(255) NOT NULL, "+
			"? TIMESTAMP NOT NULL, "+
			"? TIMESTAMP NOT NULL)",
		bun.Ident(s.table),
		bun.Ident("id"),
		bun.Ident("key"),
		bun.Ident("value"),
		bun.Ident(s.typeColumn),
		bun.Ident(s.idColumn),
		bun.Ident("created_at"),
		bun.Ident("updated_at"),
	).Exec(ctx); err != nil {
		return err
	}

	_, err := s.db.NewRaw(
		"CREATE UNIQUE INDEX IF NOT EXISTS ? ON ? (?, ?, ?)",
		bun.Ident(s.table+"_owner_key_unique"),
		bun.Ident(s.table),
		bun.Ident(s.typeColumn),
		bun.Ident(s.idColumn),
		bun.Ident("key"),
	).Exec(ctx)
	return err
}

func (s *Store) selectRecords(db bun.IDB, owner Owner) *bun.SelectQuery {
	return db.NewSelect().
		TableExpr("?", bun.Ident(s.table)).
		ColumnExpr("?", bun.Ident("id")).
		ColumnExpr("?", bun.Ident("key")).
		ColumnExpr("?", bun.Ident("value")).
		ColumnExpr("? AS ?", bun.Ident(s.typeColumn), bun.Ident("owner_type")).
		ColumnExpr("? AS ?", bun.Ident(s.idColumn), bun.Ident("owner_id")).
		ColumnExpr("?", bun.Ident("created_at")).
		ColumnExpr("?", bun.Ident("updated_at")).
		Where("? = ?", bun.Ident(s.typeColumn), owner.Type).
		Where("? = ?", bun.Ident(s.idColumn), owner.ID)
}

// Find returns the record for key or nil when there is none.
func (s *Store) Find(ctx context.Context, owner Owner, key string) (*Record, error) {
	if owner.ID == "" {
		return nil, nil
	}
	return s.find(ctx, s.db, owner, key)
}

func (s *Store) find(ctx context.Context, db bun.IDB, owner Owner, key string) (*Record, error) {
	var rec Record
	err := s.selectRecords(db, owner).
		Where("? = ?", bun.Ident("key"), key).
		Limit(1).
		Scan(ctx, &rec)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindAll returns every record of owner ordered by key.
func (s *Store) FindAll(ctx context.Context, owner Owner) ([]Record, error) {
	if owner.ID == "" {
		return nil, nil
	}
	var recs []Record
	err := s.selectRecords(s.db, owner).
		OrderExpr("? ASC", bun.Ident("key")).
		Scan(ctx, &recs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// Count returns how many records owner has.
func (s *Store) Count(ctx context.Context, owner Owner) (int, error) {
	if owner.ID == "" {
		return 0, nil
	}
	var n int
	err := s.db.NewSelect().
		TableExpr("?", bun.Ident(s.table)).
		ColumnExpr("count(*)").
		Where("? = ?", bun.Ident(s.typeColumn), owner.Type).
		Where("? = ?", bun.Ident(s.idColumn), owner.ID).
		Scan(ctx, &n)
	return n, err
}

// Upsert writes value under key, updating the existing record when there
// is one. The write is a single INSERT ... ON CONFLICT DO UPDATE against the
// (owner, key) unique index, so concurrent first writers resolve to the last
// write instead of a constraint error. The stored row is read back in the
// same transaction.
func (s *Store) Upsert(ctx context.Context, owner Owner, key, value string) (*Record, error) {
	if owner.ID == "" {
		return nil, ErrOwnerNotPersisted
	}

	var out *Record
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := s.now().UTC()
		id := uuid.NewString()
		values := map[string]any{
			"id":         id,
			"key":        key,
			"value":      value,
			s.typeColumn: owner.Type,
			s.idColumn:   owner.ID,
			"created_at": now,
			"updated_at": now,
		}
		if _, err := tx.NewInsert().
			Model(&values).
			TableExpr("?", bun.Ident(s.table)).
			On("CONFLICT (?, ?, ?) DO UPDATE", bun.Ident(s.typeColumn), bun.Ident(s.idColumn), bun.Ident("key")).
			Set("? = EXCLUDED.?", bun.Ident("value"), bun.Ident("value")).
			Set("? = EXCLUDED.?", bun.Ident("updated_at"), bun.Ident("updated_at")).
			Exec(ctx); err != nil {
			return err
		}

		rec, err := s.find(ctx, tx, owner, key)
		if err != nil {
			return err
		}
		if rec == nil {
			return sql.ErrNoRows
		}
		out = rec

		msg := "metafield updated"
		if rec.ID == id {
			msg = "metafield created"
		}
		s.logger.Debug(msg, zap.String("key", key), zap.String("owner", owner.Type+":"+owner.ID))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the record for key and reports whether one existed.
func (s *Store) Delete(ctx context.Context, owner Owner, key string) (bool, error) {
	if owner.ID == "" {
		return false, nil
	}
	res, err := s.db.NewDelete().
		TableExpr("?", bun.Ident(s.table)).
		Where("? = ?", bun.Ident(s.typeColumn), owner.Type).
		Where("? = ?", bun.Ident(s.idColumn), owner.ID).
		Where("? = ?", bun.Ident("key"), key).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAll removes every record of owner and returns the deleted keys.
func (s *Store) DeleteAll(ctx context.Context, owner Owner) ([]string, error) {
	if owner.ID == "" {
		return nil, nil
	}

	var deleted []string
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		deleted = deleted[:0]
		if err := tx.NewSelect().
			TableExpr("?", bun.Ident(s.table)).
			ColumnExpr("?", bun.Ident("key")).
			Where("? = ?", bun.Ident(s.typeColumn), owner.Type).
			Where("? = ?", bun.Ident(s.idColumn), owner.ID).
			Scan(ctx, &deleted); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if len(deleted) == 0 {
			return nil
		}

		_, err := tx.NewDelete().
			TableExpr("?", bun.Ident(s.table)).
			Where("? = ?", bun.Ident(s.typeColumn), owner.Type).
			Where("? = ?", bun.Ident(s.idColumn), owner.ID).
			Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
