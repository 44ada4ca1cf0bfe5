package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"melowms/internal/core/store"
	"melowms/pkg/logger"
)

var tracer = otel.Tracer("melowms/docstore")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store implements the document store contract on PostgreSQL. Transactions
// run at serializable isolation; serialization failures surface as the
// store's conflict error so the shared retry loop handles them.
type Store struct {
	pool  *pgxpool.Pool
	retry store.RetryPolicy
}

var _ store.Store = (*Store)(nil)

// New creates a Postgres-backed document store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, retry: store.DefaultRetryPolicy()}
}

type docRow struct {
	Path      string    `db:"path"`
	Data      []byte    `db:"data"`
	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r docRow) document() *store.Document {
	return &store.Document{
		Path:       r.Path,
		Raw:        json.RawMessage(r.Data),
		Version:    r.Version,
		CreateTime: r.CreatedAt,
		UpdateTime: r.UpdatedAt,
	}
}

const docColumns = "path, data, version, created_at, updated_at"

// Get returns the document at path, or nil if it does not exist.
func (s *Store) Get(ctx context.Context, path string) (*store.Document, error) {
	if err := store.ValidateDocPath(path); err != nil {
		return nil, err
	}
	return getDoc(ctx, s.pool, path)
}

// Query performs a filtered collection read outside any transaction.
func (s *Store) Query(ctx context.Context, q store.Query) ([]*store.Document, error) {
	return queryDocs(ctx, s.pool, q)
}

// RunTransaction executes fn inside one serializable transaction, retrying
// serialization failures with bounded backoff.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return store.RunWithRetry(ctx, s.retry, func(ctx context.Context) error {
		return s.runOnce(ctx, fn)
	})
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	ctx, span := tracer.Start(ctx, "docstore.transaction",
		trace.WithAttributes(attribute.String("db.isolation", "serializable")))
	defer span.End()

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Guard against runaway statements holding the serializable snapshot.
	if _, err := tx.Exec(ctx, "SET LOCAL statement_timeout = '30s'"); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("set statement_timeout: %w", err)
	}

	handle := &pgTx{ctx: ctx, tx: tx}
	if err := fn(ctx, handle); err != nil {
		// Background context so the rollback completes even when the
		// request context is already canceled.
		if rbErr := tx.Rollback(context.Background()); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
		return markConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return markConflict(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// markConflict translates Postgres serialization and deadlock failures
// into the store's conflict sentinel for the retry loop.
func markConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	return err
}

// pgTx adapts a pgx transaction to the store.Tx interface. The enclosing
// transaction's context is captured at creation.
type pgTx struct {
	ctx context.Context
	tx  pgx.Tx
}

var _ store.Tx = (*pgTx)(nil)

func (t *pgTx) Get(path string) (*store.Document, error) {
	if err := store.ValidateDocPath(path); err != nil {
		return nil, err
	}
	return getDoc(t.ctx, t.tx, path)
}

func (t *pgTx) Query(q store.Query) ([]*store.Document, error) {
	return queryDocs(t.ctx, t.tx, q)
}

func (t *pgTx) Create(path string, data any) error {
	raw, err := encodeDoc(path, data)
	if err != nil {
		return err
	}

	tag, err := t.tx.Exec(t.ctx, `
		INSERT INTO documents (path, collection, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (path) DO NOTHING`,
		path, store.CollectionOf(path), raw)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("create %s: document already exists", path)
	}
	return nil
}

func (t *pgTx) Set(path string, data any) error {
	raw, err := encodeDoc(path, data)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(t.ctx, `
		INSERT INTO documents (path, collection, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE
		SET data = EXCLUDED.data,
		    version = documents.version + 1,
		    updated_at = now()`,
		path, store.CollectionOf(path), raw)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (t *pgTx) Update(path string, data any) error {
	raw, err := encodeDoc(path, data)
	if err != nil {
		return err
	}

	tag, err := t.tx.Exec(t.ctx, `
		UPDATE documents
		SET data = $2, version = version + 1, updated_at = now()
		WHERE path = $1`,
		path, raw)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s: document does not exist", path)
	}
	return nil
}

func (t *pgTx) Delete(path string) error {
	if err := store.ValidateDocPath(path); err != nil {
		return err
	}
	if _, err := t.tx.Exec(t.ctx, "DELETE FROM documents WHERE path = $1", path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func encodeDoc(path string, data any) (json.RawMessage, error) {
	if err := store.ValidateDocPath(path); err != nil {
		return nil, err
	}
	return store.Encode(data)
}

// --- shared query plumbing ---

func getDoc(ctx context.Context, q pgxscan.Querier, path string) (*store.Document, error) {
	var row docRow
	err := pgxscan.Get(ctx, q, &row,
		"SELECT "+docColumns+" FROM documents WHERE path = $1", path)
	if pgxscan.NotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return row.document(), nil
}

func queryDocs(ctx context.Context, q pgxscan.Querier, query store.Query) ([]*store.Document, error) {
	sql, args, err := buildQuery(query)
	if err != nil {
		return nil, err
	}

	var rows []docRow
	if err := pgxscan.Select(ctx, q, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", query.Collection, err)
	}

	out := make([]*store.Document, len(rows))
	for i, r := range rows {
		out[i] = r.document()
	}
	return out, nil
}

func buildQuery(q store.Query) (string, []any, error) {
	if q.Collection == "" {
		return "", nil, fmt.Errorf("query without collection")
	}

	b := psql.Select(docColumns).
		From("documents").
		Where(sq.Eq{"collection": q.Collection})

	for _, f := range q.Filters {
		expr, err := filterExpr(f)
		if err != nil {
			return "", nil, err
		}
		b = b.Where(expr)
	}

	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		b = b.OrderBy(fmt.Sprintf("data->>'%s' %s", q.OrderBy, dir))
	} else {
		b = b.OrderBy("path ASC")
	}

	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}

	return b.ToSql()
}

var filterOps = map[store.Op]string{
	store.OpEqual:        "=",
	store.OpLess:         "<",
	store.OpLessEqual:    "<=",
	store.OpGreater:      ">",
	store.OpGreaterEqual: ">=",
}

// filterExpr renders one field condition against the JSONB body. Numeric
// operands compare numerically, everything else as text.
func filterExpr(f store.Filter) (sq.Sqlizer, error) {
	op, ok := filterOps[f.Op]
	if !ok {
		return nil, fmt.Errorf("unsupported filter op %q", f.Op)
	}

	switch v := f.Value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return sq.Expr(fmt.Sprintf("(data->>'%s')::numeric %s ?", f.Field, op), v), nil
	case bool:
		return sq.Expr(fmt.Sprintf("(data->>'%s')::boolean %s ?", f.Field, op), v), nil
	default:
		return sq.Expr(fmt.Sprintf("data->>'%s' %s ?", f.Field, op), v), nil
	}
}
