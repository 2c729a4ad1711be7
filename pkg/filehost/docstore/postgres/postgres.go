package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-filehost/pkg/filehost"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Schema creates the single JSONB table shared by all collections.
const Schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

// Store implements filehost.DocumentStore on a PostgreSQL JSONB table. Each
// collection is a partition of the documents table keyed by the _id field.
type Store struct {
	db   DBTX
	pool *pgxpool.Pool
}

var _ filehost.DocumentStore = (*Store)(nil)

// New creates a store over an existing connection or transaction
func New(db DBTX) *Store {
	return &Store{db: db}
}

// NewWithPool creates a store that owns the pool and closes it on Close
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{db: pool, pool: pool}
}

// EnsureSchema creates the documents table if it does not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return handlePostgresError("ensure schema", err)
	}
	return nil
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc interface{}) error {
	body, id, err := encodeDocument(doc)
	if err != nil {
		return err
	}

	query := `INSERT INTO documents (collection, id, body) VALUES ($1, $2, $3)`
	if _, err := s.db.Exec(ctx, query, collection, id, body); err != nil {
		return handlePostgresError("insert document", err)
	}
	return nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter filehost.Filter) (map[string]interface{}, error) {
	where, args := buildWhere(collection, filter)
	query := `SELECT body FROM documents WHERE ` + where + ` ORDER BY created_at LIMIT 1`

	var body map[string]interface{}
	if err := s.db.QueryRow(ctx, query, args...).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, filehost.ErrDocumentNotFound
		}
		return nil, handlePostgresError("find document", err)
	}
	return body, nil
}

// Distinct returns the distinct text values at field. JSONB values are
// compared in their text form.
func (s *Store) Distinct(ctx context.Context, collection, field string) ([]interface{}, error) {
	query := `
		SELECT DISTINCT body #>> $2::text[] AS value
		FROM documents
		WHERE collection = $1 AND body #>> $2::text[] IS NOT NULL
		ORDER BY value`

	rows, err := s.db.Query(ctx, query, collection, fieldPath(field))
	if err != nil {
		return nil, handlePostgresError("distinct", err)
	}
	defer rows.Close()

	values := []interface{}{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, handlePostgresError("distinct", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("distinct", err)
	}
	return values, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter filehost.Filter, projection []string) ([]map[string]interface{}, error) {
	where, args := buildWhere(collection, filter)
	query := `SELECT body FROM documents WHERE ` + where + ` ORDER BY created_at`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError("find documents", err)
	}
	defer rows.Close()

	out := []map[string]interface{}{}
	for rows.Next() {
		var body map[string]interface{}
		if err := rows.Scan(&body); err != nil {
			return nil, handlePostgresError("find documents", err)
		}
		out = append(out, filehost.Project(body, projection))
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("find documents", err)
	}
	return out, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// encodeDocument marshals doc and returns its JSON body and _id, minting an
// _id when the document has none.
func encodeDocument(doc interface{}) ([]byte, string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode document: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return nil, "", errors.New("document must be a JSON object")
	}

	id, ok := m["_id"]
	if !ok || id == nil || id == "" {
		id = uuid.NewString()
		m["_id"] = id
		if data, err = json.Marshal(m); err != nil {
			return nil, "", fmt.Errorf("failed to encode document: %w", err)
		}
	}
	return data, fmt.Sprint(id), nil
}

// buildWhere turns an equality filter into a WHERE clause over the body
// column. Keys are sorted so the generated SQL is stable.
func buildWhere(collection string, filter filehost.Filter) (string, []interface{}) {
	clauses := []string{"collection = $1"}
	args := []interface{}{collection}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if k == "_id" {
			args = append(args, fmt.Sprint(filter[k]))
			clauses = append(clauses, fmt.Sprintf("id = $%d", len(args)))
			continue
		}
		args = append(args, fieldPath(k), fmt.Sprint(filter[k]))
		clauses = append(clauses, fmt.Sprintf("body #>> $%d::text[] = $%d", len(args)-1, len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func fieldPath(field string) []string {
	return strings.Split(field, ".")
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate document id")
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}
