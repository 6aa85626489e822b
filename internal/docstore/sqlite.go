package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// SQLite implements Store on a single documents table: one row per document,
// keyed by logical path, payload stored as JSON.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// collectionOf returns the collection portion of a document path, i.e.
// everything up to the final segment.
func collectionOf(path string) string {
	if i := strings.LastIndexByte(path, '/'); i > 0 {
		return path[:i]
	}
	return ""
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getDoc(ctx context.Context, q querier, path string) (*Document, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT data FROM documents WHERE path = ?`, path).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}

	var fields Fields
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &Document{Path: path, Fields: fields}, nil
}

func setDoc(ctx context.Context, q querier, path string, fields Fields) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO documents (path, collection, data) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		path, collectionOf(path), string(raw),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func createDoc(ctx context.Context, q querier, path string, fields Fields) error {
	// Existence check and insert run inside the caller's transaction, so the
	// check cannot race a concurrent create.
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM documents WHERE path = ?`, path).Scan(&one)
	if err == nil {
		return fmt.Errorf("create %s: %w", path, ErrExists)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("create %s: %w", path, err)
	}

	raw, marshalErr := json.Marshal(fields)
	if marshalErr != nil {
		return fmt.Errorf("encode %s: %w", path, marshalErr)
	}
	if _, err := q.ExecContext(ctx,
		`INSERT INTO documents (path, collection, data) VALUES (?, ?, ?)`,
		path, collectionOf(path), string(raw),
	); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

func updateDoc(ctx context.Context, q querier, path string, fields Fields) error {
	doc, err := getDoc(ctx, q, path)
	if err != nil {
		return err
	}
	for k, v := range fields {
		if v == FieldDelete {
			delete(doc.Fields, k)
			continue
		}
		doc.Fields[k] = v
	}
	return setDoc(ctx, q, path, doc.Fields)
}

func deleteDoc(ctx context.Context, q querier, path string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", path, ErrNotFound)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, path string) (*Document, error) {
	return getDoc(ctx, s.db, path)
}

func (s *SQLite) Set(ctx context.Context, path string, fields Fields) error {
	return setDoc(ctx, s.db, path, fields)
}

func (s *SQLite) Update(ctx context.Context, path string, fields Fields) error {
	// Read-merge-write must be atomic even outside an explicit caller
	// transaction.
	return s.RunTransaction(ctx, func(tx Tx) error {
		return tx.Update(ctx, path, fields)
	})
}

func (s *SQLite) Delete(ctx context.Context, path string) error {
	return deleteDoc(ctx, s.db, path)
}

// RunQuery evaluates a filtered read over one collection. Equality and "in"
// filters plus ordering are pushed down via json_extract; values compare the
// way they serialize, so RFC 3339 timestamps order chronologically.
func (s *SQLite) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	sb := strings.Builder{}
	sb.WriteString(`SELECT path, data FROM documents WHERE collection = ?`)
	args := []any{q.Collection}

	for _, f := range q.Filters {
		switch f.Op {
		case "==":
			sb.WriteString(` AND json_extract(data, ?) = ?`)
			args = append(args, "$."+f.Field, f.Value)
		case "in":
			values, ok := f.Value.([]any)
			if !ok || len(values) == 0 {
				return nil, fmt.Errorf("query %s: filter %q: in-op needs a non-empty value list", q.Collection, f.Field)
			}
			sb.WriteString(` AND json_extract(data, ?) IN (` + placeholders(len(values)) + `)`)
			args = append(args, "$."+f.Field)
			args = append(args, values...)
		default:
			return nil, fmt.Errorf("query %s: unsupported filter op %q", q.Collection, f.Op)
		}
	}

	if q.OrderBy != nil {
		sb.WriteString(` ORDER BY json_extract(data, ?)`)
		args = append(args, "$."+q.OrderBy.Field)
		if q.OrderBy.Desc {
			sb.WriteString(` DESC`)
		}
	} else {
		sb.WriteString(` ORDER BY path`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var path, raw string
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", q.Collection, err)
		}
		var fields Fields
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		docs = append(docs, Document{Path: path, Fields: fields})
	}
	return docs, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Get(ctx context.Context, path string) (*Document, error) {
	return getDoc(ctx, t.tx, path)
}

func (t *sqliteTx) Set(ctx context.Context, path string, fields Fields) error {
	return setDoc(ctx, t.tx, path, fields)
}

func (t *sqliteTx) Create(ctx context.Context, path string, fields Fields) error {
	return createDoc(ctx, t.tx, path, fields)
}

func (t *sqliteTx) Update(ctx context.Context, path string, fields Fields) error {
	return updateDoc(ctx, t.tx, path, fields)
}

func (t *sqliteTx) Delete(ctx context.Context, path string) error {
	return deleteDoc(ctx, t.tx, path)
}

// RunTransaction runs fn against a transaction handle. fn returning an error
// rolls back every write; the error propagates unmodified.
func (s *SQLite) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLite) NewBatch() *Batch {
	return &Batch{store: s}
}
