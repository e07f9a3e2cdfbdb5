package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StoreSQLite keeps one JSON document per path. Reading a path assembles the
// rows at its ancestors, itself and its descendants into a single value.
type StoreSQLite struct {
	db *sql.DB
}

func NewStoreSQLite(db *sql.DB) *StoreSQLite {
	return &StoreSQLite{db: db}
}

var _ StateStore = (*StoreSQLite)(nil)

const (
	deleteSubtreeSQL = `DELETE FROM state_store WHERE path = ? OR substr(path, 1, ?) = ?`

	insertValueSQL = `
		INSERT INTO state_store (path, value, updated_at)
		VALUES (?, ?, ?)
	`

	// %s is replaced with the placeholder list for the path and its ancestors.
	selectTreeSQL = `
		SELECT path, value FROM state_store
		WHERE path IN (%s) OR substr(path, 1, ?) = ?
		ORDER BY length(path) ASC
	`
)

// splitPath normalizes "a/b/c" (surrounding slashes ignored) into segments.
func splitPath(path string) ([]string, error) {
	trimmed := strings.Trim(strings.TrimSpace(path), "/")
	if trimmed == "" {
		return nil, ErrInvalidPath
	}
	segs := strings.Split(trimmed, "/")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

// ancestry returns the path itself followed by its ancestors ("a/b/c", "a/b", "a").
func ancestry(segs []string) []string {
	out := make([]string, 0, len(segs))
	for i := len(segs); i > 0; i-- {
		out = append(out, strings.Join(segs[:i], "/"))
	}
	return out
}

// Set replaces the value at path and drops every descendant.
func (r *StoreSQLite) Set(ctx context.Context, path string, value any) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	key := strings.Join(segs, "/")
	prefix := key + "/"

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for %q: %w", key, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set %q: %w", key, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, deleteSubtreeSQL, key, len(prefix), prefix); err != nil {
		return fmt.Errorf("clear %q: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, insertValueSQL, key, string(raw), time.Now().UTC()); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set %q: %w", key, err)
	}
	return nil
}

// Get decodes the value at path into dst. It returns false (and leaves dst
// untouched) when nothing is stored at or below path.
func (r *StoreSQLite) Get(ctx context.Context, path string, dst any) (bool, error) {
	segs, err := splitPath(path)
	if err != nil {
		return false, err
	}
	key := strings.Join(segs, "/")
	prefix := key + "/"

	lineage := ancestry(segs)
	args := make([]any, 0, len(lineage)+2)
	for _, p := range lineage {
		args = append(args, p)
	}
	args = append(args, len(prefix), prefix)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(lineage)), ", ")

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(selectTreeSQL, placeholders), args...)
	if err != nil {
		return false, fmt.Errorf("read %q: %w", key, err)
	}
	defer rows.Close()

	root := map[string]any{}
	for rows.Next() {
		var rowPath, rowValue string
		if err := rows.Scan(&rowPath, &rowValue); err != nil {
			return false, fmt.Errorf("scan %q: %w", key, err)
		}
		var v any
		if err := json.Unmarshal([]byte(rowValue), &v); err != nil {
			return false, fmt.Errorf("decode %q: %w", rowPath, err)
		}
		placeAt(root, strings.Split(rowPath, "/"), v)
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("read %q: %w", key, err)
	}

	v, ok := lookup(root, segs)
	if !ok || v == nil {
		return false, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("re-encode %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %q into %T: %w", key, dst, err)
	}
	return true, nil
}

// placeAt stores v at segs below root, replacing non-object intermediates.
func placeAt(root map[string]any, segs []string, v any) {
	node := root
	for _, s := range segs[:len(segs)-1] {
		next, ok := node[s].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[s] = next
		}
		node = next
	}
	node[segs[len(segs)-1]] = v
}

func lookup(root map[string]any, segs []string) (any, bool) {
	var cur any = root
	for _, s := range segs {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[s]; !ok {
			return nil, false
		}
	}
	return cur, true
}
