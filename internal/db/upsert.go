package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// MergeUpsertConfig defines an insert-if-absent-else-merge-non-null upsert.
type MergeUpsertConfig struct {
	Table        string   // target table
	Columns      []string // all columns being inserted, in placeholder order
	ConflictKeys []string // columns forming the unique constraint
	MergeCols    []string // columns merged via COALESCE(EXCLUDED.x, t.x) on conflict
	ReturningCol string   // optional RETURNING column
}

// MergeUpsertSQL builds an INSERT ... ON CONFLICT (keys) DO UPDATE statement
// whose update clauses never overwrite an existing value with NULL:
// each merge column becomes col = COALESCE(EXCLUDED.col, table.col).
// Columns listed in neither ConflictKeys nor MergeCols keep their stored value.
func MergeUpsertSQL(cfg MergeUpsertConfig) string {
	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var setClauses []string
	for _, col := range cfg.MergeCols {
		q := pgx.Identifier{col}.Sanitize()
		setClauses = append(setClauses,
			fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, %s.%s)", q, q, sanitizeTable(cfg.Table), q))
	}

	sql := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		sanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		strings.Join(placeholders, ", "),
		quoteAndJoin(cfg.ConflictKeys),
		strings.Join(setClauses, ", "),
	)
	if cfg.ReturningCol != "" {
		sql += " RETURNING " + pgx.Identifier{cfg.ReturningCol}.Sanitize()
	}
	return sql
}

// InsertIgnoreSQL builds an INSERT ... ON CONFLICT (keys) DO NOTHING
// statement for idempotent link-row creation.
func InsertIgnoreSQL(table string, columns, conflictKeys []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		sanitizeTable(table),
		quoteAndJoin(columns),
		strings.Join(placeholders, ", "),
		quoteAndJoin(conflictKeys),
	)
}

// sanitizeTable handles schema-qualified table names like "public.leads".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
