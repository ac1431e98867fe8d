package catalog

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/coda-audio/coda/internal/database"
)

// Store provides catalog entity persistence. It can be bound to the shared
// connection pool or to a single transaction, which is how the resolver
// scopes all get-or-create work for one import item.
type Store struct {
	db database.DBTX
}

// NewStore creates a catalog store bound to db.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

// marshalTags encodes a tag list as a JSON array for storage.
func marshalTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalTags(data string) []string {
	if data == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

// formatNullableTime renders a time pointer as RFC3339 or NULL.
func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func scanNullableTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullIfEmpty maps "" to NULL for nullable foreign keys.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func stringOrEmpty(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func scanNullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// placeholders returns "?, ?, ..." for n parameters.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	out := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ", "...)
		}
		out = append(out, '?')
	}
	return string(out)
}
