package repository

import (
	"encoding/base64"
	"strings"
	"time"

	"vibeu/internal/models"

	"gorm.io/gorm"
)

// Cursor is a keyset position: the (created_at, id) of the last row on the previous page.
// IDs are time-ordered, so the pair is a strict total order even for equal timestamps.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// Encode returns the opaque client-facing form.
func (c Cursor) Encode() string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses an opaque cursor. An empty string means "first page".
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, models.NewValidationError("invalid cursor")
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, models.NewValidationError("invalid cursor")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, models.NewValidationError("invalid cursor")
	}
	return &Cursor{CreatedAt: createdAt.UTC(), ID: id}, nil
}

// keysetDesc orders newest first and, when a cursor is given, resumes strictly after it.
func keysetDesc(db *gorm.DB, table string, after *Cursor) *gorm.DB {
	if after != nil {
		db = db.Where(
			"("+table+".created_at < ? OR ("+table+".created_at = ? AND "+table+".id < ?))",
			after.CreatedAt, after.CreatedAt, after.ID,
		)
	}
	return db.Order(table + ".created_at DESC").Order(table + ".id DESC")
}

// PageOf trims a limit+1 result to limit rows and reports the cursor of the last kept row.
func PageOf[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	if len(rows) <= limit {
		return rows, nil
	}
	rows = rows[:limit]
	next := key(rows[len(rows)-1])
	return rows, &next
}
