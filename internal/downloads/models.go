// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

package downloads

import (
	"time"

	"github.com/uptrace/bun"
)

// Item is a downloaded video kept for offline playback.
type Item struct {
	ID        string
	ContentID string
	Title     string
	Path      string
	Bytes     int64
	CreatedAt time.Time
}

type itemRecord struct {
	bun.BaseModel `bun:"table:downloads,alias:d"`

	ID        string    `bun:"id,pk"`
	ContentID string    `bun:"content_id,notnull"`
	Title     string    `bun:"title,notnull"`
	Path      string    `bun:"path,notnull,unique"`
	Bytes     int64     `bun:"bytes,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r *itemRecord) toDomain() Item {
	return Item{
		ID:        r.ID,
		ContentID: r.ContentID,
		Title:     r.Title,
		Path:      r.Path,
		Bytes:     r.Bytes,
		CreatedAt: r.CreatedAt,
	}
}
