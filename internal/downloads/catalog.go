// Copyright (c) 2025 Emitron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package downloads tracks protected videos stored on disk and deletes them
// when the user loses the download entitlement or logs out.
package downloads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	apperrors "emitron/cli/internal/errors"
	"emitron/cli/internal/session"
)

// Catalog is a SQLite index of downloaded files. It implements session.ContentPurger.
type Catalog struct {
	db  *bun.DB
	dir string
}

var _ session.ContentPurger = (*Catalog)(nil)

// Open opens the catalog database at dbPath. Files live under dir.
func Open(ctx context.Context, dbPath, dir string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, err
	}
	return OpenDSN(ctx, "file:"+dbPath+"?_busy_timeout=5000&_foreign_keys=on", dir)
}

// OpenDSN opens the catalog with a raw go-sqlite3 DSN.
func OpenDSN(ctx context.Context, dsn, dir string) (*Catalog, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open download catalog: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	c := &Catalog{db: bun.NewDB(sqlDB, sqlitedialect.New()), dir: dir}
	if err := c.migrate(ctx); err != nil {
		_ = c.db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) migrate(ctx context.Context) error {
	if _, err := c.db.NewCreateTable().Model((*itemRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create downloads table: %w", err)
	}
	_, err := c.db.NewCreateIndex().
		Model((*itemRecord)(nil)).
		Index("downloads_content_id_idx").
		Column("content_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create downloads index: %w", err)
	}
	return nil
}

// Dir returns the download directory.
func (c *Catalog) Dir() string { return c.dir }

// Close closes the database.
func (c *Catalog) Close() error { return c.db.Close() }

// Record registers a file already written to disk. Relative paths are resolved
// against the download directory.
func (c *Catalog) Record(ctx context.Context, contentID, title, path string) (Item, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return Item{}, errors.New("downloads: content id is required")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Item{}, fmt.Errorf("downloads: %w", err)
	}

	rec := &itemRecord{
		ID:        uuid.NewString(),
		ContentID: contentID,
		Title:     title,
		Path:      path,
		Bytes:     info.Size(),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := c.db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return Item{}, fmt.Errorf("downloads: record %s: %w", contentID, err)
	}
	return rec.toDomain(), nil
}

// List returns all items, oldest first.
func (c *Catalog) List(ctx context.Context) ([]Item, error) {
	var recs []itemRecord
	if err := c.db.NewSelect().Model(&recs).Order("created_at ASC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("downloads: list: %w", err)
	}
	out := make([]Item, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out, nil
}

// PurgeAll deletes every recorded file, every catalog row and anything else
// left in the download directory. Missing files are not an error.
func (c *Catalog) PurgeAll(ctx context.Context) error {
	items, err := c.List(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.PurgeFailed, "list downloads", err)
	}

	var errs []error
	for _, it := range items {
		if err := os.Remove(it.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	if _, err := c.db.NewDelete().Model((*itemRecord)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		errs = append(errs, err)
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return apperrors.Wrap(apperrors.PurgeFailed, "remove downloads", errors.Join(errs...))
	}
	return nil
}
