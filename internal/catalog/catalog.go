// Package catalog maps table names to open storage.Table handles within
// one directory, and persists each table's identity across restarts in a
// catalog.json manifest.
package catalog

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/gypsocat/mtbstore/internal/schema"
	"github.com/gypsocat/mtbstore/internal/storage"
)

// Catalog owns every open storage.Table in one directory. It is safe
// for concurrent use: opens of the same table name collapse into one
// underlying storage.OpenOrCreate call via singleflight, and mutation
// of the table map is guarded by mu.
type Catalog struct {
	dir string

	mu     sync.Mutex
	tables map[string]*storage.Table

	manifest *manifestFile
	group    singleflight.Group
}

// Open loads (or initializes) the catalog manifest for dir. It does not
// eagerly open any table file; tables are opened lazily by name.
func Open(dir string) (*Catalog, error) {
	manifest, err := loadManifest(dir)
	if err != nil {
		return nil, err
	}

	return &Catalog{
		dir:      dir,
		tables:   make(map[string]*storage.Table, len(manifest.Tables)),
		manifest: manifest,
	}, nil
}

// TableInfo is the catalog-level identity of a table, independent of
// whether it currently has an open handle.
type TableInfo struct {
	Name      string
	ID        string
	CreatedAt string
}

// List returns every table the manifest knows about.
func (c *Catalog) List() []TableInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]TableInfo, 0, len(c.manifest.Tables))
	for name, rec := range c.manifest.Tables {
		out = append(out, TableInfo{
			Name:      name,
			ID:        rec.ID,
			CreatedAt: rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}

// CreateTable creates a brand-new table, registers it in the manifest,
// and returns its open handle. It fails if the name is already
// registered, even if the underlying files were deleted out of band.
func (c *Catalog) CreateTable(name string, defs []schema.ColumnDef) (*storage.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.manifest.Tables[name]; exists {
		return nil, ErrTableAlreadyExists(name)
	}

	tbl, err := storage.OpenOrCreate(c.dir, name, defs)
	if err != nil {
		return nil, err
	}

	c.manifest.Tables[name] = newTableRecord()
	if err := c.manifest.save(c.dir); err != nil {
		tbl.Close()
		delete(c.manifest.Tables, name)
		return nil, err
	}

	c.tables[name] = tbl
	return tbl, nil
}

// OpenTable returns the named table's handle, opening it from disk on
// first access. Concurrent OpenTable calls for the same name collapse
// into a single storage.OpenOrCreate via singleflight, the same
// de-duplication x/sync/singleflight is built for.
func (c *Catalog) OpenTable(name string) (*storage.Table, error) {
	c.mu.Lock()
	if tbl, ok := c.tables[name]; ok {
		c.mu.Unlock()
		return tbl, nil
	}
	if _, registered := c.manifest.Tables[name]; !registered {
		c.mu.Unlock()
		return nil, ErrTableDoesNotExist(name)
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do(name, func() (interface{}, error) {
		return storage.OpenOrCreate(c.dir, name, nil)
	})
	if err != nil {
		return nil, err
	}
	tbl := result.(*storage.Table)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.tables[name]; ok {
		if existing != tbl {
			tbl.Close()
		}
		return existing, nil
	}
	c.tables[name] = tbl
	return tbl, nil
}

// DropTable erases the table's files and removes it from the manifest.
func (c *Catalog) DropTable(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, registered := c.manifest.Tables[name]; !registered {
		return ErrTableDoesNotExist(name)
	}

	if tbl, ok := c.tables[name]; ok {
		if err := tbl.EraseAndMakeUnavailable(); err != nil {
			return fmt.Errorf("catalog: erase table %q: %w", name, err)
		}
		delete(c.tables, name)
	} else {
		tbl, err := storage.OpenOrCreate(c.dir, name, nil)
		if err != nil {
			return err
		}
		if err := tbl.EraseAndMakeUnavailable(); err != nil {
			return fmt.Errorf("catalog: erase table %q: %w", name, err)
		}
	}

	delete(c.manifest.Tables, name)
	return c.manifest.save(c.dir)
}

// Close flushes and unmaps every open table handle.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for name, tbl := range c.tables {
		if err := tbl.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("catalog: close table %q: %w", name, err)
		}
	}
	return firstErr
}
