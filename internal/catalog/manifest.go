package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/gypsocat/mtbstore/internal/consts"
)

const manifestFileName = "catalog" + consts.CatalogExtension

// tableRecord is one table's entry in the catalog manifest: its
// identity and the moment it was created, independent of the
// filesystem.
type tableRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// manifestFile is catalog.json's shape.
type manifestFile struct {
	Tables map[string]tableRecord `json:"tables"`
}

func manifestPath(dir string) string {
	return filepath.Join(dir, manifestFileName)
}

func loadManifest(dir string) (*manifestFile, error) {
	raw, err := os.ReadFile(manifestPath(dir))
	if os.IsNotExist(err) {
		return &manifestFile{Tables: make(map[string]tableRecord)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: os.ReadFile: %w", err)
	}

	var m manifestFile
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("catalog: json.Unmarshal: %w", err)
	}
	if m.Tables == nil {
		m.Tables = make(map[string]tableRecord)
	}
	return &m, nil
}

// save writes the manifest via create-temp-then-rename so a crash
// mid-write never leaves catalog.json truncated.
func (m *manifestFile) save(dir string) error {
	marshalled, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("catalog: json.Marshal: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "catalog.*.json.tmp")
	if err != nil {
		return fmt.Errorf("catalog: os.CreateTemp: %w", err)
	}
	defer tmp.Close()

	if _, err := tmp.Write(marshalled); err != nil {
		return fmt.Errorf("catalog: File.Write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("catalog: File.Sync: %w", err)
	}

	if err := os.Rename(tmp.Name(), manifestPath(dir)); err != nil {
		return fmt.Errorf("catalog: os.Rename: %w", err)
	}
	return nil
}

func newTableRecord() tableRecord {
	return tableRecord{ID: uuid.NewString(), CreatedAt: time.Now()}
}
