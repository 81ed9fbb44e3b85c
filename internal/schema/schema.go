// Package schema models a table's column list — the IndexFile content —
// and its big-endian, self-describing on-disk codec.
package schema

import (
	"fmt"

	"github.com/gypsocat/mtbstore/internal/value"
)

// ColumnType is one of the two column kinds the core understands.
type ColumnType int32

const (
	TypeInt    ColumnType = 0
	TypeString ColumnType = 1
)

func (t ColumnType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeString:
		return "STRING"
	default:
		return "UNKNOWN"
	}
}

// Size returns the on-disk byte width of a column of this type.
func (t ColumnType) Size() (uint32, error) {
	switch t {
	case TypeInt:
		return 4, nil
	case TypeString:
		return 4 + uint32(value.MaxStringLen), nil
	default:
		return 0, fmt.Errorf("schema: unknown column type tag %d", int32(t))
	}
}

// ColumnDef is the caller-supplied triple (name, type, is_primary); the
// byte offset is derived during Schema construction and lives on Column.
type ColumnDef struct {
	Name      string
	Type      ColumnType
	IsPrimary bool
}

// Column is a ColumnDef plus its derived byte offset within a slot's
// record area (i.e. relative to the 4-byte allocation flag).
type Column struct {
	Name      string
	Type      ColumnType
	IsPrimary bool
	Offset    uint32
}

// Schema is an ordered sequence of columns plus the primary column's
// ordinal. Declaration order is permanent: it determines on-disk column
// offsets.
type Schema struct {
	Columns        []Column
	PrimaryOrdinal int // -1 if no column is primary.

	byName      map[string]int
	recordSize  uint32 // sum of column sizes, excludes the allocation flag.
}

// NoPrimary is the ordinal Schema.PrimaryOrdinal takes when no column is
// marked primary — a plain invalid-index value rather than a sentinel
// overloaded onto a signed or unsigned return.
const NoPrimary = -1

// New builds a Schema from an ordered column-definition list, validating
// names are non-empty and unique. Only the first column claiming primary
// wins; NoPrimary if none does.
func New(defs []ColumnDef) (*Schema, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("schema: at least one column is required")
	}

	s := &Schema{
		Columns:        make([]Column, len(defs)),
		PrimaryOrdinal: NoPrimary,
		byName:         make(map[string]int, len(defs)),
	}

	var offset uint32
	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("schema: column %d has empty name", i)
		}
		if _, exists := s.byName[def.Name]; exists {
			return nil, fmt.Errorf("schema: duplicate column name %q", def.Name)
		}

		size, err := def.Type.Size()
		if err != nil {
			return nil, err
		}

		col := Column{
			Name:      def.Name,
			Type:      def.Type,
			IsPrimary: def.IsPrimary && s.PrimaryOrdinal == NoPrimary,
			Offset:    offset,
		}
		if col.IsPrimary {
			s.PrimaryOrdinal = i
		}

		s.Columns[i] = col
		s.byName[def.Name] = i
		offset += size
	}

	s.recordSize = offset
	return s, nil
}

// RecordSize is S, the sum of every column's on-disk size — the record
// area width excluding the 4-byte allocation flag.
func (s *Schema) RecordSize() uint32 {
	return s.recordSize
}

// EntrySize is 4 + RecordSize: the full width of one slot.
func (s *Schema) EntrySize() uint32 {
	return 4 + s.recordSize
}

// IndexOf returns the ordinal of the named column and true, or (0,
// false) if no such column exists — a comma-ok pair instead of a magic
// sentinel value.
func (s *Schema) IndexOf(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Column returns the named column descriptor.
func (s *Schema) Column(name string) (Column, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Column{}, false
	}
	return s.Columns[i], true
}

// Primary returns the primary column descriptor, if any.
func (s *Schema) Primary() (Column, bool) {
	if s.PrimaryOrdinal == NoPrimary {
		return Column{}, false
	}
	return s.Columns[s.PrimaryOrdinal], true
}
