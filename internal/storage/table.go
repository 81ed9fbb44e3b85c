// Package storage ties FileMapper, SlotAllocator, and the schema codec
// together into the table-level API: a two-file on-disk table (.idx +
// .dat) with typed column accessors, append/delete, and live-slot
// traversal.
package storage

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/gypsocat/mtbstore/internal/consts"
	"github.com/gypsocat/mtbstore/internal/mmap"
	"github.com/gypsocat/mtbstore/internal/predicate"
	"github.com/gypsocat/mtbstore/internal/schema"
	"github.com/gypsocat/mtbstore/internal/slotalloc"
	"github.com/gypsocat/mtbstore/internal/storageerr"
	"github.com/gypsocat/mtbstore/internal/value"
)

const slotCountHeaderSize = 4

// Table is the mmap-backed slotted table. It owns both file mappers and
// the slot allocator; nothing else in the process should touch the same
// .idx/.dat pair concurrently.
type Table struct {
	dir  string
	name string

	idx    *mmap.Mapper
	dat    *mmap.Mapper
	schema *schema.Schema
	alloc  *slotalloc.Allocator

	slotCount uint32
	hasError  bool
}

func idxPath(dir, name string) string {
	return filepath.Join(dir, name+consts.IndexExtension)
}

func datPath(dir, name string) string {
	return filepath.Join(dir, name+consts.DataExtension)
}

// bothFilesExist reports which of the table's two files are present.
func bothFilesExist(dir, name string) (idxExists, datExists bool) {
	_, err := os.Stat(idxPath(dir, name))
	idxExists = err == nil
	_, err = os.Stat(datPath(dir, name))
	datExists = err == nil
	return
}

// OpenOrCreate is the single entry point: with defs nil, both files
// must already exist and are rehydrated; with defs non-nil, neither
// file may exist and a fresh table is created. Any other
// combination is an error.
func OpenOrCreate(dir, name string, defs []schema.ColumnDef) (*Table, error) {
	idxExists, datExists := bothFilesExist(dir, name)

	switch {
	case idxExists && datExists:
		if defs != nil {
			return nil, ErrSchemaNotAllowed(name)
		}
		return open(dir, name)
	case !idxExists && !datExists:
		if defs == nil {
			return nil, ErrSchemaRequired(name)
		}
		return create(dir, name, defs)
	default:
		return nil, ErrOneIndexFileMissing(name)
	}
}

func open(dir, name string) (*Table, error) {
	idxMapper, err := mmap.Open(idxPath(dir, name))
	if err != nil {
		return nil, err
	}
	datMapper, err := mmap.Open(datPath(dir, name))
	if err != nil {
		idxMapper.Close()
		return nil, err
	}

	s, err := schema.Decode(idxMapper.Pointer())
	if err != nil {
		idxMapper.Close()
		datMapper.Close()
		return nil, storageerr.Wrap(storageerr.Critical, "schema.Decode", err)
	}

	t := &Table{
		dir:    dir,
		name:   name,
		idx:    idxMapper,
		dat:    datMapper,
		schema: s,
	}

	if err := t.rehydrateAllocator(); err != nil {
		idxMapper.Close()
		datMapper.Close()
		return nil, err
	}

	return t, nil
}

func create(dir, name string, defs []schema.ColumnDef) (*Table, error) {
	s, err := schema.New(defs)
	if err != nil {
		return nil, err
	}

	idxMapper, err := mmap.Open(idxPath(dir, name))
	if err != nil {
		return nil, err
	}
	if err := idxMapper.GrowUntil(s.EncodedSize()); err != nil {
		idxMapper.Close()
		return nil, err
	}
	if _, err := s.Encode(idxMapper.Pointer()); err != nil {
		idxMapper.Close()
		return nil, storageerr.Wrap(storageerr.Fatal, "schema.Encode", err)
	}
	if err := idxMapper.Flush(); err != nil {
		idxMapper.Close()
		return nil, err
	}

	datMapper, err := mmap.Open(datPath(dir, name))
	if err != nil {
		idxMapper.Close()
		return nil, err
	}
	binary.BigEndian.PutUint32(datMapper.Pointer()[0:slotCountHeaderSize], 0)

	return &Table{
		dir:    dir,
		name:   name,
		idx:    idxMapper,
		dat:    datMapper,
		schema: s,
		alloc:  slotalloc.New(),
	}, nil
}

func (t *Table) rehydrateAllocator() error {
	t.slotCount = binary.BigEndian.Uint32(t.dat.Pointer()[0:slotCountHeaderSize])

	entrySize := int(t.schema.EntrySize())
	required := slotCountHeaderSize + int(t.slotCount)*entrySize
	if err := t.dat.GrowUntil(required); err != nil {
		return err
	}

	live := make([]bool, t.slotCount)
	for id := uint32(0); id < t.slotCount; id++ {
		flag := binary.BigEndian.Uint32(t.dat.Pointer()[t.slotOffset(int(id)):])
		live[id] = flag != 0
	}
	t.alloc = slotalloc.FromBitmap(live)
	return nil
}

// HasError reports whether this table has been poisoned by a prior
// fatal/critical failure and must refuse further operations.
func (t *Table) HasError() bool {
	return t.hasError
}

func (t *Table) poison(err error) error {
	t.hasError = true
	return err
}

func (t *Table) checkHealthy() error {
	if t.hasError {
		return ErrTablePoisoned(t.name)
	}
	return nil
}

// Schema exposes the table's column list.
func (t *Table) Schema() *schema.Schema {
	return t.schema
}

// Name returns the table's name within its owning directory.
func (t *Table) Name() string {
	return t.name
}

func (t *Table) slotOffset(id int) int {
	return slotCountHeaderSize + id*int(t.schema.EntrySize())
}

func (t *Table) columnOffset(id int, col schema.Column) int {
	return t.slotOffset(id) + 4 + int(col.Offset)
}

func (t *Table) ensureDataCapacity(id int) error {
	required := t.slotOffset(id) + int(t.schema.EntrySize())
	return t.dat.GrowUntil(required)
}

func (t *Table) writeSlotCountHeader() {
	binary.BigEndian.PutUint32(t.dat.Pointer()[0:slotCountHeaderSize], t.slotCount)
}

// AllocateEntry allocates a fresh slot id (reusing a freed one if any),
// grows the data mapper until the slot is in range, marks it live, and
// returns an Entry bound to it.
func (t *Table) AllocateEntry() (*Entry, error) {
	if err := t.checkHealthy(); err != nil {
		return nil, err
	}

	id := t.alloc.Allocate()
	if err := t.ensureDataCapacity(id); err != nil {
		t.alloc.Free(id)
		return nil, t.poison(err)
	}

	binary.BigEndian.PutUint32(t.dat.Pointer()[t.slotOffset(id):], 1)

	if uint32(id) >= t.slotCount {
		t.slotCount = uint32(id) + 1
		t.writeSlotCountHeader()
	}

	return &Entry{table: t, id: id}, nil
}

// AppendEntry allocates a slot and writes values into its columns in
// declaration order. The number of values must match the column count.
func (t *Table) AppendEntry(values []value.Value) (*Entry, error) {
	if err := t.checkHealthy(); err != nil {
		return nil, err
	}
	if len(values) != len(t.schema.Columns) {
		return nil, ErrNoSuchColumn("<value count mismatch>")
	}

	entry, err := t.AllocateEntry()
	if err != nil {
		return nil, err
	}

	for i, col := range t.schema.Columns {
		entry.setColumn(col, values[i])
	}

	return entry, nil
}

// DeleteEntry clears entry's allocation flag and frees its id, if it is
// currently allocated. It reports whether a deletion occurred.
func (t *Table) DeleteEntry(entry *Entry) (bool, error) {
	return t.DeleteEntryByID(entry.id)
}

// DeleteEntryByID deletes by raw slot id. Out-of-range or already-free
// ids are a silent no-op.
func (t *Table) DeleteEntryByID(id int) (bool, error) {
	if err := t.checkHealthy(); err != nil {
		return false, err
	}
	if !t.alloc.IsAllocated(id) {
		return false, nil
	}

	binary.BigEndian.PutUint32(t.dat.Pointer()[t.slotOffset(id):], 0)
	t.alloc.Free(id)
	return true, nil
}

// DeleteEntryByPrimaryKey deletes every live slot whose primary column
// value equals v, comparing each row's value individually rather than
// assuming a single type check up front clears every live row for
// deletion. It returns the number of rows deleted.
func (t *Table) DeleteEntryByPrimaryKey(v value.Value) (int, error) {
	if err := t.checkHealthy(); err != nil {
		return 0, err
	}

	primary, ok := t.schema.Primary()
	if !ok {
		return 0, ErrNoPrimaryColumn(t.name)
	}
	if !columnTypeMatches(primary, v) {
		return 0, ErrPrimaryTypeMismatch(t.name)
	}

	ids := t.alloc.LiveIDs()
	deleted := 0
	for _, id := range ids {
		entry := &Entry{table: t, id: id}
		rowValue, err := entry.Get(primary.Name)
		if err != nil {
			return deleted, err
		}
		if matches, err := predicate.Match(rowValue, predicate.EQ, v); err != nil {
			return deleted, err
		} else if matches {
			if _, err := t.DeleteEntryByID(id); err != nil {
				return deleted, err
			}
			deleted++
		}
	}
	return deleted, nil
}

func columnTypeMatches(col schema.Column, v value.Value) bool {
	switch col.Type {
	case schema.TypeInt:
		_, ok := v.Int()
		return ok
	case schema.TypeString:
		_, ok := v.String()
		return ok
	default:
		return false
	}
}

// TraverseLiveRead calls fn for every live slot, most-recently-allocated
// first, stopping at the first error.
func (t *Table) TraverseLiveRead(fn func(*Entry) error) error {
	if err := t.checkHealthy(); err != nil {
		return err
	}
	var firstErr error
	t.alloc.TraverseLive(func(id int) {
		if firstErr != nil {
			return
		}
		firstErr = fn(&Entry{table: t, id: id})
	})
	return firstErr
}

// TraverseLiveRW is the mutating counterpart of TraverseLiveRead; the
// Go core carries no const/non-const distinction, so both traverse the
// same allocator order and hand the callback the same Entry type.
func (t *Table) TraverseLiveRW(fn func(*Entry) error) error {
	return t.TraverseLiveRead(fn)
}

// GetTypeIndex returns the ordinal of the named column, or (0, false) if
// it does not exist.
func (t *Table) GetTypeIndex(name string) (int, bool) {
	return t.schema.IndexOf(name)
}

// GetPrimaryIndex returns the table's primary column, if any.
func (t *Table) GetPrimaryIndex() (schema.Column, bool) {
	return t.schema.Primary()
}

// EraseAndMakeUnavailable closes both mappers, deletes both files, and
// poisons the table. Any operation afterward returns ErrTablePoisoned.
func (t *Table) EraseAndMakeUnavailable() error {
	idxErr := t.idx.Close()
	datErr := t.dat.Close()

	os.Remove(idxPath(t.dir, t.name))
	os.Remove(datPath(t.dir, t.name))

	t.hasError = true
	t.schema = nil

	if idxErr != nil {
		return idxErr
	}
	return datErr
}

// Close flushes and unmaps both files without deleting them.
func (t *Table) Close() error {
	idxErr := t.idx.Close()
	datErr := t.dat.Close()
	if idxErr != nil {
		return idxErr
	}
	return datErr
}
