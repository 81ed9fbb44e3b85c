package storage

import (
	"encoding/binary"

	"github.com/gypsocat/mtbstore/internal/schema"
	"github.com/gypsocat/mtbstore/internal/storageerr"
	"github.com/gypsocat/mtbstore/internal/value"
)

// Entry is a handle to one slot in a table. It does not cache column
// values; every Get/Set reads or writes the mapper's backing bytes
// directly, so values are visible to other entries immediately.
type Entry struct {
	table *Table
	id    int
}

// ID returns the slot id this entry is bound to.
func (e *Entry) ID() int {
	return e.id
}

// IsAllocated reports whether this entry's slot is currently live.
func (e *Entry) IsAllocated() bool {
	return e.table.alloc.IsAllocated(e.id)
}

// Get reads the named column's value out of the slot. An oversized
// on-disk STRING length prefix is corruption, not a value to silently
// truncate: it poisons the table and returns a Fatal-level error.
func (e *Entry) Get(name string) (value.Value, error) {
	col, ok := e.table.schema.Column(name)
	if !ok {
		return value.Value{}, ErrNoSuchColumn(name)
	}

	off := e.table.columnOffset(e.id, col)
	buf := e.table.dat.Pointer()

	switch col.Type {
	case schema.TypeInt:
		v := int32(binary.BigEndian.Uint32(buf[off:]))
		return value.NewInt(v), nil

	case schema.TypeString:
		length := binary.BigEndian.Uint32(buf[off:])
		if length > uint32(value.MaxStringLen) {
			err := e.table.poison(storageerr.New(storageerr.Fatal,
				"entry: on-disk string length prefix exceeds maximum"))
			return value.Value{}, err
		}
		payload := buf[off+4 : off+4+int(length)]
		v, err := value.NewString(payload)
		if err != nil {
			return value.Value{}, storageerr.Wrap(storageerr.Fatal, "entry: decode string", err)
		}
		return v, nil

	default:
		return value.Value{}, ErrNoSuchColumn(name)
	}
}

// Set writes v into the named column. It reports whether the column
// exists and v's encoded size fits the column's fixed width — it never
// returns an error.
func (e *Entry) Set(name string, v value.Value) bool {
	col, ok := e.table.schema.Column(name)
	if !ok {
		return false
	}
	if !columnTypeMatches(col, v) {
		return false
	}
	return e.setColumn(col, v)
}

// setColumn writes v into col's bytes, trusting that the caller has
// already checked the type matches.
func (e *Entry) setColumn(col schema.Column, v value.Value) bool {
	off := e.table.columnOffset(e.id, col)
	buf := e.table.dat.Pointer()

	switch col.Type {
	case schema.TypeInt:
		i, ok := v.Int()
		if !ok {
			return false
		}
		binary.BigEndian.PutUint32(buf[off:], uint32(i))
		return true

	case schema.TypeString:
		s, ok := v.Bytes()
		if !ok || len(s) > value.MaxStringLen {
			return false
		}
		binary.BigEndian.PutUint32(buf[off:], uint32(len(s)))
		payload := buf[off+4 : off+4+value.MaxStringLen]
		for i := range payload {
			payload[i] = 0
		}
		copy(payload, s)
		return true

	default:
		return false
	}
}
