package schema

import (
	"encoding/binary"
	"fmt"
)

const (
	headerSize       = 8  // column_count + primary_ordinal
	descriptorSize   = 12 // name_offset + name_length + type_tag
	noPrimaryMarker  = 0xFFFFFFFF
)

// EncodedSize returns the exact byte length Encode will produce:
// 8 + 12*column_count + sum(name_length_i).
func (s *Schema) EncodedSize() int {
	size := headerSize + descriptorSize*len(s.Columns)
	for _, c := range s.Columns {
		size += len(c.Name)
	}
	return size
}

// Encode serializes the schema into buf, which must be at least
// EncodedSize() bytes. It returns the number of bytes written.
func (s *Schema) Encode(buf []byte) (int, error) {
	need := s.EncodedSize()
	if len(buf) < need {
		return 0, fmt.Errorf("schema: buffer too small: have %d, need %d", len(buf), need)
	}

	binary.BigEndian.PutUint32(buf[0:], uint32(len(s.Columns)))
	if s.PrimaryOrdinal == NoPrimary {
		binary.BigEndian.PutUint32(buf[4:], noPrimaryMarker)
	} else {
		binary.BigEndian.PutUint32(buf[4:], uint32(s.PrimaryOrdinal))
	}

	nameArea := buf[headerSize+descriptorSize*len(s.Columns):need]
	var nameOffset uint32
	for i, c := range s.Columns {
		desc := buf[headerSize+i*descriptorSize:]
		binary.BigEndian.PutUint32(desc[0:], nameOffset)
		binary.BigEndian.PutUint32(desc[4:], uint32(len(c.Name)))
		binary.BigEndian.PutUint32(desc[8:], uint32(c.Type))

		copy(nameArea[nameOffset:], c.Name)
		nameOffset += uint32(len(c.Name))
	}

	return need, nil
}

// Decode rehydrates a Schema from a buffer produced by Encode. Type tags
// outside {0, 1} are a fatal decode error.
func Decode(buf []byte) (*Schema, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("schema: buffer too small for header")
	}

	columnCount := binary.BigEndian.Uint32(buf[0:])
	primaryRaw := binary.BigEndian.Uint32(buf[4:])

	descEnd := headerSize + int(columnCount)*descriptorSize
	if len(buf) < descEnd {
		return nil, fmt.Errorf("schema: buffer too small for %d descriptors", columnCount)
	}
	nameArea := buf[descEnd:]

	defs := make([]ColumnDef, columnCount)
	for i := 0; i < int(columnCount); i++ {
		desc := buf[headerSize+i*descriptorSize:]
		nameOffset := binary.BigEndian.Uint32(desc[0:])
		nameLength := binary.BigEndian.Uint32(desc[4:])
		typeTag := binary.BigEndian.Uint32(desc[8:])

		if typeTag != uint32(TypeInt) && typeTag != uint32(TypeString) {
			return nil, fmt.Errorf("schema: column %d has unknown type tag %d", i, typeTag)
		}
		if uint64(nameOffset)+uint64(nameLength) > uint64(len(nameArea)) {
			return nil, fmt.Errorf("schema: column %d name out of bounds", i)
		}

		defs[i] = ColumnDef{
			Name: string(nameArea[nameOffset : nameOffset+nameLength]),
			Type: ColumnType(typeTag),
		}
	}

	s, err := decodeBuildSchema(defs, primaryRaw)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// decodeBuildSchema mirrors New but trusts the primary ordinal recorded
// on disk instead of re-deriving it from an IsPrimary flag per column,
// since the on-disk format stores the ordinal directly rather than a
// per-column bit.
func decodeBuildSchema(defs []ColumnDef, primaryRaw uint32) (*Schema, error) {
	if primaryRaw != noPrimaryMarker && int(primaryRaw) < len(defs) {
		defs[primaryRaw].IsPrimary = true
	}
	return New(defs)
}
