package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_MatchesSpecScenario(t *testing.T) {
	s, err := New([]ColumnDef{
		{Name: "a", Type: TypeInt, IsPrimary: true},
		{Name: "bb", Type: TypeString},
		{Name: "ccc", Type: TypeInt},
	})
	require.NoError(t, err)

	buf := make([]byte, s.EncodedSize())
	n, err := s.Encode(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	expectedHeader := []byte{0, 0, 0, 3, 0, 0, 0, 0}
	assert.Equal(t, expectedHeader, buf[:8])

	nameArea := buf[8+12*3:]
	assert.Equal(t, []byte("abbccc"), nameArea)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	original, err := New([]ColumnDef{
		{Name: "id", Type: TypeInt, IsPrimary: true},
		{Name: "name", Type: TypeString},
	})
	require.NoError(t, err)

	buf := make([]byte, original.EncodedSize())
	_, err = original.Encode(buf)
	require.NoError(t, err)

	decoded, err := Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, original.Columns, decoded.Columns)
	assert.Equal(t, original.PrimaryOrdinal, decoded.PrimaryOrdinal)
}

func TestDecode_RejectsUnknownTypeTag(t *testing.T) {
	buf := make([]byte, 8+12+1)
	// column_count=1, primary_ordinal=0xFFFFFFFF
	buf[3] = 1
	for i := 0; i < 4; i++ {
		buf[4+i] = 0xFF
	}
	// descriptor: name_offset=0, name_length=1, type_tag=7 (invalid)
	buf[8+7] = 1
	buf[8+11] = 7
	buf[20] = 'x'

	_, err := Decode(buf)
	assert.Error(t, err)
}

func TestNew_RejectsDuplicateNames(t *testing.T) {
	_, err := New([]ColumnDef{
		{Name: "id", Type: TypeInt},
		{Name: "id", Type: TypeString},
	})
	assert.Error(t, err)
}

func TestNew_OnlyFirstPrimaryWins(t *testing.T) {
	s, err := New([]ColumnDef{
		{Name: "a", Type: TypeInt, IsPrimary: true},
		{Name: "b", Type: TypeInt, IsPrimary: true},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.PrimaryOrdinal)
}

func TestNew_NoPrimarySentinel(t *testing.T) {
	s, err := New([]ColumnDef{{Name: "a", Type: TypeInt}})
	require.NoError(t, err)
	assert.Equal(t, NoPrimary, s.PrimaryOrdinal)
}
