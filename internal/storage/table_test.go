package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gypsocat/mtbstore/internal/schema"
	"github.com/gypsocat/mtbstore/internal/value"
)

func userDefs() []schema.ColumnDef {
	return []schema.ColumnDef{
		{Name: "id", Type: schema.TypeInt, IsPrimary: true},
		{Name: "name", Type: schema.TypeString},
	}
}

func TestOpenOrCreate_CreateThenReopen(t *testing.T) {
	dir := t.TempDir()

	tbl, err := OpenOrCreate(dir, "users", userDefs())
	require.NoError(t, err)

	_, err = tbl.AppendEntry([]value.Value{
		value.NewInt(1),
		mustString(t, "alice"),
	})
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	reopened, err := OpenOrCreate(dir, "users", nil)
	require.NoError(t, err)
	defer reopened.Close()

	var names []string
	err = reopened.TraverseLiveRead(func(e *Entry) error {
		v, err := e.Get("name")
		if err != nil {
			return err
		}
		s, _ := v.String()
		names = append(names, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names)
}

func TestOpenOrCreate_RejectsSchemaOnExisting(t *testing.T) {
	dir := t.TempDir()

	tbl, err := OpenOrCreate(dir, "users", userDefs())
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	_, err = OpenOrCreate(dir, "users", userDefs())
	assert.Error(t, err)
}

func TestOpenOrCreate_RejectsMissingSchemaOnCreate(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenOrCreate(dir, "users", nil)
	assert.Error(t, err)
}

func TestAppendAndDeleteByID(t *testing.T) {
	dir := t.TempDir()
	tbl, err := OpenOrCreate(dir, "users", userDefs())
	require.NoError(t, err)
	defer tbl.Close()

	e1, err := tbl.AppendEntry([]value.Value{value.NewInt(1), mustString(t, "alice")})
	require.NoError(t, err)
	_, err = tbl.AppendEntry([]value.Value{value.NewInt(2), mustString(t, "bob")})
	require.NoError(t, err)

	deleted, err := tbl.DeleteEntry(e1)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, e1.IsAllocated())

	ids := tbl.alloc.LiveIDs()
	assert.Len(t, ids, 1)
}

func TestDeleteEntryByID_NoOpWhenNotAllocated(t *testing.T) {
	dir := t.TempDir()
	tbl, err := OpenOrCreate(dir, "users", userDefs())
	require.NoError(t, err)
	defer tbl.Close()

	deleted, err := tbl.DeleteEntryByID(7)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteEntryByPrimaryKey_DeletesMatchingRowsOnly(t *testing.T) {
	dir := t.TempDir()
	tbl, err := OpenOrCreate(dir, "users", userDefs())
	require.NoError(t, err)
	defer tbl.Close()

	_, err = tbl.AppendEntry([]value.Value{value.NewInt(1), mustString(t, "alice")})
	require.NoError(t, err)
	_, err = tbl.AppendEntry([]value.Value{value.NewInt(2), mustString(t, "bob")})
	require.NoError(t, err)
	_, err = tbl.AppendEntry([]value.Value{value.NewInt(1), mustString(t, "alice-again")})
	require.NoError(t, err)

	count, err := tbl.DeleteEntryByPrimaryKey(value.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	remaining := 0
	err = tbl.TraverseLiveRead(func(e *Entry) error {
		remaining++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestDeleteEntryByPrimaryKey_RejectsTypeMismatch(t *testing.T) {
	dir := t.TempDir()
	tbl, err := OpenOrCreate(dir, "users", userDefs())
	require.NoError(t, err)
	defer tbl.Close()

	_, err = tbl.DeleteEntryByPrimaryKey(mustString(t, "not-an-int"))
	assert.Error(t, err)
}

func TestDeleteEntryByPrimaryKey_RejectsNoPrimaryColumn(t *testing.T) {
	dir := t.TempDir()
	tbl, err := OpenOrCreate(dir, "widgets", []schema.ColumnDef{
		{Name: "label", Type: schema.TypeString},
	})
	require.NoError(t, err)
	defer tbl.Close()

	_, err = tbl.DeleteEntryByPrimaryKey(mustString(t, "x"))
	assert.Error(t, err)
}

func TestEntrySet_RejectsUnknownColumn(t *testing.T) {
	dir := t.TempDir()
	tbl, err := OpenOrCreate(dir, "users", userDefs())
	require.NoError(t, err)
	defer tbl.Close()

	e, err := tbl.AllocateEntry()
	require.NoError(t, err)
	assert.False(t, e.Set("nope", value.NewInt(1)))
}

func TestEntrySet_RejectsTypeMismatch(t *testing.T) {
	dir := t.TempDir()
	tbl, err := OpenOrCreate(dir, "users", userDefs())
	require.NoError(t, err)
	defer tbl.Close()

	e, err := tbl.AllocateEntry()
	require.NoError(t, err)
	assert.False(t, e.Set("id", mustString(t, "nope")))
}

func TestEraseAndMakeUnavailable_PoisonsTable(t *testing.T) {
	dir := t.TempDir()
	tbl, err := OpenOrCreate(dir, "users", userDefs())
	require.NoError(t, err)

	require.NoError(t, tbl.EraseAndMakeUnavailable())
	assert.True(t, tbl.HasError())

	_, err = tbl.AllocateEntry()
	assert.Error(t, err)

	_, err = OpenOrCreate(dir, "users", nil)
	assert.Error(t, err)
}

func TestGetTypeIndex_CommaOkForMissingColumn(t *testing.T) {
	dir := t.TempDir()
	tbl, err := OpenOrCreate(dir, "users", userDefs())
	require.NoError(t, err)
	defer tbl.Close()

	idx, ok := tbl.GetTypeIndex("id")
	assert.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = tbl.GetTypeIndex("nonexistent")
	assert.False(t, ok)
}

func mustString(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.NewString([]byte(s))
	require.NoError(t, err)
	return v
}
