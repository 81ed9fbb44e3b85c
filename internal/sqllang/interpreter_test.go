package sqllang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gypsocat/mtbstore/internal/catalog"
)

func newInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	dir := t.TempDir()
	cat, err := catalog.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return New(cat)
}

func TestInterpreter_CreateInsertSelect(t *testing.T) {
	ip := newInterpreter(t)

	_, err := ip.Run("CREATE TABLE users (id INT PRIMARY KEY, name STRING)")
	require.NoError(t, err)

	_, err = ip.Run("INSERT INTO users VALUES (1, 'alice')")
	require.NoError(t, err)
	_, err = ip.Run("INSERT INTO users VALUES (2, 'bob')")
	require.NoError(t, err)

	rows, err := ip.Run("SELECT * FROM users")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = ip.Run("SELECT * FROM users WHERE id = 2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	name, _ := rows[0]["name"].String()
	assert.Equal(t, "bob", name)
}

func TestInterpreter_Update(t *testing.T) {
	ip := newInterpreter(t)

	_, err := ip.Run("CREATE TABLE users (id INT PRIMARY KEY, name STRING)")
	require.NoError(t, err)
	_, err = ip.Run("INSERT INTO users VALUES (1, 'alice')")
	require.NoError(t, err)

	_, err = ip.Run("UPDATE users SET name = 'alicia' WHERE id = 1")
	require.NoError(t, err)

	rows, err := ip.Run("SELECT * FROM users WHERE id = 1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	name, _ := rows[0]["name"].String()
	assert.Equal(t, "alicia", name)
}

func TestInterpreter_Delete(t *testing.T) {
	ip := newInterpreter(t)

	_, err := ip.Run("CREATE TABLE users (id INT PRIMARY KEY, name STRING)")
	require.NoError(t, err)
	_, err = ip.Run("INSERT INTO users VALUES (1, 'alice')")
	require.NoError(t, err)
	_, err = ip.Run("INSERT INTO users VALUES (2, 'bob')")
	require.NoError(t, err)

	_, err = ip.Run("DELETE FROM users WHERE id = 1")
	require.NoError(t, err)

	rows, err := ip.Run("SELECT * FROM users")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	name, _ := rows[0]["name"].String()
	assert.Equal(t, "bob", name)
}

func TestInterpreter_SelectFromUnknownTable(t *testing.T) {
	ip := newInterpreter(t)
	_, err := ip.Run("SELECT * FROM ghosts")
	assert.Error(t, err)
}
