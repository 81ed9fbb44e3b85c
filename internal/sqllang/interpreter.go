package sqllang

import (
	"fmt"

	"github.com/gypsocat/mtbstore/internal/catalog"
	"github.com/gypsocat/mtbstore/internal/predicate"
	"github.com/gypsocat/mtbstore/internal/storage"
	"github.com/gypsocat/mtbstore/internal/value"
)

// Interpreter lowers parsed commands onto one catalog.Catalog, scoped
// to the five table-level commands this package parses.
type Interpreter struct {
	cat *catalog.Catalog
}

// New returns an interpreter bound to cat.
func New(cat *catalog.Catalog) *Interpreter {
	return &Interpreter{cat: cat}
}

// Row is one selected record, column name to printable value.
type Row map[string]value.Value

// Run parses and executes a single command string.
func (ip *Interpreter) Run(src string) ([]Row, error) {
	cmd, err := Parse(src)
	if err != nil {
		return nil, err
	}

	switch {
	case cmd.CreateTable != nil:
		return nil, ip.runCreateTable(cmd.CreateTable)
	case cmd.Insert != nil:
		return nil, ip.runInsert(cmd.Insert)
	case cmd.Select != nil:
		return ip.runSelect(cmd.Select)
	case cmd.Update != nil:
		return nil, ip.runUpdate(cmd.Update)
	case cmd.Delete != nil:
		return nil, ip.runDelete(cmd.Delete)
	default:
		return nil, fmt.Errorf("sqllang: empty command")
	}
}

func (ip *Interpreter) runCreateTable(c *CreateTableCommand) error {
	_, err := ip.cat.CreateTable(c.Table, c.Columns)
	return err
}

func (ip *Interpreter) runInsert(c *InsertCommand) error {
	tbl, err := ip.cat.OpenTable(c.Table)
	if err != nil {
		return err
	}
	_, err = tbl.AppendEntry(c.Values)
	return err
}

func (ip *Interpreter) runSelect(c *SelectCommand) ([]Row, error) {
	tbl, err := ip.cat.OpenTable(c.Table)
	if err != nil {
		return nil, err
	}

	var rows []Row
	err = tbl.TraverseLiveRead(func(e *storage.Entry) error {
		matches, err := entryMatches(tbl, e, c.Where)
		if err != nil {
			return err
		}
		if !matches {
			return nil
		}
		row, err := readRow(tbl, e)
		if err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

func (ip *Interpreter) runUpdate(c *UpdateCommand) error {
	tbl, err := ip.cat.OpenTable(c.Table)
	if err != nil {
		return err
	}

	return tbl.TraverseLiveRW(func(e *storage.Entry) error {
		matches, err := entryMatches(tbl, e, c.Where)
		if err != nil {
			return err
		}
		if !matches {
			return nil
		}
		if !e.Set(c.Column, c.Value) {
			return fmt.Errorf("sqllang: column %q rejects value", c.Column)
		}
		return nil
	})
}

func (ip *Interpreter) runDelete(c *DeleteCommand) error {
	tbl, err := ip.cat.OpenTable(c.Table)
	if err != nil {
		return err
	}

	var toDelete []int
	err = tbl.TraverseLiveRead(func(e *storage.Entry) error {
		matches, err := entryMatches(tbl, e, c.Where)
		if err != nil {
			return err
		}
		if matches {
			toDelete = append(toDelete, e.ID())
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range toDelete {
		if _, err := tbl.DeleteEntryByID(id); err != nil {
			return err
		}
	}
	return nil
}

func entryMatches(tbl *storage.Table, e *storage.Entry, where *Condition) (bool, error) {
	if where == nil {
		return true, nil
	}
	col, ok := tbl.Schema().Column(where.Column)
	if !ok {
		return false, fmt.Errorf("sqllang: no column named %q", where.Column)
	}
	v, err := e.Get(col.Name)
	if err != nil {
		return false, err
	}
	return predicate.Match(v, where.Relation, where.Literal)
}

func readRow(tbl *storage.Table, e *storage.Entry) (Row, error) {
	row := make(Row, len(tbl.Schema().Columns))
	for _, col := range tbl.Schema().Columns {
		v, err := e.Get(col.Name)
		if err != nil {
			return nil, err
		}
		row[col.Name] = v
	}
	return row, nil
}
