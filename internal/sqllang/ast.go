package sqllang

import (
	"github.com/gypsocat/mtbstore/internal/predicate"
	"github.com/gypsocat/mtbstore/internal/schema"
	"github.com/gypsocat/mtbstore/internal/value"
)

// Condition is a single WHERE clause: column relation literal.
type Condition struct {
	Column   string
	Relation predicate.Relation
	Literal  value.Value
}

// CreateTableCommand creates a table with an ordered column list.
type CreateTableCommand struct {
	Table   string
	Columns []schema.ColumnDef
}

// InsertCommand appends one row, in column-declaration order.
type InsertCommand struct {
	Table  string
	Values []value.Value
}

// SelectCommand reads every live row matching an optional condition.
type SelectCommand struct {
	Table     string
	Where     *Condition
}

// UpdateCommand sets one column on every row matching an optional
// condition.
type UpdateCommand struct {
	Table  string
	Column string
	Value  value.Value
	Where  *Condition
}

// DeleteCommand removes every row matching a condition.
type DeleteCommand struct {
	Table string
	Where *Condition
}
