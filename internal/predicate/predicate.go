// Package predicate evaluates column-predicate conditions against
// storage values, consumed by sqllang's WHERE clauses and by the
// storage package's primary-key deletes.
package predicate

import (
	"fmt"

	"github.com/gypsocat/mtbstore/internal/value"
)

// Relation is the binary-mask total-order relation two Values may
// satisfy. Combinations (LE, GE, NE) are bitwise-ORs of the base bits,
// matching the original's enum exactly.
type Relation int8

const (
	None Relation = 0b0000
	LT   Relation = 0b0001
	GT   Relation = 0b0010
	EQ   Relation = 0b0100
	LE   Relation = LT | EQ
	GE   Relation = GT | EQ
	NE   Relation = LT | GT
)

func (r Relation) String() string {
	switch r {
	case LT:
		return "<"
	case GT:
		return ">"
	case EQ:
		return "="
	case LE:
		return "<="
	case GE:
		return ">="
	case NE:
		return "!="
	default:
		return "?"
	}
}

// Match reports whether left and right satisfy relation. It returns an
// error if the two values have different kinds — there is no partial
// order across kinds, only within one.
func Match(left value.Value, relation Relation, right value.Value) (bool, error) {
	cmp, err := value.Compare(left, right)
	if err != nil {
		return false, fmt.Errorf("predicate: %w", err)
	}

	var bit Relation
	switch {
	case cmp < 0:
		bit = LT
	case cmp > 0:
		bit = GT
	default:
		bit = EQ
	}

	return relation&bit != 0, nil
}
