package sqllang

import (
	"fmt"
	"strings"

	"github.com/gypsocat/mtbstore/internal/predicate"
	"github.com/gypsocat/mtbstore/internal/schema"
	"github.com/gypsocat/mtbstore/internal/value"
)

// Command is the sum of every statement Parse can produce. Exactly one
// field is non-nil.
type Command struct {
	CreateTable *CreateTableCommand
	Insert      *InsertCommand
	Select      *SelectCommand
	Update      *UpdateCommand
	Delete      *DeleteCommand
}

type parser struct {
	scanner *scanner
	cur     token
}

// Parse scans and parses a single command string in the small SQL-like
// language this package implements — statements are not separated by
// newlines or semicolons here; the driver's REPL reads one line as one
// command.
func Parse(src string) (*Command, error) {
	p := &parser{scanner: newScanner(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	keyword, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	switch strings.ToUpper(keyword) {
	case "CREATE":
		return p.parseCreateTable()
	case "INSERT":
		return p.parseInsert()
	case "SELECT":
		return p.parseSelect()
	case "UPDATE":
		return p.parseUpdate()
	case "DELETE":
		return p.parseDelete()
	default:
		return nil, fmt.Errorf("sqllang: unknown command %q", keyword)
	}
}

func (p *parser) advance() error {
	t, err := p.scanner.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parser) expectIdent() (string, error) {
	if p.cur.kind != tokenIdent {
		return "", fmt.Errorf("sqllang: expected identifier, got %q", p.cur.text)
	}
	text := p.cur.text
	return text, p.advance()
}

func (p *parser) expectKeyword(word string) error {
	got, err := p.expectIdent()
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, word) {
		return fmt.Errorf("sqllang: expected %q, got %q", word, got)
	}
	return nil
}

func (p *parser) expectPunct(text string) error {
	if p.cur.kind != tokenPunct || p.cur.text != text {
		return fmt.Errorf("sqllang: expected %q, got %q", text, p.cur.text)
	}
	return p.advance()
}

func (p *parser) parseCreateTable() (*Command, error) {
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	var cols []schema.ColumnDef
	for {
		colName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		typeName, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		colType, err := parseColumnType(typeName)
		if err != nil {
			return nil, err
		}

		isPrimary := false
		if p.cur.kind == tokenIdent && strings.EqualFold(p.cur.text, "PRIMARY") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectKeyword("KEY"); err != nil {
				return nil, err
			}
			isPrimary = true
		}

		cols = append(cols, schema.ColumnDef{Name: colName, Type: colType, IsPrimary: isPrimary})

		if p.cur.kind == tokenPunct && p.cur.text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	return &Command{CreateTable: &CreateTableCommand{Table: name, Columns: cols}}, nil
}

func parseColumnType(name string) (schema.ColumnType, error) {
	switch strings.ToUpper(name) {
	case "INT":
		return schema.TypeInt, nil
	case "STRING":
		return schema.TypeString, nil
	default:
		return 0, fmt.Errorf("sqllang: unknown column type %q", name)
	}
}

func (p *parser) parseInsert() (*Command, error) {
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	var values []value.Value
	for {
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		if p.cur.kind == tokenPunct && p.cur.text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}

	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	return &Command{Insert: &InsertCommand{Table: name, Values: values}}, nil
}

func (p *parser) parseLiteral() (value.Value, error) {
	switch p.cur.kind {
	case tokenNumber:
		n := p.cur.num
		return value.NewInt(n), p.advance()
	case tokenString:
		s := p.cur.text
		if err := p.advance(); err != nil {
			return value.Value{}, err
		}
		return value.NewString([]byte(s))
	default:
		return value.Value{}, fmt.Errorf("sqllang: expected a literal, got %q", p.cur.text)
	}
}

func (p *parser) parseSelect() (*Command, error) {
	if p.cur.kind != tokenPunct || p.cur.text != "*" {
		return nil, fmt.Errorf("sqllang: only SELECT * is supported")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	where, err := p.maybeParseWhere()
	if err != nil {
		return nil, err
	}

	return &Command{Select: &SelectCommand{Table: name, Where: where}}, nil
}

func (p *parser) parseUpdate() (*Command, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}
	col, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("="); err != nil {
		return nil, err
	}
	v, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	where, err := p.maybeParseWhere()
	if err != nil {
		return nil, err
	}

	return &Command{Update: &UpdateCommand{Table: name, Column: col, Value: v, Where: where}}, nil
}

func (p *parser) parseDelete() (*Command, error) {
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	where, err := p.maybeParseWhere()
	if err != nil {
		return nil, err
	}
	if where == nil {
		return nil, fmt.Errorf("sqllang: DELETE FROM requires a WHERE clause")
	}

	return &Command{Delete: &DeleteCommand{Table: name, Where: where}}, nil
}

func (p *parser) maybeParseWhere() (*Condition, error) {
	if p.cur.kind != tokenIdent || !strings.EqualFold(p.cur.text, "WHERE") {
		return nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	col, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	relation, err := p.parseRelationOperator()
	if err != nil {
		return nil, err
	}

	lit, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	return &Condition{Column: col, Relation: relation, Literal: lit}, nil
}

func (p *parser) parseRelationOperator() (predicate.Relation, error) {
	if p.cur.kind != tokenPunct {
		return 0, fmt.Errorf("sqllang: expected a comparison operator, got %q", p.cur.text)
	}
	op := p.cur.text
	if err := p.advance(); err != nil {
		return 0, err
	}

	switch op {
	case "=":
		return predicate.EQ, nil
	case "!=":
		return predicate.NE, nil
	case "<":
		return predicate.LT, nil
	case ">":
		return predicate.GT, nil
	case "<=":
		return predicate.LE, nil
	case ">=":
		return predicate.GE, nil
	default:
		return 0, fmt.Errorf("sqllang: unknown comparison operator %q", op)
	}
}
