package driver

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/gypsocat/mtbstore/internal/sqllang"
	"github.com/gypsocat/mtbstore/internal/value"
)

const helpText = `mtbstore - a minimal memory-mapped relational store

exit / quit                     leave the REPL
create table <name> (col type [primary key], ...)
insert into <name> values (...)
select * from <name> [where <col> <op> <value>]
update <name> set <col> = <value> [where ...]
delete from <name> where <col> <op> <value>
`

// REPL reads one command per line from in and writes its result (or
// error) to out, mirroring driver.cpp's Driver::prompt_input loop: a
// "> " prompt, one getline, one interpreter.run, repeated until EOF or
// an explicit exit/quit.
type REPL struct {
	interpreter *sqllang.Interpreter
	in          *bufio.Scanner
	out         io.Writer
}

// NewREPL builds a REPL bound to interpreter, reading from in and
// writing prompts/results to out.
func NewREPL(interpreter *sqllang.Interpreter, in io.Reader, out io.Writer) *REPL {
	return &REPL{interpreter: interpreter, in: bufio.NewScanner(in), out: out}
}

// Run drives the prompt loop until EOF or an exit/quit command.
func (r *REPL) Run() {
	fmt.Fprintln(r.out, "mtbstore 0.1 — type 'help' for commands")
	for {
		fmt.Fprint(r.out, "> ")
		if !r.in.Scan() {
			fmt.Fprintln(r.out)
			return
		}

		line := strings.TrimSpace(r.in.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", "quit":
			return
		case "help":
			fmt.Fprint(r.out, helpText)
			continue
		}

		rows, err := r.interpreter.Run(line)
		if err != nil {
			fmt.Fprintf(r.out, "error: %v\n", err)
			continue
		}
		r.printRows(rows)
	}
}

func (r *REPL) printRows(rows []sqllang.Row) {
	if rows == nil {
		fmt.Fprintln(r.out, "ok")
		return
	}
	for _, row := range rows {
		fmt.Fprintln(r.out, formatRow(row))
	}
	fmt.Fprintf(r.out, "(%d rows)\n", len(rows))
}

func formatRow(row sqllang.Row) string {
	var b strings.Builder
	first := true
	for name, v := range row {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "%s=%s", name, formatValue(v))
	}
	return b.String()
}

func formatValue(v value.Value) string {
	if n, ok := v.Int(); ok {
		return fmt.Sprintf("%d", n)
	}
	if s, ok := v.String(); ok {
		return s
	}
	return "<?>"
}
