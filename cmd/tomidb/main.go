// Command tomidb is the REPL-and-HTTP driver binary: it opens a catalog
// directory, wires an interpreter onto it, and either serves HTTP or
// drives a stdin prompt loop.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gypsocat/mtbstore/internal/catalog"
	"github.com/gypsocat/mtbstore/internal/driver"
	"github.com/gypsocat/mtbstore/internal/sqllang"
)

func main() {
	dir := flag.String("dir", "./storage", "directory holding the catalog's table files")
	addr := flag.String("http", "", "if set, serve HTTP on this address instead of reading stdin")
	flag.Parse()

	if err := os.MkdirAll(*dir, 0755); err != nil {
		log.Fatalf("tomidb: creating storage directory: %v", err)
	}

	cat, err := catalog.Open(*dir)
	if err != nil {
		log.Fatalf("tomidb: opening catalog: %v", err)
	}
	defer cat.Close()

	interpreter := sqllang.New(cat)

	if *addr != "" {
		server := driver.NewServer(interpreter)
		fmt.Printf("tomidb: serving HTTP on %s\n", *addr)
		log.Fatal(http.ListenAndServe(*addr, server))
		return
	}

	repl := driver.NewREPL(interpreter, os.Stdin, os.Stdout)
	repl.Run()
}
