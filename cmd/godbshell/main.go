// Command godbshell is an interactive REPL over the engine: each line is
// parsed as one SQL statement, planned, and run to completion, printing
// its result tuples.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/relcore/godb/engine"
	"github.com/relcore/godb/shell"
)

func main() {
	catalogPath := flag.String("catalog", "", "path to a catalog description file")
	dataDir := flag.String("data", ".", "directory holding table backing files")
	bufferPages := flag.Int("bufferpages", 100, "buffer pool capacity, in pages")
	walPath := flag.String("wal", "godb.wal", "write-ahead log file path")
	flag.Parse()

	wal, err := engine.NewFileWAL(*walPath)
	if err != nil {
		log.Fatalf("opening WAL %s: %v", *walPath, err)
	}
	db := engine.NewDatabase(*bufferPages, wal)

	if *catalogPath != "" {
		f, err := os.Open(*catalogPath)
		if err != nil {
			log.Fatalf("opening catalog %s: %v", *catalogPath, err)
		}
		if err := db.Catalog.Load(f, db.BufferPool, *dataDir); err != nil {
			f.Close()
			log.Fatalf("loading catalog: %v", err)
		}
		f.Close()
	}

	planner := shell.NewPlanner(db)

	rl, err := readline.New("godb> ")
	if err != nil {
		log.Fatalf("starting readline: %v", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Printf("readline: %v", err)
			return
		}

		sql := strings.TrimSpace(line)
		if sql == "" {
			continue
		}
		if sql == "exit" || sql == "quit" {
			return
		}
		runStatement(db, planner, sql)
	}
}

func runStatement(db *engine.Database, planner *shell.Planner, sql string) {
	op, err := planner.Plan(sql)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}

	tid := engine.NewTID()
	if err := db.BufferPool.BeginTransaction(tid); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	if err := op.Open(tid); err != nil {
		db.BufferPool.AbortTransaction(tid)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}

	fmt.Println(op.Descriptor().HeaderString(false))
	rows := 0
	for {
		has, err := op.HasNext()
		if err != nil {
			db.BufferPool.AbortTransaction(tid)
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		if !has {
			break
		}
		t, err := op.Next()
		if err != nil {
			db.BufferPool.AbortTransaction(tid)
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return
		}
		fmt.Println(t.PrettyPrintString(false))
		rows++
	}
	op.Close()
	db.BufferPool.CommitTransaction(tid)
}
