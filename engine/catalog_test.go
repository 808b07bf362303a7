package engine

import (
	"os"
	"strings"
	"testing"
)

func TestCatalogLoad(t *testing.T) {
	dir := t.TempDir()
	catalog := "people (name string, age int pk)\n" +
		"orders (id int pk, item string)\n"

	bp := NewBufferPool(10, discardWAL{})
	c := NewCatalog()
	if err := c.Load(strings.NewReader(catalog), bp, dir); err != nil {
		t.Fatalf("Load: %v", err)
	}

	info, err := c.GetTableInfo("people")
	if err != nil {
		t.Fatalf("GetTableInfo(people): %v", err)
	}
	if info.PrimKey != "age" {
		t.Fatalf("expected primary key age, got %q", info.PrimKey)
	}
	if len(info.Desc.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(info.Desc.Fields))
	}

	if _, err := c.GetTableInfo("orders"); err != nil {
		t.Fatalf("GetTableInfo(orders): %v", err)
	}
	if _, err := c.GetTableInfo("missing"); err == nil {
		t.Fatal("expected an error for an unregistered table")
	}

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected backing directory to exist: %v", err)
	}
}

func TestCatalogDuplicateTableRejected(t *testing.T) {
	bp := NewBufferPool(10, discardWAL{})
	c := NewCatalog()
	desc := &TupleDesc{Fields: []FieldType{{Fname: "n", Ftype: IntType}}}
	dir := t.TempDir()
	if _, err := c.AddTable("t", desc, "", bp, dir+"/t.dat"); err != nil {
		t.Fatalf("AddTable: %v", err)
	}
	if _, err := c.AddTable("t", desc, "", bp, dir+"/t2.dat"); err == nil {
		t.Fatal("expected an error registering a duplicate table name")
	}
}
