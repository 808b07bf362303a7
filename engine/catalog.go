package engine

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// TableInfo is the catalog's entry for one table: its id, schema, primary
// key field name, and backing heap file.
type TableInfo struct {
	ID      int
	Name    string
	Desc    *TupleDesc
	PrimKey string
	File    *HeapFile
}

// Catalog is a process-wide (or per-Database) mapping from table name to
// TableInfo, with the inverse id-to-entry mapping. It is initialized once
// and thereafter read-mostly, per the concurrency model.
type Catalog struct {
	mu     sync.RWMutex
	byName map[string]*TableInfo
	byID   map[int]*TableInfo
	nextID int
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName: make(map[string]*TableInfo),
		byID:   make(map[int]*TableInfo),
	}
}

// AddTable registers a new table backed by file, returning its TableInfo.
// Fails if name is already registered.
func (c *Catalog) AddTable(name string, desc *TupleDesc, primKey string, bp *BufferPool, backingFile string) (*TableInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byName[name]; exists {
		return nil, newErr(DuplicateTableError, "table %q already registered", name)
	}

	id := c.nextID
	c.nextID++

	file, err := NewHeapFile(backingFile, desc, bp, id)
	if err != nil {
		return nil, err
	}

	info := &TableInfo{ID: id, Name: name, Desc: desc, PrimKey: primKey, File: file}
	c.byName[name] = info
	c.byID[id] = info
	return info, nil
}

// GetTableInfo looks up a table by name.
func (c *Catalog) GetTableInfo(name string) (*TableInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.byName[name]
	if !ok {
		return nil, newErr(NoSuchTableError, "no such table %q", name)
	}
	return info, nil
}

// GetTableInfoID looks up a table by id.
func (c *Catalog) GetTableInfoID(id int) (*TableInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.byID[id]
	if !ok {
		return nil, newErr(NoSuchTableError, "no such table id %d", id)
	}
	return info, nil
}

// TableNames returns the names of every registered table.
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	return names
}

// Load parses the catalog description format from the external-interfaces
// section: one table per line, `tableName (colName type [pk], ...)` where
// type is "int" or "string". Backing files are named
// filepath.Join(rootDir, tableName+".dat"); a file is created on disk when
// its first page is written.
func (c *Catalog) Load(r io.Reader, bp *BufferPool, rootDir string) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		name, desc, primKey, err := parseCatalogLine(line)
		if err != nil {
			return fmt.Errorf("catalog line %d: %w", lineNo, err)
		}
		backing := filepath.Join(rootDir, name+".dat")
		if _, err := c.AddTable(name, desc, primKey, bp, backing); err != nil {
			return fmt.Errorf("catalog line %d: %w", lineNo, err)
		}
	}
	return scanner.Err()
}

// parseCatalogLine parses `name ( col type [pk], col type [pk], ... )`.
func parseCatalogLine(line string) (string, *TupleDesc, string, error) {
	open := strings.Index(line, "(")
	close := strings.LastIndex(line, ")")
	if open < 0 || close < 0 || close < open {
		return "", nil, "", newErr(MalformedDataError, "malformed catalog line %q", line)
	}
	name := strings.TrimSpace(line[:open])
	if name == "" {
		return "", nil, "", newErr(MalformedDataError, "catalog line missing table name: %q", line)
	}

	body := line[open+1 : close]
	var fields []FieldType
	primKey := ""
	for _, rawCol := range strings.Split(body, ",") {
		rawCol = strings.TrimSpace(rawCol)
		if rawCol == "" {
			continue
		}
		parts := strings.Fields(rawCol)
		if len(parts) < 2 {
			return "", nil, "", newErr(MalformedDataError, "malformed column spec %q", rawCol)
		}
		colName, colType := parts[0], strings.ToLower(parts[1])
		var ftype DBType
		switch colType {
		case "int":
			ftype = IntType
		case "string":
			ftype = StringType
		default:
			return "", nil, "", newErr(MalformedDataError, "unknown column type %q", colType)
		}
		fields = append(fields, FieldType{Fname: colName, Ftype: ftype})
		if len(parts) >= 3 && strings.EqualFold(parts[2], "pk") {
			primKey = colName
		}
	}
	return name, &TupleDesc{Fields: fields}, primKey, nil
}
