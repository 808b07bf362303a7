package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// WALWriter is the write-ahead log collaborator the buffer pool calls on
// flush: record one page's before/after images, then force the log before
// the page itself is written. The WAL's on-disk record format and replay
// logic are out of scope for this core -- they are described here only at
// the level of the invariants the buffer pool depends on.
type WALWriter interface {
	LogUpdate(tid TransactionID, before, after Page) error
	Force() error
	LogCommit(tid TransactionID)
	LogAbort(tid TransactionID)
	LogCheckpoint()
}

// recordType tags a WAL record. Abort/Commit/Begin records carry no body;
// Update records carry a before and after page image.
type recordType int8

const (
	beginRecord recordType = iota
	commitRecord
	abortRecord
	updateRecord
)

// FileWAL is the default file-backed WALWriter: each record is
// {type byte}{tid int64}{body}{offset int64 footer}. Update bodies are
// {tableID int32}{pageNumber int32}{PageSize page bytes} twice (before,
// then after).
type FileWAL struct {
	mu     sync.Mutex
	file   *os.File
	buf    bytes.Buffer
	offset int64
}

// NewFileWAL opens (creating if necessary) path as the backing log file.
func NewFileWAL(path string) (*FileWAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileWAL{file: f, offset: info.Size()}, nil
}

func (w *FileWAL) write(data any) {
	binary.Write(&w.buf, binary.LittleEndian, data)
	w.offset += int64(binary.Size(data))
}

func (w *FileWAL) writePageBody(p Page) error {
	hp, ok := p.(*heapPage)
	if !ok {
		return fmt.Errorf("WAL cannot log page of type %T", p)
	}
	w.write(int32(hp.pid.TableID))
	w.write(int32(hp.pid.PageNumber))
	buf, err := hp.toBuffer()
	if err != nil {
		return err
	}
	w.write(buf.Bytes())
	return nil
}

// LogUpdate records one page update's before and after images. Does not
// force the log to disk -- the buffer pool's flush path does that itself,
// immediately afterward, so log-before-data ordering holds.
func (w *FileWAL) LogUpdate(tid TransactionID, before, after Page) error {
	if before == nil || after == nil {
		return fmt.Errorf("WAL update requires non-nil before and after images")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	offset := w.offset
	w.write(int8(updateRecord))
	w.write(int64(tid))
	if err := w.writePageBody(before); err != nil {
		return err
	}
	if err := w.writePageBody(after); err != nil {
		return err
	}
	w.write(offset)
	return nil
}

// Force durably persists every pending record.
func (w *FileWAL) Force() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() == 0 {
		return nil
	}
	if _, err := w.file.Write(w.buf.Bytes()); err != nil {
		return err
	}
	w.buf.Reset()
	return w.file.Sync()
}

func (w *FileWAL) LogCommit(tid TransactionID) {
	w.mu.Lock()
	offset := w.offset
	w.write(int8(commitRecord))
	w.write(int64(tid))
	w.write(offset)
	w.mu.Unlock()
	if err := w.Force(); err != nil {
		log.Printf("wal: force after commit record for tid %d failed: %v", tid, err)
	}
}

func (w *FileWAL) LogAbort(tid TransactionID) {
	w.mu.Lock()
	offset := w.offset
	w.write(int8(abortRecord))
	w.write(int64(tid))
	w.write(offset)
	w.mu.Unlock()
	if err := w.Force(); err != nil {
		log.Printf("wal: force after abort record for tid %d failed: %v", tid, err)
	}
}

// LogCheckpoint is a no-op placeholder entry point; checkpoint/replay
// semantics are outside the core's scope (crash recovery replay is a
// Non-goal).
func (w *FileWAL) LogCheckpoint() {}

var _ io.Closer = (*FileWAL)(nil)

// Close releases the backing file handle.
func (w *FileWAL) Close() error {
	return w.file.Close()
}

// discardWAL is a WALWriter that drops every record; used by tests and by
// configurations that don't want durability overhead.
type discardWAL struct{}

func (discardWAL) LogUpdate(TransactionID, Page, Page) error { return nil }
func (discardWAL) Force() error                              { return nil }
func (discardWAL) LogCommit(TransactionID)                   {}
func (discardWAL) LogAbort(TransactionID)                    {}
func (discardWAL) LogCheckpoint()                            {}
