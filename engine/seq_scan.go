package engine

// SeqScan wraps a table's heap-file iterator, optionally presenting its
// fields under an alias table qualifier.
type SeqScan struct {
	file  DBFile
	alias string
	desc  *TupleDesc

	tid  TransactionID
	iter func() (*Tuple, error)
	next *Tuple
}

// NewSeqScan constructs a scan of file, presenting its fields qualified by
// alias (pass the table's own name to leave qualification unchanged).
func NewSeqScan(file DBFile, alias string) *SeqScan {
	desc := file.Descriptor().setTableAlias(alias)
	return &SeqScan{file: file, alias: alias, desc: desc}
}

func (s *SeqScan) Descriptor() *TupleDesc { return s.desc }

func (s *SeqScan) Open(tid TransactionID) error {
	s.tid = tid
	iter, err := s.file.Iterator(tid)
	if err != nil {
		return err
	}
	s.iter = iter
	s.next = nil
	return s.advance()
}

func (s *SeqScan) advance() error {
	t, err := s.iter()
	if err != nil {
		return err
	}
	if t == nil {
		s.next = nil
		return nil
	}
	qualified := *t
	qualified.Desc = *s.desc
	s.next = &qualified
	return nil
}

func (s *SeqScan) HasNext() (bool, error) {
	return s.next != nil, nil
}

func (s *SeqScan) Next() (*Tuple, error) {
	if s.next == nil {
		return nil, newErr(NoMoreTuplesError, "SeqScan exhausted")
	}
	t := s.next
	if err := s.advance(); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *SeqScan) Rewind() error {
	return s.Open(s.tid)
}

func (s *SeqScan) Close() error {
	s.iter = nil
	s.next = nil
	return nil
}
