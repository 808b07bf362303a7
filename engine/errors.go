package engine

import (
	"errors"
	"fmt"
)

// ErrorCode classifies the error kinds the core raises, per the error
// handling design: schema/eviction/operator-state errors are DbException,
// lock-wait timeouts are TransactionAbortedError, and so on.
type ErrorCode int

const (
	TypeMismatchError ErrorCode = iota
	IncompatibleTypesError
	NoMoreTuplesError
	BufferPoolFullError
	MalformedDataError
	AmbiguousNameError
	IllegalOperationError
	NoSuchTableError
	DuplicateTableError
	TransactionAbortedError
	ParseError
)

func (c ErrorCode) String() string {
	switch c {
	case TypeMismatchError:
		return "TypeMismatchError"
	case IncompatibleTypesError:
		return "IncompatibleTypesError"
	case NoMoreTuplesError:
		return "NoMoreTuplesError"
	case BufferPoolFullError:
		return "BufferPoolFullError"
	case MalformedDataError:
		return "MalformedDataError"
	case AmbiguousNameError:
		return "AmbiguousNameError"
	case IllegalOperationError:
		return "IllegalOperationError"
	case NoSuchTableError:
		return "NoSuchTableError"
	case DuplicateTableError:
		return "DuplicateTableError"
	case TransactionAbortedError:
		return "TransactionAbortedError"
	case ParseError:
		return "ParseError"
	default:
		return "UnknownError"
	}
}

// GoDBError is the single tagged error type the core raises. Callers that
// care about the kind of failure switch on Code; everyone else just logs
// Error().
type GoDBError struct {
	Code ErrorCode
	Msg  string
}

func (e GoDBError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func newErr(code ErrorCode, format string, args ...any) error {
	return GoDBError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// IsAborted reports whether err is (or wraps) a lock-wait timeout abort.
func IsAborted(err error) bool {
	var gerr GoDBError
	return errors.As(err, &gerr) && gerr.Code == TransactionAbortedError
}
