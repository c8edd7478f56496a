package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Kind groups error codes by how callers are expected to react to them
type Kind string

const (
	// KindValidation indicates malformed input
	KindValidation Kind = "validation"
	// KindSecurity indicates path traversal or access outside the allow-list
	KindSecurity Kind = "security"
	// KindFileSystem indicates a filesystem failure
	KindFileSystem Kind = "filesystem"
	// KindAnalysis indicates a parse or analysis failure
	KindAnalysis Kind = "analysis"
	// KindResource indicates a limit, timeout or memory ceiling was hit
	KindResource Kind = "resource"
	// KindCache indicates a cache tier failed to read or write
	KindCache Kind = "cache"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// InvalidInput indicates a malformed request field
	InvalidInput ErrorCode = "INVALID_INPUT"
	// InvalidPattern indicates a glob or regex that does not compile
	InvalidPattern ErrorCode = "INVALID_PATTERN"

	// PathTraversal indicates a ".." segment or NUL byte in a path
	PathTraversal ErrorCode = "PATH_TRAVERSAL"
	// PathNotAllowed indicates a path outside every allowed root
	PathNotAllowed ErrorCode = "PATH_NOT_ALLOWED"

	// FileNotFound indicates the path does not exist
	FileNotFound ErrorCode = "FILE_NOT_FOUND"
	// PermissionDenied indicates the process may not access the path
	PermissionDenied ErrorCode = "PERMISSION_DENIED"
	// NotADirectory indicates a directory was expected
	NotADirectory ErrorCode = "NOT_A_DIRECTORY"
	// IsADirectory indicates a regular file was expected
	IsADirectory ErrorCode = "IS_A_DIRECTORY"
	// IOError indicates any other filesystem failure
	IOError ErrorCode = "IO_ERROR"

	// ParseFailed indicates the syntax tree could not be produced
	ParseFailed ErrorCode = "PARSE_FAILED"
	// UnsupportedLanguage indicates no analyzer claims the file
	UnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	// ComplexityFailed indicates metrics could not be computed
	ComplexityFailed ErrorCode = "COMPLEXITY_FAILED"

	// LimitExceeded indicates a size or count ceiling was crossed
	LimitExceeded ErrorCode = "LIMIT_EXCEEDED"
	// DepthExceeded indicates a tree deeper than the configured bound
	DepthExceeded ErrorCode = "DEPTH_EXCEEDED"
	// Timeout indicates the operation ran past its wall-clock budget
	Timeout ErrorCode = "TIMEOUT"
	// MemoryExceeded indicates the heap ceiling was crossed
	MemoryExceeded ErrorCode = "MEMORY_EXCEEDED"

	// CacheReadFailed indicates a tier could not be read
	CacheReadFailed ErrorCode = "CACHE_READ_FAILED"
	// CacheWriteFailed indicates a tier could not be written
	CacheWriteFailed ErrorCode = "CACHE_WRITE_FAILED"
)

var codeKinds = map[ErrorCode]Kind{
	InvalidInput:        KindValidation,
	InvalidPattern:      KindValidation,
	PathTraversal:       KindSecurity,
	PathNotAllowed:      KindSecurity,
	FileNotFound:        KindFileSystem,
	PermissionDenied:    KindFileSystem,
	NotADirectory:       KindFileSystem,
	IsADirectory:        KindFileSystem,
	IOError:             KindFileSystem,
	ParseFailed:         KindAnalysis,
	UnsupportedLanguage: KindAnalysis,
	ComplexityFailed:    KindAnalysis,
	LimitExceeded:       KindResource,
	DepthExceeded:       KindResource,
	Timeout:             KindResource,
	MemoryExceeded:      KindResource,
	CacheReadFailed:     KindCache,
	CacheWriteFailed:    KindCache,
}

// Kind returns the kind an error code belongs to
func (c ErrorCode) Kind() Kind {
	if k, ok := codeKinds[c]; ok {
		return k
	}
	return KindValidation
}

// Error is the typed error returned across the engine
type Error struct {
	Kind    Kind           `json:"kind"`
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error          // Underlying error (not exported to JSON)
}

// New creates a typed error for the given code
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Kind:    code.Kind(),
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a typed error with a formatted message
func Newf(code ErrorCode, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// With adds a detail key to the error
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithPath records the offending path
func (e *Error) WithPath(path string) *Error {
	return e.With("path", path)
}

// WithLimit records the limit name with its configured and observed values
func (e *Error) WithLimit(name string, limit, actual any) *Error {
	return e.With("limit", name).With("max", limit).With("actual", actual)
}

// As extracts a typed error from an error chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of a typed error, or "" for other errors
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}

// KindOf returns the kind of a typed error, or "" for other errors
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// IsFatal reports whether the error must abort the enclosing operation.
// Security, validation and resource errors always do.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindSecurity, KindValidation, KindResource:
		return true
	}
	return false
}

// FromOS converts a raw filesystem error into a typed FileSystem error.
// Errors that are already typed pass through unchanged.
func FromOS(err error, path string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}

	var code ErrorCode
	var message string
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		code, message = FileNotFound, "file not found"
	case stderrors.Is(err, fs.ErrPermission):
		code, message = PermissionDenied, "permission denied"
	case stderrors.Is(err, syscall.ENOTDIR):
		code, message = NotADirectory, "not a directory"
	case stderrors.Is(err, syscall.EISDIR):
		code, message = IsADirectory, "is a directory"
	default:
		code, message = IOError, "filesystem error"
	}
	return New(code, message, err).WithPath(path)
}
