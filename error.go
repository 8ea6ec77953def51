// FILE: lixenwraith/flatconf/error.go
package flatconf

import (
	"errors"
	"fmt"
)

var (
	// ErrIO indicates a configuration or schema source could not be opened or read
	ErrIO = errors.New("configuration source unreadable")

	// ErrConfigNotFound indicates a configuration or schema file does not exist
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrUnknownSchemaType indicates a schema line names a type other than string, bool or number
	ErrUnknownSchemaType = errors.New("unknown schema type")

	// ErrInvalidBoolean indicates a bool-declared key holds something other than "true" or "false"
	ErrInvalidBoolean = errors.New("invalid boolean value")

	// ErrInvalidNumber indicates a number-declared key holds a non-numeric value
	ErrInvalidNumber = errors.New("invalid number value")

	// ErrTypeMismatch is returned by typed accessors when the stored variant differs
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrPathNotFound indicates a dotted path has no value in the tree
	ErrPathNotFound = errors.New("path not found")

	// ErrShapeConflict is returned under ConflictReject when a key would change between scalar and table
	ErrShapeConflict = errors.New("scalar and table conflict")

	// ErrFileTooLarge indicates a source exceeds SecurityOptions.MaxFileSize
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrPathTraversal indicates a relative path escaping the working directory
	ErrPathTraversal = errors.New("potential path traversal")
)

// ParseError reports a failure tied to one line of a configuration or schema source.
type ParseError struct {
	Source string // file path, or the name given to a reader
	Line   int    // 1-based line number
	Key    string // key or schema path on that line
	Err    error
}

func (e *ParseError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s:%d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("%s:%d: key %q: %v", e.Source, e.Line, e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
