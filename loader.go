// FILE: lixenwraith/flatconf/loader.go
package flatconf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxLineSize bounds a single line of a config or schema source
	DefaultMaxLineSize = 1 << 20
)

// SecurityOptions restricts which files are read and how much of them
type SecurityOptions struct {
	// PreventPathTraversal rejects relative paths that climb out of the working directory
	PreventPathTraversal bool

	// MaxFileSize limits each source file in bytes (0 = unlimited)
	MaxFileSize int64

	// MaxLineSize limits a single line in bytes, excluding the line
	// terminator (0 = DefaultMaxLineSize)
	MaxLineSize int

	// EnforceFileOwnership requires files to be owned by the effective user (Unix only)
	EnforceFileOwnership bool
}

// Parse reads the configuration file at configPath into a Tree. When
// schemaPath is non-empty the schema file is loaded first and declared keys
// are coerced to their types; otherwise every value is a string.
func Parse(configPath, schemaPath string) (*Tree, error) {
	return NewBuilder().
		WithFile(configPath).
		WithSchemaFile(schemaPath).
		Build()
}

// ParseReader is Parse over readers. A nil schema means no schema.
func ParseReader(config io.Reader, schema io.Reader) (*Tree, error) {
	b := NewBuilder().WithReader(config, "config")
	if schema != nil {
		b = b.WithSchemaReader(schema, "schema")
	}
	return b.Build()
}

// parser holds the state of one parse call. It is built fresh by the Builder
// and discarded afterwards together with its schema.
type parser struct {
	logger  zerolog.Logger
	schema  Schema
	policy  ConflictPolicy
	maxLine int
}

// parse consumes r line by line into a new tree. Any coercion or conflict
// failure aborts the parse and no tree is returned.
func (p *parser) parse(r io.Reader, source string) (*Tree, error) {
	tree := NewTree()

	onDiscard := func(prefix string, old Value) {
		p.logger.Debug().Str("source", source).Str("path", prefix).Stringer("previous", old.Kind()).Msg("value replaced by differently shaped entry")
	}

	err := scanLines(r, source, p.maxLine, func(lineNo int, line string) error {
		key, raw, ok := ParseLine(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				p.logger.Debug().Str("source", source).Int("line", lineNo).Msg("skipping line")
			}
			return nil
		}

		value := StringValue(raw)
		if t, declared := p.schema.Lookup(key); declared {
			typed, err := Coerce(raw, t)
			if err != nil {
				return &ParseError{Source: source, Line: lineNo, Key: key, Err: err}
			}
			value = typed
		}

		if err := tree.insert(key, value, p.policy, onDiscard); err != nil {
			return &ParseError{Source: source, Line: lineNo, Key: key, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info().Str("source", source).Int("keys", tree.Len()).Msg("configuration parsed")
	return tree, nil
}

// scanLines feeds every line of r to fn with its 1-based number. Lines that
// are not valid UTF-8 are dropped. An error from fn stops the scan and is
// returned unchanged; read failures are wrapped with ErrIO.
func scanLines(r io.Reader, source string, maxLine int, fn func(lineNo int, line string) error) error {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineSize
	}

	// Room for the line terminator ("\r\n") on top of maxLine content bytes
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(maxLine+2, 64*1024)), maxLine+2)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) > maxLine {
			return fmt.Errorf("%w: line %d of '%s' exceeds %d bytes: %w", ErrIO, lineNo, source, maxLine, bufio.ErrTooLong)
		}
		if !validLine(line) {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: failed to read '%s' after line %d: %w", ErrIO, source, lineNo, err)
	}
	return nil
}

// openSource opens a config or schema file after applying security checks.
// The returned reader is size-limited when MaxFileSize is set.
func openSource(path string, sec *SecurityOptions) (io.ReadCloser, error) {
	if sec != nil && sec.PreventPathTraversal {
		cleanPath := filepath.Clean(path)
		if strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) || cleanPath == ".." {
			return nil, fmt.Errorf("%w in config path: %s", ErrPathTraversal, path)
		}
		if filepath.IsAbs(cleanPath) && !filepath.IsAbs(path) {
			return nil, fmt.Errorf("%w in config path: %s", ErrPathTraversal, path)
		}
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w: %w", ErrIO, ErrConfigNotFound, err)
		}
		return nil, fmt.Errorf("%w: failed to stat '%s': %w", ErrIO, path, err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("%w: '%s' is a directory", ErrIO, path)
	}

	if sec != nil && sec.MaxFileSize > 0 && fileInfo.Size() > sec.MaxFileSize {
		return nil, fmt.Errorf("%w: '%s' exceeds %d bytes", ErrFileTooLarge, path, sec.MaxFileSize)
	}

	if sec != nil && sec.EnforceFileOwnership && runtime.GOOS != "windows" {
		if stat, ok := fileInfo.Sys().(*syscall.Stat_t); ok {
			if stat.Uid != uint32(os.Geteuid()) {
				return nil, fmt.Errorf("%w: '%s' is not owned by current user (file UID: %d, process UID: %d)",
					ErrIO, path, stat.Uid, os.Geteuid())
			}
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open '%s': %w", ErrIO, path, err)
	}

	if sec != nil && sec.MaxFileSize > 0 {
		return limitedFile{Reader: io.LimitReader(file, sec.MaxFileSize), Closer: file}, nil
	}
	return file, nil
}

type limitedFile struct {
	io.Reader
	io.Closer
}
