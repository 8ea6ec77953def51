// File: lixenwraith/flatconf/builder.go
package flatconf

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// ValidatorFunc defines the signature for a function that can validate a parsed Tree.
// It receives the finished tree and should return an error if validation fails.
type ValidatorFunc func(t *Tree) error

// Builder provides a fluent interface for parsing configurations.
// A Builder reading from files can Build repeatedly (the Watcher relies on
// this); a Builder reading from an io.Reader can Build once.
type Builder struct {
	file             string
	reader           io.Reader
	readerName       string
	schemaFile       string
	schemaReader     io.Reader
	schemaReaderName string
	schemas          []Schema
	prefix           string
	args             []string
	logger           zerolog.Logger
	security         *SecurityOptions
	policy           ConflictPolicy
	err              error
	validators       []ValidatorFunc
}

// NewBuilder creates a new configuration builder
func NewBuilder() *Builder {
	return &Builder{
		args:       os.Args[1:],
		logger:     zerolog.Nop(),
		policy:     ConflictOverwrite,
		validators: make([]ValidatorFunc, 0),
	}
}

// WithFile sets the configuration file path
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	b.reader = nil
	return b
}

// WithReader reads configuration lines from r instead of a file.
// name identifies the source in errors and logs.
func (b *Builder) WithReader(r io.Reader, name string) *Builder {
	b.reader = r
	b.readerName = name
	b.file = ""
	return b
}

// WithSchemaFile sets the schema file path. An empty path means no schema file.
func (b *Builder) WithSchemaFile(path string) *Builder {
	b.schemaFile = path
	b.schemaReader = nil
	return b
}

// WithSchemaReader reads schema lines from r instead of a file
func (b *Builder) WithSchemaReader(r io.Reader, name string) *Builder {
	b.schemaReader = r
	b.schemaReaderName = name
	b.schemaFile = ""
	return b
}

// WithSchema adds schema entries. They are merged after any schema file, so
// they win on collision.
func (b *Builder) WithSchema(s Schema) *Builder {
	if len(s) > 0 {
		b.schemas = append(b.schemas, s)
	}
	return b
}

// WithSchemaStruct derives schema entries from a struct (see SchemaFromStruct)
func (b *Builder) WithSchemaStruct(prefix string, v any) *Builder {
	s, err := SchemaFromStruct(prefix, v)
	if err != nil {
		if b.err == nil {
			b.err = fmt.Errorf("failed to derive schema: %w", err)
		}
		return b
	}
	return b.WithSchema(s)
}

// WithPrefix sets the base path used by BuildAndScan
func (b *Builder) WithPrefix(prefix string) *Builder {
	b.prefix = prefix
	return b
}

// WithArgs sets the command-line arguments consulted by file discovery
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithLogger sets the logger used during parsing. The default discards everything.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithSecurityOptions applies file restrictions to both config and schema files
func (b *Builder) WithSecurityOptions(opts SecurityOptions) *Builder {
	b.security = &opts
	return b
}

// WithConflictPolicy selects how shape conflicts between scalar and nested keys are handled
func (b *Builder) WithConflictPolicy(policy ConflictPolicy) *Builder {
	b.policy = policy
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build loads the schema, parses the configuration and runs validators.
// Any failure discards all partial progress.
func (b *Builder) Build() (*Tree, error) {
	if b.err != nil {
		return nil, b.err
	}

	schema, err := b.loadSchema()
	if err != nil {
		return nil, err
	}

	p := &parser{
		logger:  b.logger,
		schema:  schema,
		policy:  b.policy,
		maxLine: b.maxLineSize(),
	}

	var tree *Tree
	switch {
	case b.reader != nil:
		tree, err = p.parse(b.reader, b.readerName)
	case b.file != "":
		var f io.ReadCloser
		f, err = openSource(b.file, b.security)
		if err != nil {
			return nil, err
		}
		tree, err = p.parse(f, b.file)
		f.Close()
	default:
		return nil, fmt.Errorf("%w: %w: no configuration file given", ErrIO, ErrConfigNotFound)
	}
	if err != nil {
		return nil, err
	}

	for _, validator := range b.validators {
		if err := validator(tree); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return tree, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Tree {
	tree, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return tree
}

// BuildAndScan builds the tree, decodes the section at the builder prefix
// into target and validates the result (see Tree.ScanAndValidate).
func (b *Builder) BuildAndScan(target any) (*Tree, error) {
	tree, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := tree.ScanAndValidate(b.prefix, target); err != nil {
		return nil, fmt.Errorf("failed to scan final config into target: %w", err)
	}
	return tree, nil
}

// loadSchema assembles the schema for one build. The schema source is read
// completely before the configuration is opened.
func (b *Builder) loadSchema() (Schema, error) {
	schema := make(Schema)

	switch {
	case b.schemaReader != nil:
		s, err := loadSchema(b.schemaReader, b.schemaReaderName, b.logger, b.maxLineSize())
		if err != nil {
			return nil, err
		}
		schema = s
	case b.schemaFile != "":
		f, err := openSource(b.schemaFile, b.security)
		if err != nil {
			return nil, err
		}
		s, err := loadSchema(f, b.schemaFile, b.logger, b.maxLineSize())
		f.Close()
		if err != nil {
			return nil, err
		}
		schema = s
	}

	for _, s := range b.schemas {
		schema.Merge(s)
	}
	return schema, nil
}

func (b *Builder) maxLineSize() int {
	if b.security != nil && b.security.MaxLineSize > 0 {
		return b.security.MaxLineSize
	}
	return DefaultMaxLineSize
}
