// File: lixenwraith/flatconf/doc.go

// Package flatconf parses flat "key = value" configuration files into a
// hierarchical tree, with optional type declarations from a schema file.
//
// Config format, one directive per line:
//
//	# comment
//	; also a comment
//	endpoint = localhost:3000
//	debug = true
//	log.file = /var/log/console.log
//
// Dotted keys create nested tables, so the example yields
// endpoint, debug and a table log holding file. Values are taken verbatim
// up to the end of the line; there is no quoting or escaping. Lines that do
// not have the key = value shape are skipped.
//
// Schema format, one declaration per line, types string, bool and number:
//
//	endpoint -> string
//	debug -> bool
//	log.file -> string
//
// Declared keys are coerced when parsed and a value that does not fit its
// type fails the whole parse. Undeclared keys are strings. Schema files have
// no comment syntax.
//
// Quick Start:
//
//	tree, err := flatconf.Parse("app.conf", "app.schema")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	debug, _ := tree.Bool("debug")
//	file, _ := tree.String("log.file")
//
// Builder:
//
//	tree, err := flatconf.NewBuilder().
//	    WithFile("app.conf").
//	    WithSchemaStruct("", AppConfig{}).
//	    WithConflictPolicy(flatconf.ConflictReject).
//	    WithLogger(logger).
//	    Build()
//
// Key conflicts:
// By default the last write wins regardless of shape. "a.b = x" followed by
// "a.b.c = y" discards x, and "a = z" after "a.b = x" replaces the table.
// ConflictReject turns both cases into ErrShapeConflict.
//
// Thread Safety:
// A Tree is a plain value owned by the caller and is not synchronized.
// Watcher publishes each reparsed tree atomically; those trees are shared
// and must not be modified.
package flatconf
