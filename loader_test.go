// FILE: lixenwraith/flatconf/loader_test.go
package flatconf

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entry is an ordered view of a tree used to compare whole parse results
type entry struct {
	Key   string
	Value any
}

func orderedView(tree *Tree) []entry {
	var view []entry
	for k, v := range tree.All() {
		if sub, err := v.AsTable(); err == nil {
			view = append(view, entry{k, orderedView(sub)})
			continue
		}
		view = append(view, entry{k, v.Interface()})
	}
	return view
}

func TestParseWithoutSchema(t *testing.T) {
	tree, err := Parse("testdata/case-1.conf", "")
	require.NoError(t, err)

	assert.Equal(t, []entry{
		{"endpoint", "localhost:3000"},
		{"debug", "true"},
		{"log", []entry{{"file", "/var/log/console.log"}}},
	}, orderedView(tree))
}

func TestParseWithSchema(t *testing.T) {
	tree, err := Parse("testdata/case-1.conf", "testdata/data.schema")
	require.NoError(t, err)

	assert.Equal(t, []entry{
		{"endpoint", "localhost:3000"},
		{"debug", true},
		{"log", []entry{{"file", "/var/log/console.log"}}},
	}, orderedView(tree))

	assert.True(t, tree.Has("endpoint"))
	assert.True(t, tree.Has("log"))

	endpoint, err := tree.String("endpoint")
	require.NoError(t, err)
	assert.Equal(t, "localhost:3000", endpoint)

	v, _ := tree.Get("endpoint")
	_, err = v.AsBool()
	assert.ErrorIs(t, err, ErrTypeMismatch)

	debug, err := tree.Bool("debug")
	require.NoError(t, err)
	assert.True(t, debug)
}

func TestParseUnknownSchemaType(t *testing.T) {
	t.Run("File", func(t *testing.T) {
		tree, err := Parse("testdata/case-1.conf", "testdata/unknown-type.schema")
		assert.Nil(t, tree)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownSchemaType)
	})

	t.Run("ConfigNeverRead", func(t *testing.T) {
		config := &countingReader{r: strings.NewReader("debug = true\n")}
		_, err := ParseReader(config, strings.NewReader("debug -> boolean\n"))
		assert.ErrorIs(t, err, ErrUnknownSchemaType)
		assert.Zero(t, config.reads)
	})

	t.Run("ConfigFileNeverOpened", func(t *testing.T) {
		_, err := Parse("testdata/does-not-exist.conf", "testdata/unknown-type.schema")
		assert.ErrorIs(t, err, ErrUnknownSchemaType)
		assert.NotErrorIs(t, err, ErrConfigNotFound)
	})
}

func TestParseCoercionFailures(t *testing.T) {
	tests := []struct {
		name   string
		config string
		schema string
		want   error
		line   int
		key    string
	}{
		{"InvalidBoolean", "endpoint = x\ndebug = yes\n", "debug -> bool", ErrInvalidBoolean, 2, "debug"},
		{"InvalidNumber", "# c\nport = eighty\n", "port -> number", ErrInvalidNumber, 2, "port"},
		{"NestedKey", "log.size = big", "log.size -> number", ErrInvalidNumber, 1, "log.size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := ParseReader(strings.NewReader(tt.config), strings.NewReader(tt.schema))
			assert.Nil(t, tree)
			require.ErrorIs(t, err, tt.want)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, tt.key, perr.Key)
			assert.Equal(t, "config", perr.Source)
		})
	}
}

func TestParseSkipsCommentsAndMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"# comment",
		"; comment",
		"",
		"   ",
		"  # indented comment = x",
		"no separator here",
		"= no key",
		"no.value =",
		"real = value",
	}, "\n")

	tree, err := ParseReader(strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, tree.Keys())
}

func TestParseSchemaOnlyAppliesToExactKey(t *testing.T) {
	input := "port = 80\nserver.port = 8080\n"
	tree, err := ParseReader(strings.NewReader(input), strings.NewReader("server.port -> number\n"))
	require.NoError(t, err)

	port, err := tree.String("port")
	require.NoError(t, err)
	assert.Equal(t, "80", port)

	serverPort, err := tree.Number("server.port")
	require.NoError(t, err)
	assert.Equal(t, 8080.0, serverPort)
}

func TestParseFullFile(t *testing.T) {
	tree, err := Parse("testdata/full.conf", "testdata/full.schema")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"server.host",
		"server.port",
		"server.timeout",
		"features.rate_limit",
		"features.burst",
	}, tree.Paths())

	port, err := tree.Number("server.port")
	require.NoError(t, err)
	assert.Equal(t, 8080.0, port)

	timeout, err := tree.String("server.timeout")
	require.NoError(t, err)
	assert.Equal(t, "30s", timeout)

	rateLimit, err := tree.Bool("features.rate_limit")
	require.NoError(t, err)
	assert.True(t, rateLimit)
}

func TestParseLineEndingsAndEncoding(t *testing.T) {
	input := "a = 1\r\nb = 2\r\nbad = \xff\xfe\r\nc = 3"
	tree, err := ParseReader(strings.NewReader(input), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tree.Keys())

	b, _ := tree.String("b")
	assert.Equal(t, "2", b)
}

func TestParseMissingFiles(t *testing.T) {
	t.Run("Config", func(t *testing.T) {
		_, err := Parse("testdata/does-not-exist.conf", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrIO)
		assert.ErrorIs(t, err, ErrConfigNotFound)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Schema", func(t *testing.T) {
		_, err := Parse("testdata/case-1.conf", "testdata/does-not-exist.schema")
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("Directory", func(t *testing.T) {
		_, err := Parse("testdata", "")
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("NoSource", func(t *testing.T) {
		_, err := NewBuilder().Build()
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})
}

func TestParseReadFailure(t *testing.T) {
	boom := errors.New("disk on fire")
	r := io.MultiReader(strings.NewReader("a = 1\n"), &failingReader{err: boom})

	tree, err := ParseReader(r, nil)
	assert.Nil(t, tree)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, boom)
}

func TestSecurityOptions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "app.conf")
	require.NoError(t, os.WriteFile(path, []byte("key = "+strings.Repeat("v", 100)+"\n"), 0644))

	t.Run("MaxFileSize", func(t *testing.T) {
		_, err := NewBuilder().
			WithFile(path).
			WithSecurityOptions(SecurityOptions{MaxFileSize: 10}).
			Build()
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("MaxLineSize", func(t *testing.T) {
		_, err := NewBuilder().
			WithFile(path).
			WithSecurityOptions(SecurityOptions{MaxLineSize: 16}).
			Build()
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("MaxLineSizeExact", func(t *testing.T) {
		line := "k = " + strings.Repeat("v", 12)
		require.Len(t, line, 16)

		for name, input := range map[string]string{
			"NoNewline": line,
			"LF":        line + "\n",
			"CRLF":      line + "\r\n",
		} {
			t.Run(name, func(t *testing.T) {
				tree, err := NewBuilder().
					WithReader(strings.NewReader(input), "inline").
					WithSecurityOptions(SecurityOptions{MaxLineSize: 16}).
					Build()
				require.NoError(t, err)
				v, err := tree.String("k")
				require.NoError(t, err)
				assert.Equal(t, strings.Repeat("v", 12), v)
			})
		}

		t.Run("OneOver", func(t *testing.T) {
			_, err := NewBuilder().
				WithReader(strings.NewReader(line+"v\n"), "inline").
				WithSecurityOptions(SecurityOptions{MaxLineSize: 16}).
				Build()
			assert.ErrorIs(t, err, ErrIO)
		})
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := NewBuilder().
			WithFile("../outside.conf").
			WithSecurityOptions(SecurityOptions{PreventPathTraversal: true}).
			Build()
		assert.ErrorIs(t, err, ErrPathTraversal)
	})

	t.Run("WithinLimits", func(t *testing.T) {
		tree, err := NewBuilder().
			WithFile(path).
			WithSecurityOptions(SecurityOptions{MaxFileSize: 1024, MaxLineSize: 1024, PreventPathTraversal: true, EnforceFileOwnership: true}).
			Build()
		require.NoError(t, err)
		assert.True(t, tree.Has("key"))
	})
}

func TestParseLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	_, err := NewBuilder().
		WithReader(strings.NewReader("a = 1\nnot a directive\na.b = 2\n"), "inline").
		WithSchemaReader(strings.NewReader("a.b -> number\n"), "inline-schema").
		WithLogger(logger).
		Build()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"message":"schema entry declared"`)
	assert.Contains(t, out, `"message":"skipping line"`)
	assert.Contains(t, out, `"message":"value replaced by differently shaped entry"`)
	assert.Contains(t, out, `"message":"configuration parsed"`)
	assert.Contains(t, out, `"source":"inline"`)
	assert.NotContains(t, out, "not a directive")
}

func TestParseErrorFormatting(t *testing.T) {
	err := &ParseError{Source: "app.conf", Line: 3, Key: "debug", Err: ErrInvalidBoolean}
	assert.Equal(t, `app.conf:3: key "debug": invalid boolean value`, err.Error())
	assert.ErrorIs(t, err, ErrInvalidBoolean)

	noKey := &ParseError{Source: "app.conf", Line: 1, Err: ErrIO}
	assert.Equal(t, "app.conf:1: configuration source unreadable", noKey.Error())
}

type countingReader struct {
	r     io.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	return c.r.Read(p)
}

type failingReader struct {
	err error
}

func (f *failingReader) Read([]byte) (int, error) {
	return 0, f.err
}
