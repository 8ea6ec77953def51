// FILE: lixenwraith/flatconf/cmd/flatconf/main_test.go
package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lixenwraith/flatconf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores the package-level flag values after a test
func resetFlags(t *testing.T) {
	t.Helper()
	savedVerbose, savedSchema, savedStrict := verbose, schemaPath, strict
	t.Cleanup(func() {
		verbose, schemaPath, strict = savedVerbose, savedSchema, savedStrict
	})
	verbose, schemaPath, strict = false, "", false
}

func TestLoad(t *testing.T) {
	t.Run("FileWithSchema", func(t *testing.T) {
		resetFlags(t)
		schemaPath = "../../testdata/data.schema"

		tree, err := load([]string{"../../testdata/case-1.conf"})
		require.NoError(t, err)

		debug, err := tree.Bool("debug")
		require.NoError(t, err)
		assert.True(t, debug)

		file, err := tree.String("log.file")
		require.NoError(t, err)
		assert.Equal(t, "/var/log/console.log", file)
	})

	t.Run("VerboseSchemaError", func(t *testing.T) {
		resetFlags(t)
		verbose = true
		schemaPath = "../../testdata/unknown-type.schema"

		_, err := load([]string{"../../testdata/case-1.conf"})
		assert.ErrorIs(t, err, flatconf.ErrUnknownSchemaType)
	})

	t.Run("VerboseParseError", func(t *testing.T) {
		resetFlags(t)
		verbose = true

		dir := t.TempDir()
		configPath := filepath.Join(dir, "app.conf")
		schemaFile := filepath.Join(dir, "app.schema")
		require.NoError(t, os.WriteFile(configPath, []byte("debug = maybe\n"), 0644))
		require.NoError(t, os.WriteFile(schemaFile, []byte("debug -> bool\n"), 0644))
		schemaPath = schemaFile

		_, err := load([]string{configPath})
		assert.ErrorIs(t, err, flatconf.ErrInvalidBoolean)

		var perr *flatconf.ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 1, perr.Line)
	})

	t.Run("Strict", func(t *testing.T) {
		resetFlags(t)
		strict = true

		configPath := filepath.Join(t.TempDir(), "app.conf")
		require.NoError(t, os.WriteFile(configPath, []byte("log = on\nlog.file = x\n"), 0644))

		_, err := load([]string{configPath})
		assert.ErrorIs(t, err, flatconf.ErrShapeConflict)
	})
}

func TestNewBuilderDiscovery(t *testing.T) {
	t.Run("EnvVar", func(t *testing.T) {
		resetFlags(t)

		dir := t.TempDir()
		configPath := filepath.Join(dir, "app.conf")
		require.NoError(t, os.WriteFile(configPath, []byte("port = 8080\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "app.schema"), []byte("port -> number\n"), 0644))
		t.Setenv("FLATCONF_CONFIG", configPath)

		tree, err := load(nil)
		require.NoError(t, err)

		port, err := tree.Number("port")
		require.NoError(t, err)
		assert.Equal(t, 8080.0, port)
	})

	t.Run("NothingFound", func(t *testing.T) {
		resetFlags(t)

		empty := t.TempDir()
		t.Setenv("FLATCONF_CONFIG", "")
		t.Setenv("XDG_CONFIG_HOME", empty)
		t.Setenv("XDG_CONFIG_DIRS", empty)
		t.Chdir(empty)

		b, err := newBuilder(nil)
		assert.Nil(t, b)
		assert.ErrorIs(t, err, flatconf.ErrConfigNotFound)
	})
}
