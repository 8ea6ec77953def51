// FILE: lixenwraith/flatconf/decode_test.go
package flatconf

import (
	"net"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParseString(t *testing.T, config string) *Tree {
	t.Helper()
	tree, err := ParseReader(strings.NewReader(config), nil)
	require.NoError(t, err)
	return tree
}

// TestScanTypes checks decode hooks and weak typing over schema-less strings
func TestScanTypes(t *testing.T) {
	type Network struct {
		Addr     net.IP        `conf:"addr"`
		Subnet   net.IPNet     `conf:"subnet"`
		SubnetP  *net.IPNet    `conf:"subnet_ptr"`
		Endpoint url.URL       `conf:"endpoint"`
		Proxy    *url.URL      `conf:"proxy"`
		Timeout  time.Duration `conf:"timeout"`
		Since    time.Time     `conf:"since"`
		Tags     []string      `conf:"tags"`
		Port     int           `conf:"port"`
		Ratio    float64       `conf:"ratio"`
		Enabled  bool          `conf:"enabled"`
	}

	tree := mustParseString(t, `
net.addr = 192.168.1.10
net.subnet = 10.0.0.0/8
net.subnet_ptr = 172.16.0.0/12
net.endpoint = https://api.example.com/v1
net.proxy = http://proxy:3128
net.timeout = 1m30s
net.since = 2024-01-02T03:04:05Z
net.tags = a,b,c
net.port = 9090
net.ratio = 0.75
net.enabled = true
`)

	var cfg Network
	require.NoError(t, tree.Scan("net", &cfg))

	assert.Equal(t, "192.168.1.10", cfg.Addr.String())
	assert.Equal(t, "10.0.0.0/8", cfg.Subnet.String())
	require.NotNil(t, cfg.SubnetP)
	assert.Equal(t, "172.16.0.0/12", cfg.SubnetP.String())
	assert.Equal(t, "api.example.com", cfg.Endpoint.Host)
	require.NotNil(t, cfg.Proxy)
	assert.Equal(t, "proxy:3128", cfg.Proxy.Host)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), cfg.Since)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 0.75, cfg.Ratio)
	assert.True(t, cfg.Enabled)
}

func TestScanSections(t *testing.T) {
	tree := mustParseString(t, "endpoint = localhost:3000\nlog.file = /var/log/console.log\nlog.level = debug\n")

	t.Run("Root", func(t *testing.T) {
		var cfg struct {
			Endpoint string `conf:"endpoint"`
			Log      struct {
				File  string `conf:"file"`
				Level string `conf:"level"`
			} `conf:"log"`
		}
		require.NoError(t, tree.Scan("", &cfg))
		assert.Equal(t, "localhost:3000", cfg.Endpoint)
		assert.Equal(t, "/var/log/console.log", cfg.Log.File)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("TrailingDot", func(t *testing.T) {
		var cfg struct {
			File string `conf:"file"`
		}
		require.NoError(t, tree.Scan("log.", &cfg))
		assert.Equal(t, "/var/log/console.log", cfg.File)
	})

	t.Run("Map", func(t *testing.T) {
		m := map[string]string{}
		require.NoError(t, tree.Scan("log", &m))
		assert.Equal(t, map[string]string{"file": "/var/log/console.log", "level": "debug"}, m)
	})

	t.Run("MissingSectionIsEmpty", func(t *testing.T) {
		var cfg struct {
			Value string `conf:"value"`
		}
		require.NoError(t, tree.Scan("absent", &cfg))
		assert.Empty(t, cfg.Value)
	})

	t.Run("NonTable", func(t *testing.T) {
		var cfg struct{}
		err := tree.Scan("endpoint", &cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-table")
	})

	t.Run("InvalidTarget", func(t *testing.T) {
		var cfg struct{}
		assert.Error(t, tree.Scan("", cfg))

		var nilPtr *struct{}
		assert.Error(t, tree.Scan("", nilPtr))
	})

	t.Run("DecodeFailure", func(t *testing.T) {
		var cfg struct {
			File int `conf:"file"`
		}
		err := tree.Scan("log", &cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"log"`)
	})
}

func TestScanAndValidate(t *testing.T) {
	type Limits struct {
		Max  int    `conf:"max" validate:"gte=1"`
		Mode string `conf:"mode" validate:"oneof=fast safe"`
	}

	t.Run("Valid", func(t *testing.T) {
		tree := mustParseString(t, "limits.max = 5\nlimits.mode = safe\n")
		var cfg Limits
		require.NoError(t, tree.ScanAndValidate("limits", &cfg))
		assert.Equal(t, 5, cfg.Max)
	})

	t.Run("Invalid", func(t *testing.T) {
		tree := mustParseString(t, "limits.max = 0\nlimits.mode = reckless\n")
		var cfg Limits
		err := tree.ScanAndValidate("limits", &cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `validation failed for path "limits"`)
	})

	t.Run("MapTargetSkipsValidation", func(t *testing.T) {
		tree := mustParseString(t, "limits.max = 0\n")
		m := map[string]any{}
		require.NoError(t, tree.ScanAndValidate("limits", &m))
		assert.Equal(t, "0", m["max"])
	})
}
