// FILE: lixenwraith/flatconf/example/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lixenwraith/flatconf"
	"github.com/rs/zerolog"
)

// AppConfig mirrors the layout of app.conf. Its fields also declare the
// schema, so port is read as a number and rate_limit as a bool.
type AppConfig struct {
	Server struct {
		Host    string        `conf:"host" validate:"required"`
		Port    int           `conf:"port" validate:"min=1,max=65535"`
		Timeout time.Duration `conf:"timeout"`
	} `conf:"server"`

	Database struct {
		URL      string `conf:"url" validate:"required"`
		MaxConns int    `conf:"max_conns"`
	} `conf:"database"`

	Features struct {
		RateLimit bool    `conf:"rate_limit"`
		Burst     float64 `conf:"burst"`
	} `conf:"features"`
}

const initialConfig = `# demo configuration
server.host = localhost
server.port = 8080
server.timeout = 30s

database.url = postgres://localhost/myapp
database.max_conns = 25

features.rate_limit = true
features.burst = 2.5
`

func main() {
	dir, err := os.MkdirTemp("", "flatconf-example")
	if err != nil {
		log.Fatal("Failed to create temp dir:", err)
	}
	defer os.RemoveAll(dir)

	configPath := filepath.Join(dir, "app.conf")
	if err := os.WriteFile(configPath, []byte(initialConfig), 0644); err != nil {
		log.Fatal("Failed to write config:", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel).With().Timestamp().Logger()

	// =========================================================================
	// PART 1: Parse and decode into a struct
	// =========================================================================
	var cfg AppConfig
	builder := flatconf.NewBuilder().
		WithFile(configPath).
		WithSchemaStruct("", cfg).
		WithLogger(logger).
		WithValidator(func(t *flatconf.Tree) error {
			return t.Require("server.host", "database.url")
		})

	tree, err := builder.BuildAndScan(&cfg)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	log.Println("Current configuration:")
	log.Printf("  Server: %s:%d (timeout %s)", cfg.Server.Host, cfg.Server.Port, cfg.Server.Timeout)
	log.Printf("  Database: %s (max_conns=%d)", cfg.Database.URL, cfg.Database.MaxConns)
	log.Printf("  Features: rate_limit=%v, burst=%v", cfg.Features.RateLimit, cfg.Features.Burst)
	log.Print(tree.Debug())

	// =========================================================================
	// PART 2: Watch for changes
	// =========================================================================
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watchOpts := flatconf.WatchOptions{
		PollInterval:      500 * time.Millisecond,
		Debounce:          200 * time.Millisecond,
		MaxWatchers:       10,
		ReloadTimeout:     2 * time.Second,
		VerifyPermissions: true,
	}
	w, err := builder.Watch(ctx, watchOpts)
	if err != nil {
		log.Fatal("Failed to start watcher:", err)
	}
	defer w.Stop()

	events := w.Subscribe()

	// Edit the file in the background to trigger a reload
	go func() {
		time.Sleep(time.Second)
		updated := initialConfig + "server.port = 9090\n"
		if err := os.WriteFile(configPath, []byte(updated), 0644); err != nil {
			log.Printf("❌ Failed to update config: %v", err)
		}
	}()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			handleEvent(ev)
			if ev.Kind == flatconf.EventReloaded {
				return
			}
		case <-timeout:
			log.Println("No change observed, exiting")
			return
		case <-ctx.Done():
			log.Println("Shutting down...")
			return
		}
	}
}

func handleEvent(ev flatconf.Event) {
	switch ev.Kind {
	case flatconf.EventDeleted:
		log.Println("⚠️  Config file was deleted!")
	case flatconf.EventPermissionsChanged:
		log.Println("⚠️  SECURITY: Config file permissions changed!")
	case flatconf.EventReloadError:
		log.Printf("❌ Failed to reload config: %v", ev.Err)
	case flatconf.EventReloadTimeout:
		log.Println("⚠️  Config reload timed out")
	case flatconf.EventReloaded:
		for _, path := range ev.Changed {
			value, _ := ev.Tree.Lookup(path)
			log.Printf("📝 Config changed: %s = %v", path, value)
		}

		var cfg AppConfig
		if err := ev.Tree.ScanAndValidate("", &cfg); err != nil {
			log.Printf("❌ Reloaded config is invalid: %v", err)
			return
		}
		log.Printf("Server now on port %d", cfg.Server.Port)
	}
}
