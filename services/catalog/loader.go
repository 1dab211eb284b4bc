package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	reloadTotal = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_reload_total"})
	reloadError = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_reload_errors_total"})
)

func init() {
	prometheus.MustRegister(reloadTotal, reloadError)
}

// Load parses and validates a catalog file.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	if err := c.finalize(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

// Provider hands out the current catalog snapshot. Snapshot is safe for
// concurrent use; a reload swaps in a fully validated replacement and a
// failed reload keeps the previous snapshot serving.
type Provider struct {
	current atomic.Value
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewProvider loads the catalog at path, or the built-in default when
// path is empty.
func NewProvider(path string) (*Provider, error) {
	p := &Provider{path: path, done: make(chan struct{})}

	var (
		c   *Catalog
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	p.current.Store(c)
	return p, nil
}

// Snapshot returns the current immutable catalog.
func (p *Provider) Snapshot() *Catalog {
	return p.current.Load().(*Catalog)
}

// Watch starts a filesystem watcher on the catalog file and reloads on
// change. No-op when the provider serves the built-in default.
func (p *Provider) Watch(ctx context.Context) error {
	if p.path == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start catalog watcher: %w", err)
	}

	// Watch the directory, not the file. Editors and config mounts
	// replace the file, which drops a direct file watch.
	if err := w.Add(filepath.Dir(p.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch catalog dir: %w", err)
	}

	p.watcher = w
	go p.watchLoop(ctx)
	return nil
}

func (p *Provider) watchLoop(ctx context.Context) {
	target := filepath.Clean(p.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			p.reload()
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			zap.L().Warn("catalog watcher error", zap.Error(err))
		}
	}
}

func (p *Provider) reload() {
	reloadTotal.Inc()

	c, err := Load(p.path)
	if err != nil {
		reloadError.Inc()
		zap.L().Error("catalog reload failed, keeping previous snapshot",
			zap.String("path", p.path),
			zap.Error(err),
		)
		return
	}

	prev := p.Snapshot()
	p.current.Store(c)
	zap.L().Info("catalog reloaded",
		zap.String("path", p.path),
		zap.Int64("previous_version", prev.Version),
		zap.Int64("version", c.Version),
	)
}

// Close stops the watcher if one is running.
func (p *Provider) Close() error {
	close(p.done)
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}
