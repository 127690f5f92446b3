// Package discovery locates the datasets a validation run covers: files
// under a root directory and schemas of configured databases.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ApiratRepublic/RePublic/pkg/adapter"
	"github.com/ApiratRepublic/RePublic/pkg/core"
)

// containerExt marks directory-shaped datasets that are never descended into.
const containerExt = ".gdb"

// DefaultExtensions maps file source types to the extensions they claim
// when none are configured.
var DefaultExtensions = map[string][]string{
	"gpkg":   {".gpkg"},
	"duckdb": {".duckdb", ".ddb"},
}

// Source describes one configured source.
type Source struct {
	Type           string
	Extensions     []string
	GeometryColumn string
	OIDColumn      string
	DSN            string
	Schemas        []string
	Params         map[string]any
}

// extensions returns the lower-cased extensions the source claims.
func (s Source) extensions() []string {
	exts := s.Extensions
	if len(exts) == 0 && s.DSN == "" {
		exts = DefaultExtensions[s.Type]
	}
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

func (s Source) config() core.SourceConfig {
	return core.SourceConfig{
		Type:           s.Type,
		DSN:            s.DSN,
		GeometryColumn: s.GeometryColumn,
		OIDColumn:      s.OIDColumn,
		Params:         s.Params,
	}
}

// Options configures discovery.
type Options struct {
	Root    string
	Sources []Source
}

// Error is a non-fatal problem found while discovering.
type Error struct {
	Path    string
	Message string
}

// Result lists the datasets found, in deterministic order.
type Result struct {
	Datasets []core.SourceConfig
	Errors   []Error
}

// Label names a dataset before it is opened: its path, or type:schema for
// database sources.
func Label(cfg core.SourceConfig) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	if cfg.Schema != "" {
		return cfg.Type + ":" + cfg.Schema
	}
	return cfg.Type
}

// Discover walks opts.Root for files claimed by a file source and expands
// every database source into one dataset per schema.
func Discover(ctx context.Context, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	res := &Result{}

	byExt := make(map[string]Source)
	var databases []Source
	for _, src := range opts.Sources {
		exts := src.extensions()
		if len(exts) == 0 {
			databases = append(databases, src)
			continue
		}
		for _, e := range exts {
			if prev, ok := byExt[e]; ok && prev.Type != src.Type {
				return nil, fmt.Errorf("extension %s claimed by both %s and %s", e, prev.Type, src.Type)
			}
			byExt[e] = src
		}
	}

	if len(byExt) > 0 {
		if opts.Root == "" {
			return nil, fmt.Errorf("root_dir not set")
		}
		files, err := walk(ctx, opts.Root, byExt, res, logger)
		if err != nil {
			return nil, err
		}
		res.Datasets = append(res.Datasets, files...)
	}

	for _, src := range databases {
		cfgs, err := expand(ctx, src, logger)
		if err != nil {
			logger.Warn("database discovery failed", slog.String("type", src.Type), slog.String("error", err.Error()))
			res.Errors = append(res.Errors, Error{Path: src.Type, Message: err.Error()})
			continue
		}
		res.Datasets = append(res.Datasets, cfgs...)
	}

	sort.SliceStable(res.Datasets, func(i, j int) bool {
		return Label(res.Datasets[i]) < Label(res.Datasets[j])
	})
	logger.Info("discovery completed",
		slog.Int("datasets", len(res.Datasets)),
		slog.Int("errors", len(res.Errors)))
	return res, nil
}

func walk(ctx context.Context, root string, byExt map[string]Source, res *Result, logger *slog.Logger) ([]core.SourceConfig, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root_dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root_dir %s is not a directory", root)
	}

	var out []core.SourceConfig
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			logger.Warn("skipping unreadable path", slog.String("path", path), slog.String("error", err.Error()))
			res.Errors = append(res.Errors, Error{Path: path, Message: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if d.IsDir() {
			if path != root && ext == containerExt {
				logger.Debug("skipping container directory", slog.String("path", path))
				return filepath.SkipDir
			}
			return nil
		}
		src, ok := byExt[ext]
		if !ok {
			return nil
		}
		cfg := src.config()
		cfg.Path = path
		out = append(out, cfg)
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipAll) {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return out, nil
}

func expand(ctx context.Context, src Source, logger *slog.Logger) ([]core.SourceConfig, error) {
	base := src.config()
	if len(src.Schemas) > 0 {
		out := make([]core.SourceConfig, len(src.Schemas))
		for i, schema := range src.Schemas {
			out[i] = base
			out[i].Schema = schema
		}
		return out, nil
	}
	s, err := adapter.NewSource(base, logger)
	if err != nil {
		return nil, err
	}
	if d, ok := s.(adapter.Discoverer); ok {
		return d.Discover(ctx, base)
	}
	return []core.SourceConfig{base}, nil
}
