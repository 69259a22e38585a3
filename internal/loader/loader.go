// Package loader reads a corpus directory into ordered paragraph chunks.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rcliao/alphamind/internal/chunker"
	"github.com/rcliao/alphamind/internal/model"
)

// Options configures which files are read and how they are chunked.
type Options struct {
	// Extensions lists the file suffixes that are loaded, including the dot.
	Extensions []string
	Chunk      chunker.Options
	Logger     *slog.Logger
}

// DefaultOptions loads .txt files and keeps paragraphs whole.
func DefaultOptions() Options {
	return Options{
		Extensions: []string{".txt"},
		Chunk:      chunker.DefaultOptions(),
	}
}

// Load walks root in lexical order and returns every paragraph chunk of every
// recognised file. A missing root yields no chunks. Unreadable files and
// directories are skipped with a warning.
func Load(root string, opts Options) ([]model.Chunk, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "loader")

	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("corpus root not found", "root", root)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", root)
	}

	var chunks []model.Chunk
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if path != root && Hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !opts.Accepts(path) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("skipping unreadable file", "path", path, "error", err)
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		text := strings.ToValidUTF8(string(data), "")
		for i, p := range chunker.Paragraphs(text, opts.Chunk) {
			chunks = append(chunks, model.Chunk{Text: p, Source: filepath.ToSlash(rel), Seq: i})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus: %w", err)
	}

	log.Debug("corpus loaded", "root", root, "chunks", len(chunks))
	return chunks, nil
}

// Accepts reports whether path has one of the configured extensions.
func (o Options) Accepts(path string) bool {
	exts := o.Extensions
	if len(exts) == 0 {
		exts = DefaultOptions().Extensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// Hidden reports whether a file or directory name is dot-prefixed.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
