// Package chunker splits document text into paragraph chunks for retrieval.
package chunker

import (
	"strings"
)

// Delimiter separates paragraphs in corpus files.
const Delimiter = "\n\n"

// Options configures chunking behavior.
type Options struct {
	// MaxSize caps chunk length in bytes. Paragraphs longer than MaxSize are
	// split on line boundaries. Zero disables the cap.
	MaxSize int
}

// DefaultOptions returns default chunking options: paragraphs are kept whole.
func DefaultOptions() Options {
	return Options{}
}

// Paragraphs splits text on blank-line boundaries. Each piece is trimmed and
// empty pieces are dropped. Windows line endings are normalised first.
func Paragraphs(text string, opts Options) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var chunks []string
	for _, part := range strings.Split(text, Delimiter) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if opts.MaxSize > 0 && len(part) > opts.MaxSize {
			chunks = append(chunks, hardSplit(part, opts.MaxSize)...)
			continue
		}
		chunks = append(chunks, part)
	}
	return chunks
}

// hardSplit breaks text that exceeds maxSize on line boundaries. A single
// line longer than maxSize is kept intact.
func hardSplit(text string, maxSize int) []string {
	lines := strings.Split(text, "\n")
	var results []string
	var current []string
	curLen := 0

	flush := func() {
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			results = append(results, t)
		}
		current = nil
		curLen = 0
	}

	for _, line := range lines {
		if curLen+len(line) > maxSize && len(current) > 0 {
			flush()
		}
		current = append(current, line)
		curLen += len(line) + 1 // +1 for newline
	}
	flush()

	return results
}
