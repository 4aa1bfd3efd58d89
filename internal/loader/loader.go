// Package loader reads a corpus of crawled HTML documentation files and emits
// one rag.Document per file. Tag and script content is stripped to plain
// text, and a fixed-size table-of-contents prefix — the navigation block that
// every crawled page repeats — is dropped from the head of each document.
package loader

import (
	"crypto/sha256"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/54b3r/docmind-go/internal/rag"
)

// Config holds the corpus loader configuration.
type Config struct {
	// MaxDocs bounds the number of files loaded. Defaults to 75 if zero,
	// matching the usual size of a single crawled documentation tree.
	MaxDocs int

	// SkipBlocks is the number of leading extracted text blocks dropped from
	// each document (the shared table-of-contents prefix). Defaults to 0.
	SkipBlocks int
}

// Loader walks a directory tree of HTML files and converts them to documents.
type Loader struct {
	// cfg holds the resolved loader configuration.
	cfg Config
}

// New constructs a Loader from the given config.
func New(cfg Config) *Loader {
	if cfg.MaxDocs <= 0 {
		cfg.MaxDocs = 75
	}
	if cfg.SkipBlocks < 0 {
		cfg.SkipBlocks = 0
	}
	return &Loader{cfg: cfg}
}

// LoadDir walks dir, collects up to MaxDocs HTML files in deterministic
// (lexical) order, and returns one document per file. Unreadable files are
// skipped with a warning; files whose extracted text is empty yield no
// document.
func (l *Loader) LoadDir(dir string) ([]rag.Document, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if ext != ".html" && ext != ".htm" {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loader: walk %s: %w", dir, err)
	}

	// WalkDir visits entries in lexical order per directory, but sort the
	// full list so the MaxDocs cutoff is stable across platforms.
	sort.Strings(paths)
	if len(paths) > l.cfg.MaxDocs {
		paths = paths[:l.cfg.MaxDocs]
	}

	docs := make([]rag.Document, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("loader: skipping unreadable file",
				slog.String("path", path),
				slog.Any("error", err),
			)
			continue
		}

		title, text := extract(string(raw))
		text = dropLeadingBlocks(text, l.cfg.SkipBlocks)
		if strings.TrimSpace(text) == "" {
			continue
		}

		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		if title == "" {
			title = TitleFromPath(rel)
		}

		docs = append(docs, rag.Document{
			ID:      DocID(rel),
			Title:   title,
			Source:  path,
			Content: text,
		})
	}

	return docs, nil
}

// DocID derives a stable, filesystem-safe identifier from a corpus-relative
// file path. The same path always maps to the same ID, which keys both the
// cache directory and the baseline index points.
func DocID(rel string) string {
	slug := strings.ToLower(strings.TrimSuffix(rel, filepath.Ext(rel)))
	slug = nonIdentRE.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > 48 {
		// Keep a readable prefix plus a short hash so truncated slugs from
		// deep paths cannot collide.
		h := sha256.Sum256([]byte(rel))
		slug = fmt.Sprintf("%s_%x", slug[:40], h[:3])
	}
	return slug
}

// nonIdentRE matches characters replaced with underscores in document IDs.
var nonIdentRE = regexp.MustCompile(`[^a-z0-9]+`)

// tag-stripping expressions, applied in order: scripts and styles first so
// their bodies never leak into the text, then the remaining markup.
var (
	scriptRE = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	titleRE  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	blockRE  = regexp.MustCompile(`(?i)</?(p|div|br|h[1-6]|li|ul|ol|tr|table|section|article|header|footer|nav)[^>]*>`)
	tagRE    = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRE  = regexp.MustCompile(`[ \t]+`)
)

// extract returns the page title and the plain text of an HTML document.
// Block-level tags become newlines so that dropLeadingBlocks can count
// logical blocks; all other markup is removed.
func extract(htmlSrc string) (title, text string) {
	if m := titleRE.FindStringSubmatch(htmlSrc); m != nil {
		title = strings.TrimSpace(html.UnescapeString(tagRE.ReplaceAllString(m[1], "")))
	}

	s := scriptRE.ReplaceAllString(htmlSrc, " ")
	s = blockRE.ReplaceAllString(s, "\n")
	s = tagRE.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spaceRE.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if t := strings.TrimSpace(line); t != "" {
			kept = append(kept, t)
		}
	}
	return title, strings.Join(kept, "\n")
}

// dropLeadingBlocks removes the first n newline-separated text blocks.
// If the document has n or fewer blocks, everything is dropped.
func dropLeadingBlocks(text string, n int) string {
	if n <= 0 {
		return text
	}
	blocks := strings.Split(text, "\n")
	if n >= len(blocks) {
		return ""
	}
	return strings.Join(blocks[n:], "\n")
}
