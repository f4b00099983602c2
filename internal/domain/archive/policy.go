package archive

import (
	"path/filepath"
	"strings"
)

// Policy decides which files enter an archive. It is plain data so it can
// be inspected and tested on its own.
type Policy struct {
	// Extensions is the production allow-list of lower-case file extensions,
	// including the leading dot.
	Extensions map[string]bool
	// ExcludedDirs are directory names pruned in production archives. Source
	// directories such as src are not listed: compilation leaves their
	// runtime output in place, and sources are dropped by extension.
	ExcludedDirs map[string]bool
	// JunkNames are basenames never archived in any mode.
	JunkNames map[string]bool
}

// DefaultPolicy returns the standard production policy: runtime code,
// styles, markup, data and static assets; no sources, source maps or tests.
func DefaultPolicy() Policy {
	return Policy{
		Extensions: setOf(
			".js", ".mjs", ".cjs", ".json",
			".css", ".html",
			".graphql", ".gql",
			".svg", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico",
			".woff", ".woff2", ".ttf", ".eot",
			".md", ".txt",
		),
		ExcludedDirs: setOf("__tests__", "test", "tests", "node_modules", "coverage", ".git"),
		JunkNames:    setOf(".DS_Store", "Thumbs.db"),
	}
}

// WithExtensions returns a copy of p with extra allowed extensions. Entries
// without a leading dot get one.
func (p Policy) WithExtensions(exts ...string) Policy {
	out := p.clone()
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out.Extensions[ext] = true
	}
	return out
}

// IsJunk reports whether a basename is excluded in every mode.
func (p Policy) IsJunk(name string) bool {
	return p.JunkNames[name]
}

// IncludeDir reports whether a directory below a module root is walked.
func (p Policy) IncludeDir(name string, mode Mode) bool {
	if mode == Development {
		return true
	}
	return !p.ExcludedDirs[name]
}

// IncludeFile reports whether a file with the given basename is archived.
func (p Policy) IncludeFile(name string, mode Mode) bool {
	if p.IsJunk(name) {
		return false
	}
	if mode == Development {
		return true
	}
	return p.Extensions[strings.ToLower(filepath.Ext(name))]
}

func (p Policy) clone() Policy {
	return Policy{
		Extensions:   copySet(p.Extensions),
		ExcludedDirs: copySet(p.ExcludedDirs),
		JunkNames:    copySet(p.JunkNames),
	}
}

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func copySet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
