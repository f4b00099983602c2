package plugin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/mod/semver"

	"github.com/felixgeelhaar/pluginkit/internal/domain/manifest"
)

// Summary describes a discovered plugin and the versions its manifests
// declare.
type Summary struct {
	Info Info `json:"info"`
	// ID is the resolved plugin id (see Info.ID).
	ID string `json:"id"`
	// Versions maps manifest path (relative, slash separated) to its version.
	Versions map[string]string `json:"versions"`
	// Version is the highest valid version across manifests, or "".
	Version string `json:"version"`
	// Issues lists consistency problems across the plugin's manifests.
	Issues []string `json:"issues,omitempty"`
}

// Consistent returns true if the plugin's manifests agree.
func (s Summary) Consistent() bool {
	return len(s.Issues) == 0
}

// DiscoveryResult captures both successful loads and errors.
type DiscoveryResult struct {
	Plugins []Summary
	Errors  []DiscoveryError
}

// HasErrors returns true if there were errors during discovery.
func (r *DiscoveryResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Loader discovers plugins under a plugins root.
type Loader struct {
	Root string
}

// NewLoader creates a loader for root.
func NewLoader(root string) *Loader {
	return &Loader{Root: root}
}

// Discover summarizes every plugin directory under the root, sorted by name.
// Directories without admin/ or api/ are skipped. A missing root yields an
// empty result.
func (l *Loader) Discover(ctx context.Context) (*DiscoveryResult, error) {
	result := &DiscoveryResult{
		Plugins: make([]Summary, 0),
		Errors:  make([]DiscoveryError, 0),
	}

	entries, err := os.ReadDir(l.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, nil
		}
		return nil, fmt.Errorf("reading plugins root: %w", err)
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(l.Root, entry.Name())
		summary, err := Summarize(path)
		if err != nil {
			result.Errors = append(result.Errors, DiscoveryError{Path: path, Err: err})
			continue
		}
		if !summary.Info.HasAdmin && !summary.Info.HasAPI {
			continue
		}
		result.Plugins = append(result.Plugins, summary)
	}

	sort.Slice(result.Plugins, func(i, j int) bool {
		return result.Plugins[i].Info.Name < result.Plugins[j].Info.Name
	})

	return result, nil
}

// Summarize probes a single plugin and checks that its manifests agree on
// pluginId and version.
func Summarize(path string) (Summary, error) {
	info, err := Probe(path)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Info:     info,
		ID:       info.ID(),
		Versions: make(map[string]string),
	}

	ids := make(map[string]bool)
	var best string
	for _, loc := range manifest.Locations(info.Path) {
		m, err := manifest.Load(loc)
		if manifest.IsNotFound(err) {
			continue
		}

		rel, relErr := filepath.Rel(info.Path, loc)
		if relErr != nil {
			rel = loc
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			summary.Issues = append(summary.Issues, fmt.Sprintf("%s: %v", rel, err))
			continue
		}

		if m.PluginID != "" {
			ids[m.PluginID] = true
		}

		summary.Versions[rel] = m.Version
		canonical := "v" + m.Version
		if m.Version == "" || !semver.IsValid(canonical) {
			summary.Issues = append(summary.Issues, fmt.Sprintf("%s: invalid version %q", rel, m.Version))
			continue
		}
		if best == "" || semver.Compare(canonical, best) > 0 {
			best = canonical
		}
	}

	if best != "" {
		summary.Version = best[1:]
	}

	if len(ids) > 1 {
		summary.Issues = append(summary.Issues, fmt.Sprintf("manifests declare %d different plugin ids", len(ids)))
	}

	for _, rel := range sortedKeys(summary.Versions) {
		v := summary.Versions[rel]
		if v != "" && best != "" && semver.IsValid("v"+v) && semver.Compare("v"+v, best) != 0 {
			summary.Issues = append(summary.Issues, fmt.Sprintf("%s: version %s lags behind %s", rel, v, summary.Version))
		}
	}

	return summary, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
