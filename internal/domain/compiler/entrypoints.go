package compiler

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// entryRef matches "main" and "file" string members of a manifest. Values
// with escapes are left alone.
var entryRef = regexp.MustCompile(`"(main|file)"(\s*:\s*)"([^"\\]*)"`)

// rewriteEntryPoints points manifest "main" and "file" references at the
// compiled .js output once the TypeScript they named is gone. "main" is
// relative to the manifest's directory, "file" to the plugin root. A
// reference is only rewritten when its .js counterpart exists.
func rewriteEntryPoints(pluginDir string, modules []string) (int, error) {
	rewritten := 0
	for _, module := range append([]string{"."}, modules...) {
		manifestDir := filepath.Join(pluginDir, module)
		path := filepath.Join(manifestDir, "manifest.json")
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return rewritten, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return rewritten, err
		}

		out := entryRef.ReplaceAllFunc(data, func(match []byte) []byte {
			sub := entryRef.FindSubmatch(match)
			key, sep, ref := string(sub[1]), string(sub[2]), string(sub[3])
			if !IsSource(filepath.Base(ref)) {
				return match
			}
			base := pluginDir
			if key == "main" {
				base = manifestDir
			}
			js := strings.TrimSuffix(ref, filepath.Ext(ref)) + ".js"
			if st, err := os.Stat(filepath.Join(base, filepath.FromSlash(js))); err != nil || !st.Mode().IsRegular() {
				return match
			}
			rewritten++
			return []byte(`"` + key + `"` + sep + `"` + js + `"`)
		})
		if bytes.Equal(out, data) {
			continue
		}
		if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
			return rewritten, err
		}
	}
	return rewritten, nil
}
