// Package templates holds the embedded file templates used to scaffold new
// plugins.
package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"
)

//go:embed files
var files embed.FS

// Data is the template context for every scaffolded file.
type Data struct {
	// Name is the plugin name as given by the user.
	Name string
	// PascalName is used for component and type identifiers, e.g. OrderHistory.
	PascalName string
	// CamelName is used for values and functions, e.g. orderHistory.
	CamelName string
	// KebabName is used for routes and GraphQL field prefixes, e.g. order-history.
	KebabName string
	// SnakeName is used for table names, e.g. order_history.
	SnakeName string
	// ConstName is used for constants, e.g. ORDER_HISTORY.
	ConstName   string
	Version     string
	Description string
	Author      string
}

var funcs = template.FuncMap{
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
}

// List returns the template paths of a set ("admin", "api" or "plugin"),
// relative to the set and without the .tmpl suffix, sorted.
func List(set string) ([]string, error) {
	root := path.Join("files", set)
	var out []string
	err := fs.WalkDir(files, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".tmpl") {
			return nil
		}
		rel := strings.TrimPrefix(p, root+"/")
		out = append(out, strings.TrimSuffix(rel, ".tmpl"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s templates: %w", set, err)
	}
	sort.Strings(out)
	return out, nil
}

// Render executes the template at set/name with data.
func Render(set, name string, data Data) ([]byte, error) {
	p := path.Join("files", set, name+".tmpl")
	content, err := files.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading template %s: %w", p, err)
	}

	tmpl, err := template.New(path.Base(p)).Funcs(funcs).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", p, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template %s: %w", p, err)
	}
	return buf.Bytes(), nil
}
