package main

import (
	"encoding/json"
	"io"

	"github.com/felixgeelhaar/pluginkit/internal/tui/ui"
)

var styles = ui.DefaultStyles()

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func mark(ok bool) string {
	if ok {
		return styles.Success.Render("✓")
	}
	return styles.Error.Render("✗")
}
