package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileNames are the configuration files looked up in the working directory,
// in order.
var FileNames = []string{"pluginkit.yaml", "pluginkit.yml", "pluginkit.toml"}

// Find returns the first configuration file present in dir.
func Find(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if st, err := os.Stat(path); err == nil && st.Mode().IsRegular() {
			return path, true
		}
	}
	return "", false
}

// Load reads the configuration at path. Fields missing from the file keep
// their defaults. Unknown keys are rejected so typos surface early.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewConfigNotFoundError(path)
		}
		return nil, err
	}

	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	cfg.path = path
	return cfg, nil
}

// Parse decodes data over the defaults. The format is chosen by the
// extension of name.
func Parse(name string, data []byte) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document is valid and keeps the defaults.
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, NewConfigParseError(name, err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, NewConfigParseError(name, err)
		}
	default:
		return nil, NewConfigFormatError(name)
	}

	return cfg, nil
}

// Resolve loads explicit when set, else the first configuration file found
// in dir, else the defaults. The result is validated.
func Resolve(dir, explicit string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch {
	case explicit != "":
		cfg, err = Load(explicit)
	default:
		if path, ok := Find(dir); ok {
			cfg, err = Load(path)
		} else {
			cfg = Default()
		}
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
