package compiler

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	// BuildConfigName is the temporary compiler configuration written into
	// each module.
	BuildConfigName = "tsconfig.pluginkit.json"
	// BuildDirName is the temporary output directory inside each module.
	BuildDirName = ".pluginkit-build"
)

type compilerOptions struct {
	Target           string `json:"target"`
	Module           string `json:"module"`
	ModuleResolution string `json:"moduleResolution"`
	JSX              string `json:"jsx"`
	RootDir          string `json:"rootDir"`
	OutDir           string `json:"outDir"`
	Declaration      bool   `json:"declaration"`
	SourceMap        bool   `json:"sourceMap"`
	EsModuleInterop  bool   `json:"esModuleInterop"`
	SkipLibCheck     bool   `json:"skipLibCheck"`
	ResolveJSON      bool   `json:"resolveJsonModule"`

	// Always written as false so an extended config (Vite templates set
	// noEmit and allowImportingTsExtensions) cannot suppress output.
	NoEmit                     bool `json:"noEmit"`
	EmitDeclarationOnly        bool `json:"emitDeclarationOnly"`
	AllowImportingTsExtensions bool `json:"allowImportingTsExtensions"`
	Composite                  bool `json:"composite"`
}

type buildConfig struct {
	Extends         string          `json:"extends,omitempty"`
	CompilerOptions compilerOptions `json:"compilerOptions"`
	Include         []string        `json:"include"`
	Exclude         []string        `json:"exclude"`
}

// newBuildConfig returns the configuration for compiling moduleDir. A
// tsconfig.json already present in the module is extended so its path
// aliases and strictness settings still apply.
func newBuildConfig(moduleDir string) buildConfig {
	cfg := buildConfig{
		CompilerOptions: compilerOptions{
			Target:           "ES2020",
			Module:           "ESNext",
			ModuleResolution: "node",
			JSX:              "react-jsx",
			RootDir:          ".",
			OutDir:           BuildDirName,
			EsModuleInterop:  true,
			SkipLibCheck:     true,
			ResolveJSON:      true,
		},
		Include: []string{"**/*.ts", "**/*.tsx"},
		Exclude: []string{
			"node_modules",
			BuildDirName,
			"**/__tests__/**",
			"**/*.test.ts",
			"**/*.test.tsx",
		},
	}
	if info, err := os.Stat(filepath.Join(moduleDir, "tsconfig.json")); err == nil && info.Mode().IsRegular() {
		cfg.Extends = "./tsconfig.json"
	}
	return cfg
}

// writeBuildConfig writes the build configuration into moduleDir and returns
// its path.
func writeBuildConfig(moduleDir string) (string, error) {
	data, err := json.MarshalIndent(newBuildConfig(moduleDir), "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(moduleDir, BuildConfigName)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
